package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/config"
	grpcclient "github.com/jamiechicago312/openlinks/internal/grpc"
	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
)

func newTestClient(t *testing.T) proto.LinkToolsClient {
	t.Helper()
	repo := repository.NewMemoryRepository()
	engine, err := bulk.NewEngine(repo, "test-secret", zap.NewNop())
	require.NoError(t, err)
	svc := service.NewService(repo, engine, config.DefaultSite(), zap.NewNop())
	return grpcclient.NewLocalClient(grpcclient.NewServer(svc, zap.NewNop()))
}

// execute выполняет команду и возвращает стандартный вывод
func execute(t *testing.T, client proto.LinkToolsClient, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "fatal")
	cmd := newRootCmd(client)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateAndRead(t *testing.T) {
	client := newTestClient(t)

	out, err := execute(t, client, "", "create", "jan-news", "https://openhands.dev/blog",
		"--text", "tag this as january", "--issue", "7", "--description", "January newsletter")
	require.NoError(t, err)
	assert.Contains(t, out, "https://go.openhands.dev/jan-news")
	assert.Contains(t, out, "january,issue-7")
	assert.Contains(t, out, "January newsletter")

	out, err = execute(t, client, "", "read", "https://go.openhands.dev/jan-news", "-o", "json")
	require.NoError(t, err)
	var resp proto.LinkResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "jan-news", resp.Link.Slug)
	assert.Equal(t, "https://openhands.dev/blog", resp.Link.Destination)
	assert.Equal(t, []string{"january", "issue-7"}, resp.Link.Tags)

	// Повторное создание отклоняется с сообщением без обёртки gRPC
	_, err = execute(t, client, "", "create", "jan-news", "https://openhands.dev")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "rpc error")
}

func TestCreate_ExplicitFlagsReplaceExtracted(t *testing.T) {
	client := newTestClient(t)

	out, err := execute(t, client, "", "create", "launch", "https://openhands.dev",
		"--text", "tag this as january. Post on Twitter",
		"--tag", "launch", "--utm", "utm_source=github", "--expires", "2099-12-31", "-o", "json")
	require.NoError(t, err)

	var resp proto.LinkResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"launch"}, resp.Link.Tags)
	assert.Equal(t, map[string]string{"source": "github"}, resp.Link.UTMParams)
	require.NotNil(t, resp.Link.ExpiresAt)
	assert.Equal(t, time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC), *resp.Link.ExpiresAt)
}

func TestCreate_InvalidFlags(t *testing.T) {
	client := newTestClient(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing destination", []string{"create", "docs"}},
		{"bad utm", []string{"create", "docs", "https://docs.openhands.dev", "--utm", "twitter"}},
		{"bad date", []string{"create", "docs", "https://docs.openhands.dev", "--expires", "someday"}},
		{"bad output", []string{"create", "docs", "https://docs.openhands.dev", "-o", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, client, "", tt.args...)
			assert.Error(t, err)
		})
	}

	// Ни одна из неудачных команд не создала запись
	_, err := execute(t, client, "", "read", "docs")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	client := newTestClient(t)
	_, err := execute(t, client, "", "create", "docs", "https://docs.openhands.dev")
	require.NoError(t, err)

	out, err := execute(t, client, "", "update", "docs", "--description", "Docs home", "--tag", "docs", "-o", "yaml")
	require.NoError(t, err)

	var doc struct {
		Link struct {
			Tags     []string `yaml:"tags"`
			Metadata struct {
				Description string `yaml:"description"`
			} `yaml:"metadata"`
		} `yaml:"link"`
		ShortURL string `yaml:"short_url"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Docs home", doc.Link.Metadata.Description)
	assert.Equal(t, []string{"docs"}, doc.Link.Tags)
	assert.Equal(t, "https://go.openhands.dev/docs", doc.ShortURL)

	_, err = execute(t, client, "", "update", "docs")
	assert.EqualError(t, err, "nothing to update")

	_, err = execute(t, client, "", "update", "missing", "--description", "x")
	assert.Error(t, err)
}

func TestDeleteAndList(t *testing.T) {
	client := newTestClient(t)
	for _, slug := range []string{"a", "b"} {
		_, err := execute(t, client, "", "create", slug, "https://example.com/"+slug, "--tag", "events")
		require.NoError(t, err)
	}

	out, err := execute(t, client, "", "list", "--tag", "events")
	require.NoError(t, err)
	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "https://example.com/a")
	assert.Contains(t, out, "https://example.com/b")

	_, err = execute(t, client, "", "delete", "a")
	require.NoError(t, err)

	out, err = execute(t, client, "", "list", "-o", "json")
	require.NoError(t, err)
	var active proto.ListLinksResponse
	require.NoError(t, json.Unmarshal([]byte(out), &active))
	require.Len(t, active.Links, 1)
	assert.Equal(t, "b", active.Links[0].Link.Slug)

	out, err = execute(t, client, "", "list", "--archived", "-o", "json")
	require.NoError(t, err)
	var archived proto.ListLinksResponse
	require.NoError(t, json.Unmarshal([]byte(out), &archived))
	require.Len(t, archived.Links, 1)
	assert.Equal(t, "a", archived.Links[0].Link.Slug)

	out, err = execute(t, client, "", "list", "--tag", "missing")
	require.NoError(t, err)
	assert.Equal(t, "No links found\n", out)
}

func TestBulkArchive(t *testing.T) {
	client := newTestClient(t)
	for _, slug := range []string{"a", "b"} {
		_, err := execute(t, client, "", "create", slug, "https://example.com", "--tag", "events")
		require.NoError(t, err)
	}
	_, err := execute(t, client, "", "create", "keep", "https://example.com")
	require.NoError(t, err)

	// Отказ от подтверждения ничего не меняет
	_, err = execute(t, client, "n\n", "bulk", "archive", "--tag", "events")
	assert.ErrorIs(t, err, errAborted)

	out, err := execute(t, client, "", "stats")
	require.NoError(t, err)
	assert.Equal(t, "Active: 3\nExpired: 0\nArchived: 0\n", out)

	out, err = execute(t, client, "yes\n", "bulk", "archive", "--tag", "events")
	require.NoError(t, err)
	assert.Contains(t, out, "Succeeded: 2")

	out, err = execute(t, client, "", "stats", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":1,"expired":0,"archived":2}`, out)

	out, err = execute(t, client, "", "bulk", "archive", "--tag", "events", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "No links match\n", out)
}

func TestBulkUpdate(t *testing.T) {
	client := newTestClient(t)
	for _, slug := range []string{"a", "b"} {
		_, err := execute(t, client, "", "create", slug, "https://example.com", "--tag", "events")
		require.NoError(t, err)
	}

	out, err := execute(t, client, "", "bulk", "update", "--tag", "events", "--set-tag", "archive-me", "--yes", "-o", "json")
	require.NoError(t, err)
	var res bulk.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.ElementsMatch(t, []string{"a", "b"}, res.Succeeded)
	assert.Empty(t, res.Failed)

	out, err = execute(t, client, "", "list", "--tag", "archive-me", "-o", "json")
	require.NoError(t, err)
	var list proto.ListLinksResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list.Links, 2)

	_, err = execute(t, client, "", "bulk", "update", "--tag", "events", "--yes")
	assert.EqualError(t, err, "nothing to update")
}

func TestResolveExtractAndCleanup(t *testing.T) {
	client := newTestClient(t)
	_, err := execute(t, client, "", "create", "docs", "https://docs.openhands.dev", "--utm", "source=github")
	require.NoError(t, err)

	out, err := execute(t, client, "", "resolve", "docs")
	require.NoError(t, err)
	assert.Equal(t, "found https://docs.openhands.dev?utm_source=github\n", out)

	out, err = execute(t, client, "", "resolve", "missing")
	require.NoError(t, err)
	assert.Equal(t, "not_found https://openhands.dev\n", out)

	out, err = execute(t, client, "", "extract", "label it as launch.", "Post on Twitter", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":["launch"],"utm_params":{"source":"twitter","medium":"social"}}`, out)

	out, err = execute(t, client, "", "cleanup")
	require.NoError(t, err)
	assert.Equal(t, "Succeeded: 0\n", out)
}

func TestLocalMode(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, nil, "", "--backend", "memory", "--data-dir", dir,
		"create", "docs", "https://docs.openhands.dev")
	require.NoError(t, err)
	assert.Contains(t, out, "https://go.openhands.dev/docs")

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(repository.ActivePath("docs"))))
	assert.NoError(t, err)

	// Следующий запуск видит записи, созданные предыдущим
	out, err = execute(t, nil, "", "--backend", "memory", "--data-dir", dir, "read", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "https://docs.openhands.dev")

	_, err = execute(t, nil, "", "--backend", "unknown", "--data-dir", dir, "stats")
	assert.Error(t, err)
}

func TestParseUTM(t *testing.T) {
	params, err := parseUTM([]string{"utm_Source=github", " medium = social "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source": "github", "medium": "social"}, params)

	for _, bad := range []string{"source", "=github"} {
		_, err := parseUTM([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-12-31", time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"2026-12-31T10:30:00Z", time.Date(2026, 12, 31, 10, 30, 0, 0, time.UTC)},
		{"2026-12-31T10:30:00+02:00", time.Date(2026, 12, 31, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}

	_, err := parseTime("not a date")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"yes", true},
		{"n\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.in), &out, "archive 2 link(s)?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, "archive 2 link(s)? [y/N]: ", out.String())
	}
}
