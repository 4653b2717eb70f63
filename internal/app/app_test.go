package app

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
)

func testSite() *models.SiteConfig {
	return &models.SiteConfig{BaseURL: "https://go.openhands.dev", PrimaryDomain: "https://openhands.dev"}
}

// setupTestEnvironment создаёт хранилище поверх журнала в памяти, сервис, приложение и маршрутизатор
func setupTestEnvironment(t *testing.T) (*repository.FileRepository, *commitlog.MemoryRemote, *App, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	remote := commitlog.NewMemoryRemote()
	repo, err := repository.NewFileRepository(dir, remote.Clone(dir, zap.NewNop()), zap.NewNop())
	require.NoError(t, err, "Failed to create file repository")

	engine, err := bulk.NewEngine(repo, "test-secret", zap.NewNop())
	require.NoError(t, err)
	svc := service.NewService(repo, engine, testSite(), zap.NewNop())
	appInstance := NewApp(svc, zap.NewNop())
	return repo, remote, appInstance, NewRouter(appInstance, zap.NewNop(), RouterOptions{})
}

// doRequest выполняет запрос к маршрутизатору без следования перенаправлениям
func doRequest(t *testing.T, h http.Handler, method, path, body string) *http.Response {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err, "Failed to create request")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // Не следовать редиректам
		},
	}
	resp, err := client.Do(req)
	require.NoError(t, err, "Failed to send request")
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	return string(body)
}

func seedLink(t *testing.T, repo repository.Repository, link models.Link) {
	t.Helper()
	_, err := repo.Create(context.Background(), link)
	require.NoError(t, err, "Failed to seed link")
}

// Тесты для HandleRedirect
func TestHandleRedirect(t *testing.T) {
	repo, _, _, router := setupTestEnvironment(t)
	past := time.Now().Add(time.Second)

	seedLink(t, repo, models.Link{
		Slug:        "news",
		Destination: "https://openhands.dev/blog?utm_source=own",
		UTMParams:   map[string]string{"source": "newsletter", "medium": "email"},
	})
	seedLink(t, repo, models.Link{
		Slug:                "event",
		Destination:         "https://luma.com/event",
		ExpiresAt:           &past,
		RedirectAfterExpiry: "https://luma.com/archive",
	})
	// Ждём истечения срока
	time.Sleep(time.Until(past) + 10*time.Millisecond)

	tests := []struct {
		name         string
		method       string
		path         string
		expectedCode int
		expectedLoc  string
	}{
		{
			name:         "Found",
			method:       http.MethodGet,
			path:         "/news",
			expectedCode: http.StatusTemporaryRedirect,
			expectedLoc:  "https://openhands.dev/blog?utm_source=own&utm_medium=email",
		},
		{
			name:         "Expired",
			method:       http.MethodGet,
			path:         "/event",
			expectedCode: http.StatusTemporaryRedirect,
			expectedLoc:  "https://luma.com/archive",
		},
		{
			name:         "NotFound",
			method:       http.MethodGet,
			path:         "/unknown",
			expectedCode: http.StatusTemporaryRedirect,
			expectedLoc:  "https://openhands.dev",
		},
		{
			name:         "InvalidMethod",
			method:       http.MethodPost,
			path:         "/news",
			expectedCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, router, tt.method, tt.path, "")
			assert.Equal(t, tt.expectedCode, resp.StatusCode, "Status code mismatch")
			if tt.expectedLoc != "" {
				assert.Equal(t, tt.expectedLoc, resp.Header.Get("Location"), "Location mismatch")
			}
		})
	}
}

func TestHandleRedirect_NoPrimaryDomain(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, err := bulk.NewEngine(repo, "s", zap.NewNop())
	require.NoError(t, err)
	appInstance := NewApp(service.NewService(repo, engine, &models.SiteConfig{}, zap.NewNop()), zap.NewNop())

	resp := doRequest(t, NewRouter(appInstance, zap.NewNop(), RouterOptions{}), http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Тесты для API ссылок
func TestLinksAPI(t *testing.T) {
	_, remote, _, router := setupTestEnvironment(t)

	// Создание
	resp := doRequest(t, router, http.MethodPost, "/api/links",
		`{"slug":"jan-news","destination":"https://openhands.dev/blog","text":"tag this as january and newsletter"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created LinkResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "https://go.openhands.dev/jan-news", created.ShortURL)
	assert.Equal(t, []string{"january", "newsletter"}, created.Tags)
	assert.Equal(t, "Add link: jan-news → https://openhands.dev/blog", remote.History()[0].Message)

	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Duplicate slug",
			method:       http.MethodPost,
			path:         "/api/links",
			body:         `{"slug":"jan-news","destination":"https://openhands.dev"}`,
			expectedCode: http.StatusConflict,
		},
		{
			name:         "Reserved slug",
			method:       http.MethodPost,
			path:         "/api/links",
			body:         `{"slug":"api","destination":"https://openhands.dev"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Invalid JSON",
			method:       http.MethodPost,
			path:         "/api/links",
			body:         `{"slug":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Invalid JSON"}`,
		},
		{
			name:         "Get by slug",
			method:       http.MethodGet,
			path:         "/api/links/jan-news",
			expectedCode: http.StatusOK,
		},
		{
			name:         "Get unknown",
			method:       http.MethodGet,
			path:         "/api/links/unknown",
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"link not found: unknown"}`,
		},
		{
			name:         "Update",
			method:       http.MethodPatch,
			path:         "/api/links/jan-news",
			body:         `{"description":"January newsletter"}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "Update invalid URL",
			method:       http.MethodPatch,
			path:         "/api/links/jan-news",
			body:         `{"destination":"ftp://files"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Update unknown",
			method:       http.MethodPatch,
			path:         "/api/links/unknown",
			body:         `{"description":"x"}`,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "List with filter",
			method:       http.MethodGet,
			path:         "/api/links?tag=January&limit=5",
			expectedCode: http.StatusOK,
		},
		{
			name:         "List invalid limit",
			method:       http.MethodGet,
			path:         "/api/links?limit=-1",
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"invalid limit"}`,
		},
		{
			name:         "Resolve",
			method:       http.MethodGet,
			path:         "/api/resolve/jan-news",
			expectedCode: http.StatusOK,
			expectedBody: `{"kind":"found","url":"https://openhands.dev/blog?utm_source=newsletter&utm_medium=email"}`,
		},
		{
			name:         "Delete",
			method:       http.MethodDelete,
			path:         "/api/links/jan-news",
			expectedCode: http.StatusOK,
		},
		{
			name:         "Delete again",
			method:       http.MethodDelete,
			path:         "/api/links/jan-news",
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "Stats",
			method:       http.MethodGet,
			path:         "/api/stats",
			expectedCode: http.StatusOK,
			expectedBody: `{"active":0,"expired":0,"archived":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, router, tt.method, tt.path, tt.body)
			body := readBody(t, resp)
			assert.Equal(t, tt.expectedCode, resp.StatusCode, "Status code mismatch: %s", body)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, body, "Body mismatch")
			}
		})
	}

	// Каждая операция записи - отдельная фиксация
	messages := make([]string, 0)
	for _, c := range remote.History() {
		messages = append(messages, c.Message)
	}
	assert.Equal(t, []string{
		"Add link: jan-news → https://openhands.dev/blog",
		"Update link: jan-news (description)",
		"Delete link: jan-news",
	}, messages)

	resp = doRequest(t, router, http.MethodGet, "/api/archived", "")
	var archived []models.Link
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&archived))
	require.Len(t, archived, 1)
	assert.Equal(t, "January newsletter", archived[0].Metadata.Description)
}

func TestLinksAPI_ContentType(t *testing.T) {
	_, _, _, router := setupTestEnvironment(t)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/links", "text/plain", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `{"error":"Content-Type must be application/json"}`, readBody(t, resp))
}

// Тесты для массовых операций
func TestBulkAPI(t *testing.T) {
	repo, _, _, router := setupTestEnvironment(t)
	for _, slug := range []string{"a", "b", "c"} {
		seedLink(t, repo, models.Link{Slug: slug, Destination: "https://example.com/" + slug, Tags: []string{"events"}})
	}

	resp := doRequest(t, router, http.MethodPost, "/api/bulk/plan", `{"tags":["Events"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan bulk.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	assert.Len(t, plan.Candidates, 3)

	// Plan ничего не изменяет
	assert.Equal(t, repository.Stats{Active: 3}, repo.GetStats())

	body, err := json.Marshal(ApplyRequest{Token: plan.Token, Action: bulk.Action{Kind: bulk.ActionArchive}})
	require.NoError(t, err)
	resp = doRequest(t, router, http.MethodPost, "/api/bulk/apply", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res bulk.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Succeeded)
	assert.Empty(t, res.Failed)

	resp = doRequest(t, router, http.MethodPost, "/api/bulk/apply", `{"token":"forged","action":{"kind":"archive"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Истёкших записей нет, очистка ничего не архивирует
	resp = doRequest(t, router, http.MethodPost, "/api/cleanup", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = bulk.Result{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Empty(t, res.Succeeded)
	assert.Equal(t, repository.Stats{Archived: 3}, repo.GetStats())
}

func TestHandleExtract(t *testing.T) {
	_, _, _, router := setupTestEnvironment(t)

	resp := doRequest(t, router, http.MethodPost, "/api/extract", `{"text":"tag as launch. Post on LinkedIn"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Tags      []string          `json:"tags"`
		UTMParams map[string]string `json:"utm_params"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"launch"}, got.Tags)
	assert.Equal(t, map[string]string{"source": "linkedin", "medium": "social"}, got.UTMParams)
}

func TestAPI_GzipResponse(t *testing.T) {
	repo, _, _, router := setupTestEnvironment(t)
	for i := 0; i < 20; i++ {
		slug := "link-" + strings.Repeat("x", i+1)
		seedLink(t, repo, models.Link{Slug: slug, Destination: "https://example.com/" + slug})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	var links []LinkResponse
	require.NoError(t, json.NewDecoder(gz).Decode(&links))
	assert.Len(t, links, 20)
}

// Тесты для HandlePing
func TestHandlePing(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		pingErr        error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "successful ping",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedBody:   "",
		},
		{
			name:           "database connection failed",
			method:         http.MethodGet,
			pingErr:        errors.New("connection failed"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Storage backend unavailable\n",
		},
		{
			name:           "wrong method",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
			expectedBody:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Создаём контроллер gomock для каждого подтеста
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockDB := commitlog.NewMockDatabase(ctrl)
			if tt.method == http.MethodGet {
				mockDB.EXPECT().PingContext(gomock.Any()).Return(tt.pingErr)
			}
			mockDB.EXPECT().BeginTx(gomock.Any(), gomock.Any()).Times(0)

			// Хранилище поверх журнала в Postgres
			dir := t.TempDir()
			repo, err := repository.NewFileRepository(dir, commitlog.NewPostgresLog(mockDB, dir, zap.NewNop()), zap.NewNop())
			require.NoError(t, err)
			engine, err := bulk.NewEngine(repo, "s", zap.NewNop())
			require.NoError(t, err)
			appInstance := NewApp(service.NewService(repo, engine, testSite(), zap.NewNop()), zap.NewNop())

			req := httptest.NewRequest(tt.method, "/ping", nil)
			w := httptest.NewRecorder()
			NewRouter(appInstance, zap.NewNop(), RouterOptions{}).ServeHTTP(w, req)

			// Проверяем статус и тело ответа
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(repository.ErrConflictUnresolved))
	assert.Equal(t, http.StatusConflict, statusFor(repository.ErrSlugConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
}
