package commitlog

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func configureIdentity(t *testing.T, dir string) {
	git(t, dir, "config", "user.email", "agent@example.com")
	git(t, dir, "config", "user.name", "openlinks-agent")
	git(t, dir, "config", "commit.gpgsign", "false")
}

// setupGitRemote создаёт bare-репозиторий с одной фиксацией и два клона
func setupGitRemote(t *testing.T) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	seed := filepath.Join(root, "seed")
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")

	git(t, root, "init", "--quiet", "--bare", remote)
	git(t, remote, "symbolic-ref", "HEAD", "refs/heads/main")

	git(t, root, "init", "--quiet", seed)
	configureIdentity(t, seed)
	git(t, seed, "symbolic-ref", "HEAD", "refs/heads/main")
	writeFile(t, seed, "data/config.json", "{}")
	writeFile(t, seed, "data/links/active/seed.json", `{"slug":"seed"}`)
	git(t, seed, "add", "-A")
	git(t, seed, "commit", "--quiet", "-m", "seed")
	git(t, seed, "remote", "add", "origin", remote)
	git(t, seed, "push", "--quiet", "origin", "main")

	for _, dir := range []string{a, b} {
		git(t, root, "clone", "--quiet", remote, dir)
		configureIdentity(t, dir)
	}
	return a, b
}

func TestGitLog_RejectsAndRecovers(t *testing.T) {
	dirA, dirB := setupGitRemote(t)
	ctx := context.Background()

	a := NewGitLog(dirA, "origin", "main", zap.NewNop())
	b := NewGitLog(dirB, "origin", "main", zap.NewNop())

	require.NoError(t, a.Ping(ctx))

	// Неотслеживаемые файлы вне data/links синхронизация не удаляет
	writeFile(t, dirA, "data/notes.txt", "draft")
	writeFile(t, dirA, "data/links/active/draft.json", "draft")

	_, err := a.SyncToLatest(ctx)
	require.NoError(t, err)
	_, err = b.SyncToLatest(ctx)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dirA, "data/notes.txt"))
	assert.NoFileExists(t, filepath.Join(dirA, "data/links/active/draft.json"))

	writeFile(t, dirA, "data/links/active/a.json", "a")
	res, err := a.Commit(ctx, []string{"data/links/active/a.json"}, "Add link: a → https://a.example")
	require.NoError(t, err)
	assert.Equal(t, Committed, res.Status)

	writeFile(t, dirB, "data/links/active/b.json", "b")
	res, err = b.Commit(ctx, []string{"data/links/active/b.json"}, "Add link: b → https://b.example")
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Status)

	state, err := b.SyncToLatest(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, state.Revision)
	assert.FileExists(t, filepath.Join(dirB, "data/links/active/a.json"))
	assert.NoFileExists(t, filepath.Join(dirB, "data/links/active/b.json"))

	writeFile(t, dirB, "data/links/active/b.json", "b")
	res, err = b.Commit(ctx, []string{"data/links/active/b.json"}, "Add link: b → https://b.example")
	require.NoError(t, err)
	assert.Equal(t, Committed, res.Status)
}

func TestGitLog_NothingToCommit(t *testing.T) {
	dirA, _ := setupGitRemote(t)
	ctx := context.Background()

	a := NewGitLog(dirA, "origin", "main", zap.NewNop())
	state, err := a.SyncToLatest(ctx)
	require.NoError(t, err)

	res, err := a.Commit(ctx, []string{"data/links/active/seed.json"}, "noop")
	require.NoError(t, err)
	assert.Equal(t, Committed, res.Status)
	assert.Equal(t, state.Revision, res.Revision)
}

func TestGitLog_PingOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	l := NewGitLog(t.TempDir(), "", "main", zap.NewNop())
	assert.Error(t, l.Ping(context.Background()))
}
