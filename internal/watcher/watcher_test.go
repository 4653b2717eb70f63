package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingReloader struct {
	calls atomic.Int32
}

func (c *countingReloader) Reload() error {
	c.calls.Add(1)
	return nil
}

func TestWatcher_DebouncesReloads(t *testing.T) {
	dir := t.TempDir()
	target := &countingReloader{}
	w, err := New([]string{dir}, target, 100*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Серия изменений даёт одно перечитывание
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0644))
	}

	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())

	// Посторонние файлы не учитываются
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".a.json.tmp42"), []byte("x"), 0644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestWatcher_ReloadsFileRepository(t *testing.T) {
	dir := t.TempDir()
	remote := commitlog.NewMemoryRemote()
	repo, err := repository.NewFileRepository(dir, remote.Clone(dir, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	w, err := New([]string{
		filepath.Join(dir, filepath.FromSlash(repository.ActiveDir)),
		filepath.Join(dir, filepath.FromSlash(repository.ArchivedDir)),
	}, repo, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Запись появилась в дереве помимо хранилища, например после ручного редактирования
	file := filepath.Join(dir, filepath.FromSlash(repository.ActivePath("docs")))
	data := []byte(`{"id":"docs_20250101_000000_abcdef12","slug":"docs","destination":"https://docs.openhands.dev","created_at":"2025-01-01T00:00:00Z"}`)
	require.NoError(t, os.WriteFile(file, data, 0644))

	assert.Eventually(t, func() bool {
		_, ok := repo.Get("docs")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	link, _ := repo.Get("docs")
	assert.Equal(t, "https://docs.openhands.dev", link.Destination)
}

// recreatingReloader заново создаёт каталог, как это делает хранилище после синхронизации
type recreatingReloader struct {
	dir   string
	calls atomic.Int32
}

func (r *recreatingReloader) Reload() error {
	r.calls.Add(1)
	return os.MkdirAll(r.dir, 0755)
}

func TestWatcher_RewatchesRecreatedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "active")
	require.NoError(t, os.MkdirAll(dir, 0755))
	target := &recreatingReloader{dir: dir}

	w, err := New([]string{dir}, target, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Удаление самого каталога тоже приводит к перечитыванию
	require.NoError(t, os.Remove(dir))
	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.DirExists(t, dir)

	// Изменения в созданном заново каталоге по-прежнему замечаются
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{}`), 0644)
		return target.calls.Load() >= 2
	}, 2*time.Second, 100*time.Millisecond)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := New([]string{t.TempDir()}, &countingReloader{}, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	w.Stop()
}

func TestWatcher_MissingDir(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing")}, &countingReloader{}, 0, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create json", fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Create}, true},
		{"write json", fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Write}, true},
		{"remove json", fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Remove}, true},
		{"rename json", fsnotify.Event{Name: "/d/a.JSON", Op: fsnotify.Rename}, true},
		{"chmod json", fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Chmod}, false},
		{"temp file", fsnotify.Event{Name: "/d/.a.json.tmp1", Op: fsnotify.Create}, false},
		{"hidden json", fsnotify.Event{Name: "/d/.a.json", Op: fsnotify.Create}, false},
		{"png", fsnotify.Event{Name: "/d/a.png", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}

func TestPeriodic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})

	go func() {
		defer close(done)
		Periodic(ctx, "refresh", 10*time.Millisecond, func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("sync failed")
			}
			return nil
		}, zap.NewNop())
	}()

	// Ошибка не останавливает цикл
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestPeriodic_Disabled(t *testing.T) {
	called := false
	Periodic(context.Background(), "refresh", 0, func(context.Context) error {
		called = true
		return nil
	}, zap.NewNop())
	assert.False(t, called)
}
