package commitlog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Commit - запись в истории MemoryRemote
type Commit struct {
	Revision  int
	Message   string
	Paths     []string
	Committed time.Time
}

// MemoryRemote - общее удалённое хранилище в памяти процесса.
// Несколько клонов с разными рабочими каталогами моделируют независимых писателей.
type MemoryRemote struct {
	mu       sync.Mutex
	files    map[string][]byte
	revision int
	history  []Commit
}

// NewMemoryRemote создаёт пустое удалённое хранилище
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{files: make(map[string][]byte)}
}

// Import принимает файлы управляемого каталога из dir как исходное состояние
// удалённого хранилища. Отсутствующий каталог означает пустое состояние.
func (r *MemoryRemote) Import(dir string) error {
	base := filepath.Join(dir, DefaultRoot)
	files := make(map[string][]byte)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("import %s: %w", base, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for p, data := range files {
		r.files[p] = data
	}
	return nil
}

// Clone создаёт клон, рабочее дерево которого находится в dir
func (r *MemoryRemote) Clone(dir string, logger *zap.Logger) *MemoryLog {
	return &MemoryLog{
		remote: r,
		dir:    dir,
		root:   DefaultRoot,
		base:   -1,
		logger: logger,
	}
}

// Revision возвращает номер последней фиксации
func (r *MemoryRemote) Revision() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// History возвращает копию истории фиксаций
func (r *MemoryRemote) History() []Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Commit, len(r.history))
	copy(out, r.history)
	return out
}

// File возвращает зафиксированное содержимое файла
func (r *MemoryRemote) File(path string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.files[path]
	return data, ok
}

// MemoryLog - клон MemoryRemote, реализующий CommitLog
type MemoryLog struct {
	remote *MemoryRemote
	dir    string
	root   string
	base   int
	logger *zap.Logger
}

// SyncToLatest переписывает управляемый каталог содержимым удалённого хранилища
func (l *MemoryLog) SyncToLatest(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	l.remote.mu.Lock()
	files := make(map[string][]byte, len(l.remote.files))
	for p, data := range l.remote.files {
		files[p] = data
	}
	revision := l.remote.revision
	l.remote.mu.Unlock()

	if err := mirror(l.dir, l.root, files); err != nil {
		return State{}, err
	}
	l.base = revision
	l.logger.Debug("Synced to latest", zap.Int("revision", revision))
	return State{Revision: strconv.Itoa(revision)}, nil
}

// Commit принимает изменения, только если с момента синхронизации никто не фиксировал
func (l *MemoryLog) Commit(ctx context.Context, paths []string, message string) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, err
	}
	if err := checkPaths(l.root, paths); err != nil {
		return CommitResult{}, err
	}
	changes, err := readTracked(l.dir, paths)
	if err != nil {
		return CommitResult{}, err
	}

	l.remote.mu.Lock()
	defer l.remote.mu.Unlock()

	if l.remote.revision != l.base {
		l.logger.Debug("Commit rejected", zap.Int("base", l.base), zap.Int("revision", l.remote.revision))
		return CommitResult{Status: Rejected, Revision: strconv.Itoa(l.remote.revision)}, nil
	}

	committed := make([]string, 0, len(changes))
	for p, data := range changes {
		if data == nil {
			delete(l.remote.files, p)
		} else {
			l.remote.files[p] = data
		}
		committed = append(committed, p)
	}
	sort.Strings(committed)
	l.remote.revision++
	l.remote.history = append(l.remote.history, Commit{
		Revision:  l.remote.revision,
		Message:   message,
		Paths:     committed,
		Committed: time.Now(),
	})
	l.base = l.remote.revision

	return CommitResult{Status: Committed, Revision: strconv.Itoa(l.remote.revision)}, nil
}

// Ping для памяти всегда успешен
func (l *MemoryLog) Ping(ctx context.Context) error {
	return ctx.Err()
}
