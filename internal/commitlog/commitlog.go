// Package commitlog описывает версионируемое хранилище, в которое Record Store
// фиксирует изменения файлов записей. Отклонённая фиксация - не ошибка, а
// типизированный результат Rejected, по которому вызывающий повторяет попытку.
package commitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot - каталог внутри рабочего дерева, которым управляет журнал.
// Остальное содержимое data/, например config.json, синхронизация не трогает.
const DefaultRoot = "data/links"

var (
	// ErrUnknownBackend возвращается при неизвестном имени бэкенда
	ErrUnknownBackend = errors.New("unknown commit log backend")
	// ErrPathOutsideRoot возвращается при попытке зафиксировать путь вне управляемого каталога
	ErrPathOutsideRoot = errors.New("path outside of tracked root")
)

// Status - исход попытки фиксации
type Status int

const (
	// Committed - изменения приняты удалённым хранилищем
	Committed Status = iota
	// Rejected - удалённое состояние ушло вперёд с момента синхронизации
	Rejected
)

func (s Status) String() string {
	switch s {
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State описывает состояние после синхронизации
type State struct {
	Revision string
}

// CommitResult - результат фиксации
type CommitResult struct {
	Status   Status
	Revision string
}

// CommitLog - внешний журнал фиксаций.
// SyncToLatest приводит локальное дерево к последнему зафиксированному состоянию,
// Commit публикует изменения перечисленных путей (относительно рабочего дерева).
type CommitLog interface {
	SyncToLatest(ctx context.Context) (State, error)
	Commit(ctx context.Context, paths []string, message string) (CommitResult, error)
}

// Pinger реализуют бэкенды, умеющие проверять своё состояние
type Pinger interface {
	Ping(ctx context.Context) error
}

func underRoot(root, p string) bool {
	clean := filepath.ToSlash(filepath.Clean(p))
	return clean == root || strings.HasPrefix(clean, root+"/")
}

// checkPaths проверяет, что все пути лежат внутри root
func checkPaths(root string, paths []string) error {
	for _, p := range paths {
		if !underRoot(root, p) {
			return fmt.Errorf("%w: %s", ErrPathOutsideRoot, p)
		}
	}
	return nil
}

// readTracked читает текущее содержимое путей в рабочем дереве.
// Отсутствующий файл попадает в результат как nil (удаление).
func readTracked(dir string, paths []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(paths))
	for _, p := range paths {
		key := filepath.ToSlash(filepath.Clean(p))
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
		if errors.Is(err, fs.ErrNotExist) {
			out[key] = nil
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		out[key] = data
	}
	return out, nil
}

// mirror приводит каталог root внутри dir к содержимому files:
// записывает файлы и удаляет лишние. Пути files вне root пропускаются.
func mirror(dir, root string, files map[string][]byte) error {
	base := filepath.Join(dir, root)
	if err := os.MkdirAll(base, 0755); err != nil {
		return err
	}

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if _, ok := files[filepath.ToSlash(rel)]; !ok {
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clean %s: %w", base, err)
	}

	for p, data := range files {
		if !underRoot(root, p) {
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(p))
		if current, err := os.ReadFile(target); err == nil && bytes.Equal(current, data) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}
