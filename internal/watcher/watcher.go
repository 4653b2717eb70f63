// Package watcher поддерживает индекс хранилища в актуальном состоянии: перечитывает
// записи при изменении файлов рабочего дерева и периодически синхронизируется с журналом.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce - пауза после последнего события перед перечитыванием
const DefaultDebounce = 500 * time.Millisecond

// Reloader перечитывает записи с диска
type Reloader interface {
	Reload() error
}

// Watcher следит за каталогами записей и вызывает Reload после серии изменений
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	target   Reloader
	dirs     []string
	debounce time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// New создаёт Watcher для каталогов dirs. debounce <= 0 заменяется на DefaultDebounce.
func New(dirs []string, target Reloader, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  w,
		target:   target,
		dirs:     dirs,
		debounce: debounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start подписывается на каталоги и запускает обработку событий
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.logger.Info("Watching directory", zap.String("dir", dir))
	}

	w.running = true
	go w.run(ctx)
	return nil
}

// Stop останавливает обработку событий и освобождает ресурсы
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("Failed to close watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) && !w.watchedDirGone(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			if err := w.target.Reload(); err != nil {
				w.logger.Error("Failed to reload links", zap.Error(err))
			} else {
				w.logger.Debug("Reloaded links after file change")
			}
			// Каталог мог быть удалён и создан заново: подписка восстанавливается
			if err := w.rewatch(); err != nil {
				w.logger.Warn("Failed to rewatch directory", zap.Error(err))
				timer.Reset(w.debounce)
				pending = timer.C
			}
		}
	}
}

// watchedDirGone сообщает об удалении или переименовании самого наблюдаемого каталога.
// После такого события подписка на каталог теряется.
func (w *Watcher) watchedDirGone(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, dir := range w.dirs {
		if filepath.Clean(dir) == name {
			return true
		}
	}
	return false
}

// rewatch подписывается на каталоги повторно. Повторная подписка на
// существующий каталог ничего не меняет.
func (w *Watcher) rewatch() error {
	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return nil
}

// relevant оставляет только изменения файлов записей
func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// Periodic вызывает fn каждые interval до отмены ctx. Ошибка вызова
// логируется и не прерывает цикл. interval <= 0 отключает цикл.
func Periodic(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Periodic task failed", zap.String("task", name), zap.Error(err))
			}
		}
	}
}
