package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/models"
)

// Раскладка файлов внутри рабочего дерева
const (
	LinksDir    = commitlog.DefaultRoot
	ActiveDir   = LinksDir + "/active"
	ArchivedDir = LinksDir + "/archived"
	QRCodesDir  = LinksDir + "/qr-codes"
	// QRArchivedDir хранит QR-коды архивных записей
	QRArchivedDir = QRCodesDir + "/archived"
)

// ActivePath возвращает путь файла активной записи
func ActivePath(slug string) string { return path.Join(ActiveDir, slug+".json") }

// ArchivedPath возвращает путь файла архивной копии
func ArchivedPath(key string) string { return path.Join(ArchivedDir, key+".json") }

// QRPath возвращает путь отрисованного QR-кода активной записи
func QRPath(slug string) string { return path.Join(QRCodesDir, slug+".png") }

func archivedQRPath(key string) string { return path.Join(QRArchivedDir, key+".png") }

// snapshot - состояние дерева после загрузки с диска. Карты не изменяются
// после построения и заменяются целиком.
type snapshot struct {
	active   map[string]models.Link
	archived map[string]models.Link // ключ архивной копии -> запись
}

// undo хранит прежнее содержимое путей, затронутых изменением. nil - файла не было.
type undo map[string][]byte

// change - результат применения намерения к снимку: файлы для записи и удаления
type change struct {
	writes  map[string][]byte
	removes []string
	message string
	result  models.Link
}

// paths возвращает все затронутые пути
func (c change) paths() []string {
	out := make([]string, 0, len(c.writes)+len(c.removes))
	for p := range c.writes {
		out = append(out, p)
	}
	out = append(out, c.removes...)
	sort.Strings(out)
	return out
}

// mutation применяет намерение вызывающего к свежему снимку
type mutation func(s snapshot, now time.Time) (change, error)

// txState - состояние цикла изменения
type txState int

const (
	stateSyncing txState = iota
	stateMutated
	stateCommitting
	stateCommitted
)

// FileRepository реализует интерфейс Repository поверх версионируемого дерева файлов:
// одна JSON-запись на файл, изменения публикуются через commitlog.CommitLog.
type FileRepository struct {
	dir         string
	log         commitlog.CommitLog
	logger      *zap.Logger
	now         func() time.Time
	maxAttempts int
	syncTimeout time.Duration

	state snapshot
	mutex sync.RWMutex
	// writeMu упорядочивает изменения внутри процесса
	writeMu sync.Mutex
	group   singleflight.Group
}

// NewFileRepository создаёт хранилище для рабочего дерева dir и загружает записи с диска.
// Синхронизация с журналом не выполняется: для неё есть Refresh.
func NewFileRepository(dir string, log commitlog.CommitLog, logger *zap.Logger, opts ...Option) (*FileRepository, error) {
	o := newOptions(opts)
	repo := &FileRepository{
		dir:         dir,
		log:         log,
		logger:      logger,
		now:         o.now,
		maxAttempts: o.maxAttempts,
		syncTimeout: o.syncTimeout,
		state: snapshot{
			active:   make(map[string]models.Link),
			archived: make(map[string]models.Link),
		},
	}

	if _, err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileRepository) abs(rel string) string {
	return filepath.Join(r.dir, filepath.FromSlash(rel))
}

// readDir читает все записи *.json каталога. Некорректные файлы пропускаются.
func (r *FileRepository) readDir(rel string) (map[string]models.Link, error) {
	out := make(map[string]models.Link)
	entries, err := os.ReadDir(r.abs(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		data, err := os.ReadFile(filepath.Join(r.abs(rel), name))
		if err != nil {
			r.logger.Warn("Skipping unreadable link file", zap.String("file", name), zap.Error(err))
			continue
		}
		var link models.Link
		if err := json.Unmarshal(data, &link); err != nil {
			// Пропускаем некорректные файлы и логируем это
			r.logger.Warn("Skipping invalid link file", zap.String("file", name), zap.Error(err))
			continue
		}
		if link.Slug == "" {
			r.logger.Warn("Skipping link file without slug", zap.String("file", name))
			continue
		}
		out[key] = link
	}
	return out, nil
}

// load перечитывает дерево с диска и заменяет индекс. Каталоги записей
// создаются заново: синхронизация с журналом удаляет пустые неотслеживаемые каталоги.
func (r *FileRepository) load() (snapshot, error) {
	for _, d := range []string{ActiveDir, ArchivedDir} {
		if err := os.MkdirAll(r.abs(d), 0755); err != nil {
			return snapshot{}, err
		}
	}

	active, err := r.readDir(ActiveDir)
	if err != nil {
		return snapshot{}, fmt.Errorf("read active links: %w", err)
	}
	archived, err := r.readDir(ArchivedDir)
	if err != nil {
		return snapshot{}, fmt.Errorf("read archived links: %w", err)
	}

	// Активная запись адресуется слагом из имени файла
	for key, link := range active {
		if link.Slug != key {
			r.logger.Warn("Skipping link file with mismatched slug", zap.String("file", key), zap.String("slug", link.Slug))
			delete(active, key)
		}
	}

	s := snapshot{active: active, archived: archived}
	r.mutex.Lock()
	r.state = s
	r.mutex.Unlock()
	return s, nil
}

// Reload перечитывает записи с диска. Параллельные вызовы объединяются;
// во время изменения вызов пропускается, так как изменение само обновит индекс.
func (r *FileRepository) Reload() error {
	_, err, _ := r.group.Do("reload", func() (interface{}, error) {
		if !r.writeMu.TryLock() {
			return nil, nil
		}
		defer r.writeMu.Unlock()
		return r.load()
	})
	return err
}

// Refresh синхронизирует дерево с журналом и перечитывает записи
func (r *FileRepository) Refresh(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, err := r.syncAndLoad(ctx)
	return err
}

func (r *FileRepository) syncAndLoad(ctx context.Context) (snapshot, error) {
	sctx, cancel := context.WithTimeout(ctx, r.syncTimeout)
	defer cancel()

	state, err := r.log.SyncToLatest(sctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("sync to latest: %w", err)
	}
	r.logger.Debug("Synced link tree", zap.String("revision", state.Revision))
	return r.load()
}

// Ping проверяет бэкенд журнала, если он это умеет
func (r *FileRepository) Ping(ctx context.Context) error {
	if p, ok := r.log.(commitlog.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// mutate проводит изменение через цикл Syncing → Mutated → Committing → Committed.
// Отклонённая фиксация возвращает цикл к синхронизации, и намерение применяется
// заново к свежему состоянию. После maxAttempts попыток возвращается ErrConflictUnresolved.
func (r *FileRepository) mutate(ctx context.Context, slug string, fn mutation) (models.Link, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var (
		state   = stateSyncing
		attempt int
		ch      change
		paths   []string
		written undo
	)
	for {
		switch state {
		case stateSyncing:
			if attempt == r.maxAttempts {
				r.logger.Warn("Giving up after rejected commits", zap.String("slug", slug), zap.Int("attempts", attempt))
				r.restore(ctx, written)
				return models.Link{}, fmt.Errorf("%w: %s after %d attempts", ErrConflictUnresolved, slug, attempt)
			}
			attempt++
			r.logger.Debug("Syncing before change", zap.String("slug", slug), zap.Int("attempt", attempt))
			s, err := r.syncAndLoad(ctx)
			if err != nil {
				// Файлы отклонённой попытки не должны пережить сбой синхронизации
				if written != nil {
					r.rollback(written)
				}
				return models.Link{}, err
			}
			written = nil
			if ch, err = fn(s, r.now()); err != nil {
				return models.Link{}, err
			}
			state = stateMutated

		case stateMutated:
			var err error
			paths, written, err = r.writeChange(ch)
			if err != nil {
				r.restore(ctx, written)
				return models.Link{}, err
			}
			state = stateCommitting

		case stateCommitting:
			res, err := r.log.Commit(ctx, paths, ch.message)
			if err != nil {
				r.restore(ctx, written)
				return models.Link{}, fmt.Errorf("commit: %w", err)
			}
			if res.Status == commitlog.Rejected {
				r.logger.Info("Commit rejected, retrying", zap.String("slug", slug), zap.Int("attempt", attempt))
				state = stateSyncing
				continue
			}
			r.logger.Info("Committed link change",
				zap.String("slug", slug),
				zap.String("message", ch.message),
				zap.String("revision", res.Revision),
			)
			state = stateCommitted

		case stateCommitted:
			if _, err := r.load(); err != nil {
				r.logger.Error("Failed to reload after commit", zap.Error(err))
			}
			return ch.result.Clone(), nil
		}
	}
}

// restore возвращает рабочее дерево к зафиксированному состоянию после сбоя.
// Если журнал недоступен, затронутые файлы откатываются локально.
func (r *FileRepository) restore(ctx context.Context, written undo) {
	if _, err := r.syncAndLoad(ctx); err != nil {
		r.logger.Error("Failed to restore link tree", zap.Error(err))
		r.rollback(written)
	}
}

// rollback возвращает затронутым путям прежнее содержимое и перечитывает индекс
func (r *FileRepository) rollback(written undo) {
	for p, data := range written {
		var err error
		if data == nil {
			if err = os.Remove(r.abs(p)); errors.Is(err, fs.ErrNotExist) {
				err = nil
			}
		} else {
			err = writeFileAtomic(r.abs(p), data)
		}
		if err != nil {
			r.logger.Error("Failed to roll back link file", zap.String("path", p), zap.Error(err))
		}
	}
	if _, err := r.load(); err != nil {
		r.logger.Error("Failed to reload after rollback", zap.Error(err))
	}
}

// writeChange записывает файлы атомарно и удаляет лишние. Возвращает
// затронутые пути и их прежнее содержимое, в том числе при ошибке.
func (r *FileRepository) writeChange(ch change) ([]string, undo, error) {
	paths := ch.paths()
	prev := make(undo, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(r.abs(p))
		switch {
		case err == nil:
			prev[p] = data
		case errors.Is(err, fs.ErrNotExist):
			prev[p] = nil
		default:
			return nil, nil, fmt.Errorf("read %s: %w", p, err)
		}
	}

	for p, data := range ch.writes {
		if err := writeFileAtomic(r.abs(p), data); err != nil {
			return nil, prev, fmt.Errorf("write %s: %w", p, err)
		}
	}
	for _, p := range ch.removes {
		if err := os.Remove(r.abs(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, prev, fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return paths, prev, nil
}

// writeFileAtomic пишет во временный файл в том же каталоге и переименовывает его
func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func encodeLink(l models.Link) ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Create сохраняет новую активную запись
func (r *FileRepository) Create(ctx context.Context, link models.Link) (models.Link, error) {
	rec, err := prepareNew(link, r.now())
	if err != nil {
		return models.Link{}, err
	}
	data, err := encodeLink(rec)
	if err != nil {
		return models.Link{}, err
	}

	return r.mutate(ctx, rec.Slug, func(s snapshot, _ time.Time) (change, error) {
		if _, exists := s.active[rec.Slug]; exists {
			return change{}, fmt.Errorf("%w: %s", ErrSlugConflict, rec.Slug)
		}
		return change{
			writes:  map[string][]byte{ActivePath(rec.Slug): data},
			message: addMessage(rec),
			result:  rec,
		}, nil
	})
}

// Get возвращает активную запись из локального индекса
func (r *FileRepository) Get(slug string) (models.Link, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	l, exists := r.state.active[slug]
	if !exists {
		return models.Link{}, false
	}
	return l.Clone(), true
}

// Update применяет частичное обновление к свежей версии записи
func (r *FileRepository) Update(ctx context.Context, slug string, update models.LinkUpdate) (models.Link, error) {
	if err := validateUpdate(update, r.now()); err != nil {
		return models.Link{}, err
	}

	return r.mutate(ctx, slug, func(s snapshot, now time.Time) (change, error) {
		current, exists := s.active[slug]
		if !exists {
			return change{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		updated := applyUpdate(current, update, now)
		data, err := encodeLink(updated)
		if err != nil {
			return change{}, err
		}
		return change{
			writes:  map[string][]byte{ActivePath(slug): data},
			message: updateMessage(slug, update),
			result:  updated,
		}, nil
	})
}

// Archive переносит запись и её QR-код в архив
func (r *FileRepository) Archive(ctx context.Context, slug string) (models.Link, error) {
	return r.mutate(ctx, slug, func(s snapshot, now time.Time) (change, error) {
		current, exists := s.active[slug]
		if !exists {
			return change{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		key := archiveKey(slug, now, func(k string) bool {
			_, taken := s.archived[k]
			return taken
		})

		ch := change{
			writes:  make(map[string][]byte),
			removes: []string{ActivePath(slug)},
			message: deleteMessage(slug),
		}

		archived := current.Clone()
		archived.Metadata.LastModified = now

		// QR-код переносится вместе с записью
		qr, err := os.ReadFile(r.abs(QRPath(slug)))
		switch {
		case err == nil:
			ch.writes[archivedQRPath(key)] = qr
			ch.removes = append(ch.removes, QRPath(slug))
			if archived.QRConfig != nil {
				archived.QRConfig.FilePath = archivedQRPath(key)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return change{}, fmt.Errorf("read QR code: %w", err)
		}

		data, err := encodeLink(archived)
		if err != nil {
			return change{}, err
		}
		ch.writes[ArchivedPath(key)] = data
		ch.result = archived
		return ch, nil
	})
}

// List возвращает активные записи по фильтру из локального индекса
func (r *FileRepository) List(filter models.ListFilter) []models.Link {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return selectLinks(r.state.active, filter, r.now())
}

// ListArchived возвращает архивные копии
func (r *FileRepository) ListArchived() []models.Link {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]models.Link, 0, len(r.state.archived))
	for _, l := range r.state.archived {
		out = append(out, l.Clone())
	}
	sortArchived(out)
	return out
}

// GetStats возвращает количество записей
func (r *FileRepository) GetStats() Stats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return countStats(r.state.active, r.state.archived, r.now())
}
