package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jamiechicago312/openlinks/internal/models"
)

// MemoryRepository реализует интерфейс Repository в памяти процесса.
// Журнал фиксаций не используется, конфликтов не бывает.
type MemoryRepository struct {
	active   map[string]models.Link
	archived map[string]models.Link
	now      func() time.Time
	mutex    sync.RWMutex
}

// NewMemoryRepository создаёт новый экземпляр MemoryRepository
func NewMemoryRepository(opts ...Option) *MemoryRepository {
	o := newOptions(opts)
	return &MemoryRepository{
		active:   make(map[string]models.Link),
		archived: make(map[string]models.Link),
		now:      o.now,
	}
}

// Create сохраняет новую запись
func (r *MemoryRepository) Create(ctx context.Context, link models.Link) (models.Link, error) {
	if err := ctx.Err(); err != nil {
		return models.Link{}, err
	}
	rec, err := prepareNew(link, r.now())
	if err != nil {
		return models.Link{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.active[rec.Slug]; exists {
		return models.Link{}, fmt.Errorf("%w: %s", ErrSlugConflict, rec.Slug)
	}
	r.active[rec.Slug] = rec
	return rec.Clone(), nil
}

// Get возвращает активную запись по слагу
func (r *MemoryRepository) Get(slug string) (models.Link, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	l, exists := r.active[slug]
	if !exists {
		return models.Link{}, false
	}
	return l.Clone(), true
}

// Update применяет частичное обновление
func (r *MemoryRepository) Update(ctx context.Context, slug string, update models.LinkUpdate) (models.Link, error) {
	if err := ctx.Err(); err != nil {
		return models.Link{}, err
	}
	now := r.now()
	if err := validateUpdate(update, now); err != nil {
		return models.Link{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.active[slug]
	if !exists {
		return models.Link{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	updated := applyUpdate(current, update, now)
	r.active[slug] = updated
	return updated.Clone(), nil
}

// Archive переносит запись в архив
func (r *MemoryRepository) Archive(ctx context.Context, slug string) (models.Link, error) {
	if err := ctx.Err(); err != nil {
		return models.Link{}, err
	}
	now := r.now()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.active[slug]
	if !exists {
		return models.Link{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	key := archiveKey(slug, now, func(k string) bool {
		_, taken := r.archived[k]
		return taken
	})
	archived := current.Clone()
	archived.Metadata.LastModified = now
	r.archived[key] = archived
	delete(r.active, slug)
	return archived.Clone(), nil
}

// List возвращает активные записи по фильтру
func (r *MemoryRepository) List(filter models.ListFilter) []models.Link {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return selectLinks(r.active, filter, r.now())
}

// ListArchived возвращает архивные копии
func (r *MemoryRepository) ListArchived() []models.Link {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]models.Link, 0, len(r.archived))
	for _, l := range r.archived {
		out = append(out, l.Clone())
	}
	sortArchived(out)
	return out
}

// GetStats возвращает количество записей
func (r *MemoryRepository) GetStats() Stats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return countStats(r.active, r.archived, r.now())
}

// Clear очищает хранилище
func (r *MemoryRepository) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.active = make(map[string]models.Link)
	r.archived = make(map[string]models.Link)
}
