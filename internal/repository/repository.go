package repository

import (
	"context"
	"errors"

	"github.com/jamiechicago312/openlinks/internal/models"
)

var (
	// ErrSlugConflict возвращается при создании ссылки с уже занятым активным слагом
	ErrSlugConflict = errors.New("slug already exists")
	// ErrNotFound возвращается, если активной ссылки с таким слагом нет
	ErrNotFound = errors.New("link not found")
	// ErrConflictUnresolved возвращается, когда конкурентные изменения не удалось
	// разрешить за отведённое число попыток; операцию стоит повторить позже
	ErrConflictUnresolved = errors.New("conflicting concurrent changes, retry the operation later")
)

// Stats содержит количество записей в хранилище
type Stats struct {
	Active   int `json:"active"`
	Expired  int `json:"expired"`
	Archived int `json:"archived"`
}

// Repository определяет интерфейс хранилища записей ссылок.
// Читающие методы не синхронизируются с журналом и возвращают копии.
type Repository interface {
	// Create сохраняет новую активную запись и возвращает её с присвоенными полями
	Create(ctx context.Context, link models.Link) (models.Link, error)
	// Get возвращает активную запись по слагу и флаг существования
	Get(slug string) (models.Link, bool)
	// Update применяет частичное обновление к активной записи
	Update(ctx context.Context, slug string, update models.LinkUpdate) (models.Link, error)
	// Archive переносит запись в архив и возвращает архивную копию
	Archive(ctx context.Context, slug string) (models.Link, error)
	// List возвращает активные записи, подходящие под фильтр, новые первыми
	List(filter models.ListFilter) []models.Link
	// ListArchived возвращает архивные копии, последние изменённые первыми
	ListArchived() []models.Link
	// GetStats возвращает количество записей
	GetStats() Stats
}
