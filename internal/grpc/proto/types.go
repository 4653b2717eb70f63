// Package proto содержит сообщения и описание gRPC сервиса инструментов ссылок
package proto

import (
	"time"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/models"
)

// CreateLinkRequest представляет запрос на создание ссылки
type CreateLinkRequest struct {
	Slug                string            `json:"slug"`
	Destination         string            `json:"destination"`
	Text                string            `json:"text,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	UTMParams           map[string]string `json:"utm_params,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
	RedirectAfterExpiry string            `json:"redirect_after_expiry,omitempty"`
	Description         string            `json:"description,omitempty"`
	QR                  *models.QRConfig  `json:"qr_config,omitempty"`
	IssueNumber         int               `json:"issue_number,omitempty"`
	CreatedBy           string            `json:"created_by,omitempty"`
}

// LinkResponse представляет запись вместе с коротким адресом
type LinkResponse struct {
	Link     models.Link `json:"link"`
	ShortURL string      `json:"short_url"`
}

// GetLinkRequest - слаг или короткий адрес
type GetLinkRequest struct {
	Slug string `json:"slug"`
}

// UpdateLinkRequest представляет частичное обновление записи
type UpdateLinkRequest struct {
	Slug   string            `json:"slug"`
	Update models.LinkUpdate `json:"update"`
}

// DeleteLinkRequest представляет запрос на архивирование записи
type DeleteLinkRequest struct {
	Slug string `json:"slug"`
}

// ListLinksRequest представляет выборку записей. Archived возвращает архивные копии
// и игнорирует фильтр.
type ListLinksRequest struct {
	Filter   models.ListFilter `json:"filter"`
	Archived bool              `json:"archived,omitempty"`
}

// ListLinksResponse представляет ответ со списком записей
type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

// PlanBulkRequest представляет запрос плана массового изменения
type PlanBulkRequest struct {
	Filter models.ListFilter `json:"filter"`
}

// ApplyBulkRequest подтверждает план токеном
type ApplyBulkRequest struct {
	Token  string      `json:"token"`
	Action bulk.Action `json:"action"`
}

// CleanupRequest запускает архивирование истёкших записей
type CleanupRequest struct{}

// ResolveRequest представляет запрос разрешения слага
type ResolveRequest struct {
	Slug string `json:"slug"`
}

// ExtractRequest представляет текст для предпросмотра извлечения
type ExtractRequest struct {
	Text string `json:"text"`
}

// StatsRequest представляет запрос счётчиков записей
type StatsRequest struct{}
