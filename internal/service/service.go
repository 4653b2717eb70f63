package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/extract"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/resolver"
)

var (
	ErrEmptyURL  = errors.New("empty URL")
	ErrEmptySlug = errors.New("empty slug")
)

// Pinger реализуется хранилищами, умеющими проверять свой бэкенд
type Pinger interface {
	Ping(ctx context.Context) error
}

// CreateRequest перечисляет все поля, которые инструмент создания принимает.
// Text прогоняется через извлекатель; явные Tags, UTMParams и ExpiresAt
// заменяют извлечённых кандидатов целиком.
type CreateRequest struct {
	Slug                string            `json:"slug"`
	Destination         string            `json:"destination"`
	Text                string            `json:"text,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	UTMParams           map[string]string `json:"utm_params,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
	RedirectAfterExpiry string            `json:"redirect_after_expiry,omitempty"`
	Description         string            `json:"description,omitempty"`
	QR                  *models.QRConfig  `json:"qr_config,omitempty"`
	// IssueNumber добавляет тег issue-{n}, если больше нуля
	IssueNumber int    `json:"issue_number,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// Service реализует инструменты работы со ссылками: один вызов - одна операция
// хранилища или пакетного движка
type Service struct {
	repo     repository.Repository
	engine   *bulk.Engine
	resolver *resolver.Resolver
	site     *models.SiteConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewService создаёт новый экземпляр Service
func NewService(repo repository.Repository, engine *bulk.Engine, site *models.SiteConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		resolver: resolver.New(repo, site),
		site:     site,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// SetClock задаёт источник времени для извлечения и разрешения
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Site возвращает конфигурацию сайта
func (s *Service) Site() *models.SiteConfig {
	return s.site
}

// ShortURL возвращает короткий адрес для слага
func (s *Service) ShortURL(slug string) string {
	return strings.TrimRight(s.site.BaseURL, "/") + "/" + slug
}

// SlugFromShortURL извлекает слаг из короткого адреса. Строка без схемы
// считается слагом.
func (s *Service) SlugFromShortURL(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "://") {
		return input
	}
	input = strings.TrimRight(input, "/")
	if i := strings.IndexAny(input, "?#"); i >= 0 {
		input = input[:i]
	}
	return input[strings.LastIndex(input, "/")+1:]
}

// CreateLink создаёт запись, дополняя явные поля кандидатами из текста
// и значениями по умолчанию из конфигурации сайта
func (s *Service) CreateLink(ctx context.Context, req CreateRequest) (models.Link, error) {
	if strings.TrimSpace(req.Slug) == "" {
		return models.Link{}, ErrEmptySlug
	}
	if strings.TrimSpace(req.Destination) == "" {
		return models.Link{}, ErrEmptyURL
	}

	now := s.now()
	c := extract.Resolve(req.Text, extract.Explicit{
		Tags:      req.Tags,
		UTMParams: req.UTMParams,
		ExpiresAt: req.ExpiresAt,
	}, now)

	if req.IssueNumber > 0 {
		c.Tags = appendTag(c.Tags, "issue-"+strconv.Itoa(req.IssueNumber))
	}
	if len(c.UTMParams) > 0 && s.site.DefaultUTMMedium != "" {
		if _, ok := c.UTMParams[models.UTMMedium]; !ok {
			c.UTMParams[models.UTMMedium] = s.site.DefaultUTMMedium
		}
	}
	if c.ExpiresAt == nil && s.site.DefaultExpirationDays > 0 {
		t := now.AddDate(0, 0, s.site.DefaultExpirationDays)
		c.ExpiresAt = &t
	}

	link := models.Link{
		Slug:                strings.TrimSpace(req.Slug),
		Destination:         strings.TrimSpace(req.Destination),
		CreatedBy:           req.CreatedBy,
		ExpiresAt:           c.ExpiresAt,
		RedirectAfterExpiry: req.RedirectAfterExpiry,
		Tags:                c.Tags,
		UTMParams:           c.UTMParams,
		QRConfig:            s.qrConfig(req.QR),
		Metadata:            models.LinkMetadata{Description: req.Description},
	}

	created, err := s.repo.Create(ctx, link)
	if err != nil {
		return models.Link{}, err
	}
	s.logger.Info("Link created",
		zap.String("slug", created.Slug),
		zap.String("short_url", s.ShortURL(created.Slug)),
		zap.Strings("tags", created.Tags),
	)
	return created, nil
}

// qrConfig дополняет оформление QR-кода цветами по умолчанию
func (s *Service) qrConfig(qr *models.QRConfig) *models.QRConfig {
	if qr == nil {
		return nil
	}
	out := *qr
	if out.ForegroundColor == "" {
		out.ForegroundColor = s.site.QRDefaults.ForegroundColor
	}
	if out.BackgroundColor == "" {
		out.BackgroundColor = s.site.QRDefaults.BackgroundColor
	}
	return &out
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// GetLink возвращает активную запись по слагу или короткому адресу
func (s *Service) GetLink(input string) (models.Link, error) {
	slug := s.SlugFromShortURL(input)
	if slug == "" {
		return models.Link{}, ErrEmptySlug
	}
	link, ok := s.repo.Get(slug)
	if !ok {
		return models.Link{}, fmt.Errorf("%w: %s", repository.ErrNotFound, slug)
	}
	return link, nil
}

// UpdateLink применяет частичное обновление
func (s *Service) UpdateLink(ctx context.Context, input string, update models.LinkUpdate) (models.Link, error) {
	slug := s.SlugFromShortURL(input)
	if slug == "" {
		return models.Link{}, ErrEmptySlug
	}
	updated, err := s.repo.Update(ctx, slug, update)
	if err != nil {
		return models.Link{}, err
	}
	s.logger.Info("Link updated", zap.String("slug", slug), zap.Strings("fields", update.Fields()))
	return updated, nil
}

// DeleteLink архивирует запись
func (s *Service) DeleteLink(ctx context.Context, input string) (models.Link, error) {
	slug := s.SlugFromShortURL(input)
	if slug == "" {
		return models.Link{}, ErrEmptySlug
	}
	archived, err := s.repo.Archive(ctx, slug)
	if err != nil {
		return models.Link{}, err
	}
	s.logger.Info("Link archived", zap.String("slug", slug), zap.String("id", archived.ID))
	return archived, nil
}

// ListLinks возвращает активные записи по фильтру, новые первыми
func (s *Service) ListLinks(filter models.ListFilter) []models.Link {
	return s.repo.List(filter)
}

// ListArchived возвращает архивные копии записей
func (s *Service) ListArchived() []models.Link {
	return s.repo.ListArchived()
}

// PlanBulk готовит план массового изменения
func (s *Service) PlanBulk(ctx context.Context, filter models.ListFilter) (bulk.Plan, error) {
	return s.engine.Plan(ctx, filter)
}

// ApplyBulk применяет изменение к кандидатам подтверждённого плана
func (s *Service) ApplyBulk(ctx context.Context, token string, action bulk.Action) (bulk.Result, error) {
	return s.engine.ApplyToken(ctx, token, action)
}

// Cleanup архивирует все истёкшие записи без отдельного подтверждения.
// Используется плановой очисткой.
func (s *Service) Cleanup(ctx context.Context) (bulk.Result, error) {
	plan, err := s.engine.Plan(ctx, bulk.CleanupFilter())
	if err != nil {
		return bulk.Result{}, err
	}
	if len(plan.Candidates) == 0 {
		return bulk.Result{Succeeded: []string{}, Failed: []bulk.Failure{}}, nil
	}
	return s.engine.Apply(ctx, plan, bulk.Action{Kind: bulk.ActionArchive})
}

// Resolve разрешает слаг в текущий момент
func (s *Service) Resolve(slug string) resolver.Result {
	return s.resolver.Resolve(slug, s.now())
}

// Extract возвращает кандидатов, которых извлекатель нашёл бы в тексте
func (s *Service) Extract(text string) extract.Candidates {
	return extract.Extract(text, s.now())
}

// Stats возвращает счётчики записей
func (s *Service) Stats() repository.Stats {
	return s.repo.GetStats()
}

// Ping проверяет бэкенд хранилища
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.repo.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
