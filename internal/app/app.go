package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
	"github.com/jamiechicago312/openlinks/internal/validate"
)

// LinkResponse - запись вместе с её коротким адресом
type LinkResponse struct {
	models.Link
	ShortURL string `json:"short_url"`
}

// ApplyRequest - подтверждение плана массового изменения
type ApplyRequest struct {
	Token  string      `json:"token"`
	Action bulk.Action `json:"action"`
}

// ExtractRequest - текст для предпросмотра извлечения
type ExtractRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// App содержит хендлеры и зависимости
type App struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewApp создаёт новое приложение
func NewApp(svc *service.Service, logger *zap.Logger) *App {
	return &App{svc: svc, logger: logger}
}

// statusFor сопоставляет ошибку предметной области с HTTP-статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, validate.ErrInvalidSlug),
		errors.Is(err, validate.ErrInvalidURL),
		errors.Is(err, validate.ErrInvalidColor),
		errors.Is(err, validate.ErrInvalidExpiration),
		errors.Is(err, validate.ErrInvalidTag),
		errors.Is(err, service.ErrEmptySlug),
		errors.Is(err, service.ErrEmptyURL),
		errors.Is(err, bulk.ErrInvalidPlan),
		errors.Is(err, bulk.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrSlugConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrConflictUnresolved):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет ошибку в JSON. Внутренние ошибки не раскрываются клиенту.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "concurrent changes could not be reconciled, retry the operation later"
	case http.StatusInternalServerError:
		a.logger.Error("Request failed", zap.Error(err))
		msg = "Internal server error"
	}
	a.writeJSONResponse(w, status, errorResponse{Error: msg})
}

// decodeJSON проверяет Content-Type и разбирает тело запроса
func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		a.writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "Content-Type must be application/json"})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return false
	}
	return true
}

func (a *App) linkResponse(l models.Link) LinkResponse {
	return LinkResponse{Link: l, ShortURL: a.svc.ShortURL(l.Slug)}
}

func (a *App) linkResponses(links []models.Link) []LinkResponse {
	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, a.linkResponse(l))
	}
	return out
}

// HandleRedirect обрабатывает GET-запросы на "/{slug}"
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	res := a.svc.Resolve(slug)
	if res.URL == "" {
		http.Error(w, "Link not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.URL, http.StatusTemporaryRedirect)
}

// HandlePing обрабатывает GET-запросы на "/ping"
func (a *App) HandlePing(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Ping(r.Context()); err != nil {
		a.logger.Error("Storage backend ping failed", zap.Error(err))
		http.Error(w, "Storage backend unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleCreateLink обрабатывает POST-запросы на "/api/links"
func (a *App) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	link, err := a.svc.CreateLink(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusCreated, a.linkResponse(link))
}

// parseFilter читает фильтр выборки из query: tag (повторяемый), include_expired, expired_only, limit
func parseFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{Tags: validate.Tags(q["tag"])}
	for name, dst := range map[string]*bool{
		"include_expired": &filter.IncludeExpired,
		"expired_only":    &filter.ExpiredOnly,
	} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return filter, errors.New("invalid " + name)
			}
			*dst = b
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}
	return filter, nil
}

// HandleListLinks обрабатывает GET-запросы на "/api/links"
func (a *App) HandleListLinks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		a.writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.linkResponses(a.svc.ListLinks(filter)))
}

// HandleGetLink обрабатывает GET-запросы на "/api/links/{slug}"
func (a *App) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := a.svc.GetLink(chi.URLParam(r, "slug"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.linkResponse(link))
}

// HandleUpdateLink обрабатывает PATCH-запросы на "/api/links/{slug}"
func (a *App) HandleUpdateLink(w http.ResponseWriter, r *http.Request) {
	var update models.LinkUpdate
	if !a.decodeJSON(w, r, &update) {
		return
	}
	link, err := a.svc.UpdateLink(r.Context(), chi.URLParam(r, "slug"), update)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.linkResponse(link))
}

// HandleDeleteLink обрабатывает DELETE-запросы на "/api/links/{slug}"
func (a *App) HandleDeleteLink(w http.ResponseWriter, r *http.Request) {
	link, err := a.svc.DeleteLink(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, link)
}

// HandleListArchived обрабатывает GET-запросы на "/api/archived"
func (a *App) HandleListArchived(w http.ResponseWriter, r *http.Request) {
	a.writeJSONResponse(w, http.StatusOK, a.svc.ListArchived())
}

// HandlePlanBulk обрабатывает POST-запросы на "/api/bulk/plan"
func (a *App) HandlePlanBulk(w http.ResponseWriter, r *http.Request) {
	var filter models.ListFilter
	if !a.decodeJSON(w, r, &filter) {
		return
	}
	filter.Tags = validate.Tags(filter.Tags)
	plan, err := a.svc.PlanBulk(r.Context(), filter)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, plan)
}

// HandleApplyBulk обрабатывает POST-запросы на "/api/bulk/apply"
func (a *App) HandleApplyBulk(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	res, err := a.svc.ApplyBulk(r.Context(), req.Token, req.Action)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, res)
}

// HandleCleanup обрабатывает POST-запросы на "/api/cleanup"
func (a *App) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Cleanup(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, res)
}

// HandleResolve обрабатывает GET-запросы на "/api/resolve/{slug}"
func (a *App) HandleResolve(w http.ResponseWriter, r *http.Request) {
	a.writeJSONResponse(w, http.StatusOK, a.svc.Resolve(chi.URLParam(r, "slug")))
}

// HandleExtract обрабатывает POST-запросы на "/api/extract"
func (a *App) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.svc.Extract(req.Text))
}

// HandleStats обрабатывает GET-запросы на "/api/stats"
func (a *App) HandleStats(w http.ResponseWriter, r *http.Request) {
	a.writeJSONResponse(w, http.StatusOK, a.svc.Stats())
}

// writeJSONResponse пишет JSON-ответ с проверкой ошибок
func (a *App) writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("Failed to encode JSON", zap.Error(err))
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		a.logger.Warn("Failed to write response", zap.Error(err))
	}
}
