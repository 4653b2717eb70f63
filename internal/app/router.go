package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/middleware"
)

// RouterOptions задаёт middleware, которые зависят от конфигурации процесса
type RouterOptions struct {
	// TrustedProxy определяет адрес клиента за доверенным прокси
	TrustedProxy func(http.Handler) http.Handler
	// RateLimit ограничивает частоту перенаправлений
	RateLimit func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

// NewRouter создаёт маршрутизатор: перенаправления, проверку состояния и JSON API инструментов
func NewRouter(a *App, logger *zap.Logger, opts RouterOptions) chi.Router {
	if opts.TrustedProxy == nil {
		opts.TrustedProxy = passthrough
	}
	if opts.RateLimit == nil {
		opts.RateLimit = passthrough
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(opts.TrustedProxy)
	r.Use(middleware.LoggingMiddleware(logger))

	r.Get("/ping", a.HandlePing)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.GzipMiddleware)

		r.Post("/links", a.HandleCreateLink)
		r.Get("/links", a.HandleListLinks)
		r.Get("/links/{slug}", a.HandleGetLink)
		r.Patch("/links/{slug}", a.HandleUpdateLink)
		r.Delete("/links/{slug}", a.HandleDeleteLink)
		r.Get("/archived", a.HandleListArchived)
		r.Post("/bulk/plan", a.HandlePlanBulk)
		r.Post("/bulk/apply", a.HandleApplyBulk)
		r.Post("/cleanup", a.HandleCleanup)
		r.Get("/resolve/{slug}", a.HandleResolve)
		r.Post("/extract", a.HandleExtract)
		r.Get("/stats", a.HandleStats)
	})

	r.With(opts.RateLimit).Get("/{slug}", a.HandleRedirect)

	return r
}
