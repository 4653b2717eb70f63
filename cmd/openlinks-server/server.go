package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/jamiechicago312/openlinks/internal/app"
	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/config"
	grpcserver "github.com/jamiechicago312/openlinks/internal/grpc"
	"github.com/jamiechicago312/openlinks/internal/middleware"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
	"github.com/jamiechicago312/openlinks/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

// server объединяет HTTP и gRPC серверы и фоновые задачи над одним хранилищем
type server struct {
	cfg     *config.Config
	logger  *zap.Logger
	repo    *repository.FileRepository
	svc     *service.Service
	http    *http.Server
	grpc    *grpc.Server
	watcher *watcher.Watcher
	closers []func() error
}

// newServer собирает зависимости: журнал, хранилище, сервис, маршрутизатор
func newServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server, error) {
	s := &server{cfg: cfg, logger: logger}

	site, err := config.LoadSite(filepath.Join(cfg.DataDir, filepath.FromSlash(config.SitePath)))
	if err != nil {
		return nil, err
	}

	clog, closeLog, err := commitlog.Open(ctx, cfg.Options(), logger)
	if err != nil {
		return nil, fmt.Errorf("open commit log: %w", err)
	}
	s.closers = append(s.closers, closeLog)

	s.repo, err = repository.NewFileRepository(cfg.DataDir, clog, logger, cfg.RepositoryOptions()...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open link store: %w", err)
	}
	// Без журнала сервер работает с локальным деревом до следующей синхронизации
	if err := s.repo.Refresh(ctx); err != nil {
		logger.Warn("Initial sync failed, serving local tree", zap.Error(err))
	}

	engine, err := bulk.NewEngine(s.repo, cfg.PlanSecret, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.svc = service.NewService(s.repo, engine, site, logger)

	rateLimit, closeLimiter, err := middleware.RateLimit(ctx, middleware.RateLimitOptions{
		Rate:     cfg.RateLimit,
		RedisURL: cfg.RedisURL,
	}, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closeLimiter)

	trustedProxy, err := middleware.TrustedProxyMiddleware(cfg.TrustedSubnet, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	router := app.NewRouter(app.NewApp(s.svc, logger), logger, app.RouterOptions{
		TrustedProxy: trustedProxy,
		RateLimit:    rateLimit,
	})
	s.http = &http.Server{
		Addr:              cfg.RunAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.grpc = grpcserver.NewGRPCServer(s.svc, logger)

	s.watcher, err = watcher.New([]string{
		filepath.Join(cfg.DataDir, filepath.FromSlash(repository.ActiveDir)),
		filepath.Join(cfg.DataDir, filepath.FromSlash(repository.ArchivedDir)),
	}, s.repo, watcher.DefaultDebounce, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return s, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает серверы
func (s *server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}
	if err := s.watcher.Start(ctx); err != nil {
		lis.Close()
		return fmt.Errorf("start watcher: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("address", s.cfg.RunAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Starting gRPC server", zap.String("address", lis.Addr().String()))
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watcher.Periodic(gctx, "refresh", s.cfg.RefreshInterval, s.repo.Refresh, s.logger)
		return nil
	})

	g.Go(func() error {
		watcher.Periodic(gctx, "cleanup", s.cfg.CleanupInterval, s.cleanup, s.logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.http.Shutdown(shutdownCtx)
		s.grpc.GracefulStop()
		return err
	})

	return g.Wait()
}

// cleanup архивирует истёкшие записи
func (s *server) cleanup(ctx context.Context) error {
	res, err := s.svc.Cleanup(ctx)
	if err != nil {
		return err
	}
	if len(res.Succeeded) > 0 || len(res.Failed) > 0 {
		s.logger.Info("Archived expired links",
			zap.Strings("slugs", res.Succeeded),
			zap.Int("failed", len(res.Failed)))
	}
	return nil
}

// Close освобождает ресурсы в обратном порядке
func (s *server) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("Failed to release resource", zap.Error(err))
		}
	}
	s.closers = nil
}
