// Package grpc содержит gRPC сервис инструментов ссылок
package grpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/extract"
	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/resolver"
	"github.com/jamiechicago312/openlinks/internal/service"
	"github.com/jamiechicago312/openlinks/internal/validate"
)

// Server реализует gRPC сервис инструментов поверх service.Service
type Server struct {
	proto.UnimplementedLinkToolsServer
	svc    *service.Service
	logger *zap.Logger
}

// NewServer создаёт новый gRPC сервер
func NewServer(svc *service.Service, logger *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		logger: logger,
	}
}

// NewGRPCServer создаёт grpc.Server с интерцепторами и зарегистрированным сервисом
func NewGRPCServer(svc *service.Service, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
	))
	s := grpc.NewServer(opts...)
	proto.RegisterLinkToolsServer(s, NewServer(svc, logger))
	return s
}

// CreateLink обрабатывает создание ссылки
func (s *Server) CreateLink(ctx context.Context, req *proto.CreateLinkRequest) (*proto.LinkResponse, error) {
	link, err := s.svc.CreateLink(ctx, service.CreateRequest{
		Slug:                req.Slug,
		Destination:         req.Destination,
		Text:                req.Text,
		Tags:                req.Tags,
		UTMParams:           req.UTMParams,
		ExpiresAt:           req.ExpiresAt,
		RedirectAfterExpiry: req.RedirectAfterExpiry,
		Description:         req.Description,
		QR:                  req.QR,
		IssueNumber:         req.IssueNumber,
		CreatedBy:           req.CreatedBy,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.LinkResponse{Link: link, ShortURL: s.svc.ShortURL(link.Slug)}, nil
}

// GetLink возвращает активную запись по слагу или короткому адресу
func (s *Server) GetLink(ctx context.Context, req *proto.GetLinkRequest) (*proto.LinkResponse, error) {
	link, err := s.svc.GetLink(req.Slug)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.LinkResponse{Link: link, ShortURL: s.svc.ShortURL(link.Slug)}, nil
}

// UpdateLink применяет частичное обновление
func (s *Server) UpdateLink(ctx context.Context, req *proto.UpdateLinkRequest) (*proto.LinkResponse, error) {
	link, err := s.svc.UpdateLink(ctx, req.Slug, req.Update)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.LinkResponse{Link: link, ShortURL: s.svc.ShortURL(link.Slug)}, nil
}

// DeleteLink архивирует запись и возвращает архивную копию
func (s *Server) DeleteLink(ctx context.Context, req *proto.DeleteLinkRequest) (*proto.LinkResponse, error) {
	link, err := s.svc.DeleteLink(ctx, req.Slug)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &proto.LinkResponse{Link: link, ShortURL: s.svc.ShortURL(link.Slug)}, nil
}

// ListLinks возвращает активные записи по фильтру или архивные копии
func (s *Server) ListLinks(ctx context.Context, req *proto.ListLinksRequest) (*proto.ListLinksResponse, error) {
	if req.Filter.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	links := s.svc.ListArchived()
	if !req.Archived {
		filter := req.Filter
		filter.Tags = validate.Tags(filter.Tags)
		links = s.svc.ListLinks(filter)
	}

	out := make([]proto.LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, proto.LinkResponse{Link: l, ShortURL: s.svc.ShortURL(l.Slug)})
	}
	return &proto.ListLinksResponse{Links: out}, nil
}

// PlanBulk готовит план массового изменения
func (s *Server) PlanBulk(ctx context.Context, req *proto.PlanBulkRequest) (*bulk.Plan, error) {
	filter := req.Filter
	filter.Tags = validate.Tags(filter.Tags)
	plan, err := s.svc.PlanBulk(ctx, filter)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &plan, nil
}

// ApplyBulk применяет изменение к кандидатам подтверждённого плана
func (s *Server) ApplyBulk(ctx context.Context, req *proto.ApplyBulkRequest) (*bulk.Result, error) {
	res, err := s.svc.ApplyBulk(ctx, req.Token, req.Action)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &res, nil
}

// Cleanup архивирует истёкшие записи
func (s *Server) Cleanup(ctx context.Context, req *proto.CleanupRequest) (*bulk.Result, error) {
	res, err := s.svc.Cleanup(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &res, nil
}

// Resolve разрешает слаг в адрес перенаправления
func (s *Server) Resolve(ctx context.Context, req *proto.ResolveRequest) (*resolver.Result, error) {
	if req.Slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}
	res := s.svc.Resolve(req.Slug)
	return &res, nil
}

// Extract возвращает кандидатов, найденных в тексте
func (s *Server) Extract(ctx context.Context, req *proto.ExtractRequest) (*extract.Candidates, error) {
	c := s.svc.Extract(req.Text)
	return &c, nil
}

// Stats возвращает счётчики записей
func (s *Server) Stats(ctx context.Context, req *proto.StatsRequest) (*repository.Stats, error) {
	stats := s.svc.Stats()
	return &stats, nil
}

// mapError преобразует ошибки предметной области в gRPC статусы
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

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
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repository.ErrSlugConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, repository.ErrConflictUnresolved):
		return status.Error(codes.Aborted, err.Error())
	default:
		s.logger.Error("Unexpected error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}
