package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor создаёт интерцептор для логирования gRPC запросов
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		var clientIP string
		if p, ok := peer.FromContext(ctx); ok {
			clientIP = p.Addr.String()
		}

		code := status.Code(err)
		level := zap.InfoLevel
		switch code {
		case codes.OK, codes.NotFound:
		case codes.Internal, codes.Unknown:
			level = zap.ErrorLevel
		default:
			level = zap.WarnLevel
		}

		if ce := logger.Check(level, "gRPC request"); ce != nil {
			ce.Write(
				zap.String("method", info.FullMethod),
				zap.String("client_ip", clientIP),
				zap.String("status_code", code.String()),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}

		return resp, err
	}
}

// RecoveryInterceptor превращает панику обработчика в ответ Internal
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
