package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const limiterPrefix = "openlinks:ratelimit"

// RateLimitOptions задаёт ограничение частоты запросов
type RateLimitOptions struct {
	// Rate в формате ulule/limiter: "100-M", "10-S", "1000-H". Пустая строка отключает ограничение.
	Rate string
	// RedisURL включает общий для нескольких процессов счётчик в Redis
	RedisURL string
}

// RateLimit создаёт middleware, ограничивающее частоту запросов с одного адреса клиента.
// Возвращаемая функция закрывает соединение с Redis, если оно было открыто.
func RateLimit(ctx context.Context, opts RateLimitOptions, logger *zap.Logger) (func(http.Handler) http.Handler, func() error, error) {
	noop := func() error { return nil }
	if opts.Rate == "" {
		return func(next http.Handler) http.Handler { return next }, noop, nil
	}

	rate, err := limiter.NewRateFromFormatted(opts.Rate)
	if err != nil {
		return nil, nil, fmt.Errorf("parse rate limit %q: %w", opts.Rate, err)
	}

	var (
		store   limiter.Store
		closeFn = noop
	)
	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis URL: %w", err)
		}
		client := redis.NewClient(ropts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: limiterPrefix})
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("create redis limiter store: %w", err)
		}
		closeFn = client.Close
		logger.Info("Rate limiter uses redis store", zap.String("addr", ropts.Addr))
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          limiterPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	mw := stdlib.NewMiddleware(limiter.New(store, rate),
		stdlib.WithKeyGetter(ClientIP),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("Rate limit reached",
				zap.String("client_ip", ClientIP(r)),
				zap.String("uri", r.RequestURI))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("Rate limiter failed", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}),
	)
	return mw.Handler, closeFn, nil
}
