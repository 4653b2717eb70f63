package repository

import "time"

// Значения по умолчанию для FileRepository
const (
	DefaultMaxAttempts = 3
	DefaultSyncTimeout = 15 * time.Second
)

// Option настраивает хранилище
type Option func(*options)

type options struct {
	now         func() time.Time
	maxAttempts int
	syncTimeout time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: DefaultMaxAttempts,
		syncTimeout: DefaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock задаёт источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxAttempts задаёт число попыток синхронизации и фиксации
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithSyncTimeout задаёт таймаут одной синхронизации
func WithSyncTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.syncTimeout = d
		}
	}
}
