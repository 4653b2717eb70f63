package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/repository"
)

// Значения по умолчанию
const (
	DefaultRunAddr         = ":8080"
	DefaultGRPCAddr        = ":3200"
	DefaultDataDir         = "."
	DefaultGitRemote       = "origin"
	DefaultGitBranch       = "main"
	DefaultRefreshInterval = time.Minute
	DefaultCleanupInterval = time.Hour
	DefaultRateLimit       = "100-M"
	DefaultLogLevel        = "info"
)

// Config содержит настройки приложения
type Config struct {
	RunAddr         string
	GRPCAddr        string
	DataDir         string
	Backend         string
	GitRemote       string
	GitBranch       string
	DatabaseDSN     string
	PlanSecret      string
	SyncTimeout     time.Duration
	MaxAttempts     int
	RefreshInterval time.Duration
	CleanupInterval time.Duration
	RateLimit       string
	RedisURL        string
	TrustedSubnet   string
	LogLevel        string
}

// NewConfig читает .env, флаги командной строки процесса и переменные окружения
func NewConfig() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse собирает конфигурацию: значения по умолчанию, затем флаги из args,
// затем переменные окружения. Файл .env, если он есть, загружается первым
// и не перезаписывает уже заданные переменные.
func Parse(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	fs := flag.NewFlagSet("openlinks-server", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddr, "a", DefaultRunAddr, "address and port to run HTTP server")
	fs.StringVar(&cfg.GRPCAddr, "g", DefaultGRPCAddr, "address and port to run gRPC server")
	fs.StringVar(&cfg.DataDir, "data-dir", DefaultDataDir, "working tree that holds data/")
	fs.StringVar(&cfg.Backend, "backend", commitlog.BackendGit, "commit log backend: git, postgres or memory")
	fs.StringVar(&cfg.GitRemote, "git-remote", DefaultGitRemote, "git remote to sync with")
	fs.StringVar(&cfg.GitBranch, "git-branch", DefaultGitBranch, "git branch to sync with")
	fs.StringVar(&cfg.DatabaseDSN, "d", "", "database DSN for PostgreSQL commit log")
	fs.StringVar(&cfg.PlanSecret, "j", "", "secret for bulk plan tokens")
	fs.DurationVar(&cfg.SyncTimeout, "sync-timeout", repository.DefaultSyncTimeout, "timeout of one sync with the commit log")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", repository.DefaultMaxAttempts, "sync and commit attempts per mutation")
	fs.DurationVar(&cfg.RefreshInterval, "refresh", DefaultRefreshInterval, "interval of background sync, 0 disables it")
	fs.DurationVar(&cfg.CleanupInterval, "cleanup", DefaultCleanupInterval, "interval of archiving expired links, 0 disables it")
	fs.StringVar(&cfg.RateLimit, "rate", DefaultRateLimit, "redirect rate limit per client, e.g. 100-M; empty disables it")
	fs.StringVar(&cfg.RedisURL, "redis", "", "redis URL for a shared rate limiter store")
	fs.StringVar(&cfg.TrustedSubnet, "t", "", "trusted proxy subnet in CIDR notation")
	fs.StringVar(&cfg.LogLevel, "l", DefaultLogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Переменные окружения имеют приоритет над флагами
	envString(&cfg.RunAddr, "SERVER_ADDRESS")
	envString(&cfg.GRPCAddr, "GRPC_ADDRESS")
	envString(&cfg.DataDir, "DATA_DIR")
	envString(&cfg.Backend, "COMMIT_LOG_BACKEND")
	envString(&cfg.GitRemote, "GIT_REMOTE")
	envString(&cfg.GitBranch, "GIT_BRANCH")
	envString(&cfg.DatabaseDSN, "DATABASE_DSN")
	envString(&cfg.PlanSecret, "PLAN_SECRET")
	envString(&cfg.RateLimit, "RATE_LIMIT")
	envString(&cfg.RedisURL, "REDIS_URL")
	envString(&cfg.TrustedSubnet, "TRUSTED_SUBNET")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	if err := envDuration(&cfg.SyncTimeout, "SYNC_TIMEOUT"); err != nil {
		return nil, err
	}
	if err := envDuration(&cfg.RefreshInterval, "REFRESH_INTERVAL"); err != nil {
		return nil, err
	}
	if err := envDuration(&cfg.CleanupInterval, "CLEANUP_INTERVAL"); err != nil {
		return nil, err
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		cfg.MaxAttempts = n
	}

	// Валидация значений
	cfg.RunAddr = validateAddress(cfg.RunAddr)
	cfg.GRPCAddr = validateAddress(cfg.GRPCAddr)

	return cfg, nil
}

// Options возвращает параметры бэкенда журнала
func (c *Config) Options() commitlog.Options {
	return commitlog.Options{
		Backend:     c.Backend,
		Dir:         c.DataDir,
		GitRemote:   c.GitRemote,
		GitBranch:   c.GitBranch,
		DatabaseDSN: c.DatabaseDSN,
	}
}

// RepositoryOptions возвращает настройки цикла синхронизации хранилища
func (c *Config) RepositoryOptions() []repository.Option {
	return []repository.Option{
		repository.WithMaxAttempts(c.MaxAttempts),
		repository.WithSyncTimeout(c.SyncTimeout),
	}
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func validateAddress(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}
