package commitlog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Имена бэкендов
const (
	BackendGit      = "git"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options описывает выбор и параметры бэкенда
type Options struct {
	Backend     string
	Dir         string
	GitRemote   string
	GitBranch   string
	DatabaseDSN string
}

// Open создаёт журнал выбранного бэкенда. Возвращаемая функция освобождает ресурсы.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (CommitLog, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendGit, "":
		return NewGitLog(opts.Dir, opts.GitRemote, opts.GitBranch, logger), noop, nil
	case BackendPostgres:
		if opts.DatabaseDSN == "" {
			return nil, nil, fmt.Errorf("postgres backend requires a database DSN")
		}
		db, err := NewDB(ctx, opts.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return NewPostgresLog(db, opts.Dir, logger), db.Close, nil
	case BackendMemory:
		// Удалённое хранилище живёт в процессе и начинается с текущего дерева
		remote := NewMemoryRemote()
		if err := remote.Import(opts.Dir); err != nil {
			return nil, nil, err
		}
		return remote.Clone(opts.Dir, logger), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
