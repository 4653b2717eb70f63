package commitlog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// PostgresLog реализует CommitLog поверх PostgreSQL. Номер ревизии хранится
// в link_head; фиксация проходит, только если ревизия не изменилась с момента
// синхронизации (compare-and-swap в одной транзакции).
type PostgresLog struct {
	db     Database
	dir    string
	root   string
	base   int64
	logger *zap.Logger
}

// NewPostgresLog создаёт журнал, рабочее дерево которого находится в dir
func NewPostgresLog(db Database, dir string, logger *zap.Logger) *PostgresLog {
	return &PostgresLog{
		db:     db,
		dir:    dir,
		root:   DefaultRoot,
		base:   -1,
		logger: logger,
	}
}

// SyncToLatest выгружает все файлы последней ревизии в рабочее дерево
func (l *PostgresLog) SyncToLatest(ctx context.Context) (State, error) {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return State{}, err
	}
	defer tx.Rollback()

	var revision int64
	if err := tx.QueryRowContext(ctx, "SELECT revision FROM link_head WHERE id = 1").Scan(&revision); err != nil {
		l.logger.Error("Failed to read head revision", zap.Error(err))
		return State{}, err
	}

	rows, err := tx.QueryContext(ctx, "SELECT path, content FROM link_files")
	if err != nil {
		return State{}, err
	}
	defer rows.Close()

	files := make(map[string][]byte)
	for rows.Next() {
		var (
			path    string
			content []byte
		)
		if err := rows.Scan(&path, &content); err != nil {
			return State{}, err
		}
		files[path] = content
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}
	if err := tx.Commit(); err != nil {
		return State{}, err
	}

	if err := mirror(l.dir, l.root, files); err != nil {
		return State{}, err
	}
	l.base = revision
	l.logger.Debug("Synced to latest", zap.Int64("revision", revision), zap.Int("files", len(files)))
	return State{Revision: strconv.FormatInt(revision, 10)}, nil
}

// Commit публикует изменённые пути новой ревизией
func (l *PostgresLog) Commit(ctx context.Context, paths []string, message string) (CommitResult, error) {
	if err := checkPaths(l.root, paths); err != nil {
		return CommitResult{}, err
	}
	changes, err := readTracked(l.dir, paths)
	if err != nil {
		return CommitResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		l.logger.Error("Failed to start transaction", zap.Error(err))
		return CommitResult{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE link_head SET revision = revision + 1 WHERE id = 1 AND revision = $1", l.base)
	if err != nil {
		return CommitResult{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return CommitResult{}, err
	}
	if affected == 0 {
		// Кто-то зафиксировал раньше нас
		return CommitResult{Status: Rejected}, nil
	}
	revision := l.base + 1

	committed := make([]string, 0, len(changes))
	for p := range changes {
		committed = append(committed, p)
	}
	sort.Strings(committed)

	for _, p := range committed {
		if data := changes[p]; data != nil {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO link_files (path, content) VALUES ($1, $2) ON CONFLICT (path) DO UPDATE SET content = EXCLUDED.content",
				p, data)
		} else {
			_, err = tx.ExecContext(ctx, "DELETE FROM link_files WHERE path = $1", p)
		}
		if err != nil {
			l.logger.Error("Failed to write file in transaction", zap.String("path", p), zap.Error(err))
			return CommitResult{}, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO link_commits (revision, message, paths) VALUES ($1, $2, $3)",
		revision, message, strings.Join(committed, "\n")); err != nil {
		return CommitResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.logger.Error("Failed to commit transaction", zap.Error(err))
		return CommitResult{}, fmt.Errorf("commit revision %d: %w", revision, err)
	}
	l.base = revision
	return CommitResult{Status: Committed, Revision: strconv.FormatInt(revision, 10)}, nil
}

// Ping проверяет соединение с базой данных
func (l *PostgresLog) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
