package commitlog

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Database определяет интерфейс для работы с базой данных.
// *sql.DB удовлетворяет ему напрямую.
type Database interface {
	// PingContext проверяет соединение с базой данных
	PingContext(ctx context.Context) error
	// Close закрывает соединение с базой данных
	Close() error
	// ExecContext выполняет SQL-команду без возврата результатов
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	// QueryContext выполняет SQL-запрос и возвращает результаты
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	// QueryRowContext выполняет SQL-запрос и возвращает одну строку результата
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	// BeginTx начинает новую транзакцию
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// schema создаёт таблицы журнала: голову с номером ревизии, файлы и историю
var schema = []string{
	`CREATE TABLE IF NOT EXISTS link_head (
		id INTEGER PRIMARY KEY,
		revision BIGINT NOT NULL
	)`,
	`INSERT INTO link_head (id, revision) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS link_files (
		path TEXT PRIMARY KEY,
		content BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS link_commits (
		revision BIGINT PRIMARY KEY,
		message TEXT NOT NULL,
		paths TEXT NOT NULL,
		committed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// NewDB открывает подключение к PostgreSQL и создаёт схему журнала
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// Migrate создаёт таблицы журнала, если их нет
func Migrate(ctx context.Context, db Database) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
