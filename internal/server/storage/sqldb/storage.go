// Package sqldb implements server storage on database/sql.
//
// Поддерживаются SQLite (modernc.org/sqlite) и PostgreSQL (pgx). Запросы
// пишутся с плейсхолдерами `?` и переписываются в `$n` для PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Dialect SQL диалект хранилища
type Dialect string

const (
	// DialectSQLite SQLite
	DialectSQLite Dialect = "sqlite3"
	// DialectPostgres PostgreSQL
	DialectPostgres Dialect = "postgres"
)

// Storage represents SQL storage implementation
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// DialectFromDSN определяет диалект по DSN
// postgres:// и postgresql:// означают PostgreSQL, все остальное путь к файлу SQLite
func DialectFromDSN(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open opens the database, applies pragmas (SQLite) and runs migrations
// Use ":memory:" for in-memory SQLite database (useful for testing)
func Open(ctx context.Context, dsn string) (*Storage, error) {
	dialect := DialectFromDSN(dsn)

	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		if err := configureSQLite(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	storage := New(db, dialect)

	// Запускаем миграции
	if err := storage.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// New wraps an already opened database without running migrations
func New(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{db: db, dialect: dialect}
}

func configureSQLite(ctx context.Context, db *sql.DB) error {
	// SQLite с WAL mode может поддерживать несколько читателей, но только одного писателя
	// Для :memory: одно соединение обязательно, иначе каждое соединение видит свою БД
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations(ctx context.Context) error {
	if err := goose.SetDialect(string(s.dialect)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// rebind переписывает `?` в `$1, $2, ...` для PostgreSQL
func (s *Storage) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// isUniqueViolation распознает нарушение уникального индекса в обоих драйверах
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToUnix(t time.Time) int64 {
	return t.UnixNano()
}

func unixToTime(ts int64) time.Time {
	return time.Unix(0, ts).UTC()
}
