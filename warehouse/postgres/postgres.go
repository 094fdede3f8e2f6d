// Package postgres implements the warehouse backend on PostgreSQL.
// Namespaces are schemas and collections are tables. Records and repeated
// fields are stored as jsonb columns.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/storage"
	"github.com/kewos554321/blaze4harbor/warehouse"
)

// SQLSTATE codes this backend translates.
const (
	codeDuplicateSchema   = "42P06"
	codeDuplicateTable    = "42P07"
	codeInvalidSchemaName = "3F000"
	codeUndefinedTable    = "42P01"
	codeUniqueViolation   = "23505"
	codeInsufficientPriv  = "42501"
)

// Config configures the Postgres backend.
type Config struct {
	// URL is a libpq-style connection string (required).
	URL string
	// PingTimeout bounds the connectivity check on Open.
	PingTimeout time.Duration
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("postgres url is required")
	}
	if c.PingTimeout < 0 {
		return errors.New("postgres ping timeout must be >= 0")
	}
	return nil
}

// Backend is a warehouse.Backend over database/sql with the pgx driver.
type Backend struct {
	db *sql.DB
}

// Verify Backend implements warehouse.Backend.
var _ warehouse.Backend = (*Backend)(nil)

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	timeout := cfg.PingTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, storage.Wrap("ping", "postgres", err)
	}
	return &Backend{db: db}, nil
}

// Name implements warehouse.Backend.
func (b *Backend) Name() string { return "postgres" }

// GetNamespace implements warehouse.Backend.
func (b *Backend) GetNamespace(ctx context.Context, namespace string) error {
	var one int
	err := b.db.QueryRowContext(ctx,
		`SELECT 1 FROM information_schema.schemata WHERE schema_name = $1`, namespace,
	).Scan(&one)
	return classify("get_schema", namespace, err)
}

// CreateNamespace implements warehouse.Backend.
func (b *Backend) CreateNamespace(ctx context.Context, namespace string) error {
	_, err := b.db.ExecContext(ctx, createSchemaSQL(namespace))
	return classify("create_schema", namespace, err)
}

// GetCollection implements warehouse.Backend.
func (b *Backend) GetCollection(ctx context.Context, namespace, collection string) error {
	var one int
	err := b.db.QueryRowContext(ctx,
		`SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		namespace, collection,
	).Scan(&one)
	return classify("get_table", namespace+"."+collection, err)
}

// CreateCollection implements warehouse.Backend.
func (b *Backend) CreateCollection(ctx context.Context, namespace, collection string, desc *schema.Descriptor) error {
	_, err := b.db.ExecContext(ctx, createTableSQL(namespace, collection, desc))
	return classify("create_table", namespace+"."+collection, err)
}

// InsertRow implements warehouse.Backend.
//
// The insert id is the primary key, so a repeated insert of the same row is a
// no-op. Errors reported by the server about the row itself (bad value, constraint)
// are row-level; anything else is call-level.
func (b *Backend) InsertRow(ctx context.Context, namespace, collection string, row schema.Row, insertID string) ([]string, error) {
	query, args, err := insertSQL(namespace, collection, row, insertID)
	if err != nil {
		return []string{err.Error()}, nil
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && isRowLevel(pgErr.Code) {
			return []string{pgErr.Error()}, nil
		}
		return nil, classify("insert", namespace+"."+collection, err)
	}
	return []string{}, nil
}

// Close implements warehouse.Backend.
func (b *Backend) Close() error {
	return b.db.Close()
}

// isRowLevel reports whether a SQLSTATE describes the submitted data:
// class 22 (data exception) and class 23 (integrity constraint violation).
func isRowLevel(code string) bool {
	return len(code) == 5 && (code[:2] == "22" || code[:2] == "23")
}

// classify translates lookup misses and SQLSTATE codes into storage sentinels.
func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeDuplicateSchema, codeDuplicateTable, codeUniqueViolation:
			return storage.NewStorageError(storage.ErrAlreadyExists, op, resource, err)
		case codeInvalidSchemaName, codeUndefinedTable:
			return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
		case codeInsufficientPriv:
			return storage.NewStorageError(storage.ErrAccessDenied, op, resource, err)
		}
		// Class 28: invalid authorization specification.
		if strings.HasPrefix(pgErr.Code, "28") {
			return storage.NewStorageError(storage.ErrAuth, op, resource, err)
		}
	}
	return storage.Wrap(op, resource, err)
}
