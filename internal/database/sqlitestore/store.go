// Package sqlitestore provides a SQLite-backed report store.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"
)

// Store owns the SQLite connection shared by the report store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. The connection is instrumented for tracing.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := otelsql.Open("sqlite", dsn,
		otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite is single-writer; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id           TEXT PRIMARY KEY,
			content_id   TEXT NOT NULL,
			reporter_id  INTEGER NOT NULL,
			reason       TEXT NOT NULL,
			status       TEXT NOT NULL,
			ip_address   TEXT NOT NULL DEFAULT '',
			submitted_at TEXT NOT NULL,
			resolved_at  TEXT,
			admin_notes  TEXT NOT NULL DEFAULT '',
			UNIQUE (content_id, reporter_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_content_status ON reports(content_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status, submitted_at)`,
		`CREATE TABLE IF NOT EXISTS hidden_content (
			content_id    TEXT PRIMARY KEY,
			hidden_at     TEXT NOT NULL,
			hidden_by     TEXT NOT NULL,
			reason        TEXT NOT NULL DEFAULT '',
			auto_hidden   INTEGER NOT NULL DEFAULT 0,
			was_published INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id        TEXT PRIMARY KEY,
			action    TEXT NOT NULL,
			actor     TEXT NOT NULL,
			target    TEXT NOT NULL,
			reason    TEXT NOT NULL DEFAULT '',
			auto_mod  INTEGER NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// ReportStore returns the report.Store backed by this database.
func (s *Store) ReportStore() *ReportStore {
	return NewReportStore(s.db)
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
