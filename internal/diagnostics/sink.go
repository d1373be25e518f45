package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Sink stores diagnostic records.
type Sink interface {
	Write(ctx context.Context, r Record) error
}

type nopSink struct{}

func (nopSink) Write(context.Context, Record) error { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS diagnostic_logs (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    category TEXT NOT NULL,
    request_id TEXT NOT NULL,
    message TEXT NOT NULL,
    raw_response TEXT,
    stack TEXT,
    input_size INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_diagnostic_logs_category ON diagnostic_logs(category, created_at);
`

// SQLiteSink writes records to a dedicated SQLite audit database.
type SQLiteSink struct {
	db        *sql.DB
	projectID string
}

// OpenSQLiteSink opens (and creates if needed) the audit database at path.
func OpenSQLiteSink(path, projectID string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostics database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate diagnostics database: %w", err)
	}

	return &SQLiteSink{db: db, projectID: projectID}, nil
}

// Write inserts one record.
func (s *SQLiteSink) Write(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diagnostic_logs (id, project_id, created_at, category, request_id, message, raw_response, stack, input_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, s.projectID, r.Timestamp.UnixMilli(), string(r.Category), r.RequestID, r.Message,
		nullable(r.RawResponse), nullable(r.Stack), r.InputSize,
	)
	if err != nil {
		return fmt.Errorf("failed to insert diagnostic record: %w", err)
	}
	return nil
}

// Count returns the number of stored records in the given category.
func (s *SQLiteSink) Count(ctx context.Context, category Category) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagnostic_logs WHERE category = ?", string(category),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count diagnostic records: %w", err)
	}
	return n, nil
}

// Close closes the audit database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
