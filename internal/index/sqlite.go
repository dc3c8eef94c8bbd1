package index

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/besselect/internal/bes"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based artifact index.
// Use ":memory:" for an in-memory database, or a file path for persistent
// storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		label TEXT NOT NULL,
		path TEXT NOT NULL,
		uri TEXT,
		selected_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_label ON artifacts(label);
	CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put indexes every file of the artifact in one transaction, so a partially
// written artifact never becomes visible.
func (s *SQLiteStore) Put(ctx context.Context, runID string, artifact bes.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	selectedAt := time.Now().Unix()
	for _, file := range artifact.Files {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO artifacts (run_id, label, path, uri, selected_at) VALUES (?, ?, ?, ?, ?)",
			runID, artifact.Label, file.Path, file.URI, selectedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert artifact file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// ByLabel retrieves all indexed records for a target label.
func (s *SQLiteStore) ByLabel(ctx context.Context, label string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, label, path, uri, selected_at FROM artifacts WHERE label = ? ORDER BY id",
		label,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Labels lists the distinct target labels present in the index.
func (s *SQLiteStore) Labels(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT label FROM artifacts ORDER BY label",
	)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return labels, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var uri sql.NullString
		if err := rows.Scan(&r.RunID, &r.Label, &r.Path, &uri, &r.SelectedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.URI = uri.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
