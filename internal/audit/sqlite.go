package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS prediction_audit (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		label INTEGER NOT NULL,
		probability REAL NOT NULL,
		risk_level TEXT NOT NULL,
		rule_codes TEXT NOT NULL DEFAULT '',
		warning_count INTEGER NOT NULL DEFAULT 0,
		model_version TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_prediction_audit_created_at ON prediction_audit(created_at);
	CREATE INDEX IF NOT EXISTS idx_prediction_audit_risk_level ON prediction_audit(risk_level);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var level, codes, source string

	err := s.Scan(
		&e.ID, &e.RequestID, &e.Label, &e.Probability, &level,
		&codes, &e.WarningCount, &e.ModelVersion, &source, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.RiskLevel = domain.RiskLevel(level)
	e.Source = Source(source)
	e.RuleCodes = []string{}
	if codes != "" {
		e.RuleCodes = strings.Split(codes, ",")
	}
	return e, nil
}

// Save appends an entry.
func (s *SQLiteStore) Save(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prediction_audit (
			id, request_id, label, probability, risk_level,
			rule_codes, warning_count, model_version, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.RequestID,
		entry.Label,
		entry.Probability,
		string(entry.RiskLevel),
		strings.Join(entry.RuleCodes, ","),
		entry.WarningCount,
		entry.ModelVersion,
		string(entry.Source),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// List returns entries newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, label, probability, risk_level,
			rule_codes, warning_count, model_version, source, created_at
		FROM prediction_audit
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Count returns the total number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prediction_audit").Scan(&count)
	return count, err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
