// Package logstore owns the target store: the schema-optimized SQLite database
// holding extracted LOG records.
//
// Open is the schema builder: pragmas, four tables, the index set, both
// triggers, and the seed categories, all individually guarded so repeated
// invocation is a no-op. A DDL failure here is fatal to the pipeline.
package logstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/logsplit/internal/classify"
	"github.com/roach88/logsplit/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// seedCategories is the fixed default category set. The catch-all
// UNCATEGORIZED carries the most conservative retention.
var seedCategories = []record.Category{
	{Name: "ERROR_LOGS", Description: "Error and exception logs", RetentionDays: 730, CompressionEnabled: true, ArchivalEnabled: true},
	{Name: "SESSION_LOGS", Description: "Session-stamped execution logs", RetentionDays: 365, CompressionEnabled: true},
	{Name: "BUILD_LOGS", Description: "Build and deployment output", RetentionDays: 180, CompressionEnabled: true},
	{Name: "DEBUG_LOGS", Description: "Debug traces and dumps", RetentionDays: 90, CompressionEnabled: true},
	{Name: "UNCATEGORIZED", Description: "Catch-all for unclassified logs", RetentionDays: 730, CompressionEnabled: true},
}

// Store wraps the target database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the target store at path and brings it to the expected
// schema. Idempotent - safe to call multiple times; existing category rows are
// never clobbered.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open log store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect log store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply log store pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply log store schema: %w", err)
	}

	if err := seedCategoriesIfEmpty(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// applyPragmas sets the storage tuning the target store is created with.
// Performance-oriented, not correctness-critical.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// seedCategoriesIfEmpty inserts the default category rows only when the table
// has none. Insert-if-absent, not insert-or-replace, so operator edits to the
// seeded rows survive re-runs.
func seedCategoriesIfEmpty(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM log_categories`).Scan(&n); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, c := range seedCategories {
		_, err := db.Exec(`
			INSERT INTO log_categories
			(name, description, retention_days, compression_enabled, archival_enabled)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING
		`, c.Name, c.Description, c.RetentionDays, boolToInt(c.CompressionEnabled), boolToInt(c.ArchivalEnabled))
		if err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path the store was opened at.
func (s *Store) Path() string {
	return s.path
}

// SizeBytes returns the current size of the database file.
func (s *Store) SizeBytes() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("stat log store: %w", err)
	}
	return info.Size(), nil
}

// InsertLogRecord writes one migrated record. A content_hash collision (or any
// other constraint violation) returns an error the transfer engine records as
// a per-record failure; it never aborts the whole transfer.
func (s *Store) InsertLogRecord(ctx context.Context, lr record.LogRecord) (int64, error) {
	retention := lr.RetentionPolicy
	if retention == "" {
		// Default to the record's category policy; the category name doubles
		// as the policy name in the seed set.
		retention = lr.Category
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO log_records
		(source_id, title, content, origin_path, last_updated, version, content_hash,
		 category, priority, status, severity, component, session_token,
		 execution_phase, error_count, warning_count, retention_policy)
		VALUES (?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lr.SourceID,
		lr.Title,
		lr.Content,
		lr.OriginPath,
		lr.LastUpdated,
		lr.Version,
		lr.ContentHash,
		lr.Category,
		lr.Priority,
		lr.Status,
		string(lr.Severity),
		lr.Component,
		lr.SessionToken,
		lr.ExecutionPhase,
		lr.ErrorCount,
		lr.WarningCount,
		retention,
	)
	if err != nil {
		return 0, fmt.Errorf("insert log record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert log record: last insert id: %w", err)
	}
	return id, nil
}

// FindMigrated returns the id of the record previously migrated from the given
// source row, matched on both source_id and content_hash so an unrelated hash
// collision never passes as already-transferred. Returns sql.ErrNoRows when no
// such record exists.
func (s *Store) FindMigrated(ctx context.Context, sourceID int64, contentHash string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM log_records WHERE source_id = ? AND content_hash = ?
	`, sourceID, contentHash).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CountLogRecords returns the number of rows in log_records.
func (s *Store) CountLogRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count log records: %w", err)
	}
	return n, nil
}

// RecordAnalytic appends one metric row to log_analytics for a log record.
func (s *Store) RecordAnalytic(ctx context.Context, logID int64, name string, value float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_analytics (log_id, metric_name, metric_value)
		VALUES (?, ?, ?)
	`, logID, name, value)
	if err != nil {
		return fmt.Errorf("record analytic %q: %w", name, err)
	}
	return nil
}

// LinkRecords writes a relationship edge between two log records.
func (s *Store) LinkRecords(ctx context.Context, parentID, childID int64, relType string, strength float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_relationships (parent_log_id, child_log_id, relationship_type, strength)
		VALUES (?, ?, ?, ?)
	`, parentID, childID, relType, strength)
	if err != nil {
		return fmt.Errorf("link log records: %w", err)
	}
	return nil
}

// ReadLogRecord retrieves one record by ID. Returns sql.ErrNoRows if absent.
func (s *Store) ReadLogRecord(ctx context.Context, id int64) (record.LogRecord, error) {
	var lr record.LogRecord
	var severity string
	var archivedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(source_id, 0), title, COALESCE(content, ''),
		       COALESCE(origin_path, ''), COALESCE(last_updated, ''), version,
		       content_hash, COALESCE(category, ''), priority, COALESCE(status, ''),
		       severity, COALESCE(component, ''), COALESCE(session_token, ''),
		       COALESCE(execution_phase, ''), error_count, warning_count,
		       byte_size, compression_ratio, archived_at, COALESCE(retention_policy, '')
		FROM log_records
		WHERE id = ?
	`, id).Scan(
		&lr.ID, &lr.SourceID, &lr.Title, &lr.Content, &lr.OriginPath,
		&lr.LastUpdated, &lr.Version, &lr.ContentHash, &lr.Category,
		&lr.Priority, &lr.Status, &severity, &lr.Component, &lr.SessionToken,
		&lr.ExecutionPhase, &lr.ErrorCount, &lr.WarningCount,
		&lr.ByteSize, &lr.CompressionRatio, &archivedAt, &lr.RetentionPolicy,
	)
	if err != nil {
		return record.LogRecord{}, err
	}
	lr.Severity = classify.Severity(severity)
	lr.ArchivedAt = archivedAt.String
	return lr, nil
}

// Categories returns all category rows ordered by name.
func (s *Store) Categories(ctx context.Context) ([]record.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), retention_days,
		       compression_enabled, archival_enabled
		FROM log_categories
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []record.Category
	for rows.Next() {
		var c record.Category
		var compression, archival int
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.RetentionDays, &compression, &archival); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CompressionEnabled = compression != 0
		c.ArchivalEnabled = archival != 0
		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	if cats == nil {
		cats = []record.Category{}
	}

	return cats, nil
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
