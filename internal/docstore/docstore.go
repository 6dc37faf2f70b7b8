// Package docstore provides access to the source document store: the mixed-kind
// SQLite database that LOG records are extracted from.
//
// The pipeline reads this store during analysis and transfer and mutates it only
// in the prune phase. The documents schema is owned by upstream ingestion
// tooling; Open applies it with IF NOT EXISTS so fixtures and fresh workspaces
// work, and is a no-op against a populated store.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/logsplit/internal/record"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	kind            TEXT NOT NULL,
	title           TEXT NOT NULL,
	content         TEXT,
	origin_path     TEXT DEFAULT '',
	last_updated    TEXT DEFAULT CURRENT_TIMESTAMP,
	version         INTEGER DEFAULT 1,
	content_hash    TEXT UNIQUE NOT NULL,
	compliance_flag INTEGER DEFAULT 0,
	indexed_flag    INTEGER DEFAULT 0,
	category        TEXT,
	priority        INTEGER DEFAULT 0,
	status          TEXT DEFAULT 'ACTIVE'
);

CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind);
CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(last_updated);
`

// Store wraps the source database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the source store at path.
// Idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect source store: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY during the transfer and prune loops.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply source schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
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
		return 0, fmt.Errorf("stat source store: %w", err)
	}
	return info.Size(), nil
}

// InsertDocument writes a record into the documents table. Used by fixtures
// and upstream ingestion; the pipeline itself never inserts into the source.
func (s *Store) InsertDocument(ctx context.Context, rec record.SourceRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
		(kind, title, content, origin_path, last_updated, version, content_hash,
		 compliance_flag, indexed_flag, category, priority, status)
		VALUES (?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP), ?, ?, ?, ?, NULLIF(?, ''), ?, ?)
	`,
		rec.Kind,
		rec.Title,
		rec.Content,
		rec.OriginPath,
		rec.LastUpdated,
		rec.Version,
		rec.ContentHash,
		boolToInt(rec.ComplianceFlag),
		boolToInt(rec.IndexedFlag),
		rec.Category,
		rec.Priority,
		rec.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert document: last insert id: %w", err)
	}
	return id, nil
}

// CountAll returns the number of rows in the documents table.
func (s *Store) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// CountByKind returns the number of documents with the given kind.
func (s *Store) CountByKind(ctx context.Context, kind string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE kind = ?`, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents by kind: %w", err)
	}
	return n, nil
}

// BytesByKind returns the total content byte size of documents with the kind.
func (s *Store) BytesByKind(ctx context.Context, kind string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(COALESCE(content, ''))), 0) FROM documents WHERE kind = ?`,
		kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum document bytes by kind: %w", err)
	}
	return n, nil
}

// ListByKind returns all documents of the kind, newest first.
func (s *Store) ListByKind(ctx context.Context, kind string) ([]record.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, COALESCE(content, ''), COALESCE(origin_path, ''),
		       COALESCE(last_updated, ''), version, content_hash,
		       compliance_flag, indexed_flag, COALESCE(category, ''), priority,
		       COALESCE(status, '')
		FROM documents
		WHERE kind = ?
		ORDER BY last_updated DESC, id DESC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query documents by kind: %w", err)
	}
	defer rows.Close()

	var recs []record.SourceRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	// Return empty slice instead of nil
	if recs == nil {
		recs = []record.SourceRecord{}
	}

	return recs, nil
}

// LargestRow summarizes one of the largest records of a kind.
type LargestRow struct {
	Title       string `json:"title"`
	Bytes       int64  `json:"bytes"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
	LastUpdated string `json:"last_updated"`
}

// TopLargestByKind returns up to limit records of the kind, largest content first.
func (s *Store) TopLargestByKind(ctx context.Context, kind string, limit int) ([]LargestRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, LENGTH(COALESCE(content, '')), COALESCE(category, ''),
		       priority, COALESCE(last_updated, '')
		FROM documents
		WHERE kind = ?
		ORDER BY LENGTH(COALESCE(content, '')) DESC, id ASC
		LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("query largest documents: %w", err)
	}
	defer rows.Close()

	var out []LargestRow
	for rows.Next() {
		var r LargestRow
		if err := rows.Scan(&r.Title, &r.Bytes, &r.Category, &r.Priority, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan largest document: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate largest documents: %w", err)
	}

	if out == nil {
		out = []LargestRow{}
	}

	return out, nil
}

// LargestContents returns the content of up to limit records of the kind,
// largest first. The analyzer samples these for its compression estimate.
func (s *Store) LargestContents(ctx context.Context, kind string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(content, '')
		FROM documents
		WHERE kind = ?
		ORDER BY LENGTH(COALESCE(content, '')) DESC, id ASC
		LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("query largest contents: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan largest content: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate largest contents: %w", err)
	}

	if out == nil {
		out = []string{}
	}

	return out, nil
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CategoryStat holds the per-category count and byte size of a kind.
type CategoryStat struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes"`
}

// CategoryBreakdown returns per-category counts and byte sizes for a kind.
// Records without a category are grouped under "UNCATEGORIZED".
func (s *Store) CategoryBreakdown(ctx context.Context, kind string) (map[string]CategoryStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(category, ''), 'UNCATEGORIZED'),
		       COUNT(*), COALESCE(SUM(LENGTH(COALESCE(content, ''))), 0)
		FROM documents
		WHERE kind = ?
		GROUP BY 1
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query category breakdown: %w", err)
	}
	defer rows.Close()

	out := map[string]CategoryStat{}
	for rows.Next() {
		var name string
		var stat CategoryStat
		if err := rows.Scan(&name, &stat.Count, &stat.Bytes); err != nil {
			return nil, fmt.Errorf("scan category breakdown: %w", err)
		}
		out[name] = stat
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category breakdown: %w", err)
	}

	return out, nil
}

// deleteBatchSize bounds the IN-list length per DELETE statement.
const deleteBatchSize = 500

// DeleteByIDs removes exactly the given document rows and returns the number
// deleted. The prune phase passes the IDs the transfer engine confirmed, never
// a kind predicate, so rows that failed to migrate are never deleted.
func (s *Store) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		placeholders := make([]byte, 0, len(batch)*2-1)
		args := make([]any, len(batch))
		for i, id := range batch {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '?')
			args[i] = id
		}

		res, err := s.db.ExecContext(ctx,
			`DELETE FROM documents WHERE id IN (`+string(placeholders)+`)`, args...)
		if err != nil {
			return deleted, fmt.Errorf("delete documents: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("delete documents: rows affected: %w", err)
		}
		deleted += n
	}

	return deleted, nil
}

// Checkpoint flushes the WAL into the main database file and truncates it.
// The backup phase calls this so the byte copy of the main file captures
// every committed write.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint source store: %w", err)
	}
	return nil
}

// Reclaim compacts the database file and refreshes planner statistics after a
// prune. VACUUM cannot run inside a transaction, so both statements execute
// directly on the connection.
func (s *Store) Reclaim(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum source store: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("analyze source store: %w", err)
	}
	return nil
}

func scanDocument(rows *sql.Rows) (record.SourceRecord, error) {
	var rec record.SourceRecord
	var compliance, indexed int
	if err := rows.Scan(
		&rec.ID, &rec.Kind, &rec.Title, &rec.Content, &rec.OriginPath,
		&rec.LastUpdated, &rec.Version, &rec.ContentHash,
		&compliance, &indexed, &rec.Category, &rec.Priority, &rec.Status,
	); err != nil {
		return record.SourceRecord{}, fmt.Errorf("scan document: %w", err)
	}
	rec.ComplianceFlag = compliance != 0
	rec.IndexedFlag = indexed != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
