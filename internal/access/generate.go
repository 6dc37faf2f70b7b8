package access

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// facadeTemplate renders the standalone façade source file. The artifact pins
// the two store paths it was generated against so operators can query both
// stores without the pipeline binary.
var facadeTemplate = template.Must(template.New("facade").Parse(`// Code generated by logsplit; DO NOT EDIT.
// Cross-store query façade for:
//   document store: {{.SourcePath}}
//   log store:      {{.TargetPath}}
package unifiedaccess

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const (
	documentStorePath = {{printf "%q" .SourcePath}}
	logStorePath      = {{printf "%q" .TargetPath}}
)

// Hit is one search result from either store.
type Hit struct {
	ID    int64
	Title string
	Label string
}

// UnifiedSearch runs a LIKE match on title and content of both stores and
// returns the document hits and log hits as separate lists.
func UnifiedSearch(ctx context.Context, keyword string) (documents, logs []Hit, err error) {
	pattern := "%" + keyword + "%"

	documents, err = query(ctx, documentStorePath,
		"SELECT id, title, kind FROM documents WHERE title LIKE ? OR content LIKE ?",
		pattern, pattern)
	if err != nil {
		return nil, nil, err
	}

	logs, err = query(ctx, logStorePath,
		"SELECT id, title, COALESCE(category, 'UNCATEGORIZED') FROM log_records WHERE title LIKE ? OR content LIKE ?",
		pattern, pattern)
	if err != nil {
		return nil, nil, err
	}

	return documents, logs, nil
}

// UnifiedMetrics returns per-kind counts from the document store and
// per-category counts from the log store.
func UnifiedMetrics(ctx context.Context) (documentsByKind, logsByCategory map[string]int64, err error) {
	documentsByKind, err = count(ctx, documentStorePath,
		"SELECT kind, COUNT(*) FROM documents GROUP BY kind")
	if err != nil {
		return nil, nil, err
	}

	logsByCategory, err = count(ctx, logStorePath,
		"SELECT COALESCE(category, 'UNCATEGORIZED'), COUNT(*) FROM log_records GROUP BY 1")
	if err != nil {
		return nil, nil, err
	}

	return documentsByKind, logsByCategory, nil
}

func query(ctx context.Context, path, stmt string, args ...any) ([]Hit, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Title, &h.Label); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func count(ctx context.Context, path, stmt string) (map[string]int64, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
`))

// templateData feeds facadeTemplate.
type templateData struct {
	SourcePath string
	TargetPath string
}

// Generate renders the façade source artifact to artifactPath, overwriting
// any previous generation. Idempotent: the same inputs produce the same
// bytes.
func Generate(artifactPath, sourcePath, targetPath string) error {
	var buf bytes.Buffer
	err := facadeTemplate.Execute(&buf, templateData{
		SourcePath: sourcePath,
		TargetPath: targetPath,
	})
	if err != nil {
		return fmt.Errorf("render access facade: %w", err)
	}

	if dir := filepath.Dir(artifactPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create facade dir: %w", err)
		}
	}

	if err := os.WriteFile(artifactPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write access facade: %w", err)
	}

	return nil
}
