// Package access is the cross-store query façade: unified keyword search and
// unified metrics spanning the document store and the log store, plus the
// generator that emits the façade as a standalone source artifact.
//
// The façade is read-only and has no preconditions beyond both stores
// existing; regenerating the artifact overwrites the previous one.
package access

import (
	"context"
	"fmt"

	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/logstore"
)

// Hit is one search result from either store.
type Hit struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Label string `json:"label"` // kind for documents, category for logs
}

// SearchResults holds the two labeled result lists of a unified search.
type SearchResults struct {
	Keyword   string `json:"keyword"`
	Documents []Hit  `json:"documents"`
	Logs      []Hit  `json:"logs"`
}

// Metrics aggregates per-kind counts from the document store and per-category
// counts from the log store.
type Metrics struct {
	DocumentsByKind map[string]int64 `json:"documents_by_kind"`
	LogsByCategory  map[string]int64 `json:"logs_by_category"`
	DocumentTotal   int64            `json:"document_total"`
	LogTotal        int64            `json:"log_total"`
}

// Search runs a LIKE match on title and content of both stores.
func Search(ctx context.Context, src *docstore.Store, dst *logstore.Store, keyword string) (*SearchResults, error) {
	pattern := "%" + keyword + "%"
	results := &SearchResults{Keyword: keyword, Documents: []Hit{}, Logs: []Hit{}}

	docRows, err := src.DB().QueryContext(ctx, `
		SELECT id, title, kind
		FROM documents
		WHERE title LIKE ? OR content LIKE ?
		ORDER BY last_updated DESC, id DESC
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer docRows.Close()

	for docRows.Next() {
		var h Hit
		if err := docRows.Scan(&h.ID, &h.Title, &h.Label); err != nil {
			return nil, fmt.Errorf("scan document hit: %w", err)
		}
		results.Documents = append(results.Documents, h)
	}
	if err := docRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document hits: %w", err)
	}

	logRows, err := dst.DB().QueryContext(ctx, `
		SELECT id, title, COALESCE(category, 'UNCATEGORIZED')
		FROM log_records
		WHERE title LIKE ? OR content LIKE ?
		ORDER BY last_updated DESC, id DESC
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search logs: %w", err)
	}
	defer logRows.Close()

	for logRows.Next() {
		var h Hit
		if err := logRows.Scan(&h.ID, &h.Title, &h.Label); err != nil {
			return nil, fmt.Errorf("scan log hit: %w", err)
		}
		results.Logs = append(results.Logs, h)
	}
	if err := logRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log hits: %w", err)
	}

	return results, nil
}

// Aggregate computes the unified metrics across both stores.
func Aggregate(ctx context.Context, src *docstore.Store, dst *logstore.Store) (*Metrics, error) {
	m := &Metrics{
		DocumentsByKind: map[string]int64{},
		LogsByCategory:  map[string]int64{},
	}

	kindRows, err := src.DB().QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM documents GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("aggregate documents: %w", err)
	}
	defer kindRows.Close()

	for kindRows.Next() {
		var kind string
		var n int64
		if err := kindRows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		m.DocumentsByKind[kind] = n
		m.DocumentTotal += n
	}
	if err := kindRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind counts: %w", err)
	}

	catRows, err := dst.DB().QueryContext(ctx,
		`SELECT COALESCE(category, 'UNCATEGORIZED'), COUNT(*) FROM log_records GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("aggregate logs: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var cat string
		var n int64
		if err := catRows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		m.LogsByCategory[cat] = n
		m.LogTotal += n
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}

	return m, nil
}
