package docstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/logsplit/internal/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "source.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertDoc(t *testing.T, s *Store, kind, title, content, hash string) int64 {
	t.Helper()
	id, err := s.InsertDocument(context.Background(), record.SourceRecord{
		Kind:        kind,
		Title:       title,
		Content:     content,
		ContentHash: hash,
		Version:     1,
		Status:      "ACTIVE",
	})
	if err != nil {
		t.Fatalf("InsertDocument() failed: %v", err)
	}
	return id
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertDoc(t, s, record.KindLog, "log_one", "error content", "h1")
	insertDoc(t, s, record.KindLog, "log_two", "more", "h2")
	insertDoc(t, s, "GUIDE", "guide_one", "text", "h3")

	total, err := s.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll() failed: %v", err)
	}
	if total != 3 {
		t.Errorf("CountAll() = %d, want 3", total)
	}

	logs, err := s.CountByKind(ctx, record.KindLog)
	if err != nil {
		t.Fatalf("CountByKind() failed: %v", err)
	}
	if logs != 2 {
		t.Errorf("CountByKind(LOG) = %d, want 2", logs)
	}

	bytes, err := s.BytesByKind(ctx, record.KindLog)
	if err != nil {
		t.Fatalf("BytesByKind() failed: %v", err)
	}
	want := int64(len("error content") + len("more"))
	if bytes != want {
		t.Errorf("BytesByKind(LOG) = %d, want %d", bytes, want)
	}
}

func TestListByKind_EmptyReturnsEmptySlice(t *testing.T) {
	s := openTestStore(t)

	recs, err := s.ListByKind(context.Background(), record.KindLog)
	if err != nil {
		t.Fatalf("ListByKind() failed: %v", err)
	}
	if recs == nil {
		t.Error("ListByKind() returned nil, want empty slice")
	}
	if len(recs) != 0 {
		t.Errorf("ListByKind() = %d records, want 0", len(recs))
	}
}

func TestListByKind_FiltersAndScans(t *testing.T) {
	s := openTestStore(t)

	insertDoc(t, s, record.KindLog, "log_one", "content", "h1")
	insertDoc(t, s, "GUIDE", "guide_one", "text", "h2")

	recs, err := s.ListByKind(context.Background(), record.KindLog)
	if err != nil {
		t.Fatalf("ListByKind() failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("ListByKind() = %d records, want 1", len(recs))
	}
	if recs[0].Title != "log_one" || recs[0].Kind != record.KindLog {
		t.Errorf("unexpected record: %+v", recs[0])
	}
	if recs[0].LastUpdated == "" {
		t.Error("last_updated not populated")
	}
}

func TestTopLargestByKind(t *testing.T) {
	s := openTestStore(t)

	insertDoc(t, s, record.KindLog, "small", "x", "h1")
	insertDoc(t, s, record.KindLog, "big", strings.Repeat("y", 100), "h2")

	rows, err := s.TopLargestByKind(context.Background(), record.KindLog, 10)
	if err != nil {
		t.Fatalf("TopLargestByKind() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("TopLargestByKind() = %d rows, want 2", len(rows))
	}
	if rows[0].Title != "big" || rows[0].Bytes != 100 {
		t.Errorf("largest row = %+v, want big/100", rows[0])
	}
}

func TestCategoryBreakdown_GroupsUncategorized(t *testing.T) {
	s := openTestStore(t)

	insertDoc(t, s, record.KindLog, "a", "12345", "h1")
	insertDoc(t, s, record.KindLog, "b", "123", "h2")

	stats, err := s.CategoryBreakdown(context.Background(), record.KindLog)
	if err != nil {
		t.Fatalf("CategoryBreakdown() failed: %v", err)
	}
	got, ok := stats["UNCATEGORIZED"]
	if !ok {
		t.Fatalf("no UNCATEGORIZED bucket in %v", stats)
	}
	if got.Count != 2 || got.Bytes != 8 {
		t.Errorf("UNCATEGORIZED = %+v, want count 2 bytes 8", got)
	}
}

func TestDeleteByIDs_ExactSetOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1 := insertDoc(t, s, record.KindLog, "log_one", "c1", "h1")
	insertDoc(t, s, record.KindLog, "log_two", "c2", "h2")
	id3 := insertDoc(t, s, record.KindLog, "log_three", "c3", "h3")

	deleted, err := s.DeleteByIDs(ctx, []int64{id1, id3})
	if err != nil {
		t.Fatalf("DeleteByIDs() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteByIDs() = %d, want 2", deleted)
	}

	// The untargeted LOG row survives even though it matches the kind.
	remaining, err := s.CountByKind(ctx, record.KindLog)
	if err != nil {
		t.Fatalf("CountByKind() failed: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining LOG records = %d, want 1", remaining)
	}
}

func TestDeleteByIDs_Batches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	count := deleteBatchSize + 50
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, insertDoc(t, s, record.KindLog,
			fmt.Sprintf("log_%d", i), "c", fmt.Sprintf("h%d", i)))
	}

	deleted, err := s.DeleteByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("DeleteByIDs() failed: %v", err)
	}
	if deleted != int64(count) {
		t.Errorf("DeleteByIDs() = %d, want %d", deleted, count)
	}
}

func TestDeleteByIDs_EmptyIsNoop(t *testing.T) {
	s := openTestStore(t)

	deleted, err := s.DeleteByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("DeleteByIDs(nil) failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("DeleteByIDs(nil) = %d, want 0", deleted)
	}
}

func TestReclaim(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertDoc(t, s, record.KindLog, "log_one", strings.Repeat("z", 8192), "h1")
	if _, err := s.DeleteByIDs(ctx, []int64{1}); err != nil {
		t.Fatalf("DeleteByIDs() failed: %v", err)
	}
	if err := s.Reclaim(ctx); err != nil {
		t.Fatalf("Reclaim() failed: %v", err)
	}
}
