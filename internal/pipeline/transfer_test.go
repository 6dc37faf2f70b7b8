package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logsplit/internal/classify"
	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/logstore"
	"github.com/roach88/logsplit/internal/record"
)

func openStores(t *testing.T) (*docstore.Store, *logstore.Store) {
	t.Helper()
	dir := t.TempDir()
	src, err := docstore.Open(filepath.Join(dir, "production.db"))
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	dst, err := logstore.Open(filepath.Join(dir, "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })
	return src, dst
}

func TestTransfer_MovesOnlyLogKind(t *testing.T) {
	src, dst := openStores(t)
	ctx := context.Background()

	logID, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "a_log", Content: "ERROR: failed",
		ContentHash: "h1", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)
	_, err = src.InsertDocument(ctx, record.SourceRecord{
		Kind: "GUIDE", Title: "setup_guide", Content: "how to",
		ContentHash: "h2", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)

	result, err := Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.RecordsRead)
	assert.Equal(t, int64(1), result.RecordsInserted)
	assert.Zero(t, result.RecordsFailed)
	assert.Equal(t, []int64{logID}, result.TransferredIDs)
	assert.Equal(t, 1.0, result.SuccessRate)
	assert.Zero(t, result.ErrorRate)
	assert.Greater(t, result.TargetSizeBytes, int64(0))
}

func TestTransfer_ClassifiesOnTheWay(t *testing.T) {
	src, dst := openStores(t)
	ctx := context.Background()

	_, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "deploy_20240115_093000",
		Content: "ERROR: rollout failed\nWARNING: retrying",
		ContentHash: "h1", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)

	_, err = Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)

	got, err := dst.ReadLogRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, classify.SeverityError, got.Severity)
	assert.Equal(t, "deploy", got.Component)
	assert.Equal(t, "20240115_093000", got.SessionToken)
	assert.Equal(t, "ERROR_LOGS", got.Category)
	assert.Equal(t, 1, got.ErrorCount)
}

func TestTransfer_BadRecordDoesNotAbort(t *testing.T) {
	src, dst := openStores(t)
	ctx := context.Background()

	goodBefore, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "good_one", Content: "fine",
		ContentHash: "h1", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)
	badID, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "", Content: "no title",
		ContentHash: "h2", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)
	goodAfter, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "good_two", Content: "also fine",
		ContentHash: "h3", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)

	result, err := Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.RecordsRead)
	assert.Equal(t, int64(2), result.RecordsInserted)
	assert.Equal(t, int64(1), result.RecordsFailed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, badID, result.Errors[0].SourceID)

	assert.ElementsMatch(t, []int64{goodBefore, goodAfter}, result.TransferredIDs)
	assert.NotContains(t, result.TransferredIDs, badID)

	assert.InDelta(t, 2.0/3.0, result.SuccessRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, result.ErrorRate, 1e-9)
}

func TestTransfer_HashCollisionIsPerRecordFailure(t *testing.T) {
	src, dst := openStores(t)
	ctx := context.Background()

	// A record with this hash already landed in the target (an earlier
	// partial run); re-transferring it collides on the unique index.
	_, err := dst.InsertLogRecord(ctx, record.LogRecord{
		SourceID: 99, Title: "already_there", Content: "old",
		ContentHash: "dup", Category: "UNCATEGORIZED",
		Severity: classify.SeverityInfo, Component: "old",
		SessionToken: classify.NoSession, ExecutionPhase: classify.UnknownPhase,
		Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)

	dupID, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "colliding_log", Content: "new",
		ContentHash: "dup", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)
	freshID, err := src.InsertDocument(ctx, record.SourceRecord{
		Kind: record.KindLog, Title: "fresh_log", Content: "new",
		ContentHash: "h2", Version: 1, Status: "ACTIVE",
	})
	require.NoError(t, err)

	result, err := Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.RecordsInserted)
	assert.Equal(t, int64(1), result.RecordsFailed)
	assert.Equal(t, []int64{freshID}, result.TransferredIDs)
	assert.NotContains(t, result.TransferredIDs, dupID)
}

func TestTransfer_CountsAlreadyMigratedRows(t *testing.T) {
	src, dst := openStores(t)
	ctx := context.Background()

	for _, hash := range []string{"h1", "h2"} {
		_, err := src.InsertDocument(ctx, record.SourceRecord{
			Kind: record.KindLog, Title: "log_" + hash, Content: "row " + hash,
			ContentHash: hash, Version: 1, Status: "ACTIVE",
		})
		require.NoError(t, err)
	}

	// First pass migrates everything; the source is untouched, as after a
	// run that failed between transfer and prune.
	first, err := Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)
	require.Equal(t, int64(2), first.RecordsInserted)

	second, err := Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(2), second.RecordsRead)
	assert.Zero(t, second.RecordsInserted)
	assert.Equal(t, int64(2), second.RecordsAlreadyPresent)
	assert.Zero(t, second.RecordsFailed)
	assert.Empty(t, second.Errors)
	assert.ElementsMatch(t, first.TransferredIDs, second.TransferredIDs)
	assert.Equal(t, 1.0, second.SuccessRate)
}

func TestTransfer_EmptySource(t *testing.T) {
	src, dst := openStores(t)

	result, err := Transfer(context.Background(), src, dst, discardLogger())
	require.NoError(t, err)

	assert.Zero(t, result.RecordsRead)
	assert.Zero(t, result.RecordsInserted)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.TransferredIDs)
	assert.Zero(t, result.SuccessRate)
}

func TestTransfer_RecordsMigrationAnalytic(t *testing.T) {
	src, dst := openStores(t)
	ctx := context.Background()

	for _, hash := range []string{"h1", "h2"} {
		_, err := src.InsertDocument(ctx, record.SourceRecord{
			Kind: record.KindLog, Title: "log_" + hash, Content: "row",
			ContentHash: hash, Version: 1, Status: "ACTIVE",
		})
		require.NoError(t, err)
	}

	_, err := Transfer(ctx, src, dst, discardLogger())
	require.NoError(t, err)

	var value float64
	err = dst.DB().QueryRow(
		`SELECT metric_value FROM log_analytics WHERE metric_name = 'migrated_count'`,
	).Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, 2.0, value)
}
