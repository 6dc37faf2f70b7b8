package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/logstore"
	"github.com/roach88/logsplit/internal/record"
)

// Transfer migrates every LOG record from the source store into the target,
// newest first. A single bad record never aborts the transfer: per-record
// failures (hash collisions, constraint violations, malformed rows) are
// collected and the loop continues. The IDs of records confirmed present in
// the target are tracked so the pruner can delete exactly that set and
// nothing else.
//
// A source row whose (source_id, content_hash) pair already exists in the
// target was migrated by an earlier run that did not reach pruning; it counts
// as transferred, which is what lets a failed run be recovered by re-running
// the whole pipeline.
//
// The caller must have created a verified backup before invoking Transfer.
func Transfer(ctx context.Context, src *docstore.Store, dst *logstore.Store, logger *slog.Logger) (*TransferResult, error) {
	docs, err := src.ListByKind(ctx, record.KindLog)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	result := &TransferResult{
		Errors:         []RecordError{},
		TransferredIDs: []int64{},
	}

	var lastLogID int64
	for _, doc := range docs {
		result.RecordsRead++

		lr, err := record.NewLogRecord(doc)
		if err != nil {
			result.RecordsFailed++
			result.Errors = append(result.Errors, RecordError{SourceID: doc.ID, Error: err.Error()})
			logger.Warn("record rejected", "source_id", doc.ID, "error", err)
			continue
		}

		logID, err := dst.InsertLogRecord(ctx, lr)
		if err != nil {
			if existingID, findErr := dst.FindMigrated(ctx, doc.ID, lr.ContentHash); findErr == nil {
				result.RecordsAlreadyPresent++
				result.TransferredIDs = append(result.TransferredIDs, doc.ID)
				logger.Debug("record already migrated", "source_id", doc.ID, "log_id", existingID)
				continue
			} else if !errors.Is(findErr, sql.ErrNoRows) {
				result.RecordsFailed++
				result.Errors = append(result.Errors, RecordError{SourceID: doc.ID, Error: findErr.Error()})
				logger.Warn("record lookup failed", "source_id", doc.ID, "error", findErr)
				continue
			}
			result.RecordsFailed++
			result.Errors = append(result.Errors, RecordError{SourceID: doc.ID, Error: err.Error()})
			logger.Warn("record insert failed", "source_id", doc.ID, "error", err)
			continue
		}

		result.RecordsInserted++
		result.TransferredIDs = append(result.TransferredIDs, doc.ID)
		lastLogID = logID
		logger.Debug("record migrated",
			"source_id", doc.ID, "log_id", logID, "severity", lr.Severity, "category", lr.Category)
	}

	if result.RecordsRead > 0 {
		accounted := result.RecordsInserted + result.RecordsAlreadyPresent
		result.SuccessRate = float64(accounted) / float64(result.RecordsRead)
		result.ErrorRate = float64(result.RecordsFailed) / float64(result.RecordsRead)
	}

	if size, err := dst.SizeBytes(); err == nil {
		result.TargetSizeBytes = size
	}

	// One analytics row per run so the migration itself shows up in the
	// target store's metrics.
	if lastLogID != 0 {
		if err := dst.RecordAnalytic(ctx, lastLogID, "migrated_count", float64(result.RecordsInserted)); err != nil {
			logger.Warn("analytics row not recorded", "error", err)
		}
	}

	logger.Info("transfer complete",
		"read", result.RecordsRead,
		"inserted", result.RecordsInserted,
		"already_present", result.RecordsAlreadyPresent,
		"failed", result.RecordsFailed)

	return result, nil
}
