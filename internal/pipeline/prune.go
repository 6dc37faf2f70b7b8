package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/logsplit/internal/docstore"
)

// Prune deletes exactly the transferred rows from the source store and
// reclaims the space. The delete criterion is the ID set the transfer engine
// confirmed, never a kind predicate, so rows that failed to migrate survive
// even when counts happen to line up.
//
// This is the pipeline's only irreversible step. Callers must not invoke it
// before validation has passed (or been overridden) and a backup exists.
func Prune(ctx context.Context, src *docstore.Store, transferredIDs []int64, logger *slog.Logger) (*PruneResult, error) {
	if len(transferredIDs) == 0 {
		logger.Info("prune skipped: nothing was transferred")
		return &PruneResult{Skipped: true, RemovalSuccess: true}, nil
	}

	// Checkpoint first so SizeBefore reflects the main file with all
	// committed writes, not whatever happens to still sit in the WAL.
	if err := src.Checkpoint(ctx); err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	sizeBefore, err := src.SizeBytes()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	deleted, err := src.DeleteByIDs(ctx, transferredIDs)
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	if err := src.Reclaim(ctx); err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	if err := src.Checkpoint(ctx); err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	sizeAfter, err := src.SizeBytes()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	result := &PruneResult{
		SizeBefore:     sizeBefore,
		SizeAfter:      sizeAfter,
		RowsDeleted:    deleted,
		RemovalSuccess: deleted == int64(len(transferredIDs)),
	}

	logger.Info("prune complete",
		"rows_deleted", deleted,
		"bytes_reclaimed", sizeBefore-sizeAfter,
		"removal_success", result.RemovalSuccess)

	return result, nil
}
