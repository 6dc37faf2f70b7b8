package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/logstore"
	"github.com/roach88/logsplit/internal/record"
)

// Validate is the hard gate in front of the pruner: every LOG record currently
// in the source must be confirmed present in the target, or deletion is
// blocked unless the operator supplies an explicit override reason.
//
// The check is per-run on purpose. Comparing against the target's total count
// would reject a re-run whose target already holds previously migrated
// records; the confirmed set (this run's inserts plus rows an earlier run
// already migrated) is what the pruner deletes, so it is what gets gated.
// Both totals are still captured for the report.
func Validate(ctx context.Context, src *docstore.Store, dst *logstore.Store, transfer *TransferResult) (*ValidationResult, error) {
	srcCount, err := src.CountByKind(ctx, record.KindLog)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	dstCount, err := dst.CountLogRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	transferred := int64(len(transfer.TransferredIDs))
	return &ValidationResult{
		SourceLogCount:   srcCount,
		TargetLogCount:   dstCount,
		TransferredCount: transferred,
		Match:            srcCount == transferred,
	}, nil
}
