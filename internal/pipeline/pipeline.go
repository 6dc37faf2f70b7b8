// Package pipeline implements the LOG-record extraction pipeline: analysis,
// backup, schema creation, transfer, validation, pruning, and access-layer
// generation, orchestrated as a strictly sequential state machine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/logsplit/internal/access"
	"github.com/roach88/logsplit/internal/config"
	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/logstore"
)

// Pipeline runs the full extraction sequence. Single-threaded: no phase
// overlaps another, each phase opens and closes its own store handles, and
// the only recovery unit is re-running the whole pipeline (safe because
// every phase except the pruner is idempotent or additive, and the pruner is
// gated by validation).
type Pipeline struct {
	cfg config.Config
	log *slog.Logger

	// now is swappable for deterministic tests.
	now func() time.Time
}

// New creates a Pipeline. The logger is required: phases receive it
// explicitly, nothing in this package touches the process-wide default.
func New(cfg config.Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, log: logger, now: time.Now}
}

// Run executes all phases in order and writes the report. The report is
// always produced and always written, including on failure; the returned
// error is non-nil when the pipeline did not complete cleanly.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	started := p.now()
	report := &Report{
		RunID:       uuid.Must(uuid.NewV7()).String(),
		StartedAt:   started.UTC().Format(time.RFC3339),
		State:       StateAnalyzing,
		DurationsMS: map[string]int64{},
	}

	runErr := p.runPhases(ctx, report)
	if runErr != nil {
		report.State = StateFailed
		report.Error = runErr.Error()
		p.log.Error("pipeline failed", "run_id", report.RunID, "error", runErr)
	}

	report.OverallSuccess = overallSuccess(report)

	finished := p.now()
	report.FinishedAt = finished.UTC().Format(time.RFC3339)

	// Terminal state goes into the artifact itself: the serialized report of a
	// clean run must read REPORTED, not the last phase state.
	if report.State != StateFailed {
		report.State = StateReported
	}

	path, writeErr := WriteReport(report, p.cfg.ReportDir, finished)
	if writeErr != nil {
		// The report could not be persisted; surface it but do not mask a
		// phase failure.
		p.log.Error("report not written", "error", writeErr)
		if runErr == nil {
			return report, writeErr
		}
		return report, runErr
	}

	p.log.Info("report written", "path", path, "overall_success", report.OverallSuccess)
	return report, runErr
}

// runPhases advances the state machine; any returned error is phase-level and
// fatal. Per-record errors never escape a phase.
func (p *Pipeline) runPhases(ctx context.Context, report *Report) error {
	// ANALYZING - read-only, advisory.
	err := p.timed(report, "analysis", func() error {
		src, err := docstore.Open(p.cfg.SourcePath)
		if err != nil {
			return err
		}
		defer src.Close()

		analysis, err := Analyze(ctx, src)
		if err != nil {
			return err
		}
		report.Analysis = analysis
		p.log.Info("analysis complete",
			"total_documents", analysis.TotalDocuments,
			"log_count", analysis.LogCount,
			"reduction_pct", fmt.Sprintf("%.1f", analysis.Impact.ReductionPct))
		return nil
	})
	if err != nil {
		return err
	}

	// Verified backup before any mutating phase.
	err = p.timed(report, "backup", func() error {
		src, err := docstore.Open(p.cfg.SourcePath)
		if err != nil {
			return err
		}
		defer src.Close()

		backup, err := CreateBackup(ctx, src, p.cfg.BackupDir, p.now())
		if err != nil {
			return err
		}
		report.Backup = backup
		p.log.Info("backup verified", "path", backup.Path, "bytes", backup.Bytes)
		return nil
	})
	if err != nil {
		return err
	}

	// SCHEMA_READY - DDL errors are fatal before any data movement.
	err = p.timed(report, "schema", func() error {
		dst, err := logstore.Open(p.cfg.TargetPath)
		if err != nil {
			return err
		}
		defer dst.Close()
		report.SchemaCreated = true
		p.log.Info("target schema ready", "path", p.cfg.TargetPath)
		return nil
	})
	if err != nil {
		return err
	}
	report.State = StateSchemaReady

	// TRANSFERRING.
	report.State = StateTransferring
	err = p.timed(report, "transfer", func() error {
		src, err := docstore.Open(p.cfg.SourcePath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := logstore.Open(p.cfg.TargetPath)
		if err != nil {
			return err
		}
		defer dst.Close()

		transfer, err := Transfer(ctx, src, dst, p.log)
		if err != nil {
			return err
		}
		report.Transfer = transfer
		report.LogsExtracted = transfer.RecordsInserted
		return nil
	})
	if err != nil {
		return err
	}

	// VALIDATING - the hard gate.
	report.State = StateValidating
	err = p.timed(report, "validation", func() error {
		src, err := docstore.Open(p.cfg.SourcePath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := logstore.Open(p.cfg.TargetPath)
		if err != nil {
			return err
		}
		defer dst.Close()

		validation, err := Validate(ctx, src, dst, report.Transfer)
		if err != nil {
			return err
		}
		report.Validation = validation

		if !validation.Match {
			if p.cfg.AllowPartial && p.cfg.OverrideReason != "" {
				validation.OverrideReason = p.cfg.OverrideReason
				p.log.Warn("integrity mismatch overridden",
					"source_log_count", validation.SourceLogCount,
					"transferred_count", validation.TransferredCount,
					"reason", p.cfg.OverrideReason)
				return nil
			}
			return fmt.Errorf("integrity mismatch: source has %d LOG records, %d transferred",
				validation.SourceLogCount, validation.TransferredCount)
		}
		p.log.Info("validation passed", "log_count", validation.SourceLogCount)
		return nil
	})
	if err != nil {
		return err
	}

	// PRUNING - the only irreversible phase; deletes only confirmed IDs.
	report.State = StatePruning
	err = p.timed(report, "prune", func() error {
		src, err := docstore.Open(p.cfg.SourcePath)
		if err != nil {
			return err
		}
		defer src.Close()

		prune, err := Prune(ctx, src, report.Transfer.TransferredIDs, p.log)
		if err != nil {
			return err
		}
		report.Prune = prune
		report.LogsRemoved = prune.RowsDeleted
		return nil
	})
	if err != nil {
		return err
	}

	// ACCESS_LAYER_READY.
	err = p.timed(report, "access", func() error {
		if err := access.Generate(p.cfg.AccessArtifactPath, p.cfg.SourcePath, p.cfg.TargetPath); err != nil {
			return err
		}
		report.Access = &AccessResult{ArtifactPath: p.cfg.AccessArtifactPath, Generated: true}
		p.log.Info("access facade generated", "path", p.cfg.AccessArtifactPath)
		return nil
	})
	if err != nil {
		return err
	}
	report.State = StateAccessLayerReady

	return nil
}

// timed runs one phase and records its wall-clock duration.
func (p *Pipeline) timed(report *Report, name string, fn func() error) error {
	start := p.now()
	err := fn()
	report.DurationsMS[name] = p.now().Sub(start).Milliseconds()
	return err
}

// overallSuccess per the phase contract: schema created, at least one record
// accounted for in the target (or none existed), pruning succeeded (or nothing
// to prune), and the access layer generated.
func overallSuccess(r *Report) bool {
	if !r.SchemaCreated {
		return false
	}
	if r.Transfer == nil {
		return false
	}
	if len(r.Transfer.TransferredIDs) == 0 && r.Transfer.RecordsRead != 0 {
		return false
	}
	if r.Prune == nil || !r.Prune.RemovalSuccess {
		return false
	}
	if r.Access == nil || !r.Access.Generated {
		return false
	}
	return r.Error == ""
}
