package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/logsplit/internal/config"
	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/pipeline"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Source string
}

// NewAnalyzeCommand creates the analyze command: a read-only dry run.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Inspect the source store without changing anything",
		Long: `Report LOG record counts, sizes, the largest records, a category
breakdown, and the estimated impact of a full extraction. No phase of the
pipeline is mutated; analyze may run any number of times.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source document store path")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions) error {
	cfg, err := loadConfig(opts.RootOptions, func(c *config.Config) {
		if opts.Source != "" {
			c.SourcePath = opts.Source
		}
	})
	if err != nil {
		return err
	}

	src, err := docstore.Open(cfg.SourcePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open source store", err)
	}
	defer src.Close()

	analysis, err := pipeline.Analyze(cmd.Context(), src)
	if err != nil {
		return WrapExitError(ExitFailure, "analysis failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(analysis)
	}

	out.Line("total documents:   %d", analysis.TotalDocuments)
	out.Line("LOG records:       %d (%d bytes)", analysis.LogCount, analysis.LogBytes)
	out.Line("would remove:      %d", analysis.Impact.RecordsRemoved)
	out.Line("would remain:      %d", analysis.Impact.RecordsRemaining)
	out.Line("estimated freed:   %d bytes (%.1f%%)", analysis.Impact.BytesFreed, analysis.Impact.ReductionPct)
	out.Line("compression ratio: %.2f (sampled %d records)", analysis.Compression.Ratio, analysis.Compression.SampledRecords)
	return nil
}
