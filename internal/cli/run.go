package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/logsplit/internal/config"
	"github.com/roach88/logsplit/internal/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Source         string
	Target         string
	BackupDir      string
	ReportDir      string
	AllowPartial   bool
	OverrideReason string
}

// NewRunCommand creates the run command: the full extraction pipeline.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full extraction pipeline",
		Long: `Run all pipeline phases in order: analysis, backup, schema creation,
transfer, validation, pruning, and access-layer generation.

A verified backup of the source store is taken before any mutation. Pruning
deletes only the records the transfer confirmed, and only after validation
passes (or --allow-partial with --override-reason is given).

Example:
  logsplit run --source production.db --target logs.db
  logsplit run --config logsplit.yaml --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source document store path")
	cmd.Flags().StringVar(&opts.Target, "target", "", "target log store path")
	cmd.Flags().StringVar(&opts.BackupDir, "backup-dir", "", "backup directory")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "report directory")
	cmd.Flags().BoolVar(&opts.AllowPartial, "allow-partial", false, "prune even when counts mismatch (requires --override-reason)")
	cmd.Flags().StringVar(&opts.OverrideReason, "override-reason", "", "documented reason for accepting a partial migration")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := loadConfig(opts.RootOptions, func(c *config.Config) {
		if opts.Source != "" {
			c.SourcePath = opts.Source
		}
		if opts.Target != "" {
			c.TargetPath = opts.Target
		}
		if opts.BackupDir != "" {
			c.BackupDir = opts.BackupDir
		}
		if opts.ReportDir != "" {
			c.ReportDir = opts.ReportDir
		}
		if opts.AllowPartial {
			c.AllowPartial = true
		}
		if opts.OverrideReason != "" {
			c.OverrideReason = opts.OverrideReason
		}
	})
	if err != nil {
		return err
	}

	logger := newLogger(opts.Verbose)
	p := pipeline.New(cfg, logger)

	report, runErr := p.Run(cmd.Context())

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		if err := out.Success(report); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode report", err)
		}
	} else {
		out.Line("run:             %s", report.RunID)
		out.Line("state:           %s", report.State)
		out.Line("logs extracted:  %d", report.LogsExtracted)
		out.Line("logs removed:    %d", report.LogsRemoved)
		out.Line("overall success: %t", report.OverallSuccess)
		if report.Error != "" {
			out.Line("error:           %s", report.Error)
		}
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "pipeline failed", runErr)
	}
	return nil
}

// loadConfig resolves config from file, env, and flag overrides.
func loadConfig(rootOpts *RootOptions, override func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if override != nil {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}
