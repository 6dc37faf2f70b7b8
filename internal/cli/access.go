package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/logsplit/internal/access"
	"github.com/roach88/logsplit/internal/config"
	"github.com/roach88/logsplit/internal/docstore"
	"github.com/roach88/logsplit/internal/logstore"
)

// AccessOptions holds flags for the access command.
type AccessOptions struct {
	*RootOptions
	Source  string
	Target  string
	Search  string
	Metrics bool
}

// NewAccessCommand creates the access command: regenerate the facade artifact
// or query both stores directly.
func NewAccessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "access",
		Short: "Regenerate the cross-store facade, or query both stores",
		Long: `Without flags, regenerate the unified access facade source artifact
(overwriting the previous one). With --search or --metrics, run the
corresponding unified query against both stores directly.

Example:
  logsplit access
  logsplit access --search "phase4"
  logsplit access --metrics --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccess(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source document store path")
	cmd.Flags().StringVar(&opts.Target, "target", "", "target log store path")
	cmd.Flags().StringVar(&opts.Search, "search", "", "run a unified keyword search")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "run the unified metrics aggregation")

	return cmd
}

func runAccess(cmd *cobra.Command, opts *AccessOptions) error {
	cfg, err := loadConfig(opts.RootOptions, func(c *config.Config) {
		if opts.Source != "" {
			c.SourcePath = opts.Source
		}
		if opts.Target != "" {
			c.TargetPath = opts.Target
		}
	})
	if err != nil {
		return err
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.Search == "" && !opts.Metrics {
		if err := access.Generate(cfg.AccessArtifactPath, cfg.SourcePath, cfg.TargetPath); err != nil {
			return WrapExitError(ExitFailure, "facade generation failed", err)
		}
		out.Line("access facade written: %s", cfg.AccessArtifactPath)
		if opts.Format == "json" {
			return out.Success(map[string]string{"artifact_path": cfg.AccessArtifactPath})
		}
		return nil
	}

	src, err := docstore.Open(cfg.SourcePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open source store", err)
	}
	defer src.Close()

	dst, err := logstore.Open(cfg.TargetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log store", err)
	}
	defer dst.Close()

	if opts.Search != "" {
		results, err := access.Search(cmd.Context(), src, dst, opts.Search)
		if err != nil {
			return WrapExitError(ExitFailure, "unified search failed", err)
		}
		if opts.Format == "json" {
			return out.Success(results)
		}
		out.Line("documents (%d):", len(results.Documents))
		for _, h := range results.Documents {
			out.Line("  [%d] %s (%s)", h.ID, h.Title, h.Label)
		}
		out.Line("logs (%d):", len(results.Logs))
		for _, h := range results.Logs {
			out.Line("  [%d] %s (%s)", h.ID, h.Title, h.Label)
		}
		return nil
	}

	metrics, err := access.Aggregate(cmd.Context(), src, dst)
	if err != nil {
		return WrapExitError(ExitFailure, "unified metrics failed", err)
	}
	if opts.Format == "json" {
		return out.Success(metrics)
	}
	out.Line("documents: %d", metrics.DocumentTotal)
	for kind, n := range metrics.DocumentsByKind {
		out.Line("  %-15s %d", kind, n)
	}
	out.Line("logs: %d", metrics.LogTotal)
	for cat, n := range metrics.LogsByCategory {
		out.Line("  %-15s %d", cat, n)
	}
	return nil
}
