package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/logsplit/internal/config"
	"github.com/roach88/logsplit/internal/logstore"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Target string
}

// NewSchemaCommand creates the schema command: build the target store schema
// without running the pipeline.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create or verify the target log store schema",
		Long: `Bring the target store to the expected schema: tables, indexes,
triggers, and seed categories. Idempotent - running it against an existing
store changes nothing and never clobbers operator-edited category rows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "target log store path")

	return cmd
}

func runSchema(cmd *cobra.Command, opts *SchemaOptions) error {
	cfg, err := loadConfig(opts.RootOptions, func(c *config.Config) {
		if opts.Target != "" {
			c.TargetPath = opts.Target
		}
	})
	if err != nil {
		return err
	}

	dst, err := logstore.Open(cfg.TargetPath)
	if err != nil {
		return WrapExitError(ExitFailure, "schema creation failed", err)
	}
	defer dst.Close()

	cats, err := dst.Categories(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read categories", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(map[string]any{
			"target":     cfg.TargetPath,
			"categories": cats,
		})
	}

	out.Line("target schema ready: %s", cfg.TargetPath)
	for _, c := range cats {
		out.Line("  category %-15s retention %d days", c.Name, c.RetentionDays)
	}
	return nil
}
