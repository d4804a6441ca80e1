package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/config"
	"github.com/roach88/rubric/internal/logging"
	"github.com/roach88/rubric/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DB         string // overrides config db when set

	cfg    *config.Config
	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rubric CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Peer review rubric editor",
		Long: `Build and edit peer review rubrics: ordered headings, text blocks and
prompts, compiled from CUE templates and stored in SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.Config(); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			logger, err := logging.New(opts.cfg.Log.Mode, opts.Verbose)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default rubric.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database path (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Config loads the configuration once and applies the --db override.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.cfg == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		o.cfg = cfg
	}
	if o.DB != "" {
		o.cfg.DB = o.DB
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return o.cfg, nil
}

// Logger returns the command logger, or a no-op logger before PreRun.
func (o *RootOptions) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database, scoped to the configured organization.
func (o *RootOptions) openStore(f *OutputFormatter) (*store.Store, *store.OrgStore, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeStore, err)
	}
	f.VerboseLog("Using database %s (org %s)", cfg.DB, cfg.Org.ID)
	return st, st.ForOrg(cfg.Org.ID), nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
