package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/api"
	"github.com/roach88/rubric/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rubric HTTP API",
		Long: `Serve the rubric persistence API over HTTP.

Every /rubric route is scoped by the X-Org-ID header. /healthz reports
database reachability and /metrics exposes Prometheus metrics.

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, addr, cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config addr)")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, addr string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	if addr == "" {
		addr = cfg.Addr
	}

	st, err := store.Open(cfg.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.Logger()
	logger.Info("serving rubric api", zap.String("addr", addr), zap.String("db", cfg.DB))

	srv := api.NewServer(st, api.WithLogger(logger))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	logger.Info("rubric api stopped")
	return nil
}
