package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deicod/querystudy/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	if a.cfg.Database.AutoMigrate {
		applied, err := newMigrator(a).Up(ctx)
		if err != nil {
			return migrateError("apply migrations", err)
		}
		a.log.Info().Int("applied", len(applied)).Msg("schema up to date")
	}

	srv := server.New(a.cfg.Server, server.Deps{
		Executor:      a.db,
		Health:        a.db,
		Metrics:       a.collector,
		Logger:        a.log,
		ClientOptions: a.clientOptions(),
	})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return wrapError("serve", err, "Check that server.addr is free.", 1)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return wrapError("serve: shutdown", err, "", 1)
	}
	return <-errCh
}
