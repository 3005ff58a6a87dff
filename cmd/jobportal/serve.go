package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, setup := range []func(context.Context, *App) error{
				WithPersistence,
				WithServices,
				WithHTTPServer,
			} {
				if err := setup(ctx, app); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.srv.Listen(opts.cfg.Server.Addr)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			app.logger.Info("shutting down", "timeout", opts.cfg.Server.ShutdownTimeout.String())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := app.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
