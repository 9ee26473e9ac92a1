package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/triangle-stream-service/pkg/server"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(cc *cliContext) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve streaming estimation sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("address") {
				cc.cfg.Set("server.address", address)
			}
			return runServe(cmd.Context(), cc)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address (default from server.address)")
	return cmd
}

// runServe blocks until ctx is cancelled by a signal, then shuts down gracefully
func runServe(ctx context.Context, cc *cliContext) error {
	srv := server.New(cc.cfg)

	cc.logger.Info().
		Str("address", cc.cfg.ServerAddress()).
		Int("max_sessions", cc.cfg.MaxSessions()).
		Int("max_batch_edges", cc.cfg.MaxBatchEdges()).
		Msg("Configuration loaded")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cc.logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	cc.logger.Info().Msg("Server shutdown complete")
	return <-errCh
}
