package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/crabritto/arbor/internal/cli"
	httpAdapter "github.com/crabritto/arbor/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor HTTP server",
	Long: `Starts the editor as a JSON API over HTTP. Each session id holds one tree.
With store.backend=redis, several replicas can serve the same sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		handler, err := httpAdapter.NewHandler(rt.Service,
			httpAdapter.WithMetricsHandler(rt.Metrics.Handler()),
			httpAdapter.WithCORSOrigin(cfg.Server.CORSOrigin),
			httpAdapter.WithLogger(rt.Logger),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			rt.Logger.Info("Starting arbor server", "addr", srv.Addr, "service", cfg.Service.BaseURL, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-sc.Done():
			rt.Logger.Info("Start shutdown", "signal", sc.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				rt.Logger.Error("Graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			rt.Logger.Info("arbor server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
}
