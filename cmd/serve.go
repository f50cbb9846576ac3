package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/config"
	"github.com/lehigh-university-libraries/ocrserver/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OCR HTTP service",
		Long: `Loads the OCR model and starts the HTTP service.

The model and character set are loaded before the listener starts; if either
is missing the command exits without serving traffic.`,
		Example: `  # Start on the port from $PORT (default 80)
  ocrserver serve

  # Start on a custom port with a config file
  ocrserver serve --config ocrserver.yaml --port 8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			service, err := buildService(cfg)
			if err != nil {
				slog.Error("OCR initialization error", "err", err)
				return err
			}

			handler := handlers.New(service, cfg.Server.MaxBodyBytes)
			server := newHTTPServer(cfg.Server, handlers.NewRouter(handler))

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("OCR service listening", "addr", server.Addr, "provider", service.EngineName(), "model", service.Model())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return fmt.Errorf("server failed: %w", err)
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 80, "Port to listen on (overrides PORT)")

	return cmd
}

func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       65 * time.Second,
	}
}
