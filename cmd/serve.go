package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/inventory-tools/scanreg/internal/capture"
	"github.com/inventory-tools/scanreg/internal/config"
	"github.com/inventory-tools/scanreg/internal/handlers"
	"github.com/inventory-tools/scanreg/internal/notify"
	"github.com/inventory-tools/scanreg/internal/registry"
	"github.com/inventory-tools/scanreg/internal/store"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface for scanning and registering products",
		Long: `Starts the scanner interface on the specified port.

The page decodes barcodes in the browser and posts each hit to the API,
where it is checked against the registry: known codes stop the scanner
with a duplicate alert, new codes prefill the registration form.`,
		Example: `  # Start server on default port 8888
  scanreg serve

  # Start server on custom port
  scanreg serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Addr = ":" + port
			}

			st, err := store.NewFileStore(cfg.DataDir)
			if err != nil {
				return err
			}
			reg := registry.New(st)
			bridge := capture.NewBridge()
			session := capture.NewSession(bridge, cfg.Capture)
			notifier := notify.New(cfg.NoticeTTL)
			handler := handlers.New(reg, session, bridge, notifier)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/products/clear", handler.HandleClear)
			mux.HandleFunc("/api/products/", handler.HandleProductDetail)
			mux.HandleFunc("/api/products", handler.HandleProducts)
			mux.HandleFunc("/api/lookup", handler.HandleLookup)
			mux.HandleFunc("/api/stats", handler.HandleStats)
			mux.HandleFunc("/api/notice", handler.HandleNotice)
			mux.HandleFunc("/api/capture/start", handler.HandleCaptureStart)
			mux.HandleFunc("/api/capture/stop", handler.HandleCaptureStop)
			mux.HandleFunc("/api/capture/scan", handler.HandleScan)
			mux.HandleFunc("/api/capture", handler.HandleCapture)
			mux.HandleFunc("/", handler.HandleStatic)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			server := &http.Server{
				Addr:    cfg.Addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Scanner interface available", "addr", cfg.Addr, "url", "http://localhost"+cfg.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				session.Stop()
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides SCANREG_ADDR)")

	return cmd
}
