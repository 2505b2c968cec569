package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clipprompt/internal/app"
	"clipprompt/internal/server"
	"clipprompt/pkg/config"

	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveMulti bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enhancement relay",
	Long: `Serve the HTTP relay that renders the enhancement template and forwards it
to the configured LLM provider. Provider keys are read per request.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVarP(&serveMulti, "multi", "m", false, "Let requests choose the provider with selectedModel")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveMulti {
		cfg.Relay.MultiProvider = true
	}

	built, err := app.BuildRelay(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer built.Close()

	handler := server.SetupMux(built.Relay, server.Options{
		APIKey:       cfg.RelayAPIKey,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	if cfg.RelayAPIKey != "" {
		slog.Info("Relay auth enabled (X-API-Key header)")
	} else {
		slog.Info("Relay auth disabled (no RELAY_API_KEY)")
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Relay listening",
			"addr", cfg.Server.Addr,
			"providers", built.Relay.Enabled(),
			"multi_provider", built.Relay.MultiProvider(),
			"default", built.Relay.DefaultProvider(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Relay stopped")
	return nil
}
