package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slotferry/slotferry/internal/cache"
	"github.com/slotferry/slotferry/internal/catalog"
	"github.com/slotferry/slotferry/internal/logger"
	"github.com/slotferry/slotferry/internal/scraper"
	"github.com/slotferry/slotferry/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog HTTP API",
	Long: `Serve the game catalog over HTTP.

Endpoints:
  GET /api/games?provider=P   per-provider catalog, cached
  GET /api/health             durable cache probe`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		logError("%v", err)
		return err
	}

	providers, err := catalog.LoadProviders(cfg.ProvidersFile, cfg.DefaultProvider)
	if err != nil {
		logError("failed to load providers: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cache.NewRedis(ctx, cfg.RedisAddr)
	if closer, ok := store.(*cache.RedisStore); ok {
		defer closer.Close()
	}

	pipeline := scraper.New(cfg, providers)
	srv := server.New(cfg, providers, pipeline, store)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog API listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logError("server failed: %v", err)
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logError("shutdown failed: %v", err)
		return err
	}
	return nil
}
