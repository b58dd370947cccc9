package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdimtricp/popscan/internal/api"
	"github.com/kdimtricp/popscan/internal/app"
	"github.com/kdimtricp/popscan/internal/config"
	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/scan"
)

func main() {
	configPath := flag.String("config", os.Getenv("POPSCAN_CONFIG"), "path to a YAML or TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled, then shuts the server down and
// releases the scan pipeline.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	app.ConfigureLogging(cfg, "popscan-server")
	logger := xlog.WithComponent("server")

	components, err := app.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize scan pipeline: %w", err)
	}
	defer components.Close()

	sessionLogger := xlog.WithComponent("scan")
	manager, err := scan.NewManager(scan.ManagerConfig{
		Scanner:    components.Scanner,
		Provider:   components.Provider,
		Timeline:   components.Timeline,
		SessionTTL: cfg.Server.SessionTTL.Std(),
		Logger:     &sessionLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	defer manager.Close()
	go manager.Run(ctx, cfg.Server.PruneInterval.Std())

	router := api.NewRouter(&api.App{
		Scans:         manager,
		MaxUploadSize: cfg.Server.MaxUploadBytes,
		RateLimit:     cfg.Server.RateLimit,
		Logger:        xlog.WithComponent("http"),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	serveDone := make(chan struct{})
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-ctx.Done():
		case <-serveDone:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("ocr", components.Scanner.Name()).
		Str("metadata", components.Provider.Name()).
		Dur("session_ttl", cfg.Server.SessionTTL.Std()).
		Int64("max_upload_bytes", cfg.Server.MaxUploadBytes).
		Msg("server starting")

	err = srv.ListenAndServe()
	close(serveDone)
	<-shutdownDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
