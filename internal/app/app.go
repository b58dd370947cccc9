// Package app assembles the scan pipeline from configuration. Both the server
// and the CLI build their components here.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/cache"
	"github.com/kdimtricp/popscan/internal/config"
	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/ocr"
	"github.com/kdimtricp/popscan/internal/scan"
)

const httpClientTimeout = 30 * time.Second

// ConfigureLogging sets up the global logger from cfg.Log.
func ConfigureLogging(cfg config.Config, service string) {
	var pretty *bool
	switch cfg.Log.Format {
	case "json":
		v := false
		pretty = &v
	case "console":
		v := true
		pretty = &v
	}
	xlog.Configure(xlog.Config{Level: cfg.Log.Level, Service: service, Pretty: pretty})
}

// Components are the long-lived collaborators of a scan.
type Components struct {
	Scanner  ocr.Scanner
	Provider metadata.Provider
	Cache    cache.Cache
	Timeline []scan.PhaseStep

	logger zerolog.Logger
}

// Build creates the OCR scanner, the metadata provider and its lookup cache.
func Build(ctx context.Context, cfg config.Config) (*Components, error) {
	logger := xlog.WithComponent("app")
	httpClient := &http.Client{Timeout: httpClientTimeout}

	lookupCache, err := buildCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	provider, err := metadata.New(metadata.Config{
		Kind:          cfg.Metadata.Provider,
		OMDbKey:       cfg.Metadata.OMDbKey,
		OMDbBaseURL:   cfg.Metadata.OMDbBaseURL,
		TVmazeBaseURL: cfg.Metadata.TVmazeBaseURL,
		TMDbKey:       cfg.Metadata.TMDbKey,
		TMDbBaseURL:   cfg.Metadata.TMDbBaseURL,
		TMDbLanguage:  cfg.Metadata.TMDbLanguage,
		LookupTimeout: cfg.Metadata.LookupTimeout.Std(),
		RateLimit:     cfg.Metadata.RateLimit,
		RateBurst:     cfg.Metadata.RateBurst,
		Cache:         lookupCache,
		CacheTTL:      cfg.Cache.TTL.Std(),
		HTTPClient:    httpClient,
		Logger:        xlog.WithComponent("metadata"),
	})
	if err != nil {
		if lookupCache != nil {
			_ = lookupCache.Close()
		}
		return nil, fmt.Errorf("building metadata provider: %w", err)
	}

	scanner := ocr.New(ocr.Config{
		Kind:                 cfg.OCR.Provider,
		TesseractPath:        cfg.OCR.TesseractPath,
		TesseractLanguage:    cfg.OCR.TesseractLanguage,
		TesseractPSM:         cfg.OCR.TesseractPSM,
		GoogleVisionKey:      cfg.OCR.GoogleVisionKey,
		GoogleVisionEndpoint: cfg.OCR.GoogleVisionEndpoint,
		MockDelay:            cfg.OCR.MockDelay.Std(),
		Timeout:              cfg.OCR.Timeout.Std(),
		HTTPClient:           httpClient,
		Logger:               xlog.WithComponent("ocr"),
	})

	logger.Info().
		Str("ocr", scanner.Name()).
		Str("metadata", provider.Name()).
		Str("cache", cfg.Cache.Backend).
		Msg("scan pipeline ready")

	return &Components{
		Scanner:  scanner,
		Provider: provider,
		Cache:    lookupCache,
		Timeline: scan.ScaleTimeline(scan.DefaultTimeline(), cfg.Scan.TimelineScale),
		logger:   logger,
	}, nil
}

func buildCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		c, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, xlog.WithComponent("cache"))
		if err != nil {
			return nil, err
		}
		return c, nil
	case "none":
		return nil, nil
	default:
		return cache.NewMemory(cfg.CleanupInterval.Std()), nil
	}
}

// Close releases the OCR engine and the lookup cache.
func (c *Components) Close() error {
	if err := ocr.Close(c.Scanner); err != nil {
		c.logger.Warn().Err(err).Msg("closing OCR scanner")
	}
	if c.Cache != nil {
		return c.Cache.Close()
	}
	return nil
}
