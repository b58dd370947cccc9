package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/ocr"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if c.Scan.TimelineScale < 0 {
		return errors.New("scan.timeline_scale must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port %q is not a valid port", c.Server.Port)
	}
	if c.Server.SessionTTL <= 0 {
		return errors.New("server.session_ttl must be positive")
	}
	if c.Server.PruneInterval <= 0 {
		return errors.New("server.prune_interval must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

func (c *Config) validateLog() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "auto", "json", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q must be auto, json or console", c.Log.Format)
	}
}

func (c *Config) validateOCR() error {
	switch c.OCR.Provider {
	case ocr.KindMock, ocr.KindTesseract, ocr.KindGoogleVision:
	default:
		return fmt.Errorf("ocr.provider %q must be %s, %s or %s",
			c.OCR.Provider, ocr.KindMock, ocr.KindTesseract, ocr.KindGoogleVision)
	}
	if c.OCR.Timeout < 0 || c.OCR.MockDelay < 0 {
		return errors.New("ocr durations must not be negative")
	}
	if c.OCR.TesseractPSM < 0 || c.OCR.TesseractPSM > 13 {
		return errors.New("ocr.tesseract_psm must be between 0 and 13")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.Provider {
	case metadata.KindOpen, metadata.KindMock:
	default:
		return fmt.Errorf("metadata.provider %q must be %s or %s",
			c.Metadata.Provider, metadata.KindOpen, metadata.KindMock)
	}
	if c.Metadata.LookupTimeout < 0 {
		return errors.New("metadata.lookup_timeout must not be negative")
	}
	if c.Metadata.RateLimit < 0 || c.Metadata.RateBurst < 0 {
		return errors.New("metadata rate limits must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend (set REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("cache.backend %q must be memory, redis or none", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 || c.Cache.CleanupInterval < 0 {
		return errors.New("cache durations must not be negative")
	}
	return nil
}
