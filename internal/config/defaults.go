package config

import (
	"time"

	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/ocr"
)

const (
	defaultPort            = "8080"
	defaultSessionTTL      = 15 * time.Minute
	defaultPruneInterval   = time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxUploadBytes  = 10 << 20
	defaultServerRateLimit = 30
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultTesseractPath   = "tesseract"
	defaultTesseractLang   = "eng"
	defaultTMDbLanguage    = "en-US"
	defaultLookupRate      = 5
	defaultLookupBurst     = 5
	defaultCacheBackend    = "memory"
	defaultCacheTTL        = time.Hour
	defaultCacheCleanup    = 5 * time.Minute
	defaultRedisKeyPrefix  = "popscan:"
	defaultFFmpegPath      = "ffmpeg"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Port:            defaultPort,
			SessionTTL:      Duration(defaultSessionTTL),
			PruneInterval:   Duration(defaultPruneInterval),
			ShutdownTimeout: Duration(defaultShutdownTimeout),
			MaxUploadBytes:  defaultMaxUploadBytes,
			RateLimit:       defaultServerRateLimit,
		},
		Log: Log{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		OCR: OCR{
			Provider:          ocr.KindMock,
			TesseractPath:     defaultTesseractPath,
			TesseractLanguage: defaultTesseractLang,
			Timeout:           Duration(ocr.DefaultTimeout),
		},
		Metadata: Metadata{
			Provider:      metadata.KindOpen,
			TMDbLanguage:  defaultTMDbLanguage,
			LookupTimeout: Duration(metadata.DefaultLookupTimeout),
			RateLimit:     defaultLookupRate,
			RateBurst:     defaultLookupBurst,
		},
		Cache: Cache{
			Backend:         defaultCacheBackend,
			TTL:             Duration(defaultCacheTTL),
			CleanupInterval: Duration(defaultCacheCleanup),
			RedisKeyPrefix:  defaultRedisKeyPrefix,
		},
		Scan: Scan{
			TimelineScale: 1,
		},
		Capture: Capture{
			FFmpegPath: defaultFFmpegPath,
		},
	}
}
