package config

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	xlog "github.com/kdimtricp/popscan/internal/log"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overrides file values with environment variables. Malformed
// numbers and durations are logged and ignored.
func (c *Config) applyEnv(lookup lookupFunc) {
	e := envReader{lookup: lookup, logger: xlog.WithComponent("config")}

	e.str("PORT", &c.Server.Port)
	e.duration("SESSION_TTL", &c.Server.SessionTTL)
	e.integer64("MAX_UPLOAD_SIZE", &c.Server.MaxUploadBytes)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	e.str("OCR_PROVIDER", &c.OCR.Provider)
	e.str("TESSERACT_PATH", &c.OCR.TesseractPath)
	e.str("TESSERACT_LANG", &c.OCR.TesseractLanguage)
	e.str("GOOGLE_VISION_API_KEY", &c.OCR.GoogleVisionKey)
	e.duration("OCR_TIMEOUT", &c.OCR.Timeout)

	e.str("MOVIE_PROVIDER", &c.Metadata.Provider)
	e.str("OMDB_API_KEY", &c.Metadata.OMDbKey)
	e.str("TMDB_API_KEY", &c.Metadata.TMDbKey)
	e.str("TMDB_LANGUAGE", &c.Metadata.TMDbLanguage)
	e.duration("LOOKUP_TIMEOUT", &c.Metadata.LookupTimeout)

	e.str("CACHE_BACKEND", &c.Cache.Backend)
	e.duration("CACHE_TTL", &c.Cache.TTL)
	e.str("REDIS_ADDR", &c.Cache.RedisAddr)
	e.str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	e.integer("REDIS_DB", &c.Cache.RedisDB)

	e.float("SCAN_TIMELINE_SCALE", &c.Scan.TimelineScale)
	e.str("FFMPEG_PATH", &c.Capture.FFmpegPath)
}

type envReader struct {
	lookup lookupFunc
	logger zerolog.Logger
}

func (e envReader) value(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e envReader) str(key string, dst *string) {
	if v, ok := e.value(key); ok {
		*dst = v
	}
}

func (e envReader) integer(key string, dst *int) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, v, err)
		return
	}
	*dst = i
}

func (e envReader) integer64(key string, dst *int64) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.invalid(key, v, err)
		return
	}
	*dst = i
}

func (e envReader) float(key string, dst *float64) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, err)
		return
	}
	*dst = f
}

func (e envReader) duration(key string, dst *Duration) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	var d Duration
	if err := d.UnmarshalText([]byte(v)); err != nil {
		e.invalid(key, v, err)
		return
	}
	*dst = d
}

func (e envReader) invalid(key, value string, err error) {
	e.logger.Warn().
		Err(err).
		Str("key", key).
		Str("value", value).
		Msg("ignoring invalid environment value")
}
