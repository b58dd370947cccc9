// Package config loads popscan configuration from defaults, an optional
// YAML or TOML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a Go duration string ("8s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Server   Server   `yaml:"server" toml:"server"`
	Log      Log      `yaml:"log" toml:"log"`
	OCR      OCR      `yaml:"ocr" toml:"ocr"`
	Metadata Metadata `yaml:"metadata" toml:"metadata"`
	Cache    Cache    `yaml:"cache" toml:"cache"`
	Scan     Scan     `yaml:"scan" toml:"scan"`
	Capture  Capture  `yaml:"capture" toml:"capture"`
}

type Server struct {
	Port string `yaml:"port" toml:"port"`
	// SessionTTL is how long an idle scan session is kept.
	SessionTTL      Duration `yaml:"session_ttl" toml:"session_ttl"`
	PruneInterval   Duration `yaml:"prune_interval" toml:"prune_interval"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	// RateLimit caps POST requests per client and minute; zero disables it.
	RateLimit int `yaml:"rate_limit" toml:"rate_limit"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
	// Format is "auto", "json" or "console".
	Format string `yaml:"format" toml:"format"`
}

type OCR struct {
	Provider             string   `yaml:"provider" toml:"provider"`
	TesseractPath        string   `yaml:"tesseract_path" toml:"tesseract_path"`
	TesseractLanguage    string   `yaml:"tesseract_language" toml:"tesseract_language"`
	TesseractPSM         int      `yaml:"tesseract_psm" toml:"tesseract_psm"`
	GoogleVisionKey      string   `yaml:"google_vision_key" toml:"google_vision_key"`
	GoogleVisionEndpoint string   `yaml:"google_vision_endpoint" toml:"google_vision_endpoint"`
	Timeout              Duration `yaml:"timeout" toml:"timeout"`
	MockDelay            Duration `yaml:"mock_delay" toml:"mock_delay"`
}

type Metadata struct {
	Provider      string   `yaml:"provider" toml:"provider"`
	OMDbKey       string   `yaml:"omdb_key" toml:"omdb_key"`
	OMDbBaseURL   string   `yaml:"omdb_base_url" toml:"omdb_base_url"`
	TVmazeBaseURL string   `yaml:"tvmaze_base_url" toml:"tvmaze_base_url"`
	TMDbKey       string   `yaml:"tmdb_key" toml:"tmdb_key"`
	TMDbBaseURL   string   `yaml:"tmdb_base_url" toml:"tmdb_base_url"`
	TMDbLanguage  string   `yaml:"tmdb_language" toml:"tmdb_language"`
	LookupTimeout Duration `yaml:"lookup_timeout" toml:"lookup_timeout"`
	// RateLimit is requests per second per sub-provider; zero disables it.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" toml:"rate_burst"`
}

type Cache struct {
	// Backend is "memory", "redis" or "none".
	Backend         string   `yaml:"backend" toml:"backend"`
	TTL             Duration `yaml:"ttl" toml:"ttl"`
	CleanupInterval Duration `yaml:"cleanup_interval" toml:"cleanup_interval"`
	RedisAddr       string   `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword   string   `yaml:"redis_password" toml:"redis_password"`
	RedisDB         int      `yaml:"redis_db" toml:"redis_db"`
	RedisKeyPrefix  string   `yaml:"redis_key_prefix" toml:"redis_key_prefix"`
}

type Scan struct {
	// TimelineScale multiplies every nominal phase duration; 0 removes the
	// pacing delays entirely.
	TimelineScale float64 `yaml:"timeline_scale" toml:"timeline_scale"`
}

type Capture struct {
	FFmpegPath string `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A .env file in the working directory is
// read when present; variables already set in the environment win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", ext)
	}
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
