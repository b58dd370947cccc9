package metadata

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kdimtricp/popscan/internal/cache"
	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/metadata/omdb"
	"github.com/kdimtricp/popscan/internal/metadata/tmdb"
	"github.com/kdimtricp/popscan/internal/metadata/tvmaze"
)

const (
	KindOpen = "open"
	KindMock = "mock"

	OpenName = "open-media"

	DefaultLookupTimeout = 8 * time.Second
)

// Config selects and configures the provider variant.
type Config struct {
	Kind string

	OMDbKey       string
	OMDbBaseURL   string
	TVmazeBaseURL string
	TMDbKey       string
	TMDbBaseURL   string
	TMDbLanguage  string

	// LookupTimeout bounds each sub-provider call; zero disables it.
	LookupTimeout time.Duration

	// RateLimit is the per sub-provider request rate in requests per second;
	// zero disables limiting.
	RateLimit float64
	RateBurst int

	// Cache, when set, memoizes sub-provider answers for CacheTTL.
	Cache    cache.Cache
	CacheTTL time.Duration

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// New builds the provider selected by cfg.Kind. "open" queries OMDb and
// TVmaze, plus TMDb when a key is configured. Any other kind selects the
// demo catalog fallback.
func New(cfg Config) (Provider, error) {
	if cfg.Kind != KindOpen {
		if cfg.Kind != KindMock {
			cfg.Logger.Warn().Str("kind", cfg.Kind).Msg("unknown metadata provider, using demo catalog")
		}
		return NewFallback(), nil
	}

	subs := []SubProvider{
		omdb.New(cfg.OMDbKey, omdb.WithBaseURL(cfg.OMDbBaseURL), omdb.WithHTTPClient(cfg.HTTPClient)),
		tvmaze.New(tvmaze.WithBaseURL(cfg.TVmazeBaseURL), tvmaze.WithHTTPClient(cfg.HTTPClient)),
	}
	if cfg.TMDbKey != "" {
		client, err := tmdb.New(cfg.TMDbKey,
			tmdb.WithBaseURL(cfg.TMDbBaseURL),
			tmdb.WithLanguage(cfg.TMDbLanguage),
			tmdb.WithHTTPClient(cfg.HTTPClient))
		if err != nil {
			return nil, fmt.Errorf("creating tmdb client: %w", err)
		}
		subs = append(subs, client)
	}

	for i, sub := range subs {
		if cfg.RateLimit > 0 {
			burst := cfg.RateBurst
			if burst < 1 {
				burst = 1
			}
			sub = Limit(sub, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
		}
		if cfg.Cache != nil {
			sub = Cached(sub, cfg.Cache, cfg.CacheTTL, cfg.Logger)
		}
		subs[i] = sub
	}

	return NewResolver(OpenName, subs,
		WithLookupTimeout(cfg.LookupTimeout),
		WithLogger(cfg.Logger.With().Str(xlog.FieldResolver, OpenName).Logger()),
	), nil
}
