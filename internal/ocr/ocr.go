// Package ocr extracts text segments from captured frames. Several engines
// are available and all of them fall back to the demo segments when no
// frame is supplied.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/demo"
	"github.com/kdimtricp/popscan/internal/metrics"
	"github.com/kdimtricp/popscan/internal/models"
	"github.com/kdimtricp/popscan/internal/storage"
)

var ErrEngineUnavailable = errors.New("ocr engine unavailable")

const (
	KindMock         = "mock"
	KindTesseract    = "tesseract"
	KindGoogleVision = "googleVision"

	DefaultTimeout = 20 * time.Second
)

// Scanner recognizes text in a frame. A request without a frame, or in demo
// mode, yields the demo segments rather than an error.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req models.ScanRequest) (*models.OCRResult, error)
}

type Config struct {
	Kind string

	TesseractPath     string
	TesseractLanguage string
	// TesseractPSM is passed as --psm when non-zero.
	TesseractPSM int
	// Storage receives frames handed to tesseract. A temporary directory is
	// used when nil.
	Storage storage.Storage

	GoogleVisionKey      string
	GoogleVisionEndpoint string

	// MockDelay simulates engine latency in the mock scanner.
	MockDelay time.Duration

	// Timeout bounds a single scan; zero disables it.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// New builds the scanner selected by cfg.Kind. A variant whose key or binary
// is missing is replaced by the mock scanner with a warning.
func New(cfg Config) Scanner {
	var scanner Scanner

	switch cfg.Kind {
	case KindGoogleVision:
		if cfg.GoogleVisionKey == "" {
			cfg.Logger.Warn().Msg("google vision key missing, using mock OCR")
			scanner = NewMock(cfg.MockDelay)
			break
		}
		scanner = NewGoogleVision(cfg.GoogleVisionKey,
			WithEndpoint(cfg.GoogleVisionEndpoint),
			WithHTTPClient(cfg.HTTPClient),
			WithVisionLogger(cfg.Logger))
	case KindTesseract:
		handle := NewEngineHandle(EngineConfig{
			Path:     cfg.TesseractPath,
			Language: cfg.TesseractLanguage,
			PSM:      cfg.TesseractPSM,
			Storage:  cfg.Storage,
		})
		if err := handle.Available(); err != nil {
			cfg.Logger.Warn().Err(err).Msg("tesseract unavailable, using mock OCR")
			scanner = NewMock(cfg.MockDelay)
			break
		}
		scanner = NewTesseract(handle, cfg.Logger)
	case KindMock, "":
		scanner = NewMock(cfg.MockDelay)
	default:
		cfg.Logger.Warn().Str("kind", cfg.Kind).Msg("unknown OCR provider, using mock OCR")
		scanner = NewMock(cfg.MockDelay)
	}

	return &guarded{inner: scanner, timeout: cfg.Timeout}
}

// Close releases engine resources held by s, if any.
func Close(s Scanner) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// guarded applies the scan timeout and records metrics.
type guarded struct {
	inner   Scanner
	timeout time.Duration
}

func (g *guarded) Name() string {
	return g.inner.Name()
}

func (g *guarded) Scan(ctx context.Context, req models.ScanRequest) (*models.OCRResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.inner.Scan(ctx, req)
	if err != nil {
		metrics.RecordOCR(g.inner.Name(), metrics.OutcomeError)
		if errors.Is(err, context.DeadlineExceeded) && g.timeout > 0 {
			return nil, fmt.Errorf("text recognition timed out after %s: %w", g.timeout, err)
		}
		return nil, err
	}
	metrics.RecordOCR(result.Provider, metrics.OutcomeSuccess)
	return result, nil
}

func (g *guarded) Close() error {
	return Close(g.inner)
}

func demoResult(provider string) *models.OCRResult {
	return &models.OCRResult{
		Segments:   demo.Segments(),
		FullText:   demo.FullText(),
		CapturedAt: time.Now().UTC(),
		Provider:   provider,
	}
}
