package ocr

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/candidates"
	"github.com/kdimtricp/popscan/internal/capture"
	"github.com/kdimtricp/popscan/internal/models"
)

const (
	tesseractDemo     = "tesseract-demo"
	tesseractFallback = "tesseract-fallback"
)

// Tesseract runs the local tesseract engine. Engine failures and frames
// without any text produce the demo segments so a scan still completes.
type Tesseract struct {
	handle *EngineHandle
	logger zerolog.Logger
}

func NewTesseract(handle *EngineHandle, logger zerolog.Logger) *Tesseract {
	return &Tesseract{handle: handle, logger: logger}
}

func (t *Tesseract) Name() string {
	return KindTesseract
}

func (t *Tesseract) Scan(ctx context.Context, req models.ScanRequest) (*models.OCRResult, error) {
	if req.DemoMode || req.FrameDataURL == "" {
		return demoResult(tesseractDemo), nil
	}

	contentType, image, err := capture.DecodeDataURL(req.FrameDataURL)
	if err != nil {
		t.logger.Warn().Err(err).Msg("tesseract OCR received an unreadable frame")
		return demoResult(tesseractFallback), nil
	}

	engine, err := t.handle.Engine(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("tesseract engine unavailable")
		return demoResult(tesseractFallback), nil
	}

	rec, err := engine.Recognize(ctx, image, contentType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Error().Err(err).Msg("tesseract OCR failed")
		return demoResult(tesseractFallback), nil
	}

	result := &models.OCRResult{
		Segments:   candidates.SegmentsFromLines(rec.Lines),
		FullText:   rec.Text,
		CapturedAt: time.Now().UTC(),
		Provider:   KindTesseract,
	}
	if len(result.Segments) == 0 {
		demoRes := demoResult(KindTesseract)
		result.Segments = demoRes.Segments
		if result.FullText == "" {
			result.FullText = demoRes.FullText
		}
	}
	return result, nil
}

// Close releases the engine.
func (t *Tesseract) Close() error {
	return t.handle.Close()
}
