package ocr

import (
	"context"
	"time"

	"github.com/kdimtricp/popscan/internal/models"
)

// Mock ignores the frame and returns the demo segments.
type Mock struct {
	delay time.Duration
}

func NewMock(delay time.Duration) *Mock {
	return &Mock{delay: delay}
}

func (m *Mock) Name() string {
	return KindMock
}

func (m *Mock) Scan(ctx context.Context, _ models.ScanRequest) (*models.OCRResult, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return demoResult(KindMock), nil
}
