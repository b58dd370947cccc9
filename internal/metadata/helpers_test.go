package metadata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kdimtricp/popscan/internal/models"
)

type fakeSub struct {
	name    string
	mu      sync.Mutex
	queries []string
	results map[string][]models.MediaTitle
	err     error
	delay   time.Duration
}

func (f *fakeSub) Name() string { return f.name }

func (f *fakeSub) Lookup(ctx context.Context, query string) ([]models.MediaTitle, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[strings.ToLower(query)], nil
}

func (f *fakeSub) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

var errBoom = errors.New("boom")

func ctxOf(titles ...string) models.LookupContext {
	lc := models.LookupContext{}
	for _, t := range titles {
		lc.Candidates = append(lc.Candidates, models.CandidateTitle{Title: t, Confidence: 0.9})
	}
	return lc
}
