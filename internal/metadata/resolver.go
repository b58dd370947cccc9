package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/metrics"
	"github.com/kdimtricp/popscan/internal/models"
)

// Resolver fans every unique candidate title out to its sub-providers and
// merges the answers by merge key.
type Resolver struct {
	name    string
	subs    []SubProvider
	timeout time.Duration
	logger  zerolog.Logger
}

var _ Provider = (*Resolver)(nil)

type ResolverOption func(*Resolver)

// WithLookupTimeout bounds each sub-provider call. Zero disables the bound.
func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(name string, subs []SubProvider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		name:   name,
		subs:   subs,
		logger: xlog.WithComponent("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Name() string {
	return r.name
}

// SubProviders returns the configured sub-provider names in query order.
func (r *Resolver) SubProviders() []string {
	names := make([]string, len(r.subs))
	for i, s := range r.subs {
		names[i] = s.Name()
	}
	return names
}

// ResolveCandidates issues each distinct candidate title once, in context
// and candidate order. Sub-provider failures are logged and skipped; only
// cancellation of ctx fails the call.
func (r *Resolver) ResolveCandidates(ctx context.Context, contexts []models.LookupContext) ([]models.MediaTitle, error) {
	results := newResultSet()
	issued := make(map[string]struct{})

	for _, lc := range contexts {
		for _, candidate := range lc.Candidates {
			query := strings.TrimSpace(candidate.Title)
			if query == "" {
				continue
			}
			key := strings.ToLower(query)
			if _, done := issued[key]; done {
				continue
			}
			issued[key] = struct{}{}

			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("resolving candidates: %w", err)
			}

			for _, batch := range r.fanOut(ctx, query) {
				for _, t := range batch {
					results.add(t)
				}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving candidates: %w", err)
	}
	return results.titles(), nil
}

// fanOut queries every sub-provider concurrently. Slot i holds the answer of
// sub-provider i so callers merge in configuration order.
func (r *Resolver) fanOut(ctx context.Context, query string) [][]models.MediaTitle {
	slots := make([][]models.MediaTitle, len(r.subs))

	var g errgroup.Group
	for i, sub := range r.subs {
		g.Go(func() error {
			slots[i] = r.lookup(ctx, sub, query)
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

func (r *Resolver) lookup(ctx context.Context, sub SubProvider, query string) []models.MediaTitle {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	titles, err := sub.Lookup(callCtx, query)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordLookup(sub.Name(), metrics.OutcomeError, elapsed)
		r.logger.Warn().
			Err(err).
			Str(xlog.FieldProvider, sub.Name()).
			Str(xlog.FieldQuery, query).
			Dur(xlog.FieldDuration, elapsed).
			Msg("sub-provider lookup failed")
		return nil
	}

	outcome := metrics.OutcomeSuccess
	if len(titles) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordLookup(sub.Name(), outcome, elapsed)
	r.logger.Debug().
		Str(xlog.FieldProvider, sub.Name()).
		Str(xlog.FieldQuery, query).
		Int(xlog.FieldResults, len(titles)).
		Dur(xlog.FieldDuration, elapsed).
		Msg("sub-provider lookup")
	return titles
}
