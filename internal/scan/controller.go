package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/candidates"
	"github.com/kdimtricp/popscan/internal/capture"
	"github.com/kdimtricp/popscan/internal/demo"
	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/metrics"
	"github.com/kdimtricp/popscan/internal/models"
	"github.com/kdimtricp/popscan/internal/ocr"
)

type Options struct {
	Scanner  ocr.Scanner
	Provider metadata.Provider
	// Capture produces the frame to recognize. Without it the scanner runs
	// in demo mode.
	Capture capture.Func
	// Timeline defaults to DefaultTimeline.
	Timeline []PhaseStep

	// OnComplete receives the results of every successful run.
	OnComplete func([]models.MediaTitle)
	// Notify receives phase, success, error and reset events.
	Notify func(Event)

	Logger *zerolog.Logger
}

// Controller drives one scan session. Only one run is active at a time; a
// run commits state only while its generation is current and the controller
// is open.
type Controller struct {
	scanner    ocr.Scanner
	provider   metadata.Provider
	capture    capture.Func
	timeline   []PhaseStep
	onComplete func([]models.MediaTitle)
	notify     func(Event)
	logger     zerolog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	closed     bool

	wg sync.WaitGroup
}

func NewController(opts Options) (*Controller, error) {
	if opts.Scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("metadata provider is required")
	}

	timeline := opts.Timeline
	if len(timeline) == 0 {
		timeline = DefaultTimeline()
	}

	logger := xlog.WithComponent("scan")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Controller{
		scanner:    opts.Scanner,
		provider:   opts.Provider,
		capture:    opts.Capture,
		timeline:   append([]PhaseStep(nil), timeline...),
		onComplete: opts.OnComplete,
		notify:     opts.Notify,
		logger:     logger,
		state:      idleState(),
	}, nil
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Run executes a full scan and blocks until it finishes. It returns
// ErrScanInProgress without touching the state if a scan is running.
func (c *Controller) Run(ctx context.Context) ([]models.MediaTitle, error) {
	gen, runCtx, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer c.wg.Done()
	return c.run(runCtx, gen)
}

// Start launches a scan in the background. It reports false when a scan is
// already running or the controller is closed.
func (c *Controller) Start(ctx context.Context) bool {
	gen, runCtx, err := c.begin(ctx)
	if err != nil {
		return false
	}

	go func() {
		defer c.wg.Done()
		if _, err := c.run(runCtx, gen); err != nil {
			c.logger.Debug().Err(err).Msg("background scan ended")
		}
	}()
	return true
}

// Reset returns the session to idle and discards whatever the current run
// produces from now on.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	wasScanning := c.state.IsScanning()
	c.state = idleState()
	c.mu.Unlock()

	if wasScanning {
		metrics.RecordScan(metrics.OutcomeReset)
	}
	c.emit(Event{Type: EventReset, Phase: models.PhaseIdle})
}

// Close cancels the current run and waits for in-flight runs to return.
// Later runs fail with ErrClosed. It must not be called from OnComplete or
// Notify.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) begin(ctx context.Context) (uint64, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, ErrClosed
	}
	if c.state.IsScanning() {
		return 0, nil, ErrScanInProgress
	}

	// Registered under the lock so a concurrent Close always waits for it.
	c.wg.Add(1)
	c.generation++
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.state.Status = models.StatusScanning
	c.state.Phase = models.PhaseIdle
	c.state.Progress = 0
	c.state.Error = ""
	c.state.Segments = []models.RecognizedTextSegment{}

	return c.generation, runCtx, nil
}

// alive reports whether run gen may still commit state.
func (c *Controller) alive(gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aliveLocked(gen)
}

func (c *Controller) aliveLocked(gen uint64) error {
	if c.closed {
		return ErrClosed
	}
	if gen != c.generation {
		return ErrSessionReset
	}
	return nil
}

// commit applies fn to the state if run gen is still current.
func (c *Controller) commit(gen uint64, fn func(*State)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.aliveLocked(gen); err != nil {
		return err
	}
	fn(&c.state)
	return nil
}

func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) run(ctx context.Context, gen uint64) ([]models.MediaTitle, error) {
	defer c.release(gen)

	results, err := c.execute(ctx, gen)
	if err != nil {
		return nil, c.fail(gen, err)
	}

	now := time.Now().UTC()
	if err := c.commit(gen, func(s *State) {
		s.Status = models.StatusSuccess
		s.Phase = models.PhaseIdle
		s.Progress = 100
		s.Results = results
		s.LastCompletedAt = &now
	}); err != nil {
		return nil, err
	}

	metrics.RecordScan(metrics.OutcomeSuccess)
	c.logger.Info().Int(xlog.FieldResults, len(results)).Msg("scan complete")
	c.emit(Event{
		Type:     EventSuccess,
		Phase:    models.PhaseIdle,
		Progress: 100,
		Message:  fmt.Sprintf("Scan complete! Found %d titles", len(results)),
	})

	if c.onComplete != nil {
		c.onComplete(cloneTitles(results))
	}
	return cloneTitles(results), nil
}

// fail moves a live run into the error state. Runs that lost liveness return
// the liveness error unchanged.
func (c *Controller) fail(gen uint64, cause error) error {
	if errors.Is(cause, ErrSessionReset) || errors.Is(cause, ErrClosed) {
		return cause
	}

	message := cause.Error()
	if err := c.commit(gen, func(s *State) {
		s.Status = models.StatusError
		s.Phase = models.PhaseIdle
		s.Progress = 0
		s.Error = message
	}); err != nil {
		return err
	}

	metrics.RecordScan(metrics.OutcomeError)
	c.logger.Warn().Err(cause).Msg("scan failed")
	c.emit(Event{Type: EventError, Phase: models.PhaseIdle, Message: message})
	return cause
}

func (c *Controller) execute(ctx context.Context, gen uint64) ([]models.MediaTitle, error) {
	var (
		frame    string
		segments []models.RecognizedTextSegment
		results  []models.MediaTitle
	)

	for _, step := range c.timeline {
		if err := c.enter(gen, step); err != nil {
			return nil, err
		}
		started := time.Now()
		wait := step.Duration

		switch step.Phase {
		case models.PhaseCapturing:
			var err error
			frame, err = c.captureFrame(ctx)
			if aliveErr := c.alive(gen); aliveErr != nil {
				return nil, aliveErr
			}
			if err != nil {
				return nil, err
			}

		case models.PhaseAnalyzing:
			res, err := c.scanner.Scan(ctx, models.ScanRequest{FrameDataURL: frame, DemoMode: frame == ""})
			if aliveErr := c.alive(gen); aliveErr != nil {
				return nil, aliveErr
			}
			if err != nil {
				return nil, fmt.Errorf("recognizing text: %w", err)
			}
			segments = res.Segments
			if err := c.commit(gen, func(s *State) {
				s.Segments = append([]models.RecognizedTextSegment{}, segments...)
			}); err != nil {
				return nil, err
			}

		case models.PhaseFetching:
			contexts := candidates.BuildLookupContexts(segments)
			titles, err := c.provider.ResolveCandidates(ctx, contexts)
			if aliveErr := c.alive(gen); aliveErr != nil {
				return nil, aliveErr
			}
			if err != nil {
				return nil, fmt.Errorf("resolving titles: %w", err)
			}
			if len(titles) == 0 {
				c.logger.Info().Msg("no titles resolved, using demo catalog")
				titles = demo.Titles()
			}
			results = titles
			wait = step.Duration / 2
		}

		if err := sleep(ctx, wait); err != nil {
			if aliveErr := c.alive(gen); aliveErr != nil {
				return nil, aliveErr
			}
			return nil, fmt.Errorf("scan interrupted: %w", err)
		}
		if err := c.alive(gen); err != nil {
			return nil, err
		}
		metrics.ObservePhase(string(step.Phase), time.Since(started))
	}

	if results == nil {
		results = demo.Titles()
	}
	return results, nil
}

func (c *Controller) enter(gen uint64, step PhaseStep) error {
	if err := c.commit(gen, func(s *State) {
		s.Phase = step.Phase
		s.Progress = step.Progress
	}); err != nil {
		return err
	}

	c.logger.Debug().
		Str(xlog.FieldPhase, string(step.Phase)).
		Int(xlog.FieldProgress, step.Progress).
		Msg("scan phase")
	c.emit(Event{Type: EventInfo, Phase: step.Phase, Progress: step.Progress, Message: step.Message})
	return nil
}

func (c *Controller) captureFrame(ctx context.Context) (string, error) {
	if c.capture == nil {
		return "", nil
	}
	frame, err := c.capture(ctx)
	if err != nil {
		return "", fmt.Errorf("capturing frame: %w", err)
	}
	return frame, nil
}

func (c *Controller) emit(ev Event) {
	if c.notify == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	c.notify(ev)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cloneTitles(in []models.MediaTitle) []models.MediaTitle {
	out := make([]models.MediaTitle, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
