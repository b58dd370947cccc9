package scan

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/popscan/internal/demo"
	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/models"
)

func newTestController(t *testing.T, opts Options) *Controller {
	t.Helper()
	if opts.Timeline == nil {
		opts.Timeline = instantTimeline()
	}
	opts.Logger = &nop
	c, err := NewController(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	_, err := NewController(Options{Provider: &staticProvider{}})
	assert.Error(t, err)
	_, err = NewController(Options{Scanner: &fakeScanner{}})
	assert.Error(t, err)
}

func TestRunResolvesLastOfUs(t *testing.T) {
	segments := []models.RecognizedTextSegment{{
		RawText: "Now Streaming The Last of Us",
		Candidates: []models.CandidateTitle{
			{Title: "The Last of Us", Confidence: 0.9},
		},
	}}
	omdbSub := &fakeSub{name: "omdb", results: map[string][]models.MediaTitle{
		"the last of us": {{
			ID: "omdb-tt3581920", Title: "The Last of Us", ReleaseYear: "2023", Kind: models.KindSeries,
			Ratings:           models.RatingAggregate{IMDb: models.Score(8.8)},
			SourceAttribution: "OMDb",
		}},
	}}
	tvSub := &fakeSub{name: "tvmaze", results: map[string][]models.MediaTitle{
		"the last of us": {{
			ID: "tvmaze-46562", Title: "The Last of Us", ReleaseYear: "2023", Kind: models.KindSeries,
			Ratings:           models.RatingAggregate{ScreenCritic: models.Score(86)},
			SourceAttribution: "TVmaze",
		}},
	}}
	resolver := metadata.NewResolver("test", []metadata.SubProvider{omdbSub, tvSub}, metadata.WithLogger(nop))

	rec := &recorder{}
	var completed [][]models.MediaTitle
	c := newTestController(t, Options{
		Scanner:    &fakeScanner{segments: segments},
		Provider:   resolver,
		Notify:     rec.notify,
		OnComplete: func(titles []models.MediaTitle) { completed = append(completed, titles) },
	})

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Last of Us", results[0].Title)
	assert.Equal(t, "OMDb, TVmaze", results[0].SourceAttribution)
	assert.Equal(t, 8.8, *results[0].Ratings.IMDb)
	assert.Equal(t, 86.0, *results[0].Ratings.ScreenCritic)

	state := c.State()
	assert.Equal(t, models.StatusSuccess, state.Status)
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Equal(t, 100, state.Progress)
	assert.True(t, state.HasCompleted())
	assert.NotNil(t, state.LastCompletedAt)
	assert.Empty(t, state.Error)
	assert.Len(t, state.Segments, 1)
	if diff := cmp.Diff(results, state.Results); diff != "" {
		t.Errorf("state results mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, completed, 1)
	assert.Len(t, completed[0], 1)

	events := rec.all()
	require.Len(t, events, 5)
	var progress []int
	for _, ev := range events[:4] {
		assert.Equal(t, EventInfo, ev.Type)
		progress = append(progress, ev.Progress)
	}
	assert.Equal(t, []int{20, 40, 70, 95}, progress)
	assert.Equal(t, "Detecting text on screen…", events[0].Message)
	assert.Equal(t, EventSuccess, events[4].Type)
	assert.Equal(t, "Scan complete! Found 1 titles", events[4].Message)
}

func TestRunWithoutResultsUsesDemoCatalog(t *testing.T) {
	c := newTestController(t, Options{
		Scanner:  &fakeScanner{segments: demo.Segments()},
		Provider: &staticProvider{},
	})

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(demo.Titles(), results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPassesCapturedFrame(t *testing.T) {
	scanner := &fakeScanner{segments: demo.Segments()}
	c := newTestController(t, Options{
		Scanner:  scanner,
		Provider: &staticProvider{},
		Capture:  func(context.Context) (string, error) { return "data:image/png;base64,AAAA", nil },
	})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ScanRequest{FrameDataURL: "data:image/png;base64,AAAA"}, scanner.lastRequest())
}

func TestRunWithoutCaptureIsDemoMode(t *testing.T) {
	scanner := &fakeScanner{segments: demo.Segments()}
	c := newTestController(t, Options{Scanner: scanner, Provider: &staticProvider{}})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ScanRequest{DemoMode: true}, scanner.lastRequest())
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantMsg string
	}{
		{
			name:    "ocr",
			opts:    Options{Scanner: &fakeScanner{err: errBoom}, Provider: &staticProvider{}},
			wantMsg: "recognizing text: boom",
		},
		{
			name:    "resolver",
			opts:    Options{Scanner: &fakeScanner{}, Provider: &staticProvider{err: errBoom}},
			wantMsg: "resolving titles: boom",
		},
		{
			name: "capture",
			opts: Options{
				Scanner:  &fakeScanner{},
				Provider: &staticProvider{},
				Capture:  func(context.Context) (string, error) { return "", errBoom },
			},
			wantMsg: "capturing frame: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			completed := 0
			opts := tt.opts
			opts.Notify = rec.notify
			opts.OnComplete = func([]models.MediaTitle) { completed++ }
			c := newTestController(t, opts)

			results, err := c.Run(context.Background())
			require.ErrorIs(t, err, errBoom)
			assert.Nil(t, results)

			state := c.State()
			assert.Equal(t, models.StatusError, state.Status)
			assert.Equal(t, models.PhaseIdle, state.Phase)
			assert.Equal(t, 0, state.Progress)
			assert.Equal(t, tt.wantMsg, state.Error)
			assert.Empty(t, state.Results)
			assert.Zero(t, completed)

			events := rec.all()
			require.NotEmpty(t, events)
			last := events[len(events)-1]
			assert.Equal(t, EventError, last.Type)
			assert.Equal(t, tt.wantMsg, last.Message)
		})
	}
}

func TestRunAfterErrorStartsAgain(t *testing.T) {
	scanner := &fakeScanner{err: errBoom}
	c := newTestController(t, Options{Scanner: scanner, Provider: &staticProvider{}})

	_, err := c.Run(context.Background())
	require.Error(t, err)

	scanner.err = nil
	_, err = c.Run(context.Background())
	require.NoError(t, err)
	state := c.State()
	assert.Equal(t, models.StatusSuccess, state.Status)
	assert.Empty(t, state.Error)
}

func TestRunWhileScanningIsRejected(t *testing.T) {
	scanner := blockingScanner(demo.Segments())
	completed := 0
	c := newTestController(t, Options{
		Scanner:    scanner,
		Provider:   &staticProvider{},
		OnComplete: func([]models.MediaTitle) { completed++ },
	})

	require.True(t, c.Start(context.Background()))
	waitStarted(t, scanner)

	before := c.State()
	assert.True(t, before.IsScanning())
	assert.Equal(t, models.PhaseAnalyzing, before.Phase)
	assert.Equal(t, 70, before.Progress)

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.False(t, c.Start(context.Background()))
	if diff := cmp.Diff(before, c.State()); diff != "" {
		t.Errorf("state changed by rejected run (-before +after):\n%s", diff)
	}

	close(scanner.gate)
	require.Eventually(t, func() bool {
		return c.State().Status == models.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)
	c.Close()
	assert.Equal(t, 1, completed)
}

func TestResetMidScan(t *testing.T) {
	scanner := blockingScanner(demo.Segments())
	rec := &recorder{}
	completed := 0
	c := newTestController(t, Options{
		Scanner:    scanner,
		Provider:   &staticProvider{},
		Notify:     rec.notify,
		OnComplete: func([]models.MediaTitle) { completed++ },
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()
	waitStarted(t, scanner)

	c.Reset()
	state := c.State()
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Empty(t, state.Results)
	assert.Empty(t, state.Segments)
	assert.Zero(t, state.Progress)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionReset)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after reset")
	}

	assert.Equal(t, models.StatusIdle, c.State().Status)
	assert.Zero(t, completed)
	events := rec.all()
	assert.Equal(t, EventReset, events[len(events)-1].Type)
}

func TestResetDiscardsLateResults(t *testing.T) {
	// The scanner ignores cancellation so its result arrives after the reset.
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	scanner := &lateScanner{gate: gate, started: started}
	completed := 0
	c := newTestController(t, Options{
		Scanner:    scanner,
		Provider:   &staticProvider{},
		OnComplete: func([]models.MediaTitle) { completed++ },
	})

	require.True(t, c.Start(context.Background()))
	<-started
	c.Reset()
	close(gate)
	c.Close()

	state := c.State()
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Empty(t, state.Segments)
	assert.Zero(t, completed)
}

type lateScanner struct {
	gate    chan struct{}
	started chan struct{}
}

func (s *lateScanner) Name() string { return "late" }

func (s *lateScanner) Scan(context.Context, models.ScanRequest) (*models.OCRResult, error) {
	s.started <- struct{}{}
	<-s.gate
	return &models.OCRResult{Segments: demo.Segments()}, nil
}

func TestResetAfterSuccessClearsResults(t *testing.T) {
	c := newTestController(t, Options{Scanner: &fakeScanner{segments: demo.Segments()}, Provider: &staticProvider{}})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, c.State().Results)

	c.Reset()
	state := c.State()
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Empty(t, state.Results)
}

func TestClose(t *testing.T) {
	scanner := blockingScanner(demo.Segments())
	c := newTestController(t, Options{Scanner: scanner, Provider: &staticProvider{}})

	require.True(t, c.Start(context.Background()))
	waitStarted(t, scanner)
	c.Close()

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, c.Start(context.Background()))
}

func TestCloseWaitsForConcurrentStarts(t *testing.T) {
	for range 50 {
		rec := &recorder{}
		c, err := NewController(Options{
			Scanner:  &fakeScanner{segments: demo.Segments()},
			Provider: &staticProvider{},
			Timeline: instantTimeline(),
			Notify:   rec.notify,
			Logger:   &nop,
		})
		require.NoError(t, err)

		started := make(chan bool, 1)
		go func() { started <- c.Start(context.Background()) }()
		c.Close()
		<-started

		// Whether or not Start won the race, nothing runs once Close returns.
		emitted := len(rec.all())
		time.Sleep(5 * time.Millisecond)
		assert.Len(t, rec.all(), emitted)
		assert.False(t, c.Start(context.Background()))
	}
}

func TestCloseWaitsForSynchronousRun(t *testing.T) {
	scanner := blockingScanner(demo.Segments())
	c := newTestController(t, Options{Scanner: scanner, Provider: &staticProvider{}})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()
	waitStarted(t, scanner)

	c.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	default:
		t.Fatal("Close returned before Run finished")
	}
}

func TestParentContextCancellationFailsScan(t *testing.T) {
	c := newTestController(t, Options{
		Scanner:  &fakeScanner{segments: demo.Segments()},
		Provider: &staticProvider{},
		Timeline: ScaleTimeline(DefaultTimeline(), 10),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	state := c.State()
	assert.Equal(t, models.StatusError, state.Status)
	assert.Contains(t, state.Error, "scan interrupted")
}

func TestFetchingWaitsHalfItsDuration(t *testing.T) {
	timeline := []PhaseStep{
		{Phase: models.PhaseFetching, Duration: 200 * time.Millisecond, Progress: 95},
	}
	c := newTestController(t, Options{
		Scanner:  &fakeScanner{},
		Provider: &staticProvider{},
		Timeline: timeline,
	})

	start := time.Now()
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}
