// Package scan runs scan sessions: a fixed sequence of phases that turns a
// captured frame into resolved media titles.
package scan

import (
	"errors"
	"time"

	"github.com/kdimtricp/popscan/internal/models"
)

var (
	// ErrScanInProgress is returned when a run is requested while one is
	// already scanning. The running scan is left untouched.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrClosed is returned once the controller has been torn down.
	ErrClosed = errors.New("scan controller closed")
	// ErrSessionReset is returned by a run whose session was reset before it
	// could commit its results.
	ErrSessionReset = errors.New("scan session reset")
)

// State is a snapshot of a scan session.
type State struct {
	Status          models.Status                  `json:"status"`
	Phase           models.Phase                   `json:"phase"`
	Progress        int                            `json:"progress"`
	Results         []models.MediaTitle            `json:"results"`
	Segments        []models.RecognizedTextSegment `json:"segments"`
	Error           string                         `json:"error,omitempty"`
	LastCompletedAt *time.Time                     `json:"last_completed_at,omitempty"`
}

func (s State) IsScanning() bool   { return s.Status == models.StatusScanning }
func (s State) HasCompleted() bool { return s.Status == models.StatusSuccess }

func idleState() State {
	return State{
		Status:   models.StatusIdle,
		Phase:    models.PhaseIdle,
		Results:  []models.MediaTitle{},
		Segments: []models.RecognizedTextSegment{},
	}
}

func (s State) clone() State {
	out := s
	out.Results = make([]models.MediaTitle, len(s.Results))
	for i := range s.Results {
		out.Results[i] = s.Results[i].Clone()
	}
	out.Segments = append([]models.RecognizedTextSegment{}, s.Segments...)
	if s.LastCompletedAt != nil {
		t := *s.LastCompletedAt
		out.LastCompletedAt = &t
	}
	return out
}

type EventType string

const (
	EventInfo    EventType = "info"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
	EventReset   EventType = "reset"
)

// Event is a user-visible notification emitted while a scan progresses.
type Event struct {
	Type     EventType    `json:"type"`
	Phase    models.Phase `json:"phase"`
	Progress int          `json:"progress"`
	Message  string       `json:"message"`
	Time     time.Time    `json:"time"`
}

// PhaseStep is one entry of the scan timeline.
type PhaseStep struct {
	Phase    models.Phase
	Duration time.Duration
	Progress int
	Message  string
}

// DefaultTimeline returns the nominal phase sequence.
func DefaultTimeline() []PhaseStep {
	return []PhaseStep{
		{Phase: models.PhaseDetecting, Duration: 1000 * time.Millisecond, Progress: 20, Message: "Detecting text on screen…"},
		{Phase: models.PhaseCapturing, Duration: 900 * time.Millisecond, Progress: 40, Message: "Capturing crisp frame…"},
		{Phase: models.PhaseAnalyzing, Duration: 1400 * time.Millisecond, Progress: 70, Message: "Analyzing OCR results…"},
		{Phase: models.PhaseFetching, Duration: 1600 * time.Millisecond, Progress: 95, Message: "Fetching ratings and reviews…"},
	}
}

// ScaleTimeline returns timeline with every duration multiplied by factor.
func ScaleTimeline(timeline []PhaseStep, factor float64) []PhaseStep {
	out := make([]PhaseStep, len(timeline))
	for i, step := range timeline {
		step.Duration = time.Duration(float64(step.Duration) * factor)
		out[i] = step
	}
	return out
}
