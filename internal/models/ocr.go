package models

import "time"

type CandidateTitle struct {
	Title       string  `json:"title"`
	Confidence  float64 `json:"confidence"`
	ReleaseYear string  `json:"release_year,omitempty"`
}

type BoundingBox struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RecognizedTextSegment is one line of OCR output. Candidates are ordered by
// plausibility, the first one being the most likely title.
type RecognizedTextSegment struct {
	RawText     string           `json:"raw_text"`
	BoundingBox *BoundingBox     `json:"bounding_box,omitempty"`
	Candidates  []CandidateTitle `json:"candidates"`
}

// LookupContext bundles candidates that are tried together, in order, during a
// single resolution pass.
type LookupContext struct {
	Candidates []CandidateTitle `json:"candidates"`
}

type ScanRequest struct {
	FrameDataURL string
	DemoMode     bool
}

type OCRResult struct {
	Segments   []RecognizedTextSegment `json:"segments"`
	FullText   string                  `json:"full_text"`
	CapturedAt time.Time               `json:"captured_at"`
	Provider   string                  `json:"provider"`
}

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseDetecting Phase = "detecting"
	PhaseCapturing Phase = "capturing"
	PhaseAnalyzing Phase = "analyzing"
	PhaseFetching  Phase = "fetching"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusScanning Status = "scanning"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)
