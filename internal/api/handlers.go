// Package api serves the scan HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/candidates"
	"github.com/kdimtricp/popscan/internal/models"
	"github.com/kdimtricp/popscan/internal/scan"
)

const defaultCandidateConfidence = 0.9

type App struct {
	Scans         *scan.Manager
	MaxUploadSize int64
	// RateLimit caps POST requests per client and minute; zero disables it.
	RateLimit int
	Logger    zerolog.Logger
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type candidatesRequest struct {
	Text string `json:"text"`
	// Confidence is the OCR confidence of the text in [0,1].
	Confidence *float64 `json:"confidence,omitempty"`
}

type candidatesResponse struct {
	Segments []models.RecognizedTextSegment `json:"segments"`
	Contexts []models.LookupContext         `json:"contexts"`
}

// CandidatesHandler turns raw on-screen text into title candidates and the
// lookup contexts a scan would resolve.
func (app *App) CandidatesHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.maxUploadSize())

	var req candidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is empty")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	confidence := defaultCandidateConfidence
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	if confidence < 0 || confidence > 1 {
		writeError(w, http.StatusBadRequest, "confidence must be between 0 and 1")
		return
	}

	var lines []candidates.Line
	for _, text := range strings.Split(req.Text, "\n") {
		lines = append(lines, candidates.Line{Text: text, Confidence: confidence * 100})
	}
	segments := candidates.SegmentsFromLines(lines)

	writeJSON(w, http.StatusOK, candidatesResponse{
		Segments: segments,
		Contexts: candidates.BuildLookupContexts(segments),
	})
}

func (app *App) maxUploadSize() int64 {
	if app.MaxUploadSize > 0 {
		return app.MaxUploadSize
	}
	return 10 << 20
}
