package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/popscan/internal/capture"
	xlog "github.com/kdimtricp/popscan/internal/log"
	"github.com/kdimtricp/popscan/internal/scan"
)

type scanResponse struct {
	ID    string     `json:"id"`
	State scan.State `json:"state"`
}

// CreateScanHandler creates a session and starts scanning it. The request may
// carry an image in the multipart field "frame"; without one the session runs
// in demo mode.
func (app *App) CreateScanHandler(w http.ResponseWriter, r *http.Request) {
	frame, err := app.readFrame(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := app.Scans.Create(frame)
	if err != nil {
		app.Logger.Error().Err(err).Msg("creating scan session")
		writeError(w, http.StatusServiceUnavailable, "unable to create scan session")
		return
	}
	if _, err := app.Scans.StartScan(session.ID); err != nil {
		app.Logger.Error().Err(err).Str(xlog.FieldSessionID, session.ID).Msg("starting scan")
	}

	writeJSON(w, http.StatusAccepted, scanResponse{ID: session.ID, State: session.State()})
}

func (app *App) readFrame(w http.ResponseWriter, r *http.Request) (string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return "", nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.maxUploadSize())
	if err := r.ParseMultipartForm(app.maxUploadSize()); err != nil {
		return "", errors.New("frame too large or malformed form")
	}

	file, _, err := r.FormFile("frame")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("reading frame: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("reading frame: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("frame must be an image, got %s", ct)
	}
	return capture.EncodeDataURL(data), nil
}

func (app *App) session(w http.ResponseWriter, r *http.Request) (*scan.Session, bool) {
	session, ok := app.Scans.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

func (app *App) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := app.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{ID: session.ID, State: session.State()})
}

func (app *App) StartScanHandler(w http.ResponseWriter, r *http.Request) {
	session, err := app.Scans.StartScan(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, scan.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, scan.ErrScanInProgress):
		writeError(w, http.StatusConflict, "scan already in progress")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "unable to start scan")
	default:
		writeJSON(w, http.StatusAccepted, scanResponse{ID: session.ID, State: session.State()})
	}
}

func (app *App) ResetScanHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := app.session(w, r)
	if !ok {
		return
	}
	session.Reset()
	writeJSON(w, http.StatusOK, scanResponse{ID: session.ID, State: session.State()})
}

func (app *App) DeleteScanHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Scans.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScanEventsHandler streams session updates as server-sent events. The
// current state is sent first.
func (app *App) ScanEventsHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := app.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, release := session.Subscribe()
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := writeEvent(w, scan.UpdateState, session.State()); err != nil {
		return
	}
	flusher.Flush()

	clientGone := r.Context().Done()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, update.Type, update.Data); err != nil {
				app.Logger.Debug().Err(err).Str(xlog.FieldSessionID, session.ID).Msg("stream write failed")
				return
			}
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
