package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/popscan/internal/metadata"
	"github.com/kdimtricp/popscan/internal/ocr"
	"github.com/kdimtricp/popscan/internal/scan"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	*httptest.Server
	App *App
}

func setupTestServer(t *testing.T, timelineScale float64, rateLimit int) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	manager, err := scan.NewManager(scan.ManagerConfig{
		Scanner:  ocr.NewMock(0),
		Provider: metadata.NewFallback(),
		Timeline: scan.ScaleTimeline(scan.DefaultTimeline(), timelineScale),
		Logger:   &logger,
	})
	require.NoError(t, err)

	app := &App{
		Scans:         manager,
		MaxUploadSize: 1 << 20,
		RateLimit:     rateLimit,
		Logger:        logger,
	}
	server := httptest.NewServer(NewRouter(app))
	t.Cleanup(func() {
		server.Close()
		manager.Close()
	})
	return &testServer{Server: server, App: app}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createMultipartFrame(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("frame", "frame.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (ts *testServer) waitForStatus(t *testing.T, id, status string) scanResponse {
	t.Helper()
	var last scanResponse
	require.Eventually(t, func() bool {
		resp, err := ts.Client().Get(ts.URL + "/api/scans/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&last); err != nil {
			return false
		}
		return string(last.State.Status) == status
	}, 3*time.Second, 10*time.Millisecond)
	return last
}
