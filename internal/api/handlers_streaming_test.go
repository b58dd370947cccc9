package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/popscan/internal/scan"
)

type sseMessage struct {
	event string
	data  string
}

func readSSE(scanner *bufio.Scanner) (sseMessage, bool) {
	var msg sseMessage
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if msg.event != "" {
				return msg, true
			}
		case strings.HasPrefix(line, "event: "):
			msg.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			msg.data = strings.TrimPrefix(line, "data: ")
		}
	}
	return msg, false
}

func TestScanEventsStream(t *testing.T) {
	ts := setupTestServer(t, 0, 0)

	session, err := ts.App.Scans.Create("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/scans/"+session.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	lines := bufio.NewScanner(resp.Body)

	first, ok := readSSE(lines)
	require.True(t, ok)
	assert.Equal(t, scan.UpdateState, first.event)
	var initial scan.State
	require.NoError(t, json.Unmarshal([]byte(first.data), &initial))
	assert.Equal(t, "idle", string(initial.Status))

	start := ts.do(t, http.MethodPost, "/api/scans/"+session.ID+"/start", nil, "")
	require.Equal(t, http.StatusAccepted, start.StatusCode)

	var messages []string
	for {
		msg, ok := readSSE(lines)
		require.True(t, ok, "stream ended before success")
		if msg.event != scan.UpdateEvent {
			continue
		}
		var ev scan.Event
		require.NoError(t, json.Unmarshal([]byte(msg.data), &ev))
		messages = append(messages, ev.Message)
		if ev.Type == scan.EventSuccess {
			break
		}
	}

	assert.Equal(t, []string{
		"Detecting text on screen…",
		"Capturing crisp frame…",
		"Analyzing OCR results…",
		"Fetching ratings and reviews…",
		"Scan complete! Found 3 titles",
	}, messages)
}

func TestScanEventsStreamEndsWhenSessionDeleted(t *testing.T) {
	ts := setupTestServer(t, 0, 0)

	session, err := ts.App.Scans.Create("")
	require.NoError(t, err)

	resp := ts.do(t, http.MethodGet, "/api/scans/"+session.ID+"/events", nil, "")
	lines := bufio.NewScanner(resp.Body)
	_, ok := readSSE(lines)
	require.True(t, ok)

	require.NoError(t, ts.App.Scans.Delete(session.ID))

	_, ok = readSSE(lines)
	assert.False(t, ok)
}
