package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/popscan/internal/models"
)

// runCLI executes the root command in an empty working directory with a
// mock-only configuration.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("MOVIE_PROVIDER", "mock")
	t.Setenv("OCR_PROVIDER", "mock")
	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("SCAN_TIMELINE_SCALE", "0")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScanJSON(t *testing.T) {
	out, err := runCLI(t, "scan", "--json")
	require.NoError(t, err)

	var results []models.MediaTitle
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "The Last of Us", results[0].Title)
}

func TestScanTable(t *testing.T) {
	out, err := runCLI(t, "scan", "--progress")
	require.NoError(t, err)

	assert.Contains(t, out, "Detecting text on screen…")
	assert.Contains(t, out, "Scan complete! Found 3 titles")
	assert.Contains(t, out, "Oppenheimer")
	assert.Contains(t, out, "Series")
}

func TestScanImage(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "frame.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	out, err := runCLI(t, "scan", "--json", "--image", image)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
}

func TestScanRejectsMissingImage(t *testing.T) {
	_, err := runCLI(t, "scan", "--image", filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "image")
}

func TestScanRejectsImageAndVideo(t *testing.T) {
	_, err := runCLI(t, "scan", "--image", "a.png", "--video", "b.mp4")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestCandidatesCommand(t *testing.T) {
	out, err := runCLI(t, "candidates", "Now Streaming The Last of Us", "Oppenheimer")
	require.NoError(t, err)

	assert.Contains(t, out, "The Last of Us")
	assert.NotContains(t, strings.SplitN(out, "First lookup context", 2)[1], "Streaming")
	assert.Contains(t, out, "First lookup context: The Last of Us Oppenheimer")
}

func TestCandidatesRejectsConfidence(t *testing.T) {
	_, err := runCLI(t, "candidates", "--confidence", "2", "Dune")
	assert.ErrorContains(t, err, "--confidence")
}

func TestCheckCommand(t *testing.T) {
	t.Setenv("TESSERACT_PATH", "definitely-not-tesseract")

	out, err := runCLI(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Metadata")
	assert.Contains(t, out, "demo catalog")
	assert.Contains(t, out, "missing")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "3")
	assert.Empty(t, renderTable(nil, nil, nil))
}
