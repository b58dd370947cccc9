package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDataURLRoundTrip(t *testing.T) {
	url := EncodeDataURL(pngHeader)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	contentType, data, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngHeader, data)
}

func TestDecodeDataURLErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no scheme", "image/png;base64,AAAA"},
		{"no payload", "data:image/png;base64"},
		{"not base64", "data:text/plain,hello"},
		{"bad base64", "data:image/png;base64,***"},
		{"empty payload", "data:image/png;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeDataURL(tt.in)
			assert.ErrorIs(t, err, ErrInvalidDataURL)
		})
	}
}

func TestFromBytesEmptyMeansNoFrame(t *testing.T) {
	url, err := FromBytes(nil)(context.Background())
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	url, err := FromFile(path)(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.png"))(context.Background())
	assert.Error(t, err)
}

// fakeFFmpeg installs a script that records its arguments and prints a PNG
// header, standing in for ffmpeg.
func fakeFFmpeg(t *testing.T) (binary, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	binary = filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nprintf '\\211PNG\\r\\n\\032\\n'\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, argsFile
}

func TestFromVideo(t *testing.T) {
	binary, argsFile := fakeFFmpeg(t)
	grabber, err := NewFrameGrabber(binary)
	require.NoError(t, err)

	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("video"), 0o644))

	url, err := FromVideo(grabber, video, 1500*time.Millisecond)(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-ss 1.500 -i "+video)
}

func TestFromVideoMissingFile(t *testing.T) {
	binary, _ := fakeFFmpeg(t)
	grabber, err := NewFrameGrabber(binary)
	require.NoError(t, err)

	_, err = grabber.Grab(context.Background(), "/does/not/exist.mp4", 0)
	assert.Error(t, err)
}

func TestNewFrameGrabberMissingBinary(t *testing.T) {
	_, err := NewFrameGrabber(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
