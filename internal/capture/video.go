package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/kdimtricp/popscan/internal/log"
)

// FrameGrabber pulls single frames out of video files with ffmpeg.
type FrameGrabber struct {
	ffmpegPath string
	logger     zerolog.Logger
}

// NewFrameGrabber locates ffmpeg. An empty path searches PATH.
func NewFrameGrabber(ffmpegPath string) (*FrameGrabber, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	logger := xlog.WithComponent("capture")
	logger.Debug().Str("path", resolved).Msg("found ffmpeg")
	return &FrameGrabber{ffmpegPath: resolved, logger: logger}, nil
}

// Grab returns the frame at offset as PNG bytes.
func (g *FrameGrabber) Grab(ctx context.Context, videoPath string, offset time.Duration) ([]byte, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file not accessible: %w", err)
	}
	if offset < 0 {
		offset = 0
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
	cmd := exec.CommandContext(ctx, g.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn().Str("stderr", stderr.String()).Msg("ffmpeg failed")
		return nil, fmt.Errorf("failed to extract frame at %s: %w", offset, err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no frame")
	}
	return stdout.Bytes(), nil
}

// FromVideo captures the frame at offset of the video at path.
func FromVideo(g *FrameGrabber, path string, offset time.Duration) Func {
	return func(ctx context.Context) (string, error) {
		frame, err := g.Grab(ctx, path, offset)
		if err != nil {
			return "", err
		}
		return EncodeDataURL(frame), nil
	}
}
