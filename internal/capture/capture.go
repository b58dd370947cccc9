// Package capture produces frames for a scan as image data URLs.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data URL")

// Func captures one frame. An empty string means no frame is available.
type Func func(ctx context.Context) (string, error)

// EncodeDataURL wraps image bytes in a base64 data URL, sniffing the MIME
// type from the content.
func EncodeDataURL(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL.
func DecodeDataURL(dataURL string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data scheme", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	contentType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}
	return contentType, data, nil
}

// FromBytes always returns the same frame. Nil or empty data yields no frame.
func FromBytes(data []byte) Func {
	url := EncodeDataURL(data)
	return func(context.Context) (string, error) {
		return url, nil
	}
}

// FromFile reads the image at path each time a frame is captured.
func FromFile(path string) Func {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read frame: %w", err)
		}
		return EncodeDataURL(data), nil
	}
}
