// Package storage keeps captured frames on local disk just long enough for
// external tools to read them.
package storage

import (
	"io"
)

type FrameInfo struct {
	ContentType string
	Size        int64
}

type Storage interface {
	// SaveFrame stores r under a fresh name and returns that name.
	SaveFrame(r io.Reader, info FrameInfo) (string, error)
	// Path resolves a stored name to a filesystem path.
	Path(name string) (string, error)
	OpenFrame(name string) (io.ReadSeekCloser, error)
	DeleteFrame(name string) error
}
