// Package decode defines the collaborator that turns a media file into a
// sequence of RGBA frames, and an ffmpeg-backed implementation of it.
package decode

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/videowall/internal/frame"
)

// ErrEndOfSource is returned by Handle.Next when the source has no more frames.
var ErrEndOfSource = errors.New("end of source")

// Decoder opens sources for decoding.
type Decoder interface {
	Open(ctx context.Context, path string) (Handle, error)
}

// Handle is an open source. A Handle is used from one goroutine at a time.
type Handle interface {
	// Next decodes the next frame. It returns ErrEndOfSource at the end.
	Next() (frame.Frame, error)
	// Reset rewinds to the first frame.
	Reset() error
	// FrameInterval is the native time between frames; 0 when unknown.
	FrameInterval() time.Duration
	Close() error
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, path string) (Handle, error)

// Open calls f.
func (f DecoderFunc) Open(ctx context.Context, path string) (Handle, error) {
	return f(ctx, path)
}
