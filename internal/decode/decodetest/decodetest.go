// Package decodetest provides a scripted in-memory decoder for tests.
package decodetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/videowall/internal/decode"
	"github.com/smazurov/videowall/internal/frame"
)

// ErrDecode is the error returned for a frame scripted to fail.
var ErrDecode = errors.New("decodetest: corrupt frame")

// Source scripts one fake source.
type Source struct {
	Frames   int           // frames per pass
	Interval time.Duration // reported native interval
	Width    int           // default 4
	Height   int           // default 4
	OpenErr  error
	ResetErr error
	// FailAt makes the FailAt-th frame (1-based) of the first pass fail
	// with ErrDecode.
	FailAt int
	// Gate, when set, must yield a value before each Next returns.
	Gate <-chan struct{}
}

// Decoder opens scripted sources. Unknown paths use the default source.
type Decoder struct {
	mu       sync.Mutex
	def      Source
	sources  map[string]Source
	handles  []*Handle
	openLive atomic.Int64
	maxLive  atomic.Int64
}

// NewDecoder creates a decoder whose unknown paths use def.
func NewDecoder(def Source) *Decoder {
	return &Decoder{def: def, sources: make(map[string]Source)}
}

// Add scripts a specific path.
func (d *Decoder) Add(path string, src Source) {
	d.mu.Lock()
	d.sources[path] = src
	d.mu.Unlock()
}

// Open implements decode.Decoder.
func (d *Decoder) Open(_ context.Context, path string) (decode.Handle, error) {
	d.mu.Lock()
	src, ok := d.sources[path]
	if !ok {
		src = d.def
	}
	d.mu.Unlock()

	if src.OpenErr != nil {
		return nil, src.OpenErr
	}

	h := NewHandle(path, src)
	h.onClose = func() { d.openLive.Add(-1) }

	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()

	live := d.openLive.Add(1)
	for {
		peak := d.maxLive.Load()
		if live <= peak || d.maxLive.CompareAndSwap(peak, live) {
			break
		}
	}
	return h, nil
}

// Handles returns every handle opened so far, in open order.
func (d *Decoder) Handles() []*Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Handle(nil), d.handles...)
}

// OpenHandles returns the number of handles not yet closed.
func (d *Decoder) OpenHandles() int {
	return int(d.openLive.Load())
}

// MaxOpenHandles returns the peak number of simultaneously open handles.
func (d *Decoder) MaxOpenHandles() int {
	return int(d.maxLive.Load())
}

// Handle is a scripted decode.Handle. Counters are safe to read from any
// goroutine.
type Handle struct {
	path    string
	src     Source
	pos     int
	onClose func()

	nexts  atomic.Int64
	resets atomic.Int64
	closes atomic.Int64
}

// NewHandle creates a standalone scripted handle.
func NewHandle(path string, src Source) *Handle {
	if src.Width <= 0 {
		src.Width = 4
	}
	if src.Height <= 0 {
		src.Height = 4
	}
	return &Handle{path: path, src: src}
}

// Next returns the next scripted frame. The first byte of each frame's
// pixels holds its sequence number.
func (h *Handle) Next() (frame.Frame, error) {
	if h.src.Gate != nil {
		<-h.src.Gate
	}
	h.nexts.Add(1)

	if h.pos >= h.src.Frames {
		return frame.Frame{}, decode.ErrEndOfSource
	}
	h.pos++
	if h.pos == h.src.FailAt && h.resets.Load() == 0 {
		return frame.Frame{}, ErrDecode
	}

	pix := make([]byte, h.src.Width*h.src.Height*4)
	pix[0] = byte(h.pos)
	return frame.FromPixels(pix, h.src.Width, h.src.Height, uint64(h.pos)), nil
}

// Reset rewinds to the first frame.
func (h *Handle) Reset() error {
	h.resets.Add(1)
	if h.src.ResetErr != nil {
		return h.src.ResetErr
	}
	h.pos = 0
	return nil
}

// FrameInterval returns the scripted interval.
func (h *Handle) FrameInterval() time.Duration {
	return h.src.Interval
}

// Close marks the handle closed.
func (h *Handle) Close() error {
	if h.closes.Add(1) == 1 && h.onClose != nil {
		h.onClose()
	}
	return nil
}

// Path returns the path the handle was opened for.
func (h *Handle) Path() string { return h.path }

// Nexts returns the number of Next calls.
func (h *Handle) Nexts() int { return int(h.nexts.Load()) }

// Resets returns the number of Reset calls.
func (h *Handle) Resets() int { return int(h.resets.Load()) }

// Closes returns the number of Close calls.
func (h *Handle) Closes() int { return int(h.closes.Load()) }

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool { return h.closes.Load() > 0 }
