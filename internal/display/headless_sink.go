package display

import (
	"context"
	"image"
)

// Headless is an in-memory display. It keeps the latest canvas and a frame
// count, and runs until its context ends or Quit is dispatched.
type Headless struct {
	buf        frameBuffer
	dispatcher *dispatcher
	quit       chan struct{}
}

// NewHeadless creates an in-memory display.
func NewHeadless(opts Options) *Headless {
	return &Headless{
		dispatcher: newDispatcher(opts),
		quit:       make(chan struct{}),
	}
}

// Present copies the canvas.
func (m *Headless) Present(canvas *image.RGBA) error {
	return m.buf.store(canvas)
}

// Run blocks until ctx is done or a quit action is dispatched.
func (m *Headless) Run(ctx context.Context) error {
	defer m.buf.close()
	select {
	case <-ctx.Done():
	case <-m.quit:
	}
	m.dispatcher.wg.Wait()
	return nil
}

// Press simulates a key action.
func (m *Headless) Press(a Action) {
	if m.dispatcher.Do(a) {
		select {
		case <-m.quit:
		default:
			close(m.quit)
		}
	}
}

// Frames returns the number of canvases presented.
func (m *Headless) Frames() uint64 {
	m.buf.mu.RLock()
	defer m.buf.mu.RUnlock()
	return m.buf.frames
}

// Last returns a copy of the latest canvas, or nil before the first.
func (m *Headless) Last() *image.RGBA {
	m.buf.mu.RLock()
	defer m.buf.mu.RUnlock()
	if m.buf.frames == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, m.buf.width, m.buf.height))
	copy(img.Pix, m.buf.pix)
	return img
}

func newDispatcher(opts Options) *dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger()
	}
	return &dispatcher{actions: opts.Actions, logger: logger}
}
