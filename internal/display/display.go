// Package display shows the wall canvas. The default build opens an ebiten
// window; building with -tags headless swaps in an in-memory sink so the
// wall can run on machines without a GPU or display server.
package display

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/smazurov/videowall/internal/compositor"
	"github.com/smazurov/videowall/internal/logging"
)

// DefaultTitle is the window title.
const DefaultTitle = "Video Wall"

// Display is a compositor sink with its own event loop.
type Display interface {
	compositor.Sink
	// Run blocks until the user quits or ctx is done.
	Run(ctx context.Context) error
}

// Options configures a display.
type Options struct {
	Title        string
	WindowWidth  int // 0 = canvas width
	WindowHeight int // 0 = canvas height
	Fullscreen   bool
	Actions      Actions
	Logger       logging.Logger
}

// Action is a user command bound to a key.
type Action int

// User actions.
const (
	ActionNone Action = iota
	ActionTogglePause
	ActionReshuffle
	ActionQuit
	ActionToggleFullscreen
)

func (a Action) String() string {
	switch a {
	case ActionTogglePause:
		return "toggle-pause"
	case ActionReshuffle:
		return "reshuffle"
	case ActionQuit:
		return "quit"
	case ActionToggleFullscreen:
		return "toggle-fullscreen"
	default:
		return "none"
	}
}

// Actions are the callbacks behind the key bindings. Nil callbacks are
// ignored.
type Actions struct {
	TogglePause func() bool
	Reshuffle   func()
	Quit        func()
	Paused      func() bool // read by the pause overlay
}

// dispatcher runs actions without blocking the caller's event loop.
type dispatcher struct {
	actions     Actions
	logger      logging.Logger
	reshuffling atomic.Bool
	wg          sync.WaitGroup
}

// Do runs a. Reshuffle runs in the background and repeated requests are
// dropped while one is in flight. It returns true for ActionQuit.
func (d *dispatcher) Do(a Action) bool {
	if a != ActionNone {
		d.logger.Debug("Key action", "action", a.String())
	}
	switch a {
	case ActionTogglePause:
		if d.actions.TogglePause != nil {
			d.actions.TogglePause()
		}
	case ActionReshuffle:
		if d.actions.Reshuffle == nil || !d.reshuffling.CompareAndSwap(false, true) {
			return false
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.reshuffling.Store(false)
			d.actions.Reshuffle()
		}()
	case ActionQuit:
		if d.actions.Quit != nil {
			d.actions.Quit()
		}
		return true
	}
	return false
}

func (d *dispatcher) paused() bool {
	return d.actions.Paused != nil && d.actions.Paused()
}

// frameBuffer holds the latest canvas for the display loop.
type frameBuffer struct {
	mu     sync.RWMutex
	pix    []byte
	width  int
	height int
	frames uint64
	closed bool
}

// store copies canvas into the buffer.
func (b *frameBuffer) store(canvas *image.RGBA) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return compositor.ErrSinkClosed
	}

	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	if len(b.pix) != w*h*4 {
		b.pix = make([]byte, w*h*4)
	}
	b.width, b.height = w, h

	if canvas.Stride == w*4 {
		copy(b.pix, canvas.Pix[:w*h*4])
	} else {
		for y := range h {
			row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+w*4]
			copy(b.pix[y*w*4:], row)
		}
	}
	b.frames++
	return nil
}

func (b *frameBuffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
