// Package compositor assembles the wall canvas. Each tick it advances every
// slot by at most one frame, respecting the slot stream's frame interval,
// fits slot frames into uniform cells and draws them row-major.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/smazurov/videowall/internal/frame"
	"github.com/smazurov/videowall/internal/logging"
	"github.com/smazurov/videowall/internal/metrics"
	"github.com/smazurov/videowall/internal/wall"
)

// ErrSinkClosed is returned by a Sink that will not accept further frames.
// Run treats it as a normal end.
var ErrSinkClosed = errors.New("sink closed")

// Fitter center-crops and scales a frame to exactly w×h.
type Fitter interface {
	Fit(src frame.Frame, w, h int) frame.Frame
}

// Sink displays a canvas. The canvas is reused by the next tick, so the
// sink must copy what it keeps.
type Sink interface {
	Present(canvas *image.RGBA) error
}

// SlotSource provides the slots to compose.
type SlotSource interface {
	Slots() []*wall.Slot
	Paused() bool
}

// Config configures a Compositor.
type Config struct {
	Geometry    Geometry
	Fitter      Fitter
	Sink        Sink // only needed by Run
	Pool        SlotSource
	Now         func() time.Time // defaults to time.Now
	Placeholder color.RGBA
	Logger      logging.Logger
}

type cell struct {
	frame   frame.Frame // fitted
	version uint64
	drawn   bool
}

// Compositor draws the wall. Tick and Run must be called from one goroutine.
type Compositor struct {
	cfg         Config
	slots       []*wall.Slot
	canvas      *image.RGBA
	cells       []cell
	placeholder frame.Frame
	logger      logging.Logger
}

// New creates a compositor. The pool must have one slot per grid cell.
func New(cfg Config) (*Compositor, error) {
	if cfg.Pool == nil || cfg.Fitter == nil {
		return nil, fmt.Errorf("compositor requires a pool and a fitter")
	}
	if cfg.Geometry.CellWidth < 1 || cfg.Geometry.CellHeight < 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, cfg.Geometry)
	}
	slots := cfg.Pool.Slots()
	if len(slots) != cfg.Geometry.Cells() {
		return nil, fmt.Errorf("%w: pool has %d slots, grid has %d cells",
			ErrInvalidGeometry, len(slots), cfg.Geometry.Cells())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger("compositor")
	}

	w, h := cfg.Geometry.CanvasSize()
	return &Compositor{
		cfg:         cfg,
		slots:       slots,
		canvas:      image.NewRGBA(image.Rect(0, 0, w, h)),
		cells:       make([]cell, len(slots)),
		placeholder: frame.Placeholder(cfg.Geometry.CellWidth, cfg.Geometry.CellHeight, cfg.Placeholder),
		logger:      cfg.Logger,
	}, nil
}

// Geometry returns the layout.
func (c *Compositor) Geometry() Geometry {
	return c.cfg.Geometry
}

// Cell returns the fitted frame last drawn for a slot.
func (c *Compositor) Cell(index int) frame.Frame {
	return c.cells[index].frame
}

// Tick runs one render step and returns the canvas. The returned image is
// owned by the compositor and overwritten by the next Tick.
func (c *Compositor) Tick() *image.RGBA {
	now := c.cfg.Now()
	paused := c.cfg.Pool.Paused()
	g := c.cfg.Geometry

	for i, s := range c.slots {
		if !paused && s.Advance(now) {
			metrics.IncFramesPresented(i)
		}
		if st := s.Stream(); st != nil {
			metrics.SetQueueDepth(i, st.Len())
		}

		f, version := s.Frame()
		cc := &c.cells[i]
		if cc.drawn && cc.version == version {
			continue
		}

		fitted := c.placeholder
		if f.Valid() {
			fitted = c.cfg.Fitter.Fit(f, g.CellWidth, g.CellHeight)
		}
		draw.Draw(c.canvas, g.CellRect(i), fitted.Image, fitted.Image.Bounds().Min, draw.Src)
		*cc = cell{frame: fitted, version: version, drawn: true}
	}
	return c.canvas
}

// Run ticks every refresh interval and presents each canvas to the sink
// until ctx is done or the sink reports ErrSinkClosed.
func (c *Compositor) Run(ctx context.Context, refresh time.Duration) error {
	if c.cfg.Sink == nil {
		return fmt.Errorf("compositor has no sink")
	}
	if refresh <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", refresh)
	}

	c.logger.Info("Render loop started", "geometry", c.cfg.Geometry.String(), "refresh", refresh)
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Render loop stopped")
			return nil
		case <-ticker.C:
		}

		start := time.Now()
		canvas := c.Tick()
		metrics.ObserveTick(time.Since(start))

		if err := c.cfg.Sink.Present(canvas); err != nil {
			if errors.Is(err, ErrSinkClosed) {
				c.logger.Info("Display closed, render loop stopped")
				return nil
			}
			c.logger.Warn("Failed to present canvas", "error", err)
		}
	}
}
