//go:build !headless

package display

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/smazurov/videowall/internal/logging"
)

// keyBindings maps keys to actions.
var keyBindings = []struct {
	key    ebiten.Key
	action Action
}{
	{ebiten.KeySpace, ActionTogglePause},
	{ebiten.KeyR, ActionReshuffle},
	{ebiten.KeyQ, ActionQuit},
	{ebiten.KeyEscape, ActionQuit},
	{ebiten.KeyF11, ActionToggleFullscreen},
}

// Window is an ebiten window showing the latest canvas, scaled to the window.
type Window struct {
	buf        frameBuffer
	dispatcher *dispatcher
	logger     logging.Logger

	title      string
	canvasW    int
	canvasH    int
	windowW    int
	windowH    int
	fullscreen bool

	image *ebiten.Image
	ctx   context.Context
	quit  atomic.Bool
}

// New creates a window for a canvasW×canvasH canvas.
func New(opts Options, canvasW, canvasH int) (Display, error) {
	if canvasW <= 0 || canvasH <= 0 {
		return nil, errors.New("canvas size must be positive")
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = canvasW, canvasH
	}
	d := newDispatcher(opts)
	return &Window{
		dispatcher: d,
		logger:     d.logger,
		title:      opts.Title,
		canvasW:    canvasW,
		canvasH:    canvasH,
		windowW:    opts.WindowWidth,
		windowH:    opts.WindowHeight,
		fullscreen: opts.Fullscreen,
	}, nil
}

// PrimaryDisplaySize returns the size of the monitor the window opens on.
func PrimaryDisplaySize() (width, height int) {
	return ebiten.Monitor().Size()
}

// Present copies the canvas for the next Draw.
func (w *Window) Present(canvas *image.RGBA) error {
	return w.buf.store(canvas)
}

// Run opens the window and blocks until it is closed, a quit key is
// pressed, or ctx is done. On macOS it must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	w.ctx = ctx
	defer w.buf.close()

	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowSize(w.windowW, w.windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetFullscreen(w.fullscreen)

	w.logger.Info("Opening window", "title", w.title, "width", w.windowW, "height", w.windowH)
	err := ebiten.RunGame(w)
	w.dispatcher.wg.Wait()
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update handles input. It implements ebiten.Game.
func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() || w.quit.Load() {
		return ebiten.Termination
	}
	if w.ctx != nil && w.ctx.Err() != nil {
		return ebiten.Termination
	}

	for _, b := range keyBindings {
		if !inpututil.IsKeyJustPressed(b.key) {
			continue
		}
		if b.action == ActionToggleFullscreen {
			w.fullscreen = !w.fullscreen
			ebiten.SetFullscreen(w.fullscreen)
			if !w.fullscreen {
				ebiten.SetWindowSize(w.windowW, w.windowH)
			}
			continue
		}
		if w.dispatcher.Do(b.action) {
			w.quit.Store(true)
			return ebiten.Termination
		}
	}
	return nil
}

// Draw uploads the latest canvas. It implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	w.buf.mu.RLock()
	if w.buf.frames > 0 && w.buf.width == w.canvasW && w.buf.height == w.canvasH {
		if w.image == nil {
			w.image = ebiten.NewImage(w.canvasW, w.canvasH)
		}
		w.image.WritePixels(w.buf.pix)
	}
	w.buf.mu.RUnlock()

	if w.image != nil {
		screen.DrawImage(w.image, nil)
	}
	if w.dispatcher.paused() {
		drawPausedLabel(screen)
	}
}

// Layout keeps the logical screen at canvas size; ebiten scales it to the window.
func (w *Window) Layout(_, _ int) (int, int) {
	return w.canvasW, w.canvasH
}

func drawPausedLabel(screen *ebiten.Image) {
	const label = "PAUSED  (space to resume)"
	face := basicfont.Face7x13
	bounds := text.BoundString(face, label)

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(2, 2)
	opts.GeoM.Translate(16, float64(16+2*bounds.Dy()))
	opts.ColorScale.ScaleWithColor(color.RGBA{255, 255, 255, 230})
	text.DrawWithOptions(screen, label, face, opts)
}

func defaultLogger() logging.Logger {
	return logging.GetLogger("display")
}
