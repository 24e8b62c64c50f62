// Package wall binds video streams to grid slots. A Pool owns the slots,
// assigns sources to them in random order, and stops every stream before a
// reshuffle or teardown so that at most one decode handle is live per slot.
package wall

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smazurov/videowall/internal/decode"
	"github.com/smazurov/videowall/internal/events"
	"github.com/smazurov/videowall/internal/logging"
	"github.com/smazurov/videowall/internal/metrics"
	"github.com/smazurov/videowall/internal/stream"
)

const (
	defaultOpenConcurrency = 4
	defaultWaitWarn        = 5 * time.Second
)

// PoolOptions configures a Pool.
type PoolOptions struct {
	GridWidth  int
	GridHeight int
	Decoder    decode.Decoder
	Stream     stream.Options // Hooks are set by the pool

	Rand            *rand.Rand // nil = time-seeded
	Logger          logging.Logger
	Bus             *events.Bus // optional
	OpenConcurrency int         // parallel Open calls during assignment
	// WaitWarnInterval is how often a warning is logged while waiting for a
	// stream to stop. There is no hard timeout.
	WaitWarnInterval time.Duration
	OnStateChange    func(slot int, path string, from, to stream.State)
}

// Pool owns the grid's slots and the streams bound to them.
type Pool struct {
	opts   PoolOptions
	slots  []*Slot
	logger logging.Logger
	bus    *events.Bus
	rng    *rand.Rand // guarded by opMu

	// opMu serializes Assign, Reshuffle and Teardown.
	opMu   sync.Mutex
	closed bool

	catalogMu sync.RWMutex
	catalog   []string

	paused atomic.Bool
}

// NewPool creates a pool with GridWidth×GridHeight empty slots.
func NewPool(opts PoolOptions) (*Pool, error) {
	if opts.GridWidth < 1 || opts.GridHeight < 1 {
		return nil, NewError(ErrCodeInvalidGrid,
			fmt.Sprintf("grid %dx%d must be at least 1x1", opts.GridWidth, opts.GridHeight), nil)
	}
	if opts.Decoder == nil {
		return nil, NewError(ErrCodeNoDecoder, "a decoder is required", nil)
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("wall")
	}
	if opts.OpenConcurrency <= 0 {
		opts.OpenConcurrency = defaultOpenConcurrency
	}
	if opts.WaitWarnInterval <= 0 {
		opts.WaitWarnInterval = defaultWaitWarn
	}

	n := opts.GridWidth * opts.GridHeight
	slots := make([]*Slot, n)
	for i := range slots {
		slots[i] = newSlot(i, opts.GridWidth)
	}

	return &Pool{
		opts:   opts,
		slots:  slots,
		logger: opts.Logger,
		bus:    opts.Bus,
		rng:    opts.Rand,
	}, nil
}

// Grid returns the grid dimensions.
func (p *Pool) Grid() (width, height int) {
	return p.opts.GridWidth, p.opts.GridHeight
}

// Slots returns the slots in row-major order.
func (p *Pool) Slots() []*Slot {
	return append([]*Slot(nil), p.slots...)
}

// Status returns a snapshot of every slot.
func (p *Pool) Status() []SlotStatus {
	out := make([]SlotStatus, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.Status()
	}
	return out
}

// SetCatalog replaces the set of available sources. It takes effect on the
// next reshuffle.
func (p *Pool) SetCatalog(paths []string) {
	p.catalogMu.Lock()
	p.catalog = append([]string(nil), paths...)
	p.catalogMu.Unlock()
	metrics.SetCatalogSources(len(paths))
}

// Catalog returns the current set of available sources.
func (p *Pool) Catalog() []string {
	p.catalogMu.RLock()
	defer p.catalogMu.RUnlock()
	return append([]string(nil), p.catalog...)
}

// Assign binds a random permutation of paths to the slots, up to
// min(len(paths), len(slots)), and starts the streams. Slots left over stay
// empty, as do slots whose source fails to open. All slots must be empty.
// It returns the number of slots that received a stream.
func (p *Pool) Assign(ctx context.Context, paths []string) (int, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if p.closed {
		return 0, NewError(ErrCodePoolClosed, "pool has been torn down", nil)
	}
	for _, s := range p.slots {
		if s.Stream() != nil {
			return 0, NewError(ErrCodeSlotsBusy,
				fmt.Sprintf("slot %d still has a stream", s.index), nil)
		}
	}
	return p.assignLocked(ctx, paths), nil
}

// Reshuffle stops every stream, waits until each has stopped and released
// its handle, then assigns the current catalog anew. Calls are serialized.
// After Teardown it does nothing.
func (p *Pool) Reshuffle(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if p.closed {
		p.logger.Debug("Reshuffle ignored, pool closed")
		return nil
	}

	start := time.Now()
	p.stopAllLocked()
	catalog := p.Catalog()
	assigned := p.assignLocked(ctx, catalog)

	metrics.IncReshuffles()
	p.publish(events.ReshuffleEvent{
		Slots:     len(p.slots),
		Assigned:  assigned,
		Sources:   len(catalog),
		Timestamp: timestamp(),
	})
	p.logger.Info("Reshuffled wall", "assigned", assigned, "slots", len(p.slots),
		"sources", len(catalog), "duration", time.Since(start))
	return ctx.Err()
}

// Teardown stops every stream with the same guarantee as Reshuffle and
// closes the pool. It is idempotent.
func (p *Pool) Teardown() {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.stopAllLocked()
	p.logger.Info("Pool torn down")
}

// Pause freezes every slot on its current frame.
func (p *Pool) Pause() {
	p.setPaused(true)
}

// Resume continues playback after Pause.
func (p *Pool) Resume() {
	p.setPaused(false)
}

// TogglePause flips the pause state and returns the new state.
func (p *Pool) TogglePause() bool {
	for {
		old := p.paused.Load()
		if p.paused.CompareAndSwap(old, !old) {
			p.pauseChanged(!old)
			return !old
		}
	}
}

// Paused reports whether playback is paused.
func (p *Pool) Paused() bool {
	return p.paused.Load()
}

func (p *Pool) setPaused(paused bool) {
	if p.paused.Swap(paused) != paused {
		p.pauseChanged(paused)
	}
}

func (p *Pool) pauseChanged(paused bool) {
	metrics.SetPaused(paused)
	p.publish(events.PauseChangedEvent{Paused: paused, Timestamp: timestamp()})
	p.logger.Info("Playback pause changed", "paused", paused)
}

type opened struct {
	path   string
	handle decode.Handle
}

// assignLocked opens sources concurrently, then binds and starts them in
// slot order. Caller holds opMu and all slots are empty.
func (p *Pool) assignLocked(ctx context.Context, paths []string) int {
	n := min(len(paths), len(p.slots))
	if n == 0 {
		metrics.SetActiveStreams(0)
		p.logger.Warn("No sources to assign", "slots", len(p.slots))
		return 0
	}

	perm := p.rng.Perm(len(paths))
	results := make([]opened, n)

	var g errgroup.Group
	g.SetLimit(p.opts.OpenConcurrency)
	for i := range n {
		path := paths[perm[i]]
		g.Go(func() error {
			h, err := p.opts.Decoder.Open(ctx, path)
			if err != nil {
				// A source that cannot be opened leaves its slot empty.
				p.logger.Warn("Failed to open source", "slot", i, "path", path, "error", err)
				metrics.IncOpenFailures()
				p.publish(events.SourceOpenFailedEvent{
					Slot:      i,
					Path:      path,
					Error:     NewError(ErrCodeOpenFailed, path, err).Error(),
					Timestamp: timestamp(),
				})
				return nil
			}
			results[i] = opened{path: path, handle: h}
			return nil
		})
	}
	_ = g.Wait()

	assigned := 0
	for i, r := range results {
		if r.handle == nil {
			continue
		}
		st := stream.New(r.path, r.handle, p.streamOptions(p.slots[i]))
		p.slots[i].bind(r.path, st)
		st.Start()
		assigned++
		p.logger.Debug("Assigned source", "slot", i, "path", r.path,
			"interval", st.FrameInterval())
	}

	metrics.SetActiveStreams(assigned)
	return assigned
}

// stopAllLocked stops every stream, then waits for each producer to exit.
func (p *Pool) stopAllLocked() {
	var stopping []*stream.FrameStream
	for _, s := range p.slots {
		if st := s.unbind(); st != nil {
			st.Stop()
			stopping = append(stopping, st)
		}
		metrics.ResetSlot(s.index)
	}

	ticker := time.NewTicker(p.opts.WaitWarnInterval)
	defer ticker.Stop()
	for _, st := range stopping {
	wait:
		for {
			select {
			case <-st.Done():
				break wait
			case <-ticker.C:
				p.logger.Warn("Still waiting for stream to stop", "path", st.Path())
			}
		}
	}

	metrics.SetActiveStreams(0)
	if len(stopping) > 0 {
		p.logger.Debug("Stopped streams", "count", len(stopping))
	}
}

func (p *Pool) streamOptions(s *Slot) stream.Options {
	opts := p.opts.Stream
	idx, row, col := s.index, s.row, s.col
	opts.Hooks = stream.Hooks{
		OnStateChange: func(path string, from, to stream.State) {
			p.publish(events.SlotStateChangedEvent{
				Slot:      idx,
				Row:       row,
				Col:       col,
				Path:      path,
				From:      from.String(),
				State:     to.String(),
				Timestamp: timestamp(),
			})
			if p.opts.OnStateChange != nil {
				p.opts.OnStateChange(idx, path, from, to)
			}
		},
		OnLoop: func(path string, loops uint64) {
			metrics.IncLoops(idx)
			p.publish(events.StreamLoopedEvent{Slot: idx, Path: path, Loops: loops, Timestamp: timestamp()})
		},
		OnDecodeError: func(path string, err error) {
			metrics.IncDecodeErrors(idx)
			p.publish(events.DecodeErrorEvent{Slot: idx, Path: path, Error: err.Error(), Timestamp: timestamp()})
		},
	}
	return opts
}

func (p *Pool) publish(ev events.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
