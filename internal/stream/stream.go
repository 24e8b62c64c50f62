// Package stream implements FrameStream: one decode source feeding a bounded
// frame queue from a background producer goroutine.
//
// The producer decodes ahead of the consumer until the queue holds Capacity
// frames, then waits for room. A full queue is the throttle, not an error.
// At end of source the stream either rewinds (Loop) or stops. Stop is
// cooperative: the producer observes it once per iteration, closes the
// decode handle and exits.
//
//	s := stream.New(path, handle, stream.Options{Loop: true})
//	s.Start()
//	defer s.Wait()
//	defer s.Stop()
//	for s.More() {
//		f, err := s.Read()
//		...
//	}
package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/smazurov/videowall/internal/decode"
	"github.com/smazurov/videowall/internal/frame"
	"github.com/smazurov/videowall/internal/logging"
)

// ErrStreamStopped is returned by Read once the stream is stopped and drained.
var ErrStreamStopped = errors.New("stream stopped")

// Defaults applied by New.
const (
	DefaultCapacity         = 128
	DefaultFallbackInterval = time.Second / 30
	DefaultPollInterval     = 5 * time.Millisecond
)

const (
	// maxEmptyPasses stops a looping stream whose source keeps ending
	// without producing a frame.
	maxEmptyPasses = 3
)

// Hooks are optional callbacks invoked from the producer goroutine (or from
// Stop for a stream that never started). They must not block.
type Hooks struct {
	OnLoop        func(path string, loops uint64)
	OnDecodeError func(path string, err error)
	OnStateChange func(path string, from, to State)
}

// Options configures a FrameStream.
type Options struct {
	Capacity         int           // queue size, default 128
	Loop             bool          // rewind at end of source
	FallbackInterval time.Duration // used when the source reports no rate
	PollInterval     time.Duration // re-check period while the queue is full
	Logger           logging.Logger
	Hooks            Hooks
}

// Stats is a point-in-time view of a stream's counters.
type Stats struct {
	Queued       int
	Capacity     int
	Decoded      uint64
	Loops        uint64
	DecodeErrors uint64
}

// FrameStream owns one decode handle, a bounded queue and the producer
// goroutine between them.
type FrameStream struct {
	path     string
	handle   decode.Handle
	queue    chan frame.Frame
	interval time.Duration
	loop     bool
	poll     time.Duration
	logger   logging.Logger
	hooks    Hooks

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32

	decoded      atomic.Uint64
	loops        atomic.Uint64
	decodeErrors atomic.Uint64
}

// New creates a stream over an open handle. The stream owns the handle from
// here on and closes it when it stops.
func New(path string, h decode.Handle, opts Options) *FrameStream {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.FallbackInterval <= 0 {
		opts.FallbackInterval = DefaultFallbackInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("stream")
	}

	interval := h.FrameInterval()
	if interval <= 0 {
		opts.Logger.Debug("Source reports no frame rate, using fallback",
			"path", path, "interval", opts.FallbackInterval)
		interval = opts.FallbackInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FrameStream{
		path:     path,
		handle:   h,
		queue:    make(chan frame.Frame, opts.Capacity),
		interval: interval,
		loop:     opts.Loop,
		poll:     opts.PollInterval,
		logger:   opts.Logger,
		hooks:    opts.Hooks,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start spawns the producer goroutine. Calling Start more than once is a
// caller bug; later calls only log.
func (s *FrameStream) Start() {
	if !s.transition(StateCreated, StateRunning) {
		s.logger.Error("Start called on a stream that is not new",
			"path", s.path, "state", s.State())
		return
	}
	go s.run()
}

// Stop asks the producer to exit. It never blocks and may be called any
// number of times from any goroutine. Use Wait to join the producer.
func (s *FrameStream) Stop() {
	s.cancel()

	// Never started: nobody else will release the handle.
	if s.transition(StateCreated, StateStopped) {
		go func() {
			s.closeHandle()
			close(s.done)
		}()
	}
}

// Wait blocks until the producer has exited and the handle is closed.
func (s *FrameStream) Wait() {
	<-s.done
}

// Done is closed once the stream is stopped and its handle closed.
func (s *FrameStream) Done() <-chan struct{} {
	return s.done
}

// Read removes and returns the oldest queued frame, blocking while the queue
// is empty. Queued frames are still returned after the stream stops;
// ErrStreamStopped is returned once it is stopped and drained.
func (s *FrameStream) Read() (frame.Frame, error) {
	return s.ReadContext(context.Background())
}

// ReadContext is Read with cancellation.
func (s *FrameStream) ReadContext(ctx context.Context) (frame.Frame, error) {
	select {
	case f := <-s.queue:
		return f, nil
	default:
	}

	select {
	case f := <-s.queue:
		return f, nil
	case <-s.done:
		select {
		case f := <-s.queue:
			return f, nil
		default:
			return frame.Frame{}, ErrStreamStopped
		}
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

// More reports whether a frame is queued. It never blocks.
func (s *FrameStream) More() bool {
	return len(s.queue) > 0
}

// Len returns the number of queued frames.
func (s *FrameStream) Len() int {
	return len(s.queue)
}

// Cap returns the queue capacity.
func (s *FrameStream) Cap() int {
	return cap(s.queue)
}

// Path returns the source path.
func (s *FrameStream) Path() string {
	return s.path
}

// FrameInterval returns the pacing interval; always positive.
func (s *FrameStream) FrameInterval() time.Duration {
	return s.interval
}

// Loop reports whether the stream rewinds at end of source.
func (s *FrameStream) Loop() bool {
	return s.loop
}

// State returns the current lifecycle state.
func (s *FrameStream) State() State {
	return State(s.state.Load())
}

// Stats returns the stream's counters.
func (s *FrameStream) Stats() Stats {
	return Stats{
		Queued:       len(s.queue),
		Capacity:     cap(s.queue),
		Decoded:      s.decoded.Load(),
		Loops:        s.loops.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}

func (s *FrameStream) transition(from, to State) bool {
	if !s.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(s.path, from, to)
	}
	return true
}

func (s *FrameStream) closeHandle() {
	if err := s.handle.Close(); err != nil {
		s.logger.Warn("Failed to close decode handle", "path", s.path, "error", err)
	}
}

// run is the producer loop. It is the only goroutine touching the handle.
func (s *FrameStream) run() {
	defer func() {
		s.cancel()
		s.closeHandle()
		s.transition(StateRunning, StateStopped)
		close(s.done)
		s.logger.Debug("Stream stopped", "path", s.path,
			"decoded", s.decoded.Load(), "loops", s.loops.Load())
	}()

	poll := time.NewTimer(s.poll)
	defer poll.Stop()

	var passFrames, emptyPasses int
	for {
		if s.ctx.Err() != nil {
			return
		}

		if len(s.queue) == cap(s.queue) {
			poll.Reset(s.poll)
			select {
			case <-s.ctx.Done():
				return
			case <-poll.C:
			}
			continue
		}

		f, err := s.handle.Next()
		if err != nil {
			if passFrames == 0 {
				emptyPasses++
			} else {
				emptyPasses = 0
			}
			passFrames = 0
			if !s.endOfPass(err, emptyPasses) {
				return
			}
			continue
		}
		passFrames++
		s.decoded.Add(1)

		// May block if the consumer has not made room: backpressure.
		select {
		case s.queue <- f:
		case <-s.ctx.Done():
			return
		}
	}
}

// endOfPass handles end of source or a decode failure and reports whether
// the producer should keep going.
func (s *FrameStream) endOfPass(err error, emptyPasses int) bool {
	if errors.Is(err, decode.ErrEndOfSource) {
		s.logger.Debug("End of source", "path", s.path, "loop", s.loop)
	} else {
		// A failed frame ends the pass like end of source does.
		s.decodeErrors.Add(1)
		s.logger.Warn("Decode failed, ending pass", "path", s.path, "error", err)
		if s.hooks.OnDecodeError != nil {
			s.hooks.OnDecodeError(s.path, err)
		}
	}

	if !s.loop {
		return false
	}
	if emptyPasses >= maxEmptyPasses {
		s.logger.Warn("Source produced no frames, giving up", "path", s.path, "passes", emptyPasses)
		return false
	}

	if err := s.handle.Reset(); err != nil {
		s.logger.Warn("Failed to rewind source", "path", s.path, "error", err)
		return false
	}

	n := s.loops.Add(1)
	if s.hooks.OnLoop != nil {
		s.hooks.OnLoop(s.path, n)
	}
	return true
}
