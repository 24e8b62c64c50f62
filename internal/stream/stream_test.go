package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/videowall/internal/decode/decodetest"
	"github.com/smazurov/videowall/internal/frame"
)

func streamTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStream(src decodetest.Source, opts Options) (*FrameStream, *decodetest.Handle) {
	h := decodetest.NewHandle("clip.mp4", src)
	opts.Logger = streamTestLogger()
	opts.PollInterval = time.Millisecond
	return New("clip.mp4", h, opts), h
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, s *FrameStream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestQueueBoundAndBackpressure(t *testing.T) {
	s, h := newTestStream(decodetest.Source{Frames: 1000}, Options{Capacity: 4})
	s.Start()
	defer func() {
		s.Stop()
		s.Wait()
	}()

	waitFor(t, time.Second, "full queue", func() bool { return s.Len() == s.Cap() })

	// Nobody reads: the producer must sit at capacity without decoding ahead.
	for range 20 {
		if n := s.Len(); n > 4 {
			t.Fatalf("Len() = %d, exceeds capacity 4", n)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := h.Nexts(); got != 4 {
		t.Errorf("decode calls = %d, want 4", got)
	}
	if got := s.Stats().Decoded; got != 4 {
		t.Errorf("Stats().Decoded = %d, want 4", got)
	}

	// One read frees one slot and allows exactly one more decode.
	if _, err := s.Read(); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	waitFor(t, time.Second, "refill", func() bool { return s.Len() == 4 })
	if got := h.Nexts(); got != 5 {
		t.Errorf("decode calls after one read = %d, want 5", got)
	}
}

func TestFIFOOrder(t *testing.T) {
	s, _ := newTestStream(decodetest.Source{Frames: 10}, Options{Capacity: 3})
	s.Start()
	defer s.Stop()

	for want := uint64(1); want <= 10; want++ {
		f, err := s.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if f.Seq != want {
			t.Fatalf("Seq = %d, want %d", f.Seq, want)
		}
		if f.Kind != frame.KindDecoded {
			t.Errorf("Kind = %v, want %v", f.Kind, frame.KindDecoded)
		}
	}
}

func TestLoopLiveness(t *testing.T) {
	const framesPerPass, passes = 3, 5

	var mu sync.Mutex
	var loopCounts []uint64
	s, h := newTestStream(decodetest.Source{Frames: framesPerPass}, Options{
		Capacity: 2,
		Loop:     true,
		Hooks: Hooks{OnLoop: func(_ string, n uint64) {
			mu.Lock()
			loopCounts = append(loopCounts, n)
			mu.Unlock()
		}},
	})
	s.Start()

	for i := range framesPerPass * passes {
		f, err := s.Read()
		if err != nil {
			t.Fatalf("Read() #%d error = %v", i, err)
		}
		if want := uint64(i%framesPerPass + 1); f.Seq != want {
			t.Fatalf("Read() #%d Seq = %d, want %d", i, f.Seq, want)
		}
		if st := s.State(); st != StateRunning {
			t.Fatalf("State() = %v after %d frames, want %v", st, i+1, StateRunning)
		}
	}

	if got := h.Resets(); got < passes-1 {
		t.Errorf("Resets() = %d, want at least %d", got, passes-1)
	}
	mu.Lock()
	for i, n := range loopCounts {
		if n != uint64(i+1) {
			t.Errorf("OnLoop count #%d = %d, want %d", i, n, i+1)
		}
	}
	mu.Unlock()

	s.Stop()
	waitDone(t, s)
	if st := s.State(); st != StateStopped {
		t.Errorf("State() = %v, want %v", st, StateStopped)
	}
	if !h.Closed() {
		t.Error("handle not closed after Stop")
	}
}

func TestTerminalWithoutLoop(t *testing.T) {
	s, h := newTestStream(decodetest.Source{Frames: 3}, Options{Capacity: 8})
	s.Start()
	waitDone(t, s)

	if st := s.State(); st != StateStopped {
		t.Errorf("State() = %v, want %v", st, StateStopped)
	}
	if !h.Closed() {
		t.Error("handle not closed at end of source")
	}

	// Frames queued before the end are still delivered.
	for want := uint64(1); want <= 3; want++ {
		if !s.More() {
			t.Fatalf("More() = false with frame %d pending", want)
		}
		f, err := s.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if f.Seq != want {
			t.Errorf("Seq = %d, want %d", f.Seq, want)
		}
	}

	if s.More() {
		t.Error("More() = true after drain")
	}
	if _, err := s.Read(); !errors.Is(err, ErrStreamStopped) {
		t.Errorf("Read() after drain error = %v, want %v", err, ErrStreamStopped)
	}
	if got := h.Nexts(); got != 4 {
		t.Errorf("decode calls = %d, want 4", got)
	}
	if got := h.Resets(); got != 0 {
		t.Errorf("Resets() = %d, want 0", got)
	}
}

func TestDecodeErrorEndsPass(t *testing.T) {
	tests := []struct {
		name      string
		loop      bool
		wantSeqs  []uint64
		wantState State
	}{
		{"loop rewinds", true, []uint64{1, 1, 2, 3, 4}, StateRunning},
		{"no loop stops", false, []uint64{1}, StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var decodeErrs []error
			s, _ := newTestStream(decodetest.Source{Frames: 4, FailAt: 2}, Options{
				Capacity: 16,
				Loop:     tt.loop,
				Hooks: Hooks{OnDecodeError: func(_ string, err error) {
					mu.Lock()
					decodeErrs = append(decodeErrs, err)
					mu.Unlock()
				}},
			})
			s.Start()
			defer s.Stop()

			for _, want := range tt.wantSeqs {
				f, err := s.Read()
				if err != nil {
					t.Fatalf("Read() error = %v", err)
				}
				if f.Seq != want {
					t.Fatalf("Seq = %d, want %d", f.Seq, want)
				}
			}
			if tt.wantState == StateStopped {
				waitDone(t, s)
			}
			if st := s.State(); st != tt.wantState {
				t.Errorf("State() = %v, want %v", st, tt.wantState)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(decodeErrs) != 1 || !errors.Is(decodeErrs[0], decodetest.ErrDecode) {
				t.Errorf("OnDecodeError got %v, want [%v]", decodeErrs, decodetest.ErrDecode)
			}
			if got := s.Stats().DecodeErrors; got != 1 {
				t.Errorf("Stats().DecodeErrors = %d, want 1", got)
			}
		})
	}
}

func TestResetFailureStops(t *testing.T) {
	s, h := newTestStream(decodetest.Source{Frames: 2, ResetErr: errors.New("seek failed")},
		Options{Capacity: 8, Loop: true})
	s.Start()
	waitDone(t, s)

	if got := h.Resets(); got != 1 {
		t.Errorf("Resets() = %d, want 1", got)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestEmptySourceGivesUp(t *testing.T) {
	s, h := newTestStream(decodetest.Source{Frames: 0}, Options{Loop: true})
	s.Start()
	waitDone(t, s)

	if got := h.Resets(); got != maxEmptyPasses-1 {
		t.Errorf("Resets() = %d, want %d", got, maxEmptyPasses-1)
	}
}

func TestStopWhileQueueFull(t *testing.T) {
	s, h := newTestStream(decodetest.Source{Frames: 100}, Options{Capacity: 1, Loop: true})
	s.Start()
	waitFor(t, time.Second, "full queue", func() bool { return s.Len() == 1 })

	s.Stop()
	waitDone(t, s)
	if !h.Closed() {
		t.Error("handle not closed")
	}
	if got := h.Closes(); got != 1 {
		t.Errorf("Close calls = %d, want 1", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, h := newTestStream(decodetest.Source{Frames: 100}, Options{Capacity: 2, Loop: true})
	s.Start()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
	s.Stop()
	waitDone(t, s)
	s.Stop()

	if got := h.Closes(); got != 1 {
		t.Errorf("Close calls = %d, want 1", got)
	}
}

func TestStopBeforeStart(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	s, h := newTestStream(decodetest.Source{Frames: 5}, Options{
		Hooks: Hooks{OnStateChange: func(_ string, from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		}},
	})

	s.Stop()
	waitDone(t, s)
	s.Start()

	if st := s.State(); st != StateStopped {
		t.Errorf("State() = %v, want %v", st, StateStopped)
	}
	if !h.Closed() {
		t.Error("handle not closed")
	}
	if got := h.Nexts(); got != 0 {
		t.Errorf("decode calls = %d, want 0", got)
	}
	if _, err := s.Read(); !errors.Is(err, ErrStreamStopped) {
		t.Errorf("Read() error = %v, want %v", err, ErrStreamStopped)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != "created->stopped" {
		t.Errorf("transitions = %v, want [created->stopped]", transitions)
	}
}

func TestStateTransitions(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	s, _ := newTestStream(decodetest.Source{Frames: 1}, Options{
		Hooks: Hooks{OnStateChange: func(_ string, from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		}},
	})

	if st := s.State(); st != StateCreated {
		t.Errorf("State() = %v, want %v", st, StateCreated)
	}
	s.Start()
	s.Start() // second call only logs
	waitDone(t, s)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"created->running", "running->stopped"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestReadContextCancel(t *testing.T) {
	gate := make(chan struct{})
	s, _ := newTestStream(decodetest.Source{Frames: 5, Gate: gate}, Options{})
	s.Start()
	defer func() {
		s.Stop()
		close(gate)
		s.Wait()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.ReadContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ReadContext() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestReadUnblocksOnStop(t *testing.T) {
	gate := make(chan struct{})
	s, _ := newTestStream(decodetest.Source{Frames: 5, Gate: gate}, Options{})
	s.Start()

	errc := make(chan error, 1)
	go func() {
		_, err := s.Read()
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.Stop()
	// The producer is parked inside Next; let it return so it can observe Stop.
	close(gate)

	select {
	case err := <-errc:
		// The in-flight frame may be delivered before the stop is observed.
		if err != nil && !errors.Is(err, ErrStreamStopped) {
			t.Errorf("Read() error = %v, want nil or %v", err, ErrStreamStopped)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read() still blocked after Stop")
	}
	waitDone(t, s)
}

func TestFrameIntervalFallback(t *testing.T) {
	tests := []struct {
		name     string
		native   time.Duration
		fallback time.Duration
		want     time.Duration
	}{
		{"native rate", 40 * time.Millisecond, 0, 40 * time.Millisecond},
		{"unknown rate uses default", 0, 0, DefaultFallbackInterval},
		{"unknown rate uses configured", 0, 100 * time.Millisecond, 100 * time.Millisecond},
		{"negative rate", -time.Second, 0, DefaultFallbackInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStream(decodetest.Source{Interval: tt.native}, Options{FallbackInterval: tt.fallback})
			defer s.Stop()
			if got := s.FrameInterval(); got != tt.want {
				t.Errorf("FrameInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	s, _ := newTestStream(decodetest.Source{}, Options{})
	defer s.Stop()

	if got := s.Cap(); got != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", got, DefaultCapacity)
	}
	if s.Loop() {
		t.Error("Loop() = true, want false")
	}
	if got := s.Path(); got != "clip.mp4" {
		t.Errorf("Path() = %q, want %q", got, "clip.mp4")
	}
}
