package wall

import (
	"sync"
	"time"

	"github.com/smazurov/videowall/internal/frame"
	"github.com/smazurov/videowall/internal/stream"
)

// Slot is one grid cell. It owns at most one stream, replaced on reshuffle
// and never mutated in place, plus the last frame fetched from it.
type Slot struct {
	index int
	row   int
	col   int

	mu        sync.Mutex
	stream    *stream.FrameStream
	path      string
	lastFrame frame.Frame
	lastFetch time.Time
	version   uint64 // bumped whenever lastFrame changes
}

// SlotStatus is a snapshot of a slot for the API.
type SlotStatus struct {
	Index         int           `json:"index"`
	Row           int           `json:"row"`
	Col           int           `json:"col"`
	Path          string        `json:"path,omitempty"`
	State         string        `json:"state"`
	Queued        int           `json:"queued"`
	Capacity      int           `json:"capacity"`
	FrameInterval time.Duration `json:"frame_interval"`
	Decoded       uint64        `json:"decoded"`
	Loops         uint64        `json:"loops"`
	DecodeErrors  uint64        `json:"decode_errors"`
	LastSeq       uint64        `json:"last_seq"`
}

func newSlot(index, gridWidth int) *Slot {
	return &Slot{index: index, row: index / gridWidth, col: index % gridWidth}
}

// Index returns the row-major position.
func (s *Slot) Index() int { return s.index }

// Row returns the grid row.
func (s *Slot) Row() int { return s.row }

// Col returns the grid column.
func (s *Slot) Col() int { return s.col }

// Stream returns the active stream, or nil for an empty slot.
func (s *Slot) Stream() *stream.FrameStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Path returns the source path of the active stream.
func (s *Slot) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Advance fetches one frame when one is queued and the stream's frame
// interval has elapsed since the previous frame's deadline. It reports
// whether the slot's frame changed. Advance is called from the render loop
// only.
//
// Deadlines advance by whole intervals so the tick period does not round
// the frame rate down. A slot more than one interval behind restarts its
// schedule at now instead of bursting.
func (s *Slot) Advance(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stream
	if st == nil || !st.More() {
		return false
	}
	interval := st.FrameInterval()
	if !s.lastFetch.IsZero() && now.Sub(s.lastFetch) < interval {
		return false
	}

	// More was true and the render loop is the only reader: no blocking.
	f, err := st.Read()
	if err != nil {
		return false
	}
	s.lastFrame = f
	next := s.lastFetch.Add(interval)
	if s.lastFetch.IsZero() || now.Sub(next) >= interval {
		next = now
	}
	s.lastFetch = next
	s.version++
	return true
}

// Frame returns the last fetched frame and its version. The frame is
// invalid until the active stream has delivered one.
func (s *Slot) Frame() (frame.Frame, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame, s.version
}

// Status returns a snapshot of the slot.
func (s *Slot) Status() SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SlotStatus{
		Index:   s.index,
		Row:     s.row,
		Col:     s.col,
		Path:    s.path,
		State:   "empty",
		LastSeq: s.lastFrame.Seq,
	}
	if s.stream != nil {
		stats := s.stream.Stats()
		st.State = s.stream.State().String()
		st.Queued = stats.Queued
		st.Capacity = stats.Capacity
		st.FrameInterval = s.stream.FrameInterval()
		st.Decoded = stats.Decoded
		st.Loops = stats.Loops
		st.DecodeErrors = stats.DecodeErrors
	}
	return st
}

func (s *Slot) bind(path string, st *stream.FrameStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = st
	s.path = path
	s.lastFrame = frame.Frame{}
	s.lastFetch = time.Time{}
	s.version++
}

// unbind empties the slot and returns the stream it held.
func (s *Slot) unbind() *stream.FrameStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stream
	s.stream = nil
	s.path = ""
	s.lastFrame = frame.Frame{}
	s.lastFetch = time.Time{}
	s.version++
	return st
}
