package events

// Event type constants for kelindar/event.
const (
	TypeSlotStateChanged uint32 = iota + 1
	TypeSourceOpenFailed
	TypeStreamLooped
	TypeDecodeError
	TypeReshuffle
	TypePauseChanged
	TypeCatalogChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SlotStateChangedEvent is published when the stream bound to a slot changes
// lifecycle state.
type SlotStateChangedEvent struct {
	Slot      int    `json:"slot" example:"3" doc:"Row-major slot index"`
	Row       int    `json:"row" example:"1" doc:"Grid row"`
	Col       int    `json:"col" example:"1" doc:"Grid column"`
	Path      string `json:"path" example:"/videos/clip.mp4" doc:"Source path"`
	From      string `json:"from" example:"created" doc:"Previous stream state"`
	State     string `json:"state" example:"running" doc:"New stream state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SlotStateChangedEvent.
func (e SlotStateChangedEvent) Type() uint32 { return TypeSlotStateChanged }

// SourceOpenFailedEvent is published when a source cannot be opened during
// assignment. The slot stays empty.
type SourceOpenFailedEvent struct {
	Slot      int    `json:"slot" example:"2" doc:"Row-major slot index"`
	Path      string `json:"path" example:"/videos/broken.mp4" doc:"Source path"`
	Error     string `json:"error" example:"ffprobe: exit status 1" doc:"Open error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SourceOpenFailedEvent.
func (e SourceOpenFailedEvent) Type() uint32 { return TypeSourceOpenFailed }

// StreamLoopedEvent is published each time a looping stream rewinds.
type StreamLoopedEvent struct {
	Slot      int    `json:"slot" example:"0" doc:"Row-major slot index"`
	Path      string `json:"path" example:"/videos/clip.mp4" doc:"Source path"`
	Loops     uint64 `json:"loops" example:"4" doc:"Rewinds so far"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamLoopedEvent.
func (e StreamLoopedEvent) Type() uint32 { return TypeStreamLooped }

// DecodeErrorEvent is published when a frame fails to decode.
type DecodeErrorEvent struct {
	Slot      int    `json:"slot" example:"1" doc:"Row-major slot index"`
	Path      string `json:"path" example:"/videos/clip.mp4" doc:"Source path"`
	Error     string `json:"error" example:"ffmpeg exited with code 1" doc:"Decode error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DecodeErrorEvent.
func (e DecodeErrorEvent) Type() uint32 { return TypeDecodeError }

// ReshuffleEvent is published after the wall has been reassigned.
type ReshuffleEvent struct {
	Slots     int    `json:"slots" example:"4" doc:"Number of grid slots"`
	Assigned  int    `json:"assigned" example:"3" doc:"Slots that received a stream"`
	Sources   int    `json:"sources" example:"12" doc:"Sources in the catalog"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ReshuffleEvent.
func (e ReshuffleEvent) Type() uint32 { return TypeReshuffle }

// PauseChangedEvent is published when playback is paused or resumed.
type PauseChangedEvent struct {
	Paused    bool   `json:"paused" example:"true" doc:"Whether playback is paused"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PauseChangedEvent.
func (e PauseChangedEvent) Type() uint32 { return TypePauseChanged }

// CatalogChangedEvent is published when the source directory is rescanned.
type CatalogChangedEvent struct {
	Root      string `json:"root" example:"/videos" doc:"Source directory"`
	Sources   int    `json:"sources" example:"12" doc:"Number of matching sources"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CatalogChangedEvent.
func (e CatalogChangedEvent) Type() uint32 { return TypeCatalogChanged }
