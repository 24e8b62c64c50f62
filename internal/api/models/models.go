// Package models holds the request and response bodies of the control API.
package models

import "github.com/smazurov/videowall/internal/logging"

// HealthData is the health check body.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData is the build metadata body.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.26.0" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"OS and architecture"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// SlotData describes one grid cell.
type SlotData struct {
	Index           int     `json:"index" example:"0" doc:"Row-major slot index"`
	Row             int     `json:"row" example:"0" doc:"Grid row"`
	Col             int     `json:"col" example:"0" doc:"Grid column"`
	Path            string  `json:"path,omitempty" example:"/videos/clip.mp4" doc:"Source path, empty for an unassigned slot"`
	State           string  `json:"state" example:"running" doc:"Stream state: empty, created, running or stopped"`
	Queued          int     `json:"queued" example:"37" doc:"Frames waiting in the queue"`
	Capacity        int     `json:"capacity" example:"128" doc:"Queue capacity"`
	FrameIntervalMs float64 `json:"frame_interval_ms" example:"33.367" doc:"Presentation interval in milliseconds"`
	Decoded         uint64  `json:"decoded" example:"1200" doc:"Frames decoded"`
	Loops           uint64  `json:"loops" example:"3" doc:"Times the source was rewound"`
	DecodeErrors    uint64  `json:"decode_errors" example:"0" doc:"Decode errors"`
	LastSeq         uint64  `json:"last_seq" example:"112" doc:"Sequence number of the frame on screen"`
}

// WallData is the wall status body.
type WallData struct {
	GridWidth  int        `json:"grid_width" example:"2" doc:"Columns"`
	GridHeight int        `json:"grid_height" example:"2" doc:"Rows"`
	Paused     bool       `json:"paused" example:"false" doc:"Whether playback is paused"`
	Sources    int        `json:"sources" example:"12" doc:"Sources in the catalog"`
	Active     int        `json:"active" example:"4" doc:"Slots with a stream"`
	Slots      []SlotData `json:"slots" doc:"Slots in row-major order"`
}

// WallResponse wraps WallData.
type WallResponse struct {
	Body WallData
}

// PauseData reports the pause state after a pause or resume.
type PauseData struct {
	Paused bool `json:"paused" example:"true" doc:"Whether playback is paused"`
}

// PauseResponse wraps PauseData.
type PauseResponse struct {
	Body PauseData
}

// LogsRequest selects how many recent entries to return.
type LogsRequest struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of entries"`
}

// LogsData is the recent log entries body, oldest first.
type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Recent log entries"`
	Count   int                `json:"count" example:"100" doc:"Entries returned"`
	Total   int                `json:"total" example:"500" doc:"Entries held in the buffer"`
}

// LogsResponse wraps LogsData.
type LogsResponse struct {
	Body LogsData
}
