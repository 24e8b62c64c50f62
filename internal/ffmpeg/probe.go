package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProbeResult holds the properties of a source's first video stream.
type ProbeResult struct {
	Width  int
	Height int
	FPS    float64
}

// FrameInterval returns 1/FPS, or 0 when the rate is unknown.
func (p ProbeResult) FrameInterval() time.Duration {
	if p.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / p.FPS)
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// ParseProbe decodes ffprobe JSON output produced by BuildProbeArgs.
// r_frame_rate is preferred; avg_frame_rate is the fallback.
func ParseProbe(data []byte) (ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return ProbeResult{}, fmt.Errorf("no video streams found")
	}

	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return ProbeResult{}, fmt.Errorf("invalid video size %dx%d", s.Width, s.Height)
	}

	fps, err := ParseRate(s.RFrameRate)
	if err != nil || fps <= 0 {
		fps, err = ParseRate(s.AvgFrameRate)
	}
	if err != nil {
		fps = 0
	}

	return ProbeResult{Width: s.Width, Height: s.Height, FPS: fps}, nil
}

// ParseRate parses an ffmpeg rational ("30000/1001") or decimal ("25") rate.
func ParseRate(rate string) (float64, error) {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0, fmt.Errorf("empty rate")
	}

	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	if !found {
		return n, nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid rate %q: zero denominator", rate)
	}
	return n / d, nil
}
