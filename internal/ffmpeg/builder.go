package ffmpeg

import (
	"fmt"
	"strconv"
)

// Binary names; overridable for systems with non-standard installs.
var (
	FFmpegBinary  = "ffmpeg"
	FFprobeBinary = "ffprobe"
)

// BuildDecodeArgs returns the argv for decoding a file to rawvideo RGBA on stdout.
func BuildDecodeArgs(p *DecodeParams) ([]string, error) {
	if p.SourcePath == "" {
		return nil, fmt.Errorf("source path is required")
	}
	if err := ValidateOptions(p.Options); err != nil {
		return nil, err
	}

	logLevel := p.LogLevel
	if logLevel == "" {
		logLevel = "warning"
	}

	args := []string{FFmpegBinary, "-hide_banner", "-nostdin", "-loglevel", "level+" + logLevel}
	for _, key := range p.Options {
		args = append(args, GetOptionByKey(key).Args...)
	}
	if p.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(p.Threads))
	}
	args = append(args, "-i", p.SourcePath, "-an", "-sn")
	if p.ScaleWidth > 0 && p.ScaleHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", p.ScaleWidth, p.ScaleHeight))
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1")
	return args, nil
}

// BuildProbeArgs returns the argv for reading the first video stream's
// geometry and frame rate as JSON.
func BuildProbeArgs(path string) []string {
	return []string{
		FFprobeBinary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate",
		"-of", "json",
		path,
	}
}

// ScaledSize returns the aspect-preserving size, with an even height, for a
// source of w×h downscaled to scaleWidth. A scaleWidth of 0, or one not
// smaller than w, leaves the size unchanged.
func ScaledSize(w, h, scaleWidth int) (int, int) {
	if scaleWidth <= 0 || scaleWidth >= w || w == 0 {
		return w, h
	}
	outH := int(float64(h)*float64(scaleWidth)/float64(w)/2+0.5) * 2
	if outH < 2 {
		outH = 2
	}
	return scaleWidth, outH
}
