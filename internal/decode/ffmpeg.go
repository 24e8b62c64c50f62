package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/smazurov/videowall/internal/ffmpeg"
	"github.com/smazurov/videowall/internal/frame"
	"github.com/smazurov/videowall/internal/logging"
	"github.com/smazurov/videowall/internal/process"
)

// FFmpegOptions configures the ffmpeg decoder.
type FFmpegOptions struct {
	InputOptions []ffmpeg.OptionType
	Threads      int
	MaxWidth     int    // downscale wider sources to this width (0 = native)
	LogLevel     string // ffmpeg -loglevel, default "warning"
	ProbeTimeout time.Duration
	StopTimeout  time.Duration // graceful stop before SIGKILL
	Logger       logging.Logger
}

// FFmpeg decodes sources by running ffmpeg as a child process that writes
// rawvideo RGBA frames to a pipe. Source geometry and frame rate come from
// ffprobe.
type FFmpeg struct {
	opts FFmpegOptions
}

// NewFFmpeg creates an ffmpeg-backed decoder.
func NewFFmpeg(opts FFmpegOptions) *FFmpeg {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("decode")
	}
	return &FFmpeg{opts: opts}
}

// Probe reads the size and frame rate of the first video stream.
func (d *FFmpeg) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.ProbeTimeout)
	defer cancel()

	args := ffmpeg.BuildProbeArgs(path)
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return ffmpeg.ProbeResult{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, exitErr.Stderr)
		}
		return ffmpeg.ProbeResult{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ffmpeg.ParseProbe(out)
}

// Open probes the source and starts decoding it.
func (d *FFmpeg) Open(ctx context.Context, path string) (Handle, error) {
	info, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	width, height := ffmpeg.ScaledSize(info.Width, info.Height, d.opts.MaxWidth)
	params := &ffmpeg.DecodeParams{
		SourcePath: path,
		Options:    d.opts.InputOptions,
		Threads:    d.opts.Threads,
		LogLevel:   d.opts.LogLevel,
	}
	if width != info.Width || height != info.Height {
		params.ScaleWidth, params.ScaleHeight = width, height
	}

	args, err := ffmpeg.BuildDecodeArgs(params)
	if err != nil {
		return nil, err
	}

	h := &ffmpegHandle{
		id:          filepath.Base(path),
		args:        args,
		width:       width,
		height:      height,
		interval:    info.FrameInterval(),
		stopTimeout: d.opts.StopTimeout,
		logger:      d.opts.Logger,
	}
	if err := h.start(); err != nil {
		return nil, err
	}

	d.opts.Logger.Debug("Opened source", "path", path,
		"width", width, "height", height, "fps", info.FPS)
	return h, nil
}

type ffmpegHandle struct {
	id          string
	args        []string
	width       int
	height      int
	interval    time.Duration
	stopTimeout time.Duration
	logger      logging.Logger

	proc   *process.Process
	stdout io.Reader
	seq    uint64
}

func (h *ffmpegHandle) start() error {
	proc := process.NewProcess(h.id, h.args, h.logger)
	proc.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
	proc.SetTimeouts(h.stopTimeout, h.stopTimeout)

	stdout, err := proc.Start()
	if err != nil {
		return fmt.Errorf("failed to start decoder for %s: %w", h.id, err)
	}
	h.proc = proc
	h.stdout = stdout
	h.seq = 0
	return nil
}

func (h *ffmpegHandle) Next() (frame.Frame, error) {
	if h.proc == nil {
		return frame.Frame{}, ErrEndOfSource
	}

	// Each frame gets its own buffer: ownership passes to the queue.
	pix := make([]byte, h.width*h.height*4)
	if _, err := io.ReadFull(h.stdout, pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if code := h.proc.Wait(); code != 0 {
				return frame.Frame{}, fmt.Errorf("ffmpeg exited with code %d", code)
			}
			return frame.Frame{}, ErrEndOfSource
		}
		return frame.Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}

	h.seq++
	return frame.FromPixels(pix, h.width, h.height, h.seq), nil
}

func (h *ffmpegHandle) Reset() error {
	h.stop()
	return h.start()
}

func (h *ffmpegHandle) FrameInterval() time.Duration {
	return h.interval
}

func (h *ffmpegHandle) Close() error {
	h.stop()
	return nil
}

func (h *ffmpegHandle) stop() {
	if h.proc == nil {
		return
	}
	if code := h.proc.Stop(); code == process.ExitKilled {
		h.logger.Warn("Decoder had to be killed", "source", h.id)
	}
	h.proc = nil
	h.stdout = nil
}
