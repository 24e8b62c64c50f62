package config

import (
	"fmt"
	"slices"
	"strings"
)

// Options are the wall's settings. humacli turns each field into a flag;
// LoadConfig layers the TOML file and environment underneath.
type Options struct {
	Config string `help:"Path to TOML config file" default:"videowall.toml"`

	Capacity       int    `help:"Frame queue capacity per stream" default:"128" toml:"wall.capacity" env:"CAPACITY"`
	Loop           bool   `help:"Loop sources at end of stream" default:"true" toml:"wall.loop" env:"LOOP"`
	RefreshRate    int    `help:"Render ticks per second" default:"60" toml:"wall.refresh_rate" env:"REFRESH_RATE"`
	Scaler         string `help:"Scaler: nearest, bilinear, approx-bilinear, catmullrom" default:"approx-bilinear" toml:"wall.scaler" env:"SCALER"`
	Extensions     string `help:"Comma-separated source file extensions" default:".mp4,.webm" toml:"wall.extensions" env:"EXTENSIONS"`
	Seed           int    `help:"Shuffle seed, 0 picks one at random" default:"0" toml:"wall.seed" env:"SEED"`
	Fullscreen     bool   `help:"Start fullscreen" default:"false" toml:"wall.fullscreen" env:"FULLSCREEN"`
	WatchCatalog   bool   `help:"Rescan the root directory when files change" default:"true" toml:"wall.watch_catalog" env:"WATCH_CATALOG"`
	MaxDecodeWidth int    `help:"Downscale decoded frames wider than this, 0 disables" default:"1280" toml:"decode.max_width" env:"MAX_DECODE_WIDTH"`
	DecodeThreads  int    `help:"ffmpeg decode threads per stream, 0 lets ffmpeg pick" default:"0" toml:"decode.threads" env:"DECODE_THREADS"`
	InputOptions   string `help:"Comma-separated ffmpeg input flags: genpts, igndts, ignore_err, discardcorrupt, low_delay" default:"" toml:"decode.input_options" env:"INPUT_OPTIONS"`

	APIListen string `help:"Control API listen address, empty disables" default:"" toml:"api.listen" env:"API_LISTEN"`

	LoggingLevel  string `help:"Log level: debug, info, warn, error" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Log format: text, json" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

// Validate checks ranges after loading.
func (o *Options) Validate() error {
	if o.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", o.Capacity)
	}
	if o.RefreshRate < 1 || o.RefreshRate > 1000 {
		return fmt.Errorf("refresh rate must be between 1 and 1000, got %d", o.RefreshRate)
	}
	if o.MaxDecodeWidth < 0 {
		return fmt.Errorf("max decode width must not be negative, got %d", o.MaxDecodeWidth)
	}
	if o.DecodeThreads < 0 {
		return fmt.Errorf("decode threads must not be negative, got %d", o.DecodeThreads)
	}
	if len(o.NormalizedExtensions()) == 0 {
		return fmt.Errorf("at least one source extension is required")
	}
	switch o.LoggingFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", o.LoggingFormat)
	}
	return nil
}

// NormalizedExtensions returns the extensions lower-cased with a leading dot,
// deduplicated in order. "MP4", ".mp4" and "*.mp4" all become ".mp4".
func (o *Options) NormalizedExtensions() []string {
	parts := strings.Split(o.Extensions, ",")
	out := make([]string, 0, len(parts))
	for _, ext := range parts {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ext), "*")))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	return out
}
