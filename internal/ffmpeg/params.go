package ffmpeg

// DecodeParams describes one ffmpeg decode of a local file to raw RGBA frames.
type DecodeParams struct {
	// Input
	SourcePath string
	Options    []OptionType // input behavior flags (genpts, ignore_err, ...)
	Threads    int          // decoder threads (0 = ffmpeg default)

	// Output size. When both are set the decoder output is scaled to exactly
	// ScaleWidth×ScaleHeight (see ScaledSize); otherwise native size is kept.
	ScaleWidth  int
	ScaleHeight int

	// LogLevel is passed as -loglevel level+<LogLevel> so the log parser can
	// read the level prefix. Defaults to "warning".
	LogLevel string
}
