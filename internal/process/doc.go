// Package process supervises child processes whose stdout carries data.
//
// A Process starts a command in its own process group, hands its stdout to
// the caller, and forwards stderr lines to a logger through an optional
// LogParser. Stop sends SIGINT, waits for a graceful exit, and falls back to
// SIGKILL after a timeout:
//
//	p := process.NewProcess("slot-3", []string{"ffmpeg", "-i", path, "pipe:1"}, logger)
//	p.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
//	stdout, err := p.Start()
//	...
//	exitCode := p.Stop()
package process
