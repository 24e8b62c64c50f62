// Package logging provides structured logging with per-module log levels.
//
// The wall's goroutines (one producer per stream, the render loop, the API)
// all log through module loggers obtained from GetLogger:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"stream": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("wall").With("slot", 3)
//	logger.Info("Stream assigned", "path", path)
//
// Records go to stdout (text or JSON), to the systemd journal when it is
// reachable, and to an in-memory ring buffer served by the control API.
//
// Journal records carry the identifier "videowall" and upper-cased
// structured fields:
//
//	journalctl -t videowall MODULE=stream
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	stream = "debug"
//	decode = "warn"
package logging
