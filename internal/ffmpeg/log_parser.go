package ffmpeg

import "strings"

// ParseLogLevel extracts the level from a line written with -loglevel level+X.
// Lines look like "[warning] message" or "[h264 @ 0x55d0] [error] message".
// The level bracket is stripped; a component prefix is kept. Lines without a
// recognizable level are reported as info.
func ParseLogLevel(line string) (level, msg string) {
	head, rest, ok := cutBracket(line)
	if !ok {
		return "info", line
	}
	if isLogLevel(head) {
		return head, rest
	}

	if next, tail, ok := cutBracket(rest); ok && isLogLevel(next) {
		return next, line[:len(line)-len(rest)] + tail
	}
	return "info", line
}

// cutBracket splits "[x] rest" into x and rest.
func cutBracket(s string) (inner, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end == -1 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
