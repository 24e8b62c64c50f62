//go:build headless

package display

import (
	"github.com/smazurov/videowall/internal/logging"
)

// New returns an in-memory display in headless builds.
func New(opts Options, _, _ int) (Display, error) {
	return NewHeadless(opts), nil
}

// PrimaryDisplaySize reports a 1920x1080 display in headless builds.
func PrimaryDisplaySize() (width, height int) {
	return 1920, 1080
}

func defaultLogger() logging.Logger {
	return logging.GetLogger("display")
}
