// Package catalog discovers source files in the wall's root directory and
// keeps the pool's source list current as files come and go.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/smazurov/videowall/internal/config"
	"github.com/smazurov/videowall/internal/events"
	"github.com/smazurov/videowall/internal/logging"
)

var (
	// ErrRootNotFound is returned when the root is missing or not a directory.
	ErrRootNotFound = errors.New("root directory not found")
	// ErrNoSources is returned when no file in the root matches.
	ErrNoSources = errors.New("no matching source files")
)

// DefaultExtensions are scanned when none are given.
var DefaultExtensions = []string{".mp4", ".webm"}

// Scan lists regular files directly inside root whose extension matches
// exts, case-insensitively. Subdirectories are not descended. Paths are
// joined with root and sorted.
func Scan(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() && e.Type()&os.ModeSymlink == 0 {
			continue
		}
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !matches(e.Name(), exts) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			// Keep symlinks that resolve to regular files.
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				continue
			}
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s (extensions %s)", ErrNoSources, root, strings.Join(exts, ", "))
	}
	slices.Sort(paths)
	return paths, nil
}

func matches(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Target receives the rescanned source list.
type Target interface {
	SetCatalog(paths []string)
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Root       string
	Extensions []string
	Target     Target
	Bus        *events.Bus // optional
	Debounce   time.Duration
	Logger     logging.Logger
}

// Watcher rescans the root directory when its entries change and pushes
// the result to the target. A rescan that finds no sources keeps the
// previous list so running streams have something to reshuffle into.
type Watcher struct {
	opts    WatcherOptions
	watcher *config.Watcher[[]string]
}

// NewWatcher creates a catalog watcher. Call Start to begin watching.
func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("catalog")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultDebounce
	}

	w := &Watcher{opts: opts}
	scan := func(root string) ([]string, error) {
		return Scan(root, opts.Extensions)
	}
	w.watcher = config.NewWatcher(opts.Root, scan, opts.Logger,
		config.WithDebounce[[]string](opts.Debounce),
		config.WithErrorHandler[[]string](w.onError),
	)
	w.watcher.OnReload(w.apply)
	return w
}

// Start begins watching the root directory.
func (w *Watcher) Start() error {
	return w.watcher.Start()
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	return w.watcher.Stop()
}

func (w *Watcher) apply(paths []string) {
	w.opts.Logger.Info("Catalog updated", "root", w.opts.Root, "sources", len(paths))
	if w.opts.Target != nil {
		w.opts.Target.SetCatalog(paths)
	}
	if w.opts.Bus != nil {
		w.opts.Bus.Publish(events.CatalogChangedEvent{
			Root:      w.opts.Root,
			Sources:   len(paths),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

func (w *Watcher) onError(err error) {
	if errors.Is(err, ErrNoSources) {
		w.opts.Logger.Warn("Rescan found no sources, keeping previous catalog", "root", w.opts.Root)
	}
}
