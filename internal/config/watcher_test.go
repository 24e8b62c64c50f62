package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadWatchedConfig(path string) (watchedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedConfig{}, err
	}
	var cfg watchedConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func listDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	// fsnotify needs a moment before the first event is delivered reliably.
	time.Sleep(50 * time.Millisecond)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReloadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videowall.toml")
	writeFile(t, path, "name = \"initial\"\nvalue = 1\n")

	received := make(chan watchedConfig, 4)
	w := NewWatcher(path, loadWatchedConfig, newTestLogger(), WithDebounce[watchedConfig](30*time.Millisecond))
	w.OnReload(func(cfg watchedConfig) { received <- cfg })
	startWatcher(t, w)

	writeFile(t, path, "name = \"updated\"\nvalue = 42\n")

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("reloaded %+v, want updated/42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp4"), "")

	received := make(chan []string, 8)
	w := NewWatcher(dir, listDir, newTestLogger(), WithDebounce[[]string](30*time.Millisecond))
	w.OnReload(func(names []string) { received <- names })
	startWatcher(t, w)

	expect := func(want ...string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case got := <-received:
				if equalStrings(got, want) {
					return
				}
			case <-deadline:
				t.Fatalf("timeout waiting for listing %v", want)
			}
		}
	}

	writeFile(t, filepath.Join(dir, "b.mp4"), "")
	expect("a.mp4", "b.mp4")

	if err := os.Rename(filepath.Join(dir, "a.mp4"), filepath.Join(dir, "c.webm")); err != nil {
		t.Fatal(err)
	}
	expect("b.mp4", "c.webm")

	if err := os.Remove(filepath.Join(dir, "b.mp4")); err != nil {
		t.Fatal(err)
	}
	expect("c.webm")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWatcherDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videowall.toml")
	writeFile(t, path, "value = 0\n")

	var loads atomic.Int32
	loader := func(p string) (watchedConfig, error) {
		loads.Add(1)
		return loadWatchedConfig(p)
	}
	received := make(chan watchedConfig, 8)
	w := NewWatcher(path, loader, newTestLogger(), WithDebounce[watchedConfig](200*time.Millisecond))
	w.OnReload(func(cfg watchedConfig) { received <- cfg })
	startWatcher(t, w)

	for i := 1; i <= 5; i++ {
		writeFile(t, path, "value = "+string(rune('0'+i))+"\n")
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 5 {
			t.Errorf("reloaded value = %d, want 5", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	time.Sleep(300 * time.Millisecond)
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
}

func TestWatcherMultipleHandlersAndUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videowall.toml")
	writeFile(t, path, "value = 0\n")

	var first, second atomic.Int32
	done := make(chan struct{}, 4)
	w := NewWatcher(path, loadWatchedConfig, newTestLogger(), WithDebounce[watchedConfig](30*time.Millisecond))
	unsubscribe := w.OnReload(func(watchedConfig) { first.Add(1) })
	w.OnReload(func(watchedConfig) {
		second.Add(1)
		done <- struct{}{}
	})
	startWatcher(t, w)

	writeFile(t, path, "value = 1\n")
	waitSignal(t, done)
	if first.Load() != 1 || second.Load() != 1 {
		t.Fatalf("handler calls = %d/%d, want 1/1", first.Load(), second.Load())
	}

	unsubscribe()
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "value = 2\n")
	waitSignal(t, done)
	if first.Load() != 1 {
		t.Errorf("unsubscribed handler ran again: %d calls", first.Load())
	}
	if second.Load() != 2 {
		t.Errorf("remaining handler calls = %d, want 2", second.Load())
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler")
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videowall.toml")
	writeFile(t, path, "value = 0\n")

	errs := make(chan error, 4)
	var handled atomic.Int32
	w := NewWatcher(path, loadWatchedConfig, newTestLogger(),
		WithDebounce[watchedConfig](30*time.Millisecond),
		WithErrorHandler[watchedConfig](func(err error) { errs <- err }),
	)
	w.OnReload(func(watchedConfig) { handled.Add(1) })
	startWatcher(t, w)

	writeFile(t, path, "value = [broken\n")

	select {
	case err := <-errs:
		if err == nil {
			t.Error("error handler got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
	if handled.Load() != 0 {
		t.Errorf("reload handler ran %d times on a broken file", handled.Load())
	}
}

func TestWatcherStartMissingPath(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent"), listDir, newTestLogger())
	if err := w.Start(); err == nil {
		t.Error("Start() on a missing path error = nil")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() after failed Start error = %v", err)
	}
}

func TestWatcherStopDropsPendingReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videowall.toml")
	writeFile(t, path, "value = 0\n")

	var loads atomic.Int32
	loader := func(string) (watchedConfig, error) {
		loads.Add(1)
		return watchedConfig{}, errors.New("unused")
	}
	w := NewWatcher(path, loader, newTestLogger(), WithDebounce[watchedConfig](300*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "value = 1\n")
	time.Sleep(50 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	time.Sleep(400 * time.Millisecond)
	if n := loads.Load(); n != 0 {
		t.Errorf("loader ran %d times after Stop", n)
	}
}
