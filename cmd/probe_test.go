package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/videowall/internal/catalog"
	"github.com/smazurov/videowall/internal/ffmpeg"
)

type fakeProber map[string]ffmpeg.ProbeResult

func (f fakeProber) Probe(_ context.Context, path string) (ffmpeg.ProbeResult, error) {
	res, ok := f[filepath.Base(path)]
	if !ok {
		return ffmpeg.ProbeResult{}, errors.New("no video stream")
	}
	return res, nil
}

func TestRunProbe(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.webm", "broken.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	prober := fakeProber{
		"a.mp4":  {Width: 1920, Height: 1080, FPS: 25},
		"b.webm": {Width: 640, Height: 360},
	}

	var out bytes.Buffer
	failed, err := RunProbe(context.Background(), &out, dir, []string{".mp4", ".webm"}, prober)
	if err != nil {
		t.Fatalf("RunProbe() error = %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	tests := []struct {
		line int
		want []string
	}{
		{0, []string{"SOURCE", "INTERVAL"}},
		{1, []string{"a.mp4", "1920x1080", "25.000", "40ms"}},
		{2, []string{"b.webm", "640x360", "unknown"}},
		{3, []string{"broken.mp4", "error: no video stream"}},
	}
	for _, tt := range tests {
		for _, want := range tt.want {
			if !strings.Contains(lines[tt.line], want) {
				t.Errorf("line %d = %q, missing %q", tt.line, lines[tt.line], want)
			}
		}
	}
}

func TestRunProbeErrors(t *testing.T) {
	var out bytes.Buffer
	_, err := RunProbe(context.Background(), &out, filepath.Join(t.TempDir(), "absent"), nil, fakeProber{})
	if !errors.Is(err, catalog.ErrRootNotFound) {
		t.Errorf("missing root error = %v, want %v", err, catalog.ErrRootNotFound)
	}

	_, err = RunProbe(context.Background(), &out, t.TempDir(), nil, fakeProber{})
	if !errors.Is(err, catalog.ErrNoSources) {
		t.Errorf("empty root error = %v, want %v", err, catalog.ErrNoSources)
	}
}
