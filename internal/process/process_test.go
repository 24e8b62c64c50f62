package process

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcess(args ...string) *Process {
	p := NewProcess("test", args, testLogger())
	p.SetTimeouts(200*time.Millisecond, time.Second)
	return p
}

// recordingLogger captures stderr lines forwarded by streamStderr.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) record(level, msg string) {
	r.mu.Lock()
	r.lines = append(r.lines, level+":"+msg)
	r.mu.Unlock()
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.record("debug", msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.record("info", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.record("warn", msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.record("error", msg) }

func (r *recordingLogger) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestStdoutIsReadable(t *testing.T) {
	p := newTestProcess("sh", "-c", "printf 'abcdef'")
	stdout, err := p.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	data, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "abcdef" {
		t.Errorf("stdout = %q, want %q", data, "abcdef")
	}
	if code := p.Wait(); code != 0 {
		t.Errorf("Wait() = %d, want 0", code)
	}
}

func TestStdoutSurvivesExit(t *testing.T) {
	p := newTestProcess("sh", "-c", "printf 'late'")
	stdout, err := p.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	p.Wait()

	buf := make([]byte, 4)
	if _, err := io.ReadFull(stdout, buf); err != nil {
		t.Fatalf("ReadFull() after exit error = %v", err)
	}
	if string(buf) != "late" {
		t.Errorf("stdout = %q, want %q", buf, "late")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"success", "exit 0", 0},
		{"failure", "exit 3", 3},
		{"terminated by signal", "kill -TERM $$", 128 + 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcess("sh", "-c", tt.script)
			if _, err := p.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if code := p.Wait(); code != tt.want {
				t.Errorf("Wait() = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestStartTwice(t *testing.T) {
	p := newTestProcess("sh", "-c", "exit 0")
	if _, err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	if _, err := p.Start(); err != ErrAlreadyStarted {
		t.Errorf("second Start() error = %v, want %v", err, ErrAlreadyStarted)
	}
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"empty command", nil},
		{"missing binary", []string{"/nonexistent/videowall-test-binary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcess(tt.args...)
			if _, err := p.Start(); err == nil {
				t.Error("Start() error = nil, want error")
			}
		})
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestProcess("sh", "-c", "trap 'exit 0' INT TERM; while :; do sleep 0.1; done")
	if _, err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if code := p.Stop(); code != 0 {
		t.Errorf("Stop() = %d, want 0", code)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess("sh", "-c", "trap '' INT TERM; while :; do sleep 0.1; done")
	if _, err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if code := p.Stop(); code != ExitKilled {
		t.Errorf("Stop() = %d, want %d", code, ExitKilled)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop() took %v", elapsed)
	}

	select {
	case <-p.Exited():
	default:
		t.Error("Exited() not closed after Stop")
	}
}

func TestStopUnblocksReader(t *testing.T) {
	p := newTestProcess("sh", "-c", "while :; do sleep 0.1; done")
	stdout, err := p.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := stdout.Read(make([]byte, 16))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	p.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Read() error = nil after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read() still blocked after Stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	p := newTestProcess("sh", "-c", "exit 0")
	if code := p.Stop(); code != 0 {
		t.Errorf("Stop() before Start = %d, want 0", code)
	}

	if _, err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	p.Wait()
	if code := p.Stop(); code != 0 {
		t.Errorf("Stop() after exit = %d, want 0", code)
	}
	if code := p.Stop(); code != 0 {
		t.Errorf("second Stop() = %d, want 0", code)
	}
}

func TestStderrUsesLogParser(t *testing.T) {
	rec := &recordingLogger{}
	p := newTestProcess("sh", "-c", "echo 'E:disk full' >&2; echo 'W:slow' >&2; echo plain >&2")
	p.SetLogParser(rec, func(line string) (string, string) {
		switch {
		case strings.HasPrefix(line, "E:"):
			return "error", line[2:]
		case strings.HasPrefix(line, "W:"):
			return "warning", line[2:]
		}
		return "verbose", line
	})

	if _, err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	p.Wait()

	want := []string{"error:disk full", "warn:slow", "debug:plain"}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("logged %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExitCodeFromError(t *testing.T) {
	if code := exitCodeFromError(nil); code != 0 {
		t.Errorf("exitCodeFromError(nil) = %d, want 0", code)
	}
	if code := exitCodeFromError(io.EOF); code != 1 {
		t.Errorf("exitCodeFromError(io.EOF) = %d, want 1", code)
	}
}
