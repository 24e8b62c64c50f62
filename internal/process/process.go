package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/videowall/internal/logging"
)

// LogParser parses a log line and returns its level and message.
type LogParser func(line string) (level, msg string)

// ExitKilled is reported when the process had to be force-killed.
const ExitKilled = 137

// ErrAlreadyStarted is returned by Start on a second call.
var ErrAlreadyStarted = errors.New("process already started")

// Process manages the lifecycle of one subprocess.
type Process struct {
	id              string
	args            []string
	logger          logging.Logger
	processLogger   logging.Logger // stderr output (nil = logger)
	logParser       LogParser      // nil = every line at info
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu         sync.Mutex
	cmd        *exec.Cmd
	started    bool
	exited     chan struct{} // closed after cmd.Wait returns
	exitErr    error
	stderrDone chan struct{}
	stdout     *os.File
}

// NewProcess creates a process for the given argv. Nothing runs until Start.
func NewProcess(id string, args []string, logger logging.Logger) *Process {
	return &Process{
		id:              id,
		args:            args,
		logger:          logger,
		gracefulTimeout: 2 * time.Second,
		killTimeout:     2 * time.Second,
		exited:          make(chan struct{}),
		stderrDone:      make(chan struct{}),
	}
}

// Args returns the argv.
func (p *Process) Args() []string {
	return p.args
}

// SetLogParser sets the logger and parser used for stderr lines.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetTimeouts overrides the graceful-stop and post-kill timeouts.
func (p *Process) SetTimeouts(graceful, kill time.Duration) {
	p.gracefulTimeout = graceful
	p.killTimeout = kill
}

// Start launches the process and returns its stdout. The reader reports
// io.EOF once the process closes stdout. Stop closes it, after which reads
// fail with os.ErrClosed.
func (p *Process) Start() (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil, ErrAlreadyStarted
	}
	if len(p.args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(p.args[0], p.args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// An explicit pipe keeps buffered output readable after the child has
	// been reaped; cmd.StdoutPipe would be closed by Wait.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to start %s: %w", p.args[0], err)
	}
	stdoutW.Close()
	p.cmd = cmd
	p.stdout = stdout
	p.started = true
	p.logger.Debug("Process started", "id", p.id, "pid", cmd.Process.Pid)

	go func() {
		p.streamStderr(stderr)
		close(p.stderrDone)
	}()
	go func() {
		// Wait closes the pipes, so stderr must be drained first.
		<-p.stderrDone
		p.exitErr = cmd.Wait()
		close(p.exited)
	}()

	return stdout, nil
}

// Exited is closed once the process has exited and been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// Wait blocks until the process exits and returns its exit code.
func (p *Process) Wait() int {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return 0
	}
	<-p.exited
	return exitCodeFromError(p.exitErr)
}

// Stop asks the process to exit with SIGINT, force-kills it after the graceful
// timeout, and returns the exit code. Safe to call more than once.
func (p *Process) Stop() int {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return 0
	}
	// Closing the read end first unblocks a child stuck writing to a full pipe.
	p.stdout.Close()
	return p.stop(cmd)
}

func (p *Process) stop(cmd *exec.Cmd) int {
	select {
	case <-p.exited:
		return exitCodeFromError(p.exitErr)
	default:
	}

	// Negative pid targets the whole process group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGINT); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Warn("Failed to send SIGINT", "id", p.id, "error", err)
	}

	select {
	case <-p.exited:
		return exitCodeFromError(p.exitErr)
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful stop timed out, killing process", "id", p.id, "timeout", p.gracefulTimeout)
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Error("Failed to kill process", "id", p.id, "error", err)
	}

	select {
	case <-p.exited:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "id", p.id)
	}
	return ExitKilled
}

// exitCodeFromError returns 0 for nil, the exit code of an ExitError (128+n
// when terminated by signal n), else 1.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ExitKilled
	}
	return 1
}

// streamStderr forwards stderr lines to the process logger at parsed levels.
func (p *Process) streamStderr(reader io.Reader) {
	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		level, msg := "info", scanner.Text()
		if p.logParser != nil {
			level, msg = p.logParser(msg)
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg, "id", p.id)
		case "warning":
			logger.Warn(msg, "id", p.id)
		case "info":
			logger.Info(msg, "id", p.id)
		default:
			logger.Debug(msg, "id", p.id)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.logger.Debug("Error reading stderr", "id", p.id, "error", err)
	}
}
