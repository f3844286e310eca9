package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/quietcool-bridge-go/internal/cli"
	"github.com/wagiedev/quietcool-bridge-go/internal/config"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
)

const (
	// maxScanTokenSize is the maximum buffer size for reading worker output lines.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// The callback receives every line; only the buffer stops growing.
	maxStderrBufferSize = 64 * 1024
	// lineBufferSize is the capacity of the channel returned by ReadLines.
	lineBufferSize = 16
)

// WorkerTransport implements Transport by spawning the Python bridge worker.
type WorkerTransport struct {
	log            *slog.Logger
	options        *config.Options
	worker         *cli.Worker
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string)
	exited         chan struct{}
	mu             sync.Mutex // Protects the stdin handle and lifecycle flags
	writeMu        sync.Mutex // Serializes frames on stdin
	closing        bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed    bool
}

// Compile-time verification that WorkerTransport implements the Transport interface.
var _ config.Transport = (*WorkerTransport)(nil)

// NewWorkerTransport creates a new worker transport.
//
// Worker discovery is deferred to Start(). Start() returns a SpawnError
// wrapping WorkerNotFoundError if the interpreter or script cannot be located.
func NewWorkerTransport(log *slog.Logger, options *config.Options) *WorkerTransport {
	return &WorkerTransport{
		log:            log.With("component", "worker_transport"),
		options:        options,
		stderrCallback: options.Stderr,
		exited:         make(chan struct{}),
	}
}

// Factory is a config.TransportFactory producing WorkerTransports.
func Factory(log *slog.Logger, options *config.Options) config.Transport {
	return NewWorkerTransport(log, options)
}

// Start spawns the worker process.
//
// The process is bound to ctx: cancelling it sends SIGTERM, and the process
// is killed if it has not exited within the stop grace period.
func (t *WorkerTransport) Start(ctx context.Context) error {
	t.log.Info("Starting bridge worker")

	discoverer := cli.NewDiscoverer(&cli.Config{
		PythonPath:   t.options.PythonPath,
		BridgeScript: t.options.BridgeScript,
		Logger:       t.log,
	})

	worker, err := discoverer.Discover(ctx)
	if err != nil {
		return &errors.SpawnError{Err: fmt.Errorf("discover worker: %w", err)}
	}

	t.worker = worker

	args := cli.BuildArgs(worker)
	t.log.Debug("Built worker arguments", "python", worker.Python, "args", args)

	//nolint:gosec // G204: the interpreter and script come from configuration
	cmd := exec.CommandContext(ctx, worker.Python, args...)
	cmd.Env = cli.BuildEnvironment(t.options)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = t.options.StopGracePeriod

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.SpawnError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.SpawnError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.SpawnError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start bridge worker", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.mu.Unlock()

	t.log.Info("Bridge worker started", "pid", cmd.Process.Pid)

	return nil
}

// Pid returns the worker's process id, or 0 before Start.
func (t *WorkerTransport) Pid() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}

	return t.cmd.Process.Pid
}

// ReadLines reads raw protocol lines from the worker stdout.
//
// Lines are delivered without their trailing newline; blank lines are
// skipped. When stdout reaches EOF the process is reaped: an unexpected exit
// is reported on the error channel as an ExitedError carrying the exit code
// and the captured stderr. An exit caused by Close reports nothing.
// Both channels are closed afterwards.
func (t *WorkerTransport) ReadLines(ctx context.Context) (<-chan []byte, <-chan error) {
	lines := make(chan []byte, lineBufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		defer close(errs)
		defer close(t.exited)
		defer t.log.Debug("ReadLines goroutine stopped")

		var (
			stderrMu  sync.Mutex
			stderrBuf strings.Builder
			g         errgroup.Group
		)

		// Both pipes must be fully read before Wait.
		// See: https://pkg.go.dev/os/exec#Cmd.StdoutPipe
		g.Go(func() error {
			scanner := bufio.NewScanner(t.stderr)
			for scanner.Scan() {
				line := scanner.Text()

				stderrMu.Lock()
				if stderrBuf.Len() < maxStderrBufferSize {
					if stderrBuf.Len() > 0 {
						stderrBuf.WriteString("\n")
					}

					stderrBuf.WriteString(line)
				}
				stderrMu.Unlock()

				t.log.Debug("Worker stderr", "line", line)

				if t.stderrCallback != nil {
					t.stderrCallback(line)
				}
			}

			return nil
		})

		g.Go(func() error {
			scanner := bufio.NewScanner(t.stdout)
			scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

			for scanner.Scan() {
				line := bytes.TrimSpace(scanner.Bytes())
				if len(line) == 0 {
					continue
				}

				frame := make([]byte, len(line))
				copy(frame, line)

				select {
				case lines <- frame:
				case <-ctx.Done():
					// Keep draining so the worker never blocks on a full pipe.
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("scanner error: %w", err)
			}

			return nil
		})

		scanErr := g.Wait()
		if scanErr != nil {
			t.log.Error("Scanner error while reading worker output", "error", scanErr)
			// Unblock the worker so Wait can return.
			_ = t.kill()
		}

		waitErr := t.cmd.Wait()

		t.mu.Lock()
		isClosing := t.closing
		t.stdinClosed = true
		t.mu.Unlock()

		if isClosing {
			t.log.Debug("Bridge worker terminated during shutdown")

			return
		}

		stderrMu.Lock()
		stderrOutput := stderrBuf.String()
		stderrMu.Unlock()

		exitCode := 0
		if exitErr, ok := stderrors.AsType[*exec.ExitError](waitErr); ok {
			exitCode = exitErr.ExitCode()
		}

		if waitErr == nil {
			waitErr = scanErr
		}

		t.log.Warn("Bridge worker exited", "exit_code", exitCode, "stderr", stderrOutput)

		errs <- &errors.ExitedError{
			ExitCode: exitCode,
			Stderr:   stderrOutput,
			Err:      waitErr,
		}
	}()

	return lines, errs
}

// SendMessage writes one frame to the worker stdin.
//
// A newline is appended if missing. Frames are written one at a time under
// writeMu so concurrent callers never interleave partial lines. Context
// cancellation during a blocked write returns ctx.Err() and leaves stdin
// open: the worker is shared, so only Close or EndInput may end its input.
// The abandoned frame is still written once the pipe drains.
func (t *WorkerTransport) SendMessage(ctx context.Context, data []byte) error {
	t.mu.Lock()
	stdin, closed := t.stdin, t.stdinClosed
	t.mu.Unlock()

	if stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if closed {
		return errors.ErrStdinClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Copy so a caller's spare capacity is never mutated
	if len(data) == 0 || data[len(data)-1] != '\n' {
		framed := make([]byte, len(data)+1)
		copy(framed, data)
		framed[len(data)] = '\n'
		data = framed
	}

	done := make(chan error, 1)

	go func() {
		t.writeMu.Lock()
		defer t.writeMu.Unlock()

		_, err := stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write frame to worker", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, leaving frame queued")

		return ctx.Err()
	}
}

// IsReady returns true if the worker process is running and stdin is open.
func (t *WorkerTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// EndInput closes stdin. The worker exits once it reads EOF.
func (t *WorkerTransport) EndInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closeStdinLocked()
}

func (t *WorkerTransport) closeStdinLocked() error {
	if t.stdin == nil || t.stdinClosed {
		return nil
	}

	t.log.Debug("Closing stdin pipe")

	t.stdinClosed = true

	return t.stdin.Close()
}

// Close terminates the worker gracefully.
//
// Stdin is closed and SIGTERM sent; if the worker has not exited within the
// stop grace period it is killed. Close does not wait for the exit. It's
// safe to call Close multiple times or on a worker that already exited.
func (t *WorkerTransport) Close() error {
	t.mu.Lock()

	if t.closing {
		t.mu.Unlock()

		return nil
	}

	t.closing = true
	_ = t.closeStdinLocked()

	cmd := t.cmd
	t.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-t.exited:
		return nil
	default:
	}

	t.log.Debug("Terminating bridge worker", "pid", cmd.Process.Pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		t.log.Debug("SIGTERM failed", "error", err)
	}

	grace := t.options.StopGracePeriod

	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-t.exited:
		case <-timer.C:
			t.log.Warn("Bridge worker ignored SIGTERM, killing", "pid", cmd.Process.Pid)

			_ = t.kill()
		}
	}()

	return nil
}

func (t *WorkerTransport) kill() error {
	t.mu.Lock()
	cmd := t.cmd
	t.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill bridge worker (pid %d): %w", cmd.Process.Pid, err)
	}

	return nil
}
