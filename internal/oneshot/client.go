package oneshot

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/protocol"
	"github.com/wagiedev/quietcool-bridge-go/internal/subprocess"
)

// Fixed correlation ids. A one-shot worker carries exactly one request.
const (
	IDScan = "scan"
	IDPair = "pair"
)

// readyCommand names the readiness wait in a TimeoutError.
const readyCommand = "bridge_ready"

// Client spawns a private worker per call.
type Client struct {
	log     *slog.Logger
	options *config.Options
	factory config.TransportFactory
}

// New creates a one-shot client.
func New(log *slog.Logger, options *config.Options) *Client {
	options = options.WithDefaults()

	if log == nil {
		log = options.Logger
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	factory := options.TransportFactory
	if factory == nil {
		factory = subprocess.Factory
	}

	return &Client{
		log:     log.With("component", "oneshot"),
		options: options,
		factory: factory,
	}
}

// Run spawns a worker, waits for bridge_ready, issues cmd under id and
// stops the worker. timeout bounds the whole operation; the readiness wait
// is additionally bounded by the ready timeout.
//
// Exactly one outcome is returned: the response data, a *errors.CommandError,
// a *errors.TimeoutError, a *errors.ExitedError, a *errors.SpawnError, or
// the context's error.
func (c *Client) Run(
	ctx context.Context,
	id string,
	cmd string,
	args map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	log := c.log.With("id", id, "cmd", cmd)

	ready := make(chan struct{})

	var readyOnce sync.Once

	channel := protocol.NewChannel(log, func(s protocol.Status) {
		if s.IsBridgeReady() {
			readyOnce.Do(func() { close(ready) })
		}
	})

	t := c.factory(log, c.options)
	if err := t.Start(ctx); err != nil {
		if _, ok := stderrors.AsType[*errors.SpawnError](err); !ok {
			err = &errors.SpawnError{Err: err}
		}

		return nil, err
	}

	exited := make(chan error, 1)
	finished := make(chan struct{})
	lines, errs := t.ReadLines(ctx)

	defer c.stop(log, t, finished)

	go func() {
		defer close(finished)

		for line := range lines {
			channel.HandleLine(line)
		}

		var err error
		select {
		case err = <-errs:
		default:
		}

		exitErr, ok := stderrors.AsType[*errors.ExitedError](err)
		if !ok {
			exitErr = &errors.ExitedError{ExitCode: -1, Err: err}
		}

		channel.Detach()
		channel.FailAll(exitErr)
		exited <- exitErr
	}()

	readyTimeout := min(c.options.ReadyTimeout, timeout)
	readyTimer := time.NewTimer(readyTimeout)
	defer readyTimer.Stop()

	select {
	case <-ready:
	case err := <-exited:
		log.Warn("Worker exited before bridge_ready", "error", err)

		return nil, err
	case <-readyTimer.C:
		return nil, &errors.TimeoutError{ID: id, Command: readyCommand, Timeout: readyTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return nil, &errors.TimeoutError{ID: id, Command: cmd, Timeout: timeout}
	}

	channel.Attach(t)

	return channel.SendWithID(ctx, id, cmd, args, remaining)
}

// stop ends the worker's input so it can exit on EOF, waits up to the stop
// grace period for its output to end, then closes the transport. Close runs
// on every path, including timeouts and early exits.
func (c *Client) stop(log *slog.Logger, t config.Transport, finished <-chan struct{}) {
	if err := t.EndInput(); err != nil {
		log.Debug("Failed to end worker input", "error", err)
	}

	grace := time.NewTimer(c.options.StopGracePeriod)
	defer grace.Stop()

	select {
	case <-finished:
	case <-grace.C:
		log.Debug("Worker still running after end of input", "grace", c.options.StopGracePeriod)
	}

	if err := t.Close(); err != nil {
		log.Warn("Failed to stop one-shot worker", "error", err)
	}
}
