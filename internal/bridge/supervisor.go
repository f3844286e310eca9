package bridge

import (
	"context"
	stderrors "errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/protocol"
	"github.com/wagiedev/quietcool-bridge-go/internal/subprocess"
)

const (
	// CommandConnect is issued automatically once the worker is ready when
	// both a fan address and a phone id are configured.
	CommandConnect = "connect"

	// CommandPair uses the longer pair budget.
	CommandPair = "pair"

	// DetailExited is broadcast when the worker exits unexpectedly.
	DetailExited = "Bridge process exited"

	// DetailConnectFailed prefixes the broadcast of a failed automatic connect.
	DetailConnectFailed = "connect failed: "

	detailStopped = "Bridge stopped"
)

// Bridge supervises a single worker process shared by its registered consumers.
//
// All state transitions are serialized by mu. Status callbacks always run
// outside of it, so a consumer may call back into the bridge from its callback.
type Bridge struct {
	log     *slog.Logger
	options *config.Options
	factory config.TransportFactory
	channel *protocol.Channel

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	transport    config.Transport
	generation   uint64
	consumers    map[string]*Consumer
	restartTimer *time.Timer
	restartSeq   uint64
	connectivity ConnectivityState
	spawns       int
	closed       bool
}

// New creates a bridge. No worker is spawned until the first consumer registers.
func New(log *slog.Logger, options *config.Options) *Bridge {
	options = options.WithDefaults()

	if log == nil {
		log = options.Logger
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "bridge")

	factory := options.TransportFactory
	if factory == nil {
		factory = subprocess.Factory
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		log:       log,
		options:   options,
		factory:   factory,
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[string]*Consumer, 4),
		connectivity: ConnectivityState{
			Detail:    "idle",
			UpdatedAt: time.Now(),
		},
	}
	b.channel = protocol.NewChannel(log, nil)

	return b
}

// Send issues a command on behalf of a registered consumer and waits for
// its outcome. It fails fast with ErrNotReady unless the worker has
// announced bridge_ready.
func (b *Bridge) Send(
	ctx context.Context,
	c *Consumer,
	cmd string,
	args map[string]any,
) (map[string]any, error) {
	return b.SendWithTimeout(ctx, c, cmd, args, b.TimeoutFor(cmd))
}

// SendWithTimeout is Send with an explicit budget. Cancelling ctx forgets
// the request; a late response is discarded.
func (b *Bridge) SendWithTimeout(
	ctx context.Context,
	c *Consumer,
	cmd string,
	args map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	if err := b.checkSendable(c); err != nil {
		return nil, err
	}

	return b.channel.Send(ctx, cmd, args, timeout)
}

// SendAsync issues a command and returns a channel that receives exactly one
// Result. Cancelling ctx does not withdraw the request; it still resolves on
// response, timeout or worker exit.
func (b *Bridge) SendAsync(
	ctx context.Context,
	c *Consumer,
	cmd string,
	args map[string]any,
) <-chan protocol.Result {
	return b.dispatch(ctx, c, cmd, args, b.TimeoutFor(cmd))
}

func (b *Bridge) dispatch(
	ctx context.Context,
	c *Consumer,
	cmd string,
	args map[string]any,
	timeout time.Duration,
) <-chan protocol.Result {
	if err := b.checkSendable(c); err != nil {
		resultCh := make(chan protocol.Result, 1)
		resultCh <- protocol.Result{Err: err}

		return resultCh
	}

	return b.channel.Dispatch(ctx, b.channel.NextID(), cmd, args, timeout)
}

func (b *Bridge) checkSendable(c *Consumer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrBridgeClosed
	}

	if c == nil || b.consumers[c.id] == nil {
		return errors.ErrConsumerNotRegistered
	}

	if b.state != StateReady {
		return errors.ErrNotReady
	}

	return nil
}

// TimeoutFor returns the request budget used for cmd.
func (b *Bridge) TimeoutFor(cmd string) time.Duration {
	if cmd == CommandPair {
		return b.options.PairTimeout
	}

	return b.options.CommandTimeout
}

// Status returns a snapshot of the bridge.
func (b *Bridge) Status() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:         b.state,
		StateName:     b.state.String(),
		Connectivity:  b.connectivity,
		WorkerRunning: b.transport != nil && b.transport.IsReady(),
		Consumers:     len(b.consumers),
		Pending:       b.channel.Pending(),
		Spawns:        b.spawns,
	}
}

// Close stops the worker, fails outstanding requests with ErrBridgeClosed
// and drops every consumer. A closed bridge cannot be reused.
func (b *Bridge) Close() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return nil
	}

	b.closed = true
	clear(b.consumers)
	t := b.deactivateLocked()
	b.mu.Unlock()

	if t != nil {
		b.log.Info("Stopping bridge worker", "reason", "closed")
		b.channel.FailAll(errors.ErrBridgeClosed)
	}

	b.cancel()

	if t != nil {
		return t.Close()
	}

	return nil
}

// spawnLocked starts a new worker process. The caller must hold mu.
func (b *Bridge) spawnLocked() error {
	if b.closed || b.transport != nil {
		return nil
	}

	b.stopRestartLocked()
	b.state = StateStarting

	t := b.factory(b.log, b.options)
	if err := t.Start(b.ctx); err != nil {
		b.state = StateAbsent

		if _, ok := stderrors.AsType[*errors.SpawnError](err); !ok {
			err = &errors.SpawnError{Err: err}
		}

		b.log.Error("Failed to spawn bridge worker", "error", err)
		b.scheduleRestartLocked()

		return err
	}

	b.generation++
	b.transport = t
	b.spawns++
	gen := b.generation

	b.log.Info("Bridge worker started", "generation", gen)

	lines, errs := t.ReadLines(b.ctx)
	go b.readLoop(gen, lines, errs)

	return nil
}

func (b *Bridge) readLoop(gen uint64, lines <-chan []byte, errs <-chan error) {
	for line := range lines {
		// Output from a worker that has been stopped is drained and dropped.
		if !b.isCurrent(gen) {
			continue
		}

		b.channel.HandleLineWith(line, func(s protocol.Status) {
			b.handleStatus(gen, s)
		})
	}

	var err error
	select {
	case err = <-errs:
	default:
	}

	b.handleExit(gen, err)
}

func (b *Bridge) isCurrent(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return gen == b.generation && b.transport != nil
}

// handleStatus receives every status message printed by worker gen. Statuses
// from a worker that is no longer current are dropped.
func (b *Bridge) handleStatus(gen uint64, s protocol.Status) {
	b.mu.Lock()

	if gen != b.generation || b.transport == nil {
		b.mu.Unlock()
		b.log.Debug("Dropping status from stale worker", "generation", gen, "detail", s.Detail)

		return
	}

	var autoConnect bool

	if s.IsBridgeReady() && b.state == StateStarting {
		b.state = StateReady
		b.channel.Attach(b.transport)
		autoConnect = b.options.HasConnectionParams()

		b.log.Info("Bridge worker ready", "generation", gen)
	}

	conn := ConnectivityState{
		Connected: s.Connected,
		Address:   s.Address,
		Detail:    s.Detail,
		UpdatedAt: time.Now(),
	}
	if conn.Address == "" {
		conn.Address = b.connectivity.Address
	}

	b.connectivity = conn
	consumers := b.snapshotLocked()
	b.mu.Unlock()

	b.broadcast(consumers, conn)

	if autoConnect {
		go b.autoConnect(gen)
	}
}

// autoConnect issues the single connect command of a readiness transition.
func (b *Bridge) autoConnect(gen uint64) {
	args := map[string]any{
		"address":  b.options.Address,
		"phone_id": b.options.PhoneID,
	}

	b.log.Info("Connecting to fan", "address", b.options.Address)

	_, err := b.channel.Send(b.ctx, CommandConnect, args, b.options.ConnectTimeout)
	if err == nil {
		return
	}

	b.log.Warn("Automatic connect failed", "address", b.options.Address, "error", err)

	// An exit or stop is announced by the exit path itself.
	if _, ok := stderrors.AsType[*errors.ExitedError](err); ok {
		return
	}

	reason := err.Error()
	if cmdErr, ok := stderrors.AsType[*errors.CommandError](err); ok {
		reason = cmdErr.Message
	}

	b.mu.Lock()

	if gen != b.generation || b.transport == nil {
		b.mu.Unlock()

		return
	}

	conn := ConnectivityState{
		Connected: false,
		Address:   b.options.Address,
		Detail:    DetailConnectFailed + reason,
		UpdatedAt: time.Now(),
	}
	b.connectivity = conn
	consumers := b.snapshotLocked()
	b.mu.Unlock()

	b.broadcast(consumers, conn)
}

// handleExit runs once per worker when its output ends.
func (b *Bridge) handleExit(gen uint64, err error) {
	b.mu.Lock()

	if gen != b.generation || b.transport == nil {
		// Deactivated or closed; that path already failed the requests.
		b.mu.Unlock()

		return
	}

	b.state = StateExited
	b.transport = nil
	b.channel.Detach()

	exitErr, ok := stderrors.AsType[*errors.ExitedError](err)
	if !ok {
		exitErr = &errors.ExitedError{ExitCode: -1, Err: err}
	}

	b.log.Warn("Bridge worker exited",
		"generation", gen,
		"exit_code", exitErr.ExitCode,
		"stderr", exitErr.Stderr,
	)

	conn := ConnectivityState{
		Connected: false,
		Address:   b.connectivity.Address,
		Detail:    DetailExited,
		UpdatedAt: time.Now(),
	}
	b.connectivity = conn
	consumers := b.snapshotLocked()

	b.state = StateAbsent
	b.scheduleRestartLocked()
	b.mu.Unlock()

	b.channel.FailAll(exitErr)

	b.broadcast(consumers, conn)
}

// scheduleRestartLocked arms the restart timer if consumers remain.
func (b *Bridge) scheduleRestartLocked() {
	if b.closed || len(b.consumers) == 0 {
		b.log.Debug("No consumers remain, not restarting")

		return
	}

	b.stopRestartLocked()
	b.log.Info("Scheduling bridge restart", "delay", b.options.RestartDelay)

	seq := b.restartSeq
	b.restartTimer = time.AfterFunc(b.options.RestartDelay, func() {
		b.restart(seq)
	})
}

// stopRestartLocked disarms the restart timer. Bumping restartSeq also voids
// a timer that already fired and is waiting on mu.
func (b *Bridge) stopRestartLocked() {
	b.restartSeq++

	if b.restartTimer != nil {
		b.restartTimer.Stop()
		b.restartTimer = nil
	}
}

func (b *Bridge) restart(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.restartSeq {
		b.log.Debug("Ignoring superseded restart timer")

		return
	}

	b.restartTimer = nil

	// Consumers may have left while the timer was pending.
	if b.closed || len(b.consumers) == 0 || b.transport != nil {
		return
	}

	b.log.Info("Restarting bridge worker")

	if err := b.spawnLocked(); err != nil {
		b.log.Error("Restart failed", "error", err)
	}
}

// deactivateLocked detaches the current worker and returns it for closing.
// The caller must hold mu and fail outstanding requests afterwards.
func (b *Bridge) deactivateLocked() config.Transport {
	b.stopRestartLocked()

	t := b.transport
	if t == nil {
		b.state = StateAbsent

		return nil
	}

	// Orphan the worker's read loop so its exit is not treated as a crash.
	b.generation++
	b.transport = nil
	b.state = StateAbsent
	b.channel.Detach()

	b.connectivity = ConnectivityState{
		Connected: false,
		Address:   b.connectivity.Address,
		Detail:    detailStopped,
		UpdatedAt: time.Now(),
	}

	return t
}

func (b *Bridge) snapshotLocked() []*Consumer {
	ids := slices.Sorted(maps.Keys(b.consumers))
	consumers := make([]*Consumer, 0, len(ids))

	for _, id := range ids {
		consumers = append(consumers, b.consumers[id])
	}

	return consumers
}
