package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
)

// Writer defines the minimal transport surface the channel needs.
//
// This interface is satisfied by config.Transport but allows for testing
// with mock writers. Implementations must write each frame atomically.
type Writer interface {
	SendMessage(ctx context.Context, data []byte) error
}

// StatusFunc receives status messages in the order the worker printed them.
type StatusFunc func(Status)

// Result is the single terminal outcome of a request.
type Result struct {
	Data map[string]any
	Err  error
}

// Channel multiplexes concurrent requests over one worker's stdin/stdout.
//
// A Channel outlives individual worker processes: Attach binds it to a new
// worker's stdin and Detach unbinds it. The id counter is never reset, so a
// correlation token is never reused within a channel.
type Channel struct {
	log      *slog.Logger
	onStatus StatusFunc

	mu      sync.Mutex
	writer  Writer
	pending map[string]*pendingRequest
	counter uint64
}

// pendingRequest tracks an outgoing request awaiting response.
type pendingRequest struct {
	id      string
	command string
	issued  time.Time
	timer   *time.Timer
	result  chan Result
}

// NewChannel creates a detached channel. onStatus may be nil.
func NewChannel(log *slog.Logger, onStatus StatusFunc) *Channel {
	return &Channel{
		log:      log.With("component", "channel"),
		onStatus: onStatus,
		pending:  make(map[string]*pendingRequest, 8),
	}
}

// Attach binds the channel to a worker's stdin.
func (c *Channel) Attach(w Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer = w
}

// Detach unbinds the channel. Requests issued afterwards fail with ErrNotReady.
// Outstanding requests are left to FailAll or their timers.
func (c *Channel) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer = nil
}

// NextID returns a fresh correlation token ("msg_1", "msg_2", ...).
func (c *Channel) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter++

	return "msg_" + strconv.FormatUint(c.counter, 10)
}

// Pending returns the number of outstanding requests.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// Send issues a command with a generated id and waits for its outcome.
//
// The request resolves on a matching response, on timeout, on FailAll, or
// when ctx is done, whichever happens first. A worker error response is
// returned as a *errors.CommandError.
func (c *Channel) Send(
	ctx context.Context,
	cmd string,
	args map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	return c.SendWithID(ctx, c.NextID(), cmd, args, timeout)
}

// SendWithID is Send with a caller-chosen correlation id.
// It fails with ErrDuplicateID if id is already outstanding.
func (c *Channel) SendWithID(
	ctx context.Context,
	id string,
	cmd string,
	args map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	resultCh := c.Dispatch(ctx, id, cmd, args, timeout)

	select {
	case res := <-resultCh:
		return res.Data, res.Err

	case <-ctx.Done():
		// Forget the id; a late response will be discarded as unmatched.
		if c.resolve(id, Result{Err: ctx.Err()}) {
			c.log.Debug("Request cancelled", "id", id, "cmd", cmd)
		}

		res := <-resultCh

		return res.Data, res.Err
	}
}

// Dispatch issues a command and returns a channel that receives exactly one
// Result. The caller's goroutine never blocks on the worker's answer.
func (c *Channel) Dispatch(
	ctx context.Context,
	id string,
	cmd string,
	args map[string]any,
	timeout time.Duration,
) <-chan Result {
	resultCh := make(chan Result, 1)

	if args == nil {
		args = map[string]any{}
	}

	data, err := json.Marshal(&Request{ID: id, Cmd: cmd, Args: args})
	if err != nil {
		resultCh <- Result{Err: fmt.Errorf("marshal request: %w", err)}

		return resultCh
	}

	c.mu.Lock()

	writer := c.writer
	if writer == nil {
		c.mu.Unlock()

		resultCh <- Result{Err: errors.ErrNotReady}

		return resultCh
	}

	if _, exists := c.pending[id]; exists {
		c.mu.Unlock()

		resultCh <- Result{Err: fmt.Errorf("%w: %s", errors.ErrDuplicateID, id)}

		return resultCh
	}

	p := &pendingRequest{
		id:      id,
		command: cmd,
		issued:  time.Now(),
		result:  resultCh,
	}
	p.timer = time.AfterFunc(timeout, func() {
		if c.resolve(id, Result{Err: &errors.TimeoutError{ID: id, Command: cmd, Timeout: timeout}}) {
			c.log.Warn("Request timed out", "id", id, "cmd", cmd, "timeout", timeout)
		}
	})

	c.pending[id] = p
	c.mu.Unlock()

	c.log.Debug("Sending request", "id", id, "cmd", cmd)

	if err := writer.SendMessage(ctx, data); err != nil {
		c.log.Error("Failed to send request", "id", id, "cmd", cmd, "error", err)
		c.resolve(id, Result{Err: fmt.Errorf("send %s: %w", cmd, err)})
	}

	return resultCh
}

// HandleLine processes one inbound frame.
//
// Malformed lines are logged and dropped. Responses whose id is not
// outstanding (already timed out, failed, or never issued) are discarded.
func (c *Channel) HandleLine(line []byte) {
	c.HandleLineWith(line, c.onStatus)
}

// HandleLineWith is HandleLine with a per-line status receiver. Callers that
// read several worker lifetimes through one channel use it to tag statuses
// with the lifetime that printed them. onStatus may be nil.
func (c *Channel) HandleLineWith(line []byte, onStatus StatusFunc) {
	var msg inbound
	if err := json.Unmarshal(line, &msg); err != nil {
		perr := &errors.ProtocolParseError{RawData: string(line), Err: err}
		c.log.Warn("Discarding malformed worker line", "error", perr, "line", perr.RawData)

		return
	}

	if msg.Type == TypeStatus {
		status := Status{Connected: msg.Connected, Address: msg.Address, Detail: msg.Detail}
		c.log.Debug("Received status", "connected", status.Connected, "detail", status.Detail)

		if onStatus != nil {
			onStatus(status)
		}

		return
	}

	if msg.ID == "" {
		c.log.Debug("Discarding worker message without id", "type", msg.Type)

		return
	}

	p := c.claim(msg.ID)
	if p == nil {
		c.log.Debug("Discarding unmatched response", "id", msg.ID)

		return
	}

	c.log.Debug("Received response", "id", msg.ID, "cmd", p.command, "ok", msg.OK, "elapsed", time.Since(p.issued))

	data, err := msg.object()

	if msg.OK {
		if err != nil {
			c.log.Warn("Response data is not an object", "id", msg.ID, "cmd", p.command, "data", string(msg.Data))
			c.complete(p, Result{Err: &errors.CommandError{
				ID:      msg.ID,
				Command: p.command,
				Message: "invalid response data: " + err.Error(),
			}})

			return
		}

		if data == nil {
			data = map[string]any{}
		}

		c.complete(p, Result{Data: data})

		return
	}

	// Error payloads are informational; a malformed one is dropped.
	c.complete(p, Result{Err: &errors.CommandError{
		ID:      msg.ID,
		Command: p.command,
		Message: msg.Error,
		Data:    data,
	}})
}

// FailAll resolves every outstanding request with err.
func (c *Channel) FailAll(err error) int {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingRequest, 8)
	c.mu.Unlock()

	for _, p := range pending {
		c.complete(p, Result{Err: err})
	}

	if len(pending) > 0 {
		c.log.Info("Failed outstanding requests", "count", len(pending), "error", err)
	}

	return len(pending)
}

// resolve claims and completes the request with id, reporting whether it
// was still outstanding.
func (c *Channel) resolve(id string, res Result) bool {
	p := c.claim(id)
	if p == nil {
		return false
	}

	c.complete(p, res)

	return true
}

// claim removes the request from the pending set. Only the caller that
// claims a request may complete it, which makes resolution exactly-once.
func (c *Channel) claim(id string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return nil
	}

	delete(c.pending, id)

	return p
}

func (c *Channel) complete(p *pendingRequest, res Result) {
	p.timer.Stop()
	// Buffered with capacity one and written by the single claimer.
	p.result <- res
}
