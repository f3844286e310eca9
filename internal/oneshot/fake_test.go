package oneshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/protocol"
)

// Scripted worker behaviours.
const (
	scriptAnswer     = "answer"
	scriptReject     = "reject"
	scriptHang       = "hang"
	scriptSilent     = "silent"
	scriptExitEarly  = "exit-early"
	scriptExitOnSend = "exit-on-send"
)

// scriptedTransport is an in-memory worker that records how it was stopped.
type scriptedTransport struct {
	script string
	lines  chan []byte
	errs   chan error

	mu     sync.Mutex
	done   bool
	ended  bool
	closed bool
}

var _ config.Transport = (*scriptedTransport)(nil)

func (s *scriptedTransport) Start(context.Context) error {
	switch s.script {
	case scriptSilent:
	case scriptExitEarly:
		s.exit(1)
	default:
		s.emit(map[string]any{"type": "status", "connected": false, "detail": protocol.DetailBridgeReady})
	}

	return nil
}

func (s *scriptedTransport) ReadLines(context.Context) (<-chan []byte, <-chan error) {
	return s.lines, s.errs
}

func (s *scriptedTransport) SendMessage(_ context.Context, data []byte) error {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	switch s.script {
	case scriptAnswer:
		s.emit(map[string]any{"id": req.ID, "ok": true, "data": map[string]any{"cmd": req.Cmd}})
	case scriptReject:
		s.emit(map[string]any{"id": req.ID, "ok": false, "error": "not in pairing mode"})
	case scriptExitOnSend:
		s.exit(3)
	}

	return nil
}

// EndInput behaves like a worker that exits on EOF.
func (s *scriptedTransport) EndInput() error {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()

	s.finish()

	return nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.finish()

	return nil
}

func (s *scriptedTransport) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.done
}

func (s *scriptedTransport) stopped() (ended, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ended, s.closed
}

func (s *scriptedTransport) emit(v any) {
	data, _ := json.Marshal(v)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		s.lines <- data
	}
}

func (s *scriptedTransport) exit(code int) {
	s.errs <- &errors.ExitedError{ExitCode: code}
	s.finish()
}

func (s *scriptedTransport) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		s.done = true
		close(s.lines)
	}
}

// scriptedFactory hands out scripted transports and remembers them.
type scriptedFactory struct {
	script string

	mu         sync.Mutex
	transports []*scriptedTransport
}

func (f *scriptedFactory) factory(*slog.Logger, *config.Options) config.Transport {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &scriptedTransport{
		script: f.script,
		lines:  make(chan []byte, 16),
		errs:   make(chan error, 1),
	}
	f.transports = append(f.transports, t)

	return t
}

func (f *scriptedFactory) all() []*scriptedTransport {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.transports
}
