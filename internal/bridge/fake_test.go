package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/protocol"
)

// fakeTransport is an in-memory worker.
type fakeTransport struct {
	lines    chan []byte
	errs     chan error
	sent     chan protocol.Request
	startErr error

	once   sync.Once
	mu     sync.Mutex
	closed bool
}

var _ config.Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		lines: make(chan []byte, 16),
		errs:  make(chan error, 1),
		sent:  make(chan protocol.Request, 16),
	}
}

func (f *fakeTransport) Start(context.Context) error { return f.startErr }

func (f *fakeTransport) ReadLines(context.Context) (<-chan []byte, <-chan error) {
	return f.lines, f.errs
}

func (f *fakeTransport) SendMessage(_ context.Context, data []byte) error {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	f.sent <- req

	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.once.Do(func() { close(f.lines) })

	return nil
}

func (f *fakeTransport) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.closed
}

func (f *fakeTransport) EndInput() error { return nil }

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func (f *fakeTransport) emit(t *testing.T, v any) {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	f.lines <- data
}

func (f *fakeTransport) ready(t *testing.T) {
	t.Helper()
	f.emit(t, map[string]any{"type": "status", "connected": false, "detail": "bridge_ready"})
}

func (f *fakeTransport) respond(t *testing.T, id string, data map[string]any) {
	t.Helper()
	f.emit(t, map[string]any{"id": id, "ok": true, "data": data})
}

func (f *fakeTransport) exit(code int) {
	f.errs <- &errors.ExitedError{ExitCode: code}
	f.once.Do(func() { close(f.lines) })
}

func (f *fakeTransport) nextRequest(t *testing.T) protocol.Request {
	t.Helper()

	select {
	case req := <-f.sent:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")

		return protocol.Request{}
	}
}

// fakeFactory records every transport it creates.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	startErr   error
	created    chan *fakeTransport
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{created: make(chan *fakeTransport, 16)}
}

func (f *fakeFactory) factory(*slog.Logger, *config.Options) config.Transport {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := newFakeTransport()
	t.startErr = f.startErr
	f.transports = append(f.transports, t)
	f.created <- t

	return t
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.transports)
}

func (f *fakeFactory) setStartErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.startErr = err
}

func (f *fakeFactory) next(t *testing.T) *fakeTransport {
	t.Helper()

	select {
	case tr := <-f.created:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for spawn")

		return nil
	}
}

// statusRecorder collects connectivity broadcasts.
type statusRecorder struct {
	ch chan ConnectivityState
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{ch: make(chan ConnectivityState, 32)}
}

func (r *statusRecorder) record(s ConnectivityState) { r.ch <- s }

func (r *statusRecorder) waitFor(t *testing.T, detail string) ConnectivityState {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		select {
		case s := <-r.ch:
			if s.Detail == detail {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", detail)

			return ConnectivityState{}
		}
	}
}

func newTestBridge(t *testing.T, f *fakeFactory, mutate ...func(*config.Options)) *Bridge {
	t.Helper()

	opts := &config.Options{
		TransportFactory: f.factory,
		RestartDelay:     50 * time.Millisecond,
		CommandTimeout:   time.Second,
	}
	for _, m := range mutate {
		m(opts)
	}

	b := New(nil, opts)
	t.Cleanup(func() { _ = b.Close() })

	return b
}

func waitForState(t *testing.T, b *Bridge, want State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return b.Status().State == want
	}, 2*time.Second, 5*time.Millisecond, "state never became %s", want)
}
