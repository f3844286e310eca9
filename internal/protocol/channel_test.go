package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
)

// mockWriter records every frame written to it.
type mockWriter struct {
	mu     sync.Mutex
	frames []Request
	sent   chan Request
	err    error
}

func newMockWriter() *mockWriter {
	return &mockWriter{sent: make(chan Request, 64)}
}

func (m *mockWriter) SendMessage(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	m.frames = append(m.frames, req)
	m.sent <- req

	return nil
}

func (m *mockWriter) next(t *testing.T) Request {
	t.Helper()

	select {
	case req := <-m.sent:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")

		return Request{}
	}
}

func newAttached(t *testing.T, onStatus StatusFunc) (*Channel, *mockWriter) {
	t.Helper()

	ch := NewChannel(slog.Default(), onStatus)
	w := newMockWriter()
	ch.Attach(w)

	return ch, w
}

func respond(t *testing.T, ch *Channel, resp Response) {
	t.Helper()

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	ch.HandleLine(data)
}

func TestChannel_SendReceivesDataUnchanged(t *testing.T) {
	ch, w := newAttached(t, nil)

	type result struct {
		data map[string]any
		err  error
	}

	done := make(chan result, 1)

	go func() {
		data, err := ch.Send(context.Background(), "get_state", nil, time.Second)
		done <- result{data, err}
	}()

	req := w.next(t)
	require.Equal(t, "msg_1", req.ID)
	require.Equal(t, "get_state", req.Cmd)
	require.NotNil(t, req.Args)

	ch.HandleLine([]byte(`{"id":"msg_1","ok":true,"data":{"Mode":"Idle"}}`))

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, map[string]any{"Mode": "Idle"}, res.data)
	require.Zero(t, ch.Pending())
}

func TestChannel_IDsAreMonotonic(t *testing.T) {
	ch := NewChannel(slog.Default(), nil)

	require.Equal(t, "msg_1", ch.NextID())
	require.Equal(t, "msg_2", ch.NextID())
	require.Equal(t, "msg_3", ch.NextID())
}

func TestChannel_ErrorResponse(t *testing.T) {
	ch, w := newAttached(t, nil)

	resultCh := ch.Dispatch(context.Background(), "msg_9", "set_preset", map[string]any{"name": "x"}, time.Second)
	w.next(t)

	respond(t, ch, Response{ID: "msg_9", OK: false, Error: "Preset 'x' not found"})

	res := <-resultCh
	cmdErr, ok := stderrors.AsType[*errors.CommandError](res.Err)
	require.True(t, ok)
	require.Equal(t, "set_preset", cmdErr.Command)
	require.Equal(t, "Preset 'x' not found", cmdErr.Message)
}

func TestChannel_OutOfOrderResponses(t *testing.T) {
	ch, w := newAttached(t, nil)

	first := ch.Dispatch(context.Background(), ch.NextID(), "get_info", nil, time.Second)
	second := ch.Dispatch(context.Background(), ch.NextID(), "get_version", nil, time.Second)

	w.next(t)
	w.next(t)

	respond(t, ch, Response{ID: "msg_2", OK: true, Data: map[string]any{"Version": "1.2"}})
	respond(t, ch, Response{ID: "msg_1", OK: true, Data: map[string]any{"Name": "ATTICFAN"}})

	require.Equal(t, "1.2", (<-second).Data["Version"])
	require.Equal(t, "ATTICFAN", (<-first).Data["Name"])
}

func TestChannel_TimeoutThenLateResponseIsDiscarded(t *testing.T) {
	ch, w := newAttached(t, nil)

	resultCh := ch.Dispatch(context.Background(), "msg_1", "get_state", nil, 20*time.Millisecond)
	w.next(t)

	res := <-resultCh
	require.ErrorIs(t, res.Err, errors.ErrRequestTimeout)
	require.Zero(t, ch.Pending())

	// The late answer has nowhere to go and must not panic or block.
	respond(t, ch, Response{ID: "msg_1", OK: true, Data: map[string]any{}})

	select {
	case extra := <-resultCh:
		t.Fatalf("request resolved twice: %+v", extra)
	default:
	}
}

func TestChannel_FailAllResolvesEveryRequestOnce(t *testing.T) {
	ch, w := newAttached(t, nil)

	a := ch.Dispatch(context.Background(), ch.NextID(), "get_state", nil, time.Second)
	b := ch.Dispatch(context.Background(), ch.NextID(), "get_info", nil, time.Second)

	w.next(t)
	w.next(t)

	exited := &errors.ExitedError{}
	require.Equal(t, 2, ch.FailAll(exited))

	for _, resultCh := range []<-chan Result{a, b} {
		res := <-resultCh
		require.EqualError(t, res.Err, "Bridge process exited")
	}

	// A response after the crash is unmatched.
	respond(t, ch, Response{ID: "msg_1", OK: true})
	require.Zero(t, ch.FailAll(exited))
}

func TestChannel_NotReadyWhenDetached(t *testing.T) {
	ch := NewChannel(slog.Default(), nil)

	_, err := ch.Send(context.Background(), "get_state", nil, time.Second)
	require.ErrorIs(t, err, errors.ErrNotReady)

	ch.Attach(newMockWriter())
	ch.Detach()

	_, err = ch.Send(context.Background(), "get_state", nil, time.Second)
	require.ErrorIs(t, err, errors.ErrNotReady)
}

func TestChannel_DuplicateFixedID(t *testing.T) {
	ch, w := newAttached(t, nil)

	first := ch.Dispatch(context.Background(), "scan", "scan", nil, time.Second)
	w.next(t)

	_, err := ch.SendWithID(context.Background(), "scan", "scan", nil, time.Second)
	require.ErrorIs(t, err, errors.ErrDuplicateID)

	respond(t, ch, Response{ID: "scan", OK: true, Data: map[string]any{"fans": []any{}}})
	require.NoError(t, (<-first).Err)
}

func TestChannel_WriteFailureResolvesRequest(t *testing.T) {
	ch, w := newAttached(t, nil)
	w.err = stderrors.New("broken pipe")

	_, err := ch.Send(context.Background(), "get_state", nil, time.Second)
	require.ErrorContains(t, err, "broken pipe")
	require.Zero(t, ch.Pending())
}

func TestChannel_ContextCancelForgetsRequest(t *testing.T) {
	ch, w := newAttached(t, nil)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)

	go func() {
		_, err := ch.Send(ctx, "get_state", nil, time.Minute)
		errCh <- err
	}()

	w.next(t)
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	require.Zero(t, ch.Pending())
}

func TestChannel_MalformedLinesAreIgnored(t *testing.T) {
	ch, w := newAttached(t, nil)

	resultCh := ch.Dispatch(context.Background(), "msg_1", "get_state", nil, time.Second)
	w.next(t)

	ch.HandleLine([]byte(`not json`))
	ch.HandleLine([]byte(`{"id":`))
	ch.HandleLine([]byte(`{"ok":true}`))
	ch.HandleLine([]byte(`{"id":"?","ok":false,"error":"Invalid JSON"}`))

	require.Equal(t, 1, ch.Pending())

	respond(t, ch, Response{ID: "msg_1", OK: true})

	res := <-resultCh
	require.NoError(t, res.Err)
	require.NotNil(t, res.Data)
}

func TestChannel_StatusRouting(t *testing.T) {
	var statuses []Status

	ch, _ := newAttached(t, func(s Status) {
		statuses = append(statuses, s)
	})

	ch.HandleLine([]byte(`{"type":"status","connected":false,"address":"","detail":"bridge_ready"}`))
	ch.HandleLine([]byte(`{"type":"status","connected":true,"address":"AA:BB","detail":"connected"}`))

	require.Len(t, statuses, 2)
	require.True(t, statuses[0].IsBridgeReady())
	require.False(t, statuses[1].IsBridgeReady())
	require.Equal(t, Status{Connected: true, Address: "AA:BB", Detail: DetailConnected}, statuses[1])
}

func TestChannel_NonObjectDataResolvesPromptly(t *testing.T) {
	for _, line := range []string{
		`{"id":"msg_1","ok":true,"data":[1,2]}`,
		`{"id":"msg_1","ok":true,"data":"Idle"}`,
		`{"id":"msg_1","ok":true,"data":7}`,
	} {
		t.Run(line, func(t *testing.T) {
			ch, w := newAttached(t, nil)

			resultCh := ch.Dispatch(context.Background(), "msg_1", "get_state", nil, 10*time.Second)
			w.next(t)

			ch.HandleLine([]byte(line))

			select {
			case res := <-resultCh:
				cmdErr, ok := stderrors.AsType[*errors.CommandError](res.Err)
				require.True(t, ok, "got %v", res.Err)
				require.Equal(t, "msg_1", cmdErr.ID)
				require.Equal(t, "get_state", cmdErr.Command)
				require.Contains(t, cmdErr.Message, "invalid response data")
				require.Nil(t, res.Data)
			case <-time.After(time.Second):
				t.Fatal("request waited for its timeout")
			}

			require.Zero(t, ch.Pending())
		})
	}
}

func TestChannel_ErrorResponseWithNonObjectData(t *testing.T) {
	ch, w := newAttached(t, nil)

	resultCh := ch.Dispatch(context.Background(), "msg_1", "pair", nil, time.Second)
	w.next(t)

	ch.HandleLine([]byte(`{"id":"msg_1","ok":false,"error":"not in pairing mode","data":[1]}`))

	res := <-resultCh
	cmdErr, ok := stderrors.AsType[*errors.CommandError](res.Err)
	require.True(t, ok)
	require.Equal(t, "not in pairing mode", cmdErr.Message)
	require.Nil(t, cmdErr.Data)
}

func TestChannel_HandleLineWithRoutesStatusPerCall(t *testing.T) {
	var fallback, tagged []Status

	ch, _ := newAttached(t, func(s Status) {
		fallback = append(fallback, s)
	})

	ready := []byte(`{"type":"status","connected":false,"address":"","detail":"bridge_ready"}`)

	ch.HandleLineWith(ready, func(s Status) {
		tagged = append(tagged, s)
	})
	ch.HandleLineWith(ready, nil)

	require.Len(t, tagged, 1)
	require.True(t, tagged[0].IsBridgeReady())
	require.Empty(t, fallback)

	ch.HandleLine(ready)
	require.Len(t, fallback, 1)
}

// TestChannel_ResponseTimeoutRace mirrors a response racing the timer.
// Run with: go test -race -count=10 -run TestChannel_ResponseTimeoutRace
func TestChannel_ResponseTimeoutRace(t *testing.T) {
	for range 100 {
		ch, w := newAttached(t, nil)

		resultCh := ch.Dispatch(context.Background(), "msg_1", "get_state", nil, time.Millisecond)
		w.next(t)

		var wg sync.WaitGroup

		for range 5 {
			wg.Go(func() {
				ch.HandleLine([]byte(`{"id":"msg_1","ok":true,"data":{}}`))
			})
		}

		wg.Wait()

		<-resultCh

		select {
		case <-resultCh:
			t.Fatal("request resolved more than once")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
