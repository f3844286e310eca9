package quietcool_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	quietcool "github.com/wagiedev/quietcool-bridge-go"
	"github.com/wagiedev/quietcool-bridge-go/internal/testutil/fakeworker"
)

const (
	fanAddress = "AA:BB:CC:DD:EE:FF"
	phoneID    = "0123456789abcdef"
)

func TestMain(m *testing.M) {
	fakeworker.RunIfRequested()
	os.Exit(m.Run())
}

// fakeWorker returns options that run the test binary as the worker.
func fakeWorker(t *testing.T, mode string, extra ...quietcool.Option) []quietcool.Option {
	t.Helper()

	fw := fakeworker.Options(t, mode)

	return append([]quietcool.Option{
		quietcool.WithPythonPath(fw.PythonPath),
		quietcool.WithBridgeScript(fw.BridgeScript),
		quietcool.WithEnv(fw.Env),
		quietcool.WithStopGracePeriod(fw.StopGracePeriod),
		quietcool.WithReadyTimeout(5 * time.Second),
	}, extra...)
}

func TestScan(t *testing.T) {
	result, err := quietcool.Scan(context.Background(), fakeWorker(t, fakeworker.ModeEcho)...)
	require.NoError(t, err)
	require.Equal(t, []quietcool.Fan{{Address: fanAddress, Name: "ATTICFAN_4F2A", RSSI: -61}}, result.Fans)
}

func TestPair(t *testing.T) {
	result, err := quietcool.Pair(context.Background(), fanAddress, phoneID, fakeWorker(t, fakeworker.ModeEcho)...)
	require.NoError(t, err)
	require.True(t, result.Paired)
	require.Equal(t, phoneID, result.PhoneID)

	_, err = quietcool.Pair(context.Background(), "", "", fakeWorker(t, fakeworker.ModeEcho)...)
	require.ErrorIs(t, err, quietcool.ErrAddressRequired)
}

func TestWithBridge_ConnectsThenRuns(t *testing.T) {
	opts := fakeWorker(t, fakeworker.ModeEcho, quietcool.WithFan(fanAddress, phoneID))

	err := quietcool.WithBridge(context.Background(), func(b *quietcool.Bridge, c *quietcool.Consumer) error {
		snapshot := b.Status()
		require.True(t, snapshot.Connectivity.Connected)
		require.Equal(t, fanAddress, snapshot.Connectivity.Address)
		require.Equal(t, 1, snapshot.Consumers)
		require.NotEmpty(t, c.ID())

		data, err := b.Send(context.Background(), c, "set_speed", map[string]any{"speed": "HIGH"})
		require.NoError(t, err)
		require.Equal(t, "set_speed", data["cmd"])

		return nil
	}, opts...)
	require.NoError(t, err)
}

func TestWithBridge_ReturnsCallbackError(t *testing.T) {
	boom := errors.New("boom")

	err := quietcool.WithBridge(context.Background(), func(*quietcool.Bridge, *quietcool.Consumer) error {
		return boom
	}, fakeWorker(t, fakeworker.ModeEcho)...)
	require.ErrorIs(t, err, boom)
}

func TestWithBridge_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := quietcool.WithBridge(ctx, func(*quietcool.Bridge, *quietcool.Consumer) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithBridge_WorkerExits(t *testing.T) {
	err := quietcool.WithBridge(context.Background(), func(*quietcool.Bridge, *quietcool.Consumer) error {
		t.Error("callback should not be called when the worker exits")

		return nil
	}, fakeWorker(t, fakeworker.ModeExit)...)

	_, ok := errors.AsType[*quietcool.ExitedError](err)
	require.True(t, ok, "got %v", err)
}

func TestBridge_SendAsync(t *testing.T) {
	b := quietcool.NewBridge(fakeWorker(t, fakeworker.ModeEcho)...)
	defer b.Close()

	onStatus, statuses := quietcool.StatusChannel(8)
	c := quietcool.NewNamedConsumer("async", onStatus)
	require.NoError(t, b.Register(c))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, quietcool.WaitUsable(ctx, statuses, false))

	result := <-b.SendAsync(ctx, c, "ping", nil)
	require.NoError(t, result.Err)
	require.Equal(t, "ping", result.Data["cmd"])

	b.Deregister(c)

	_, err := b.Send(ctx, c, "ping", nil)
	require.ErrorIs(t, err, quietcool.ErrConsumerNotRegistered)
}

func TestValidateAndCommands(t *testing.T) {
	require.NoError(t, quietcool.Validate("set_speed", map[string]any{"speed": "LOW"}))
	require.ErrorIs(t, quietcool.Validate("warp", nil), quietcool.ErrUnknownCommand)

	_, ok := errors.AsType[*quietcool.ValidationError](quietcool.Validate("set_mode", map[string]any{"mode": "Turbo"}))
	require.True(t, ok)

	require.Len(t, quietcool.Commands(), 19)
}

func TestGenerateID(t *testing.T) {
	a, err := quietcool.GenerateID()
	require.NoError(t, err)

	b, err := quietcool.GenerateID()
	require.NoError(t, err)

	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}

func TestNewMCPServer(t *testing.T) {
	b := quietcool.NewBridge()
	defer b.Close()

	server := quietcool.NewMCPServer("quietcool", "test", b, quietcool.NewNamedConsumer("mcp", nil))
	require.Len(t, server.ToolNames(), 20)
	require.Contains(t, server.ToolNames(), "fan_set_timer")
}

func TestNewAdminServer(t *testing.T) {
	b := quietcool.NewBridge()
	defer b.Close()

	server := quietcool.NewAdminServer(b)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quietcool/commands", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "set_thresholds")

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quietcool/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"state":"absent"`)
}
