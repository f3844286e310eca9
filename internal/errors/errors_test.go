package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerNotFoundError(t *testing.T) {
	err := &WorkerNotFoundError{
		SearchedPaths: []string{"/usr/bin/python3", "/opt/bridge.py"},
	}

	require.Equal(t, "bridge worker not found in: [/usr/bin/python3 /opt/bridge.py]", err.Error())
	require.True(t, err.IsBridgeError())
}

func TestSpawnError(t *testing.T) {
	root := errors.New("exec: no such file")
	err := &SpawnError{Err: root}

	require.Equal(t, "failed to spawn bridge worker: exec: no such file", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}

func TestExitedError_Message(t *testing.T) {
	for _, code := range []int{0, 1, 3, -1} {
		err := &ExitedError{ExitCode: code, Stderr: "Traceback"}
		require.Equal(t, "Bridge process exited", err.Error())
		require.Equal(t, code, err.ExitCode)
	}
}

func TestExitedError_Unwrap(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ExitedError{ExitCode: -1, Err: root}

	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{ID: "msg_4", Command: "get_state", Timeout: 15 * time.Second}

	require.Equal(t, "request timeout: get_state (id msg_4) after 15s", err.Error())
	require.ErrorIs(t, err, ErrRequestTimeout)
	require.True(t, err.IsBridgeError())

	_, ok := errors.AsType[*TimeoutError](error(err))
	require.True(t, ok)
}

func TestProtocolParseError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &ProtocolParseError{RawData: `{"id":`, Err: root}

	require.Equal(t, "failed to decode JSON from bridge worker: unexpected end of JSON input", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}

func TestCommandError(t *testing.T) {
	err := &CommandError{ID: "msg_2", Command: "set_preset", Message: "preset name required"}

	require.Equal(t, "command set_preset failed: preset name required", err.Error())
	require.True(t, err.IsBridgeError())
}

func TestValidationError(t *testing.T) {
	root := errors.New("speed: value must be one of LOW, HIGH")
	err := &ValidationError{Command: "set_speed", Err: root}

	require.Equal(t, "invalid arguments for set_speed: speed: value must be one of LOW, HIGH", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}
