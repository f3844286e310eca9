// Package fakeworker lets a Go test binary stand in for the Python bridge
// worker. A package's TestMain calls RunIfRequested first; options built by
// Options point the interpreter at the test binary itself, and the mode
// travels through the worker environment.
package fakeworker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/cli"
	"github.com/wagiedev/quietcool-bridge-go/internal/config"
)

// EnvMode selects the fake worker behaviour.
const EnvMode = "QUIETCOOL_FAKE_WORKER"

// Worker behaviours.
const (
	// ModeEcho announces bridge_ready and answers every command.
	ModeEcho = "echo"
	// ModeSilent never announces readiness and never answers.
	ModeSilent = "silent"
	// ModeExit writes to stderr and exits with status 1 before announcing
	// readiness, like a worker missing its BLE dependencies.
	ModeExit = "exit"
)

// Fan is the device the fake worker reports from scan.
var Fan = map[string]any{"address": "AA:BB:CC:DD:EE:FF", "name": "ATTICFAN_4F2A", "rssi": -61}

// RunIfRequested runs the fake worker and exits the process when EnvMode is
// set. It returns normally otherwise.
func RunIfRequested() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}

	os.Exit(run(mode))
}

// Options returns options that spawn the current test binary as a fake
// worker in the given mode.
func Options(t testing.TB, mode string) *config.Options {
	t.Helper()

	script := filepath.Join(t.TempDir(), "bridge.py")
	if err := os.WriteFile(script, nil, 0o600); err != nil {
		t.Fatalf("write fake script: %v", err)
	}

	// The discoverer would otherwise run the test binary with --version.
	t.Setenv(cli.SkipVersionCheckEnvVar, "1")

	return (&config.Options{
		PythonPath:      os.Args[0],
		BridgeScript:    script,
		Env:             map[string]string{EnvMode: mode},
		StopGracePeriod: 500 * time.Millisecond,
	}).WithDefaults()
}

func run(mode string) int {
	out := json.NewEncoder(os.Stdout)

	switch mode {
	case ModeSilent:
		drain()

		return 0
	case ModeExit:
		fmt.Fprintln(os.Stderr, "ModuleNotFoundError: No module named 'bleak'")

		return 1
	}

	_ = out.Encode(status(false, "", "bridge_ready"))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var req struct {
			ID   string         `json:"id"`
			Cmd  string         `json:"cmd"`
			Args map[string]any `json:"args"`
		}

		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			_ = out.Encode(map[string]any{"id": "?", "ok": false, "error": "Invalid JSON: " + scanner.Text()})

			continue
		}

		switch req.Cmd {
		case "crash":
			return 3
		case "hang":
			continue
		case "fail":
			_ = out.Encode(map[string]any{"id": req.ID, "ok": false, "error": "boom"})
		case "garbage":
			fmt.Fprintln(os.Stdout, "not json at all")
			_ = out.Encode(ok(req.ID, map[string]any{"after": "garbage"}))
		case "stderr":
			fmt.Fprintln(os.Stderr, "diagnostic: "+req.ID)
			_ = out.Encode(ok(req.ID, map[string]any{}))
		case "connect":
			address, _ := req.Args["address"].(string)
			_ = out.Encode(status(true, address, "connected"))
			_ = out.Encode(ok(req.ID, map[string]any{"connected": true}))
		case "scan":
			_ = out.Encode(ok(req.ID, map[string]any{"fans": []any{Fan}}))
		case "pair":
			phoneID, _ := req.Args["phone_id"].(string)
			_ = out.Encode(ok(req.ID, map[string]any{
				"paired":   true,
				"phone_id": phoneID,
				"message":  "Pairing successful! Save this Phone ID.",
			}))
		default:
			_ = out.Encode(ok(req.ID, map[string]any{"cmd": req.Cmd, "args": req.Args}))
		}
	}

	return 0
}

func drain() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
	}
}

func ok(id string, data map[string]any) map[string]any {
	return map[string]any{"id": id, "ok": true, "data": data}
}

func status(connected bool, address, detail string) map[string]any {
	return map[string]any{"type": "status", "connected": connected, "address": address, "detail": detail}
}
