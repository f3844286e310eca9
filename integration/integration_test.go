//go:build integration

package integration

import (
	"errors"
	"os"
	"testing"

	quietcool "github.com/wagiedev/quietcool-bridge-go"
)

// skipIfWorkerUnavailable skips the test when python3, bridge.py or the BLE
// stack is missing on this host.
func skipIfWorkerUnavailable(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*quietcool.WorkerNotFoundError](err); ok {
		t.Skip("bridge worker not installed")
	}

	if _, ok := errors.AsType[*quietcool.ExitedError](err); ok {
		t.Skipf("bridge worker exited at startup: %v", err)
	}
}

// fanFromEnv returns the paired fan under test, skipping without one.
func fanFromEnv(t *testing.T) (string, string) {
	t.Helper()

	address := os.Getenv("QUIETCOOL_FAN_ADDRESS")
	phoneID := os.Getenv("QUIETCOOL_FAN_PHONE_ID")

	if address == "" || phoneID == "" {
		t.Skip("QUIETCOOL_FAN_ADDRESS and QUIETCOOL_FAN_PHONE_ID not set")
	}

	return address, phoneID
}
