package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/protocol"
)

// StatusChannel returns a status callback that forwards transitions to the
// returned channel, dropping them when the buffer is full.
func StatusChannel(size int) (StatusFunc, <-chan ConnectivityState) {
	ch := make(chan ConnectivityState, size)

	return func(s ConnectivityState) {
		select {
		case ch <- s:
		default:
		}
	}, ch
}

// WaitUsable blocks until the worker announces bridge_ready or, when
// needConnect is set, until the automatic connect has succeeded.
func WaitUsable(ctx context.Context, statuses <-chan ConnectivityState, needConnect bool) error {
	for {
		select {
		case s := <-statuses:
			switch {
			case s.Detail == protocol.DetailBridgeReady && !needConnect:
				return nil
			case s.Connected && needConnect:
				return nil
			case strings.HasPrefix(s.Detail, DetailConnectFailed):
				return stderrors.New(s.Detail)
			case s.Detail == DetailExited:
				return &errors.ExitedError{}
			}
		case <-ctx.Done():
			if needConnect {
				return fmt.Errorf("waiting for fan connection: %w", ctx.Err())
			}

			return fmt.Errorf("waiting for bridge_ready: %w", ctx.Err())
		}
	}
}
