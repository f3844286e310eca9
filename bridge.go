package quietcool

import (
	"context"

	"github.com/wagiedev/quietcool-bridge-go/internal/bridge"
	"github.com/wagiedev/quietcool-bridge-go/internal/catalog"
	"github.com/wagiedev/quietcool-bridge-go/internal/protocol"
)

type (
	// Bridge owns at most one worker and shares it between consumers.
	Bridge = bridge.Bridge

	// Consumer is a logical client of a Bridge.
	Consumer = bridge.Consumer

	// ConnectivityState is a connectivity transition reported by the worker.
	ConnectivityState = bridge.ConnectivityState

	// StatusFunc receives connectivity transitions.
	StatusFunc = bridge.StatusFunc

	// Snapshot is a point-in-time view of a Bridge.
	Snapshot = bridge.Snapshot

	// Result is the outcome of an asynchronous send.
	Result = protocol.Result

	// Command describes one worker command and its argument schema.
	Command = catalog.Command
)

// NewBridge creates a bridge. No worker runs until the first consumer registers.
func NewBridge(opts ...Option) *Bridge {
	options := applyOptions(opts)

	return bridge.New(options.Logger, options)
}

// NewConsumer creates a consumer with a generated identity. onStatus may be nil.
func NewConsumer(onStatus StatusFunc) *Consumer {
	return bridge.NewConsumer(onStatus)
}

// NewNamedConsumer creates a consumer with a caller-chosen identity.
func NewNamedConsumer(id string, onStatus StatusFunc) *Consumer {
	return bridge.NewNamedConsumer(id, onStatus)
}

// WaitUsable blocks until statuses report a ready worker or, when needConnect
// is set, a connected fan. Feed it from a consumer built with StatusChannel.
func WaitUsable(ctx context.Context, statuses <-chan ConnectivityState, needConnect bool) error {
	return bridge.WaitUsable(ctx, statuses, needConnect)
}

// StatusChannel returns a status callback forwarding to a buffered channel.
func StatusChannel(size int) (StatusFunc, <-chan ConnectivityState) {
	return bridge.StatusChannel(size)
}

// Validate checks args against the schema of the named command.
func Validate(cmd string, args map[string]any) error {
	return catalog.Validate(cmd, args)
}

// Commands lists every command the worker understands, sorted by name.
func Commands() []*Command {
	return catalog.Default().Commands()
}
