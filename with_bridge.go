package quietcool

import (
	"context"
	"fmt"
)

// WithBridge manages a private bridge with automatic cleanup.
//
// This helper creates a bridge, registers a consumer, waits until the worker
// is ready (and the fan connected, when WithFan is set), executes the callback
// and then deregisters and closes the bridge.
//
// Example usage:
//
//	err := quietcool.WithBridge(ctx, func(b *quietcool.Bridge, c *quietcool.Consumer) error {
//	    _, err := b.Send(ctx, c, "set_speed", map[string]any{"speed": "HIGH"})
//	    return err
//	},
//	    quietcool.WithLogger(log),
//	    quietcool.WithFan(address, phoneID),
//	)
func WithBridge(ctx context.Context, fn func(*Bridge, *Consumer) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	b := NewBridge(opts...)

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			log.Warn("failed to close bridge", "error", closeErr)
		}
	}()

	onStatus, statuses := StatusChannel(16)
	consumer := NewConsumer(onStatus)

	if err := b.Register(consumer); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	defer b.Deregister(consumer)

	needConnect := options.HasConnectionParams()

	budget := options.ReadyTimeout
	if needConnect {
		budget += options.ConnectTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := WaitUsable(waitCtx, statuses, needConnect); err != nil {
		return err
	}

	return fn(b, consumer)
}
