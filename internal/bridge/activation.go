package bridge

import "github.com/wagiedev/quietcool-bridge-go/internal/errors"

// Register adds a consumer. The first registration spawns the worker.
//
// If the spawn fails the consumer stays registered, a restart is scheduled
// and the *errors.SpawnError is returned. Registering the same consumer twice
// is a no-op.
func (b *Bridge) Register(c *Consumer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrBridgeClosed
	}

	if _, ok := b.consumers[c.id]; ok {
		return nil
	}

	b.consumers[c.id] = c
	b.log.Debug("Consumer registered", "consumer", c.id, "consumers", len(b.consumers))

	if len(b.consumers) > 1 || b.transport != nil {
		return nil
	}

	return b.spawnLocked()
}

// Deregister removes a consumer. Removing the last one stops the worker and
// fails its outstanding requests with ErrBridgeStopped. Unknown consumers
// are ignored.
func (b *Bridge) Deregister(c *Consumer) {
	b.mu.Lock()

	if _, ok := b.consumers[c.id]; !ok {
		b.mu.Unlock()

		return
	}

	delete(b.consumers, c.id)
	b.log.Debug("Consumer deregistered", "consumer", c.id, "consumers", len(b.consumers))

	if len(b.consumers) > 0 {
		b.mu.Unlock()

		return
	}

	t := b.deactivateLocked()
	b.mu.Unlock()

	if t == nil {
		return
	}

	b.log.Info("Stopping bridge worker", "reason", "no consumers")
	b.channel.FailAll(errors.ErrBridgeStopped)

	if err := t.Close(); err != nil {
		b.log.Warn("Failed to stop bridge worker", "error", err)
	}
}
