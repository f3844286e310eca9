package bridge

import "fmt"

// broadcast delivers state to each consumer in turn. A panicking callback
// is logged and does not prevent delivery to the rest.
func (b *Bridge) broadcast(consumers []*Consumer, state ConnectivityState) {
	for _, c := range consumers {
		if err := b.notify(c, state); err != nil {
			b.log.Warn("Status callback failed", "consumer", c.id, "error", err)
		}
	}
}

func (b *Bridge) notify(c *Consumer, state ConnectivityState) (err error) {
	if c.onStatus == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	c.onStatus(state)

	return nil
}
