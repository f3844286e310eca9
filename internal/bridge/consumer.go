package bridge

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnectivityState is the last connectivity transition the worker reported.
type ConnectivityState struct {
	Connected bool      `json:"connected"`
	Address   string    `json:"address,omitempty"`
	Detail    string    `json:"detail"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusFunc receives connectivity transitions.
type StatusFunc func(ConnectivityState)

// Consumer is a logical client sharing the bridge worker.
//
// A consumer never controls the worker's lifecycle beyond registering and
// deregistering; the bridge keeps only a reference for reference counting
// and status fan-out.
type Consumer struct {
	id       string
	onStatus StatusFunc
}

// NewConsumer creates a consumer with a generated identity.
// onStatus may be nil.
func NewConsumer(onStatus StatusFunc) *Consumer {
	return NewNamedConsumer(ulid.Make().String(), onStatus)
}

// NewNamedConsumer creates a consumer with a caller-chosen identity.
func NewNamedConsumer(id string, onStatus StatusFunc) *Consumer {
	return &Consumer{id: id, onStatus: onStatus}
}

// ID returns the consumer's identity.
func (c *Consumer) ID() string {
	return c.id
}
