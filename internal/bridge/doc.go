// Package bridge supervises one long-lived bridge worker shared by many
// consumers.
//
// A Bridge owns the worker process exclusively. Consumers register with it;
// the first registration spawns the worker and the last deregistration stops
// it. Commands from every consumer are multiplexed over the worker's stdin
// by a protocol.Channel and correlated by id. When the worker exits
// unexpectedly, every outstanding request fails with an ExitedError, the
// disconnection is broadcast to all consumers, and, if any consumer is still
// registered when the restart delay elapses, a new worker is spawned.
//
// Lifecycle states:
//
//	absent -> starting -> ready -> exited -> absent
//	                  \-> absent (deactivated or spawn failed)
package bridge
