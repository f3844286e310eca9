// Package oneshot runs a single command against a throwaway bridge worker.
//
// Scanning and pairing happen before a fan is configured, so they cannot go
// through a supervised bridge. Each call spawns a private worker, waits for
// bridge_ready, issues exactly one command under a fixed correlation id, and
// stops the worker on every path.
package oneshot
