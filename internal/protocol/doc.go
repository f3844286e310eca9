// Package protocol implements the bridge worker's line-delimited JSON
// protocol and the command channel that multiplexes requests over it.
//
// Every request is one JSON object on one line, carrying a correlation id,
// a command name and an argument object. Responses mirror the id and carry
// either a data payload or an error string. Status messages carry no id and
// announce connectivity changes, including the bridge_ready marker the
// worker prints once it accepts commands.
//
// The Channel handles:
//   - Generating correlation ids from a per-channel counter
//   - Tracking outstanding requests and resolving each exactly once
//   - Per-request timeout enforcement
//   - Routing status messages to a callback
//   - Failing every outstanding request when the worker goes away
//
// Example usage:
//
//	ch := protocol.NewChannel(log, onStatus)
//	ch.Attach(transport)
//	go func() {
//	    for line := range lines {
//	        ch.HandleLine(line)
//	    }
//	}()
//
//	data, err := ch.Send(ctx, "get_state", nil, 15*time.Second)
package protocol
