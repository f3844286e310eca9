// Package quietcool supervises the QuietCool BLE bridge worker and shares it
// between any number of in-process consumers.
//
// The worker is a Python process that talks to an attic fan over Bluetooth
// Low Energy and speaks newline-delimited JSON on stdio. This package keeps at
// most one worker alive, starts it when the first consumer registers, stops
// it when the last one leaves and restarts it after an unexpected exit.
//
// # Basic Usage
//
// Scanning and pairing do not need a running bridge; they use a short-lived
// worker of their own:
//
//	ctx := context.Background()
//	result, err := quietcool.Scan(ctx, quietcool.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, fan := range result.Fans {
//	    fmt.Println(fan.Address, fan.Name, fan.RSSI)
//	}
//
// # Shared Bridge
//
// Consumers share one worker. WithBridge handles registration and waits until
// the fan is connected:
//
//	err := quietcool.WithBridge(ctx, func(b *quietcool.Bridge, c *quietcool.Consumer) error {
//	    state, err := b.Send(ctx, c, "get_state", nil)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(state["mode"])
//	    return nil
//	},
//	    quietcool.WithFan("AA:BB:CC:DD:EE:FF", "0123456789abcdef"),
//	)
//
// Or manage consumers directly for long-running services:
//
//	b := quietcool.NewBridge(quietcool.WithFan(address, phoneID))
//	defer b.Close()
//
//	c := quietcool.NewConsumer(func(s quietcool.ConnectivityState) {
//	    fmt.Println("fan:", s.Detail)
//	})
//	if err := b.Register(c); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Deregister(c)
//
// # Error Handling
//
// Failures are typed:
//
//	_, err := b.Send(ctx, c, "set_speed", map[string]any{"speed": "HIGH"})
//	if errors.Is(err, quietcool.ErrNotReady) {
//	    // the worker is still starting
//	}
//	if cmdErr, ok := errors.AsType[*quietcool.CommandError](err); ok {
//	    log.Printf("fan rejected %s: %s", cmdErr.Command, cmdErr.Message)
//	}
//
// # Requirements
//
// The worker needs python3 with the bleak package and a bridge.py script.
// Use WithPythonPath and WithBridgeScript when they are not in a standard
// location.
package quietcool
