// Package bluez inspects the host Bluetooth stack over the system D-Bus.
//
// The bridge worker talks BLE through BlueZ. Before spawning it, callers
// can check that bluetoothd is on the bus, the adapter exists and is powered,
// and whether the configured fan is already known to BlueZ.
package bluez
