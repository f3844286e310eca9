// Package admin serves the bridge's HTTP administration endpoints: fan
// discovery, pairing, phone id generation, bridge status, ad-hoc commands
// and a Bluetooth adapter check.
package admin
