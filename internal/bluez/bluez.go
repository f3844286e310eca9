package bluez

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"

	// DefaultAdapter is the adapter checked when none is configured.
	DefaultAdapter = "hci0"
)

// Preflight failures.
var (
	ErrBlueZNotRunning   = stderrors.New("org.bluez not found on system bus, is bluetooth.service running?")
	ErrAdapterNotFound   = stderrors.New("bluetooth adapter not found")
	ErrAdapterPoweredOff = stderrors.New("bluetooth adapter is powered off")
)

// AdapterPath returns the object path of the named adapter.
func AdapterPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// DeviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func DeviceObjectPath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")

	return dbus.ObjectPath(string(AdapterPath(adapter)) + "/dev_" + escaped)
}

// MACFromPath extracts a MAC address from a BlueZ device object path.
func MACFromPath(adapter string, path dbus.ObjectPath) string {
	prefix := string(AdapterPath(adapter)) + "/dev_"

	s := string(path)
	if !strings.HasPrefix(s, prefix) {
		return ""
	}

	return strings.ReplaceAll(s[len(prefix):], "_", ":")
}

// AdapterReport describes the local adapter.
type AdapterReport struct {
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Alias       string `json:"alias,omitempty"`
	Powered     bool   `json:"powered"`
	Discovering bool   `json:"discovering"`
}

// DeviceReport describes what BlueZ knows about the fan.
type DeviceReport struct {
	Address   string `json:"address"`
	Known     bool   `json:"known"`
	Name      string `json:"name,omitempty"`
	Paired    bool   `json:"paired"`
	Connected bool   `json:"connected"`
	RSSI      int16  `json:"rssi,omitempty"`
}

// Report is the outcome of a preflight check.
type Report struct {
	Adapter AdapterReport `json:"adapter"`
	Device  *DeviceReport `json:"device,omitempty"`
}

// bus is the subset of a D-Bus connection the checker uses.
type bus interface {
	Names(ctx context.Context) ([]string, error)
	Property(ctx context.Context, path dbus.ObjectPath, iface, prop string) (dbus.Variant, error)
	Close() error
}

// Checker runs preflight checks against one adapter.
type Checker struct {
	log     *slog.Logger
	adapter string
	dial    func(ctx context.Context) (bus, error)
}

// NewChecker creates a checker for adapter, or DefaultAdapter if empty.
func NewChecker(log *slog.Logger, adapter string) *Checker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if adapter == "" {
		adapter = DefaultAdapter
	}

	return &Checker{
		log:     log.With("component", "bluez"),
		adapter: adapter,
		dial:    dialSystemBus,
	}
}

// Check verifies BlueZ is running and the adapter is powered. When
// fanAddress is non-empty the report also carries the fan's device state;
// an unknown fan is not an error.
func (c *Checker) Check(ctx context.Context, fanAddress string) (*Report, error) {
	b, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	names, err := b.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}

	if !slices.Contains(names, busName) {
		return nil, ErrBlueZNotRunning
	}

	report := &Report{Adapter: AdapterReport{Name: c.adapter}}
	path := AdapterPath(c.adapter)

	powered, err := getBool(ctx, b, path, adapterIface, "Powered")
	if err != nil {
		c.log.Debug("Adapter lookup failed", "adapter", c.adapter, "error", err)

		return report, fmt.Errorf("%w: %s", ErrAdapterNotFound, c.adapter)
	}

	report.Adapter.Powered = powered
	report.Adapter.Address, _ = getString(ctx, b, path, adapterIface, "Address")
	report.Adapter.Alias, _ = getString(ctx, b, path, adapterIface, "Alias")
	report.Adapter.Discovering, _ = getBool(ctx, b, path, adapterIface, "Discovering")

	if fanAddress != "" {
		report.Device = c.device(ctx, b, fanAddress)
	}

	if !powered {
		return report, ErrAdapterPoweredOff
	}

	return report, nil
}

func (c *Checker) device(ctx context.Context, b bus, addr string) *DeviceReport {
	path := DeviceObjectPath(c.adapter, addr)
	dev := &DeviceReport{Address: strings.ToUpper(addr)}

	paired, err := getBool(ctx, b, path, deviceIface, "Paired")
	if err != nil {
		// BlueZ has not seen the device; the worker will discover it.
		c.log.Debug("Device not known to BlueZ", "address", addr, "error", err)

		return dev
	}

	dev.Known = true
	dev.Paired = paired
	dev.Connected, _ = getBool(ctx, b, path, deviceIface, "Connected")
	dev.Name, _ = getString(ctx, b, path, deviceIface, "Name")

	if v, err := b.Property(ctx, path, deviceIface, "RSSI"); err == nil {
		if rssi, ok := v.Value().(int16); ok {
			dev.RSSI = rssi
		}
	}

	return dev
}

func getBool(ctx context.Context, b bus, path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := b.Property(ctx, path, iface, prop)
	if err != nil {
		return false, err
	}

	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property %s is not bool", prop)
	}

	return val, nil
}

func getString(ctx context.Context, b bus, path dbus.ObjectPath, iface, prop string) (string, error) {
	v, err := b.Property(ctx, path, iface, prop)
	if err != nil {
		return "", err
	}

	val, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("property %s is not string", prop)
	}

	return val, nil
}

// systemBus wraps a private system D-Bus connection.
type systemBus struct {
	conn *dbus.Conn
}

func dialSystemBus(ctx context.Context) (bus, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	return &systemBus{conn: conn}, nil
}

func (s *systemBus) Names(ctx context.Context) ([]string, error) {
	var names []string

	err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)

	return names, err
}

func (s *systemBus) Property(ctx context.Context, path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant

	err := s.conn.Object(busName, path).CallWithContext(ctx, propsIface+".Get", 0, iface, prop).Store(&v)

	return v, err
}

func (s *systemBus) Close() error {
	return s.conn.Close()
}
