package quietcool

import (
	"github.com/wagiedev/quietcool-bridge-go/internal/admin"
	"github.com/wagiedev/quietcool-bridge-go/internal/bluez"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

// AdminServer serves the /quietcool/* HTTP endpoints.
type AdminServer = admin.Server

// NewAdminServer creates the HTTP admin surface over b. Call Open before
// serving so the server holds its own registration on b, and Close after.
// The adapter check inspects hci0 over the system D-Bus.
func NewAdminServer(b *Bridge, opts ...Option) *AdminServer {
	options := applyOptions(opts)

	cfg := admin.Config{
		Logger:     options.Logger,
		OneShot:    oneshot.New(options.Logger, options),
		Checker:    bluez.NewChecker(options.Logger, bluez.DefaultAdapter),
		FanAddress: options.Address,
	}

	if b != nil {
		cfg.Bridge = b
	}

	return admin.NewServer(cfg)
}
