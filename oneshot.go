package quietcool

import (
	"context"

	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

type (
	// Fan is a controller found by Scan.
	Fan = oneshot.Fan

	// ScanResult lists the fans found by Scan.
	ScanResult = oneshot.ScanResult

	// PairResult is the outcome of Pair.
	PairResult = oneshot.PairResult
)

// ErrAddressRequired is returned by Pair without a fan address.
var ErrAddressRequired = oneshot.ErrAddressRequired

// Scan discovers nearby fans with a short-lived worker of its own. It never
// touches a shared Bridge, so it works while one is connected.
//
// Example:
//
//	result, err := quietcool.Scan(ctx, quietcool.WithScan(5*time.Second, 10*time.Second))
func Scan(ctx context.Context, opts ...Option) (*ScanResult, error) {
	options := applyOptions(opts)

	return oneshot.New(options.Logger, options).Scan(ctx)
}

// Pair pairs with the fan at address using a short-lived worker. The fan
// must be in pairing mode. An empty phoneID is generated.
func Pair(ctx context.Context, address, phoneID string, opts ...Option) (*PairResult, error) {
	options := applyOptions(opts)

	return oneshot.New(options.Logger, options).Pair(ctx, address, phoneID)
}

// GenerateID returns a new random phone ID for pairing.
func GenerateID() (string, error) {
	return oneshot.GenerateID()
}
