package oneshot

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ErrAddressRequired is returned by Pair without a fan address.
var ErrAddressRequired = stderrors.New("address is required")

// Fan is a QuietCool controller found during a scan.
type Fan struct {
	Address string `json:"address" mapstructure:"address"`
	Name    string `json:"name" mapstructure:"name"`
	RSSI    int    `json:"rssi" mapstructure:"rssi"`
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	Fans []Fan `json:"fans" mapstructure:"fans"`
}

// PairResult is the outcome of a pairing attempt. Paired is false when the
// fan was not in pairing mode; Message then tells the user what to do.
type PairResult struct {
	Paired  bool   `json:"paired" mapstructure:"paired"`
	PhoneID string `json:"phone_id" mapstructure:"phone_id"`
	Message string `json:"message,omitempty" mapstructure:"message"`
	Error   string `json:"error,omitempty" mapstructure:"error"`
}

// Scan discovers nearby fans.
func (c *Client) Scan(ctx context.Context) (*ScanResult, error) {
	args := map[string]any{"timeout": c.options.ScanDuration.Seconds()}

	c.log.Info("Scanning for fans", "duration", c.options.ScanDuration)

	data, err := c.Run(ctx, IDScan, "scan", args, c.options.ScanTimeout)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Fans: []Fan{}}
	if err := decode(data, result); err != nil {
		return nil, fmt.Errorf("decode scan result: %w", err)
	}

	c.log.Info("Scan complete", "fans", len(result.Fans))

	return result, nil
}

// Pair pairs with the fan at address. The fan must be in pairing mode.
// An empty phoneID is replaced with a freshly generated one.
func (c *Client) Pair(ctx context.Context, address, phoneID string) (*PairResult, error) {
	if address == "" {
		return nil, ErrAddressRequired
	}

	if phoneID == "" {
		id, err := GenerateID()
		if err != nil {
			return nil, err
		}

		phoneID = id
	}

	args := map[string]any{"address": address, "phone_id": phoneID}

	c.log.Info("Pairing with fan", "address", address)

	data, err := c.Run(ctx, IDPair, "pair", args, c.options.PairTimeout)
	if err != nil {
		return nil, err
	}

	result := &PairResult{}
	if err := decode(data, result); err != nil {
		return nil, fmt.Errorf("decode pair result: %w", err)
	}

	if result.PhoneID == "" {
		result.PhoneID = phoneID
	}

	return result, nil
}

// GenerateID returns a new random phone id of 16 hex characters.
func GenerateID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate phone id: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

func decode(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(data)
}
