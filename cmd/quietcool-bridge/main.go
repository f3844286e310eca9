// Command quietcool-bridge bridges QuietCool attic fans over Bluetooth LE.
package main

import (
	"fmt"
	"os"

	"github.com/wagiedev/quietcool-bridge-go/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
