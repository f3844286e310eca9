package quietcool

import "github.com/wagiedev/quietcool-bridge-go/internal/config"

// Transport is a connection to one bridge worker.
// Implement this to provide custom transports for testing or for workers
// that do not run as a local subprocess.
//
// The default implementation spawns bridge.py with python3. Custom
// transports can be injected with WithTransportFactory.
type Transport = config.Transport

// TransportFactory creates a fresh Transport for every worker spawn.
type TransportFactory = config.TransportFactory
