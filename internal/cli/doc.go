// Package cli provides worker discovery and command building for the
// QuietCool BLE bridge worker (a Python script speaking line-delimited JSON).
//
// # Worker Discovery
//
// The Discoverer interface locates the Python interpreter and bridge script:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    PythonPath:   "",      // Optional explicit interpreter
//	    BridgeScript: "",      // Optional explicit bridge.py
//	    Logger:       slog.Default(),
//	})
//	worker, err := discoverer.Discover(ctx)
//
// The interpreter is searched in the following order:
//  1. Explicit path in Config.PythonPath (if provided)
//  2. python3 in the system PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin)
//
// The script is searched in the following order:
//  1. Explicit path in Config.BridgeScript (if provided)
//  2. The QUIETCOOL_BRIDGE_SCRIPT environment variable
//  3. ./python/bridge.py, then the shared data directories
//
// # Version Validation
//
// During discovery, the interpreter version is validated against
// MinimumPythonVersion. A warning is logged if the version is below minimum.
//
// # Command Building
//
//	args := cli.BuildArgs(worker)
//	env := cli.BuildEnvironment(options)
package cli
