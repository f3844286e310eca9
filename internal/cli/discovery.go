package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
)

const (
	// MinimumPythonVersion is the oldest interpreter the bridge worker supports.
	MinimumPythonVersion = "3.9.0"

	// VersionCheckTimeout is the timeout for the interpreter version check.
	VersionCheckTimeout = 2 * time.Second

	// ScriptEnvVar overrides the bridge script location.
	ScriptEnvVar = "QUIETCOOL_BRIDGE_SCRIPT"

	// SkipVersionCheckEnvVar disables the interpreter version check when set.
	SkipVersionCheckEnvVar = "QUIETCOOL_SKIP_VERSION_CHECK"
)

var pythonVersionRe = regexp.MustCompile(`Python ([0-9]+\.[0-9]+\.[0-9]+)`)

// Config holds configuration for worker discovery.
type Config struct {
	// PythonPath is an explicit interpreter path that skips PATH search.
	PythonPath string

	// BridgeScript is an explicit bridge.py path that skips the search.
	BridgeScript string

	// SkipVersionCheck skips interpreter version validation.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Worker is a located worker: interpreter plus script.
type Worker struct {
	Python string
	Script string
}

// Discoverer locates the bridge worker.
type Discoverer interface {
	// Discover locates the interpreter and bridge script.
	Discover(ctx context.Context) (*Worker, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new worker discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the interpreter and bridge script.
func (d *discoverer) Discover(ctx context.Context) (*Worker, error) {
	d.log.Debug("Discovering bridge worker")

	python, err := d.findPython()
	if err != nil {
		d.log.Error("Failed to find Python interpreter", "error", err)

		return nil, err
	}

	script, err := d.findScript()
	if err != nil {
		d.log.Error("Failed to find bridge script", "error", err)

		return nil, err
	}

	d.log.Debug("Found bridge worker", "python", python, "script", script)

	d.checkVersion(ctx, python)

	return &Worker{Python: python, Script: script}, nil
}

func (d *discoverer) findPython() (string, error) {
	if d.cfg.PythonPath != "" {
		if _, err := os.Stat(d.cfg.PythonPath); err == nil {
			return d.cfg.PythonPath, nil
		}

		return "", &errors.WorkerNotFoundError{SearchedPaths: []string{d.cfg.PythonPath}}
	}

	if path, err := exec.LookPath("python3"); err == nil {
		return path, nil
	}

	searched := []string{"$PATH"}

	for _, path := range []string{"/usr/local/bin/python3", "/usr/bin/python3"} {
		searched = append(searched, path)

		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	d.log.Warn("Python interpreter not found in any searched paths", "searched_paths", searched)

	return "", &errors.WorkerNotFoundError{SearchedPaths: searched}
}

func (d *discoverer) findScript() (string, error) {
	if d.cfg.BridgeScript != "" {
		if _, err := os.Stat(d.cfg.BridgeScript); err == nil {
			return d.cfg.BridgeScript, nil
		}

		return "", &errors.WorkerNotFoundError{SearchedPaths: []string{d.cfg.BridgeScript}}
	}

	candidates := make([]string, 0, 5)

	if env := os.Getenv(ScriptEnvVar); env != "" {
		candidates = append(candidates, env)
	}

	candidates = append(candidates,
		filepath.Join("python", "bridge.py"),
		"/usr/local/share/quietcool/bridge.py",
		"/usr/share/quietcool/bridge.py",
	)

	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".local/share/quietcool/bridge.py"))
	}

	for _, path := range candidates {
		d.log.Debug("Checking bridge script path", "path", path)

		if _, err := os.Stat(path); err == nil {
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				return path, nil
			}

			return abs, nil
		}
	}

	return "", &errors.WorkerNotFoundError{SearchedPaths: candidates}
}

// checkVersion logs a warning when the interpreter is older than
// MinimumPythonVersion. Errors are silently ignored.
func (d *discoverer) checkVersion(ctx context.Context, python string) {
	if d.cfg.SkipVersionCheck {
		d.log.Debug("Skipping Python version check (configured)")

		return
	}

	if os.Getenv(SkipVersionCheckEnvVar) != "" {
		d.log.Debug("Skipping Python version check (QUIETCOOL_SKIP_VERSION_CHECK set)")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, python, "--version").CombinedOutput()
	if err != nil {
		d.log.Debug("Python version check failed", "error", err)

		return
	}

	version, ok := ParsePythonVersion(string(output))
	if !ok {
		d.log.Debug("Could not parse Python version", "output", strings.TrimSpace(string(output)))

		return
	}

	if compareVersions(version, MinimumPythonVersion) < 0 {
		d.log.Warn("Python version is unsupported by the bridge worker",
			"version", version,
			"minimum_required", MinimumPythonVersion,
		)
	}
}

// ParsePythonVersion extracts "X.Y.Z" from `python --version` output.
func ParsePythonVersion(output string) (string, bool) {
	match := pythonVersionRe.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}

	return match[1], true
}

// compareVersions compares two semantic versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		aNum := 0
		bNum := 0

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		if aNum < bNum {
			return -1
		}

		if aNum > bNum {
			return 1
		}
	}

	return 0
}
