package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
)

// LogLevelEnvVar is the worker's verbosity setting.
const LogLevelEnvVar = "QUIETCOOL_LOG_LEVEL"

// BuildArgs constructs the interpreter arguments for the worker.
// Stdout is unbuffered so every protocol line is flushed as it is written.
func BuildArgs(worker *Worker) []string {
	return []string{"-u", worker.Script}
}

// BuildEnvironment constructs the environment variables for the worker process.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	level := options.LogLevel
	if level == "" {
		level = config.DefaultLogLevel
	}

	env = append(env, LogLevelEnvVar+"="+level)
	env = append(env, "PYTHONUNBUFFERED=1")

	// Sorted so the spawned environment is deterministic
	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}
