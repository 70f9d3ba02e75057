// Package config holds the environment parsing and fatal-exit helpers
// shared by the Sokoni binaries. All settings come from SOKONI_* variables
// declared as env tags on each binary's config struct.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the process environment using its env tags.
// Struct defaults apply when a variable is unset.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	return nil
}

// Exitf prints a formatted message to stderr and stops the process with
// status 1. Entry points use it for errors that make startup pointless.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
