package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override the configuration file.
const (
	EnvRemote       = "HYPERKIT_REMOTE"
	EnvLogLevel     = "HYPERKIT_LOG_LEVEL"
	EnvPollInterval = "HYPERKIT_POLL_INTERVAL"
	EnvTimeout      = "HYPERKIT_TIMEOUT"
)

// LoadEnv reads overrides from the process environment and, for variables
// the environment does not set, from the given dotenv files. Missing dotenv
// files are skipped.
func LoadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)

	for _, file := range files {
		values, err := godotenv.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			if _, seen := env[k]; !seen {
				env[k] = v
			}
		}
	}

	for _, key := range []string{EnvRemote, EnvLogLevel, EnvPollInterval, EnvTimeout} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	return env, nil
}

// ApplyEnv applies overrides to c and validates the result.
func (c *Config) ApplyEnv(env map[string]string) error {
	if v := strings.TrimSpace(env[EnvRemote]); v != "" {
		c.DefaultRemote = strings.ToLower(v)
	}
	if v := strings.TrimSpace(env[EnvLogLevel]); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(env[EnvPollInterval]); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		c.Operations.PollInterval = d
	}
	if v := strings.TrimSpace(env[EnvTimeout]); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Operations.Timeout = d
	}

	return c.Validate()
}
