package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/hyperkit/internal/client"
	"github.com/jbweber/hyperkit/internal/operation"
)

const (
	// LocalRemote is the name of the built-in remote for the local socket.
	LocalRemote = "local"

	// DefaultTimeout bounds how long mutating commands wait for their
	// operation.
	DefaultTimeout = 5 * time.Minute
)

// Config is the client configuration, usually ~/.config/hyperkit/config.yaml.
type Config struct {
	DefaultRemote string             `yaml:"defaultRemote"`
	Remotes       map[string]*Remote `yaml:"remotes"`
	Operations    Operations         `yaml:"operations"`
	Log           Log                `yaml:"log"`
}

// Remote describes how to reach one control plane.
type Remote struct {
	// Address is unix:///path or https://host:port.
	Address            string `yaml:"address"`
	ClientCert         string `yaml:"clientCert,omitempty"`
	ClientKey          string `yaml:"clientKey,omitempty"`
	ServerCert         string `yaml:"serverCert,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty"`
}

// Operations controls how operations are awaited.
type Operations struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Log configures the CLI logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

var remoteNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Default returns the configuration used when no file exists: a single
// local remote on the default unix socket.
func Default() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in defaults and lowercases names.
func (c *Config) Normalize() {
	if c.Remotes == nil {
		c.Remotes = make(map[string]*Remote)
	}
	if _, ok := c.Remotes[LocalRemote]; !ok {
		c.Remotes[LocalRemote] = &Remote{Address: "unix://" + client.DefaultSocket}
	}

	c.DefaultRemote = strings.ToLower(strings.TrimSpace(c.DefaultRemote))
	if c.DefaultRemote == "" {
		c.DefaultRemote = LocalRemote
	}

	if c.Operations.PollInterval == 0 {
		c.Operations.PollInterval = operation.DefaultPollInterval
	}
	if c.Operations.Timeout == 0 {
		c.Operations.Timeout = DefaultTimeout
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration for errors. It does not contact any
// remote.
func (c *Config) Validate() error {
	if _, ok := c.Remotes[c.DefaultRemote]; !ok {
		return fmt.Errorf("defaultRemote: unknown remote %q", c.DefaultRemote)
	}

	for _, name := range c.RemoteNames() {
		if !remoteNamePattern.MatchString(name) {
			return fmt.Errorf("remotes.%s: name must be lowercase alphanumeric, hyphens or underscores", name)
		}
		if err := c.Remotes[name].Validate(); err != nil {
			return fmt.Errorf("remotes.%s: %w", name, err)
		}
	}

	if c.Operations.PollInterval <= 0 {
		return fmt.Errorf("operations.pollInterval must be > 0, got %s", c.Operations.PollInterval)
	}
	if c.Operations.Timeout < 0 {
		return fmt.Errorf("operations.timeout must be >= 0, got %s", c.Operations.Timeout)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// Validate checks one remote.
func (r *Remote) Validate() error {
	if r == nil {
		return errors.New("remote is empty")
	}
	switch {
	case strings.HasPrefix(r.Address, "unix://"):
		if r.ClientCert != "" || r.ClientKey != "" || r.ServerCert != "" {
			return errors.New("certificates are only valid for https remotes")
		}
	case strings.HasPrefix(r.Address, "https://"):
		if (r.ClientCert == "") != (r.ClientKey == "") {
			return errors.New("clientCert and clientKey must be set together")
		}
	default:
		return fmt.Errorf("address must start with unix:// or https://, got %q", r.Address)
	}
	return nil
}

// RemoteNames returns the configured remote names, sorted.
func (c *Config) RemoteNames() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remote looks up a remote by name. An empty name means the default remote.
func (c *Config) Remote(name string) (string, *Remote, error) {
	if name == "" {
		name = c.DefaultRemote
	}
	r, ok := c.Remotes[name]
	if !ok {
		return "", nil, fmt.Errorf("unknown remote %q (known: %s)", name, strings.Join(c.RemoteNames(), ", "))
	}
	return name, r, nil
}

// ClientOptions converts a remote into connection options. Certificate
// paths starting with ~/ are expanded.
func (r *Remote) ClientOptions(log logrus.FieldLogger) (client.Options, error) {
	opts := client.Options{
		Address:            r.Address,
		InsecureSkipVerify: r.InsecureSkipVerify,
		Logger:             log,
	}

	var err error
	if opts.ClientCert, err = expandHome(r.ClientCert); err != nil {
		return client.Options{}, err
	}
	if opts.ClientKey, err = expandHome(r.ClientKey); err != nil {
		return client.Options{}, err
	}
	if opts.ServerCert, err = expandHome(r.ServerCert); err != nil {
		return client.Options{}, err
	}
	return opts, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// DefaultPath returns ~/.config/hyperkit/config.yaml, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".hyperkit", "config.yaml")
	}
	return filepath.Join(dir, "hyperkit", "config.yaml")
}

// LoadFromFile loads the client configuration from a YAML file. A missing
// file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, normalizes and validates configuration YAML.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
