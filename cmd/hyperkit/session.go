package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/hyperkit/internal/client"
	"github.com/jbweber/hyperkit/internal/config"
	"github.com/jbweber/hyperkit/internal/container"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/output"
)

// State shared by every command, set up once in setup.
var (
	cfg      *config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *operation.Metrics
)

func defaultConfigHint() string {
	return config.DefaultPath()
}

// setup loads the configuration, applies environment and flag overrides and
// builds the logger and metrics registry.
func setup(cmd *cobra.Command, _ []string) error {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	env, err := config.LoadEnv(".env")
	if err != nil {
		return err
	}
	if err := loaded.ApplyEnv(env); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Flags win over both the file and the environment.
	if logLevel != "" {
		loaded.Log.Level = strings.ToLower(logLevel)
	}
	if logFormat != "" {
		loaded.Log.Format = strings.ToLower(logFormat)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger, err = newLogger(cfg.Log)
	if err != nil {
		return err
	}

	registry = prometheus.NewRegistry()
	metrics, err = operation.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	return nil
}

func newLogger(c config.Log) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	l.SetLevel(level)

	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l, nil
}

// session is a connection to one remote.
type session struct {
	remote  string
	client  *client.Client
	manager *container.Manager
}

// connect opens a session to the named remote, or the default remote when
// name is empty.
func connect(ctx context.Context, name string) (*session, error) {
	name, remote, err := cfg.Remote(name)
	if err != nil {
		return nil, err
	}

	log := logger.WithField("remote", name)
	opts, err := remote.ClientOptions(log)
	if err != nil {
		return nil, err
	}

	c, err := client.ConnectWithContext(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote %s: %w", name, err)
	}

	tracker := operation.New(c, operation.WithLogger(log), operation.WithMetrics(metrics))
	mgr := container.NewManager(c, tracker, container.Options{
		PollInterval: cfg.Operations.PollInterval,
		Timeout:      cfg.Operations.Timeout,
		Logger:       log,
	})

	return &session{remote: name, client: c, manager: mgr}, nil
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close connection to %s: %v\n", s.remote, err)
	}
}

// finish waits for h unless --no-wait is set, in which case it prints the
// operation ID. done is printed after a successful wait.
func (s *session) finish(ctx context.Context, h operation.Handle, done string) error {
	if noWait {
		fmt.Printf("Operation: %s\n", h.ID)
		return nil
	}
	if _, err := s.manager.Wait(ctx, h); err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", done)
	return nil
}

func newFormatter() (output.Formatter, error) {
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

func writeMetrics() error {
	if metricsTextfile == "" || registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsTextfile, registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
