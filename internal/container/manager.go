package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jbweber/hyperkit/internal/client"
	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/naming"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
)

const tracerName = "hyperkit/container"

// Options configures a Manager.
type Options struct {
	// PollInterval is the delay between operation polls. Zero means
	// operation.DefaultPollInterval.
	PollInterval time.Duration

	// Timeout bounds every Wait. Zero waits until the caller's context is done.
	Timeout time.Duration

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger

	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Manager manages the containers of one control plane instance.
type Manager struct {
	client       restClient
	ops          operationTracker
	pollInterval time.Duration
	timeout      time.Duration
	log          logrus.FieldLogger
	tracer       trace.Tracer
}

// NewManager returns a Manager that sends requests through c and tracks
// operations with tracker.
func NewManager(c *client.Client, tracker *operation.Tracker, opts Options) *Manager {
	return newManagerWithDeps(c, tracker, opts)
}

// newManagerWithDeps builds a Manager from interfaces so tests can inject
// mocks.
func newManagerWithDeps(c restClient, ops operationTracker, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = operation.DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return &Manager{
		client:       c,
		ops:          ops,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		log:          opts.Logger,
		tracer:       opts.Tracer,
	}
}

// List returns the names of all containers.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	var paths []string
	if err := m.client.QueryStruct(ctx, http.MethodGet, naming.ContainersPath(), nil, &paths); err != nil {
		return nil, annotate(err, "failed to list containers")
	}
	return naming.NamesFromPaths(paths), nil
}

// Get returns the container record.
func (m *Manager) Get(ctx context.Context, name string) (*restapi.Container, error) {
	c := &restapi.Container{}
	if err := m.client.QueryStruct(ctx, http.MethodGet, naming.ContainerPath(name), nil, c); err != nil {
		return nil, annotate(err, "failed to get container %s", name)
	}
	return c, nil
}

// State returns the container's runtime state.
func (m *Manager) State(ctx context.Context, name string) (*restapi.ContainerState, error) {
	s := &restapi.ContainerState{}
	if err := m.client.QueryStruct(ctx, http.MethodGet, naming.ContainerStatePath(name), nil, s); err != nil {
		return nil, annotate(err, "failed to get state of container %s", name)
	}
	return s, nil
}

// Profiles returns the names of the profiles known to the server. Every call
// reads a fresh listing.
func (m *Manager) Profiles(ctx context.Context) ([]string, error) {
	var paths []string
	if err := m.client.QueryStruct(ctx, http.MethodGet, naming.ProfilesPath(), nil, &paths); err != nil {
		return nil, annotate(err, "failed to list profiles")
	}
	return naming.NamesFromPaths(paths), nil
}

// Wait blocks until the operation behind h is terminal, bounded by the
// manager's timeout.
func (m *Manager) Wait(ctx context.Context, h operation.Handle) (*restapi.Operation, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.ops.AwaitContext(ctx, h, m.pollInterval)
}

// WaitID is Wait for an operation known only by its id.
func (m *Manager) WaitID(ctx context.Context, id string) (*restapi.Operation, error) {
	return m.Wait(ctx, operation.Handle{ID: id, Path: naming.OperationPath(id)})
}

// submit sends a mutating request and logs the created operation.
func (m *Manager) submit(ctx context.Context, method, path string, body any, log logrus.FieldLogger) (operation.Handle, error) {
	h, err := m.ops.Submit(ctx, method, path, body)
	if err != nil {
		return operation.Handle{}, err
	}
	log.WithField("operation", h.ID).Debug("operation created")
	return h, nil
}

// annotate prefixes errors the server classified with what was being done.
// Transport errors are returned untouched.
func annotate(err error, format string, args ...any) error {
	if !errdefs.Classified(err) {
		return err
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func (m *Manager) startSpan(ctx context.Context, name, container string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("container.name", container)))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
