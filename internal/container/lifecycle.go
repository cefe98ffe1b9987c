package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jbweber/hyperkit/internal/naming"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// Action is a lifecycle action accepted by PUT /1.0/containers/<name>/state.
type Action string

const (
	ActionStart    Action = "start"
	ActionStop     Action = "stop"
	ActionRestart  Action = "restart"
	ActionFreeze   Action = "freeze"
	ActionUnfreeze Action = "unfreeze"
)

// Actions lists every lifecycle action.
var Actions = []Action{ActionStart, ActionStop, ActionRestart, ActionFreeze, ActionUnfreeze}

// ParseAction returns the Action named s.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle action %q", s)
}

// StateOptions are passed to the server verbatim with every action.
type StateOptions struct {
	// Timeout is how many seconds the server waits for a graceful
	// completion.
	Timeout int
	// Force skips the graceful shutdown.
	Force bool
	// Stateful preserves process state across stop and start.
	Stateful bool
}

// maxConcurrentActions bounds ApplyAll.
const maxConcurrentActions = 8

// SubmitAction submits action without waiting for it. The container's current
// state is not checked; the server decides whether the transition is legal.
func (m *Manager) SubmitAction(ctx context.Context, name string, action Action, opts StateOptions) (operation.Handle, error) {
	body := restapi.ContainerStatePut{
		Action:   string(action),
		Timeout:  opts.Timeout,
		Force:    opts.Force,
		Stateful: opts.Stateful,
	}
	log := m.log.WithFields(logrus.Fields{"container": name, "action": action})

	h, err := m.submit(ctx, http.MethodPut, naming.ContainerStatePath(name), body, log)
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to %s container %s", action, name)
	}
	return h, nil
}

// Apply submits action and waits for it to finish.
func (m *Manager) Apply(ctx context.Context, name string, action Action, opts StateOptions) (err error) {
	ctx, span := m.startSpan(ctx, "container.Apply", name)
	span.SetAttributes(attribute.String("container.action", string(action)))
	defer func() { endSpan(span, err) }()

	h, err := m.SubmitAction(ctx, name, action, opts)
	if err != nil {
		return err
	}
	if _, err := m.Wait(ctx, h); err != nil {
		return annotate(err, "failed to %s container %s", action, name)
	}

	m.log.WithFields(logrus.Fields{"container": name, "action": action}).Info("Lifecycle action completed")
	return nil
}

// Start starts a stopped container.
func (m *Manager) Start(ctx context.Context, name string, opts StateOptions) error {
	return m.Apply(ctx, name, ActionStart, opts)
}

// Stop stops a running or frozen container.
func (m *Manager) Stop(ctx context.Context, name string, opts StateOptions) error {
	return m.Apply(ctx, name, ActionStop, opts)
}

// Restart restarts a running container.
func (m *Manager) Restart(ctx context.Context, name string, opts StateOptions) error {
	return m.Apply(ctx, name, ActionRestart, opts)
}

// Freeze freezes a running container.
func (m *Manager) Freeze(ctx context.Context, name string, opts StateOptions) error {
	return m.Apply(ctx, name, ActionFreeze, opts)
}

// Unfreeze resumes a frozen container.
func (m *Manager) Unfreeze(ctx context.Context, name string, opts StateOptions) error {
	return m.Apply(ctx, name, ActionUnfreeze, opts)
}

// ApplyAll applies action to every named container concurrently and waits
// for all of them. A failure on one container does not stop the others; the
// returned error joins every failure.
func (m *Manager) ApplyAll(ctx context.Context, names []string, action Action, opts StateOptions) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(maxConcurrentActions)

	for _, name := range names {
		g.Go(func() error {
			if err := m.Apply(ctx, name, action, opts); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
