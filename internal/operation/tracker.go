// Package operation submits asynchronous actions to the control plane and
// drives them to a terminal state by polling.
//
// Submit sends one request and returns a Handle for the operation the server
// created. Await and AwaitContext poll GET /1.0/operations/<id> until the
// operation is Success, Failure or Cancelled:
//
//	h, err := tracker.Submit(ctx, http.MethodPut, naming.ContainerStatePath("web1"), body)
//	if err != nil {
//	    return err
//	}
//	op, err := tracker.AwaitContext(ctx, h, 500*time.Millisecond)
//
// Failure maps to errdefs.ErrBadRequest carrying the server's message,
// Cancelled to errdefs.ErrCancelled, and an expired deadline to
// errdefs.ErrTimeout. A timed out wait does not cancel the server-side
// operation. Awaiting a handle that already finished costs one read and
// returns the same result.
package operation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/naming"
	"github.com/jbweber/hyperkit/internal/restapi"
)

const (
	// DefaultPollInterval is used when a zero interval is passed to Await.
	DefaultPollInterval = 500 * time.Millisecond

	tracerName = "hyperkit/operation"
)

// Querier is the subset of *client.Client the tracker needs.
type Querier interface {
	Query(ctx context.Context, method, path string, body any) (*restapi.Response, error)
}

// Handle identifies a submitted operation.
type Handle struct {
	// ID is the server's operation id.
	ID string
	// Path is the operation's resource path, /1.0/operations/<id>.
	Path string
	// Operation is the operation as returned by the submission call.
	Operation *restapi.Operation
}

// Tracker submits and awaits operations against one control plane.
type Tracker struct {
	client  Querier
	log     logrus.FieldLogger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithMetrics records submissions and waits in m.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithTracer sets the tracer. The default is the global provider's tracer.
func WithTracer(tr trace.Tracer) Option {
	return func(t *Tracker) { t.tracer = tr }
}

// New returns a Tracker that talks to the server through c.
func New(c Querier, opts ...Option) *Tracker {
	t := &Tracker{
		client: c,
		log:    logrus.StandardLogger(),
		tracer: otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit sends an action and returns the handle of the operation it created.
// HTTP and API errors are returned as errdefs errors; the request is not
// retried.
func (t *Tracker) Submit(ctx context.Context, method, path string, body any) (Handle, error) {
	resp, err := t.client.Query(ctx, method, path, body)
	if err != nil {
		t.metrics.submitted(method, false)
		return Handle{}, err
	}
	if resp.Type != restapi.ResponseAsync {
		t.metrics.submitted(method, false)
		return Handle{}, &errdefs.OperationError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("expected an async response from %s %s, got %q", method, path, resp.Type),
			Err:        errdefs.ErrServer,
		}
	}

	op, err := resp.MetadataAsOperation()
	if err != nil {
		t.metrics.submitted(method, false)
		return Handle{}, &errdefs.OperationError{Message: err.Error(), Err: errdefs.ErrServer}
	}

	h := Handle{ID: op.ID, Path: resp.Operation, Operation: op}
	if h.ID == "" {
		h.ID = naming.NameFromPath(resp.Operation)
	}
	if h.Path == "" {
		h.Path = naming.OperationPath(h.ID)
	}

	t.metrics.submitted(method, true)
	t.log.WithFields(logrus.Fields{
		"operation": h.ID,
		"method":    method,
		"path":      path,
	}).Debug("operation submitted")
	return h, nil
}

// Get reads the current state of an operation.
func (t *Tracker) Get(ctx context.Context, id string) (*restapi.Operation, error) {
	op := &restapi.Operation{}
	resp, err := t.client.Query(ctx, http.MethodGet, naming.OperationPath(id), nil)
	if err != nil {
		return nil, err
	}
	if err := resp.MetadataAs(op); err != nil {
		return nil, &errdefs.OperationError{OperationID: id, Message: err.Error(), Err: errdefs.ErrServer}
	}
	return op, nil
}

// Await blocks until the operation is terminal or timeout elapses. A zero
// timeout waits indefinitely.
func (t *Tracker) Await(h Handle, pollInterval, timeout time.Duration) (*restapi.Operation, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return t.AwaitContext(ctx, h, pollInterval)
}

// errRunning marks a poll that found the operation still in progress.
var errRunning = errors.New("operation still running")

// AwaitContext blocks until the operation is terminal or ctx is done. On
// Success the terminal operation is returned; every other outcome is an error.
func (t *Tracker) AwaitContext(ctx context.Context, h Handle, pollInterval time.Duration) (*restapi.Operation, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ctx, span := t.tracer.Start(ctx, "operation.Await", trace.WithAttributes(
		attribute.String("operation.id", h.ID),
	))
	defer span.End()

	log := t.log.WithField("operation", h.ID)
	start := time.Now()
	polls := 0

	var last *restapi.Operation
	poll := func() error {
		polls++
		op, err := t.Get(ctx, h.ID)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = op
		if !op.Status.IsTerminal() {
			return errRunning
		}
		return nil
	}
	notify := func(_ error, next time.Duration) {
		log.WithField("next_poll", next.String()).Debug("operation still running")
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx)
	err := backoff.RetryNotify(poll, b, notify)
	span.SetAttributes(attribute.Int("operation.polls", polls))

	if ctxErr := ctx.Err(); err != nil && ctxErr != nil && (errors.Is(err, errRunning) || errors.Is(err, ctxErr)) {
		err = t.contextError(h, ctxErr)
	}
	if err == nil {
		err = terminalError(last)
	}

	outcome := outcomeOf(last, err)
	t.metrics.awaited(outcome, time.Since(start))
	span.SetAttributes(attribute.String("operation.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).WithField("outcome", outcome).Debug("operation did not succeed")
		return nil, err
	}

	log.WithField("duration", time.Since(start).String()).Debug("operation succeeded")
	return last, nil
}

func (t *Tracker) contextError(h Handle, ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", &errdefs.OperationError{
			OperationID: h.ID,
			Message:     "operation did not reach a terminal state before the deadline",
			Err:         errdefs.ErrTimeout,
		}, ctxErr)
	}
	return fmt.Errorf("stopped waiting for operation %s: %w", h.ID, ctxErr)
}

// terminalError maps a terminal operation to its error, nil for Success.
func terminalError(op *restapi.Operation) error {
	if op == nil {
		return nil
	}
	switch op.Status {
	case restapi.OperationFailure:
		return &errdefs.OperationError{
			OperationID: op.ID,
			StatusCode:  op.StatusCode,
			Message:     op.Err,
			Err:         errdefs.ErrBadRequest,
		}
	case restapi.OperationCancelled:
		return &errdefs.OperationError{
			OperationID: op.ID,
			StatusCode:  op.StatusCode,
			Message:     op.Err,
			Err:         errdefs.ErrCancelled,
		}
	}
	return nil
}
