package container

import (
	"context"
	"time"

	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// restClient defines the REST calls needed for container management.
//
// In production, this is satisfied by *client.Client.
// In tests, this is satisfied by mock implementations.
type restClient interface {
	// QueryStruct sends a request and decodes the response metadata into target
	QueryStruct(ctx context.Context, method, path string, body, target any) error

	// Certificate returns the certificate the server publishes in GET /1.0
	Certificate(ctx context.Context) (string, error)

	// URL returns the absolute URL of an API path on the server
	URL(path string) string
}

// operationTracker defines the operation calls needed for container
// management.
//
// In production, this is satisfied by *operation.Tracker.
// In tests, this is satisfied by mock implementations.
type operationTracker interface {
	// Submit sends an action and returns the handle of the operation it created
	Submit(ctx context.Context, method, path string, body any) (operation.Handle, error)

	// AwaitContext polls an operation until it is terminal or ctx is done
	AwaitContext(ctx context.Context, h operation.Handle, pollInterval time.Duration) (*restapi.Operation, error)
}
