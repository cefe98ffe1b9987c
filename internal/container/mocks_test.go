package container

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// restCall records one request made through mockRestClient.
type restCall struct {
	Method string
	Path   string
	Body   any
}

// mockRestClient is a mock implementation of the restClient interface for testing.
type mockRestClient struct {
	mu sync.Mutex

	// Configurable behavior
	queryStructFunc func(method, path string, body, target any) error
	certificateFunc func() (string, error)
	urlFunc         func(path string) string

	// Call tracking
	queryStructCalls []restCall
	certificateCalls int
}

// newMockRestClient creates a new mock REST client with default behavior.
func newMockRestClient() *mockRestClient {
	m := &mockRestClient{}

	// Default: every request succeeds with empty metadata
	m.queryStructFunc = func(method, path string, body, target any) error {
		return nil
	}

	// Default: the server publishes a certificate
	m.certificateFunc = func() (string, error) {
		return "source-cert", nil
	}

	// Default: a remote reachable over HTTPS
	m.urlFunc = func(path string) string {
		return "https://source.example:8443" + path
	}

	return m
}

func (m *mockRestClient) QueryStruct(_ context.Context, method, path string, body, target any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryStructCalls = append(m.queryStructCalls, restCall{Method: method, Path: path, Body: body})
	return m.queryStructFunc(method, path, body, target)
}

func (m *mockRestClient) Certificate(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certificateCalls++
	return m.certificateFunc()
}

func (m *mockRestClient) URL(path string) string {
	return m.urlFunc(path)
}

// callsTo returns the recorded calls matching method and path.
func (m *mockRestClient) callsTo(method, path string) []restCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []restCall
	for _, c := range m.queryStructCalls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// respondWith stores v into target the way the client decodes metadata.
func respondWith(target, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// mockOperationTracker is a mock implementation of the operationTracker
// interface for testing.
type mockOperationTracker struct {
	mu sync.Mutex

	// Configurable behavior
	submitFunc func(method, path string, body any) (operation.Handle, error)
	awaitFunc  func(ctx context.Context, h operation.Handle, pollInterval time.Duration) (*restapi.Operation, error)

	// Call tracking
	submitCalls []restCall
	awaitCalls  []operation.Handle
}

// newMockOperationTracker creates a new mock tracker with default behavior.
func newMockOperationTracker() *mockOperationTracker {
	m := &mockOperationTracker{}

	// Default: every submission creates a running operation
	m.submitFunc = func(method, path string, body any) (operation.Handle, error) {
		id := fmt.Sprintf("op-%d", len(m.submitCalls))
		return operation.Handle{
			ID:        id,
			Path:      "/1.0/operations/" + id,
			Operation: &restapi.Operation{ID: id, Status: restapi.OperationRunning},
		}, nil
	}

	// Default: every operation succeeds
	m.awaitFunc = func(_ context.Context, h operation.Handle, _ time.Duration) (*restapi.Operation, error) {
		return &restapi.Operation{ID: h.ID, Status: restapi.OperationSuccess, StatusCode: 200}, nil
	}

	return m
}

func (m *mockOperationTracker) Submit(_ context.Context, method, path string, body any) (operation.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls = append(m.submitCalls, restCall{Method: method, Path: path, Body: body})
	return m.submitFunc(method, path, body)
}

func (m *mockOperationTracker) AwaitContext(ctx context.Context, h operation.Handle, pollInterval time.Duration) (*restapi.Operation, error) {
	m.mu.Lock()
	m.awaitCalls = append(m.awaitCalls, h)
	fn := m.awaitFunc
	m.mu.Unlock()
	return fn(ctx, h, pollInterval)
}
