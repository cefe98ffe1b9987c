package client

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/restapi"
	"github.com/jbweber/hyperkit/internal/testserver"
)

func newTestClient(t *testing.T, srv *testserver.Server) *Client {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c, err := Connect(Options{Address: srv.URL, HTTPClient: srv.Client(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnectWithContext_Ping(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	c, err := ConnectWithContext(context.Background(), Options{Address: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, c.Close())
	}()

	assert.Equal(t, srv.URL, c.Address())
	assert.Len(t, srv.RequestsTo(http.MethodGet, "/1.0"), 1)
}

func TestConnectWithContext_Cancellation(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithContext(ctx, Options{Address: srv.URL, HTTPClient: srv.Client()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
}

func TestConnect_InvalidSocket(t *testing.T) {
	c, err := Connect(Options{Address: "unix:///nonexistent/socket", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	err = c.Ping(context.Background())
	require.Error(t, err)

	// Transport failures are not part of the API error taxonomy.
	var opErr *errdefs.OperationError
	assert.False(t, errors.As(err, &opErr))
}

func TestConnect_MismatchedClientCertificate(t *testing.T) {
	_, err := Connect(Options{Address: "https://127.0.0.1:8443", ClientCert: "client.crt"})
	require.Error(t, err)
}

func TestConnect_UnreadableServerCertificate(t *testing.T) {
	_, err := Connect(Options{Address: "https://127.0.0.1:8443", ServerCert: "/nonexistent/server.crt"})
	require.Error(t, err)
}

func TestConnect_ServerCertificateWithoutPEM(t *testing.T) {
	path := t.TempDir() + "/server.crt"
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := Connect(Options{Address: "https://127.0.0.1:8443", ServerCert: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificates")
}

func TestClient_URL(t *testing.T) {
	c, err := Connect(Options{Address: "https://10.0.0.5:8443/"})
	require.NoError(t, err)
	assert.Equal(t, "https://10.0.0.5:8443/1.0/operations/abc", c.URL("/1.0/operations/abc"))

	local, err := Connect(Options{})
	require.NoError(t, err)
	assert.Equal(t, "/1.0/operations/abc", local.URL("/1.0/operations/abc"))
	assert.Equal(t, "unix://"+DefaultSocket, local.Address())
}

func TestClient_Certificate(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCertificate("PEM-DATA")

	c := newTestClient(t, srv)
	cert, err := c.Certificate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PEM-DATA", cert)
}

func TestClient_QueryNotFound(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Query(context.Background(), http.MethodGet, "/1.0/containers/missing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestClient_QueryStructDecodesMetadata(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.AddContainer(restapi.Container{Name: "web1", Architecture: "x86_64"}, testserver.StatusStopped)

	c := newTestClient(t, srv)

	var ct restapi.Container
	require.NoError(t, c.QueryStruct(context.Background(), http.MethodGet, "/1.0/containers/web1", nil, &ct))
	assert.Equal(t, "web1", ct.Name)
	assert.Equal(t, "x86_64", ct.Architecture)
}

func TestClient_DoSendsRequestID(t *testing.T) {
	ts := testserver.New()
	defer ts.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c, err := Connect(Options{Address: ts.URL, HTTPClient: ts.Client(), Logger: logger})
	require.NoError(t, err)

	status, body, err := c.Do(context.Background(), http.MethodGet, "/1.0", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	got, _ := entry.Data["request_id"].(string)
	assert.Len(t, got, 26, "expected a ULID request id")
	assert.Equal(t, "/1.0", entry.Data["path"])
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantMessage string
	}{
		{
			name:   "sync success",
			status: 200,
			body:   `{"type":"sync","status":"Success","status_code":200,"metadata":{}}`,
		},
		{
			name:   "async accepted",
			status: 202,
			body:   `{"type":"async","status":"Operation created","status_code":100,"operation":"/1.0/operations/x","metadata":{"id":"x"}}`,
		},
		{
			name:        "error envelope with 400",
			status:      400,
			body:        `{"type":"error","error":"container is running","error_code":400}`,
			wantErr:     errdefs.ErrBadRequest,
			wantMessage: "container is running",
		},
		{
			name:        "conflict maps to bad request",
			status:      409,
			body:        `{"type":"error","error":"already exists","error_code":409}`,
			wantErr:     errdefs.ErrBadRequest,
			wantMessage: "already exists",
		},
		{
			name:    "forbidden",
			status:  403,
			body:    `{"type":"error","error":"not authorized","error_code":403}`,
			wantErr: errdefs.ErrForbidden,
		},
		{
			name:        "server error without json",
			status:      502,
			body:        `<html>bad gateway</html>`,
			wantErr:     errdefs.ErrServer,
			wantMessage: "Bad Gateway",
		},
		{
			name:    "malformed success body",
			status:  200,
			body:    `not json`,
			wantErr: errdefs.ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse(tt.status, []byte(tt.body))
			if tt.wantErr == nil {
				require.NoError(t, err)
				require.NotNil(t, resp)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)

			var opErr *errdefs.OperationError
			require.True(t, errors.As(err, &opErr))
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, opErr.Message)
			}
		})
	}
}
