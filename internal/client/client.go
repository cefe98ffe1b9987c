package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/hyperkit/internal/restapi"
)

const (
	// DefaultSocket is the local control plane's unix socket.
	DefaultSocket = "/var/lib/lxd/unix.socket"

	// defaultTimeout bounds connection establishment.
	defaultTimeout = 5 * time.Second

	// requestIDHeader carries a per-request id for log correlation.
	requestIDHeader = "X-Request-Id"
)

// Options configures a connection to a control plane.
type Options struct {
	// Address is either unix:///path/to/socket or https://host:port.
	// Empty means the default unix socket.
	Address string

	// ClientCert and ClientKey are PEM file paths used for TLS client
	// authentication against https remotes.
	ClientCert string
	ClientKey  string

	// ServerCert is a PEM file pinning the remote's certificate. When empty
	// the system roots are used.
	ServerCert string

	// InsecureSkipVerify disables server certificate verification.
	InsecureSkipVerify bool

	// Timeout bounds dialing. Zero means 5 seconds.
	Timeout time.Duration

	// Logger receives request-level debug logs. Nil means the logrus
	// standard logger.
	Logger logrus.FieldLogger

	// HTTPClient overrides the transport built from the options above.
	HTTPClient *http.Client
}

// Client talks to one control plane instance over HTTP.
//
// A Client is safe for concurrent use; it holds no per-request state.
type Client struct {
	http    *http.Client
	baseURL string
	remote  string
	log     logrus.FieldLogger
}

// Connect builds a client for opts. It does not send any request; use Ping
// or ConnectWithContext to verify the server is reachable.
func Connect(opts Options) (*Client, error) {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	address := opts.Address
	if address == "" {
		address = "unix://" + DefaultSocket
	}

	httpClient := opts.HTTPClient
	baseURL := address
	if strings.HasPrefix(address, "unix://") {
		socketPath := strings.TrimPrefix(address, "unix://")
		if socketPath == "" {
			socketPath = DefaultSocket
		}
		if httpClient == nil {
			httpClient = &http.Client{Transport: unixTransport(socketPath, opts.Timeout)}
		}
		baseURL = "http://unix.socket"
	} else if httpClient == nil {
		transport, err := tlsTransport(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS for %s: %w", address, err)
		}
		httpClient = &http.Client{Transport: transport}
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		remote:  address,
		log:     opts.Logger,
	}, nil
}

// ConnectWithContext builds a client and pings the server, honoring ctx.
func ConnectWithContext(ctx context.Context, opts Options) (*Client, error) {
	c, err := Connect(opts)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Close releases idle connections. It is safe to call Close multiple times.
func (c *Client) Close() error {
	if c.http != nil {
		c.http.CloseIdleConnections()
	}
	return nil
}

// Address returns the remote address the client was built for.
func (c *Client) Address() string {
	return c.remote
}

// URL returns the absolute URL of an API path on this server.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(c.remote, "unix://") {
		return path
	}
	return c.baseURL + path
}

// Ping verifies the server answers GET /1.0.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ServerInfo(ctx); err != nil {
		return fmt.Errorf("control plane at %s is not reachable: %w", c.remote, err)
	}
	return nil
}

// ServerInfo returns GET /1.0.
func (c *Client) ServerInfo(ctx context.Context) (*restapi.ServerInfo, error) {
	info := &restapi.ServerInfo{}
	if err := c.QueryStruct(ctx, http.MethodGet, restapi.APIVersion, nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Certificate returns the server's certificate as reported in GET /1.0, or
// an empty string when the server does not publish one.
func (c *Client) Certificate(ctx context.Context) (string, error) {
	info, err := c.ServerInfo(ctx)
	if err != nil {
		return "", err
	}
	cert, _ := info.Environment["certificate"].(string)
	return cert, nil
}

// Do sends one request and returns the raw status and body. Errors are
// transport failures only; HTTP error statuses are returned as-is.
func (c *Client) Do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := ulid.Make().String()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"request_id": requestID,
		"duration":   time.Since(start).String(),
	}).Debug("control plane request")

	return resp.StatusCode, data, nil
}

// Query sends a request and decodes the response envelope. HTTP and API
// errors are mapped into errdefs errors; transport errors are returned
// unwrapped.
func (c *Client) Query(ctx context.Context, method, path string, body any) (*restapi.Response, error) {
	status, data, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return ParseResponse(status, data)
}

// QueryStruct sends a request and decodes its metadata into target.
func (c *Client) QueryStruct(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.Query(ctx, method, path, body)
	if err != nil {
		return err
	}
	return resp.MetadataAs(target)
}
