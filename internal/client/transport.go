package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

// unixTransport dials socketPath for every request regardless of the URL
// host.
func unixTransport(socketPath string, timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout}
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
		DisableCompression: true,
		MaxIdleConns:       4,
		IdleConnTimeout:    30 * time.Second,
	}
}

// tlsTransport builds an HTTPS transport with optional client authentication
// and server certificate pinning.
func tlsTransport(opts Options) (*http.Transport, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in per remote
	}

	if opts.ClientCert != "" || opts.ClientKey != "" {
		if opts.ClientCert == "" || opts.ClientKey == "" {
			return nil, fmt.Errorf("client certificate and key must be set together")
		}
		pair, err := tls.LoadX509KeyPair(opts.ClientCert, opts.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	if opts.ServerCert != "" {
		pem, err := os.ReadFile(opts.ServerCert)
		if err != nil {
			return nil, fmt.Errorf("failed to read server certificate %s: %w", opts.ServerCert, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", opts.ServerCert)
		}
		cfg.RootCAs = pool
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     cfg,
		TLSHandshakeTimeout: opts.Timeout,
		MaxIdleConns:        4,
		IdleConnTimeout:     30 * time.Second,
	}, nil
}
