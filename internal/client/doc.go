// Package client is the HTTP transport for the control plane's REST API.
//
// It connects either to the local daemon over its unix socket or to a remote
// over HTTPS with TLS client authentication:
//
//	c, err := client.ConnectWithContext(ctx, client.Options{
//	    Address:    "https://10.0.0.5:8443",
//	    ClientCert: "client.crt",
//	    ClientKey:  "client.key",
//	})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
// Do is the raw request facility: it returns the HTTP status and body and
// fails only on transport errors. Query and QueryStruct decode the response
// envelope and map HTTP and API errors into the errdefs taxonomy, leaving
// transport errors unwrapped. Nothing is retried.
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces. Consumers (internal/operation,
// internal/container) declare the subset of methods they need and *Client
// satisfies them implicitly.
package client
