// Package restapi contains the JSON wire types of the control plane's REST API.
//
// Field names and tags follow the server's /1.0 API. These types carry no
// behavior beyond small conversion helpers; validation lives in the packages
// that build them.
package restapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// APIVersion is the path prefix of every endpoint.
const APIVersion = "/1.0"

// ResponseType is the type field of a response envelope.
type ResponseType string

const (
	ResponseSync  ResponseType = "sync"
	ResponseAsync ResponseType = "async"
	ResponseError ResponseType = "error"
)

// Response is the envelope wrapping every API response.
type Response struct {
	Type       ResponseType `json:"type"`
	Status     string       `json:"status,omitempty"`
	StatusCode int          `json:"status_code,omitempty"`

	// Operation is the operation URL of an async response.
	Operation string `json:"operation,omitempty"`

	// Error and ErrorCode are set on error responses.
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`

	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// MetadataAsOperation decodes the metadata of an async response.
func (r *Response) MetadataAsOperation() (*Operation, error) {
	op := &Operation{}
	if err := json.Unmarshal(r.Metadata, op); err != nil {
		return nil, fmt.Errorf("failed to decode operation metadata: %w", err)
	}
	return op, nil
}

// MetadataAsStringSlice decodes list metadata (resource paths).
func (r *Response) MetadataAsStringSlice() ([]string, error) {
	var out []string
	if len(r.Metadata) == 0 || string(r.Metadata) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(r.Metadata, &out); err != nil {
		return nil, fmt.Errorf("failed to decode list metadata: %w", err)
	}
	return out, nil
}

// MetadataAs decodes the metadata into target.
func (r *Response) MetadataAs(target any) error {
	if len(r.Metadata) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Metadata, target); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}
	return nil
}

// OperationStatus is the status of a server-side operation.
type OperationStatus string

const (
	OperationPending   OperationStatus = "Pending"
	OperationRunning   OperationStatus = "Running"
	OperationSuccess   OperationStatus = "Success"
	OperationFailure   OperationStatus = "Failure"
	OperationCancelled OperationStatus = "Cancelled"
)

// IsTerminal reports whether no further transition will happen.
func (s OperationStatus) IsTerminal() bool {
	return s == OperationSuccess || s == OperationFailure || s == OperationCancelled
}

// Operation is a server-tracked asynchronous unit of work.
type Operation struct {
	ID          string              `json:"id"`
	Class       string              `json:"class,omitempty"`
	Description string              `json:"description,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Status      OperationStatus     `json:"status"`
	StatusCode  int                 `json:"status_code"`
	Resources   map[string][]string `json:"resources,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	MayCancel   bool                `json:"may_cancel"`
	Err         string              `json:"err,omitempty"`
}

// Container is a container record as returned by GET /1.0/containers/<name>.
type Container struct {
	Name            string                       `json:"name"`
	Architecture    string                       `json:"architecture"`
	Config          map[string]string            `json:"config"`
	Devices         map[string]map[string]string `json:"devices"`
	Ephemeral       bool                         `json:"ephemeral"`
	Profiles        []string                     `json:"profiles"`
	Stateful        bool                         `json:"stateful"`
	Status          string                       `json:"status,omitempty"`
	StatusCode      int                          `json:"status_code,omitempty"`
	CreatedAt       time.Time                    `json:"created_at"`
	ExpandedConfig  map[string]string            `json:"expanded_config,omitempty"`
	ExpandedDevices map[string]map[string]string `json:"expanded_devices,omitempty"`
}

// Writable returns the PUT body that replaces the container's writable fields.
func (c *Container) Writable() ContainerPut {
	return ContainerPut{
		Architecture: c.Architecture,
		Config:       c.Config,
		Devices:      c.Devices,
		Ephemeral:    c.Ephemeral,
		Profiles:     c.Profiles,
	}
}

// ContainerState is returned by GET /1.0/containers/<name>/state.
type ContainerState struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Pid        int64  `json:"pid"`
}

// ContainerPut is the body of PUT /1.0/containers/<name>.
type ContainerPut struct {
	Architecture string                       `json:"architecture,omitempty"`
	Config       map[string]string            `json:"config"`
	Devices      map[string]map[string]string `json:"devices"`
	Ephemeral    bool                         `json:"ephemeral"`
	Profiles     []string                     `json:"profiles"`
}

// ContainerPost is the body of POST /1.0/containers/<name> (rename or
// migration init).
type ContainerPost struct {
	Name      string `json:"name,omitempty"`
	Migration bool   `json:"migration,omitempty"`
}

// ContainerStatePut is the body of PUT /1.0/containers/<name>/state.
type ContainerStatePut struct {
	Action   string `json:"action"`
	Timeout  int    `json:"timeout"`
	Force    bool   `json:"force"`
	Stateful bool   `json:"stateful"`
}

// ContainersPost is the body of POST /1.0/containers.
type ContainersPost struct {
	Name         string                       `json:"name"`
	Architecture string                       `json:"architecture,omitempty"`
	Profiles     []string                     `json:"profiles,omitzero"`
	Ephemeral    bool                         `json:"ephemeral"`
	Config       map[string]string            `json:"config,omitempty"`
	Devices      map[string]map[string]string `json:"devices,omitempty"`
	Source       ContainerSource              `json:"source"`
	BaseImage    string                       `json:"base-image,omitempty"`
}

// Source types.
const (
	SourceImage     = "image"
	SourceNone      = "none"
	SourceCopy      = "copy"
	SourceMigration = "migration"
)

// ModePull is the only transfer mode the client requests.
const ModePull = "pull"

// ContainerSource describes how the server materializes a new container.
type ContainerSource struct {
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`

	// Image sources.
	Alias       string            `json:"alias,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	Server      string            `json:"server,omitempty"`
	Protocol    string            `json:"protocol,omitempty"`
	Secret      string            `json:"secret,omitempty"`

	// Image and migration sources.
	Certificate string `json:"certificate,omitempty"`

	// Copy sources.
	Source string `json:"source,omitempty"`

	// Migration sources.
	Operation string            `json:"operation,omitempty"`
	Secrets   map[string]string `json:"secrets,omitempty"`
}

// Profile names a profile known to the server. Only the name is consumed.
type Profile struct {
	Name string `json:"name"`
}

// ServerInfo is the subset of GET /1.0 used to check connectivity.
type ServerInfo struct {
	APIVersion    string            `json:"api_version"`
	Auth          string            `json:"auth"`
	APIExtensions []string          `json:"api_extensions,omitempty"`
	Environment   map[string]any    `json:"environment,omitempty"`
	Config        map[string]string `json:"config,omitempty"`
}

// StringMap coerces config values to strings. Integral floats render
// without a fractional part so values decoded from JSON keep their shape.
func StringMap(in map[string]any) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
