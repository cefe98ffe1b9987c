// Package v1alpha1 contains the manifest types of hyperkit.cofront.xyz/v1alpha1.
//
// Manifests follow Kubernetes resource conventions (apiVersion, kind,
// metadata, spec, status) so they read like other declarative tooling, but
// nothing here depends on k8s.io packages. A manifest is a client-side
// description: the server only ever sees the container record derived from
// it.
package v1alpha1

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// TypeMeta identifies the schema of a manifest.
type TypeMeta struct {
	// Kind is the resource kind, "Container".
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// APIVersion is GroupName/Version.
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
}

// ObjectMeta is the metadata a manifest carries. Labels, annotations and the
// UID are persisted in the container's user.hyperkit.* config keys so they
// survive round trips through the server.
type ObjectMeta struct {
	// Name is the container name on the remote.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`

	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`

	// CreationTimestamp is the server's created_at once the container exists.
	CreationTimestamp Time `json:"creationTimestamp,omitzero" yaml:"creationTimestamp,omitempty"`

	// UID is assigned when the manifest is first created.
	UID string `json:"uid,omitempty" yaml:"uid,omitempty"`

	// ResourceVersion is opaque to hyperkit and kept for tooling.
	ResourceVersion string `json:"resourceVersion,omitempty" yaml:"resourceVersion,omitempty"`

	// Generation is bumped on every spec change made through hyperkit.
	Generation int64 `json:"generation,omitempty" yaml:"generation,omitempty"`
}

// Time is a timestamp in a manifest. It is written in UTC as RFC3339 with
// the fractional seconds the server reported, and as null when zero.
type Time struct {
	time.Time `json:"-" yaml:"-"`
}

// NewTime returns t as a manifest timestamp.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// Now returns the current time as a manifest timestamp.
func Now() Time {
	return NewTime(time.Now())
}

func (t Time) text() string {
	return t.UTC().Format(time.RFC3339Nano)
}

// set parses s, treating the empty string and "null" as the zero time.
func (t *Time) set(s string) error {
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.text())
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", b, err)
	}
	if s == nil {
		return t.set("")
	}
	return t.set(*s)
}

func (t Time) MarshalYAML() (any, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.text(), nil
}

func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: timestamp must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		return t.set("")
	}
	return t.set(node.Value)
}

// Condition is one observation about a container, keyed by Type. Conditions
// only live in status, so they are never stored on the server.
type Condition struct {
	Type   string          `json:"type" yaml:"type"`
	Status ConditionStatus `json:"status" yaml:"status"`

	// ObservedGeneration is the manifest generation the condition was
	// recorded against.
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`

	// LastTransitionTime changes only when Status changes.
	LastTransitionTime Time `json:"lastTransitionTime,omitzero" yaml:"lastTransitionTime,omitempty"`

	// Reason is a CamelCase identifier such as NotFound or Timeout.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Message is the detail, usually the server's error text.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConditionStatus is True, False or Unknown.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// DeepCopy creates a deep copy of ObjectMeta.
func (in *ObjectMeta) DeepCopy() *ObjectMeta {
	if in == nil {
		return nil
	}
	out := new(ObjectMeta)
	*out = *in

	out.Labels = copyStringMap(in.Labels)
	out.Annotations = copyStringMap(in.Annotations)
	return out
}
