package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatContainer formats a single Container as JSON.
func (f *JSONFormatter) FormatContainer(c *v1alpha1.Container) (string, error) {
	v1alpha1.SetDefaultAPIVersion(c)
	return marshalIndent(c, "container")
}

// FormatContainerList formats a list of Containers as a List object:
//
//	{
//	  "apiVersion": "hyperkit.cofront.xyz/v1alpha1",
//	  "kind": "ContainerList",
//	  "items": [...]
//	}
func (f *JSONFormatter) FormatContainerList(cs []*v1alpha1.Container) (string, error) {
	for _, c := range cs {
		v1alpha1.SetDefaultAPIVersion(c)
	}
	if cs == nil {
		cs = []*v1alpha1.Container{}
	}

	return marshalIndent(map[string]any{
		"apiVersion": v1alpha1.APIVersion(),
		"kind":       v1alpha1.ContainerKind + "List",
		"items":      cs,
	}, "container list")
}

// FormatOperation formats an operation as JSON.
func (f *JSONFormatter) FormatOperation(op *restapi.Operation) (string, error) {
	return marshalIndent(op, "operation")
}

func marshalIndent(v any, what string) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return buf.String(), nil
}

func asMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return out, nil
}
