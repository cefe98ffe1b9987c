package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatContainer formats a single Container as YAML.
func (f *YAMLFormatter) FormatContainer(c *v1alpha1.Container) (string, error) {
	v1alpha1.SetDefaultAPIVersion(c)

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal container to YAML: %w", err)
	}

	return string(data), nil
}

// FormatContainerList formats a list of Containers as a YAML stream
// (documents separated by ---).
func (f *YAMLFormatter) FormatContainerList(cs []*v1alpha1.Container) (string, error) {
	var buf bytes.Buffer

	for i, c := range cs {
		v1alpha1.SetDefaultAPIVersion(c)

		data, err := yaml.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to marshal container %s to YAML: %w", c.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}

// FormatOperation formats an operation as YAML. Field names follow the
// wire format.
func (f *YAMLFormatter) FormatOperation(op *restapi.Operation) (string, error) {
	// Round-trip through the JSON shape so YAML keys match the server's.
	fields, err := asMap(op)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal operation to YAML: %w", err)
	}
	return string(data), nil
}
