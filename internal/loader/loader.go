// Package loader reads and writes Container manifests.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/cloudinit"
	"github.com/jbweber/hyperkit/internal/naming"
	"github.com/jbweber/hyperkit/internal/source"
)

// LoadFromFile loads a Container manifest from a YAML file.
// The file must be in the hyperkit.cofront.xyz/v1alpha1 format.
func LoadFromFile(path string) (*v1alpha1.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads a Container manifest from YAML bytes.
func LoadFromYAML(data []byte) (*v1alpha1.Container, error) {
	var c v1alpha1.Container
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if c.APIVersion == "" {
		return nil, fmt.Errorf("missing required field: apiVersion")
	}
	if c.Kind == "" {
		return nil, fmt.Errorf("missing required field: kind")
	}
	if c.APIVersion != v1alpha1.APIVersion() {
		return nil, fmt.Errorf("unsupported apiVersion: %s (expected: %s)", c.APIVersion, v1alpha1.APIVersion())
	}
	if c.Kind != v1alpha1.ContainerKind {
		return nil, fmt.Errorf("unsupported kind: %s (expected: %s)", c.Kind, v1alpha1.ContainerKind)
	}

	applyDefaults(&c)

	if err := validateSpec(&c); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &c, nil
}

// SaveToFile writes a Container manifest as YAML.
func SaveToFile(c *v1alpha1.Container, path string) error {
	v1alpha1.SetDefaultAPIVersion(c)

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal container to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// SourceOptions converts the manifest's source block into resolver options.
func SourceOptions(s v1alpha1.SourceSpec) source.Options {
	return source.Options{
		Alias:       s.Alias,
		Fingerprint: s.Fingerprint,
		Properties:  s.Properties,
		Empty:       s.Empty,
		Server:      s.Server,
		Protocol:    s.Protocol,
		Secret:      s.Secret,
		Certificate: s.Certificate,
	}
}

func applyDefaults(c *v1alpha1.Container) {
	c.Normalize()

	if c.Spec.Profiles == nil {
		c.Spec.Profiles = []string{"default"}
	}
	if c.Generation == 0 {
		c.Generation = 1
	}
	if c.Status.Phase == "" {
		c.Status.Phase = v1alpha1.PhasePending
	}
}

func validateSpec(c *v1alpha1.Container) error {
	if err := naming.ValidateContainerName(c.Name); err != nil {
		return fmt.Errorf("metadata.name: %w", err)
	}

	if _, err := source.Resolve(SourceOptions(c.Spec.Source)); err != nil {
		return fmt.Errorf("spec.source: %w", err)
	}

	for i, p := range c.Spec.Profiles {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("spec.profiles[%d] must not be empty", i)
		}
	}

	for name, attrs := range c.Spec.Devices {
		if attrs["type"] == "" {
			return fmt.Errorf("spec.devices.%s.type is required", name)
		}
	}

	for key := range c.Spec.Config {
		if key == cloudinit.UserDataKey || key == cloudinit.MetaDataKey {
			if c.Spec.CloudInit != nil {
				return fmt.Errorf("spec.config.%s conflicts with spec.cloudInit", key)
			}
		}
	}

	if c.Spec.CloudInit != nil {
		if err := cloudinit.ValidateSSHKeys(c.Spec.CloudInit.SSHAuthorizedKeys); err != nil {
			return fmt.Errorf("spec.cloudInit: %w", err)
		}
		if h := c.Spec.CloudInit.PasswordHash; h != "" && (len(h) < 10 || h[0] != '$') {
			return fmt.Errorf("spec.cloudInit.passwordHash must be a valid crypt hash (should start with $)")
		}
	}

	return nil
}
