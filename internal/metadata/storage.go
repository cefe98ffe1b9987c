// Package metadata persists Container manifests on the server itself, in a
// user.* config key of the container record. The server ignores user.* keys,
// so the manifest travels with the container through copies and
// migrations without any external storage.
package metadata

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/restapi"
)

const (
	// ManifestKey is the config key holding the YAML manifest.
	ManifestKey = "user.hyperkit.manifest"

	// UIDKey duplicates the manifest UID so it can be read with a plain
	// config lookup.
	UIDKey = "user.hyperkit.uid"
)

// ErrNoManifest is returned by Load when the container was not created by
// hyperkit.
var ErrNoManifest = errors.New("container has no hyperkit manifest")

// Store serializes the manifest (without status) into config, replacing any
// previous manifest. config must be non-nil.
func Store(config map[string]string, c *v1alpha1.Container) error {
	if c == nil {
		return errors.New("container manifest is nil")
	}
	if config == nil {
		return errors.New("config map is nil")
	}

	stored := c.DeepCopy()
	stored.Status = v1alpha1.ContainerStatus{}
	// The manifest must not embed itself.
	delete(stored.Spec.Config, ManifestKey)
	delete(stored.Spec.Config, UIDKey)

	data, err := yaml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal container manifest to YAML: %w", err)
	}

	config[ManifestKey] = string(data)
	if c.UID != "" {
		config[UIDKey] = c.UID
	}
	return nil
}

// Load reads the manifest stored on a container record. The returned
// manifest has an empty status.
func Load(rec *restapi.Container) (*v1alpha1.Container, error) {
	if !Exists(rec) {
		return nil, ErrNoManifest
	}

	var c v1alpha1.Container
	if err := yaml.Unmarshal([]byte(rec.Config[ManifestKey]), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal container manifest from YAML: %w", err)
	}
	if c.Name == "" {
		// A renamed container keeps the manifest of its old name.
		c.Name = rec.Name
	}
	return &c, nil
}

// Update bumps the manifest generation and stores it again.
func Update(config map[string]string, c *v1alpha1.Container) error {
	c.Generation++
	return Store(config, c)
}

// Delete removes the hyperkit keys from config.
func Delete(config map[string]string) {
	delete(config, ManifestKey)
	delete(config, UIDKey)
}

// Exists reports whether rec carries a hyperkit manifest.
func Exists(rec *restapi.Container) bool {
	if rec == nil {
		return false
	}
	_, ok := rec.Config[ManifestKey]
	return ok
}
