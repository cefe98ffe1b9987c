package container

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/cloudinit"
	"github.com/jbweber/hyperkit/internal/loader"
	"github.com/jbweber/hyperkit/internal/metadata"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
	"github.com/jbweber/hyperkit/internal/source"
	"github.com/jbweber/hyperkit/internal/status"
)

const hwaddrKey = "volatile.eth0.hwaddr"

// SpecFromManifest converts a manifest into a create request. Cloud-init
// seed data and the manifest itself are written into user.* config keys.
func SpecFromManifest(c *v1alpha1.Container) (Spec, error) {
	desc, err := source.Resolve(loader.SourceOptions(c.Spec.Source))
	if err != nil {
		return Spec{}, err
	}

	config := lo.Assign(c.Spec.Config)
	if c.Spec.CloudInit != nil {
		seed, err := cloudinit.Render(c.Name, c.Spec.CloudInit)
		if err != nil {
			return Spec{}, fmt.Errorf("failed to render cloud-init for %s: %w", c.Name, err)
		}
		config = lo.Assign(config, seed)
	}
	if err := metadata.Store(config, c); err != nil {
		return Spec{}, fmt.Errorf("failed to store manifest for %s: %w", c.Name, err)
	}

	return Spec{
		Name:         c.Name,
		Architecture: c.Spec.Architecture,
		Profiles:     c.Spec.Profiles,
		Ephemeral:    c.Spec.Ephemeral,
		Config:       lo.MapValues(config, func(v string, _ string) any { return v }),
		Devices:      c.Spec.Devices,
		Source:       desc,
	}, nil
}

// CreateFromManifest submits the creation of the container a manifest
// describes and moves the manifest to Creating.
func (m *Manager) CreateFromManifest(ctx context.Context, c *v1alpha1.Container) (operation.Handle, error) {
	spec, err := SpecFromManifest(c)
	if err != nil {
		return operation.Handle{}, err
	}

	h, err := m.Create(ctx, spec)
	if err != nil {
		status.MarkFailed(c, err)
		return operation.Handle{}, err
	}

	if err := status.TransitionToCreating(c, h.ID); err != nil {
		return h, err
	}
	if c.Spec.CloudInit != nil {
		status.MarkCloudInitConfigured(c)
	}
	return h, nil
}

// Describe returns the container as a manifest with its status filled from
// the server.
func (m *Manager) Describe(ctx context.Context, name string) (*v1alpha1.Container, error) {
	rec, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	state, err := m.State(ctx, name)
	if err != nil {
		return nil, err
	}

	c, err := ToResource(rec, state)
	if err != nil {
		m.log.WithField("container", name).WithError(err).Warn("Ignoring unreadable manifest")
	}
	return c, nil
}

// ToResource builds a manifest from a server record. When the record
// carries a stored manifest its metadata and source are used; otherwise
// the source is the base image fingerprint. A stored manifest that cannot
// be parsed is reported but does not prevent the conversion.
func ToResource(rec *restapi.Container, state *restapi.ContainerState) (*v1alpha1.Container, error) {
	c, loadErr := metadata.Load(rec)
	if loadErr != nil {
		c = &v1alpha1.Container{ObjectMeta: v1alpha1.ObjectMeta{Name: rec.Name}}
		if rec.Config[baseImageKey] != "" {
			c.Spec.Source = v1alpha1.SourceSpec{Fingerprint: rec.Config[baseImageKey]}
		}
	}
	if errors.Is(loadErr, metadata.ErrNoManifest) {
		loadErr = nil
	}

	v1alpha1.SetDefaultAPIVersion(c)
	c.Name = rec.Name
	c.CreationTimestamp = v1alpha1.NewTime(rec.CreatedAt)

	c.Spec.Architecture = rec.Architecture
	c.Spec.Profiles = rec.Profiles
	c.Spec.Ephemeral = rec.Ephemeral
	c.Spec.Devices = rec.Devices
	c.Spec.Config = userConfig(rec.Config, c.Spec.CloudInit != nil)

	c.Status.BaseImage = rec.Config[baseImageKey]
	c.Status.HardwareAddress = rec.Config[hwaddrKey]
	status.SetCondition(c, v1alpha1.ConditionCreated, v1alpha1.ConditionTrue, "Created", "container exists on the server")
	if rec.Config[cloudinit.UserDataKey] != "" {
		status.MarkCloudInitConfigured(c)
	}

	if state != nil {
		status.Observe(c, state.Status, state.StatusCode, state.Pid)
	} else {
		status.Observe(c, rec.Status, rec.StatusCode, 0)
	}
	c.UpdateObservedGeneration()

	return c, loadErr
}

// userConfig drops the keys hyperkit or the server manage from config.
// Cloud-init seeds are dropped only when the manifest renders them.
func userConfig(config map[string]string, renderedCloudInit bool) map[string]string {
	managed := []string{metadata.ManifestKey, metadata.UIDKey}
	if renderedCloudInit {
		managed = append(managed, cloudinit.UserDataKey, cloudinit.MetaDataKey)
	}
	return lo.OmitBy(lo.OmitByKeys(config, managed), func(k, _ string) bool {
		return strings.HasPrefix(k, volatilePrefix)
	})
}
