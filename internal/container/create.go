package container

import (
	"context"
	"net/http"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/naming"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
	"github.com/jbweber/hyperkit/internal/source"
)

// Spec describes a container to create.
type Spec struct {
	Name         string
	Architecture string
	Profiles     []string
	Ephemeral    bool

	// Config values are coerced to strings before they are sent.
	Config  map[string]any
	Devices map[string]map[string]string

	// Source is required; build it with source.Resolve.
	Source source.Descriptor
}

// Writable is the replaceable part of a container record.
type Writable struct {
	Architecture string
	Config       map[string]any
	Devices      map[string]map[string]string
	Ephemeral    bool
	Profiles     []string
}

// CopyOptions override what a copy inherits from its source container.
type CopyOptions struct {
	Architecture string
	Profiles     []string
	Ephemeral    bool
	Config       map[string]any
}

// Create submits the creation of a container.
func (m *Manager) Create(ctx context.Context, spec Spec) (h operation.Handle, err error) {
	ctx, span := m.startSpan(ctx, "container.Create", spec.Name)
	defer func() { endSpan(span, err) }()

	if spec.Source == nil {
		return operation.Handle{}, errdefs.Invalid(errdefs.ErrImageIdentifierRequired, "source", "")
	}

	log := m.log.WithFields(logrus.Fields{"container": spec.Name, "source": spec.Source.Type()})
	log.Info("Creating container")

	body := restapi.ContainersPost{
		Name:         spec.Name,
		Architecture: spec.Architecture,
		Profiles:     spec.Profiles,
		Ephemeral:    spec.Ephemeral,
		Config:       restapi.StringMap(spec.Config),
		Devices:      spec.Devices,
		Source:       spec.Source.ContainerSource(),
	}

	h, err = m.submit(ctx, http.MethodPost, naming.ContainersPath(), body, log)
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to create container %s", spec.Name)
	}
	return h, nil
}

// Copy submits a copy of src named dst on the same server. The copy is not
// ephemeral unless opts says so.
func (m *Manager) Copy(ctx context.Context, src, dst string, opts CopyOptions) (h operation.Handle, err error) {
	ctx, span := m.startSpan(ctx, "container.Copy", dst)
	defer func() { endSpan(span, err) }()

	log := m.log.WithFields(logrus.Fields{"container": dst, "source": src})
	log.Info("Copying container")

	body := restapi.ContainersPost{
		Name:         dst,
		Architecture: opts.Architecture,
		Profiles:     opts.Profiles,
		Ephemeral:    opts.Ephemeral,
		Config:       restapi.StringMap(opts.Config),
		Source:       source.Copy{Container: src}.ContainerSource(),
	}

	h, err = m.submit(ctx, http.MethodPost, naming.ContainersPath(), body, log)
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to copy container %s to %s", src, dst)
	}
	return h, nil
}

// Update submits a replacement of the container's writable fields.
func (m *Manager) Update(ctx context.Context, name string, w Writable) (operation.Handle, error) {
	body := restapi.ContainerPut{
		Architecture: w.Architecture,
		Config:       restapi.StringMap(w.Config),
		Devices:      w.Devices,
		Ephemeral:    w.Ephemeral,
		Profiles:     w.Profiles,
	}
	if body.Config == nil {
		body.Config = map[string]string{}
	}
	if body.Devices == nil {
		body.Devices = map[string]map[string]string{}
	}

	h, err := m.submit(ctx, http.MethodPut, naming.ContainerPath(name), body, m.log.WithField("container", name))
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to update container %s", name)
	}
	return h, nil
}

// SetConfig merges values into the container's config and submits the
// update. Keys mapped to nil are removed.
func (m *Manager) SetConfig(ctx context.Context, name string, values map[string]any) (operation.Handle, error) {
	c, err := m.Get(ctx, name)
	if err != nil {
		return operation.Handle{}, err
	}

	config := lo.Assign(lo.MapValues(c.Config, func(v string, _ string) any { return v }), values)
	config = lo.OmitBy(config, func(_ string, v any) bool { return v == nil })

	w := c.Writable()
	return m.Update(ctx, name, Writable{
		Architecture: w.Architecture,
		Config:       config,
		Devices:      w.Devices,
		Ephemeral:    w.Ephemeral,
		Profiles:     w.Profiles,
	})
}

// Delete submits the removal of a stopped container. The server refuses to
// delete running containers.
func (m *Manager) Delete(ctx context.Context, name string) (operation.Handle, error) {
	h, err := m.submit(ctx, http.MethodDelete, naming.ContainerPath(name), nil, m.log.WithField("container", name))
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to delete container %s", name)
	}
	return h, nil
}

// Rename submits renaming a stopped container.
func (m *Manager) Rename(ctx context.Context, name, newName string) (operation.Handle, error) {
	log := m.log.WithFields(logrus.Fields{"container": name, "new_name": newName})
	h, err := m.submit(ctx, http.MethodPost, naming.ContainerPath(name), restapi.ContainerPost{Name: newName}, log)
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to rename container %s", name)
	}
	return h, nil
}
