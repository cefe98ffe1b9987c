package container

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/naming"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/restapi"
	"github.com/jbweber/hyperkit/internal/source"
)

const (
	volatilePrefix   = "volatile."
	baseImageKey     = "volatile.base_image"
	secretControl    = "control"
	secretFilesystem = "fs"
	secretCRIU       = "criu"
)

// MigrationSource is what a target server needs to pull a container from the
// server it lives on. It is produced by InitMigration on the source server.
type MigrationSource struct {
	// Name is the container's name on the source server.
	Name string

	// Migration carries the websocket URL, secrets and certificate of the
	// source's migration operation.
	Migration source.Migration

	Architecture string
	Ephemeral    bool
	Profiles     []string
	Config       map[string]string

	// BaseImage is the source's volatile.base_image, if any.
	BaseImage string
}

// MigrateOptions override what a migrated container inherits from its
// source.
type MigrateOptions struct {
	Architecture string

	// Ephemeral overrides the source's flag when non-nil.
	Ephemeral *bool

	Profiles []string

	// Config replaces the source's config entirely when non-nil.
	Config map[string]any

	// Certificate overrides the certificate published by the source server.
	Certificate string

	// Move keeps the source's volatile.* keys. A copy drops them so the
	// new container gets its own identity.
	Move bool
}

// InitMigration prepares name for migration on this server and returns
// everything a target needs to pull it. The migration operation stays
// pending on this server until a target connects or it expires.
func (m *Manager) InitMigration(ctx context.Context, name string) (src *MigrationSource, err error) {
	ctx, span := m.startSpan(ctx, "container.InitMigration", name)
	defer func() { endSpan(span, err) }()

	log := m.log.WithField("container", name)

	// Step 1: Ask the source server for a migration operation
	log.Info("Initializing migration")
	h, err := m.submit(ctx, http.MethodPost, naming.ContainerPath(name), restapi.ContainerPost{Migration: true}, log)
	if err != nil {
		return nil, annotate(err, "failed to initialize migration of %s", name)
	}

	// Step 2: Read the container's current spec
	c, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	// Step 3: Read the certificate the target will pin
	cert, err := m.client.Certificate(ctx)
	if err != nil {
		return nil, annotate(err, "failed to read source certificate")
	}

	var metadata map[string]any
	if h.Operation != nil {
		metadata = h.Operation.Metadata
	}
	secrets := restapi.StringMap(lo.PickByKeys(metadata, []string{secretControl, secretFilesystem, secretCRIU}))

	log.WithField("operation", h.ID).Debug("Migration source ready")
	return &MigrationSource{
		Name: c.Name,
		Migration: source.Migration{
			Operation:   m.client.URL(h.Path),
			Secrets:     source.SecretsFromMap(secrets),
			Certificate: cert,
		},
		Architecture: c.Architecture,
		Ephemeral:    c.Ephemeral,
		Profiles:     c.Profiles,
		Config:       c.Config,
		BaseImage:    c.Config[baseImageKey],
	}, nil
}

// Migrate submits the creation of targetName on this server by pulling src.
// The target's profile listing is read fresh on every call, and any profile
// the new container would need that is missing fails the call before
// anything is submitted.
func (m *Manager) Migrate(ctx context.Context, src *MigrationSource, targetName string, opts MigrateOptions) (h operation.Handle, err error) {
	ctx, span := m.startSpan(ctx, "container.Migrate", targetName)
	defer func() { endSpan(span, err) }()

	if src == nil {
		return operation.Handle{}, fmt.Errorf("migration source is required")
	}

	log := m.log.WithFields(logrus.Fields{"container": targetName, "source": src.Name})

	// Step 1: Check profiles against the target's current listing
	body := buildMigrationRequest(src, targetName, opts)
	available, err := m.Profiles(ctx)
	if err != nil {
		return operation.Handle{}, err
	}
	if missing := lo.Without(body.Profiles, available...); len(missing) > 0 {
		return operation.Handle{}, errdefs.MissingProfiles(missing)
	}

	// Step 2: Submit the creation on the target
	log.Info("Migrating container")
	h, err = m.submit(ctx, http.MethodPost, naming.ContainersPath(), body, log)
	if err != nil {
		return operation.Handle{}, annotate(err, "failed to migrate container %s", src.Name)
	}
	return h, nil
}

// buildMigrationRequest applies opts over the source's spec.
func buildMigrationRequest(src *MigrationSource, targetName string, opts MigrateOptions) restapi.ContainersPost {
	architecture := src.Architecture
	if opts.Architecture != "" {
		architecture = opts.Architecture
	}

	ephemeral := src.Ephemeral
	if opts.Ephemeral != nil {
		ephemeral = *opts.Ephemeral
	}

	profiles := src.Profiles
	if opts.Profiles != nil {
		profiles = opts.Profiles
	}

	var config map[string]string
	switch {
	case opts.Config != nil:
		config = restapi.StringMap(opts.Config)
	case opts.Move:
		config = lo.Assign(src.Config)
	default:
		config = lo.OmitBy(src.Config, func(k string, _ string) bool {
			return strings.HasPrefix(k, volatilePrefix)
		})
	}

	migration := src.Migration
	if opts.Certificate != "" {
		migration.Certificate = opts.Certificate
	}

	return restapi.ContainersPost{
		Name:         targetName,
		Architecture: architecture,
		Profiles:     profiles,
		Ephemeral:    ephemeral,
		Config:       config,
		Source:       migration.ContainerSource(),
		BaseImage:    src.BaseImage,
	}
}
