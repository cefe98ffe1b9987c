package source

import (
	"github.com/jbweber/hyperkit/internal/restapi"
)

// Descriptor tells the server how to materialize a new container. Exactly one
// of Image, Empty, Copy or Migration.
type Descriptor interface {
	// Type is the wire source type ("image", "none", "copy", "migration").
	Type() string

	// ContainerSource renders the descriptor as the request's source object.
	ContainerSource() restapi.ContainerSource

	isDescriptor()
}

// Remote is the image server an Image is pulled from.
type Remote struct {
	Server      string
	Protocol    string
	Secret      string
	Certificate string
}

// Image creates a container from an image identified by exactly one of
// Fingerprint, Alias or Properties.
type Image struct {
	Fingerprint string
	Alias       string
	Properties  map[string]string

	// Remote is nil for images local to the target server.
	Remote *Remote
}

func (Image) isDescriptor() {}

// Type implements Descriptor.
func (Image) Type() string { return restapi.SourceImage }

// ContainerSource implements Descriptor.
func (i Image) ContainerSource() restapi.ContainerSource {
	src := restapi.ContainerSource{
		Type:        restapi.SourceImage,
		Fingerprint: i.Fingerprint,
		Alias:       i.Alias,
		Properties:  i.Properties,
	}
	if i.Remote != nil {
		src.Mode = restapi.ModePull
		src.Server = i.Remote.Server
		src.Protocol = i.Remote.Protocol
		src.Secret = i.Remote.Secret
		src.Certificate = i.Remote.Certificate
	}
	return src
}

// Empty creates a container with no root filesystem content.
type Empty struct{}

func (Empty) isDescriptor() {}

// Type implements Descriptor.
func (Empty) Type() string { return restapi.SourceNone }

// ContainerSource implements Descriptor.
func (Empty) ContainerSource() restapi.ContainerSource {
	return restapi.ContainerSource{Type: restapi.SourceNone}
}

// Copy creates a container from another container on the same server.
type Copy struct {
	Container string
}

func (Copy) isDescriptor() {}

// Type implements Descriptor.
func (Copy) Type() string { return restapi.SourceCopy }

// ContainerSource implements Descriptor.
func (c Copy) ContainerSource() restapi.ContainerSource {
	return restapi.ContainerSource{Type: restapi.SourceCopy, Source: c.Container}
}

// Secrets authorize a target server to pull the control, filesystem and
// process-state streams of one migration. They are single use.
type Secrets struct {
	Control string
	FS      string
	CRIU    string
}

// Map renders the secrets as sent on the wire, omitting empty ones.
func (s Secrets) Map() map[string]string {
	m := make(map[string]string, 3)
	if s.Control != "" {
		m["control"] = s.Control
	}
	if s.FS != "" {
		m["fs"] = s.FS
	}
	if s.CRIU != "" {
		m["criu"] = s.CRIU
	}
	return m
}

// SecretsFromMap is the inverse of Secrets.Map.
func SecretsFromMap(m map[string]string) Secrets {
	return Secrets{Control: m["control"], FS: m["fs"], CRIU: m["criu"]}
}

// Migration pulls a container from another server through a migration
// operation prepared on the source server.
type Migration struct {
	// Operation is the websocket URL of the source's migration operation.
	Operation   string
	Secrets     Secrets
	Certificate string
}

func (Migration) isDescriptor() {}

// Type implements Descriptor.
func (Migration) Type() string { return restapi.SourceMigration }

// ContainerSource implements Descriptor.
func (m Migration) ContainerSource() restapi.ContainerSource {
	return restapi.ContainerSource{
		Type:        restapi.SourceMigration,
		Mode:        restapi.ModePull,
		Operation:   m.Operation,
		Secrets:     m.Secrets.Map(),
		Certificate: m.Certificate,
	}
}
