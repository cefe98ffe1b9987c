package v1alpha1

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// GroupName is the API group for hyperkit resources.
	GroupName = "hyperkit.cofront.xyz"

	// Version is the API version.
	Version = "v1alpha1"

	// ContainerKind is the kind string for Container resources.
	ContainerKind = "Container"
)

// APIVersion returns the group/version string manifests must carry.
func APIVersion() string {
	return GroupName + "/" + Version
}

// NewContainer creates a new Container with TypeMeta and ObjectMeta defaults.
func NewContainer(name string) *Container {
	return &Container{
		TypeMeta: TypeMeta{
			APIVersion: APIVersion(),
			Kind:       ContainerKind,
		},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: Now(),
			Generation:        1,
		},
		Spec: ContainerSpec{
			Profiles: []string{"default"},
		},
		Status: ContainerStatus{
			Phase: PhasePending,
		},
	}
}

// SetDefaultAPIVersion fills in apiVersion and kind when a manifest omits
// them.
func SetDefaultAPIVersion(c *Container) {
	if c.APIVersion == "" {
		c.APIVersion = APIVersion()
	}
	if c.Kind == "" {
		c.Kind = ContainerKind
	}
}

// GetName returns the container name from metadata.
func (c *Container) GetName() string {
	return c.Name
}

// SetPhase sets the phase in status.
func (c *Container) SetPhase(phase ContainerPhase) {
	c.Status.Phase = phase
}

// GetPhase returns the current phase.
func (c *Container) GetPhase() ContainerPhase {
	return c.Status.Phase
}

// UpdateObservedGeneration updates status.observedGeneration to match
// metadata.generation.
func (c *Container) UpdateObservedGeneration() {
	c.Status.ObservedGeneration = c.Generation
}

// Normalize trims and lowercases user input that the server treats
// case-insensitively.
func (c *Container) Normalize() {
	c.Name = strings.ToLower(strings.TrimSpace(c.Name))

	if c.Spec.CloudInit != nil {
		c.Spec.CloudInit.FQDN = strings.ToLower(strings.TrimSpace(c.Spec.CloudInit.FQDN))
	}

	// Protocol names are lowercase on the wire.
	c.Spec.Source.Protocol = strings.ToLower(strings.TrimSpace(c.Spec.Source.Protocol))
}
