package v1alpha1

import "slices"

// Container is a system container managed through a hyperkit remote.
//
// Spec is what the user asked for when the container was created; Status is
// what the server last reported. Manifests only carry Spec; `hyperkit get`
// fills Status from the server record.
type Container struct {
	TypeMeta `json:",inline" yaml:",inline"`

	// +optional
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Spec ContainerSpec `json:"spec" yaml:"spec"`

	// +optional
	Status ContainerStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// ContainerSpec defines the desired state of a Container.
type ContainerSpec struct {
	// Architecture is the server architecture name, e.g. "x86_64".
	// The server picks its own when empty.
	// +optional
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty"`

	// Profiles are applied in order. Every profile must exist on the remote.
	// +optional
	Profiles []string `json:"profiles,omitempty" yaml:"profiles,omitempty"`

	// Ephemeral containers are deleted by the server when they stop.
	// +optional
	Ephemeral bool `json:"ephemeral,omitempty" yaml:"ephemeral,omitempty"`

	// Config is the container's config map, sent verbatim.
	// +optional
	Config map[string]string `json:"config,omitempty" yaml:"config,omitempty"`

	// Devices maps device names to their attributes.
	// +optional
	Devices map[string]map[string]string `json:"devices,omitempty" yaml:"devices,omitempty"`

	// Source selects the root filesystem.
	Source SourceSpec `json:"source" yaml:"source"`

	// CloudInit is rendered into the container's user.* config keys.
	// +optional
	CloudInit *CloudInitSpec `json:"cloudInit,omitempty" yaml:"cloudInit,omitempty"`
}

// SourceSpec identifies the image a container is created from, or asks for
// an empty container. Fingerprint wins over Alias, which wins over
// Properties.
type SourceSpec struct {
	// +optional
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
	// +optional
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	// +optional
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Empty creates a container without a root filesystem. Mutually
	// exclusive with every other field.
	// +optional
	Empty bool `json:"empty,omitempty" yaml:"empty,omitempty"`

	// Server is the image server to pull from. Protocol, Secret and
	// Certificate are only valid with Server.
	// +optional
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	// +optional
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	// +optional
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
	// +optional
	Certificate string `json:"certificate,omitempty" yaml:"certificate,omitempty"`
}

// CloudInitSpec defines cloud-init configuration.
type CloudInitSpec struct {
	// FQDN is the fully qualified domain name. The hostname is derived from
	// it, or from the container name when empty.
	// +optional
	FQDN string `json:"fqdn,omitempty" yaml:"fqdn,omitempty"`

	// SSHAuthorizedKeys are installed for root.
	// +optional
	SSHAuthorizedKeys []string `json:"sshAuthorizedKeys,omitempty" yaml:"sshAuthorizedKeys,omitempty"`

	// PasswordHash is the hashed root password (mkpasswd --method=SHA-512).
	// +optional
	PasswordHash string `json:"passwordHash,omitempty" yaml:"passwordHash,omitempty"`

	// SSHPasswordAuth enables SSH password authentication.
	// +optional
	SSHPasswordAuth bool `json:"sshPasswordAuth,omitempty" yaml:"sshPasswordAuth,omitempty"`

	// Packages are installed on first boot.
	// +optional
	Packages []string `json:"packages,omitempty" yaml:"packages,omitempty"`
}

// ContainerStatus is the observed state of a Container.
type ContainerStatus struct {
	// +optional
	Phase ContainerPhase `json:"phase,omitempty" yaml:"phase,omitempty"`

	// +optional
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// StatusCode is the server's numeric status code.
	// +optional
	StatusCode int `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`

	// Pid of the container's init process, zero when stopped.
	// +optional
	Pid int64 `json:"pid,omitempty" yaml:"pid,omitempty"`

	// BaseImage is the fingerprint the root filesystem was created from.
	// +optional
	BaseImage string `json:"baseImage,omitempty" yaml:"baseImage,omitempty"`

	// HardwareAddress is the MAC address of eth0.
	// +optional
	HardwareAddress string `json:"hardwareAddress,omitempty" yaml:"hardwareAddress,omitempty"`

	// LastOperation is the id of the last operation submitted for this
	// container by hyperkit.
	// +optional
	LastOperation string `json:"lastOperation,omitempty" yaml:"lastOperation,omitempty"`

	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`
}

// ContainerPhase is the lifecycle phase of a Container.
type ContainerPhase string

const (
	// PhasePending means the manifest has not been submitted yet.
	PhasePending ContainerPhase = "Pending"

	// PhaseCreating means the create operation is still running.
	PhaseCreating ContainerPhase = "Creating"

	PhaseStopped ContainerPhase = "Stopped"
	PhaseRunning ContainerPhase = "Running"
	PhaseFrozen  ContainerPhase = "Frozen"

	// PhaseFailed means an operation on the container failed.
	PhaseFailed ContainerPhase = "Failed"

	// PhaseUnknown covers server statuses hyperkit does not model.
	PhaseUnknown ContainerPhase = "Unknown"
)

// Condition types for Container resources.
const (
	// ConditionReady is True while the container is running.
	ConditionReady = "Ready"

	// ConditionCreated is True once the create operation succeeded.
	ConditionCreated = "Created"

	// ConditionCloudInitConfigured is True when user-data was written to the
	// container's config.
	ConditionCloudInitConfigured = "CloudInitConfigured"
)

// DeepCopy creates a deep copy of Container.
func (in *Container) DeepCopy() *Container {
	if in == nil {
		return nil
	}
	out := new(Container)
	out.TypeMeta = in.TypeMeta
	out.ObjectMeta = *in.ObjectMeta.DeepCopy()
	out.Spec = *in.Spec.DeepCopy()
	out.Status = *in.Status.DeepCopy()
	return out
}

// DeepCopy creates a deep copy of ContainerSpec.
func (in *ContainerSpec) DeepCopy() *ContainerSpec {
	if in == nil {
		return nil
	}
	out := new(ContainerSpec)
	*out = *in

	out.Profiles = copyStrings(in.Profiles)
	out.Config = copyStringMap(in.Config)
	if in.Devices != nil {
		out.Devices = make(map[string]map[string]string, len(in.Devices))
		for name, attrs := range in.Devices {
			out.Devices[name] = copyStringMap(attrs)
		}
	}
	out.Source = *in.Source.DeepCopy()
	if in.CloudInit != nil {
		out.CloudInit = in.CloudInit.DeepCopy()
	}
	return out
}

// DeepCopy creates a deep copy of SourceSpec.
func (in *SourceSpec) DeepCopy() *SourceSpec {
	if in == nil {
		return nil
	}
	out := new(SourceSpec)
	*out = *in
	out.Properties = copyStringMap(in.Properties)
	return out
}

// DeepCopy creates a deep copy of CloudInitSpec.
func (in *CloudInitSpec) DeepCopy() *CloudInitSpec {
	if in == nil {
		return nil
	}
	out := new(CloudInitSpec)
	*out = *in
	out.SSHAuthorizedKeys = copyStrings(in.SSHAuthorizedKeys)
	out.Packages = copyStrings(in.Packages)
	return out
}

// DeepCopy creates a deep copy of ContainerStatus.
func (in *ContainerStatus) DeepCopy() *ContainerStatus {
	if in == nil {
		return nil
	}
	out := new(ContainerStatus)
	*out = *in
	out.Conditions = slices.Clone(in.Conditions)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
