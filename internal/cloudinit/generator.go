// Package cloudinit renders cloud-init configuration for containers.
//
// Container images with cloud-init installed read their NoCloud seed from
// the container's config: user.user-data and user.meta-data. Render returns
// those keys ready to be merged into a create request.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/lxd.html
package cloudinit

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/hyperkit/api/v1alpha1"
)

const (
	// UserDataKey is the container config key holding user-data.
	UserDataKey = "user.user-data"

	// MetaDataKey is the container config key holding meta-data.
	MetaDataKey = "user.meta-data"

	cloudConfigHeader = "#cloud-config\n"
)

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with "#cloud-config" header.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *Chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
	Packages          []string  `yaml:"packages,omitempty"`
	Output            *Output   `yaml:"output,omitempty"`
}

// Chpasswd configures user password settings.
type Chpasswd struct {
	Expire bool   `yaml:"expire"`
	List   string `yaml:"list"` // "username:hash"
}

// Output configures cloud-init output logging.
type Output struct {
	All string `yaml:"all"`
}

// MetaData represents the cloud-init meta-data structure.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData generates user-data for the named container, including
// the "#cloud-config" header. SSH keys are validated before anything is
// rendered.
func GenerateUserData(name string, spec *v1alpha1.CloudInitSpec) (string, error) {
	if name == "" {
		return "", fmt.Errorf("container name cannot be empty")
	}

	hostname, fqdn := name, name
	if spec != nil && spec.FQDN != "" {
		fqdn = spec.FQDN
		hostname = strings.SplitN(fqdn, ".", 2)[0]
	}

	userData := UserData{
		Hostname: hostname,
		FQDN:     fqdn,
		Output: &Output{
			All: "| tee -a /var/log/cloud-init-output.log",
		},
	}

	if spec != nil {
		if err := ValidateSSHKeys(spec.SSHAuthorizedKeys); err != nil {
			return "", err
		}
		userData.SSHAuthorizedKeys = spec.SSHAuthorizedKeys
		userData.SSHPasswordAuth = spec.SSHPasswordAuth
		userData.Packages = spec.Packages

		if spec.PasswordHash != "" {
			userData.Chpasswd = &Chpasswd{
				Expire: false,
				List:   "root:" + spec.PasswordHash,
			}
		}
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	return cloudConfigHeader + string(yamlBytes), nil
}

// GenerateMetaData generates meta-data for the named container.
//
// instance-id is the container name, so cloud-init runs again when a
// container is deleted and recreated under the same name.
func GenerateMetaData(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("container name cannot be empty")
	}

	yamlBytes, err := yaml.Marshal(&MetaData{
		InstanceID:    name,
		LocalHostname: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}

// Render returns the config keys seeding cloud-init for the named container.
func Render(name string, spec *v1alpha1.CloudInitSpec) (map[string]string, error) {
	userData, err := GenerateUserData(name, spec)
	if err != nil {
		return nil, err
	}
	metaData, err := GenerateMetaData(name)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		UserDataKey: userData,
		MetaDataKey: metaData,
	}, nil
}

// ValidateSSHKeys checks that every key parses as an authorized_keys line.
func ValidateSSHKeys(keys []string) error {
	for i, key := range keys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return fmt.Errorf("invalid ssh authorized key at index %d: %w", i, err)
		}
	}
	return nil
}
