package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/errdefs"
)

const validManifest = `
apiVersion: hyperkit.cofront.xyz/v1alpha1
kind: Container
metadata:
  name: Web1
  labels:
    tier: web
spec:
  architecture: x86_64
  ephemeral: true
  config:
    limits.cpu: "2"
  devices:
    eth0:
      type: nic
      nictype: bridged
      parent: br0
  source:
    alias: ubuntu/22.04
    server: https://images.example.com
    protocol: SimpleStreams
  cloudInit:
    fqdn: Web1.Example.com
    packages: [curl]
`

func TestLoadFromYAML_Valid(t *testing.T) {
	c, err := LoadFromYAML([]byte(validManifest))
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}

	if c.Name != "web1" {
		t.Errorf("expected normalized name web1, got %s", c.Name)
	}
	if c.Labels["tier"] != "web" {
		t.Errorf("expected labels, got %v", c.Labels)
	}
	if c.Spec.Architecture != "x86_64" || !c.Spec.Ephemeral {
		t.Errorf("unexpected spec %+v", c.Spec)
	}
	if c.Spec.Source.Protocol != "simplestreams" {
		t.Errorf("expected lowercased protocol, got %s", c.Spec.Source.Protocol)
	}
	if c.Spec.CloudInit.FQDN != "web1.example.com" {
		t.Errorf("expected lowercased fqdn, got %s", c.Spec.CloudInit.FQDN)
	}
	if c.Spec.Devices["eth0"]["parent"] != "br0" {
		t.Errorf("expected devices, got %v", c.Spec.Devices)
	}

	// Defaults.
	if len(c.Spec.Profiles) != 1 || c.Spec.Profiles[0] != "default" {
		t.Errorf("expected default profile, got %v", c.Spec.Profiles)
	}
	if c.Generation != 1 {
		t.Errorf("expected generation 1, got %d", c.Generation)
	}
	if c.Status.Phase != v1alpha1.PhasePending {
		t.Errorf("expected phase Pending, got %s", c.Status.Phase)
	}
}

func TestLoadFromYAML_ExplicitEmptyProfiles(t *testing.T) {
	c, err := LoadFromYAML([]byte(`
apiVersion: hyperkit.cofront.xyz/v1alpha1
kind: Container
metadata:
  name: bare
spec:
  profiles: []
  source:
    empty: true
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Spec.Profiles == nil || len(c.Spec.Profiles) != 0 {
		t.Errorf("expected an explicit empty profile list to be kept, got %v", c.Spec.Profiles)
	}
}

func TestLoadFromYAML_Header(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"invalid yaml", "apiVersion: [", "failed to unmarshal YAML"},
		{"missing apiVersion", "kind: Container\n", "apiVersion"},
		{"missing kind", "apiVersion: hyperkit.cofront.xyz/v1alpha1\n", "kind"},
		{"wrong apiVersion", "apiVersion: example.com/v1\nkind: Container\n", "unsupported apiVersion"},
		{"wrong kind", "apiVersion: hyperkit.cofront.xyz/v1alpha1\nkind: Pod\n", "unsupported kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromYAML([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSpec(t *testing.T) {
	valid := func() *v1alpha1.Container {
		c := v1alpha1.NewContainer("web1")
		c.Spec.Source.Alias = "ubuntu"
		return c
	}

	tests := []struct {
		name     string
		mutate   func(c *v1alpha1.Container)
		wantErr  string
		sentinel error
	}{
		{"valid", func(c *v1alpha1.Container) {}, "", nil},
		{"missing name", func(c *v1alpha1.Container) { c.Name = "" }, "metadata.name", nil},
		{"name with digit first", func(c *v1alpha1.Container) { c.Name = "1web" }, "metadata.name", nil},
		{"no source", func(c *v1alpha1.Container) { c.Spec.Source = v1alpha1.SourceSpec{} }, "spec.source", errdefs.ErrImageIdentifierRequired},
		{"empty with alias", func(c *v1alpha1.Container) { c.Spec.Source.Empty = true }, "spec.source", errdefs.ErrInvalidImageAttributes},
		{"bad protocol", func(c *v1alpha1.Container) { c.Spec.Source.Protocol = "ftp" }, "spec.source", errdefs.ErrInvalidProtocol},
		{"secret without server", func(c *v1alpha1.Container) { c.Spec.Source.Secret = "s" }, "spec.source", errdefs.ErrInvalidImageAttributes},
		{"blank profile", func(c *v1alpha1.Container) { c.Spec.Profiles = []string{"default", " "} }, "spec.profiles[1]", nil},
		{"device without type", func(c *v1alpha1.Container) {
			c.Spec.Devices = map[string]map[string]string{"root": {"path": "/"}}
		}, "spec.devices.root.type", nil},
		{"user-data conflict", func(c *v1alpha1.Container) {
			c.Spec.Config = map[string]string{"user.user-data": "#cloud-config\n"}
			c.Spec.CloudInit = &v1alpha1.CloudInitSpec{}
		}, "conflicts with spec.cloudInit", nil},
		{"raw user-data alone", func(c *v1alpha1.Container) {
			c.Spec.Config = map[string]string{"user.user-data": "#cloud-config\n"}
		}, "", nil},
		{"bad ssh key", func(c *v1alpha1.Container) {
			c.Spec.CloudInit = &v1alpha1.CloudInitSpec{SSHAuthorizedKeys: []string{"nope"}}
		}, "spec.cloudInit", nil},
		{"bad password hash", func(c *v1alpha1.Container) {
			c.Spec.CloudInit = &v1alpha1.CloudInitSpec{PasswordHash: "plaintext"}
		}, "passwordHash", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := validateSpec(c)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v in chain, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestSourceOptions(t *testing.T) {
	opts := SourceOptions(v1alpha1.SourceSpec{
		Fingerprint: "abc",
		Properties:  map[string]string{"os": "ubuntu"},
		Server:      "https://s",
		Protocol:    "lxd",
		Secret:      "x",
		Certificate: "PEM",
	})
	if opts.Fingerprint != "abc" || opts.Properties["os"] != "ubuntu" || opts.Server != "https://s" ||
		opts.Protocol != "lxd" || opts.Secret != "x" || opts.Certificate != "PEM" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestLoadAndSaveFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "web1.yaml")
	if err := os.WriteFile(in, []byte(validManifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	c, err := LoadFromFile(in)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	c.TypeMeta = v1alpha1.TypeMeta{}
	out := filepath.Join(dir, "out.yaml")
	if err := SaveToFile(c, out); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	reloaded, err := LoadFromFile(out)
	if err != nil {
		t.Fatalf("reloading saved manifest: %v", err)
	}
	if reloaded.Name != "web1" || reloaded.Spec.Source.Alias != "ubuntu/22.04" {
		t.Errorf("unexpected reloaded manifest %+v", reloaded)
	}
}

func TestLoadFromFile_NonExistent(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
