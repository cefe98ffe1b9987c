package cloudinit

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/hyperkit/api/v1alpha1"
)

func testAuthorizedKey(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("failed to convert key: %v", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " admin@example.com"
}

func parseUserData(t *testing.T, content string) UserData {
	t.Helper()
	if !strings.HasPrefix(content, "#cloud-config\n") {
		t.Fatal("user-data must start with '#cloud-config'")
	}
	var userData UserData
	if err := yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &userData); err != nil {
		t.Fatalf("failed to parse user-data YAML: %v", err)
	}
	return userData
}

func TestGenerateUserData(t *testing.T) {
	key := testAuthorizedKey(t)

	tests := []struct {
		name      string
		container string
		spec      *v1alpha1.CloudInitSpec
		expectErr bool
		check     func(t *testing.T, u UserData)
	}{
		{
			name:      "empty name",
			container: "",
			expectErr: true,
		},
		{
			name:      "no cloud-init spec",
			container: "web1",
			check: func(t *testing.T, u UserData) {
				if u.Hostname != "web1" || u.FQDN != "web1" {
					t.Errorf("expected hostname and fqdn web1, got %q %q", u.Hostname, u.FQDN)
				}
				if u.SSHPasswordAuth {
					t.Error("expected ssh_pwauth false")
				}
				if u.Output == nil || u.Output.All != "| tee -a /var/log/cloud-init-output.log" {
					t.Error("expected output logging to be configured")
				}
				if u.Chpasswd != nil {
					t.Error("expected no chpasswd without a password hash")
				}
			},
		},
		{
			name:      "hostname from fqdn",
			container: "web1",
			spec:      &v1alpha1.CloudInitSpec{FQDN: "web01.prod.example.com"},
			check: func(t *testing.T, u UserData) {
				if u.Hostname != "web01" {
					t.Errorf("expected hostname web01, got %q", u.Hostname)
				}
				if u.FQDN != "web01.prod.example.com" {
					t.Errorf("expected full fqdn, got %q", u.FQDN)
				}
			},
		},
		{
			name:      "keys password and packages",
			container: "web1",
			spec: &v1alpha1.CloudInitSpec{
				SSHAuthorizedKeys: []string{key},
				PasswordHash:      "$6$rounds=4096$salt$hash",
				SSHPasswordAuth:   true,
				Packages:          []string{"curl", "git"},
			},
			check: func(t *testing.T, u UserData) {
				if len(u.SSHAuthorizedKeys) != 1 || u.SSHAuthorizedKeys[0] != key {
					t.Errorf("expected the authorized key, got %v", u.SSHAuthorizedKeys)
				}
				if u.Chpasswd == nil || u.Chpasswd.List != "root:$6$rounds=4096$salt$hash" || u.Chpasswd.Expire {
					t.Errorf("unexpected chpasswd %+v", u.Chpasswd)
				}
				if !u.SSHPasswordAuth {
					t.Error("expected ssh_pwauth true")
				}
				if len(u.Packages) != 2 || u.Packages[1] != "git" {
					t.Errorf("expected packages, got %v", u.Packages)
				}
			},
		},
		{
			name:      "invalid ssh key",
			container: "web1",
			spec:      &v1alpha1.CloudInitSpec{SSHAuthorizedKeys: []string{"ssh-rsa not-a-key"}},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := GenerateUserData(tt.container, tt.spec)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, parseUserData(t, content))
		})
	}
}

func TestGenerateMetaData(t *testing.T) {
	content, err := GenerateMetaData("web1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var meta MetaData
	if err := yaml.Unmarshal([]byte(content), &meta); err != nil {
		t.Fatalf("failed to parse meta-data: %v", err)
	}
	if meta.InstanceID != "web1" || meta.LocalHostname != "web1" {
		t.Errorf("unexpected meta-data %+v", meta)
	}
	if !strings.Contains(content, "instance-id: web1") {
		t.Errorf("expected instance-id key, got %q", content)
	}

	if _, err := GenerateMetaData(""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestRender(t *testing.T) {
	keys, err := Render("web1", &v1alpha1.CloudInitSpec{FQDN: "web1.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 config keys, got %v", keys)
	}
	if !strings.HasPrefix(keys[UserDataKey], "#cloud-config\n") {
		t.Errorf("expected user-data under %s", UserDataKey)
	}
	if !strings.Contains(keys[MetaDataKey], "local-hostname: web1") {
		t.Errorf("expected meta-data under %s", MetaDataKey)
	}

	if _, err := Render("web1", &v1alpha1.CloudInitSpec{SSHAuthorizedKeys: []string{"garbage"}}); err == nil {
		t.Error("expected invalid keys to fail rendering")
	}
}

func TestValidateSSHKeys(t *testing.T) {
	if err := ValidateSSHKeys(nil); err != nil {
		t.Errorf("expected no error for no keys, got %v", err)
	}
	if err := ValidateSSHKeys([]string{testAuthorizedKey(t)}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateSSHKeys([]string{testAuthorizedKey(t), "nope"})
	if err == nil || !strings.Contains(err.Error(), "index 1") {
		t.Errorf("expected error naming index 1, got %v", err)
	}
}
