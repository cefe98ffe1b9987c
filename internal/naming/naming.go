// Package naming provides the naming conventions of the control plane's REST
// API: resource paths, name extraction from list endpoints and container
// name rules.
package naming

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/samber/lo"

	"github.com/jbweber/hyperkit/internal/restapi"
)

// maxNameLength is the hostname label limit containers are held to.
const maxNameLength = 63

// ContainersPath is the collection endpoint for containers.
func ContainersPath() string {
	return restapi.APIVersion + "/containers"
}

// ContainerPath returns the endpoint of a single container.
//
// Example: "web 1" → /1.0/containers/web%201
func ContainerPath(name string) string {
	return ContainersPath() + "/" + url.PathEscape(name)
}

// ContainerStatePath returns the state endpoint of a container.
func ContainerStatePath(name string) string {
	return ContainerPath(name) + "/state"
}

// ProfilesPath is the collection endpoint for profiles.
func ProfilesPath() string {
	return restapi.APIVersion + "/profiles"
}

// OperationPath returns the endpoint of an operation.
func OperationPath(id string) string {
	return restapi.APIVersion + "/operations/" + url.PathEscape(id)
}

// NameFromPath returns the final segment of a resource path or URL,
// unescaped and without any query string.
//
// Example: /1.0/containers/test1 → test1
func NameFromPath(p string) string {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	base := path.Base(strings.TrimSuffix(p, "/"))
	if base == "." || base == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

// NamesFromPaths applies NameFromPath to every entry of a list response.
func NamesFromPaths(paths []string) []string {
	return lo.Map(paths, func(p string, _ int) string {
		return NameFromPath(p)
	})
}

// ValidateContainerName checks name against hostname label rules: 1-63
// characters of letters, digits and dashes, starting with a letter and not
// ending with a dash.
func ValidateContainerName(name string) error {
	if name == "" {
		return fmt.Errorf("container name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("container name %q is longer than %d characters", name, maxNameLength)
	}

	first := name[0]
	if !isLetter(first) {
		return fmt.Errorf("container name %q must start with a letter", name)
	}
	if strings.HasSuffix(name, "-") {
		return fmt.Errorf("container name %q must not end with a dash", name)
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isLetter(c) && !isDigit(c) && c != '-' {
			return fmt.Errorf("container name %q contains invalid character %q", name, c)
		}
	}
	return nil
}

// SplitRemote splits a "remote:name" reference. A reference without a colon
// returns an empty remote.
//
// Example: lab:web1 → ("lab", "web1")
func SplitRemote(ref string) (string, string) {
	remote, name, found := strings.Cut(ref, ":")
	if !found {
		return "", ref
	}
	return remote, name
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
