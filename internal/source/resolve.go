// Package source turns user-facing image options into a single source
// descriptor for container creation.
//
// Resolution is pure: it never touches the network, so every rejected
// combination fails before a request is built.
package source

import (
	"sort"
	"strings"

	"github.com/jbweber/hyperkit/internal/errdefs"
)

// Image server protocols accepted for remote pulls.
const (
	ProtocolLXD           = "lxd"
	ProtocolSimpleStreams = "simplestreams"
)

// Options are the image options a caller may combine.
type Options struct {
	Alias       string            `json:"alias,omitempty" yaml:"alias,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Properties  map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Empty       bool              `json:"empty,omitempty" yaml:"empty,omitempty"`

	Server      string `json:"server,omitempty" yaml:"server,omitempty"`
	Protocol    string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Secret      string `json:"secret,omitempty" yaml:"secret,omitempty"`
	Certificate string `json:"certificate,omitempty" yaml:"certificate,omitempty"`
}

// Resolve validates opts and returns the matching descriptor: Empty or Image.
//
// Precedence among image identifiers is fingerprint, then alias, then
// properties; lower-priority identifiers are ignored rather than rejected.
// An unsupported protocol is rejected ahead of every other rule.
func Resolve(opts Options) (Descriptor, error) {
	if opts.Protocol != "" && !validProtocol(opts.Protocol) {
		return nil, errdefs.Invalid(errdefs.ErrInvalidProtocol, "protocol", opts.Protocol)
	}

	if opts.Empty {
		if field, value := firstImageAttribute(opts); field != "" {
			return nil, errdefs.Invalid(errdefs.ErrInvalidImageAttributes, field, value)
		}
		return Empty{}, nil
	}

	var img Image
	switch {
	case opts.Fingerprint != "":
		img.Fingerprint = opts.Fingerprint
	case opts.Alias != "":
		img.Alias = opts.Alias
	case len(opts.Properties) > 0:
		img.Properties = copyProperties(opts.Properties)
	default:
		return nil, errdefs.Invalid(errdefs.ErrImageIdentifierRequired, "source", "")
	}

	if opts.Server == "" {
		if field, value := firstRemoteAttribute(opts); field != "" {
			return nil, errdefs.Invalid(errdefs.ErrInvalidImageAttributes, field, value)
		}
		return img, nil
	}

	img.Remote = &Remote{
		Server:      opts.Server,
		Protocol:    opts.Protocol,
		Secret:      opts.Secret,
		Certificate: opts.Certificate,
	}
	return img, nil
}

func validProtocol(p string) bool {
	return p == ProtocolLXD || p == ProtocolSimpleStreams
}

// firstImageAttribute returns the first attribute (alphabetically) that may
// not accompany an empty source.
func firstImageAttribute(opts Options) (string, string) {
	switch {
	case opts.Alias != "":
		return "alias", opts.Alias
	case opts.Certificate != "":
		return "certificate", "<redacted>"
	case opts.Fingerprint != "":
		return "fingerprint", opts.Fingerprint
	case len(opts.Properties) > 0:
		return "properties", formatProperties(opts.Properties)
	case opts.Protocol != "":
		return "protocol", opts.Protocol
	case opts.Secret != "":
		return "secret", "<redacted>"
	case opts.Server != "":
		return "server", opts.Server
	}
	return "", ""
}

// firstRemoteAttribute returns the first attribute that is meaningless
// without a server.
func firstRemoteAttribute(opts Options) (string, string) {
	switch {
	case opts.Certificate != "":
		return "certificate", "<redacted>"
	case opts.Protocol != "":
		return "protocol", opts.Protocol
	case opts.Secret != "":
		return "secret", "<redacted>"
	}
	return "", ""
}

func copyProperties(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func formatProperties(props map[string]string) string {
	parts := make([]string, 0, len(props))
	for k, v := range props {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
