package main

import (
	"fmt"
	"strings"
)

// parseKeyValues parses repeated KEY=VALUE flags. Values may contain '='
// and commas.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid KEY=VALUE pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// parseConfigUpdates is parseKeyValues where an empty value ("KEY=") marks
// the key for removal.
func parseConfigUpdates(pairs []string) (map[string]any, error) {
	kv, err := parseKeyValues(pairs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(kv))
	for k, v := range kv {
		if v == "" {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return out, nil
}

// toAny widens a string map for the manager's config parameters.
func toAny(m map[string]string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
