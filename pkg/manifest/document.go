// Package manifest represents cluster resource manifests as loosely typed
// document trees. Captures contain manifests for dozens of API groups, many
// of them custom resources, so documents are kept as nested maps with typed
// accessors for well-known fields instead of rigid per-kind structs.
package manifest

import (
	"encoding/json"
	"fmt"

	sigsyaml "sigs.k8s.io/yaml"
)

// Document is one parsed manifest: a mapping-valued tree of scalars,
// sequences and mappings as produced by the YAML decoder.
type Document map[string]interface{}

// Kind returns the manifest kind, or "" when absent.
func (d Document) Kind() string {
	s, _ := d.String("kind")
	return s
}

// APIVersion returns the manifest apiVersion, or "" when absent.
func (d Document) APIVersion() string {
	s, _ := d.String("apiVersion")
	return s
}

// Name returns metadata.name, or "" when absent.
func (d Document) Name() string {
	s, _ := d.String("metadata", "name")
	return s
}

// Namespace returns metadata.namespace; empty for cluster-scoped objects.
func (d Document) Namespace() string {
	s, _ := d.String("metadata", "namespace")
	return s
}

// Labels returns metadata.labels as a string map. Missing or malformed
// labels yield an empty map.
func (d Document) Labels() map[string]string {
	labels := map[string]string{}
	m, ok := d.Map("metadata", "labels")
	if !ok {
		return labels
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			labels[k] = s
		}
	}
	return labels
}

// Map returns the mapping at the given path.
func (d Document) Map(path ...string) (map[string]interface{}, bool) {
	v, ok := d.Value(path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

// Slice returns the sequence at the given path.
func (d Document) Slice(path ...string) ([]interface{}, bool) {
	v, ok := d.Value(path...)
	if !ok {
		return nil, false
	}
	s, ok := v.([]interface{})
	return s, ok
}

// String returns the string scalar at the given path.
func (d Document) String(path ...string) (string, bool) {
	v, ok := d.Value(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the integer scalar at the given path. YAML and JSON decoders
// disagree on numeric types, so int, int64 and float64 are all accepted.
func (d Document) Int(path ...string) (int64, bool) {
	v, ok := d.Value(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Bool returns the boolean scalar at the given path.
func (d Document) Bool(path ...string) (bool, bool) {
	v, ok := d.Value(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Value walks the document tree along path and returns the value found.
func (d Document) Value(path ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(d)
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Decode unmarshals the document into a typed object, typically one of the
// k8s.io/api types. The document is round-tripped through JSON so json tags
// on the target apply.
func (d Document) Decode(out interface{}) error {
	raw, err := json.Marshal(map[string]interface{}(d))
	if err != nil {
		return fmt.Errorf("failed to re-encode document: %w", err)
	}
	if err := sigsyaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %q: %w", d.Kind(), d.Name(), err)
	}
	return nil
}
