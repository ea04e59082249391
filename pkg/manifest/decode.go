package manifest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeAll reads every document from a YAML stream. JSON input decodes
// through the same path since YAML is a superset of JSON. List objects
// (kind suffixed "List" with an items array) are flattened into their items.
//
// Documents decoded before a syntax error are returned alongside the error,
// so one malformed trailing document does not discard the rest of the file.
func DecodeAll(r io.Reader) ([]Document, error) {
	dec := yaml.NewDecoder(r)

	var docs []Document
	for {
		var raw interface{}
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return docs, fmt.Errorf("failed to decode document %d: %w", len(docs)+1, err)
		}
		if raw == nil {
			continue
		}

		m, ok := raw.(map[string]interface{})
		if !ok {
			return docs, fmt.Errorf("document %d is not a mapping", len(docs)+1)
		}

		doc := Document(m)
		if isList(doc) {
			docs = append(docs, flattenList(doc)...)
			continue
		}
		docs = append(docs, doc)
	}
}

func isList(doc Document) bool {
	kind := doc.Kind()
	if !strings.HasSuffix(kind, "List") {
		return false
	}
	_, ok := doc.Slice("items")
	return ok
}

func flattenList(doc Document) []Document {
	items, _ := doc.Slice("items")
	elemKind := strings.TrimSuffix(doc.Kind(), "List")

	out := make([]Document, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		elem := Document(m)
		// Items in a List frequently omit kind/apiVersion.
		if elem.Kind() == "" && elemKind != "" {
			elem["kind"] = elemKind
		}
		if elem.APIVersion() == "" {
			if v := doc.APIVersion(); v != "" {
				elem["apiVersion"] = v
			}
		}
		out = append(out, elem)
	}
	return out
}
