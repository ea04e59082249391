package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// IsUnknown reports whether f is not a supported format.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	}
	return true
}

// SupportedFormats returns the supported format names.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTable)}
}

// Serializer writes one value to an output destination.
type Serializer interface {
	Serialize(ctx context.Context, v any) error
}

// Closer is implemented by serializers that own their destination.
type Closer interface {
	Close() error
}

// Writer serializes values to an io.Writer in a chosen format.
type Writer struct {
	format Format
	out    io.Writer
	file   *os.File
	closed bool
}

// NewWriter creates a Writer. Unknown formats fall back to JSON and a nil
// output falls back to stdout.
func NewWriter(format Format, out io.Writer) *Writer {
	if format.IsUnknown() {
		format = FormatJSON
	}
	if out == nil {
		out = os.Stdout
	}
	return &Writer{format: format, out: out}
}

// NewStdoutWriter creates a Writer bound to stdout.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// NewFileWriterOrStdout creates a writer for path, or a stdout writer when
// path is empty or StdoutURI.
func NewFileWriterOrStdout(format Format, path string) (Serializer, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == StdoutURI {
		return NewStdoutWriter(format), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	w := NewWriter(format, f)
	w.file = f
	return w, nil
}

// Serialize writes v in the writer's format.
func (w *Writer) Serialize(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch w.format {
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to yaml: %w", err)
		}
		return enc.Close()

	case FormatTable:
		return w.serializeTable(v)

	default:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to json: %w", err)
		}
		return nil
	}
}

// Close releases the underlying file, if any. Safe to call repeatedly.
func (w *Writer) Close() error {
	if w.closed || w.file == nil {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

var headerCaser = cases.Upper(language.English)

// serializeTable renders v as a two-column field/value table. Nested
// structures are flattened into dotted keys.
func (w *Writer) serializeTable(v any) error {
	rows := flatten("", normalize(v))

	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", headerCaser.String("field"), headerCaser.String("value"))
	if len(rows) == 0 {
		fmt.Fprintf(tw, "<empty>\t\n")
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

// normalize converts v into plain maps and slices via a JSON round trip so
// flattening never needs struct reflection.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}

func flatten(prefix string, v any) [][2]string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var rows [][2]string
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			rows = append(rows, flatten(key, val[k])...)
		}
		return rows

	case []any:
		var rows [][2]string
		for i, item := range val {
			rows = append(rows, flatten(fmt.Sprintf("%s[%d]", prefix, i), item)...)
		}
		return rows

	default:
		if prefix == "" {
			prefix = "value"
		}
		return [][2]string{{prefix, formatValue(v)}}
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "<nil>"
		}
		return fmt.Sprintf("%v", v)
	}
}
