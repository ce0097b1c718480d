package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"
)

// Format is an output serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const documentSeparator = "---\n"

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q, expected yaml or json", s)
	}
}

// Writer serializes workload objects
type Writer struct {
	format Format
}

// NewWriter creates a writer for the given format
func NewWriter(format Format) *Writer {
	return &Writer{format: format}
}

// Render serializes objects in the writer's format
func (w *Writer) Render(objects []runtime.Object) ([]byte, error) {
	return w.render(w.format, objects)
}

func (w *Writer) render(format Format, objects []runtime.Object) ([]byte, error) {
	switch format {
	case FormatJSON:
		return w.RenderJSON(objects)
	default:
		return w.RenderYAML(objects)
	}
}

// RenderYAML renders objects as a multi-document YAML stream
func (w *Writer) RenderYAML(objects []runtime.Object) ([]byte, error) {
	var buf bytes.Buffer
	for i, obj := range objects {
		data, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to render object %d as YAML: %w", i, err)
		}
		if i > 0 {
			buf.WriteString(documentSeparator)
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// RenderJSON renders objects as a v1 List
func (w *Writer) RenderJSON(objects []runtime.Object) ([]byte, error) {
	list := corev1.List{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "List"},
		Items:    make([]runtime.RawExtension, 0, len(objects)),
	}
	for _, obj := range objects {
		list.Items = append(list.Items, runtime.RawExtension{Object: obj})
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render objects as JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Write renders objects to out
func (w *Writer) Write(out io.Writer, objects []runtime.Object) error {
	data, err := w.Render(objects)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile writes objects to path. A .json, .yaml or .yml extension picks
// the format; any other extension uses the writer's format.
func (w *Writer) WriteFile(path string, objects []runtime.Object) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	format := w.format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	}

	data, err := w.render(format, objects)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write objects to %s: %w", path, err)
	}
	return nil
}
