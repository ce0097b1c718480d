// Package loader reads abstract job documents from YAML, JSON or TOML sources
// into a canonical JSON form shared by the schema and the typed model.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sourceplane/kronjob/internal/model"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// Format is the syntax of a source document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// StdinSource names documents read from standard input.
const StdinSource = "<stdin>"

// ErrEmptyDocument is returned for sources without any content.
var ErrEmptyDocument = errors.New("document is empty")

// legacyKeys maps snake_case spellings accepted from older documents onto
// their current names.
var legacyKeys = map[string]string{
	"label_key":                     "labelKey",
	"concurrency_policy":            "concurrencyPolicy",
	"restart_policy":                "restartPolicy",
	"failed_jobs_history_limit":     "failedJobsHistoryLimit",
	"successful_jobs_history_limit": "successfulJobsHistoryLimit",
	"starting_deadline_seconds":     "startingDeadlineSeconds",
	"backoff_limit":                 "backoffLimit",
	"container_name":                "containerName",
	"image_pull_policy":             "imagePullPolicy",
	"node_selector":                 "nodeSelector",
	"cpu_limit":                     "cpuLimit",
	"cpu_request":                   "cpuRequest",
	"memory_limit":                  "memoryLimit",
	"memory_request":                "memoryRequest",
	"volume_mounts":                 "volumeMounts",
	"namespace_overrides":           "namespaceOverrides",
}

// Quantity fields accept bare numbers in the source, e.g. cpuLimit: 1.
var quantityKeys = []string{"cpuLimit", "cpuRequest", "memoryLimit", "memoryRequest"}

// Document is a parsed source document.
type Document struct {
	// Source names where the document came from, a path or StdinSource.
	Source string
	// Raw is the canonical JSON encoding of the document.
	Raw []byte
	// Tree is Raw decoded into generic values, numbers as json.Number.
	Tree interface{}
}

// FormatFor picks the format from a file extension. YAML is the fallback,
// which also covers JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Load reads a document from path. An empty path or "-" reads stdin.
func Load(path string) (*Document, error) {
	if path == "" || path == "-" {
		return Read(os.Stdin, StdinSource, FormatYAML)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data, path, FormatFor(path))
}

// Read parses a document from r.
func Read(r io.Reader, source string, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return Parse(data, source, format)
}

// Parse converts raw source bytes into a Document.
func Parse(data []byte, source string, format Format) (*Document, error) {
	var content interface{}
	switch format {
	case FormatTOML:
		var table map[string]interface{}
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse %s as TOML: %w", source, err)
		}
		if len(table) > 0 {
			content = table
		}
	case FormatYAML, FormatJSON:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		if err := decoder.Decode(&content); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse %s: %w", source, err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q for %s", format, source)
	}

	if content == nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, ErrEmptyDocument)
	}

	content, err := stringKeys(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}
	if root, ok := content.(map[string]interface{}); ok {
		if err := normalizeRoot(root); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", source, err)
		}
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to JSON: %w", source, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var tree interface{}
	if err := decoder.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", source, err)
	}

	return &Document{Source: source, Raw: raw, Tree: tree}, nil
}

// Decode converts the document into a typed AbstractJob. In strict mode
// unknown fields are an error.
func (d *Document) Decode(strict bool) (*model.AbstractJob, error) {
	var job model.AbstractJob
	if err := d.decodeInto(&job, strict); err != nil {
		return nil, err
	}
	return &job, nil
}

// DecodeFragment converts the document into a single Fragment.
func (d *Document) DecodeFragment(strict bool) (*model.Fragment, error) {
	var fragment model.Fragment
	if err := d.decodeInto(&fragment, strict); err != nil {
		return nil, err
	}
	return &fragment, nil
}

func (d *Document) decodeInto(out interface{}, strict bool) error {
	unmarshal := sigsyaml.Unmarshal
	if strict {
		unmarshal = sigsyaml.UnmarshalStrict
	}
	if err := unmarshal(d.Raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", d.Source, err)
	}
	return nil
}

// LoadDefaults reads a defaults document, a single fragment merged beneath
// every generated record.
func LoadDefaults(path string, strict bool) (*model.Fragment, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	return doc.DecodeFragment(strict)
}

// normalizeRoot renames legacy keys and coerces numeric quantities on the root
// record, every job fragment and every namespace override.
func normalizeRoot(root map[string]interface{}) error {
	if err := normalizeRecord(root, "root"); err != nil {
		return err
	}

	if jobs, ok := root["jobs"].([]interface{}); ok {
		for i, job := range jobs {
			if record, ok := job.(map[string]interface{}); ok {
				if err := normalizeRecord(record, fmt.Sprintf("jobs[%d]", i)); err != nil {
					return err
				}
			}
		}
	}

	if overrides, ok := root["namespaceOverrides"].(map[string]interface{}); ok {
		for namespace, override := range overrides {
			if record, ok := override.(map[string]interface{}); ok {
				if err := normalizeRecord(record, fmt.Sprintf("namespaceOverrides[%s]", namespace)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func normalizeRecord(record map[string]interface{}, location string) error {
	for legacy, current := range legacyKeys {
		value, ok := record[legacy]
		if !ok {
			continue
		}
		if _, conflict := record[current]; conflict {
			return fmt.Errorf("%s sets both %q and %q", location, legacy, current)
		}
		delete(record, legacy)
		record[current] = value
	}

	for _, key := range quantityKeys {
		switch v := record[key].(type) {
		case int:
			record[key] = strconv.Itoa(v)
		case int64:
			record[key] = strconv.FormatInt(v, 10)
		case uint64:
			record[key] = strconv.FormatUint(v, 10)
		case float64:
			record[key] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return nil
}

// stringKeys rewrites maps with non-string keys, as YAML allows, so the tree
// can be encoded as JSON.
func stringKeys(node interface{}) (interface{}, error) {
	switch n := node.(type) {
	case map[string]interface{}:
		for k, v := range n {
			converted, err := stringKeys(v)
			if err != nil {
				return nil, err
			}
			n[k] = converted
		}
		return n, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, v := range n {
			key := fmt.Sprint(k)
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("duplicate key %q", key)
			}
			converted, err := stringKeys(v)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []interface{}:
		for i, v := range n {
			converted, err := stringKeys(v)
			if err != nil {
				return nil, err
			}
			n[i] = converted
		}
		return n, nil
	default:
		return node, nil
	}
}
