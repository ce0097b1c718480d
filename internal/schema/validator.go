// Package schema performs structural validation of abstract job documents
// against an embedded JSON Schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sourceplane/kronjob/internal/schedule"
	"github.com/sourceplane/kronjob/internal/validate"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ScheduleFormat is the JSON Schema format name for job schedules.
const ScheduleFormat = "kronjob-schedule"

const schemaURI = "kronjob://schemas/abstractjob.schema.json"

//go:embed abstractjob.schema.yaml
var abstractJobSchema []byte

// Map-valued fields whose keys are user data rather than field names.
var keyedFields = map[string]bool{
	"namespaceOverrides": true,
	"labels":             true,
	"annotations":        true,
	"nodeSelector":       true,
}

var quotedNames = regexp.MustCompile(`'([^']*)'`)

// Validator handles JSON schema validation
type Validator struct {
	schema *jsonschema.Schema
	strict bool
}

// NewValidator compiles the embedded schema. In strict mode every object
// with declared properties rejects unknown fields.
func NewValidator(strict bool) (*Validator, error) {
	schema, err := loadSchema(abstractJobSchema, strict)
	if err != nil {
		return nil, fmt.Errorf("failed to load abstract job schema: %w", err)
	}
	return &Validator{schema: schema, strict: strict}, nil
}

// Strict reports whether unknown fields are rejected.
func (v *Validator) Strict() bool {
	return v.strict
}

// Validate checks a generic document tree, as produced by decoding JSON with
// UseNumber. Violations are returned as a *validate.Error.
func (v *Validator) Validate(tree interface{}) error {
	err := v.schema.Validate(tree)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("failed to validate document: %w", err)
	}

	var errs field.ErrorList
	for _, leaf := range leafCauses(validationErr) {
		errs = append(errs, toFieldErrors(tree, leaf)...)
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Field < errs[j].Field
	})
	return validate.NewError(validate.StageStructural, errs)
}

// loadSchema loads and compiles a YAML schema document
func loadSchema(data []byte, strict bool) (*jsonschema.Schema, error) {
	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	if strict {
		closeObjects(schemaData)
	}

	// Convert to JSON for schema compiler
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true
	compiler.Formats[ScheduleFormat] = isSchedule
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		if url == schemaURI {
			return io.NopCloser(strings.NewReader(string(jsonData))), nil
		}
		return nil, fmt.Errorf("external schema reference not supported: %s", url)
	}

	schema, err := compiler.Compile(schemaURI)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

func isSchedule(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	return schedule.IsValid(s)
}

// closeObjects sets additionalProperties to false on every object schema that
// declares properties and leaves additionalProperties unset.
func closeObjects(node interface{}) {
	switch n := node.(type) {
	case map[string]interface{}:
		if _, ok := n["properties"]; ok {
			if _, set := n["additionalProperties"]; !set {
				n["additionalProperties"] = false
			}
		}
		for _, child := range n {
			closeObjects(child)
		}
	case []interface{}:
		for _, child := range n {
			closeObjects(child)
		}
	}
}

func leafCauses(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, leafCauses(cause)...)
	}
	return leaves
}

func toFieldErrors(tree interface{}, err *jsonschema.ValidationError) field.ErrorList {
	path, value := resolvePointer(tree, err.InstanceLocation)

	keyword := err.KeywordLocation
	if i := strings.LastIndex(keyword, "/"); i >= 0 {
		keyword = keyword[i+1:]
	}

	switch keyword {
	case "required":
		names := quotedNames.FindAllStringSubmatch(err.Message, -1)
		if len(names) == 0 {
			return field.ErrorList{field.Required(orRoot(path), err.Message)}
		}
		errs := make(field.ErrorList, 0, len(names))
		for _, name := range names {
			errs = append(errs, field.Required(childPath(path, name[1]), ""))
		}
		return errs
	case "additionalProperties":
		names := quotedNames.FindAllStringSubmatch(err.Message, -1)
		if len(names) == 0 {
			return field.ErrorList{field.Forbidden(orRoot(path), err.Message)}
		}
		errs := make(field.ErrorList, 0, len(names))
		for _, name := range names {
			errs = append(errs, field.Forbidden(childPath(path, name[1]), "unknown field"))
		}
		return errs
	case "type", "format", "enum", "minLength", "minimum", "maximum", "pattern", "const":
		return field.ErrorList{field.Invalid(orRoot(path), displayValue(value), err.Message)}
	default:
		// A false schema: the key is not allowed at this position.
		return field.ErrorList{field.Forbidden(orRoot(path), "field is not allowed here")}
	}
}

// resolvePointer converts a JSON pointer into a field path, walking the tree
// alongside so that list positions become indexes and map keys become keys.
// The document root resolves to a nil path.
func resolvePointer(tree interface{}, pointer string) (*field.Path, interface{}) {
	if pointer == "" || pointer == "/" {
		return nil, tree
	}

	var path *field.Path
	var parentField string
	node := tree
	for _, token := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)

		switch n := node.(type) {
		case []interface{}:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(n) {
				return childPath(path, token), nil
			}
			path = indexPath(path, i)
			parentField = ""
			node = n[i]
		case map[string]interface{}:
			if keyedFields[parentField] && path != nil {
				path = path.Key(token)
				parentField = ""
			} else {
				path = childPath(path, token)
				parentField = token
			}
			node = n[token]
		default:
			return childPath(path, token), nil
		}
	}
	return path, node
}

func orRoot(path *field.Path) *field.Path {
	if path == nil {
		return field.NewPath("root")
	}
	return path
}

func childPath(path *field.Path, name string) *field.Path {
	if path == nil {
		return field.NewPath(name)
	}
	return path.Child(name)
}

func indexPath(path *field.Path, i int) *field.Path {
	if path == nil {
		return field.NewPath("root").Index(i)
	}
	return path.Index(i)
}

func displayValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}, []interface{}:
		return field.OmitValueType{}
	case json.Number:
		return v.String()
	}
	return value
}
