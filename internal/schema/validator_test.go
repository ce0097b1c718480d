package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sourceplane/kronjob/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"
)

func parseTree(t *testing.T, doc string) interface{} {
	t.Helper()
	data, err := yaml.YAMLToJSON([]byte(doc))
	require.NoError(t, err)

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var tree interface{}
	require.NoError(t, decoder.Decode(&tree))
	return tree
}

func structuralErrors(t *testing.T, err error) field.ErrorList {
	t.Helper()
	require.Error(t, err)
	var validationErr *validate.Error
	require.True(t, errors.As(err, &validationErr), err.Error())
	assert.Equal(t, validate.StageStructural, validationErr.Stage)
	return validationErr.Errors
}

const validDocument = `
name: parent
image: example.com/base
namespace: test
schedule: "*/5 * * * *"
labels:
  team: data
env:
  - name: A
    value: "1"
cpuLimit: 1
memoryLimit: 512Mi
namespaceOverrides:
  test:
    schedule: once
    suspend: true
jobs:
  - name: child
    args: ["--verbose"]
    volumeMounts:
      - name: data
        mountPath: /data
    volumes:
      - name: data
        emptyDir: {}
  - name: other
    failedJobsHistoryLimit: 3
namespaces: [test, staging]
`

func TestValidator_ValidDocument(t *testing.T) {
	for _, strict := range []bool{true, false} {
		v, err := NewValidator(strict)
		require.NoError(t, err)
		assert.Equal(t, strict, v.Strict())
		assert.NoError(t, v.Validate(parseTree(t, validDocument)))
	}
}

func TestValidator_Violations(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		field     string
		errorType field.ErrorType
	}{
		{
			name:      "job without name",
			document:  "image: a\njobs:\n  - name: ok\n  - schedule: once\n",
			field:     "jobs[1].name",
			errorType: field.ErrorTypeRequired,
		},
		{
			name:      "image of wrong type",
			document:  "name: a\njobs:\n  - name: b\n    image: 5\n",
			field:     "jobs[0].image",
			errorType: field.ErrorTypeInvalid,
		},
		{
			name:      "invalid schedule in override",
			document:  "name: a\nnamespace: test\nnamespaceOverrides:\n  test:\n    schedule: invalid-schedule\n",
			field:     "namespaceOverrides[test].schedule",
			errorType: field.ErrorTypeInvalid,
		},
		{
			name:      "invalid schedule at root",
			document:  "name: a\nschedule: every tuesday\n",
			field:     "schedule",
			errorType: field.ErrorTypeInvalid,
		},
		{
			name:      "nested jobs",
			document:  "name: a\njobs:\n  - name: b\n    jobs:\n      - name: c\n",
			field:     "jobs[0].jobs",
			errorType: field.ErrorTypeForbidden,
		},
		{
			name:      "namespace inside override",
			document:  "name: a\nnamespaceOverrides:\n  test:\n    namespace: other\n",
			field:     "namespaceOverrides[test].namespace",
			errorType: field.ErrorTypeForbidden,
		},
		{
			name:      "unsupported concurrency policy",
			document:  "name: a\nconcurrencyPolicy: Sometimes\n",
			field:     "concurrencyPolicy",
			errorType: field.ErrorTypeInvalid,
		},
		{
			name:      "non-string label",
			document:  "name: a\nlabels:\n  team:\n    nested: true\n",
			field:     "labels[team]",
			errorType: field.ErrorTypeInvalid,
		},
		{
			name:      "document is not an object",
			document:  "- name: a\n",
			field:     "root",
			errorType: field.ErrorTypeInvalid,
		},
		{
			name:      "env var without name",
			document:  "name: a\nenv:\n  - value: x\n",
			field:     "env[0].name",
			errorType: field.ErrorTypeRequired,
		},
	}

	for _, strict := range []bool{true, false} {
		v, err := NewValidator(strict)
		require.NoError(t, err)

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				errs := structuralErrors(t, v.Validate(parseTree(t, tt.document)))
				require.Len(t, errs, 1, errs.ToAggregate().Error())
				assert.Equal(t, tt.field, errs[0].Field)
				assert.Equal(t, tt.errorType, errs[0].Type)
			})
		}
	}
}

func TestValidator_UnknownFields(t *testing.T) {
	document := "name: a\nimagePolicy: Always\njobs:\n  - name: b\n    imag: x\nenv:\n  - name: A\n    vaule: x\n"

	strict, err := NewValidator(true)
	require.NoError(t, err)
	errs := structuralErrors(t, strict.Validate(parseTree(t, document)))
	require.Len(t, errs, 3)
	assert.Equal(t, "env[0].vaule", errs[0].Field)
	assert.Equal(t, "imagePolicy", errs[1].Field)
	assert.Equal(t, "jobs[0].imag", errs[2].Field)
	for _, e := range errs {
		assert.Equal(t, field.ErrorTypeForbidden, e.Type)
	}

	permissive, err := NewValidator(false)
	require.NoError(t, err)
	assert.NoError(t, permissive.Validate(parseTree(t, document)))
}

func TestValidator_ReportsEveryViolation(t *testing.T) {
	v, err := NewValidator(true)
	require.NoError(t, err)

	errs := structuralErrors(t, v.Validate(parseTree(t, "name: 1\nsuspend: yes-please\njobs:\n  - image: x\n")))
	require.Len(t, errs, 3)
	assert.Equal(t, "jobs[0].name", errs[0].Field)
	assert.Equal(t, "name", errs[1].Field)
	assert.Equal(t, "suspend", errs[2].Field)
}

func TestResolvePointer(t *testing.T) {
	tree := parseTree(t, "jobs:\n  - labels:\n      a/b: x\nnamespaceOverrides:\n  test:\n    env: []\n")

	path, value := resolvePointer(tree, "")
	assert.Nil(t, path)
	assert.Equal(t, tree, value)

	path, value = resolvePointer(tree, "/jobs/0/labels/a~1b")
	assert.Equal(t, "jobs[0].labels[a/b]", path.String())
	assert.Equal(t, "x", value)

	path, _ = resolvePointer(tree, "/namespaceOverrides/test/env")
	assert.Equal(t, "namespaceOverrides[test].env", path.String())
}
