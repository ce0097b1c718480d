package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sourceplane/kronjob/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"
)

func projectSample(t *testing.T) []runtime.Object {
	t.Helper()
	objects, err := newProjector(t, Options{}).ProjectAll(
		[]model.AggregateJob{*record("once", "once"), *record("recurring", "*/5 * * * *")},
	)
	require.NoError(t, err)
	return objects
}

type typeMeta struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Metadata   struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

func TestParseFormat(t *testing.T) {
	for input, expected := range map[string]Format{"": FormatYAML, "yaml": FormatYAML, "YML": FormatYAML, "json": FormatJSON} {
		format, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, expected, format, input)
	}

	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, `unsupported output format "xml"`)
}

func TestWriter_RenderYAML(t *testing.T) {
	data, err := NewWriter(FormatYAML).Render(projectSample(t))
	require.NoError(t, err)

	documents := strings.Split(string(data), documentSeparator)
	require.Len(t, documents, 2)

	var first, second typeMeta
	require.NoError(t, yaml.Unmarshal([]byte(documents[0]), &first))
	require.NoError(t, yaml.Unmarshal([]byte(documents[1]), &second))
	assert.Equal(t, "batch/v1", first.APIVersion)
	assert.Equal(t, "Job", first.Kind)
	assert.Equal(t, "once", first.Metadata.Name)
	assert.Equal(t, "CronJob", second.Kind)
	assert.Equal(t, "recurring", second.Metadata.Name)
	assert.Contains(t, documents[1], "*/5 * * * *")
}

func TestWriter_RenderJSON(t *testing.T) {
	data, err := NewWriter(FormatJSON).Render(projectSample(t))
	require.NoError(t, err)

	var list struct {
		APIVersion string     `json:"apiVersion"`
		Kind       string     `json:"kind"`
		Items      []typeMeta `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, "v1", list.APIVersion)
	assert.Equal(t, "List", list.Kind)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Job", list.Items[0].Kind)
	assert.Equal(t, "CronJob", list.Items[1].Kind)
}

func TestWriter_RenderEmpty(t *testing.T) {
	data, err := NewWriter(FormatYAML).Render(nil)
	require.NoError(t, err)
	assert.Empty(t, data)

	data, err = NewWriter(FormatJSON).Render(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiVersion": "v1", "kind": "List", "metadata": {}, "items": []}`, string(data))
}

func TestWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(FormatYAML).Write(&buf, projectSample(t)))
	assert.Contains(t, buf.String(), "kind: Job\n")
	assert.Contains(t, buf.String(), documentSeparator+"apiVersion: batch/v1\n")
}

func TestWriter_WriteFile(t *testing.T) {
	dir := t.TempDir()
	objects := projectSample(t)
	writer := NewWriter(FormatYAML)

	jsonPath := filepath.Join(dir, "nested", "out.json")
	require.NoError(t, writer.WriteFile(jsonPath, objects))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	plainPath := filepath.Join(dir, "out.txt")
	require.NoError(t, writer.WriteFile(plainPath, objects))
	data, err = os.ReadFile(plainPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), documentSeparator)
}
