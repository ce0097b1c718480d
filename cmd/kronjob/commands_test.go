package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sourceplane/kronjob/internal/config"
	"github.com/sourceplane/kronjob/internal/render"
	"github.com/sourceplane/kronjob/internal/validate"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

const nightly = `
name: nightly
image: example.com/base
schedule: "0 3 * * *"
namespaces: [staging, prod]
`

const once = `
name: migrate
image: example.com/base
schedule: once
`

func writeDocument(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultConfig() config.Config {
	return config.Config{LogLevel: "info", KubernetesVersion: render.DefaultKubernetesVersion}
}

func resetBuildFlags(t *testing.T) {
	t.Cleanup(func() {
		outputFile, outputFormat, debugNamespace = "", "yaml", ""
	})
	outputFile, outputFormat, debugNamespace = "", "yaml", ""
}

func TestRunBuild_ArgumentOrder(t *testing.T) {
	resetBuildFlags(t)
	first := writeDocument(t, "nightly.yaml", nightly)
	second := writeDocument(t, "once.json", `{"name": "migrate", "image": "example.com/base", "schedule": "once"}`)

	var out bytes.Buffer
	require.NoError(t, runBuild(context.Background(), defaultConfig(), []string{first, second}, &out))

	documents := bytes.Split(out.Bytes(), []byte("---\n"))
	require.Len(t, documents, 3)

	var kinds []string
	for _, document := range documents {
		var meta struct {
			Kind     string `json:"kind"`
			Metadata struct {
				Namespace string `json:"namespace"`
			} `json:"metadata"`
		}
		require.NoError(t, yaml.Unmarshal(document, &meta))
		kinds = append(kinds, meta.Kind+"/"+meta.Metadata.Namespace)
	}
	assert.Equal(t, []string{"CronJob/staging", "CronJob/prod", "Job/default"}, kinds)
}

func TestRunBuild_OutputFile(t *testing.T) {
	resetBuildFlags(t)
	outputFile = filepath.Join(t.TempDir(), "out", "manifests.json")

	var out bytes.Buffer
	require.NoError(t, runBuild(context.Background(), defaultConfig(), []string{writeDocument(t, "once.yaml", once)}, &out))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "List"`)
}

func TestRunBuild_DefaultsFile(t *testing.T) {
	resetBuildFlags(t)
	c := defaultConfig()
	c.DefaultsFile = writeDocument(t, "defaults.yaml", "namespace: batch\nlabels:\n  team: data\n")

	var out bytes.Buffer
	require.NoError(t, runBuild(context.Background(), c, []string{writeDocument(t, "once.yaml", once)}, &out))
	assert.Contains(t, out.String(), "namespace: batch\n")
	assert.Contains(t, out.String(), "team: data\n")
}

func TestRunBuild_InvalidDefaultsFile(t *testing.T) {
	resetBuildFlags(t)
	c := defaultConfig()
	c.DefaultsFile = writeDocument(t, "defaults.yaml",
		"failedJobsHistoryLimit: 0\nconcurrencyPolicy: Bogus\nrestartPolicy: Always\n")

	var out bytes.Buffer
	err := runBuild(context.Background(), c, []string{writeDocument(t, "nightly.yaml", nightly)}, &out)

	var validationErr *validate.Error
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "failedJobsHistoryLimit")
	assert.Empty(t, out.String())
}

func TestRunBuild_Errors(t *testing.T) {
	resetBuildFlags(t)
	path := writeDocument(t, "nightly.yaml", nightly)

	t.Run("format", func(t *testing.T) {
		outputFormat = "xml"
		t.Cleanup(func() { outputFormat = "yaml" })
		assert.ErrorContains(t, runBuild(context.Background(), defaultConfig(), []string{path}, &bytes.Buffer{}), "xml")
	})

	t.Run("cronjobs disabled", func(t *testing.T) {
		c := defaultConfig()
		c.DisableCronJobs = true
		err := runBuild(context.Background(), c, []string{path}, &bytes.Buffer{})
		assert.ErrorIs(t, err, render.ErrCronJobsDisabled)
	})

	t.Run("unsupported version", func(t *testing.T) {
		c := defaultConfig()
		c.KubernetesVersion = "1.7"
		err := runBuild(context.Background(), c, []string{path}, &bytes.Buffer{})
		assert.ErrorIs(t, err, render.ErrUnsupportedVersion)
	})

	t.Run("nothing written on failure", func(t *testing.T) {
		var out bytes.Buffer
		broken := writeDocument(t, "broken.yaml", "name: x\nschedule: once\n")
		err := runBuild(context.Background(), defaultConfig(), []string{path, broken}, &out)
		require.Error(t, err)
		assert.Empty(t, out.String())
	})
}

func TestRunValidate(t *testing.T) {
	resetBuildFlags(t)
	good := writeDocument(t, "nightly.yaml", nightly)

	var out bytes.Buffer
	require.NoError(t, runValidate(context.Background(), defaultConfig(), []string{good}, &out))
	assert.Equal(t, "✓ "+good+": 2 jobs valid\n", out.String())

	badImage := writeDocument(t, "image.yaml", "name: a\nschedule: once\n")
	badSchedule := writeDocument(t, "schedule.yaml", "name: a\nimage: b\nschedule: sometimes\n")
	err := runValidate(context.Background(), defaultConfig(), []string{good, badImage, badSchedule}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), badImage)
	assert.Contains(t, err.Error(), badSchedule)

	var validationErr *validate.Error
	assert.ErrorAs(t, err, &validationErr)
}

func TestRunDebug(t *testing.T) {
	resetBuildFlags(t)
	path := writeDocument(t, "nightly.yaml", nightly)

	var out bytes.Buffer
	require.NoError(t, runDebug(context.Background(), defaultConfig(), []string{path}, &out))
	assert.Contains(t, out.String(), "├─ prod\n")
	assert.Contains(t, out.String(), "Summary: 2 namespaces, 2 jobs (0 Job, 2 CronJob)")

	out.Reset()
	debugNamespace = "staging"
	require.NoError(t, runDebug(context.Background(), defaultConfig(), []string{path}, &out))
	assert.Contains(t, out.String(), "staging (1 jobs)")
}

func TestApplyCompileFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addCompileFlags(cmd, true)
	require.NoError(t, cmd.Flags().Parse([]string{"--k8s-api-version", "1.19", "--permissive"}))

	c := applyCompileFlags(cmd, config.Config{KubernetesVersion: "1.25", DisableCronJobs: true, DefaultsFile: "d.yaml"})
	assert.Equal(t, config.Config{
		KubernetesVersion: "1.19",
		Permissive:        true,
		DisableCronJobs:   true,
		DefaultsFile:      "d.yaml",
	}, c)
}

func TestInputPaths(t *testing.T) {
	assert.Equal(t, []string{"-"}, inputPaths(nil))
	assert.Equal(t, []string{"a.yaml"}, inputPaths([]string{"a.yaml"}))
}
