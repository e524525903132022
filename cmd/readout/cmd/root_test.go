package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps configuration lookups away from the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "readout", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"extract", "batch", "image", "serve", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "nearest number above it")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "readout dev (commit unknown, built unknown)\n", out)
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "", "--no-such-flag")
	assert.Error(t, err)
}

func TestRootCommandBadConfigFile(t *testing.T) {
	dir := isolate(t)
	_, _, err := execute(t, "", "--config", dir+"/missing.yaml", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "", "--log-level", "loud", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestConfigShow(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_line_gap: 30")
	assert.Contains(t, out, "max_column_offset: 150")
	assert.Contains(t, out, "- Distance")
}

func TestConfigShow_ReadsConfigFile(t *testing.T) {
	dir := isolate(t)
	writeTestFile(t, dir, "readout.yaml", "extraction:\n  max_line_gap: 42\n")

	out, _, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_line_gap: 42")
}

func TestConfigGenerate(t *testing.T) {
	dir := isolate(t)
	out, _, err := execute(t, "", "config", "generate", "custom.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "custom.yaml")
	assert.FileExists(t, dir+"/custom.yaml")

	// The generated file is loadable.
	out, _, err = execute(t, "", "--config", dir+"/custom.yaml", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_glyph_gap: 100")
}

func TestConfigPaths(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, "Environment prefix: READOUT")
}
