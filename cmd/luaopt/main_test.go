package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	err := app.Run(append([]string{"luaopt"}, args...))
	return buf.String(), err
}

func TestApp_FlagsRegisterCleanly(t *testing.T) {
	out, err := runApp(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--verbose")
	assert.Contains(t, out, "--fix")
}

func TestApp_VersionShowsBuildInfo(t *testing.T) {
	out, err := runApp(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "luaopt 0.3.0")
	assert.Contains(t, out, "commit:")
}

func TestApp_ParseErrorsDoNotFailRunWithoutStrict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("local local\n"), 0o644))

	_, err := runApp(t, "--quiet", "--no-backup", "--direct", dir)
	assert.NoError(t, err)
}
