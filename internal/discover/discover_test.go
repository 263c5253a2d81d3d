package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkFile(t *testing.T, root string, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover_FindsResourcesByManifest(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "esx_garage/fxmanifest.lua", "fx_version 'cerulean'\n")
	mkFile(t, root, "esx_garage/client/main.lua", "")
	mkFile(t, root, "esx_garage/server/main.lua", "")
	mkFile(t, root, "legacy_job/__resource.lua", "resource_manifest_version '44febabe'\n")
	mkFile(t, root, "legacy_job/job.lua", "")
	mkFile(t, root, "not_a_resource/readme.txt", "")

	resources, err := Discover(Options{Root: root})
	require.NoError(t, err)
	require.Len(t, resources, 2)

	assert.Equal(t, "esx_garage", resources[0].Name)
	require.Len(t, resources[0].Scripts, 3) // manifest counts too
	assert.Equal(t, "legacy_job", resources[1].Name)
}

func TestDiscover_CategoryQualifiedNames(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "[qb]/qb-core/fxmanifest.lua", "")
	mkFile(t, root, "[qb]/qb-core/core.lua", "")
	mkFile(t, root, "[standalone]/qb-core/fxmanifest.lua", "")
	mkFile(t, root, "[standalone]/qb-core/core.lua", "")

	resources, err := Discover(Options{Root: root})
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "[qb]/qb-core", resources[0].Name)
	assert.Equal(t, "[standalone]/qb-core", resources[1].Name)
}

func TestDiscover_RootIsResource(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "fxmanifest.lua", "")
	mkFile(t, root, "client.lua", "")

	resources, err := Discover(Options{Root: root})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, filepath.Base(root), resources[0].Name)
}

func TestDiscover_SkipsNodeModulesAndHidden(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "res/fxmanifest.lua", "")
	mkFile(t, root, "res/ok.lua", "")
	mkFile(t, root, "res/node_modules/dep/bad.lua", "")
	mkFile(t, root, "res/.git/hook.lua", "")

	resources, err := Discover(Options{Root: root})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	for _, s := range resources[0].Scripts {
		assert.NotContains(t, s, "node_modules")
		assert.NotContains(t, s, ".git")
	}
}

func TestDiscover_BackupFilesIgnored(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "res/fxmanifest.lua", "")
	mkFile(t, root, "res/main.lua", "")
	mkFile(t, root, "res/main.lua.bak", "")

	resources, err := Discover(Options{Root: root})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	for _, s := range resources[0].Scripts {
		assert.NotContains(t, s, ".bak")
	}
}

func TestDiscover_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "res/fxmanifest.lua", "")
	mkFile(t, root, "res/main.lua", "")
	mkFile(t, root, "res/vendor/lib.lua", "")

	resources, err := Discover(Options{Root: root, Excludes: []string{"**/vendor/**"}})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	for _, s := range resources[0].Scripts {
		assert.NotContains(t, s, "vendor")
	}
}

func TestDiscover_DirectFile(t *testing.T) {
	root := t.TempDir()
	script := mkFile(t, root, "standalone.lua", "local x = 1\n")

	resources, err := Discover(Options{Root: script})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "(direct)", resources[0].Name)
	assert.Equal(t, []string{script}, resources[0].Scripts)
}

func TestDiscover_DirectDirSkipsManifestDetection(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "a.lua", "")
	mkFile(t, root, "sub/b.lua", "")

	resources, err := Discover(Options{Root: root, Direct: true})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "(direct)", resources[0].Name)
	assert.Len(t, resources[0].Scripts, 2)
}

func TestDiscover_DirectNonLuaFileRejected(t *testing.T) {
	root := t.TempDir()
	path := mkFile(t, root, "notes.txt", "")
	_, err := Discover(Options{Root: path})
	require.Error(t, err)
}

func TestReadManifest_Metadata(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "fxmanifest.lua", `fx_version 'cerulean'
game 'gta5'

name 'esx_garage'
version "1.4.2"
author 'someone <dev@example.com>'
description 'Garage management'
`)

	info := readManifest(root)
	assert.Equal(t, "esx_garage", info.Name)
	assert.Equal(t, "1.4.2", info.Version)
	assert.Equal(t, "someone <dev@example.com>", info.Author)
	assert.Equal(t, "Garage management", info.Description)
}

func TestFiles_DedupAndSort(t *testing.T) {
	got := Files([]Resource{
		{Scripts: []string{"/z.lua", "/a.lua"}},
		{Scripts: []string{"/a.lua", "/m.lua"}},
	})
	assert.Equal(t, []string{"/a.lua", "/m.lua", "/z.lua"}, got)
}
