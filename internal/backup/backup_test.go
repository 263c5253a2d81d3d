package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSnapshot_PreservesContentAndHash(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.lua", "local x = 1\n")

	m := NewManager(".bak", true)
	rec, err := m.Snapshot(path)
	require.NoError(t, err)
	require.NotNil(t, rec)

	saved, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "local x = 1\n", string(saved))
	assert.Equal(t, xxhash.Sum64(saved), rec.Hash)
	assert.Equal(t, int64(len(saved)), rec.Size)
}

func TestSnapshot_ExistingBackupRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.lua", "current\n")
	writeScript(t, dir, "a.lua.bak", "pristine\n")

	m := NewManager(".bak", true)
	_, err := m.Snapshot(path)
	require.ErrorIs(t, err, ErrBackupExists)

	saved, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "pristine\n", string(saved), "existing backup untouched")
}

func TestSnapshot_DisabledIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.lua", "x\n")

	m := NewManager(".bak", false)
	rec, err := m.Snapshot(path)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoFileExists(t, path+".bak")
}

func TestWrite_RequiresSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.lua", "original\n")

	m := NewManager(".bak", true)
	require.Error(t, m.Write(path, []byte("new\n")))

	_, err := m.Snapshot(path)
	require.NoError(t, err)
	require.NoError(t, m.Write(path, []byte("new\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestRevert_RestoresOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.lua", "original\n")

	m := NewManager(".bak", true)
	_, err := m.Snapshot(path)
	require.NoError(t, err)
	require.NoError(t, m.Write(path, []byte("rewritten\n")))

	require.NoError(t, m.Revert(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))
	assert.NoFileExists(t, path+".bak")
}

func TestRevertAll_WalksTree(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "client")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	m := NewManager(".bak", true)
	var paths []string
	for _, p := range []string{
		filepath.Join(dir, "a.lua"),
		filepath.Join(sub, "b.lua"),
	} {
		require.NoError(t, os.WriteFile(p, []byte("orig "+p+"\n"), 0o644))
		_, err := m.Snapshot(p)
		require.NoError(t, err)
		require.NoError(t, m.Write(p, []byte("changed\n")))
		paths = append(paths, p)
	}

	n, err := m.RevertAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "orig "+p+"\n", string(data))
	}
}

func TestList_SortedByOriginal(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.lua.bak", "b\n")
	writeScript(t, dir, "a.lua.bak", "a\n")

	m := NewManager(".bak", true)
	records, err := m.List(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, filepath.Join(dir, "a.lua"), records[0].Original)
	assert.Equal(t, filepath.Join(dir, "b.lua"), records[1].Original)
}

func TestClean_RemovesBackupsOnly(t *testing.T) {
	dir := t.TempDir()
	keep := writeScript(t, dir, "a.lua", "keep\n")
	writeScript(t, dir, "a.lua.bak", "old\n")

	m := NewManager(".bak", true)
	n, err := m.Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, keep)
	assert.NoFileExists(t, keep+".bak")
}

func TestBulkSnapshot_CreatesArchive(t *testing.T) {
	dir := t.TempDir()
	a := writeScript(t, dir, "a.lua", "a\n")
	b := writeScript(t, dir, "b.lua", "b\n")

	archive, err := BulkSnapshot(dir, []string{a, b})
	require.NoError(t, err)
	assert.FileExists(t, archive)
	assert.Equal(t, dir, filepath.Dir(archive))

	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
