package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/scriptmaint/luaopt/internal/backup"
	"github.com/scriptmaint/luaopt/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testRunner(t *testing.T, policy config.FixPolicy) (*Runner, *config.Config) {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	backups := backup.NewManager(cfg.Backup.Suffix, cfg.Backup.Enabled)
	return New(cfg, policy, backups), cfg
}

func writeLua(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_ReportOnlyLeavesFilesAlone(t *testing.T) {
	dir := t.TempDir()
	src := "local d = math.pow(v, 2)\n"
	path := writeLua(t, dir, "a.lua", src)

	r, _ := testRunner(t, config.FixPolicy{})
	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, StatusOK, res.Status)
	assert.False(t, res.Changed)
	require.NotEmpty(t, res.Findings)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
	assert.NoFileExists(t, path+".bak")
}

func TestRun_FixRewritesAndBacksUp(t *testing.T) {
	dir := t.TempDir()
	src := "local d = math.pow(v, 2)\n"
	path := writeLua(t, dir, "a.lua", src)

	r, _ := testRunner(t, config.FixPolicy{Green: true})
	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Applied)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "local d = v*v\n", string(data))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, src, string(bak), "backup holds the pre-fix bytes")
}

func TestRun_ExistingBackupSkipsFile(t *testing.T) {
	dir := t.TempDir()
	src := "local d = math.pow(v, 2)\n"
	path := writeLua(t, dir, "a.lua", src)
	writeLua(t, dir, "a.lua.bak", "pristine\n")

	r, _ := testRunner(t, config.FixPolicy{Green: true})
	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)

	res := results[0]
	assert.Equal(t, StatusSkipped, res.Status)
	assert.False(t, res.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data), "file untouched when its backup would be clobbered")
}

func TestRun_ParseErrorReported(t *testing.T) {
	dir := t.TempDir()
	path := writeLua(t, dir, "broken.lua", "function oops(\n")

	r, _ := testRunner(t, config.FixPolicy{Green: true})
	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)

	res := results[0]
	assert.Equal(t, StatusParseError, res.Status)
	require.Error(t, res.Err)
	assert.Empty(t, res.Findings)
}

func TestRun_OversizedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeLua(t, dir, "big.lua", "local x = 1\n")

	r, cfg := testRunner(t, config.FixPolicy{})
	cfg.Performance.MaxFileSize = 4

	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, results[0].Status)
	assert.Contains(t, results[0].Note, "size limit")
}

func TestRun_CancelledContextReportsTimeout(t *testing.T) {
	dir := t.TempDir()
	src := "local d = math.pow(v, 2)\n"
	path := writeLua(t, dir, "a.lua", src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := testRunner(t, config.FixPolicy{Green: true})
	results, _ := r.Run(ctx, []string{path})
	require.Len(t, results, 1)
	assert.Equal(t, StatusTimeout, results[0].Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data), "no content altered after the budget expires")
}

func TestRun_PerFileBudgetEnforced(t *testing.T) {
	dir := t.TempDir()
	src := "local d = math.pow(v, 2)\n"
	path := writeLua(t, dir, "a.lua", src)

	r, cfg := testRunner(t, config.FixPolicy{Green: true})
	cfg.Performance.FileTimeoutSec = 0 // budget expires before the first stage

	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, StatusTimeout, res.Status)
	assert.Error(t, res.Err)
	assert.Less(t, res.Duration, time.Second, "a blown budget must not stall the run")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
	assert.NoFileExists(t, path+".bak")
}

func TestRun_ResultsSortedByPath(t *testing.T) {
	dir := t.TempDir()
	b := writeLua(t, dir, "b.lua", "local x = 1\n")
	a := writeLua(t, dir, "a.lua", "local y = 2\n")

	r, _ := testRunner(t, config.FixPolicy{})
	results, err := r.Run(context.Background(), []string{b, a})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].Path)
	assert.Equal(t, b, results[1].Path)
}

func TestRun_StatementRewriteLandsOnDisk(t *testing.T) {
	dir := t.TempDir()
	src := "table.insert(acc, v)\n"
	path := writeLua(t, dir, "a.lua", src)

	r, _ := testRunner(t, config.FixPolicy{Green: true})
	results, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)

	res := results[0]
	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "acc[#acc+1] = v\n", string(data))
}
