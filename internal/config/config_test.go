package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CataloguesPopulated(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Analysis.IsExpensiveCall("PlayerPedId"))
	assert.True(t, cfg.Analysis.IsHotCallback("onTick"))
	assert.True(t, cfg.Analysis.IsDebugCall("print"))
	assert.False(t, cfg.Analysis.IsDebugCall("DoSomething"))
	assert.NotEmpty(t, cfg.Analysis.NilableCalls)
	assert.True(t, cfg.Backup.Enabled)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis.CacheThreshold, cfg.Analysis.CacheThreshold)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".luaopt.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[analysis]
cache_threshold = 2
expensive_calls = ["GetGameTimer"]

[performance]
workers = 3

[backup]
enabled = false
suffix = ".orig"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.CacheThreshold)
	assert.True(t, cfg.Analysis.IsExpensiveCall("GetGameTimer"))
	assert.False(t, cfg.Analysis.IsExpensiveCall("PlayerPedId"), "lists replace, not merge")
	assert.Equal(t, 3, cfg.Performance.Workers)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, ".orig", cfg.Backup.Suffix)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[analysis\ncache"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, runtime.NumCPU(), cfg.Performance.Workers)

	cfg = Default()
	cfg.Analysis.CacheThreshold = 1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Performance.Workers = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Project.Root = ""
	require.Error(t, cfg.Validate())
}

func TestPolicyFromFlags_YellowImpliesGreen(t *testing.T) {
	p := PolicyFromFlags(false, true, false, false, false, false)
	assert.True(t, p.Green)
	assert.True(t, p.Yellow)
}

func TestPolicyFromFlags_ExperimentalGates(t *testing.T) {
	p := PolicyFromFlags(false, false, false, true, true, false)
	assert.False(t, p.NilGuards, "fix-nil is inert without experimental")
	assert.False(t, p.DeadCode)

	p = PolicyFromFlags(false, false, false, true, true, true)
	assert.True(t, p.NilGuards)
	assert.True(t, p.DeadCode)
}

func TestPolicy_Fixing(t *testing.T) {
	assert.False(t, FixPolicy{}.Fixing())
	assert.True(t, FixPolicy{Green: true}.Fixing())
	assert.True(t, FixPolicy{Debug: true}.Fixing())
}
