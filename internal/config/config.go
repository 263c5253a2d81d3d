package config

import (
	"fmt"
	"os"
	"runtime"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the full runtime configuration for an analysis run. Values come
// from built-in defaults, then .luaopt.toml, then CLI flag overrides.
type Config struct {
	Project     Project     `toml:"project"`
	Performance Performance `toml:"performance"`
	Analysis    Analysis    `toml:"analysis"`
	Backup      Backup      `toml:"backup"`

	Exclude []string `toml:"exclude"`
}

type Project struct {
	Root   string `toml:"root"`
	Name   string `toml:"name"`
	Direct bool   `toml:"direct"` // treat root as a plain script tree, no manifest detection
}

type Performance struct {
	Workers        int `toml:"workers"`          // 0 = NumCPU
	FileTimeoutSec int `toml:"file_timeout_sec"` // wall-clock budget per file
	MaxFileSize    int `toml:"max_file_size"`    // files above this are skipped
}

// Analysis holds the pattern catalogue knobs. The call lists default to the
// FiveM natives the tool was built for but are fully overridable so other
// Lua-scripted platforms can reuse the engine.
type Analysis struct {
	CacheThreshold int `toml:"cache_threshold"` // repeated-call count that triggers caching

	// HotCallbacks are function names whose bodies run per frame/tick.
	// Repeated-call detection inside them uses CacheThreshold-1.
	HotCallbacks []string `toml:"hot_callbacks"`

	// ExpensiveCalls are call signatures eligible for repeated-call caching.
	ExpensiveCalls []string `toml:"expensive_calls"`

	// CacheNames maps an expensive call signature to the local name used when
	// hoisting a cache declaration for it. Missing entries fall back to a
	// derived name.
	CacheNames map[string]string `toml:"cache_names"`

	// DistanceCall is the expensive distance native that should be replaced
	// by vector math; reported only, never rewritten.
	DistanceCall string `toml:"distance_call"`

	// DebugCalls are logging/print signatures that the debug-fix mode
	// comments out.
	DebugCalls []string `toml:"debug_calls"`

	// NilableCalls maps call signatures to a short reason why their result
	// can be nil/0; accessing such a result without a guard is flagged.
	NilableCalls map[string]string `toml:"nilable_calls"`
}

type Backup struct {
	Enabled bool   `toml:"enabled"`
	Suffix  string `toml:"suffix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Project: Project{Root: "."},
		Performance: Performance{
			Workers:        0, // resolved to NumCPU by Validate
			FileTimeoutSec: 10,
			MaxFileSize:    4 * 1024 * 1024,
		},
		Analysis: Analysis{
			CacheThreshold: 4,
			HotCallbacks: []string{
				"onTick", "OnTick", "tick", "Tick",
				"mainLoop", "MainLoop", "gameLoop", "GameLoop",
			},
			ExpensiveCalls: []string{
				"PlayerPedId", "PlayerId", "GetPlayerServerId",
				"GetEntityCoords", "GetEntityModel", "GetHashKey",
				"GetPlayerPed", "GetVehiclePedIsIn", "GetEntityHeading",
			},
			CacheNames: map[string]string{
				"PlayerPedId":       "ped",
				"PlayerId":          "playerId",
				"GetPlayerServerId": "serverId",
				"GetEntityCoords":   "coords",
				"GetEntityModel":    "model",
				"GetHashKey":        "hash",
				"GetPlayerPed":      "ped",
				"GetVehiclePedIsIn": "vehicle",
				"GetEntityHeading":  "heading",
			},
			DistanceCall: "GetDistanceBetweenCoords",
			DebugCalls: []string{
				"print", "printf", "printe", "printd", "log",
				"log1", "log2", "log3",
				"DebugLog", "debug_log", "trace", "dump",
			},
			NilableCalls: map[string]string{
				"GetPlayerPed":                  "player not loaded or invalid player ID",
				"PlayerPedId":                   "player ped not yet spawned",
				"GetVehiclePedIsIn":             "ped is not in a vehicle (returns 0)",
				"GetPedInVehicleSeat":           "seat is empty (returns 0)",
				"GetClosestVehicle":             "no vehicle nearby (returns 0)",
				"GetClosestPed":                 "no ped nearby (returns 0)",
				"NetworkGetEntityFromNetworkId": "network ID does not exist (returns 0)",
				"NetworkGetNetworkIdFromEntity": "entity does not exist (returns 0)",
				"GetEntityAttachedTo":           "entity is not attached (returns 0)",
				"GetPedKiller":                  "no killer or ped is alive (returns 0)",
				"GetPedLastVehicle":             "ped never entered a vehicle (returns 0)",
				"GetVehicleTrailer":             "no trailer attached (returns false, 0)",
				"GetEntityPlayerIsFreeAimingAt": "not aiming at anything (returns false, 0)",
				"GetClosestObjectOfType":        "no matching object found (returns 0)",
			},
		},
		Backup: Backup{
			Enabled: true,
			Suffix:  ".bak",
		},
		Exclude: []string{"**/node_modules/**", "**/.*/**"},
	}
}

// Load reads configuration from path, starting from defaults. A missing file
// is not an error: defaults are returned so the tool works without a config.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and fills computed defaults.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project root must not be empty")
	}
	if c.Performance.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Performance.Workers)
	}
	if c.Performance.Workers == 0 {
		c.Performance.Workers = runtime.NumCPU()
	}
	if c.Performance.FileTimeoutSec <= 0 {
		c.Performance.FileTimeoutSec = 10
	}
	if c.Performance.MaxFileSize <= 0 {
		c.Performance.MaxFileSize = 4 * 1024 * 1024
	}
	if c.Analysis.CacheThreshold < 2 {
		return fmt.Errorf("cache_threshold must be >= 2, got %d", c.Analysis.CacheThreshold)
	}
	if c.Backup.Suffix == "" {
		c.Backup.Suffix = ".bak"
	}
	return nil
}

// IsHotCallback reports whether name is a configured hot callback.
func (a *Analysis) IsHotCallback(name string) bool {
	for _, h := range a.HotCallbacks {
		if h == name {
			return true
		}
	}
	return false
}

// IsExpensiveCall reports whether sig is in the hot-call caching list.
func (a *Analysis) IsExpensiveCall(sig string) bool {
	for _, e := range a.ExpensiveCalls {
		if e == sig {
			return true
		}
	}
	return false
}

// IsDebugCall reports whether sig is a configured debug/log signature.
func (a *Analysis) IsDebugCall(sig string) bool {
	for _, d := range a.DebugCalls {
		if d == sig {
			return true
		}
	}
	return false
}
