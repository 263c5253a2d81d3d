package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptmaint/luaopt/internal/config"
	"github.com/scriptmaint/luaopt/internal/rules"
)

var nilFixPolicy = config.FixPolicy{NilGuards: true, Experimental: true}

func TestNilGuard_UnguardedDeref(t *testing.T) {
	cfg := testConfig(t)
	src := `local veh = GetVehiclePedIsIn(ped, false)
SetVehicleDoorsLocked(veh, 2)
`
	findings := byPattern(detect(t, cfg, nilFixPolicy, src), "nil-guard-suggestion")
	require.Empty(t, findings, "passing as an argument is not a dereference")
}

func TestNilGuard_FieldAccessFlagged(t *testing.T) {
	cfg := testConfig(t)
	src := `local veh = GetVehiclePedIsIn(ped, false)
veh:SetDoorsLocked(2)
`
	findings := byPattern(detect(t, cfg, nilFixPolicy, src), "nil-guard-suggestion")
	require.Len(t, findings, 1)
	assert.Equal(t, rules.Yellow, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "'veh'")
	assert.Contains(t, findings[0].Message, "GetVehiclePedIsIn()")
}

func TestNilGuard_GuardSuppresses(t *testing.T) {
	cfg := testConfig(t)
	tests := []struct {
		name string
		src  string
	}{
		{"if check", "local veh = GetVehiclePedIsIn(ped, false)\nif veh then\n\tveh:SetDoorsLocked(2)\nend\n"},
		{"and short circuit", "local veh = GetVehiclePedIsIn(ped, false)\nlocal doors = veh and veh.doors\n"},
		{"while condition", "local veh = GetVehiclePedIsIn(ped, false)\nwhile veh do\n\tveh = step(veh)\nend\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, byPattern(detect(t, cfg, nilFixPolicy, tc.src), "nil-guard-suggestion"))
		})
	}
}

func TestNilGuard_FixWrapsStatement(t *testing.T) {
	cfg := testConfig(t)
	src := `local veh = GetVehiclePedIsIn(ped, false)
veh.locked = true
`
	want := `local veh = GetVehiclePedIsIn(ped, false)
if veh then
veh.locked = true
end
`
	assert.Equal(t, want, fix(t, cfg, nilFixPolicy, src))
}

func TestNilGuard_FixNeedsExperimental(t *testing.T) {
	cfg := testConfig(t)
	src := "local veh = GetVehiclePedIsIn(ped, false)\nveh.locked = true\n"

	policy := config.PolicyFromFlags(false, false, false, true, false, false)
	assert.False(t, policy.NilGuards)
	assert.Equal(t, src, fix(t, cfg, policy, src))
}

func TestNilGuard_SeparatedStatementReportedOnly(t *testing.T) {
	cfg := testConfig(t)
	src := `local veh = GetVehiclePedIsIn(ped, false)
local x = 1
veh.locked = true
`
	findings := byPattern(detect(t, cfg, nilFixPolicy, src), "nil-guard-suggestion")
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Edits)
}
