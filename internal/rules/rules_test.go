package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptmaint/luaopt/internal/analysis"
	"github.com/scriptmaint/luaopt/internal/config"
	"github.com/scriptmaint/luaopt/internal/edit"
	"github.com/scriptmaint/luaopt/internal/parser"
	"github.com/scriptmaint/luaopt/internal/rules"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	return cfg
}

func detect(t *testing.T, cfg *config.Config, policy config.FixPolicy, src string) []rules.Finding {
	t.Helper()
	chunk, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	info := analysis.Analyze(chunk, []byte(src), &cfg.Analysis)
	return rules.Run(info, cfg, policy)
}

func byPattern(findings []rules.Finding, pattern string) []rules.Finding {
	var out []rules.Finding
	for _, f := range findings {
		if f.Pattern == pattern {
			out = append(out, f)
		}
	}
	return out
}

// fix runs the full detect-plan-rewrite path and returns the resulting text.
func fix(t *testing.T, cfg *config.Config, policy config.FixPolicy, src string) string {
	t.Helper()
	findings := detect(t, cfg, policy, src)
	plan := edit.Build(findings, policy)
	out, err := edit.Rewrite([]byte(src), plan)
	require.NoError(t, err)
	return string(out)
}

var greenPolicy = config.FixPolicy{Green: true}

func TestTableInsert_Append(t *testing.T) {
	cfg := testConfig(t)
	out := fix(t, cfg, greenPolicy, "table.insert(mylist, x)\n")
	assert.Equal(t, "mylist[#mylist+1] = x\n", out)
}

func TestTableInsert_PositionalFormKept(t *testing.T) {
	cfg := testConfig(t)
	src := "table.insert(mylist, 1, x)\n"
	assert.Equal(t, src, fix(t, cfg, greenPolicy, src))
	assert.Empty(t, byPattern(detect(t, cfg, greenPolicy, src), "table-insert-append"))
}

func TestTableInsert_ExpressionPositionKept(t *testing.T) {
	cfg := testConfig(t)
	// The replacement is a statement; a value context cannot take it.
	src := "local r = table.insert(mylist, x)\n"
	assert.Empty(t, byPattern(detect(t, cfg, greenPolicy, src), "table-insert-append"))
}

func TestTableGetn(t *testing.T) {
	cfg := testConfig(t)
	out := fix(t, cfg, greenPolicy, "local n = table.getn(items)\n")
	assert.Equal(t, "local n = #items\n", out)
}

func TestTableGetn_InsideExpressionParenthesized(t *testing.T) {
	cfg := testConfig(t)
	out := fix(t, cfg, greenPolicy, "local n = table.getn(items) + 1\n")
	assert.Equal(t, "local n = (#items) + 1\n", out)
}

func TestStringLen_BothForms(t *testing.T) {
	cfg := testConfig(t)
	out := fix(t, cfg, greenPolicy, "local a = string.len(s)\nlocal b = s:len()\n")
	assert.Equal(t, "local a = #s\nlocal b = #s\n", out)
}

func TestMathPow(t *testing.T) {
	cfg := testConfig(t)
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"square", "local d = math.pow(v, 2)\n", "local d = v*v\n"},
		{"cube", "local d = math.pow(v, 3)\n", "local d = v*v*v\n"},
		{"sqrt", "local d = math.pow(v, 0.5)\n", "local d = math.sqrt(v)\n"},
		{"square in sum", "local d = math.pow(v, 2) + 1\n", "local d = (v*v) + 1\n"},
		{"negated", "local d = -math.pow(v, 2)\n", "local d = -(v*v)\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fix(t, cfg, greenPolicy, tc.src))
		})
	}
}

func TestMathPow_OtherExponentsKept(t *testing.T) {
	cfg := testConfig(t)
	src := "local d = math.pow(v, 7)\nlocal e = math.pow(v, n)\n"
	assert.Equal(t, src, fix(t, cfg, greenPolicy, src))
}

func TestDistanceNative_MessageOnly(t *testing.T) {
	cfg := testConfig(t)
	src := "local d = GetDistanceBetweenCoords(x1, y1, z1, x2, y2, z2, true)\n"
	findings := byPattern(detect(t, cfg, greenPolicy, src), "distance-native-suggestion")
	require.Len(t, findings, 1)
	assert.Equal(t, rules.Yellow, findings[0].Severity)
	assert.Empty(t, findings[0].Edits)
	assert.Contains(t, findings[0].Message, "#(coords1 - coords2)")
	assert.Equal(t, src, fix(t, cfg, config.FixPolicy{Green: true, Yellow: true}, src))
}

func TestGlobalWrites(t *testing.T) {
	cfg := testConfig(t)
	src := "leaked = 1\n_intentional = 2\nMY_CONST = 3\nlocal ok = 4\nok = 5\n"
	findings := byPattern(detect(t, cfg, greenPolicy, src), "global-write")
	require.Len(t, findings, 1)
	assert.Equal(t, rules.Red, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "leaked")
	assert.Empty(t, findings[0].Edits)
}

func TestGlobalWrites_IfArmLocalDoesNotMask(t *testing.T) {
	cfg := testConfig(t)
	src := "if cond then\n\tlocal count = 1\nend\ncount = 2\n"
	findings := byPattern(detect(t, cfg, greenPolicy, src), "global-write")
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "count")
}

func TestDebugCalls_CommentedOut(t *testing.T) {
	cfg := testConfig(t)
	src := "print('checkpoint')\nlocal x = 1\n"
	out := fix(t, cfg, config.FixPolicy{Debug: true}, src)
	assert.Equal(t, "-- print('checkpoint')\nlocal x = 1\n", out)
}

func TestDebugCalls_ExpressionPositionReportedOnly(t *testing.T) {
	cfg := testConfig(t)
	src := "local ok = pcall(print, x)\n"
	findings := byPattern(detect(t, cfg, config.FixPolicy{Debug: true}, src), "debug-call")
	for _, f := range findings {
		assert.Empty(t, f.Edits)
	}
	assert.Equal(t, src, fix(t, cfg, config.FixPolicy{Debug: true}, src))
}

func TestDebugCalls_SharedLineReportedOnly(t *testing.T) {
	cfg := testConfig(t)
	src := "print('a') print('b')\n"
	findings := byPattern(detect(t, cfg, config.FixPolicy{Debug: true}, src), "debug-call")
	require.Len(t, findings, 2)
	assert.Empty(t, findings[0].Edits)
	assert.Empty(t, findings[1].Edits)
}

func TestDebugCalls_MethodForm(t *testing.T) {
	cfg := testConfig(t)
	src := "logger:log('checkpoint')\nlocal x = 1\n"
	findings := byPattern(detect(t, cfg, config.FixPolicy{Debug: true}, src), "debug-call")
	require.Len(t, findings, 1)
	out := fix(t, cfg, config.FixPolicy{Debug: true}, src)
	assert.Equal(t, "-- logger:log('checkpoint')\nlocal x = 1\n", out)
}

func TestDebugCalls_MathLogExempt(t *testing.T) {
	cfg := testConfig(t)
	src := "local l = math.log(x)\n"
	assert.Empty(t, byPattern(detect(t, cfg, greenPolicy, src), "debug-call"))
}

func TestUnusedLocals(t *testing.T) {
	cfg := testConfig(t)
	src := `
local used = 1
local never = 2
local _ignored = 3
local function helper() end
return used
`
	findings := detect(t, cfg, greenPolicy, src)

	unused := byPattern(findings, "unused-local")
	require.Len(t, unused, 1)
	assert.Contains(t, unused[0].Message, "'never'")

	fns := byPattern(findings, "unused-local-function")
	require.Len(t, fns, 1)
	assert.Contains(t, fns[0].Message, "'helper'")
}

func TestFix_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	src := `
local n = table.getn(items)
local d = math.pow(v, 2)
table.insert(items, d)
local a = string.len(s)
`
	once := fix(t, cfg, greenPolicy, src)
	twice := fix(t, cfg, greenPolicy, once)
	assert.NotEqual(t, src, once)
	assert.Equal(t, once, twice, "a second pass finds nothing to change")
}

func TestFix_YellowDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)
	src := "local s = \"\"\nfor i = 1, 3 do\n\ts = s .. \"x\"\nend\n"
	assert.Equal(t, src, fix(t, cfg, greenPolicy, src))
	assert.NotEqual(t, src, fix(t, cfg, config.FixPolicy{Green: true, Yellow: true}, src))
}
