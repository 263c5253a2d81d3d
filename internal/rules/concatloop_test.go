package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptmaint/luaopt/internal/config"
	"github.com/scriptmaint/luaopt/internal/rules"
)

var yellowPolicy = config.FixPolicy{Green: true, Yellow: true}

func TestConcatLoop_RewritesToPartsTable(t *testing.T) {
	cfg := testConfig(t)
	src := `local out = ""
for i = 1, 10 do
	out = out .. tostring(i)
end
`
	want := `local _out_parts = {}
for i = 1, 10 do
	_out_parts[#_out_parts+1] = tostring(i)
end
local out = table.concat(_out_parts)
`
	assert.Equal(t, want, fix(t, cfg, yellowPolicy, src))
}

func TestConcatLoop_SeverityFollowsExperimental(t *testing.T) {
	cfg := testConfig(t)
	src := "local s = \"\"\nfor i = 1, 3 do\n\ts = s .. \"x\"\nend\n"

	plain := byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop")
	require.Len(t, plain, 1)
	assert.Equal(t, rules.Yellow, plain[0].Severity)

	exp := byPattern(detect(t, cfg, config.FixPolicy{Experimental: true}, src), "string-concat-loop")
	require.Len(t, exp, 1)
	assert.Equal(t, rules.Green, exp[0].Severity)
}

func TestConcatLoop_AccumulatorReadMidLoopBlocksFix(t *testing.T) {
	cfg := testConfig(t)
	src := `local s = ""
for i = 1, 3 do
	s = s .. "x"
	print(s)
end
`
	findings := byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop")
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Edits, "mid-loop read would observe a partial value")
	assert.Equal(t, src, fix(t, cfg, yellowPolicy, src))
}

func TestConcatLoop_DistantDeclarationBlocksFix(t *testing.T) {
	cfg := testConfig(t)
	src := `local s = ""
local a = 1
local b = 2
local c = 3
for i = 1, 3 do
	s = s .. "x"
end
`
	findings := byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop")
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Edits)
}

func TestConcatLoop_NonEmptyInitBlocksFix(t *testing.T) {
	cfg := testConfig(t)
	src := `local s = "prefix: "
for i = 1, 3 do
	s = s .. "x"
end
`
	findings := byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop")
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Edits)
}

func TestConcatLoop_DeclarationOutsideEnclosingBlockReportedOnly(t *testing.T) {
	cfg := testConfig(t)
	// The join lands right after the loop, inside the do block; rebinding
	// s there would leave the outer s empty.
	src := `local s = ""
do
	for i = 1, 3 do
		s = s .. tostring(i)
	end
end
print(s)
`
	findings := byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop")
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Edits)
	assert.Equal(t, src, fix(t, cfg, yellowPolicy, src))
}

func TestConcatLoop_NestedLoopIgnored(t *testing.T) {
	cfg := testConfig(t)
	src := `local s = ""
for i = 1, 3 do
	for j = 1, 3 do
		s = s .. "x"
	end
end
`
	assert.Empty(t, byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop"))
}

func TestConcatLoop_WhileLoop(t *testing.T) {
	cfg := testConfig(t)
	src := `local s = ""
while more() do
	s = s .. next()
end
`
	findings := byPattern(detect(t, cfg, yellowPolicy, src), "string-concat-loop")
	require.Len(t, findings, 1)
	assert.NotEmpty(t, findings[0].Edits)
}
