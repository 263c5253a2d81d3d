// Package rules holds the pattern catalogue. Every detector is a pure value
// over the analysis facts; detectors never mutate the tree or each other's
// results, so the set can grow and shrink freely.
package rules

import (
	"github.com/scriptmaint/luaopt/internal/analysis"
	"github.com/scriptmaint/luaopt/internal/ast"
	"github.com/scriptmaint/luaopt/internal/config"
)

// Severity classifies how safe a finding's fix is.
type Severity int

const (
	Green  Severity = iota // safe to auto-fix
	Yellow                 // fix needs review
	Red                    // informational, never fixed
	Debug                  // logging statements
)

func (s Severity) String() string {
	switch s {
	case Green:
		return "GREEN"
	case Yellow:
		return "YELLOW"
	case Red:
		return "RED"
	case Debug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// FixClass names the policy switch that must be on for a finding's edits to
// be applied.
type FixClass int

const (
	FixNone   FixClass = iota // message only
	FixGreen                  // --fix
	FixYellow                 // --fix-yellow, or --experimental for patterns it promotes
	FixDebug                  // --fix-debug
	FixNil                    // --fix-nil (experimental gate)
	FixDead                   // --remove-dead-code (experimental gate)
)

// Enabled reports whether the policy turns this fix class on.
func (c FixClass) Enabled(p config.FixPolicy) bool {
	switch c {
	case FixGreen:
		return p.Green
	case FixYellow:
		return p.Yellow
	case FixDebug:
		return p.Debug
	case FixNil:
		return p.NilGuards
	case FixDead:
		return p.DeadCode
	default:
		return false
	}
}

// Edit replaces the half-open byte range [Start, End) with Text. An insert
// has Start == End.
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// Finding is one detected pattern occurrence. Immutable once produced; the
// planner may drop its edits but never alters them.
type Finding struct {
	Pattern  string
	Severity Severity
	Span     ast.Span
	Line     uint32
	Message  string

	FixClass FixClass
	Edits    []Edit
}

// Context is what detectors see: analysis facts plus the active policy.
// Policy only influences severity promotion and experimental eligibility,
// never whether a pattern is reported.
type Context struct {
	Info   *analysis.Info
	Cfg    *config.Config
	Policy config.FixPolicy
	Src    []byte
	Lines  *LineIndex
}

// Detector is one catalogue entry.
type Detector interface {
	Name() string
	Detect(ctx *Context) []Finding
}

// All returns the full catalogue in reporting order.
func All() []Detector {
	return []Detector{
		tableInsert{},
		tableGetn{},
		stringLen{},
		mathPow{},
		repeatedCalls{},
		distanceNative{},
		concatLoop{},
		globalWrites{},
		debugCalls{},
		nilGuard{},
		deadCode{},
		unusedLocals{},
	}
}

// Run executes every detector over one file's facts.
func Run(info *analysis.Info, cfg *config.Config, policy config.FixPolicy) []Finding {
	ctx := &Context{
		Info:   info,
		Cfg:    cfg,
		Policy: policy,
		Src:    info.Src,
		Lines:  NewLineIndex(info.Src),
	}
	var out []Finding
	for _, d := range All() {
		out = append(out, d.Detect(ctx)...)
	}
	return out
}

// exprText renders a node's original source text, parenthesized when it is
// not atomic and must be textually duplicated or prefixed with an operator.
func exprText(n ast.Node, src []byte, parenthesize bool) string {
	text := n.Span().Text(src)
	if parenthesize && !ast.IsAtomic(n) {
		return "(" + text + ")"
	}
	return text
}
