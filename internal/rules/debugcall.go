package rules

import (
	"fmt"
	"strings"
)

// debugCalls flags logging/print statements. The fix prefixes each spanned
// line with a comment marker, so it only fires for calls that stand alone as
// statements on their lines; anything embedded in an expression or sharing a
// line stays untouched.
type debugCalls struct{}

func (debugCalls) Name() string { return "debug-call" }

func (debugCalls) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, cs := range ctx.Info.Calls {
		if strings.HasPrefix(cs.Sig, "math.") {
			continue // math.log is a logarithm, not logging
		}
		if !ctx.Cfg.Analysis.IsDebugCall(cs.Sig) && !ctx.Cfg.Analysis.IsDebugCall(sigBase(cs.Sig)) {
			continue
		}

		span := cs.Node.Span()
		finding := Finding{
			Pattern:  "debug-call",
			Severity: Debug,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("Debug call: %s()", cs.Sig),
			FixClass: FixDebug,
		}

		if cs.Stmt == cs.Node && ctx.Lines.OnlyStatementOnLines(span.Start, span.End) {
			firstLine := ctx.Lines.LineOf(span.Start)
			lastLine := ctx.Lines.LineOf(span.End - 1)
			for line := firstLine; line <= lastLine; line++ {
				pos := ctx.Lines.LineStart(line)
				finding.Edits = append(finding.Edits, Edit{Start: pos, End: pos, Text: "-- "})
			}
		}
		out = append(out, finding)
	}
	return out
}
