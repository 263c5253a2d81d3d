package rules

import "fmt"

// distanceNative flags the configured expensive distance native. The vector
// rewrite needs the operands re-typed as vectors, so it is advice only.
type distanceNative struct{}

func (distanceNative) Name() string { return "distance-native-suggestion" }

func (distanceNative) Detect(ctx *Context) []Finding {
	target := ctx.Cfg.Analysis.DistanceCall
	if target == "" {
		return nil
	}
	var out []Finding
	for _, cs := range ctx.Info.Calls {
		if cs.Sig != target {
			continue
		}
		span := cs.Node.Span()
		out = append(out, Finding{
			Pattern:  "distance-native-suggestion",
			Severity: Yellow,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("%s() -> #(coords1 - coords2)", target),
			FixClass: FixNone,
		})
	}
	return out
}
