package rules

import (
	"fmt"
	"strings"
)

// unusedLocals reports locals and local functions with no reads. Underscore
// names and parameters are exempt; removal is never automated because the
// initializer may carry side effects.
type unusedLocals struct{}

func (unusedLocals) Name() string { return "unused-local" }

func (unusedLocals) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, b := range ctx.Info.Locals {
		if b.IsParam || len(b.Uses) > 0 || strings.HasPrefix(b.Name, "_") {
			continue
		}
		span := b.Ident.Span()
		f := Finding{
			Severity: Yellow,
			Span:     span,
			Line:     span.Line,
			FixClass: FixNone,
		}
		if b.IsFunc {
			f.Pattern = "unused-local-function"
			f.Message = fmt.Sprintf("Local function '%s' appears to be unused", b.Name)
		} else {
			f.Pattern = "unused-local"
			f.Message = fmt.Sprintf("Local variable '%s' is assigned but never used", b.Name)
		}
		out = append(out, f)
	}
	return out
}
