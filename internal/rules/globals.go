package rules

import (
	"fmt"
	"strings"
	"unicode"
)

// globalWrites reports assignments that create or mutate globals. Leading
// underscore and ALL-CAPS names pass: both are established conventions for
// intentional globals in script packs.
type globalWrites struct{}

func (globalWrites) Name() string { return "global-write" }

func (globalWrites) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, gw := range ctx.Info.GlobalWrites {
		name := gw.Ident.Name
		if strings.HasPrefix(name, "_") || isAllCaps(name) {
			continue
		}
		span := gw.Ident.Span()
		out = append(out, Finding{
			Pattern:  "global-write",
			Severity: Red,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("Global write: %s", name),
			FixClass: FixNone,
		})
	}
	return out
}

func isAllCaps(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
