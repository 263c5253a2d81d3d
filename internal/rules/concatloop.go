package rules

import (
	"fmt"

	"github.com/scriptmaint/luaopt/internal/analysis"
	"github.com/scriptmaint/luaopt/internal/ast"
)

// concatLoop rewrites string accumulation in a loop into the parts-table
// idiom:
//
//	local s = ""                  local _s_parts = {}
//	for ... do              =>    for ... do
//	    s = s .. expr                 _s_parts[#_s_parts+1] = expr
//	end                           end
//	                              local s = table.concat(_s_parts)
//
// Only depth-1 loops qualify, with the accumulator declared as a local empty
// string just above the loop and untouched inside it apart from the
// accumulation itself. Experimental mode promotes the fix to GREEN.
type concatLoop struct{}

func (concatLoop) Name() string { return "string-concat-loop" }

type concatGroup struct {
	binding *analysis.Binding
	loop    ast.Node
}

func (concatLoop) Detect(ctx *Context) []Finding {
	groups := make(map[concatGroup][]*analysis.SelfConcat)
	var order []concatGroup
	for _, sc := range ctx.Info.SelfConcats {
		if sc.LoopDepth != 1 || sc.Loop == nil || sc.Resolved == nil {
			continue
		}
		k := concatGroup{binding: sc.Resolved, loop: sc.Loop}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], sc)
	}

	severity, fixClass := Yellow, FixYellow
	if ctx.Policy.Experimental {
		severity, fixClass = Green, FixGreen
	}

	var out []Finding
	for _, k := range order {
		concats := groups[k]
		first := concats[0]
		span := first.Assign.Span()
		finding := Finding{
			Pattern:  "string-concat-loop",
			Severity: severity,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("String concat in loop: %s = %s .. x", k.binding.Name, k.binding.Name),
			FixClass: fixClass,
		}
		if edits, ok := concatLoopEdits(ctx, k.binding, k.loop, concats); ok {
			finding.Edits = edits
		}
		out = append(out, finding)
	}
	return out
}

func concatLoopEdits(ctx *Context, b *analysis.Binding, loop ast.Node, concats []*analysis.SelfConcat) ([]Edit, bool) {
	decl, ok := b.Decl.(*ast.LocalDecl)
	if !ok || len(decl.Names) != 1 || len(decl.Values) != 1 {
		return nil, false
	}
	init, ok := decl.Values[0].(*ast.StringLit)
	if !ok || init.Value != "" {
		return nil, false
	}

	loopSpan := loop.Span()
	declLine := decl.Span().Line
	if declLine >= loopSpan.Line || declLine < loopSpan.Line-3 {
		return nil, false
	}

	// One-liner loops leave nowhere safe to place the join.
	endLine := ctx.Lines.LineOf(loopSpan.End - 1)
	if endLine == loopSpan.Line {
		return nil, false
	}

	// The declaration must live in the block that directly contains the
	// loop. The join is inserted right after the loop, so a declaration in
	// an outer block would be rebound at the wrong depth.
	loopScope := ctx.Info.Scopes[loop]
	if loopScope == nil || loopScope.Parent == nil || b.Scope != loopScope.Parent {
		return nil, false
	}

	// Every touch of the accumulator inside the loop must belong to the
	// accumulation statements; a read like print(s) mid-loop would observe
	// a partial value after the rewrite.
	allowed := make(map[*ast.Ident]bool, len(concats)*2)
	for _, sc := range concats {
		if sc.Assign.Span().Line == loopSpan.Line {
			return nil, false // embedded in the loop header
		}
		allowed[sc.Binding] = true
		if bin, ok := sc.Assign.Values[0].(*ast.BinaryExpr); ok {
			if left, ok := bin.Left.(*ast.Ident); ok {
				allowed[left] = true
			}
		}
	}
	for _, use := range b.Uses {
		s := use.Span()
		if s.Start >= loopSpan.Start && s.Start < loopSpan.End && !allowed[use] {
			return nil, false
		}
	}
	for _, w := range b.Writes {
		s := w.Span()
		if s.Start >= loopSpan.Start && s.Start < loopSpan.End && !allowed[targetIdent(w)] {
			return nil, false
		}
	}

	bound := boundNames(b.Scope)
	parts := "_" + b.Name + "_parts"
	for i := 2; bound[parts]; i++ {
		parts = fmt.Sprintf("_%s_parts%d", b.Name, i)
	}

	declSpan := decl.Span()
	edits := []Edit{{
		Start: declSpan.Start,
		End:   declSpan.End,
		Text:  fmt.Sprintf("local %s = {}", parts),
	}}
	for _, sc := range concats {
		bin := sc.Assign.Values[0].(*ast.BinaryExpr)
		right := bin.Right.Span().Text(ctx.Src)
		s := sc.Assign.Span()
		edits = append(edits, Edit{
			Start: s.Start,
			End:   s.End,
			Text:  fmt.Sprintf("%s[#%s+1] = %s", parts, parts, right),
		})
	}
	edits = append(edits, Edit{
		Start: loopSpan.End,
		End:   loopSpan.End,
		Text:  fmt.Sprintf("\n%slocal %s = table.concat(%s)", ctx.Lines.Indent(loopSpan.Line), b.Name, parts),
	})
	return edits, true
}

func targetIdent(a *ast.Assign) *ast.Ident {
	if len(a.Targets) == 1 {
		if id, ok := a.Targets[0].(*ast.Ident); ok {
			return id
		}
	}
	return nil
}
