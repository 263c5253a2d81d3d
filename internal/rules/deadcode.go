package rules

import (
	"fmt"

	"github.com/scriptmaint/luaopt/internal/ast"
)

// deadCode finds unconditionally unreachable statements: anything after a
// return or break in the same block, and `if false`/`while false` bodies.
// Removal is gated behind the experimental dead-code switch.
type deadCode struct{}

func (deadCode) Name() string { return "dead-code" }

func (deadCode) Detect(ctx *Context) []Finding {
	var out []Finding
	ast.Walk(ctx.Info.Chunk, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.Block:
			if f, ok := deadAfterTerminator(ctx, v); ok {
				out = append(out, f)
			}
		case *ast.If:
			if isFalse(v.Cond) && len(v.ElseIfs) == 0 {
				out = append(out, deadBranchFinding(ctx, n, v.Else == nil, "if false"))
			}
		case *ast.While:
			if isFalse(v.Cond) {
				out = append(out, deadBranchFinding(ctx, n, true, "while false"))
			}
		}
		return true
	})
	return out
}

func isFalse(cond ast.Node) bool {
	_, ok := cond.(*ast.FalseLit)
	return ok
}

func deadAfterTerminator(ctx *Context, block *ast.Block) (Finding, bool) {
	term := -1
	termName := ""
	for i, s := range block.Stmts {
		switch s.(type) {
		case *ast.Return:
			term, termName = i, "return"
		case *ast.Break:
			term, termName = i, "break"
		}
		if term >= 0 {
			break
		}
	}
	if term < 0 {
		return Finding{}, false
	}

	var dead []ast.Node
	for _, s := range block.Stmts[term+1:] {
		if _, isComment := s.(*ast.Comment); isComment {
			continue
		}
		dead = append(dead, s)
	}
	if len(dead) == 0 {
		return Finding{}, false
	}

	start := dead[0].Span()
	end := dead[len(dead)-1].Span()
	span := start.Cover(end)
	return Finding{
		Pattern:  "dead-code",
		Severity: Yellow,
		Span:     span,
		Line:     start.Line,
		Message: fmt.Sprintf("Unreachable code after %s statement (lines %d-%d)",
			termName, start.Line, ctx.Lines.LineOf(span.End-1)),
		FixClass: FixDead,
		Edits:    []Edit{{Start: span.Start, End: span.End, Text: ""}},
	}, true
}

// deadBranchFinding covers an entire never-entered construct. When the
// construct carries an else branch the else code is live, so only a message
// is produced.
func deadBranchFinding(ctx *Context, n ast.Node, removable bool, what string) Finding {
	span := n.Span()
	f := Finding{
		Pattern:  "dead-code",
		Severity: Yellow,
		Span:     span,
		Line:     span.Line,
		Message: fmt.Sprintf("Dead code: %s (lines %d-%d)",
			what, span.Line, ctx.Lines.LineOf(span.End-1)),
		FixClass: FixDead,
	}
	if removable {
		f.Edits = []Edit{{Start: span.Start, End: span.End, Text: ""}}
	}
	return f
}
