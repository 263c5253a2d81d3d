package rules

import (
	"fmt"

	"github.com/scriptmaint/luaopt/internal/analysis"
	"github.com/scriptmaint/luaopt/internal/ast"
)

// nilGuard flags locals initialized from a call known to return nil (or 0
// for missing entities) and then dereferenced with no guard in between. The
// auto-fix wraps the dereferencing statement in `if v then ... end` and is
// confined to the tightest shape: the access statement directly follows the
// declaration, stands alone on its lines, and is plain (no control flow, no
// further declaration).
type nilGuard struct{}

func (nilGuard) Name() string { return "nil-guard-suggestion" }

func (nilGuard) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, b := range ctx.Info.Locals {
		if b.Init == nil {
			continue
		}
		sig := analysis.Signature(b.Init)
		reason, nilable := ctx.Cfg.Analysis.NilableCalls[sig]
		if !nilable {
			continue
		}

		for _, use := range b.Uses {
			if isGuardUse(use) {
				break // guarded from here on
			}
			if !isDeref(use) {
				continue
			}
			out = append(out, nilFinding(ctx, b, sig, reason, use))
			break // one finding per binding is enough
		}
	}
	return out
}

func nilFinding(ctx *Context, b *analysis.Binding, sig, reason string, use *ast.Ident) Finding {
	span := use.Span()
	f := Finding{
		Pattern:  "nil-guard-suggestion",
		Severity: Yellow,
		Span:     span,
		Line:     span.Line,
		Message: fmt.Sprintf("Potential nil access: '%s' from %s() used without nil check (%s)",
			b.Name, sig, reason),
		FixClass: FixNil,
	}

	stmt := enclosingStmt(use)
	if stmt == nil || !immediatelyFollows(b.Decl, stmt) {
		return f
	}
	switch stmt.(type) {
	case *ast.LocalDecl, *ast.If, *ast.While, *ast.Repeat, *ast.NumericFor,
		*ast.GenericFor, *ast.FunctionDecl, *ast.Return, *ast.Break:
		return f
	}
	ss := stmt.Span()
	if !ctx.Lines.OnlyStatementOnLines(ss.Start, ss.End) {
		return f
	}

	indent := ctx.Lines.Indent(ss.Line)
	f.Edits = []Edit{
		{
			Start: ctx.Lines.LineStart(ss.Line),
			End:   ctx.Lines.LineStart(ss.Line),
			Text:  fmt.Sprintf("%sif %s then\n", indent, b.Name),
		},
		{
			Start: ss.End,
			End:   ss.End,
			Text:  fmt.Sprintf("\n%send", indent),
		},
	}
	return f
}

// isDeref reports whether this use reads through the value: a field/index
// access, a method call, or calling it.
func isDeref(use *ast.Ident) bool {
	switch p := use.Parent().(type) {
	case *ast.Index:
		return p.Object == ast.Node(use)
	case *ast.MethodCall:
		return p.Recv == ast.Node(use)
	case *ast.Call:
		return p.Fn == ast.Node(use)
	default:
		return false
	}
}

// isGuardUse reports whether a use participates in a nil check: it appears
// in an if/elseif/while/until condition or as a short-circuit operand.
func isGuardUse(use *ast.Ident) bool {
	var child ast.Node = use
	for parent := child.Parent(); parent != nil; parent = child.Parent() {
		switch p := parent.(type) {
		case *ast.BinaryExpr:
			if p.Op == "and" || p.Op == "or" {
				return true
			}
		case *ast.If:
			return p.Cond == child
		case *ast.ElseIfClause:
			return p.Cond == child
		case *ast.While:
			return p.Cond == child
		case *ast.Repeat:
			return p.Until == child
		case *ast.Block:
			return false
		}
		child = parent
	}
	return false
}

// enclosingStmt climbs to the node that sits directly in a block.
func enclosingStmt(n ast.Node) ast.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if _, ok := cur.Parent().(*ast.Block); ok {
			return cur
		}
	}
	return nil
}

// immediatelyFollows reports whether stmt is the statement right after decl
// in the same block, skipping comments.
func immediatelyFollows(decl, stmt ast.Node) bool {
	block, ok := decl.Parent().(*ast.Block)
	if !ok {
		return false
	}
	seen := false
	for _, s := range block.Stmts {
		if s == decl {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if _, isComment := s.(*ast.Comment); isComment {
			continue
		}
		return s == stmt
	}
	return false
}
