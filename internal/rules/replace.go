package rules

import (
	"fmt"

	"github.com/scriptmaint/luaopt/internal/ast"
)

// tableInsert rewrites two-argument `table.insert(t, v)` appends into the
// direct index form. Only statement-position calls qualify: the replacement
// is an assignment, not an expression.
type tableInsert struct{}

func (tableInsert) Name() string { return "table-insert-append" }

func (tableInsert) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, cs := range ctx.Info.Calls {
		if cs.Sig != "table.insert" || cs.Stmt != cs.Node {
			continue
		}
		call, ok := cs.Node.(*ast.Call)
		if !ok || len(call.Args) != 2 {
			continue
		}
		table := exprText(call.Args[0], ctx.Src, true)
		value := call.Args[1].Span().Text(ctx.Src)
		span := call.Span()
		out = append(out, Finding{
			Pattern:  "table-insert-append",
			Severity: Green,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("table.insert(%s, v) -> %s[#%s+1] = v", table, table, table),
			FixClass: FixGreen,
			Edits: []Edit{{
				Start: span.Start,
				End:   span.End,
				Text:  fmt.Sprintf("%s[#%s+1] = %s", table, table, value),
			}},
		})
	}
	return out
}

// tableGetn rewrites the deprecated `table.getn(t)` into the length
// operator.
type tableGetn struct{}

func (tableGetn) Name() string { return "table-getn" }

func (tableGetn) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, cs := range ctx.Info.Calls {
		if cs.Sig != "table.getn" {
			continue
		}
		call, ok := cs.Node.(*ast.Call)
		if !ok || len(call.Args) != 1 {
			continue
		}
		arg := exprText(call.Args[0], ctx.Src, true)
		span := call.Span()
		out = append(out, Finding{
			Pattern:  "table-getn",
			Severity: Green,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("table.getn(%s) -> #%s", arg, arg),
			FixClass: FixGreen,
			Edits:    []Edit{{Start: span.Start, End: span.End, Text: wrapInOperand(call, "#"+arg)}},
		})
	}
	return out
}

// stringLen rewrites `string.len(s)` and method-style `s:len()` into the
// length operator.
type stringLen struct{}

func (stringLen) Name() string { return "string-len" }

func (stringLen) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, cs := range ctx.Info.Calls {
		var arg ast.Node
		switch n := cs.Node.(type) {
		case *ast.Call:
			if cs.Sig != "string.len" || len(n.Args) != 1 {
				continue
			}
			arg = n.Args[0]
		case *ast.MethodCall:
			if n.Method != "len" || len(n.Args) != 0 {
				continue
			}
			arg = n.Recv
		default:
			continue
		}
		text := exprText(arg, ctx.Src, true)
		span := cs.Node.Span()
		out = append(out, Finding{
			Pattern:  "string-len",
			Severity: Green,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("%s -> #%s", span.Text(ctx.Src), text),
			FixClass: FixGreen,
			Edits:    []Edit{{Start: span.Start, End: span.End, Text: wrapInOperand(cs.Node, "#"+text)}},
		})
	}
	return out
}

// wrapInOperand parenthesizes a multi-term replacement when the node being
// replaced sits inside an operator expression, where Lua precedence could
// rebind the new terms.
func wrapInOperand(n ast.Node, repl string) string {
	switch n.Parent().(type) {
	case *ast.BinaryExpr, *ast.UnaryExpr, *ast.Index, *ast.MethodCall:
		return "(" + repl + ")"
	default:
		return repl
	}
}

// mathPow rewrites math.pow with the three special exponents the pattern
// catalogue names. Other exponents keep the call.
type mathPow struct{}

func (mathPow) Name() string { return "pow" }

func (mathPow) Detect(ctx *Context) []Finding {
	var out []Finding
	for _, cs := range ctx.Info.Calls {
		if cs.Sig != "math.pow" {
			continue
		}
		call, ok := cs.Node.(*ast.Call)
		if !ok || len(call.Args) != 2 {
			continue
		}
		exp, ok := call.Args[1].(*ast.NumberLit)
		if !ok {
			continue
		}

		var pattern, repl string
		base := exprText(call.Args[0], ctx.Src, true)
		switch exp.Value {
		case 2:
			pattern = "pow-square"
			repl = wrapInOperand(call, base+"*"+base)
		case 3:
			pattern = "pow-cube"
			repl = wrapInOperand(call, base+"*"+base+"*"+base)
		case 0.5:
			pattern = "pow-sqrt"
			repl = "math.sqrt(" + call.Args[0].Span().Text(ctx.Src) + ")"
		default:
			continue
		}

		span := call.Span()
		out = append(out, Finding{
			Pattern:  pattern,
			Severity: Green,
			Span:     span,
			Line:     span.Line,
			Message:  fmt.Sprintf("%s -> %s", span.Text(ctx.Src), repl),
			FixClass: FixGreen,
			Edits:    []Edit{{Start: span.Start, End: span.End, Text: repl}},
		})
	}
	return out
}
