package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scriptmaint/luaopt/internal/analysis"
	"github.com/scriptmaint/luaopt/internal/ast"
)

// repeatedCalls hoists repeated expensive native calls into one local. A
// group is all calls in one function scope with the same callee and the same
// argument text; it fires when the group reaches the configured threshold
// (one lower inside hot callbacks).
//
// By default only calls whose branch path extends the first call's path are
// counted, so a cache hoisted at the first call is live at every replaced
// site. Experimental mode also aggregates across sibling branches, hoists at
// the function head, and demotes the finding to YELLOW.
type repeatedCalls struct{}

func (repeatedCalls) Name() string { return "repeated-call-caching" }

type callGroup struct {
	scope *analysis.Scope
	key   string
}

func (repeatedCalls) Detect(ctx *Context) []Finding {
	groups := make(map[callGroup][]*analysis.CallSite)
	var order []callGroup
	for _, cs := range ctx.Info.Calls {
		if !ctx.Cfg.Analysis.IsExpensiveCall(cs.Sig) {
			continue
		}
		if cs.FuncScope == ctx.Info.Root {
			continue // main-chunk code runs once, nothing to cache
		}
		k := callGroup{scope: cs.FuncScope, key: cs.Key}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], cs)
	}

	taken := make(map[*analysis.Scope]map[string]bool)
	var out []Finding
	for _, k := range order {
		calls := groups[k]
		sort.Slice(calls, func(i, j int) bool {
			return calls[i].Node.Span().Start < calls[j].Node.Span().Start
		})

		threshold := ctx.Cfg.Analysis.CacheThreshold
		if k.scope.Hot {
			threshold--
		}

		first := calls[0]
		var eligible []*analysis.CallSite
		for _, cs := range calls {
			if first.SameBranchOrDeeper(cs) {
				eligible = append(eligible, cs)
			}
		}

		crossBranch := false
		if len(eligible) < threshold && ctx.Policy.Experimental && len(calls) >= threshold {
			eligible = calls
			crossBranch = true
		}
		if len(eligible) < threshold {
			continue
		}
		if !argsStable(ctx, eligible) {
			continue
		}

		f, ok := buildCacheFinding(ctx, k.scope, eligible, crossBranch, taken)
		if ok {
			out = append(out, f)
		}
	}
	return out
}

func buildCacheFinding(ctx *Context, scope *analysis.Scope, calls []*analysis.CallSite, crossBranch bool, taken map[*analysis.Scope]map[string]bool) (Finding, bool) {
	first := calls[0]
	span := first.Node.Span()
	severity := Green
	fixClass := FixGreen
	if crossBranch {
		severity = Yellow
		fixClass = FixYellow
	}

	finding := Finding{
		Pattern:  "repeated-call-caching",
		Severity: severity,
		Span:     span,
		Line:     span.Line,
		Message:  fmt.Sprintf("%s called %dx in %s", first.Sig, len(calls), scope.Name()),
		FixClass: fixClass,
	}

	// An existing `local x = Call(...)` as the first occurrence already is
	// the cache; reuse its name and just rewrite the later calls.
	if name, ok := existingCacheName(first); ok {
		for _, cs := range calls[1:] {
			s := cs.Node.Span()
			finding.Edits = append(finding.Edits, Edit{Start: s.Start, End: s.End, Text: name})
		}
		return finding, true
	}

	name := cacheName(ctx, scope, first.Sig, taken)

	var insertAt uint32
	var indent string
	if crossBranch {
		pos, ind, ok := functionHeadInsertion(ctx, scope, calls)
		if !ok {
			finding.Edits = nil
			return finding, true // report without a fix
		}
		insertAt, indent = pos, ind
	} else {
		if first.Stmt == nil {
			return finding, true
		}
		line := first.Stmt.Span().Line
		insertAt = ctx.Lines.LineStart(line)
		indent = ctx.Lines.Indent(line)
	}

	callText := first.Node.Span().Text(ctx.Src)
	finding.Edits = append(finding.Edits, Edit{
		Start: insertAt,
		End:   insertAt,
		Text:  fmt.Sprintf("%slocal %s = %s\n", indent, name, callText),
	})
	for _, cs := range calls {
		s := cs.Node.Span()
		finding.Edits = append(finding.Edits, Edit{Start: s.Start, End: s.End, Text: name})
	}
	return finding, true
}

// existingCacheName recognizes a first occurrence that is already the sole
// initializer of a single local.
func existingCacheName(cs *analysis.CallSite) (string, bool) {
	decl, ok := cs.Stmt.(*ast.LocalDecl)
	if !ok || len(decl.Names) != 1 || len(decl.Values) != 1 {
		return "", false
	}
	if decl.Values[0] != cs.Node {
		return "", false
	}
	return decl.Names[0].Name, true
}

func cacheName(ctx *Context, scope *analysis.Scope, sig string, taken map[*analysis.Scope]map[string]bool) string {
	base := ctx.Cfg.Analysis.CacheNames[sig]
	if base == "" {
		base = "_cached"
	}
	used := taken[scope]
	if used == nil {
		used = make(map[string]bool)
		taken[scope] = used
	}
	bound := boundNames(scope)
	name := base
	for i := 2; bound[name] || used[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	used[name] = true
	return name
}

// boundNames collects every name visible from scope plus every name bound in
// any block nested under it. The cache lives at scope but gets read inside
// nested blocks, so a nested local with the same name would shadow it.
func boundNames(scope *analysis.Scope) map[string]bool {
	names := make(map[string]bool)
	for s := scope; s != nil; s = s.Parent {
		for n := range s.Bindings {
			names[n] = true
		}
	}
	stack := append([]*analysis.Scope(nil), scope.Children...)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for n := range s.Bindings {
			names[n] = true
		}
		stack = append(stack, s.Children...)
	}
	return names
}

// functionHeadInsertion finds the first statement of the enclosing function
// body. Cross-branch caches hoist there; the arguments must not reference
// locals declared below that point, so anything beyond parameters aborts.
func functionHeadInsertion(ctx *Context, scope *analysis.Scope, calls []*analysis.CallSite) (uint32, string, bool) {
	var body *ast.Block
	switch owner := scope.Owner.(type) {
	case *ast.FunctionDecl:
		body = owner.Body
	case *ast.FunctionExpr:
		body = owner.Body
	default:
		return 0, "", false
	}
	if body == nil || len(body.Stmts) == 0 {
		return 0, "", false
	}
	for _, cs := range calls {
		for _, id := range callArgIdents(cs.Node) {
			if b := ctx.Info.Resolve[id]; b != nil && !b.IsParam {
				return 0, "", false
			}
		}
	}
	line := body.Stmts[0].Span().Line
	return ctx.Lines.LineStart(line), ctx.Lines.Indent(line), true
}

// argsStable rejects groups whose argument variables are reassigned between
// the first and last occurrence, or resolve to different bindings at
// different sites (shadowing).
func argsStable(ctx *Context, calls []*analysis.CallSite) bool {
	start := calls[0].Node.Span().Start
	end := calls[len(calls)-1].Node.Span().End

	bindings := make(map[string]*analysis.Binding)
	for _, cs := range calls {
		for _, id := range callArgIdents(cs.Node) {
			b := ctx.Info.Resolve[id]
			if prev, seen := bindings[id.Name]; seen && prev != b {
				return false
			}
			bindings[id.Name] = b
			if b != nil {
				for _, w := range b.Writes {
					ws := w.Span()
					if ws.Start >= start && ws.Start < end {
						return false
					}
				}
				continue
			}
			for _, gw := range ctx.Info.GlobalWrites {
				if gw.Ident.Name != id.Name {
					continue
				}
				ws := gw.Stmt.Span()
				if ws.Start >= start && ws.Start < end {
					return false
				}
			}
		}
	}
	return true
}

// callArgIdents collects the variable identifiers referenced by a call's
// arguments, skipping field names.
func callArgIdents(call ast.Node) []*ast.Ident {
	var args []ast.Node
	switch v := call.(type) {
	case *ast.Call:
		args = v.Args
	case *ast.MethodCall:
		args = append([]ast.Node{v.Recv}, v.Args...)
	default:
		return nil
	}

	var out []*ast.Ident
	stack := make([]ast.Node, len(args))
	copy(stack, args)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		switch v := n.(type) {
		case *ast.Ident:
			out = append(out, v)
		case *ast.Index:
			stack = append(stack, v.Object)
			if !v.Dot {
				stack = append(stack, v.Key)
			}
		case *ast.TableField:
			if !v.NameKey {
				stack = append(stack, v.Key)
			}
			stack = append(stack, v.Value)
		case *ast.MethodCall:
			stack = append(stack, v.Recv)
			stack = append(stack, v.Args...)
		default:
			stack = append(stack, ast.Children(n)...)
		}
	}
	return out
}

// sigBase returns the final segment of a call signature, after any dot or
// method colon.
func sigBase(sig string) string {
	if i := strings.LastIndexAny(sig, ".:"); i >= 0 {
		return sig[i+1:]
	}
	return sig
}
