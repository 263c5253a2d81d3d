// Package analysis resolves names and collects the per-file facts the rule
// engine matches against: scopes, local bindings and their uses, call sites
// with branch context, global writes, and self-concatenation assignments.
//
// Facts reference syntax nodes through side maps rather than fields on the
// nodes themselves, keeping the ast package free of analysis state.
package analysis

import (
	"strings"

	"github.com/scriptmaint/luaopt/internal/ast"
)

// Scope is one lexical scope. The chunk owns the root scope; every function
// body, loop body, and explicit do block opens a child.
type Scope struct {
	Parent   *Scope
	Owner    ast.Node // node that opened the scope
	Bindings map[string]*Binding
	Children []*Scope

	// Function is the scope of the nearest enclosing function body, or the
	// root scope for main-chunk code. Call sites group by it.
	Function *Scope

	// Hot marks scopes inside a per-frame callback. Repeated-call detection
	// lowers its threshold by one inside them.
	Hot bool
}

func (s *Scope) lookup(name string) *Binding {
	for sc := s; sc != nil; sc = sc.Parent {
		if b, ok := sc.Bindings[name]; ok {
			return b
		}
	}
	return nil
}

// Lookup resolves name against this scope and its ancestors. Nil means the
// name is global here.
func (s *Scope) Lookup(name string) *Binding { return s.lookup(name) }

// Name labels a function scope for finding messages: the declared function
// name, "<anonymous>" for function expressions, "<main>" for the chunk.
func (s *Scope) Name() string {
	switch owner := s.Owner.(type) {
	case *ast.Chunk:
		return "<main>"
	case *ast.FunctionDecl:
		if id, ok := owner.Name.(*ast.Ident); ok {
			return id.Name
		}
		return Signature(owner.Name)
	case *ast.FunctionExpr:
		return "<anonymous>"
	default:
		return "<block>"
	}
}

// Binding is one declared local: a `local` statement name, a function
// parameter, a loop variable, or a local function.
type Binding struct {
	Name  string
	Ident *ast.Ident // the declaring identifier
	Decl  ast.Node   // statement or function node that declared it
	Scope *Scope
	Init  ast.Node // initializer expression, nil when declared bare

	IsParam bool
	IsFunc  bool

	Uses   []*ast.Ident // reads, in source order
	Writes []*ast.Assign
}

// CallSite is one function or method call, with enough context to decide
// whether repeated occurrences can share a hoisted cache.
type CallSite struct {
	Node ast.Node // *ast.Call or *ast.MethodCall
	Sig  string   // "PlayerPedId", "GetEntityCoords", "obj.fn", "obj:fn"
	Key  string   // sig plus normalized argument text; the grouping key

	Stmt      ast.Node // enclosing statement
	Branch    []int    // branch ids from the function root, outermost first
	LoopDepth int
	Hot       bool
	FuncScope *Scope
}

// SameBranchOrDeeper reports whether other's branch path extends (or equals)
// the receiver's. A call can only be served by a cache hoisted at a call
// whose branch path is a prefix of its own.
func (c *CallSite) SameBranchOrDeeper(other *CallSite) bool {
	if len(c.Branch) > len(other.Branch) {
		return false
	}
	for i, id := range c.Branch {
		if other.Branch[i] != id {
			return false
		}
	}
	return true
}

// GlobalWrite is an assignment to a name that resolves to no local binding.
type GlobalWrite struct {
	Ident  *ast.Ident
	Stmt   *ast.Assign
	InLoop bool
	InFunc bool
}

// SelfConcat is `X = X .. expr`, the accumulator half of a concat loop.
type SelfConcat struct {
	Binding   *ast.Ident
	Assign    *ast.Assign
	Resolved  *Binding // nil when X is global
	LoopDepth int
	Loop      ast.Node // innermost enclosing loop, nil outside loops
}

// Info is the analysis result for one file.
type Info struct {
	Chunk *ast.Chunk
	Src   []byte

	Root    *Scope
	Scopes  map[ast.Node]*Scope     // scope-opening node -> scope
	Resolve map[*ast.Ident]*Binding // use or declaration ident -> binding

	Calls        []*CallSite
	GlobalWrites []*GlobalWrite
	SelfConcats  []*SelfConcat
	Locals       []*Binding // every binding, in declaration order
}

// Signature renders the callable part of a call expression as a dotted
// path. Calls through computed expressions have no signature and return "".
func Signature(n ast.Node) string {
	switch v := n.(type) {
	case *ast.Call:
		return Signature(v.Fn)
	case *ast.MethodCall:
		recv := Signature(v.Recv)
		if recv == "" {
			return ""
		}
		return recv + ":" + v.Method
	case *ast.Ident:
		return v.Name
	case *ast.Paren:
		return Signature(v.Inner)
	case *ast.Index:
		if !v.Dot {
			return ""
		}
		obj := Signature(v.Object)
		if obj == "" {
			return ""
		}
		key, ok := v.Key.(*ast.Ident)
		if !ok {
			return ""
		}
		return obj + "." + key.Name
	default:
		return ""
	}
}

// callKey normalizes a call's full source text into the grouping key, so
// GetEntityCoords(ped) and GetEntityCoords(veh) never share a cache.
func callKey(n ast.Node, src []byte) string {
	return strings.Join(strings.Fields(n.Span().Text(src)), "")
}
