// Package ast defines the Lua syntax tree the analysis passes operate on.
// The node set is closed: one concrete type per Lua construct, enumerated
// exhaustively by Children, so adding a construct is a compile-time-checked
// change in every traversal.
package ast

// Node is implemented by every syntax node. Nodes own their children; the
// parent pointer is a lookup-only back-reference set once by the builder.
type Node interface {
	Span() Span
	Parent() Node
	setParent(Node)
}

type base struct {
	span   Span
	parent Node
}

func (b *base) Span() Span       { return b.span }
func (b *base) Parent() Node     { return b.parent }
func (b *base) setParent(p Node) { b.parent = p }

// Chunk is a whole file.
type Chunk struct {
	base
	Body *Block
}

// Block is a statement list; it introduces a scope when its parent does.
type Block struct {
	base
	Stmts []Node
}

// LocalDecl is `local a, b = x, y`.
type LocalDecl struct {
	base
	Names  []*Ident
	Values []Node
}

// Assign is `a, b = x, y` (targets may be identifiers or index expressions).
type Assign struct {
	base
	Targets []Node
	Values  []Node
}

// FunctionDecl is a named function statement: `function f() end`,
// `local function f() end`, `function m.f() end` or `function m:f() end`.
type FunctionDecl struct {
	base
	Name     Node // *Ident or *Index; nil never happens for declarations
	IsLocal  bool
	IsMethod bool // declared with `:`, implicit self parameter
	Params   []*Ident
	IsVararg bool
	Body     *Block
}

// FunctionExpr is an anonymous `function(...) ... end` expression.
type FunctionExpr struct {
	base
	Params   []*Ident
	IsVararg bool
	Body     *Block
}

// If is the full if/elseif/else chain.
type If struct {
	base
	Cond    Node
	Then    *Block
	ElseIfs []*ElseIfClause
	Else    *Block // nil when absent
}

type ElseIfClause struct {
	base
	Cond Node
	Then *Block
}

type While struct {
	base
	Cond Node
	Body *Block
}

type Repeat struct {
	base
	Body  *Block
	Until Node
}

// NumericFor is `for i = start, stop [, step] do ... end`.
type NumericFor struct {
	base
	Var   *Ident
	Start Node
	Stop  Node
	Step  Node // nil when absent
	Body  *Block
}

// GenericFor is `for k, v in expr do ... end`.
type GenericFor struct {
	base
	Vars  []*Ident
	Exprs []Node
	Body  *Block
}

type Do struct {
	base
	Body *Block
}

type Return struct {
	base
	Values []Node
}

type Break struct {
	base
}

type Goto struct {
	base
	Label string
}

type Label struct {
	base
	Name string
}

// Call is `f(args)` where f is any prefix expression.
type Call struct {
	base
	Fn   Node
	Args []Node
}

// MethodCall is `recv:name(args)`.
type MethodCall struct {
	base
	Recv   Node
	Method string
	Args   []Node
}

// Index is `obj.field` (Dot true, Key an *Ident) or `obj[key]` (Dot false).
type Index struct {
	base
	Object Node
	Key    Node
	Dot    bool
}

type Ident struct {
	base
	Name string
}

type NumberLit struct {
	base
	Raw   string
	Value float64
	IsInt bool
}

type StringLit struct {
	base
	Raw   string // including quotes/brackets
	Value string
}

type NilLit struct{ base }
type TrueLit struct{ base }
type FalseLit struct{ base }
type Vararg struct{ base }

type BinaryExpr struct {
	base
	Op    string // "+", "..", "==", "and", ...
	Left  Node
	Right Node
}

type UnaryExpr struct {
	base
	Op      string // "-", "not", "#", "~"
	Operand Node
}

type TableCtor struct {
	base
	Fields []*TableField
}

// TableField is one entry of a table constructor: `[k] = v`, `name = v`, or
// a positional `v` (Key nil). NameKey distinguishes `name = v`, whose key is
// a field name rather than an expression.
type TableField struct {
	base
	Key     Node
	Value   Node
	NameKey bool
}

type Paren struct {
	base
	Inner Node
}

// Comment is kept in statement position so dead-code analysis can skip it.
type Comment struct {
	base
	Text string
}

// SetSpan is used by the builder.
func SetSpan(n Node, s Span) {
	switch v := n.(type) {
	case *Chunk:
		v.span = s
	case *Block:
		v.span = s
	case *LocalDecl:
		v.span = s
	case *Assign:
		v.span = s
	case *FunctionDecl:
		v.span = s
	case *FunctionExpr:
		v.span = s
	case *If:
		v.span = s
	case *ElseIfClause:
		v.span = s
	case *While:
		v.span = s
	case *Repeat:
		v.span = s
	case *NumericFor:
		v.span = s
	case *GenericFor:
		v.span = s
	case *Do:
		v.span = s
	case *Return:
		v.span = s
	case *Break:
		v.span = s
	case *Goto:
		v.span = s
	case *Label:
		v.span = s
	case *Call:
		v.span = s
	case *MethodCall:
		v.span = s
	case *Index:
		v.span = s
	case *Ident:
		v.span = s
	case *NumberLit:
		v.span = s
	case *StringLit:
		v.span = s
	case *NilLit:
		v.span = s
	case *TrueLit:
		v.span = s
	case *FalseLit:
		v.span = s
	case *Vararg:
		v.span = s
	case *BinaryExpr:
		v.span = s
	case *UnaryExpr:
		v.span = s
	case *TableCtor:
		v.span = s
	case *TableField:
		v.span = s
	case *Paren:
		v.span = s
	case *Comment:
		v.span = s
	}
}

// IsAtomic reports whether an expression can be textually duplicated without
// changing evaluation (used by the pow rewrites to decide on parentheses).
func IsAtomic(n Node) bool {
	switch v := n.(type) {
	case *Ident, *NumberLit, *StringLit, *NilLit, *TrueLit, *FalseLit, *Paren:
		return true
	case *Index:
		return IsAtomic(v.Object)
	default:
		return false
	}
}
