package ast

// Children returns a node's direct children in source order. The type switch
// is exhaustive over the closed node set; a construct added to the model
// without a case here will simply never be traversed, which every traversal
// test catches immediately.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Chunk:
		if v.Body == nil {
			return nil
		}
		return []Node{v.Body}
	case *Block:
		return v.Stmts
	case *LocalDecl:
		out := make([]Node, 0, len(v.Names)+len(v.Values))
		for _, name := range v.Names {
			out = append(out, name)
		}
		return append(out, v.Values...)
	case *Assign:
		out := make([]Node, 0, len(v.Targets)+len(v.Values))
		out = append(out, v.Targets...)
		return append(out, v.Values...)
	case *FunctionDecl:
		out := make([]Node, 0, len(v.Params)+2)
		if v.Name != nil {
			out = append(out, v.Name)
		}
		for _, p := range v.Params {
			out = append(out, p)
		}
		return append(out, v.Body)
	case *FunctionExpr:
		out := make([]Node, 0, len(v.Params)+1)
		for _, p := range v.Params {
			out = append(out, p)
		}
		return append(out, v.Body)
	case *If:
		out := []Node{v.Cond, v.Then}
		for _, e := range v.ElseIfs {
			out = append(out, e)
		}
		if v.Else != nil {
			out = append(out, v.Else)
		}
		return out
	case *ElseIfClause:
		return []Node{v.Cond, v.Then}
	case *While:
		return []Node{v.Cond, v.Body}
	case *Repeat:
		return []Node{v.Body, v.Until}
	case *NumericFor:
		out := []Node{v.Var, v.Start, v.Stop}
		if v.Step != nil {
			out = append(out, v.Step)
		}
		return append(out, v.Body)
	case *GenericFor:
		out := make([]Node, 0, len(v.Vars)+len(v.Exprs)+1)
		for _, name := range v.Vars {
			out = append(out, name)
		}
		out = append(out, v.Exprs...)
		return append(out, v.Body)
	case *Do:
		return []Node{v.Body}
	case *Return:
		return v.Values
	case *Break, *Goto, *Label:
		return nil
	case *Call:
		out := make([]Node, 0, len(v.Args)+1)
		out = append(out, v.Fn)
		return append(out, v.Args...)
	case *MethodCall:
		out := make([]Node, 0, len(v.Args)+1)
		out = append(out, v.Recv)
		return append(out, v.Args...)
	case *Index:
		return []Node{v.Object, v.Key}
	case *BinaryExpr:
		return []Node{v.Left, v.Right}
	case *UnaryExpr:
		return []Node{v.Operand}
	case *TableCtor:
		out := make([]Node, 0, len(v.Fields))
		for _, f := range v.Fields {
			out = append(out, f)
		}
		return out
	case *TableField:
		if v.Key == nil {
			return []Node{v.Value}
		}
		return []Node{v.Key, v.Value}
	case *Paren:
		return []Node{v.Inner}
	case *Ident, *NumberLit, *StringLit, *NilLit, *TrueLit, *FalseLit, *Vararg, *Comment:
		return nil
	}
	return nil
}

// Walk visits root and every descendant in pre-order. The traversal keeps an
// explicit stack rather than recursing so pathologically nested scripts
// cannot exhaust the call stack. Returning false from fn prunes the subtree.
func Walk(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	stack := make([]Node, 0, 64)
	stack = append(stack, root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !fn(n) {
			continue
		}
		children := Children(n)
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil {
				stack = append(stack, children[i])
			}
		}
	}
}

// SetParents fixes up the parent back-references below root. The builder
// calls this once after constructing a tree.
func SetParents(root Node) {
	Walk(root, func(n Node) bool {
		for _, c := range Children(n) {
			if c != nil {
				c.setParent(n)
			}
		}
		return true
	})
}
