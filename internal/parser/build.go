package parser

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/scriptmaint/luaopt/internal/ast"
)

// maxBuildDepth bounds the recursive CST walk. Generated Lua (obfuscated or
// machine-written configs) can nest expressions far beyond hand-written code;
// past this depth the file is rejected rather than risking the goroutine
// stack.
const maxBuildDepth = 900

type builder struct {
	src   []byte
	depth int
}

func (b *builder) enter(n *tree_sitter.Node) error {
	b.depth++
	if b.depth > maxBuildDepth {
		pos := n.StartPosition()
		return &ParseError{
			Line: uint32(pos.Row) + 1,
			Col:  uint32(pos.Column) + 1,
			Msg:  "nesting too deep",
		}
	}
	return nil
}

func (b *builder) leave() { b.depth-- }

func span(n *tree_sitter.Node) ast.Span {
	pos := n.StartPosition()
	return ast.Span{
		Start: uint32(n.StartByte()),
		End:   uint32(n.EndByte()),
		Line:  uint32(pos.Row) + 1,
		Col:   uint32(pos.Column) + 1,
	}
}

func (b *builder) text(n *tree_sitter.Node) string {
	return string(b.src[n.StartByte():n.EndByte()])
}

// namedChildren collects a node's named children. Comments are included;
// callers that cannot represent them filter per kind.
func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	count := n.NamedChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func childOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c.Kind() == kind {
			return c
		}
	}
	return nil
}

func hasKeyword(n *tree_sitter.Node, kw string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Kind() == kw {
			return true
		}
	}
	return false
}

func (b *builder) chunk(root *tree_sitter.Node) (*ast.Chunk, error) {
	body, err := b.statements(root)
	if err != nil {
		return nil, err
	}
	c := &ast.Chunk{Body: body}
	ast.SetSpan(c, span(root))
	return c, nil
}

func (b *builder) block(n *tree_sitter.Node) (*ast.Block, error) {
	if n == nil {
		return &ast.Block{}, nil
	}
	return b.statements(n)
}

// statements converts the named children of a chunk or block node.
func (b *builder) statements(n *tree_sitter.Node) (*ast.Block, error) {
	if err := b.enter(n); err != nil {
		return nil, err
	}
	defer b.leave()

	blk := &ast.Block{}
	ast.SetSpan(blk, span(n))
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "hash_bang_line", "empty_statement":
			continue
		case "comment":
			cm := &ast.Comment{Text: b.text(c)}
			ast.SetSpan(cm, span(c))
			blk.Stmts = append(blk.Stmts, cm)
		default:
			stmt, err := b.stmt(c)
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				blk.Stmts = append(blk.Stmts, stmt)
			}
		}
	}
	return blk, nil
}

func (b *builder) stmt(n *tree_sitter.Node) (ast.Node, error) {
	if err := b.enter(n); err != nil {
		return nil, err
	}
	defer b.leave()

	switch n.Kind() {
	case "variable_declaration":
		return b.localDecl(n)
	case "assignment_statement":
		return b.assign(n)
	case "function_declaration":
		return b.functionDecl(n)
	case "function_call":
		return b.call(n)
	case "if_statement":
		return b.ifStmt(n)
	case "while_statement":
		cond, err := b.fieldExpr(n, "condition")
		if err != nil {
			return nil, err
		}
		body, err := b.block(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		w := &ast.While{Cond: cond, Body: body}
		ast.SetSpan(w, span(n))
		return w, nil
	case "repeat_statement":
		body, err := b.block(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		until, err := b.fieldExpr(n, "condition")
		if err != nil {
			return nil, err
		}
		r := &ast.Repeat{Body: body, Until: until}
		ast.SetSpan(r, span(n))
		return r, nil
	case "for_statement":
		return b.forStmt(n)
	case "do_statement":
		body, err := b.block(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		d := &ast.Do{Body: body}
		ast.SetSpan(d, span(n))
		return d, nil
	case "return_statement":
		ret := &ast.Return{}
		ast.SetSpan(ret, span(n))
		if list := childOfKind(n, "expression_list"); list != nil {
			vals, err := b.exprList(list)
			if err != nil {
				return nil, err
			}
			ret.Values = vals
		}
		return ret, nil
	case "break_statement":
		br := &ast.Break{}
		ast.SetSpan(br, span(n))
		return br, nil
	case "goto_statement":
		g := &ast.Goto{}
		if id := childOfKind(n, "identifier"); id != nil {
			g.Label = b.text(id)
		}
		ast.SetSpan(g, span(n))
		return g, nil
	case "label_statement":
		l := &ast.Label{}
		if id := childOfKind(n, "identifier"); id != nil {
			l.Name = b.text(id)
		}
		ast.SetSpan(l, span(n))
		return l, nil
	}
	// Statement kinds outside the model (grammar additions) are dropped
	// rather than failing the file.
	return nil, nil
}

// localDecl handles both `local a, b = x, y` (the grammar wraps an
// assignment_statement) and `local a, b` (a bare variable_list).
func (b *builder) localDecl(n *tree_sitter.Node) (ast.Node, error) {
	decl := &ast.LocalDecl{}
	ast.SetSpan(decl, span(n))

	varList := childOfKind(n, "variable_list")
	if inner := childOfKind(n, "assignment_statement"); inner != nil {
		varList = childOfKind(inner, "variable_list")
		exprs := childOfKind(inner, "expression_list")
		if exprs != nil {
			vals, err := b.exprList(exprs)
			if err != nil {
				return nil, err
			}
			decl.Values = vals
		}
	}
	if varList != nil {
		for _, v := range namedChildren(varList) {
			if v.Kind() != "identifier" {
				continue // <const>/<close> attributes and anything exotic
			}
			decl.Names = append(decl.Names, b.ident(v))
		}
	}
	return decl, nil
}

func (b *builder) assign(n *tree_sitter.Node) (ast.Node, error) {
	as := &ast.Assign{}
	ast.SetSpan(as, span(n))

	if list := childOfKind(n, "variable_list"); list != nil {
		for _, v := range namedChildren(list) {
			if v.Kind() == "comment" {
				continue
			}
			t, err := b.expr(v)
			if err != nil {
				return nil, err
			}
			as.Targets = append(as.Targets, t)
		}
	}
	if list := childOfKind(n, "expression_list"); list != nil {
		vals, err := b.exprList(list)
		if err != nil {
			return nil, err
		}
		as.Values = vals
	}
	return as, nil
}

func (b *builder) functionDecl(n *tree_sitter.Node) (ast.Node, error) {
	fd := &ast.FunctionDecl{IsLocal: hasKeyword(n, "local")}
	ast.SetSpan(fd, span(n))

	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		switch nameNode.Kind() {
		case "method_index_expression":
			fd.IsMethod = true
			idx, err := b.expr(nameNode)
			if err != nil {
				return nil, err
			}
			fd.Name = idx
		default:
			name, err := b.expr(nameNode)
			if err != nil {
				return nil, err
			}
			fd.Name = name
		}
	}

	params, vararg, err := b.parameters(n)
	if err != nil {
		return nil, err
	}
	fd.Params = params
	fd.IsVararg = vararg

	body, err := b.block(b.bodyNode(n))
	if err != nil {
		return nil, err
	}
	fd.Body = body
	return fd, nil
}

func (b *builder) functionExpr(n *tree_sitter.Node) (ast.Node, error) {
	fe := &ast.FunctionExpr{}
	ast.SetSpan(fe, span(n))

	params, vararg, err := b.parameters(n)
	if err != nil {
		return nil, err
	}
	fe.Params = params
	fe.IsVararg = vararg

	body, err := b.block(b.bodyNode(n))
	if err != nil {
		return nil, err
	}
	fe.Body = body
	return fe, nil
}

func (b *builder) bodyNode(n *tree_sitter.Node) *tree_sitter.Node {
	if body := n.ChildByFieldName("body"); body != nil {
		return body
	}
	return childOfKind(n, "block")
}

func (b *builder) parameters(n *tree_sitter.Node) ([]*ast.Ident, bool, error) {
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = childOfKind(n, "parameters")
	}
	if paramsNode == nil {
		return nil, false, nil
	}
	var params []*ast.Ident
	vararg := false
	for _, p := range namedChildren(paramsNode) {
		switch p.Kind() {
		case "identifier":
			params = append(params, b.ident(p))
		case "vararg_expression":
			vararg = true
		}
	}
	return params, vararg, nil
}

func (b *builder) ifStmt(n *tree_sitter.Node) (ast.Node, error) {
	cond, err := b.fieldExpr(n, "condition")
	if err != nil {
		return nil, err
	}
	then, err := b.block(n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Cond: cond, Then: then}
	ast.SetSpan(stmt, span(n))

	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "elseif_statement":
			ecCond, err := b.fieldExpr(c, "condition")
			if err != nil {
				return nil, err
			}
			ecThen, err := b.block(c.ChildByFieldName("consequence"))
			if err != nil {
				return nil, err
			}
			clause := &ast.ElseIfClause{Cond: ecCond, Then: ecThen}
			ast.SetSpan(clause, span(c))
			stmt.ElseIfs = append(stmt.ElseIfs, clause)
		case "else_statement":
			elseBody := c.ChildByFieldName("body")
			if elseBody == nil {
				elseBody = childOfKind(c, "block")
			}
			blk, err := b.block(elseBody)
			if err != nil {
				return nil, err
			}
			stmt.Else = blk
		}
	}
	return stmt, nil
}

func (b *builder) forStmt(n *tree_sitter.Node) (ast.Node, error) {
	body, err := b.block(b.bodyNode(n))
	if err != nil {
		return nil, err
	}

	if clause := childOfKind(n, "for_numeric_clause"); clause != nil {
		nf := &ast.NumericFor{Body: body}
		ast.SetSpan(nf, span(n))
		if name := clause.ChildByFieldName("name"); name != nil {
			nf.Var = b.ident(name)
		}
		if nf.Start, err = b.fieldExpr(clause, "start"); err != nil {
			return nil, err
		}
		if nf.Stop, err = b.fieldExpr(clause, "end"); err != nil {
			return nil, err
		}
		if step := clause.ChildByFieldName("step"); step != nil {
			if nf.Step, err = b.expr(step); err != nil {
				return nil, err
			}
		}
		return nf, nil
	}

	clause := childOfKind(n, "for_generic_clause")
	gf := &ast.GenericFor{Body: body}
	ast.SetSpan(gf, span(n))
	if clause != nil {
		if list := childOfKind(clause, "variable_list"); list != nil {
			for _, v := range namedChildren(list) {
				if v.Kind() == "identifier" {
					gf.Vars = append(gf.Vars, b.ident(v))
				}
			}
		}
		if list := childOfKind(clause, "expression_list"); list != nil {
			if gf.Exprs, err = b.exprList(list); err != nil {
				return nil, err
			}
		}
	}
	return gf, nil
}

func (b *builder) call(n *tree_sitter.Node) (ast.Node, error) {
	nameNode := n.ChildByFieldName("name")
	args, err := b.callArgs(n)
	if err != nil {
		return nil, err
	}

	if nameNode != nil && nameNode.Kind() == "method_index_expression" {
		recv, err := b.fieldExpr(nameNode, "table")
		if err != nil {
			return nil, err
		}
		mc := &ast.MethodCall{Recv: recv, Args: args}
		if m := nameNode.ChildByFieldName("method"); m != nil {
			mc.Method = b.text(m)
		}
		ast.SetSpan(mc, span(n))
		return mc, nil
	}

	call := &ast.Call{Args: args}
	ast.SetSpan(call, span(n))
	if nameNode != nil {
		if call.Fn, err = b.expr(nameNode); err != nil {
			return nil, err
		}
	}
	return call, nil
}

// callArgs handles the three Lua call shapes: parenthesized argument lists,
// a bare string, and a bare table constructor.
func (b *builder) callArgs(n *tree_sitter.Node) ([]ast.Node, error) {
	argsNode := n.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil, nil
	}
	switch argsNode.Kind() {
	case "arguments":
		var args []ast.Node
		for _, a := range namedChildren(argsNode) {
			if a.Kind() == "comment" {
				continue
			}
			e, err := b.expr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		return args, nil
	default:
		e, err := b.expr(argsNode)
		if err != nil {
			return nil, err
		}
		return []ast.Node{e}, nil
	}
}

func (b *builder) exprList(n *tree_sitter.Node) ([]ast.Node, error) {
	var out []ast.Node
	for _, c := range namedChildren(n) {
		if c.Kind() == "comment" {
			continue
		}
		e, err := b.expr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *builder) fieldExpr(n *tree_sitter.Node, field string) (ast.Node, error) {
	c := n.ChildByFieldName(field)
	if c == nil {
		return nil, nil
	}
	return b.expr(c)
}

func (b *builder) ident(n *tree_sitter.Node) *ast.Ident {
	id := &ast.Ident{Name: b.text(n)}
	ast.SetSpan(id, span(n))
	return id
}

func (b *builder) expr(n *tree_sitter.Node) (ast.Node, error) {
	if err := b.enter(n); err != nil {
		return nil, err
	}
	defer b.leave()

	switch n.Kind() {
	case "identifier":
		return b.ident(n), nil
	case "number":
		return b.number(n), nil
	case "string":
		return b.stringLit(n), nil
	case "nil":
		lit := &ast.NilLit{}
		ast.SetSpan(lit, span(n))
		return lit, nil
	case "true":
		lit := &ast.TrueLit{}
		ast.SetSpan(lit, span(n))
		return lit, nil
	case "false":
		lit := &ast.FalseLit{}
		ast.SetSpan(lit, span(n))
		return lit, nil
	case "vararg_expression":
		v := &ast.Vararg{}
		ast.SetSpan(v, span(n))
		return v, nil
	case "function_definition":
		return b.functionExpr(n)
	case "function_call":
		return b.call(n)
	case "dot_index_expression":
		return b.index(n, "field", true)
	case "bracket_index_expression":
		return b.index(n, "field", false)
	case "method_index_expression":
		return b.index(n, "method", true)
	case "binary_expression":
		return b.binary(n)
	case "unary_expression":
		return b.unary(n)
	case "parenthesized_expression":
		inner := b.firstExprChild(n)
		if inner == nil {
			p := &ast.Paren{}
			ast.SetSpan(p, span(n))
			return p, nil
		}
		e, err := b.expr(inner)
		if err != nil {
			return nil, err
		}
		p := &ast.Paren{Inner: e}
		ast.SetSpan(p, span(n))
		return p, nil
	case "table_constructor":
		return b.table(n)
	}
	// Unknown expression kinds degrade to an opaque identifier-shaped node
	// carrying the source text span, so spans stay usable downstream.
	id := &ast.Ident{Name: b.text(n)}
	ast.SetSpan(id, span(n))
	return id, nil
}

func (b *builder) firstExprChild(n *tree_sitter.Node) *tree_sitter.Node {
	for _, c := range namedChildren(n) {
		if c.Kind() != "comment" {
			return c
		}
	}
	return nil
}

func (b *builder) index(n *tree_sitter.Node, keyField string, dot bool) (ast.Node, error) {
	obj, err := b.fieldExpr(n, "table")
	if err != nil {
		return nil, err
	}
	idx := &ast.Index{Object: obj, Dot: dot}
	ast.SetSpan(idx, span(n))

	keyNode := n.ChildByFieldName(keyField)
	if keyNode == nil {
		return idx, nil
	}
	if dot {
		idx.Key = b.ident(keyNode)
		return idx, nil
	}
	if idx.Key, err = b.expr(keyNode); err != nil {
		return nil, err
	}
	return idx, nil
}

func (b *builder) binary(n *tree_sitter.Node) (ast.Node, error) {
	leftNode := n.ChildByFieldName("left")
	rightNode := n.ChildByFieldName("right")
	be := &ast.BinaryExpr{}
	ast.SetSpan(be, span(n))

	var err error
	if leftNode != nil {
		if be.Left, err = b.expr(leftNode); err != nil {
			return nil, err
		}
	}
	if rightNode != nil {
		if be.Right, err = b.expr(rightNode); err != nil {
			return nil, err
		}
	}
	if leftNode != nil && rightNode != nil {
		// The operator token is anonymous; its text is whatever sits
		// between the operands.
		be.Op = strings.TrimSpace(string(b.src[leftNode.EndByte():rightNode.StartByte()]))
	}
	return be, nil
}

func (b *builder) unary(n *tree_sitter.Node) (ast.Node, error) {
	operand := b.firstExprChild(n)
	ue := &ast.UnaryExpr{}
	ast.SetSpan(ue, span(n))
	if operand == nil {
		return ue, nil
	}
	var err error
	if ue.Operand, err = b.expr(operand); err != nil {
		return nil, err
	}
	ue.Op = strings.TrimSpace(string(b.src[n.StartByte():operand.StartByte()]))
	return ue, nil
}

func (b *builder) table(n *tree_sitter.Node) (ast.Node, error) {
	tc := &ast.TableCtor{}
	ast.SetSpan(tc, span(n))

	for _, f := range namedChildren(n) {
		if f.Kind() != "field" {
			continue
		}
		tf := &ast.TableField{}
		ast.SetSpan(tf, span(f))

		if name := f.ChildByFieldName("name"); name != nil {
			tf.Key = b.ident(name)
			tf.NameKey = true
		}
		valNode := f.ChildByFieldName("value")
		if valNode == nil {
			// `[k] = v` and positional fields carry no field names in
			// some grammar revisions; fall back to positional children.
			kids := namedChildren(f)
			switch len(kids) {
			case 1:
				valNode = kids[0]
			case 2:
				key, err := b.expr(kids[0])
				if err != nil {
					return nil, err
				}
				tf.Key = key
				valNode = kids[1]
			}
		}
		if valNode != nil {
			val, err := b.expr(valNode)
			if err != nil {
				return nil, err
			}
			tf.Value = val
		}
		tc.Fields = append(tc.Fields, tf)
	}
	return tc, nil
}

func (b *builder) number(n *tree_sitter.Node) *ast.NumberLit {
	lit := &ast.NumberLit{Raw: b.text(n)}
	ast.SetSpan(lit, span(n))

	raw := lit.Raw
	if i, err := strconv.ParseInt(raw, 0, 64); err == nil {
		lit.Value = float64(i)
		lit.IsInt = true
		return lit
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		lit.Value = f
		lit.IsInt = f == float64(int64(f))
	}
	return lit
}

func (b *builder) stringLit(n *tree_sitter.Node) *ast.StringLit {
	lit := &ast.StringLit{Raw: b.text(n)}
	ast.SetSpan(lit, span(n))
	if content := childOfKind(n, "string_content"); content != nil {
		lit.Value = b.text(content)
	}
	return lit
}
