package analysis

import (
	"github.com/scriptmaint/luaopt/internal/ast"
	"github.com/scriptmaint/luaopt/internal/config"
)

// frame is one unit of work on the traversal stack. Each frame carries its
// own context copy, so popping a frame restores the enclosing scope and
// branch path without explicit exit bookkeeping.
type frame struct {
	node      ast.Node
	scope     *Scope
	branch    []int
	loopDepth int
	loop      ast.Node
	hot       bool
	stmt      ast.Node

	// declare registers the names of a local declaration. It runs after the
	// initializer frames so `local x = x` resolves the right-hand x to the
	// outer binding.
	declare *ast.LocalDecl

	// hotBody marks a function expression passed to a hot-callback
	// registration; its body scope analyzes as hot.
	hotBody bool
}

type analyzer struct {
	cfg        *config.Analysis
	info       *Info
	stack      []frame
	nextBranch int
}

// Analyze walks chunk and returns the collected facts. The traversal is
// iterative; script nesting depth never grows the goroutine stack.
func Analyze(chunk *ast.Chunk, src []byte, cfg *config.Analysis) *Info {
	a := &analyzer{
		cfg: cfg,
		info: &Info{
			Chunk:   chunk,
			Src:     src,
			Scopes:  make(map[ast.Node]*Scope),
			Resolve: make(map[*ast.Ident]*Binding),
		},
	}

	root := a.newScope(nil, chunk, true, false)
	a.info.Root = root

	a.push(frame{node: chunk.Body, scope: root})
	for len(a.stack) > 0 {
		f := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]
		if f.declare != nil {
			a.declareLocals(f)
			continue
		}
		if f.node == nil {
			continue
		}
		a.visit(f)
	}
	return a.info
}

func (a *analyzer) push(f frame) { a.stack = append(a.stack, f) }

// pushAll schedules nodes so they pop in slice order.
func (a *analyzer) pushAll(f frame, nodes ...ast.Node) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i] != nil {
			nf := f
			nf.node = nodes[i]
			nf.declare = nil
			nf.hotBody = false
			a.push(nf)
		}
	}
}

func (a *analyzer) newScope(parent *Scope, owner ast.Node, isFunc, hot bool) *Scope {
	s := &Scope{
		Parent:   parent,
		Owner:    owner,
		Bindings: make(map[string]*Binding),
		Hot:      hot,
	}
	if isFunc {
		s.Function = s
	} else if parent != nil {
		s.Function = parent.Function
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	a.info.Scopes[owner] = s
	return s
}

func (a *analyzer) bind(scope *Scope, id *ast.Ident, decl, init ast.Node, isParam, isFunc bool) *Binding {
	b := &Binding{
		Name:    id.Name,
		Ident:   id,
		Decl:    decl,
		Scope:   scope,
		Init:    init,
		IsParam: isParam,
		IsFunc:  isFunc,
	}
	scope.Bindings[id.Name] = b
	a.info.Resolve[id] = b
	a.info.Locals = append(a.info.Locals, b)
	return b
}

func (a *analyzer) declareLocals(f frame) {
	decl := f.declare
	for i, name := range decl.Names {
		var init ast.Node
		if i < len(decl.Values) {
			init = decl.Values[i]
		}
		a.bind(f.scope, name, decl, init, false, false)
	}
}

func (a *analyzer) visit(f frame) {
	switch n := f.node.(type) {
	case *ast.Block:
		for i := len(n.Stmts) - 1; i >= 0; i-- {
			nf := f
			nf.node = n.Stmts[i]
			nf.stmt = n.Stmts[i]
			a.push(nf)
		}

	case *ast.LocalDecl:
		df := f
		df.node = nil
		df.declare = n
		a.push(df)
		a.pushAll(f, n.Values...)

	case *ast.Assign:
		a.visitAssign(f, n)

	case *ast.FunctionDecl:
		a.visitFunctionDecl(f, n)

	case *ast.FunctionExpr:
		hot := f.hotBody
		scope := a.newScope(f.scope, n, true, hot)
		for _, p := range n.Params {
			a.bind(scope, p, n, nil, true, false)
		}
		bf := frame{node: n.Body, scope: scope, hot: hot}
		a.push(bf)

	case *ast.If:
		a.visitIf(f, n)

	case *ast.While:
		body := f
		body.node = n.Body
		body.scope = a.newScope(f.scope, n, false, f.hot)
		body.branch = a.extendBranch(f.branch)
		body.loopDepth++
		body.loop = n
		a.push(body)
		a.pushAll(f, n.Cond)

	case *ast.Repeat:
		scope := a.newScope(f.scope, n, false, f.hot)
		until := f
		until.node = n.Until
		until.scope = scope
		a.push(until)
		body := f
		body.node = n.Body
		body.scope = scope
		body.branch = a.extendBranch(f.branch)
		body.loopDepth++
		body.loop = n
		a.push(body)

	case *ast.NumericFor:
		scope := a.newScope(f.scope, n, false, f.hot)
		if n.Var != nil {
			a.bind(scope, n.Var, n, nil, false, false)
		}
		body := f
		body.node = n.Body
		body.scope = scope
		body.branch = a.extendBranch(f.branch)
		body.loopDepth++
		body.loop = n
		a.push(body)
		a.pushAll(f, n.Start, n.Stop, n.Step)

	case *ast.GenericFor:
		scope := a.newScope(f.scope, n, false, f.hot)
		for _, v := range n.Vars {
			a.bind(scope, v, n, nil, false, false)
		}
		body := f
		body.node = n.Body
		body.scope = scope
		body.branch = a.extendBranch(f.branch)
		body.loopDepth++
		body.loop = n
		a.push(body)
		a.pushAll(f, n.Exprs...)

	case *ast.Do:
		body := f
		body.node = n.Body
		body.scope = a.newScope(f.scope, n, false, f.hot)
		a.push(body)

	case *ast.Call:
		a.recordCall(f, n, Signature(n))
		a.pushCallChildren(f, n, append([]ast.Node{n.Fn}, n.Args...))

	case *ast.MethodCall:
		a.recordCall(f, n, Signature(n))
		a.pushCallChildren(f, n, append([]ast.Node{n.Recv}, n.Args...))

	case *ast.Index:
		if n.Dot {
			a.pushAll(f, n.Object)
		} else {
			a.pushAll(f, n.Object, n.Key)
		}

	case *ast.Ident:
		if b := f.scope.lookup(n.Name); b != nil {
			b.Uses = append(b.Uses, n)
			a.info.Resolve[n] = b
		}

	case *ast.Return:
		a.pushAll(f, n.Values...)

	case *ast.BinaryExpr:
		a.pushAll(f, n.Left, n.Right)

	case *ast.UnaryExpr:
		a.pushAll(f, n.Operand)

	case *ast.Paren:
		a.pushAll(f, n.Inner)

	case *ast.TableCtor:
		for i := len(n.Fields) - 1; i >= 0; i-- {
			nf := f
			nf.node = n.Fields[i]
			a.push(nf)
		}

	case *ast.TableField:
		if n.NameKey {
			a.pushAll(f, n.Value)
		} else {
			a.pushAll(f, n.Key, n.Value)
		}
	}
}

func (a *analyzer) visitAssign(f frame, n *ast.Assign) {
	a.recordSelfConcat(f, n)

	for _, t := range n.Targets {
		switch target := t.(type) {
		case *ast.Ident:
			if b := f.scope.lookup(target.Name); b != nil {
				b.Writes = append(b.Writes, n)
				a.info.Resolve[target] = b
				continue
			}
			a.info.GlobalWrites = append(a.info.GlobalWrites, &GlobalWrite{
				Ident:  target,
				Stmt:   n,
				InLoop: f.loopDepth > 0,
				InFunc: f.scope.Function != a.info.Root,
			})
		default:
			a.pushAll(f, t)
		}
	}
	a.pushAll(f, n.Values...)
}

func (a *analyzer) recordSelfConcat(f frame, n *ast.Assign) {
	if len(n.Targets) != 1 || len(n.Values) != 1 {
		return
	}
	target, ok := n.Targets[0].(*ast.Ident)
	if !ok {
		return
	}
	bin, ok := n.Values[0].(*ast.BinaryExpr)
	if !ok || bin.Op != ".." {
		return
	}
	left, ok := bin.Left.(*ast.Ident)
	if !ok || left.Name != target.Name {
		return
	}
	a.info.SelfConcats = append(a.info.SelfConcats, &SelfConcat{
		Binding:   target,
		Assign:    n,
		Resolved:  f.scope.lookup(target.Name),
		LoopDepth: f.loopDepth,
		Loop:      f.loop,
	})
}

func (a *analyzer) visitFunctionDecl(f frame, n *ast.FunctionDecl) {
	hot := false
	if id, ok := n.Name.(*ast.Ident); ok {
		hot = a.cfg.IsHotCallback(id.Name)
		if n.IsLocal {
			a.bind(f.scope, id, n, nil, false, true)
		} else if b := f.scope.lookup(id.Name); b != nil {
			a.info.Resolve[id] = b
		}
	} else if n.Name != nil {
		// `function m.f()` reads m; the field itself is not a variable.
		if idx, ok := n.Name.(*ast.Index); ok {
			a.pushAll(f, idx.Object)
		}
	}

	scope := a.newScope(f.scope, n, true, hot)
	if n.IsMethod {
		self := &ast.Ident{Name: "self"}
		ast.SetSpan(self, n.Span())
		a.bind(scope, self, n, nil, true, false)
	}
	for _, p := range n.Params {
		a.bind(scope, p, n, nil, true, false)
	}
	a.push(frame{node: n.Body, scope: scope, hot: hot})
}

func (a *analyzer) visitIf(f frame, n *ast.If) {
	// Arms pop in source order; each gets a fresh branch id appended to the
	// current path and its own scope, so arm locals never leak past the if.
	arms := make([]frame, 0, len(n.ElseIfs)+2)

	then := f
	then.node = n.Then
	then.scope = a.newScope(f.scope, n.Then, false, f.hot)
	then.branch = a.extendBranch(f.branch)
	arms = append(arms, then)

	for _, e := range n.ElseIfs {
		arm := f
		arm.node = e
		arm.branch = a.extendBranch(f.branch)
		arms = append(arms, arm)
	}
	if n.Else != nil {
		arm := f
		arm.node = n.Else
		arm.scope = a.newScope(f.scope, n.Else, false, f.hot)
		arm.branch = a.extendBranch(f.branch)
		arms = append(arms, arm)
	}

	for i := len(arms) - 1; i >= 0; i-- {
		if ec, ok := arms[i].node.(*ast.ElseIfClause); ok {
			cf := arms[i]
			cf.node = ec.Then
			cf.scope = a.newScope(f.scope, ec.Then, false, f.hot)
			a.push(cf)
			// Conditions resolve in the enclosing scope, not the arm's.
			cond := arms[i]
			cond.node = ec.Cond
			a.push(cond)
			continue
		}
		a.push(arms[i])
	}
	a.pushAll(f, n.Cond)
}

func (a *analyzer) extendBranch(path []int) []int {
	a.nextBranch++
	out := make([]int, len(path)+1)
	copy(out, path)
	out[len(path)] = a.nextBranch
	return out
}

func (a *analyzer) recordCall(f frame, n ast.Node, sig string) {
	if sig == "" {
		return
	}
	a.info.Calls = append(a.info.Calls, &CallSite{
		Node:      n,
		Sig:       sig,
		Key:       callKey(n, a.info.Src),
		Stmt:      f.stmt,
		Branch:    f.branch,
		LoopDepth: f.loopDepth,
		Hot:       f.hot || f.scope.Function.Hot,
		FuncScope: f.scope.Function,
	})
}

// pushCallChildren schedules a call's callee and arguments, marking function
// expression arguments hot when the call registers a configured callback.
func (a *analyzer) pushCallChildren(f frame, call ast.Node, children []ast.Node) {
	sig := Signature(call)
	hotReg := sig != "" && a.cfg.IsHotCallback(sig)
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		if c == nil {
			continue
		}
		nf := f
		nf.node = c
		if _, isFn := c.(*ast.FunctionExpr); isFn && hotReg {
			nf.hotBody = true
		}
		a.push(nf)
	}
}
