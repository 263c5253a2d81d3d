// Package parser turns Lua source into the ast package's syntax tree using
// the tree-sitter Lua grammar. The tree-sitter CST is consumed and released
// inside Parse; nothing downstream holds CGO-backed nodes.
package parser

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/scriptmaint/luaopt/internal/ast"
)

// ParseError reports the first syntax error in a file. Line and Col are
// 1-based.
type ParseError struct {
	Line uint32
	Col  uint32
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parse builds the syntax tree for src. A file with any syntax error is
// rejected whole: partial trees would let the rewriter edit code whose
// structure it misread.
func Parse(src []byte) (*ast.Chunk, error) {
	p := acquireParser()
	defer releaseParser(p)

	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, &ParseError{Line: 1, Col: 1, Msg: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root)
	}

	b := &builder{src: src}
	chunk, err := b.chunk(root)
	if err != nil {
		return nil, err
	}
	ast.SetParents(chunk)
	return chunk, nil
}

// Validate reparses src and reports the first syntax error, if any. The
// rewriter uses it as the gate before replacing a file's contents.
func Validate(src []byte) error {
	p := acquireParser()
	defer releaseParser(p)

	tree := p.Parse(src, nil)
	if tree == nil {
		return &ParseError{Line: 1, Col: 1, Msg: "parser returned no tree"}
	}
	defer tree.Close()

	if root := tree.RootNode(); root.HasError() {
		return firstError(root)
	}
	return nil
}

// firstError locates the shallowest-leftmost ERROR or missing node. The
// traversal is iterative; error trees from minified one-line scripts can be
// very deep.
func firstError(root *tree_sitter.Node) *ParseError {
	stack := []*tree_sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsError() || n.IsMissing() {
			pos := n.StartPosition()
			msg := "syntax error"
			if n.IsMissing() {
				msg = fmt.Sprintf("missing %s", n.Kind())
			}
			return &ParseError{
				Line: uint32(pos.Row) + 1,
				Col:  uint32(pos.Column) + 1,
				Msg:  msg,
			}
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(uint(i)))
		}
	}
	pos := root.StartPosition()
	return &ParseError{Line: uint32(pos.Row) + 1, Col: uint32(pos.Column) + 1, Msg: "syntax error"}
}
