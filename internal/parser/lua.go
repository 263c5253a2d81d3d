package parser

import (
	"fmt"
	"sync"

	tree_sitter_lua "github.com/tree-sitter-grammars/tree-sitter-lua/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var (
	luaOnce sync.Once
	luaLang *tree_sitter.Language
)

// language returns the shared Lua grammar. The grammar pointer comes from the
// C binding and is immutable, so a single instance serves every parser.
func language() *tree_sitter.Language {
	luaOnce.Do(func() {
		luaLang = tree_sitter.NewLanguage(tree_sitter_lua.Language())
	})
	return luaLang
}

// parserPool reuses configured tree-sitter parsers across files. Creating a
// parser crosses CGO and allocates grammar state, so per-file construction
// shows up immediately on large script packs.
var parserPool = sync.Pool{
	New: func() any {
		p := tree_sitter.NewParser()
		if err := p.SetLanguage(language()); err != nil {
			// The bundled grammar is version-matched with the runtime at
			// build time; a mismatch here is a packaging error.
			panic(fmt.Sprintf("lua grammar rejected by tree-sitter runtime: %v", err))
		}
		return p
	},
}

func acquireParser() *tree_sitter.Parser {
	return parserPool.Get().(*tree_sitter.Parser)
}

func releaseParser(p *tree_sitter.Parser) {
	p.Reset()
	parserPool.Put(p)
}
