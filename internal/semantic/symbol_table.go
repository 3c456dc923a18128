package semantic

import (
	"sort"
	"strings"

	"github.com/cwbudde/clean-wasmc/internal/token"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// Symbol is a variable binding tracked through a scope chain — grounded on
// the teacher's own Symbol/SymbolTable shape
// (internal/semantic/symbol_table.go), trimmed to what Clean Language's
// unused-name policy (spec §4.4) and variable-scope rules actually need.
type Symbol struct {
	Name    string
	Type    types.Type
	Sp      token.Span
	IsConst bool
	Used    bool
}

// Scope is one entry of the lexical scope chain (global, function, class,
// block, loop, conditional — spec §3's symbol-table note).
type Scope struct {
	symbols map[string]*Symbol
	outer   *Scope
}

func newScope(outer *Scope) *Scope {
	return &Scope{symbols: make(map[string]*Symbol), outer: outer}
}

func (s *Scope) define(sym *Symbol) { s.symbols[sym.Name] = sym }

// resolve walks outward through enclosing scopes; unlike the teacher's
// DWScript table, names are not case-folded — Clean Language's spec gives
// no indication the language is case-insensitive.
func (s *Scope) resolve(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// unused returns this scope's own never-read symbols (not nested scopes),
// excluding names starting with `_` per spec §4.4, in a deterministic order.
func (s *Scope) unused() []*Symbol {
	var out []*Symbol
	for _, sym := range s.symbols {
		if !sym.Used && !sym.IsConst && !strings.HasPrefix(sym.Name, "_") {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
