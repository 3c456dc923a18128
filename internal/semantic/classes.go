package semantic

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// checkClass validates inheritance rules (spec §4.4's class-validation
// list) and type-checks the constructor and every method body.
func (a *Analyzer) checkClass(c *ast.ClassDecl) {
	info := a.classes[c.Name]
	if info == nil {
		return
	}

	a.checkOverrides(info)

	if c.Constructor != nil {
		a.checkConstructorBaseCall(info)
		a.checkFunctionBody(c.Constructor, info)
	} else if c.Parent != "" {
		parent := a.classes[c.Parent]
		if parent != nil && parent.Constructor != nil && len(parent.Constructor.Params) > 0 {
			a.errAt(c.Sp, diag.InvalidBaseCall, "class %q must declare a constructor invoking base(...); parent %q has no parameterless constructor", c.Name, c.Parent)
		}
	}

	for _, m := range c.Methods {
		a.checkFunctionBody(m, info)
	}
}

// checkConstructorBaseCall enforces that a subclass constructor's first
// statement is `base(...)` whenever the parent lacks a parameterless
// constructor, and that base(...) never appears anywhere else.
func (a *Analyzer) checkConstructorBaseCall(info *ClassInfo) {
	ctor := info.Decl.Constructor
	first, hasFirst := firstStatementCall(ctor.Body)

	if info.Decl.Parent == "" {
		if hasFirst {
			a.errAt(first.Sp, diag.InvalidBaseCall, "base(...) is only valid in a subclass constructor")
		}
		return
	}

	parent := a.classes[info.Decl.Parent]
	parentNeedsArgs := parent != nil && parent.Constructor != nil && len(parent.Constructor.Params) > 0

	rest := ctor.Body.Statements
	if hasFirst {
		rest = rest[1:]
	} else if parentNeedsArgs {
		a.errAt(ctor.Sp, diag.InvalidBaseCall, "constructor of %q must invoke base(...) as its first statement", info.Decl.Name)
	}

	// Any base(...) call past the first statement is misplaced.
	for _, s := range rest {
		walkBaseCalls(s, func(bc *ast.BaseCall) {
			a.errAt(bc.Sp, diag.InvalidBaseCall, "base(...) may only appear as the first statement of a constructor")
		})
	}
}

func firstStatementCall(body *ast.BlockStatement) (*ast.BaseCall, bool) {
	if len(body.Statements) == 0 {
		return nil, false
	}
	es, ok := body.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, false
	}
	bc, ok := es.Expr.(*ast.BaseCall)
	return bc, ok
}

// walkBaseCalls visits every BaseCall reachable from a statement without
// descending into nested function literals (the language has none).
func walkBaseCalls(s ast.Statement, visit func(*ast.BaseCall)) {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		if bc, ok := n.Expr.(*ast.BaseCall); ok {
			visit(bc)
		}
	case *ast.IfStatement:
		for _, st := range n.Then.Statements {
			walkBaseCalls(st, visit)
		}
		if n.Else != nil {
			for _, st := range n.Else.Statements {
				walkBaseCalls(st, visit)
			}
		}
	case *ast.WhileStatement:
		for _, st := range n.Body.Statements {
			walkBaseCalls(st, visit)
		}
	case *ast.IterateRangeStatement:
		for _, st := range n.Body.Statements {
			walkBaseCalls(st, visit)
		}
	case *ast.IterateCollectionStatement:
		for _, st := range n.Body.Statements {
			walkBaseCalls(st, visit)
		}
	}
}

// checkOverrides verifies that a method overriding a parent method has an
// identical parameter list and a covariant return type (spec §4.4).
func (a *Analyzer) checkOverrides(info *ClassInfo) {
	if info.Decl.Parent == "" {
		return
	}
	parent := a.classes[info.Decl.Parent]
	if parent == nil {
		return
	}
	for name, overloads := range info.Methods {
		parentOS, ok := parent.Methods[name]
		if !ok {
			continue
		}
		for _, sig := range overloads.Signatures {
			match := findExactParamMatch(parentOS, sig.Params)
			if match == nil {
				continue // not an override, a distinct overload
			}
			if !types.Compatible(sig.Result, match.Result) {
				a.errAt(info.Decl.Sp, diag.TypeMismatch,
					"method %q overriding %q's return type %s must return a compatible type, got %s",
					name, info.Decl.Parent, match.Result, sig.Result)
			}
		}
	}
}

func findExactParamMatch(os *types.OverloadSet, params []types.Type) *types.FunctionSignature {
	for _, sig := range os.Signatures {
		if len(sig.Params) != len(params) {
			continue
		}
		match := true
		for i := range params {
			if !types.Equal(sig.Params[i], params[i]) {
				match = false
				break
			}
		}
		if match {
			return sig
		}
	}
	return nil
}
