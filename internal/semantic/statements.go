package semantic

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// checkProgram is pass 2 (spec §4.4): every function, method, constructor
// and test body is type-checked against the tables pass 1 built.
func (a *Analyzer) checkProgram(prog *ast.Program) {
	for _, v := range prog.Constants {
		if v.Initializer != nil {
			declared := a.resolveType(v.DeclType, nil)
			initT := a.inferExpr(v.Initializer, a.global)
			if !types.Compatible(initT, declared) {
				a.errAt(v.Sp, diag.TypeMismatch, "constant %q declared as %s but initialized with %s", v.Name, declared, initT)
			}
		}
	}

	for _, c := range prog.Classes {
		a.checkClass(c)
	}
	for _, f := range prog.Functions {
		a.checkFunctionBody(f, nil)
	}
	for _, f := range prog.Tests {
		a.checkFunctionBody(f, nil)
	}
	if prog.Start != nil {
		a.checkFunctionBody(prog.Start, nil)
	}
}

func (a *Analyzer) checkFunctionBody(f *ast.FunctionDecl, class *ClassInfo) {
	prevClass, prevReturn, prevBackground := a.currentClass, a.currentReturn, a.inBackground
	a.currentClass = class
	a.currentReturn = types.Void
	if f.ReturnType != nil {
		a.currentReturn = a.resolveType(f.ReturnType, classDeclOf(class))
	}
	a.inBackground = f.Background
	defer func() {
		a.currentClass, a.currentReturn, a.inBackground = prevClass, prevReturn, prevBackground
	}()

	scope := newScope(a.global)
	for _, p := range f.Params {
		scope.define(&Symbol{Name: p.Name, Type: a.resolveType(p.Type, classDeclOf(class)), Sp: p.Sp})
	}

	terminates := a.checkBlock(f.Body, scope)
	if !types.Equal(a.currentReturn, types.Void) && !terminates {
		a.errAt(f.Sp, diag.TypeMismatch, "function %q must return a value of type %s on every path", f.Name, a.currentReturn)
	}

	for _, sym := range scope.unused() {
		a.warnAt(sym.Sp, diag.UnusedVariable, "%q is never read", sym.Name)
	}
}

func classDeclOf(c *ClassInfo) *ast.ClassDecl {
	if c == nil {
		return nil
	}
	return c.Decl
}

// checkBlock type-checks every statement in block and reports whether the
// block is guaranteed to terminate (return or error on every path).
func (a *Analyzer) checkBlock(block *ast.BlockStatement, scope *Scope) bool {
	terminates := false
	for _, s := range block.Statements {
		if a.checkStatement(s, scope) {
			terminates = true
		}
	}
	return terminates
}

func (a *Analyzer) checkStatement(s ast.Statement, scope *Scope) bool {
	switch n := s.(type) {
	case *ast.VarDecl:
		a.checkVarDecl(n, scope)
		return false

	case *ast.Assignment:
		a.checkAssignment(n, scope)
		return false

	case *ast.IfStatement:
		if t := a.inferExpr(n.Condition, scope); !types.Equal(t, types.Boolean) {
			a.errAt(n.Condition.Span(), diag.TypeMismatch, "`if` condition must be Boolean")
		}
		thenTerm := a.checkBlock(n.Then, newScope(scope))
		if n.Else == nil {
			return false
		}
		elseTerm := a.checkBlock(n.Else, newScope(scope))
		return thenTerm && elseTerm

	case *ast.IterateRangeStatement:
		a.checkIterateRange(n, scope)
		return false

	case *ast.IterateCollectionStatement:
		a.checkIterateCollection(n, scope)
		return false

	case *ast.WhileStatement:
		if t := a.inferExpr(n.Condition, scope); !types.Equal(t, types.Boolean) {
			a.errAt(n.Condition.Span(), diag.TypeMismatch, "`while` condition must be Boolean")
		}
		a.loopDepth++
		a.checkBlock(n.Body, newScope(scope))
		a.loopDepth--
		return false

	case *ast.BreakStatement:
		if a.loopDepth == 0 {
			a.errAt(n.Sp, diag.ParseError, "`break` outside a loop")
		}
		return false

	case *ast.ContinueStatement:
		if a.loopDepth == 0 {
			a.errAt(n.Sp, diag.ParseError, "`continue` outside a loop")
		}
		return false

	case *ast.ReturnStatement:
		a.checkReturn(n, scope)
		return true

	case *ast.ErrorStatement:
		a.inferExpr(n.Message, scope)
		return true

	case *ast.PrintStatement:
		a.inferExpr(n.Value, scope)
		return false

	case *ast.BackgroundStatement:
		a.inferExpr(n.Expr, scope)
		return false

	case *ast.ExpressionStatement:
		a.inferExpr(n.Expr, scope)
		return false

	default:
		a.errAt(s.Span(), diag.InternalCompilerError, "unhandled statement type %T", s)
		return false
	}
}

func (a *Analyzer) checkVarDecl(n *ast.VarDecl, scope *Scope) {
	declared := a.resolveType(n.DeclType, classDeclOf(a.currentClass))
	if n.Initializer != nil {
		initT := a.inferExpr(n.Initializer, scope)
		if n.IsLater {
			future, ok := initT.(types.Future)
			if !ok {
				a.errAt(n.Initializer.Span(), diag.TypeMismatch, "`later` requires a `start` expression")
			} else if !types.Compatible(future.Elem, declared) {
				a.errAt(n.Sp, diag.TypeMismatch, "later %q declared as %s but yields %s", n.Name, declared, future.Elem)
			}
		} else if !types.Compatible(initT, declared) {
			a.errAt(n.Sp, diag.TypeMismatch, "%q declared as %s but initialized with %s", n.Name, declared, initT)
		}
	}
	scope.define(&Symbol{Name: n.Name, Type: declared, Sp: n.Sp, IsConst: n.IsConstant})
}

func (a *Analyzer) checkAssignment(n *ast.Assignment, scope *Scope) {
	valueT := a.inferExpr(n.Value, scope)
	switch target := n.Target.(type) {
	case *ast.Identifier:
		sym, ok := scope.resolve(target.Value)
		if !ok {
			a.errAt(target.Sp, diag.UndefinedName, "undefined name %q", target.Value)
			return
		}
		if sym.IsConst {
			a.errAt(n.Sp, diag.TypeMismatch, "cannot assign to constant %q", target.Value)
			return
		}
		if !types.Compatible(valueT, sym.Type) {
			a.errAt(n.Sp, diag.TypeMismatch, "cannot assign %s to %q of type %s", valueT, target.Value, sym.Type)
		}
	default:
		targetT := a.inferExpr(n.Target, scope)
		if !types.Compatible(valueT, targetT) {
			a.errAt(n.Sp, diag.TypeMismatch, "cannot assign %s to target of type %s", valueT, targetT)
		}
	}
}

func (a *Analyzer) checkIterateRange(n *ast.IterateRangeStatement, scope *Scope) {
	for _, e := range []ast.Expression{n.From, n.To, n.Step} {
		if e == nil {
			continue
		}
		if t := a.inferExpr(e, scope); !types.IsNumeric(t) {
			a.errAt(e.Span(), diag.TypeMismatch, "iterate range bounds must be numeric")
		}
	}
	body := newScope(scope)
	body.define(&Symbol{Name: n.Var, Type: types.Integer, Sp: n.Sp})
	a.loopDepth++
	a.checkBlock(n.Body, body)
	a.loopDepth--
}

func (a *Analyzer) checkIterateCollection(n *ast.IterateCollectionStatement, scope *Scope) {
	collT := a.inferExpr(n.Collection, scope)
	var elem types.Type = types.Any
	switch c := collT.(type) {
	case *types.List:
		elem = c.Elem
	case *types.Matrix:
		elem = c.Elem
	case *types.Pairs:
		elem = c.Value
	default:
		if !types.Equal(collT, types.Error) {
			a.errAt(n.Collection.Span(), diag.TypeMismatch, "cannot iterate over type %s", collT)
		}
	}
	body := newScope(scope)
	body.define(&Symbol{Name: n.Var, Type: elem, Sp: n.Sp})
	a.loopDepth++
	a.checkBlock(n.Body, body)
	a.loopDepth--
}

func (a *Analyzer) checkReturn(n *ast.ReturnStatement, scope *Scope) {
	if n.Value == nil {
		if !types.Equal(a.currentReturn, types.Void) {
			a.errAt(n.Sp, diag.TypeMismatch, "bare `return` in a function declared to return %s", a.currentReturn)
		}
		return
	}
	t := a.inferExpr(n.Value, scope)
	if !types.Compatible(t, a.currentReturn) {
		a.errAt(n.Sp, diag.TypeMismatch, "returned %s but function is declared to return %s", t, a.currentReturn)
	}
}
