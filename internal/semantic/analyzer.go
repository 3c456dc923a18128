// Package semantic implements the two-pass semantic analyzer of spec §4.4:
// pass 1 collects every declaration (classes, functions, top-level
// constants) into symbol/function/class tables; pass 2 walks every
// function and method body, type-checking statements and expressions
// against those tables. Grounded on the teacher's
// internal/semantic/analyzer.go two-pass shape and its SemanticError
// taxonomy (internal/semantic/errors.go's per-kind constructors), replaced
// here by Clean Language's diag.Kind taxonomy (spec §7) playing the same
// structural role.
package semantic

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/builtins"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/token"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// ClassInfo is the resolved, pass-1 view of one class declaration.
type ClassInfo struct {
	Decl        *ast.ClassDecl
	Type        *types.Class
	Fields      map[string]*ast.Field
	Methods     map[string]*types.OverloadSet
	MethodDecls map[string][]*ast.FunctionDecl // parallel to Methods[name].Signatures, same order
	Constructor *ast.FunctionDecl
}

// FieldLookup walks the parent chain to find a field declared on c or an
// ancestor, returning the owning ClassInfo alongside it (needed for
// private-access checks — private fields are visible only within the
// declaring class, not subclasses).
func (a *Analyzer) fieldLookup(c *ClassInfo, name string) (*ast.Field, *ClassInfo, bool) {
	for cur := c; cur != nil; {
		if f, ok := cur.Fields[name]; ok {
			return f, cur, true
		}
		if cur.Decl.Parent == "" {
			break
		}
		cur = a.classes[cur.Decl.Parent]
	}
	return nil, nil, false
}

// Analyzer performs two-pass semantic analysis over a merged *ast.Program.
type Analyzer struct {
	diags diag.Diagnostics

	global    *Scope
	functions map[string]*types.OverloadSet
	classes   map[string]*ClassInfo
	exprTypes map[ast.Expression]types.Type

	currentClass  *ClassInfo
	currentReturn types.Type
	loopDepth     int
	inBackground  bool
}

// New creates an Analyzer with the builtin function table seeded (spec
// §4.4: "Built-ins are seeded first").
func New() *Analyzer {
	a := &Analyzer{
		global:    newScope(nil),
		functions: make(map[string]*types.OverloadSet),
		classes:   make(map[string]*ClassInfo),
		exprTypes: make(map[ast.Expression]types.Type),
	}
	a.seedBuiltins()
	return a
}

func (a *Analyzer) seedBuiltins() {
	for _, bi := range builtins.All {
		sigCopy := bi.Signature
		a.addSignature(a.functions, bi.Name, &sigCopy)
	}
}

func (a *Analyzer) addSignature(set map[string]*types.OverloadSet, name string, sig *types.FunctionSignature) {
	os, ok := set[name]
	if !ok {
		os = &types.OverloadSet{Name: name}
		set[name] = os
	}
	os.Signatures = append(os.Signatures, sig)
}

func (a *Analyzer) errAt(span token.Span, kind diag.Kind, format string, args ...any) {
	a.diags.Errorf(kind, span, format, args...)
}

func (a *Analyzer) warnAt(span token.Span, kind diag.Kind, format string, args ...any) {
	a.diags.Warnf(kind, span, format, args...)
}

// Result is everything pass 2 produces for downstream phases: the flat
// diagnostic list (spec §4.8) plus the class/function tables and the
// per-expression resolved types internal/codegen consumes so it never has
// to re-derive a type it was already computed once.
type Result struct {
	Diagnostics []diag.Diagnostic
	Classes     map[string]*ClassInfo
	Functions   map[string]*types.OverloadSet
	ExprTypes   map[ast.Expression]types.Type
}

// Analyze runs both passes over prog.
func Analyze(prog *ast.Program) *Result {
	a := New()
	a.collectDeclarations(prog)
	a.checkProgram(prog)
	return &Result{
		Diagnostics: a.diags.All(),
		Classes:     a.classes,
		Functions:   a.functions,
		ExprTypes:   a.exprTypes,
	}
}
