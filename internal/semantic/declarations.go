package semantic

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// collectDeclarations is pass 1 (spec §4.4): classes are declared shallow,
// then linked to their parent, then given resolved members, before any
// function body is type-checked — so forward references between classes
// and between functions both resolve regardless of declaration order.
func (a *Analyzer) collectDeclarations(prog *ast.Program) {
	for _, c := range prog.Classes {
		a.declareClassShallow(c)
	}
	for _, c := range prog.Classes {
		a.linkClassParent(c)
	}
	for _, c := range prog.Classes {
		a.checkClassCycle(c, nil)
	}
	for _, c := range prog.Classes {
		a.declareClassMembers(c)
	}

	for _, f := range prog.Functions {
		a.declareFunction(f)
	}
	for _, f := range prog.Tests {
		a.declareFunction(f)
	}
	if prog.Start != nil {
		a.declareFunction(prog.Start)
	}

	for _, v := range prog.Constants {
		a.declareConstant(v)
	}
}

func (a *Analyzer) declareClassShallow(c *ast.ClassDecl) {
	if _, exists := a.classes[c.Name]; exists {
		a.errAt(c.Sp, diag.DuplicateDefinition, "class %q is already declared", c.Name)
		return
	}
	a.classes[c.Name] = &ClassInfo{
		Decl:        c,
		Type:        &types.Class{Name: c.Name},
		Fields:      make(map[string]*ast.Field),
		Methods:     make(map[string]*types.OverloadSet),
		MethodDecls: make(map[string][]*ast.FunctionDecl),
	}
}

func (a *Analyzer) linkClassParent(c *ast.ClassDecl) {
	info := a.classes[c.Name]
	if info == nil || c.Parent == "" {
		return
	}
	parent, ok := a.classes[c.Parent]
	if !ok {
		a.errAt(c.Sp, diag.UndefinedName, "class %q has undeclared parent %q", c.Name, c.Parent)
		return
	}
	info.Type.Parent = parent.Type
}

// checkClassCycle walks c's parent chain, reporting CircularInheritance the
// first time c reappears in its own ancestry.
func (a *Analyzer) checkClassCycle(c *ast.ClassDecl, seen []string) {
	for _, name := range seen {
		if name == c.Name {
			a.errAt(c.Sp, diag.CircularInheritance, "class %q participates in a circular inheritance chain", c.Name)
			return
		}
	}
	if c.Parent == "" {
		return
	}
	parent, ok := a.classes[c.Parent]
	if !ok {
		return
	}
	a.checkClassCycle(parent.Decl, append(seen, c.Name))
}

func (a *Analyzer) declareClassMembers(c *ast.ClassDecl) {
	info := a.classes[c.Name]
	if info == nil {
		return
	}

	for _, f := range c.Fields {
		if _, exists := info.Fields[f.Name]; exists {
			a.errAt(f.Sp, diag.DuplicateDefinition, "field %q is already declared on class %q", f.Name, c.Name)
			continue
		}
		info.Fields[f.Name] = f
	}

	if c.Constructor != nil {
		info.Constructor = c.Constructor
		a.resolveFunctionSignatureIn(c.Constructor, c)
	}

	for _, m := range c.Methods {
		sig := a.resolveFunctionSignatureIn(m, c)
		a.addSignature(info.Methods, m.Name, sig)
		info.MethodDecls[m.Name] = append(info.MethodDecls[m.Name], m)
	}
}

func (a *Analyzer) declareFunction(f *ast.FunctionDecl) {
	if existing, ok := a.functions[f.Name]; ok {
		for _, sig := range existing.Signatures {
			if len(sig.Params) == len(f.Params) {
				a.errAt(f.Sp, diag.DuplicateDefinition, "function %q is already declared with %d parameter(s)", f.Name, len(f.Params))
				return
			}
		}
	}
	sig := a.resolveFunctionSignatureIn(f, nil)
	a.addSignature(a.functions, f.Name, sig)
}

func (a *Analyzer) declareConstant(v *ast.VarDecl) {
	t := a.resolveType(v.DeclType, nil)
	sym := &Symbol{Name: v.Name, Type: t, Sp: v.Sp, IsConst: true, Used: true}
	a.global.define(sym)
}

// resolveFunctionSignatureIn builds the semantic FunctionSignature for f.
// ownerClass supplies the type-parameter scope when f is a method or
// constructor.
func (a *Analyzer) resolveFunctionSignatureIn(f *ast.FunctionDecl, ownerClass *ast.ClassDecl) *types.FunctionSignature {
	params := make([]types.Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = a.resolveType(p.Type, ownerClass)
	}
	result := types.Type(types.Void)
	if f.ReturnType != nil {
		result = a.resolveType(f.ReturnType, ownerClass)
	}
	return &types.FunctionSignature{Params: params, Result: result}
}

// resolveType converts a syntactic ast.Type into its semantic types.Type,
// resolving class names against a.classes and type-parameter names against
// ownerClass's TypeParams (spec §3's generics note, §4.4's resolution pass).
func (a *Analyzer) resolveType(t *ast.Type, ownerClass *ast.ClassDecl) types.Type {
	if t == nil {
		return types.Void
	}
	switch t.Kind {
	case ast.TBoolean:
		return types.Boolean
	case ast.TInteger:
		return types.Integer
	case ast.TNumber:
		return types.Number
	case ast.TString:
		return types.Str
	case ast.TVoid:
		return types.Void
	case ast.TAny:
		return types.Any
	case ast.TIntegerSized:
		return types.IntegerSized{Bits: t.Bits, Unsigned: t.Unsigned}
	case ast.TNumberSized:
		return types.NumberSized{Bits: t.Bits}
	case ast.TList:
		return &types.List{Elem: a.resolveType(t.Elem, ownerClass)}
	case ast.TMatrix:
		return &types.Matrix{Elem: a.resolveType(t.Elem, ownerClass)}
	case ast.TPairs:
		return &types.Pairs{Key: a.resolveType(t.Key, ownerClass), Value: a.resolveType(t.Value, ownerClass)}
	case ast.TClass:
		return a.resolveClassType(t, ownerClass)
	case ast.TFunction:
		params := make([]types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = a.resolveType(p, ownerClass)
		}
		return types.Function{Params: params, Result: a.resolveType(t.Result, ownerClass)}
	case ast.TFuture:
		return types.Future{Elem: a.resolveType(t.Elem, ownerClass)}
	case ast.TTypeParameter:
		return types.TypeParameter{Name: t.Name}
	default:
		a.errAt(t.Sp, diag.TypeMismatch, "cannot resolve type %q", t.String())
		return types.Error
	}
}

func (a *Analyzer) resolveClassType(t *ast.Type, ownerClass *ast.ClassDecl) types.Type {
	if ownerClass != nil {
		for _, tp := range ownerClass.TypeParams {
			if tp == t.Name {
				return types.TypeParameter{Name: t.Name}
			}
		}
	}
	info, ok := a.classes[t.Name]
	if !ok {
		a.errAt(t.Sp, diag.UndefinedName, "undeclared class %q", t.Name)
		return types.Error
	}
	if len(t.TypeArgs) == 0 {
		return info.Type
	}
	args := make([]types.Type, len(t.TypeArgs))
	for i, ta := range t.TypeArgs {
		args[i] = a.resolveType(ta, ownerClass)
	}
	return &types.Class{Name: info.Type.Name, Parent: info.Type.Parent, TypeArgs: args}
}
