package semantic

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// inferExpr type-checks e and returns its resolved type, reporting a
// diagnostic and returning types.Error on any failure so later checks in
// the same expression tree do not cascade spurious errors (spec §9). The
// result is also recorded in a.exprTypes so internal/codegen can look up
// every expression's type without re-running inference.
func (a *Analyzer) inferExpr(e ast.Expression, scope *Scope) types.Type {
	t := a.inferExprKind(e, scope)
	a.exprTypes[e] = t
	return t
}

func (a *Analyzer) inferExprKind(e ast.Expression, scope *Scope) types.Type {
	switch n := e.(type) {
	case *ast.Identifier:
		return a.inferIdentifier(n, scope)
	case *ast.IntegerLiteral:
		return types.Integer
	case *ast.NumberLiteral:
		return types.Number
	case *ast.BooleanLiteral:
		return types.Boolean
	case *ast.NilLiteral:
		return types.Any
	case *ast.StringLiteral:
		for _, p := range n.Parts {
			if p.Expr != nil {
				a.inferExpr(p.Expr, scope)
			}
		}
		return types.Str
	case *ast.BinaryExpression:
		return a.inferBinary(n, scope)
	case *ast.UnaryExpression:
		return a.inferUnary(n, scope)
	case *ast.CallExpression:
		return a.inferCall(n, scope)
	case *ast.MethodCallExpression:
		return a.inferMethodCall(n, scope)
	case *ast.PropertyAccess:
		return a.inferPropertyAccess(n, scope)
	case *ast.IndexAccess:
		return a.inferIndexAccess(n, scope)
	case *ast.ListLiteral:
		return a.inferListLiteral(n, scope)
	case *ast.MatrixLiteral:
		return a.inferMatrixLiteral(n, scope)
	case *ast.ConditionalExpression:
		return a.inferConditional(n, scope)
	case *ast.OnError:
		return a.inferOnError(n, scope)
	case *ast.BaseCall:
		return a.inferBaseCall(n, scope)
	case *ast.StartExpression:
		return types.Future{Elem: a.inferExpr(n.Expr, scope)}
	default:
		a.errAt(e.Span(), diag.InternalCompilerError, "unhandled expression type %T", e)
		return types.Error
	}
}

func (a *Analyzer) inferIdentifier(n *ast.Identifier, scope *Scope) types.Type {
	if sym, ok := scope.resolve(n.Value); ok {
		sym.Used = true
		return sym.Type
	}
	if a.currentClass != nil {
		if f, owner, ok := a.fieldLookup(a.currentClass, n.Value); ok {
			return a.resolveType(f.Type, owner.Decl)
		}
	}
	a.errAt(n.Sp, diag.UndefinedName, "undefined name %q", n.Value)
	return types.Error
}

func (a *Analyzer) inferBinary(n *ast.BinaryExpression, scope *Scope) types.Type {
	left := a.inferExpr(n.Left, scope)
	right := a.inferExpr(n.Right, scope)
	if types.Equal(left, types.Error) || types.Equal(right, types.Error) {
		return types.Error
	}

	switch n.Operator {
	case "+", "-", "*", "/", "%", "^":
		if n.Operator == "+" && types.Equal(left, types.Str) && types.Equal(right, types.Str) {
			return types.Str
		}
		if !types.IsNumeric(left) || !types.IsNumeric(right) {
			hint := ""
			if types.Equal(left, types.Str) || types.Equal(right, types.Str) {
				hint = "; use `.toString()` to combine a string with a non-string value"
			}
			a.errAt(n.Sp, diag.TypeMismatch, "operator %q requires numeric operands%s", n.Operator, hint)
			return types.Error
		}
		common, ok := types.Widen(left, right)
		if !ok {
			a.errAt(n.Sp, diag.TypeMismatch, "operands of %q have incompatible types %s and %s", n.Operator, left, right)
			return types.Error
		}
		return common

	case "<", "<=", ">", ">=":
		if !types.IsNumeric(left) || !types.IsNumeric(right) {
			a.errAt(n.Sp, diag.TypeMismatch, "operator %q requires comparable operands", n.Operator)
			return types.Error
		}
		return types.Boolean

	case "==", "!=":
		if !types.Compatible(left, right) && !types.Compatible(right, left) {
			a.errAt(n.Sp, diag.TypeMismatch, "cannot compare %s with %s", left, right)
			return types.Error
		}
		return types.Boolean

	case "and", "or":
		if !types.Equal(left, types.Boolean) || !types.Equal(right, types.Boolean) {
			a.errAt(n.Sp, diag.TypeMismatch, "operator %q requires Boolean operands", n.Operator)
			return types.Error
		}
		return types.Boolean

	case "is":
		if _, ok := n.Right.(*ast.Identifier); !ok {
			a.errAt(n.Right.Span(), diag.TypeMismatch, "right-hand side of `is` must name a type")
			return types.Error
		}
		return types.Boolean

	default:
		a.errAt(n.Sp, diag.InternalCompilerError, "unhandled binary operator %q", n.Operator)
		return types.Error
	}
}

func (a *Analyzer) inferUnary(n *ast.UnaryExpression, scope *Scope) types.Type {
	operand := a.inferExpr(n.Operand, scope)
	switch n.Operator {
	case "-":
		if !types.IsNumeric(operand) {
			a.errAt(n.Sp, diag.TypeMismatch, "unary `-` requires a numeric operand")
			return types.Error
		}
		return operand
	case "not":
		if !types.Equal(operand, types.Boolean) {
			a.errAt(n.Sp, diag.TypeMismatch, "`not` requires a Boolean operand")
			return types.Error
		}
		return types.Boolean
	default:
		a.errAt(n.Sp, diag.InternalCompilerError, "unhandled unary operator %q", n.Operator)
		return types.Error
	}
}

func (a *Analyzer) inferCall(n *ast.CallExpression, scope *Scope) types.Type {
	args := make([]types.Type, len(n.Args))
	for i, arg := range n.Args {
		args[i] = a.inferExpr(arg, scope)
	}
	os, ok := a.functions[n.Callee]
	if !ok {
		a.errAt(n.Sp, diag.UndefinedName, "undefined function %q", n.Callee)
		return types.Error
	}
	sig, err := os.Resolve(args)
	if err != nil {
		a.errAt(n.Sp, diag.NoMatchingOverload, "no matching overload for %q(%s)", n.Callee, joinTypes(args))
		return types.Error
	}
	return sig.Result
}

func (a *Analyzer) inferMethodCall(n *ast.MethodCallExpression, scope *Scope) types.Type {
	recv := a.inferExpr(n.Receiver, scope)
	args := make([]types.Type, len(n.Args))
	for i, arg := range n.Args {
		args[i] = a.inferExpr(arg, scope)
	}
	class, ok := recv.(*types.Class)
	if !ok {
		a.errAt(n.Sp, diag.TypeMismatch, "method call on non-class type %s", recv)
		return types.Error
	}
	os, owner, ok := a.methodLookup(class.Name, n.Method)
	if !ok {
		a.errAt(n.Sp, diag.UndefinedName, "undefined method %q on class %q", n.Method, class.Name)
		return types.Error
	}
	_ = owner
	sig, err := os.Resolve(args)
	if err != nil {
		a.errAt(n.Sp, diag.NoMatchingOverload, "no matching overload for %s.%s(%s)", class.Name, n.Method, joinTypes(args))
		return types.Error
	}
	return sig.Result
}

// methodLookup walks the class parent chain looking for an overload set
// named name, returning the class that declares it.
func (a *Analyzer) methodLookup(className, name string) (*types.OverloadSet, *ClassInfo, bool) {
	for cur := a.classes[className]; cur != nil; {
		if os, ok := cur.Methods[name]; ok {
			return os, cur, true
		}
		if cur.Decl.Parent == "" {
			break
		}
		cur = a.classes[cur.Decl.Parent]
	}
	return nil, nil, false
}

func (a *Analyzer) inferPropertyAccess(n *ast.PropertyAccess, scope *Scope) types.Type {
	recv := a.inferExpr(n.Receiver, scope)
	class, ok := recv.(*types.Class)
	if !ok {
		a.errAt(n.Sp, diag.TypeMismatch, "property access on non-class type %s", recv)
		return types.Error
	}
	owner := a.classes[class.Name]
	if owner == nil {
		return types.Error
	}
	field, declaredOn, ok := a.fieldLookup(owner, n.Name)
	if !ok {
		a.errAt(n.Sp, diag.UndefinedName, "undefined field %q on class %q", n.Name, class.Name)
		return types.Error
	}
	if field.IsPrivate && (a.currentClass == nil || a.currentClass.Decl.Name != declaredOn.Decl.Name) {
		a.errAt(n.Sp, diag.PrivateAccessViolation, "field %q is private to class %q", n.Name, declaredOn.Decl.Name)
		return types.Error
	}
	return a.resolveType(field.Type, declaredOn.Decl)
}

func (a *Analyzer) inferIndexAccess(n *ast.IndexAccess, scope *Scope) types.Type {
	recv := a.inferExpr(n.Receiver, scope)
	for _, ix := range n.Indices {
		if t := a.inferExpr(ix, scope); !types.IsNumeric(t) {
			a.errAt(ix.Span(), diag.TypeMismatch, "index must be an Integer")
		}
	}
	switch rv := recv.(type) {
	case *types.List:
		return rv.Elem
	case *types.Matrix:
		if len(n.Indices) != 2 {
			a.errAt(n.Sp, diag.TypeMismatch, "matrix index requires two indices")
		}
		return rv.Elem
	case *types.Pairs:
		return rv.Value
	default:
		a.errAt(n.Sp, diag.TypeMismatch, "cannot index type %s", recv)
		return types.Error
	}
}

func (a *Analyzer) inferListLiteral(n *ast.ListLiteral, scope *Scope) types.Type {
	if len(n.Elements) == 0 {
		return &types.List{Elem: types.Any}
	}
	elem := a.inferExpr(n.Elements[0], scope)
	for _, e := range n.Elements[1:] {
		t := a.inferExpr(e, scope)
		if common, ok := types.Widen(elem, t); ok {
			elem = common
		} else {
			elem = types.Any
		}
	}
	return &types.List{Elem: elem}
}

func (a *Analyzer) inferMatrixLiteral(n *ast.MatrixLiteral, scope *Scope) types.Type {
	var elem types.Type = types.Any
	first := true
	for _, row := range n.Rows {
		for _, e := range row {
			t := a.inferExpr(e, scope)
			if first {
				elem, first = t, false
				continue
			}
			if common, ok := types.Widen(elem, t); ok {
				elem = common
			} else {
				elem = types.Any
			}
		}
	}
	return &types.Matrix{Elem: elem}
}

func (a *Analyzer) inferConditional(n *ast.ConditionalExpression, scope *Scope) types.Type {
	if cond := a.inferExpr(n.Condition, scope); !types.Equal(cond, types.Boolean) {
		a.errAt(n.Condition.Span(), diag.TypeMismatch, "condition must be Boolean")
	}
	thenT := a.inferExpr(n.Then, scope)
	elseT := a.inferExpr(n.Else, scope)
	if common, ok := types.Widen(thenT, elseT); ok {
		return common
	}
	if types.Compatible(thenT, elseT) {
		return elseT
	}
	a.errAt(n.Sp, diag.TypeMismatch, "`then` branch has type %s but `else` branch has type %s", thenT, elseT)
	return types.Error
}

func (a *Analyzer) inferOnError(n *ast.OnError, scope *Scope) types.Type {
	exprT := a.inferExpr(n.Expr, scope)
	var handlerT types.Type = types.Void
	switch h := n.Handler.(type) {
	case ast.Expression:
		handlerT = a.inferExpr(h, scope)
	case *ast.BlockStatement:
		a.checkBlock(h, newScope(scope))
		if len(h.Statements) > 0 {
			if es, ok := h.Statements[len(h.Statements)-1].(*ast.ExpressionStatement); ok {
				handlerT = a.inferExpr(es.Expr, scope)
			}
		}
	}
	if common, ok := types.Widen(exprT, handlerT); ok {
		return common
	}
	return exprT
}

func (a *Analyzer) inferBaseCall(n *ast.BaseCall, scope *Scope) types.Type {
	if a.currentClass == nil || a.currentClass.Decl.Parent == "" {
		a.errAt(n.Sp, diag.InvalidBaseCall, "`base(...)` is only valid in a subclass constructor")
		return types.Void
	}
	parent := a.classes[a.currentClass.Decl.Parent]
	args := make([]types.Type, len(n.Args))
	for i, arg := range n.Args {
		args[i] = a.inferExpr(arg, scope)
	}
	if parent.Constructor == nil {
		if len(args) != 0 {
			a.errAt(n.Sp, diag.InvalidBaseCall, "class %q has no constructor accepting arguments", parent.Decl.Name)
		}
		return types.Void
	}
	sig := a.resolveFunctionSignatureIn(parent.Constructor, parent.Decl)
	if _, err := (&types.OverloadSet{Signatures: []*types.FunctionSignature{sig}}).Resolve(args); err != nil {
		a.errAt(n.Sp, diag.InvalidBaseCall, "base(...) arguments do not match %q's constructor", parent.Decl.Name)
	}
	return types.Void
}

func joinTypes(ts []types.Type) string {
	s := ""
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}
