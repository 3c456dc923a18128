// Package types is the semantic type system the analyzer builds and checks
// against. It is deliberately separate from internal/ast's syntactic Type
// node (mirroring the teacher's ast.TypeAnnotation / resolved-type split):
// ast.Type is what the parser wrote down, types.Type is what it resolves to
// once the class table and type parameters are known.
package types

import "strings"

// Type is the resolved semantic type of an expression, variable, field,
// parameter or return value.
type Type interface {
	String() string
	kind() kind
}

type kind int

const (
	kBoolean kind = iota
	kInteger
	kNumber
	kString
	kVoid
	kAny
	kIntegerSized
	kNumberSized
	kList
	kMatrix
	kPairs
	kClass
	kFunction
	kFuture
	kTypeParameter
	kError
)

type primitive struct {
	k kind
	s string
}

func (p primitive) kind() kind     { return p.k }
func (p primitive) String() string { return p.s }

var (
	Boolean = primitive{kBoolean, "Boolean"}
	Integer = primitive{kInteger, "Integer"}
	Number  = primitive{kNumber, "Number"}
	Str     = primitive{kString, "String"}
	Void    = primitive{kVoid, "Void"}
	Any     = primitive{kAny, "Any"}
	// Error is compatible with every type in either direction so a single
	// upstream diagnostic does not cascade into dozens downstream (spec §9).
	Error = primitive{kError, "Error"}
)

// IntegerSized is a fixed-width integer, e.g. Integer32, UInteger8.
type IntegerSized struct {
	Bits     int
	Unsigned bool
}

func (t IntegerSized) kind() kind { return kIntegerSized }
func (t IntegerSized) String() string {
	prefix := "Integer"
	if t.Unsigned {
		prefix = "UInteger"
	}
	return prefix + itoa(t.Bits)
}

// NumberSized is a fixed-width float, e.g. Number32, Number64.
type NumberSized struct{ Bits int }

func (t NumberSized) kind() kind     { return kNumberSized }
func (t NumberSized) String() string { return "Number" + itoa(t.Bits) }

// List is a homogeneous, invariant sequence type.
type List struct{ Elem Type }

func (t List) kind() kind     { return kList }
func (t List) String() string { return "List(" + t.Elem.String() + ")" }

// Matrix is a 2-D homogeneous array type.
type Matrix struct{ Elem Type }

func (t Matrix) kind() kind     { return kMatrix }
func (t Matrix) String() string { return "Matrix(" + t.Elem.String() + ")" }

// Pairs is an invariant association-list type.
type Pairs struct{ Key, Value Type }

func (t Pairs) kind() kind     { return kPairs }
func (t Pairs) String() string { return "Pairs(" + t.Key.String() + "," + t.Value.String() + ")" }

// Class is a named class type, optionally parameterized, carrying a link
// to its resolved parent for subtyping checks.
type Class struct {
	Name     string
	Parent   *Class
	TypeArgs []Type
}

func (t *Class) kind() kind { return kClass }
func (t *Class) String() string {
	if len(t.TypeArgs) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		parts[i] = a.String()
	}
	return t.Name + "(" + strings.Join(parts, ",") + ")"
}

// IsDescendantOf reports whether t is parent, or a descendant of parent,
// walking the single-inheritance chain.
func (t *Class) IsDescendantOf(parent *Class) bool {
	for c := t; c != nil; c = c.Parent {
		if c.Name == parent.Name {
			return true
		}
	}
	return false
}

// Function is a function/method signature type.
type Function struct {
	Params []Type
	Result Type
}

func (t Function) kind() kind { return kFunction }
func (t Function) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return "Function(" + strings.Join(parts, ",") + ")->" + t.Result.String()
}

// Future wraps a type T whose computation is deferred to its first use
// (spec §5, §9); it unifies only with Future(T).
type Future struct{ Elem Type }

func (t Future) kind() kind     { return kFuture }
func (t Future) String() string { return "Future(" + t.Elem.String() + ")" }

// TypeParameter is an unresolved generic type variable.
type TypeParameter struct{ Name string }

func (t TypeParameter) kind() kind     { return kTypeParameter }
func (t TypeParameter) String() string { return t.Name }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Equal reports structural equality (not compatibility — see Compatible).
func Equal(a, b Type) bool {
	if a.kind() != b.kind() {
		return false
	}
	switch av := a.(type) {
	case List:
		return Equal(av.Elem, b.(List).Elem)
	case Matrix:
		return Equal(av.Elem, b.(Matrix).Elem)
	case Pairs:
		bv := b.(Pairs)
		return Equal(av.Key, bv.Key) && Equal(av.Value, bv.Value)
	case *Class:
		bv := b.(*Class)
		if av.Name != bv.Name || len(av.TypeArgs) != len(bv.TypeArgs) {
			return false
		}
		for i := range av.TypeArgs {
			if !Equal(av.TypeArgs[i], bv.TypeArgs[i]) {
				return false
			}
		}
		return true
	case Function:
		bv := b.(Function)
		if len(av.Params) != len(bv.Params) || !Equal(av.Result, bv.Result) {
			return false
		}
		for i := range av.Params {
			if !Equal(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return true
	case Future:
		return Equal(av.Elem, b.(Future).Elem)
	case TypeParameter:
		return av.Name == b.(TypeParameter).Name
	default:
		return a.String() == b.String() // primitive / IntegerSized / NumberSized
	}
}

// numericRank orders numeric types for the widening rule in spec §4.4:
// Integer and any IntegerSized widen to Number and any NumberSized(>=32).
// Higher rank is wider. Non-numeric types return -1.
func numericRank(t Type) int {
	switch v := t.(type) {
	case primitive:
		if v.k == kInteger {
			return 1
		}
		if v.k == kNumber {
			return 3
		}
	case IntegerSized:
		return 1
	case NumberSized:
		if v.Bits >= 32 {
			return 3
		}
		return 2
	}
	return -1
}

// IsNumeric reports whether t participates in arithmetic widening.
func IsNumeric(t Type) bool { return numericRank(t) >= 0 }

// Compatible reports whether a value of type `from` may be used where `to`
// is expected (assignment, argument passing, operand compatibility), per
// spec §4.4's compatibility rules.
func Compatible(from, to Type) bool {
	if from.kind() == kAny || to.kind() == kAny {
		return true
	}
	if from.kind() == kError || to.kind() == kError {
		return true
	}
	if Equal(from, to) {
		return true
	}
	if IsNumeric(from) && IsNumeric(to) {
		return numericRank(from) <= numericRank(to)
	}
	if fc, ok := from.(*Class); ok {
		if tc, ok := to.(*Class); ok {
			return fc.IsDescendantOf(tc)
		}
	}
	// Future(T) unifies only with Future(T); it is not otherwise
	// compatible with T (the `later` keyword is the only coercion path,
	// handled at the declaration site by the analyzer, not here).
	return false
}

// Widen returns the common type of a and b under the numeric widening
// order, and whether a common type exists at all (numeric with numeric,
// or identical types).
func Widen(a, b Type) (Type, bool) {
	if Equal(a, b) {
		return a, true
	}
	if IsNumeric(a) && IsNumeric(b) {
		if numericRank(a) >= numericRank(b) {
			return a, true
		}
		return b, true
	}
	return nil, false
}

// FunctionSignature is one overload of a named function or method.
type FunctionSignature struct {
	Params []Type
	Result Type
	Index  int // module-unique function index, assigned during codegen
}

// OverloadSet is every signature registered under one name.
type OverloadSet struct {
	Name       string
	Signatures []*FunctionSignature
}

// ResolveError reports an overload-resolution failure with every candidate
// so the caller can render a NoMatchingOverload diagnostic.
type ResolveError struct {
	Ambiguous  bool
	Candidates []*FunctionSignature
}

func (e *ResolveError) Error() string {
	if e.Ambiguous {
		return "ambiguous overload"
	}
	return "no matching overload"
}

// Resolve implements spec §4.4's overload resolution algorithm: filter by
// arity, prefer exact matches, else prefer all-compatible matches, and fail
// with every tied candidate when zero or more than one remain at a tier.
func (s *OverloadSet) Resolve(args []Type) (*FunctionSignature, error) {
	arity := make([]*FunctionSignature, 0, len(s.Signatures))
	for _, sig := range s.Signatures {
		if len(sig.Params) == len(args) {
			arity = append(arity, sig)
		}
	}
	if len(arity) == 0 {
		return nil, &ResolveError{Candidates: s.Signatures}
	}

	var exact []*FunctionSignature
	for _, sig := range arity {
		if allEqual(sig.Params, args) {
			exact = append(exact, sig)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		return nil, &ResolveError{Ambiguous: true, Candidates: exact}
	}

	var compatible []*FunctionSignature
	for _, sig := range arity {
		if allCompatible(sig.Params, args) {
			compatible = append(compatible, sig)
		}
	}
	if len(compatible) == 1 {
		return compatible[0], nil
	}
	if len(compatible) > 1 {
		return nil, &ResolveError{Ambiguous: true, Candidates: compatible}
	}
	return nil, &ResolveError{Candidates: arity}
}

func allEqual(params, args []Type) bool {
	for i := range params {
		if !Equal(params[i], args[i]) {
			return false
		}
	}
	return true
}

func allCompatible(params, args []Type) bool {
	for i := range params {
		if !Compatible(args[i], params[i]) {
			return false
		}
	}
	return true
}
