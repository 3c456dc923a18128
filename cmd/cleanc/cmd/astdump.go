package cmd

import (
	"fmt"
	"io"
	"reflect"

	"github.com/cwbudde/clean-wasmc/internal/ast"
)

// dumpASTNode writes an indented tree of node to w. Clean Language's AST has
// far more node kinds than a dump built as an explicit per-type switch could
// keep up with by hand (see ast.go's Node set), so unlike the teacher's
// dumpASTNode this one walks exported struct fields by reflection once past
// the handful of cases worth a custom one-liner.
func dumpASTNode(w io.Writer, node any, indent int) {
	pad := ""
	for i := 0; i < indent; i++ {
		pad += "  "
	}

	switch n := node.(type) {
	case nil:
		return
	case *ast.Identifier:
		fmt.Fprintf(w, "%sIdentifier: %s\n", pad, n.Value)
		return
	case *ast.IntegerLiteral:
		fmt.Fprintf(w, "%sIntegerLiteral: %d\n", pad, n.Value)
		return
	case *ast.NumberLiteral:
		fmt.Fprintf(w, "%sNumberLiteral: %g\n", pad, n.Value)
		return
	case *ast.BooleanLiteral:
		fmt.Fprintf(w, "%sBooleanLiteral: %v\n", pad, n.Value)
		return
	case *ast.NilLiteral:
		fmt.Fprintf(w, "%sNilLiteral\n", pad)
		return
	}

	dumpReflect(w, reflect.ValueOf(node), pad, indent)
}

func dumpReflect(w io.Writer, v reflect.Value, pad string, indent int) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			fmt.Fprintf(w, "%s<nil>\n", pad)
			return
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		fmt.Fprintf(w, "%s%s\n", pad, v.Type().Name())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() || field.Name == "Sp" {
				continue
			}
			fmt.Fprintf(w, "%s  %s:\n", pad, field.Name)
			dumpReflect(w, v.Field(i), pad+"    ", indent+2)
		}
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			fmt.Fprintf(w, "%s(empty)\n", pad)
			return
		}
		for i := 0; i < v.Len(); i++ {
			dumpReflect(w, v.Index(i), pad, indent)
		}
	default:
		fmt.Fprintf(w, "%s%v\n", pad, v.Interface())
	}
}
