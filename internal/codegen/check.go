package codegen

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/iley/lispc/internal/ast"
)

const variadic = -1

// operator describes how a source operator lowers to the runtime.
type operator struct {
	name  string
	fn    string // runtime entry point, empty for special forms
	arity int
}

var operators = map[string]operator{
	"+":      {name: "+", fn: "madd", arity: 2},
	"-":      {name: "-", fn: "msub", arity: 2},
	"*":      {name: "*", fn: "mmul", arity: 2},
	"/":      {name: "/", fn: "mdiv", arity: 2},
	"mod":    {name: "mod", fn: "mmod", arity: 2},
	"=":      {name: "=", fn: "eq", arity: 2},
	"empty":  {name: "empty", fn: "empty", arity: 0},
	"empty?": {name: "empty?", fn: "isempty", arity: 1},
	"first":  {name: "first", fn: "first", arity: 1},
	"rest":   {name: "rest", fn: "rest", arity: 1},
	"cons":   {name: "cons", fn: "cons", arity: 2},
	"append": {name: "append", fn: "append", arity: 2},
	"list":   {name: "list", fn: "list", arity: variadic},
	"if":     {name: "if", arity: 3},
}

// RuntimeSymbols lists every runtime entry point generated code may call.
func RuntimeSymbols() []string {
	fns := lo.FilterMap(lo.Values(operators), func(op operator, _ int) (string, bool) {
		return op.fn, op.fn != ""
	})
	fns = append(fns, "newint", "newfloat")
	slices.Sort(fns)
	return fns
}

func lookupOperator(op *ast.Operation) (operator, error) {
	def, ok := operators[op.Op]
	if !ok {
		return operator{}, &UnsupportedOperatorError{Loc: op.Loc, Op: op.Op}
	}
	if def.arity != variadic && len(op.Params) != def.arity {
		return operator{}, &StructuralError{
			Loc:  op.Loc,
			Op:   op.Op,
			Want: pluralArgs(def.arity),
			Got:  len(op.Params),
		}
	}
	return def, nil
}

func pluralArgs(n int) string {
	switch n {
	case 0:
		return "no arguments"
	case 1:
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

// Check walks the whole tree and reports the first structural problem:
// an unknown operator, a wrong operand count or a name used outside its let*.
// Compile runs it before emitting anything.
func Check(node ast.Node) error {
	return checkNode(node, nil)
}

func checkNode(node ast.Node, scope []string) error {
	switch n := node.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral:
		return nil
	case *ast.Identifier:
		if n.Name == ast.True || n.Name == ast.False || lo.Contains(scope, n.Name) {
			return nil
		}
		return &UnboundNameError{Loc: n.Loc, Name: n.Name}
	case *ast.Operation:
		if _, err := lookupOperator(n); err != nil {
			return err
		}
		for _, param := range n.Params {
			if err := checkNode(param, scope); err != nil {
				return err
			}
		}
		return nil
	case *ast.LetBinding:
		inner := append([]string(nil), scope...)
		for _, b := range n.Bindings {
			if err := checkNode(b.Value, inner); err != nil {
				return err
			}
			inner = append(inner, b.Name)
		}
		return checkNode(n.Body, inner)
	case nil:
		return &StructuralError{Op: "expression", Want: "a node", Got: 0}
	}
	return &UnsupportedOperatorError{Op: fmt.Sprintf("%T", node)}
}
