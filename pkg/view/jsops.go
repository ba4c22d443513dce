package view

import (
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
)

// Loop headers compare and add with browser coercions: "3" > 2 is true,
// "1" == 1 is true and "a" + 1 is "a1". expr's own operators reject mixed
// types, so the operators are rewritten into calls before type checking.

var binaryOps = map[string]string{
	"==":  "_jsEq",
	"!=":  "_jsNe",
	"<":   "_jsLt",
	">":   "_jsGt",
	"<=":  "_jsLe",
	">=":  "_jsGe",
	"+":   "_jsAdd",
	"-":   "_jsSub",
	"*":   "_jsMul",
	"/":   "_jsDiv",
	"%":   "_jsMod",
	"&&":  "_jsAnd",
	"and": "_jsAnd",
	"||":  "_jsOr",
	"or":  "_jsOr",
}

var unaryOps = map[string]string{
	"-":   "_jsNeg",
	"+":   "_jsPos",
	"!":   "_jsNot",
	"not": "_jsNot",
}

type jsOperators struct{}

func (jsOperators) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		if fn, ok := binaryOps[n.Operator]; ok {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: fn},
				Arguments: []ast.Node{n.Left, n.Right},
			})
		}
	case *ast.UnaryNode:
		if fn, ok := unaryOps[n.Operator]; ok {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: fn},
				Arguments: []ast.Node{n.Node},
			})
		}
	}
}

func binary(fn func(a, b interface{}) interface{}) func(...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		return fn(args[0], args[1]), nil
	}
}

func unary(fn func(v interface{}) interface{}) func(...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		return fn(args[0]), nil
	}
}

// jsOptions returns the expr options shared by every loop header program.
// strict selects === semantics for equality.
func jsOptions(strict bool) []expr.Option {
	eq := looseEqual
	if strict {
		eq = strictEqual
	}
	return []expr.Option{
		expr.Patch(jsOperators{}),
		expr.Function("_jsEq", binary(func(a, b interface{}) interface{} { return eq(a, b) })),
		expr.Function("_jsNe", binary(func(a, b interface{}) interface{} { return !eq(a, b) })),
		expr.Function("_jsLt", binary(func(a, b interface{}) interface{} {
			lt, ok := jsLess(a, b)
			return ok && lt
		})),
		expr.Function("_jsGt", binary(func(a, b interface{}) interface{} {
			gt, ok := jsLess(b, a)
			return ok && gt
		})),
		expr.Function("_jsLe", binary(func(a, b interface{}) interface{} {
			gt, ok := jsLess(b, a)
			return ok && !gt
		})),
		expr.Function("_jsGe", binary(func(a, b interface{}) interface{} {
			lt, ok := jsLess(a, b)
			return ok && !lt
		})),
		expr.Function("_jsAdd", binary(jsAdd)),
		expr.Function("_jsSub", binary(func(a, b interface{}) interface{} { return toNumber(a) - toNumber(b) })),
		expr.Function("_jsMul", binary(func(a, b interface{}) interface{} { return toNumber(a) * toNumber(b) })),
		expr.Function("_jsDiv", binary(func(a, b interface{}) interface{} { return toNumber(a) / toNumber(b) })),
		expr.Function("_jsMod", binary(func(a, b interface{}) interface{} { return math.Mod(toNumber(a), toNumber(b)) })),
		expr.Function("_jsAnd", binary(func(a, b interface{}) interface{} {
			if !isTruthy(a) {
				return a
			}
			return b
		})),
		expr.Function("_jsOr", binary(func(a, b interface{}) interface{} {
			if isTruthy(a) {
				return a
			}
			return b
		})),
		expr.Function("_jsNeg", unary(func(v interface{}) interface{} { return -toNumber(v) })),
		expr.Function("_jsPos", unary(func(v interface{}) interface{} { return toNumber(v) })),
		expr.Function("_jsNot", unary(func(v interface{}) interface{} { return !isTruthy(v) })),
	}
}

// toNumber follows Number(v).
func toNumber(v interface{}) float64 {
	if f, ok := numberOf(v); ok {
		return f
	}
	switch val := v.(type) {
	case undefinedValue:
		return math.NaN()
	case nil:
		return 0
	case bool:
		return boolNumber(val)
	case string:
		return stringToNumber(val)
	}
	return stringToNumber(toText(v))
}

func toPrimitive(v interface{}) interface{} {
	if kindOf(v) == kindObject {
		return toText(v)
	}
	return v
}

// jsLess reports a < b. ok is false when either side is NaN.
func jsLess(a, b interface{}) (lt, ok bool) {
	pa, pb := toPrimitive(a), toPrimitive(b)
	sa, aStr := pa.(string)
	sb, bStr := pb.(string)
	if aStr && bStr {
		return sa < sb, true
	}
	na, nb := toNumber(pa), toNumber(pb)
	if math.IsNaN(na) || math.IsNaN(nb) {
		return false, false
	}
	return na < nb, true
}

func jsAdd(a, b interface{}) interface{} {
	pa, pb := toPrimitive(a), toPrimitive(b)
	_, aStr := pa.(string)
	_, bStr := pb.(string)
	if aStr || bStr {
		return toText(pa) + toText(pb)
	}
	return toNumber(pa) + toNumber(pb)
}
