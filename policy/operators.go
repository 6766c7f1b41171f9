package policy

import (
	"fmt"
	"reflect"
	"slices"
)

type Operator func(ctx RequestContext, args []any) (EvalResult, error)

var operators = map[string]Operator{
	"And":      opAnd,
	"Or":       opOr,
	"Not":      opNot,
	"Eq":       opEq,
	"Ne":       opNe,
	"Contains": opContains,
	"IsEmpty":  opIsEmpty,
	"Load":     opLoad,
}

func fail(op string, format string, a ...any) (EvalResult, error) {
	err := fmt.Errorf(format, a...)
	return EvalResult{
		Operator: op,
		Error:    err.Error(),
	}, err
}

func bools(op string, args []any) ([]bool, error) {
	result := make([]bool, len(args))
	for i, arg := range args {
		b, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("bad argument type for %s at index %d. Expected bool but got %s", op, i, reflect.TypeOf(arg))
		}
		result[i] = b
	}
	return result, nil
}

func opAnd(ctx RequestContext, args []any) (EvalResult, error) {
	values, err := bools("And", args)
	if err != nil {
		return fail("And", "%v", err)
	}
	return EvalResult{Operator: "And", Result: !slices.Contains(values, false)}, nil
}

func opOr(ctx RequestContext, args []any) (EvalResult, error) {
	values, err := bools("Or", args)
	if err != nil {
		return fail("Or", "%v", err)
	}
	return EvalResult{Operator: "Or", Result: slices.Contains(values, true)}, nil
}

func opNot(ctx RequestContext, args []any) (EvalResult, error) {
	if len(args) != 1 {
		return fail("Not", "bad argument length for Not. Expected 1 but got %d", len(args))
	}
	values, err := bools("Not", args)
	if err != nil {
		return fail("Not", "%v", err)
	}
	return EvalResult{Operator: "Not", Result: !values[0]}, nil
}

func opEq(ctx RequestContext, args []any) (EvalResult, error) {
	if len(args) != 2 {
		return fail("Eq", "bad argument length for Eq. Expected 2 but got %d", len(args))
	}
	return EvalResult{Operator: "Eq", Result: args[0] == args[1]}, nil
}

func opNe(ctx RequestContext, args []any) (EvalResult, error) {
	if len(args) != 2 {
		return fail("Ne", "bad argument length for Ne. Expected 2 but got %d", len(args))
	}
	return EvalResult{Operator: "Ne", Result: args[0] != args[1]}, nil
}

func opContains(ctx RequestContext, args []any) (EvalResult, error) {
	if len(args) != 2 {
		return fail("Contains", "bad argument length for Contains. Expected 2 but got %d", len(args))
	}

	switch list := args[0].(type) {
	case []any:
		return EvalResult{Operator: "Contains", Result: slices.Contains(list, args[1])}, nil
	case []string:
		s, ok := args[1].(string)
		return EvalResult{Operator: "Contains", Result: ok && slices.Contains(list, s)}, nil
	default:
		return fail("Contains", "bad argument type for Contains. Expected list but got %s", reflect.TypeOf(args[0]))
	}
}

// opIsEmpty is true for nil and for the zero string.
func opIsEmpty(ctx RequestContext, args []any) (EvalResult, error) {
	if len(args) != 1 {
		return fail("IsEmpty", "bad argument length for IsEmpty. Expected 1 but got %d", len(args))
	}
	empty := args[0] == nil
	if s, ok := args[0].(string); ok {
		empty = s == ""
	}
	return EvalResult{Operator: "IsEmpty", Result: empty}, nil
}

func opLoad(ctx RequestContext, args []any) (EvalResult, error) {
	if len(args) != 1 {
		return fail("Load", "bad argument length for Load. Expected 1 but got %d", len(args))
	}

	key, ok := args[0].(string)
	if !ok {
		return fail("Load", "bad argument type for Load. Expected string but got %s", reflect.TypeOf(args[0]))
	}

	value, ok := lookup(contextToMap(ctx), key)
	if !ok {
		return fail("Load", "key not found: %s", key)
	}

	return EvalResult{
		Operator: "Load",
		Result:   value,
	}, nil
}
