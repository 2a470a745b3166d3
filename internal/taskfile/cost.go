package taskfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gitrdm/goplanner/pkg/formalism"
)

// functionTables holds the numeric function values of a problem, keyed by
// function name and then by the space-joined argument names.
type functionTables struct {
	values map[string]map[string]int
}

func (t *functionTables) lookup(name string, args []string) (int, bool) {
	v, ok := t.values[name][strings.Join(args, " ")]
	return v, ok
}

// exprCost is a cost expression compiled once per action schema and run
// per binding. Parameters are bound to object names; each declared
// function is callable with object names and yields its table value.
//
// A binding whose evaluation reads an undefined function value, fails at
// run time or produces a negative or non-integral result has no cost, and
// the action is not applicable for it.
type exprCost struct {
	source  string
	program *vm.Program
	params  []string
	funcs   []FunctionDecl
	tables  *functionTables
}

var _ formalism.CostFunction = (*exprCost)(nil)

// compileCost turns a cost expression into a CostFunction. Empty source
// means unit cost (nil) and an integer literal a constant cost.
func compileCost(source string, params []formalism.Parameter, funcs []FunctionDecl, tables *functionTables) (formalism.CostFunction, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(source); err == nil {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative cost %d", ErrInvalidTask, n)
		}
		return formalism.ConstantCost(n), nil
	}

	c := &exprCost{source: source, funcs: funcs, tables: tables}
	env := make(map[string]any, len(params)+len(funcs))
	for _, fn := range funcs {
		env[fn.Name] = func(...any) (any, error) { return 0, nil }
	}
	for _, p := range params {
		c.params = append(c.params, p.Name)
		env[p.Name] = ""
	}

	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("%w: cost %q: %v", ErrInvalidTask, source, err)
	}
	c.program = program
	return c, nil
}

// Cost implements formalism.CostFunction.
func (c *exprCost) Cost(objects []*formalism.Object) (int, bool) {
	env := make(map[string]any, len(c.params)+len(c.funcs))
	for i, name := range c.params {
		env[name] = objects[i].Name
	}

	undefined := false
	for _, fn := range c.funcs {
		env[fn.Name] = func(args ...any) (any, error) {
			if len(args) != fn.Arity {
				return nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, fn.Arity, len(args))
			}
			names := make([]string, len(args))
			for i, arg := range args {
				s, ok := arg.(string)
				if !ok {
					return nil, fmt.Errorf("%s: argument %d is not an object", fn.Name, i)
				}
				names[i] = s
			}
			v, ok := c.tables.lookup(fn.Name, names)
			if !ok {
				undefined = true
			}
			return v, nil
		}
	}

	out, err := expr.Run(c.program, env)
	if err != nil || undefined {
		return 0, false
	}
	return toCost(out)
}

func (c *exprCost) String() string {
	return c.source
}

func toCost(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		n = int(x)
	default:
		return 0, false
	}
	return n, n >= 0
}
