package main

import (
	"fmt"
	"sort"

	"github.com/born-ml/batchfn/expr"
)

// demos builds the functions that can be mapped from the command line.
var demos = map[string]func() (*expr.Function, error){
	// sincos(x) = (sin x, cos x)
	"sincos": func() (*expr.Function, error) {
		x := expr.Sym("x")
		return expr.NewFunction("sincos",
			[][]*expr.Node{{x}},
			[][]*expr.Node{{expr.Sin(x), expr.Cos(x)}},
		)
	},
	// rosenbrock(x, y) = (1-x)^2 + 100 (y-x^2)^2
	"rosenbrock": func() (*expr.Function, error) {
		v := expr.Syms("v", 2)
		a := expr.Sub(expr.Const(1), v[0])
		b := expr.Sub(v[1], expr.Mul(v[0], v[0]))
		return expr.NewFunction("rosenbrock",
			[][]*expr.Node{v},
			[][]*expr.Node{{expr.Add(expr.Mul(a, a), expr.Mul(expr.Const(100), expr.Mul(b, b)))}},
		)
	},
	// affine(x, y) = (2x + y, x - 3y, x + 1)
	"affine": func() (*expr.Function, error) {
		v := expr.Syms("v", 2)
		return expr.NewFunction("affine",
			[][]*expr.Node{v},
			[][]*expr.Node{{
				expr.Add(expr.Mul(expr.Const(2), v[0]), v[1]),
				expr.Sub(v[0], expr.Mul(expr.Const(3), v[1])),
				expr.Add(v[0], expr.Const(1)),
			}},
		)
	},
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newDemo(name string) (*expr.Function, error) {
	build, ok := demos[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q (available: %v)", name, demoNames())
	}
	return build()
}
