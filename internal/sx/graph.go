package sx

import "fmt"

// Partials returns the partial derivatives of n with respect to its
// dependencies, expressed in terms of n and its dependencies.
// The second partial is nil for unary operations.
//
// Rules:
//   - d(a+b) = 1, 1          d(a-b) = 1, -1
//   - d(a*b) = b, a          d(a/b) = 1/b, -(a/b)/b
//   - d(-a)  = -1            d(sin a) = cos a
//   - d(cos a) = -sin a      d(exp a) = exp a
//   - d(log a) = 1/a         d(sqrt a) = 0.5/sqrt a
//   - d(tanh a) = 1 - tanh(a)^2
func Partials(n *Node) (*Node, *Node) {
	a, b := n.dep[0], n.dep[1]
	switch n.op {
	case OpAdd:
		return one, one
	case OpSub:
		return one, Const(-1)
	case OpMul:
		return b, a
	case OpDiv:
		return Div(one, b), Neg(Div(n, b))
	case OpNeg:
		return Const(-1), nil
	case OpSin:
		return Cos(a), nil
	case OpCos:
		return Neg(Sin(a)), nil
	case OpExp:
		return n, nil
	case OpLog:
		return Div(one, a), nil
	case OpSqrt:
		return Div(Const(0.5), n), nil
	case OpTanh:
		return Sub(one, Mul(n, n)), nil
	default:
		return nil, nil
	}
}

// Sort returns every node reachable from roots in dependency order: each node
// appears after all of its dependencies, and exactly once.
func Sort(roots []*Node) []*Node {
	seen := make(map[*Node]bool)
	order := make([]*Node, 0, len(roots))

	var visit func(n *Node)
	visit = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for k := 0; k < n.op.Arity(); k++ {
			visit(n.dep[k])
		}
		order = append(order, n)
	}

	for _, r := range roots {
		visit(r)
	}
	return order
}

// Eval evaluates roots numerically. Every symbol reachable from roots must be
// bound in env.
func Eval(roots []*Node, env map[*Node]float64) ([]float64, error) {
	values := make(map[*Node]float64, len(env))
	for _, n := range Sort(roots) {
		switch n.op {
		case OpConst:
			values[n] = n.value
		case OpSym:
			v, ok := env[n]
			if !ok {
				return nil, fmt.Errorf("sx: unbound symbol %q", n.name)
			}
			values[n] = v
		default:
			var b float64
			if n.op.Arity() == 2 {
				b = values[n.dep[1]]
			}
			values[n] = n.op.Apply(values[n.dep[0]], b)
		}
	}

	out := make([]float64, len(roots))
	for i, r := range roots {
		out[i] = values[r]
	}
	return out, nil
}
