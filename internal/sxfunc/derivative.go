package sxfunc

import (
	"fmt"

	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/sx"
)

// Forward returns the function computing nfwd forward directional
// derivatives.
//
// Tangents are pushed through the compiled nodes in dependency order:
//
//	dot(n) = dn/da * dot(a) + dn/db * dot(b)
//
// with dot of an input symbol equal to its seed symbol.
func (f *Function) Forward(nfwd int) (function.Function, error) {
	if nfwd < 1 {
		return nil, fmt.Errorf("%s: forward derivative with %d directions: %w", f.name, nfwd, function.ErrDirections)
	}

	inputs := append([][]*sx.Node{}, f.inputs...)
	var outputs [][]*sx.Node
	for d := 0; d < nfwd; d++ {
		seeds := make([][]*sx.Node, len(f.inputs))
		for j, port := range f.inputs {
			seeds[j] = sx.Syms(fmt.Sprintf("fwd%d_i%d", d, j), len(port))
		}
		inputs = append(inputs, seeds...)

		dot := make(map[*sx.Node]*sx.Node, len(f.nodes))
		for _, n := range f.nodes {
			dot[n] = f.tangent(n, dot, seeds)
		}
		for _, port := range f.outputs {
			sens := make([]*sx.Node, len(port))
			for i, n := range port {
				sens[i] = dot[n]
			}
			outputs = append(outputs, sens)
		}
	}
	return New(fmt.Sprintf("fwd%d_%s", nfwd, f.name), inputs, outputs)
}

func (f *Function) tangent(n *sx.Node, dot map[*sx.Node]*sx.Node, seeds [][]*sx.Node) *sx.Node {
	switch n.Op() {
	case sx.OpConst:
		return sx.Zero()
	case sx.OpSym:
		pos := f.inputPos[n]
		return seeds[pos.port][pos.nz]
	}
	da, db := sx.Partials(n)
	t := sx.Mul(da, dot[n.Dep(0)])
	if n.Op().Arity() == 2 {
		t = sx.Add(t, sx.Mul(db, dot[n.Dep(1)]))
	}
	return t
}

// Reverse returns the function computing nadj adjoint derivatives.
//
// Adjoints are accumulated walking the compiled nodes backwards, the same
// way a gradient tape is replayed:
//
//	bar(a) += dn/da * bar(n),  bar(b) += dn/db * bar(n)
func (f *Function) Reverse(nadj int) (function.Function, error) {
	if nadj < 1 {
		return nil, fmt.Errorf("%s: reverse derivative with %d directions: %w", f.name, nadj, function.ErrDirections)
	}

	inputs := append([][]*sx.Node{}, f.inputs...)
	var outputs [][]*sx.Node
	for d := 0; d < nadj; d++ {
		seeds := make([][]*sx.Node, len(f.outputs))
		for k, port := range f.outputs {
			seeds[k] = sx.Syms(fmt.Sprintf("adj%d_o%d", d, k), len(port))
		}
		inputs = append(inputs, seeds...)

		bar := make(map[*sx.Node]*sx.Node, len(f.nodes))
		accumulate := func(n, v *sx.Node) {
			if prev, ok := bar[n]; ok {
				bar[n] = sx.Add(prev, v)
			} else {
				bar[n] = v
			}
		}
		for k, port := range f.outputs {
			for i, n := range port {
				accumulate(n, seeds[k][i])
			}
		}

		for k := len(f.nodes) - 1; k >= 0; k-- {
			n := f.nodes[k]
			b, ok := bar[n]
			if !ok || n.Op().Arity() == 0 {
				continue
			}
			da, db := sx.Partials(n)
			accumulate(n.Dep(0), sx.Mul(da, b))
			if n.Op().Arity() == 2 {
				accumulate(n.Dep(1), sx.Mul(db, b))
			}
		}

		for _, port := range f.inputs {
			sens := make([]*sx.Node, len(port))
			for i, n := range port {
				if b, ok := bar[n]; ok {
					sens[i] = b
				} else {
					sens[i] = sx.Zero()
				}
			}
			outputs = append(outputs, sens)
		}
	}
	return New(fmt.Sprintf("adj%d_%s", nadj, f.name), inputs, outputs)
}
