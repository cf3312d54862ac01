// Package sxfunc implements function.Function for functions defined by scalar
// expressions.
//
// New compiles the expressions into a flat instruction list in dependency
// order. Instruction k writes work register w[k], so one evaluation needs
// exactly as many work elements as there are instructions and no integer
// work. The same instruction list drives numeric evaluation, symbolic
// evaluation, sparsity propagation and C code generation.
package sxfunc

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/sx"
	"github.com/born-ml/batchfn/internal/workspace"
)

// Common errors.
var (
	ErrNotSymbolic     = errors.New("input is not a free symbol")
	ErrDuplicateSymbol = errors.New("symbol appears in more than one input position")
	ErrFreeSymbol      = errors.New("expression depends on a symbol that is not an input")
	ErrNilExpression   = errors.New("nil expression")
)

// instr is one step of the compiled algorithm.
type instr struct {
	op   sx.Op
	arg  [2]int  // Operand registers.
	val  float64 // OpConst value.
	port int     // OpSym input port.
	nz   int     // OpSym nonzero within the port.
}

type position struct {
	port, nz int
}

// Function is a function of scalar expressions.
type Function struct {
	name    string
	inputs  [][]*sx.Node
	outputs [][]*sx.Node

	nodes []*sx.Node // nodes[k] is computed by algo[k].
	algo  []instr
	out   [][]int // Register holding each output nonzero.

	inputPos map[*sx.Node]position

	evals atomic.Int64
}

var _ function.Function = (*Function)(nil)

// New creates a function mapping the input symbols to the output expressions.
// Every input must be a distinct free symbol and every symbol an output
// depends on must be an input.
func New(name string, inputs, outputs [][]*sx.Node) (*Function, error) {
	f := &Function{
		name:     name,
		inputs:   inputs,
		outputs:  outputs,
		inputPos: make(map[*sx.Node]position),
	}

	for j, port := range inputs {
		for i, n := range port {
			switch {
			case n == nil:
				return nil, fmt.Errorf("%s: input %d nonzero %d: %w", name, j, i, ErrNilExpression)
			case !n.IsSymbolic():
				return nil, fmt.Errorf("%s: input %d nonzero %d (%s): %w", name, j, i, n, ErrNotSymbolic)
			}
			if _, dup := f.inputPos[n]; dup {
				return nil, fmt.Errorf("%s: input %d nonzero %d (%s): %w", name, j, i, n.Name(), ErrDuplicateSymbol)
			}
			f.inputPos[n] = position{port: j, nz: i}
		}
	}

	var roots []*sx.Node
	for k, port := range outputs {
		for i, n := range port {
			if n == nil {
				return nil, fmt.Errorf("%s: output %d nonzero %d: %w", name, k, i, ErrNilExpression)
			}
			roots = append(roots, n)
		}
	}

	f.nodes = sx.Sort(roots)
	register := make(map[*sx.Node]int, len(f.nodes))
	f.algo = make([]instr, len(f.nodes))
	for k, n := range f.nodes {
		register[n] = k
		in := instr{op: n.Op()}
		switch n.Op() {
		case sx.OpConst:
			in.val = n.Value()
		case sx.OpSym:
			pos, ok := f.inputPos[n]
			if !ok {
				return nil, fmt.Errorf("%s: symbol %q: %w", name, n.Name(), ErrFreeSymbol)
			}
			in.port, in.nz = pos.port, pos.nz
		default:
			for d := 0; d < n.Op().Arity(); d++ {
				in.arg[d] = register[n.Dep(d)]
			}
		}
		f.algo[k] = in
	}

	f.out = make([][]int, len(outputs))
	for k, port := range outputs {
		f.out[k] = make([]int, len(port))
		for i, n := range port {
			f.out[k][i] = register[n]
		}
	}
	return f, nil
}

// Name returns the function name.
func (f *Function) Name() string { return f.name }

// NIn returns the number of input ports.
func (f *Function) NIn() int { return len(f.inputs) }

// NOut returns the number of output ports.
func (f *Function) NOut() int { return len(f.outputs) }

// NnzIn returns the number of nonzeros of input port j.
func (f *Function) NnzIn(j int) int { return len(f.inputs[j]) }

// NnzOut returns the number of nonzeros of output port k.
func (f *Function) NnzOut(k int) int { return len(f.outputs[k]) }

// WorkSize returns the work requirements of one evaluation.
func (f *Function) WorkSize() workspace.Sizes {
	return workspace.Sizes{Arg: f.NIn(), Res: f.NOut(), IW: 0, W: len(f.algo)}
}

// Inputs returns the input symbols.
func (f *Function) Inputs() [][]*sx.Node { return f.inputs }

// Outputs returns the output expressions.
func (f *Function) Outputs() [][]*sx.Node { return f.outputs }

// Instructions returns the length of the compiled algorithm.
func (f *Function) Instructions() int { return len(f.algo) }

// Evaluations returns how many times Eval has run.
func (f *Function) Evaluations() int64 { return f.evals.Load() }

// Eval evaluates numerically.
func (f *Function) Eval(arg, res [][]float64, iw []int, w []float64, mem int) error {
	f.evals.Add(1)
	for k, in := range f.algo {
		switch in.op {
		case sx.OpConst:
			w[k] = in.val
		case sx.OpSym:
			if a := arg[in.port]; a != nil {
				w[k] = a[in.nz]
			} else {
				w[k] = 0
			}
		default:
			var b float64
			if in.op.Arity() == 2 {
				b = w[in.arg[1]]
			}
			w[k] = in.op.Apply(w[in.arg[0]], b)
		}
	}
	writeOutputs(f.out, res, w)
	return nil
}

// EvalSX evaluates symbolically.
func (f *Function) EvalSX(arg, res [][]*sx.Node, iw []int, w []*sx.Node, mem int) error {
	for k, in := range f.algo {
		switch in.op {
		case sx.OpConst:
			w[k] = sx.Const(in.val)
		case sx.OpSym:
			if a := arg[in.port]; a != nil {
				w[k] = a[in.nz]
			} else {
				w[k] = sx.Zero()
			}
		default:
			var b *sx.Node
			if in.op.Arity() == 2 {
				b = w[in.arg[1]]
			}
			w[k] = sx.Apply(in.op, w[in.arg[0]], b)
		}
	}
	writeOutputs(f.out, res, w)
	return nil
}

// SpFwd propagates dependencies forward.
func (f *Function) SpFwd(arg, res [][]function.Bvec, iw []int, w []function.Bvec, mem int) error {
	for k, in := range f.algo {
		switch in.op {
		case sx.OpConst:
			w[k] = 0
		case sx.OpSym:
			if a := arg[in.port]; a != nil {
				w[k] = a[in.nz]
			} else {
				w[k] = 0
			}
		default:
			bits := w[in.arg[0]]
			if in.op.Arity() == 2 {
				bits |= w[in.arg[1]]
			}
			w[k] = bits
		}
	}
	writeOutputs(f.out, res, w)
	return nil
}

// SpRev propagates dependencies backward.
func (f *Function) SpRev(arg, res [][]function.Bvec, iw []int, w []function.Bvec, mem int) error {
	clear(w[:len(f.algo)])
	for k, regs := range f.out {
		r := res[k]
		if r == nil {
			continue
		}
		for i, reg := range regs {
			w[reg] |= r[i]
			r[i] = 0
		}
	}

	for k := len(f.algo) - 1; k >= 0; k-- {
		in := f.algo[k]
		seed := w[k]
		w[k] = 0
		if seed == 0 {
			continue
		}
		switch in.op {
		case sx.OpConst:
		case sx.OpSym:
			if a := arg[in.port]; a != nil {
				a[in.nz] |= seed
			}
		default:
			for d := 0; d < in.op.Arity(); d++ {
				w[in.arg[d]] |= seed
			}
		}
	}
	return nil
}

func writeOutputs[T any](out [][]int, res [][]T, w []T) {
	for k, regs := range out {
		r := res[k]
		if r == nil {
			continue
		}
		for i, reg := range regs {
			r[i] = w[reg]
		}
	}
}
