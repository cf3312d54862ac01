package mapping

import (
	"github.com/born-ml/batchfn/internal/codegen"
	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/parallel"
	"github.com/born-ml/batchfn/internal/sx"
	"github.com/born-ml/batchfn/internal/workspace"
)

// strategy is the closed set of execution policies. Every mode of evaluation
// goes through it; the Map only validates buffers and logs.
type strategy interface {
	kind() Parallelization
	concurrent() bool
	workSize(m *Map) workspace.Sizes
	eval(m *Map, arg, res [][]float64, iw []int, w []float64) error
	evalSX(m *Map, arg, res [][]*sx.Node, iw []int, w []*sx.Node) error
	spFwd(m *Map, arg, res [][]function.Bvec, iw []int, w []function.Bvec) error
	spRev(m *Map, arg, res [][]function.Bvec, iw []int, w []function.Bvec) error
	generateBody(m *Map, g *codegen.Generator) error
}

// newStrategy selects the strategy for p. The parallel runtime capability is
// read once here.
func newStrategy(p Parallelization, cfg Config) strategy {
	if p == Parallel {
		return parallelStrategy{runtime: cfg.Parallel}
	}
	return serialStrategy{}
}

// call is one invocation of the wrapped function on instance buffers.
type call[T any] func(arg, res [][]T, iw []int, w []T) error

// sliceInstance points dst[j] at instance i of src[j]. Each instance of port j
// spans nnz[j] elements; a nil source slot yields a nil instance slot.
func sliceInstance[T any](dst, src [][]T, nnz []int, i int) {
	for j, s := range nnz {
		if src[j] == nil {
			dst[j] = nil
			continue
		}
		dst[j] = src[j][i*s : (i+1)*s : (i+1)*s]
	}
}

// runSerial calls f once per instance in increasing order. The instance slots
// live directly after the map's own slots and the scratch is shared, so one
// call's workspace is enough.
func runSerial[T any](m *Map, arg, res [][]T, iw []int, w []T, f call[T]) error {
	arg1 := arg[m.nIn:]
	res1 := res[m.nOut:]
	for i := 0; i < m.n; i++ {
		sliceInstance(arg1, arg, m.nnzIn, i)
		sliceInstance(res1, res, m.nnzOut, i)
		if err := f(arg1, res1, iw, w); err != nil {
			return &InstanceError{Map: m.name, Index: i, Err: err}
		}
	}
	return nil
}

// runParallel calls f for every instance concurrently. Instance i owns the
// i-th region of the slot arrays and of both scratch arenas.
func runParallel[T any](m *Map, arg, res [][]T, iw []int, w []T, f call[T], cfg parallel.Config) error {
	return parallel.ForErr(m.n, func(i int) error {
		argI := workspace.Stride(arg[m.nIn:], i, m.fsz.Arg)
		resI := workspace.Stride(res[m.nOut:], i, m.fsz.Res)
		sliceInstance(argI, arg, m.nnzIn, i)
		sliceInstance(resI, res, m.nnzOut, i)
		iwI := workspace.Stride(iw, i, m.fsz.IW)
		wI := workspace.Stride(w, i, m.fsz.W)
		if err := f(argI, resI, iwI, wI); err != nil {
			return &InstanceError{Map: m.name, Index: i, Err: err}
		}
		return nil
	}, cfg)
}

func (m *Map) evalF(arg, res [][]float64, iw []int, w []float64) error {
	return m.f.Eval(arg, res, iw, w, 0)
}

func (m *Map) evalSXF(arg, res [][]*sx.Node, iw []int, w []*sx.Node) error {
	return m.f.EvalSX(arg, res, iw, w, 0)
}

func (m *Map) spFwdF(arg, res [][]function.Bvec, iw []int, w []function.Bvec) error {
	return m.f.SpFwd(arg, res, iw, w, 0)
}

func (m *Map) spRevF(arg, res [][]function.Bvec, iw []int, w []function.Bvec) error {
	return m.f.SpRev(arg, res, iw, w, 0)
}

type serialStrategy struct{}

func (serialStrategy) kind() Parallelization { return Serial }

func (serialStrategy) concurrent() bool { return false }

func (serialStrategy) workSize(m *Map) workspace.Sizes {
	r := workspace.NewRequest(m.nIn, m.nOut)
	r.Arg(m.nIn, m.fsz.Arg)
	r.Res(m.nOut, m.fsz.Res)
	r.IW(m.fsz.IW)
	r.W(m.fsz.W)
	return r.Sizes()
}

func (serialStrategy) eval(m *Map, arg, res [][]float64, iw []int, w []float64) error {
	return runSerial(m, arg, res, iw, w, m.evalF)
}

func (serialStrategy) evalSX(m *Map, arg, res [][]*sx.Node, iw []int, w []*sx.Node) error {
	return runSerial(m, arg, res, iw, w, m.evalSXF)
}

func (serialStrategy) spFwd(m *Map, arg, res [][]function.Bvec, iw []int, w []function.Bvec) error {
	return runSerial(m, arg, res, iw, w, m.spFwdF)
}

// spRev mutates the instance input slices as accumulation targets.
func (serialStrategy) spRev(m *Map, arg, res [][]function.Bvec, iw []int, w []function.Bvec) error {
	return runSerial(m, arg, res, iw, w, m.spRevF)
}

func (serialStrategy) generateBody(m *Map, g *codegen.Generator) error {
	return generateSerial(m, g)
}

// parallelStrategy fans numeric evaluation and forward propagation out over
// the parallel runtime. Symbolic evaluation and reverse propagation visit
// instances in increasing order so expressions and accumulated dependencies
// are built deterministically.
type parallelStrategy struct {
	runtime parallel.Config
}

func (parallelStrategy) kind() Parallelization { return Parallel }

func (s parallelStrategy) concurrent() bool { return s.runtime.Enabled }

func (parallelStrategy) workSize(m *Map) workspace.Sizes {
	r := workspace.NewRequest(m.nIn, m.nOut)
	// Serial requirements first; the scaled ones below always dominate.
	r.Arg(m.nIn, m.fsz.Arg)
	r.Res(m.nOut, m.fsz.Res)
	r.IW(m.fsz.IW)
	r.W(m.fsz.W)

	all := m.fsz.Scale(m.n)
	r.Arg(m.nIn, all.Arg)
	r.Res(m.nOut, all.Res)
	r.IW(all.IW)
	r.W(all.W)
	return r.Sizes()
}

func (s parallelStrategy) eval(m *Map, arg, res [][]float64, iw []int, w []float64) error {
	if !s.runtime.Enabled {
		return runSerial(m, arg, res, iw, w, m.evalF)
	}
	return runParallel(m, arg, res, iw, w, m.evalF, s.runtime)
}

func (parallelStrategy) evalSX(m *Map, arg, res [][]*sx.Node, iw []int, w []*sx.Node) error {
	return runSerial(m, arg, res, iw, w, m.evalSXF)
}

func (s parallelStrategy) spFwd(m *Map, arg, res [][]function.Bvec, iw []int, w []function.Bvec) error {
	if !s.runtime.Enabled {
		return runSerial(m, arg, res, iw, w, m.spFwdF)
	}
	return runParallel(m, arg, res, iw, w, m.spFwdF, s.runtime)
}

func (parallelStrategy) spRev(m *Map, arg, res [][]function.Bvec, iw []int, w []function.Bvec) error {
	return runSerial(m, arg, res, iw, w, m.spRevF)
}

func (parallelStrategy) generateBody(m *Map, g *codegen.Generator) error {
	return generateParallel(m, g)
}
