package mapping

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/sx"
	"github.com/born-ml/batchfn/internal/sxfunc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeCall records what one call of the wrapped function received.
type probeCall struct {
	in     []float64
	argNil bool
	resNil bool
	resLen int
	wCap   int
	w0     *float64
}

// probe wraps an expression function and records every numeric call.
type probe struct {
	*sxfunc.Function

	mu    sync.Mutex
	calls []probeCall
	fail  func(x []float64) error
}

func (p *probe) Eval(arg, res [][]float64, iw []int, w []float64, mem int) error {
	c := probeCall{
		in:     append([]float64(nil), arg[0]...),
		argNil: arg[0] == nil,
		resNil: res[0] == nil,
		resLen: len(res[0]),
		wCap:   cap(w),
	}
	if len(w) > 0 {
		c.w0 = &w[0]
	}
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()

	if p.fail != nil {
		if err := p.fail(arg[0]); err != nil {
			return err
		}
	}
	return p.Function.Eval(arg, res, iw, w, mem)
}

// newBase builds f(x[2]) = (x0+x1, x0*x1, x0-x1): one input with two
// nonzeros and one output with three.
func newBase(t *testing.T) *sxfunc.Function {
	t.Helper()
	x := sx.Syms("x", 2)
	f, err := sxfunc.New("f", [][]*sx.Node{x}, [][]*sx.Node{{
		sx.Add(x[0], x[1]),
		sx.Mul(x[0], x[1]),
		sx.Sub(x[0], x[1]),
	}})
	require.NoError(t, err)
	return f
}

func newProbe(t *testing.T) *probe {
	return &probe{Function: newBase(t)}
}

// newTwoPort builds g(x[2], p[1]) = (x0*p, sin(x1)), (exp(x0)+p).
func newTwoPort(t *testing.T) *sxfunc.Function {
	t.Helper()
	x := sx.Syms("x", 2)
	p := sx.Syms("p", 1)
	g, err := sxfunc.New("g", [][]*sx.Node{x, p}, [][]*sx.Node{
		{sx.Mul(x[0], p[0]), sx.Sin(x[1])},
		{sx.Add(sx.Exp(x[0]), p[0])},
	})
	require.NoError(t, err)
	return g
}

var strategies = []struct {
	name string
	p    string
	opts Options
}{
	{"serial", "serial", nil},
	{"openmp", "openmp", Options{"parallel": true, "num_threads": 4}},
	{"openmp-fallback", "openmp", Options{"parallel": false}},
}

func TestCreateUnknownParallelization(t *testing.T) {
	f := newBase(t)
	m, err := Create("m", "quantum", f, 4, Options{})
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrUnknownParallelization)
	assert.ErrorContains(t, err, `"quantum"`)
}

func TestCreateErrors(t *testing.T) {
	f := newBase(t)

	_, err := Create("m", "serial", f, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = Create("m", "serial", nil, 2, nil)
	assert.ErrorIs(t, err, ErrNilFunction)

	_, err = Create("m", "serial", f, 2, Options{"chunk": 3})
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = Create("m", "openmp", f, 2, Options{"num_threads": 0})
	assert.ErrorIs(t, err, ErrOptionType)

	_, err = Create("m", "openmp", f, 2, Options{"verbose": "yes"})
	assert.ErrorIs(t, err, ErrOptionType)
}

func TestParseParallelization(t *testing.T) {
	p, err := ParseParallelization("serial")
	require.NoError(t, err)
	assert.Equal(t, Serial, p)

	p, err = ParseParallelization("openmp")
	require.NoError(t, err)
	assert.Equal(t, Parallel, p)
	assert.Equal(t, "openmp", p.String())

	_, err = ParseParallelization("OpenMP")
	assert.ErrorIs(t, err, ErrUnknownParallelization)
}

func TestContract(t *testing.T) {
	g := newTwoPort(t)
	m, err := Create("m", "serial", g, 3, nil)
	require.NoError(t, err)

	assert.Equal(t, "m", m.Name())
	assert.Same(t, g, m.Function())
	assert.Equal(t, 3, m.N())
	assert.Equal(t, Serial, m.Parallelization())
	assert.Equal(t, 2, m.NIn())
	assert.Equal(t, 2, m.NOut())
	assert.Equal(t, 6, m.NnzIn(0))
	assert.Equal(t, 3, m.NnzIn(1))
	assert.Equal(t, 6, m.NnzOut(0))
	assert.Equal(t, 3, m.NnzOut(1))
}

func TestWorkSize(t *testing.T) {
	g := newTwoPort(t)
	fsz := g.WorkSize()

	serial, err := Create("m", "serial", g, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, fsz.Offset(2, 2), serial.WorkSize())

	par, err := Create("m", "openmp", g, 4, Options{"parallel": true})
	require.NoError(t, err)
	assert.Equal(t, fsz.Scale(4).Offset(2, 2), par.WorkSize())

	info := par.Info()
	assert.Equal(t, "g", info.Function)
	assert.Equal(t, 4, info.N)
	assert.True(t, info.Concurrent)
	assert.False(t, serial.Info().Concurrent)
}

func TestSerialSlicing(t *testing.T) {
	p := newProbe(t)
	m, err := Create("m", "serial", p, 3, nil)
	require.NoError(t, err)

	x := []float64{1, 2, 3, 4, 5, 6}
	out, err := function.Call(m, x)
	require.NoError(t, err)

	// Instance i reads x[2i:2i+2) and writes y[3i:3i+3).
	want := []float64{
		3, 2, -1,
		7, 12, -1,
		11, 30, -1,
	}
	assert.Equal(t, want, out[0])

	require.Len(t, p.calls, 3)
	for i, c := range p.calls {
		assert.Equal(t, x[2*i:2*i+2], c.in, "instance %d", i)
		assert.Equal(t, 3, c.resLen)
	}
	// One shared workspace: every call receives the same scratch.
	assert.Same(t, p.calls[0].w0, p.calls[2].w0)
}

func TestParallelWorkspaceDisjoint(t *testing.T) {
	p := newProbe(t)
	m, err := Create("m", "openmp", p, 8, Options{"parallel": true, "num_threads": 3})
	require.NoError(t, err)

	x := make([]float64, 16)
	for i := range x {
		x[i] = float64(i)
	}
	_, err = function.Call(m, x)
	require.NoError(t, err)

	require.Len(t, p.calls, 8)
	seen := make(map[*float64]bool)
	for _, c := range p.calls {
		assert.Equal(t, p.WorkSize().W, c.wCap)
		assert.False(t, seen[c.w0], "workspace region shared between instances")
		seen[c.w0] = true
	}
}

func TestStrategiesAgree(t *testing.T) {
	g := newTwoPort(t)
	const n = 37

	rng := rand.New(rand.NewSource(1))
	x := make([]float64, 2*n)
	p := make([]float64, n)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	for i := range p {
		p[i] = rng.NormFloat64()
	}

	// Reference: n direct calls on the i-th slices.
	want := [][]float64{make([]float64, 2*n), make([]float64, n)}
	for i := 0; i < n; i++ {
		out, err := function.Call(g, x[2*i:2*i+2], p[i:i+1])
		require.NoError(t, err)
		copy(want[0][2*i:], out[0])
		copy(want[1][i:], out[1])
	}

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			m, err := Create("m", s.p, g, n, s.opts)
			require.NoError(t, err)
			got, err := function.Call(m, x, p)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluationCount(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			f := newBase(t)
			m, err := Create("m", s.p, f, 5, s.opts)
			require.NoError(t, err)
			_, err = function.Call(m, make([]float64, 10))
			require.NoError(t, err)
			assert.Equal(t, int64(5), f.Evaluations())
		})
	}
}

func TestAbsentSlots(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			p := newProbe(t)
			m, err := Create("m", s.p, p, 4, s.opts)
			require.NoError(t, err)

			buf := function.NewBuffers[float64](m)
			require.NoError(t, m.Eval(buf.Arg, buf.Res, buf.IW, buf.W, 0))

			require.Len(t, p.calls, 4)
			for _, c := range p.calls {
				assert.True(t, c.argNil)
				assert.True(t, c.resNil)
			}
			assert.Nil(t, buf.Res[0])
		})
	}
}

func TestAbsentInputReadsZero(t *testing.T) {
	g := newTwoPort(t)
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			m, err := Create("m", s.p, g, 2, s.opts)
			require.NoError(t, err)
			out, err := function.Call(m, []float64{1, 0, 2, 0}, nil)
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 0, 0, 0}, out[0])
			assert.InDeltaSlice(t, []float64{2.718281828459045, 7.38905609893065}, out[1], 1e-12)
		})
	}
}

func TestShortBuffers(t *testing.T) {
	f := newBase(t)
	m, err := Create("m", "serial", f, 3, nil)
	require.NoError(t, err)

	buf := function.NewBuffers[float64](m)
	buf.Arg[0] = make([]float64, 5)
	err = m.Eval(buf.Arg, buf.Res, buf.IW, buf.W, 0)
	assert.ErrorIs(t, err, function.ErrNonzeros)

	err = m.Eval(buf.Arg[:1], buf.Res, buf.IW, buf.W, 0)
	assert.ErrorIs(t, err, function.ErrShortWorkspace)
}

func TestFailureSerialStopsAtFirstInstance(t *testing.T) {
	boom := errors.New("negative input")
	p := newProbe(t)
	p.fail = func(x []float64) error {
		if x[0] < 0 {
			return boom
		}
		return nil
	}

	m, err := Create("m", "serial", p, 5, nil)
	require.NoError(t, err)

	x := []float64{1, 1, 2, 2, -3, 3, 4, 4, -5, 5}
	_, err = function.Call(m, x)
	require.ErrorIs(t, err, boom)

	var ie *InstanceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Index)
	assert.Equal(t, "m", ie.Map)
	assert.Len(t, p.calls, 3)
}

func TestFailureParallel(t *testing.T) {
	boom := errors.New("negative input")
	p := newProbe(t)
	p.fail = func(x []float64) error {
		if x[0] < 0 {
			return boom
		}
		return nil
	}

	m, err := Create("m", "openmp", p, 40, Options{"parallel": true, "num_threads": 4})
	require.NoError(t, err)

	x := make([]float64, 80)
	x[2*17] = -1
	_, err = function.Call(m, x)
	require.ErrorIs(t, err, boom)

	var ie *InstanceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 17, ie.Index)
}

func TestEvalSX(t *testing.T) {
	g := newTwoPort(t)
	const n = 3
	x := sx.Syms("X", 2*n)
	p := sx.Syms("P", n)

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			m, err := Create("m", s.p, g, n, s.opts)
			require.NoError(t, err)

			got, err := function.CallSX(m, x, p)
			require.NoError(t, err)
			require.Len(t, got[0], 2*n)
			require.Len(t, got[1], n)

			for i := 0; i < n; i++ {
				want, err := function.CallSX(g, x[2*i:2*i+2], p[i:i+1])
				require.NoError(t, err)
				assert.Equal(t, want[0][0].String(), got[0][2*i].String())
				assert.Equal(t, want[0][1].String(), got[0][2*i+1].String())
				assert.Equal(t, want[1][0].String(), got[1][i].String())
			}
		})
	}
}

// blockDiagonal returns the pattern of n independent copies of p, given f's
// port sizes, with nonzeros numbered port by port.
func blockDiagonal(p *function.Pattern, in, out []int, n int) *function.Pattern {
	offsets := func(sizes []int) (base, mapped []int) {
		base = make([]int, len(sizes))
		mapped = make([]int, len(sizes))
		for j := 1; j < len(sizes); j++ {
			base[j] = base[j-1] + sizes[j-1]
			mapped[j] = mapped[j-1] + n*sizes[j-1]
		}
		return base, mapped
	}
	inBase, inMapped := offsets(in)
	outBase, outMapped := offsets(out)

	rows, cols := 0, 0
	for _, s := range out {
		rows += n * s
	}
	for _, s := range in {
		cols += n * s
	}
	res := function.NewPattern(rows, cols)
	for i := 0; i < n; i++ {
		for k, so := range out {
			for r := 0; r < so; r++ {
				for j, si := range in {
					for c := 0; c < si; c++ {
						if p.Has(outBase[k]+r, inBase[j]+c) {
							res.Set(outMapped[k]+i*so+r, inMapped[j]+i*si+c)
						}
					}
				}
			}
		}
	}
	return res
}

func TestSparsityIsBlockDiagonal(t *testing.T) {
	g := newTwoPort(t)
	base, err := function.JacobianSparsity(g)
	require.NoError(t, err)
	in, out := function.Sizes(g)

	// 30 instances give 90 input nonzeros, more than one sweep of seeds.
	const n = 30
	want := blockDiagonal(base, in, out, n)

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			m, err := Create("m", s.p, g, n, s.opts)
			require.NoError(t, err)

			fwd, err := function.JacobianSparsity(m)
			require.NoError(t, err)
			assert.Equal(t, want.String(), fwd.String())

			rev, err := function.ReverseSparsity(m)
			require.NoError(t, err)
			assert.Equal(t, want.String(), rev.String())
		})
	}
}

func TestNestedMap(t *testing.T) {
	f := newBase(t)
	inner, err := Create("inner", "openmp", f, 3, Options{"parallel": true})
	require.NoError(t, err)
	outer, err := Create("outer", "serial", inner, 4, nil)
	require.NoError(t, err)
	flat, err := Create("flat", "serial", f, 12, nil)
	require.NoError(t, err)

	x := make([]float64, 24)
	for i := range x {
		x[i] = float64(i%7) - 2.5
	}
	got, err := function.Call(outer, x)
	require.NoError(t, err)
	want, err := function.Call(flat, x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
