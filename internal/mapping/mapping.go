// Package mapping implements the map combinator: a function that evaluates a
// wrapped function f independently on n consecutive slices of its input and
// output buffers.
//
// Input port j of the map holds n*f.NnzIn(j) nonzeros; instance i reads
// nonzeros [i*f.NnzIn(j), (i+1)*f.NnzIn(j)). Outputs are laid out the same
// way. Absent (nil) slots stay absent in every instance.
//
// Two strategies decide how the instances are scheduled:
//
//	Serial   ("serial")  instances run in increasing order and share one
//	                     workspace sized for a single call of f.
//	Parallel ("openmp")  instances run concurrently, each in its own disjoint
//	                     workspace region. Without a parallel runtime the
//	                     instances run serially with identical results.
//
// A Map is itself a function.Function, so maps compose and can be
// differentiated, propagated and code-generated like any other function.
package mapping

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/workspace"
)

// Parallelization identifies an execution strategy.
type Parallelization int

// Supported strategies.
const (
	Serial Parallelization = iota
	Parallel
)

// String returns the identifier accepted by ParseParallelization.
func (p Parallelization) String() string {
	switch p {
	case Serial:
		return "serial"
	case Parallel:
		return "openmp"
	default:
		return fmt.Sprintf("Parallelization(%d)", int(p))
	}
}

// ParseParallelization maps an identifier to a strategy.
func ParseParallelization(s string) (Parallelization, error) {
	switch s {
	case "serial":
		return Serial, nil
	case "openmp":
		return Parallel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownParallelization, s)
	}
}

// Map evaluates a function on n independent slices of its buffers.
// A Map holds no per-call state and is safe for concurrent evaluation with
// distinct buffers.
type Map struct {
	name string
	f    function.Function
	n    int

	nIn, nOut     int
	nnzIn, nnzOut []int           // Nonzeros of f's ports.
	fsz           workspace.Sizes // Work sizes of one call of f.
	sz            workspace.Sizes

	strategy strategy
	opts     Options
	cfg      Config
	logger   *slog.Logger
}

var _ function.Function = (*Map)(nil)

// Create builds a map of f over n instances using the named parallelization
// ("serial" or "openmp"), then applies opts. Nothing is constructed when the
// parallelization is unknown.
func Create(name, parallelization string, f function.Function, n int, opts Options) (*Map, error) {
	p, err := ParseParallelization(parallelization)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return New(name, p, f, n, opts)
}

// New is Create with an already parsed strategy.
func New(name string, p Parallelization, f function.Function, n int, opts Options) (*Map, error) {
	if f == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNilFunction)
	}
	if n < 1 {
		return nil, fmt.Errorf("%s: %w, got %d", name, ErrInvalidCount, n)
	}
	cfg, err := opts.Decode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	m := &Map{
		name:   name,
		f:      f,
		n:      n,
		nIn:    f.NIn(),
		nOut:   f.NOut(),
		fsz:    f.WorkSize(),
		opts:   opts,
		cfg:    cfg,
		logger: slog.Default().With("map", name, "parallelization", p.String()),
	}
	m.nnzIn, m.nnzOut = function.Sizes(f)

	m.strategy = newStrategy(p, cfg)
	m.sz = m.strategy.workSize(m)

	m.logger.Debug("created map", "function", f.Name(), "n", n, "work", m.sz.String())
	if p == Parallel && !cfg.Parallel.Enabled {
		m.logger.Debug("parallel runtime unavailable, instances run serially")
	}
	return m, nil
}

// Name returns the map's name.
func (m *Map) Name() string { return m.name }

// Function returns the wrapped function.
func (m *Map) Function() function.Function { return m.f }

// N returns the replication count.
func (m *Map) N() int { return m.n }

// Parallelization returns the map's strategy.
func (m *Map) Parallelization() Parallelization { return m.strategy.kind() }

// NIn returns the number of input ports, the same as the wrapped function.
func (m *Map) NIn() int { return m.nIn }

// NOut returns the number of output ports, the same as the wrapped function.
func (m *Map) NOut() int { return m.nOut }

// NnzIn returns n times the nonzeros of the wrapped function's input j.
func (m *Map) NnzIn(j int) int { return m.n * m.nnzIn[j] }

// NnzOut returns n times the nonzeros of the wrapped function's output k.
func (m *Map) NnzOut(k int) int { return m.n * m.nnzOut[k] }

// WorkSize returns the work requirements of one evaluation of the map.
func (m *Map) WorkSize() workspace.Sizes { return m.sz }

// Info summarizes a map.
type Info struct {
	Name            string
	Function        string
	N               int
	Parallelization Parallelization
	Concurrent      bool // Whether numeric evaluation fans out.
	WorkSize        workspace.Sizes
}

// Info returns a summary of the map.
func (m *Map) Info() Info {
	return Info{
		Name:            m.name,
		Function:        m.f.Name(),
		N:               m.n,
		Parallelization: m.strategy.kind(),
		Concurrent:      m.strategy.concurrent(),
		WorkSize:        m.sz,
	}
}
