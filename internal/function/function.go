// Package function defines the contract every callable function satisfies.
//
// A Function has a fixed number of input and output ports. Each port carries
// a fixed number of nonzeros. All evaluation modes share one calling
// convention:
//
//	(arg, res, iw, w, mem)
//
// arg and res are arrays of buffer slots sized by WorkSize().Arg and
// WorkSize().Res. The first NIn (NOut) slots are the caller's inputs
// (outputs); the remaining slots are scratch the function may use freely. A
// nil slot means "absent": inputs read as zero and outputs are not written.
// iw and w are integer and element scratch of at least WorkSize().IW and
// WorkSize().W. mem identifies a memory object and is currently always 0.
//
// Only the element type changes between modes: float64 for numeric
// evaluation, *sx.Node for symbolic evaluation and Bvec for sparsity
// propagation.
package function

import (
	"github.com/born-ml/batchfn/internal/codegen"
	"github.com/born-ml/batchfn/internal/sx"
	"github.com/born-ml/batchfn/internal/workspace"
)

// Bvec is a dependency bit-vector: bit k set means "depends on seed k".
type Bvec uint64

// BvecSize is the number of seed directions one Bvec carries.
const BvecSize = 64

// AllBits has every seed direction set.
const AllBits = ^Bvec(0)

// Function is a callable with fixed arity, nonzero counts and work sizes.
// Implementations must be safe for concurrent evaluation as long as each
// concurrent call receives its own arg, res, iw and w.
type Function interface {
	codegen.Emitter

	// NIn returns the number of input ports.
	NIn() int
	// NOut returns the number of output ports.
	NOut() int
	// NnzIn returns the number of nonzeros of input port j.
	NnzIn(j int) int
	// NnzOut returns the number of nonzeros of output port k.
	NnzOut(k int) int

	// Eval evaluates numerically.
	Eval(arg, res [][]float64, iw []int, w []float64, mem int) error
	// EvalSX evaluates symbolically, writing expressions in the inputs to res.
	EvalSX(arg, res [][]*sx.Node, iw []int, w []*sx.Node, mem int) error
	// SpFwd propagates dependencies forward: each output nonzero receives the
	// union of the bits of the input nonzeros it depends on.
	SpFwd(arg, res [][]Bvec, iw []int, w []Bvec, mem int) error
	// SpRev propagates dependencies backward: the bits of each output nonzero
	// are OR-ed into the input nonzeros it depends on, then cleared.
	SpRev(arg, res [][]Bvec, iw []int, w []Bvec, mem int) error

	// Forward returns the function computing nfwd forward directional
	// derivatives. Its inputs are the nominal inputs followed by nfwd groups of
	// NIn seeds; its outputs are nfwd groups of NOut sensitivities.
	Forward(nfwd int) (Function, error)
	// Reverse returns the function computing nadj adjoint derivatives. Its
	// inputs are the nominal inputs followed by nadj groups of NOut adjoint
	// seeds; its outputs are nadj groups of NIn adjoint sensitivities.
	Reverse(nadj int) (Function, error)
}

// Sizes returns the nonzero counts of f's input and output ports.
func Sizes(f Function) (in, out []int) {
	in = make([]int, f.NIn())
	for j := range in {
		in[j] = f.NnzIn(j)
	}
	out = make([]int, f.NOut())
	for k := range out {
		out[k] = f.NnzOut(k)
	}
	return in, out
}

// NewBuffers commits work buffers sized for one evaluation of f.
func NewBuffers[T any](f Function) *workspace.Buffers[T] {
	return workspace.New[T](f.WorkSize())
}
