package function

import (
	"fmt"
	"strings"

	"github.com/born-ml/batchfn/internal/sx"
)

// Call evaluates f numerically on the given inputs, one slice per input port.
// A nil input is treated as absent (all zeros). Work memory is committed for
// this call only.
func Call(f Function, inputs ...[]float64) ([][]float64, error) {
	if len(inputs) != f.NIn() {
		return nil, &ArgError{Function: f.Name(), Kind: "inputs", Index: -1, Got: len(inputs), Want: f.NIn(), Err: ErrArity}
	}
	buf := NewBuffers[float64](f)
	copy(buf.Arg, inputs)

	out := make([][]float64, f.NOut())
	for k := range out {
		out[k] = make([]float64, f.NnzOut(k))
		buf.Res[k] = out[k]
	}
	if err := CheckArgs(f, buf.Arg, buf.Res, buf.IW, buf.W); err != nil {
		return nil, err
	}
	if err := f.Eval(buf.Arg, buf.Res, buf.IW, buf.W, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// CallSX evaluates f symbolically on the given input expressions.
func CallSX(f Function, inputs ...[]*sx.Node) ([][]*sx.Node, error) {
	if len(inputs) != f.NIn() {
		return nil, &ArgError{Function: f.Name(), Kind: "inputs", Index: -1, Got: len(inputs), Want: f.NIn(), Err: ErrArity}
	}
	buf := NewBuffers[*sx.Node](f)
	copy(buf.Arg, inputs)

	out := make([][]*sx.Node, f.NOut())
	for k := range out {
		out[k] = make([]*sx.Node, f.NnzOut(k))
		buf.Res[k] = out[k]
	}
	if err := CheckArgs(f, buf.Arg, buf.Res, buf.IW, buf.W); err != nil {
		return nil, err
	}
	if err := f.EvalSX(buf.Arg, buf.Res, buf.IW, buf.W, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Pattern is a Jacobian sparsity pattern. Rows are output nonzeros and
// columns input nonzeros, each numbered consecutively across ports.
type Pattern struct {
	Rows, Cols int
	dep        []bool
}

// NewPattern returns an empty rows-by-cols pattern.
func NewPattern(rows, cols int) *Pattern {
	return &Pattern{Rows: rows, Cols: cols, dep: make([]bool, rows*cols)}
}

// Has reports whether output nonzero r depends on input nonzero c.
func (p *Pattern) Has(r, c int) bool { return p.dep[r*p.Cols+c] }

// Set marks output nonzero r as depending on input nonzero c.
func (p *Pattern) Set(r, c int) { p.dep[r*p.Cols+c] = true }

// Nnz returns the number of structural nonzeros.
func (p *Pattern) Nnz() int {
	n := 0
	for _, d := range p.dep {
		if d {
			n++
		}
	}
	return n
}

// String renders the pattern one row per line, '*' for a dependency.
func (p *Pattern) String() string {
	var b strings.Builder
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			if p.Has(r, c) {
				b.WriteByte('*')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func total(sizes []int) int {
	n := 0
	for _, s := range sizes {
		n += s
	}
	return n
}

// portBuffers allocates one zeroed buffer per port, returned both per port
// and as a flat view in port order.
func portBuffers(sizes []int) ([][]Bvec, []Bvec) {
	flat := make([]Bvec, total(sizes))
	ports := make([][]Bvec, len(sizes))
	off := 0
	for j, s := range sizes {
		ports[j] = flat[off : off+s : off+s]
		off += s
	}
	return ports, flat
}

// JacobianSparsity computes the Jacobian pattern of f by forward propagation,
// seeding up to BvecSize input nonzeros per sweep.
func JacobianSparsity(f Function) (*Pattern, error) {
	inSizes, outSizes := Sizes(f)
	rows, cols := total(outSizes), total(inSizes)
	p := NewPattern(rows, cols)

	buf := NewBuffers[Bvec](f)
	for start := 0; start < cols; start += BvecSize {
		in, inFlat := portBuffers(inSizes)
		out, outFlat := portBuffers(outSizes)
		for c := start; c < min(start+BvecSize, cols); c++ {
			inFlat[c] = 1 << (c - start)
		}

		buf.Reset()
		copy(buf.Arg, in)
		copy(buf.Res, out)
		if err := f.SpFwd(buf.Arg, buf.Res, buf.IW, buf.W, 0); err != nil {
			return nil, fmt.Errorf("forward sparsity sweep at column %d: %w", start, err)
		}
		for r, bits := range outFlat {
			for c := start; c < min(start+BvecSize, cols); c++ {
				if bits&(1<<(c-start)) != 0 {
					p.Set(r, c)
				}
			}
		}
	}
	return p, nil
}

// ReverseSparsity computes the Jacobian pattern of f by reverse propagation,
// seeding up to BvecSize output nonzeros per sweep.
func ReverseSparsity(f Function) (*Pattern, error) {
	inSizes, outSizes := Sizes(f)
	rows, cols := total(outSizes), total(inSizes)
	p := NewPattern(rows, cols)

	buf := NewBuffers[Bvec](f)
	for start := 0; start < rows; start += BvecSize {
		in, inFlat := portBuffers(inSizes)
		out, outFlat := portBuffers(outSizes)
		for r := start; r < min(start+BvecSize, rows); r++ {
			outFlat[r] = 1 << (r - start)
		}

		buf.Reset()
		copy(buf.Arg, in)
		copy(buf.Res, out)
		if err := f.SpRev(buf.Arg, buf.Res, buf.IW, buf.W, 0); err != nil {
			return nil, fmt.Errorf("reverse sparsity sweep at row %d: %w", start, err)
		}
		for c, bits := range inFlat {
			for r := start; r < min(start+BvecSize, rows); r++ {
				if bits&(1<<(r-start)) != 0 {
					p.Set(r, c)
				}
			}
		}
	}
	return p, nil
}
