// Package workspace sizes and commits the scratch memory functions need
// during evaluation.
//
// A function declares its requirements as Sizes once, at configuration time.
// The caller commits Buffers for those sizes and hands them to every
// evaluation; nothing is allocated while evaluating.
package workspace

import "fmt"

// Sizes holds the work requirements of one evaluation.
type Sizes struct {
	Arg int // Length of the argument array, including the function's inputs.
	Res int // Length of the result array, including the function's outputs.
	IW  int // Integer scratch.
	W   int // Element scratch.
}

// Max returns the element-wise maximum of s and o.
func (s Sizes) Max(o Sizes) Sizes {
	return Sizes{
		Arg: max(s.Arg, o.Arg),
		Res: max(s.Res, o.Res),
		IW:  max(s.IW, o.IW),
		W:   max(s.W, o.W),
	}
}

// Scale returns s with every size multiplied by n.
func (s Sizes) Scale(n int) Sizes {
	return Sizes{Arg: s.Arg * n, Res: s.Res * n, IW: s.IW * n, W: s.W * n}
}

// Offset returns s with nIn argument and nOut result slots added in front.
func (s Sizes) Offset(nIn, nOut int) Sizes {
	return Sizes{Arg: s.Arg + nIn, Res: s.Res + nOut, IW: s.IW, W: s.W}
}

// String implements fmt.Stringer.
func (s Sizes) String() string {
	return fmt.Sprintf("arg=%d res=%d iw=%d w=%d", s.Arg, s.Res, s.IW, s.W)
}

// Request accumulates work requirements. Each call raises the recorded sizes
// to at least the requested ones, so a requirement can be built up from
// several independent requests.
type Request struct {
	sizes Sizes
}

// NewRequest creates a request with a minimum argument and result array
// length, typically the function's own arity.
func NewRequest(nIn, nOut int) *Request {
	return &Request{sizes: Sizes{Arg: nIn, Res: nOut}}
}

// Arg requests an argument array with sz scratch slots after the nIn inputs.
func (r *Request) Arg(nIn, sz int) { r.sizes.Arg = max(r.sizes.Arg, nIn+sz) }

// Res requests a result array with sz scratch slots after the nOut outputs.
func (r *Request) Res(nOut, sz int) { r.sizes.Res = max(r.sizes.Res, nOut+sz) }

// IW requests sz integer scratch.
func (r *Request) IW(sz int) { r.sizes.IW = max(r.sizes.IW, sz) }

// W requests sz element scratch.
func (r *Request) W(sz int) { r.sizes.W = max(r.sizes.W, sz) }

// Sizes returns the accumulated requirement.
func (r *Request) Sizes() Sizes { return r.sizes }
