package workspace

// Buffers is the committed work memory for one evaluation of a function over
// elements of type T. The scratch arrays are single flat arenas; per-instance
// regions are addressed by index with Stride, never by allocating.
type Buffers[T any] struct {
	Arg [][]T
	Res [][]T
	IW  []int
	W   []T
}

// New commits buffers for the given sizes.
func New[T any](sz Sizes) *Buffers[T] {
	return &Buffers[T]{
		Arg: make([][]T, sz.Arg),
		Res: make([][]T, sz.Res),
		IW:  make([]int, sz.IW),
		W:   make([]T, sz.W),
	}
}

// Sizes returns the sizes the buffers were committed for.
func (b *Buffers[T]) Sizes() Sizes {
	return Sizes{Arg: len(b.Arg), Res: len(b.Res), IW: len(b.IW), W: len(b.W)}
}

// Reset zeroes the scratch and clears every argument and result slot.
func (b *Buffers[T]) Reset() {
	clear(b.Arg)
	clear(b.Res)
	clear(b.IW)
	clear(b.W)
}

// Stride returns the i-th of consecutive regions of length stride in base.
// The region's capacity ends at its length so appends cannot spill into the
// next region.
func Stride[T any](base []T, i, stride int) []T {
	return base[i*stride : (i+1)*stride : (i+1)*stride]
}
