package function

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrArity          = errors.New("wrong number of ports")
	ErrShortWorkspace = errors.New("workspace smaller than required")
	ErrNonzeros       = errors.New("buffer shorter than port nonzeros")
	ErrDirections     = errors.New("number of directions must be positive")
)

// ArgError describes a buffer that does not fit a function's contract.
type ArgError struct {
	Function string // Function name
	Kind     string // "input", "output", "arg", "res", "iw" or "w"
	Index    int    // Port index, -1 for whole arrays
	Got      int
	Want     int
	Err      error
}

// Error implements the error interface.
func (e *ArgError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s %d: got %d, want %d: %v", e.Function, e.Kind, e.Index, e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("%s: %s: got %d, want %d: %v", e.Function, e.Kind, e.Got, e.Want, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ArgError) Unwrap() error { return e.Err }

// CheckArgs verifies that the buffers passed to f satisfy its work sizes and
// that every present input and output slot holds at least the port's
// nonzeros.
func CheckArgs[T any](f Function, arg, res [][]T, iw []int, w []T) error {
	sz := f.WorkSize()
	name := f.Name()
	switch {
	case len(arg) < sz.Arg:
		return &ArgError{Function: name, Kind: "arg", Index: -1, Got: len(arg), Want: sz.Arg, Err: ErrShortWorkspace}
	case len(res) < sz.Res:
		return &ArgError{Function: name, Kind: "res", Index: -1, Got: len(res), Want: sz.Res, Err: ErrShortWorkspace}
	case len(iw) < sz.IW:
		return &ArgError{Function: name, Kind: "iw", Index: -1, Got: len(iw), Want: sz.IW, Err: ErrShortWorkspace}
	case len(w) < sz.W:
		return &ArgError{Function: name, Kind: "w", Index: -1, Got: len(w), Want: sz.W, Err: ErrShortWorkspace}
	}
	for j := 0; j < f.NIn(); j++ {
		if arg[j] != nil && len(arg[j]) < f.NnzIn(j) {
			return &ArgError{Function: name, Kind: "input", Index: j, Got: len(arg[j]), Want: f.NnzIn(j), Err: ErrNonzeros}
		}
	}
	for k := 0; k < f.NOut(); k++ {
		if res[k] != nil && len(res[k]) < f.NnzOut(k) {
			return &ArgError{Function: name, Kind: "output", Index: k, Got: len(res[k]), Want: f.NnzOut(k), Err: ErrNonzeros}
		}
	}
	return nil
}
