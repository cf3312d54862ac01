package mapping

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnknownParallelization = errors.New("unknown parallelization")
	ErrInvalidCount           = errors.New("replication count must be at least 1")
	ErrNilFunction            = errors.New("nil function")
	ErrUnknownOption          = errors.New("unknown option")
	ErrOptionType             = errors.New("wrong option type")
)

// InstanceError reports the failure of one of the n instances of a map.
// Outputs of instances that completed before the failure keep whatever the
// wrapped function wrote; nothing is rolled back.
type InstanceError struct {
	Map   string // Name of the failing map
	Index int    // Instance index in [0, n)
	Err   error  // Error returned by the wrapped function
}

// Error implements the error interface.
func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s: instance %d: %v", e.Map, e.Index, e.Err)
}

// Unwrap returns the wrapped function's error.
func (e *InstanceError) Unwrap() error { return e.Err }
