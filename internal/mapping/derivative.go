package mapping

import (
	"fmt"

	"github.com/born-ml/batchfn/internal/function"
)

// Forward returns the map, over the same n instances and with the same
// strategy and options, of f's nfwd-directional forward derivative.
// Instances share no data, so the directional derivatives of the map are
// exactly those of each instance.
func (m *Map) Forward(nfwd int) (function.Function, error) {
	df, err := m.f.Forward(nfwd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	dm, err := New(fmt.Sprintf("fwd%d_%s", nfwd, m.name), m.strategy.kind(), df, m.n, m.opts)
	if err != nil {
		return nil, err
	}
	return dm, nil
}

// Reverse returns the map of f's nadj-directional reverse derivative.
func (m *Map) Reverse(nadj int) (function.Function, error) {
	df, err := m.f.Reverse(nadj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	dm, err := New(fmt.Sprintf("adj%d_%s", nadj, m.name), m.strategy.kind(), df, m.n, m.opts)
	if err != nil {
		return nil, err
	}
	return dm, nil
}
