package mapping

import (
	"testing"

	"github.com/born-ml/batchfn/internal/function"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func ramp(n int, scale float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = scale * float64(i+1)
	}
	return out
}

func TestForwardIsMapOfForward(t *testing.T) {
	g := newTwoPort(t)
	const n = 4
	x, p := ramp(2*n, 0.1), ramp(n, -0.3)
	dx, dp := ramp(2*n, 0.05), ramp(n, 0.2)

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			m, err := Create("m", s.p, g, n, s.opts)
			require.NoError(t, err)

			dm, err := m.Forward(1)
			require.NoError(t, err)
			assert.Equal(t, "fwd1_m", dm.Name())
			mapped, ok := dm.(*Map)
			require.True(t, ok)
			assert.Equal(t, n, mapped.N())
			assert.Equal(t, m.Parallelization(), mapped.Parallelization())
			assert.Equal(t, "fwd1_g", mapped.Function().Name())

			got, err := function.Call(dm, x, p, dx, dp)
			require.NoError(t, err)

			// Each instance on its own through g's forward derivative.
			dg, err := g.Forward(1)
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				want, err := function.Call(dg, x[2*i:2*i+2], p[i:i+1], dx[2*i:2*i+2], dp[i:i+1])
				require.NoError(t, err)
				assert.Equal(t, want[0], got[0][2*i:2*i+2], "instance %d", i)
				assert.Equal(t, want[1], got[1][i:i+1], "instance %d", i)
			}
		})
	}
}

func TestReverseIsMapOfReverse(t *testing.T) {
	g := newTwoPort(t)
	const n = 3
	x, p := ramp(2*n, 0.1), ramp(n, -0.3)
	ay0, ay1 := ramp(2*n, 1), ramp(n, -1)

	m, err := Create("m", "openmp", g, n, Options{"parallel": true})
	require.NoError(t, err)
	am, err := m.Reverse(1)
	require.NoError(t, err)
	assert.Equal(t, "adj1_m", am.Name())
	require.Equal(t, 4, am.NIn())
	require.Equal(t, 2, am.NOut())

	got, err := function.Call(am, x, p, ay0, ay1)
	require.NoError(t, err)

	ag, err := g.Reverse(1)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		want, err := function.Call(ag, x[2*i:2*i+2], p[i:i+1], ay0[2*i:2*i+2], ay1[i:i+1])
		require.NoError(t, err)
		assert.Equal(t, want[0], got[0][2*i:2*i+2])
		assert.Equal(t, want[1], got[1][i:i+1])
	}
}

func TestForwardAdjointIdentity(t *testing.T) {
	g := newTwoPort(t)
	const n = 5
	x, p := ramp(2*n, 0.1), ramp(n, 0.4)
	v0, v1 := ramp(2*n, -0.2), ramp(n, 0.3)
	u0, u1 := ramp(2*n, 0.7), ramp(n, -0.5)

	m, err := Create("m", "serial", g, n, nil)
	require.NoError(t, err)

	dm, err := m.Forward(1)
	require.NoError(t, err)
	jv, err := function.Call(dm, x, p, v0, v1)
	require.NoError(t, err)

	am, err := m.Reverse(1)
	require.NoError(t, err)
	jtu, err := function.Call(am, x, p, u0, u1)
	require.NoError(t, err)

	lhs := floats.Dot(u0, jv[0]) + floats.Dot(u1, jv[1])
	rhs := floats.Dot(v0, jtu[0]) + floats.Dot(v1, jtu[1])
	assert.InDelta(t, lhs, rhs, 1e-10)
}

func TestDerivativeDirectionsValidated(t *testing.T) {
	m, err := Create("m", "serial", newBase(t), 2, nil)
	require.NoError(t, err)

	_, err = m.Forward(0)
	assert.ErrorIs(t, err, function.ErrDirections)
	_, err = m.Reverse(0)
	assert.ErrorIs(t, err, function.ErrDirections)
}

func TestSecondOrder(t *testing.T) {
	m, err := Create("m", "serial", newBase(t), 2, nil)
	require.NoError(t, err)

	dm, err := m.Forward(1)
	require.NoError(t, err)
	ddm, err := dm.Forward(1)
	require.NoError(t, err)
	assert.Equal(t, "fwd1_fwd1_m", ddm.Name())

	// f = (x0+x1, x0*x1, x0-x1); with both seeds on x0 the second derivative
	// of x0*x1 is zero, and seeding x0 then x1 gives 1.
	x := []float64{2, 3, 4, 5}
	e0 := []float64{1, 0, 1, 0}
	e1 := []float64{0, 1, 0, 1}
	zero := make([]float64, 4)
	out, err := function.Call(ddm, x, e0, e1, zero)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []float64{0, 1, 0, 0, 1, 0}, out[0])
}
