package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	cfg, err := Options(nil).Decode()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.Verbose)
}

func TestDecode(t *testing.T) {
	cfg, err := Options{"verbose": true, "parallel": false, "num_threads": 3}.Decode()
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.Parallel.Enabled)
	assert.Equal(t, 3, cfg.Parallel.NumWorkers)
}

func TestDecodeReportsFirstSortedKey(t *testing.T) {
	_, err := Options{"zeta": 1, "alpha": 2}.Decode()
	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.ErrorContains(t, err, `"alpha"`)
}

func TestDecodeWrongType(t *testing.T) {
	_, err := Options{"num_threads": 2.5}.Decode()
	assert.ErrorIs(t, err, ErrOptionType)
	assert.EqualError(t, err, `wrong option type: option "num_threads" wants positive int, got float64(2.5)`)
}
