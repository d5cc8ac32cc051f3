package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dual "github.com/distmcts/core/dualnet"
)

func tinyConf() dual.Config {
	return dual.Config{
		K:           1,
		FC:          4,
		BatchSize:   2,
		Width:       2,
		Height:      2,
		Features:    2,
		ActionSpace: 4,
	}
}

// TestModelValueHeadBounded exercises the full forward pass and checks the
// value head's tanh output never leaves [-1,1], using l2 (backed by
// math32.Abs) as the bound check spec section 3's "evaluate() -> float
// (terminal outcome in [-1,1])" convention assumes an evaluator honors.
func TestModelValueHeadBounded(t *testing.T) {
	conf := tinyConf()
	require.True(t, conf.IsValid())

	m, err := New(conf, 7)
	require.NoError(t, err)
	defer m.Close()

	inDim := conf.Features * conf.Height * conf.Width
	features := make([]float32, conf.BatchSize*inDim)
	for i := range features {
		features[i] = float32(i%5) * 0.37
	}

	policy, value, err := m.forward(features, conf.BatchSize)
	require.NoError(t, err)
	require.Len(t, value, conf.BatchSize)
	require.Len(t, policy, conf.BatchSize*conf.ActionSpace)

	for _, v := range value {
		assert.LessOrEqual(t, l2(v), float32(1.0), "value head must stay within [-1,1]")
	}
}

func TestModelVersion(t *testing.T) {
	m, err := New(tinyConf(), 42)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, int64(42), m.Version())
}
