package dist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// TestNewNormal_InvalidSigma checks domain validation of the standard
// deviation.
func TestNewNormal_InvalidSigma(t *testing.T) {
	for _, sigma := range []float64{0, -1} {
		_, err := NewNormal(sigma)
		assert.ErrorIs(t, err, ErrInvalidParameters, "sigma=%v", sigma)
	}
}

// TestNormal_LogProb_MatchesDistuv compares the summed log-density against
// gonum's reference implementation.
func TestNormal_LogProb_MatchesDistuv(t *testing.T) {
	means := []float64{0.5, -1, 2}
	target := []float64{1, 0, 2.5}
	sigma := 2.0

	n, err := NewNormal(sigma)
	require.NoError(t, err)
	require.NoError(t, n.Refit(tensor.New(tensor.WithShape(3), tensor.WithBacking(means))))

	ll, err := n.LogProb(tensor.New(tensor.WithShape(3), tensor.WithBacking(target)))
	require.NoError(t, err)

	expected := 0.0
	for i, mu := range means {
		expected += distuv.Normal{Mu: mu, Sigma: sigma}.LogProb(target[i])
	}
	assert.InDelta(t, expected, ll, 1e-12)
}

// TestNormal_LogProb_Float32 verifies float32/float64 kernel parity.
func TestNormal_LogProb_Float32(t *testing.T) {
	means32 := []float32{0.5, -1, 2, 0.25}
	target32 := []float32{1, 0, 2.5, 0}

	n, err := NewNormal(1.5)
	require.NoError(t, err)
	require.NoError(t, n.Refit(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(means32))))
	ll32, err := n.LogProb(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(target32)))
	require.NoError(t, err)

	means64 := make([]float64, len(means32))
	target64 := make([]float64, len(target32))
	for i := range means32 {
		means64[i] = float64(means32[i])
		target64[i] = float64(target32[i])
	}
	n64, err := NewNormal(1.5)
	require.NoError(t, err)
	require.NoError(t, n64.Refit(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(means64))))
	ll64, err := n64.LogProb(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(target64)))
	require.NoError(t, err)

	assert.InDelta(t, ll64, ll32, 1e-5)
}

// TestNormal_GradMatchesFiniteDifference validates ∂ log P / ∂μ = (x-μ)/σ²
// against central finite differences.
func TestNormal_GradMatchesFiniteDifference(t *testing.T) {
	means := []float64{0.5, -1, 2}
	target := []float64{1, 0, 2.5}
	targetT := tensor.New(tensor.WithShape(3), tensor.WithBacking(target))
	sigma := 0.7

	logProb := func(x []float64) float64 {
		n, err := NewNormal(sigma)
		if err != nil {
			t.Fatalf("NewNormal failed: %v", err)
		}
		params := tensor.New(tensor.WithShape(len(x)), tensor.WithBacking(append([]float64(nil), x...)))
		if err := n.Refit(params); err != nil {
			t.Fatalf("Refit failed: %v", err)
		}
		ll, err := n.LogProb(targetT)
		if err != nil {
			t.Fatalf("LogProb failed: %v", err)
		}
		return ll
	}

	numerical := fd.Gradient(nil, logProb, means, &fd.Settings{Formula: fd.Central})

	n, err := NewNormal(sigma)
	require.NoError(t, err)
	require.NoError(t, n.Refit(tensor.New(tensor.WithShape(3), tensor.WithBacking(means))))

	out := tensor.New(tensor.WithShape(3), tensor.WithBacking(make([]float64, 3)))
	require.NoError(t, n.LogProbGrad(targetT, out))

	analytic := out.Data().([]float64)
	for i := range analytic {
		assert.InDelta(t, numerical[i], analytic[i], 1e-6, "gradient mismatch at element %d", i)
	}
}

// TestNormal_NotParametrized ensures queries before Refit fail cleanly.
func TestNormal_NotParametrized(t *testing.T) {
	n, err := NewNormal(1)
	require.NoError(t, err)

	target := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float64{1, 0}))
	_, err = n.LogProb(target)
	assert.ErrorIs(t, err, ErrNotParametrized)

	out := tensor.New(tensor.WithShape(2), tensor.WithBacking(make([]float64, 2)))
	assert.ErrorIs(t, n.LogProbGrad(target, out), ErrNotParametrized)
}
