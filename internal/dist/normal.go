package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

const logTwoPi = 1.8378770664093453 // log(2π)

// Normal is an element-wise Gaussian distribution whose mean is parametrized
// by the prediction tensor. The standard deviation is fixed at construction
// and shared by all elements, the common choice for real-valued
// reconstruction targets.
type Normal struct {
	sigma float64

	shape  tensor.Shape
	dtype  tensor.Dtype
	mean32 []float32
	mean64 []float64
	ll64   []float64 // scratch for per-element log-density terms
}

// NewNormal creates a Normal distribution with the given standard deviation.
// Pass sigma = 1 for a unit-variance Gaussian.
func NewNormal(sigma float64) (*Normal, error) {
	if !(sigma > 0) {
		return nil, fmt.Errorf("%w: sigma %v must be > 0", ErrInvalidParameters, sigma)
	}
	return &Normal{sigma: sigma}, nil
}

// Sigma returns the fixed standard deviation.
func (n *Normal) Sigma() float64 { return n.sigma }

// Refit re-parametrizes the distribution: params become the per-element means.
func (n *Normal) Refit(params tensor.Tensor) error {
	d, err := asDense(params)
	if err != nil {
		return err
	}

	switch d.Dtype() {
	case tensor.Float32:
		data, err := float32sOf(d)
		if err != nil {
			return err
		}
		if cap(n.mean32) < len(data) {
			n.mean32 = make([]float32, len(data))
		}
		n.mean32 = n.mean32[:len(data)]
		n.mean64 = nil
		copy(n.mean32, data)
	case tensor.Float64:
		data, err := float64sOf(d)
		if err != nil {
			return err
		}
		if cap(n.mean64) < len(data) {
			n.mean64 = make([]float64, len(data))
		}
		n.mean64 = n.mean64[:len(data)]
		n.mean32 = nil
		copy(n.mean64, data)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, d.Dtype())
	}

	n.shape = d.Shape().Clone()
	n.dtype = d.Dtype()
	return nil
}

// LogProb returns Σ -((x-μ)/σ)²/2 - log(σ) - log(2π)/2 over all elements.
// The sum is accumulated in float64 for both data types.
func (n *Normal) LogProb(target tensor.Tensor) (float64, error) {
	if n.shape == nil {
		return 0, ErrNotParametrized
	}
	td, err := asDense(target)
	if err != nil {
		return 0, err
	}
	if err := checkObservation(td, n.dtype, n.shape.TotalSize()); err != nil {
		return 0, err
	}

	norm := -math.Log(n.sigma) - 0.5*logTwoPi
	switch n.dtype {
	case tensor.Float32:
		tgt, err := float32sOf(td)
		if err != nil {
			return 0, err
		}
		sigma := float32(n.sigma)
		total := 0.0
		for i, mu := range n.mean32 {
			z := (tgt[i] - mu) / sigma
			total += float64(-0.5*z*z) + norm
		}
		return total, nil
	default:
		tgt, err := float64sOf(td)
		if err != nil {
			return 0, err
		}
		if cap(n.ll64) < len(tgt) {
			n.ll64 = make([]float64, len(tgt))
		}
		ll := n.ll64[:len(tgt)]
		for i, mu := range n.mean64 {
			z := (tgt[i] - mu) / n.sigma
			ll[i] = -0.5*z*z + norm
		}
		return floats.Sum(ll), nil
	}
}

// LogProbGrad writes ∂ log P / ∂μ = (x-μ)/σ² per element into out.
func (n *Normal) LogProbGrad(target tensor.Tensor, out *tensor.Dense) error {
	if n.shape == nil {
		return ErrNotParametrized
	}
	td, err := asDense(target)
	if err != nil {
		return err
	}
	total := n.shape.TotalSize()
	if err := checkObservation(td, n.dtype, total); err != nil {
		return err
	}
	if err := checkObservation(out, n.dtype, total); err != nil {
		return err
	}

	switch n.dtype {
	case tensor.Float32:
		tgt, err := float32sOf(td)
		if err != nil {
			return err
		}
		dst, err := writableFloat32s(out)
		if err != nil {
			return err
		}
		sigma := float32(n.sigma)
		invVar := 1 / (sigma * sigma)
		for i, mu := range n.mean32 {
			dst[i] = (tgt[i] - mu) * invVar
		}
	default:
		tgt, err := float64sOf(td)
		if err != nil {
			return err
		}
		dst, err := writableFloat64s(out)
		if err != nil {
			return err
		}
		invVar := 1 / (n.sigma * n.sigma)
		for i, mu := range n.mean64 {
			dst[i] = (tgt[i] - mu) * invVar
		}
	}
	return nil
}
