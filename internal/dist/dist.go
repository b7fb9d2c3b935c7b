// Package dist provides parametrized probability distributions used by
// reconstruction losses: each distribution is re-fit from a prediction tensor
// and answers log-probability queries about an observed target, together with
// the gradient of that log-probability with respect to the parameters.
package dist

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Distribution is the narrow capability a reconstruction loss needs from a
// parametrized distribution.
//
// A Distribution holds whatever internal state it derives from the most
// recent Refit call; LogProb and LogProbGrad are answered against that state.
// Implementations must not write any output before all inputs have been
// validated, so a failed call leaves previously written buffers untouched.
type Distribution interface {
	// Refit re-parametrizes the distribution from a prediction tensor.
	// The tensor is read-only to the distribution; implementations copy
	// what they need and hold no reference to it after Refit returns.
	Refit(params tensor.Tensor) error

	// LogProb returns the sum over elements of log P(target | parameters).
	// The target must have the same element count and data type as the
	// parameters from the last Refit.
	LogProb(target tensor.Tensor) (float64, error)

	// LogProbGrad writes the per-element gradient ∂ log P / ∂ param into
	// out. The out tensor must match the parameter shape family: same
	// element count and data type.
	LogProbGrad(target tensor.Tensor, out *tensor.Dense) error
}

// asDense returns t as a dense tensor, converting sparse representations.
func asDense(t tensor.Tensor) (*tensor.Dense, error) {
	switch v := t.(type) {
	case *tensor.Dense:
		return v, nil
	case interface{ Dense() *tensor.Dense }:
		return v.Dense(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, t)
	}
}

// float32sOf returns the float32 backing of d.
func float32sOf(d *tensor.Dense) ([]float32, error) {
	switch data := d.Data().(type) {
	case []float32:
		return data, nil
	case float32:
		return []float32{data}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, d.Dtype())
	}
}

// float64sOf returns the float64 backing of d.
func float64sOf(d *tensor.Dense) ([]float64, error) {
	switch data := d.Data().(type) {
	case []float64:
		return data, nil
	case float64:
		return []float64{data}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, d.Dtype())
	}
}

// writableFloat32s returns the float32 backing of d for in-place writes.
// Unlike float32sOf it never copies, so scalar-shaped tensors are rejected.
func writableFloat32s(d *tensor.Dense) ([]float32, error) {
	data, ok := d.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: gradient output must be a non-scalar float32 tensor", ErrUnsupportedType)
	}
	return data, nil
}

// writableFloat64s returns the float64 backing of d for in-place writes.
func writableFloat64s(d *tensor.Dense) ([]float64, error) {
	data, ok := d.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("%w: gradient output must be a non-scalar float64 tensor", ErrUnsupportedType)
	}
	return data, nil
}

// checkObservation validates a target or gradient tensor against the fitted
// parameter dtype and element count.
func checkObservation(d *tensor.Dense, dt tensor.Dtype, n int) error {
	if d.Dtype() != dt {
		return fmt.Errorf("%w: parameters are %s, observation is %s", ErrDTypeMismatch, dt, d.Dtype())
	}
	if d.Shape().TotalSize() != n {
		return fmt.Errorf("%w: parameters have %d elements, observation has %d",
			ErrDimensionMismatch, n, d.Shape().TotalSize())
	}
	return nil
}
