package dist

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// DefaultEps is the default clamp applied to Bernoulli probabilities before
// taking logarithms, so that log(p) and log(1-p) stay finite.
const DefaultEps = 1e-10

// Bernoulli is an element-wise Bernoulli distribution parametrized by a
// tensor of logits (default) or probabilities.
//
// With logit parametrization each parameter z maps to a success probability
// p = 1/(1+exp(-z)). With direct parametrization the parameters are the
// probabilities themselves and must lie in [0, 1].
//
// Targets are expected to hold values in [0, 1]; the usual case is binary
// observations, e.g. binarized image pixels in a variational autoencoder.
type Bernoulli struct {
	logits bool
	eps    float64

	shape  tensor.Shape
	dtype  tensor.Dtype
	prob32 []float32
	prob64 []float64
	ll64   []float64 // scratch for per-element log-likelihood terms
}

// NewBernoulli creates a Bernoulli distribution over logit parameters.
// Pass eps <= 0 to use DefaultEps.
func NewBernoulli(eps float64) *Bernoulli {
	if eps <= 0 {
		eps = DefaultEps
	}
	return &Bernoulli{logits: true, eps: eps}
}

// NewBernoulliProbs creates a Bernoulli distribution whose parameters are
// probabilities in [0, 1] rather than logits. Pass eps <= 0 to use DefaultEps.
func NewBernoulliProbs(eps float64) *Bernoulli {
	if eps <= 0 {
		eps = DefaultEps
	}
	return &Bernoulli{eps: eps}
}

// Refit re-parametrizes the distribution from params. Probabilities are
// computed (logit mode) or validated (probability mode) and clamped to
// [eps, 1-eps] so later log-probability queries stay finite.
func (b *Bernoulli) Refit(params tensor.Tensor) error {
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
		if err := b.refitFloat32(data); err != nil {
			return err
		}
	case tensor.Float64:
		data, err := float64sOf(d)
		if err != nil {
			return err
		}
		if err := b.refitFloat64(data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, d.Dtype())
	}

	b.shape = d.Shape().Clone()
	b.dtype = d.Dtype()
	return nil
}

func (b *Bernoulli) refitFloat32(params []float32) error {
	eps := float32(b.eps)
	// float32 cannot represent 1-eps for very small eps; fall back to the
	// smallest clamp that is still distinct from 1.
	if 1-eps == 1 {
		eps = 1e-7
	}

	if !b.logits {
		for i, v := range params {
			if !(v >= 0 && v <= 1) {
				return fmt.Errorf("%w: probability %v at element %d", ErrInvalidParameters, v, i)
			}
		}
	}

	if cap(b.prob32) < len(params) {
		b.prob32 = make([]float32, len(params))
	}
	b.prob32 = b.prob32[:len(params)]
	b.prob64 = nil

	for i, v := range params {
		p := v
		if b.logits {
			p = 1 / (1 + math32.Exp(-v))
		}
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}
		b.prob32[i] = p
	}
	return nil
}

func (b *Bernoulli) refitFloat64(params []float64) error {
	if !b.logits {
		for i, v := range params {
			if !(v >= 0 && v <= 1) {
				return fmt.Errorf("%w: probability %v at element %d", ErrInvalidParameters, v, i)
			}
		}
	}

	if cap(b.prob64) < len(params) {
		b.prob64 = make([]float64, len(params))
	}
	b.prob64 = b.prob64[:len(params)]
	b.prob32 = nil

	for i, v := range params {
		p := v
		if b.logits {
			p = 1 / (1 + math.Exp(-v))
		}
		if p < b.eps {
			p = b.eps
		} else if p > 1-b.eps {
			p = 1 - b.eps
		}
		b.prob64[i] = p
	}
	return nil
}

// LogProb returns Σ t·log(p) + (1-t)·log(1-p) over all elements.
// The sum is accumulated in float64 for both data types.
func (b *Bernoulli) LogProb(target tensor.Tensor) (float64, error) {
	if b.shape == nil {
		return 0, ErrNotParametrized
	}
	td, err := asDense(target)
	if err != nil {
		return 0, err
	}
	if err := checkObservation(td, b.dtype, b.shape.TotalSize()); err != nil {
		return 0, err
	}

	switch b.dtype {
	case tensor.Float32:
		tgt, err := float32sOf(td)
		if err != nil {
			return 0, err
		}
		total := 0.0
		for i, p := range b.prob32 {
			t := tgt[i]
			total += float64(t*math32.Log(p) + (1-t)*math32.Log(1-p))
		}
		return total, nil
	default:
		tgt, err := float64sOf(td)
		if err != nil {
			return 0, err
		}
		if cap(b.ll64) < len(tgt) {
			b.ll64 = make([]float64, len(tgt))
		}
		ll := b.ll64[:len(tgt)]
		for i, p := range b.prob64 {
			t := tgt[i]
			ll[i] = t*math.Log(p) + (1-t)*math.Log(1-p)
		}
		return floats.Sum(ll), nil
	}
}

// LogProbGrad writes the per-element gradient of LogProb with respect to the
// parameters into out.
//
// Logit parametrization:        ∂ log P / ∂z = t - p
// Probability parametrization:  ∂ log P / ∂p = t/p - (1-t)/(1-p)
func (b *Bernoulli) LogProbGrad(target tensor.Tensor, out *tensor.Dense) error {
	if b.shape == nil {
		return ErrNotParametrized
	}
	td, err := asDense(target)
	if err != nil {
		return err
	}
	n := b.shape.TotalSize()
	if err := checkObservation(td, b.dtype, n); err != nil {
		return err
	}
	if err := checkObservation(out, b.dtype, n); err != nil {
		return err
	}

	switch b.dtype {
	case tensor.Float32:
		tgt, err := float32sOf(td)
		if err != nil {
			return err
		}
		dst, err := writableFloat32s(out)
		if err != nil {
			return err
		}
		for i, p := range b.prob32 {
			t := tgt[i]
			if b.logits {
				dst[i] = t - p
			} else {
				dst[i] = t/p - (1-t)/(1-p)
			}
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
		for i, p := range b.prob64 {
			t := tgt[i]
			if b.logits {
				dst[i] = t - p
			} else {
				dst[i] = t/p - (1-t)/(1-p)
			}
		}
	}
	return nil
}
