// Package loss provides reconstruction-loss evaluators for training
// probabilistic generative models such as variational autoencoders.
package loss

import (
	"bytes"
	"fmt"

	"gorgonia.org/tensor"

	"github.com/recon-ml/recon/internal/dist"
	"github.com/recon-ml/recon/internal/serialization"
)

// ErrDimensionMismatch is returned when prediction and target element counts
// differ. It is detected before any computation is performed.
var ErrDimensionMismatch = dist.ErrDimensionMismatch

// ReconstructionLoss measures performance as the negative log-probability of
// the target under a distribution parametrized by the prediction.
//
// The distribution is re-fit from the prediction on every Forward and
// Backward call, so the prediction may hold raw parameters such as logits.
//
// With sum reduction (the default) the loss is -Σ log P(target|prediction);
// with mean reduction the sum is divided by the target element count. The
// reduction setting scales Forward and Backward identically, so a Forward
// call and its paired Backward call must run under the same setting; the
// evaluator does not synchronize them.
//
// An evaluator instance is not safe for concurrent use: Forward and Backward
// both mutate the held distribution, and Backward overwrites the shared
// gradient buffer. Independent instances may run in parallel freely.
type ReconstructionLoss[D dist.Distribution] struct {
	dist      D
	reduction bool

	output *tensor.Dense
	out32  []float32
	out64  []float64
}

// NewReconstructionLoss creates an evaluator over the given distribution.
// reduction chooses sum reduction when true and mean reduction when false.
func NewReconstructionLoss[D dist.Distribution](d D, reduction bool) *ReconstructionLoss[D] {
	return &ReconstructionLoss[D]{dist: d, reduction: reduction}
}

// Dist returns the held distribution.
func (l *ReconstructionLoss[D]) Dist() D { return l.dist }

// Reduction reports whether sum reduction is in effect.
func (l *ReconstructionLoss[D]) Reduction() bool { return l.reduction }

// SetReduction switches between sum (true) and mean (false) reduction.
func (l *ReconstructionLoss[D]) SetReduction(reduction bool) { l.reduction = reduction }

// OutputParameter returns the gradient buffer written by the last Backward
// call, or nil before the first one. The buffer is borrowed: it is valid
// until the next Backward call overwrites it.
func (l *ReconstructionLoss[D]) OutputParameter() *tensor.Dense { return l.output }

// Forward computes the reconstruction loss of target under the distribution
// parametrized by prediction.
//
// Distribution failures (invalid parameters, unsupported types) are
// propagated unchanged.
func (l *ReconstructionLoss[D]) Forward(prediction, target tensor.Tensor) (float64, error) {
	numElements, err := checkDims(prediction, target)
	if err != nil {
		return 0, err
	}
	if err := l.dist.Refit(prediction); err != nil {
		return 0, err
	}
	total, err := l.dist.LogProb(target)
	if err != nil {
		return 0, err
	}

	loss := -total
	if !l.reduction {
		loss /= float64(numElements)
	}
	return loss, nil
}

// Backward computes the gradient of the loss with respect to the prediction
// and writes it into the evaluator's gradient buffer, returning the buffer.
// The buffer matches prediction's shape and data type and stays valid until
// the next Backward call. On error the buffer keeps its previous contents.
func (l *ReconstructionLoss[D]) Backward(prediction, target tensor.Tensor) (*tensor.Dense, error) {
	numElements, err := checkDims(prediction, target)
	if err != nil {
		return nil, err
	}
	if err := l.dist.Refit(prediction); err != nil {
		return nil, err
	}

	out, out32, out64 := l.gradBuffer(prediction.Shape(), prediction.Dtype())
	if err := l.dist.LogProbGrad(target, out); err != nil {
		return nil, err
	}
	// Only touch the exposed buffer once the fill has succeeded; a reused
	// buffer may need reshaping to the new prediction's shape.
	if !out.Shape().Eq(prediction.Shape()) {
		if err := out.Reshape(prediction.Shape()...); err != nil {
			return nil, err
		}
	}
	l.output, l.out32, l.out64 = out, out32, out64

	// Loss is the negated log-probability, so the gradient flips sign too.
	scale := 1.0
	if !l.reduction {
		scale = 1 / float64(numElements)
	}
	if out32 != nil {
		s := float32(scale)
		for i, g := range out32 {
			out32[i] = -g * s
		}
	} else {
		for i, g := range out64 {
			out64[i] = -g * scale
		}
	}
	return l.output, nil
}

// gradBuffer returns a gradient buffer for the given shape and dtype, reusing
// the existing one when element count and dtype already match. The buffer is
// neither installed nor reshaped here: the caller does both only after the
// fill has succeeded, so a failed Backward leaves the previous output intact.
func (l *ReconstructionLoss[D]) gradBuffer(shape tensor.Shape, dt tensor.Dtype) (*tensor.Dense, []float32, []float64) {
	n := shape.TotalSize()
	if l.output != nil && l.output.Dtype() == dt && l.output.Shape().TotalSize() == n {
		return l.output, l.out32, l.out64
	}

	switch dt {
	case tensor.Float32:
		backing := make([]float32, n)
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), backing, nil
	default:
		backing := make([]float64, n)
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil, backing
	}
}

// MarshalBinary encodes the evaluator's persistent state: the reduction flag.
// The distribution parametrization and the gradient buffer are derived state
// and are rebuilt on the next call.
func (l *ReconstructionLoss[D]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := serialization.Write(&buf, serialization.State{Reduction: l.reduction}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores the reduction flag and drops derived state.
func (l *ReconstructionLoss[D]) UnmarshalBinary(data []byte) error {
	state, err := serialization.Read(bytes.NewReader(data))
	if err != nil {
		return err
	}
	l.reduction = state.Reduction
	l.output, l.out32, l.out64 = nil, nil, nil
	return nil
}

// checkDims validates that prediction and target correspond element-wise and
// returns the element count.
func checkDims(prediction, target tensor.Tensor) (int, error) {
	p := prediction.Shape().TotalSize()
	t := target.Shape().TotalSize()
	if p != t {
		return 0, fmt.Errorf("%w: prediction has %d elements, target has %d", ErrDimensionMismatch, p, t)
	}
	if t == 0 {
		return 0, fmt.Errorf("%w: empty tensors", ErrDimensionMismatch)
	}
	return t, nil
}
