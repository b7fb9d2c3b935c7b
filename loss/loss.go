// Copyright 2025 Recon ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loss exposes reconstruction-loss evaluators for training
// probabilistic generative models such as variational autoencoders.
package loss

import (
	"os"

	"github.com/recon-ml/recon/dist"
	"github.com/recon-ml/recon/internal/loss"
)

// ReconstructionLoss measures performance as the negative log-probability of
// the target under a distribution parametrized by the prediction.
type ReconstructionLoss[D dist.Distribution] = loss.ReconstructionLoss[D]

// NewReconstructionLoss creates an evaluator over the given distribution.
// reduction chooses sum reduction when true and mean reduction when false.
//
// Example:
//
//	criterion := loss.NewReconstructionLoss(dist.NewBernoulli(0), true)
//	value, err := criterion.Forward(logits, targets)
//	grad, err := criterion.Backward(logits, targets)
func NewReconstructionLoss[D dist.Distribution](d D, reduction bool) *ReconstructionLoss[D] {
	return loss.NewReconstructionLoss(d, reduction)
}

// ErrDimensionMismatch is returned when prediction and target element counts
// differ.
var ErrDimensionMismatch = loss.ErrDimensionMismatch

// Save writes the evaluator's persistent state to a file.
//
// Only configuration is saved: the distribution parametrization and the
// gradient buffer are derived from the tensors of the next call.
//
// Example:
//
//	criterion := loss.NewReconstructionLoss(dist.NewBernoulli(0), true)
//	err := loss.Save(criterion, "criterion.rcon")
func Save[D dist.Distribution](l *ReconstructionLoss[D], path string) error {
	data, err := l.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load restores an evaluator's persistent state from a file.
//
// Example:
//
//	criterion := loss.NewReconstructionLoss(dist.NewBernoulli(0), true)
//	err := loss.Load("criterion.rcon", criterion)
func Load[D dist.Distribution](path string, l *ReconstructionLoss[D]) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return l.UnmarshalBinary(data)
}
