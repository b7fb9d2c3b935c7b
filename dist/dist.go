// Copyright 2025 Recon ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist exposes the parametrized probability distributions that
// reconstruction losses evaluate targets under.
package dist

import (
	"github.com/recon-ml/recon/internal/dist"
)

// Distribution is the capability a reconstruction loss needs from a
// parametrized distribution: re-fit from prediction parameters,
// log-probability of an observed target, and its gradient.
type Distribution = dist.Distribution

// DefaultEps is the default probability clamp used by Bernoulli.
const DefaultEps = dist.DefaultEps

// Bernoulli is an element-wise Bernoulli distribution over logits or
// probabilities.
type Bernoulli = dist.Bernoulli

// NewBernoulli creates a Bernoulli distribution over logit parameters.
// Pass eps <= 0 to use DefaultEps.
//
// Example:
//
//	b := dist.NewBernoulli(0)
//	criterion := loss.NewReconstructionLoss(b, true)
func NewBernoulli(eps float64) *Bernoulli {
	return dist.NewBernoulli(eps)
}

// NewBernoulliProbs creates a Bernoulli distribution whose parameters are
// probabilities in [0, 1]. Pass eps <= 0 to use DefaultEps.
func NewBernoulliProbs(eps float64) *Bernoulli {
	return dist.NewBernoulliProbs(eps)
}

// Normal is an element-wise Gaussian distribution with prediction-parametrized
// mean and fixed standard deviation.
type Normal = dist.Normal

// NewNormal creates a Normal distribution with the given standard deviation.
//
// Example:
//
//	n, err := dist.NewNormal(1.0)
func NewNormal(sigma float64) (*Normal, error) {
	return dist.NewNormal(sigma)
}

// Errors surfaced by distributions.
var (
	ErrDimensionMismatch = dist.ErrDimensionMismatch
	ErrDTypeMismatch     = dist.ErrDTypeMismatch
	ErrInvalidParameters = dist.ErrInvalidParameters
	ErrNotParametrized   = dist.ErrNotParametrized
	ErrUnsupportedType   = dist.ErrUnsupportedType
)
