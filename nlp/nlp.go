// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nlp serves the callbacks of an interior-point style solver for a
// model: dimensions, bounds, starting point, objective, gradient,
// constraints, sparse Jacobian and sparse lower-triangular Hessian of the
// Lagrangian, and the final write-back.
//
// Example:
//
//	a, err := nlp.New(m, nlp.WithIndexStyle(nlp.FortranStyle))
//	if err != nil {
//	    return err
//	}
//	dims := a.Dimensions()
//	rows := make([]int, dims.NNZJacobian)
//	cols := make([]int, dims.NNZJacobian)
//	if err := a.Jacobian(nil, false, rows, cols, nil); err != nil {
//	    return err
//	}
package nlp

import (
	"github.com/born-ml/aml/internal/nlp"
	"github.com/born-ml/aml/model"
)

// Adapter serves solver callbacks for one solve.
type Adapter = nlp.Adapter

// Dimensions describes the problem to the solver.
type Dimensions = nlp.Dimensions

// Option configures an Adapter.
type Option = nlp.Option

// IndexStyle selects 0- or 1-based sparse indices.
type IndexStyle = nlp.IndexStyle

// Index styles.
const (
	CStyle       = nlp.CStyle
	FortranStyle = nlp.FortranStyle
)

// OutcomeCode is the solver's native return code.
type OutcomeCode = nlp.OutcomeCode

// Status is the outcome recorded on the model.
type Status = nlp.Status

// Mismatch is a derivative that failed the finite-difference check.
type Mismatch = nlp.Mismatch

// Adapter errors.
var (
	ErrNoObjective = nlp.ErrNoObjective
	ErrDimension   = nlp.ErrDimension
	ErrFinalized   = nlp.ErrFinalized
)

// Options.
var (
	WithLogger     = nlp.WithLogger
	WithWorkers    = nlp.WithWorkers
	WithIndexStyle = nlp.WithIndexStyle
	WithRegisterer = nlp.WithRegisterer
	WithNamespace  = nlp.WithNamespace
)

// New prepares m for a solve.
func New(m *model.Model, opts ...Option) (*Adapter, error) {
	return nlp.New(m, opts...)
}

// StatusOf maps a native outcome code to its status.
func StatusOf(code OutcomeCode) Status {
	return nlp.StatusOf(code)
}
