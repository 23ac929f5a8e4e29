// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model collects variables, constraints and an objective into a
// nonlinear program.
//
// Example:
//
//	m := model.New()
//	defer m.Close()
//	x := m.NewVariable("x", 3, 0, 10)
//	y := m.NewVariable("y", 4, 0, 10)
//	two := expr.Float(2)
//	if _, err := m.AddConstraint("circle", expr.Add(expr.Pow(x, two), expr.Pow(y, two)), 0, 25); err != nil {
//	    return err
//	}
//	if err := m.SetObjective(expr.Neg(x)); err != nil {
//	    return err
//	}
package model

import "github.com/born-ml/aml/internal/model"

// Model is a nonlinear program.
type Model = model.Model

// Constraint is lb <= body <= ub.
type Constraint = model.Constraint

// Objective is the function to minimize.
type Objective = model.Objective

// Model errors.
var (
	ErrUnknownVariable = model.ErrUnknownVariable
	ErrDuplicateName   = model.ErrDuplicateName
	ErrBounds          = model.ErrBounds
)

// New creates an empty model.
func New() *Model {
	return model.New()
}
