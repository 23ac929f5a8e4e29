// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr builds the expressions that aml compiles into tapes.
//
// Expressions are flat: every builder copies its operands into one array of
// operations, so an expression never points at another expression.
//
// Example:
//
//	x := expr.NewVariable("x", 3, 0, 10)
//	y := expr.NewVariable("y", 4, 0, 10)
//	two := expr.Float(2)
//	circle := expr.Add(expr.Pow(x, two), expr.Pow(y, two))
//	fmt.Println(circle) // ((x ** 2) + (y ** 2))
package expr

import "github.com/born-ml/aml/internal/expr"

// Node is a leaf or an expression.
type Node = expr.Node

// Leaf is a Variable or a Constant.
type Leaf = expr.Leaf

// Variable is a decision variable with bounds and bound duals.
type Variable = expr.Variable

// Constant is an immutable, reference-counted value.
type Constant = expr.Constant

// Expression is a flattened operation array over a set of leaves.
type Expression = expr.Expression

// Op is an operation code.
type Op = expr.Op

// Operation codes.
const (
	OpValue    = expr.OpValue
	OpAdd      = expr.OpAdd
	OpSubtract = expr.OpSubtract
	OpMultiply = expr.OpMultiply
	OpDivide   = expr.OpDivide
	OpPower    = expr.OpPower
)

// NewVariable creates a variable with value and bounds [lb, ub].
func NewVariable(name string, value, lb, ub float64) *Variable {
	return expr.NewVariable(name, value, lb, ub)
}

// NewFreeVariable creates an unbounded variable.
func NewFreeVariable(name string, value float64) *Variable {
	return expr.NewFreeVariable(name, value)
}

// Float creates a constant.
func Float(v float64) *Constant { return expr.Float(v) }

// Add returns a + b.
func Add(a, b Node) *Expression { return expr.Add(a, b) }

// Sub returns a - b.
func Sub(a, b Node) *Expression { return expr.Sub(a, b) }

// Mul returns a * b.
func Mul(a, b Node) *Expression { return expr.Mul(a, b) }

// Div returns a / b.
func Div(a, b Node) *Expression { return expr.Div(a, b) }

// Pow returns a ** b.
func Pow(a, b Node) *Expression { return expr.Pow(a, b) }

// Neg returns -a.
func Neg(a Node) *Expression { return expr.Neg(a) }

// Sum adds every node; it returns Float(0) for no nodes.
func Sum(nodes ...Node) Node { return expr.Sum(nodes...) }

// FromSigned builds an expression from signed argument references, where
// r >= 0 names leaf r and r < 0 names operation -r-1.
func FromSigned(ops []Op, args1, args2 []int, leaves []Leaf) *Expression {
	return expr.FromSigned(ops, args1, args2, leaves)
}
