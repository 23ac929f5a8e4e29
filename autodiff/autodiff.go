// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation of
// scalar expressions.
//
// Compile copies an expression into a tape that owns its operation arrays
// and holds a reference on every constant it reads. The tape evaluates in a
// single forward pass and differentiates in a single reverse pass.
//
// Example:
//
//	import (
//	    "github.com/born-ml/aml/autodiff"
//	    "github.com/born-ml/aml/expr"
//	)
//
//	func main() {
//	    x := expr.NewFreeVariable("x", 3)
//	    y := expr.NewFreeVariable("y", 4)
//	    ev, err := autodiff.Compile(expr.Mul(x, y))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer ev.Release()
//
//	    f := ev.Evaluate()        // 12
//	    grad := ev.Differentiate() // grad[x] == 4, grad[y] == 3
//	    hxy := ev.SecondDerivative(x, y) // 1
//	}
package autodiff

import (
	"github.com/born-ml/aml/expr"
	"github.com/born-ml/aml/internal/autodiff"
)

// Evaluator is a compiled tape.
type Evaluator = autodiff.Evaluator

// Gradient maps each leaf read by a tape to its derivative.
type Gradient = autodiff.Gradient

// VarPair is an unordered pair of variables.
type VarPair = autodiff.VarPair

// Errors returned or raised by tapes.
var (
	ErrStructure = autodiff.ErrStructure
	ErrReleased  = autodiff.ErrReleased
)

// Compile builds a tape for n.
//
// Example:
//
//	ev, err := autodiff.Compile(expr.Add(x, expr.Float(1)))
func Compile(n expr.Node) (*Evaluator, error) {
	return autodiff.Compile(n)
}
