// Package autodiff compiles flattened expressions into tapes and evaluates
// them, together with their first and second derivatives.
//
// Architecture:
//   - Compile: copies an expression's operator/argument arrays into an
//     Evaluator (the tape) and retains its shared constants
//   - Evaluate: one forward pass over a scratch slice, no recursion
//   - Differentiate: forward pass, then reverse-mode accumulation of adjoints
//   - Hessian: forward-over-reverse pass giving one column of second
//     derivatives per call
//   - HessianPattern: structural second-order sparsity of the tape
//
// Usage:
//
//	x := expr.NewVariable("x", 3, 0, 10)
//	ev, err := autodiff.Compile(expr.Mul(x, x))
//	if err != nil {
//	    return err
//	}
//	defer ev.Release()
//
//	ev.Evaluate()           // 9
//	ev.Differentiate()[x]   // 6
//	ev.SecondDerivative(x, x) // 2
//
// An Evaluator is not safe for concurrent use. Distinct evaluators may run
// in parallel as long as no goroutine writes variable values meanwhile.
package autodiff

import "errors"

var (
	// ErrStructure reports a malformed flattened expression.
	ErrStructure = errors.New("autodiff: malformed expression")

	// ErrReleased is the panic value when a released evaluator is used.
	ErrReleased = errors.New("autodiff: evaluator used after release")
)
