package autodiff

import (
	"math"

	"github.com/born-ml/aml/internal/expr"
)

// Gradient maps each leaf reached by a reverse pass to its accumulated
// derivative.
//
// A leaf is present iff some operation reads it as a live operand (VALUE's
// second argument is not live). Entries may hold 0 when every local
// derivative was 0.
type Gradient map[expr.Leaf]float64

// add accumulates d into the entry for l, inserting it if absent.
func (g Gradient) add(l expr.Leaf, d float64) {
	g[l] += d
}

// Of returns the derivative for l, or 0 if the pass never reached it.
func (g Gradient) Of(l expr.Leaf) float64 {
	return g[l]
}

// Differentiate computes the derivative of the tape output with respect to
// every leaf it reads, in one forward and one reverse pass.
//
// Algorithm:
//  1. Forward pass, keeping every intermediate value
//  2. Seed the adjoint of the last operation with 1
//  3. Walk operations in decreasing index order, applying the local rule of
//     each operator
//  4. Add leaf contributions into the result; add operation contributions
//     into that operation's adjoint slot
//
// Every consumer of an operation has a higher index, so a slot is complete
// before it is read even when the result feeds several operations.
func (e *Evaluator) Differentiate() Gradient {
	e.mustBeLive()

	n := len(e.ops)
	values := make([]float64, n)
	e.forward(values)

	adjoints := make([]float64, n)
	adjoints[n-1] = 1.0

	res := make(Gradient, len(e.leaves))
	for i := n - 1; i >= 0; i-- {
		op := e.ops[i]
		v1 := e.operand(e.args1[i], values)
		var v2 float64
		if op != expr.OpValue {
			v2 = e.operand(e.args2[i], values)
		}

		d1, d2 := localDerivatives(op, adjoints[i], v1, v2)

		e.propagate(e.args1[i], d1, adjoints, res)
		if op != expr.OpValue {
			e.propagate(e.args2[i], d2, adjoints, res)
		}
	}
	return res
}

// Derivative returns the derivative of the tape output with respect to a
// single leaf. It costs one full reverse pass; callers that need several
// entries should use Differentiate once.
func (e *Evaluator) Derivative(l expr.Leaf) float64 {
	return e.Differentiate().Of(l)
}

func (e *Evaluator) propagate(r expr.Ref, d float64, adjoints []float64, res Gradient) {
	if r.Kind == expr.LeafRef {
		res.add(e.leaves[r.Index], d)
		return
	}
	adjoints[r.Index] += d
}

// localDerivatives applies the chain rule for one operation with output
// adjoint d and operand values v1, v2.
func localDerivatives(op expr.Op, d, v1, v2 float64) (d1, d2 float64) {
	switch op {
	case expr.OpValue:
		return d, 0
	case expr.OpAdd:
		return d, d
	case expr.OpSubtract:
		return d, -d
	case expr.OpMultiply:
		return d * v2, d * v1
	case expr.OpDivide:
		return d / v2, -d * v1 / (v2 * v2)
	case expr.OpPower:
		// d(a^b)/da = b*a^(b-1), d(a^b)/db = a^b*ln(a)
		return d * v2 * math.Pow(v1, v2-1), d * math.Pow(v1, v2) * math.Log(v1)
	}
	return 0, 0
}
