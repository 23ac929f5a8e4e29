package autodiff

import (
	"fmt"
	"math"

	"github.com/born-ml/aml/internal/expr"
)

// Evaluate computes the value of the tape at the current leaf values.
//
// Division by zero and real powers of negative bases are not special-cased:
// they produce IEEE infinities and NaN.
func (e *Evaluator) Evaluate() float64 {
	e.mustBeLive()
	values := make([]float64, len(e.ops))
	e.forward(values)
	return values[len(values)-1]
}

// forward fills values[i] with the result of operation i.
func (e *Evaluator) forward(values []float64) {
	for i, op := range e.ops {
		v1 := e.operand(e.args1[i], values)
		var v2 float64
		if op != expr.OpValue {
			v2 = e.operand(e.args2[i], values)
		}
		values[i] = apply(op, v1, v2)
	}
}

func (e *Evaluator) operand(r expr.Ref, values []float64) float64 {
	if r.Kind == expr.LeafRef {
		return e.leaves[r.Index].Value()
	}
	return values[r.Index]
}

func apply(op expr.Op, v1, v2 float64) float64 {
	switch op {
	case expr.OpValue:
		return v1
	case expr.OpAdd:
		return v1 + v2
	case expr.OpSubtract:
		return v1 - v2
	case expr.OpMultiply:
		return v1 * v2
	case expr.OpDivide:
		return v1 / v2
	case expr.OpPower:
		return math.Pow(v1, v2)
	default:
		panic(fmt.Sprintf("autodiff: unknown operator %v", op))
	}
}
