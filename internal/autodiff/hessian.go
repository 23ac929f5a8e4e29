package autodiff

import (
	"math"

	"github.com/born-ml/aml/internal/expr"
)

// Hessian returns one column of second derivatives: for every leaf l the
// tape reads, the entry is d²f / (dl dwrt).
//
// It runs a forward pass carrying tangents seeded on wrt, then a reverse
// pass over (adjoint, adjoint tangent) pairs, so the cost is a small
// constant times Evaluate. A full Hessian of a tape with k variables needs
// k calls; callers that query many pairs should cache columns.
func (e *Evaluator) Hessian(wrt expr.Leaf) Gradient {
	e.mustBeLive()

	n := len(e.ops)
	values := make([]float64, n)
	dots := make([]float64, n)

	leafDots := make([]float64, len(e.leaves))
	for i, l := range e.leaves {
		if l == wrt {
			leafDots[i] = 1
		}
	}

	tangent := func(r expr.Ref) (float64, float64) {
		if r.Kind == expr.LeafRef {
			return e.leaves[r.Index].Value(), leafDots[r.Index]
		}
		return values[r.Index], dots[r.Index]
	}

	for i, op := range e.ops {
		v1, t1 := tangent(e.args1[i])
		var v2, t2 float64
		if op != expr.OpValue {
			v2, t2 = tangent(e.args2[i])
		}
		values[i] = apply(op, v1, v2)
		dots[i] = tangentOf(op, v1, v2, t1, t2)
	}

	adjoints := make([]float64, n)
	adjDots := make([]float64, n)
	adjoints[n-1] = 1.0

	res := make(Gradient, len(e.leaves))
	for i := n - 1; i >= 0; i-- {
		op := e.ops[i]
		v1, t1 := tangent(e.args1[i])
		var v2, t2 float64
		if op != expr.OpValue {
			v2, t2 = tangent(e.args2[i])
		}

		d, dd := adjoints[i], adjDots[i]
		d1, d2 := localDerivatives(op, d, v1, v2)
		dd1, dd2 := localSecond(op, d, dd, v1, v2, t1, t2)

		e.propagateDual(e.args1[i], d1, dd1, adjoints, adjDots, res)
		if op != expr.OpValue {
			e.propagateDual(e.args2[i], d2, dd2, adjoints, adjDots, res)
		}
	}
	return res
}

// SecondDerivative returns d²f / (da db).
func (e *Evaluator) SecondDerivative(a, b expr.Leaf) float64 {
	return e.Hessian(b).Of(a)
}

func (e *Evaluator) propagateDual(r expr.Ref, d, dd float64, adjoints, adjDots []float64, res Gradient) {
	if r.Kind == expr.LeafRef {
		res.add(e.leaves[r.Index], dd)
		return
	}
	adjoints[r.Index] += d
	adjDots[r.Index] += dd
}

// scaled returns t*x, treating a zero tangent as a hard zero so that an
// unseeded direction never picks up NaN from x.
func scaled(t, x float64) float64 {
	if t == 0 {
		return 0
	}
	return t * x
}

// tangentOf is the forward-mode derivative of one operation.
func tangentOf(op expr.Op, v1, v2, t1, t2 float64) float64 {
	switch op {
	case expr.OpValue:
		return t1
	case expr.OpAdd:
		return t1 + t2
	case expr.OpSubtract:
		return t1 - t2
	case expr.OpMultiply:
		return scaled(t1, v2) + scaled(t2, v1)
	case expr.OpDivide:
		return scaled(t1, 1/v2) - scaled(t2, v1/(v2*v2))
	case expr.OpPower:
		return scaled(t1, powDerivBase(v1, v2)) + scaled(t2, math.Pow(v1, v2)*math.Log(v1))
	}
	return 0
}

// powDerivBase is d(a^b)/da = b*a^(b-1), exactly 0 when b is 0.
func powDerivBase(v1, v2 float64) float64 {
	if v2 == 0 {
		return 0
	}
	return v2 * math.Pow(v1, v2-1)
}

// localSecond is the tangent of localDerivatives: given the output adjoint
// d, its tangent dd, operand values and operand tangents, it returns the
// tangents of the two operand adjoints.
func localSecond(op expr.Op, d, dd, v1, v2, t1, t2 float64) (dd1, dd2 float64) {
	switch op {
	case expr.OpValue:
		return dd, 0
	case expr.OpAdd:
		return dd, dd
	case expr.OpSubtract:
		return dd, -dd
	case expr.OpMultiply:
		// d1 = d*v2, d2 = d*v1
		return scaled(dd, v2) + scaled(t2, d), scaled(dd, v1) + scaled(t1, d)
	case expr.OpDivide:
		// d1 = d/v2, d2 = -d*v1/v2²
		v22 := v2 * v2
		dd1 = scaled(dd, 1/v2) - scaled(t2, d/v22)
		dd2 = -scaled(dd, v1/v22) - scaled(t1, d/v22) + scaled(t2, 2*d*v1/(v22*v2))
		return dd1, dd2
	case expr.OpPower:
		// d1 = d*b*a^(b-1), d2 = d*a^b*ln(a)
		q := powDerivBase(v1, v2)
		qDot := scaled(t1, powSecondBase(v1, v2)) + scaled(t2, powMixed(v1, v2))
		dd1 = scaled(dd, q) + scaled(d, qDot)

		p := math.Pow(v1, v2)
		lnA := math.Log(v1)
		pDot := scaled(t1, q) + scaled(t2, p*lnA)
		// tangent of p*ln(a) is pDot*ln(a) + p*t1/a
		rDot := scaled(pDot, lnA) + scaled(t1, p/v1)
		dd2 = scaled(dd, p*lnA) + scaled(d, rDot)
		return dd1, dd2
	}
	return 0, 0
}

// powSecondBase is d²(a^b)/da² = b*(b-1)*a^(b-2).
func powSecondBase(v1, v2 float64) float64 {
	if v2 == 0 || v2 == 1 {
		return 0
	}
	return v2 * (v2 - 1) * math.Pow(v1, v2-2)
}

// powMixed is d²(a^b)/(da db) = a^(b-1) * (1 + b*ln(a)).
func powMixed(v1, v2 float64) float64 {
	return math.Pow(v1, v2-1) * (1 + v2*math.Log(v1))
}
