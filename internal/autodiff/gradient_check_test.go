package autodiff_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/aml/internal/autodiff"
	"github.com/born-ml/aml/internal/expr"
)

// numericalDerivative computes df/dv by central differences at v's current
// value and restores it afterwards.
func numericalDerivative(ev *autodiff.Evaluator, v *expr.Variable, epsilon float64) float64 {
	x := v.Value()
	v.SetValue(x + epsilon)
	fp := ev.Evaluate()
	v.SetValue(x - epsilon)
	fm := ev.Evaluate()
	v.SetValue(x)
	return (fp - fm) / (2 * epsilon)
}

func compile(t *testing.T, n expr.Node) *autodiff.Evaluator {
	t.Helper()
	ev, err := autodiff.Compile(n)
	require.NoError(t, err)
	t.Cleanup(ev.Release)
	return ev
}

// TestDifferentiate_Add tests f = a + b.
func TestDifferentiate_Add(t *testing.T) {
	a := expr.NewFreeVariable("a", 1.5)
	b := expr.NewFreeVariable("b", -4)
	ev := compile(t, expr.Add(a, b))

	assert.Equal(t, -2.5, ev.Evaluate())
	for _, val := range []float64{-3, 0, 12} {
		a.SetValue(val)
		assert.Equal(t, autodiff.Gradient{a: 1, b: 1}, ev.Differentiate())
	}
}

// TestDifferentiate_Sub tests f = a - b.
func TestDifferentiate_Sub(t *testing.T) {
	a := expr.NewFreeVariable("a", 1)
	b := expr.NewFreeVariable("b", 3)
	ev := compile(t, expr.Sub(a, b))

	assert.Equal(t, -2.0, ev.Evaluate())
	assert.Equal(t, autodiff.Gradient{a: 1, b: -1}, ev.Differentiate())
}

// TestDifferentiate_Mul tests f = a * b against finite differences at
// random points.
func TestDifferentiate_Mul(t *testing.T) {
	a := expr.NewFreeVariable("a", 0)
	b := expr.NewFreeVariable("b", 0)
	ev := compile(t, expr.Mul(a, b))

	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 50; iter++ {
		a.SetValue(rng.Float64()*20 - 10)
		b.SetValue(rng.Float64()*20 - 10)

		grad := ev.Differentiate()
		assert.Equal(t, b.Value(), grad[a])
		assert.Equal(t, a.Value(), grad[b])

		assert.InDelta(t, numericalDerivative(ev, a, 1e-6), grad[a], 1e-6)
		assert.InDelta(t, numericalDerivative(ev, b, 1e-6), grad[b], 1e-6)
	}
}

// TestDifferentiate_Div tests f = a / b.
func TestDifferentiate_Div(t *testing.T) {
	a := expr.NewFreeVariable("a", 3)
	b := expr.NewFreeVariable("b", 4)
	ev := compile(t, expr.Div(a, b))

	assert.Equal(t, 0.75, ev.Evaluate())
	grad := ev.Differentiate()
	assert.InDelta(t, 1.0/4, grad[a], 1e-15)
	assert.InDelta(t, -3.0/16, grad[b], 1e-15)
}

// TestDifferentiate_Pow tests f = a ^ b with a > 0.
func TestDifferentiate_Pow(t *testing.T) {
	a := expr.NewFreeVariable("a", 2)
	b := expr.NewFreeVariable("b", 3)
	ev := compile(t, expr.Pow(a, b))

	assert.Equal(t, 8.0, ev.Evaluate())
	grad := ev.Differentiate()
	assert.InDelta(t, 3*4.0, grad[a], 1e-12)
	assert.InDelta(t, 8*math.Log(2), grad[b], 1e-12)
}

// TestDifferentiate_Accumulation tests leaves read by several operations.
func TestDifferentiate_Accumulation(t *testing.T) {
	a := expr.NewFreeVariable("a", 3)

	sum := compile(t, expr.Add(a, a))
	assert.Equal(t, autodiff.Gradient{a: 2}, sum.Differentiate())

	sq := compile(t, expr.Mul(a, a))
	assert.Equal(t, autodiff.Gradient{a: 6}, sq.Differentiate())
}

// TestDifferentiate_SharedIntermediate tests an operation result consumed
// by two later operations: f = s*s + s with s = x + 1.
func TestDifferentiate_SharedIntermediate(t *testing.T) {
	x := expr.NewFreeVariable("x", 2)
	one := expr.NewConstant(1)
	e := expr.FromSigned(
		[]expr.Op{expr.OpAdd, expr.OpMultiply, expr.OpAdd},
		[]int{0, -1, -2},
		[]int{1, -1, -1},
		[]expr.Leaf{x, one},
	)
	ev := compile(t, e)

	// s = 3, f = 12, df/dx = 2s + 1 = 7
	assert.Equal(t, 12.0, ev.Evaluate())
	assert.InDelta(t, 7.0, ev.Derivative(x), 1e-12)
	assert.InDelta(t, numericalDerivative(ev, x, 1e-6), ev.Derivative(x), 1e-6)
}

// TestDifferentiate_Polynomial tests f(x) = x³ - 2x² + x.
func TestDifferentiate_Polynomial(t *testing.T) {
	x := expr.NewFreeVariable("x", 2)
	two := expr.Float(2)
	x3 := expr.Pow(x, expr.Float(3))
	f := expr.Add(expr.Sub(x3, expr.Mul(two, expr.Mul(x, x))), x)
	ev := compile(t, f)

	// df/dx = 3x² - 4x + 1 = 5 at x = 2
	assert.Equal(t, 2.0, ev.Evaluate())
	assert.InDelta(t, 5.0, ev.Derivative(x), 1e-12)
}

// TestDifferentiate_Composite tests random composite expressions against
// finite differences.
func TestDifferentiate_Composite(t *testing.T) {
	x := expr.NewFreeVariable("x", 0)
	y := expr.NewFreeVariable("y", 0)
	z := expr.NewFreeVariable("z", 0)

	// f = (x*y + z) / (1 + x**2) - y ** z
	num := expr.Add(expr.Mul(x, y), z)
	den := expr.Add(expr.Float(1), expr.Pow(x, expr.Float(2)))
	f := expr.Sub(expr.Div(num, den), expr.Pow(y, z))
	ev := compile(t, f)

	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 25; iter++ {
		x.SetValue(rng.Float64()*4 - 2)
		y.SetValue(rng.Float64()*3 + 0.5)
		z.SetValue(rng.Float64()*2 - 1)

		grad := ev.Differentiate()
		for _, v := range []*expr.Variable{x, y, z} {
			assert.InDelta(t, numericalDerivative(ev, v, 1e-6), grad[v], 1e-5, "d/d%s", v.Name)
		}
	}
}

// TestDifferentiate_ConstantsPresent tests that constants reached by the
// pass appear in the result.
func TestDifferentiate_ConstantsPresent(t *testing.T) {
	x := expr.NewFreeVariable("x", 5)
	c := expr.NewConstant(2)
	ev := compile(t, expr.Mul(c, x))

	grad := ev.Differentiate()
	assert.Equal(t, 2.0, grad[x])
	assert.Equal(t, 5.0, grad[c])
	assert.Equal(t, 0.0, grad.Of(expr.NewFreeVariable("unused", 0)))
}

// TestEvaluate_IEEE tests that numerical edge cases propagate.
func TestEvaluate_IEEE(t *testing.T) {
	a := expr.NewFreeVariable("a", 1)
	b := expr.NewFreeVariable("b", 0)

	div := compile(t, expr.Div(a, b))
	assert.True(t, math.IsInf(div.Evaluate(), 1))

	a.SetValue(-8)
	b.SetValue(1.0 / 3)
	pow := compile(t, expr.Pow(a, b))
	assert.True(t, math.IsNaN(pow.Evaluate()))

	a.SetValue(-2)
	b.SetValue(2)
	grad := pow.Differentiate()
	assert.InDelta(t, -4.0, grad[a], 1e-12)
	assert.True(t, math.IsNaN(grad[b]), "ln of a negative base yields NaN")
}

// TestEvaluate_Idempotent tests repeated evaluation at a fixed point.
func TestEvaluate_Idempotent(t *testing.T) {
	x := expr.NewFreeVariable("x", 1.25)
	y := expr.NewFreeVariable("y", 0.5)
	ev := compile(t, expr.Div(expr.Pow(x, y), expr.Sub(x, y)))

	first := ev.Evaluate()
	for iter := 0; iter < 10; iter++ {
		assert.Equal(t, first, ev.Evaluate())
	}
	assert.Equal(t, ev.Differentiate(), ev.Differentiate())
}

// TestEvaluate_DeepChain tests a long chain without recursion limits.
func TestEvaluate_DeepChain(t *testing.T) {
	x := expr.NewFreeVariable("x", 1)
	one := expr.Float(1)

	const depth = 20000
	ops := make([]expr.Op, depth)
	args1 := make([]expr.Ref, depth)
	args2 := make([]expr.Ref, depth)
	ops[0], args1[0], args2[0] = expr.OpAdd, expr.LeafArg(0), expr.LeafArg(1)
	for i := 1; i < depth; i++ {
		ops[i], args1[i], args2[i] = expr.OpAdd, expr.OpArg(i-1), expr.LeafArg(1)
	}
	ev := compile(t, expr.NewExpression(ops, args1, args2, []expr.Leaf{x, one}))

	assert.Equal(t, float64(depth+1), ev.Evaluate())
	assert.Equal(t, 1.0, ev.Derivative(x))
}
