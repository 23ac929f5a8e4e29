package expr_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/aml/internal/expr"
)

func TestRefCodecRoundTrip(t *testing.T) {
	for n := -50; n <= 50; n++ {
		assert.Equal(t, n, expr.EncodeRef(expr.DecodeRef(n)))
	}

	assert.Equal(t, expr.LeafArg(0), expr.DecodeRef(0))
	assert.Equal(t, expr.OpArg(0), expr.DecodeRef(-1))
	assert.Equal(t, expr.OpArg(4), expr.DecodeRef(-5))
	assert.Equal(t, -3, expr.EncodeRef(expr.OpArg(2)))
}

func TestOpStrings(t *testing.T) {
	assert.Equal(t, "POWER", expr.OpPower.String())
	assert.Equal(t, "**", expr.OpPower.Symbol())
	assert.Equal(t, "Op(42)", expr.Op(42).String())
	assert.False(t, expr.Op(42).Valid())
	assert.True(t, expr.OpValue.Valid())
}

func TestBuilderFlattensInOrder(t *testing.T) {
	x := expr.NewVariable("x", 3, 0, 10)
	y := expr.NewVariable("y", 4, 0, 10)
	two := expr.Float(2)

	// (x**2) + (y**2)
	g := expr.Add(expr.Pow(x, two), expr.Pow(y, two))

	require.Equal(t, 3, g.NumOperators())
	assert.Equal(t, []expr.Op{expr.OpPower, expr.OpPower, expr.OpAdd}, g.Operators())

	// Leaves are deduplicated: x, 2, y.
	require.Equal(t, 3, g.NumLeaves())
	assert.Same(t, x, g.Leaves()[0])
	assert.Same(t, two, g.Leaves()[1])
	assert.Same(t, y, g.Leaves()[2])

	assert.Equal(t, []expr.Ref{expr.LeafArg(0), expr.LeafArg(2), expr.OpArg(0)}, g.Args1())
	assert.Equal(t, []expr.Ref{expr.LeafArg(1), expr.LeafArg(1), expr.OpArg(1)}, g.Args2())

	assert.Equal(t, "((x ** 2) + (y ** 2))", g.String())
}

func TestBuilderCopiesSharedOperands(t *testing.T) {
	x := expr.NewFreeVariable("x", 1)
	sq := expr.Mul(x, x)
	f := expr.Add(sq, sq)

	// Each use of sq is copied, so no operation has two consumers.
	assert.Equal(t, 3, f.NumOperators())
	assert.Equal(t, 1, f.NumLeaves())
	assert.Equal(t, "((x * x) + (x * x))", f.String())
}

func TestSumAndNeg(t *testing.T) {
	x := expr.NewFreeVariable("x", 1)
	y := expr.NewFreeVariable("y", 2)

	assert.Equal(t, "0", expr.Sum().String())
	assert.Same(t, x, expr.Sum(x))
	assert.Equal(t, "((x + y) + x)", expr.Sum(x, y, x).String())
	assert.Equal(t, "(-1 * x)", expr.Neg(x).String())
}

func TestFromSigned(t *testing.T) {
	a := expr.NewFreeVariable("a", 1)
	b := expr.NewFreeVariable("b", 2)

	// op0 = a * b; op1 = op0 + a
	e := expr.FromSigned(
		[]expr.Op{expr.OpMultiply, expr.OpAdd},
		[]int{0, -1},
		[]int{1, 0},
		[]expr.Leaf{a, b},
	)
	assert.Equal(t, "((a * b) + a)", e.String())
}

func TestVariableDefaults(t *testing.T) {
	v := expr.NewFreeVariable("z", 0.5)
	assert.Equal(t, -1, v.Index())
	assert.True(t, v.IsLeaf())
	assert.False(t, v.IsConstant())
	assert.Less(t, v.Lb, -1e300)
	assert.Greater(t, v.Ub, 1e300)

	v.SetValue(2)
	v.SetIndex(7)
	assert.Equal(t, 2.0, v.Value())
	assert.Equal(t, 7, v.Index())
}

func TestConstantRefCount(t *testing.T) {
	c := expr.NewConstant(2.5)
	assert.Equal(t, 0, c.RefCount())
	assert.False(t, c.Freed())

	c.Retain()
	c.Retain()
	assert.Equal(t, 2, c.RefCount())

	assert.False(t, c.Release())
	assert.False(t, c.Freed())
	assert.True(t, c.Release())
	assert.True(t, c.Freed())

	assert.Panics(t, func() { c.Release() }, "underflow must panic")
	assert.Panics(t, func() { c.Retain() }, "retain after free must panic")
}

func TestConstantRefCountConcurrent(t *testing.T) {
	c := expr.NewConstant(1)
	c.Retain() // keep alive for the duration

	var wg sync.WaitGroup
	for iter := 0; iter < 16; iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := 0; iter < 1000; iter++ {
				c.Retain()
				c.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.RefCount())
	assert.False(t, c.Freed())
}

func TestEmptyOperandPanics(t *testing.T) {
	x := expr.NewFreeVariable("x", 1)
	assert.Panics(t, func() { expr.Add(x, &expr.Expression{}) })
}
