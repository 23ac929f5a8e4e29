package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/aml/internal/expr"
)

func circle(t *testing.T) (*Model, *expr.Variable, *expr.Variable, *Constraint) {
	t.Helper()
	m := New()
	x := m.NewVariable("x", 3, 0, 10)
	y := m.NewVariable("y", 4, 0, 10)
	two := expr.Float(2)
	c, err := m.AddConstraint("circle", expr.Add(expr.Pow(x, two), expr.Pow(y, two)), 0, 25)
	require.NoError(t, err)
	require.NoError(t, m.SetObjective(expr.Neg(x)))
	t.Cleanup(m.Close)
	return m, x, y, c
}

func TestModelEvaluate(t *testing.T) {
	m, x, y, c := circle(t)

	assert.Equal(t, 25.0, c.Evaluate())
	assert.Equal(t, 25.0, c.Value())
	assert.Equal(t, -3.0, m.Objective().Evaluate())

	assert.Equal(t, 6.0, c.Derivative(x))
	assert.Equal(t, 8.0, c.Derivative(y))
	assert.Equal(t, -1.0, m.Objective().Derivative(x))
	assert.Equal(t, 0.0, m.Objective().Derivative(y))

	assert.Equal(t, 2.0, c.SecondDerivative(x, x))
	assert.Equal(t, 2.0, c.SecondDerivative(y, y))
	assert.Equal(t, 0.0, c.SecondDerivative(x, y))
}

func TestComponentCachesUntilEvaluate(t *testing.T) {
	m, x, _, c := circle(t)

	var mu sync.Mutex
	counts := map[Pass]int{}
	m.SetObserver(func(p Pass) {
		mu.Lock()
		counts[p]++
		mu.Unlock()
	})

	c.Evaluate()
	c.Gradient()
	c.Gradient()
	c.PrepareHessian(x)
	c.SecondDerivative(x, x)
	assert.Equal(t, map[Pass]int{PassForward: 1, PassReverse: 1, PassSecondOrder: 1}, counts)

	x.SetValue(5)
	assert.Equal(t, 41.0, c.Evaluate())
	assert.Equal(t, 10.0, c.Derivative(x), "derivatives refresh after Evaluate")
	assert.Equal(t, map[Pass]int{PassForward: 2, PassReverse: 2, PassSecondOrder: 1}, counts)
}

func TestPassString(t *testing.T) {
	assert.Equal(t, "forward", PassForward.String())
	assert.Equal(t, "reverse", PassReverse.String())
	assert.Equal(t, "second_order", PassSecondOrder.String())
	assert.Equal(t, "unknown", Pass(9).String())
}

func TestLookupsAndOrder(t *testing.T) {
	m, x, y, c := circle(t)

	got, ok := m.Variable("y")
	require.True(t, ok)
	assert.Same(t, y, got)
	_, ok = m.Variable("z")
	assert.False(t, ok)

	gc, ok := m.Constraint("circle")
	require.True(t, ok)
	assert.Same(t, c, gc)

	assert.Equal(t, []*expr.Variable{x, y}, m.Variables())
	assert.Equal(t, -1, c.Index())
	assert.Equal(t, -1, x.Index())

	require.NoError(t, m.AddVariable(x), "re-adding is a no-op")
	assert.Len(t, m.Variables(), 2)
}

func TestDuplicateNames(t *testing.T) {
	m, _, _, _ := circle(t)

	err := m.AddVariable(expr.NewFreeVariable("x", 0))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Panics(t, func() { m.NewVariable("y", 0, 0, 1) })

	x, _ := m.Variable("x")
	_, err = m.AddConstraint("circle", x, 0, 1)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestForeignVariableRejected(t *testing.T) {
	m, x, _, _ := circle(t)
	stranger := expr.NewFreeVariable("s", 1)
	k := expr.Float(3)

	_, err := m.AddConstraint("bad", expr.Mul(k, stranger), 0, 1)
	require.ErrorIs(t, err, ErrUnknownVariable)
	assert.Equal(t, 0, k.RefCount(), "failed constraint releases its tape")
	assert.True(t, k.Freed())

	err = m.SetObjective(expr.Add(x, stranger))
	require.ErrorIs(t, err, ErrUnknownVariable)
	assert.Len(t, m.Constraints(), 1)
}

func TestRemoveConstraintReleasesConstants(t *testing.T) {
	m, x, _, _ := circle(t)
	k := expr.Float(4)
	c, err := m.AddConstraint("line", expr.Mul(k, x), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, k.RefCount())

	assert.True(t, m.RemoveConstraint(c))
	assert.True(t, k.Freed())
	assert.False(t, m.RemoveConstraint(c))
	_, ok := m.Constraint("line")
	assert.False(t, ok)
}

func TestSetObjectiveReplaces(t *testing.T) {
	m, x, _, _ := circle(t)
	k := expr.Float(7)
	require.NoError(t, m.SetObjective(expr.Mul(k, x)))
	require.NoError(t, m.SetObjective(x))
	assert.True(t, k.Freed(), "previous objective released")
	assert.Equal(t, 3.0, m.Objective().Evaluate())
}

func TestValidate(t *testing.T) {
	m, x, _, c := circle(t)
	require.NoError(t, m.Validate())

	x.Lb, x.Ub = 5, 1
	c.Lb, c.Ub = 30, 25
	err := m.Validate()
	require.ErrorIs(t, err, ErrBounds)
	assert.Contains(t, err.Error(), "variable x")
	assert.Contains(t, err.Error(), `constraint "circle"`)
}

func TestWriteBack(t *testing.T) {
	m, _, _, c := circle(t)
	c.SetValue(24.5)
	m.Objective().SetValue(-4)
	c.SetIndex(2)

	assert.Equal(t, 24.5, c.Value())
	assert.Equal(t, -4.0, m.Objective().Value())
	assert.Equal(t, 2, c.Index())
}
