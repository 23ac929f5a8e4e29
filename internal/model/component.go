package model

import (
	"github.com/born-ml/aml/internal/autodiff"
	"github.com/born-ml/aml/internal/expr"
)

// Pass identifies a kind of tape walk, reported to the model's Observer.
type Pass int

// Tape walks.
const (
	PassForward Pass = iota
	PassReverse
	PassSecondOrder
)

// String returns the pass name used in metric labels.
func (p Pass) String() string {
	switch p {
	case PassForward:
		return "forward"
	case PassReverse:
		return "reverse"
	case PassSecondOrder:
		return "second_order"
	default:
		return "unknown"
	}
}

// Observer is notified of every tape walk. It may be called concurrently.
type Observer func(Pass)

// component is the tape-backed part shared by objectives and constraints.
//
// It caches the last value, the gradient and the Hessian columns computed
// since the last Evaluate; Evaluate drops the derivative caches because the
// variable values may have changed.
type component struct {
	model *Model
	body  expr.Node
	eval  *autodiff.Evaluator

	value float64
	grad  autodiff.Gradient
	cols  map[*expr.Variable]autodiff.Gradient
}

func newComponent(m *Model, body expr.Node) (*component, error) {
	ev, err := autodiff.Compile(body)
	if err != nil {
		return nil, err
	}
	return &component{model: m, body: body, eval: ev}, nil
}

// Evaluate recomputes and stores the value at the current variable values.
func (c *component) Evaluate() float64 {
	c.Invalidate()
	c.model.observe(PassForward)
	c.value = c.eval.Evaluate()
	return c.value
}

// Invalidate drops cached derivatives.
func (c *component) Invalidate() {
	c.grad = nil
	c.cols = nil
}

// Gradient returns the derivatives with respect to every leaf, running the
// reverse pass at most once between evaluations.
func (c *component) Gradient() autodiff.Gradient {
	if c.grad == nil {
		c.model.observe(PassReverse)
		c.grad = c.eval.Differentiate()
	}
	return c.grad
}

// Derivative returns df/dv.
func (c *component) Derivative(v *expr.Variable) float64 {
	return c.Gradient()[v]
}

// PrepareHessian computes the second-derivative columns for wrt that are
// not cached yet.
func (c *component) PrepareHessian(wrt ...*expr.Variable) {
	for _, b := range wrt {
		c.SecondDerivative(b, b)
	}
}

// SecondDerivative returns d²f/(da db), computing the column for b at most
// once between evaluations.
func (c *component) SecondDerivative(a, b *expr.Variable) float64 {
	col, ok := c.cols[b]
	if !ok {
		if c.cols == nil {
			c.cols = make(map[*expr.Variable]autodiff.Gradient)
		}
		c.model.observe(PassSecondOrder)
		col = c.eval.Hessian(b)
		c.cols[b] = col
	}
	return col[a]
}

// Variables returns the distinct variables the body depends on.
func (c *component) Variables() []*expr.Variable {
	return c.eval.Variables()
}

// HessianPattern returns the structurally nonzero variable pairs.
func (c *component) HessianPattern() []autodiff.VarPair {
	return c.eval.HessianPattern()
}

// Body returns the expression the component was built from.
func (c *component) Body() expr.Node {
	return c.body
}

func (c *component) release() {
	if c.eval != nil && !c.eval.Released() {
		c.eval.Release()
	}
	c.Invalidate()
}
