// Package expr defines the symbolic side of the modeling layer: leaves,
// operator codes and pre-flattened expressions.
//
// A Leaf is either a *Variable (mutable, owned by the model) or a *Constant
// (immutable value shared between expressions and reference counted by the
// tapes that capture it). Expressions are stored already flattened into
// parallel operator/argument arrays, ready to be copied into a tape:
//
//	x := expr.NewVariable("x", 3, 0, 10)
//	y := expr.NewVariable("y", 4, 0, 10)
//	g := expr.Add(expr.Pow(x, expr.Float(2)), expr.Pow(y, expr.Float(2)))
//	fmt.Println(g) // ((x ** 2) + (y ** 2))
package expr

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Node is anything that can be compiled into a tape: a Leaf or an *Expression.
type Node interface {
	// IsLeaf reports whether the node is a terminal value.
	IsLeaf() bool
	String() string
}

// Leaf is a terminal tape node. The set of implementations is closed:
// *Variable and *Constant.
type Leaf interface {
	Node
	// Value returns the current numeric value of the leaf.
	Value() float64
	// IsConstant reports whether the leaf is a *Constant.
	IsConstant() bool

	sealed()
}

// Variable is a decision variable. Its lifetime is owned by the model;
// tapes only borrow it.
type Variable struct {
	Name   string
	value  float64
	Lb     float64 // Lower bound (default: -Inf)
	Ub     float64 // Upper bound (default: +Inf)
	LbDual float64 // Dual of the lower bound
	UbDual float64 // Dual of the upper bound
	index  int     // Position in the solver vector, -1 until assigned
}

// NewVariable creates a variable with the given starting value and bounds.
func NewVariable(name string, value, lb, ub float64) *Variable {
	return &Variable{
		Name:  name,
		value: value,
		Lb:    lb,
		Ub:    ub,
		index: -1,
	}
}

// NewFreeVariable creates an unbounded variable.
func NewFreeVariable(name string, value float64) *Variable {
	return NewVariable(name, value, math.Inf(-1), math.Inf(1))
}

// IsLeaf implements Node.
func (v *Variable) IsLeaf() bool { return true }

// IsConstant implements Leaf.
func (v *Variable) IsConstant() bool { return false }

// Value returns the current value.
func (v *Variable) Value() float64 { return v.value }

// SetValue updates the current value.
func (v *Variable) SetValue(x float64) { v.value = x }

// Index returns the solver index, or -1 if the variable is not part of an
// active problem.
func (v *Variable) Index() int { return v.index }

// SetIndex assigns the solver index. Pass -1 to clear it.
func (v *Variable) SetIndex(i int) { v.index = i }

func (v *Variable) String() string {
	if v.Name == "" {
		return fmt.Sprintf("var(%p)", v)
	}
	return v.Name
}

func (v *Variable) sealed() {}

// Constant is an immutable floating point leaf that can be shared by many
// expressions. Each tape that captures it holds one reference per leaf slot.
//
// The count starts at zero: the modeling code does not own a reference.
// When the last tape releases it the constant is marked freed.
type Constant struct {
	value    float64
	refCount atomic.Int32
	freed    atomic.Bool
}

// NewConstant creates an unreferenced constant.
func NewConstant(value float64) *Constant {
	return &Constant{value: value}
}

// Float is shorthand for NewConstant.
func Float(value float64) *Constant {
	return NewConstant(value)
}

// IsLeaf implements Node.
func (c *Constant) IsLeaf() bool { return true }

// IsConstant implements Leaf.
func (c *Constant) IsConstant() bool { return true }

// Value returns the constant's value.
func (c *Constant) Value() float64 { return c.value }

// Retain adds a reference. Retaining a freed constant panics.
func (c *Constant) Retain() {
	if c.freed.Load() {
		panic("expr: retain of freed constant")
	}
	c.refCount.Add(1)
}

// Release drops a reference and reports whether it was the last one, in
// which case the constant is freed.
func (c *Constant) Release() bool {
	n := c.refCount.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("expr: constant %v released more times than retained", c.value))
	}
	if n == 0 {
		c.freed.Store(true)
		return true
	}
	return false
}

// RefCount returns the number of live references.
func (c *Constant) RefCount() int {
	return int(c.refCount.Load())
}

// Freed reports whether the last reference has been released.
func (c *Constant) Freed() bool {
	return c.freed.Load()
}

func (c *Constant) String() string {
	return formatFloat(c.value)
}

func (c *Constant) sealed() {}
