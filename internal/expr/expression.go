package expr

import (
	"fmt"
	"strconv"
)

// Expression is a non-leaf node stored in flattened form: parallel arrays of
// operator codes and argument references, plus the leaves they index.
//
// Operation i may only reference leaves or operations with index < i; the
// last operation holds the value of the whole expression. Expressions built
// with the functions in this package always satisfy that; expressions
// assembled by hand are checked when compiled into a tape.
type Expression struct {
	ops    []Op
	args1  []Ref
	args2  []Ref
	leaves []Leaf
}

// NewExpression wraps already-flattened arrays. The slices are owned by the
// expression afterwards.
func NewExpression(ops []Op, args1, args2 []Ref, leaves []Leaf) *Expression {
	return &Expression{ops: ops, args1: args1, args2: args2, leaves: leaves}
}

// FromSigned builds an expression from arrays that use the signed argument
// encoding (see EncodeRef).
func FromSigned(ops []Op, args1, args2 []int, leaves []Leaf) *Expression {
	a1 := make([]Ref, len(args1))
	for i, n := range args1 {
		a1[i] = DecodeRef(n)
	}
	a2 := make([]Ref, len(args2))
	for i, n := range args2 {
		a2[i] = DecodeRef(n)
	}
	return NewExpression(ops, a1, a2, leaves)
}

// IsLeaf implements Node.
func (e *Expression) IsLeaf() bool { return false }

// NumOperators returns the number of operations.
func (e *Expression) NumOperators() int { return len(e.ops) }

// NumLeaves returns the number of leaf slots.
func (e *Expression) NumLeaves() int { return len(e.leaves) }

// Operators returns the operator codes. The slice must not be modified.
func (e *Expression) Operators() []Op { return e.ops }

// Args1 returns the first-argument references. The slice must not be modified.
func (e *Expression) Args1() []Ref { return e.args1 }

// Args2 returns the second-argument references. The slice must not be modified.
func (e *Expression) Args2() []Ref { return e.args2 }

// Leaves returns the leaf slots. The slice must not be modified.
func (e *Expression) Leaves() []Leaf { return e.leaves }

// Add returns a + b.
func Add(a, b Node) *Expression { return binary(OpAdd, a, b) }

// Sub returns a - b.
func Sub(a, b Node) *Expression { return binary(OpSubtract, a, b) }

// Mul returns a * b.
func Mul(a, b Node) *Expression { return binary(OpMultiply, a, b) }

// Div returns a / b.
func Div(a, b Node) *Expression { return binary(OpDivide, a, b) }

// Pow returns a ** b.
func Pow(a, b Node) *Expression { return binary(OpPower, a, b) }

// Neg returns -1 * a.
func Neg(a Node) *Expression { return binary(OpMultiply, Float(-1), a) }

// Sum folds nodes with Add. An empty sum is the constant 0 and a single
// node is returned unchanged.
func Sum(nodes ...Node) Node {
	switch len(nodes) {
	case 0:
		return Float(0)
	case 1:
		return nodes[0]
	}
	var acc Node = nodes[0]
	for _, n := range nodes[1:] {
		acc = Add(acc, n)
	}
	return acc
}

// binary flattens op(a, b) into a fresh expression. Operands are copied, so
// every intermediate result has exactly one consumer. Leaves are deduplicated
// by identity.
func binary(op Op, a, b Node) *Expression {
	e := &Expression{}
	slots := make(map[Leaf]int)
	ra := e.absorb(a, slots)
	rb := e.absorb(b, slots)
	e.push(op, ra, rb)
	return e
}

func (e *Expression) absorb(n Node, slots map[Leaf]int) Ref {
	switch n := n.(type) {
	case Leaf:
		return LeafArg(e.slot(n, slots))
	case *Expression:
		if n == nil || len(n.ops) == 0 {
			panic("expr: empty expression used as operand")
		}
		remap := make([]int, len(n.leaves))
		for i, l := range n.leaves {
			remap[i] = e.slot(l, slots)
		}
		base := len(e.ops)
		shift := func(r Ref) Ref {
			if r.Kind == LeafRef {
				return LeafArg(remap[r.Index])
			}
			return OpArg(base + r.Index)
		}
		for i, op := range n.ops {
			e.push(op, shift(n.args1[i]), shift(n.args2[i]))
		}
		return OpArg(len(e.ops) - 1)
	default:
		panic(fmt.Sprintf("expr: unsupported operand %T", n))
	}
}

func (e *Expression) slot(l Leaf, slots map[Leaf]int) int {
	if i, ok := slots[l]; ok {
		return i
	}
	i := len(e.leaves)
	e.leaves = append(e.leaves, l)
	slots[l] = i
	return i
}

func (e *Expression) push(op Op, a1, a2 Ref) {
	e.ops = append(e.ops, op)
	e.args1 = append(e.args1, a1)
	e.args2 = append(e.args2, a2)
}

// String renders the expression in fully parenthesized infix form.
func (e *Expression) String() string {
	if len(e.ops) == 0 {
		return "<empty>"
	}
	out := make([]string, len(e.ops))
	arg := func(r Ref, i int) string {
		switch {
		case r.Kind == LeafRef && r.Index >= 0 && r.Index < len(e.leaves) && e.leaves[r.Index] != nil:
			return e.leaves[r.Index].String()
		case r.Kind == OpRef && r.Index >= 0 && r.Index < i:
			return out[r.Index]
		default:
			return "?" + r.String()
		}
	}
	for i, op := range e.ops {
		a := arg(e.args1[i], i)
		if op == OpValue {
			out[i] = a
			continue
		}
		out[i] = "(" + a + " " + op.Symbol() + " " + arg(e.args2[i], i) + ")"
	}
	return out[len(out)-1]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
