package autodiff

import (
	"sort"

	"github.com/born-ml/aml/internal/expr"
)

// VarPair is an unordered pair of variables with a structurally nonzero
// second derivative. A and B may be the same variable.
type VarPair struct {
	A, B *expr.Variable
}

// HessianPattern returns the pairs of variables whose mixed second
// derivative is not structurally zero, ordered by first appearance of A
// then B, with A appearing no later than B.
//
// Dependency sets are propagated forward. Linear operators only merge sets;
// MULTIPLY adds cross interactions between its operands, DIVIDE also adds
// the denominator's self interactions, and POWER adds all interactions of
// its operands (none when the exponent is the constant 0 or 1 and the base
// alone varies).
func (e *Evaluator) HessianPattern() []VarPair {
	e.mustBeLive()

	ord := make(map[*expr.Variable]int, len(e.vars))
	for i, v := range e.vars {
		ord[v] = i
	}

	deps := make([][]int, len(e.ops))
	pairs := make(map[[2]int]struct{})

	depsOf := func(r expr.Ref) []int {
		if r.Kind == expr.OpRef {
			return deps[r.Index]
		}
		if v, ok := e.leaves[r.Index].(*expr.Variable); ok {
			return []int{ord[v]}
		}
		return nil
	}
	cross := func(a, b []int) {
		for _, i := range a {
			for _, j := range b {
				lo, hi := i, j
				if lo > hi {
					lo, hi = hi, lo
				}
				pairs[[2]int{lo, hi}] = struct{}{}
			}
		}
	}

	for i, op := range e.ops {
		a := depsOf(e.args1[i])
		if op == expr.OpValue {
			deps[i] = a
			continue
		}
		b := depsOf(e.args2[i])
		u := union(a, b)
		deps[i] = u

		switch op {
		case expr.OpMultiply:
			cross(a, b)
		case expr.OpDivide:
			cross(a, b)
			cross(b, b)
		case expr.OpPower:
			if len(b) == 0 && e.linearExponent(e.args2[i]) {
				continue
			}
			cross(u, u)
		}
	}

	keys := make([][2]int, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(x, y int) bool {
		if keys[x][0] != keys[y][0] {
			return keys[x][0] < keys[y][0]
		}
		return keys[x][1] < keys[y][1]
	})

	out := make([]VarPair, len(keys))
	for i, k := range keys {
		out[i] = VarPair{A: e.vars[k[0]], B: e.vars[k[1]]}
	}
	return out
}

// linearExponent reports whether r is a constant leaf equal to 0 or 1.
func (e *Evaluator) linearExponent(r expr.Ref) bool {
	if r.Kind != expr.LeafRef {
		return false
	}
	c, ok := e.leaves[r.Index].(*expr.Constant)
	if !ok {
		return false
	}
	return c.Value() == 0 || c.Value() == 1
}

// union merges two sorted, duplicate-free slices.
func union(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
