package autodiff

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/born-ml/aml/internal/expr"
)

// Evaluator is a compiled tape: a linear, topologically ordered sequence of
// operations over a fixed set of leaves.
//
// Variables are borrowed from the model. Constants are retained once per
// leaf slot on Compile and released on Release.
type Evaluator struct {
	ops    []expr.Op
	args1  []expr.Ref
	args2  []expr.Ref
	leaves []expr.Leaf

	vars     []*expr.Variable // Unique variables, in leaf-slot order
	released bool
}

// Compile builds a tape from an expression tree root.
//
// A bare leaf becomes a single VALUE operation. An *expr.Expression has its
// arrays copied after the structure is checked: every argument must point
// at an existing leaf or at an earlier operation. All violations found are
// returned together, wrapping ErrStructure, and nothing is retained.
func Compile(node expr.Node) (*Evaluator, error) {
	var e *Evaluator

	switch n := node.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil node", ErrStructure)
	case expr.Leaf:
		if isNilLeaf(n) {
			return nil, fmt.Errorf("%w: nil leaf", ErrStructure)
		}
		e = &Evaluator{
			ops:    []expr.Op{expr.OpValue},
			args1:  []expr.Ref{expr.LeafArg(0)},
			args2:  []expr.Ref{expr.LeafArg(0)},
			leaves: []expr.Leaf{n},
		}
	case *expr.Expression:
		if n == nil {
			return nil, fmt.Errorf("%w: nil expression", ErrStructure)
		}
		if err := validate(n); err != nil {
			return nil, err
		}
		e = &Evaluator{
			ops:    append([]expr.Op(nil), n.Operators()...),
			args1:  append([]expr.Ref(nil), n.Args1()...),
			args2:  append([]expr.Ref(nil), n.Args2()...),
			leaves: append([]expr.Leaf(nil), n.Leaves()...),
		}
	default:
		return nil, fmt.Errorf("%w: unsupported node type %T", ErrStructure, node)
	}

	seen := make(map[*expr.Variable]struct{})
	for _, l := range e.leaves {
		switch l := l.(type) {
		case *expr.Constant:
			l.Retain()
		case *expr.Variable:
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				e.vars = append(e.vars, l)
			}
		}
	}
	return e, nil
}

// validate checks the no-forward-reference invariant and array shapes.
func validate(x *expr.Expression) error {
	var result *multierror.Error

	ops, args1, args2, leaves := x.Operators(), x.Args1(), x.Args2(), x.Leaves()
	n := len(ops)
	if n == 0 {
		return fmt.Errorf("%w: expression has no operations", ErrStructure)
	}
	if len(args1) != n || len(args2) != n {
		return fmt.Errorf("%w: %d operators but %d/%d arguments", ErrStructure, n, len(args1), len(args2))
	}

	for i, l := range leaves {
		if isNilLeaf(l) {
			result = multierror.Append(result, fmt.Errorf("%w: leaf %d is nil", ErrStructure, i))
		}
	}

	checkRef := func(i int, name string, r expr.Ref) {
		switch r.Kind {
		case expr.LeafRef:
			if r.Index < 0 || r.Index >= len(leaves) {
				result = multierror.Append(result,
					fmt.Errorf("%w: operation %d %s references %v, have %d leaves", ErrStructure, i, name, r, len(leaves)))
			}
		case expr.OpRef:
			if r.Index < 0 || r.Index >= i {
				result = multierror.Append(result,
					fmt.Errorf("%w: operation %d %s references %v, not an earlier operation", ErrStructure, i, name, r))
			}
		default:
			result = multierror.Append(result,
				fmt.Errorf("%w: operation %d %s has unknown reference kind %d", ErrStructure, i, name, r.Kind))
		}
	}

	for i, op := range ops {
		if !op.Valid() {
			result = multierror.Append(result, fmt.Errorf("%w: operation %d has unknown operator %v", ErrStructure, i, op))
			continue
		}
		checkRef(i, "arg1", args1[i])
		if op != expr.OpValue {
			checkRef(i, "arg2", args2[i])
		}
	}

	return result.ErrorOrNil()
}

func isNilLeaf(l expr.Leaf) bool {
	switch l := l.(type) {
	case nil:
		return true
	case *expr.Variable:
		return l == nil
	case *expr.Constant:
		return l == nil
	}
	return false
}

// Release drops the tape's references to shared constants. A constant whose
// count reaches zero is freed. Release must be called exactly once.
func (e *Evaluator) Release() {
	if e.released {
		panic("autodiff: evaluator released twice")
	}
	e.released = true
	for _, l := range e.leaves {
		if c, ok := l.(*expr.Constant); ok {
			c.Release()
		}
	}
}

// Released reports whether Release has been called.
func (e *Evaluator) Released() bool {
	return e.released
}

// NumOperators returns the tape length.
func (e *Evaluator) NumOperators() int {
	return len(e.ops)
}

// NumLeaves returns the number of leaf slots.
func (e *Evaluator) NumLeaves() int {
	return len(e.leaves)
}

// Leaves returns the captured leaves. The slice must not be modified.
func (e *Evaluator) Leaves() []expr.Leaf {
	return e.leaves
}

// Variables returns the distinct variables the tape reads, in the order
// they first occupy a leaf slot. The slice must not be modified.
func (e *Evaluator) Variables() []*expr.Variable {
	return e.vars
}

// String renders the tape as an infix expression.
func (e *Evaluator) String() string {
	return expr.NewExpression(e.ops, e.args1, e.args2, e.leaves).String()
}

func (e *Evaluator) mustBeLive() {
	if e.released {
		panic(ErrReleased)
	}
}
