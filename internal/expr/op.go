package expr

import "fmt"

// Op is an operator code in a flattened expression.
type Op uint8

// Supported operators.
const (
	OpValue    Op = iota // Copies arg1; arg2 is ignored
	OpAdd                // arg1 + arg2
	OpSubtract           // arg1 - arg2
	OpMultiply           // arg1 * arg2
	OpDivide             // arg1 / arg2
	OpPower              // arg1 ** arg2
)

// Valid reports whether op is a known operator code.
func (op Op) Valid() bool {
	return op <= OpPower
}

// String returns the operator name.
func (op Op) String() string {
	switch op {
	case OpValue:
		return "VALUE"
	case OpAdd:
		return "ADD"
	case OpSubtract:
		return "SUBTRACT"
	case OpMultiply:
		return "MULTIPLY"
	case OpDivide:
		return "DIVIDE"
	case OpPower:
		return "POWER"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// Symbol returns the infix symbol used when rendering expressions.
func (op Op) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpPower:
		return "**"
	default:
		return ""
	}
}

// RefKind tells what an operation argument points at.
type RefKind uint8

const (
	// LeafRef indexes the leaves array.
	LeafRef RefKind = iota
	// OpRef indexes the result of an earlier operation.
	OpRef
)

// Ref is an operation argument: either a leaf slot or a previous result.
type Ref struct {
	Kind  RefKind
	Index int
}

// LeafArg returns a reference to leaf slot i.
func LeafArg(i int) Ref { return Ref{Kind: LeafRef, Index: i} }

// OpArg returns a reference to the result of operation i.
func OpArg(i int) Ref { return Ref{Kind: OpRef, Index: i} }

// IsLeaf reports whether r points into the leaves array.
func (r Ref) IsLeaf() bool { return r.Kind == LeafRef }

func (r Ref) String() string {
	if r.Kind == LeafRef {
		return fmt.Sprintf("leaf[%d]", r.Index)
	}
	return fmt.Sprintf("op[%d]", r.Index)
}

// EncodeRef converts r to the signed integer form used by flat arrays:
// leaf i is i, operation i is -i-1.
func EncodeRef(r Ref) int {
	if r.Kind == LeafRef {
		return r.Index
	}
	return -r.Index - 1
}

// DecodeRef is the inverse of EncodeRef.
func DecodeRef(n int) Ref {
	if n >= 0 {
		return LeafArg(n)
	}
	return OpArg(-n - 1)
}
