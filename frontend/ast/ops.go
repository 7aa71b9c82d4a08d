package ast

// BinaryOp is a binary arithmetic or bitwise operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpMatMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpPow
	OpLShift
	OpRShift
	OpBitOr
	OpBitXor
	OpBitAnd
)

var binaryOpNames = [...]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpMatMul:   "@",
	OpTrueDiv:  "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
	OpLShift:   "<<",
	OpRShift:   ">>",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpBitAnd:   "&",
}

var binaryOpDunders = [...]string{
	OpAdd:      "__add__",
	OpSub:      "__sub__",
	OpMul:      "__mul__",
	OpMatMul:   "__matmul__",
	OpTrueDiv:  "__truediv__",
	OpFloorDiv: "__floordiv__",
	OpMod:      "__mod__",
	OpPow:      "__pow__",
	OpLShift:   "__lshift__",
	OpRShift:   "__rshift__",
	OpBitOr:    "__or__",
	OpBitXor:   "__xor__",
	OpBitAnd:   "__and__",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// Dunder is the special method tried on the left operand.
func (op BinaryOp) Dunder() string { return binaryOpDunders[op] }

// ReflectedDunder is the right-hand counterpart of Dunder.
func (op BinaryOp) ReflectedDunder() string {
	d := binaryOpDunders[op]
	return "__r" + d[2:]
}

// UnaryOp is a unary operator. OpNot dispatches on truthiness
// rather than a special method, so it has no dunder.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPos
	OpInvert
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	case OpInvert:
		return "~"
	default:
		return "not"
	}
}

func (op UnaryOp) Dunder() string {
	switch op {
	case OpNeg:
		return "__neg__"
	case OpPos:
		return "__pos__"
	case OpInvert:
		return "__invert__"
	default:
		return ""
	}
}

// BoolOp is a short-circuiting boolean operator.
type BoolOp int

const (
	BoolAnd BoolOp = iota
	BoolOr
)

func (op BoolOp) String() string {
	if op == BoolAnd {
		return "and"
	}
	return "or"
}

// CompareOp is a comparison (or identity/containment) operator.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpIs
	CmpIsNot
	CmpIn
	CmpNotIn
)

var compareOpNames = [...]string{
	CmpEq:    "==",
	CmpNe:    "!=",
	CmpLt:    "<",
	CmpLe:    "<=",
	CmpGt:    ">",
	CmpGe:    ">=",
	CmpIs:    "is",
	CmpIsNot: "is not",
	CmpIn:    "in",
	CmpNotIn: "not in",
}

func (op CompareOp) String() string { return compareOpNames[op] }

// Dunder is the special method tried on the left operand.
// Identity and containment operators resolve differently and return "".
func (op CompareOp) Dunder() string {
	switch op {
	case CmpEq:
		return "__eq__"
	case CmpNe:
		return "__ne__"
	case CmpLt:
		return "__lt__"
	case CmpLe:
		return "__le__"
	case CmpGt:
		return "__gt__"
	case CmpGe:
		return "__ge__"
	default:
		return ""
	}
}

// ReflectedDunder is the dunder tried on the right operand: the mirrored
// ordering for < <= > >=, and the same symmetric method for == and !=.
func (op CompareOp) ReflectedDunder() string {
	switch op {
	case CmpEq:
		return "__eq__"
	case CmpNe:
		return "__ne__"
	case CmpLt:
		return "__gt__"
	case CmpLe:
		return "__ge__"
	case CmpGt:
		return "__lt__"
	case CmpGe:
		return "__le__"
	default:
		return ""
	}
}

// IsOrdering reports whether op is one of < <= > >=, which have no
// identity fallback.
func (op CompareOp) IsOrdering() bool {
	switch op {
	case CmpLt, CmpLe, CmpGt, CmpGe:
		return true
	default:
		return false
	}
}

// Swapped mirrors an ordering operator for tuple lexicographic comparison.
func (op CompareOp) Swapped() CompareOp {
	switch op {
	case CmpLt:
		return CmpGt
	case CmpLe:
		return CmpGe
	case CmpGt:
		return CmpLt
	case CmpGe:
		return CmpLe
	default:
		return op
	}
}
