package ast

import (
	"encoding/binary"
	"hash/fnv"
)

var (
	_ Expr = (*NameExpr)(nil)
	_ Expr = (*IntLit)(nil)
	_ Expr = (*FloatLit)(nil)
	_ Expr = (*StringLit)(nil)
	_ Expr = (*FStringLit)(nil)
	_ Expr = (*BytesLit)(nil)
	_ Expr = (*BoolLit)(nil)
	_ Expr = (*NoneLit)(nil)
	_ Expr = (*EllipsisLit)(nil)
	_ Expr = (*TupleExpr)(nil)
	_ Expr = (*ListExpr)(nil)
	_ Expr = (*AttributeExpr)(nil)
	_ Expr = (*SubscriptExpr)(nil)
	_ Expr = (*SliceExpr)(nil)
	_ Expr = (*StarredExpr)(nil)
	_ Expr = (*CallExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*BoolExpr)(nil)
	_ Expr = (*CompareExpr)(nil)
	_ Expr = (*LambdaExpr)(nil)
	_ Expr = (*AwaitExpr)(nil)
	_ Expr = (*YieldExpr)(nil)
	_ Expr = (*ComprehensionExpr)(nil)
)

// NameExpr is a bare identifier use.
type NameExpr struct {
	Range
	Name string
}

func (*NameExpr) exprNode() {}
func (e *NameExpr) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("Name"))
	_, _ = h.Write([]byte(e.Name))
	return h.Sum64() ^ uint64(e.PosStart)
}

// IntLit is an integer literal.
type IntLit struct {
	Range
	Value int64
}

func (*IntLit) exprNode() {}
func (e *IntLit) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Int")
	arr = binary.LittleEndian.AppendUint64(arr, uint64(e.Value))
	arr = binary.LittleEndian.AppendUint64(arr, uint64(e.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// FloatLit keeps its source text: the engine only ever needs the float
// class, never the numeric value.
type FloatLit struct {
	Range
	Text string
}

func (*FloatLit) exprNode() {}
func (e *FloatLit) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("Float"))
	_, _ = h.Write([]byte(e.Text))
	return h.Sum64() ^ uint64(e.PosStart)
}

// StringLit is a plain (non-formatted) string literal.
type StringLit struct {
	Range
	Value string
}

func (*StringLit) exprNode() {}
func (e *StringLit) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("Str"))
	_, _ = h.Write([]byte(e.Value))
	return h.Sum64() ^ uint64(e.PosStart)
}

// FStringLit is a formatted string; Parts alternates literal StringLit
// segments and interpolated expressions.
type FStringLit struct {
	Range
	Parts []Expr
}

func (*FStringLit) exprNode() {}
func (e *FStringLit) Hash() uint64 {
	return hashNode("FString", e.Range, exprNodes(e.Parts)...)
}

// BytesLit is a bytes literal.
type BytesLit struct {
	Range
	Value string
}

func (*BytesLit) exprNode() {}
func (e *BytesLit) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("BytesLit"))
	_, _ = h.Write([]byte(e.Value))
	return h.Sum64() ^ uint64(e.PosStart)
}

// BoolLit is True or False.
type BoolLit struct {
	Range
	Value bool
}

func (*BoolLit) exprNode() {}
func (e *BoolLit) Hash() uint64 {
	h := fnv.New64a()
	if e.Value {
		_, _ = h.Write([]byte("True"))
	} else {
		_, _ = h.Write([]byte("False"))
	}
	return h.Sum64() ^ uint64(e.PosStart)
}

// NoneLit is the None constant.
type NoneLit struct {
	Range
}

func (*NoneLit) exprNode() {}
func (e *NoneLit) Hash() uint64 { return hashNode("None", e.Range) }

// EllipsisLit is the ... constant.
type EllipsisLit struct {
	Range
}

func (*EllipsisLit) exprNode() {}
func (e *EllipsisLit) Hash() uint64 { return hashNode("Ellipsis", e.Range) }

// TupleExpr is a tuple display, parenthesized or not.
type TupleExpr struct {
	Range
	Elems []Expr
}

func (*TupleExpr) exprNode() {}
func (e *TupleExpr) Hash() uint64 {
	return hashNode("TupleExpr", e.Range, exprNodes(e.Elems)...)
}

// ListExpr is a list display.
type ListExpr struct {
	Range
	Elems []Expr
}

func (*ListExpr) exprNode() {}
func (e *ListExpr) Hash() uint64 {
	return hashNode("ListExpr", e.Range, exprNodes(e.Elems)...)
}

// AttributeExpr is `Value.Attr`.
type AttributeExpr struct {
	Range
	Value Expr
	Attr  string
}

func (*AttributeExpr) exprNode() {}
func (e *AttributeExpr) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Attribute")
	_, _ = h.Write([]byte(e.Attr))
	arr = binary.LittleEndian.AppendUint64(arr, e.Value.Hash())
	arr = binary.LittleEndian.AppendUint64(arr, uint64(e.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// SubscriptExpr is `Value[Index]`.
type SubscriptExpr struct {
	Range
	Value Expr
	Index Expr
}

func (*SubscriptExpr) exprNode() {}
func (e *SubscriptExpr) Hash() uint64 {
	return hashNode("Subscript", e.Range, e.Value, e.Index)
}

// SliceExpr is `lower:upper:step` inside a subscript. Any part may be nil.
type SliceExpr struct {
	Range
	Lower, Upper, Step Expr
}

func (*SliceExpr) exprNode() {}
func (e *SliceExpr) Hash() uint64 {
	return hashNode("Slice", e.Range, e.Lower, e.Upper, e.Step)
}

// StarredExpr is `*Value` in a call or display.
type StarredExpr struct {
	Range
	Value Expr
}

func (*StarredExpr) exprNode() {}
func (e *StarredExpr) Hash() uint64 {
	return hashNode("Starred", e.Range, e.Value)
}

// Keyword is a `name=value` argument in a call or class header.
type Keyword struct {
	Range
	Name  string
	Value Expr
}

func (k *Keyword) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Keyword")
	_, _ = h.Write([]byte(k.Name))
	arr = binary.LittleEndian.AppendUint64(arr, k.Value.Hash())
	arr = binary.LittleEndian.AppendUint64(arr, uint64(k.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// CallExpr is `Func(Args..., Keywords...)`.
type CallExpr struct {
	Range
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

func (*CallExpr) exprNode() {}
func (e *CallExpr) Hash() uint64 {
	children := make([]Node, 0, len(e.Args)+len(e.Keywords)+1)
	children = append(children, e.Func)
	for _, arg := range e.Args {
		children = append(children, arg)
	}
	for _, kw := range e.Keywords {
		children = append(children, kw)
	}
	return hashNode("Call", e.Range, children...)
}

// BinaryExpr is `Left Op Right`.
type BinaryExpr struct {
	Range
	Op          BinaryOp
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}
func (e *BinaryExpr) Hash() uint64 {
	return hashNode("Binary"+e.Op.String(), e.Range, e.Left, e.Right)
}

// UnaryExpr is `Op Operand`.
type UnaryExpr struct {
	Range
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}
func (e *UnaryExpr) Hash() uint64 {
	return hashNode("Unary"+e.Op.String(), e.Range, e.Operand)
}

// BoolExpr is an `and`/`or` chain of two or more values.
type BoolExpr struct {
	Range
	Op     BoolOp
	Values []Expr
}

func (*BoolExpr) exprNode() {}
func (e *BoolExpr) Hash() uint64 {
	return hashNode("Bool"+e.Op.String(), e.Range, exprNodes(e.Values)...)
}

// CompareExpr is a comparison chain: Left Ops[0] Comparators[0] Ops[1] ...
// len(Ops) == len(Comparators) >= 1.
type CompareExpr struct {
	Range
	Left        Expr
	Ops         []CompareOp
	Comparators []Expr
}

func (*CompareExpr) exprNode() {}
func (e *CompareExpr) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Compare")
	for _, op := range e.Ops {
		_, _ = h.Write([]byte(op.String()))
	}
	arr = binary.LittleEndian.AppendUint64(arr, e.Left.Hash())
	for _, c := range e.Comparators {
		arr = binary.LittleEndian.AppendUint64(arr, c.Hash())
	}
	arr = binary.LittleEndian.AppendUint64(arr, uint64(e.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// LambdaExpr is `lambda Params: Body`. Parameters are never annotated.
type LambdaExpr struct {
	Range
	Params []string
	Body   Expr
}

func (*LambdaExpr) exprNode() {}
func (e *LambdaExpr) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Lambda")
	for _, p := range e.Params {
		_, _ = h.Write([]byte(p))
	}
	arr = binary.LittleEndian.AppendUint64(arr, e.Body.Hash())
	arr = binary.LittleEndian.AppendUint64(arr, uint64(e.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// AwaitExpr is `await Value`.
type AwaitExpr struct {
	Range
	Value Expr
}

func (*AwaitExpr) exprNode() {}
func (e *AwaitExpr) Hash() uint64 { return hashNode("Await", e.Range, e.Value) }

// YieldExpr is `yield` or `yield Value`; Value may be nil.
type YieldExpr struct {
	Range
	Value Expr
}

func (*YieldExpr) exprNode() {}
func (e *YieldExpr) Hash() uint64 { return hashNode("Yield", e.Range, e.Value) }

// ComprehensionExpr covers generator, list and set comprehensions; the
// engine only needs to recognize the form, not evaluate it.
type ComprehensionExpr struct {
	Range
	Element Expr
	Target  string
	Iter    Expr
}

func (*ComprehensionExpr) exprNode() {}
func (e *ComprehensionExpr) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Comprehension")
	_, _ = h.Write([]byte(e.Target))
	arr = binary.LittleEndian.AppendUint64(arr, e.Element.Hash())
	arr = binary.LittleEndian.AppendUint64(arr, e.Iter.Hash())
	arr = binary.LittleEndian.AppendUint64(arr, uint64(e.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

func exprNodes(exprs []Expr) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}
