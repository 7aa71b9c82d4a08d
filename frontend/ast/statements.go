package ast

import (
	"encoding/binary"
	"hash/fnv"
)

var (
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*AssignStmt)(nil)
	_ Stmt = (*AnnAssignStmt)(nil)
	_ Stmt = (*FunctionDefStmt)(nil)
	_ Stmt = (*ClassDefStmt)(nil)
	_ Stmt = (*ReturnStmt)(nil)
	_ Stmt = (*PassStmt)(nil)
)

// ExprStmt is a bare expression evaluated for effect.
type ExprStmt struct {
	Range
	Value Expr
}

func (*ExprStmt) stmtNode() {}
func (s *ExprStmt) Hash() uint64 {
	return hashNode("ExprStmt", s.Range, s.Value)
}

// AssignStmt is `Target = Value` without an annotation.
type AssignStmt struct {
	Range
	Target Expr
	Value  Expr
}

func (*AssignStmt) stmtNode() {}
func (s *AssignStmt) Hash() uint64 {
	return hashNode("Assign", s.Range, s.Target, s.Value)
}

// AnnAssignStmt is `Target: Annotation` or `Target: Annotation = Value`.
type AnnAssignStmt struct {
	Range
	Target     Expr
	Annotation Expr
	Value      Expr // may be nil
}

func (*AnnAssignStmt) stmtNode() {}
func (s *AnnAssignStmt) Hash() uint64 {
	return hashNode("AnnAssign", s.Range, s.Target, s.Annotation, s.Value)
}

// ParamKind distinguishes the parameter markers of a function signature.
type ParamKind int

const (
	ParamPositionalOnly ParamKind = iota
	ParamPositionalOrKeyword
	ParamKeywordOnly
	ParamVarPositional // *args
	ParamVarKeyword    // **kwargs
)

func (k ParamKind) String() string {
	switch k {
	case ParamPositionalOnly:
		return "positional-only"
	case ParamPositionalOrKeyword:
		return "positional-or-keyword"
	case ParamKeywordOnly:
		return "keyword-only"
	case ParamVarPositional:
		return "*args"
	default:
		return "**kwargs"
	}
}

// Param is one formal parameter of a function definition.
type Param struct {
	Range
	Name       string
	Kind       ParamKind
	Annotation Expr // may be nil
	Default    Expr // may be nil
}

func (p *Param) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Param")
	_, _ = h.Write([]byte(p.Name))
	_, _ = h.Write([]byte(p.Kind.String()))
	if p.Annotation != nil {
		arr = binary.LittleEndian.AppendUint64(arr, p.Annotation.Hash())
	}
	if p.Default != nil {
		arr = binary.LittleEndian.AppendUint64(arr, p.Default.Hash())
	}
	arr = binary.LittleEndian.AppendUint64(arr, uint64(p.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// FunctionDefStmt is a `def` statement.
type FunctionDefStmt struct {
	Range
	Name       string
	Decorators []Expr
	Params     []*Param
	Returns    Expr // may be nil
	Body       []Stmt
}

func (*FunctionDefStmt) stmtNode() {}
func (s *FunctionDefStmt) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("FunctionDef")
	_, _ = h.Write([]byte(s.Name))
	for _, d := range s.Decorators {
		arr = binary.LittleEndian.AppendUint64(arr, d.Hash())
	}
	for _, p := range s.Params {
		arr = binary.LittleEndian.AppendUint64(arr, p.Hash())
	}
	if s.Returns != nil {
		arr = binary.LittleEndian.AppendUint64(arr, s.Returns.Hash())
	}
	for _, stmt := range s.Body {
		arr = binary.LittleEndian.AppendUint64(arr, stmt.Hash())
	}
	arr = binary.LittleEndian.AppendUint64(arr, uint64(s.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// HasDecorator reports whether a decorator with the given bare name appears.
func (s *FunctionDefStmt) HasDecorator(name string) bool {
	for _, d := range s.Decorators {
		if n, ok := d.(*NameExpr); ok && n.Name == name {
			return true
		}
	}
	return false
}

// ClassDefStmt is a `class` statement.
type ClassDefStmt struct {
	Range
	Name       string
	Decorators []Expr
	Bases      []Expr
	Keywords   []*Keyword // includes metaclass=
	Body       []Stmt
}

func (*ClassDefStmt) stmtNode() {}
func (s *ClassDefStmt) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("ClassDef")
	_, _ = h.Write([]byte(s.Name))
	for _, d := range s.Decorators {
		arr = binary.LittleEndian.AppendUint64(arr, d.Hash())
	}
	for _, b := range s.Bases {
		arr = binary.LittleEndian.AppendUint64(arr, b.Hash())
	}
	for _, kw := range s.Keywords {
		arr = binary.LittleEndian.AppendUint64(arr, kw.Hash())
	}
	for _, stmt := range s.Body {
		arr = binary.LittleEndian.AppendUint64(arr, stmt.Hash())
	}
	arr = binary.LittleEndian.AppendUint64(arr, uint64(s.PosStart))
	_, _ = h.Write(arr)
	return h.Sum64()
}

// HasDecorator reports whether a decorator with the given bare name appears.
func (s *ClassDefStmt) HasDecorator(name string) bool {
	for _, d := range s.Decorators {
		if n, ok := d.(*NameExpr); ok && n.Name == name {
			return true
		}
	}
	return false
}

// MetaclassKeyword returns the metaclass= argument, if present.
func (s *ClassDefStmt) MetaclassKeyword() (Expr, bool) {
	for _, kw := range s.Keywords {
		if kw.Name == "metaclass" {
			return kw.Value, true
		}
	}
	return nil, false
}

// ReturnStmt is `return` or `return Value`; Value may be nil.
type ReturnStmt struct {
	Range
	Value Expr
}

func (*ReturnStmt) stmtNode() {}
func (s *ReturnStmt) Hash() uint64 {
	return hashNode("Return", s.Range, s.Value)
}

// PassStmt is `pass` (or a bare `...` body in stubs).
type PassStmt struct {
	Range
}

func (*PassStmt) stmtNode() {}
func (s *PassStmt) Hash() uint64 { return hashNode("Pass", s.Range) }
