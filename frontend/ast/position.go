package ast

import (
	"fmt"
	"go/token"
)

// Positioner allows finding the location in the original source file.
// The easiest way to be a Positioner is to embed a Range.
type Positioner interface {
	Pos() token.Pos // position of first character belonging to the node
	End() token.Pos // position of first character immediately after the node
}

// Range represents a range of positions in the source code.
type Range struct {
	PosStart token.Pos
	PosEnd   token.Pos
}

func (r Range) Pos() token.Pos { return r.PosStart }
func (r Range) End() token.Pos { return r.PosEnd }

func (r Range) String() string {
	if r.PosStart == r.PosEnd {
		return fmt.Sprintf("%v", r.PosStart)
	}
	return fmt.Sprintf("%v-%v", r.PosStart, r.PosEnd)
}

// RangeAt builds a Range from byte offsets, as produced by the fixture reader.
func RangeAt(start, end int) Range {
	return Range{PosStart: token.Pos(start), PosEnd: token.Pos(end)}
}

// RangeBetween creates a Range spanning two Positioners.
func RangeBetween(fst, snd Positioner) Range {
	return Range{fst.Pos(), snd.End()}
}

// RangeOf creates a Range from a Positioner.
func RangeOf(expr Positioner) Range {
	if expr == nil {
		return Range{}
	}
	if asRange, ok := expr.(Range); ok {
		return asRange
	}
	if asRange, ok := expr.(*Range); ok {
		return *asRange
	}
	return Range{expr.Pos(), expr.End()}
}
