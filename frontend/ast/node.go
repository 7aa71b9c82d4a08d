package ast

import (
	"encoding/binary"
	"hash/fnv"
)

// Node is the base interface for all AST nodes.
type Node interface {
	Positioner
	Hash() uint64
}

// Expr is the interface for all expression nodes in the AST.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
}

// Stmt is the interface for all statement nodes in the AST.
type Stmt interface {
	Node
	stmtNode() // Marker method to distinguish statements
}

// Module represents one analyzed source module.
type Module struct {
	Range
	Name string
	Body []Stmt
}

func (m *Module) Hash() uint64 {
	h := fnv.New64a()
	arr := []byte("Module")
	_, _ = h.Write([]byte(m.Name))
	for _, stmt := range m.Body {
		arr = binary.LittleEndian.AppendUint64(arr, stmt.Hash())
	}
	_, _ = h.Write(arr)
	return h.Sum64()
}

// hashNode folds a variant name, the node's range and any child hashes
// into a single fnv-1a hash. Nil children are skipped.
func hashNode(name string, r Range, children ...Node) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	arr := []byte{}
	arr = binary.LittleEndian.AppendUint64(arr, uint64(r.PosStart))
	arr = binary.LittleEndian.AppendUint64(arr, uint64(r.PosEnd))
	for _, child := range children {
		if child == nil {
			continue
		}
		arr = binary.LittleEndian.AppendUint64(arr, child.Hash())
	}
	_, _ = h.Write(arr)
	return h.Sum64()
}
