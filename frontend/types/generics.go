package types

import (
	"fmt"
	"iter"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Variance of a type parameter position.
type Variance int

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

// Flip reverses the variance, for contravariant positions like
// callable parameters.
func (v Variance) Flip() Variance {
	switch v {
	case Covariant:
		return Contravariant
	case Contravariant:
		return Covariant
	default:
		return Invariant
	}
}

// TypeVarDef declares a type variable. Identity is the allocation id:
// two variables with the same name but different declarations stay
// distinct, and a variable equals only itself.
type TypeVarDef struct {
	id   uint64
	Name string
	// Bound is the upper bound, nil when unbounded.
	Bound Type
	// Constraints is the value-constraint list; when non-empty the
	// variable ranges over exactly these types and Bound is unused.
	Constraints []Type
	Variance    Variance
	// Default fills omitted specialization slots, nil when absent.
	Default Type
}

func (d *TypeVarDef) String() string { return d.Name }

// BoundOrObject gives the upper bound used for member resolution.
func (d *TypeVarDef) BoundOrObject(ctx *Ctx) Type {
	if d.Bound != nil {
		return d.Bound
	}
	return ctx.Instance(ctx.reg.Builtins.Object)
}

// GenericContext is the ordered set of type variables a declaration
// binds, deduplicated by identity in first-appearance order.
type GenericContext struct {
	vars []*TypeVarDef
	seen map[uint64]struct{}
}

func NewGenericContext(vars ...*TypeVarDef) *GenericContext {
	g := &GenericContext{seen: make(map[uint64]struct{}, len(vars))}
	for _, v := range vars {
		g.Add(v)
	}
	return g
}

func (g *GenericContext) Add(v *TypeVarDef) {
	if _, ok := g.seen[v.id]; ok {
		return
	}
	g.seen[v.id] = struct{}{}
	g.vars = append(g.vars, v)
}

// CollectFrom adds every type variable occurring in t, walking nested
// types depth-first so appearance order is deterministic.
func (g *GenericContext) CollectFrom(t Type) {
	if tv, ok := t.(typeVarType); ok {
		g.Add(tv.def)
	}
	for child := range t.children() {
		g.CollectFrom(child)
	}
}

func (g *GenericContext) Len() int { return len(g.vars) }

func (g *GenericContext) Vars() []*TypeVarDef { return g.vars }

func (g *GenericContext) Contains(v *TypeVarDef) bool {
	_, ok := g.seen[v.id]
	return ok
}

// Specialization maps type variables to argument types. It is a
// persistent structure: With returns a derived specialization and
// leaves the receiver untouched, so partially applied specializations
// can be shared across branches of a resolution.
type Specialization struct {
	m *immutable.Map[uint64, Type]
}

func NewSpecialization() Specialization {
	return Specialization{m: immutable.NewMap[uint64, Type](nil)}
}

func (s Specialization) With(v *TypeVarDef, t Type) Specialization {
	if s.m == nil {
		s = NewSpecialization()
	}
	return Specialization{m: s.m.Set(v.id, t)}
}

func (s Specialization) Get(v *TypeVarDef) (Type, bool) {
	if s.m == nil {
		return nil, false
	}
	return s.m.Get(v.id)
}

func (s Specialization) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

func (s Specialization) String() string {
	if s.m == nil || s.m.Len() == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	itr := s.m.Iterator()
	for !itr.Done() {
		id, t, _ := itr.Next()
		if !first {
			sb.WriteString(", ")
		}
		first = false
		_, _ = fmt.Fprintf(&sb, "%d=%s", id, t)
	}
	sb.WriteByte('}')
	return sb.String()
}

// Apply substitutes mapped variables throughout t. Unions,
// intersections and tuples are rebuilt through the canonicalizing
// constructors so substitution results stay in canonical form.
func (s Specialization) Apply(ctx *Ctx, t Type) Type {
	if s.Len() == 0 {
		return t
	}
	switch t := t.(type) {
	case typeVarType:
		if mapped, ok := s.Get(t.def); ok {
			return mapped
		}
		return t
	case unionType:
		members := make([]Type, 0, len(t.members))
		for _, m := range t.members {
			members = append(members, s.Apply(ctx, m))
		}
		return ctx.NewUnion(members...)
	case intersectionType:
		pos := make([]Type, 0, len(t.positive))
		for _, p := range t.positive {
			pos = append(pos, s.Apply(ctx, p))
		}
		neg := make([]Type, 0, len(t.negative))
		for _, n := range t.negative {
			neg = append(neg, s.Apply(ctx, n))
		}
		return ctx.NewIntersectionWithNegations(pos, neg)
	case tupleType:
		elems := make([]Type, 0, len(t.elems))
		for _, e := range t.elems {
			elems = append(elems, s.Apply(ctx, e))
		}
		return ctx.NewTuple(elems...)
	default:
		return ctx.intern(t.doMap(func(child Type) Type {
			return s.Apply(ctx, child)
		}))
	}
}

// specializationOf pairs a class's parameters with explicit arguments,
// filling trailing omissions from parameter defaults and padding the
// rest with Unknown.
func specializationOf(params []*TypeVarDef, args []Type) Specialization {
	spec := NewSpecialization()
	for i, p := range params {
		switch {
		case i < len(args):
			spec = spec.With(p, args[i])
		case p.Default != nil:
			spec = spec.With(p, p.Default)
		default:
			spec = spec.With(p, Unknown)
		}
	}
	return spec
}

// constraintChoices enumerates every way of pinning the constrained
// variables among vars to one of their constraints. Variables without
// value constraints are left free. The empty product yields a single
// empty specialization.
func constraintChoices(vars []*TypeVarDef) iter.Seq[Specialization] {
	constrained := make([]*TypeVarDef, 0, len(vars))
	for _, v := range vars {
		if len(v.Constraints) > 0 {
			constrained = append(constrained, v)
		}
	}
	return func(yield func(Specialization) bool) {
		var walk func(i int, acc Specialization) bool
		walk = func(i int, acc Specialization) bool {
			if i == len(constrained) {
				return yield(acc)
			}
			for _, c := range constrained[i].Constraints {
				if !walk(i+1, acc.With(constrained[i], c)) {
					return false
				}
			}
			return true
		}
		walk(0, NewSpecialization())
	}
}
