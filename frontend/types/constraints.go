package types

import (
	"hash/fnv"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// ConstraintSet is the answer of a subtyping or assignability query:
// a boolean algebra over type variable range restrictions, kept in
// disjunctive normal form. A set is a disjunction of clauses, a clause
// a conjunction of signed range literals `lower <= T <= upper`. Ground
// queries degenerate to the always or never set. Sets are transient
// per query and immutable; And, Or and Negate build new sets.
type ConstraintSet struct {
	clauses []clause
}

type clause struct {
	literals []rangeLiteral
}

// rangeLiteral restricts one type variable to [lower, upper]. A
// negative literal states the variable lies outside the range.
type rangeLiteral struct {
	tv       *TypeVarDef
	lower    Type
	upper    Type
	positive bool
}

// AlwaysConstraints is the set satisfied by every assignment.
func AlwaysConstraints() ConstraintSet {
	return ConstraintSet{clauses: []clause{{}}}
}

// NeverConstraints is the unsatisfiable set.
func NeverConstraints() ConstraintSet {
	return ConstraintSet{}
}

// ConstraintsWhen lifts a ground answer into the algebra.
func ConstraintsWhen(ok bool) ConstraintSet {
	if ok {
		return AlwaysConstraints()
	}
	return NeverConstraints()
}

// constrainRange builds the set holding when lower <= tv <= upper.
// Trivial bounds (Never below, object above) are dropped; a literal
// trivial on both sides is always satisfied.
func (c *Ctx) constrainRange(tv *TypeVarDef, lower, upper Type) ConstraintSet {
	if lower == nil {
		lower = Never
	}
	if upper == nil {
		upper = c.Instance(c.reg.Builtins.Object)
	}
	lit := rangeLiteral{tv: tv, lower: lower, upper: upper, positive: true}
	if c.trivialLiteral(lit) {
		return AlwaysConstraints()
	}
	return ConstraintSet{clauses: []clause{{literals: []rangeLiteral{lit}}}}
}

func (c *Ctx) trivialLiteral(lit rangeLiteral) bool {
	return IsNever(lit.lower) && Equal(lit.upper, c.Instance(c.reg.Builtins.Object))
}

func (lit rangeLiteral) hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(lit.tv.Name))
	sum := h.Sum64()*31 + lit.tv.id
	sum = sum*31 + lit.lower.Hash()
	sum = sum*31 + lit.upper.Hash()
	if lit.positive {
		sum = sum*31 + 1
	}
	return sum
}

func (lit rangeLiteral) negated() rangeLiteral {
	lit.positive = !lit.positive
	return lit
}

func (lit rangeLiteral) String() string {
	var sb strings.Builder
	if !lit.positive {
		sb.WriteString("¬")
	}
	sb.WriteString("(")
	if !IsNever(lit.lower) {
		sb.WriteString(lit.lower.String())
		sb.WriteString(" ≤ ")
	}
	sb.WriteString(lit.tv.Name)
	if inst, ok := lit.upper.(instanceType); !ok || inst.class.Name != "object" {
		sb.WriteString(" ≤ ")
		sb.WriteString(lit.upper.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (cl clause) hash() uint64 {
	// commutative over literals, conjunction order is irrelevant
	var sum uint64
	for _, lit := range cl.literals {
		sum += lit.hash()
	}
	return sum*31 + 15487469
}

func (cl clause) String() string {
	if len(cl.literals) == 0 {
		return "always"
	}
	parts := make([]string, len(cl.literals))
	for i, lit := range cl.literals {
		parts[i] = lit.String()
	}
	return strings.Join(parts, " ∧ ")
}

// and conjoins a literal into the clause, merging with an existing
// positive literal on the same variable: lower bounds join, upper
// bounds meet. Returns false when the clause becomes unsatisfiable.
func (cl clause) and(c *Ctx, lit rangeLiteral) (clause, bool) {
	if lit.positive {
		for i, existing := range cl.literals {
			if existing.positive && existing.tv.id == lit.tv.id {
				merged := rangeLiteral{
					tv:       lit.tv,
					lower:    c.NewUnion(existing.lower, lit.lower),
					upper:    c.NewIntersection(existing.upper, lit.upper),
					positive: true,
				}
				if IsNever(merged.upper) && !IsNever(merged.lower) {
					return clause{}, false
				}
				out := slices.Clone(cl.literals)
				out[i] = merged
				return clause{literals: out}, true
			}
		}
	}
	for _, existing := range cl.literals {
		if existing.hash() == lit.negated().hash() {
			// a literal and its negation in one conjunction
			return clause{}, false
		}
		if existing.hash() == lit.hash() {
			return cl, true
		}
	}
	return clause{literals: append(slices.Clone(cl.literals), lit)}, true
}

func (cl clause) andClause(c *Ctx, other clause) (clause, bool) {
	out := cl
	ok := true
	for _, lit := range other.literals {
		out, ok = out.and(c, lit)
		if !ok {
			return clause{}, false
		}
	}
	return out, true
}

// IsAlwaysSatisfied reports the degenerate yes answer.
func (cs ConstraintSet) IsAlwaysSatisfied() bool {
	for _, cl := range cs.clauses {
		if len(cl.literals) == 0 {
			return true
		}
	}
	return false
}

// IsNeverSatisfied reports the degenerate no answer.
func (cs ConstraintSet) IsNeverSatisfied() bool {
	return len(cs.clauses) == 0
}

// Or disjoins two sets, deduplicating clauses.
func (cs ConstraintSet) Or(other ConstraintSet) ConstraintSet {
	if cs.IsAlwaysSatisfied() || other.IsNeverSatisfied() {
		return cs
	}
	if other.IsAlwaysSatisfied() || cs.IsNeverSatisfied() {
		return other
	}
	seen := set.New[uint64](len(cs.clauses) + len(other.clauses))
	var out []clause
	for _, cl := range append(slices.Clone(cs.clauses), other.clauses...) {
		if seen.Insert(cl.hash()) {
			out = append(out, cl)
		}
	}
	return ConstraintSet{clauses: out}
}

// And conjoins two sets by distributing clauses pairwise.
func (cs ConstraintSet) And(c *Ctx, other ConstraintSet) ConstraintSet {
	if cs.IsNeverSatisfied() || other.IsAlwaysSatisfied() {
		return cs
	}
	if other.IsNeverSatisfied() || cs.IsAlwaysSatisfied() {
		return other
	}
	seen := set.New[uint64](len(cs.clauses) * len(other.clauses))
	var out []clause
	for _, a := range cs.clauses {
		for _, b := range other.clauses {
			merged, ok := a.andClause(c, b)
			if !ok {
				continue
			}
			if len(merged.literals) == 0 {
				return AlwaysConstraints()
			}
			if seen.Insert(merged.hash()) {
				out = append(out, merged)
			}
		}
	}
	return ConstraintSet{clauses: out}
}

// Negate complements the set: the negation of a disjunction of
// conjunctions is re-distributed back into disjunctive normal form by
// conjoining, across clauses, the negation of each literal.
func (cs ConstraintSet) Negate(c *Ctx) ConstraintSet {
	if cs.IsNeverSatisfied() {
		return AlwaysConstraints()
	}
	if cs.IsAlwaysSatisfied() {
		return NeverConstraints()
	}
	out := AlwaysConstraints()
	for _, cl := range cs.clauses {
		negatedClause := NeverConstraints()
		for _, lit := range cl.literals {
			one := ConstraintSet{clauses: []clause{{literals: []rangeLiteral{lit.negated()}}}}
			negatedClause = negatedClause.Or(one)
		}
		out = out.And(c, negatedClause)
		if out.IsNeverSatisfied() {
			return out
		}
	}
	return out
}

func (cs ConstraintSet) String() string {
	if cs.IsNeverSatisfied() {
		return "never"
	}
	if cs.IsAlwaysSatisfied() {
		return "always"
	}
	parts := make([]string, len(cs.clauses))
	for i, cl := range cs.clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, " ∨ ")
}

// Solve searches the clauses in order for an assignment of the
// inferable variables. Within a clause each variable's positive ranges
// have already been merged, so the candidate is the lower bound when
// one exists, otherwise the upper bound; candidates are then verified
// against the clause's remaining literals. Variables outside gctx stay
// symbolic. No satisfiable clause means no specialization.
func (cs ConstraintSet) Solve(c *Ctx, gctx *GenericContext) (Specialization, bool) {
	for _, cl := range cs.clauses {
		if spec, ok := cl.solve(c, gctx); ok {
			return spec, true
		}
	}
	return Specialization{}, false
}

func (cl clause) solve(c *Ctx, gctx *GenericContext) (Specialization, bool) {
	spec := NewSpecialization()
	for _, lit := range cl.literals {
		if !lit.positive || gctx != nil && !gctx.Contains(lit.tv) {
			continue
		}
		var candidate Type
		switch {
		case !IsNever(lit.lower):
			candidate = lit.lower
		case !Equal(lit.upper, c.Instance(c.reg.Builtins.Object)):
			candidate = lit.upper
		default:
			candidate = Unknown
		}
		spec = spec.With(lit.tv, candidate)
	}
	// verify the assignment against every literal of the clause
	for _, lit := range cl.literals {
		bound, known := spec.Get(lit.tv)
		if !known {
			// symbolic variable, nothing to contradict
			continue
		}
		inRange := c.IsAssignableTo(lit.lower, bound) && c.IsAssignableTo(bound, lit.upper)
		if lit.positive != inRange {
			return Specialization{}, false
		}
	}
	return spec, true
}
