package types

import (
	"github.com/krait-dev/krait/frontend/ast"
)

// The subtype and assignability relations share one recursion,
// parameterized by kind. Assignability is subtyping with the gradual
// base case injected at every comparison point: a dynamic type on
// either side succeeds against everything but Never. Queries return
// ConstraintSets so checks against type variables stay symbolic;
// ground queries come back as the always or never set.

type relationKind uint8

const (
	relSubtype relationKind = iota
	relAssignable
)

type relKey struct {
	a, b uint64
	kind relationKind
}

type relChecker struct {
	ctx  *Ctx
	kind relationKind
	// visited holds the derivation path for coinduction: a pair under
	// derivation is assumed to hold when revisited, which terminates
	// recursive protocols and self-referential generics.
	visited map[relKey]struct{}
}

func newRelChecker(ctx *Ctx, kind relationKind) *relChecker {
	return &relChecker{ctx: ctx, kind: kind, visited: make(map[relKey]struct{}, 8)}
}

func (r *relChecker) gradual() bool { return r.kind == relAssignable }

func (r *relChecker) check(a, b Type) ConstraintSet {
	if a == nil || b == nil {
		r.ctx.addFailure("nil type in relation check")
		return NeverConstraints()
	}
	if Equal(a, b) {
		return AlwaysConstraints()
	}
	if !r.ctx.guardDepth() {
		r.ctx.unguardDepth()
		return NeverConstraints()
	}
	defer r.ctx.unguardDepth()

	key := relKey{a: a.Hash(), b: b.Hash(), kind: r.kind}
	if _, onPath := r.visited[key]; onPath {
		return AlwaysConstraints()
	}
	r.visited[key] = struct{}{}
	defer delete(r.visited, key)

	if IsNever(a) {
		return AlwaysConstraints()
	}
	if dyn := r.dynamicCase(a, b); dyn != nil {
		return *dyn
	}
	if IsNever(b) {
		return NeverConstraints()
	}

	if tv, ok := a.(typeVarType); ok {
		return r.typeVarOnLeft(tv, b)
	}
	if tv, ok := b.(typeVarType); ok {
		return r.typeVarOnRight(a, tv)
	}

	if u, ok := a.(unionType); ok {
		out := AlwaysConstraints()
		for _, m := range u.members {
			out = out.And(r.ctx, r.check(m, b))
			if out.IsNeverSatisfied() {
				return out
			}
		}
		return out
	}
	if u, ok := b.(unionType); ok {
		out := NeverConstraints()
		for _, m := range u.members {
			out = out.Or(r.check(a, m))
			if out.IsAlwaysSatisfied() {
				return out
			}
		}
		// a may still decompose into pieces the alternatives absorb,
		// e.g. bool against Literal[True] | Literal[False]
		if expanded, ok := expandType(r.ctx, a); ok {
			out = out.Or(r.check(expanded, b))
		}
		return out
	}

	if in, ok := a.(intersectionType); ok {
		return r.intersectionOnLeft(in, b)
	}
	if in, ok := b.(intersectionType); ok {
		return r.intersectionOnRight(a, in)
	}

	switch b := b.(type) {
	case alwaysTruthyType:
		truthy, known := literalTruthiness(a)
		return ConstraintsWhen(known && truthy)
	case alwaysFalsyType:
		truthy, known := literalTruthiness(a)
		return ConstraintsWhen(known && !truthy)
	case literalStringType:
		_, isStrLit := a.(stringLiteral)
		return ConstraintsWhen(isStrLit)
	case tupleType:
		return r.tupleAgainstFixed(a, b)
	case variadicTupleType:
		return r.tupleAgainstVariadic(a, b)
	case subclassOfType:
		return r.againstSubclassOf(a, b)
	case callableType:
		return r.againstCallable(a, b)
	case instanceType:
		return r.againstInstance(a, b)
	}
	return NeverConstraints()
}

// dynamicCase resolves pairs involving the dynamic type; nil means the
// pair is not a dynamic case.
func (r *relChecker) dynamicCase(a, b Type) *ConstraintSet {
	aDyn, bDyn := IsDynamic(a), IsDynamic(b)
	if !aDyn && !bDyn {
		return nil
	}
	var out ConstraintSet
	if r.gradual() {
		// Unknown stands in for anything, but nothing stands in for Never
		out = ConstraintsWhen(!IsNever(b))
	} else {
		out = ConstraintsWhen(aDyn && bDyn)
	}
	return &out
}

func (r *relChecker) typeVarOnLeft(tv typeVarType, b Type) ConstraintSet {
	def := tv.def
	if len(def.Constraints) > 0 {
		// a constrained variable relates only if every pin does
		out := AlwaysConstraints()
		for _, choice := range def.Constraints {
			out = out.And(r.ctx, r.check(choice, b))
		}
		return out
	}
	out := r.ctx.constrainRange(def, nil, b)
	if def.Bound != nil {
		// the declared bound may already settle the question
		out = r.check(def.Bound, b).Or(out)
	}
	return out
}

func (r *relChecker) typeVarOnRight(a Type, tv typeVarType) ConstraintSet {
	def := tv.def
	if len(def.Constraints) > 0 {
		out := NeverConstraints()
		for _, choice := range def.Constraints {
			pinned := r.ctx.constrainRange(def, choice, choice)
			out = out.Or(pinned.And(r.ctx, r.check(a, choice)))
		}
		return out
	}
	return r.ctx.constrainRange(def, a, nil)
}

func (r *relChecker) intersectionOnLeft(a intersectionType, b Type) ConstraintSet {
	out := NeverConstraints()
	for _, p := range a.positive {
		out = out.Or(r.check(p, b))
		if out.IsAlwaysSatisfied() {
			return out
		}
	}
	if len(a.positive) == 0 {
		// a pure negation still sits below object
		out = out.Or(r.check(r.ctx.Instance(r.ctx.reg.Builtins.Object), b))
	}
	return out
}

func (r *relChecker) intersectionOnRight(a Type, b intersectionType) ConstraintSet {
	out := AlwaysConstraints()
	for _, p := range b.positive {
		out = out.And(r.ctx, r.check(a, p))
		if out.IsNeverSatisfied() {
			return out
		}
	}
	for _, n := range b.negative {
		out = out.And(r.ctx, ConstraintsWhen(r.ctx.IsDisjointFrom(a, n)))
		if out.IsNeverSatisfied() {
			return out
		}
	}
	return out
}

// expandType rewrites a type into an equivalent union of finer pieces:
// bool into its two literals, an enum instance into its members.
func expandType(c *Ctx, t Type) (Type, bool) {
	inst, ok := t.(instanceType)
	if !ok || len(inst.args) > 0 {
		return nil, false
	}
	if inst.class == c.reg.Builtins.Bool {
		return c.intern(unionType{members: []Type{
			c.BoolLiteral(true),
			c.BoolLiteral(false),
		}}), true
	}
	if inst.class.IsEnum {
		var members []Type
		for name := range inst.class.EnumMembers() {
			members = append(members, c.EnumLiteral(inst.class, name))
		}
		if len(members) == 0 {
			return nil, false
		}
		if len(members) == 1 {
			return members[0], true
		}
		return c.intern(unionType{members: members}), true
	}
	return nil, false
}

func (r *relChecker) tupleAgainstFixed(a Type, b tupleType) ConstraintSet {
	at, ok := a.(tupleType)
	if !ok || len(at.elems) != len(b.elems) {
		return NeverConstraints()
	}
	out := AlwaysConstraints()
	for i := range at.elems {
		out = out.And(r.ctx, r.check(at.elems[i], b.elems[i]))
		if out.IsNeverSatisfied() {
			return out
		}
	}
	return out
}

func (r *relChecker) tupleAgainstVariadic(a Type, b variadicTupleType) ConstraintSet {
	switch a := a.(type) {
	case tupleType:
		out := AlwaysConstraints()
		for _, e := range a.elems {
			out = out.And(r.ctx, r.check(e, b.elem))
			if out.IsNeverSatisfied() {
				return out
			}
		}
		return out
	case variadicTupleType:
		return r.check(a.elem, b.elem)
	}
	return NeverConstraints()
}

func (r *relChecker) againstSubclassOf(a Type, b subclassOfType) ConstraintSet {
	at, ok := a.(subclassOfType)
	if !ok {
		return NeverConstraints()
	}
	if at.dynamic || b.dynamic {
		return ConstraintsWhen(r.gradual())
	}
	_, found := at.class.mroEntryFor(r.ctx, b.class)
	return ConstraintsWhen(found)
}

func (r *relChecker) againstCallable(a Type, b callableType) ConstraintSet {
	switch a := a.(type) {
	case callableType:
		return r.callableAgainstCallable(a, b)
	case subclassOfType:
		// a class object stands in for a callable via its constructor
		if a.dynamic {
			return ConstraintsWhen(r.gradual())
		}
		ctor := classConstructorType(r.ctx, a.class)
		return r.check(ctor, b)
	case instanceType:
		if call, found := probeMember(r.ctx, a, "__call__"); found {
			return r.check(call, b)
		}
	}
	return NeverConstraints()
}

// callableAgainstCallable: contravariant parameters, covariant return.
// The target signature b fixes what callers may pass; a must accept all
// of it.
func (r *relChecker) callableAgainstCallable(a, b callableType) ConstraintSet {
	out := r.check(a.ret, b.ret)
	if out.IsNeverSatisfied() {
		return out
	}
	if a.gradualParams || b.gradualParams {
		// a gradual parameter list materializes to whatever the other
		// side needs
		return out
	}
	return out.And(r.ctx, r.paramsAccept(a, b))
}

type paramShape struct {
	positional []Param
	varPos     *Param
	keyword    map[string]Param
	varKw      *Param
}

func shapeOf(ct callableType) paramShape {
	shape := paramShape{keyword: make(map[string]Param)}
	for _, p := range ct.params {
		switch p.Kind {
		case ast.ParamPositionalOnly:
			shape.positional = append(shape.positional, p)
		case ast.ParamPositionalOrKeyword:
			shape.positional = append(shape.positional, p)
			shape.keyword[p.Name] = p
		case ast.ParamKeywordOnly:
			shape.keyword[p.Name] = p
		case ast.ParamVarPositional:
			shape.varPos = &p
		case ast.ParamVarKeyword:
			shape.varKw = &p
		}
	}
	return shape
}

func (r *relChecker) paramsAccept(a, b callableType) ConstraintSet {
	as, bs := shapeOf(a), shapeOf(b)
	out := AlwaysConstraints()

	for i, bp := range bs.positional {
		var slot Param
		switch {
		case i < len(as.positional):
			slot = as.positional[i]
		case as.varPos != nil:
			slot = *as.varPos
		default:
			return NeverConstraints()
		}
		if !slot.HasDefault && slot.Kind != ast.ParamVarPositional && bp.HasDefault {
			// the caller may omit this argument; a must tolerate that
			return NeverConstraints()
		}
		out = out.And(r.ctx, r.check(bp.annotOrUnknown(), slot.annotOrUnknown()))
		if out.IsNeverSatisfied() {
			return out
		}
	}
	if bs.varPos != nil {
		if as.varPos == nil {
			return NeverConstraints()
		}
		out = out.And(r.ctx, r.check(bs.varPos.annotOrUnknown(), as.varPos.annotOrUnknown()))
	}

	for name, bp := range bs.keyword {
		if bp.Kind == ast.ParamPositionalOrKeyword {
			// already matched positionally above
			continue
		}
		slot, ok := as.keyword[name]
		switch {
		case ok:
		case as.varKw != nil:
			slot = *as.varKw
		default:
			return NeverConstraints()
		}
		if !slot.HasDefault && slot.Kind != ast.ParamVarKeyword && bp.HasDefault {
			return NeverConstraints()
		}
		out = out.And(r.ctx, r.check(bp.annotOrUnknown(), slot.annotOrUnknown()))
		if out.IsNeverSatisfied() {
			return out
		}
	}
	if bs.varKw != nil {
		if as.varKw == nil {
			return NeverConstraints()
		}
		out = out.And(r.ctx, r.check(bs.varKw.annotOrUnknown(), as.varKw.annotOrUnknown()))
	}

	// a must not demand arguments b never supplies
	for i, ap := range as.positional {
		if i >= len(bs.positional) && !ap.HasDefault && bs.varPos == nil {
			return NeverConstraints()
		}
	}
	for name, ap := range as.keyword {
		if ap.Kind != ast.ParamKeywordOnly || ap.HasDefault {
			continue
		}
		if _, supplied := bs.keyword[name]; !supplied && bs.varKw == nil {
			return NeverConstraints()
		}
	}
	return out
}

func (r *relChecker) againstInstance(a Type, b instanceType) ConstraintSet {
	if nominal := r.nominalAgainstInstance(a, b); nominal != nil {
		return *nominal
	}

	if r.gradual() {
		// a class with a dynamic base stands in for anything except an
		// unrelated final class
		if ai, ok := a.(instanceType); ok && ai.class.HasDynamicBase(r.ctx) {
			if !b.class.IsFinal {
				return AlwaysConstraints()
			}
		}
	}

	if b.class.IsProtocol {
		return r.structural(a, b)
	}
	return NeverConstraints()
}

// nominalAgainstInstance resolves a against b through a's MRO; nil
// means nominal reasoning does not decide the pair and the caller
// should fall through to the structural paths.
func (r *relChecker) nominalAgainstInstance(a Type, b instanceType) *ConstraintSet {
	aClass, aArgs := nominalFrameOf(r.ctx, a)
	if aClass == nil {
		return nil
	}
	entry, found := aClass.mroEntryFor(r.ctx, b.class)
	if !found {
		return nil
	}
	if len(b.args) == 0 {
		out := AlwaysConstraints()
		return &out
	}
	// rewrite the inherited entry into a's own specialization frame
	entryArgs := entry.args
	if len(aArgs) > 0 && len(aClass.TypeParams) > 0 {
		spec := specializationOf(aClass.TypeParams, aArgs)
		mapped := make([]Type, len(entryArgs))
		for i, arg := range entryArgs {
			mapped[i] = spec.Apply(r.ctx, arg)
		}
		entryArgs = mapped
	}
	if len(entryArgs) != len(b.args) {
		out := ConstraintsWhen(false)
		return &out
	}
	out := AlwaysConstraints()
	for i := range b.args {
		out = out.And(r.ctx, r.checkVariant(entryArgs[i], b.args[i], paramVariance(b.class, i)))
		if out.IsNeverSatisfied() {
			break
		}
	}
	return &out
}

func (r *relChecker) checkVariant(a, b Type, v Variance) ConstraintSet {
	switch v {
	case Covariant:
		return r.check(a, b)
	case Contravariant:
		return r.check(b, a)
	default:
		if r.gradual() && (IsDynamic(a) || IsDynamic(b)) {
			return AlwaysConstraints()
		}
		return r.check(a, b).And(r.ctx, r.check(b, a))
	}
}

// nominalFrameOf gives the class a value of t instantiates along with
// the type arguments it carries.
func nominalFrameOf(c *Ctx, t Type) (*ClassDef, []Type) {
	switch t := t.(type) {
	case instanceType:
		return t.class, t.args
	case tupleType:
		if len(t.elems) == 0 {
			return c.reg.Builtins.Tuple, []Type{Never}
		}
		return c.reg.Builtins.Tuple, []Type{c.NewUnion(t.elems...)}
	case variadicTupleType:
		return c.reg.Builtins.Tuple, []Type{t.elem}
	case callableType:
		return c.reg.Builtins.Function, nil
	case subclassOfType:
		if t.dynamic {
			return c.reg.Builtins.Type, nil
		}
		if meta, ok := t.class.MetaclassType(c).(instanceType); ok {
			return meta.class, meta.args
		}
		return c.reg.Builtins.Type, nil
	}
	if class, ok := nominalClassOf(c, t); ok {
		return class, nil
	}
	return nil, nil
}

// structural checks a against protocol b: every member of the protocol
// interface must resolve on a with a compatible type. Mutable attribute
// slots compare invariantly; methods covariantly.
func (r *relChecker) structural(a Type, b instanceType) ConstraintSet {
	iface := protocolInterface(r.ctx, b)
	if len(iface) == 0 {
		return AlwaysConstraints()
	}
	out := AlwaysConstraints()
	for _, pm := range iface {
		got, found := probeMember(r.ctx, a, pm.name)
		if !found {
			return NeverConstraints()
		}
		if pm.invariant {
			out = out.And(r.ctx, r.check(got, pm.typ))
			out = out.And(r.ctx, r.check(pm.typ, got))
		} else {
			out = out.And(r.ctx, r.check(got, pm.typ))
		}
		if out.IsNeverSatisfied() {
			return out
		}
	}
	return out
}
