package types

import (
	"cmp"

	"github.com/hashicorp/go-set/v3"
	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// Member resolution: obj.attr and Cls.attr, honoring the descriptor
// protocol. Lookup walks the receiver's MRO; a data descriptor found
// there always beats a statically-known instance attribute, a non-data
// descriptor loses to one, and plain class members sit below instance
// attributes. Class access walks the class's own MRO first and the
// metaclass's afterwards.

type lookupResult struct {
	t     Type
	state BindingState
}

func found(t Type) lookupResult         { return lookupResult{t: t, state: BindingBound} }
func foundPossibly(t Type) lookupResult { return lookupResult{t: t, state: BindingPossiblyUnbound} }
func notFound() lookupResult            { return lookupResult{state: BindingUnbound} }

// AttributeType resolves recv.attr, reporting unresolved or possibly
// unbound accesses at span. Failed lookups recover as Unknown.
func (c *Ctx) AttributeType(recv Type, attr string, span ast.Range) Type {
	res := c.lookupMember(recv, attr)
	switch res.state {
	case BindingUnbound:
		c.addError(diag.New(diag.NewUnresolvedAttribute{
			Positioner: span,
			Attr:       attr,
			On:         recv.String(),
		}))
		return Unknown
	case BindingPossiblyUnbound:
		c.addError(diag.New(diag.NewPossiblyUnboundAttribute{
			Positioner: span,
			Attr:       attr,
			On:         recv.String(),
		}))
		return res.t
	default:
		return res.t
	}
}

// probeMember is the silent lookup used by structural checks and
// operator dispatch: no diagnostics, and a possibly-unbound member
// counts as absent.
func probeMember(c *Ctx, recv Type, attr string) (Type, bool) {
	if attr == "__call__" {
		if ct, ok := recv.(callableType); ok {
			return ct, true
		}
	}
	res := c.lookupMember(recv, attr)
	if res.state != BindingBound {
		return nil, false
	}
	return res.t, true
}

func (c *Ctx) lookupMember(recv Type, attr string) lookupResult {
	if recv == nil {
		c.addFailure("member lookup on nil type")
		return notFound()
	}
	if !c.guardDepth() {
		c.unguardDepth()
		return notFound()
	}
	defer c.unguardDepth()

	switch recv := recv.(type) {
	case dynamicType:
		return found(Unknown)
	case neverType:
		return found(Never)
	case unionType:
		return c.lookupOnUnion(recv, attr)
	case intersectionType:
		return c.lookupOnIntersection(recv, attr)
	case instanceType:
		return c.lookupOnInstance(recv, attr)
	case subclassOfType:
		return c.lookupOnClassObject(recv, attr)
	case typeVarType:
		return c.lookupOnTypeVar(recv, attr)
	case enumLiteral:
		return c.lookupOnInstance(instanceType{class: recv.class}, attr)
	default:
		class, args := nominalFrameOf(c, recv)
		if class == nil {
			return notFound()
		}
		return c.lookupOnInstance(instanceType{class: class, args: args}, attr)
	}
}

func (c *Ctx) lookupOnUnion(u unionType, attr string) lookupResult {
	var types []Type
	foundCount := 0
	possibly := false
	for _, m := range u.members {
		res := c.lookupMember(m, attr)
		if res.state == BindingUnbound {
			continue
		}
		foundCount++
		possibly = possibly || res.state == BindingPossiblyUnbound
		types = append(types, res.t)
	}
	switch {
	case foundCount == 0:
		return notFound()
	case foundCount < len(u.members) || possibly:
		return foundPossibly(c.NewUnion(types...))
	default:
		return found(c.NewUnion(types...))
	}
}

func (c *Ctx) lookupOnIntersection(in intersectionType, attr string) lookupResult {
	for _, p := range in.positive {
		if res := c.lookupMember(p, attr); res.state != BindingUnbound {
			return res
		}
	}
	if len(in.positive) == 0 {
		return c.lookupMember(c.Instance(c.reg.Builtins.Object), attr)
	}
	return notFound()
}

func (c *Ctx) lookupOnTypeVar(tv typeVarType, attr string) lookupResult {
	def := tv.def
	if len(def.Constraints) > 0 {
		var types []Type
		for _, choice := range def.Constraints {
			res := c.lookupMember(choice, attr)
			if res.state != BindingBound {
				return notFound()
			}
			types = append(types, res.t)
		}
		return found(c.NewUnion(types...))
	}
	return c.lookupMember(def.BoundOrObject(c), attr)
}

// lookupOnInstance: search the class MRO for a member, then the
// declared instance attributes, and arbitrate per the descriptor rules.
func (c *Ctx) lookupOnInstance(recv instanceType, attr string) lookupResult {
	member, owner, ok := c.findInMro(recv.class, attr)

	var instanceAttr Type
	haveInstanceAttr := false
	for _, entry := range recv.class.Mro(c) {
		if entry.isDynamic() {
			continue
		}
		if t, present := entry.class.OwnInstanceAttr(attr); present {
			instanceAttr = c.specializeFromEntry(recv, entry, t)
			haveInstanceAttr = true
			break
		}
	}

	switch {
	case ok && c.isDataDescriptor(member):
		return c.bindMember(member, owner, recv, false)
	case haveInstanceAttr:
		return found(instanceAttr)
	case ok:
		return c.bindMember(member, owner, recv, false)
	case recv.class.HasDynamicBase(c):
		// an unknown ancestor may well provide the attribute
		return found(Unknown)
	default:
		return notFound()
	}
}

// lookupOnClassObject: Cls.attr searches the class's own MRO with
// class-level binding, then the metaclass's MRO, then enum members.
func (c *Ctx) lookupOnClassObject(recv subclassOfType, attr string) lookupResult {
	if recv.dynamic {
		return found(Unknown)
	}
	class := recv.class

	if class.IsEnum {
		for name := range class.EnumMembers() {
			if name == attr {
				return found(c.EnumLiteral(class, name))
			}
		}
	}

	// declared-only annotations are instance slots; the class object
	// falls through to its metaclass
	if member, owner, ok := c.findInMro(class, attr); ok && !member.DeclaredOnly {
		return c.bindMember(member, owner, instanceType{class: class, args: class.selfArgs()}, true)
	}

	if meta, ok := class.MetaclassType(c).(instanceType); ok {
		if member, owner, ok := c.findInMro(meta.class, attr); ok {
			// the class object is an instance of its metaclass
			return c.bindMember(member, owner, instanceType{class: meta.class, args: meta.args}, false)
		}
	}

	if class.HasDynamicBase(c) {
		return found(Unknown)
	}
	return notFound()
}

// findInMro returns the first MRO entry declaring attr.
func (c *Ctx) findInMro(class *ClassDef, attr string) (*Member, mroEntry, bool) {
	for _, entry := range class.Mro(c) {
		if entry.isDynamic() {
			continue
		}
		if m, ok := entry.class.OwnMember(attr); ok {
			return m, entry, true
		}
	}
	return nil, mroEntry{}, false
}

// specializeFromEntry rewrites t, expressed over the owning entry's
// class parameters, into the receiver's specialization frame.
func (c *Ctx) specializeFromEntry(recv instanceType, owner mroEntry, t Type) Type {
	ownerArgs := owner.args
	if len(recv.args) > 0 && len(recv.class.TypeParams) > 0 {
		recvSpec := specializationOf(recv.class.TypeParams, recv.args)
		mapped := make([]Type, len(ownerArgs))
		for i, a := range ownerArgs {
			mapped[i] = recvSpec.Apply(c, a)
		}
		ownerArgs = mapped
	}
	if owner.class == nil || len(owner.class.TypeParams) == 0 || len(ownerArgs) == 0 {
		return t
	}
	return specializationOf(owner.class.TypeParams, ownerArgs).Apply(c, t)
}

// bindMember applies the descriptor protocol to a member found on the
// receiver's class chain. classAccess marks Cls.attr, where the
// implicit instance argument of __get__ is None.
func (c *Ctx) bindMember(member *Member, owner mroEntry, recv instanceType, classAccess bool) lookupResult {
	t := c.specializeFromEntry(recv, owner, member.Type)

	wrap := found
	if member.PossiblyUnbound {
		wrap = foundPossibly
	}

	switch member.Kind {
	case MemberStaticMethod:
		return wrap(t)
	case MemberClassMethod:
		// first parameter binds to the class object either way
		return wrap(dropBoundParam(c, t))
	case MemberMethod:
		if classAccess {
			return wrap(t)
		}
		return wrap(dropBoundParam(c, t))
	}

	// plain value: apply __get__ when its type is a descriptor
	if inst, ok := t.(instanceType); ok {
		if getter, getterOwner, hasGet := c.findInMro(inst.class, "__get__"); hasGet {
			if classAccess && c.isPropertyLike(inst.class) {
				// accessing a property on the class yields the
				// descriptor object itself
				return wrap(t)
			}
			getterT := c.specializeFromEntry(inst, getterOwner, getter.Type)
			if ct, ok := getterT.(callableType); ok {
				return wrap(ct.ret)
			}
			return wrap(Unknown)
		}
	}
	return wrap(t)
}

func (c *Ctx) isPropertyLike(class *ClassDef) bool {
	return class == c.reg.Builtins.Property
}

// isDataDescriptor: the member's type defines both __get__ and __set__
// (or __delete__). Plain methods are non-data descriptors.
func (c *Ctx) isDataDescriptor(member *Member) bool {
	if member.Kind != MemberValue {
		return false
	}
	inst, ok := member.Type.(instanceType)
	if !ok {
		return false
	}
	if _, _, hasGet := c.findInMro(inst.class, "__get__"); !hasGet {
		return false
	}
	if _, _, hasSet := c.findInMro(inst.class, "__set__"); hasSet {
		return true
	}
	_, _, hasDelete := c.findInMro(inst.class, "__delete__")
	return hasDelete
}

// dropBoundParam removes a callable's first parameter, the slot
// consumed by binding. Non-callables pass through unchanged.
func dropBoundParam(c *Ctx, t Type) Type {
	ct, ok := t.(callableType)
	if !ok || ct.gradualParams {
		return t
	}
	if len(ct.params) == 0 {
		return t
	}
	return c.NewCallable(ct.params[1:], ct.ret)
}

// SuperAttributeType resolves super(pivot, owner).attr: the usual class
// chain lookup restricted to the strict suffix of owner's MRO after
// pivot. Instance attributes are invisible through super, and the super
// proxy derives none of its own dunders from owner.
func (c *Ctx) SuperAttributeType(pivot, owner Type, attr string, span ast.Range) Type {
	pivotClass, ownerInstance, ownerClass, ok := c.validateSuper(pivot, owner, span)
	if !ok {
		return Unknown
	}

	mro := ownerClass.Mro(c)
	start := -1
	for i, entry := range mro {
		if entry.class == pivotClass {
			start = i + 1
			break
		}
	}
	if start < 0 {
		c.addError(diag.New(diag.NewInvalidSuperArgument{
			Positioner: span,
			Pivot:      pivot.String(),
			Owner:      owner.String(),
		}))
		return Unknown
	}

	for _, entry := range mro[start:] {
		if entry.isDynamic() {
			return Unknown
		}
		member, ok := entry.class.OwnMember(attr)
		if !ok {
			continue
		}
		recv := instanceType{class: ownerClass}
		if oi, isInst := ownerInstance.(instanceType); isInst {
			recv = oi
		}
		res := c.bindMember(member, entry, recv, ownerInstance == nil)
		if res.state == BindingPossiblyUnbound {
			c.addError(diag.New(diag.NewPossiblyUnboundAttribute{
				Positioner: span,
				Attr:       attr,
				On:         superDisplay(pivot, owner),
			}))
		}
		return res.t
	}

	c.addError(diag.New(diag.NewUnresolvedAttribute{
		Positioner: span,
		Attr:       attr,
		On:         superDisplay(pivot, owner),
	}))
	return Unknown
}

func superDisplay(pivot, owner Type) string {
	return "super(" + pivot.String() + ", " + owner.String() + ")"
}

// validateSuper checks the two-argument form: pivot must be a class
// object and owner an instance or subclass of it.
func (c *Ctx) validateSuper(pivot, owner Type, span ast.Range) (pivotClass *ClassDef, ownerInstance Type, ownerClass *ClassDef, ok bool) {
	fail := func() (*ClassDef, Type, *ClassDef, bool) {
		c.addError(diag.New(diag.NewInvalidSuperArgument{
			Positioner: span,
			Pivot:      pivot.String(),
			Owner:      owner.String(),
		}))
		return nil, nil, nil, false
	}

	pv, isClass := pivot.(subclassOfType)
	if !isClass || pv.dynamic {
		return fail()
	}
	pivotClass = pv.class

	switch owner := owner.(type) {
	case instanceType:
		if _, inMro := owner.class.mroEntryFor(c, pivotClass); !inMro {
			return fail()
		}
		return pivotClass, owner, owner.class, true
	case subclassOfType:
		if owner.dynamic {
			return fail()
		}
		if _, inMro := owner.class.mroEntryFor(c, pivotClass); !inMro {
			return fail()
		}
		return pivotClass, nil, owner.class, true
	default:
		return fail()
	}
}

// ImplicitSuperType resolves a zero-argument super() from the enclosing
// method frame.
func (c *Ctx) ImplicitSuperType(span ast.Range) (pivot, owner Type, ok bool) {
	frame, inFrame := c.currentFrame()
	if !inFrame || frame.class == nil || frame.firstParam == nil {
		c.addError(diag.New(diag.NewUnavailableImplicitSuperArguments{Positioner: span}))
		return nil, nil, false
	}
	return c.SubclassOf(frame.class), frame.firstParam, true
}

// classConstructorType derives the signature of calling a class: the
// __init__ parameters without self, returning an instance of the class.
func classConstructorType(c *Ctx, class *ClassDef) Type {
	ret := c.Instance(class, class.selfArgs()...)
	member, owner, ok := c.findInMro(class, "__init__")
	if !ok || member.Kind != MemberMethod {
		return c.NewGradualCallable(ret)
	}
	t := c.specializeFromEntry(instanceType{class: class, args: class.selfArgs()}, owner, member.Type)
	ct, isCallable := t.(callableType)
	if !isCallable || ct.gradualParams || len(ct.params) == 0 {
		return c.NewGradualCallable(ret)
	}
	return c.NewCallable(ct.params[1:], ret)
}

type protocolMember struct {
	name      string
	typ       Type
	invariant bool
}

// protocolInterface flattens a protocol instance into its required
// members, in sorted name order. Members are given in instance-bound
// form so candidates resolved through probeMember compare like for
// like.
func protocolInterface(c *Ctx, proto instanceType) []protocolMember {
	names := set.NewTreeSet[string](cmp.Compare[string])
	kinds := make(map[string]MemberKind)
	for _, entry := range proto.class.Mro(c) {
		if entry.isDynamic() || !entry.class.IsProtocol {
			continue
		}
		for name := range entry.class.MemberNames() {
			if names.Insert(name) {
				if m, ok := entry.class.OwnMember(name); ok {
					kinds[name] = m.Kind
				}
			}
		}
	}

	var out []protocolMember
	for _, name := range names.Slice() {
		res := c.lookupMember(proto, name)
		if res.state == BindingUnbound {
			continue
		}
		_, isCallable := res.t.(callableType)
		out = append(out, protocolMember{
			name:      name,
			typ:       res.t,
			invariant: kinds[name] == MemberValue && !isCallable,
		})
	}
	return out
}
