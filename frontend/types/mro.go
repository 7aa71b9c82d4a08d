package types

import (
	"slices"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
	"github.com/krait-dev/krait/util"
)

// mroEntry is one resolved ancestor in a method resolution order. A nil
// class is the dynamic entry contributed by an Any/Unknown base. Args
// are the ancestor's type arguments as seen from the start class, still
// expressed over the start class's own type variables where generic.
type mroEntry struct {
	class *ClassDef
	args  []Type
}

func (e mroEntry) isDynamic() bool { return e.class == nil }

func (e mroEntry) String() string {
	if e.isDynamic() {
		return "Unknown"
	}
	if len(e.args) == 0 {
		return e.class.Name
	}
	return e.class.Name + "[" + util.JoinString(e.args, ", ") + "]"
}

// Mro resolves the class's method resolution order with the C3 merge,
// memoizing the result on the class. Cyclic ancestry and unmergeable
// hierarchies degrade to [self, Unknown, object] after reporting, so
// member lookup always has a chain to walk.
func (c *ClassDef) Mro(ctx *Ctx) []mroEntry {
	return c.mroWalk(ctx, nil, make(map[*ClassDef]struct{}))
}

// mroWalk carries the active recursion chain for cycle detection. When
// a class re-enters the chain, every class from its first occurrence to
// the top of the chain is part of the cycle and degrades.
func (c *ClassDef) mroWalk(ctx *Ctx, chain []*ClassDef, cyclic map[*ClassDef]struct{}) []mroEntry {
	c.mu.Lock()
	if c.mroComputed {
		entries := c.mro
		diags := c.mroDiags
		c.mroDiags = nil
		c.mu.Unlock()
		// diagnostics attach to the first Ctx that observes the result
		for _, d := range diags {
			ctx.addError(d)
		}
		return entries
	}
	c.mu.Unlock()

	if at := slices.Index(chain, c); at >= 0 {
		for _, participant := range chain[at:] {
			cyclic[participant] = struct{}{}
		}
		return nil
	}
	chain = append(chain, c)

	entries, pending := c.linearize(ctx, chain, cyclic)
	if _, isCyclic := cyclic[c]; isCyclic {
		entries = degradedMro(c)
		pending = []diag.Diagnostic{diag.New(diag.NewCyclicClassDefinition{
			Positioner: c.Span,
			Class:      c.Name,
		})}
	}

	c.mu.Lock()
	if !c.mroComputed {
		c.mro = entries
		c.mroComputed = true
		c.mu.Unlock()
		for _, d := range pending {
			ctx.addError(d)
		}
		return entries
	}
	// another goroutine finished first; its result wins
	entries = c.mro
	c.mu.Unlock()
	return entries
}

func degradedMro(c *ClassDef) []mroEntry {
	object := c.objectFallback()
	entries := []mroEntry{{class: c, args: c.selfArgs()}, {}}
	if object != nil && object != c {
		entries = append(entries, mroEntry{class: object})
	}
	return entries
}

// objectFallback digs out the object class without a Ctx at hand,
// following written bases to the root.
func (c *ClassDef) objectFallback() *ClassDef {
	cur := c
	visited := map[*ClassDef]struct{}{}
	for {
		if _, ok := visited[cur]; ok {
			return nil
		}
		visited[cur] = struct{}{}
		if len(cur.Bases) == 0 {
			return cur
		}
		next := cur
		for _, b := range cur.Bases {
			if inst, ok := b.(instanceType); ok {
				next = inst.class
				break
			}
		}
		if next == cur {
			return cur
		}
		cur = next
	}
}

func (c *ClassDef) selfArgs() []Type {
	if len(c.TypeParams) == 0 {
		return nil
	}
	args := make([]Type, len(c.TypeParams))
	for i, tp := range c.TypeParams {
		args[i] = typeVarType{def: tp}
	}
	return args
}

// linearize computes C3: self, then the merge of each base's
// linearization plus the base list itself.
func (c *ClassDef) linearize(ctx *Ctx, chain []*ClassDef, cyclic map[*ClassDef]struct{}) ([]mroEntry, []diag.Diagnostic) {
	var pending []diag.Diagnostic
	self := mroEntry{class: c, args: c.selfArgs()}

	if len(c.Bases) == 0 {
		if object := ctx.reg.Builtins.Object; object != nil && c != object {
			return []mroEntry{self, {class: object}}, nil
		}
		return []mroEntry{self}, nil
	}

	seenBases := make(map[*ClassDef]struct{}, len(c.Bases))
	var baseEntries []mroEntry
	duplicate := false
	for _, base := range c.Bases {
		entry, ok := baseEntry(base)
		if !ok {
			continue
		}
		if _, dup := seenBases[entry.class]; dup {
			pending = append(pending, diag.New(diag.NewDuplicateBase{
				Positioner: c.Span,
				Class:      c.Name,
				Base:       entry.String(),
			}))
			duplicate = true
			continue
		}
		seenBases[entry.class] = struct{}{}
		baseEntries = append(baseEntries, entry)
	}
	if duplicate {
		return degradedMro(c), pending
	}

	lists := make([][]mroEntry, 0, len(baseEntries)+2)
	lists = append(lists, []mroEntry{self})
	for _, base := range baseEntries {
		lists = append(lists, c.baseLinearization(ctx, base, chain, cyclic))
	}
	lists = append(lists, baseEntries)

	merged, ok := c3Merge(lists)
	if !ok {
		pending = append(pending, diag.New(diag.NewInconsistentMro{
			Positioner: c.Span,
			Class:      c.Name,
		}))
		return degradedMro(c), pending
	}
	return merged, pending
}

func baseEntry(base Type) (mroEntry, bool) {
	switch base := base.(type) {
	case instanceType:
		return mroEntry{class: base.class, args: base.args}, true
	case dynamicType:
		return mroEntry{}, true
	default:
		// invalid bases were reported at definition time and dropped
		return mroEntry{}, false
	}
}

// baseLinearization resolves one base's MRO and rewrites its entries
// into the deriving class's frame: the base's type parameters are
// replaced by the arguments the deriving class supplies.
func (c *ClassDef) baseLinearization(ctx *Ctx, base mroEntry, chain []*ClassDef, cyclic map[*ClassDef]struct{}) []mroEntry {
	if base.isDynamic() {
		tail := []mroEntry{{}}
		if object := ctx.reg.Builtins.Object; object != nil && c != object {
			tail = append(tail, mroEntry{class: object})
		}
		return tail
	}
	baseMro := base.class.mroWalk(ctx, chain, cyclic)
	if len(base.args) == 0 || len(base.class.TypeParams) == 0 {
		return baseMro
	}
	spec := specializationOf(base.class.TypeParams, base.args)
	out := make([]mroEntry, len(baseMro))
	for i, entry := range baseMro {
		mapped := entry
		if len(entry.args) > 0 {
			args := make([]Type, len(entry.args))
			for j, a := range entry.args {
				args[j] = spec.Apply(ctx, a)
			}
			mapped.args = args
		}
		out[i] = mapped
	}
	return out
}

// c3Merge repeatedly selects the first head not appearing in any tail.
func c3Merge(lists [][]mroEntry) ([]mroEntry, bool) {
	work := make([][]mroEntry, len(lists))
	for i, l := range lists {
		work[i] = slices.Clone(l)
	}
	var out []mroEntry
	for {
		exhausted := true
		for _, l := range work {
			if len(l) > 0 {
				exhausted = false
				break
			}
		}
		if exhausted {
			return out, true
		}

		var selected *mroEntry
		for _, l := range work {
			if len(l) == 0 {
				continue
			}
			head := l[0]
			if entryInAnyTail(work, head) {
				continue
			}
			selected = &head
			break
		}
		if selected == nil {
			return nil, false
		}

		out = append(out, *selected)
		for i, l := range work {
			if len(l) > 0 && sameMroClass(l[0], *selected) {
				work[i] = l[1:]
			}
		}
	}
}

func entryInAnyTail(lists [][]mroEntry, e mroEntry) bool {
	for _, l := range lists {
		if len(l) == 0 {
			continue
		}
		for _, other := range l[1:] {
			if sameMroClass(other, e) {
				return true
			}
		}
	}
	return false
}

func sameMroClass(a, b mroEntry) bool {
	return a.class == b.class
}

// mroEntryFor finds ancestor in the class's MRO, giving back the
// arguments ancestor is reached with.
func (c *ClassDef) mroEntryFor(ctx *Ctx, ancestor *ClassDef) (mroEntry, bool) {
	for _, entry := range c.Mro(ctx) {
		if entry.class == ancestor {
			return entry, true
		}
	}
	return mroEntry{}, false
}

// HasDynamicBase reports whether the class's resolved ancestry contains
// a dynamic entry, making the class assignable in both directions with
// everything but final classes.
func (c *ClassDef) HasDynamicBase(ctx *Ctx) bool {
	for _, entry := range c.Mro(ctx) {
		if entry.isDynamic() {
			return true
		}
	}
	return false
}

// MetaclassType resolves the type of this class's class object: an
// instance of the most derived among the explicit metaclass= argument
// and every base's metaclass. Conflicting candidates report and resolve
// to Unknown.
func (c *ClassDef) MetaclassType(ctx *Ctx) Type {
	return c.metaclassWalk(ctx, make(map[*ClassDef]struct{}))
}

func (c *ClassDef) metaclassWalk(ctx *Ctx, visiting map[*ClassDef]struct{}) Type {
	c.mu.Lock()
	if c.metaComputed {
		t := c.resolvedMeta
		diags := c.metaDiags
		c.metaDiags = nil
		c.mu.Unlock()
		for _, d := range diags {
			ctx.addError(d)
		}
		return t
	}
	c.mu.Unlock()

	if _, cycling := visiting[c]; cycling {
		return ctx.Instance(ctx.reg.Builtins.Type)
	}
	visiting[c] = struct{}{}
	defer delete(visiting, c)

	resolved, pending := c.resolveMetaclass(ctx, visiting)

	c.mu.Lock()
	if !c.metaComputed {
		c.resolvedMeta = resolved
		c.metaComputed = true
		c.mu.Unlock()
		for _, d := range pending {
			ctx.addError(d)
		}
		return resolved
	}
	resolved = c.resolvedMeta
	c.mu.Unlock()
	return resolved
}

func (c *ClassDef) resolveMetaclass(ctx *Ctx, visiting map[*ClassDef]struct{}) (Type, []diag.Diagnostic) {
	typeClass := ctx.reg.Builtins.Type
	var pending []diag.Diagnostic
	var candidates []*ClassDef

	addCandidate := func(m *ClassDef) {
		for _, existing := range candidates {
			if existing == m {
				return
			}
		}
		candidates = append(candidates, m)
	}

	if c.Metaclass != nil {
		switch meta := c.Metaclass.(type) {
		case subclassOfType:
			if meta.dynamic {
				return Unknown, nil
			}
			if classInherits(meta.class, typeClass) {
				addCandidate(meta.class)
			} else {
				return c.callableMetaclass(ctx, classConstructorType(ctx, meta.class), visiting)
			}
		case dynamicType:
			return Unknown, nil
		case callableType:
			return c.callableMetaclass(ctx, meta, visiting)
		default:
			pending = append(pending, diag.New(diag.NewInvalidMetaclass{
				Positioner: c.Span,
				Class:      c.Name,
				Metaclass:  c.Metaclass.String(),
			}))
			return Unknown, pending
		}
	}

	for _, base := range c.Bases {
		inst, ok := base.(instanceType)
		if !ok {
			continue
		}
		baseMeta := inst.class.metaclassWalk(ctx, visiting)
		switch baseMeta := baseMeta.(type) {
		case instanceType:
			addCandidate(baseMeta.class)
		case dynamicType:
			return Unknown, pending
		}
	}

	if len(candidates) == 0 {
		return ctx.Instance(typeClass), pending
	}

	// deterministic winner and deterministic conflict message
	slices.SortFunc(candidates, util.ComparingHashable)

	for _, candidate := range candidates {
		derivesAll := true
		for _, other := range candidates {
			if !classInherits(candidate, other) {
				derivesAll = false
				break
			}
		}
		if derivesAll {
			return ctx.Instance(candidate), pending
		}
	}

	names := make([]string, len(candidates))
	for i, candidate := range candidates {
		names[i] = candidate.Name
	}
	pending = append(pending, diag.New(diag.NewConflictingMetaclass{
		Positioner: c.Span,
		Class:      c.Name,
		Candidates: names,
	}))
	return Unknown, pending
}

// callableMetaclass accepts a non-class metaclass argument when its
// parameters are compatible with type.__new__'s (name, bases, dict)
// shape; the metaclass is then the meta-type of what it returns.
func (c *ClassDef) callableMetaclass(ctx *Ctx, callable Type, visiting map[*ClassDef]struct{}) (Type, []diag.Diagnostic) {
	ct, ok := callable.(callableType)
	if !ok || !metaclassCallableCompatible(ct) {
		return Unknown, []diag.Diagnostic{diag.New(diag.NewInvalidMetaclass{
			Positioner: c.Span,
			Class:      c.Name,
			Metaclass:  callable.String(),
		})}
	}
	if ret, ok := ct.ret.(instanceType); ok {
		return ret.class.metaclassWalk(ctx, visiting), nil
	}
	return Unknown, nil
}

// metaclassCallableCompatible checks the callable can take the three
// positional arguments a class statement passes: (name, bases, dict).
func metaclassCallableCompatible(ct callableType) bool {
	if ct.gradualParams {
		return true
	}
	positional := 0
	for _, p := range ct.params {
		switch p.Kind {
		case ast.ParamVarPositional:
			return true
		case ast.ParamPositionalOnly, ast.ParamPositionalOrKeyword:
			positional++
		}
	}
	return positional >= 3
}
