package types

import (
	"fmt"
	"hash/fnv"
	"iter"
	"sync"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// MemberKind says how a class-body member was declared, which decides
// how it binds on attribute access.
type MemberKind int

const (
	MemberValue MemberKind = iota
	MemberMethod
	MemberClassMethod
	MemberStaticMethod
)

// Member is one entry of a class body.
type Member struct {
	Name string
	Type Type
	Kind MemberKind
	// IsClassVar marks ClassVar[...] declarations, which live on the
	// class object and are not instance slots.
	IsClassVar bool
	IsFinal    bool
	// DeclaredOnly marks `x: T`-style body annotations without a value:
	// an instance slot declaration that the class object itself lacks.
	DeclaredOnly bool
	// PossiblyUnbound marks members assigned on only some control-flow
	// paths of the class body.
	PossiblyUnbound bool
}

// ClassDef is one class declaration: the registry owns these records,
// and types reference them by pointer. Everything except the lazily
// memoized linearization results is immutable after registration.
type ClassDef struct {
	Name   string
	Module string
	// Span is the class statement's source range, used to attribute
	// linearization diagnostics. Zero for declaration-library classes.
	Span ast.Range

	// Bases as written: instance types for nominal bases, Dynamic for
	// an Any/Unknown base.
	Bases []Type
	// Metaclass is the explicit metaclass= argument (the type of the
	// argument expression, usually type[M] or a callable); nil if absent.
	Metaclass Type

	IsFinal    bool
	IsProtocol bool
	IsEnum     bool

	TypeParams []*TypeVarDef

	members     map[string]*Member
	memberOrder []string

	instanceAttrs     map[string]Type
	instanceAttrOrder []string

	// linearization state, memoized under mu: the first computation
	// stores, later calls fetch
	mu            sync.Mutex
	mro           []mroEntry
	mroComputed   bool
	mroDiags      []diag.Diagnostic
	resolvedMeta  Type
	metaComputed  bool
	metaDiags     []diag.Diagnostic
	metaResolving bool
}

func NewClassDef(module, name string) *ClassDef {
	return &ClassDef{
		Name:          name,
		Module:        module,
		members:       make(map[string]*Member),
		instanceAttrs: make(map[string]Type),
	}
}

func (c *ClassDef) QualifiedName() string {
	if c.Module == "" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

func (c *ClassDef) String() string { return c.Name }

func (c *ClassDef) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("ClassDef"))
	_, _ = h.Write([]byte(c.QualifiedName()))
	return h.Sum64()
}

// AddMember records a class-body member. Later declarations of the same
// name replace earlier ones, matching source order semantics.
func (c *ClassDef) AddMember(m *Member) {
	if _, exists := c.members[m.Name]; !exists {
		c.memberOrder = append(c.memberOrder, m.Name)
	}
	c.members[m.Name] = m
}

// AddInstanceAttr records a statically-known instance attribute, either
// a bare class-body annotation or a `self.x` assignment in __init__.
func (c *ClassDef) AddInstanceAttr(name string, t Type) {
	if _, exists := c.instanceAttrs[name]; !exists {
		c.instanceAttrOrder = append(c.instanceAttrOrder, name)
	}
	c.instanceAttrs[name] = t
}

// OwnMember looks up a member declared directly on this class.
func (c *ClassDef) OwnMember(name string) (*Member, bool) {
	m, ok := c.members[name]
	return m, ok
}

// OwnInstanceAttr looks up a declared instance attribute of this class
// only, not its ancestors.
func (c *ClassDef) OwnInstanceAttr(name string) (Type, bool) {
	t, ok := c.instanceAttrs[name]
	return t, ok
}

// MemberNames yields the class's own member names in declaration order.
func (c *ClassDef) MemberNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range c.memberOrder {
			if !yield(name) {
				return
			}
		}
	}
}

// EnumMembers yields the names that form the members of an enum class:
// plain value declarations, skipping dunders and descriptors.
func (c *ClassDef) EnumMembers() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !c.IsEnum {
			return
		}
		for _, name := range c.memberOrder {
			m := c.members[name]
			if m.Kind != MemberValue || isDunder(name) {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

func isDunder(name string) bool {
	return len(name) > 4 && name[:2] == "__" && name[len(name)-2:] == "__"
}

// Registry is the session-wide store of class declarations, seeded with
// the builtin corpus. Reads are lock-free after registration; Register
// is insert-or-fetch under the lock, so concurrent population of the
// same name converges on one record.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*ClassDef

	interner *interner
	fresher  *fresher

	// relCache memoizes ground relation queries, insert-or-fetch per
	// key. Only queries without type variables are cached.
	cacheMu  sync.RWMutex
	relCache map[relCacheKey]bool

	// Builtins are direct handles to the seeded declaration corpus.
	Builtins Builtins
}

// Builtins carries the declaration-library classes the engine
// hard-depends on.
type Builtins struct {
	Object          *ClassDef
	Type            *ClassDef
	Int             *ClassDef
	Float           *ClassDef
	Complex         *ClassDef
	Bool            *ClassDef
	Str             *ClassDef
	Bytes           *ClassDef
	List            *ClassDef
	Tuple           *ClassDef
	Dict            *ClassDef
	Set             *ClassDef
	Slice           *ClassDef
	Range           *ClassDef
	NoneType        *ClassDef
	Function        *ClassDef
	BuiltinFunction *ClassDef
	Property        *ClassDef
	ClassMethod     *ClassDef
	StaticMethod    *ClassDef
	Super           *ClassDef
	BaseException   *ClassDef
	Exception       *ClassDef
	Enum            *ClassDef

	Sized     *ClassDef
	Iterable  *ClassDef
	Iterator  *ClassDef
	Container *ClassDef
	Hashable  *ClassDef
}

// NewRegistry builds a registry pre-seeded with the builtin corpus.
func NewRegistry() *Registry {
	r := &Registry{
		classes:  make(map[string]*ClassDef, 64),
		interner: newInterner(),
		fresher:  &fresher{},
		relCache: make(map[relCacheKey]bool, 256),
	}
	seedUniverse(r)
	return r
}

// Register stores def under its qualified name. If a record already
// exists under that name, the existing record is returned unchanged.
func (r *Registry) Register(def *ClassDef) *ClassDef {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := def.QualifiedName()
	if existing, ok := r.classes[name]; ok {
		return existing
	}
	r.classes[name] = def
	return def
}

// Lookup finds a class by qualified name, falling back to the builtins
// module for bare names.
func (r *Registry) Lookup(name string) (*ClassDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.classes[name]; ok {
		return def, true
	}
	def, ok := r.classes["builtins."+name]
	return def, ok
}

// NewTypeVar allocates a fresh type variable definition.
func (r *Registry) NewTypeVar(name string, bound Type) *TypeVarDef {
	return r.fresher.newTypeVar(name, bound)
}

func (r *Registry) mustLookup(name string) *ClassDef {
	def, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("builtin class %s missing from registry", name))
	}
	return def
}

// fresher allocates process-unique type variable ids.
type fresher struct {
	mu     sync.Mutex
	nextID uint64
}

func (f *fresher) newTypeVar(name string, bound Type) *TypeVarDef {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return &TypeVarDef{id: f.nextID, Name: name, Bound: bound}
}
