package types

import (
	"fmt"
	"hash/fnv"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/util"
)

// Type is an immutable, structurally-interned type value. Equality is
// decided by Equal, never by ==: composite variants hold slices.
type Type interface {
	fmt.Stringer
	Hash() uint64
	children() iter.Seq[Type]
	doMap(func(Type) Type) Type
}

// Equal can be used to compare Type values for equality.
// Types are hashed structurally, so two types are the same exactly when
// their hashes coincide; this saves every variant from having to know
// about every other variant.
func Equal[H, HH set.Hasher[uint64]](this H, other HH) bool {
	return this.Hash() == other.Hash()
}

var (
	_ Type = (*neverType)(nil)
	_ Type = (*dynamicType)(nil)
	_ Type = (*noneType)(nil)
	_ Type = (*boolLiteral)(nil)
	_ Type = (*intLiteral)(nil)
	_ Type = (*stringLiteral)(nil)
	_ Type = (*bytesLiteral)(nil)
	_ Type = (*enumLiteral)(nil)
	_ Type = (*literalStringType)(nil)
	_ Type = (*instanceType)(nil)
	_ Type = (*subclassOfType)(nil)
	_ Type = (*tupleType)(nil)
	_ Type = (*variadicTupleType)(nil)
	_ Type = (*unionType)(nil)
	_ Type = (*intersectionType)(nil)
	_ Type = (*callableType)(nil)
	_ Type = (*typeVarType)(nil)
	_ Type = (*alwaysTruthyType)(nil)
	_ Type = (*alwaysFalsyType)(nil)
)

var emptySeqType iter.Seq[Type] = func(func(Type) bool) {}

// Shared singletons. Composite types must go through the Ctx
// constructors instead, so simplification and interning apply.
var (
	Never         Type = neverType{}
	Unknown       Type = dynamicType{origin: originUnknown}
	Any           Type = dynamicType{origin: originAny}
	None          Type = noneType{}
	LiteralString Type = literalStringType{}
	AlwaysTruthy  Type = alwaysTruthyType{}
	AlwaysFalsy   Type = alwaysFalsyType{}
)

// neverType is the bottom type: no value inhabits it.
type neverType struct{}

func (neverType) String() string           { return "Never" }
func (neverType) Hash() uint64             { return 16777619 }
func (neverType) children() iter.Seq[Type] { return emptySeqType }
func (t neverType) doMap(func(Type) Type) Type {
	return t
}

type dynamicOrigin bool

const (
	originUnknown dynamicOrigin = false
	originAny     dynamicOrigin = true
)

// dynamicType is the gradual type. Unknown and Any behave identically
// everywhere in the engine; they only differ in how they are displayed.
type dynamicType struct {
	origin dynamicOrigin
}

func (t dynamicType) String() string {
	if t.origin == originAny {
		return "Any"
	}
	return "Unknown"
}
func (t dynamicType) Hash() uint64 {
	if t.origin == originAny {
		return 1099511628211
	}
	return 1099511628213
}
func (dynamicType) children() iter.Seq[Type] { return emptySeqType }
func (t dynamicType) doMap(func(Type) Type) Type {
	return t
}

// noneType is the type of the None singleton.
type noneType struct{}

func (noneType) String() string           { return "None" }
func (noneType) Hash() uint64             { return 40503716383 }
func (noneType) children() iter.Seq[Type] { return emptySeqType }
func (t noneType) doMap(func(Type) Type) Type {
	return t
}

type boolLiteral struct {
	value bool
}

func (t boolLiteral) String() string {
	if t.value {
		return "Literal[True]"
	}
	return "Literal[False]"
}
func (t boolLiteral) Hash() uint64 {
	if t.value {
		return 87178291199
	}
	return 87178291197
}
func (boolLiteral) children() iter.Seq[Type] { return emptySeqType }
func (t boolLiteral) doMap(func(Type) Type) Type {
	return t
}

type intLiteral struct {
	value int64
}

func (t intLiteral) String() string {
	return "Literal[" + strconv.FormatInt(t.value, 10) + "]"
}
func (t intLiteral) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("IntLiteral"))
	_, _ = h.Write([]byte(strconv.FormatInt(t.value, 10)))
	return h.Sum64()
}
func (intLiteral) children() iter.Seq[Type] { return emptySeqType }
func (t intLiteral) doMap(func(Type) Type) Type {
	return t
}

type stringLiteral struct {
	value string
}

func (t stringLiteral) String() string {
	return "Literal[" + strconv.Quote(t.value) + "]"
}
func (t stringLiteral) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("StrLiteral"))
	_, _ = h.Write([]byte(t.value))
	return h.Sum64()
}
func (stringLiteral) children() iter.Seq[Type] { return emptySeqType }
func (t stringLiteral) doMap(func(Type) Type) Type {
	return t
}

type bytesLiteral struct {
	value string
}

func (t bytesLiteral) String() string {
	return "Literal[b" + strconv.Quote(t.value) + "]"
}
func (t bytesLiteral) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("BytesLiteral"))
	_, _ = h.Write([]byte(t.value))
	return h.Sum64()
}
func (bytesLiteral) children() iter.Seq[Type] { return emptySeqType }
func (t bytesLiteral) doMap(func(Type) Type) Type {
	return t
}

// enumLiteral is one member of an enum class, e.g. Literal[Color.RED].
type enumLiteral struct {
	class  *ClassDef
	member string
}

func (t enumLiteral) String() string {
	return "Literal[" + t.class.Name + "." + t.member + "]"
}
func (t enumLiteral) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("EnumLiteral"))
	_, _ = h.Write([]byte(t.class.QualifiedName()))
	_, _ = h.Write([]byte(t.member))
	return h.Sum64()
}
func (enumLiteral) children() iter.Seq[Type] { return emptySeqType }
func (t enumLiteral) doMap(func(Type) Type) Type {
	return t
}

// literalStringType is any string provably composed of literal parts,
// without a single known value.
type literalStringType struct{}

func (literalStringType) String() string           { return "LiteralString" }
func (literalStringType) Hash() uint64             { return 59604644783353249 }
func (literalStringType) children() iter.Seq[Type] { return emptySeqType }
func (t literalStringType) doMap(func(Type) Type) Type {
	return t
}

// instanceType is a nominal class-instance type, optionally specialized
// with type arguments. Unspecialized generics carry nil args.
type instanceType struct {
	class *ClassDef
	args  []Type
}

func (t instanceType) String() string {
	if len(t.args) == 0 {
		return t.class.Name
	}
	return fmt.Sprintf("%s[%s]", t.class.Name, util.JoinString(t.args, ", "))
}
func (t instanceType) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("Instance"))
	_, _ = h.Write([]byte(t.class.QualifiedName()))
	hash := h.Sum64()
	for _, arg := range t.args {
		hash = hash*31 + arg.Hash()
	}
	return hash
}
func (t instanceType) children() iter.Seq[Type] { return slices.Values(t.args) }
func (t instanceType) doMap(f func(Type) Type) Type {
	if len(t.args) == 0 {
		return t
	}
	mapped := make([]Type, len(t.args))
	for i, arg := range t.args {
		mapped[i] = f(arg)
	}
	return instanceType{class: t.class, args: mapped}
}

// subclassOfType is type[C]: the class object of C or any subclass.
// dynamic marks type[Any], whose class is unknown.
type subclassOfType struct {
	class   *ClassDef
	dynamic bool
}

func (t subclassOfType) String() string {
	if t.dynamic {
		return "type[Any]"
	}
	return "type[" + t.class.Name + "]"
}
func (t subclassOfType) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("SubclassOf"))
	if t.dynamic {
		_, _ = h.Write([]byte("?"))
	} else {
		_, _ = h.Write([]byte(t.class.QualifiedName()))
	}
	return h.Sum64()
}
func (subclassOfType) children() iter.Seq[Type] { return emptySeqType }
func (t subclassOfType) doMap(func(Type) Type) Type {
	return t
}

// tupleType is a fixed-length heterogeneous tuple.
// Constructed through Ctx.NewTuple: a Never element collapses the whole
// tuple to Never.
type tupleType struct {
	elems []Type
}

func (t tupleType) String() string {
	if len(t.elems) == 0 {
		return "tuple[()]"
	}
	return fmt.Sprintf("tuple[%s]", util.JoinString(t.elems, ", "))
}
func (t tupleType) Hash() uint64 {
	var hash uint64 = 104729
	for _, elem := range t.elems {
		hash = hash*37 + elem.Hash()
	}
	return hash
}
func (t tupleType) children() iter.Seq[Type] { return slices.Values(t.elems) }
func (t tupleType) doMap(f func(Type) Type) Type {
	mapped := make([]Type, len(t.elems))
	for i, elem := range t.elems {
		mapped[i] = f(elem)
	}
	return tupleType{elems: mapped}
}

// variadicTupleType is the homogeneous variable-length tuple (T, ...).
// Unlike the fixed form it does not collapse on Never: the empty tuple
// still inhabits it.
type variadicTupleType struct {
	elem Type
}

func (t variadicTupleType) String() string {
	return fmt.Sprintf("tuple[%s, ...]", t.elem)
}
func (t variadicTupleType) Hash() uint64 {
	return t.elem.Hash()*53 + 15485863
}
func (t variadicTupleType) children() iter.Seq[Type] { return util.SingleIter(t.elem) }
func (t variadicTupleType) doMap(f func(Type) Type) Type {
	return variadicTupleType{elem: f(t.elem)}
}

// unionType is an unordered set of at least two alternatives. Hashing is
// commutative over the members, so any construction order of the same
// set is the same type; the stored order is kept for display.
type unionType struct {
	members []Type
}

func (t unionType) String() string {
	return strings.Join(t.displayParts(), " | ")
}

// displayParts condenses adjacent literal members into one Literal[...]
// segment, the way the alternatives would be written in an annotation.
func (t unionType) displayParts() []string {
	var parts []string
	literalAt := -1
	var literalArgs []string
	for _, member := range t.members {
		if arg, ok := literalDisplayArg(member); ok {
			if literalAt < 0 {
				literalAt = len(parts)
				parts = append(parts, "")
			}
			literalArgs = append(literalArgs, arg)
			continue
		}
		parts = append(parts, member.String())
	}
	if literalAt >= 0 {
		parts[literalAt] = "Literal[" + strings.Join(literalArgs, ", ") + "]"
	}
	return parts
}

func literalDisplayArg(t Type) (string, bool) {
	s := t.String()
	if !IsLiteral(t) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, "Literal["), "]"), true
}

func (t unionType) Hash() uint64 {
	var sum uint64
	for _, member := range t.members {
		sum += member.Hash()
	}
	return sum*37 + 2038074743
}
func (t unionType) children() iter.Seq[Type] { return slices.Values(t.members) }
func (t unionType) doMap(f func(Type) Type) Type {
	mapped := make([]Type, len(t.members))
	for i, member := range t.members {
		mapped[i] = f(member)
	}
	return unionType{members: mapped}
}

// intersectionType is a conjunction: all of positive, none of negative.
// `X & ~AlwaysTruthy` is positive=[X], negative=[AlwaysTruthy].
type intersectionType struct {
	positive []Type
	negative []Type
}

func (t intersectionType) String() string {
	parts := make([]string, 0, len(t.positive)+len(t.negative))
	for _, p := range t.positive {
		parts = append(parts, maybeParens(p))
	}
	for _, n := range t.negative {
		parts = append(parts, "~"+maybeParens(n))
	}
	return strings.Join(parts, " & ")
}

func maybeParens(t Type) string {
	if _, ok := t.(unionType); ok {
		return "(" + t.String() + ")"
	}
	return t.String()
}

func (t intersectionType) Hash() uint64 {
	var pos, neg uint64
	for _, p := range t.positive {
		pos += p.Hash()
	}
	for _, n := range t.negative {
		neg += n.Hash()
	}
	return pos*41 + neg*43 + 87178291211
}
func (t intersectionType) children() iter.Seq[Type] {
	return util.ConcatIter(slices.Values(t.positive), slices.Values(t.negative))
}
func (t intersectionType) doMap(f func(Type) Type) Type {
	pos := make([]Type, len(t.positive))
	for i, p := range t.positive {
		pos[i] = f(p)
	}
	neg := make([]Type, len(t.negative))
	for i, n := range t.negative {
		neg[i] = f(n)
	}
	return intersectionType{positive: pos, negative: neg}
}

// Param is one formal parameter of a callable type.
type Param struct {
	Name       string
	Kind       ast.ParamKind
	Annot      Type // nil means un-annotated: Unknown
	HasDefault bool
}

func (p Param) annotOrUnknown() Type {
	if p.Annot == nil {
		return Unknown
	}
	return p.Annot
}

func (p Param) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("Param"))
	_, _ = h.Write([]byte(p.Name))
	_, _ = h.Write([]byte(p.Kind.String()))
	hash := h.Sum64()
	if p.HasDefault {
		hash = hash*31 + 1
	}
	return hash*31 + p.annotOrUnknown().Hash()
}

func (p Param) String() string {
	prefix := ""
	switch p.Kind {
	case ast.ParamVarPositional:
		prefix = "*"
	case ast.ParamVarKeyword:
		prefix = "**"
	}
	name := p.Name
	if name == "" {
		return prefix + p.annotOrUnknown().String()
	}
	return prefix + name + ": " + p.annotOrUnknown().String()
}

// callableType is an ordered parameter list plus return type.
// gradualParams is the `...` parameter list, which accepts anything.
type callableType struct {
	params        []Param
	gradualParams bool
	ret           Type
}

func (t callableType) String() string {
	if t.gradualParams {
		return fmt.Sprintf("(...) -> %s", t.ret)
	}
	return fmt.Sprintf("(%s) -> %s", util.JoinString(t.params, ", "), t.ret)
}
func (t callableType) Hash() uint64 {
	var hash uint64 = 13466917
	if t.gradualParams {
		hash = 13466919
	}
	for _, p := range t.params {
		hash = hash*31 + p.Hash()
	}
	return hash*31 + t.ret.Hash()
}
func (t callableType) children() iter.Seq[Type] {
	return func(yield func(Type) bool) {
		for _, p := range t.params {
			if !yield(p.annotOrUnknown()) {
				return
			}
		}
		yield(t.ret)
	}
}
func (t callableType) doMap(f func(Type) Type) Type {
	params := make([]Param, len(t.params))
	for i, p := range t.params {
		mapped := p
		if p.Annot != nil {
			mapped.Annot = f(p.Annot)
		}
		params[i] = mapped
	}
	return callableType{params: params, gradualParams: t.gradualParams, ret: f(t.ret)}
}

// typeVarType is a use of a type variable.
type typeVarType struct {
	def *TypeVarDef
}

func (t typeVarType) String() string { return t.def.Name }
func (t typeVarType) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("TypeVar"))
	_, _ = h.Write([]byte(t.def.Name))
	return h.Sum64()*31 + t.def.id
}
func (typeVarType) children() iter.Seq[Type] { return emptySeqType }
func (t typeVarType) doMap(func(Type) Type) Type {
	return t
}

// alwaysTruthyType is the set of objects whose truthiness is statically
// True. It only ever appears in intersections built by narrowing.
type alwaysTruthyType struct{}

func (alwaysTruthyType) String() string           { return "AlwaysTruthy" }
func (alwaysTruthyType) Hash() uint64             { return 32452843 }
func (alwaysTruthyType) children() iter.Seq[Type] { return emptySeqType }
func (t alwaysTruthyType) doMap(func(Type) Type) Type {
	return t
}

// alwaysFalsyType is the complement marker of alwaysTruthyType.
type alwaysFalsyType struct{}

func (alwaysFalsyType) String() string           { return "AlwaysFalsy" }
func (alwaysFalsyType) Hash() uint64             { return 32452867 }
func (alwaysFalsyType) children() iter.Seq[Type] { return emptySeqType }
func (t alwaysFalsyType) doMap(func(Type) Type) Type {
	return t
}

// IsNever reports whether t is the bottom type.
func IsNever(t Type) bool {
	_, ok := t.(neverType)
	return ok
}

// IsDynamic reports whether t is the gradual type, under either spelling.
func IsDynamic(t Type) bool {
	_, ok := t.(dynamicType)
	return ok
}

// IsNone reports whether t is the None singleton type.
func IsNone(t Type) bool {
	_, ok := t.(noneType)
	return ok
}

// IsLiteral reports whether t is an exact-value literal type.
func IsLiteral(t Type) bool {
	switch t.(type) {
	case boolLiteral, intLiteral, stringLiteral, bytesLiteral, enumLiteral:
		return true
	default:
		return false
	}
}

// IsSingleton reports whether exactly one runtime object inhabits t.
func IsSingleton(t Type) bool {
	switch t := t.(type) {
	case noneType, boolLiteral, enumLiteral:
		return true
	case subclassOfType:
		return !t.dynamic && t.class.IsFinal
	default:
		return false
	}
}

// IsSingleValued reports whether all inhabitants of t compare equal:
// singletons, value literals, and tuples of single-valued components.
func IsSingleValued(t Type) bool {
	switch t := t.(type) {
	case tupleType:
		for _, elem := range t.elems {
			if !IsSingleValued(elem) {
				return false
			}
		}
		return true
	default:
		return IsSingleton(t) || IsLiteral(t)
	}
}

// TupleElems returns the element types of a fixed-length tuple.
// Variadic tuples have no fixed shape and report false.
func TupleElems(t Type) ([]Type, bool) {
	tt, ok := t.(tupleType)
	if !ok {
		return nil, false
	}
	return tt.elems, true
}

// InstanceClass returns the class and type arguments behind an instance type.
func InstanceClass(t Type) (*ClassDef, []Type, bool) {
	inst, ok := t.(instanceType)
	if !ok {
		return nil, nil, false
	}
	return inst.class, inst.args, true
}

// TypeVarOf returns the definition behind a type variable use.
func TypeVarOf(t Type) (*TypeVarDef, bool) {
	tv, ok := t.(typeVarType)
	if !ok {
		return nil, false
	}
	return tv.def, true
}
