package types

import "github.com/krait-dev/krait/frontend/ast"

// seedUniverse registers the builtin declaration corpus. Operator
// dispatch, truthiness and the descriptor protocol all resolve through
// these members; they are ordinary class declarations, provided here
// instead of parsed from stub files.
func seedUniverse(r *Registry) {
	decl := func(module, name string) *ClassDef {
		return r.Register(NewClassDef(module, name))
	}

	b := &r.Builtins
	b.Object = decl("builtins", "object")
	b.Type = decl("builtins", "type")
	b.Int = decl("builtins", "int")
	b.Float = decl("builtins", "float")
	b.Complex = decl("builtins", "complex")
	b.Bool = decl("builtins", "bool")
	b.Str = decl("builtins", "str")
	b.Bytes = decl("builtins", "bytes")
	b.List = decl("builtins", "list")
	b.Tuple = decl("builtins", "tuple")
	b.Dict = decl("builtins", "dict")
	b.Set = decl("builtins", "set")
	b.Slice = decl("builtins", "slice")
	b.Range = decl("builtins", "range")
	b.NoneType = decl("builtins", "NoneType")
	b.Function = decl("builtins", "function")
	b.BuiltinFunction = decl("builtins", "builtin_function_or_method")
	b.Property = decl("builtins", "property")
	b.ClassMethod = decl("builtins", "classmethod")
	b.StaticMethod = decl("builtins", "staticmethod")
	b.Super = decl("builtins", "super")
	b.BaseException = decl("builtins", "BaseException")
	b.Exception = decl("builtins", "Exception")
	b.Enum = decl("enum", "Enum")
	b.Sized = decl("typing", "Sized")
	b.Iterable = decl("typing", "Iterable")
	b.Iterator = decl("typing", "Iterator")
	b.Container = decl("typing", "Container")
	b.Hashable = decl("typing", "Hashable")

	c := NewCtx(r)
	object := c.Instance(b.Object)

	for _, def := range []*ClassDef{
		b.Type, b.Int, b.Float, b.Complex, b.Str, b.Bytes, b.List, b.Tuple,
		b.Dict, b.Set, b.Slice, b.Range, b.NoneType, b.Function,
		b.BuiltinFunction, b.Property, b.ClassMethod, b.StaticMethod,
		b.Super, b.BaseException, b.Enum,
		b.Sized, b.Iterable, b.Iterator, b.Container, b.Hashable,
	} {
		def.Bases = []Type{object}
	}
	b.Bool.Bases = []Type{c.Instance(b.Int)}
	b.Exception.Bases = []Type{c.Instance(b.BaseException)}

	// classes the runtime refuses to subclass
	for _, def := range []*ClassDef{
		b.Bool, b.NoneType, b.Function, b.BuiltinFunction, b.Slice, b.Range,
	} {
		def.IsFinal = true
	}
	for _, def := range []*ClassDef{b.Sized, b.Iterable, b.Iterator, b.Container, b.Hashable} {
		def.IsProtocol = true
	}

	b.List.TypeParams = []*TypeVarDef{r.NewTypeVar("T", nil)}
	b.Dict.TypeParams = []*TypeVarDef{r.NewTypeVar("K", nil), r.NewTypeVar("V", nil)}
	b.Set.TypeParams = []*TypeVarDef{r.NewTypeVar("T", nil)}
	b.Property.TypeParams = []*TypeVarDef{r.NewTypeVar("G", nil)}
	b.Iterable.TypeParams = []*TypeVarDef{r.NewTypeVar("T", nil)}
	b.Iterator.TypeParams = []*TypeVarDef{r.NewTypeVar("T", nil)}
	b.Container.TypeParams = []*TypeVarDef{r.NewTypeVar("T", nil)}

	b.Iterator.Bases = []Type{c.Instance(b.Iterable, c.TypeVar(b.Iterator.TypeParams[0]))}

	seedMembers(c)
}

func seedMembers(c *Ctx) {
	b := &c.reg.Builtins

	objectT := c.Instance(b.Object)
	typeT := c.Instance(b.Type)
	intT := c.Instance(b.Int)
	floatT := c.Instance(b.Float)
	complexT := c.Instance(b.Complex)
	boolT := c.Instance(b.Bool)
	strT := c.Instance(b.Str)
	bytesT := c.Instance(b.Bytes)
	tupleT := c.Instance(b.Tuple)

	self := Param{Name: "self", Kind: ast.ParamPositionalOrKeyword}
	pos := func(name string, annot Type) Param {
		return Param{Name: name, Kind: ast.ParamPositionalOrKeyword, Annot: annot}
	}
	opt := func(name string, annot Type) Param {
		return Param{Name: name, Kind: ast.ParamPositionalOrKeyword, Annot: annot, HasDefault: true}
	}
	starArgs := Param{Name: "args", Kind: ast.ParamVarPositional}

	method := func(owner *ClassDef, name string, ret Type, params ...Param) {
		sig := append([]Param{self}, params...)
		owner.AddMember(&Member{Name: name, Kind: MemberMethod, Type: c.NewCallable(sig, ret)})
	}
	value := func(owner *ClassDef, name string, t Type) {
		owner.AddMember(&Member{Name: name, Kind: MemberValue, Type: t})
	}
	binOps := func(owner *ClassDef, names []string, operand, ret Type) {
		for _, n := range names {
			method(owner, n, ret, pos("other", operand))
		}
	}

	method(b.Object, "__init__", None)
	method(b.Object, "__eq__", boolT, pos("other", objectT))
	method(b.Object, "__ne__", boolT, pos("other", objectT))
	method(b.Object, "__hash__", intT)
	method(b.Object, "__str__", strT)
	method(b.Object, "__repr__", strT)

	method(b.Type, "__call__", Unknown, starArgs)
	value(b.Type, "__name__", strT)

	binOps(b.Int, []string{
		"__add__", "__radd__", "__sub__", "__rsub__", "__mul__", "__rmul__",
		"__floordiv__", "__rfloordiv__", "__mod__", "__rmod__", "__pow__", "__rpow__",
		"__and__", "__rand__", "__or__", "__ror__", "__xor__", "__rxor__",
		"__lshift__", "__rshift__",
	}, intT, intT)
	binOps(b.Int, []string{"__truediv__", "__rtruediv__"}, intT, floatT)
	binOps(b.Int, []string{"__lt__", "__le__", "__gt__", "__ge__"}, intT, boolT)
	method(b.Int, "__neg__", intT)
	method(b.Int, "__pos__", intT)
	method(b.Int, "__invert__", intT)
	method(b.Int, "__abs__", intT)
	method(b.Int, "__index__", intT)
	method(b.Int, "__bool__", boolT)

	numeric := c.NewUnion(intT, floatT)
	binOps(b.Float, []string{
		"__add__", "__radd__", "__sub__", "__rsub__", "__mul__", "__rmul__",
		"__truediv__", "__rtruediv__", "__floordiv__", "__rfloordiv__", "__mod__", "__pow__",
	}, numeric, floatT)
	binOps(b.Float, []string{"__lt__", "__le__", "__gt__", "__ge__"}, numeric, boolT)
	method(b.Float, "__neg__", floatT)
	method(b.Float, "__pos__", floatT)
	method(b.Float, "__abs__", floatT)
	method(b.Float, "__bool__", boolT)

	// complex supports arithmetic but not ordering
	anyNumeric := c.NewUnion(intT, floatT, complexT)
	binOps(b.Complex, []string{
		"__add__", "__radd__", "__sub__", "__rsub__", "__mul__", "__rmul__",
		"__truediv__", "__rtruediv__",
	}, anyNumeric, complexT)
	method(b.Complex, "__neg__", complexT)
	method(b.Complex, "__bool__", boolT)

	// bool refines the bitwise results it inherits from int
	binOps(b.Bool, []string{"__and__", "__or__", "__xor__"}, boolT, boolT)

	method(b.Str, "__add__", strT, pos("other", strT))
	method(b.Str, "__mul__", strT, pos("n", intT))
	method(b.Str, "__rmul__", strT, pos("n", intT))
	method(b.Str, "__mod__", strT, pos("args", objectT))
	binOps(b.Str, []string{"__lt__", "__le__", "__gt__", "__ge__"}, strT, boolT)
	method(b.Str, "__len__", intT)
	method(b.Str, "__contains__", boolT, pos("item", strT))
	method(b.Str, "__iter__", c.Instance(b.Iterator, strT))
	method(b.Str, "__getitem__", strT, pos("index", c.NewUnion(intT, c.Instance(b.Slice))))

	method(b.Bytes, "__add__", bytesT, pos("other", bytesT))
	method(b.Bytes, "__mul__", bytesT, pos("n", intT))
	binOps(b.Bytes, []string{"__lt__", "__le__", "__gt__", "__ge__"}, bytesT, boolT)
	method(b.Bytes, "__len__", intT)
	method(b.Bytes, "__contains__", boolT, pos("item", c.NewUnion(intT, bytesT)))
	method(b.Bytes, "__iter__", c.Instance(b.Iterator, intT))
	method(b.Bytes, "__getitem__", intT, pos("index", intT))

	listElem := c.TypeVar(b.List.TypeParams[0])
	listT := c.Instance(b.List, listElem)
	method(b.List, "__len__", intT)
	method(b.List, "__getitem__", listElem, pos("index", intT))
	method(b.List, "__setitem__", None, pos("index", intT), pos("value", listElem))
	method(b.List, "__contains__", boolT, pos("item", objectT))
	method(b.List, "__iter__", c.Instance(b.Iterator, listElem))
	method(b.List, "__add__", listT, pos("other", listT))
	method(b.List, "__mul__", listT, pos("n", intT))
	method(b.List, "append", None, pos("item", listElem))

	// the tuple class backs the homogeneous form; fixed tuples compare
	// structurally before any of these are consulted
	method(b.Tuple, "__len__", intT)
	method(b.Tuple, "__contains__", boolT, pos("item", objectT))
	method(b.Tuple, "__iter__", c.Instance(b.Iterator, Unknown))
	method(b.Tuple, "__getitem__", Unknown, pos("index", intT))
	binOps(b.Tuple, []string{"__lt__", "__le__", "__gt__", "__ge__"}, tupleT, boolT)
	method(b.Tuple, "__add__", tupleT, pos("other", tupleT))

	dictKey := c.TypeVar(b.Dict.TypeParams[0])
	dictVal := c.TypeVar(b.Dict.TypeParams[1])
	method(b.Dict, "__len__", intT)
	method(b.Dict, "__getitem__", dictVal, pos("key", dictKey))
	method(b.Dict, "__setitem__", None, pos("key", dictKey), pos("value", dictVal))
	method(b.Dict, "__contains__", boolT, pos("key", objectT))
	method(b.Dict, "__iter__", c.Instance(b.Iterator, dictKey))
	method(b.Dict, "get", c.NewUnion(dictVal, None), pos("key", dictKey))

	setElem := c.TypeVar(b.Set.TypeParams[0])
	setT := c.Instance(b.Set, setElem)
	method(b.Set, "__len__", intT)
	method(b.Set, "__contains__", boolT, pos("item", objectT))
	method(b.Set, "__iter__", c.Instance(b.Iterator, setElem))
	binOps(b.Set, []string{"__and__", "__or__", "__sub__", "__xor__"}, setT, setT)
	method(b.Set, "add", None, pos("item", setElem))

	intOrNone := c.NewUnion(intT, None)
	value(b.Slice, "start", intOrNone)
	value(b.Slice, "stop", intOrNone)
	value(b.Slice, "step", intOrNone)

	method(b.Range, "__len__", intT)
	method(b.Range, "__getitem__", intT, pos("index", intT))
	method(b.Range, "__iter__", c.Instance(b.Iterator, intT))
	method(b.Range, "__contains__", boolT, pos("item", objectT))

	method(b.NoneType, "__bool__", c.BoolLiteral(false))

	gradualCall := c.NewGradualCallable(Unknown)
	b.Function.AddMember(&Member{Name: "__call__", Kind: MemberMethod, Type: gradualCall})
	value(b.Function, "__name__", strT)
	b.BuiltinFunction.AddMember(&Member{Name: "__call__", Kind: MemberMethod, Type: gradualCall})

	propVal := c.TypeVar(b.Property.TypeParams[0])
	propT := c.Instance(b.Property, propVal)
	method(b.Property, "__get__", propVal,
		pos("obj", objectT), opt("objtype", c.NewUnion(typeT, None)))
	method(b.Property, "__set__", None, pos("obj", objectT), pos("value", objectT))
	method(b.Property, "__delete__", None, pos("obj", objectT))
	method(b.Property, "getter", propT, pos("fget", objectT))
	method(b.Property, "setter", propT, pos("fset", objectT))
	method(b.Property, "deleter", propT, pos("fdel", objectT))

	method(b.BaseException, "__init__", None, starArgs)
	value(b.BaseException, "args", tupleT)

	value(b.Enum, "name", strT)
	value(b.Enum, "value", Unknown)

	method(b.Sized, "__len__", intT)
	method(b.Iterable, "__iter__", c.Instance(b.Iterator, c.TypeVar(b.Iterable.TypeParams[0])))
	iterElem := c.TypeVar(b.Iterator.TypeParams[0])
	method(b.Iterator, "__next__", iterElem)
	method(b.Iterator, "__iter__", c.Instance(b.Iterator, iterElem))
	method(b.Container, "__contains__", boolT, pos("item", objectT))
	method(b.Hashable, "__hash__", intT)
}
