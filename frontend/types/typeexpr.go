package types

import (
	"fmt"
	"log/slog"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// typeExprMode selects between the annotation meaning of a type
// expression (float widens to int | float) and the bare reading that
// diagnostics print back to the user.
type typeExprMode struct {
	annotationMeaning bool
}

// DeclQualifiers are the declaration-only wrappers peeled off an
// annotation. They describe the declaration, never the type value.
type DeclQualifiers struct {
	ClassVar bool
	Final    bool
}

// AnnotationType evaluates a type expression in annotation position.
// Every failure recovers as Unknown with a diagnostic, never a hard
// stop.
func (c *Ctx) AnnotationType(e ast.Expr) Type {
	return c.typeExpr(e, typeExprMode{annotationMeaning: true})
}

// BareAnnotationType evaluates the same grammar without the numeric
// tower widening: the class as written.
func (c *Ctx) BareAnnotationType(e ast.Expr) Type {
	return c.typeExpr(e, typeExprMode{})
}

// DeclaredType peels ClassVar and Final wrappers off a declaration
// annotation, then evaluates the rest. A bare qualifier, as in
// `x: Final = 3`, yields Unknown and leaves the type to value
// inference.
func (c *Ctx) DeclaredType(e ast.Expr) (Type, DeclQualifiers) {
	var quals DeclQualifiers
	for {
		switch node := e.(type) {
		case *ast.NameExpr:
			switch node.Name {
			case "Final":
				quals.Final = true
				return Unknown, quals
			case "ClassVar":
				quals.ClassVar = true
				return Unknown, quals
			}
		case *ast.SubscriptExpr:
			name, ok := node.Value.(*ast.NameExpr)
			if !ok {
				break
			}
			switch name.Name {
			case "Final", "ClassVar":
				if name.Name == "Final" {
					quals.Final = true
				} else {
					quals.ClassVar = true
				}
				args := subscriptArgs(node.Index)
				if len(args) != 1 {
					c.invalidForm(node, name.Name, "expects exactly one argument")
					return Unknown, quals
				}
				e = args[0]
				continue
			}
		}
		return c.AnnotationType(e), quals
	}
}

func (c *Ctx) typeExpr(e ast.Expr, mode typeExprMode) Type {
	if !c.guardDepth() {
		c.unguardDepth()
		return Unknown
	}
	defer c.unguardDepth()

	switch e := e.(type) {
	case *ast.NameExpr:
		return c.typeName(e, mode)
	case *ast.NoneLit:
		return None
	case *ast.StringLit:
		return c.forwardAnnotation(e, mode)
	case *ast.AttributeExpr:
		return c.typeAttribute(e)
	case *ast.SubscriptExpr:
		return c.typeSubscript(e, mode)
	case *ast.BinaryExpr:
		if e.Op == ast.OpBitOr {
			return c.NewUnion(c.typeExpr(e.Left, mode), c.typeExpr(e.Right, mode))
		}
		return c.invalidForm(e, fmt.Sprintf("binary operator '%s'", e.Op), "")
	case *ast.IntLit:
		return c.invalidForm(e, "int literal", "did you mean Literal[...]?")
	case *ast.FloatLit:
		return c.invalidForm(e, "float literal", "")
	case *ast.BoolLit:
		return c.invalidForm(e, "bool literal", "did you mean Literal[...]?")
	case *ast.BytesLit:
		return c.invalidForm(e, "bytes literal", "did you mean Literal[...]?")
	case *ast.FStringLit:
		return c.invalidForm(e, "f-string", "")
	case *ast.EllipsisLit:
		return c.invalidForm(e, "'...'", "only allowed in tuple[T, ...] and Callable[..., T]")
	case *ast.CompareExpr:
		return c.invalidForm(e, "comparison", "")
	case *ast.BoolExpr:
		return c.invalidForm(e, fmt.Sprintf("'%s' expression", e.Op), "")
	case *ast.UnaryExpr:
		return c.invalidForm(e, fmt.Sprintf("unary operator '%s'", e.Op), "")
	case *ast.ComprehensionExpr:
		return c.invalidForm(e, "comprehension", "")
	case *ast.LambdaExpr:
		return c.invalidForm(e, "lambda", "")
	case *ast.AwaitExpr:
		return c.invalidForm(e, "await expression", "")
	case *ast.YieldExpr:
		return c.invalidForm(e, "yield expression", "")
	case *ast.SliceExpr:
		return c.invalidForm(e, "slice", "")
	case *ast.CallExpr:
		return c.invalidForm(e, "call", "")
	case *ast.StarredExpr:
		return c.invalidForm(e, "starred expression", "")
	case *ast.TupleExpr:
		return c.invalidForm(e, "tuple display", "did you mean tuple[...]?")
	case *ast.ListExpr:
		return c.invalidForm(e, "list display", "only allowed as the first argument of Callable")
	}
	c.addFailure("unhandled %T in type position", e)
	c.logger.Debug("unhandled type position", slog.String("dump", DumpString(e)))
	return Unknown
}

func (c *Ctx) invalidForm(at ast.Positioner, form, why string) Type {
	c.addError(diag.New(diag.NewInvalidTypeForm{Positioner: at, Form: form, Why: why}))
	return Unknown
}

func (c *Ctx) typeName(e *ast.NameExpr, mode typeExprMode) Type {
	switch e.Name {
	case "Any":
		return Any
	case "Never", "NoReturn":
		return Never
	case "None":
		return None
	case "LiteralString":
		return LiteralString
	case "Callable":
		return c.NewGradualCallable(Unknown)
	case "Literal", "Annotated", "Union", "Optional":
		return c.invalidForm(e, e.Name, "requires arguments")
	case "Final", "ClassVar":
		return c.invalidForm(e, e.Name, "only allowed at the top level of a declaration")
	}
	if mode.annotationMeaning {
		switch e.Name {
		case "float":
			return c.NewUnion(c.Instance(c.reg.Builtins.Int), c.Instance(c.reg.Builtins.Float))
		case "complex":
			return c.NewUnion(
				c.Instance(c.reg.Builtins.Int),
				c.Instance(c.reg.Builtins.Float),
				c.Instance(c.reg.Builtins.Complex),
			)
		}
	}
	if t, state := c.resolveName(e.Name); state != BindingUnbound && t != nil {
		if state == BindingPossiblyUnbound {
			c.addError(diag.New(diag.NewPossiblyUnresolvedReference{Positioner: e, Name: e.Name}))
		}
		return c.valueAsType(t, e)
	}
	// names the definition provider cannot see still resolve against
	// the builtin corpus, so bare registries can serve annotations
	if cls, ok := c.reg.Lookup(e.Name); ok {
		return c.Instance(cls)
	}
	c.addError(diag.New(diag.NewUnresolvedReference{Positioner: e, Name: e.Name}))
	return Unknown
}

// valueAsType reinterprets the value a name is bound to as a type: a
// class object stands for its instances, a typevar for itself.
func (c *Ctx) valueAsType(t Type, at ast.Positioner) Type {
	switch t := t.(type) {
	case subclassOfType:
		if t.dynamic {
			return Unknown
		}
		return c.Instance(t.class)
	case typeVarType:
		return t
	case dynamicType, neverType:
		return t
	case noneType:
		return None
	case unionType:
		// a conditionally-defined alias: every alternative must itself
		// read as a type
		parts := make([]Type, 0, len(t.members))
		for _, m := range t.members {
			parts = append(parts, c.valueAsType(m, at))
		}
		return c.NewUnion(parts...)
	}
	return c.invalidForm(at, t.String(), "not a class, typevar or special form")
}

func (c *Ctx) typeAttribute(e *ast.AttributeExpr) Type {
	base, ok := e.Value.(*ast.NameExpr)
	if !ok {
		return c.invalidForm(e, "attribute expression", "only module-qualified names are allowed here")
	}
	if cls, ok := c.reg.Lookup(base.Name + "." + e.Attr); ok {
		return c.Instance(cls)
	}
	if t, state := c.resolveName(base.Name); state != BindingUnbound && t != nil {
		if sub, ok := t.(subclassOfType); ok && !sub.dynamic {
			if inner, found := c.reg.Lookup(sub.class.QualifiedName() + "." + e.Attr); found {
				return c.Instance(inner)
			}
		}
	}
	c.addError(diag.New(diag.NewUnresolvedReference{Positioner: e, Name: base.Name + "." + e.Attr}))
	return Unknown
}

// forwardAnnotation re-parses a string annotation as a nested type
// expression. Whether that resolution happens now or after the module
// body is the caller's concern; the grammar is the same either way.
func (c *Ctx) forwardAnnotation(e *ast.StringLit, mode typeExprMode) Type {
	if c.annotParser == nil {
		c.addFailure("no annotation parser configured for forward reference %q", e.Value)
		return Unknown
	}
	parsed, err := c.annotParser(e.Value, e.Range)
	if err != nil {
		return c.invalidForm(e, fmt.Sprintf("%q", e.Value), "cannot be parsed as a type expression")
	}
	return c.typeExpr(parsed, mode)
}

// subscriptArgs splits C[a, b, c] into its argument expressions.
func subscriptArgs(index ast.Expr) []ast.Expr {
	if tup, ok := index.(*ast.TupleExpr); ok {
		return tup.Elems
	}
	return []ast.Expr{index}
}

func (c *Ctx) typeSubscript(e *ast.SubscriptExpr, mode typeExprMode) Type {
	args := subscriptArgs(e.Index)
	if name, ok := e.Value.(*ast.NameExpr); ok {
		switch name.Name {
		case "Literal":
			return c.literalForm(e, args)
		case "Union":
			if len(args) == 0 {
				return c.invalidForm(e, "Union[]", "requires at least one argument")
			}
			parts := make([]Type, 0, len(args))
			for _, arg := range args {
				parts = append(parts, c.typeExpr(arg, mode))
			}
			return c.NewUnion(parts...)
		case "Optional":
			if len(args) != 1 {
				return c.invalidForm(e, "Optional", "expects exactly one argument")
			}
			return c.NewUnion(c.typeExpr(args[0], mode), None)
		case "Annotated":
			return c.annotatedForm(e, args, mode)
		case "Callable":
			return c.callableForm(e, args, mode)
		case "tuple", "Tuple":
			return c.tupleForm(e, args, mode)
		case "type", "Type":
			return c.typeForm(e, args, mode)
		case "Final", "ClassVar":
			return c.invalidForm(e, name.Name, "only allowed at the top level of a declaration")
		}
	}
	base := c.typeExpr(e.Value, typeExprMode{})
	if IsDynamic(base) {
		return Unknown
	}
	inst, ok := base.(instanceType)
	if !ok || len(inst.args) > 0 {
		return c.invalidForm(e, base.String(), "cannot be parameterized")
	}
	return c.applyTypeArgs(e, inst.class, args, mode)
}

// applyTypeArgs specializes a generic class reference. Wrong arity is
// reported and repaired towards the declared parameter count.
func (c *Ctx) applyTypeArgs(at ast.Positioner, class *ClassDef, args []ast.Expr, mode typeExprMode) Type {
	params := class.TypeParams
	if len(params) == 0 {
		return c.invalidForm(at, class.Name, "is not generic")
	}
	resolved := make([]Type, len(params))
	for i := range params {
		if i < len(args) {
			resolved[i] = c.typeExpr(args[i], mode)
		} else {
			resolved[i] = Unknown
		}
	}
	if len(args) != len(params) {
		c.invalidForm(at, class.Name,
			fmt.Sprintf("expects %d type arguments, got %d", len(params), len(args)))
	}
	return c.Instance(class, resolved...)
}

// literalForm evaluates Literal[...]: value expressions, with nested
// Literal[...] splicing into the surrounding argument list.
func (c *Ctx) literalForm(at ast.Positioner, args []ast.Expr) Type {
	if len(args) == 0 {
		return c.invalidForm(at, "Literal[]", "requires at least one argument")
	}
	var members []Type
	for _, arg := range args {
		t, ok := c.literalArg(arg)
		if !ok {
			return c.invalidForm(arg, "Literal argument",
				"must be an int, bool, str or bytes literal, None, or an enum member")
		}
		members = append(members, unionParts(t)...)
	}
	return c.NewUnion(members...)
}

func (c *Ctx) literalArg(arg ast.Expr) (Type, bool) {
	switch arg := arg.(type) {
	case *ast.IntLit:
		return c.IntLiteral(arg.Value), true
	case *ast.BoolLit:
		return c.BoolLiteral(arg.Value), true
	case *ast.StringLit:
		return c.StringLiteral(arg.Value), true
	case *ast.BytesLit:
		return c.BytesLiteral(arg.Value), true
	case *ast.NoneLit:
		return None, true
	case *ast.UnaryExpr:
		if arg.Op != ast.OpNeg {
			return nil, false
		}
		if lit, ok := arg.Operand.(*ast.IntLit); ok {
			return c.IntLiteral(-lit.Value), true
		}
		return nil, false
	case *ast.SubscriptExpr:
		if name, ok := arg.Value.(*ast.NameExpr); ok && name.Name == "Literal" {
			return c.literalForm(arg, subscriptArgs(arg.Index)), true
		}
		return nil, false
	case *ast.AttributeExpr:
		return c.enumMemberArg(arg)
	}
	return nil, false
}

func (c *Ctx) enumMemberArg(arg *ast.AttributeExpr) (Type, bool) {
	base, ok := arg.Value.(*ast.NameExpr)
	if !ok {
		return nil, false
	}
	var class *ClassDef
	if t, state := c.resolveName(base.Name); state != BindingUnbound && t != nil {
		if sub, isClass := t.(subclassOfType); isClass && !sub.dynamic {
			class = sub.class
		}
	}
	if class == nil {
		class, _ = c.reg.Lookup(base.Name)
	}
	if class == nil || !class.IsEnum {
		return nil, false
	}
	if _, found := class.OwnMember(arg.Attr); !found {
		return nil, false
	}
	return c.EnumLiteral(class, arg.Attr), true
}

// annotatedForm evaluates Annotated[T, m...]: the metadata is carried
// for tools and never type-checked here.
func (c *Ctx) annotatedForm(at ast.Positioner, args []ast.Expr, mode typeExprMode) Type {
	switch len(args) {
	case 0:
		return c.invalidForm(at, "Annotated[]", "requires a type and at least one metadata argument")
	case 1:
		c.invalidForm(at, "Annotated", "requires at least one metadata argument")
		return c.typeExpr(args[0], mode)
	default:
		return c.typeExpr(args[0], mode)
	}
}

func (c *Ctx) callableForm(at ast.Positioner, args []ast.Expr, mode typeExprMode) Type {
	if len(args) != 2 {
		return c.invalidForm(at, "Callable", "expects a parameter list and a return type")
	}
	ret := c.typeExpr(args[1], mode)
	switch params := args[0].(type) {
	case *ast.EllipsisLit:
		return c.NewGradualCallable(ret)
	case *ast.ListExpr:
		declared := make([]Param, len(params.Elems))
		for i, p := range params.Elems {
			declared[i] = Param{
				Kind:  ast.ParamPositionalOnly,
				Annot: c.typeExpr(p, mode),
			}
		}
		return c.NewCallable(declared, ret)
	default:
		return c.invalidForm(args[0], "Callable parameter list", "must be a list of types or '...'")
	}
}

func (c *Ctx) tupleForm(at ast.Positioner, args []ast.Expr, mode typeExprMode) Type {
	if len(args) == 1 {
		if tup, ok := args[0].(*ast.TupleExpr); ok && len(tup.Elems) == 0 {
			return c.NewTuple()
		}
	}
	if len(args) == 2 {
		if _, ok := args[1].(*ast.EllipsisLit); ok {
			return c.NewVariadicTuple(c.typeExpr(args[0], mode))
		}
	}
	elems := make([]Type, len(args))
	for i, arg := range args {
		if _, ok := arg.(*ast.EllipsisLit); ok {
			return c.invalidForm(arg, "'...'", "only allowed as the second of two tuple arguments")
		}
		elems[i] = c.typeExpr(arg, mode)
	}
	return c.NewTuple(elems...)
}

func (c *Ctx) typeForm(at ast.Positioner, args []ast.Expr, mode typeExprMode) Type {
	if len(args) != 1 {
		return c.invalidForm(at, "type[...]", "expects exactly one argument")
	}
	arg := c.typeExpr(args[0], typeExprMode{})
	switch arg := arg.(type) {
	case dynamicType:
		return c.SubclassOfAny()
	case noneType:
		return c.SubclassOf(c.reg.Builtins.NoneType)
	case instanceType:
		if len(arg.args) > 0 {
			return c.invalidForm(args[0], arg.String(), "type[...] takes a bare class")
		}
		return c.SubclassOf(arg.class)
	case typeVarType:
		return c.SubclassOfAny()
	}
	return c.invalidForm(args[0], arg.String(), "is not a class")
}
