package types

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// ExprType infers the type of an expression in the current context.
// Inference never fails: malformed programs report diagnostics and
// resolve to Unknown so downstream checks keep running.
func (c *Ctx) ExprType(e ast.Expr) Type {
	if e == nil {
		c.addFailure("nil expression")
		return Unknown
	}
	if !c.guardDepth() {
		c.unguardDepth()
		return Unknown
	}
	defer c.unguardDepth()

	switch e := e.(type) {
	case *ast.IntLit:
		return c.IntLiteral(e.Value)
	case *ast.FloatLit:
		return c.Instance(c.reg.Builtins.Float)
	case *ast.StringLit:
		return c.StringLiteral(e.Value)
	case *ast.BytesLit:
		return c.BytesLiteral(e.Value)
	case *ast.BoolLit:
		return c.BoolLiteral(e.Value)
	case *ast.NoneLit:
		return None
	case *ast.EllipsisLit:
		return Unknown
	case *ast.FStringLit:
		return c.fstringType(e)
	case *ast.NameExpr:
		return c.nameType(e)
	case *ast.AttributeExpr:
		return c.attributeExprType(e)
	case *ast.SubscriptExpr:
		return c.subscriptType(e)
	case *ast.CallExpr:
		return c.callExprType(e)
	case *ast.BinaryExpr:
		return c.binaryExprType(e)
	case *ast.UnaryExpr:
		if e.Op == ast.OpNot {
			return c.NotType(c.ExprType(e.Operand), e.Range)
		}
		return c.UnaryOpType(e.Op, c.ExprType(e.Operand), e.Range)
	case *ast.BoolExpr:
		return c.boolExprType(e)
	case *ast.CompareExpr:
		operands := make([]Type, 0, len(e.Comparators)+1)
		operands = append(operands, c.ExprType(e.Left))
		for _, cmp := range e.Comparators {
			operands = append(operands, c.ExprType(cmp))
		}
		return c.ChainedCompareType(e.Ops, operands, e.Range)
	case *ast.LambdaExpr:
		return c.lambdaType(e)
	case *ast.TupleExpr:
		return c.tupleExprType(e)
	case *ast.ListExpr:
		return c.listExprType(e)
	case *ast.StarredExpr:
		return c.ExprType(e.Value)
	case *ast.SliceExpr:
		for _, part := range []ast.Expr{e.Lower, e.Upper, e.Step} {
			if part != nil {
				c.ExprType(part)
			}
		}
		return c.Instance(c.reg.Builtins.Slice)
	case *ast.AwaitExpr:
		c.ExprType(e.Value)
		return Unknown
	case *ast.YieldExpr:
		if e.Value != nil {
			c.ExprType(e.Value)
		}
		return Unknown
	case *ast.ComprehensionExpr:
		return c.comprehensionType(e)
	default:
		c.addFailure("unhandled expression %T", e)
		c.logger.Debug("unhandled expression", slog.String("dump", DumpString(e)))
		return Unknown
	}
}

func (c *Ctx) nameType(e *ast.NameExpr) Type {
	t, state := c.resolveName(e.Name)
	switch state {
	case BindingBound:
		return t
	case BindingPossiblyUnbound:
		c.addError(diag.New(diag.NewPossiblyUnresolvedReference{Positioner: e, Name: e.Name}))
		if t == nil {
			return Unknown
		}
		return t
	}
	if class, ok := c.reg.Lookup(e.Name); ok {
		return c.SubclassOf(class)
	}
	c.addError(diag.New(diag.NewUnresolvedReference{Positioner: e, Name: e.Name}))
	return Unknown
}

// fstringType folds the literal segments and interpolations of an
// f-string. All parts known exactly gives the concatenated literal, all
// parts provably literal gives LiteralString, anything else gives str.
func (c *Ctx) fstringType(e *ast.FStringLit) Type {
	var sb strings.Builder
	exact := true
	literal := true
	for _, part := range e.Parts {
		switch t := c.ExprType(part).(type) {
		case stringLiteral:
			sb.WriteString(t.value)
		case literalStringType:
			exact = false
		default:
			exact = false
			literal = false
		}
	}
	if exact {
		return c.StringLiteral(sb.String())
	}
	if literal {
		return LiteralString
	}
	return c.Instance(c.reg.Builtins.Str)
}

func (c *Ctx) attributeExprType(e *ast.AttributeExpr) Type {
	if call, ok := c.superCallOf(e.Value); ok {
		pivot, owner, ok := c.superArguments(call)
		if !ok {
			return Unknown
		}
		return c.SuperAttributeType(pivot, owner, e.Attr, e.Range)
	}
	return c.AttributeType(c.ExprType(e.Value), e.Attr, e.Range)
}

// superCallOf recognizes a direct super(...) call that has not been
// shadowed by a local definition.
func (c *Ctx) superCallOf(e ast.Expr) (*ast.CallExpr, bool) {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return nil, false
	}
	name, ok := call.Func.(*ast.NameExpr)
	if !ok || name.Name != "super" {
		return nil, false
	}
	if _, state := c.resolveName("super"); state != BindingUnbound {
		return nil, false
	}
	return call, true
}

func (c *Ctx) superArguments(call *ast.CallExpr) (pivot, owner Type, ok bool) {
	if len(call.Args) == 0 && len(call.Keywords) == 0 {
		return c.ImplicitSuperType(call.Range)
	}
	if len(call.Args) == 2 && len(call.Keywords) == 0 {
		return c.ExprType(call.Args[0]), c.ExprType(call.Args[1]), true
	}
	for _, arg := range call.Args {
		c.ExprType(arg)
	}
	c.addError(diag.New(diag.NewInvalidSuperArgument{
		Positioner: call,
		Pivot:      "...",
		Owner:      "...",
	}))
	return nil, nil, false
}

func (c *Ctx) subscriptType(e *ast.SubscriptExpr) Type {
	recv := c.ExprType(e.Value)

	if sub, ok := recv.(subclassOfType); ok {
		// a subscripted class object in value position is a generic
		// alias; argument precision is recovered when the alias is
		// used in an annotation
		c.ExprType(e.Index)
		if sub.dynamic {
			return Unknown
		}
		return c.SubclassOf(sub.class)
	}

	idx := c.ExprType(e.Index)
	if IsDynamic(recv) {
		return Unknown
	}

	// slicing preserves the sequence type
	if _, isSlice := e.Index.(*ast.SliceExpr); isSlice {
		switch recv := recv.(type) {
		case tupleType:
			return c.NewVariadicTuple(c.NewUnion(recv.elems...))
		case variadicTupleType:
			return recv
		case instanceType:
			b := &c.reg.Builtins
			switch recv.class {
			case b.List, b.Str, b.Bytes, b.Range:
				return recv
			}
		}
	}

	switch recv := recv.(type) {
	case tupleType:
		if il, isLit := idx.(intLiteral); isLit {
			i := il.value
			if i < 0 {
				i += int64(len(recv.elems))
			}
			if i < 0 || i >= int64(len(recv.elems)) {
				c.addError(diag.New(diag.NewIndexOutOfBounds{
					Positioner: e,
					Type:       recv.String(),
					Index:      il.value,
					Length:     len(recv.elems),
				}))
				return Unknown
			}
			return recv.elems[i]
		}
		if c.IsAssignableTo(idx, c.Instance(c.reg.Builtins.Int)) {
			return c.NewUnion(recv.elems...)
		}
	case variadicTupleType:
		if c.IsAssignableTo(idx, c.Instance(c.reg.Builtins.Int)) {
			return recv.elem
		}
	}

	callee, ok := probeMember(c, recv, "__getitem__")
	if !ok {
		c.addError(diag.New(diag.NewNonSubscriptable{Positioner: e, Type: recv.String()}))
		return Unknown
	}
	ret, ok := c.applyCall1(callee, idx)
	if !ok {
		c.addError(diag.New(diag.NewUnsupportedOperator{
			Positioner: e,
			Op:         "[]",
			Left:       recv.String(),
			Right:      idx.String(),
			Component:  -1,
		}))
		return Unknown
	}
	return ret
}

func (c *Ctx) binaryExprType(e *ast.BinaryExpr) Type {
	left := c.ExprType(e.Left)
	right := c.ExprType(e.Right)
	// `int | str` over class objects builds a union alias value, not an
	// __or__ dispatch
	if e.Op == ast.OpBitOr && typeLikeValue(left) && typeLikeValue(right) {
		return c.NewUnion(left, right)
	}
	return c.BinaryOpType(e.Op, left, right, e.Range)
}

func typeLikeValue(t Type) bool {
	switch t := t.(type) {
	case subclassOfType, noneType, typeVarType:
		return true
	case unionType:
		for _, m := range t.members {
			if !typeLikeValue(m) {
				return false
			}
		}
		return true
	}
	return false
}

func (c *Ctx) boolExprType(e *ast.BoolExpr) Type {
	if len(e.Values) == 0 {
		c.addFailure("boolean expression without operands")
		return Unknown
	}
	t := c.ExprType(e.Values[0])
	for _, v := range e.Values[1:] {
		t = c.BoolOpType(e.Op, t, c.ExprType(v), e.Range)
	}
	return t
}

// lambdaScope makes lambda parameters resolvable while the body is
// typed. Parameters are unannotated, so they bind to Unknown.
type lambdaScope struct {
	params map[string]struct{}
	parent DefinitionProvider
}

func (s lambdaScope) ResolveName(name string) (Type, BindingState) {
	if _, ok := s.params[name]; ok {
		return Unknown, BindingBound
	}
	if s.parent == nil {
		return nil, BindingUnbound
	}
	return s.parent.ResolveName(name)
}

func (c *Ctx) lambdaType(e *ast.LambdaExpr) Type {
	params := make([]Param, 0, len(e.Params))
	names := make(map[string]struct{}, len(e.Params))
	for _, name := range e.Params {
		params = append(params, Param{Name: name, Kind: ast.ParamPositionalOrKeyword})
		names[name] = struct{}{}
	}

	saved := c.defs
	c.defs = lambdaScope{params: names, parent: saved}
	ret := c.ExprType(e.Body)
	c.defs = saved

	return c.NewCallable(params, ret)
}

func (c *Ctx) tupleExprType(e *ast.TupleExpr) Type {
	elems := make([]Type, 0, len(e.Elems))
	for _, el := range e.Elems {
		if star, isStar := el.(*ast.StarredExpr); isStar {
			spliced := c.ExprType(star.Value)
			if tt, isTuple := spliced.(tupleType); isTuple {
				elems = append(elems, tt.elems...)
				continue
			}
			// splicing a sequence of statically unknown length
			return c.NewVariadicTuple(Unknown)
		}
		elems = append(elems, c.ExprType(el))
	}
	return c.NewTuple(elems...)
}

func (c *Ctx) listExprType(e *ast.ListExpr) Type {
	if len(e.Elems) == 0 {
		return c.Instance(c.reg.Builtins.List, Unknown)
	}
	elems := make([]Type, 0, len(e.Elems))
	for _, el := range e.Elems {
		if star, isStar := el.(*ast.StarredExpr); isStar {
			spliced := c.ExprType(star.Value)
			if tt, isTuple := spliced.(tupleType); isTuple {
				elems = append(elems, tt.elems...)
			} else {
				elems = append(elems, Unknown)
			}
			continue
		}
		elems = append(elems, c.ExprType(el))
	}
	return c.Instance(c.reg.Builtins.List, c.NewUnion(elems...))
}

func (c *Ctx) comprehensionType(e *ast.ComprehensionExpr) Type {
	c.ExprType(e.Iter)
	saved := c.defs
	c.defs = lambdaScope{params: map[string]struct{}{e.Target: {}}, parent: saved}
	elem := c.ExprType(e.Element)
	c.defs = saved
	return c.Instance(c.reg.Builtins.Iterator, elem)
}

// callSite gathers the evaluated arguments of one call expression.
// loose is set when splatted arguments make positional matching
// impossible; binding then skips arity and type checks.
type callSite struct {
	display string
	span    ast.Range
	args    []Type
	argAt   []ast.Positioner
	kwNames []string
	kwArgs  []Type
	kwAt    []ast.Positioner
	loose   bool
}

func (c *Ctx) callExprType(e *ast.CallExpr) Type {
	if name, isName := e.Func.(*ast.NameExpr); isName {
		if t, handled := c.intrinsicCall(name.Name, e); handled {
			return t
		}
	}

	callee := c.ExprType(e.Func)
	site := c.evalCallSite(e, calleeDisplay(e.Func, callee))
	return c.callValue(callee, site)
}

func calleeDisplay(fn ast.Expr, t Type) string {
	switch fn := fn.(type) {
	case *ast.NameExpr:
		return fn.Name
	case *ast.AttributeExpr:
		return fn.Attr
	}
	return t.String()
}

func (c *Ctx) evalCallSite(e *ast.CallExpr, display string) callSite {
	site := callSite{display: display, span: e.Range}
	for _, arg := range e.Args {
		if star, isStar := arg.(*ast.StarredExpr); isStar {
			c.ExprType(star.Value)
			site.loose = true
			continue
		}
		site.args = append(site.args, c.ExprType(arg))
		site.argAt = append(site.argAt, arg)
	}
	for _, kw := range e.Keywords {
		t := c.ExprType(kw.Value)
		if kw.Name == "" {
			// **mapping splat
			site.loose = true
			continue
		}
		site.kwNames = append(site.kwNames, kw.Name)
		site.kwArgs = append(site.kwArgs, t)
		site.kwAt = append(site.kwAt, kw.Value)
	}
	return site
}

// callValue types the application of callee to the given arguments.
func (c *Ctx) callValue(callee Type, site callSite) Type {
	if !c.guardDepth() {
		c.unguardDepth()
		return Unknown
	}
	defer c.unguardDepth()

	switch callee := callee.(type) {
	case dynamicType:
		return Unknown
	case neverType:
		return Never
	case callableType:
		return c.bindCall(callee, site)
	case subclassOfType:
		if callee.dynamic {
			return Unknown
		}
		ctor, isCallable := classConstructorType(c, callee.class).(callableType)
		if !isCallable {
			return c.Instance(callee.class)
		}
		return c.bindCall(ctor, site)
	case unionType:
		results := make([]Type, 0, len(callee.members))
		for _, m := range callee.members {
			results = append(results, c.callValue(m, site))
		}
		return c.NewUnion(results...)
	}

	if call, ok := probeMember(c, callee, "__call__"); ok {
		return c.callValue(call, site)
	}
	c.addError(diag.New(diag.NewCallNonCallable{Positioner: site.span, Type: callee.String()}))
	return Unknown
}

// bindCall matches a call site against a callable signature, reporting
// arity and argument-type problems, and returns the (specialized)
// return type.
func (c *Ctx) bindCall(ct callableType, site callSite) Type {
	gc := NewGenericContext()
	gc.CollectFrom(ct)

	if ct.gradualParams {
		return c.eraseFreeTypeVars(gc, ct.ret)
	}

	if site.loose {
		return c.eraseFreeTypeVars(gc, ct.ret)
	}

	type pair struct {
		param Param
		label string
		arg   Type
		at    ast.Positioner
	}
	var pairs []pair

	var positional []int
	byName := make(map[string]int)
	varPos, varKw := -1, -1
	for i, p := range ct.params {
		switch p.Kind {
		case ast.ParamVarPositional:
			varPos = i
		case ast.ParamVarKeyword:
			varKw = i
		case ast.ParamKeywordOnly:
			byName[p.Name] = i
		default:
			positional = append(positional, i)
			if p.Kind == ast.ParamPositionalOrKeyword {
				byName[p.Name] = i
			}
		}
	}

	filled := make(map[int]bool)
	next := 0
	for ai, arg := range site.args {
		if next < len(positional) {
			pi := positional[next]
			next++
			filled[pi] = true
			pairs = append(pairs, pair{ct.params[pi], paramLabel(ct.params[pi], pi), arg, site.argAt[ai]})
			continue
		}
		if varPos >= 0 {
			pairs = append(pairs, pair{ct.params[varPos], ct.params[varPos].Name, arg, site.argAt[ai]})
			continue
		}
		c.addError(diag.New(diag.NewTooManyPositionalArguments{
			Positioner: site.argAt[ai],
			Callee:     site.display,
			Expected:   len(positional),
			Got:        len(site.args),
		}))
		break
	}

	for ki, name := range site.kwNames {
		pi, known := byName[name]
		if known && !filled[pi] {
			filled[pi] = true
			pairs = append(pairs, pair{ct.params[pi], name, site.kwArgs[ki], site.kwAt[ki]})
			continue
		}
		if !known && varKw >= 0 {
			pairs = append(pairs, pair{ct.params[varKw], name, site.kwArgs[ki], site.kwAt[ki]})
			continue
		}
		c.addError(diag.New(diag.NewUnknownArgument{
			Positioner: site.kwAt[ki],
			Callee:     site.display,
			Name:       name,
		}))
	}

	for i, p := range ct.params {
		switch p.Kind {
		case ast.ParamVarPositional, ast.ParamVarKeyword:
			continue
		}
		if !filled[i] && !p.HasDefault {
			c.addError(diag.New(diag.NewMissingArgument{
				Positioner: site.span,
				Callee:     site.display,
				Param:      paramLabel(p, i),
			}))
		}
	}

	if gc.Len() == 0 {
		for _, pr := range pairs {
			want := pr.param.annotOrUnknown()
			if !c.IsAssignableTo(pr.arg, want) {
				c.addError(diag.New(diag.NewInvalidArgumentType{
					Positioner: pr.at,
					Callee:     site.display,
					Param:      pr.label,
					Expected:   want.String(),
					Got:        pr.arg.String(),
				}))
			}
		}
		return ct.ret
	}

	// solve incrementally so the pair that makes the constraints
	// unsatisfiable takes the blame
	cs := AlwaysConstraints()
	for _, pr := range pairs {
		want := pr.param.annotOrUnknown()
		joined := cs.And(c, c.AssignabilityConstraints(pr.arg, want))
		if _, solvable := joined.Solve(c, gc); !solvable {
			c.addError(diag.New(diag.NewInvalidArgumentType{
				Positioner: pr.at,
				Callee:     site.display,
				Param:      pr.label,
				Expected:   want.String(),
				Got:        pr.arg.String(),
			}))
			continue
		}
		cs = joined
	}
	spec, ok := cs.Solve(c, gc)
	if !ok {
		return c.eraseFreeTypeVars(gc, ct.ret)
	}
	for _, v := range gc.Vars() {
		if _, bound := spec.Get(v); !bound {
			spec = spec.With(v, Unknown)
		}
	}
	return spec.Apply(c, ct.ret)
}

func paramLabel(p Param, idx int) string {
	if p.Name != "" {
		return p.Name
	}
	return strconv.Itoa(idx + 1)
}

// eraseFreeTypeVars replaces every variable of gc left unbound by
// Unknown, so unsolved signatures do not leak symbolic variables.
func (c *Ctx) eraseFreeTypeVars(gc *GenericContext, t Type) Type {
	if gc.Len() == 0 {
		return t
	}
	spec := NewSpecialization()
	for _, v := range gc.Vars() {
		spec = spec.With(v, Unknown)
	}
	return spec.Apply(c, t)
}

// intrinsicCall handles the callables the engine interprets directly.
// A name shadowed by a user definition loses its intrinsic meaning,
// except reveal_type, which is always ours.
func (c *Ctx) intrinsicCall(name string, e *ast.CallExpr) (Type, bool) {
	if name == "reveal_type" {
		if len(e.Args) != 1 || len(e.Keywords) != 0 {
			for _, arg := range e.Args {
				c.ExprType(arg)
			}
			return Unknown, true
		}
		t := c.ExprType(e.Args[0])
		c.addError(diag.New(diag.NewRevealedType{Positioner: e, Type: t.String()}))
		return t, true
	}
	if _, state := c.resolveName(name); state != BindingUnbound {
		return nil, false
	}

	b := &c.reg.Builtins
	oneArg := func() (Type, bool) {
		if len(e.Args) != 1 || len(e.Keywords) != 0 {
			return nil, false
		}
		return c.ExprType(e.Args[0]), true
	}

	switch name {
	case "super":
		// a proxy kept as a value loses the pivot; attribute access on
		// a direct super(...) call is resolved in attributeExprType
		if _, _, ok := c.superArguments(e); !ok {
			return Unknown, true
		}
		return c.Instance(b.Super), true
	case "type":
		if len(e.Args) == 1 && len(e.Keywords) == 0 {
			return c.metaTypeOf(c.ExprType(e.Args[0])), true
		}
		c.evalCallSite(e, name)
		if len(e.Args) == 3 {
			// the three-argument form builds a new class dynamically
			return c.SubclassOfAny(), true
		}
		return c.Instance(b.Type), true
	case "isinstance", "issubclass":
		c.evalCallSite(e, name)
		return c.Instance(b.Bool), true
	case "callable":
		c.evalCallSite(e, name)
		return c.Instance(b.Bool), true
	case "len":
		if arg, ok := oneArg(); ok {
			return c.lenType(arg, e), true
		}
		c.evalCallSite(e, name)
		return c.Instance(b.Int), true
	case "repr":
		c.evalCallSite(e, name)
		return c.Instance(b.Str), true
	case "hash":
		c.evalCallSite(e, name)
		return c.Instance(b.Int), true
	}
	return nil, false
}

func (c *Ctx) lenType(arg Type, at ast.Positioner) Type {
	if tt, isTuple := arg.(tupleType); isTuple {
		return c.IntLiteral(int64(len(tt.elems)))
	}
	if IsDynamic(arg) {
		return c.Instance(c.reg.Builtins.Int)
	}
	callee, ok := probeMember(c, arg, "__len__")
	if !ok {
		c.addError(diag.New(diag.NewInvalidArgumentType{
			Positioner: at,
			Callee:     "len",
			Param:      "obj",
			Expected:   "an object with __len__",
			Got:        arg.String(),
		}))
		return c.Instance(c.reg.Builtins.Int)
	}
	if ret, applied := c.applyCall0(callee); applied {
		if _, isLit := ret.(intLiteral); isLit {
			return ret
		}
	}
	return c.Instance(c.reg.Builtins.Int)
}

// metaTypeOf is one-argument type(): the class object of a value.
func (c *Ctx) metaTypeOf(t Type) Type {
	b := &c.reg.Builtins
	switch t := t.(type) {
	case dynamicType:
		return c.SubclassOfAny()
	case neverType:
		return Never
	case noneType:
		return c.SubclassOf(b.NoneType)
	case boolLiteral:
		return c.SubclassOf(b.Bool)
	case intLiteral:
		return c.SubclassOf(b.Int)
	case stringLiteral, literalStringType:
		return c.SubclassOf(b.Str)
	case bytesLiteral:
		return c.SubclassOf(b.Bytes)
	case enumLiteral:
		return c.SubclassOf(t.class)
	case instanceType:
		return c.SubclassOf(t.class)
	case tupleType, variadicTupleType:
		return c.SubclassOf(b.Tuple)
	case callableType:
		return c.SubclassOf(b.Function)
	case subclassOfType:
		if t.dynamic {
			return c.SubclassOfAny()
		}
		if meta, isInstance := t.class.MetaclassType(c).(instanceType); isInstance {
			return c.SubclassOf(meta.class)
		}
		return c.Instance(b.Type)
	case typeVarType:
		if bound, isInstance := t.def.BoundOrObject(c).(instanceType); isInstance {
			return c.SubclassOf(bound.class)
		}
		return c.Instance(b.Type)
	case unionType:
		metas := make([]Type, 0, len(t.members))
		for _, m := range t.members {
			metas = append(metas, c.metaTypeOf(m))
		}
		return c.NewUnion(metas...)
	}
	return c.Instance(b.Type)
}
