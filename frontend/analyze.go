// Package frontend drives semantic analysis over a parsed module: it
// registers class definitions, binds module names in statement order,
// checks annotated assignments and function bodies, and accumulates the
// resulting diagnostics on the checking context.
package frontend

import (
	"log/slog"
	"strconv"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
	"github.com/krait-dev/krait/frontend/types"
	ilog "github.com/krait-dev/krait/internal/log"
)

// Result is the outcome of analysing one module.
type Result struct {
	Module      string
	Diagnostics *diag.List
	Failures    []error

	bindings *scope
}

// BindingType reports the type a module-level name settled on after the
// whole module, including drained annotation thunks, was processed.
func (r *Result) BindingType(name string) (types.Type, bool) {
	b, ok := r.bindings.names[name]
	if !ok {
		return nil, false
	}
	return b.typ, true
}

// Provider exposes the module's own bindings as a definition provider,
// so a later analysis can resolve names against this module. The
// provider chain the module was checked under is not re-exported.
func (r *Result) Provider() types.DefinitionProvider {
	return exportedBindings{names: r.bindings.names}
}

type exportedBindings struct {
	names map[string]*binding
}

func (e exportedBindings) ResolveName(name string) (types.Type, types.BindingState) {
	if b, ok := e.names[name]; ok {
		return b.typ, b.state
	}
	return nil, types.BindingUnbound
}

// Analyze checks a module's statements against ctx. Class definitions
// are registered with their MRO and metaclass resolved eagerly, so
// structural problems surface at the definition site. Names bind
// sequentially; whatever provider ctx already carries resolves the
// names the module itself does not define. There is no control-flow
// analysis: conditional reachability is the provider's business.
//
// The module scope stays installed on ctx afterwards, so callers can
// keep evaluating expressions against the module's names.
func Analyze(ctx *types.Ctx, module string, stmts []ast.Stmt) *Result {
	a := &analyzer{
		ctx:    ctx,
		module: module,
		log:    ilog.DefaultLogger.With(slog.String("section", "frontend"), slog.String("module", module)),
	}
	moduleScope := newScope(ctx.Definitions())

	a.stmts(moduleScope, stmts, nil)
	ctx.DrainDeferred()
	ctx.WithDefinitions(moduleScope)

	a.log.Debug("module analysed",
		slog.Int("statements", len(stmts)),
		slog.Int("diagnostics", len(ctx.Diagnostics().Diagnostics())))

	return &Result{
		Module:      module,
		Diagnostics: ctx.Diagnostics(),
		Failures:    ctx.Failures(),
		bindings:    moduleScope,
	}
}

// binding is one bound name. Deferred annotation thunks keep the
// pointer and overwrite typ once the declared type is known.
type binding struct {
	typ   types.Type
	state types.BindingState
}

// scope resolves the names of one lexical region and chains to its
// parent; the module scope's parent is the session-supplied provider.
type scope struct {
	parent types.DefinitionProvider
	names  map[string]*binding
}

func newScope(parent types.DefinitionProvider) *scope {
	return &scope{parent: parent, names: make(map[string]*binding)}
}

func (s *scope) ResolveName(name string) (types.Type, types.BindingState) {
	if b, ok := s.names[name]; ok {
		return b.typ, b.state
	}
	if s.parent == nil {
		return nil, types.BindingUnbound
	}
	return s.parent.ResolveName(name)
}

func (s *scope) bind(name string, t types.Type) *binding {
	b := &binding{typ: t, state: types.BindingBound}
	s.names[name] = b
	return b
}

type analyzer struct {
	ctx    *types.Ctx
	log    *slog.Logger
	module string
}

// funcEnv is what statement checking inside a function body needs: the
// declared return type, and for __init__ the class collecting self
// attribute assignments.
type funcEnv struct {
	name     string
	declared types.Type // nil when the return is un-annotated
	initOf   *types.ClassDef
	selfName string
}

func (a *analyzer) deferring() bool {
	return a.ctx.Options().DeferAnnotations()
}

// The evaluation wrappers install the scope on the context first, so
// thunks run at drain time resolve against the scope they were queued
// under.

func (a *analyzer) exprType(sc *scope, e ast.Expr) types.Type {
	a.ctx.WithDefinitions(sc)
	return a.ctx.ExprType(e)
}

func (a *analyzer) annotationType(sc *scope, e ast.Expr) types.Type {
	a.ctx.WithDefinitions(sc)
	return a.ctx.AnnotationType(e)
}

func (a *analyzer) bareAnnotationType(sc *scope, e ast.Expr) types.Type {
	a.ctx.WithDefinitions(sc)
	return a.ctx.BareAnnotationType(e)
}

func (a *analyzer) declaredType(sc *scope, e ast.Expr) (types.Type, types.DeclQualifiers) {
	a.ctx.WithDefinitions(sc)
	return a.ctx.DeclaredType(e)
}

func (a *analyzer) stmts(sc *scope, list []ast.Stmt, env *funcEnv) {
	for _, s := range list {
		a.stmt(sc, s, env)
	}
}

func (a *analyzer) stmt(sc *scope, s ast.Stmt, env *funcEnv) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		a.exprType(sc, s.Value)
	case *ast.AssignStmt:
		a.assign(sc, s, env)
	case *ast.AnnAssignStmt:
		a.annAssign(sc, s, env)
	case *ast.FunctionDefStmt:
		a.functionDef(sc, s)
	case *ast.ClassDefStmt:
		a.classDef(sc, s, "")
	case *ast.ReturnStmt:
		a.returnStmt(sc, s, env)
	case *ast.PassStmt:
	}
}

func (a *analyzer) returnStmt(sc *scope, s *ast.ReturnStmt, env *funcEnv) {
	var got types.Type = types.None
	if s.Value != nil {
		got = a.exprType(sc, s.Value)
	}
	if env == nil || env.declared == nil {
		return
	}
	if !a.ctx.IsAssignableTo(got, env.declared) {
		a.ctx.Report(diag.New(diag.NewInvalidReturnType{
			Positioner: s,
			Func:       "function '" + env.name + "'",
			Declared:   env.declared.String(),
			Got:        got.String(),
		}))
	}
}

func (a *analyzer) assign(sc *scope, s *ast.AssignStmt, env *funcEnv) {
	if a.typeVarDecl(sc, s) {
		return
	}
	value := a.exprType(sc, s.Value)
	a.bindTarget(sc, s.Target, value)
	if env != nil && env.initOf != nil {
		a.recordSelfAttr(env, s.Target, value)
	}
}

// bindTarget introduces the assigned names. Attribute and subscript
// targets type their receivers for diagnostics and bind nothing;
// instance attribute collection is __init__'s business.
func (a *analyzer) bindTarget(sc *scope, target ast.Expr, value types.Type) {
	switch t := target.(type) {
	case *ast.NameExpr:
		sc.bind(t.Name, value)
	case *ast.TupleExpr:
		elems, ok := types.TupleElems(value)
		if !ok || len(elems) != len(t.Elems) {
			for _, el := range t.Elems {
				a.bindTarget(sc, el, types.Unknown)
			}
			return
		}
		for i, el := range t.Elems {
			a.bindTarget(sc, el, elems[i])
		}
	case *ast.StarredExpr:
		a.bindTarget(sc, t.Value, types.Unknown)
	case *ast.AttributeExpr:
		a.exprType(sc, t.Value)
	case *ast.SubscriptExpr:
		a.exprType(sc, t.Value)
		a.exprType(sc, t.Index)
	}
}

// recordSelfAttr collects `self.x = value` targets inside __init__ as
// declared instance attributes.
func (a *analyzer) recordSelfAttr(env *funcEnv, target ast.Expr, value types.Type) {
	switch t := target.(type) {
	case *ast.AttributeExpr:
		n, ok := t.Value.(*ast.NameExpr)
		if !ok || n.Name != env.selfName {
			return
		}
		env.initOf.AddInstanceAttr(t.Attr, value)
	case *ast.TupleExpr:
		elems, ok := types.TupleElems(value)
		if !ok || len(elems) != len(t.Elems) {
			for _, el := range t.Elems {
				a.recordSelfAttr(env, el, types.Unknown)
			}
			return
		}
		for i, el := range t.Elems {
			a.recordSelfAttr(env, el, elems[i])
		}
	}
}

func (a *analyzer) annAssign(sc *scope, s *ast.AnnAssignStmt, env *funcEnv) {
	name, isName := s.Target.(*ast.NameExpr)
	if !isName {
		a.annAssignAttr(sc, s, env)
		return
	}

	var value types.Type
	if s.Value != nil {
		value = a.exprType(sc, s.Value)
	}
	initial := value
	if initial == nil {
		initial = types.Unknown
	}
	b := sc.bind(name.Name, initial)

	apply := func() {
		declared, quals := a.declaredType(sc, s.Annotation)
		b.typ = a.declaredBinding(s, name.Name, declared, quals, value)
	}
	if a.deferring() {
		a.ctx.Defer(apply)
		return
	}
	apply()
}

// annAssignAttr handles `recv.attr: T` and `recv.attr: T = value`.
// Inside __init__ a self target declares an instance attribute.
func (a *analyzer) annAssignAttr(sc *scope, s *ast.AnnAssignStmt, env *funcEnv) {
	var value types.Type
	if s.Value != nil {
		value = a.exprType(sc, s.Value)
	}
	attr, isAttr := s.Target.(*ast.AttributeExpr)
	if !isAttr {
		return
	}
	a.exprType(sc, attr.Value)

	apply := func() {
		declared, quals := a.declaredType(sc, s.Annotation)
		t := a.declaredBinding(s, attr.Attr, declared, quals, value)
		if env != nil && env.initOf != nil {
			if n, ok := attr.Value.(*ast.NameExpr); ok && n.Name == env.selfName {
				env.initOf.AddInstanceAttr(attr.Attr, t)
			}
		}
	}
	if a.deferring() {
		a.ctx.Defer(apply)
		return
	}
	apply()
}

// declaredBinding applies the declaration rules shared by the eager and
// deferred annotation paths: the value must be assignable to the
// declared type, a bare Final requires a value, and a bare qualifier
// leaves the declared type to the value.
func (a *analyzer) declaredBinding(s *ast.AnnAssignStmt, name string, declared types.Type, quals types.DeclQualifiers, value types.Type) types.Type {
	if value == nil {
		if quals.Final && types.IsDynamic(declared) {
			a.ctx.Report(diag.New(diag.NewInvalidTypeForm{
				Positioner: s.Annotation,
				Form:       "bare Final",
				Why:        "an initial value is required",
			}))
		}
		return declared
	}
	if types.IsDynamic(declared) && (quals.Final || quals.ClassVar) {
		return value
	}
	if !a.ctx.IsAssignableTo(value, declared) {
		a.ctx.Report(diag.New(diag.NewInvalidAssignment{
			Positioner: s.Value,
			Target:     name,
			Declared:   declared.String(),
			Value:      value.String(),
		}))
	}
	return declared
}

// typeVarDecl recognises the `T = TypeVar("T", ...)` declaration form.
// It only has its special meaning while TypeVar is not a user binding.
func (a *analyzer) typeVarDecl(sc *scope, s *ast.AssignStmt) bool {
	name, ok := s.Target.(*ast.NameExpr)
	if !ok {
		return false
	}
	call, ok := s.Value.(*ast.CallExpr)
	if !ok {
		return false
	}
	callee, ok := call.Func.(*ast.NameExpr)
	if !ok || callee.Name != "TypeVar" {
		return false
	}
	if _, state := sc.ResolveName("TypeVar"); state != types.BindingUnbound {
		return false
	}

	def := a.ctx.Registry().NewTypeVar(name.Name, nil)

	if len(call.Args) == 0 {
		a.ctx.Report(diag.New(diag.NewMissingArgument{
			Positioner: call,
			Callee:     "TypeVar",
			Param:      "name",
		}))
	} else {
		a.checkTypeVarName(sc, name.Name, call.Args[0])
	}

	var constraints []types.Type
	if len(call.Args) > 1 {
		for _, arg := range call.Args[1:] {
			constraints = append(constraints, a.annotationType(sc, arg))
		}
	}
	if len(constraints) == 1 {
		a.ctx.Report(diag.New(diag.NewInvalidTypeForm{
			Positioner: call,
			Form:       "a single TypeVar constraint",
			Why:        "add a second constraint or use bound=",
		}))
		constraints = nil
	}
	def.Constraints = constraints

	for _, kw := range call.Keywords {
		switch kw.Name {
		case "bound":
			def.Bound = a.annotationType(sc, kw.Value)
		case "default":
			def.Default = a.annotationType(sc, kw.Value)
		case "covariant":
			if isTrueLiteral(kw.Value) {
				def.Variance = types.Covariant
			}
		case "contravariant":
			if isTrueLiteral(kw.Value) {
				def.Variance = types.Contravariant
			}
		default:
			a.ctx.Report(diag.New(diag.NewUnknownArgument{
				Positioner: kw,
				Callee:     "TypeVar",
				Name:       kw.Name,
			}))
		}
	}

	sc.bind(name.Name, a.ctx.TypeVar(def))
	return true
}

// checkTypeVarName requires the first TypeVar argument to repeat the
// assigned name as a string literal.
func (a *analyzer) checkTypeVarName(sc *scope, bound string, arg ast.Expr) {
	lit, isStr := arg.(*ast.StringLit)
	if isStr && lit.Value == bound {
		return
	}
	var got string
	if isStr {
		got = strconv.Quote(lit.Value)
	} else {
		got = a.exprType(sc, arg).String()
	}
	a.ctx.Report(diag.New(diag.NewInvalidArgumentType{
		Positioner: arg,
		Callee:     "TypeVar",
		Param:      "name",
		Expected:   "the variable's own name as a string literal",
		Got:        got,
	}))
}

func isTrueLiteral(e ast.Expr) bool {
	b, ok := e.(*ast.BoolLit)
	return ok && b.Value
}

func (a *analyzer) functionDef(sc *scope, s *ast.FunctionDefStmt) {
	a.checkDecorators(sc, s.Decorators)
	b := sc.bind(s.Name, types.Unknown)

	build := func() {
		params, ret := a.signature(sc, s)
		b.typ = a.ctx.NewCallable(params, ret)
		env := &funcEnv{name: s.Name}
		if s.Returns != nil {
			env.declared = ret
		}
		a.funcBody(sc, s, params, nil, env)
	}
	if a.deferring() {
		a.ctx.Defer(build)
		return
	}
	build()
}

// signature evaluates a def's parameter and return annotations. Default
// values must be assignable to their parameter's annotation; they are
// evaluated in the enclosing scope.
func (a *analyzer) signature(sc *scope, s *ast.FunctionDefStmt) ([]types.Param, types.Type) {
	params := make([]types.Param, 0, len(s.Params))
	for _, p := range s.Params {
		var annot types.Type
		if p.Annotation != nil {
			annot = a.annotationType(sc, p.Annotation)
		}
		if p.Default != nil {
			dflt := a.exprType(sc, p.Default)
			if annot != nil && !a.ctx.IsAssignableTo(dflt, annot) {
				a.ctx.Report(diag.New(diag.NewInvalidAssignment{
					Positioner: p.Default,
					Target:     p.Name,
					Declared:   annot.String(),
					Value:      dflt.String(),
				}))
			}
		}
		params = append(params, types.Param{
			Name:       p.Name,
			Kind:       p.Kind,
			Annot:      annot,
			HasDefault: p.Default != nil,
		})
	}
	var ret types.Type = types.Unknown
	if s.Returns != nil {
		ret = a.annotationType(sc, s.Returns)
	}
	return params, ret
}

// methodSelf carries the receiver typing of a method body: the class
// being defined and the type of the implicit first parameter, nil for
// static methods.
type methodSelf struct {
	class      *types.ClassDef
	firstParam types.Type
}

func (a *analyzer) funcBody(sc *scope, s *ast.FunctionDefStmt, params []types.Param, self *methodSelf, env *funcEnv) {
	body := newScope(sc)
	for i, p := range params {
		t := p.Annot
		if t == nil {
			t = types.Unknown
			if i == 0 && self != nil && self.firstParam != nil {
				t = self.firstParam
			}
		}
		body.bind(p.Name, t)
	}

	if self != nil {
		a.ctx.PushFrame(self.class, self.firstParam)
		defer a.ctx.PopFrame()
	}
	a.stmts(body, s.Body, env)
}

// decorators with intrinsic meaning; they are not value decorators
// unless the module rebinds them
var markerDecorators = map[string]struct{}{
	"final":             {},
	"property":          {},
	"classmethod":       {},
	"staticmethod":      {},
	"abstractmethod":    {},
	"override":          {},
	"runtime_checkable": {},
}

// checkDecorators evaluates decorator expressions for diagnostics.
// Marker names keep their intrinsic meaning while unbound, and
// property refinements (@x.setter) are consumed by method handling.
func (a *analyzer) checkDecorators(sc *scope, decs []ast.Expr) {
	for _, d := range decs {
		if n, ok := d.(*ast.NameExpr); ok {
			if _, marker := markerDecorators[n.Name]; marker {
				if _, state := sc.ResolveName(n.Name); state == types.BindingUnbound {
					continue
				}
			}
		}
		if attr, ok := d.(*ast.AttributeExpr); ok && isPropertyRefinement(attr) {
			continue
		}
		a.exprType(sc, d)
	}
}

func isPropertyRefinement(attr *ast.AttributeExpr) bool {
	if _, isName := attr.Value.(*ast.NameExpr); !isName {
		return false
	}
	switch attr.Attr {
	case "getter", "setter", "deleter":
		return true
	}
	return false
}

func (a *analyzer) classDef(sc *scope, s *ast.ClassDefStmt, outer string) *types.ClassDef {
	name := s.Name
	if outer != "" {
		// nested classes register under their qualified name so that
		// Outer.Inner works in annotation position
		name = outer + "." + s.Name
	}
	def := types.NewClassDef(a.module, name)
	def.Span = s.Range
	def.IsFinal = s.HasDecorator("final")
	a.checkDecorators(sc, s.Decorators)

	var params []*types.TypeVarDef
	seen := map[*types.TypeVarDef]struct{}{}
	addParam := func(tv *types.TypeVarDef) {
		if _, dup := seen[tv]; dup {
			return
		}
		seen[tv] = struct{}{}
		params = append(params, tv)
	}

	for _, base := range s.Bases {
		if a.specialBase(sc, base, def, addParam) {
			continue
		}
		t := a.bareAnnotationType(sc, base)
		if types.IsDynamic(t) {
			def.Bases = append(def.Bases, t)
			continue
		}
		cls, args, isInstance := types.InstanceClass(t)
		if !isInstance {
			a.ctx.Report(diag.New(diag.NewInvalidBase{
				Positioner: base,
				Class:      s.Name,
				Base:       t.String(),
			}))
			continue
		}
		def.Bases = append(def.Bases, t)
		if cls == a.ctx.Registry().Builtins.Enum || cls.IsEnum {
			def.IsEnum = true
		}
		for _, arg := range args {
			collectTypeVars(arg, addParam)
		}
	}
	def.TypeParams = params

	for _, kw := range s.Keywords {
		t := a.exprType(sc, kw.Value)
		if kw.Name == "metaclass" {
			def.Metaclass = t
		}
	}

	def = a.ctx.Registry().Register(def)
	sc.bind(s.Name, a.ctx.SubclassOf(def))

	a.classBody(sc, def, s)

	def.Mro(a.ctx)
	def.MetaclassType(a.ctx)
	return def
}

// specialBase handles `Generic[...]` and `Protocol[...]` bases, which
// declare type parameters and protocol-ness but contribute no MRO
// entry here.
func (a *analyzer) specialBase(sc *scope, base ast.Expr, def *types.ClassDef, addParam func(*types.TypeVarDef)) bool {
	name := ""
	var args []ast.Expr
	switch b := base.(type) {
	case *ast.NameExpr:
		name = b.Name
	case *ast.SubscriptExpr:
		if n, ok := b.Value.(*ast.NameExpr); ok {
			name = n.Name
			args = subscriptList(b.Index)
		}
	}
	if name != "Generic" && name != "Protocol" {
		return false
	}
	if _, state := sc.ResolveName(name); state != types.BindingUnbound {
		return false
	}
	if name == "Protocol" {
		def.IsProtocol = true
	}
	for _, arg := range args {
		t := a.annotationType(sc, arg)
		if tv, ok := types.TypeVarOf(t); ok {
			addParam(tv)
			continue
		}
		a.ctx.Report(diag.New(diag.NewInvalidTypeForm{
			Positioner: arg,
			Form:       t.String(),
			Why:        name + " parameters must be type variables",
		}))
	}
	return true
}

func (a *analyzer) classBody(sc *scope, def *types.ClassDef, s *ast.ClassDefStmt) {
	body := newScope(sc)
	args := make([]types.Type, len(def.TypeParams))
	for i, tp := range def.TypeParams {
		args[i] = a.ctx.TypeVar(tp)
	}
	selfType := a.ctx.Instance(def, args...)

	for _, stmt := range s.Body {
		switch stmt := stmt.(type) {
		case *ast.FunctionDefStmt:
			a.method(body, def, selfType, stmt)
		case *ast.AnnAssignStmt:
			a.classField(body, def, stmt)
		case *ast.AssignStmt:
			a.classValue(body, def, stmt)
		case *ast.ClassDefStmt:
			nested := a.classDef(body, stmt, def.Name)
			def.AddMember(&types.Member{
				Name: stmt.Name,
				Kind: types.MemberValue,
				Type: a.ctx.SubclassOf(nested),
			})
		default:
			a.stmt(body, stmt, nil)
		}
	}
}

func (a *analyzer) method(sc *scope, def *types.ClassDef, selfType types.Type, s *ast.FunctionDefStmt) {
	a.checkDecorators(sc, s.Decorators)

	kind := types.MemberMethod
	switch {
	case s.HasDecorator("classmethod"):
		kind = types.MemberClassMethod
	case s.HasDecorator("staticmethod"):
		kind = types.MemberStaticMethod
	}
	isProperty := s.HasDecorator("property")

	firstParam := selfType
	switch kind {
	case types.MemberClassMethod:
		firstParam = a.ctx.SubclassOf(def)
	case types.MemberStaticMethod:
		firstParam = nil
	}

	// @x.setter and friends redefine an existing property; the member
	// keeps the getter's type, only the body is checked
	if refinesProperty(s) {
		build := func() {
			params, _ := a.signature(sc, s)
			a.funcBody(sc, s, params, &methodSelf{class: def, firstParam: firstParam}, &funcEnv{name: s.Name})
		}
		if a.deferring() {
			a.ctx.Defer(build)
			return
		}
		build()
		return
	}

	m := &types.Member{Name: s.Name, Kind: kind, Type: types.Unknown}
	if isProperty {
		m.Kind = types.MemberValue
	}
	def.AddMember(m)
	b := sc.bind(s.Name, types.Unknown)

	build := func() {
		params, ret := a.signature(sc, s)
		fn := a.ctx.NewCallable(params, ret)
		if isProperty {
			m.Type = a.ctx.Instance(a.ctx.Registry().Builtins.Property, ret)
		} else {
			m.Type = fn
		}
		b.typ = m.Type

		env := &funcEnv{name: s.Name}
		if s.Returns != nil {
			env.declared = ret
		}
		if s.Name == "__init__" && kind == types.MemberMethod && len(s.Params) > 0 {
			env.initOf = def
			env.selfName = s.Params[0].Name
		}
		a.funcBody(sc, s, params, &methodSelf{class: def, firstParam: firstParam}, env)
	}
	if a.deferring() {
		a.ctx.Defer(build)
		return
	}
	build()
}

func refinesProperty(s *ast.FunctionDefStmt) bool {
	for _, d := range s.Decorators {
		attr, ok := d.(*ast.AttributeExpr)
		if !ok || !isPropertyRefinement(attr) {
			continue
		}
		if n, ok := attr.Value.(*ast.NameExpr); ok && n.Name == s.Name {
			return true
		}
	}
	return false
}

// classField records a class-body annotated assignment as a member and,
// unless declared ClassVar, an instance attribute.
func (a *analyzer) classField(sc *scope, def *types.ClassDef, s *ast.AnnAssignStmt) {
	name, ok := s.Target.(*ast.NameExpr)
	if !ok {
		a.annAssign(sc, s, nil)
		return
	}

	var value types.Type
	if s.Value != nil {
		value = a.exprType(sc, s.Value)
	}
	m := &types.Member{
		Name:         name.Name,
		Kind:         types.MemberValue,
		Type:         types.Unknown,
		DeclaredOnly: s.Value == nil,
	}
	def.AddMember(m)
	initial := value
	if initial == nil {
		initial = types.Unknown
	}
	b := sc.bind(name.Name, initial)

	apply := func() {
		declared, quals := a.declaredType(sc, s.Annotation)
		t := a.declaredBinding(s, name.Name, declared, quals, value)
		m.Type = t
		m.IsClassVar = quals.ClassVar
		m.IsFinal = quals.Final
		b.typ = t
		if !quals.ClassVar {
			def.AddInstanceAttr(name.Name, t)
		}
	}
	if a.deferring() {
		a.ctx.Defer(apply)
		return
	}
	apply()
}

// classValue records a plain class-body assignment as a value member.
// On enum classes these are the enum's members.
func (a *analyzer) classValue(sc *scope, def *types.ClassDef, s *ast.AssignStmt) {
	if a.typeVarDecl(sc, s) {
		return
	}
	name, ok := s.Target.(*ast.NameExpr)
	if !ok {
		a.assign(sc, s, nil)
		return
	}
	t := a.exprType(sc, s.Value)
	def.AddMember(&types.Member{Name: name.Name, Kind: types.MemberValue, Type: t})
	sc.bind(name.Name, t)
}

// collectTypeVars walks a base's type arguments for type variable uses,
// which become the class's implicit parameters in first-use order.
func collectTypeVars(t types.Type, add func(*types.TypeVarDef)) {
	if tv, ok := types.TypeVarOf(t); ok {
		add(tv)
		return
	}
	if _, args, ok := types.InstanceClass(t); ok {
		for _, arg := range args {
			collectTypeVars(arg, add)
		}
		return
	}
	if elems, ok := types.TupleElems(t); ok {
		for _, el := range elems {
			collectTypeVars(el, add)
		}
	}
}

func subscriptList(index ast.Expr) []ast.Expr {
	if t, ok := index.(*ast.TupleExpr); ok {
		return t.Elems
	}
	return []ast.Expr{index}
}
