package diag

import (
	"fmt"
	"strings"

	"github.com/krait-dev/krait/frontend/ast"
)

// Type names inside diagnostics are carried pre-rendered so that this
// package stays below the type model in the dependency order.

type NewInvalidTypeForm struct {
	ast.Positioner
	Form  string
	Why   string
	stack []byte
}

func (d NewInvalidTypeForm) Kind() Kind { return KindInvalidTypeForm }
func (d NewInvalidTypeForm) Error() string {
	if d.Why == "" {
		return fmt.Sprintf("%s is not allowed in a type expression", d.Form)
	}
	return fmt.Sprintf("%s is not allowed in a type expression: %s", d.Form, d.Why)
}
func (d NewInvalidTypeForm) getStack() []byte { return d.stack }
func (d NewInvalidTypeForm) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInvalidBase struct {
	ast.Positioner
	Class string
	Base  string
	stack []byte
}

func (d NewInvalidBase) Kind() Kind { return KindInvalidBase }
func (d NewInvalidBase) Error() string {
	return fmt.Sprintf("invalid base %s for class '%s'", d.Base, d.Class)
}
func (d NewInvalidBase) getStack() []byte { return d.stack }
func (d NewInvalidBase) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInvalidMetaclass struct {
	ast.Positioner
	Class     string
	Metaclass string
	stack     []byte
}

func (d NewInvalidMetaclass) Kind() Kind { return KindInvalidMetaclass }
func (d NewInvalidMetaclass) Error() string {
	return fmt.Sprintf("metaclass %s of class '%s' is not a subclass of 'type' nor a compatible callable", d.Metaclass, d.Class)
}
func (d NewInvalidMetaclass) getStack() []byte { return d.stack }
func (d NewInvalidMetaclass) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewConflictingMetaclass struct {
	ast.Positioner
	Class      string
	Candidates []string
	stack      []byte
}

func (d NewConflictingMetaclass) Kind() Kind { return KindConflictingMetaclass }
func (d NewConflictingMetaclass) Error() string {
	return fmt.Sprintf("metaclass conflict for class '%s': no candidate among %s is a subclass of all the others",
		d.Class, strings.Join(d.Candidates, ", "))
}
func (d NewConflictingMetaclass) getStack() []byte { return d.stack }
func (d NewConflictingMetaclass) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewDuplicateBase struct {
	ast.Positioner
	Class string
	Base  string
	stack []byte
}

func (d NewDuplicateBase) Kind() Kind { return KindDuplicateBase }
func (d NewDuplicateBase) Error() string {
	return fmt.Sprintf("duplicate base '%s' in class '%s'", d.Base, d.Class)
}
func (d NewDuplicateBase) getStack() []byte { return d.stack }
func (d NewDuplicateBase) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewCyclicClassDefinition struct {
	ast.Positioner
	Class string
	stack []byte
}

func (d NewCyclicClassDefinition) Kind() Kind { return KindCyclicClassDefinition }
func (d NewCyclicClassDefinition) Error() string {
	return fmt.Sprintf("class '%s' appears in its own ancestry", d.Class)
}
func (d NewCyclicClassDefinition) getStack() []byte { return d.stack }
func (d NewCyclicClassDefinition) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInconsistentMro struct {
	ast.Positioner
	Class string
	stack []byte
}

func (d NewInconsistentMro) Kind() Kind { return KindInconsistentMro }
func (d NewInconsistentMro) Error() string {
	return fmt.Sprintf("cannot compute a consistent method resolution order for class '%s'", d.Class)
}
func (d NewInconsistentMro) getStack() []byte { return d.stack }
func (d NewInconsistentMro) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewUnresolvedAttribute struct {
	ast.Positioner
	Attr  string
	On    string
	stack []byte
}

func (d NewUnresolvedAttribute) Kind() Kind { return KindUnresolvedAttribute }
func (d NewUnresolvedAttribute) Error() string {
	return fmt.Sprintf("type %s has no attribute '%s'", d.On, d.Attr)
}
func (d NewUnresolvedAttribute) getStack() []byte { return d.stack }
func (d NewUnresolvedAttribute) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewPossiblyUnboundAttribute struct {
	ast.Positioner
	Attr  string
	On    string
	stack []byte
}

func (d NewPossiblyUnboundAttribute) Kind() Kind { return KindPossiblyUnboundAttribute }
func (d NewPossiblyUnboundAttribute) Error() string {
	return fmt.Sprintf("attribute '%s' may be missing on %s", d.Attr, d.On)
}
func (d NewPossiblyUnboundAttribute) getStack() []byte { return d.stack }
func (d NewPossiblyUnboundAttribute) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewUnsupportedOperator struct {
	ast.Positioner
	Op    string
	Left  string
	Right string
	// Component is the index of the failing tuple component, or -1.
	Component int
	stack     []byte
}

func (d NewUnsupportedOperator) Kind() Kind { return KindUnsupportedOperator }
func (d NewUnsupportedOperator) Error() string {
	if d.Right == "" {
		return fmt.Sprintf("operator '%s' is not supported for %s", d.Op, d.Left)
	}
	if d.Component >= 0 {
		return fmt.Sprintf("operator '%s' is not supported for %s and %s (tuple component %d)", d.Op, d.Left, d.Right, d.Component)
	}
	return fmt.Sprintf("operator '%s' is not supported for %s and %s", d.Op, d.Left, d.Right)
}
func (d NewUnsupportedOperator) getStack() []byte { return d.stack }
func (d NewUnsupportedOperator) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewUnsupportedBoolConversion struct {
	ast.Positioner
	Type  string
	stack []byte
}

func (d NewUnsupportedBoolConversion) Kind() Kind { return KindUnsupportedBoolConversion }
func (d NewUnsupportedBoolConversion) Error() string {
	return fmt.Sprintf("%s cannot be used in a boolean context: its __bool__ does not return bool", d.Type)
}
func (d NewUnsupportedBoolConversion) getStack() []byte { return d.stack }
func (d NewUnsupportedBoolConversion) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInvalidSuperArgument struct {
	ast.Positioner
	Pivot string
	Owner string
	stack []byte
}

func (d NewInvalidSuperArgument) Kind() Kind { return KindInvalidSuperArgument }
func (d NewInvalidSuperArgument) Error() string {
	return fmt.Sprintf("super(%s, %s): second argument is not an instance or subclass of the first", d.Pivot, d.Owner)
}
func (d NewInvalidSuperArgument) getStack() []byte { return d.stack }
func (d NewInvalidSuperArgument) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewUnavailableImplicitSuperArguments struct {
	ast.Positioner
	stack []byte
}

func (d NewUnavailableImplicitSuperArguments) Kind() Kind {
	return KindUnavailableImplicitSuperArgs
}
func (d NewUnavailableImplicitSuperArguments) Error() string {
	return "super() needs an enclosing class and a bound first parameter; pass the arguments explicitly"
}
func (d NewUnavailableImplicitSuperArguments) getStack() []byte { return d.stack }
func (d NewUnavailableImplicitSuperArguments) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInvalidAssignment struct {
	ast.Positioner
	Target   string
	Declared string
	Value    string
	stack    []byte
}

func (d NewInvalidAssignment) Kind() Kind { return KindInvalidAssignment }
func (d NewInvalidAssignment) Error() string {
	return fmt.Sprintf("cannot assign %s to '%s' declared as %s", d.Value, d.Target, d.Declared)
}
func (d NewInvalidAssignment) getStack() []byte { return d.stack }
func (d NewInvalidAssignment) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInvalidReturnType struct {
	ast.Positioner
	Func     string
	Declared string
	Got      string
	stack    []byte
}

func (d NewInvalidReturnType) Kind() Kind { return KindInvalidReturnType }
func (d NewInvalidReturnType) Error() string {
	return fmt.Sprintf("cannot return %s from %s declared to return %s", d.Got, d.Func, d.Declared)
}
func (d NewInvalidReturnType) getStack() []byte { return d.stack }
func (d NewInvalidReturnType) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewInvalidArgumentType struct {
	ast.Positioner
	Callee   string
	Param    string
	Expected string
	Got      string
	stack    []byte
}

func (d NewInvalidArgumentType) Kind() Kind { return KindInvalidArgumentType }
func (d NewInvalidArgumentType) Error() string {
	return fmt.Sprintf("argument '%s' of %s expects %s, got %s", d.Param, d.Callee, d.Expected, d.Got)
}
func (d NewInvalidArgumentType) getStack() []byte { return d.stack }
func (d NewInvalidArgumentType) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewUnresolvedReference struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (d NewUnresolvedReference) Kind() Kind { return KindUnresolvedReference }
func (d NewUnresolvedReference) Error() string {
	return fmt.Sprintf("name '%s' is not defined", d.Name)
}
func (d NewUnresolvedReference) getStack() []byte { return d.stack }
func (d NewUnresolvedReference) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewPossiblyUnresolvedReference struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (d NewPossiblyUnresolvedReference) Kind() Kind { return KindPossiblyUnresolvedReference }
func (d NewPossiblyUnresolvedReference) Error() string {
	return fmt.Sprintf("name '%s' may be undefined on some paths", d.Name)
}
func (d NewPossiblyUnresolvedReference) getStack() []byte { return d.stack }
func (d NewPossiblyUnresolvedReference) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewNonSubscriptable struct {
	ast.Positioner
	Type  string
	stack []byte
}

func (d NewNonSubscriptable) Kind() Kind { return KindNonSubscriptable }
func (d NewNonSubscriptable) Error() string {
	return fmt.Sprintf("%s is not subscriptable", d.Type)
}
func (d NewNonSubscriptable) getStack() []byte { return d.stack }
func (d NewNonSubscriptable) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewCallNonCallable struct {
	ast.Positioner
	Type  string
	stack []byte
}

func (d NewCallNonCallable) Kind() Kind { return KindCallNonCallable }
func (d NewCallNonCallable) Error() string {
	return fmt.Sprintf("%s is not callable", d.Type)
}
func (d NewCallNonCallable) getStack() []byte { return d.stack }
func (d NewCallNonCallable) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewIndexOutOfBounds struct {
	ast.Positioner
	Type   string
	Index  int64
	Length int
	stack  []byte
}

func (d NewIndexOutOfBounds) Kind() Kind { return KindIndexOutOfBounds }
func (d NewIndexOutOfBounds) Error() string {
	return fmt.Sprintf("index %d is out of bounds for %s of length %d", d.Index, d.Type, d.Length)
}
func (d NewIndexOutOfBounds) getStack() []byte { return d.stack }
func (d NewIndexOutOfBounds) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewMissingArgument struct {
	ast.Positioner
	Callee string
	Param  string
	stack  []byte
}

func (d NewMissingArgument) Kind() Kind { return KindMissingArgument }
func (d NewMissingArgument) Error() string {
	return fmt.Sprintf("missing argument '%s' in call to %s", d.Param, d.Callee)
}
func (d NewMissingArgument) getStack() []byte { return d.stack }
func (d NewMissingArgument) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewTooManyPositionalArguments struct {
	ast.Positioner
	Callee   string
	Expected int
	Got      int
	stack    []byte
}

func (d NewTooManyPositionalArguments) Kind() Kind { return KindTooManyPositionalArguments }
func (d NewTooManyPositionalArguments) Error() string {
	return fmt.Sprintf("too many positional arguments in call to %s: expected %d, got %d",
		d.Callee, d.Expected, d.Got)
}
func (d NewTooManyPositionalArguments) getStack() []byte { return d.stack }
func (d NewTooManyPositionalArguments) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

type NewUnknownArgument struct {
	ast.Positioner
	Callee string
	Name   string
	stack  []byte
}

func (d NewUnknownArgument) Kind() Kind { return KindUnknownArgument }
func (d NewUnknownArgument) Error() string {
	return fmt.Sprintf("unknown keyword argument '%s' in call to %s", d.Name, d.Callee)
}
func (d NewUnknownArgument) getStack() []byte { return d.stack }
func (d NewUnknownArgument) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}

// NewRevealedType is informational: it carries the type the engine
// inferred for the argument of a reveal_type call.
type NewRevealedType struct {
	ast.Positioner
	Type  string
	stack []byte
}

func (d NewRevealedType) Kind() Kind { return KindRevealedType }
func (d NewRevealedType) Error() string {
	return fmt.Sprintf("revealed type is '%s'", d.Type)
}
func (d NewRevealedType) getStack() []byte { return d.stack }
func (d NewRevealedType) withStack(stack []byte) Diagnostic {
	d.stack = stack
	return d
}
