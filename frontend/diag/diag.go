// Package diag carries the structured diagnostics the engine reports:
// every entry has a stable kind tag, a human-readable message, and a
// source span.
package diag

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/krait-dev/krait/frontend/ast"
)

// enableDebugPrinting makes diagnostics include their capture site when printed
const enableDebugPrinting bool = false
const enableDebugFullStacktrace bool = false

// Kind is the stable tag of a diagnostic, the part tooling is allowed
// to match on.
type Kind string

const (
	KindInvalidTypeForm              Kind = "invalid-type-form"
	KindInvalidBase                  Kind = "invalid-base"
	KindInvalidMetaclass             Kind = "invalid-metaclass"
	KindConflictingMetaclass         Kind = "conflicting-metaclass"
	KindDuplicateBase                Kind = "duplicate-base"
	KindCyclicClassDefinition        Kind = "cyclic-class-definition"
	KindInconsistentMro              Kind = "inconsistent-mro"
	KindUnresolvedAttribute          Kind = "unresolved-attribute"
	KindPossiblyUnboundAttribute     Kind = "possibly-unbound-attribute"
	KindUnsupportedOperator          Kind = "unsupported-operator"
	KindUnsupportedBoolConversion    Kind = "unsupported-bool-conversion"
	KindInvalidSuperArgument         Kind = "invalid-super-argument"
	KindUnavailableImplicitSuperArgs Kind = "unavailable-implicit-super-arguments"
	KindInvalidAssignment            Kind = "invalid-assignment"
	KindInvalidReturnType            Kind = "invalid-return-type"
	KindInvalidArgumentType          Kind = "invalid-argument-type"
	KindUnresolvedReference          Kind = "unresolved-reference"
	KindPossiblyUnresolvedReference  Kind = "possibly-unresolved-reference"
	KindNonSubscriptable             Kind = "non-subscriptable"
	KindCallNonCallable              Kind = "call-non-callable"
	KindIndexOutOfBounds             Kind = "index-out-of-bounds"
	KindMissingArgument              Kind = "missing-argument"
	KindTooManyPositionalArguments   Kind = "too-many-positional-arguments"
	KindUnknownArgument              Kind = "unknown-argument"
	KindRevealedType                 Kind = "revealed-type"
)

// Diagnostic is a single reported problem. Implementations live in
// kinds.go; construct them through New so they capture their site.
type Diagnostic interface {
	Error() string
	Kind() Kind
	ast.Positioner

	withStack([]byte) Diagnostic
	getStack() []byte
}

// New captures the construction site of d for debug printing.
func New[D Diagnostic](d D) Diagnostic {
	return d.withStack(debug.Stack())
}

// FormatWithKind renders a diagnostic as `(kind) message`, optionally
// prefixed by its capture site.
func FormatWithKind(d Diagnostic) string {
	if enableDebugPrinting && d.getStack() != nil {
		stack := string(d.getStack())
		if !enableDebugFullStacktrace {
			lines := strings.Split(stack, "\n")
			if len(lines) > 6 {
				stack = strings.TrimSpace(lines[6])
			}
		}
		return fmt.Sprintf("%s:(%s) %s", stack, d.Kind(), d.Error())
	}
	return fmt.Sprintf("(%s) %s", d.Kind(), d.Error())
}
