package types

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/config"
	"github.com/krait-dev/krait/frontend/diag"
	ilog "github.com/krait-dev/krait/internal/log"
	"github.com/krait-dev/krait/util"
)

// BindingState says how confidently a name resolves at a use site.
type BindingState int

const (
	BindingBound BindingState = iota
	BindingPossiblyUnbound
	BindingUnbound
)

// DefinitionProvider resolves names visible at the current inference
// site. The analysis driver installs one per scope; a Ctx without a
// provider treats every name as unbound.
type DefinitionProvider interface {
	ResolveName(name string) (Type, BindingState)
}

// methodFrame tracks the class body and method a checker is currently
// inside, which implicit super() needs for its pivot and owner.
type methodFrame struct {
	class *ClassDef
	// firstParam is the type of the method's first parameter, nil when
	// outside a method or in a staticmethod.
	firstParam Type
}

// Ctx is the per-module checking context: it accumulates diagnostics,
// records internal failures separately from language errors, and hands
// out canonical types through the registry's interner. One Ctx is used
// per module goroutine; the registry behind it is shared.
type Ctx struct {
	reg    *Registry
	opts   config.ModuleOptions
	logger *slog.Logger

	mu       sync.Mutex
	diags    *diag.List
	failures []error

	defs   DefinitionProvider
	frames util.Stack[methodFrame]

	// annotParser re-parses string annotations into expressions; the
	// session wires the shared source reader here.
	annotParser func(src string, at ast.Range) (ast.Expr, error)

	// deferred holds annotation thunks queued under deferred-annotation
	// semantics, drained after the module's bodies are checked.
	deferred []func()

	// depth guards runaway recursion through pathological types.
	depth int
}

func NewCtx(reg *Registry) *Ctx {
	return &Ctx{
		reg:    reg,
		opts:   config.DefaultConfig().Default,
		logger: ilog.DefaultLogger.With(slog.String("section", "types")),
		diags:  &diag.List{},
	}
}

func (c *Ctx) WithOptions(opts config.ModuleOptions) *Ctx {
	c.opts = opts
	return c
}

func (c *Ctx) WithLogger(logger *slog.Logger) *Ctx {
	c.logger = logger
	return c
}

func (c *Ctx) WithDefinitions(defs DefinitionProvider) *Ctx {
	c.defs = defs
	return c
}

func (c *Ctx) WithAnnotationParser(parse func(src string, at ast.Range) (ast.Expr, error)) *Ctx {
	c.annotParser = parse
	return c
}

func (c *Ctx) Registry() *Registry { return c.reg }

func (c *Ctx) Options() config.ModuleOptions { return c.opts }

// Definitions returns the currently installed provider, nil when none
// has been set.
func (c *Ctx) Definitions() DefinitionProvider { return c.defs }

// Diagnostics returns the language errors accumulated so far.
func (c *Ctx) Diagnostics() *diag.List {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diags
}

// Failures returns internal invariant breaches. These indicate checker
// bugs, never user errors, and are reported separately.
func (c *Ctx) Failures() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Report records a language diagnostic produced outside this package,
// such as by the analysis driver.
func (c *Ctx) Report(d diag.Diagnostic) {
	c.addError(d)
}

// addError records a language diagnostic. Checking continues; the
// expression that produced the error types as Unknown at the caller.
func (c *Ctx) addError(d diag.Diagnostic) {
	c.mu.Lock()
	c.diags = c.diags.With(d)
	c.mu.Unlock()
	c.logger.Debug("diagnostic", slog.String("kind", string(d.Kind())), slog.String("msg", d.Error()))
}

// addFailure records a broken internal invariant without stopping the
// checker.
func (c *Ctx) addFailure(format string, args ...any) {
	err := errors.Errorf(format, args...)
	c.mu.Lock()
	c.failures = append(c.failures, err)
	c.mu.Unlock()
	c.logger.Warn("internal failure", slog.String("err", err.Error()))
}

func (c *Ctx) resolveName(name string) (Type, BindingState) {
	if c.defs == nil {
		return nil, BindingUnbound
	}
	return c.defs.ResolveName(name)
}

// PushFrame enters a class body or method scope.
func (c *Ctx) PushFrame(class *ClassDef, firstParam Type) {
	c.frames.Push(methodFrame{class: class, firstParam: firstParam})
}

func (c *Ctx) PopFrame() {
	c.frames.Pop()
}

func (c *Ctx) currentFrame() (methodFrame, bool) {
	return c.frames.Peek()
}

// Defer queues work to run after the module's statements are checked,
// used for annotations under deferred evaluation.
func (c *Ctx) Defer(f func()) {
	c.mu.Lock()
	c.deferred = append(c.deferred, f)
	c.mu.Unlock()
}

// DrainDeferred runs queued annotation thunks until none remain. Thunks
// may queue further thunks.
func (c *Ctx) DrainDeferred() {
	for {
		c.mu.Lock()
		pending := c.deferred
		c.deferred = nil
		c.mu.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, f := range pending {
			f()
		}
	}
}

// intern routes a freshly built composite through the registry's
// interner so structural equality implies pointer equality.
func (c *Ctx) intern(t Type) Type {
	return c.reg.interner.intern(t)
}

const maxTypeDepth = 512

// guardDepth returns false once nesting exceeds the recursion budget,
// recording a failure the first time the budget trips.
func (c *Ctx) guardDepth() bool {
	c.depth++
	if c.depth == maxTypeDepth {
		c.addFailure("type recursion depth exceeded %d", maxTypeDepth)
	}
	return c.depth < maxTypeDepth
}

func (c *Ctx) unguardDepth() {
	c.depth--
}
