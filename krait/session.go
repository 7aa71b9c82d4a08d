// Package krait is the public entry point to the checker core. A
// Session checks modules against one shared class registry, so classes
// registered by one module are visible to later modules' annotations
// under their qualified name. Parsing real Python is out of scope:
// sources are given in the compact fixture notation read by
// frontend/astbuild, which stands in for a host AST provider.
package krait

import (
	"log/slog"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/krait-dev/krait/frontend"
	"github.com/krait-dev/krait/frontend/astbuild"
	"github.com/krait-dev/krait/frontend/config"
	"github.com/krait-dev/krait/frontend/diag"
	"github.com/krait-dev/krait/frontend/types"
	ilog "github.com/krait-dev/krait/internal/log"
)

var sessionLogger = ilog.DefaultLogger.With(slog.String("section", "session"))

// SessionSettings configure a new Session. The zero value is usable.
type SessionSettings struct {
	// Config supplies per-module analysis options; nil means defaults
	// for every module.
	Config *config.Config
	// Provider resolves names no module binds itself, such as an
	// ambient prelude; nil treats such names as unbound.
	Provider types.DefinitionProvider
}

// Session is one checking run over any number of modules.
type Session struct {
	registry *types.Registry
	cfg      *config.Config
	provider types.DefinitionProvider
	modules  map[string]*Module
	order    []string
	log      *slog.Logger
}

// Module is the outcome of checking one module: its resolved options,
// the context holding its diagnostics, and the analysis result with the
// module-level bindings.
type Module struct {
	Name    string
	Options config.ModuleOptions
	Ctx     *types.Ctx
	Result  *frontend.Result
}

func NewSession(settings SessionSettings) *Session {
	cfg := settings.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Session{
		registry: types.NewRegistry(),
		cfg:      cfg,
		provider: settings.Provider,
		modules:  make(map[string]*Module),
		log:      sessionLogger,
	}
}

// Registry returns the session's shared class registry.
func (s *Session) Registry() *types.Registry {
	return s.registry
}

// CheckSource parses src in the fixture notation and analyses it as the
// named module. Language problems land on the module's diagnostics; the
// returned error carries only parse failures and internal invariant
// breaks.
func (s *Session) CheckSource(name, src string) (*Module, error) {
	stmts, err := astbuild.ParseModule(src)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing module %s", name)
	}

	opts := s.cfg.ForModule(name)
	ctx := types.NewCtx(s.registry).
		WithOptions(opts).
		WithAnnotationParser(astbuild.ParseExpr)
	if s.provider != nil {
		ctx.WithDefinitions(s.provider)
	}

	res := frontend.Analyze(ctx, name, stmts)
	mod := &Module{Name: name, Options: opts, Ctx: ctx, Result: res}
	if _, seen := s.modules[name]; !seen {
		s.order = append(s.order, name)
	}
	s.modules[name] = mod

	s.log.Debug("module checked",
		slog.String("module", name),
		slog.String("kind", string(opts.FileKind)),
		slog.Int("diagnostics", len(res.Diagnostics.Diagnostics())))
	return mod, multierr.Combine(res.Failures...)
}

// Module returns a previously checked module by name.
func (s *Session) Module(name string) (*Module, bool) {
	m, ok := s.modules[name]
	return m, ok
}

// Diagnostics merges every checked module's diagnostics in check order.
func (s *Session) Diagnostics() *diag.List {
	all := &diag.List{}
	for _, name := range s.order {
		all = all.With(s.modules[name].Result.Diagnostics.Diagnostics()...)
	}
	return all
}

// Err combines the internal failures of every checked module. A nil
// result means the session's diagnostics are the whole story.
func (s *Session) Err() error {
	var err error
	for _, name := range s.order {
		err = multierr.Append(err, multierr.Combine(s.modules[name].Result.Failures...))
	}
	return err
}

// Check runs a single module through a fresh default session. It is the
// one-call convenience for tests and tools that check one source.
func Check(name, src string) (*Module, error) {
	return NewSession(SessionSettings{}).CheckSource(name, src)
}
