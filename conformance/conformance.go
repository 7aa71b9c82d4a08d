// Package conformance runs txtar fixture archives against the checker.
//
// An archive holds modules and their expectations:
//
//	-- geom.py --
//	p: int = "s"
//	-- geom.expect --
//	invalid-assignment: cannot assign Literal["s"] to 'p' declared as int
//
// Files ending in .py check as regular modules and .pyi as stubs, in
// archive order through one shared session, so later modules see
// earlier modules' classes under their qualified names. A module's
// .expect file lists the diagnostics it must produce, one
// `kind: message` line each, in order; a module without one must check
// clean. Lines starting with # are comments.
package conformance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xtgo/set"
	"golang.org/x/tools/txtar"

	"github.com/krait-dev/krait/frontend/config"
	"github.com/krait-dev/krait/frontend/diag"
	"github.com/krait-dev/krait/krait"
)

// ExpectedDiagnostic is one expect-file line.
type ExpectedDiagnostic struct {
	Kind    diag.Kind
	Message string
}

func (e ExpectedDiagnostic) String() string {
	return string(e.Kind) + ": " + e.Message
}

// ModuleOutcome pairs one module's expected and actual diagnostics.
type ModuleOutcome struct {
	Name string
	Want []ExpectedDiagnostic
	Got  []diag.Diagnostic
}

// WantLines renders the expectations in the expect-file notation.
func (m *ModuleOutcome) WantLines() []string {
	lines := make([]string, 0, len(m.Want))
	for _, w := range m.Want {
		lines = append(lines, w.String())
	}
	return lines
}

// GotLines renders the actual diagnostics in the expect-file notation.
func (m *ModuleOutcome) GotLines() []string {
	lines := make([]string, 0, len(m.Got))
	for _, d := range m.Got {
		lines = append(lines, string(d.Kind())+": "+d.Error())
	}
	return lines
}

// Mismatches describes where the actual diagnostics diverge from the
// expectations; empty means the module conforms.
func (m *ModuleOutcome) Mismatches() []string {
	want, got := m.WantLines(), m.GotLines()
	var out []string
	for i := 0; i < len(want) || i < len(got); i++ {
		switch {
		case i >= len(want):
			out = append(out, fmt.Sprintf("%s: unexpected diagnostic %q", m.Name, got[i]))
		case i >= len(got):
			out = append(out, fmt.Sprintf("%s: missing diagnostic %q", m.Name, want[i]))
		case want[i] != got[i]:
			out = append(out, fmt.Sprintf("%s: diagnostic %d: want %q, got %q", m.Name, i, want[i], got[i]))
		}
	}
	return out
}

// Report is the outcome of one archive.
type Report struct {
	Path    string
	Modules []*ModuleOutcome
}

// Mismatches collects every module's mismatches in check order.
func (r *Report) Mismatches() []string {
	var out []string
	for _, m := range r.Modules {
		out = append(out, m.Mismatches()...)
	}
	return out
}

// Kinds returns the distinct diagnostic kinds the archive produced, sorted.
func (r *Report) Kinds() []diag.Kind {
	var names sort.StringSlice
	for _, m := range r.Modules {
		for _, d := range m.Got {
			names = append(names, string(d.Kind()))
		}
	}
	sort.Sort(names)
	names = names[:set.Uniq(names)]
	kinds := make([]diag.Kind, len(names))
	for i, name := range names {
		kinds[i] = diag.Kind(name)
	}
	return kinds
}

func (r *Report) Failed() bool {
	return len(r.Mismatches()) > 0
}

// RunFile loads and runs one fixture archive from disk.
func RunFile(path string, cfg *config.Config) (*Report, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading fixture %s", path)
	}
	rep, err := RunArchive(ar, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "fixture %s", path)
	}
	rep.Path = path
	return rep, nil
}

type moduleFile struct {
	name string
	src  string
	stub bool
}

// RunArchive checks an archive's modules in order through one session.
// The returned error covers malformed fixtures and internal failures,
// never language diagnostics; those land in the report.
func RunArchive(ar *txtar.Archive, cfg *config.Config) (*Report, error) {
	var mods []moduleFile
	expects := make(map[string][]ExpectedDiagnostic)
	for _, f := range ar.Files {
		switch {
		case strings.HasSuffix(f.Name, ".py"):
			mods = append(mods, moduleFile{name: strings.TrimSuffix(f.Name, ".py"), src: string(f.Data)})
		case strings.HasSuffix(f.Name, ".pyi"):
			mods = append(mods, moduleFile{name: strings.TrimSuffix(f.Name, ".pyi"), src: string(f.Data), stub: true})
		case strings.HasSuffix(f.Name, ".expect"):
			want, err := parseExpect(f.Name, string(f.Data))
			if err != nil {
				return nil, err
			}
			expects[strings.TrimSuffix(f.Name, ".expect")] = want
		default:
			return nil, errors.Errorf("fixture file %q: want a .py, .pyi or .expect suffix", f.Name)
		}
	}
	if len(mods) == 0 {
		return nil, errors.New("fixture has no modules")
	}

	known := make(map[string]bool, len(mods))
	for _, m := range mods {
		known[m.name] = true
	}
	for name := range expects {
		if !known[name] {
			return nil, errors.Errorf("expect file for unknown module %q", name)
		}
	}

	sess := krait.NewSession(krait.SessionSettings{Config: withStubKinds(cfg, mods)})
	rep := &Report{}
	for _, m := range mods {
		mod, err := sess.CheckSource(m.name, m.src)
		if err != nil {
			return nil, errors.Wrapf(err, "checking module %s", m.name)
		}
		rep.Modules = append(rep.Modules, &ModuleOutcome{
			Name: m.name,
			Want: expects[m.name],
			Got:  mod.Result.Diagnostics.Diagnostics(),
		})
	}
	return rep, nil
}

// withStubKinds overlays stub file kinds for .pyi modules on the given
// configuration without mutating it.
func withStubKinds(cfg *config.Config, mods []moduleFile) *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	out := &config.Config{Default: cfg.Default, Modules: make(map[string]config.ModuleOptions, len(cfg.Modules))}
	for k, v := range cfg.Modules {
		out.Modules[k] = v
	}
	for _, m := range mods {
		if !m.stub {
			continue
		}
		opts := out.Modules[m.name]
		opts.FileKind = config.FileKindStub
		out.Modules[m.name] = opts
	}
	return out
}

func parseExpect(file, data string) ([]ExpectedDiagnostic, error) {
	var out []ExpectedDiagnostic
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kind, msg, ok := strings.Cut(line, ": ")
		if !ok || kind == "" {
			return nil, errors.Errorf("%s:%d: want `kind: message`, got %q", file, i+1, line)
		}
		out = append(out, ExpectedDiagnostic{Kind: diag.Kind(kind), Message: msg})
	}
	return out, nil
}
