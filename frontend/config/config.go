// Package config holds the per-module analysis options the engine
// consults, and the optional YAML file they can be loaded from.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileKind tells the engine what kind of source a module is.
type FileKind string

const (
	// FileKindRegular is ordinary source.
	FileKindRegular FileKind = "regular"
	// FileKindStub marks declaration-library stubs, where string
	// annotations always resolve lazily.
	FileKindStub FileKind = "stub"
)

// ModuleOptions are the analysis switches that vary per module.
type ModuleOptions struct {
	FileKind          FileKind `yaml:"kind"`
	FutureAnnotations bool     `yaml:"future-annotations"`
}

// DeferAnnotations reports whether string annotations in this module
// resolve after the whole module has been registered, rather than at
// their syntactic position.
func (o ModuleOptions) DeferAnnotations() bool {
	return o.FileKind == FileKindStub || o.FutureAnnotations
}

// Config is the on-disk configuration: a default option set plus
// per-module overrides keyed by module name, where a trailing `*`
// makes the key a prefix pattern.
type Config struct {
	Default ModuleOptions            `yaml:"default"`
	Modules map[string]ModuleOptions `yaml:"modules"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Default: ModuleOptions{FileKind: FileKindRegular},
	}
}

// Load reads a YAML config file. A missing file is not an error: the
// defaults are returned.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if cfg.Default.FileKind == "" {
		cfg.Default.FileKind = FileKindRegular
	}
	return cfg, nil
}

// ForModule resolves the options for a module name: exact match wins,
// then the longest matching `prefix*` pattern, then the default.
func (c *Config) ForModule(name string) ModuleOptions {
	if c == nil {
		return DefaultConfig().Default
	}
	if opts, ok := c.Modules[name]; ok {
		return withDefaults(opts, c.Default)
	}
	best := ""
	var bestOpts ModuleOptions
	for pattern, opts := range c.Modules {
		if !strings.HasSuffix(pattern, "*") {
			continue
		}
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(name, prefix) && len(prefix) > len(best) {
			best = prefix
			bestOpts = opts
		}
	}
	if best != "" {
		return withDefaults(bestOpts, c.Default)
	}
	return c.Default
}

func withDefaults(opts, def ModuleOptions) ModuleOptions {
	if opts.FileKind == "" {
		opts.FileKind = def.FileKind
	}
	return opts
}
