package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "krait.yaml"))
	require.NoError(t, err)
	assert.Equal(t, FileKindRegular, cfg.Default.FileKind)
	assert.Empty(t, cfg.Modules)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "krait.yaml")
	src := `
default:
  kind: regular
modules:
  vendor.legacy:
    future-annotations: true
  stubs.*:
    kind: stub
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	legacy := cfg.ForModule("vendor.legacy")
	assert.Equal(t, FileKindRegular, legacy.FileKind, "an empty kind falls back to the default")
	assert.True(t, legacy.FutureAnnotations)

	stub := cfg.ForModule("stubs.tree")
	assert.Equal(t, FileKindStub, stub.FileKind)
	assert.True(t, stub.DeferAnnotations())
}

func TestLoadRejectsMalformedYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "krait.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestForModulePrecedence(t *testing.T) {
	cfg := &Config{
		Default: ModuleOptions{FileKind: FileKindRegular},
		Modules: map[string]ModuleOptions{
			"gen.*":      {FutureAnnotations: true},
			"gen.proto*": {FileKind: FileKindStub},
			"gen.exact":  {FileKind: FileKindStub, FutureAnnotations: true},
		},
	}

	t.Run("exact match wins", func(t *testing.T) {
		opts := cfg.ForModule("gen.exact")
		assert.Equal(t, FileKindStub, opts.FileKind)
		assert.True(t, opts.FutureAnnotations)
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		opts := cfg.ForModule("gen.protobuf")
		assert.Equal(t, FileKindStub, opts.FileKind)
		assert.False(t, opts.FutureAnnotations)
	})

	t.Run("shorter prefix still applies", func(t *testing.T) {
		opts := cfg.ForModule("gen.other")
		assert.Equal(t, FileKindRegular, opts.FileKind, "prefix options inherit the default kind")
		assert.True(t, opts.FutureAnnotations)
	})

	t.Run("no match falls back to default", func(t *testing.T) {
		opts := cfg.ForModule("app")
		assert.Equal(t, FileKindRegular, opts.FileKind)
		assert.False(t, opts.FutureAnnotations)
	})

	t.Run("nil config is usable", func(t *testing.T) {
		var nilCfg *Config
		assert.Equal(t, FileKindRegular, nilCfg.ForModule("app").FileKind)
	})
}
