package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "error", cfg.Diagnostics.FailLevel)
	assert.Equal(t, "2021", cfg.Cargo.Edition)
	assert.Equal(t, diagnostic.LevelError, cfg.FailLevel())
}

func TestLoadYAMLAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyrs.yaml")
	src := `
project:
  name: demo
  out_dir: out
imports:
  stdlib_handled: [textwrap]
  ecosystem: []
  opaque: [numpy]
diagnostics:
  fail_level: warning
cargo:
  package: demo-rs
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, "out", cfg.Project.OutDir)
	assert.Equal(t, diagnostic.LevelWarning, cfg.FailLevel())
	assert.Equal(t, "demo-rs", cfg.Cargo.Package)

	p, ok := cfg.ImportPolicy("textwrap")
	require.True(t, ok)
	assert.Equal(t, hir.ImportStdlibHandled, p)

	p, ok = cfg.ImportPolicy("numpy.linalg")
	require.True(t, ok)
	assert.Equal(t, hir.ImportOpaque, p)

	_, ok = cfg.ImportPolicy("requests")
	assert.False(t, ok)
}

func TestEnvOverrideWins(t *testing.T) {
	t.Setenv("PYRS_FAIL_LEVEL", "warning")
	t.Setenv("PYRS_CARGO_EDITION", "2018")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, diagnostic.LevelWarning, cfg.FailLevel())
	assert.Equal(t, "2018", cfg.Cargo.Edition)
}

func TestBadFailLevelRejected(t *testing.T) {
	t.Setenv("PYRS_FAIL_LEVEL", "fatal")
	_, err := Load("")
	assert.Error(t, err)
}

func TestMissingNamedFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
