// Package config loads the transpile policy file. Policy is layered:
// built-in defaults, then the YAML file, then a .env file, then PYRS_*
// environment variables, later layers winning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
)

type Config struct {
	Project struct {
		Name   string `yaml:"name"`
		OutDir string `yaml:"out_dir"`
	} `yaml:"project"`

	// Imports reclassifies module imports on top of the built-in
	// tables. A module listed here changes policy for every file in
	// the run.
	Imports struct {
		StdlibHandled []string `yaml:"stdlib_handled"`
		Ecosystem     []string `yaml:"ecosystem"`
		Opaque        []string `yaml:"opaque"`
	} `yaml:"imports"`

	Diagnostics struct {
		// FailLevel names the severity at which output is withheld:
		// "error" (default) or "warning".
		FailLevel string `yaml:"fail_level"`
	} `yaml:"diagnostics"`

	Cargo struct {
		Package string `yaml:"package"`
		Edition string `yaml:"edition"`
	} `yaml:"cargo"`

	Watch struct {
		DebounceMillis int `yaml:"debounce_millis"`
	} `yaml:"watch"`
}

// Default returns the configuration used when no policy file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Project.Name = "transpiled"
	cfg.Project.OutDir = "."
	cfg.Diagnostics.FailLevel = "error"
	cfg.Cargo.Edition = "2021"
	cfg.Watch.DebounceMillis = 200
	return cfg
}

// Load reads the policy file at path and applies environment overrides.
// An empty path yields defaults plus overrides; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	// .env is optional and only feeds the override pass below.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse policy file %s: %w", path, err)
		}
	}
	applyEnv(cfg)

	if cfg.Diagnostics.FailLevel != "error" && cfg.Diagnostics.FailLevel != "warning" {
		return nil, fmt.Errorf("diagnostics.fail_level must be %q or %q, got %q",
			"error", "warning", cfg.Diagnostics.FailLevel)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PYRS_OUT_DIR"); v != "" {
		cfg.Project.OutDir = v
	}
	if v := os.Getenv("PYRS_FAIL_LEVEL"); v != "" {
		cfg.Diagnostics.FailLevel = v
	}
	if v := os.Getenv("PYRS_CARGO_PACKAGE"); v != "" {
		cfg.Cargo.Package = v
	}
	if v := os.Getenv("PYRS_CARGO_EDITION"); v != "" {
		cfg.Cargo.Edition = v
	}
	if v := os.Getenv("PYRS_WATCH_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Watch.DebounceMillis = ms
		}
	}
}

// FailLevel returns the severity threshold as a diagnostic level.
func (c *Config) FailLevel() diagnostic.Level {
	if c.Diagnostics.FailLevel == "warning" {
		return diagnostic.LevelWarning
	}
	return diagnostic.LevelError
}

// ImportPolicy reports the configured override for a module import, if
// any. Dotted imports match on their root segment, same as the built-in
// classifier.
func (c *Config) ImportPolicy(module string) (hir.ImportPolicy, bool) {
	root := module
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	for _, m := range c.Imports.StdlibHandled {
		if m == root {
			return hir.ImportStdlibHandled, true
		}
	}
	for _, m := range c.Imports.Ecosystem {
		if m == root {
			return hir.ImportEcosystem, true
		}
	}
	for _, m := range c.Imports.Opaque {
		if m == root {
			return hir.ImportOpaque, true
		}
	}
	return 0, false
}
