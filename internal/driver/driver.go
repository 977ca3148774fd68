// Package driver runs the transpile pipeline: parse, lower to HIR,
// infer types, decide ownership, emit Rust. Each file gets its own
// collector; output is withheld when diagnostics reach the configured
// severity threshold.
package driver

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pyrs-lang/pyrs/internal/astbridge"
	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/codegen"
	"github.com/pyrs-lang/pyrs/internal/config"
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/infer"
	"github.com/pyrs-lang/pyrs/internal/parser"
)

// Input is one source file to transpile.
type Input struct {
	Path   string
	Source []byte
}

// Result is the outcome for one file. Rust is empty when the publish
// threshold was hit; Diagnostics is always populated.
type Result struct {
	Path        string
	ModuleName  string
	Rust        string
	Needs       *codegen.Needs
	Diagnostics []diagnostic.Diagnostic
	Published   bool
}

type Driver struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Driver {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Driver{cfg: cfg}
}

// TranspileFile runs the full pipeline on one source file. The error
// return covers front-end failures only (unreadable syntax tree);
// semantic problems arrive as diagnostics on the Result.
func (d *Driver) TranspileFile(ctx context.Context, path string, source []byte) (*Result, error) {
	name := moduleName(path)
	res := &Result{Path: path, ModuleName: name}

	p := parser.New()
	ast, parseDiags, err := p.Parse(ctx, path, source)
	if err != nil {
		return nil, err
	}

	diags := diagnostic.NewCollector()
	for _, pd := range parseDiags {
		diags.Add(pd)
	}

	mod := astbridge.New(diags).Build(ast, name)
	d.applyImportPolicy(mod)

	in := infer.New(diags)
	in.Run(mod)

	facts := borrow.New(diags).Run(mod)

	em := codegen.New(diags, mod, facts, in.Returns())
	rust, needs := em.Generate()

	res.Diagnostics = diags.All()
	res.Needs = needs
	if diags.CountAtOrAbove(d.cfg.FailLevel()) == 0 {
		res.Rust = rust
		res.Published = true
	}
	return res, nil
}

// TranspileAll processes independent files concurrently. Results come
// back in input order; the first front-end error cancels the rest.
func (d *Driver) TranspileAll(ctx context.Context, inputs []Input) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, in := range inputs {
		g.Go(func() error {
			res, err := d.TranspileFile(ctx, in.Path, in.Source)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyImportPolicy lets the policy file reclassify imports over the
// built-in tables.
func (d *Driver) applyImportPolicy(mod *hir.Module) {
	for _, imp := range mod.Imports {
		if p, ok := d.cfg.ImportPolicy(imp.Module); ok {
			imp.Policy = p
		}
	}
}

// moduleName derives a Rust-safe module name from the source path.
func moduleName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var sb strings.Builder
	for i, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9' && i > 0, r == '_':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ' || r == '.':
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "module"
	}
	return sb.String()
}
