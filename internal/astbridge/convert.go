// Package astbridge lowers the Python AST into the typed HIR. The
// bridge is purely structural: it desugars, classifies classes and
// imports, and extracts docstrings, but performs no type inference and
// makes no borrowing decisions. Unsupported constructs are reported as
// hard errors with spans; the rest of the module is still processed.
package astbridge

import (
	"strings"

	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/position"
	"github.com/pyrs-lang/pyrs/internal/pyast"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// stdlibHandled lists the modules whose call sites the dispatcher
// rewrites (or for which a prelude shim exists).
var stdlibHandled = map[string]bool{
	"re": true, "datetime": true, "hashlib": true, "json": true,
	"math": true, "sys": true, "time": true, "random": true,
	"argparse": true, "pathlib": true, "colorsys": true, "os": true,
	"typing": true, "abc": true, "enum": true, "dataclasses": true,
	"collections": true, "io": true, "csv": true,
}

// ecosystemRecognized maps imports that raise a need-flag for an
// external crate instead of a rewrite table.
var ecosystemRecognized = map[string]bool{
	"asyncio": true,
}

// Bridge converts one pyast module into HIR.
type Bridge struct {
	diags *diagnostic.Collector
	// classNames collects every class declared in the module before
	// classification, so base-name lookups see later classes too.
	classNames map[string]*pyast.ClassDef
	// moduleNames holds imported module names and aliases, so call
	// routing can tell `math.sqrt(x)` from a method call.
	moduleNames map[string]bool
	tempID      int
}

// New creates a bridge reporting into the given collector.
func New(diags *diagnostic.Collector) *Bridge {
	return &Bridge{
		diags:       diags,
		classNames:  make(map[string]*pyast.ClassDef),
		moduleNames: make(map[string]bool),
	}
}

// Build lowers a parsed module. The returned module is complete even
// when diagnostics were produced; failed items are simply absent.
func (b *Bridge) Build(src *pyast.Module, name string) *hir.Module {
	mod := &hir.Module{
		Span:   src.Span,
		Name:   name,
		Source: src.Source,
	}

	// First pass: collect class names for ADT base resolution and
	// module names for call routing.
	for _, stmt := range src.Body {
		switch n := stmt.(type) {
		case *pyast.ClassDef:
			b.classNames[n.Name] = n
		case *pyast.Import:
			for _, alias := range n.Names {
				name := alias.Name
				if alias.AsName != "" {
					name = alias.AsName
				}
				if i := strings.IndexByte(name, '.'); i >= 0 {
					name = name[:i]
				}
				b.moduleNames[name] = true
			}
		}
	}

	for _, stmt := range src.Body {
		switch n := stmt.(type) {
		case *pyast.FunctionDef:
			if fn := b.convertFunction(n, false); fn != nil {
				mod.Functions = append(mod.Functions, fn)
			}
		case *pyast.ClassDef:
			if cls := b.convertClass(n); cls != nil {
				mod.Classes = append(mod.Classes, cls)
			}
		case *pyast.Import:
			mod.Imports = append(mod.Imports, b.convertImport(n)...)
		case *pyast.ImportFrom:
			mod.Imports = append(mod.Imports, b.convertImportFrom(n)...)
		case *pyast.Assign:
			if c := b.convertModuleConstant(n); c != nil {
				mod.Constants = append(mod.Constants, c)
			}
		case *pyast.AnnAssign:
			if c := b.convertModuleAnnConstant(n); c != nil {
				mod.Constants = append(mod.Constants, c)
			}
		case *pyast.If:
			if callee, ok := b.mainGuardCall(n); ok {
				mod.HasMainGuard = true
				mod.MainCall = callee
				continue
			}
			b.errorf(n.GetSpan(), "module-level conditionals other than the __main__ guard are not supported")
		case *pyast.ExprStmt:
			// A leading string literal is the module docstring; other
			// bare expressions at module scope are dropped with a note.
			if _, ok := n.Value.(*pyast.StringLit); ok {
				continue
			}
			b.diags.Add(diagnostic.Warnf(diagnostic.KindUnsupported, n.GetSpan(),
				"module-level expression has no effect and was dropped"))
		case *pyast.Global:
			b.errorf(n.GetSpan(), "global statements are not supported")
		default:
			b.errorf(stmt.GetSpan(), "unsupported module-level statement")
		}
	}

	b.linkADTGroups(mod)
	return mod
}

func (b *Bridge) errorf(span position.Span, format string, args ...interface{}) {
	b.diags.Add(diagnostic.Errorf(diagnostic.KindUnsupported, span, format, args...))
}

// mainGuardCall recognizes `if __name__ == "__main__": f()` and returns
// the called function name.
func (b *Bridge) mainGuardCall(n *pyast.If) (string, bool) {
	cmp, ok := n.Test.(*pyast.Compare)
	if !ok || len(cmp.Ops) != 1 || cmp.Ops[0] != "==" {
		return "", false
	}
	name, ok := cmp.Left.(*pyast.Name)
	if !ok || name.ID != "__name__" {
		return "", false
	}
	lit, ok := cmp.Comparators[0].(*pyast.StringLit)
	if !ok || lit.Value != "__main__" {
		return "", false
	}
	if len(n.Body) == 1 {
		if es, ok := n.Body[0].(*pyast.ExprStmt); ok {
			if call, ok := es.Value.(*pyast.Call); ok {
				if callee, ok := call.Func.(*pyast.Name); ok {
					return callee.ID, true
				}
			}
		}
	}
	return "", true // guard recognized, body left to the emitter's main
}

func (b *Bridge) convertImport(n *pyast.Import) []*hir.Import {
	var out []*hir.Import
	for _, alias := range n.Names {
		out = append(out, &hir.Import{
			Span:   n.Span,
			Module: alias.Name,
			Alias:  alias.AsName,
			Policy: classifyImport(alias.Name),
		})
	}
	return out
}

func (b *Bridge) convertImportFrom(n *pyast.ImportFrom) []*hir.Import {
	var out []*hir.Import
	for _, alias := range n.Names {
		out = append(out, &hir.Import{
			Span:   n.Span,
			Module: n.Module,
			Name:   alias.Name,
			Alias:  alias.AsName,
			Policy: classifyImport(n.Module),
		})
	}
	return out
}

func classifyImport(module string) hir.ImportPolicy {
	root := module
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	switch {
	case stdlibHandled[root]:
		return hir.ImportStdlibHandled
	case ecosystemRecognized[root]:
		return hir.ImportEcosystem
	default:
		return hir.ImportOpaque
	}
}

// convertModuleConstant surfaces `NAME = literal` as a constant item.
// Anything with a non-literal initializer that is not a recognized
// constructor is rejected: no free-floating mutation at module scope.
func (b *Bridge) convertModuleConstant(n *pyast.Assign) *hir.Constant {
	if len(n.Targets) != 1 {
		b.errorf(n.Span, "chained module-level assignment is not supported")
		return nil
	}
	name, ok := n.Targets[0].(*pyast.Name)
	if !ok {
		b.errorf(n.Span, "module-level assignment target must be a name")
		return nil
	}
	value := b.convertExpr(n.Value)
	return &hir.Constant{
		Span:  n.Span,
		Name:  name.ID,
		Type:  literalType(value),
		Value: value,
	}
}

func (b *Bridge) convertModuleAnnConstant(n *pyast.AnnAssign) *hir.Constant {
	name, ok := n.Target.(*pyast.Name)
	if !ok {
		b.errorf(n.Span, "module-level assignment target must be a name")
		return nil
	}

	c := &hir.Constant{
		Span: n.Span,
		Name: name.ID,
		Type: types.ParseAnnotation(n.Annotation),
	}
	if n.Value != nil {
		c.Value = b.convertExpr(n.Value)
	}
	return c
}

// literalType types a constant initializer without running inference.
func literalType(e hir.Expr) types.PyType {
	switch n := e.(type) {
	case *hir.Literal:
		switch n.Kind {
		case hir.LitInt:
			return types.Int()
		case hir.LitFloat:
			return types.Float()
		case hir.LitString:
			return types.Str()
		case hir.LitBytes:
			return types.Bytes()
		case hir.LitBool:
			return types.Bool()
		case hir.LitNone:
			return types.NoneType()
		}
	case *hir.ListLit:
		if len(n.Elems) > 0 {
			return types.List(literalType(n.Elems[0]))
		}
		return types.List(types.Unknown())
	case *hir.DictLit:
		if len(n.Keys) > 0 {
			return types.Dict(literalType(n.Keys[0]), literalType(n.Values[0]))
		}
		return types.Dict(types.Unknown(), types.Unknown())
	case *hir.SetLit:
		if len(n.Elems) > 0 {
			return types.Set(literalType(n.Elems[0]))
		}
		return types.Set(types.Unknown())
	case *hir.TupleLit:
		items := make([]types.PyType, len(n.Elems))
		for i, el := range n.Elems {
			items[i] = literalType(el)
		}
		return types.Tuple(items...)
	case *hir.Unary:
		return literalType(n.Operand)
	}
	return types.Unknown()
}

// freshTemp returns a unique name for desugaring-introduced bindings.
func (b *Bridge) freshTemp() string {
	b.tempID++
	return "__chain_" + itoa(b.tempID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
