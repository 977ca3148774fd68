// Package codegen turns typed, ownership-annotated HIR into Rust source
// text. Emission is pattern-directed: a dispatcher table rewrites
// builtin and method calls, classes lower to structs and enums, and a
// fixed sequence of post-emission fixups normalizes patterns that only
// crystallize after global inference.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// Emitter generates one module's Rust source.
type Emitter struct {
	diags   *diagnostic.Collector
	mod     *hir.Module
	facts   map[string]*borrow.FuncFacts
	returns map[string]types.PyType
	needs   *Needs

	buf    strings.Builder
	indent int

	fc *fnContext

	// fx accumulates the facts the post-emission fixups consume.
	fx *Fixups

	// argparse holds the recognized CLI parser lowering, nil when the
	// module builds no parser.
	argparse *argparseSpec
	// argsLocals maps args.<field> references onto match-arm locals
	// while a subcommand arm is being emitted.
	argsLocals map[string]string
}

// New builds an Emitter for mod using the inference return table and the
// ownership fact table.
func New(diags *diagnostic.Collector, mod *hir.Module, facts map[string]*borrow.FuncFacts, returns map[string]types.PyType) *Emitter {
	em := &Emitter{
		diags:   diags,
		mod:     mod,
		facts:   facts,
		returns: returns,
		needs:   newNeeds(),
		fx: &Fixups{
			EnumVariants: make(map[string][]string),
			Vacuity:      make(map[string]string),
		},
	}
	for _, c := range mod.Classes {
		if c.Kind == hir.ClassEnum {
			var names []string
			for _, m := range c.EnumMembers {
				names = append(names, m.Name)
			}
			em.fx.EnumVariants[c.Name] = names
		}
	}
	return em
}

// Generate emits the whole module and returns the fixed-up source and
// the accumulated need-flags.
func (em *Emitter) Generate() (string, *Needs) {
	em.scanNeeds()
	em.scanArgparse()

	for _, imp := range em.mod.Imports {
		if imp.Policy == hir.ImportOpaque {
			em.linef("// import %s: no rewrite available", imp.Module)
		}
	}

	for _, c := range em.mod.Constants {
		em.emitConstant(*c)
	}
	if len(em.mod.Constants) > 0 {
		em.blank()
	}

	if em.argparse != nil {
		em.emitArgparse()
		em.blank()
	}

	for _, c := range em.mod.Classes {
		if c.Kind == hir.ClassADTChild {
			continue // folded into the parent enum
		}
		em.emitClass(c)
		em.blank()
	}

	for _, fn := range em.mod.Functions {
		em.emitFunction(fn, "")
		em.blank()
	}

	if em.mod.HasMainGuard && em.mod.FindFunction("main") == nil {
		em.emitMainWrapper()
	}

	body := em.buf.String()
	prelude := em.renderPrelude()
	out := prelude + body
	out = ApplyFixups(out, em.fx)
	return out, em.needs
}

// Needs returns the need-flags collected so far.
func (em *Emitter) Needs() *Needs { return em.needs }

// scanNeeds walks the module once before emission so the prelude can be
// selected up front: exception shims for the error taxonomy, crate
// flags for recognized imports, and the async runtime for async main.
func (em *Emitter) scanNeeds() {
	for _, imp := range em.mod.Imports {
		switch imp.Module {
		case "re":
			em.needs.Regex = true
			em.needs.MatchShim = true
		case "datetime":
			em.needs.Chrono = true
			em.needs.DateTimeShim = true
		case "hashlib":
			em.needs.Sha2 = true
		case "random":
			em.needs.Rand = true
		case "json":
			em.needs.SerdeJson = true
		}
	}
	check := func(fn *hir.Function) {
		for _, et := range fn.ErrorTypes {
			em.needs.exception(et)
		}
		if fn.CanFail && len(fn.ErrorTypes) == 0 {
			em.needs.exception("RuntimeError")
		}
		if fn.IsAsync && fn.Name == "main" {
			em.needs.AsyncRuntime = true
		}
	}
	for _, fn := range em.mod.Functions {
		check(fn)
	}
	for _, c := range em.mod.Classes {
		for _, m := range c.Methods {
			check(m)
		}
	}
}

// emitConstant renders a module-level constant.
func (em *Emitter) emitConstant(c hir.Constant) {
	rt, _ := types.MapType(c.Type)
	name := strings.ToUpper(c.Name)
	switch c.Type.Kind {
	case types.KindInt, types.KindFloat, types.KindBool:
		em.linef("const %s: %s = %s;", name, rt.Render(), em.exprOwned(c.Value, c.Type))
	case types.KindString:
		em.linef("const %s: &str = %s;", name, em.expr(c.Value))
	default:
		// Heap values cannot be const; lazily evaluate at each use
		// site is worse, so emit a constructor function.
		em.linef("fn %s() -> %s {", strings.ToLower(c.Name), rt.Render())
		em.indent++
		em.linef("%s", em.exprOwned(c.Value, c.Type))
		em.indent--
		em.line("}")
	}
}

// emitMainWrapper handles a main guard whose call target is not named
// main: fn main just delegates.
func (em *Emitter) emitMainWrapper() {
	em.line("fn main() {")
	em.indent++
	if em.mod.MainCall != "" {
		em.linef("%s();", sanitizeIdent(em.mod.MainCall))
	}
	em.indent--
	em.line("}")
	em.blank()
}

// --- writer helpers ---

func (em *Emitter) line(s string) {
	for i := 0; i < em.indent; i++ {
		em.buf.WriteString("    ")
	}
	em.buf.WriteString(s)
	em.buf.WriteByte('\n')
}

func (em *Emitter) linef(format string, args ...interface{}) {
	em.line(fmt.Sprintf(format, args...))
}

func (em *Emitter) blank() { em.buf.WriteByte('\n') }

func itoa(n int) string { return strconv.Itoa(n) }
