package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// rustKeywords are names that need the raw-identifier prefix.
var rustKeywords = map[string]bool{
	"as": true, "box": true, "break": true, "const": true, "continue": true,
	"crate": true, "dyn": true, "else": true, "enum": true, "extern": true,
	"false": true, "fn": true, "for": true, "if": true, "impl": true,
	"in": true, "let": true, "loop": true, "match": true, "mod": true,
	"move": true, "mut": true, "pub": true, "ref": true, "return": true,
	"self": true, "static": true, "struct": true, "super": true,
	"trait": true, "true": true, "type": true, "unsafe": true, "use": true,
	"where": true, "while": true, "async": true, "await": true, "yield": true,
}

// sanitizeIdent makes a Python name safe as a Rust identifier.
func sanitizeIdent(name string) string {
	if rustKeywords[name] {
		return "r#" + name
	}
	return name
}

// emitFunction renders one function or method. className is empty for
// free functions; methods are rendered inside an impl block by the
// class emitter, which adjusts indentation around this call.
func (em *Emitter) emitFunction(fn *hir.Function, className string) {
	key := fn.Name
	if className != "" {
		key = className + "." + fn.Name
	}
	em.fc = &fnContext{
		fn:        fn,
		facts:     em.facts[key],
		mutLocals: borrow.MutableLocals(fn),
		declared:  make(map[string]bool),
		className: className,
		errType:   errorTypeFor(fn),
	}

	if fn.IsGenerator {
		em.emitGenerator(fn)
		return
	}
	if fn.Name == "__init__" && className != "" {
		em.emitInit(fn, className)
		return
	}

	if fn.Docstring != "" {
		for _, ln := range strings.Split(strings.TrimSpace(fn.Docstring), "\n") {
			em.linef("/// %s", strings.TrimSpace(ln))
		}
	}
	if fn.Name == "main" && className == "" {
		em.emitMainFunction(fn)
		return
	}

	em.line(em.signature(fn, className))
	em.indent++
	em.emitBody(fn)
	em.indent--
	em.line("}")
}

// signature renders the header line up to the opening brace.
func (em *Emitter) signature(fn *hir.Function, className string) string {
	var sb strings.Builder
	if fn.IsAsync {
		sb.WriteString("async ")
	}
	if className != "" && (!isDunder(fn.Name) || fn.Name == "__init__") {
		sb.WriteString("pub ")
	}
	sb.WriteString("fn ")
	sb.WriteString(sanitizeIdent(methodName(fn)))

	if g := em.genericClause(fn); g != "" {
		sb.WriteString(g)
	}

	sb.WriteByte('(')
	sb.WriteString(em.paramList(fn, className))
	sb.WriteByte(')')

	if ret := em.returnClause(fn); ret != "" {
		sb.WriteString(" -> ")
		sb.WriteString(ret)
	}
	sb.WriteString(" {")
	return sb.String()
}

// methodName maps dunder and constructor names to their Rust spellings.
func methodName(fn *hir.Function) string {
	if fn.Name == "__init__" {
		return "new"
	}
	return strings.TrimPrefix(fn.Name, "__")
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// genericClause renders <'a, T, ...>: lifetimes first in order of first
// appearance, then type parameters, no duplicates.
func (em *Emitter) genericClause(fn *hir.Function) string {
	var parts []string
	seen := make(map[string]bool)

	if em.fc.facts != nil {
		for _, lt := range em.fc.facts.Lifetimes {
			if !seen[lt] {
				seen[lt] = true
				parts = append(parts, lt)
			}
		}
	}

	var tvs []string
	for _, p := range fn.Params {
		collectTypeVarNames(p.Type, seen, &tvs)
	}
	collectTypeVarNames(fn.RetType, seen, &tvs)
	sort.Strings(tvs)
	for _, tv := range tvs {
		if em.typeVarNeedsHash(fn, tv) {
			parts = append(parts, tv+": Hash + Eq")
		} else {
			parts = append(parts, tv+": PartialEq")
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func collectTypeVarNames(t types.PyType, seen map[string]bool, out *[]string) {
	switch t.Kind {
	case types.KindTypeVar:
		if !seen[t.Name] {
			seen[t.Name] = true
			*out = append(*out, t.Name)
		}
	case types.KindList, types.KindSet, types.KindFrozenSet, types.KindOptional:
		if t.Elem != nil {
			collectTypeVarNames(*t.Elem, seen, out)
		}
	case types.KindDict:
		if t.Key != nil {
			collectTypeVarNames(*t.Key, seen, out)
		}
		if t.Elem != nil {
			collectTypeVarNames(*t.Elem, seen, out)
		}
	case types.KindTuple, types.KindCallable:
		for _, it := range t.Items {
			collectTypeVarNames(it, seen, out)
		}
	}
}

// typeVarNeedsHash reports whether the variable is used as a map key or
// set element anywhere in the signature.
func (em *Emitter) typeVarNeedsHash(fn *hir.Function, tv string) bool {
	var used bool
	var walk func(t types.PyType)
	walk = func(t types.PyType) {
		switch t.Kind {
		case types.KindDict:
			if t.Key != nil {
				if t.Key.Kind == types.KindTypeVar && t.Key.Name == tv {
					used = true
				}
				walk(*t.Key)
			}
			if t.Elem != nil {
				walk(*t.Elem)
			}
		case types.KindSet, types.KindFrozenSet:
			if t.Elem != nil {
				if t.Elem.Kind == types.KindTypeVar && t.Elem.Name == tv {
					used = true
				}
				walk(*t.Elem)
			}
		case types.KindList, types.KindOptional:
			if t.Elem != nil {
				walk(*t.Elem)
			}
		}
	}
	for _, p := range fn.Params {
		walk(p.Type)
	}
	walk(fn.RetType)
	return used
}

// paramList renders the parameters with their borrow strategies.
func (em *Emitter) paramList(fn *hir.Function, className string) string {
	var parts []string
	if className != "" && fn.IsMethod && !fn.IsStaticMethod && !fn.IsClassMethod {
		if fn.Name == "__init__" {
			// new() is an associated function; self appears nowhere.
		} else if methodMutatesSelf(em.fc.facts) {
			parts = append(parts, "&mut self")
		} else {
			parts = append(parts, "&self")
		}
	}
	for _, p := range fn.Params {
		if p.Name == "self" {
			continue
		}
		parts = append(parts, sanitizeIdent(p.Name)+": "+em.paramTypeString(p))
	}
	return strings.Join(parts, ", ")
}

func methodMutatesSelf(ff *borrow.FuncFacts) bool {
	if ff == nil {
		return false
	}
	if pf, ok := ff.Params["self"]; ok {
		return pf.Mutated
	}
	return false
}

// paramTypeString renders one parameter type under its strategy.
func (em *Emitter) paramTypeString(p *hir.Param) string {
	rt, _ := types.MapType(p.Type)
	var pf *borrow.ParamFacts
	if em.fc.facts != nil {
		pf = em.fc.facts.Params[p.Name]
	}
	if pf == nil {
		return rt.Render()
	}
	switch pf.Strategy {
	case borrow.SharedBorrow, borrow.UseCow:
		return renderBorrowed(rt, false, pf.Lifetime)
	case borrow.MutableBorrow:
		return renderBorrowed(rt, true, pf.Lifetime)
	default:
		return rt.Render()
	}
}

// renderBorrowed converts owned shapes to their reference forms:
// String -> &str, Vec<T> -> &[T] style stays Vec behind & for mutation
// symmetry with the method table.
func renderBorrowed(rt types.RustType, mutable bool, lifetime string) string {
	if rt.Kind == types.RustString && !mutable {
		return types.RStr(lifetime).Render()
	}
	return types.RRef(rt, mutable, lifetime).Render()
}

// returnClause renders the return type, applying the Cow/borrow
// decisions, Result wrapping, and boxed writer returns.
func (em *Emitter) returnClause(fn *hir.Function) string {
	inner := em.returnInner(fn)
	if fn.CanFail {
		if inner == "" {
			inner = "()"
		}
		return fmt.Sprintf("Result<%s, %s>", inner, em.fc.errType)
	}
	return inner
}

func (em *Emitter) returnInner(fn *hir.Function) string {
	ff := em.fc.facts
	if ff != nil && ff.ReturnCow {
		return types.RCow(ff.ReturnLifetime).Render()
	}
	if fn.RetType.Kind == types.KindCustom && fn.RetType.Name == "BoxedWrite" {
		return types.RBoxedWrite().Render()
	}
	rt, _ := types.MapReturnType(fn.RetType)
	if rt.IsUnit() {
		return ""
	}
	if ff != nil && ff.ReturnBorrowed && !ff.ReturnOwnedForced && rt.Kind == types.RustString {
		return types.RStr(ff.ReturnLifetime).Render()
	}
	return rt.Render()
}

// errorTypeFor picks the concrete error type for a fallible signature:
// the single raised type, or a boxed dynamic error for a mixed set.
func errorTypeFor(fn *hir.Function) string {
	switch len(fn.ErrorTypes) {
	case 0:
		return "RuntimeError"
	case 1:
		return fn.ErrorTypes[0]
	default:
		return "Box<dyn std::error::Error>"
	}
}

// emitMainFunction renders main with its special return handling: unit
// or Result<(), E>, with the async runtime attribute when needed.
func (em *Emitter) emitMainFunction(fn *hir.Function) {
	if fn.IsAsync {
		em.line("#[tokio::main]")
		em.needs.AsyncRuntime = true
	}
	header := "fn main()"
	if fn.IsAsync {
		header = "async fn main()"
	}
	if fn.CanFail {
		header += fmt.Sprintf(" -> Result<(), %s>", em.fc.errType)
	}
	em.line(header + " {")
	em.indent++
	em.emitBody(fn)
	em.indent--
	em.line("}")
}
