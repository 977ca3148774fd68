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

// deref strips Optional so container dispatch sees the payload kind.
func deref(t types.PyType) types.PyType {
	if t.Kind == types.KindOptional && t.Elem != nil {
		return *t.Elem
	}
	return t
}

// isHeapType reports whether values of t own heap storage, so moving
// one out of a borrow needs a clone.
func isHeapType(t types.PyType) bool {
	switch t.Kind {
	case types.KindString, types.KindBytes, types.KindList, types.KindDict,
		types.KindSet, types.KindFrozenSet, types.KindCustom:
		return true
	}
	return false
}

// expr renders an expression in read position.
func (em *Emitter) expr(e hir.Expr) string {
	switch n := e.(type) {
	case *hir.Literal:
		return em.literal(n)
	case *hir.Var:
		return em.varRef(n)
	case *hir.Binary:
		return em.binary(n)
	case *hir.Unary:
		return em.unary(n)
	case *hir.Call:
		return em.dispatchCall(n)
	case *hir.MethodCall:
		return em.dispatchMethod(n)
	case *hir.Attr:
		return em.attr(n)
	case *hir.Index:
		return em.index(n)
	case *hir.Slice:
		return em.slice(n)
	case *hir.IfExpr:
		return fmt.Sprintf("if %s { %s } else { %s }", em.cond(n.Cond), em.expr(n.Then), em.expr(n.Else))
	case *hir.Walrus:
		return em.walrus(n)
	case *hir.Lambda:
		return em.lambda(n)
	case *hir.ListLit:
		return em.listLit(n)
	case *hir.SetLit:
		return em.setLit(n)
	case *hir.TupleLit:
		return em.tupleLit(n)
	case *hir.DictLit:
		return em.dictLit(n)
	case *hir.Starred:
		return em.expr(n.Value)
	case *hir.Comp:
		return em.comprehension(n)
	case *hir.FString:
		return em.fstringFormat(n)
	case *hir.AwaitExpr:
		return em.expr(n.Value) + ".await"
	case *hir.YieldExpr, *hir.YieldFrom:
		// Yields only survive inside generator bodies, which lower
		// through the state machine and never reach here.
		return "()"
	}
	return "()"
}

// exprOwned renders an expression where an owned value of type want is
// required, inserting the clone/to_string conversions borrows need.
func (em *Emitter) exprOwned(e hir.Expr, want types.PyType) string {
	switch n := e.(type) {
	case *hir.Literal:
		if n.Kind == hir.LitString && deref(want).Kind != types.KindUnknown {
			return em.literal(n) + ".to_string()"
		}
		if n.Kind == hir.LitString && deref(e.GetType()).Kind == types.KindString {
			return em.literal(n) + ".to_string()"
		}
		return em.literal(n)
	case *hir.Var:
		base := em.varRef(n)
		t := deref(n.GetType())
		if em.fc != nil && em.fc.isParamBorrowed(n.Name) && isHeapType(t) {
			if t.Kind == types.KindString {
				return base + ".to_string()"
			}
			return base + ".clone()"
		}
		return base
	case *hir.IfExpr:
		return fmt.Sprintf("if %s { %s } else { %s }",
			em.cond(n.Cond), em.exprOwned(n.Then, want), em.exprOwned(n.Else, want))
	case *hir.Index:
		s := em.index(n)
		elem := deref(n.GetType())
		if isHeapType(elem) {
			return s + ".clone()"
		}
		return s
	case *hir.Attr:
		s := em.attr(n)
		t := deref(n.GetType())
		if isHeapType(t) && !isEnumPath(em.fx.EnumVariants, n) {
			return s + ".clone()"
		}
		return s
	}
	return em.expr(e)
}

func isEnumPath(variants map[string][]string, a *hir.Attr) bool {
	v, ok := a.Value.(*hir.Var)
	if !ok {
		return false
	}
	_, isEnum := variants[v.Name]
	return isEnum
}

// cond renders an expression in boolean position, applying Python
// truthiness for non-bool operands.
func (em *Emitter) cond(e hir.Expr) string {
	switch n := e.(type) {
	case *hir.Binary:
		switch n.Op {
		case "and":
			return fmt.Sprintf("%s && %s", em.cond(n.Left), em.cond(n.Right))
		case "or":
			return fmt.Sprintf("%s || %s", em.cond(n.Left), em.cond(n.Right))
		case "is":
			if isNoneLit(n.Right) {
				return em.noneTest(n.Left, false)
			}
		case "is not":
			if isNoneLit(n.Right) {
				return em.noneTest(n.Left, true)
			}
		case "==":
			if isNoneLit(n.Right) {
				return em.noneTest(n.Left, false)
			}
		case "!=":
			if isNoneLit(n.Right) {
				return em.noneTest(n.Left, true)
			}
		}
		return em.binary(n)
	case *hir.Unary:
		if n.Op == "not" {
			inner := em.cond(n.Operand)
			if strings.ContainsAny(inner, " |&") {
				return "!(" + inner + ")"
			}
			return "!" + inner
		}
	case *hir.Literal:
		switch n.Kind {
		case hir.LitBool:
			return em.literal(n)
		case hir.LitInt:
			if n.Int == 0 {
				return "false"
			}
			return "true"
		case hir.LitString:
			if n.Str == "" {
				return "false"
			}
			return "true"
		}
	case *hir.Walrus:
		name := em.walrus(n)
		return em.truthy(name, deref(n.Value.GetType()))
	}
	return em.truthy(em.expr(e), deref(e.GetType()))
}

// truthy converts a rendered value of a known type to a bool test.
func (em *Emitter) truthy(s string, t types.PyType) string {
	switch t.Kind {
	case types.KindBool:
		return s
	case types.KindInt:
		return s + " != 0"
	case types.KindFloat:
		return s + " != 0.0"
	case types.KindString, types.KindList, types.KindDict, types.KindSet, types.KindFrozenSet:
		return "!" + s + ".is_empty()"
	case types.KindOptional:
		return s + ".is_some()"
	}
	return s
}

func isNoneLit(e hir.Expr) bool {
	lit, ok := e.(*hir.Literal)
	return ok && lit.IsNone()
}

// noneTest renders an is-None comparison. Option operands get a plain
// is_none/is_some call. Anything else can never hold None in Rust, so the
// rendered call is recorded for the vacuity fixup to rewrite into an
// emptiness check (containers) or a constant (primitives), with a warning.
func (em *Emitter) noneTest(left hir.Expr, some bool) string {
	base := em.optionBase(left)
	call := base + ".is_none()"
	if some {
		call = base + ".is_some()"
	}
	t := left.GetType()
	switch t.Kind {
	case types.KindOptional, types.KindUnknown, types.KindNone:
		return call
	}
	var repl string
	switch t.Kind {
	case types.KindString, types.KindBytes, types.KindList, types.KindDict,
		types.KindSet, types.KindFrozenSet:
		if some {
			repl = "!" + base + ".is_empty()"
		} else {
			repl = base + ".is_empty()"
		}
	default:
		if some {
			repl = "true"
		} else {
			repl = "false"
		}
	}
	em.fx.Vacuity[call] = repl
	em.diags.Addf(diagnostic.LevelWarning, diagnostic.KindAmbiguity, left.GetSpan(),
		"None comparison on non-Option %s value rewritten to a vacuity check", t.Kind)
	return call
}

// optionBase renders the Option operand of an is-None test without the
// usual unwrap insertion.
func (em *Emitter) optionBase(e hir.Expr) string {
	if v, ok := e.(*hir.Var); ok {
		return sanitizeIdent(v.Name)
	}
	return em.expr(e)
}

// --- leaves ---

func (em *Emitter) literal(n *hir.Literal) string {
	switch n.Kind {
	case hir.LitInt:
		return strconv.FormatInt(n.Int, 10)
	case hir.LitFloat:
		s := strconv.FormatFloat(n.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case hir.LitString:
		return strconv.Quote(n.Str)
	case hir.LitBytes:
		return "b" + strconv.Quote(string(n.Bytes))
	case hir.LitBool:
		if n.Bool {
			return "true"
		}
		return "false"
	case hir.LitNone:
		return "None"
	}
	return "()"
}

// varRef renders a name, dereferencing borrowed Copy parameters so they
// behave like values at use sites.
func (em *Emitter) varRef(n *hir.Var) string {
	id := sanitizeIdent(n.Name)
	if n.Name == "self" {
		return "self"
	}
	if em.fc != nil && em.fc.strategyOf(n.Name) == borrow.MutableBorrow {
		if pt, ok := em.fc.paramType(n.Name); ok && pt.IsNumeric() {
			return "*" + id
		}
	}
	return id
}

func (em *Emitter) unary(n *hir.Unary) string {
	switch n.Op {
	case "not":
		return em.cond(&hir.Unary{Op: "not", Operand: n.Operand})
	case "-":
		return "-" + em.maybeParen(n.Operand)
	case "~":
		return "!" + em.maybeParen(n.Operand)
	case "+":
		return em.expr(n.Operand)
	}
	return em.expr(n.Operand)
}

func (em *Emitter) maybeParen(e hir.Expr) string {
	s := em.expr(e)
	if _, ok := e.(*hir.Binary); ok {
		return "(" + s + ")"
	}
	return s
}

// --- binary operators ---

func (em *Emitter) binary(n *hir.Binary) string {
	lt := deref(n.Left.GetType())
	rt := deref(n.Right.GetType())
	switch n.Op {
	case "and":
		return fmt.Sprintf("%s && %s", em.cond(n.Left), em.cond(n.Right))
	case "or":
		return fmt.Sprintf("%s || %s", em.cond(n.Left), em.cond(n.Right))
	case "in", "not in":
		s := em.membership(n.Left, n.Right, rt)
		if n.Op == "not in" {
			return "!" + s
		}
		return s
	case "is":
		if isNoneLit(n.Right) {
			return em.noneTest(n.Left, false)
		}
		return fmt.Sprintf("%s == %s", em.expr(n.Left), em.expr(n.Right))
	case "is not":
		if isNoneLit(n.Right) {
			return em.noneTest(n.Left, true)
		}
		return fmt.Sprintf("%s != %s", em.expr(n.Left), em.expr(n.Right))
	case "https://fd-gally.netlify.app/hf/":
		l, r := em.maybeParen(n.Left), em.maybeParen(n.Right)
		if lt.Kind == types.KindInt {
			l = l + " as f64"
		}
		if rt.Kind == types.KindInt {
			r = r + " as f64"
		}
		return fmt.Sprintf("%s / %s", l, r)
	case "//":
		if lt.Kind == types.KindFloat || rt.Kind == types.KindFloat {
			return fmt.Sprintf("(%s / %s).floor()", em.maybeParen(n.Left), em.maybeParen(n.Right))
		}
		return fmt.Sprintf("%s.div_euclid(%s)", em.maybeParen(n.Left), em.expr(n.Right))
	case "%":
		if lt.Kind == types.KindString {
			return em.percentFormat(n)
		}
		if lt.Kind == types.KindInt && rt.Kind == types.KindInt {
			return fmt.Sprintf("%s.rem_euclid(%s)", em.maybeParen(n.Left), em.expr(n.Right))
		}
		return fmt.Sprintf("%s %% %s", em.maybeParen(n.Left), em.maybeParen(n.Right))
	case "**":
		return em.powExpr(em.maybeParen(n.Left), n.Right, lt)
	case "+":
		if lt.Kind == types.KindString || rt.Kind == types.KindString {
			return fmt.Sprintf("format!(\"{}{}\", %s, %s)", em.expr(n.Left), em.expr(n.Right))
		}
		if lt.Kind == types.KindList {
			return fmt.Sprintf("%s.iter().cloned().chain(%s.iter().cloned()).collect::<Vec<_>>()",
				em.expr(n.Left), em.expr(n.Right))
		}
	case "*":
		if lt.Kind == types.KindString || lt.Kind == types.KindList {
			return fmt.Sprintf("%s.repeat(%s as usize)", em.expr(n.Left), em.maybeParen(n.Right))
		}
		if rt.Kind == types.KindString || rt.Kind == types.KindList {
			return fmt.Sprintf("%s.repeat(%s as usize)", em.expr(n.Right), em.maybeParen(n.Left))
		}
	case "|":
		if lt.Kind == types.KindSet || lt.Kind == types.KindFrozenSet {
			return fmt.Sprintf("%s.union(&%s).cloned().collect()", em.expr(n.Left), em.expr(n.Right))
		}
	case "&":
		if lt.Kind == types.KindSet || lt.Kind == types.KindFrozenSet {
			return fmt.Sprintf("%s.intersection(&%s).cloned().collect()", em.expr(n.Left), em.expr(n.Right))
		}
	case "-":
		if lt.Kind == types.KindSet || lt.Kind == types.KindFrozenSet {
			return fmt.Sprintf("%s.difference(&%s).cloned().collect()", em.expr(n.Left), em.expr(n.Right))
		}
	}
	return fmt.Sprintf("%s %s %s", em.maybeParen(n.Left), n.Op, em.maybeParen(n.Right))
}

// membership renders `x in container` on the container's lookup method.
func (em *Emitter) membership(item, container hir.Expr, ct types.PyType) string {
	c := em.expr(container)
	switch ct.Kind {
	case types.KindDict:
		return fmt.Sprintf("%s.contains_key(%s)", c, em.keyArg(item, keyTypeOf(ct)))
	case types.KindString:
		return fmt.Sprintf("%s.contains(%s)", c, em.expr(item))
	case types.KindSet, types.KindFrozenSet, types.KindList:
		return fmt.Sprintf("%s.contains(&%s)", c, em.expr(item))
	}
	return fmt.Sprintf("%s.contains(&%s)", c, em.expr(item))
}

// keyArg renders a map-key argument: string keys take the literal or a
// &str directly, owned keys take a reference.
func (em *Emitter) keyArg(e hir.Expr, keyType types.PyType) string {
	if keyType.Kind == types.KindString {
		if lit, ok := e.(*hir.Literal); ok && lit.Kind == hir.LitString {
			return em.literal(lit)
		}
		if v, ok := e.(*hir.Var); ok && em.fc.isParamBorrowed(v.Name) {
			return sanitizeIdent(v.Name)
		}
	}
	return "&" + em.maybeParen(e)
}

// powExpr renders exponentiation; the sqrt special case is normalized by
// a fixup pass so powf(0.5) stays recognizable here.
func (em *Emitter) powExpr(base string, exp hir.Expr, baseType types.PyType) string {
	if lit, ok := exp.(*hir.Literal); ok {
		switch lit.Kind {
		case hir.LitInt:
			if baseType.Kind == types.KindFloat {
				return fmt.Sprintf("%s.powi(%d)", base, lit.Int)
			}
			if lit.Int >= 0 {
				return fmt.Sprintf("%s.pow(%d)", base, lit.Int)
			}
			return fmt.Sprintf("(%s as f64).powi(%d)", base, lit.Int)
		case hir.LitFloat:
			if baseType.Kind == types.KindInt {
				return fmt.Sprintf("(%s as f64).powf(%s)", base, em.literal(lit))
			}
			return fmt.Sprintf("%s.powf(%s)", base, em.literal(lit))
		}
	}
	if baseType.Kind == types.KindInt {
		return fmt.Sprintf("%s.pow(%s as u32)", base, em.expr(exp))
	}
	return fmt.Sprintf("%s.powf(%s)", base, em.expr(exp))
}

// percentFormat lowers old-style % formatting with a tuple or single
// value to format!.
func (em *Emitter) percentFormat(n *hir.Binary) string {
	lit, ok := n.Left.(*hir.Literal)
	if !ok {
		return fmt.Sprintf("%s /* unsupported %% format */", em.expr(n.Left))
	}
	tmpl := lit.Str
	tmpl = strings.ReplaceAll(tmpl, "%s", "{}")
	tmpl = strings.ReplaceAll(tmpl, "%d", "{}")
	tmpl = strings.ReplaceAll(tmpl, "%f", "{}")
	var args []string
	if tup, ok := n.Right.(*hir.TupleLit); ok {
		for _, a := range tup.Elems {
			args = append(args, em.expr(a))
		}
	} else {
		args = append(args, em.expr(n.Right))
	}
	return fmt.Sprintf("format!(%s, %s)", strconv.Quote(tmpl), strings.Join(args, ", "))
}

// --- attribute, index, slice ---

// attr renders attribute access; enum member access becomes a path.
func (em *Emitter) attr(n *hir.Attr) string {
	if v, ok := n.Value.(*hir.Var); ok {
		if s, ok := moduleAttr(v.Name, n.Name); ok {
			return s
		}
		if em.argparse != nil && v.Name == em.argparse.argsVar {
			if local, bound := em.argsLocals[n.Name]; bound {
				return local
			}
		}
		if members, isEnum := em.fx.EnumVariants[v.Name]; isEnum {
			for _, m := range members {
				if m == n.Name {
					return v.Name + "::" + variantName(n.Name)
				}
			}
		}
	}
	return em.expr(n.Value) + "." + sanitizeIdent(n.Name)
}

// moduleAttr rewrites data attributes of recognized stdlib modules.
func moduleAttr(mod, name string) (string, bool) {
	switch mod + "." + name {
	case "sys.argv":
		return "std::env::args().collect::<Vec<String>>()", true
	case "sys.platform":
		return "std::env::consts::OS.to_string()", true
	case "math.pi":
		return "std::f64::consts::PI", true
	case "math.tau":
		return "std::f64::consts::TAU", true
	case "math.e":
		return "std::f64::consts::E", true
	case "math.inf":
		return "f64::INFINITY", true
	case "math.nan":
		return "f64::NAN", true
	}
	return "", false
}

// variantName maps SCREAMING enum members onto Rust's CamelCase variant
// convention; already-camel names pass through.
func variantName(name string) string {
	if name == strings.ToUpper(name) {
		parts := strings.Split(strings.ToLower(name), "_")
		for i, p := range parts {
			if p != "" {
				parts[i] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
		return strings.Join(parts, "")
	}
	return name
}

func (em *Emitter) index(n *hir.Index) string {
	base := deref(n.Value.GetType())
	obj := em.expr(n.Value)
	switch base.Kind {
	case types.KindDict:
		return fmt.Sprintf("%s[%s]", obj, em.keyArg(n.Idx, keyTypeOf(base)))
	case types.KindString:
		return fmt.Sprintf("%s.chars().nth(%s).unwrap()", obj, em.usize(n.Idx, obj))
	case types.KindTuple:
		if lit, ok := n.Idx.(*hir.Literal); ok && lit.Kind == hir.LitInt {
			return fmt.Sprintf("%s.%d", obj, lit.Int)
		}
	}
	return fmt.Sprintf("%s[%s]", obj, em.indexExpr(n.Value, n.Idx))
}

// indexExpr renders a subscript as usize, folding negative literals into
// len()-relative offsets.
func (em *Emitter) indexExpr(obj hir.Expr, idx hir.Expr) string {
	o := em.expr(obj)
	return em.usize(idx, o)
}

func (em *Emitter) usize(idx hir.Expr, obj string) string {
	if lit, ok := idx.(*hir.Literal); ok && lit.Kind == hir.LitInt {
		if lit.Int < 0 {
			return fmt.Sprintf("%s.len() - %d", obj, -lit.Int)
		}
		return strconv.FormatInt(lit.Int, 10)
	}
	t := deref(idx.GetType())
	s := em.expr(idx)
	if t.Kind == types.KindInt {
		return s + " as usize"
	}
	return s
}

func (em *Emitter) slice(n *hir.Slice) string {
	base := deref(n.Value.GetType())
	obj := em.expr(n.Value)

	// [::-1] reverses.
	if n.Lower == nil && n.Upper == nil {
		if lit, ok := n.Step.(*hir.Literal); ok && lit.Kind == hir.LitInt && lit.Int == -1 {
			if base.Kind == types.KindString {
				return fmt.Sprintf("%s.chars().rev().collect::<String>()", obj)
			}
			return fmt.Sprintf("%s.iter().rev().cloned().collect::<Vec<_>>()", obj)
		}
	}

	lo := "0"
	if n.Lower != nil {
		lo = em.usize(n.Lower, obj)
	}
	hi := obj + ".len()"
	if n.Upper != nil {
		hi = em.usize(n.Upper, obj)
	}
	switch base.Kind {
	case types.KindString:
		return fmt.Sprintf("%s[%s..%s].to_string()", obj, lo, hi)
	default:
		return fmt.Sprintf("%s[%s..%s].to_vec()", obj, lo, hi)
	}
}

// --- walrus, lambda, collections ---

// walrus hoists the binding as a let just before the line being built;
// argument strings are composed before their enclosing line is written,
// so the hoisted let lands first.
func (em *Emitter) walrus(n *hir.Walrus) string {
	id := sanitizeIdent(n.Name)
	if !em.fc.declared[n.Name] {
		em.fc.declared[n.Name] = true
		if em.fc.mutLocals[n.Name] {
			em.linef("let mut %s = %s;", id, em.exprOwned(n.Value, n.Value.GetType()))
		} else {
			em.linef("let %s = %s;", id, em.exprOwned(n.Value, n.Value.GetType()))
		}
	} else {
		em.linef("%s = %s;", id, em.exprOwned(n.Value, n.Value.GetType()))
	}
	return id
}

func (em *Emitter) lambda(n *hir.Lambda) string {
	var params []string
	for _, p := range n.Params {
		params = append(params, sanitizeIdent(p.Name))
	}
	return fmt.Sprintf("|%s| %s", strings.Join(params, ", "), em.expr(n.Body))
}

func (em *Emitter) listLit(n *hir.ListLit) string {
	elemType := deref(n.GetType()).ElemType()
	if elemType.Kind == types.KindUnknown && len(n.Elems) > 0 {
		// Heterogeneous literal: no single element type survived
		// inference. Last resort is the PyValue sum.
		if parts, ok := em.pyValueElems(n.Elems); ok {
			em.needs.PyValue = true
			return "vec![" + strings.Join(parts, ", ") + "]"
		}
	}
	parts := make([]string, len(n.Elems))
	for i, e := range n.Elems {
		parts[i] = em.exprOwned(e, elemType)
	}
	if len(parts) == 0 {
		rt, _ := types.MapType(n.GetType())
		if rt.Kind == types.RustVec {
			return rt.Render() + "::new()"
		}
		return "Vec::new()"
	}
	return "vec![" + strings.Join(parts, ", ") + "]"
}

// pyValueElems wraps every element in the PyValue sum. It refuses when
// an element's own type is unknown too; plain emission then leaves the
// gap for the target compiler to flag.
func (em *Emitter) pyValueElems(elems []hir.Expr) ([]string, bool) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, ok := em.pyValueWrap(e)
		if !ok {
			return nil, false
		}
		parts[i] = s
	}
	return parts, true
}

func (em *Emitter) pyValueWrap(e hir.Expr) (string, bool) {
	switch deref(e.GetType()).Kind {
	case types.KindNone:
		return "PyValue::None", true
	case types.KindBool:
		return "PyValue::Bool(" + em.expr(e) + ")", true
	case types.KindInt:
		return "PyValue::Int(" + em.expr(e) + ")", true
	case types.KindFloat:
		return "PyValue::Float(" + em.expr(e) + ")", true
	case types.KindString:
		return "PyValue::Str(" + em.exprOwned(e, types.Str()) + ")", true
	}
	return "", false
}

func (em *Emitter) setLit(n *hir.SetLit) string {
	parts := make([]string, len(n.Elems))
	for i, e := range n.Elems {
		parts[i] = em.exprOwned(e, deref(n.GetType()).ElemType())
	}
	if len(parts) == 0 {
		return "HashSet::new()"
	}
	return fmt.Sprintf("HashSet::from([%s])", strings.Join(parts, ", "))
}

func (em *Emitter) tupleLit(n *hir.TupleLit) string {
	parts := make([]string, len(n.Elems))
	for i, e := range n.Elems {
		parts[i] = em.exprOwned(e, e.GetType())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (em *Emitter) dictLit(n *hir.DictLit) string {
	if len(n.Keys) == 0 {
		return "HashMap::new()"
	}
	t := deref(n.GetType())
	valType := types.Unknown()
	if t.Kind == types.KindDict && t.Elem != nil {
		valType = *t.Elem
	}
	parts := make([]string, len(n.Keys))
	for i := range n.Keys {
		parts[i] = fmt.Sprintf("(%s, %s)", em.exprOwned(n.Keys[i], keyTypeOf(t)), em.exprOwned(n.Values[i], valType))
	}
	return fmt.Sprintf("HashMap::from([%s])", strings.Join(parts, ", "))
}

// --- comprehensions ---

// comprehension lowers to an iterator pipeline; nested clauses become
// flat_map chains.
func (em *Emitter) comprehension(n *hir.Comp) string {
	pipeline := em.compPipeline(n.Clauses)
	switch n.Kind {
	case hir.CompDict:
		return fmt.Sprintf("%s.map(%s (%s, %s)).collect::<HashMap<_, _>>()",
			pipeline, em.compClosure(n.Clauses), em.exprOwned(n.Key, types.Unknown()), em.exprOwned(n.Value, types.Unknown()))
	case hir.CompSet:
		return fmt.Sprintf("%s.map(%s %s).collect::<HashSet<_>>()",
			pipeline, em.compClosure(n.Clauses), em.exprOwned(n.Elt, types.Unknown()))
	default:
		return fmt.Sprintf("%s.map(%s %s).collect::<Vec<_>>()",
			pipeline, em.compClosure(n.Clauses), em.exprOwned(n.Elt, types.Unknown()))
	}
}

// compPipeline renders the iterator source with filters applied; only
// single-clause pipelines support filters, nested clauses flat_map.
func (em *Emitter) compPipeline(clauses []hir.CompClause) string {
	first := clauses[0]
	src := em.compSource(first.Iter)
	closure := "|" + em.clausePattern(first.Target) + "|"
	for _, cond := range first.Conds {
		src = fmt.Sprintf("%s.filter(%s %s)", src, closure, em.condDeref(cond, first.Target))
	}
	for _, cl := range clauses[1:] {
		inner := em.compSource(cl.Iter)
		innerClosure := "|" + em.clausePattern(cl.Target) + "|"
		for _, cond := range cl.Conds {
			inner = fmt.Sprintf("%s.filter(%s %s)", inner, innerClosure, em.condDeref(cond, cl.Target))
		}
		src = fmt.Sprintf("%s.flat_map(%s %s)", src, closure, inner)
		closure = innerClosure
	}
	return src
}

func (em *Emitter) compClosure(clauses []hir.CompClause) string {
	last := clauses[len(clauses)-1]
	return "|" + em.clausePattern(last.Target) + "|"
}

func (em *Emitter) clausePattern(t hir.Target) string {
	switch t.Kind {
	case hir.TargetName:
		return sanitizeIdent(t.Name)
	case hir.TargetTuple:
		parts := make([]string, len(t.Elts))
		for i, e := range t.Elts {
			parts[i] = em.clausePattern(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "_"
}

// condDeref renders a filter predicate; closure arguments are references
// so comparison operands borrow cleanly without extra sigils.
func (em *Emitter) condDeref(cond hir.Expr, target hir.Target) string {
	_ = target
	return em.cond(cond)
}

// compSource renders the clause iterable as an iterator expression.
func (em *Emitter) compSource(iter hir.Expr) string {
	if c, ok := iter.(*hir.Call); ok && c.Func == "range" {
		return "(" + em.rangeExpr(c) + ")"
	}
	t := deref(iter.GetType())
	switch t.Kind {
	case types.KindList, types.KindSet, types.KindFrozenSet:
		return em.expr(iter) + ".iter().cloned()"
	case types.KindDict:
		return em.expr(iter) + ".keys().cloned()"
	case types.KindString:
		return em.expr(iter) + ".chars()"
	}
	if producesOwnedIterable(iter) {
		return em.expr(iter) + ".into_iter()"
	}
	return em.expr(iter) + ".iter().cloned()"
}

// --- f-strings ---

// fstringFormat lowers an f-string to format!, translating Python
// format specs ({:03d}, {:.2f}) to their Rust spellings.
func (em *Emitter) fstringFormat(n *hir.FString) string {
	var tmpl strings.Builder
	var args []string
	for _, p := range n.Parts {
		if p.Expr == nil {
			tmpl.WriteString(escapeBraces(p.Text))
			continue
		}
		spec := translateFormatSpec(p.Spec)
		if spec != "" {
			tmpl.WriteString("{:" + spec + "}")
		} else {
			tmpl.WriteString("{}")
		}
		args = append(args, em.expr(p.Expr))
	}
	if len(args) == 0 {
		return fmt.Sprintf("format!(%s)", strconv.Quote(tmpl.String()))
	}
	return fmt.Sprintf("format!(%s, %s)", strconv.Quote(tmpl.String()), strings.Join(args, ", "))
}

func escapeBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}

// translateFormatSpec maps Python mini-language specs onto Rust format
// specs: the d/f type suffixes drop or convert, fills and widths carry.
func translateFormatSpec(spec string) string {
	if spec == "" {
		return ""
	}
	// ".2f" -> ".2"; "03d" -> "03"; "x"/"b"/"o" carry as-is.
	if strings.HasSuffix(spec, "f") {
		return strings.TrimSuffix(spec, "f")
	}
	if strings.HasSuffix(spec, "d") {
		return strings.TrimSuffix(spec, "d")
	}
	return spec
}
