package codegen

import (
	"fmt"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// emitBody renders a function body, synthesizing the Ok(()) fall-through
// for fallible unit functions whose control flow can reach the end.
func (em *Emitter) emitBody(fn *hir.Function) {
	em.emitBlock(fn.Body)
	if fn.CanFail && !blockTerminates(fn.Body) {
		rt, _ := types.MapReturnType(fn.RetType)
		if rt.IsUnit() {
			em.line("Ok(())")
		}
	}
}

func (em *Emitter) emitBlock(stmts []hir.Stmt) {
	for _, s := range stmts {
		em.emitStmt(s)
	}
}

func (em *Emitter) emitStmt(s hir.Stmt) {
	if em.argparse != nil && em.argparseStmt(s) {
		return
	}
	switch n := s.(type) {
	case *hir.Assign:
		em.emitAssign(n)
	case *hir.AnnAssign:
		em.emitAnnAssign(n)
	case *hir.AugAssign:
		em.emitAugAssign(n)
	case *hir.Return:
		em.emitReturn(n)
	case *hir.If:
		em.linef("if %s {", em.cond(n.Cond))
		em.indent++
		em.emitBlock(n.Then)
		em.indent--
		if len(n.Else) > 0 {
			if elif, ok := soleIf(n.Else); ok {
				em.linef("} else if %s {", em.cond(elif.Cond))
				em.indent++
				em.emitBlock(elif.Then)
				em.indent--
				em.emitElseChain(elif.Else)
				return
			}
			em.line("} else {")
			em.indent++
			em.emitBlock(n.Else)
			em.indent--
		}
		em.line("}")
	case *hir.While:
		if isTrueLiteral(n.Cond) {
			em.line("loop {")
		} else {
			em.linef("while %s {", em.cond(n.Cond))
		}
		em.indent++
		em.emitBlock(n.Body)
		em.indent--
		em.line("}")
	case *hir.For:
		em.emitFor(n)
	case *hir.Break:
		em.line("break;")
	case *hir.Continue:
		em.line("continue;")
	case *hir.Pass:
		// nothing
	case *hir.Try:
		em.emitTry(n)
	case *hir.With:
		em.emitWith(n)
	case *hir.Raise:
		em.emitRaise(n)
	case *hir.Assert:
		if n.Msg != nil {
			em.linef("assert!(%s, \"{}\", %s);", em.cond(n.Test), em.expr(n.Msg))
		} else {
			em.linef("assert!(%s);", em.cond(n.Test))
		}
	case *hir.ExprStmt:
		em.emitExprStmt(n)
	case *hir.NestedFunc:
		em.emitNestedFunc(n)
	}
}

// emitElseChain continues an elif cascade started by emitStmt.
func (em *Emitter) emitElseChain(stmts []hir.Stmt) {
	if len(stmts) == 0 {
		em.line("}")
		return
	}
	if elif, ok := soleIf(stmts); ok {
		em.linef("} else if %s {", em.cond(elif.Cond))
		em.indent++
		em.emitBlock(elif.Then)
		em.indent--
		em.emitElseChain(elif.Else)
		return
	}
	em.line("} else {")
	em.indent++
	em.emitBlock(stmts)
	em.indent--
	em.line("}")
}

func soleIf(stmts []hir.Stmt) (*hir.If, bool) {
	if len(stmts) == 1 {
		if n, ok := stmts[0].(*hir.If); ok {
			return n, true
		}
	}
	return nil, false
}

func isTrueLiteral(e hir.Expr) bool {
	lit, ok := e.(*hir.Literal)
	return ok && lit.Kind == hir.LitBool && lit.Bool
}

// --- assignment ---

func (em *Emitter) emitAssign(n *hir.Assign) {
	switch n.Target.Kind {
	case hir.TargetName:
		em.emitNameStore(n.Target.Name, n.Value, n.Value.GetType())
	case hir.TargetTuple:
		pat := em.tuplePattern(n.Target)
		em.linef("let %s = %s;", pat, em.exprOwned(n.Value, n.Value.GetType()))
		for _, name := range n.Target.Names() {
			em.fc.declared[name] = true
		}
	case hir.TargetIndex:
		em.emitIndexStore(n.Target, n.Value)
	case hir.TargetAttr:
		em.linef("%s.%s = %s;", em.expr(n.Target.Obj), sanitizeIdent(n.Target.Attr), em.exprOwned(n.Value, n.Value.GetType()))
	}
}

func (em *Emitter) emitAnnAssign(n *hir.AnnAssign) {
	if n.Target.Kind != hir.TargetName {
		if n.Value != nil {
			em.emitAssign(&hir.Assign{Span: n.Span, Target: n.Target, Value: n.Value})
		}
		return
	}
	name := sanitizeIdent(n.Target.Name)
	rt, _ := types.MapType(n.Type)
	mut := ""
	if em.fc.mutLocals[n.Target.Name] {
		mut = "mut "
	}
	if n.Value == nil {
		em.linef("let %s%s: %s;", mut, name, rt.Render())
	} else {
		em.linef("let %s%s: %s = %s;", mut, name, rt.Render(), em.exprOwned(n.Value, n.Type))
	}
	em.fc.declared[n.Target.Name] = true
}

// emitNameStore emits a let binding on first sight and a plain store on
// every later one.
func (em *Emitter) emitNameStore(name string, value hir.Expr, ty types.PyType) {
	rhs := em.exprOwned(value, ty)
	id := sanitizeIdent(name)
	if em.fc.declared[name] || name == "_" {
		em.linef("%s = %s;", id, rhs)
		return
	}
	em.fc.declared[name] = true
	if em.fc.mutLocals[name] {
		em.linef("let mut %s = %s;", id, rhs)
	} else {
		em.linef("let %s = %s;", id, rhs)
	}
}

func (em *Emitter) tuplePattern(t hir.Target) string {
	parts := make([]string, len(t.Elts))
	for i, e := range t.Elts {
		switch e.Kind {
		case hir.TargetName:
			if em.fc.mutLocals[e.Name] {
				parts[i] = "mut " + sanitizeIdent(e.Name)
			} else {
				parts[i] = sanitizeIdent(e.Name)
			}
		case hir.TargetTuple:
			parts[i] = em.tuplePattern(e)
		default:
			parts[i] = "_"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// emitIndexStore distinguishes map insertion from vector element stores.
func (em *Emitter) emitIndexStore(t hir.Target, value hir.Expr) {
	obj := em.expr(t.Obj)
	objType := deref(t.Obj.GetType())
	rhs := em.exprOwned(value, value.GetType())
	switch objType.Kind {
	case types.KindDict:
		em.linef("%s.insert(%s, %s);", obj, em.exprOwned(t.Index, objType.ElemType()), rhs)
	default:
		em.linef("%s[%s] = %s;", obj, em.indexExpr(t.Obj, t.Index), rhs)
	}
}

func (em *Emitter) emitAugAssign(n *hir.AugAssign) {
	targetType := deref(targetValueType(n.Target))
	// `lst += [x]` keeps push intent.
	if n.Op == "+" && targetType.Kind == types.KindList {
		if ll, ok := n.Value.(*hir.ListLit); ok {
			tgt := em.targetLoad(n.Target)
			if len(ll.Elems) == 1 {
				em.linef("%s.push(%s);", tgt, em.exprOwned(ll.Elems[0], targetType.ElemType()))
				return
			}
			em.linef("%s.extend(%s);", tgt, em.exprOwned(n.Value, targetType))
			return
		}
		em.linef("%s.extend(%s);", em.targetLoad(n.Target), em.expr(n.Value))
		return
	}
	if n.Op == "+" && targetType.Kind == types.KindString {
		em.linef("%s.push_str(&%s);", em.targetLoad(n.Target), em.exprOwned(n.Value, types.Str()))
		return
	}
	// Counter update through a map entry.
	if n.Target.Kind == hir.TargetIndex {
		base := deref(n.Target.Obj.GetType())
		if base.Kind == types.KindDict {
			em.linef("*%s.entry(%s).or_insert_with(Default::default) %s= %s;",
				em.expr(n.Target.Obj), em.exprOwned(n.Target.Index, keyTypeOf(base)), n.Op, em.expr(n.Value))
			return
		}
	}
	op := n.Op
	if op == "//" {
		em.linef("%s = %s / %s;", em.targetLoad(n.Target), em.targetLoad(n.Target), em.expr(n.Value))
		return
	}
	if op == "**" {
		em.linef("%s = %s;", em.targetLoad(n.Target), em.powExpr(em.targetLoad(n.Target), n.Value, targetType))
		return
	}
	em.linef("%s %s= %s;", em.targetLoad(n.Target), op, em.expr(n.Value))
}

func targetValueType(t hir.Target) types.PyType {
	switch t.Kind {
	case hir.TargetIndex:
		return deref(t.Obj.GetType()).ElemType()
	case hir.TargetAttr:
		return types.Unknown()
	}
	return types.Unknown()
}

func keyTypeOf(t types.PyType) types.PyType {
	if t.Kind == types.KindDict && t.Key != nil {
		return *t.Key
	}
	return types.Unknown()
}

// targetLoad renders a target in load position for compound updates.
func (em *Emitter) targetLoad(t hir.Target) string {
	switch t.Kind {
	case hir.TargetName:
		id := sanitizeIdent(t.Name)
		if em.fc.isParamBorrowed(t.Name) && em.fc.strategyOf(t.Name) == borrow.MutableBorrow {
			if pt, ok := em.fc.paramType(t.Name); ok && pt.IsNumeric() {
				return "*" + id
			}
		}
		return id
	case hir.TargetIndex:
		return fmt.Sprintf("%s[%s]", em.expr(t.Obj), em.indexExpr(t.Obj, t.Index))
	case hir.TargetAttr:
		return em.expr(t.Obj) + "." + sanitizeIdent(t.Attr)
	}
	return "_"
}

// --- return ---

func (em *Emitter) emitReturn(n *hir.Return) {
	fn := em.fc.fn
	if n.Value == nil {
		if fn.CanFail {
			em.line("return Ok(());")
		} else {
			em.line("return;")
		}
		return
	}
	val := em.returnValue(n.Value)
	if fn.CanFail {
		em.linef("return Ok(%s);", val)
		return
	}
	em.linef("return %s;", val)
}

// returnValue applies the ownership decision to a returned expression:
// Cow wrapping, borrowed pass-through, or owned conversion.
func (em *Emitter) returnValue(e hir.Expr) string {
	ff := em.fc.facts
	if ff != nil && ff.ReturnCow {
		if v, ok := e.(*hir.Var); ok && em.fc.strategyOf(v.Name) == borrow.UseCow {
			return fmt.Sprintf("Cow::Borrowed(%s)", sanitizeIdent(v.Name))
		}
		return fmt.Sprintf("Cow::Owned(%s)", em.exprOwned(e, em.fc.fn.RetType))
	}
	if ff != nil && ff.ReturnBorrowed && !ff.ReturnOwnedForced {
		return em.expr(e)
	}
	return em.exprOwned(e, em.fc.fn.RetType)
}

// --- for loops ---

// emitFor dispatches on the iterable shape so the common Python idioms
// land on their natural Rust form instead of a generic IntoIterator.
func (em *Emitter) emitFor(n *hir.For) {
	pat := em.loopPattern(n.Target)
	header := em.forHeader(pat, n.Iter)
	em.line(header + " {")
	em.indent++
	em.emitBlock(n.Body)
	em.indent--
	em.line("}")
}

func (em *Emitter) loopPattern(t hir.Target) string {
	switch t.Kind {
	case hir.TargetName:
		if em.fc.mutLocals[t.Name] {
			return "mut " + sanitizeIdent(t.Name)
		}
		return sanitizeIdent(t.Name)
	case hir.TargetTuple:
		parts := make([]string, len(t.Elts))
		for i, e := range t.Elts {
			parts[i] = em.loopPattern(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "_"
}

func (em *Emitter) forHeader(pat string, iter hir.Expr) string {
	switch it := iter.(type) {
	case *hir.Call:
		switch it.Func {
		case "range":
			return fmt.Sprintf("for %s in %s", pat, em.rangeExpr(it))
		case "enumerate":
			if len(it.Args) == 1 {
				return fmt.Sprintf("for %s in %s.iter().enumerate()", pat, em.expr(it.Args[0]))
			}
		case "zip":
			if len(it.Args) == 2 {
				return fmt.Sprintf("for %s in %s.iter().zip(%s.iter())", pat, em.expr(it.Args[0]), em.expr(it.Args[1]))
			}
		case "reversed":
			if len(it.Args) == 1 {
				return fmt.Sprintf("for %s in %s.iter().rev()", pat, em.expr(it.Args[0]))
			}
		case "sorted":
			if len(it.Args) == 1 {
				tmp := em.fc.freshTemp("sorted")
				em.linef("let mut %s: Vec<_> = %s.iter().cloned().collect();", tmp, em.expr(it.Args[0]))
				em.linef("%s.sort();", tmp)
				return fmt.Sprintf("for %s in %s", pat, tmp)
			}
		}
	case *hir.MethodCall:
		recvType := deref(it.Recv.GetType())
		if recvType.Kind == types.KindDict {
			switch it.Method {
			case "items":
				return fmt.Sprintf("for %s in &%s", pat, em.expr(it.Recv))
			case "keys":
				return fmt.Sprintf("for %s in %s.keys()", pat, em.expr(it.Recv))
			case "values":
				return fmt.Sprintf("for %s in %s.values()", pat, em.expr(it.Recv))
			}
		}
		if it.Method == "splitlines" || it.Method == "split" {
			return fmt.Sprintf("for %s in %s", pat, em.expr(iter))
		}
	case *hir.Var:
		t := deref(it.GetType())
		switch t.Kind {
		case types.KindDict:
			return fmt.Sprintf("for %s in %s.keys()", pat, em.expr(it))
		case types.KindString:
			return fmt.Sprintf("for %s in %s.chars()", pat, em.expr(it))
		case types.KindList, types.KindSet, types.KindFrozenSet:
			return fmt.Sprintf("for %s in &%s", pat, sanitizeIdent(it.Name))
		}
	}
	t := deref(iter.GetType())
	if producesOwnedIterable(iter) || t.Kind == types.KindCustom {
		return fmt.Sprintf("for %s in %s", pat, em.expr(iter))
	}
	return fmt.Sprintf("for %s in &%s", pat, em.expr(iter))
}

// producesOwnedIterable reports whether iterating the expression yields
// owned items (calls, comprehensions, literals) rather than borrows.
func producesOwnedIterable(e hir.Expr) bool {
	switch e.(type) {
	case *hir.Call, *hir.MethodCall, *hir.Comp, *hir.ListLit:
		return true
	}
	return false
}

// rangeExpr renders range(...) as a Rust range, with step_by and a
// reversed form for negative steps.
func (em *Emitter) rangeExpr(c *hir.Call) string {
	switch len(c.Args) {
	case 1:
		return fmt.Sprintf("0..%s", em.expr(c.Args[0]))
	case 2:
		return fmt.Sprintf("%s..%s", em.expr(c.Args[0]), em.expr(c.Args[1]))
	case 3:
		if lit, ok := c.Args[2].(*hir.Literal); ok && lit.Kind == hir.LitInt {
			if lit.Int > 0 {
				return fmt.Sprintf("(%s..%s).step_by(%d)", em.expr(c.Args[0]), em.expr(c.Args[1]), lit.Int)
			}
			return fmt.Sprintf("(%s..=%s).rev().step_by(%d)",
				em.expr(c.Args[1])+" + 1", em.expr(c.Args[0]), -lit.Int)
		}
		return fmt.Sprintf("(%s..%s).step_by(%s as usize)", em.expr(c.Args[0]), em.expr(c.Args[1]), em.expr(c.Args[2]))
	}
	return "0..0"
}

// --- try / with / raise ---

// emitTry lowers try/except to an immediately-invoked closure returning
// Result, matched against the handler chain. Finally runs after the
// match either way.
func (em *Emitter) emitTry(n *hir.Try) {
	errType := em.tryErrType(n)
	res := em.fc.freshTemp("res")
	em.linef("let %s: Result<(), %s> = (|| {", res, errType)
	em.indent++
	em.emitBlock(n.Body)
	em.line("Ok(())")
	em.indent--
	em.line("})();")

	em.linef("match %s {", res)
	em.indent++
	if len(n.Else) > 0 {
		em.line("Ok(()) => {")
		em.indent++
		em.emitBlock(n.Else)
		em.indent--
		em.line("}")
	} else {
		em.line("Ok(()) => {}")
	}
	for i, h := range n.Handlers {
		bind := "_"
		if h.Bind != "" {
			bind = sanitizeIdent(h.Bind)
			em.fc.declared[h.Bind] = true
		}
		// With a single error type the match is total; type-discriminated
		// chains only arise under a boxed error.
		if i == len(n.Handlers)-1 || h.TypeName == "" {
			em.linef("Err(%s) => {", bind)
		} else {
			em.linef("Err(%s) if %s.is::<%s>() => {", bind, bind, h.TypeName)
		}
		em.indent++
		em.emitBlock(h.Body)
		em.indent--
		em.line("}")
	}
	if len(n.Handlers) == 0 {
		em.line("Err(_) => {}")
	}
	em.indent--
	em.line("}")

	if len(n.Finally) > 0 {
		em.emitBlock(n.Finally)
	}
}

// tryErrType picks the closure's error type from the handled set.
func (em *Emitter) tryErrType(n *hir.Try) string {
	var named []string
	for _, h := range n.Handlers {
		if h.TypeName != "" {
			named = append(named, h.TypeName)
		}
	}
	switch len(named) {
	case 0:
		em.needs.exception("RuntimeError")
		return "RuntimeError"
	case 1:
		em.needs.exception(named[0])
		return named[0]
	default:
		for _, name := range named {
			em.needs.exception(name)
		}
		return "Box<dyn std::error::Error>"
	}
}

// emitWith renders scoped acquisition; drop at scope exit replaces
// __exit__. open() maps to File handles with ? on the acquisition.
func (em *Emitter) emitWith(n *hir.With) {
	em.line("{")
	em.indent++
	for _, item := range n.Items {
		bind := "_ctx"
		if item.Bind != "" {
			bind = sanitizeIdent(item.Bind)
			em.fc.declared[item.Bind] = true
		}
		if c, ok := item.Ctx.(*hir.Call); ok && c.Func == "open" {
			em.linef("let mut %s = %s;", bind, em.openExpr(c))
			continue
		}
		em.linef("let mut %s = %s;", bind, em.expr(item.Ctx))
	}
	em.emitBlock(n.Body)
	em.indent--
	em.line("}")
}

// openExpr maps open(path, mode) onto std::fs handles.
func (em *Emitter) openExpr(c *hir.Call) string {
	path := "\"\""
	if len(c.Args) > 0 {
		path = em.expr(c.Args[0])
	}
	mode := "r"
	if len(c.Args) > 1 {
		if lit, ok := c.Args[1].(*hir.Literal); ok && lit.Kind == hir.LitString {
			mode = lit.Str
		}
	}
	q := ".unwrap()"
	if em.fc.fn.CanFail && em.fc.errType == "Box<dyn std::error::Error>" {
		q = "?"
	}
	switch {
	case strings.Contains(mode, "a"):
		return fmt.Sprintf("std::fs::OpenOptions::new().append(true).create(true).open(%s)%s", path, q)
	case strings.Contains(mode, "w"):
		return fmt.Sprintf("std::fs::File::create(%s)%s", path, q)
	default:
		return fmt.Sprintf("std::fs::File::open(%s)%s", path, q)
	}
}

// emitRaise renders raise as an early Err return. A bare raise inside a
// handler re-throws the bound error.
func (em *Emitter) emitRaise(n *hir.Raise) {
	if n.Exc == nil {
		em.line("return Err(e);")
		return
	}
	em.linef("return Err(%s);", em.raiseValue(n.Exc))
}

// raiseValue builds the error constructor for a raised expression.
func (em *Emitter) raiseValue(exc hir.Expr) string {
	switch e := exc.(type) {
	case *hir.Call:
		em.needs.exception(e.Func)
		msg := "\"\""
		if len(e.Args) > 0 {
			msg = em.formatArg(e.Args[0])
		}
		if em.fc.errType == "Box<dyn std::error::Error>" {
			return fmt.Sprintf("Box::new(%s::new(%s))", e.Func, msg)
		}
		return fmt.Sprintf("%s::new(%s)", e.Func, msg)
	case *hir.Var:
		// Raising a bare exception class, no message.
		em.needs.exception(e.Name)
		if em.fc.errType == "Box<dyn std::error::Error>" {
			return fmt.Sprintf("Box::new(%s::new(\"\"))", e.Name)
		}
		return fmt.Sprintf("%s::new(\"\")", e.Name)
	}
	return em.expr(exc)
}

// formatArg renders an exception-message argument as something that
// satisfies Into<String>.
func (em *Emitter) formatArg(e hir.Expr) string {
	if fs, ok := e.(*hir.FString); ok {
		return em.fstringFormat(fs)
	}
	return em.expr(e)
}

// --- expression statements and nested functions ---

func (em *Emitter) emitExprStmt(n *hir.ExprStmt) {
	// Docstrings in statement position carry no runtime effect.
	if lit, ok := n.Value.(*hir.Literal); ok && lit.Kind == hir.LitString {
		return
	}
	if y, ok := n.Value.(*hir.YieldExpr); ok {
		if em.fc.yieldSink != "" && y.Value != nil {
			em.linef("%s.push(%s);", em.fc.yieldSink, em.exprOwned(y.Value, y.Value.GetType()))
		}
		return
	}
	s := em.expr(n.Value)
	if mc, ok := n.Value.(*hir.MethodCall); ok && em.callCanFail(mc.Method) {
		if em.fc.fn.CanFail && em.fc.errType == "Box<dyn std::error::Error>" {
			em.linef("%s?;", s)
		} else {
			em.linef("%s.unwrap();", s)
		}
		return
	}
	em.linef("%s;", s)
}

// callCanFail marks methods whose Rust counterparts return io::Result.
func (em *Emitter) callCanFail(method string) bool {
	switch method {
	case "write", "flush":
		return true
	}
	return false
}

// emitNestedFunc renders an inner def as a closure binding so captures
// work without lifting.
func (em *Emitter) emitNestedFunc(n *hir.NestedFunc) {
	fn := n.Fn
	var params []string
	for _, p := range fn.Params {
		rt, _ := types.MapType(p.Type)
		params = append(params, sanitizeIdent(p.Name)+": "+rt.Render())
	}
	em.linef("let %s = |%s| {", sanitizeIdent(fn.Name), strings.Join(params, ", "))
	em.indent++
	saved := em.fc
	em.fc = &fnContext{
		fn:        fn,
		facts:     saved.facts,
		mutLocals: borrow.MutableLocals(fn),
		declared:  make(map[string]bool),
		className: saved.className,
		errType:   saved.errType,
	}
	em.emitBlock(fn.Body)
	em.fc = saved
	em.indent--
	em.line("};")
	em.fc.declared[fn.Name] = true
}

// blockTerminates reports whether every path through the block ends in
// return or raise, so no fall-through value is needed.
func blockTerminates(stmts []hir.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	switch n := stmts[len(stmts)-1].(type) {
	case *hir.Return, *hir.Raise:
		return true
	case *hir.If:
		return len(n.Else) > 0 && blockTerminates(n.Then) && blockTerminates(n.Else)
	case *hir.While:
		return isTrueLiteral(n.Cond) && !blockHasBreak(n.Body)
	}
	return false
}

func blockHasBreak(stmts []hir.Stmt) bool {
	for _, s := range stmts {
		switch n := s.(type) {
		case *hir.Break:
			return true
		case *hir.If:
			if blockHasBreak(n.Then) || blockHasBreak(n.Else) {
				return true
			}
		case *hir.Try:
			if blockHasBreak(n.Body) {
				return true
			}
		}
	}
	return false
}
