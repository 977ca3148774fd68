package codegen

import (
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// emitGenerator lowers a generator function. The single-loop shape
// (optional setup, one loop with one yield) becomes an explicit state
// machine implementing Iterator; other shapes fall back to eager
// collection, which preserves semantics for self-contained generators.
func (em *Emitter) emitGenerator(fn *hir.Function) {
	itemType := em.yieldItemType(fn)
	shape, ok := splitGeneratorShape(fn.Body)
	if !ok {
		em.emitEagerGenerator(fn, itemType)
		return
	}
	em.emitStateMachine(fn, itemType, shape)
}

// yieldItemType recovers the element type from the inferred list-shaped
// return.
func (em *Emitter) yieldItemType(fn *hir.Function) types.RustType {
	ret := fn.RetType
	if ret.Kind == types.KindList && ret.Elem != nil {
		rt, _ := types.MapType(*ret.Elem)
		return rt
	}
	rt, _ := types.MapType(ret)
	return rt
}

// generatorShape is the recognized single-loop form.
type generatorShape struct {
	setup    []hir.Stmt // straight-line assignments before the loop
	cond     hir.Expr   // loop condition (synthesized for for-range)
	loopInit []hir.Stmt // induction bootstrap for for-range
	preYield []hir.Stmt
	yieldVal hir.Expr
	postYld  []hir.Stmt
}

// splitGeneratorShape matches the body against setup + one while/for
// loop containing exactly one top-level yield.
func splitGeneratorShape(body []hir.Stmt) (*generatorShape, bool) {
	sh := &generatorShape{}
	i := 0
	for ; i < len(body); i++ {
		switch body[i].(type) {
		case *hir.Assign, *hir.AnnAssign:
			sh.setup = append(sh.setup, body[i])
			continue
		}
		break
	}
	if i >= len(body) || i != len(body)-1 {
		return nil, false
	}
	switch loop := body[i].(type) {
	case *hir.While:
		sh.cond = loop.Cond
		if !splitLoopBody(loop.Body, sh) {
			return nil, false
		}
		return sh, true
	case *hir.For:
		if loop.Target.Kind != hir.TargetName {
			return nil, false
		}
		rng, ok := loop.Iter.(*hir.Call)
		if !ok || rng.Func != "range" || len(rng.Args) == 0 || len(rng.Args) > 2 {
			return nil, false
		}
		name := loop.Target.Name
		start := hir.Expr(&hir.Literal{Kind: hir.LitInt, Int: 0})
		stop := rng.Args[0]
		if len(rng.Args) == 2 {
			start, stop = rng.Args[0], rng.Args[1]
		}
		iv := &hir.Var{Name: name}
		iv.SetType(types.Int())
		sh.loopInit = []hir.Stmt{&hir.Assign{
			Target: hir.Target{Kind: hir.TargetName, Name: name},
			Value:  start,
		}}
		cond := &hir.Binary{Op: "<", Left: iv, Right: stop}
		cond.SetType(types.Bool())
		sh.cond = cond
		if !splitLoopBody(loop.Body, sh) {
			return nil, false
		}
		step := &hir.AugAssign{
			Op:     "+",
			Target: hir.Target{Kind: hir.TargetName, Name: name},
			Value:  &hir.Literal{Kind: hir.LitInt, Int: 1},
		}
		sh.postYld = append(sh.postYld, step)
		return sh, true
	}
	return nil, false
}

// splitLoopBody extracts the single top-level yield and the statements
// around it; nested yields reject the shape.
func splitLoopBody(body []hir.Stmt, sh *generatorShape) bool {
	yieldAt := -1
	for i, s := range body {
		es, ok := s.(*hir.ExprStmt)
		if !ok {
			if stmtContainsYield(s) {
				return false
			}
			continue
		}
		if y, ok := es.Value.(*hir.YieldExpr); ok {
			if yieldAt >= 0 {
				return false
			}
			yieldAt = i
			sh.yieldVal = y.Value
		}
	}
	if yieldAt < 0 {
		return false
	}
	sh.preYield = body[:yieldAt]
	sh.postYld = append([]hir.Stmt{}, body[yieldAt+1:]...)
	return true
}

func stmtContainsYield(s hir.Stmt) bool {
	found := false
	check := func(e hir.Expr) hir.Expr {
		switch e.(type) {
		case *hir.YieldExpr, *hir.YieldFrom:
			found = true
		}
		return e
	}
	rewriteStmtExprs(s, check)
	return found
}

// emitStateMachine renders the struct, constructor, and Iterator impl
// for the recognized shape.
func (em *Emitter) emitStateMachine(fn *hir.Function, item types.RustType, sh *generatorShape) {
	name := pascalCase(fn.Name)

	// Fields: state, params, setup and induction locals.
	type field struct {
		name string
		rt   types.RustType
		init string
	}
	var fields []field
	seen := map[string]bool{"state": true}
	for _, p := range fn.Params {
		if p.Name == "self" {
			continue
		}
		rt, _ := types.MapType(p.Type)
		fields = append(fields, field{p.Name, rt, sanitizeIdent(p.Name)})
		seen[p.Name] = true
	}
	addLocal := func(s hir.Stmt) {
		switch a := s.(type) {
		case *hir.Assign:
			if a.Target.Kind == hir.TargetName && !seen[a.Target.Name] {
				rt, _ := types.MapType(a.Value.GetType())
				fields = append(fields, field{a.Target.Name, rt, rt.DefaultValue()})
				seen[a.Target.Name] = true
			}
		case *hir.AnnAssign:
			if a.Target.Kind == hir.TargetName && !seen[a.Target.Name] {
				rt, _ := types.MapType(a.Type)
				fields = append(fields, field{a.Target.Name, rt, rt.DefaultValue()})
				seen[a.Target.Name] = true
			}
		}
	}
	for _, s := range sh.setup {
		addLocal(s)
	}
	for _, s := range sh.loopInit {
		addLocal(s)
	}

	em.line("#[derive(Debug)]")
	em.linef("pub struct %s {", name)
	em.indent++
	em.line("state: u32,")
	for _, f := range fields {
		em.linef("%s: %s,", sanitizeIdent(f.name), f.rt.Render())
	}
	em.indent--
	em.line("}")
	em.blank()

	var params []string
	for _, p := range fn.Params {
		if p.Name == "self" {
			continue
		}
		rt, _ := types.MapType(p.Type)
		params = append(params, sanitizeIdent(p.Name)+": "+rt.Render())
	}
	em.linef("pub fn %s(%s) -> %s {", sanitizeIdent(fn.Name), strings.Join(params, ", "), name)
	em.indent++
	var inits []string
	inits = append(inits, "state: 0")
	for _, f := range fields {
		if f.init == sanitizeIdent(f.name) {
			inits = append(inits, sanitizeIdent(f.name))
		} else {
			inits = append(inits, sanitizeIdent(f.name)+": "+f.init)
		}
	}
	em.linef("%s { %s }", name, strings.Join(inits, ", "))
	em.indent--
	em.line("}")
	em.blank()

	// Body statements refer to captured fields through self.
	selfFields := make(map[string]bool, len(fields))
	for _, f := range fields {
		selfFields[f.name] = true
	}

	em.linef("impl Iterator for %s {", name)
	em.indent++
	em.linef("type Item = %s;", item.Render())
	em.blank()
	em.line("fn next(&mut self) -> Option<Self::Item> {")
	em.indent++

	em.fc = &fnContext{
		fn:        fn,
		declared:  selfFieldDeclared(selfFields),
		mutLocals: map[string]bool{},
		errType:   "RuntimeError",
	}

	em.line("loop {")
	em.indent++
	em.line("match self.state {")
	em.indent++
	em.line("0 => {")
	em.indent++
	em.emitBlock(em.selfRewrite(sh.setup, selfFields))
	em.emitBlock(em.selfRewrite(sh.loopInit, selfFields))
	em.line("self.state = 1;")
	em.indent--
	em.line("}")
	em.line("1 => {")
	em.indent++
	em.linef("if !(%s) {", em.condRewritten(sh.cond, selfFields))
	em.indent++
	em.line("self.state = 2;")
	em.line("continue;")
	em.indent--
	em.line("}")
	em.emitBlock(em.selfRewrite(sh.preYield, selfFields))
	em.linef("let item = %s;", em.exprRewritten(sh.yieldVal, selfFields))
	em.emitBlock(em.selfRewrite(sh.postYld, selfFields))
	em.line("return Some(item);")
	em.indent--
	em.line("}")
	em.line("_ => return None,")
	em.indent--
	em.line("}")
	em.indent--
	em.line("}")

	em.indent--
	em.line("}")
	em.indent--
	em.line("}")
}

func selfFieldDeclared(fields map[string]bool) map[string]bool {
	m := make(map[string]bool, len(fields))
	for k := range fields {
		m[k] = true
	}
	return m
}

// selfRewrite redirects captured names through self.
func (em *Emitter) selfRewrite(body []hir.Stmt, fields map[string]bool) []hir.Stmt {
	rw := selfFieldRewriter(fields)
	out := make([]hir.Stmt, len(body))
	for i, s := range body {
		out[i] = rewriteStmtExprs(cloneTargetsToSelf(s, fields), rw)
	}
	return out
}

func (em *Emitter) exprRewritten(e hir.Expr, fields map[string]bool) string {
	return em.expr(rewriteExprTree(e, selfFieldRewriter(fields)))
}

func (em *Emitter) condRewritten(e hir.Expr, fields map[string]bool) string {
	return em.cond(rewriteExprTree(e, selfFieldRewriter(fields)))
}

func selfFieldRewriter(fields map[string]bool) func(hir.Expr) hir.Expr {
	return func(e hir.Expr) hir.Expr {
		if v, ok := e.(*hir.Var); ok && fields[v.Name] {
			selfVar := &hir.Var{Span: v.Span, Name: "self"}
			a := &hir.Attr{Span: v.Span, Value: selfVar, Name: v.Name}
			a.SetType(v.GetType())
			return a
		}
		return e
	}
}

// cloneTargetsToSelf rewrites assignment targets naming captured fields
// into attribute stores on self.
func cloneTargetsToSelf(s hir.Stmt, fields map[string]bool) hir.Stmt {
	toSelf := func(t hir.Target) hir.Target {
		if t.Kind == hir.TargetName && fields[t.Name] {
			return hir.Target{
				Span: t.Span,
				Kind: hir.TargetAttr,
				Obj:  &hir.Var{Span: t.Span, Name: "self"},
				Attr: t.Name,
			}
		}
		return t
	}
	switch n := s.(type) {
	case *hir.Assign:
		return &hir.Assign{Span: n.Span, Target: toSelf(n.Target), Value: n.Value}
	case *hir.AnnAssign:
		if n.Target.Kind == hir.TargetName && fields[n.Target.Name] {
			return &hir.Assign{Span: n.Span, Target: toSelf(n.Target), Value: n.Value}
		}
	case *hir.AugAssign:
		return &hir.AugAssign{Span: n.Span, Op: n.Op, Target: toSelf(n.Target), Value: n.Value}
	}
	return s
}

// rewriteExprTree applies f over a whole expression tree.
func rewriteExprTree(e hir.Expr, f func(hir.Expr) hir.Expr) hir.Expr {
	wrapper := &hir.ExprStmt{Value: e}
	rewriteStmtExprs(wrapper, f)
	return wrapper.Value
}

// emitEagerGenerator collects all yields into a Vec and iterates it;
// used when the body does not fit the state-machine shape.
func (em *Emitter) emitEagerGenerator(fn *hir.Function, item types.RustType) {
	var params []string
	for _, p := range fn.Params {
		if p.Name == "self" {
			continue
		}
		params = append(params, sanitizeIdent(p.Name)+": "+em.paramTypeString(p))
	}
	em.linef("pub fn %s(%s) -> impl Iterator<Item = %s> {", sanitizeIdent(fn.Name), strings.Join(params, ", "), item.Render())
	em.indent++
	em.line("let mut items = Vec::new();")
	saved := em.fc
	em.fc = &fnContext{
		fn:        fn,
		facts:     saved.facts,
		mutLocals: map[string]bool{"items": true},
		declared:  map[string]bool{"items": true},
		errType:   saved.errType,
		yieldSink: "items",
	}
	em.emitBlock(fn.Body)
	em.fc = saved
	em.line("items.into_iter()")
	em.indent--
	em.line("}")
}

// pascalCase converts snake_case to PascalCase for generated type names.
func pascalCase(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}
