package borrow

import "github.com/pyrs-lang/pyrs/internal/hir"

// collectEscaping returns the parameters whose value (or a borrow into
// it) syntactically reaches a return expression.
func collectEscaping(fn *hir.Function) map[string]bool {
	escapes := make(map[string]bool)
	forEachReturn(fn.Body, func(e hir.Expr) {
		reachedParams(e, escapes)
	})
	return escapes
}

// forEachReturn visits the value of every return statement.
func forEachReturn(stmts []hir.Stmt, visit func(hir.Expr)) {
	hir.WalkStmts(stmts, func(s hir.Stmt) {
		if r, ok := s.(*hir.Return); ok && r.Value != nil {
			visit(r.Value)
		}
	})
}

// reachedParams marks every variable the expression can hand back to the
// caller: the expression itself, slices and index loads into it, and
// either arm of a conditional. Arguments of calls do not escape through
// the call (the supported subset has no identity-returning user
// functions in borrow position).
func reachedParams(e hir.Expr, out map[string]bool) {
	switch n := e.(type) {
	case *hir.Var:
		out[n.Name] = true
	case *hir.Index:
		reachedParams(n.Value, out)
	case *hir.Slice:
		reachedParams(n.Value, out)
	case *hir.Attr:
		reachedParams(n.Value, out)
	case *hir.IfExpr:
		reachedParams(n.Then, out)
		reachedParams(n.Else, out)
	case *hir.Walrus:
		reachedParams(n.Value, out)
	case *hir.Starred:
		reachedParams(n.Value, out)
	}
}

// owningTransformReturns classifies return sites: all reports every
// return producing a freshly owned value (string concatenation,
// f-string interpolation, str()/owned-producing methods, literals and
// constructors); some reports at least one such site existing alongside
// other shapes.
func owningTransformReturns(fn *hir.Function) (all, some bool) {
	total, owned := 0, 0
	forEachReturn(fn.Body, func(e hir.Expr) {
		total++
		if producesOwned(e) {
			owned++
		}
	})
	if total == 0 {
		return false, false
	}
	return owned == total, owned > 0
}

// cowEligible reports whether every return site is either a direct
// parameter reference or an owning transform. Any other shape — a
// slice or index borrow into a parameter, an opaque call — forces a
// plain borrowed return instead of Cow.
func cowEligible(fn *hir.Function) bool {
	params := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p.Name] = true
	}
	ok := true
	forEachReturn(fn.Body, func(e hir.Expr) {
		if v, isVar := e.(*hir.Var); isVar && params[v.Name] {
			return
		}
		if !producesOwned(e) {
			ok = false
		}
	})
	return ok
}

// producesOwned reports whether the expression always yields a freshly
// constructed value the caller owns outright.
func producesOwned(e hir.Expr) bool {
	switch n := e.(type) {
	case *hir.Literal:
		return true
	case *hir.FString:
		return true
	case *hir.Binary:
		// String concatenation and repetition allocate.
		return n.Op == "+" || n.Op == "*" || n.Op == "%"
	case *hir.Call:
		switch n.Func {
		case "str", "repr", "list", "dict", "set", "sorted", "int", "float":
			return true
		}
		return false
	case *hir.MethodCall:
		switch n.Method {
		case "upper", "lower", "strip", "lstrip", "rstrip", "title",
			"capitalize", "replace", "format", "join", "copy", "split":
			return true
		}
		return false
	case *hir.ListLit, *hir.SetLit, *hir.DictLit, *hir.TupleLit, *hir.Comp:
		return true
	case *hir.IfExpr:
		return producesOwned(n.Then) && producesOwned(n.Else)
	}
	return false
}
