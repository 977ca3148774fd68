package infer

import (
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// ioSinkNames are the writer-shaped return types whose mixture forces a
// boxed trait object.
var ioSinkNames = map[string]bool{
	"File":   true,
	"Stdout": true,
}

// inferReturn computes the function's return type as the LUB of every
// return site. Return expressions were already typed by the body pass,
// so this reads the filled slots.
func (in *Inferencer) inferReturn(fn *hir.Function, et *exprTyper) types.PyType {
	var collected []types.PyType
	sawBare := false

	var visit func(stmts []hir.Stmt)
	visit = func(stmts []hir.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *hir.Return:
				if n.Value == nil {
					sawBare = true
					collected = append(collected, types.NoneType())
				} else {
					collected = append(collected, n.Value.GetType())
				}
			case *hir.If:
				visit(n.Then)
				visit(n.Else)
			case *hir.While:
				visit(n.Body)
			case *hir.For:
				visit(n.Body)
			case *hir.Try:
				visit(n.Body)
				for _, h := range n.Handlers {
					visit(h.Body)
				}
				visit(n.Else)
				visit(n.Finally)
			case *hir.With:
				visit(n.Body)
			}
		}
	}
	visit(fn.Body)

	if fn.IsGenerator {
		return types.List(in.yieldedType(fn))
	}
	if len(collected) == 0 {
		return types.NoneType()
	}

	if mixed, ok := mixedIOSinks(collected); ok {
		return mixed
	}

	out := types.Unknown()
	sawNone := false
	for _, t := range collected {
		if t.Kind == types.KindNone {
			sawNone = true
			continue
		}
		out = lub(out, t)
	}
	switch {
	case out.IsUnknown() && sawNone:
		return types.NoneType()
	case sawNone || sawBare:
		return types.Optional(out)
	default:
		return out
	}
}

// yieldedType types a generator's element from its yield sites.
func (in *Inferencer) yieldedType(fn *hir.Function) types.PyType {
	out := types.Unknown()
	hir.WalkExprs(fn.Body, func(e hir.Expr) {
		switch n := e.(type) {
		case *hir.YieldExpr:
			if n.Value != nil {
				out = lub(out, n.Value.GetType())
			}
		case *hir.YieldFrom:
			out = lub(out, n.Value.GetType().ElemType())
		}
	})
	return out
}

// mixedIOSinks reports whether the return sites mix distinct writer
// kinds (file creation vs stdio); such a function returns a boxed
// writer.
func mixedIOSinks(collected []types.PyType) (types.PyType, bool) {
	seen := make(map[string]bool)
	for _, t := range collected {
		if t.Kind != types.KindCustom || !ioSinkNames[t.Name] {
			return types.PyType{}, false
		}
		seen[t.Name] = true
	}
	if len(seen) > 1 {
		return types.Custom("BoxedWrite"), true
	}
	return types.PyType{}, false
}
