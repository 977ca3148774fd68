package astbridge

import (
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/pyast"
	"github.com/pyrs-lang/pyrs/internal/types"
)

func (b *Bridge) convertBlock(stmts []pyast.Stmt) []hir.Stmt {
	var out []hir.Stmt
	for _, s := range stmts {
		if conv := b.convertStmt(s); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

func (b *Bridge) convertStmt(s pyast.Stmt) hir.Stmt {
	switch n := s.(type) {
	case *pyast.Assign:
		if len(n.Targets) != 1 {
			b.errorf(n.Span, "chained assignment is not supported")
			return nil
		}
		return &hir.Assign{
			Span:   n.Span,
			Target: b.convertTarget(n.Targets[0]),
			Value:  b.convertExpr(n.Value),
		}
	case *pyast.AnnAssign:
		out := &hir.AnnAssign{
			Span:   n.Span,
			Target: b.convertTarget(n.Target),
			Type:   types.ParseAnnotation(n.Annotation),
		}
		if n.Value != nil {
			out.Value = b.convertExpr(n.Value)
		}
		return out
	case *pyast.AugAssign:
		return &hir.AugAssign{
			Span:   n.Span,
			Op:     n.Op,
			Target: b.convertTarget(n.Target),
			Value:  b.convertExpr(n.Value),
		}
	case *pyast.Return:
		out := &hir.Return{Span: n.Span}
		if n.Value != nil {
			out.Value = b.convertExpr(n.Value)
		}
		return out
	case *pyast.If:
		return &hir.If{
			Span: n.Span,
			Cond: b.convertExpr(n.Test),
			Then: b.convertBlock(n.Body),
			Else: b.convertBlock(n.Orelse),
		}
	case *pyast.While:
		if len(n.Orelse) > 0 {
			b.errorf(n.Span, "while/else is not supported")
		}
		return &hir.While{
			Span: n.Span,
			Cond: b.convertExpr(n.Test),
			Body: b.convertBlock(n.Body),
		}
	case *pyast.For:
		if len(n.Orelse) > 0 {
			b.errorf(n.Span, "for/else is not supported")
		}
		return &hir.For{
			Span:   n.Span,
			Target: b.convertTarget(n.Target),
			Iter:   b.convertExpr(n.Iter),
			Body:   b.convertBlock(n.Body),
		}
	case *pyast.Break:
		return &hir.Break{Span: n.Span}
	case *pyast.Continue:
		return &hir.Continue{Span: n.Span}
	case *pyast.Pass:
		return &hir.Pass{Span: n.Span}
	case *pyast.Try:
		out := &hir.Try{
			Span:    n.Span,
			Body:    b.convertBlock(n.Body),
			Else:    b.convertBlock(n.Orelse),
			Finally: b.convertBlock(n.Final),
		}
		for _, h := range n.Handlers {
			out.Handlers = append(out.Handlers, hir.Handler{
				Span:     h.Span,
				TypeName: h.Type,
				Bind:     h.Name,
				Body:     b.convertBlock(h.Body),
			})
		}
		return out
	case *pyast.With:
		out := &hir.With{Span: n.Span, Body: b.convertBlock(n.Body)}
		for _, item := range n.Items {
			wi := hir.WithItem{Ctx: b.convertExpr(item.ContextExpr)}
			if item.Var != nil {
				if name, ok := item.Var.(*pyast.Name); ok {
					wi.Bind = name.ID
				} else {
					b.errorf(n.Span, "with targets must be plain names")
				}
			}
			out.Items = append(out.Items, wi)
		}
		return out
	case *pyast.Raise:
		out := &hir.Raise{Span: n.Span}
		if n.Exc != nil {
			out.Exc = b.convertExpr(n.Exc)
		}
		return out
	case *pyast.Assert:
		out := &hir.Assert{Span: n.Span, Test: b.convertExpr(n.Test)}
		if n.Msg != nil {
			out.Msg = b.convertExpr(n.Msg)
		}
		return out
	case *pyast.ExprStmt:
		return &hir.ExprStmt{Span: n.Span, Value: b.convertExpr(n.Value)}
	case *pyast.FunctionDef:
		if fn := b.convertFunction(n, false); fn != nil {
			return &hir.NestedFunc{Span: n.Span, Fn: fn}
		}
		return nil
	case *pyast.Import, *pyast.ImportFrom:
		b.errorf(s.GetSpan(), "imports inside function bodies are not supported")
		return nil
	case *pyast.Global:
		b.errorf(n.Span, "global statements are not supported")
		return nil
	case *pyast.ClassDef:
		b.errorf(n.Span, "nested class definitions are not supported")
		return nil
	default:
		b.errorf(s.GetSpan(), "unsupported statement")
		return nil
	}
}

// convertTarget builds a structured assignment target.
func (b *Bridge) convertTarget(e pyast.Expr) hir.Target {
	switch n := e.(type) {
	case *pyast.Name:
		return hir.Target{Span: n.Span, Kind: hir.TargetName, Name: n.ID}
	case *pyast.TupleLit:
		t := hir.Target{Span: n.Span, Kind: hir.TargetTuple}
		for _, el := range n.Elts {
			t.Elts = append(t.Elts, b.convertTarget(el))
		}
		return t
	case *pyast.ListLit:
		t := hir.Target{Span: n.Span, Kind: hir.TargetTuple}
		for _, el := range n.Elts {
			t.Elts = append(t.Elts, b.convertTarget(el))
		}
		return t
	case *pyast.Subscript:
		return hir.Target{
			Span:  n.Span,
			Kind:  hir.TargetIndex,
			Obj:   b.convertExpr(n.Value),
			Index: b.convertExpr(n.Index),
		}
	case *pyast.Attribute:
		return hir.Target{
			Span: n.Span,
			Kind: hir.TargetAttr,
			Obj:  b.convertExpr(n.Value),
			Attr: n.Attr,
		}
	case *pyast.Starred:
		b.errorf(n.Span, "starred assignment targets are not supported")
		return hir.Target{Span: n.Span, Kind: hir.TargetName, Name: "_"}
	default:
		b.errorf(e.GetSpan(), "unsupported assignment target")
		return hir.Target{Span: e.GetSpan(), Kind: hir.TargetName, Name: "_"}
	}
}
