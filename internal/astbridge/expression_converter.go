package astbridge

import (
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/pyast"
)

func (b *Bridge) convertExpr(e pyast.Expr) hir.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *pyast.Name:
		return &hir.Var{Span: n.Span, Name: n.ID}
	case *pyast.IntLit:
		return &hir.Literal{Span: n.Span, Kind: hir.LitInt, Int: n.Value}
	case *pyast.FloatLit:
		return &hir.Literal{Span: n.Span, Kind: hir.LitFloat, Float: n.Value}
	case *pyast.StringLit:
		return &hir.Literal{Span: n.Span, Kind: hir.LitString, Str: n.Value}
	case *pyast.BytesLit:
		return &hir.Literal{Span: n.Span, Kind: hir.LitBytes, Bytes: n.Value}
	case *pyast.BoolLit:
		return &hir.Literal{Span: n.Span, Kind: hir.LitBool, Bool: n.Value}
	case *pyast.NoneLit:
		return &hir.Literal{Span: n.Span, Kind: hir.LitNone}
	case *pyast.BinOp:
		return &hir.Binary{
			Span:  n.Span,
			Op:    n.Op,
			Left:  b.convertExpr(n.Left),
			Right: b.convertExpr(n.Right),
		}
	case *pyast.BoolOp:
		// and/or chains fold left-associatively into Binary nodes.
		out := b.convertExpr(n.Values[0])
		for _, v := range n.Values[1:] {
			out = &hir.Binary{Span: n.Span, Op: n.Op, Left: out, Right: b.convertExpr(v)}
		}
		return out
	case *pyast.UnaryOp:
		return &hir.Unary{Span: n.Span, Op: n.Op, Operand: b.convertExpr(n.Operand)}
	case *pyast.Compare:
		return b.convertCompare(n)
	case *pyast.Call:
		return b.convertCall(n)
	case *pyast.Attribute:
		return &hir.Attr{Span: n.Span, Value: b.convertExpr(n.Value), Name: n.Attr}
	case *pyast.Subscript:
		if sl, ok := n.Index.(*pyast.SliceExpr); ok {
			return &hir.Slice{
				Span:  n.Span,
				Value: b.convertExpr(n.Value),
				Lower: b.convertExpr(sl.Lower),
				Upper: b.convertExpr(sl.Upper),
				Step:  b.convertExpr(sl.Step),
			}
		}
		return &hir.Index{Span: n.Span, Value: b.convertExpr(n.Value), Idx: b.convertExpr(n.Index)}
	case *pyast.SliceExpr:
		b.errorf(n.Span, "slice outside subscript position")
		return &hir.Literal{Span: n.Span, Kind: hir.LitNone}
	case *pyast.IfExp:
		return &hir.IfExpr{
			Span: n.Span,
			Cond: b.convertExpr(n.Test),
			Then: b.convertExpr(n.Body),
			Else: b.convertExpr(n.Orelse),
		}
	case *pyast.Lambda:
		out := &hir.Lambda{Span: n.Span, Body: b.convertExpr(n.Body)}
		for _, p := range n.Params {
			out.Params = append(out.Params, b.convertParam(p))
		}
		return out
	case *pyast.ListLit:
		return &hir.ListLit{Span: n.Span, Elems: b.convertExprs(n.Elts)}
	case *pyast.TupleLit:
		return &hir.TupleLit{Span: n.Span, Elems: b.convertExprs(n.Elts)}
	case *pyast.SetLit:
		return &hir.SetLit{Span: n.Span, Elems: b.convertExprs(n.Elts)}
	case *pyast.DictLit:
		return &hir.DictLit{
			Span:   n.Span,
			Keys:   b.convertExprs(n.Keys),
			Values: b.convertExprs(n.Values),
		}
	case *pyast.Starred:
		return &hir.Starred{Span: n.Span, Value: b.convertExpr(n.Value)}
	case *pyast.Comprehension:
		return b.convertComprehension(n)
	case *pyast.Await:
		return &hir.AwaitExpr{Span: n.Span, Value: b.convertExpr(n.Value)}
	case *pyast.Yield:
		out := &hir.YieldExpr{Span: n.Span}
		if n.Value != nil {
			out.Value = b.convertExpr(n.Value)
		}
		return out
	case *pyast.YieldFrom:
		return &hir.YieldFrom{Span: n.Span, Value: b.convertExpr(n.Value)}
	case *pyast.NamedExpr:
		name := "_"
		if n.Target != nil {
			name = n.Target.ID
		}
		return &hir.Walrus{Span: n.Span, Name: name, Value: b.convertExpr(n.Value)}
	case *pyast.FString:
		out := &hir.FString{Span: n.Span}
		for _, p := range n.Parts {
			part := hir.FStringPart{Text: p.Text, Spec: p.Spec}
			if p.Expr != nil {
				part.Expr = b.convertExpr(p.Expr)
			}
			out.Parts = append(out.Parts, part)
		}
		return out
	default:
		b.errorf(e.GetSpan(), "unsupported expression")
		return &hir.Literal{Span: e.GetSpan(), Kind: hir.LitNone}
	}
}

func (b *Bridge) convertExprs(es []pyast.Expr) []hir.Expr {
	var out []hir.Expr
	for _, e := range es {
		out = append(out, b.convertExpr(e))
	}
	return out
}

// convertCompare desugars comparison chains. A single comparison maps
// to one Binary. `a < b < c` becomes `(a < (t := b)) and (t < c)` so
// the middle expression is evaluated exactly once; literals and bare
// variables skip the temporary since re-evaluation is free.
func (b *Bridge) convertCompare(n *pyast.Compare) hir.Expr {
	operands := make([]hir.Expr, 0, len(n.Comparators)+1)
	operands = append(operands, b.convertExpr(n.Left))
	for _, c := range n.Comparators {
		operands = append(operands, b.convertExpr(c))
	}

	if len(n.Ops) == 1 {
		return &hir.Binary{Span: n.Span, Op: n.Ops[0], Left: operands[0], Right: operands[1]}
	}

	// Middle operands appear in two pairwise comparisons; bind each
	// non-trivial one to a temp on first use.
	second := make([]hir.Expr, len(operands))
	for i := 1; i < len(operands)-1; i++ {
		if isTrivial(operands[i]) {
			second[i] = cloneTrivial(operands[i])
			continue
		}
		tmp := b.freshTemp()
		span := operands[i].GetSpan()
		second[i] = &hir.Var{Span: span, Name: tmp}
		operands[i] = &hir.Walrus{Span: span, Name: tmp, Value: operands[i]}
	}

	var out hir.Expr
	for i, op := range n.Ops {
		left := operands[i]
		if i > 0 {
			left = second[i]
		}
		pair := &hir.Binary{Span: n.Span, Op: op, Left: left, Right: operands[i+1]}
		if out == nil {
			out = pair
		} else {
			out = &hir.Binary{Span: n.Span, Op: "and", Left: out, Right: pair}
		}
	}
	return out
}

func isTrivial(e hir.Expr) bool {
	switch e.(type) {
	case *hir.Var, *hir.Literal:
		return true
	}
	return false
}

func cloneTrivial(e hir.Expr) hir.Expr {
	switch n := e.(type) {
	case *hir.Var:
		c := *n
		return &c
	case *hir.Literal:
		c := *n
		return &c
	}
	return e
}

// convertCall routes calls: plain names become Call, attribute access
// on a known module becomes a dotted Call (math.sqrt), any other
// attribute call becomes MethodCall, and computed callees keep their
// expression.
func (b *Bridge) convertCall(n *pyast.Call) hir.Expr {
	out := &hir.Call{Span: n.Span}
	for _, a := range n.Args {
		out.Args = append(out.Args, b.convertExpr(a))
	}
	for _, k := range n.Keywords {
		out.Kwargs = append(out.Kwargs, hir.Kwarg{Name: k.Arg, Value: b.convertExpr(k.Value)})
	}

	switch fn := n.Func.(type) {
	case *pyast.Name:
		out.Func = fn.ID
		return out
	case *pyast.Attribute:
		if recv, ok := fn.Value.(*pyast.Name); ok && b.moduleNames[recv.ID] {
			out.Func = recv.ID + "." + fn.Attr
			return out
		}
		// Dotted module paths like datetime.datetime.now.
		if dotted, ok := dottedName(fn.Value); ok {
			root := dotted
			if i := strings.IndexByte(root, '.'); i >= 0 {
				root = root[:i]
			}
			if b.moduleNames[root] {
				out.Func = dotted + "." + fn.Attr
				return out
			}
		}
		return &hir.MethodCall{
			Span:   n.Span,
			Recv:   b.convertExpr(fn.Value),
			Method: fn.Attr,
			Args:   out.Args,
			Kwargs: out.Kwargs,
		}
	default:
		out.FuncExpr = b.convertExpr(n.Func)
		return out
	}
}

func dottedName(e pyast.Expr) (string, bool) {
	switch n := e.(type) {
	case *pyast.Name:
		return n.ID, true
	case *pyast.Attribute:
		if base, ok := dottedName(n.Value); ok {
			return base + "." + n.Attr, true
		}
	}
	return "", false
}

func (b *Bridge) convertComprehension(n *pyast.Comprehension) hir.Expr {
	out := &hir.Comp{Span: n.Span, Kind: hir.CompKind(n.Kind)}
	if n.Kind == pyast.CompDict {
		out.Key = b.convertExpr(n.Key)
		out.Value = b.convertExpr(n.Value)
	} else {
		out.Elt = b.convertExpr(n.Elt)
	}
	for _, c := range n.Clauses {
		clause := hir.CompClause{
			Target: b.convertTarget(c.Target),
			Iter:   b.convertExpr(c.Iter),
		}
		for _, cond := range c.Ifs {
			clause.Conds = append(clause.Conds, b.convertExpr(cond))
		}
		out.Clauses = append(out.Clauses, clause)
	}
	return out
}
