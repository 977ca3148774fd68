package infer

import (
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// Method-name tables that narrow an unannotated receiver to a concrete
// container or string kind.
var (
	stringMethods = map[string]bool{
		"upper": true, "lower": true, "strip": true, "lstrip": true,
		"rstrip": true, "split": true, "splitlines": true, "join": true,
		"startswith": true, "endswith": true, "replace": true,
		"format": true, "encode": true, "title": true, "capitalize": true,
		"isdigit": true, "isalpha": true, "find": true, "rfind": true,
	}
	listMethods = map[string]bool{
		"append": true, "extend": true, "pop": true, "sort": true,
		"insert": true, "remove": true, "reverse": true,
	}
	dictMethods = map[string]bool{
		"keys": true, "values": true, "items": true, "get": true,
		"update": true, "setdefault": true,
	}
	setMethods = map[string]bool{
		"add": true, "discard": true, "union": true,
		"intersection": true, "difference": true,
	}
)

// paramEvidence accumulates use-site facts for one unannotated parameter.
type paramEvidence struct {
	t types.PyType
	// generic-only uses: iterated, equality-compared, or passed through
	// another call unchanged. Such a parameter gets a synthetic TypeVar
	// when no narrowing evidence ever appears.
	genericUse bool
	anyUse     bool
	// loopVar entries track element evidence for iterated parameters;
	// they never write back to the signature directly.
	loopVar bool
}

// inferParams scans the body once and unifies evidence per parameter.
// Conflicting evidence keeps the first observation and records a
// diagnostic rather than guessing.
func (in *Inferencer) inferParams(fn *hir.Function, reg *typeVarRegistry) {
	open := make(map[string]*paramEvidence)
	optional := make(map[string]bool)
	for _, p := range fn.Params {
		t := p.Type
		if t.Kind == types.KindOptional {
			optional[p.Name] = true
			t = t.ElemType()
		}
		if !p.Annotated && t.IsUnknown() {
			open[p.Name] = &paramEvidence{t: types.Unknown()}
		}
	}
	in.iterVars = make(map[string][]string)
	in.loopVarEvidence = make(map[string]types.PyType)
	if len(open) == 0 {
		return
	}

	record := func(name string, t types.PyType) {
		ev := open[name]
		if ev == nil {
			return
		}
		ev.anyUse = true
		if t.IsUnknown() {
			return
		}
		merged, ok := types.Unify(ev.t, t)
		if !ok {
			in.diags.Addf(diagnostic.LevelWarning, diagnostic.KindTypeConflict, fn.GetSpan(),
				"conflicting evidence for parameter %q in %s: %s vs %s", name, fn.Name, ev.t, t)
			return
		}
		ev.t = merged
	}

	hir.WalkStmts(fn.Body, func(s hir.Stmt) {
		f, ok := s.(*hir.For)
		if !ok {
			return
		}
		v, ok := f.Iter.(*hir.Var)
		if !ok {
			return
		}
		if ev := open[v.Name]; ev != nil {
			ev.anyUse = true
			ev.genericUse = true
			record(v.Name, types.List(types.Unknown()))
			for _, lv := range f.Target.Names() {
				in.iterVars[v.Name] = append(in.iterVars[v.Name], lv)
				// Loop variables of iterated open parameters gather
				// evidence too; it reveals the element type.
				if open[lv] == nil {
					open[lv] = &paramEvidence{t: types.Unknown(), loopVar: true}
				}
			}
		}
	})

	hir.WalkExprs(fn.Body, func(e hir.Expr) {
		switch n := e.(type) {
		case *hir.Index:
			v, ok := n.Value.(*hir.Var)
			if !ok || open[v.Name] == nil {
				return
			}
			switch idx := n.Idx.(type) {
			case *hir.Literal:
				if idx.Kind == hir.LitInt {
					record(v.Name, types.List(types.Unknown()))
				} else if idx.Kind == hir.LitString {
					record(v.Name, types.Dict(types.Str(), types.Unknown()))
				}
			default:
				record(v.Name, types.List(types.Unknown()))
			}
		case *hir.Binary:
			in.binaryEvidence(n, open, record)
		case *hir.MethodCall:
			v, ok := n.Recv.(*hir.Var)
			if !ok || open[v.Name] == nil {
				return
			}
			switch {
			case stringMethods[n.Method]:
				record(v.Name, types.Str())
			case listMethods[n.Method]:
				record(v.Name, types.List(types.Unknown()))
			case dictMethods[n.Method]:
				record(v.Name, types.Dict(types.Unknown(), types.Unknown()))
			case setMethods[n.Method]:
				record(v.Name, types.Set(types.Unknown()))
			}
		case *hir.Call:
			if len(n.Args) != 1 {
				return
			}
			v, ok := n.Args[0].(*hir.Var)
			if !ok || open[v.Name] == nil {
				return
			}
			switch n.Func {
			case "len", "sorted":
				// len and sorted accept any sized iterable; note the
				// use but do not commit to a container kind.
				open[v.Name].anyUse = true
				open[v.Name].genericUse = true
			case "sum":
				record(v.Name, types.List(types.Int()))
			case "abs":
				record(v.Name, types.Int())
			default:
				open[v.Name].anyUse = true
				open[v.Name].genericUse = true
			}
		}
	})

	for _, p := range fn.Params {
		ev := open[p.Name]
		if ev == nil || ev.loopVar {
			continue
		}
		t := ev.t
		if t.IsUnknown() && ev.genericUse && ev.anyUse {
			t = types.TypeVar(reg.fresh())
		}
		if optional[p.Name] {
			t = types.Optional(t)
		}
		p.Type = t
	}
	for name, ev := range open {
		if ev.loopVar && !ev.t.IsUnknown() {
			in.loopVarEvidence[name] = ev.t
		}
	}
}

// binaryEvidence narrows a parameter appearing on either side of an
// arithmetic or comparison operator against a literal of known type.
func (in *Inferencer) binaryEvidence(n *hir.Binary, open map[string]*paramEvidence, record func(string, types.PyType)) {
	v, lit := operandPair(n.Left, n.Right)
	if v == nil || open[v.Name] == nil {
		return
	}
	switch n.Op {
	case "+", "-", "*", "https://fd-gally.netlify.app/hf/", "//", "%", "**":
		if lit != nil {
			switch lit.Kind {
			case hir.LitInt:
				record(v.Name, types.Int())
			case hir.LitFloat:
				record(v.Name, types.Float())
			case hir.LitString:
				if n.Op == "+" || n.Op == "%" {
					record(v.Name, types.Str())
				}
			}
		}
	case "==", "!=", "<", "<=", ">", ">=":
		if lit == nil {
			open[v.Name].anyUse = true
			open[v.Name].genericUse = true
			return
		}
		switch lit.Kind {
		case hir.LitString:
			record(v.Name, types.Str())
		case hir.LitInt:
			if n.Op != "==" && n.Op != "!=" {
				record(v.Name, types.Int())
			} else {
				open[v.Name].anyUse = true
				open[v.Name].genericUse = true
			}
		case hir.LitFloat:
			record(v.Name, types.Float())
		}
	}
}

// operandPair extracts (variable, literal) from a binary operation in
// either order; literal is nil when neither side is one.
func operandPair(a, b hir.Expr) (*hir.Var, *hir.Literal) {
	if v, ok := a.(*hir.Var); ok {
		lit, _ := b.(*hir.Literal)
		return v, lit
	}
	if v, ok := b.(*hir.Var); ok {
		lit, _ := a.(*hir.Literal)
		return v, lit
	}
	return nil, nil
}

// refineIterated upgrades List(Unknown) parameters whose element type is
// revealed by how the loop variable was used.
func (in *Inferencer) refineIterated(fn *hir.Function, scope *scope) {
	for _, p := range fn.Params {
		if p.Annotated {
			continue
		}
		t := p.Type
		wrap := false
		if t.Kind == types.KindOptional {
			wrap = true
			t = t.ElemType()
		}
		if t.Kind != types.KindList || !t.ElemType().IsUnknown() {
			continue
		}
		for _, lv := range in.iterVars[p.Name] {
			elem := in.loopVarEvidence[lv]
			if elem.IsUnknown() {
				elem = scope.lookup(lv)
			}
			if elem.IsUnknown() {
				continue
			}
			t = types.List(elem)
			if wrap {
				t = types.Optional(t)
			}
			p.Type = t
			break
		}
	}
}
