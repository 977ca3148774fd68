package astbridge

import (
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/pyast"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// convertFunction lowers a def. isMethod is true for class bodies; the
// self parameter is kept in place and handled at emission.
func (b *Bridge) convertFunction(n *pyast.FunctionDef, isMethod bool) *hir.Function {
	fn := &hir.Function{
		Span:        n.Span,
		Name:        n.Name,
		Decorators:  n.Decorators,
		IsAsync:     n.IsAsync,
		IsMethod:    isMethod,
		Annotations: make(map[string]string),
	}

	for _, d := range n.Decorators {
		switch d {
		case "staticmethod":
			fn.IsStaticMethod = true
		case "classmethod":
			fn.IsClassMethod = true
		case "property":
			fn.IsProperty = true
		}
	}

	for _, p := range n.Params {
		fn.Params = append(fn.Params, b.convertParam(p))
	}

	if n.Returns != "" {
		fn.RetType = types.ParseAnnotation(n.Returns)
		fn.RetAnnotated = true
	} else {
		fn.RetType = types.Unknown()
	}

	body := n.Body
	if doc, rest := extractDocstring(body); doc != "" {
		fn.Docstring = doc
		body = rest
	}
	fn.Body = b.convertBlock(body)

	fn.IsGenerator = hir.ContainsYield(fn.Body)
	b.collectFailures(fn)
	return fn
}

// convertParam maps one parameter. A default of None with a
// non-optional annotation implies Optional wrapping, per the data
// model's invariants.
func (b *Bridge) convertParam(p pyast.Param) *hir.Param {
	out := &hir.Param{
		Span:     p.Span,
		Name:     p.Name,
		IsVararg: p.IsVararg,
		IsKwarg:  p.IsKwarg,
	}

	if p.Annotation != "" {
		out.Type = types.ParseAnnotation(p.Annotation)
		out.Annotated = true
	} else {
		out.Type = types.Unknown()
	}

	if p.Default != nil {
		out.Default = b.convertExpr(p.Default)
		if lit, ok := out.Default.(*hir.Literal); ok && lit.IsNone() {
			out.Type = types.Optional(out.Type)
		}
	}
	return out
}

// extractDocstring splits a leading string-literal statement off a body.
func extractDocstring(body []pyast.Stmt) (string, []pyast.Stmt) {
	if len(body) == 0 {
		return "", body
	}
	es, ok := body[0].(*pyast.ExprStmt)
	if !ok {
		return "", body
	}
	lit, ok := es.Value.(*pyast.StringLit)
	if !ok {
		return "", body
	}
	return lit.Value, body[1:]
}

// collectFailures records raised exception types that escape the
// function. A raise absorbed by an enclosing except clause does not
// contribute. Fallibility from dispatcher entries (open, int parsing)
// is added later by the emission planner; the bridge only knows about
// explicit raises.
func (b *Bridge) collectFailures(fn *hir.Function) {
	seen := make(map[string]bool)
	record := func(name string) {
		fn.CanFail = true
		if name != "" && !seen[name] {
			seen[name] = true
			fn.ErrorTypes = append(fn.ErrorTypes, name)
		}
	}

	var visit func(stmts []hir.Stmt, caught map[string]bool, catchAll bool)
	visit = func(stmts []hir.Stmt, caught map[string]bool, catchAll bool) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *hir.Raise:
				name := raisedTypeName(n.Exc)
				if n.Exc == nil {
					// Bare re-raise always escapes its handler.
					record("")
				} else if !catchAll && !caught[name] {
					record(name)
				}
			case *hir.Try:
				inner := make(map[string]bool, len(caught)+len(n.Handlers))
				for k := range caught {
					inner[k] = true
				}
				innerAll := catchAll
				for _, h := range n.Handlers {
					if h.TypeName == "" {
						innerAll = true
					} else {
						inner[h.TypeName] = true
					}
				}
				visit(n.Body, inner, innerAll)
				for _, h := range n.Handlers {
					visit(h.Body, caught, catchAll)
				}
				visit(n.Else, inner, innerAll)
				visit(n.Finally, caught, catchAll)
			case *hir.If:
				visit(n.Then, caught, catchAll)
				visit(n.Else, caught, catchAll)
			case *hir.While:
				visit(n.Body, caught, catchAll)
			case *hir.For:
				visit(n.Body, caught, catchAll)
			case *hir.With:
				visit(n.Body, caught, catchAll)
			}
		}
	}
	visit(fn.Body, map[string]bool{}, false)
}

func raisedTypeName(e hir.Expr) string {
	switch n := e.(type) {
	case *hir.Call:
		return n.Func
	case *hir.Var:
		return n.Name
	}
	return ""
}
