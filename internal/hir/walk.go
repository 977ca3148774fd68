package hir

// WalkStmts calls fn for every statement in the list, recursing into
// nested blocks. Nested function bodies are not entered; analyses run
// per function.
func WalkStmts(stmts []Stmt, fn func(Stmt)) {
	for _, s := range stmts {
		fn(s)
		switch n := s.(type) {
		case *If:
			WalkStmts(n.Then, fn)
			WalkStmts(n.Else, fn)
		case *While:
			WalkStmts(n.Body, fn)
		case *For:
			WalkStmts(n.Body, fn)
		case *Try:
			WalkStmts(n.Body, fn)
			for _, h := range n.Handlers {
				WalkStmts(h.Body, fn)
			}
			WalkStmts(n.Else, fn)
			WalkStmts(n.Finally, fn)
		case *With:
			WalkStmts(n.Body, fn)
		}
	}
}

// WalkExprs calls fn for every expression reachable from the statement
// list, children after parents. Nested function bodies are skipped.
func WalkExprs(stmts []Stmt, fn func(Expr)) {
	WalkStmts(stmts, func(s Stmt) {
		switch n := s.(type) {
		case *Assign:
			walkTargetExprs(n.Target, fn)
			walkExpr(n.Value, fn)
		case *AnnAssign:
			walkTargetExprs(n.Target, fn)
			walkExpr(n.Value, fn)
		case *AugAssign:
			walkTargetExprs(n.Target, fn)
			walkExpr(n.Value, fn)
		case *Return:
			walkExpr(n.Value, fn)
		case *If:
			walkExpr(n.Cond, fn)
		case *While:
			walkExpr(n.Cond, fn)
		case *For:
			walkTargetExprs(n.Target, fn)
			walkExpr(n.Iter, fn)
		case *With:
			for _, it := range n.Items {
				walkExpr(it.Ctx, fn)
			}
		case *Raise:
			walkExpr(n.Exc, fn)
		case *Assert:
			walkExpr(n.Test, fn)
			walkExpr(n.Msg, fn)
		case *ExprStmt:
			walkExpr(n.Value, fn)
		}
	})
}

func walkTargetExprs(t Target, fn func(Expr)) {
	switch t.Kind {
	case TargetTuple:
		for _, e := range t.Elts {
			walkTargetExprs(e, fn)
		}
	case TargetIndex:
		walkExpr(t.Obj, fn)
		walkExpr(t.Index, fn)
	case TargetAttr:
		walkExpr(t.Obj, fn)
	}
}

func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *Binary:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *Unary:
		walkExpr(n.Operand, fn)
	case *Call:
		walkExpr(n.FuncExpr, fn)
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
		for _, k := range n.Kwargs {
			walkExpr(k.Value, fn)
		}
	case *MethodCall:
		walkExpr(n.Recv, fn)
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
		for _, k := range n.Kwargs {
			walkExpr(k.Value, fn)
		}
	case *Attr:
		walkExpr(n.Value, fn)
	case *Index:
		walkExpr(n.Value, fn)
		walkExpr(n.Idx, fn)
	case *Slice:
		walkExpr(n.Value, fn)
		walkExpr(n.Lower, fn)
		walkExpr(n.Upper, fn)
		walkExpr(n.Step, fn)
	case *IfExpr:
		walkExpr(n.Cond, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *Walrus:
		walkExpr(n.Value, fn)
	case *Lambda:
		walkExpr(n.Body, fn)
	case *ListLit:
		for _, el := range n.Elems {
			walkExpr(el, fn)
		}
	case *SetLit:
		for _, el := range n.Elems {
			walkExpr(el, fn)
		}
	case *TupleLit:
		for _, el := range n.Elems {
			walkExpr(el, fn)
		}
	case *DictLit:
		for i := range n.Keys {
			walkExpr(n.Keys[i], fn)
			walkExpr(n.Values[i], fn)
		}
	case *Starred:
		walkExpr(n.Value, fn)
	case *Comp:
		walkExpr(n.Elt, fn)
		walkExpr(n.Key, fn)
		walkExpr(n.Value, fn)
		for _, c := range n.Clauses {
			walkExpr(c.Iter, fn)
			for _, cond := range c.Conds {
				walkExpr(cond, fn)
			}
		}
	case *FString:
		for _, p := range n.Parts {
			walkExpr(p.Expr, fn)
		}
	case *AwaitExpr:
		walkExpr(n.Value, fn)
	case *YieldExpr:
		walkExpr(n.Value, fn)
	case *YieldFrom:
		walkExpr(n.Value, fn)
	}
}

// WalkExpr exposes expression traversal for a single root.
func WalkExpr(e Expr, fn func(Expr)) { walkExpr(e, fn) }

// ContainsYield reports whether any yield or yield-from appears in the
// statement list, which marks the enclosing function as a generator.
func ContainsYield(stmts []Stmt) bool {
	found := false
	WalkExprs(stmts, func(e Expr) {
		switch e.(type) {
		case *YieldExpr, *YieldFrom:
			found = true
		}
	})
	return found
}
