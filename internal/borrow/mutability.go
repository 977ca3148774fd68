package borrow

import (
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
)

// mutatingMethods maps method names that write through their receiver.
// Shared across container kinds; a name listed here marks the receiver
// mutated regardless of its inferred type, which is safe because the
// emitter only adds &mut for non-Copy receivers.
var mutatingMethods = map[string]bool{
	// list
	"append": true, "extend": true, "insert": true, "remove": true,
	"pop": true, "sort": true, "reverse": true, "clear": true,
	// dict
	"update": true, "setdefault": true, "popitem": true,
	// set
	"add": true, "discard": true,
	// file
	"write": true, "writelines": true, "close": true, "flush": true,
	"truncate": true, "seek": true,
}

// userMutatorPrefixes flag counter-like methods on user classes.
var userMutatorPrefixes = []string{
	"set_", "add_", "push", "record", "increment", "reset", "register",
}

// handleNameWords mark values that are opaque reader/writer handles by
// naming convention. A matching name suppresses the prefix-based
// mutator guess below; only a method from mutatingMethods flips such a
// value to mutated. The word must be the whole name or its final
// underscore-separated component, so "writer_count" and "showriter" do
// not trip it.
var handleNameWords = map[string]bool{
	"reader": true, "writer": true, "sink": true, "source": true,
	"out": true, "output": true, "input": true,
}

// collectMutated returns the set of names the body writes through:
// assignment and aug-assignment targets, index/attribute store bases,
// and receivers of mutating methods.
func collectMutated(fn *hir.Function) map[string]bool {
	mutated := make(map[string]bool)

	markBase := func(e hir.Expr) {
		if v, ok := rootVar(e); ok {
			mutated[v] = true
		}
	}
	markTarget := func(t hir.Target) {
		switch t.Kind {
		case hir.TargetName:
			mutated[t.Name] = true
		case hir.TargetTuple:
			for _, name := range t.Names() {
				mutated[name] = true
			}
		case hir.TargetIndex, hir.TargetAttr:
			markBase(t.Obj)
		}
	}

	hir.WalkStmts(fn.Body, func(s hir.Stmt) {
		switch n := s.(type) {
		case *hir.Assign:
			markTarget(n.Target)
		case *hir.AnnAssign:
			markTarget(n.Target)
		case *hir.AugAssign:
			markTarget(n.Target)
		}
	})

	hir.WalkExprs(fn.Body, func(e hir.Expr) {
		mc, ok := e.(*hir.MethodCall)
		if !ok {
			return
		}
		if mutatingMethods[mc.Method] {
			markBase(mc.Recv)
			return
		}
		// Prefix-based mutator guesses do not apply to reader/writer
		// handles; those stay unmutated until a table-listed method
		// is seen on them.
		if userMutator(mc.Method) {
			if v, ok := rootVar(mc.Recv); !ok || !isHandleName(v) {
				markBase(mc.Recv)
			}
		}
	})

	// Rebinding a parameter name to a fresh value is not a mutation of
	// the caller's value; drop plain-rebound params that are never
	// written through a subscript, attribute, or method.
	for _, p := range fn.Params {
		if mutated[p.Name] && onlyRebound(fn, p.Name) {
			delete(mutated, p.Name)
		}
	}

	return mutated
}

// MutableLocals returns the locals the emitter must declare `let mut`:
// reassigned names, aug-assign targets, and receivers of in-place
// writes. Parameters are excluded; their mutability is a signature
// decision.
func MutableLocals(fn *hir.Function) map[string]bool {
	params := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p.Name] = true
	}

	assigned := make(map[string]int)
	mut := make(map[string]bool)
	hir.WalkStmts(fn.Body, func(s hir.Stmt) {
		switch n := s.(type) {
		case *hir.Assign:
			for _, name := range n.Target.Names() {
				assigned[name]++
			}
			if base, ok := targetBase(n.Target); ok {
				mut[base] = true
			}
		case *hir.AnnAssign:
			for _, name := range n.Target.Names() {
				assigned[name]++
			}
		case *hir.AugAssign:
			for _, name := range n.Target.Names() {
				mut[name] = true
			}
			if base, ok := targetBase(n.Target); ok {
				mut[base] = true
			}
		}
	})
	hir.WalkExprs(fn.Body, func(e hir.Expr) {
		mc, ok := e.(*hir.MethodCall)
		if !ok {
			return
		}
		if v, ok := rootVar(mc.Recv); ok {
			if mutatingMethods[mc.Method] || (userMutator(mc.Method) && !isHandleName(v)) {
				mut[v] = true
			}
		}
	})
	for name, count := range assigned {
		if count > 1 {
			mut[name] = true
		}
	}
	for name := range mut {
		if params[name] {
			delete(mut, name)
		}
	}
	return mut
}

// onlyRebound reports whether every write to name is a whole-name
// rebinding (no index/attr stores, no mutating method calls, no
// aug-assign which reads the old value in place).
func onlyRebound(fn *hir.Function, name string) bool {
	deep := false
	hir.WalkStmts(fn.Body, func(s hir.Stmt) {
		switch n := s.(type) {
		case *hir.AugAssign:
			for _, tn := range n.Target.Names() {
				if tn == name {
					deep = true
				}
			}
			if base, ok := targetBase(n.Target); ok && base == name {
				deep = true
			}
		case *hir.Assign:
			if base, ok := targetBase(n.Target); ok && base == name {
				deep = true
			}
		case *hir.AnnAssign:
			if base, ok := targetBase(n.Target); ok && base == name {
				deep = true
			}
		}
	})
	hir.WalkExprs(fn.Body, func(e hir.Expr) {
		mc, ok := e.(*hir.MethodCall)
		if !ok {
			return
		}
		if !mutatingMethods[mc.Method] && !userMutator(mc.Method) {
			return
		}
		if v, ok := rootVar(mc.Recv); ok && v == name {
			deep = true
		}
	})
	return !deep
}

// targetBase returns the root variable of an index or attribute store.
func targetBase(t hir.Target) (string, bool) {
	if t.Kind != hir.TargetIndex && t.Kind != hir.TargetAttr {
		return "", false
	}
	return rootVar(t.Obj)
}

// rootVar peels Index/Attr chains down to the base variable.
func rootVar(e hir.Expr) (string, bool) {
	for {
		switch n := e.(type) {
		case *hir.Var:
			return n.Name, true
		case *hir.Index:
			e = n.Value
		case *hir.Attr:
			e = n.Value
		default:
			return "", false
		}
	}
}

func userMutator(method string) bool {
	for _, p := range userMutatorPrefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

// isHandleName reports whether a snake_case identifier names a
// reader/writer handle: the whole name or its final component matches,
// case-insensitively. "out_writer" and "writer" match; "writer_count"
// names a count about a writer, not a writer, and does not.
func isHandleName(name string) bool {
	parts := strings.Split(strings.ToLower(name), "_")
	last := parts[len(parts)-1]
	if last == "" && len(parts) > 1 {
		last = parts[len(parts)-2]
	}
	return handleNameWords[last]
}
