package codegen

import (
	"fmt"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// emitClass lowers a class by its classification: records and plain
// classes become structs, ABC hierarchies become tagged enums, Enum
// subclasses become fieldless enums.
func (em *Emitter) emitClass(c *hir.Class) {
	if c.Docstring != "" {
		for _, ln := range strings.Split(strings.TrimSpace(c.Docstring), "\n") {
			em.linef("/// %s", strings.TrimSpace(ln))
		}
	}
	switch c.Kind {
	case hir.ClassEnum:
		em.emitEnumClass(c)
	case hir.ClassADTParent:
		em.emitADT(c)
	default:
		em.emitStructClass(c)
	}
}

// emitStructClass renders a struct plus its impl block.
func (em *Emitter) emitStructClass(c *hir.Class) {
	em.line(structDerive(c))
	em.linef("pub struct %s {", c.Name)
	em.indent++
	for _, f := range c.Fields {
		rt, _ := types.MapType(f.Type)
		em.linef("pub %s: %s,", sanitizeIdent(f.Name), rt.Render())
	}
	em.indent--
	em.line("}")

	if !classNeedsImpl(c) {
		return
	}
	em.blank()
	em.linef("impl %s {", c.Name)
	em.indent++
	first := true
	if c.Kind == hir.ClassRecord && findMethod(c, "__init__") == nil && len(c.Fields) > 0 {
		em.emitRecordNew(c)
		first = false
	}
	for _, m := range c.Methods {
		if isTraitDunder(m.Name) {
			continue
		}
		if !first {
			em.blank()
		}
		first = false
		em.emitFunction(m, c.Name)
	}
	em.indent--
	em.line("}")

	em.emitTraitImpls(c)
}

// structDerive picks the derive list from what the fields allow and the
// dunders the class defines.
func structDerive(c *hir.Class) string {
	derives := []string{"Debug", "Clone"}
	if findMethod(c, "__eq__") == nil {
		derives = append(derives, "PartialEq")
		if c.AllFieldsHashable() {
			derives = append(derives, "Eq", "Hash")
		}
	}
	if findMethod(c, "__lt__") != nil || hasDecoratorAny(c, "total_ordering") {
		derives = append(derives, "PartialOrd")
	}
	return "#[derive(" + strings.Join(derives, ", ") + ")]"
}

func hasDecoratorAny(c *hir.Class, name string) bool {
	for _, d := range c.Decorators {
		if d == name || strings.HasSuffix(d, "."+name) {
			return true
		}
	}
	return false
}

func classNeedsImpl(c *hir.Class) bool {
	if c.Kind == hir.ClassRecord && len(c.Fields) > 0 && findMethod(c, "__init__") == nil {
		return true
	}
	for _, m := range c.Methods {
		if !isTraitDunder(m.Name) {
			return true
		}
	}
	return false
}

// isTraitDunder names the dunders lowered as trait impls rather than
// inherent methods.
func isTraitDunder(name string) bool {
	switch name {
	case "__str__", "__repr__", "__eq__", "__lt__", "__len__", "__iter__", "__next__", "__hash__":
		return true
	}
	return false
}

// emitRecordNew synthesizes the conventional constructor for records
// without an explicit __init__.
func (em *Emitter) emitRecordNew(c *hir.Class) {
	var params, inits []string
	for _, f := range c.Fields {
		rt, _ := types.MapType(f.Type)
		params = append(params, sanitizeIdent(f.Name)+": "+rt.Render())
		inits = append(inits, sanitizeIdent(f.Name))
	}
	em.linef("pub fn new(%s) -> Self {", strings.Join(params, ", "))
	em.indent++
	em.linef("Self { %s }", strings.Join(inits, ", "))
	em.indent--
	em.line("}")
}

// emitInit lowers __init__ to the new constructor: statements run
// first, then a Self literal built from the self.field stores.
func (em *Emitter) emitInit(fn *hir.Function, className string) {
	var params []string
	for _, p := range fn.Params {
		if p.Name == "self" {
			continue
		}
		params = append(params, sanitizeIdent(p.Name)+": "+em.paramTypeString(p))
	}
	em.linef("pub fn new(%s) -> Self {", strings.Join(params, ", "))
	em.indent++

	fieldInit := make(map[string]string)
	var order []string
	for _, s := range fn.Body {
		a, ok := s.(*hir.Assign)
		if ok && a.Target.Kind == hir.TargetAttr {
			if v, isVar := a.Target.Obj.(*hir.Var); isVar && v.Name == "self" {
				if _, seen := fieldInit[a.Target.Attr]; !seen {
					order = append(order, a.Target.Attr)
				}
				fieldInit[a.Target.Attr] = em.exprOwned(a.Value, a.Value.GetType())
				continue
			}
		}
		em.emitStmt(s)
	}
	var parts []string
	for _, name := range order {
		rhs := fieldInit[name]
		if rhs == sanitizeIdent(name) {
			parts = append(parts, sanitizeIdent(name))
		} else {
			parts = append(parts, sanitizeIdent(name)+": "+rhs)
		}
	}
	em.linef("Self { %s }", strings.Join(parts, ", "))
	em.indent--
	em.line("}")
}

// emitTraitImpls renders Display/PartialEq/ordering impls from the
// class's dunders.
func (em *Emitter) emitTraitImpls(c *hir.Class) {
	if m := findMethod(c, "__str__"); m != nil {
		em.blank()
		em.linef("impl std::fmt::Display for %s {", c.Name)
		em.indent++
		em.line("fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {")
		em.indent++
		em.emitDisplayBody(c, m)
		em.indent--
		em.line("}")
		em.indent--
		em.line("}")
	}
	if m := findMethod(c, "__eq__"); m != nil {
		em.blank()
		em.linef("impl PartialEq for %s {", c.Name)
		em.indent++
		em.line("fn eq(&self, other: &Self) -> bool {")
		em.indent++
		em.emitComparatorBody(c, m)
		em.indent--
		em.line("}")
		em.indent--
		em.line("}")
	}
	if m := findMethod(c, "__len__"); m != nil {
		em.blank()
		em.linef("impl %s {", c.Name)
		em.indent++
		em.line("pub fn len(&self) -> usize {")
		em.indent++
		em.emitMethodBodyAs(c, m, "usize")
		em.indent--
		em.line("}")
		em.blank()
		em.line("pub fn is_empty(&self) -> bool {")
		em.indent++
		em.line("self.len() == 0")
		em.indent--
		em.line("}")
		em.indent--
		em.line("}")
	}
}

// emitDisplayBody rewrites the __str__ body's returns through write!.
func (em *Emitter) emitDisplayBody(c *hir.Class, m *hir.Function) {
	em.withMethodContext(c, m, func() {
		for _, s := range m.Body {
			if r, ok := s.(*hir.Return); ok && r.Value != nil {
				if fs, ok := r.Value.(*hir.FString); ok {
					inner := em.fstringFormat(fs)
					em.linef("write!(f, %s)", strings.TrimSuffix(strings.TrimPrefix(inner, "format!("), ")"))
					return
				}
				em.linef("write!(f, \"{}\", %s)", em.expr(r.Value))
				return
			}
		}
		em.line("write!(f, \"\")")
	})
}

// emitComparatorBody renders a dunder comparison body, binding the
// non-self parameter to other.
func (em *Emitter) emitComparatorBody(c *hir.Class, m *hir.Function) {
	em.withMethodContext(c, m, func() {
		for _, s := range m.Body {
			if r, ok := s.(*hir.Return); ok && r.Value != nil {
				em.line(em.cond(r.Value))
				return
			}
		}
		em.line("false")
	})
}

func (em *Emitter) emitMethodBodyAs(c *hir.Class, m *hir.Function, cast string) {
	em.withMethodContext(c, m, func() {
		for _, s := range m.Body {
			if r, ok := s.(*hir.Return); ok && r.Value != nil {
				em.linef("%s as %s", em.expr(r.Value), cast)
				return
			}
		}
		em.line("0")
	})
}

// withMethodContext runs body emission with a method-scoped fnContext.
func (em *Emitter) withMethodContext(c *hir.Class, m *hir.Function, f func()) {
	saved := em.fc
	em.fc = &fnContext{
		fn:        m,
		facts:     em.facts[c.Name+"."+m.Name],
		mutLocals: map[string]bool{},
		declared:  make(map[string]bool),
		className: c.Name,
		errType:   errorTypeFor(m),
	}
	f()
	em.fc = saved
}

// emitADT renders an ABC hierarchy as one tagged enum; each child's
// fields become a struct variant, and shared methods dispatch with a
// match inside one impl.
func (em *Emitter) emitADT(c *hir.Class) {
	em.line("#[derive(Debug, Clone, PartialEq)]")
	em.linef("pub enum %s {", c.Name)
	em.indent++
	for _, childName := range c.Children {
		child := em.mod.FindClass(childName)
		if child == nil {
			continue
		}
		if len(child.Fields) == 0 {
			em.linef("%s,", childName)
			continue
		}
		var fields []string
		for _, f := range child.Fields {
			rt, _ := types.MapType(f.Type)
			fields = append(fields, sanitizeIdent(f.Name)+": "+rt.Render())
		}
		em.linef("%s { %s },", childName, strings.Join(fields, ", "))
	}
	em.indent--
	em.line("}")

	methods := em.adtMethodSet(c)
	if len(methods) == 0 {
		return
	}
	em.blank()
	em.linef("impl %s {", c.Name)
	em.indent++
	for i, name := range methods {
		if i > 0 {
			em.blank()
		}
		em.emitADTMethod(c, name)
	}
	em.indent--
	em.line("}")
}

// adtMethodSet lists methods defined on at least one child (or abstract
// on the parent), in parent-then-child declaration order.
func (em *Emitter) adtMethodSet(c *hir.Class) []string {
	var order []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] && !isDunder(name) && name != "__init__" {
			seen[name] = true
			order = append(order, name)
		}
	}
	for _, m := range c.Methods {
		add(m.Name)
	}
	for _, childName := range c.Children {
		if child := em.mod.FindClass(childName); child != nil {
			for _, m := range child.Methods {
				add(m.Name)
			}
		}
	}
	return order
}

// emitADTMethod renders one method as a match over the variants.
func (em *Emitter) emitADTMethod(c *hir.Class, name string) {
	// Use the first concrete definition for the signature.
	var sigFn *hir.Function
	for _, childName := range c.Children {
		if child := em.mod.FindClass(childName); child != nil {
			if m := findMethod(child, name); m != nil {
				sigFn = m
				break
			}
		}
	}
	if sigFn == nil {
		sigFn = findMethod(c, name)
	}
	if sigFn == nil {
		return
	}

	em.fc = &fnContext{
		fn:        sigFn,
		facts:     em.facts[c.Name+"."+name],
		mutLocals: map[string]bool{},
		declared:  make(map[string]bool),
		className: c.Name,
		errType:   errorTypeFor(sigFn),
	}
	em.line(em.signature(sigFn, c.Name))
	em.indent++
	em.line("match self {")
	em.indent++
	for _, childName := range c.Children {
		child := em.mod.FindClass(childName)
		if child == nil {
			continue
		}
		m := findMethod(child, name)
		pat := em.variantPattern(c.Name, child)
		if m == nil {
			em.linef("%s => unimplemented!(),", pat)
			continue
		}
		em.linef("%s => {", pat)
		em.indent++
		saved := em.fc
		em.fc = &fnContext{
			fn:        m,
			facts:     em.facts[childName+"."+name],
			mutLocals: map[string]bool{},
			declared:  em.fieldBindings(child),
			className: childName,
			errType:   saved.errType,
		}
		em.emitBlock(em.rewriteSelfFields(m.Body, child))
		em.fc = saved
		em.indent--
		em.line("}")
	}
	em.indent--
	em.line("}")
	em.indent--
	em.line("}")
}

func (em *Emitter) variantPattern(parent string, child *hir.Class) string {
	if len(child.Fields) == 0 {
		return parent + "::" + child.Name
	}
	var names []string
	for _, f := range child.Fields {
		names = append(names, sanitizeIdent(f.Name))
	}
	return fmt.Sprintf("%s::%s { %s }", parent, child.Name, strings.Join(names, ", "))
}

func (em *Emitter) fieldBindings(child *hir.Class) map[string]bool {
	m := make(map[string]bool, len(child.Fields))
	for _, f := range child.Fields {
		m[f.Name] = true
	}
	return m
}

// rewriteSelfFields replaces self.field reads with the names bound by
// the variant pattern.
func (em *Emitter) rewriteSelfFields(body []hir.Stmt, child *hir.Class) []hir.Stmt {
	fields := make(map[string]bool, len(child.Fields))
	for _, f := range child.Fields {
		fields[f.Name] = true
	}
	var rw func(e hir.Expr) hir.Expr
	rw = func(e hir.Expr) hir.Expr {
		if a, ok := e.(*hir.Attr); ok {
			if v, ok := a.Value.(*hir.Var); ok && v.Name == "self" && fields[a.Name] {
				nv := &hir.Var{Span: a.Span, Name: a.Name}
				nv.SetType(a.GetType())
				return nv
			}
		}
		return e
	}
	out := make([]hir.Stmt, len(body))
	for i, s := range body {
		out[i] = rewriteStmtExprs(s, rw)
	}
	return out
}

// rewriteStmtExprs maps f over the immediate expressions of a statement
// tree, rebuilding only what changes.
func rewriteStmtExprs(s hir.Stmt, f func(hir.Expr) hir.Expr) hir.Stmt {
	var re func(e hir.Expr) hir.Expr
	re = func(e hir.Expr) hir.Expr {
		if e == nil {
			return nil
		}
		e = f(e)
		switch n := e.(type) {
		case *hir.Binary:
			n.Left, n.Right = re(n.Left), re(n.Right)
		case *hir.Unary:
			n.Operand = re(n.Operand)
		case *hir.Call:
			for i := range n.Args {
				n.Args[i] = re(n.Args[i])
			}
		case *hir.MethodCall:
			n.Recv = re(n.Recv)
			for i := range n.Args {
				n.Args[i] = re(n.Args[i])
			}
		case *hir.Attr:
			n.Value = re(n.Value)
		case *hir.Index:
			n.Value, n.Idx = re(n.Value), re(n.Idx)
		case *hir.IfExpr:
			n.Cond, n.Then, n.Else = re(n.Cond), re(n.Then), re(n.Else)
		case *hir.FString:
			for i := range n.Parts {
				if n.Parts[i].Expr != nil {
					n.Parts[i].Expr = re(n.Parts[i].Expr)
				}
			}
		}
		return e
	}
	switch n := s.(type) {
	case *hir.Return:
		if n.Value != nil {
			n.Value = re(n.Value)
		}
	case *hir.Assign:
		n.Value = re(n.Value)
	case *hir.ExprStmt:
		n.Value = re(n.Value)
	case *hir.If:
		n.Cond = re(n.Cond)
		for i := range n.Then {
			n.Then[i] = rewriteStmtExprs(n.Then[i], f)
		}
		for i := range n.Else {
			n.Else[i] = rewriteStmtExprs(n.Else[i], f)
		}
	case *hir.For:
		n.Iter = re(n.Iter)
		for i := range n.Body {
			n.Body[i] = rewriteStmtExprs(n.Body[i], f)
		}
	case *hir.While:
		n.Cond = re(n.Cond)
		for i := range n.Body {
			n.Body[i] = rewriteStmtExprs(n.Body[i], f)
		}
	case *hir.AnnAssign:
		if n.Value != nil {
			n.Value = re(n.Value)
		}
	case *hir.AugAssign:
		n.Value = re(n.Value)
		if n.Target.Obj != nil {
			n.Target.Obj = re(n.Target.Obj)
		}
		if n.Target.Index != nil {
			n.Target.Index = re(n.Target.Index)
		}
	case *hir.Raise:
		if n.Exc != nil {
			n.Exc = re(n.Exc)
		}
	case *hir.Try:
		for i := range n.Body {
			n.Body[i] = rewriteStmtExprs(n.Body[i], f)
		}
		for hi := range n.Handlers {
			for i := range n.Handlers[hi].Body {
				n.Handlers[hi].Body[i] = rewriteStmtExprs(n.Handlers[hi].Body[i], f)
			}
		}
	}
	return s
}

// emitEnumClass renders a Python Enum as a fieldless Rust enum with a
// value accessor when members carry values.
func (em *Emitter) emitEnumClass(c *hir.Class) {
	em.line("#[derive(Debug, Clone, Copy, PartialEq, Eq, Hash)]")
	em.linef("pub enum %s {", c.Name)
	em.indent++
	for _, m := range c.EnumMembers {
		em.linef("%s,", variantName(m.Name))
	}
	em.indent--
	em.line("}")

	if !enumHasValues(c) {
		return
	}
	em.blank()
	em.linef("impl %s {", c.Name)
	em.indent++
	em.line(em.enumValueSignature(c))
	em.indent++
	em.line("match self {")
	em.indent++
	for _, m := range c.EnumMembers {
		em.linef("%s::%s => %s,", c.Name, variantName(m.Name), em.enumValueExpr(m.Value))
	}
	em.indent--
	em.line("}")
	em.indent--
	em.line("}")
	em.indent--
	em.line("}")
}

func enumHasValues(c *hir.Class) bool {
	for _, m := range c.EnumMembers {
		if lit, ok := m.Value.(*hir.Literal); ok {
			// auto() lowers to None; skip valueless enums.
			if lit.Kind != hir.LitNone {
				return true
			}
		}
	}
	return false
}

func (em *Emitter) enumValueSignature(c *hir.Class) string {
	for _, m := range c.EnumMembers {
		if lit, ok := m.Value.(*hir.Literal); ok && lit.Kind == hir.LitString {
			return "pub fn value(&self) -> &'static str {"
		}
	}
	return "pub fn value(&self) -> i64 {"
}

func (em *Emitter) enumValueExpr(v hir.Expr) string {
	if lit, ok := v.(*hir.Literal); ok {
		return em.literal(lit)
	}
	return "0"
}
