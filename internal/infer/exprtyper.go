package infer

import (
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// scope is the per-function var_types table. Shadowing inside nested
// blocks is not modeled; the subset treats a function as one flat scope,
// matching Python's own function-level binding.
type scope struct {
	vars map[string]types.PyType
}

func newScope() *scope {
	return &scope{vars: make(map[string]types.PyType)}
}

func (s *scope) bind(name string, t types.PyType) {
	if name == "" || name == "_" {
		return
	}
	prev, ok := s.vars[name]
	if !ok || prev.IsUnknown() {
		s.vars[name] = t
		return
	}
	if merged, ok := types.Unify(prev, t); ok {
		s.vars[name] = merged
	}
}

func (s *scope) lookup(name string) types.PyType {
	if t, ok := s.vars[name]; ok {
		return t
	}
	return types.Unknown()
}

// exprTyper walks a body forward, typing every expression node and
// binding assignment targets as it goes.
type exprTyper struct {
	in    *Inferencer
	scope *scope
	reg   *typeVarRegistry
}

func (et *exprTyper) typeBlock(stmts []hir.Stmt) {
	for _, s := range stmts {
		et.typeStmt(s)
	}
}

func (et *exprTyper) typeStmt(s hir.Stmt) {
	switch n := s.(type) {
	case *hir.Assign:
		t := et.typeExpr(n.Value)
		et.bindTarget(n.Target, t)
	case *hir.AnnAssign:
		if n.Value != nil {
			et.typeExpr(n.Value)
		}
		et.bindTarget(n.Target, n.Type)
	case *hir.AugAssign:
		t := et.typeExpr(n.Value)
		for _, name := range n.Target.Names() {
			cur := et.scope.lookup(name)
			if cur.IsUnknown() {
				et.scope.bind(name, t)
			}
		}
	case *hir.Return:
		if n.Value != nil {
			et.typeExpr(n.Value)
		}
	case *hir.If:
		et.typeExpr(n.Cond)
		et.typeBlock(n.Then)
		et.typeBlock(n.Else)
	case *hir.While:
		et.typeExpr(n.Cond)
		et.typeBlock(n.Body)
	case *hir.For:
		iter := et.typeExpr(n.Iter)
		et.bindLoopTarget(n.Target, n.Iter, iter)
		et.typeBlock(n.Body)
	case *hir.Try:
		et.typeBlock(n.Body)
		for _, h := range n.Handlers {
			if h.Bind != "" {
				et.scope.bind(h.Bind, types.Custom(h.TypeName))
			}
			et.typeBlock(h.Body)
		}
		et.typeBlock(n.Else)
		et.typeBlock(n.Finally)
	case *hir.With:
		for _, item := range n.Items {
			t := et.typeExpr(item.Ctx)
			if item.Bind != "" {
				et.scope.bind(item.Bind, t)
			}
		}
		et.typeBlock(n.Body)
	case *hir.Raise:
		if n.Exc != nil {
			et.typeExpr(n.Exc)
		}
	case *hir.Assert:
		et.typeExpr(n.Test)
		if n.Msg != nil {
			et.typeExpr(n.Msg)
		}
	case *hir.ExprStmt:
		et.typeExpr(n.Value)
	case *hir.NestedFunc:
		// Typed in its own pass; the name binds as a callable.
		var params []types.PyType
		for _, p := range n.Fn.Params {
			params = append(params, p.Type)
		}
		et.scope.bind(n.Fn.Name, types.Callable(params, n.Fn.RetType))
	}
}

// bindTarget destructures value's type onto the target names.
func (et *exprTyper) bindTarget(t hir.Target, valType types.PyType) {
	switch t.Kind {
	case hir.TargetName:
		et.scope.bind(t.Name, valType)
	case hir.TargetTuple:
		if valType.Kind == types.KindTuple && len(valType.Items) == len(t.Elts) {
			for i, e := range t.Elts {
				et.bindTarget(e, valType.Items[i])
			}
			return
		}
		elem := valType.ElemType()
		for _, e := range t.Elts {
			et.bindTarget(e, elem)
		}
	case hir.TargetIndex:
		et.typeExpr(t.Obj)
		et.typeExpr(t.Index)
	case hir.TargetAttr:
		et.typeExpr(t.Obj)
	}
}

// bindLoopTarget binds for-loop targets, with dedicated handling for
// enumerate/zip/dict-items iteration shapes.
func (et *exprTyper) bindLoopTarget(t hir.Target, iter hir.Expr, iterType types.PyType) {
	if call, ok := iter.(*hir.Call); ok {
		switch call.Func {
		case "enumerate":
			if t.Kind == hir.TargetTuple && len(t.Elts) == 2 && len(call.Args) > 0 {
				elem := et.typeExpr(call.Args[0]).ElemType()
				et.bindTarget(t.Elts[0], types.Int())
				et.bindTarget(t.Elts[1], elem)
				return
			}
		case "zip":
			if t.Kind == hir.TargetTuple && len(t.Elts) == len(call.Args) {
				for i, arg := range call.Args {
					et.bindTarget(t.Elts[i], et.typeExpr(arg).ElemType())
				}
				return
			}
		case "range":
			et.bindTarget(t, types.Int())
			return
		}
	}
	if mc, ok := iter.(*hir.MethodCall); ok && mc.Method == "items" {
		recv := et.typeExpr(mc.Recv)
		if recv.Kind == types.KindDict && t.Kind == hir.TargetTuple && len(t.Elts) == 2 {
			et.bindTarget(t.Elts[0], deref(recv.Key))
			et.bindTarget(t.Elts[1], recv.ElemType())
			return
		}
	}
	if iterType.Kind == types.KindDict {
		// Bare dict iteration yields keys.
		et.bindTarget(t, deref(iterType.Key))
		return
	}
	et.bindTarget(t, iterType.ElemType())
}

// typeExpr computes and stores the type of e, recursing into children.
func (et *exprTyper) typeExpr(e hir.Expr) types.PyType {
	t := et.computeType(e)
	e.SetType(t)
	return t
}

func (et *exprTyper) computeType(e hir.Expr) types.PyType {
	switch n := e.(type) {
	case *hir.Literal:
		return literalPyType(n)
	case *hir.Var:
		return et.scope.lookup(n.Name)
	case *hir.Binary:
		return et.typeBinary(n)
	case *hir.Unary:
		inner := et.typeExpr(n.Operand)
		if n.Op == "not" {
			return types.Bool()
		}
		return inner
	case *hir.Call:
		return et.typeCall(n)
	case *hir.MethodCall:
		recv := et.typeExpr(n.Recv)
		for _, a := range n.Args {
			et.typeExpr(a)
		}
		for _, k := range n.Kwargs {
			et.typeExpr(k.Value)
		}
		if recv.Kind == types.KindCustom {
			if t, ok := et.in.returns[recv.Name+"."+n.Method]; ok {
				return t
			}
		}
		return methodReturnType(recv, n.Method, len(n.Args))
	case *hir.Attr:
		obj := et.typeExpr(n.Value)
		if obj.Kind == types.KindCustom {
			if fields, ok := et.in.classFields[obj.Name]; ok {
				if ft, ok := fields[n.Name]; ok {
					return ft
				}
			}
		}
		return types.Unknown()
	case *hir.Index:
		return et.typeIndex(n)
	case *hir.Slice:
		t := et.typeExpr(n.Value)
		for _, b := range []hir.Expr{n.Lower, n.Upper, n.Step} {
			if b != nil {
				et.typeExpr(b)
			}
		}
		// Slicing preserves the container type.
		return t
	case *hir.IfExpr:
		et.typeExpr(n.Cond)
		a := et.typeExpr(n.Then)
		b := et.typeExpr(n.Else)
		return lub(a, b)
	case *hir.Walrus:
		t := et.typeExpr(n.Value)
		et.scope.bind(n.Name, t)
		return t
	case *hir.Lambda:
		saved := make(map[string]types.PyType, len(n.Params))
		for _, p := range n.Params {
			if old, ok := et.scope.vars[p.Name]; ok {
				saved[p.Name] = old
			}
			et.scope.vars[p.Name] = p.Type
		}
		ret := et.typeExpr(n.Body)
		var params []types.PyType
		for _, p := range n.Params {
			params = append(params, et.scope.lookup(p.Name))
			delete(et.scope.vars, p.Name)
		}
		for k, v := range saved {
			et.scope.vars[k] = v
		}
		return types.Callable(params, ret)
	case *hir.ListLit:
		return types.List(et.elemLub(n.Elems))
	case *hir.SetLit:
		return types.Set(et.elemLub(n.Elems))
	case *hir.TupleLit:
		items := make([]types.PyType, len(n.Elems))
		for i, el := range n.Elems {
			items[i] = et.typeExpr(el)
		}
		return types.Tuple(items...)
	case *hir.DictLit:
		key := et.elemLub(n.Keys)
		val := et.elemLub(n.Values)
		return types.Dict(key, val)
	case *hir.Starred:
		return et.typeExpr(n.Value)
	case *hir.Comp:
		return et.typeComp(n)
	case *hir.FString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				et.typeExpr(p.Expr)
			}
		}
		return types.Str()
	case *hir.AwaitExpr:
		return et.typeExpr(n.Value)
	case *hir.YieldExpr:
		if n.Value != nil {
			et.typeExpr(n.Value)
		}
		return types.NoneType()
	case *hir.YieldFrom:
		et.typeExpr(n.Value)
		return types.NoneType()
	}
	return types.Unknown()
}

func (et *exprTyper) elemLub(elems []hir.Expr) types.PyType {
	out := types.Unknown()
	for _, el := range elems {
		out = lub(out, et.typeExpr(el))
	}
	return out
}

func (et *exprTyper) typeBinary(n *hir.Binary) types.PyType {
	l := et.typeExpr(n.Left)
	r := et.typeExpr(n.Right)
	switch n.Op {
	case "==", "!=", "<", "<=", ">", ">=", "in", "not in", "is", "is not":
		et.reg.observe(l, r)
		return types.Bool()
	case "and", "or":
		return lub(l, r)
	case "https://fd-gally.netlify.app/hf/":
		return types.Float()
	case "//":
		if l.Kind == types.KindFloat || r.Kind == types.KindFloat {
			return types.Float()
		}
		return types.Int()
	case "+":
		if l.Kind == types.KindString || r.Kind == types.KindString {
			return types.Str()
		}
		if l.Kind == types.KindList {
			return l
		}
		return numericLub(l, r)
	case "*":
		if l.Kind == types.KindString || l.Kind == types.KindList {
			return l
		}
		if r.Kind == types.KindString || r.Kind == types.KindList {
			return r
		}
		return numericLub(l, r)
	case "%":
		if l.Kind == types.KindString {
			return types.Str()
		}
		return numericLub(l, r)
	case "-", "**", "&", "|", "^", "<<", ">>":
		if n.Op == "|" && l.Kind == types.KindSet {
			return l
		}
		if n.Op == "&" && l.Kind == types.KindSet {
			return l
		}
		return numericLub(l, r)
	}
	return types.Unknown()
}

func (et *exprTyper) typeIndex(n *hir.Index) types.PyType {
	obj := et.typeExpr(n.Value)
	et.typeExpr(n.Idx)
	switch obj.Kind {
	case types.KindDict:
		return obj.ElemType()
	case types.KindList, types.KindSet, types.KindFrozenSet:
		return obj.ElemType()
	case types.KindString:
		return types.Str()
	case types.KindBytes:
		return types.Int()
	case types.KindTuple:
		if lit, ok := n.Idx.(*hir.Literal); ok && lit.Kind == hir.LitInt {
			i := int(lit.Int)
			if i < 0 {
				i += len(obj.Items)
			}
			if i >= 0 && i < len(obj.Items) {
				return obj.Items[i]
			}
		}
	}
	return types.Unknown()
}

func (et *exprTyper) typeComp(n *hir.Comp) types.PyType {
	for _, cl := range n.Clauses {
		iter := et.typeExpr(cl.Iter)
		et.bindLoopTarget(cl.Target, cl.Iter, iter)
		for _, c := range cl.Conds {
			et.typeExpr(c)
		}
	}
	switch n.Kind {
	case hir.CompDict:
		return types.Dict(et.typeExpr(n.Key), et.typeExpr(n.Value))
	case hir.CompSet:
		return types.Set(et.typeExpr(n.Elt))
	default:
		// Generator expressions type as their materialized list; the
		// emitter keeps them lazy.
		return types.List(et.typeExpr(n.Elt))
	}
}

func (et *exprTyper) typeCall(n *hir.Call) types.PyType {
	var argTypes []types.PyType
	for _, a := range n.Args {
		argTypes = append(argTypes, et.typeExpr(a))
	}
	for _, k := range n.Kwargs {
		et.typeExpr(k.Value)
	}
	if n.FuncExpr != nil {
		ft := et.typeExpr(n.FuncExpr)
		if ft.Kind == types.KindCallable && ft.Ret != nil {
			return deref(ft.Ret)
		}
		return types.Unknown()
	}
	if t, ok := builtinReturnType(n.Func, argTypes); ok {
		return t
	}
	if et.in.mod != nil && et.in.mod.FindClass(n.Func) != nil {
		return types.Custom(n.Func)
	}
	if t, ok := et.in.returns[n.Func]; ok {
		return t
	}
	if t, ok := moduleCallReturnType(n.Func); ok {
		return t
	}
	// A local holding a callable, called directly.
	ft := et.scope.lookup(n.Func)
	if ft.Kind == types.KindCallable && ft.Ret != nil {
		return deref(ft.Ret)
	}
	return types.Unknown()
}

// moduleCallReturnType covers dotted stdlib calls the expression typer
// must understand; the full rewrite catalog lives in the emitter.
func moduleCallReturnType(name string) (types.PyType, bool) {
	switch name {
	case "math.sqrt", "math.sin", "math.cos", "math.tan", "math.log",
		"math.exp", "math.pow", "math.floor", "math.ceil", "math.fabs",
		"time.time", "random.random", "random.uniform":
		return types.Float(), true
	case "random.randint", "os.getpid":
		return types.Int(), true
	case "json.dumps", "os.getcwd":
		return types.Str(), true
	case "json.loads":
		return types.Unknown(), true
	case "datetime.datetime.now", "datetime.date.today":
		return types.Custom("datetime"), true
	case "re.compile":
		return types.Custom("Regex"), true
	case "re.match", "re.search", "re.fullmatch":
		return types.Optional(types.Custom("Match")), true
	case "re.findall":
		return types.List(types.Str()), true
	case "re.sub":
		return types.Str(), true
	case "sys.stdout", "sys.stderr":
		return types.Custom("Stdout"), true
	case "hashlib.sha256", "hashlib.sha512", "hashlib.md5",
		"hashlib.blake2b", "hashlib.blake2s", "hashlib.new":
		return types.Custom("Hasher"), true
	case "pathlib.Path":
		return types.Custom("Path"), true
	case "time.monotonic", "time.perf_counter", "random.gauss":
		return types.Float(), true
	case "colorsys.rgb_to_hsv", "colorsys.hsv_to_rgb", "colorsys.rgb_to_hls",
		"colorsys.hls_to_rgb", "colorsys.rgb_to_yiq", "colorsys.yiq_to_rgb":
		return types.Tuple(types.Float(), types.Float(), types.Float()), true
	}
	if strings.HasPrefix(name, "math.") {
		return types.Float(), true
	}
	return types.Unknown(), false
}

func literalPyType(n *hir.Literal) types.PyType {
	switch n.Kind {
	case hir.LitInt:
		return types.Int()
	case hir.LitFloat:
		return types.Float()
	case hir.LitString:
		return types.Str()
	case hir.LitBytes:
		return types.Bytes()
	case hir.LitBool:
		return types.Bool()
	case hir.LitNone:
		return types.NoneType()
	}
	return types.Unknown()
}

// lub is the least-upper-bound used throughout inference: Unify when it
// succeeds, Union canonicalization otherwise.
func lub(a, b types.PyType) types.PyType {
	if a.IsUnknown() {
		return b
	}
	if b.IsUnknown() {
		return a
	}
	if merged, ok := types.Unify(a, b); ok {
		return merged
	}
	return types.CanonicalizeUnion([]types.PyType{a, b})
}

func numericLub(a, b types.PyType) types.PyType {
	if a.Kind == types.KindFloat || b.Kind == types.KindFloat {
		return types.Float()
	}
	if a.Kind == types.KindInt || b.Kind == types.KindInt {
		return types.Int()
	}
	return lub(a, b)
}

func deref(p *types.PyType) types.PyType {
	if p == nil {
		return types.Unknown()
	}
	return *p
}
