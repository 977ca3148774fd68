package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

func v(name string, t types.PyType) *hir.Var {
	e := &hir.Var{Name: name}
	e.SetType(t)
	return e
}

func intLit(n int64) *hir.Literal {
	e := &hir.Literal{Kind: hir.LitInt, Int: n}
	e.SetType(types.Int())
	return e
}

func strLit(s string) *hir.Literal {
	e := &hir.Literal{Kind: hir.LitString, Str: s}
	e.SetType(types.Str())
	return e
}

func param(name string, t types.PyType) *hir.Param {
	return &hir.Param{Name: name, Type: t}
}

func generate(t *testing.T, mod *hir.Module, facts map[string]*borrow.FuncFacts) string {
	t.Helper()
	diags := diagnostic.NewCollector()
	em := New(diags, mod, facts, map[string]types.PyType{})
	out, _ := em.Generate()
	return out
}

func TestOwnedStringParamSignature(t *testing.T) {
	fs := &hir.FString{Parts: []hir.FStringPart{
		{Text: "Hello, "},
		{Expr: v("name", types.Str())},
	}}
	fs.SetType(types.Str())
	fn := &hir.Function{
		Name:    "greet",
		Params:  []*hir.Param{param("name", types.Str())},
		RetType: types.Str(),
		Body:    []hir.Stmt{&hir.Return{Value: fs}},
	}
	facts := map[string]*borrow.FuncFacts{
		"greet": {Params: map[string]*borrow.ParamFacts{
			"name": {Strategy: borrow.Own},
		}},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, facts)
	assert.Contains(t, out, "fn greet(name: String) -> String {")
	assert.Contains(t, out, `return format!("Hello, {}", name);`)
}

func TestMutableBorrowAppend(t *testing.T) {
	call := &hir.MethodCall{
		Recv:   v("items", types.List(types.Int())),
		Method: "append",
		Args:   []hir.Expr{v("x", types.Int())},
	}
	call.SetType(types.NoneType())
	fn := &hir.Function{
		Name: "add_item",
		Params: []*hir.Param{
			param("items", types.List(types.Int())),
			param("x", types.Int()),
		},
		RetType: types.NoneType(),
		Body:    []hir.Stmt{&hir.ExprStmt{Value: call}},
	}
	facts := map[string]*borrow.FuncFacts{
		"add_item": {Params: map[string]*borrow.ParamFacts{
			"items": {Strategy: borrow.MutableBorrow, Mutated: true},
			"x":     {Strategy: borrow.Own},
		}},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, facts)
	assert.Contains(t, out, "fn add_item(items: &mut Vec<i64>, x: i64) {")
	assert.Contains(t, out, "items.push(x);")
}

func TestGeneratorStateMachine(t *testing.T) {
	cond := &hir.Binary{Op: "<", Left: v("i", types.Int()), Right: v("n", types.Int())}
	cond.SetType(types.Bool())
	yield := &hir.YieldExpr{Value: v("i", types.Int())}
	yield.SetType(types.Int())
	fn := &hir.Function{
		Name:        "count_gen",
		IsGenerator: true,
		Params:      []*hir.Param{param("n", types.Int())},
		RetType:     types.List(types.Int()),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "i"}, Value: intLit(0)},
			&hir.While{
				Cond: cond,
				Body: []hir.Stmt{
					&hir.ExprStmt{Value: yield},
					&hir.AugAssign{Op: "+", Target: hir.Target{Kind: hir.TargetName, Name: "i"}, Value: intLit(1)},
				},
			},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "pub struct CountGen {")
	assert.Contains(t, out, "state: u32,")
	assert.Contains(t, out, "n: i64,")
	assert.Contains(t, out, "i: i64,")
	assert.Contains(t, out, "pub fn count_gen(n: i64) -> CountGen {")
	assert.Contains(t, out, "impl Iterator for CountGen {")
	assert.Contains(t, out, "type Item = i64;")
	assert.Contains(t, out, "if !(self.i < self.n) {")
	assert.Contains(t, out, "let item = self.i;")
	assert.Contains(t, out, "self.i += 1;")
	assert.Contains(t, out, "return Some(item);")
}

func TestMainGuardWrapperDelegates(t *testing.T) {
	out := generate(t, &hir.Module{HasMainGuard: true, MainCall: "run"}, nil)
	assert.Contains(t, out, "fn main() {")
	assert.Contains(t, out, "run();")
}

func TestEnumLowersToFieldlessEnum(t *testing.T) {
	c := &hir.Class{
		Name: "Color",
		Kind: hir.ClassEnum,
		EnumMembers: []hir.EnumMember{
			{Name: "RED", Value: intLit(1)},
			{Name: "GREEN", Value: intLit(2)},
		},
	}
	out := generate(t, &hir.Module{Classes: []*hir.Class{c}}, nil)
	assert.Contains(t, out, "#[derive(Debug, Clone, Copy, PartialEq, Eq, Hash)]")
	assert.Contains(t, out, "pub enum Color {")
	assert.Contains(t, out, "Red,")
	assert.Contains(t, out, "Green,")
	assert.Contains(t, out, "pub fn value(&self) -> i64 {")
	assert.Contains(t, out, "Color::Red => 1,")
}

func TestRaiseBecomesErrReturn(t *testing.T) {
	raise := &hir.Call{Func: "ValueError", Args: []hir.Expr{strLit("bad input")}}
	raise.SetType(types.Unknown())
	fn := &hir.Function{
		Name:       "validate",
		Params:     []*hir.Param{param("n", types.Int())},
		RetType:    types.NoneType(),
		CanFail:    true,
		ErrorTypes: []string{"ValueError"},
		Body: []hir.Stmt{
			&hir.If{
				Cond: typedBinary("<", v("n", types.Int()), intLit(0), types.Bool()),
				Then: []hir.Stmt{&hir.Raise{Exc: raise}},
			},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "fn validate(n: i64) -> Result<(), ValueError> {")
	assert.Contains(t, out, `return Err(ValueError::new("bad input"));`)
	assert.Contains(t, out, "pub struct ValueError {")
	assert.Contains(t, out, "impl std::error::Error for ValueError {}")
	assert.Contains(t, out, "Ok(())")
}

func typedBinary(op string, l, r hir.Expr, t types.PyType) *hir.Binary {
	b := &hir.Binary{Op: op, Left: l, Right: r}
	b.SetType(t)
	return b
}

func TestOptionalParamRendersOption(t *testing.T) {
	fn := &hir.Function{
		Name:    "lookup",
		Params:  []*hir.Param{param("fallback", types.Optional(types.Int()))},
		RetType: types.NoneType(),
		Body:    []hir.Stmt{&hir.Pass{}},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "fn lookup(fallback: Option<i64>) {")
}

func TestCowReturnWrapsBorrowedParam(t *testing.T) {
	fn := &hir.Function{
		Name:    "pick",
		Params:  []*hir.Param{param("s", types.Str())},
		RetType: types.Str(),
		Body:    []hir.Stmt{&hir.Return{Value: v("s", types.Str())}},
	}
	facts := map[string]*borrow.FuncFacts{
		"pick": {
			Params: map[string]*borrow.ParamFacts{
				"s": {Strategy: borrow.UseCow, Lifetime: "'a", Escapes: true},
			},
			Lifetimes:      []string{"'a"},
			ReturnLifetime: "'a",
			ReturnCow:      true,
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, facts)
	assert.Contains(t, out, "fn pick<'a>(s: &'a str) -> Cow<'a, str> {")
	assert.Contains(t, out, "return Cow::Borrowed(s);")
	assert.Contains(t, out, "use std::borrow::Cow;")
}

func TestDictIterationUsesItems(t *testing.T) {
	d := types.Dict(types.Str(), types.Int())
	items := &hir.MethodCall{Recv: v("counts", d), Method: "items"}
	items.SetType(types.List(types.Tuple(types.Str(), types.Int())))
	loop := &hir.For{
		Target: hir.Target{Kind: hir.TargetTuple, Elts: []hir.Target{
			{Kind: hir.TargetName, Name: "k"},
			{Kind: hir.TargetName, Name: "val"},
		}},
		Iter: items,
		Body: []hir.Stmt{&hir.Pass{}},
	}
	fn := &hir.Function{
		Name:    "walk",
		Params:  []*hir.Param{param("counts", d)},
		RetType: types.NoneType(),
		Body:    []hir.Stmt{loop},
	}
	facts := map[string]*borrow.FuncFacts{
		"walk": {Params: map[string]*borrow.ParamFacts{
			"counts": {Strategy: borrow.SharedBorrow},
		}},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, facts)
	assert.Contains(t, out, "for (k, val) in &counts {")
}

func TestTryExceptLowersToClosureMatch(t *testing.T) {
	try := &hir.Try{
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "x"}, Value: intLit(1)},
		},
		Handlers: []hir.Handler{
			{TypeName: "ValueError", Bind: "e", Body: []hir.Stmt{&hir.Pass{}}},
		},
	}
	fn := &hir.Function{
		Name:    "guarded",
		RetType: types.NoneType(),
		Body:    []hir.Stmt{try},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "let _res1: Result<(), ValueError> = (|| {")
	assert.Contains(t, out, "Ok(())")
	assert.Contains(t, out, "match _res1 {")
	assert.Contains(t, out, "Err(e) => {")
	assert.Contains(t, out, "pub struct ValueError {")
}

func TestModuleConstants(t *testing.T) {
	mod := &hir.Module{
		Constants: []*hir.Constant{
			{Name: "max_retries", Type: types.Int(), Value: intLit(3)},
			{Name: "banner", Type: types.Str(), Value: strLit("ready")},
		},
	}
	out := generate(t, mod, nil)
	assert.Contains(t, out, "const MAX_RETRIES: i64 = 3;")
	assert.Contains(t, out, `const BANNER: &str = "ready";`)
}

func TestFixupsAreIdempotent(t *testing.T) {
	fx := &Fixups{
		EnumVariants: map[string][]string{"Color": {"RED", "GREEN"}},
		Vacuity:      map[string]string{"name.is_none()": "name.is_empty()"},
		OptionFields: []string{"args.input"},
	}
	inputs := []string{
		"let r = x.powf(0.5);",
		"if items.len() == 0 {",
		`if name == "Color.RED" {`,
		"let d: PyTimeDelta = a - b;\nlet n = d.days;",
		`let s = value.to_string().to_string();`,
		"let y = parse(x).unwrap()?;",
		"if name.is_none() {",
		"let args = Args::parse();\nif args.input.is_some() {\n    run(args.input);\n}",
	}
	for _, in := range inputs {
		once := ApplyFixups(in, fx)
		twice := ApplyFixups(once, fx)
		assert.Equal(t, once, twice, "fixups not idempotent for %q", in)
	}
}

func TestFixupRewrites(t *testing.T) {
	fx := &Fixups{EnumVariants: map[string][]string{"Color": {"RED"}}}
	assert.Equal(t, "let r = x.sqrt();", ApplyFixups("let r = x.powf(0.5);", fx))
	assert.Equal(t, "if items.is_empty() {", ApplyFixups("if items.len() == 0 {", fx))
	assert.Equal(t, "if name == Color::Red {", ApplyFixups(`if name == "Color.RED" {`, fx))
	assert.Equal(t,
		"let d: PyTimeDelta = a - b;\nlet n = d.num_days();",
		ApplyFixups("let d: PyTimeDelta = a - b;\nlet n = d.days;", fx))
}

func TestVacuityFixupRewritesRecordedTests(t *testing.T) {
	fx := &Fixups{Vacuity: map[string]string{
		"name.is_none()": "name.is_empty()",
		"name.is_some()": "!name.is_empty()",
		"n.is_none()":    "false",
	}}
	assert.Equal(t, "if name.is_empty() {", ApplyFixups("if name.is_none() {", fx))
	assert.Equal(t, "if !name.is_empty() {", ApplyFixups("if name.is_some() {", fx))
	assert.Equal(t, "if false {", ApplyFixups("if n.is_none() {", fx))
}

func TestOptionPrecomputeHoistsSingleCheck(t *testing.T) {
	fx := &Fixups{OptionFields: []string{"args.input"}}
	in := "    let args = Args::parse();\n" +
		"    if args.input.is_some() {\n" +
		"        consume(args.input);\n" +
		"    }\n" +
		"    if args.input.is_none() {\n" +
		"        fallback();\n" +
		"    }"
	out := ApplyFixups(in, fx)
	assert.Contains(t, out, "let has_input = args.input.is_some();")
	assert.Contains(t, out, "if has_input {")
	assert.Contains(t, out, "if !has_input {")
	// the hoisted let is the only surviving is_some on the field
	assert.Equal(t, 1, strings.Count(out, "args.input.is_some()"))
}

func TestADTLowersToTaggedEnum(t *testing.T) {
	area := &hir.Binary{Op: "*", Left: v("w", types.Float()), Right: v("h", types.Float())}
	area.SetType(types.Float())
	rect := &hir.Class{
		Name:   "Rect",
		Kind:   hir.ClassADTChild,
		Parent: "Shape",
		Fields: []*hir.Field{
			{Name: "w", Type: types.Float()},
			{Name: "h", Type: types.Float()},
		},
		Methods: []*hir.Function{{
			Name:     "area",
			IsMethod: true,
			Params:   []*hir.Param{param("self", types.Unknown())},
			RetType:  types.Float(),
			Body:     []hir.Stmt{&hir.Return{Value: selfAttrBinary(area)}},
		}},
	}
	shape := &hir.Class{
		Name:     "Shape",
		Kind:     hir.ClassADTParent,
		Children: []string{"Rect"},
	}
	mod := &hir.Module{Classes: []*hir.Class{shape, rect}}
	out := generate(t, mod, nil)
	require.Contains(t, out, "pub enum Shape {")
	assert.Contains(t, out, "Rect { w: f64, h: f64 },")
	assert.Contains(t, out, "impl Shape {")
	assert.Contains(t, out, "match self {")
	assert.Contains(t, out, "Shape::Rect { w, h } => {")
	assert.Contains(t, out, "return w * h;")
}

// selfAttrBinary rebuilds the body expression with self.w / self.h so
// the variant-pattern rewrite has something to strip.
func selfAttrBinary(b *hir.Binary) hir.Expr {
	selfVar := func() *hir.Var { return v("self", types.Unknown()) }
	w := &hir.Attr{Value: selfVar(), Name: "w"}
	w.SetType(types.Float())
	h := &hir.Attr{Value: selfVar(), Name: "h"}
	h.SetType(types.Float())
	nb := &hir.Binary{Op: b.Op, Left: w, Right: h}
	nb.SetType(types.Float())
	return nb
}

func TestRecordStructWithSyntheticNew(t *testing.T) {
	c := &hir.Class{
		Name: "Point",
		Kind: hir.ClassRecord,
		Fields: []*hir.Field{
			{Name: "x", Type: types.Int()},
			{Name: "y", Type: types.Int()},
		},
	}
	out := generate(t, &hir.Module{Classes: []*hir.Class{c}}, nil)
	assert.Contains(t, out, "#[derive(Debug, Clone, PartialEq, Eq, Hash)]")
	assert.Contains(t, out, "pub struct Point {")
	assert.Contains(t, out, "pub x: i64,")
	assert.Contains(t, out, "pub fn new(x: i64, y: i64) -> Self {")
	assert.Contains(t, out, "Self { x, y }")
}

func noneLit() *hir.Literal {
	e := &hir.Literal{Kind: hir.LitNone}
	e.SetType(types.NoneType())
	return e
}

func attr(base *hir.Var, name string, t types.PyType) *hir.Attr {
	e := &hir.Attr{Value: base, Name: name}
	e.SetType(t)
	return e
}

func TestNoneTestOnNonOptionRewritesToVacuity(t *testing.T) {
	cond := &hir.Binary{Op: "is", Left: v("s", types.Str()), Right: noneLit()}
	cond.SetType(types.Bool())
	fn := &hir.Function{
		Name:    "f",
		Params:  []*hir.Param{param("s", types.Str())},
		RetType: types.Int(),
		Body: []hir.Stmt{
			&hir.If{Cond: cond, Then: []hir.Stmt{&hir.Return{Value: intLit(0)}}},
			&hir.Return{Value: intLit(1)},
		},
	}
	facts := map[string]*borrow.FuncFacts{
		"f": {Params: map[string]*borrow.ParamFacts{
			"s": {Strategy: borrow.SharedBorrow},
		}},
	}
	diags := diagnostic.NewCollector()
	em := New(diags, &hir.Module{Functions: []*hir.Function{fn}}, facts, map[string]types.PyType{})
	out, _ := em.Generate()
	assert.Contains(t, out, "if s.is_empty() {")
	assert.NotContains(t, out, "s.is_none()")
	assert.Equal(t, 1, diags.CountAtOrAbove(diagnostic.LevelWarning))
}

func TestNoneTestOnIntBecomesConstant(t *testing.T) {
	cond := &hir.Binary{Op: "is not", Left: v("n", types.Int()), Right: noneLit()}
	cond.SetType(types.Bool())
	fn := &hir.Function{
		Name:    "g",
		Params:  []*hir.Param{param("n", types.Int())},
		RetType: types.Int(),
		Body: []hir.Stmt{
			&hir.If{Cond: cond, Then: []hir.Stmt{&hir.Return{Value: v("n", types.Int())}}},
			&hir.Return{Value: intLit(0)},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "if true {")
}

func TestHeterogeneousListFallsBackToPyValue(t *testing.T) {
	lst := &hir.ListLit{Elems: []hir.Expr{intLit(1), strLit("a")}}
	lst.SetType(types.List(types.Unknown()))
	fn := &hir.Function{
		Name: "mixed", RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "xs"}, Value: lst},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, `vec![PyValue::Int(1), PyValue::Str("a".to_string())]`)
	assert.Contains(t, out, "pub enum PyValue {")
}

func TestRegexSearchCapturesIntoMatchShim(t *testing.T) {
	search := &hir.Call{Func: "re.search", Args: []hir.Expr{strLit("a+"), v("s", types.Str())}}
	search.SetType(types.Optional(types.Custom("Match")))
	fn := &hir.Function{
		Name:    "find_a",
		RetType: types.NoneType(),
		Params: []*hir.Param{param("s", types.Str())},
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "m"}, Value: search},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, `.captures(s).map(PyMatch::from)`)
	assert.Contains(t, out, "groups: Vec<Option<(usize, usize, String)>>")
	assert.Contains(t, out, "pub fn span(&self, idx: i64)")
	assert.Contains(t, out, "impl From<regex::Captures<'_>> for PyMatch")
}

func TestMatchGroupTakesIndex(t *testing.T) {
	call := &hir.MethodCall{Recv: v("m", types.Custom("Match")), Method: "group", Args: []hir.Expr{intLit(1)}}
	call.SetType(types.Str())
	fn := &hir.Function{
		Name: "grab", RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "g"}, Value: call},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "m.group(1)")
}

func TestHashlibConstructorsAndMethods(t *testing.T) {
	mk := &hir.Call{Func: "hashlib.sha512"}
	mk.SetType(types.Custom("Hasher"))
	upd := &hir.MethodCall{Recv: v("h", types.Custom("Hasher")), Method: "update", Args: []hir.Expr{v("data", types.Bytes())}}
	upd.SetType(types.NoneType())
	hexd := &hir.MethodCall{Recv: v("h", types.Custom("Hasher")), Method: "hexdigest"}
	hexd.SetType(types.Str())
	fn := &hir.Function{
		Name:    "digest_of",
		RetType: types.NoneType(),
		Params: []*hir.Param{param("data", types.Bytes())},
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "h"}, Value: mk},
			&hir.ExprStmt{Value: upd},
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "out"}, Value: hexd},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "sha2::Sha512::new()")
	assert.Contains(t, out, "sha2::Digest::update(&mut h, data)")
	assert.Contains(t, out, `format!("{:x}", sha2::Digest::finalize(h.clone()))`)
}

func TestHashlibNewWithLiteralNameFolds(t *testing.T) {
	mk := &hir.Call{Func: "hashlib.new", Args: []hir.Expr{strLit("md5")}}
	mk.SetType(types.Custom("Hasher"))
	fn := &hir.Function{
		Name: "pick", RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "h"}, Value: mk},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "md5::Md5::new()")
}

func TestStringMethodTableAdditions(t *testing.T) {
	mk := func(method string, args ...hir.Expr) hir.Stmt {
		call := &hir.MethodCall{Recv: v("s", types.Str()), Method: method, Args: args}
		call.SetType(types.Str())
		return &hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "r_" + method}, Value: call}
	}
	fn := &hir.Function{
		Name:    "shape",
		RetType: types.NoneType(),
		Params: []*hir.Param{param("s", types.Str())},
		Body: []hir.Stmt{
			mk("center", intLit(10)),
			mk("removeprefix", strLit("ab")),
			mk("removesuffix", strLit("yz")),
			mk("expandtabs"),
			mk("partition", strLit(":")),
			mk("rfind", strLit("x")),
			mk("rsplit", strLit(",")),
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, `format!("{:^width$}", s, width = 10 as usize)`)
	assert.Contains(t, out, `s.strip_prefix("ab").unwrap_or(&s).to_string()`)
	assert.Contains(t, out, `s.strip_suffix("yz").unwrap_or(&s).to_string()`)
	assert.Contains(t, out, `s.replace('\t', "        ")`)
	assert.Contains(t, out, `s.find(sep.as_str())`)
	assert.Contains(t, out, `s.rfind("x").map(|i| i as i64).unwrap_or(-1)`)
	assert.Contains(t, out, `s.rsplit(",")`)
}

func TestSysArgvAndPlatformAttrs(t *testing.T) {
	fn := &hir.Function{
		Name: "env_info", RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "argv"},
				Value: attr(v("sys", types.Unknown()), "argv", types.List(types.Str()))},
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "plat"},
				Value: attr(v("sys", types.Unknown()), "platform", types.Str())},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "std::env::args().collect::<Vec<String>>()")
	assert.Contains(t, out, "std::env::consts::OS.to_string()")
}

func TestColorsysCallUsesPreludeShim(t *testing.T) {
	conv := &hir.Call{Func: "colorsys.rgb_to_hsv", Args: []hir.Expr{
		v("r", types.Float()), v("g", types.Float()), v("b", types.Float()),
	}}
	conv.SetType(types.Tuple(types.Float(), types.Float(), types.Float()))
	fn := &hir.Function{
		Name: "to_hsv", RetType: types.NoneType(),
		Params: []*hir.Param{
			param("r", types.Float()), param("g", types.Float()), param("b", types.Float()),
		},
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "hsv"}, Value: conv},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, "rgb_to_hsv(r, g, b)")
	assert.Contains(t, out, "fn rgb_to_hsv(r: f64, g: f64, b: f64) -> (f64, f64, f64) {")
	assert.Contains(t, out, "fn hls_to_rgb(h: f64, l: f64, s: f64) -> (f64, f64, f64) {")
}

func TestPathMethodsRewriteToStdFs(t *testing.T) {
	mk := &hir.Call{Func: "Path", Args: []hir.Expr{strLit("notes.txt")}}
	mk.SetType(types.Custom("Path"))
	read := &hir.MethodCall{Recv: v("p", types.Custom("Path")), Method: "read_text"}
	read.SetType(types.Str())
	res := &hir.MethodCall{Recv: v("p", types.Custom("Path")), Method: "resolve"}
	res.SetType(types.Custom("Path"))
	fn := &hir.Function{
		Name: "load", RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "p"}, Value: mk},
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "text"}, Value: read},
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "full"}, Value: res},
		},
	}
	out := generate(t, &hir.Module{Functions: []*hir.Function{fn}}, nil)
	assert.Contains(t, out, `std::path::PathBuf::from("notes.txt")`)
	assert.Contains(t, out, "std::fs::read_to_string(&p).unwrap()")
	assert.Contains(t, out, "p.canonicalize().unwrap()")
}

func TestArgparseLowersToClapDerive(t *testing.T) {
	nameAssign := func(name string, value hir.Expr) hir.Stmt {
		return &hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: name}, Value: value}
	}
	ctor := &hir.Call{Func: "argparse.ArgumentParser", Kwargs: []hir.Kwarg{
		{Name: "description", Value: strLit("demo tool")},
	}}
	ctor.SetType(types.Unknown())
	addVerbose := &hir.MethodCall{
		Recv: v("parser", types.Unknown()), Method: "add_argument",
		Args:   []hir.Expr{strLit("--verbose")},
		Kwargs: []hir.Kwarg{{Name: "action", Value: strLit("store_true")}},
	}
	addVerbose.SetType(types.Unknown())
	subparsers := &hir.MethodCall{
		Recv: v("parser", types.Unknown()), Method: "add_subparsers",
		Kwargs: []hir.Kwarg{{Name: "dest", Value: strLit("command")}},
	}
	subparsers.SetType(types.Unknown())
	addBuild := &hir.MethodCall{
		Recv: v("subparsers", types.Unknown()), Method: "add_parser",
		Args: []hir.Expr{strLit("build")},
	}
	addBuild.SetType(types.Unknown())
	addTarget := &hir.MethodCall{
		Recv: v("build_p", types.Unknown()), Method: "add_argument",
		Args:   []hir.Expr{strLit("--target")},
		Kwargs: []hir.Kwarg{{Name: "type", Value: v("str", types.Unknown())}},
	}
	addTarget.SetType(types.Unknown())
	parse := &hir.MethodCall{Recv: v("parser", types.Unknown()), Method: "parse_args"}
	parse.SetType(types.Unknown())

	check := &hir.Binary{
		Op:    "==",
		Left:  attr(v("args", types.Unknown()), "command", types.Str()),
		Right: strLit("build"),
	}
	check.SetType(types.Bool())
	armBody := []hir.Stmt{
		nameAssign("t", attr(v("args", types.Unknown()), "target", types.Unknown())),
	}

	main := &hir.Function{
		Name: "main", RetType: types.NoneType(),
		Body: []hir.Stmt{
			nameAssign("parser", ctor),
			&hir.ExprStmt{Value: addVerbose},
			nameAssign("subparsers", subparsers),
			nameAssign("build_p", addBuild),
			&hir.ExprStmt{Value: addTarget},
			nameAssign("args", parse),
			&hir.If{Cond: check, Then: armBody},
		},
	}
	mod := &hir.Module{
		Imports:   []*hir.Import{{Module: "argparse"}},
		Functions: []*hir.Function{main},
	}
	diags := diagnostic.NewCollector()
	em := New(diags, mod, nil, map[string]types.PyType{})
	out, needs := em.Generate()

	assert.True(t, needs.Clap)
	assert.Contains(t, out, "use clap::Parser;")
	assert.Contains(t, out, "#[derive(clap::Parser, Debug)]")
	assert.Contains(t, out, `#[command(about = "demo tool")]`)
	assert.Contains(t, out, "struct Args {")
	assert.Contains(t, out, "#[arg(long)]")
	assert.Contains(t, out, "verbose: bool,")
	assert.Contains(t, out, "#[command(subcommand)]")
	assert.Contains(t, out, "command: Option<Commands>,")
	assert.Contains(t, out, "#[derive(clap::Subcommand, Debug)]")
	assert.Contains(t, out, "enum Commands {")
	assert.Contains(t, out, "Build {")
	assert.Contains(t, out, "target: Option<String>,")
	assert.Contains(t, out, "let args = Args::parse();")
	assert.Contains(t, out, "match &args.command {")
	assert.Contains(t, out, "Some(Commands::Build { target }) => {")
	assert.Contains(t, out, "let target = target.clone();")
	// arm bodies resolve args.<field> to the destructured local
	assert.Contains(t, out, "let t = target;")
	// none of the parser-building statements leak through
	assert.NotContains(t, out, "argparse")
	assert.NotContains(t, out, "add_argument")
	assert.NotContains(t, out, "parse_args")
}

func TestArgparseImportAloneDoesNotRequestClap(t *testing.T) {
	fn := &hir.Function{
		Name: "main", RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.Assign{Target: hir.Target{Kind: hir.TargetName, Name: "x"}, Value: intLit(1)},
		},
	}
	mod := &hir.Module{
		Imports:   []*hir.Import{{Module: "argparse"}},
		Functions: []*hir.Function{fn},
	}
	diags := diagnostic.NewCollector()
	em := New(diags, mod, nil, map[string]types.PyType{})
	_, needs := em.Generate()
	assert.False(t, needs.Clap)
}
