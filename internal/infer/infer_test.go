package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/position"
	"github.com/pyrs-lang/pyrs/internal/types"
)

func span() position.Span {
	p := position.Position{Filename: "t.py", Line: 1, Column: 1, Offset: 0}
	return position.Span{Start: p, End: p}
}

func param(name string) *hir.Param {
	return &hir.Param{Span: span(), Name: name, Type: types.Unknown()}
}

func intLit(v int64) *hir.Literal {
	return &hir.Literal{Span: span(), Kind: hir.LitInt, Int: v}
}

func strLit(s string) *hir.Literal {
	return &hir.Literal{Span: span(), Kind: hir.LitString, Str: s}
}

func variable(name string) *hir.Var { return &hir.Var{Span: span(), Name: name} }

func ret(e hir.Expr) *hir.Return { return &hir.Return{Span: span(), Value: e} }

func runOne(fn *hir.Function) (*hir.Module, *diagnostic.Collector) {
	diags := diagnostic.NewCollector()
	mod := &hir.Module{Functions: []*hir.Function{fn}}
	New(diags).Run(mod)
	return mod, diags
}

func TestStringMethodEvidence(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "shout",
		Params: []*hir.Param{param("s")},
		Body: []hir.Stmt{ret(&hir.MethodCall{
			Span: span(), Recv: variable("s"), Method: "upper",
		})},
	}
	runOne(fn)
	assert.Equal(t, "str", fn.Params[0].Type.String())
	assert.Equal(t, "str", fn.RetType.String())
}

func TestArithmeticEvidencePromotesToFloat(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "scale",
		Params: []*hir.Param{param("x")},
		Body: []hir.Stmt{ret(&hir.Binary{
			Span: span(), Op: "*", Left: variable("x"),
			Right: &hir.Literal{Span: span(), Kind: hir.LitFloat, Float: 2.5},
		})},
	}
	runOne(fn)
	assert.Equal(t, types.KindFloat, fn.Params[0].Type.Kind)
	assert.Equal(t, types.KindFloat, fn.RetType.Kind)
}

func TestNoneDefaultKeepsOptionalWrapper(t *testing.T) {
	p := &hir.Param{
		Span: span(), Name: "n",
		Type:    types.Optional(types.Unknown()),
		Default: &hir.Literal{Span: span(), Kind: hir.LitNone},
	}
	fn := &hir.Function{
		Span: span(), Name: "f",
		Params: []*hir.Param{p},
		Body: []hir.Stmt{ret(&hir.Binary{
			Span: span(), Op: "+", Left: variable("n"), Right: intLit(1),
		})},
	}
	runOne(fn)
	assert.Equal(t, "Optional[int]", p.Type.String())
}

func TestReturnWithNoneBranchIsOptional(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "lookup",
		Params: []*hir.Param{
			{Span: span(), Name: "d", Type: types.Dict(types.Str(), types.Int()), Annotated: true},
			{Span: span(), Name: "k", Type: types.Str(), Annotated: true},
		},
		Body: []hir.Stmt{
			&hir.If{
				Span: span(),
				Cond: &hir.Binary{Span: span(), Op: "in", Left: variable("k"), Right: variable("d")},
				Then: []hir.Stmt{ret(&hir.Index{Span: span(), Value: variable("d"), Idx: variable("k")})},
			},
			ret(&hir.Literal{Span: span(), Kind: hir.LitNone}),
		},
	}
	runOne(fn)
	assert.Equal(t, "Optional[int]", fn.RetType.String())
}

func TestAllNoneReturnsIsUnit(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "log_it",
		Body: []hir.Stmt{&hir.Return{Span: span()}},
	}
	runOne(fn)
	assert.Equal(t, types.KindNone, fn.RetType.Kind)
}

func TestReturnTableSeesEarlierFunctions(t *testing.T) {
	f := &hir.Function{
		Span: span(), Name: "base",
		Body: []hir.Stmt{ret(intLit(7))},
	}
	g := &hir.Function{
		Span: span(), Name: "wrap",
		Body: []hir.Stmt{ret(&hir.Call{Span: span(), Func: "base"})},
	}
	diags := diagnostic.NewCollector()
	in := New(diags)
	in.Run(&hir.Module{Functions: []*hir.Function{f, g}})
	assert.Equal(t, types.KindInt, g.RetType.Kind)
	assert.Equal(t, types.KindInt, in.Returns()["wrap"].Kind)
}

func TestConflictingEvidenceKeepsFirstAndWarns(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "confused",
		Params: []*hir.Param{param("x")},
		Body: []hir.Stmt{
			&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{Span: span(), Recv: variable("x"), Method: "upper"}},
			&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{Span: span(), Recv: variable("x"), Method: "append", Args: []hir.Expr{intLit(1)}}},
		},
	}
	_, diags := runOne(fn)
	assert.Equal(t, types.KindString, fn.Params[0].Type.Kind, "first evidence wins")
	require.NotZero(t, diags.Len())
	assert.Equal(t, diagnostic.KindTypeConflict, diags.All()[0].Kind)
}

func TestGenericOnlyUseGetsSyntheticTypeVar(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "size",
		Params: []*hir.Param{param("items")},
		Body: []hir.Stmt{ret(&hir.Call{
			Span: span(), Func: "len", Args: []hir.Expr{variable("items")},
		})},
	}
	runOne(fn)
	assert.Equal(t, types.KindTypeVar, fn.Params[0].Type.Kind)
	assert.Equal(t, types.KindInt, fn.RetType.Kind)
}

func TestTypeVarSubstitutionFromComparison(t *testing.T) {
	p := &hir.Param{Span: span(), Name: "x", Type: types.TypeVar("T"), Annotated: true}
	fn := &hir.Function{
		Span: span(), Name: "is_hello",
		Params: []*hir.Param{p},
		Body: []hir.Stmt{ret(&hir.Binary{
			Span: span(), Op: "==", Left: variable("x"), Right: strLit("hello"),
		})},
	}
	runOne(fn)
	assert.Equal(t, types.KindString, p.Type.Kind, "T resolved to str leaves no generic parameter")
}

func TestADTChildReturnRewritesToParent(t *testing.T) {
	circle := &hir.Class{Span: span(), Name: "Circle", Kind: hir.ClassADTChild, Parent: "Shape"}
	shape := &hir.Class{Span: span(), Name: "Shape", Kind: hir.ClassADTParent, Children: []string{"Circle"}}
	fn := &hir.Function{
		Span: span(), Name: "make_circle",
		Body: []hir.Stmt{ret(&hir.Call{Span: span(), Func: "Circle", Args: []hir.Expr{intLit(1)}})},
	}
	diags := diagnostic.NewCollector()
	New(diags).Run(&hir.Module{
		Functions: []*hir.Function{fn},
		Classes:   []*hir.Class{shape, circle},
	})
	require.Equal(t, types.KindCustom, fn.RetType.Kind)
	assert.Equal(t, "Shape", fn.RetType.Name)
}

func TestGeneratorReturnsListOfYielded(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "gen",
		IsGenerator: true,
		Body: []hir.Stmt{&hir.ExprStmt{Span: span(), Value: &hir.YieldExpr{
			Span: span(), Value: intLit(1),
		}}},
	}
	runOne(fn)
	assert.Equal(t, "list[int]", fn.RetType.String())
}

func TestMixedIOSinksBoxTheReturn(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "sink",
		Params: []*hir.Param{{Span: span(), Name: "to_file", Type: types.Bool(), Annotated: true}},
		Body: []hir.Stmt{
			&hir.If{
				Span: span(), Cond: variable("to_file"),
				Then: []hir.Stmt{ret(&hir.Call{Span: span(), Func: "open", Args: []hir.Expr{strLit("out.txt")}})},
			},
			ret(&hir.Call{Span: span(), Func: "sys.stdout"}),
		},
	}
	runOne(fn)
	require.Equal(t, types.KindCustom, fn.RetType.Kind)
	assert.Equal(t, "BoxedWrite", fn.RetType.Name)
}

func TestIteratedParamRefinesElementFromLoopVar(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "total",
		Params: []*hir.Param{param("nums")},
		Body: []hir.Stmt{
			&hir.Assign{Span: span(), Target: hir.Target{Kind: hir.TargetName, Name: "acc"}, Value: intLit(0)},
			&hir.For{
				Span:   span(),
				Target: hir.Target{Kind: hir.TargetName, Name: "n"},
				Iter:   variable("nums"),
				Body: []hir.Stmt{
					&hir.AugAssign{
						Span: span(), Op: "+",
						Target: hir.Target{Kind: hir.TargetName, Name: "acc"},
						Value:  &hir.Binary{Span: span(), Op: "*", Left: variable("n"), Right: intLit(2)},
					},
				},
			},
			ret(variable("acc")),
		},
	}
	runOne(fn)
	assert.Equal(t, "list[int]", fn.Params[0].Type.String())
	assert.Equal(t, types.KindInt, fn.RetType.Kind)
}

func TestReinferenceIsIdempotent(t *testing.T) {
	build := func() *hir.Function {
		return &hir.Function{
			Span: span(), Name: "shout",
			Params: []*hir.Param{param("s")},
			Body: []hir.Stmt{ret(&hir.MethodCall{
				Span: span(), Recv: variable("s"), Method: "upper",
			})},
		}
	}
	fn := build()
	mod, _ := runOne(fn)
	first := fn.Params[0].Type.String()
	firstRet := fn.RetType.String()

	New(diagnostic.NewCollector()).Run(mod)
	assert.Equal(t, first, fn.Params[0].Type.String())
	assert.Equal(t, firstRet, fn.RetType.String())
}
