package astbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/position"
	"github.com/pyrs-lang/pyrs/internal/pyast"
	"github.com/pyrs-lang/pyrs/internal/types"
)

func sp() position.Span {
	p := position.Position{Filename: "t.py", Line: 1, Column: 1, Offset: 0}
	return position.Span{Start: p, End: position.Position{Filename: "t.py", Line: 1, Column: 2, Offset: 1}}
}

func buildModule(t *testing.T, body ...pyast.Stmt) (*hir.Module, *diagnostic.Collector) {
	t.Helper()
	diags := diagnostic.NewCollector()
	mod := New(diags).Build(&pyast.Module{Span: sp(), Body: body}, "test")
	require.NotNil(t, mod)
	return mod, diags
}

func TestChainedComparisonDesugar(t *testing.T) {
	// 0 < x + 1 < 100: middle operand is non-trivial, so it must bind
	// to a temp used exactly once on each side.
	mid := &pyast.BinOp{Span: sp(), Left: &pyast.Name{Span: sp(), ID: "x"}, Op: "+", Right: &pyast.IntLit{Span: sp(), Value: 1}}
	cmp := &pyast.Compare{
		Span:        sp(),
		Left:        &pyast.IntLit{Span: sp(), Value: 0},
		Ops:         []string{"<", "<"},
		Comparators: []pyast.Expr{mid, &pyast.IntLit{Span: sp(), Value: 100}},
	}
	fn := &pyast.FunctionDef{
		Span: sp(), Name: "in_range",
		Params: []pyast.Param{{Span: sp(), Name: "x", Annotation: "int"}},
		Body:   []pyast.Stmt{&pyast.Return{Span: sp(), Value: cmp}},
	}
	mod, diags := buildModule(t, fn)
	assert.False(t, diags.HasErrors())

	ret := mod.Functions[0].Body[0].(*hir.Return)
	and, ok := ret.Value.(*hir.Binary)
	require.True(t, ok)
	assert.Equal(t, "and", and.Op)

	left := and.Left.(*hir.Binary)
	_, isWalrus := left.Right.(*hir.Walrus)
	assert.True(t, isWalrus, "middle operand bound via walrus")

	right := and.Right.(*hir.Binary)
	v, isVar := right.Left.(*hir.Var)
	require.True(t, isVar, "second use reads the temp")
	walrus := left.Right.(*hir.Walrus)
	assert.Equal(t, walrus.Name, v.Name)
}

func TestChainedComparisonTrivialMiddleSkipsTemp(t *testing.T) {
	cmp := &pyast.Compare{
		Span:        sp(),
		Left:        &pyast.IntLit{Span: sp(), Value: 0},
		Ops:         []string{"<", "<"},
		Comparators: []pyast.Expr{&pyast.Name{Span: sp(), ID: "x"}, &pyast.IntLit{Span: sp(), Value: 100}},
	}
	fn := &pyast.FunctionDef{
		Span: sp(), Name: "in_range",
		Params: []pyast.Param{{Span: sp(), Name: "x"}},
		Body:   []pyast.Stmt{&pyast.Return{Span: sp(), Value: cmp}},
	}
	mod, _ := buildModule(t, fn)
	ret := mod.Functions[0].Body[0].(*hir.Return)
	and := ret.Value.(*hir.Binary)
	left := and.Left.(*hir.Binary)
	_, isVar := left.Right.(*hir.Var)
	assert.True(t, isVar, "bare variable middle needs no temp")
}

func TestOptionalDefaultWrapping(t *testing.T) {
	fn := &pyast.FunctionDef{
		Span: sp(), Name: "f",
		Params: []pyast.Param{
			{Span: sp(), Name: "x", Annotation: "int"},
			{Span: sp(), Name: "y", Annotation: "int", Default: &pyast.NoneLit{Span: sp()}},
			{Span: sp(), Name: "z", Default: &pyast.NoneLit{Span: sp()}},
		},
	}
	mod, _ := buildModule(t, fn)
	params := mod.Functions[0].Params
	assert.Equal(t, "int", params[0].Type.String())
	assert.Equal(t, "Optional[int]", params[1].Type.String(), "default=None wraps annotated type")
	assert.Equal(t, types.KindOptional, params[2].Type.Kind)
	assert.True(t, params[2].Type.IsUnknown(), "Optional(Unknown) still counts as unknown")
}

func TestGeneratorFlag(t *testing.T) {
	fn := &pyast.FunctionDef{
		Span: sp(), Name: "count_gen",
		Params: []pyast.Param{{Span: sp(), Name: "n", Annotation: "int"}},
		Body: []pyast.Stmt{
			&pyast.For{
				Span:   sp(),
				Target: &pyast.Name{Span: sp(), ID: "i"},
				Iter: &pyast.Call{Span: sp(), Func: &pyast.Name{Span: sp(), ID: "range"},
					Args: []pyast.Expr{&pyast.Name{Span: sp(), ID: "n"}}},
				Body: []pyast.Stmt{
					&pyast.ExprStmt{Span: sp(), Value: &pyast.Yield{Span: sp(), Value: &pyast.Name{Span: sp(), ID: "i"}}},
				},
			},
		},
	}
	mod, _ := buildModule(t, fn)
	assert.True(t, mod.Functions[0].IsGenerator)
}

func TestCanFailCollectsEscapingRaises(t *testing.T) {
	raise := &pyast.Raise{Span: sp(), Exc: &pyast.Call{
		Span: sp(),
		Func: &pyast.Name{Span: sp(), ID: "ValueError"},
		Args: []pyast.Expr{&pyast.StringLit{Span: sp(), Value: "bad"}},
	}}
	fn := &pyast.FunctionDef{Span: sp(), Name: "f", Body: []pyast.Stmt{raise}}
	mod, _ := buildModule(t, fn)
	require.True(t, mod.Functions[0].CanFail)
	assert.Equal(t, []string{"ValueError"}, mod.Functions[0].ErrorTypes)
}

func TestCaughtRaiseDoesNotEscape(t *testing.T) {
	try := &pyast.Try{
		Span: sp(),
		Body: []pyast.Stmt{&pyast.Raise{Span: sp(), Exc: &pyast.Call{
			Span: sp(), Func: &pyast.Name{Span: sp(), ID: "ValueError"}}}},
		Handlers: []pyast.ExceptHandler{{
			Span: sp(), Type: "ValueError",
			Body: []pyast.Stmt{&pyast.Pass{Span: sp()}},
		}},
	}
	fn := &pyast.FunctionDef{Span: sp(), Name: "f", Body: []pyast.Stmt{try}}
	mod, _ := buildModule(t, fn)
	assert.False(t, mod.Functions[0].CanFail, "caught exception stays inside")
}

func TestDataclassRecognition(t *testing.T) {
	cls := &pyast.ClassDef{
		Span: sp(), Name: "Point",
		Decorators: []string{"dataclass"},
		Body: []pyast.Stmt{
			&pyast.AnnAssign{Span: sp(), Target: &pyast.Name{Span: sp(), ID: "x"}, Annotation: "int"},
			&pyast.AnnAssign{Span: sp(), Target: &pyast.Name{Span: sp(), ID: "y"}, Annotation: "int"},
		},
	}
	mod, _ := buildModule(t, cls)
	require.Len(t, mod.Classes, 1)
	assert.Equal(t, hir.ClassRecord, mod.Classes[0].Kind)
	assert.Len(t, mod.Classes[0].Fields, 2)
	assert.True(t, mod.Classes[0].AllFieldsHashable())
}

func TestABCHierarchyBecomesADTGroup(t *testing.T) {
	parent := &pyast.ClassDef{
		Span: sp(), Name: "Shape", Bases: []string{"ABC"},
		Body: []pyast.Stmt{&pyast.Pass{Span: sp()}},
	}
	child1 := &pyast.ClassDef{
		Span: sp(), Name: "Circle", Bases: []string{"Shape"},
		Body: []pyast.Stmt{
			&pyast.AnnAssign{Span: sp(), Target: &pyast.Name{Span: sp(), ID: "radius"}, Annotation: "float"},
		},
	}
	child2 := &pyast.ClassDef{
		Span: sp(), Name: "Square", Bases: []string{"Shape"},
		Body: []pyast.Stmt{
			&pyast.AnnAssign{Span: sp(), Target: &pyast.Name{Span: sp(), ID: "side"}, Annotation: "float"},
		},
	}
	mod, diags := buildModule(t, parent, child1, child2)
	assert.False(t, diags.HasErrors())

	shape := mod.FindClass("Shape")
	require.NotNil(t, shape)
	assert.Equal(t, hir.ClassADTParent, shape.Kind)
	assert.Equal(t, []string{"Circle", "Square"}, shape.Children)
	assert.Equal(t, hir.ClassADTChild, mod.FindClass("Circle").Kind)
	assert.Equal(t, "Shape", mod.FindClass("Circle").Parent)
}

func TestEnumClass(t *testing.T) {
	cls := &pyast.ClassDef{
		Span: sp(), Name: "Color", Bases: []string{"Enum"},
		Body: []pyast.Stmt{
			&pyast.Assign{Span: sp(), Targets: []pyast.Expr{&pyast.Name{Span: sp(), ID: "RED"}}, Value: &pyast.IntLit{Span: sp(), Value: 1}},
			&pyast.Assign{Span: sp(), Targets: []pyast.Expr{&pyast.Name{Span: sp(), ID: "GREEN"}}, Value: &pyast.IntLit{Span: sp(), Value: 2}},
		},
	}
	mod, _ := buildModule(t, cls)
	require.Len(t, mod.Classes, 1)
	assert.Equal(t, hir.ClassEnum, mod.Classes[0].Kind)
	require.Len(t, mod.Classes[0].EnumMembers, 2)
	assert.Equal(t, "RED", mod.Classes[0].EnumMembers[0].Name)
}

func TestMainGuardRecognition(t *testing.T) {
	guard := &pyast.If{
		Span: sp(),
		Test: &pyast.Compare{
			Span:        sp(),
			Left:        &pyast.Name{Span: sp(), ID: "__name__"},
			Ops:         []string{"=="},
			Comparators: []pyast.Expr{&pyast.StringLit{Span: sp(), Value: "__main__"}},
		},
		Body: []pyast.Stmt{&pyast.ExprStmt{Span: sp(), Value: &pyast.Call{
			Span: sp(), Func: &pyast.Name{Span: sp(), ID: "main"},
		}}},
	}
	mod, diags := buildModule(t, guard)
	assert.False(t, diags.HasErrors())
	assert.True(t, mod.HasMainGuard)
	assert.Equal(t, "main", mod.MainCall)
}

func TestModuleConstants(t *testing.T) {
	mod, _ := buildModule(t, &pyast.Assign{
		Span:    sp(),
		Targets: []pyast.Expr{&pyast.Name{Span: sp(), ID: "MAX_SIZE"}},
		Value:   &pyast.IntLit{Span: sp(), Value: 1024},
	})
	require.Len(t, mod.Constants, 1)
	assert.Equal(t, "MAX_SIZE", mod.Constants[0].Name)
	assert.Equal(t, "int", mod.Constants[0].Type.String())
}

func TestModuleCallRouting(t *testing.T) {
	imp := &pyast.Import{Span: sp(), Names: []pyast.ImportAlias{{Name: "math"}}}
	fn := &pyast.FunctionDef{
		Span: sp(), Name: "f",
		Params: []pyast.Param{{Span: sp(), Name: "x", Annotation: "float"}},
		Body: []pyast.Stmt{&pyast.Return{Span: sp(), Value: &pyast.Call{
			Span: sp(),
			Func: &pyast.Attribute{Span: sp(), Value: &pyast.Name{Span: sp(), ID: "math"}, Attr: "sqrt"},
			Args: []pyast.Expr{&pyast.Name{Span: sp(), ID: "x"}},
		}}},
	}
	mod, _ := buildModule(t, imp, fn)
	ret := mod.Functions[0].Body[0].(*hir.Return)
	call, ok := ret.Value.(*hir.Call)
	require.True(t, ok, "module function call routes as Call, not MethodCall")
	assert.Equal(t, "math.sqrt", call.Func)

	require.Len(t, mod.Imports, 1)
	assert.Equal(t, hir.ImportStdlibHandled, mod.Imports[0].Policy)
}

func TestUnsupportedConstructIsHardErrorWithSpan(t *testing.T) {
	_, diags := buildModule(t, &pyast.Global{Span: sp(), Names: []string{"x"}})
	require.True(t, diags.HasErrors())
	all := diags.All()
	assert.Equal(t, diagnostic.KindUnsupported, all[0].Kind)
	assert.True(t, all[0].Span.IsValid())
}
