package borrow

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

func typedParam(name string, t types.PyType) *hir.Param {
	return &hir.Param{Span: span(), Name: name, Type: t, Annotated: true}
}

func variable(name string) *hir.Var { return &hir.Var{Span: span(), Name: name} }

func analyzeOne(fn *hir.Function) *FuncFacts {
	facts := New(diagnostic.NewCollector()).Run(&hir.Module{Functions: []*hir.Function{fn}})
	return facts[fn.Name]
}

func TestCopyParamIsOwned(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "double",
		Params:  []*hir.Param{typedParam("x", types.Int())},
		RetType: types.Int(),
		Body: []hir.Stmt{&hir.Return{Span: span(), Value: &hir.Binary{
			Span: span(), Op: "*", Left: variable("x"),
			Right: &hir.Literal{Span: span(), Kind: hir.LitInt, Int: 2},
		}}},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, Own, ff.Params["x"].Strategy)
	assert.Empty(t, ff.Lifetimes)
}

func TestMutatedListParamBorrowsMutably(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "push",
		Params: []*hir.Param{
			typedParam("items", types.List(types.Int())),
			typedParam("v", types.Int()),
		},
		RetType: types.NoneType(),
		Body: []hir.Stmt{&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{
			Span: span(), Recv: variable("items"), Method: "append",
			Args: []hir.Expr{variable("v")},
		}}},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, MutableBorrow, ff.Params["items"].Strategy)
	assert.Equal(t, Own, ff.Params["v"].Strategy)
}

func TestReboundParamIsNotMutated(t *testing.T) {
	// s = s.strip() rebinds the local name; the caller's value is
	// untouched, so no &mut.
	fn := &hir.Function{
		Span: span(), Name: "clean",
		Params:  []*hir.Param{typedParam("s", types.Str())},
		RetType: types.Str(),
		Body: []hir.Stmt{
			&hir.Assign{
				Span:   span(),
				Target: hir.Target{Kind: hir.TargetName, Name: "s"},
				Value:  &hir.MethodCall{Span: span(), Recv: variable("s"), Method: "strip"},
			},
			&hir.Return{Span: span(), Value: variable("s")},
		},
	}
	ff := analyzeOne(fn)
	assert.False(t, ff.Params["s"].Mutated)
	assert.NotEqual(t, MutableBorrow, ff.Params["s"].Strategy)
}

func TestIndexStoreMarksBaseMutated(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "zero_first",
		Params:  []*hir.Param{typedParam("xs", types.List(types.Int()))},
		RetType: types.NoneType(),
		Body: []hir.Stmt{&hir.Assign{
			Span: span(),
			Target: hir.Target{
				Kind: hir.TargetIndex, Obj: variable("xs"),
				Index: &hir.Literal{Span: span(), Kind: hir.LitInt, Int: 0},
			},
			Value: &hir.Literal{Span: span(), Kind: hir.LitInt, Int: 0},
		}},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, MutableBorrow, ff.Params["xs"].Strategy)
}

func TestReadOnlyHeapParamBorrowsShared(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "size",
		Params:  []*hir.Param{typedParam("items", types.List(types.Str()))},
		RetType: types.Int(),
		Body: []hir.Stmt{&hir.Return{Span: span(), Value: &hir.Call{
			Span: span(), Func: "len", Args: []hir.Expr{variable("items")},
		}}},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, SharedBorrow, ff.Params["items"].Strategy)
	assert.Empty(t, ff.Lifetimes, "no borrowed return, no lifetime names")
}

func TestEscapingSingleBorrowElides(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "first",
		Params:  []*hir.Param{typedParam("xs", types.List(types.Str()))},
		RetType: types.Str(),
		Body: []hir.Stmt{&hir.Return{Span: span(), Value: &hir.Index{
			Span: span(), Value: variable("xs"),
			Idx: &hir.Literal{Span: span(), Kind: hir.LitInt, Int: 0},
		}}},
	}
	ff := analyzeOne(fn)
	require.Equal(t, SharedBorrow, ff.Params["xs"].Strategy)
	assert.True(t, ff.Params["xs"].Escapes)
	assert.Empty(t, ff.Lifetimes, "single input reference elides")
}

func TestTwoBorrowsWithEscapingReturnNameLifetime(t *testing.T) {
	pick := &hir.IfExpr{
		Span: span(),
		Cond: variable("flag"),
		Then: variable("a"),
		Else: variable("a"),
	}
	fn := &hir.Function{
		Span: span(), Name: "pick",
		Params: []*hir.Param{
			typedParam("a", types.Str()),
			typedParam("b", types.Str()),
			typedParam("flag", types.Bool()),
		},
		RetType: types.Str(),
		Body: []hir.Stmt{
			&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{
				Span: span(), Recv: variable("b"), Method: "upper",
			}},
			&hir.Return{Span: span(), Value: pick},
		},
	}
	ff := analyzeOne(fn)
	require.Equal(t, SharedBorrow, ff.Params["a"].Strategy)
	require.Equal(t, SharedBorrow, ff.Params["b"].Strategy)
	assert.Equal(t, []string{"'a"}, ff.Lifetimes)
	assert.Equal(t, "'a", ff.Params["a"].Lifetime)
	assert.Empty(t, ff.Params["b"].Lifetime, "non-escaping borrow stays elided")
	assert.Equal(t, "'a", ff.ReturnLifetime)
}

func TestCowWhenReturnMixesParamAndFreshString(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "ensure_suffix",
		Params: []*hir.Param{
			typedParam("s", types.Str()),
			typedParam("done", types.Bool()),
		},
		RetType: types.Str(),
		Body: []hir.Stmt{
			&hir.If{
				Span: span(), Cond: variable("done"),
				Then: []hir.Stmt{&hir.Return{Span: span(), Value: variable("s")}},
			},
			&hir.Return{Span: span(), Value: &hir.Binary{
				Span: span(), Op: "+", Left: variable("s"),
				Right: &hir.Literal{Span: span(), Kind: hir.LitString, Str: "!"},
			}},
		},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, UseCow, ff.Params["s"].Strategy)
	assert.True(t, ff.ReturnCow)
	assert.Equal(t, "'a", ff.ReturnLifetime)
	assert.Equal(t, "'a", ff.Params["s"].Lifetime)
}

func TestOwningTransformEverywhereSuppressesCow(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "shout",
		Params:  []*hir.Param{typedParam("s", types.Str())},
		RetType: types.Str(),
		Body: []hir.Stmt{&hir.Return{Span: span(), Value: &hir.MethodCall{
			Span: span(), Recv: variable("s"), Method: "upper",
		}}},
	}
	ff := analyzeOne(fn)
	assert.True(t, ff.ReturnOwnedForced)
	assert.False(t, ff.ReturnCow)
	assert.Equal(t, SharedBorrow, ff.Params["s"].Strategy)
	assert.Empty(t, ff.Lifetimes)
}

func TestSliceReturnDisqualifiesCow(t *testing.T) {
	// One owning return beside a borrowed-slice return: every site
	// must be a direct reference or an owning transform for Cow, so
	// this stays a plain borrow.
	sliced := &hir.Slice{
		Span: span(), Value: variable("s"),
		Lower: &hir.Literal{Span: span(), Kind: hir.LitInt, Int: 1},
	}
	fn := &hir.Function{
		Span: span(), Name: "trim_or_shout",
		Params: []*hir.Param{
			typedParam("s", types.Str()),
			typedParam("loud", types.Bool()),
		},
		RetType: types.Str(),
		Body: []hir.Stmt{
			&hir.If{
				Span: span(), Cond: variable("loud"),
				Then: []hir.Stmt{&hir.Return{Span: span(), Value: &hir.MethodCall{
					Span: span(), Recv: variable("s"), Method: "upper",
				}}},
			},
			&hir.Return{Span: span(), Value: sliced},
		},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, SharedBorrow, ff.Params["s"].Strategy)
	assert.False(t, ff.ReturnCow)
	assert.True(t, ff.ReturnBorrowed)
}

func TestWriterHandleStaysUnmutatedUntilWriteSeen(t *testing.T) {
	// Passing the handle into an opaque call is not evidence of
	// mutation; neither is a prefix-guessed mutator name.
	fn := &hir.Function{
		Span: span(), Name: "emit",
		Params:  []*hir.Param{typedParam("out_writer", types.Custom("File"))},
		RetType: types.NoneType(),
		Body: []hir.Stmt{
			&hir.ExprStmt{Span: span(), Value: &hir.Call{
				Span: span(), Func: "helper", Args: []hir.Expr{variable("out_writer")},
			}},
			&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{
				Span: span(), Recv: variable("out_writer"), Method: "record_stats",
			}},
		},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, SharedBorrow, ff.Params["out_writer"].Strategy)
	assert.False(t, ff.Params["out_writer"].Mutated)
}

func TestWriteCallFlipsHandleToMutated(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "emit",
		Params: []*hir.Param{
			typedParam("out_writer", types.Custom("File")),
			typedParam("line", types.Str()),
		},
		RetType: types.NoneType(),
		Body: []hir.Stmt{&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{
			Span: span(), Recv: variable("out_writer"), Method: "write",
			Args: []hir.Expr{variable("line")},
		}}},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, MutableBorrow, ff.Params["out_writer"].Strategy)
}

func TestHandleWordMatchesFinalComponentOnly(t *testing.T) {
	// "writer_count" is a count about a writer, not a writer; the
	// prefix-guessed mutator applies to it as to any other name.
	fn := &hir.Function{
		Span: span(), Name: "bump",
		Params:  []*hir.Param{typedParam("writer_count", types.Custom("Tally"))},
		RetType: types.NoneType(),
		Body: []hir.Stmt{&hir.ExprStmt{Span: span(), Value: &hir.MethodCall{
			Span: span(), Recv: variable("writer_count"), Method: "increment",
		}}},
	}
	ff := analyzeOne(fn)
	assert.Equal(t, MutableBorrow, ff.Params["writer_count"].Strategy)

	assert.False(t, isHandleName("showriter"))
	assert.False(t, isHandleName("writer_count"))
	assert.True(t, isHandleName("out_writer"))
	assert.True(t, isHandleName("reader"))
}

func TestMutableLocals(t *testing.T) {
	fn := &hir.Function{
		Span: span(), Name: "accumulate",
		Params: []*hir.Param{typedParam("xs", types.List(types.Int()))},
		Body: []hir.Stmt{
			&hir.Assign{Span: span(), Target: hir.Target{Kind: hir.TargetName, Name: "total"},
				Value: &hir.Literal{Span: span(), Kind: hir.LitInt, Int: 0}},
			&hir.Assign{Span: span(), Target: hir.Target{Kind: hir.TargetName, Name: "label"},
				Value: &hir.Literal{Span: span(), Kind: hir.LitString, Str: "sum"}},
			&hir.For{
				Span:   span(),
				Target: hir.Target{Kind: hir.TargetName, Name: "x"},
				Iter:   variable("xs"),
				Body: []hir.Stmt{&hir.AugAssign{
					Span: span(), Op: "+",
					Target: hir.Target{Kind: hir.TargetName, Name: "total"},
					Value:  variable("x"),
				}},
			},
		},
	}
	mut := MutableLocals(fn)
	assert.True(t, mut["total"])
	assert.False(t, mut["label"], "single assignment needs no mut")
	assert.False(t, mut["xs"], "parameters are excluded")
}
