package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/pyast"
)

func parseSource(t *testing.T, src string) *pyast.Module {
	t.Helper()
	mod, diags, err := New().Parse(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	for _, d := range diags {
		t.Logf("diag: %s", d)
	}
	require.NotNil(t, mod)
	return mod
}

func TestParseFunctionDef(t *testing.T) {
	mod := parseSource(t, `
def greet(name: str, times: int = 1) -> str:
    return "Hello, " + name
`)
	require.Len(t, mod.Body, 1)
	fn, ok := mod.Body[0].(*pyast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "greet", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "name", fn.Params[0].Name)
	assert.Equal(t, "str", fn.Params[0].Annotation)
	assert.Equal(t, "times", fn.Params[1].Name)
	assert.NotNil(t, fn.Params[1].Default)
	assert.Equal(t, "str", fn.Returns)

	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*pyast.Return)
	require.True(t, ok)
	bin, ok := ret.Value.(*pyast.BinOp)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestParseChainedComparison(t *testing.T) {
	mod := parseSource(t, `
def in_range(x: int) -> bool:
    return 0 < x < 100
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	ret := fn.Body[0].(*pyast.Return)
	cmp, ok := ret.Value.(*pyast.Compare)
	require.True(t, ok)
	assert.Equal(t, []string{"<", "<"}, cmp.Ops)
	require.Len(t, cmp.Comparators, 2)
}

func TestParseIfElifElse(t *testing.T) {
	mod := parseSource(t, `
def sign(x):
    if x > 0:
        return 1
    elif x < 0:
        return -1
    else:
        return 0
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	ifStmt, ok := fn.Body[0].(*pyast.If)
	require.True(t, ok)
	require.Len(t, ifStmt.Orelse, 1)
	elif, ok := ifStmt.Orelse[0].(*pyast.If)
	require.True(t, ok, "elif should nest as If in Orelse")
	require.Len(t, elif.Orelse, 1)
	_, isReturn := elif.Orelse[0].(*pyast.Return)
	assert.True(t, isReturn, "final else body")
}

func TestParseAugAssignKeptDistinct(t *testing.T) {
	mod := parseSource(t, `
def bump(counts, key):
    counts[key] += 1
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	aug, ok := fn.Body[0].(*pyast.AugAssign)
	require.True(t, ok)
	assert.Equal(t, "+", aug.Op)
	_, isSub := aug.Target.(*pyast.Subscript)
	assert.True(t, isSub)
}

func TestParseForAndCompound(t *testing.T) {
	mod := parseSource(t, `
def total(items):
    s = 0
    for i, x in enumerate(items):
        s += x
    return s
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	require.Len(t, fn.Body, 3)
	forStmt, ok := fn.Body[1].(*pyast.For)
	require.True(t, ok)
	tup, ok := forStmt.Target.(*pyast.TupleLit)
	require.True(t, ok, "tuple target preserved structurally")
	assert.Len(t, tup.Elts, 2)
	call, ok := forStmt.Iter.(*pyast.Call)
	require.True(t, ok)
	name := call.Func.(*pyast.Name)
	assert.Equal(t, "enumerate", name.ID)
}

func TestParseTryExcept(t *testing.T) {
	mod := parseSource(t, `
def safe_div(a, b):
    try:
        return a / b
    except ZeroDivisionError as e:
        return 0
    finally:
        pass
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	try, ok := fn.Body[0].(*pyast.Try)
	require.True(t, ok)
	require.Len(t, try.Handlers, 1)
	assert.Equal(t, "ZeroDivisionError", try.Handlers[0].Type)
	assert.Equal(t, "e", try.Handlers[0].Name)
	assert.NotEmpty(t, try.Final)
}

func TestParseWithAs(t *testing.T) {
	mod := parseSource(t, `
def read(path):
    with open(path) as f:
        return f.read()
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	with, ok := fn.Body[0].(*pyast.With)
	require.True(t, ok)
	require.Len(t, with.Items, 1)
	assert.NotNil(t, with.Items[0].Var)
}

func TestParseFString(t *testing.T) {
	mod := parseSource(t, `
def label(name, n):
    return f"{name}: {n:03d} items"
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	ret := fn.Body[0].(*pyast.Return)
	fs, ok := ret.Value.(*pyast.FString)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(fs.Parts), 3)
	assert.NotNil(t, fs.Parts[0].Expr)
	assert.Equal(t, "03d", fs.Parts[2].Spec)
}

func TestParseComprehensions(t *testing.T) {
	mod := parseSource(t, `
def evens(xs):
    return [x * 2 for x in xs if x % 2 == 0]
`)
	fn := mod.Body[0].(*pyast.FunctionDef)
	ret := fn.Body[0].(*pyast.Return)
	comp, ok := ret.Value.(*pyast.Comprehension)
	require.True(t, ok)
	assert.Equal(t, pyast.CompList, comp.Kind)
	require.Len(t, comp.Clauses, 1)
	assert.Len(t, comp.Clauses[0].Ifs, 1)
}

func TestParseClassAndDecorators(t *testing.T) {
	mod := parseSource(t, `
@dataclass
class Point:
    x: int
    y: int

    def dist(self) -> float:
        return (self.x * self.x + self.y * self.y) ** 0.5
`)
	cls, ok := mod.Body[0].(*pyast.ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Point", cls.Name)
	assert.Contains(t, cls.Decorators, "dataclass")
}

func TestParseGeneratorAndWalrus(t *testing.T) {
	mod := parseSource(t, `
def count_gen(n: int):
    for i in range(n):
        yield i

def first_long(words):
    if (m := len(words)) > 10:
        return m
    return 0
`)
	gen := mod.Body[0].(*pyast.FunctionDef)
	forStmt := gen.Body[0].(*pyast.For)
	exprStmt, ok := forStmt.Body[0].(*pyast.ExprStmt)
	require.True(t, ok)
	_, isYield := exprStmt.Value.(*pyast.Yield)
	assert.True(t, isYield)

	fl := mod.Body[1].(*pyast.FunctionDef)
	ifStmt := fl.Body[0].(*pyast.If)
	cmp := ifStmt.Test.(*pyast.Compare)
	_, isWalrus := cmp.Left.(*pyast.NamedExpr)
	assert.True(t, isWalrus)
}

func TestParseReportsUnsupported(t *testing.T) {
	_, diags, err := New().Parse(context.Background(), "bad.py", []byte(`
from os import *
`))
	require.NoError(t, err)
	require.NotEmpty(t, diags)
}

func TestParseImports(t *testing.T) {
	mod := parseSource(t, `
import re
import hashlib as h
from datetime import datetime, timedelta
`)
	require.Len(t, mod.Body, 3)
	imp := mod.Body[1].(*pyast.Import)
	assert.Equal(t, "hashlib", imp.Names[0].Name)
	assert.Equal(t, "h", imp.Names[0].AsName)
	from := mod.Body[2].(*pyast.ImportFrom)
	assert.Equal(t, "datetime", from.Module)
	assert.Len(t, from.Names, 2)
}
