package hir

import (
	"github.com/pyrs-lang/pyrs/internal/position"
)

// LitKind discriminates literal forms, True/False/None included.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitBytes
	LitBool
	LitNone
)

// Literal is any literal expression.
type Literal struct {
	typed
	Span  position.Span
	Kind  LitKind
	Int   int64
	Float float64
	Str   string
	Bytes []byte
	Bool  bool
}

func (e *Literal) GetSpan() position.Span { return e.Span }
func (e *Literal) exprNode()              {}

// IsNone reports whether the literal is None.
func (e *Literal) IsNone() bool { return e.Kind == LitNone }

// Var is a reference to a local, parameter, or module item.
type Var struct {
	typed
	Span position.Span
	Name string
}

func (e *Var) GetSpan() position.Span { return e.Span }
func (e *Var) exprNode()              {}

// Binary is a binary operation. Op keeps Python spelling: arithmetic
// ("+", "-", "*", "https://fd-gally.netlify.app/hf/", "//", "%", "**"), bitwise, comparisons, logic
// ("and", "or"), and membership/identity ("in", "not in", "is",
// "is not"). Chained comparisons are desugared by the bridge before
// reaching the HIR.
type Binary struct {
	typed
	Span  position.Span
	Op    string
	Left  Expr
	Right Expr
}

func (e *Binary) GetSpan() position.Span { return e.Span }
func (e *Binary) exprNode()              {}

// Unary is a unary operation: "-", "+", "~", "not".
type Unary struct {
	typed
	Span    position.Span
	Op      string
	Operand Expr
}

func (e *Unary) GetSpan() position.Span { return e.Span }
func (e *Unary) exprNode()              {}

// Kwarg is one keyword argument at a call site.
type Kwarg struct {
	Name  string
	Value Expr
}

// Call is a call to a named function. Func may be dotted for module
// calls ("math.sqrt"). Computed callees (a lambda held in a local) use
// FuncExpr instead, with Func empty.
type Call struct {
	typed
	Span     position.Span
	Func     string
	FuncExpr Expr
	Args     []Expr
	Kwargs   []Kwarg
}

func (e *Call) GetSpan() position.Span { return e.Span }
func (e *Call) exprNode()              {}

// MethodCall is a call with an explicit receiver expression.
type MethodCall struct {
	typed
	Span   position.Span
	Recv   Expr
	Method string
	Args   []Expr
	Kwargs []Kwarg
}

func (e *MethodCall) GetSpan() position.Span { return e.Span }
func (e *MethodCall) exprNode()              {}

// Attr is attribute access `value.name` outside call position.
type Attr struct {
	typed
	Span  position.Span
	Value Expr
	Name  string
}

func (e *Attr) GetSpan() position.Span { return e.Span }
func (e *Attr) exprNode()              {}

// Index is a subscript load `value[idx]`.
type Index struct {
	typed
	Span  position.Span
	Value Expr
	Idx   Expr
}

func (e *Index) GetSpan() position.Span { return e.Span }
func (e *Index) exprNode()              {}

// Slice is `value[lower:upper:step]`; any bound may be nil.
type Slice struct {
	typed
	Span  position.Span
	Value Expr
	Lower Expr
	Upper Expr
	Step  Expr
}

func (e *Slice) GetSpan() position.Span { return e.Span }
func (e *Slice) exprNode()              {}

// IfExpr is the ternary conditional, both arms typed.
type IfExpr struct {
	typed
	Span position.Span
	Cond Expr
	Then Expr
	Else Expr
}

func (e *IfExpr) GetSpan() position.Span { return e.Span }
func (e *IfExpr) exprNode()              {}

// Walrus introduces a binding visible to the enclosing expression.
type Walrus struct {
	typed
	Span  position.Span
	Name  string
	Value Expr
}

func (e *Walrus) GetSpan() position.Span { return e.Span }
func (e *Walrus) exprNode()              {}

// Lambda is an anonymous function with an expression body.
type Lambda struct {
	typed
	Span   position.Span
	Params []*Param
	Body   Expr
}

func (e *Lambda) GetSpan() position.Span { return e.Span }
func (e *Lambda) exprNode()              {}

// ListLit is `[a, b, c]`.
type ListLit struct {
	typed
	Span  position.Span
	Elems []Expr
}

func (e *ListLit) GetSpan() position.Span { return e.Span }
func (e *ListLit) exprNode()              {}

// SetLit is `{a, b}`.
type SetLit struct {
	typed
	Span  position.Span
	Elems []Expr
}

func (e *SetLit) GetSpan() position.Span { return e.Span }
func (e *SetLit) exprNode()              {}

// TupleLit is `(a, b)`.
type TupleLit struct {
	typed
	Span  position.Span
	Elems []Expr
}

func (e *TupleLit) GetSpan() position.Span { return e.Span }
func (e *TupleLit) exprNode()              {}

// DictLit is `{k: v, ...}`; Keys[i] pairs with Values[i].
type DictLit struct {
	typed
	Span   position.Span
	Keys   []Expr
	Values []Expr
}

func (e *DictLit) GetSpan() position.Span { return e.Span }
func (e *DictLit) exprNode()              {}

// Starred is `*value` in argument position.
type Starred struct {
	typed
	Span  position.Span
	Value Expr
}

func (e *Starred) GetSpan() position.Span { return e.Span }
func (e *Starred) exprNode()              {}

// CompKind discriminates comprehension forms.
type CompKind int

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGen
)

// CompClause is one `for target in iter if cond...` clause.
type CompClause struct {
	Target Target
	Iter   Expr
	Conds  []Expr
}

// Comp is a comprehension or generator expression; kept as a dedicated
// node and lowered to an iterator pipeline during emission.
type Comp struct {
	typed
	Span    position.Span
	Kind    CompKind
	Elt     Expr // nil for dict comprehensions
	Key     Expr // dict comprehensions only
	Value   Expr // dict comprehensions only
	Clauses []CompClause
}

func (e *Comp) GetSpan() position.Span { return e.Span }
func (e *Comp) exprNode()              {}

// FStringPart is literal text or an embedded expression with optional
// format spec.
type FStringPart struct {
	Text string
	Expr Expr
	Spec string
}

// FString is an f-string literal, lowered to format! at emission.
type FString struct {
	typed
	Span  position.Span
	Parts []FStringPart
}

func (e *FString) GetSpan() position.Span { return e.Span }
func (e *FString) exprNode()              {}

// AwaitExpr is `await value`.
type AwaitExpr struct {
	typed
	Span  position.Span
	Value Expr
}

func (e *AwaitExpr) GetSpan() position.Span { return e.Span }
func (e *AwaitExpr) exprNode()              {}

// YieldExpr is `yield [value]`.
type YieldExpr struct {
	typed
	Span  position.Span
	Value Expr // nil for bare yield
}

func (e *YieldExpr) GetSpan() position.Span { return e.Span }
func (e *YieldExpr) exprNode()              {}

// YieldFrom is `yield from value`; fused into the outer state machine
// at lowering time.
type YieldFrom struct {
	typed
	Span  position.Span
	Value Expr
}

func (e *YieldFrom) GetSpan() position.Span { return e.Span }
func (e *YieldFrom) exprNode()              {}
