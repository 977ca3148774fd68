// Package pyast defines the Abstract Syntax Tree (AST) nodes for the
// supported Python subset. Every node carries a source span for error
// reporting; annotations are kept as raw text and parsed by the type
// model on demand. The tree is produced by internal/parser and consumed
// only by the AST→HIR bridge.
package pyast

import (
	"github.com/pyrs-lang/pyrs/internal/position"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// GetSpan returns the source span covered by this node.
	GetSpan() position.Span
}

// Stmt represents all statement nodes in the AST.
type Stmt interface {
	Node
	stmtNode() // Marker method to distinguish statements
}

// Expr represents all expression nodes in the AST.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
}

// Module represents the root of the AST - a complete Python source file.
type Module struct {
	Span   position.Span
	Body   []Stmt
	Source *position.SourceFile
}

func (m *Module) GetSpan() position.Span { return m.Span }

// ===== Statements =====

// Param represents one formal parameter of a function or lambda.
type Param struct {
	Span       position.Span
	Name       string
	Annotation string // raw annotation text, empty when absent
	Default    Expr   // nil when absent
	IsVararg   bool   // *args
	IsKwarg    bool   // **kwargs
}

// FunctionDef represents `def` and `async def`.
type FunctionDef struct {
	Span       position.Span
	Name       string
	Params     []Param
	Returns    string // raw return annotation text
	Body       []Stmt
	Decorators []string
	IsAsync    bool
}

func (s *FunctionDef) GetSpan() position.Span { return s.Span }
func (s *FunctionDef) stmtNode()              {}

// ClassDef represents a class definition.
type ClassDef struct {
	Span       position.Span
	Name       string
	Bases      []string
	Body       []Stmt
	Decorators []string
}

func (s *ClassDef) GetSpan() position.Span { return s.Span }
func (s *ClassDef) stmtNode()              {}

// Assign represents `targets = value` (single or chained targets).
type Assign struct {
	Span    position.Span
	Targets []Expr
	Value   Expr
}

func (s *Assign) GetSpan() position.Span { return s.Span }
func (s *Assign) stmtNode()              {}

// AnnAssign represents `target: annotation = value`.
type AnnAssign struct {
	Span       position.Span
	Target     Expr
	Annotation string
	Value      Expr // nil for a bare declaration
}

func (s *AnnAssign) GetSpan() position.Span { return s.Span }
func (s *AnnAssign) stmtNode()              {}

// AugAssign represents `target op= value`.
type AugAssign struct {
	Span   position.Span
	Target Expr
	Op     string // "+", "-", "*", "https://fd-gally.netlify.app/hf/", "//", "%", "**", "&", "|", "^", "<<", ">>"
	Value  Expr
}

func (s *AugAssign) GetSpan() position.Span { return s.Span }
func (s *AugAssign) stmtNode()              {}

// Return represents a return statement.
type Return struct {
	Span  position.Span
	Value Expr // nil for bare `return`
}

func (s *Return) GetSpan() position.Span { return s.Span }
func (s *Return) stmtNode()              {}

// If represents if/elif/else chains; elif is nested in Orelse.
type If struct {
	Span   position.Span
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

func (s *If) GetSpan() position.Span { return s.Span }
func (s *If) stmtNode()              {}

// While represents a while loop. `else` clauses on loops are not in the
// supported subset and are rejected by the bridge.
type While struct {
	Span   position.Span
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

func (s *While) GetSpan() position.Span { return s.Span }
func (s *While) stmtNode()              {}

// For represents `for target in iter`.
type For struct {
	Span   position.Span
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
}

func (s *For) GetSpan() position.Span { return s.Span }
func (s *For) stmtNode()              {}

type Break struct{ Span position.Span }

func (s *Break) GetSpan() position.Span { return s.Span }
func (s *Break) stmtNode()              {}

type Continue struct{ Span position.Span }

func (s *Continue) GetSpan() position.Span { return s.Span }
func (s *Continue) stmtNode()              {}

type Pass struct{ Span position.Span }

func (s *Pass) GetSpan() position.Span { return s.Span }
func (s *Pass) stmtNode()              {}

// ExceptHandler represents one `except [Type [as name]]:` clause.
type ExceptHandler struct {
	Span position.Span
	Type string // exception type name, empty for bare except
	Name string // bound name, empty when absent
	Body []Stmt
}

// Try represents try/except/else/finally.
type Try struct {
	Span     position.Span
	Body     []Stmt
	Handlers []ExceptHandler
	Orelse   []Stmt
	Final    []Stmt
}

func (s *Try) GetSpan() position.Span { return s.Span }
func (s *Try) stmtNode()              {}

// WithItem is one `ctx [as var]` entry of a with statement.
type WithItem struct {
	ContextExpr Expr
	Var         Expr // nil when no `as` clause
}

// With represents a with statement.
type With struct {
	Span  position.Span
	Items []WithItem
	Body  []Stmt
}

func (s *With) GetSpan() position.Span { return s.Span }
func (s *With) stmtNode()              {}

// Raise represents a raise statement.
type Raise struct {
	Span position.Span
	Exc  Expr // nil for bare `raise` (re-throw)
}

func (s *Raise) GetSpan() position.Span { return s.Span }
func (s *Raise) stmtNode()              {}

// Assert represents an assert statement.
type Assert struct {
	Span position.Span
	Test Expr
	Msg  Expr // nil when absent
}

func (s *Assert) GetSpan() position.Span { return s.Span }
func (s *Assert) stmtNode()              {}

// ImportAlias is one `name [as asname]` entry.
type ImportAlias struct {
	Name   string
	AsName string
}

// Import represents `import a, b as c`.
type Import struct {
	Span  position.Span
	Names []ImportAlias
}

func (s *Import) GetSpan() position.Span { return s.Span }
func (s *Import) stmtNode()              {}

// ImportFrom represents `from module import a, b as c`.
type ImportFrom struct {
	Span   position.Span
	Module string
	Names  []ImportAlias
}

func (s *ImportFrom) GetSpan() position.Span { return s.Span }
func (s *ImportFrom) stmtNode()              {}

// ExprStmt represents an expression in statement position.
type ExprStmt struct {
	Span  position.Span
	Value Expr
}

func (s *ExprStmt) GetSpan() position.Span { return s.Span }
func (s *ExprStmt) stmtNode()              {}

// Global represents a `global` declaration; recognized so the bridge can
// reject module-level mutation with a useful span.
type Global struct {
	Span  position.Span
	Names []string
}

func (s *Global) GetSpan() position.Span { return s.Span }
func (s *Global) stmtNode()              {}

// ===== Expressions =====

// Name represents an identifier reference.
type Name struct {
	Span position.Span
	ID   string
}

func (e *Name) GetSpan() position.Span { return e.Span }
func (e *Name) exprNode()              {}

// IntLit represents an integer literal.
type IntLit struct {
	Span  position.Span
	Value int64
	Text  string // original text, for very large or underscored literals
}

func (e *IntLit) GetSpan() position.Span { return e.Span }
func (e *IntLit) exprNode()              {}

// FloatLit represents a float literal.
type FloatLit struct {
	Span  position.Span
	Value float64
	Text  string
}

func (e *FloatLit) GetSpan() position.Span { return e.Span }
func (e *FloatLit) exprNode()              {}

// StringLit represents a plain (non-f) string literal, unescaped.
type StringLit struct {
	Span  position.Span
	Value string
}

func (e *StringLit) GetSpan() position.Span { return e.Span }
func (e *StringLit) exprNode()              {}

// BytesLit represents a bytes literal.
type BytesLit struct {
	Span  position.Span
	Value []byte
}

func (e *BytesLit) GetSpan() position.Span { return e.Span }
func (e *BytesLit) exprNode()              {}

// BoolLit represents True/False.
type BoolLit struct {
	Span  position.Span
	Value bool
}

func (e *BoolLit) GetSpan() position.Span { return e.Span }
func (e *BoolLit) exprNode()              {}

// NoneLit represents None.
type NoneLit struct{ Span position.Span }

func (e *NoneLit) GetSpan() position.Span { return e.Span }
func (e *NoneLit) exprNode()              {}

// FStringPart is either literal text or an embedded expression with an
// optional format spec.
type FStringPart struct {
	Text string // literal text; empty when Expr is set
	Expr Expr
	Spec string // format spec after ':', empty when absent
}

// FString represents an f-string literal.
type FString struct {
	Span  position.Span
	Parts []FStringPart
}

func (e *FString) GetSpan() position.Span { return e.Span }
func (e *FString) exprNode()              {}

// BinOp represents a binary arithmetic/bitwise operation.
type BinOp struct {
	Span  position.Span
	Left  Expr
	Op    string
	Right Expr
}

func (e *BinOp) GetSpan() position.Span { return e.Span }
func (e *BinOp) exprNode()              {}

// BoolOp represents `and`/`or` chains with two or more operands.
type BoolOp struct {
	Span   position.Span
	Op     string // "and" | "or"
	Values []Expr
}

func (e *BoolOp) GetSpan() position.Span { return e.Span }
func (e *BoolOp) exprNode()              {}

// UnaryOp represents `-x`, `+x`, `~x`, `not x`.
type UnaryOp struct {
	Span    position.Span
	Op      string
	Operand Expr
}

func (e *UnaryOp) GetSpan() position.Span { return e.Span }
func (e *UnaryOp) exprNode()              {}

// Compare represents comparison chains `a < b < c`; Ops[i] applies
// between operand i and i+1.
type Compare struct {
	Span        position.Span
	Left        Expr
	Ops         []string // "<", "<=", ">", ">=", "==", "!=", "in", "not in", "is", "is not"
	Comparators []Expr
}

func (e *Compare) GetSpan() position.Span { return e.Span }
func (e *Compare) exprNode()              {}

// Keyword is one `name=value` argument.
type Keyword struct {
	Arg   string
	Value Expr
}

// Call represents a call expression.
type Call struct {
	Span     position.Span
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

func (e *Call) GetSpan() position.Span { return e.Span }
func (e *Call) exprNode()              {}

// Attribute represents `value.attr`.
type Attribute struct {
	Span  position.Span
	Value Expr
	Attr  string
}

func (e *Attribute) GetSpan() position.Span { return e.Span }
func (e *Attribute) exprNode()              {}

// Subscript represents `value[index]`; slices appear as SliceExpr in
// the Index position.
type Subscript struct {
	Span  position.Span
	Value Expr
	Index Expr
}

func (e *Subscript) GetSpan() position.Span { return e.Span }
func (e *Subscript) exprNode()              {}

// SliceExpr represents `lower:upper:step` inside a subscript.
type SliceExpr struct {
	Span  position.Span
	Lower Expr
	Upper Expr
	Step  Expr
}

func (e *SliceExpr) GetSpan() position.Span { return e.Span }
func (e *SliceExpr) exprNode()              {}

// IfExp represents the ternary `body if test else orelse`.
type IfExp struct {
	Span   position.Span
	Test   Expr
	Body   Expr
	Orelse Expr
}

func (e *IfExp) GetSpan() position.Span { return e.Span }
func (e *IfExp) exprNode()              {}

// Lambda represents a lambda expression.
type Lambda struct {
	Span   position.Span
	Params []Param
	Body   Expr
}

func (e *Lambda) GetSpan() position.Span { return e.Span }
func (e *Lambda) exprNode()              {}

// ListLit represents `[a, b, c]`.
type ListLit struct {
	Span position.Span
	Elts []Expr
}

func (e *ListLit) GetSpan() position.Span { return e.Span }
func (e *ListLit) exprNode()              {}

// TupleLit represents `(a, b)` and bare tuples in target position.
type TupleLit struct {
	Span position.Span
	Elts []Expr
}

func (e *TupleLit) GetSpan() position.Span { return e.Span }
func (e *TupleLit) exprNode()              {}

// SetLit represents `{a, b}`.
type SetLit struct {
	Span position.Span
	Elts []Expr
}

func (e *SetLit) GetSpan() position.Span { return e.Span }
func (e *SetLit) exprNode()              {}

// DictLit represents `{k: v, ...}`; Keys[i] pairs with Values[i].
type DictLit struct {
	Span   position.Span
	Keys   []Expr
	Values []Expr
}

func (e *DictLit) GetSpan() position.Span { return e.Span }
func (e *DictLit) exprNode()              {}

// Starred represents `*value` in call arguments or targets.
type Starred struct {
	Span  position.Span
	Value Expr
}

func (e *Starred) GetSpan() position.Span { return e.Span }
func (e *Starred) exprNode()              {}

// CompKind discriminates the comprehension forms.
type CompKind int

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGen
)

// CompClause is one `for target in iter [if cond]...` clause.
type CompClause struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

// Comprehension represents list/set/dict comprehensions and generator
// expressions. For dict comprehensions Key and Value are set; the other
// forms use Elt.
type Comprehension struct {
	Span    position.Span
	Kind    CompKind
	Elt     Expr
	Key     Expr
	Value   Expr
	Clauses []CompClause
}

func (e *Comprehension) GetSpan() position.Span { return e.Span }
func (e *Comprehension) exprNode()              {}

// Await represents `await value`.
type Await struct {
	Span  position.Span
	Value Expr
}

func (e *Await) GetSpan() position.Span { return e.Span }
func (e *Await) exprNode()              {}

// Yield represents `yield [value]`.
type Yield struct {
	Span  position.Span
	Value Expr // nil for bare yield
}

func (e *Yield) GetSpan() position.Span { return e.Span }
func (e *Yield) exprNode()              {}

// YieldFrom represents `yield from value`.
type YieldFrom struct {
	Span  position.Span
	Value Expr
}

func (e *YieldFrom) GetSpan() position.Span { return e.Span }
func (e *YieldFrom) exprNode()              {}

// NamedExpr represents the walrus operator `target := value`.
type NamedExpr struct {
	Span   position.Span
	Target *Name
	Value  Expr
}

func (e *NamedExpr) GetSpan() position.Span { return e.Span }
func (e *NamedExpr) exprNode()              {}
