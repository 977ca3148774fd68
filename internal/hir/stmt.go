package hir

import (
	"github.com/pyrs-lang/pyrs/internal/position"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// TargetKind discriminates assignment target shapes.
type TargetKind int

const (
	TargetName TargetKind = iota
	TargetTuple
	TargetIndex
	TargetAttr
)

// Target is a structured assignment / loop target.
type Target struct {
	Span position.Span
	Kind TargetKind

	Name string   // TargetName
	Elts []Target // TargetTuple, in order

	Obj   Expr   // TargetIndex / TargetAttr receiver
	Index Expr   // TargetIndex subscript
	Attr  string // TargetAttr attribute name
}

// Names returns every plain name bound by the target, tuple elements
// included. Index and attribute stores bind nothing new.
func (t Target) Names() []string {
	switch t.Kind {
	case TargetName:
		return []string{t.Name}
	case TargetTuple:
		var out []string
		for _, e := range t.Elts {
			out = append(out, e.Names()...)
		}
		return out
	}
	return nil
}

// Assign represents `target = value`.
type Assign struct {
	Span   position.Span
	Target Target
	Value  Expr
}

func (s *Assign) GetSpan() position.Span { return s.Span }
func (s *Assign) stmtNode()              {}

// AnnAssign represents `target: T = value`; Type holds the parsed
// annotation.
type AnnAssign struct {
	Span   position.Span
	Target Target
	Type   types.PyType
	Value  Expr // nil for a bare declaration
}

func (s *AnnAssign) GetSpan() position.Span { return s.Span }
func (s *AnnAssign) stmtNode()              {}

// AugAssign represents `target op= value`. Kept distinct from Assign to
// retain intent (`lst += [x]` lowers to push, not concat-and-rebind).
type AugAssign struct {
	Span   position.Span
	Op     string
	Target Target
	Value  Expr
}

func (s *AugAssign) GetSpan() position.Span { return s.Span }
func (s *AugAssign) stmtNode()              {}

// Return represents a return statement.
type Return struct {
	Span  position.Span
	Value Expr // nil for bare return
}

func (s *Return) GetSpan() position.Span { return s.Span }
func (s *Return) stmtNode()              {}

// If represents a conditional with optional else branch.
type If struct {
	Span position.Span
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (s *If) GetSpan() position.Span { return s.Span }
func (s *If) stmtNode()              {}

// While represents a while loop.
type While struct {
	Span position.Span
	Cond Expr
	Body []Stmt
}

func (s *While) GetSpan() position.Span { return s.Span }
func (s *While) stmtNode()              {}

// For represents a for loop over an iterable.
type For struct {
	Span   position.Span
	Target Target
	Iter   Expr
	Body   []Stmt
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

// Handler is one except clause of a Try.
type Handler struct {
	Span     position.Span
	TypeName string // exception type, empty for bare except
	Bind     string // bound variable, empty when absent
	Body     []Stmt
}

// Try represents try/except/else/finally.
type Try struct {
	Span     position.Span
	Body     []Stmt
	Handlers []Handler
	Else     []Stmt
	Finally  []Stmt
}

func (s *Try) GetSpan() position.Span { return s.Span }
func (s *Try) stmtNode()              {}

// WithItem is one scoped acquisition of a With.
type WithItem struct {
	Ctx  Expr
	Bind string // empty when no `as` clause
}

// With represents scoped acquisition with guaranteed drop on exit.
type With struct {
	Span  position.Span
	Items []WithItem
	Body  []Stmt
}

func (s *With) GetSpan() position.Span { return s.Span }
func (s *With) stmtNode()              {}

// Raise represents a raise statement; nil Exc re-throws the currently
// captured error.
type Raise struct {
	Span position.Span
	Exc  Expr
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

// ExprStmt represents an expression in statement position.
type ExprStmt struct {
	Span  position.Span
	Value Expr
}

func (s *ExprStmt) GetSpan() position.Span { return s.Span }
func (s *ExprStmt) stmtNode()              {}

// NestedFunc represents a function defined inside another function.
type NestedFunc struct {
	Span position.Span
	Fn   *Function
}

func (s *NestedFunc) GetSpan() position.Span { return s.Span }
func (s *NestedFunc) stmtNode()              {}
