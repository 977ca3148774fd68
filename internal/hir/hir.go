// Package hir defines the High-level Intermediate Representation (HIR)
// for the pyrs transpiler. The HIR is a typed tree mirroring the source
// program: control flow and ownership-relevant structure are explicit,
// and every expression node carries a type slot that inference fills
// in place. Nothing after inference writes the slots; ownership
// analysis and emission only read them.
package hir

import (
	"github.com/pyrs-lang/pyrs/internal/position"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// Node is the base interface for all HIR nodes.
type Node interface {
	// GetSpan returns the source span covered by this node.
	GetSpan() position.Span
}

// Stmt represents all statement nodes in the HIR.
type Stmt interface {
	Node
	stmtNode() // Marker method to distinguish statements
}

// Expr represents all expression nodes in the HIR. Every expression
// carries a type slot, Unknown until inference fills it.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
	// GetType returns the current contents of the type slot.
	GetType() types.PyType
	// SetType overwrites the type slot. Only inference calls this.
	SetType(t types.PyType)
}

// typed is embedded by every expression node to provide the type slot.
type typed struct {
	Type types.PyType
}

func (t *typed) GetType() types.PyType   { return t.Type }
func (t *typed) SetType(ty types.PyType) { t.Type = ty }

// ImportPolicy classifies how an import is handled downstream.
type ImportPolicy int

const (
	// ImportStdlibHandled means call sites are rewritten or a shim is
	// emitted (re, datetime, hashlib, json, math, sys, time, random,
	// argparse, pathlib, colorsys, os).
	ImportStdlibHandled ImportPolicy = iota
	// ImportEcosystem means a need-flag is raised for an external crate
	// (asyncio -> tokio).
	ImportEcosystem
	// ImportOpaque passes the name through as a Custom type.
	ImportOpaque
)

// Import is one classified import item.
type Import struct {
	Span   position.Span
	Module string // "datetime", "re", ...
	Name   string // imported symbol for from-imports, empty otherwise
	Alias  string // local alias, empty when none
	Policy ImportPolicy
}

// Constant is a module-level assignment surfaced as a const or
// one-time-initialized item; its type comes from the initializer.
type Constant struct {
	Span  position.Span
	Name  string
	Type  types.PyType
	Value Expr
}

// Module is the HIR root for one source file. Item order is first-seen
// source order; the emitter relies on it for stable output.
type Module struct {
	Span      position.Span
	Name      string
	Imports   []*Import
	Constants []*Constant
	Functions []*Function
	Classes   []*Class
	// HasMainGuard is set when the module ends with the
	// `if __name__ == "__main__":` idiom calling a main function.
	HasMainGuard bool
	MainCall     string // function invoked under the guard
	Source       *position.SourceFile
}

func (m *Module) GetSpan() position.Span { return m.Span }

// FindFunction returns the named top-level function or nil.
func (m *Module) FindFunction(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// FindClass returns the named class or nil.
func (m *Module) FindClass(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Param is one formal parameter with its type slot.
type Param struct {
	Span     position.Span
	Name     string
	Type     types.PyType
	Default  Expr // nil when absent
	IsVararg bool
	IsKwarg  bool
	// Annotated is true when Type came from a source annotation rather
	// than inference; annotated types are never overwritten.
	Annotated bool
}

// Function is a function or method definition.
type Function struct {
	Span       position.Span
	Name       string
	Params     []*Param
	RetType    types.PyType
	RetAnnotated bool
	Body       []Stmt
	Docstring  string
	Decorators []string

	IsAsync     bool
	IsGenerator bool // has at least one Yield in its body
	CanFail     bool
	ErrorTypes  []string // exception type names reaching the signature

	// IsMethod marks functions lowered from a class body; the first
	// parameter is self unless the function is static.
	IsMethod      bool
	IsStaticMethod bool
	IsClassMethod  bool
	IsProperty     bool

	// Annotations is a free-form bag filled by the bridge (e.g. the
	// argparse recognition notes which parser variable is built here).
	Annotations map[string]string
}

func (f *Function) GetSpan() position.Span { return f.Span }

// HasDecorator reports whether the decorator list contains name
// (exact match or a call form like `name(...)`).
func (f *Function) HasDecorator(name string) bool {
	for _, d := range f.Decorators {
		if d == name || (len(d) > len(name) && d[:len(name)] == name && d[len(name)] == '(') {
			return true
		}
	}
	return false
}

// ClassKind classifies how a class is lowered.
type ClassKind int

const (
	// ClassPlain lowers to a struct with private fields and inherent
	// methods.
	ClassPlain ClassKind = iota
	// ClassRecord lowers to a struct with public fields and a derived
	// constructor (dataclass-like).
	ClassRecord
	// ClassADTParent is an ABC with child classes: lowers to a tagged
	// enum whose variants are the children.
	ClassADTParent
	// ClassADTChild is a concrete subclass folded into its parent enum.
	ClassADTChild
	// ClassEnum is a Python Enum subclass: lowers to a fieldless enum.
	ClassEnum
)

// Field is one class field with a type slot and optional default.
type Field struct {
	Span    position.Span
	Name    string
	Type    types.PyType
	Default Expr // nil when absent
}

// Class is a class definition after classification.
type Class struct {
	Span       position.Span
	Name       string
	Kind       ClassKind
	Bases      []string
	Fields     []*Field
	Methods    []*Function
	Docstring  string
	Decorators []string

	// Parent names the ADT parent for ClassADTChild.
	Parent string
	// Children lists concrete subclasses for ClassADTParent, in
	// declaration order.
	Children []string
	// EnumMembers holds name/value pairs for ClassEnum, in order.
	EnumMembers []EnumMember
}

func (c *Class) GetSpan() position.Span { return c.Span }

// EnumMember is one member of a Python Enum class.
type EnumMember struct {
	Name  string
	Value Expr
}

// AllFieldsHashable reports whether every field type supports Hash+Eq
// in the target, which gates derive(Eq, Hash) on records.
func (c *Class) AllFieldsHashable() bool {
	for _, f := range c.Fields {
		switch f.Type.Kind {
		case types.KindFloat, types.KindDict, types.KindSet, types.KindFrozenSet, types.KindUnknown:
			return false
		}
	}
	return true
}
