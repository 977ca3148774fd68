// Package infer fills the HIR's type slots: parameter types from use-site
// evidence, return types from return paths, container element types, and
// generic type-variable substitution. The pass is flow-insensitive; a
// single forward walk per function with evidence unification is enough for
// the supported subset.
package infer

import (
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// Inferencer runs inference over one module.
type Inferencer struct {
	diags *diagnostic.Collector
	mod   *hir.Module

	// returns is the module-wide function return table. A function's
	// entry is recorded before later functions are processed, so call
	// sites in declaration order see inferred results.
	returns map[string]types.PyType

	// adtParent maps a concrete subclass name to its ABC parent. Return
	// types naming a child are rewritten to the parent enum.
	adtParent map[string]string

	// classFields resolves attribute loads on known class instances.
	classFields map[string]map[string]types.PyType

	// iterVars records, per parameter iterated in the current function,
	// the loop variable names its elements bind to. loopVarEvidence holds
	// what the body revealed about each such loop variable. Both reset
	// per function.
	iterVars        map[string][]string
	loopVarEvidence map[string]types.PyType
}

// New builds an Inferencer reporting into diags.
func New(diags *diagnostic.Collector) *Inferencer {
	return &Inferencer{
		diags:       diags,
		returns:     make(map[string]types.PyType),
		adtParent:   make(map[string]string),
		classFields: make(map[string]map[string]types.PyType),
	}
}

// Returns exposes the function return table for the emission phase.
func (in *Inferencer) Returns() map[string]types.PyType { return in.returns }

// Run infers types for every function and method in the module, in
// declaration order. Annotated slots are never overwritten.
func (in *Inferencer) Run(mod *hir.Module) {
	in.mod = mod

	for _, c := range mod.Classes {
		fields := make(map[string]types.PyType, len(c.Fields))
		for _, f := range c.Fields {
			fields[f.Name] = f.Type
		}
		in.classFields[c.Name] = fields
		if c.Kind == hir.ClassADTChild && c.Parent != "" {
			in.adtParent[c.Name] = c.Parent
		}
	}

	// Seed the return table with annotated signatures so forward calls
	// to annotated functions type correctly regardless of order.
	for _, fn := range mod.Functions {
		if fn.RetAnnotated {
			in.returns[fn.Name] = fn.RetType
		}
	}
	for _, c := range mod.Classes {
		for _, m := range c.Methods {
			if m.RetAnnotated {
				in.returns[c.Name+"."+m.Name] = m.RetType
			}
		}
	}

	for _, fn := range mod.Functions {
		in.inferFunction(fn, "")
		in.returns[fn.Name] = fn.RetType
	}
	for _, c := range mod.Classes {
		for _, m := range c.Methods {
			in.inferFunction(m, c.Name)
			in.returns[c.Name+"."+m.Name] = m.RetType
		}
	}
}

// inferFunction runs the per-function sub-passes in order: parameter
// evidence, body typing, return inference, generic substitution, ADT
// return rewrite.
func (in *Inferencer) inferFunction(fn *hir.Function, className string) {
	reg := newTypeVarRegistry(fn)

	in.inferParams(fn, reg)

	scope := newScope()
	for _, p := range fn.Params {
		scope.bind(p.Name, p.Type)
	}
	if className != "" && fn.IsMethod && !fn.IsStaticMethod {
		scope.bind("self", types.Custom(className))
	}

	et := &exprTyper{in: in, scope: scope, reg: reg}
	et.typeBlock(fn.Body)

	// A loop-sourced List(Unknown) parameter picks up its element type
	// from whatever the loop variable settled on.
	in.refineIterated(fn, scope)

	if !fn.RetAnnotated {
		fn.RetType = in.inferReturn(fn, et)
	}

	reg.apply(fn)
	in.rewriteADTReturn(fn)
}

// rewriteADTReturn replaces a return type naming an ADT child with the
// parent enum, through Optional and List wrappers.
func (in *Inferencer) rewriteADTReturn(fn *hir.Function) {
	fn.RetType = in.adtRewrite(fn.RetType)
}

func (in *Inferencer) adtRewrite(t types.PyType) types.PyType {
	switch t.Kind {
	case types.KindCustom:
		if parent, ok := in.adtParent[t.Name]; ok {
			return types.Custom(parent)
		}
	case types.KindOptional:
		return types.Optional(in.adtRewrite(t.ElemType()))
	case types.KindList:
		return types.List(in.adtRewrite(t.ElemType()))
	case types.KindSet:
		return types.Set(in.adtRewrite(t.ElemType()))
	}
	return t
}
