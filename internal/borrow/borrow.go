// Package borrow decides, per function parameter, how the emitted Rust
// signature takes it: owned, shared borrow, mutable borrow, or
// copy-on-write. It also names the lifetimes the signature needs. The
// analysis runs after type inference and never mutates the HIR; results
// land in an immutable fact table the emitter reads.
package borrow

import (
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// Strategy is the ownership decision for one parameter.
type Strategy int

const (
	// Own passes the value by move (or implicit copy for Copy types).
	Own Strategy = iota
	// SharedBorrow passes &T.
	SharedBorrow
	// MutableBorrow passes &mut T.
	MutableBorrow
	// UseCow passes &str and returns Cow, for functions that sometimes
	// hand the input back unchanged and sometimes build a new string.
	UseCow
)

func (s Strategy) String() string {
	switch s {
	case SharedBorrow:
		return "shared"
	case MutableBorrow:
		return "mut"
	case UseCow:
		return "cow"
	default:
		return "own"
	}
}

// ParamFacts is the decision for a single parameter.
type ParamFacts struct {
	Strategy Strategy
	// Lifetime is the named lifetime tied to this borrow, empty when
	// elided or not borrowed.
	Lifetime string
	// Escapes is set when the parameter syntactically reaches a return
	// expression.
	Escapes bool
	// Mutated is set when the body writes through the parameter.
	Mutated bool
}

// FuncFacts aggregates the analysis results for one function.
type FuncFacts struct {
	Params map[string]*ParamFacts
	// Lifetimes lists the named lifetime parameters for the signature,
	// in order of first appearance. Empty when all borrows elide.
	Lifetimes []string
	// ReturnLifetime names the lifetime on a borrowed or Cow return.
	ReturnLifetime string
	// ReturnBorrowed is set when the return type is a reference into a
	// parameter rather than an owned value.
	ReturnBorrowed bool
	// ReturnCow is set when the return becomes Cow<'lt, str>.
	ReturnCow bool
	// ReturnOwnedForced is set when an owning transform at every return
	// site overrides any borrow decision.
	ReturnOwnedForced bool
}

// Analyzer runs ownership analysis over one module.
type Analyzer struct {
	diags *diagnostic.Collector
	facts map[string]*FuncFacts
}

// New builds an Analyzer reporting into diags.
func New(diags *diagnostic.Collector) *Analyzer {
	return &Analyzer{diags: diags, facts: make(map[string]*FuncFacts)}
}

// Run analyzes every function and method; the result map is keyed by
// function name, methods as "Class.method".
func (a *Analyzer) Run(mod *hir.Module) map[string]*FuncFacts {
	for _, fn := range mod.Functions {
		a.facts[fn.Name] = a.analyze(fn)
	}
	for _, c := range mod.Classes {
		for _, m := range c.Methods {
			a.facts[c.Name+"."+m.Name] = a.analyze(m)
		}
	}
	return a.facts
}

// Facts returns the fact table built by Run.
func (a *Analyzer) Facts() map[string]*FuncFacts { return a.facts }

// analyze applies the per-parameter decision procedure in order: Copy,
// mutation, escape, heap-owning read, default move.
func (a *Analyzer) analyze(fn *hir.Function) *FuncFacts {
	ff := &FuncFacts{Params: make(map[string]*ParamFacts, len(fn.Params))}

	mutated := collectMutated(fn)
	escapes := collectEscaping(fn)
	ownedAll, ownedSome := owningTransformReturns(fn)
	cowOK := cowEligible(fn)

	for _, p := range fn.Params {
		if p.Name == "self" {
			continue
		}
		pf := &ParamFacts{
			Mutated: mutated[p.Name],
			Escapes: escapes[p.Name],
		}
		ff.Params[p.Name] = pf

		switch {
		case types.IsCopy(p.Type):
			pf.Strategy = Own
		case pf.Mutated:
			pf.Strategy = MutableBorrow
			if pf.Escapes && !ownedAll {
				a.diags.Addf(diagnostic.LevelWarning, diagnostic.KindAmbiguity, fn.GetSpan(),
					"parameter %q of %s is both mutated and returned; emitting &mut with an owned return", p.Name, fn.Name)
			}
		case pf.Escapes && !ownedAll:
			if ownedSome && cowOK && p.Type.Kind == types.KindString {
				pf.Strategy = UseCow
				ff.ReturnCow = true
			} else {
				pf.Strategy = SharedBorrow
				ff.ReturnBorrowed = ff.ReturnBorrowed || borrowableReturn(fn.RetType)
			}
		case heapOwning(p.Type):
			pf.Strategy = SharedBorrow
		default:
			pf.Strategy = Own
		}
	}

	if ownedAll {
		ff.ReturnOwnedForced = true
		ff.ReturnCow = false
		for _, pf := range ff.Params {
			if pf.Strategy == UseCow {
				pf.Strategy = SharedBorrow
			}
		}
	}

	nameLifetimes(fn, ff)
	return ff
}

// heapOwning reports whether the type owns heap storage, making a
// shared borrow cheaper than a move for read-only use.
func heapOwning(t types.PyType) bool {
	switch t.Kind {
	case types.KindString, types.KindBytes, types.KindList, types.KindSet,
		types.KindFrozenSet, types.KindDict, types.KindCustom:
		return true
	case types.KindOptional:
		return heapOwning(t.ElemType())
	}
	return false
}

// borrowableReturn reports whether the return type can be expressed as a
// reference into a parameter.
func borrowableReturn(t types.PyType) bool {
	switch t.Kind {
	case types.KindString, types.KindBytes, types.KindList, types.KindDict,
		types.KindSet, types.KindCustom:
		return true
	case types.KindOptional:
		return borrowableReturn(t.ElemType())
	}
	return false
}
