package codegen

import (
	"sort"

	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// Needs records which external crates, runtime attributes, and prelude
// shims the emitted module depends on. The driver feeds it to manifest
// generation; the emitter feeds it to prelude selection.
type Needs struct {
	AsyncRuntime bool // tokio main attribute
	Regex        bool
	Chrono       bool
	Sha2         bool
	Md5          bool
	Blake2       bool
	Rand         bool
	SerdeJson    bool
	Clap         bool

	// Exceptions names the error-shim structs the prelude must define.
	Exceptions map[string]bool
	// PyValue requests the dynamic-value sum type.
	PyValue bool
	// DateTimeShim requests the datetime/timedelta wrappers.
	DateTimeShim bool
	// MatchShim requests the regex Match wrapper.
	MatchShim bool
	// ColorShim requests the colorsys conversion functions.
	ColorShim bool
}

func newNeeds() *Needs {
	return &Needs{Exceptions: make(map[string]bool)}
}

// ExceptionNames returns the requested shims sorted for stable output.
func (n *Needs) ExceptionNames() []string {
	out := make([]string, 0, len(n.Exceptions))
	for name := range n.Exceptions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (n *Needs) exception(name string) {
	if name == "" {
		name = "RuntimeError"
	}
	n.Exceptions[name] = true
}

// fnContext is the per-function emission state, reset at each function.
type fnContext struct {
	fn        *hir.Function
	facts     *borrow.FuncFacts
	mutLocals map[string]bool
	// declared tracks locals already bound with let, so re-assignment
	// emits a plain store instead of shadowing.
	declared map[string]bool
	// className is set while emitting methods.
	className string
	// errType is the concrete error type used in Result returns.
	errType string
	// tempID numbers synthesized bindings within the function.
	tempID int
	// yieldSink names the Vec receiving yields under eager generator
	// lowering; empty otherwise.
	yieldSink string
}

func (fc *fnContext) freshTemp(prefix string) string {
	fc.tempID++
	return "_" + prefix + itoa(fc.tempID)
}

// strategyOf looks up the borrow decision for a parameter, defaulting
// to Own for names the analysis never saw.
func (fc *fnContext) strategyOf(name string) borrow.Strategy {
	if fc.facts == nil {
		return borrow.Own
	}
	if pf, ok := fc.facts.Params[name]; ok {
		return pf.Strategy
	}
	return borrow.Own
}

// isParamBorrowed reports whether name is a parameter passed by
// reference, which affects deref and clone decisions in expressions.
func (fc *fnContext) isParamBorrowed(name string) bool {
	s := fc.strategyOf(name)
	return s == borrow.SharedBorrow || s == borrow.MutableBorrow || s == borrow.UseCow
}

func (fc *fnContext) paramType(name string) (types.PyType, bool) {
	for _, p := range fc.fn.Params {
		if p.Name == name {
			return p.Type, true
		}
	}
	return types.PyType{}, false
}
