package infer

import (
	"strconv"

	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// syntheticNames is the pool for type variables inference invents for
// parameters with only generic uses.
var syntheticNames = []string{"T", "U", "V", "W"}

// typeVarRegistry tracks the explicit TypeVar names a signature mentions,
// hands out synthetic ones, and accumulates the substitution map built
// from concrete observations.
type typeVarRegistry struct {
	explicit map[string]bool
	synth    map[string]bool
	subst    map[string]types.PyType
	next     int
}

func newTypeVarRegistry(fn *hir.Function) *typeVarRegistry {
	reg := &typeVarRegistry{
		explicit: make(map[string]bool),
		synth:    make(map[string]bool),
		subst:    make(map[string]types.PyType),
	}
	for _, p := range fn.Params {
		collectTypeVars(p.Type, reg.explicit)
	}
	collectTypeVars(fn.RetType, reg.explicit)
	return reg
}

func collectTypeVars(t types.PyType, into map[string]bool) {
	switch t.Kind {
	case types.KindTypeVar:
		into[t.Name] = true
	case types.KindList, types.KindSet, types.KindFrozenSet, types.KindOptional:
		collectTypeVars(t.ElemType(), into)
	case types.KindDict:
		if t.Key != nil {
			collectTypeVars(*t.Key, into)
		}
		collectTypeVars(t.ElemType(), into)
	case types.KindTuple, types.KindUnion, types.KindCallable:
		for _, it := range t.Items {
			collectTypeVars(it, into)
		}
		if t.Ret != nil {
			collectTypeVars(*t.Ret, into)
		}
	}
}

// fresh returns a synthetic type-variable name not colliding with any
// explicit one.
func (reg *typeVarRegistry) fresh() string {
	for {
		var name string
		if reg.next < len(syntheticNames) {
			name = syntheticNames[reg.next]
		} else {
			name = "T" + strconv.Itoa(reg.next-len(syntheticNames)+2)
		}
		reg.next++
		if !reg.explicit[name] {
			reg.synth[name] = true
			return name
		}
	}
}

// observe records a substitution when a type variable meets a concrete
// type across a comparison.
func (reg *typeVarRegistry) observe(a, b types.PyType) {
	reg.observeOne(a, b)
	reg.observeOne(b, a)
}

func (reg *typeVarRegistry) observeOne(tv, other types.PyType) {
	if tv.Kind != types.KindTypeVar || other.IsUnknown() || other.Kind == types.KindTypeVar {
		return
	}
	if !reg.explicit[tv.Name] && !reg.synth[tv.Name] {
		return
	}
	if prev, ok := reg.subst[tv.Name]; ok {
		if merged, mok := types.Unify(prev, other); mok {
			reg.subst[tv.Name] = merged
		}
		return
	}
	reg.subst[tv.Name] = other
}

// apply rewrites the signature with any accumulated substitutions. When
// every variable resolved concrete, no generic parameter survives to
// emission.
func (reg *typeVarRegistry) apply(fn *hir.Function) {
	if len(reg.subst) == 0 {
		return
	}
	for _, p := range fn.Params {
		p.Type = reg.substitute(p.Type)
	}
	fn.RetType = reg.substitute(fn.RetType)
}

func (reg *typeVarRegistry) substitute(t types.PyType) types.PyType {
	switch t.Kind {
	case types.KindTypeVar:
		if bound, ok := reg.subst[t.Name]; ok {
			return bound
		}
		return t
	case types.KindList:
		return types.List(reg.substitute(t.ElemType()))
	case types.KindSet:
		return types.Set(reg.substitute(t.ElemType()))
	case types.KindFrozenSet:
		return types.FrozenSet(reg.substitute(t.ElemType()))
	case types.KindOptional:
		return types.Optional(reg.substitute(t.ElemType()))
	case types.KindDict:
		return types.Dict(reg.substitute(deref(t.Key)), reg.substitute(t.ElemType()))
	case types.KindTuple:
		items := make([]types.PyType, len(t.Items))
		for i, it := range t.Items {
			items[i] = reg.substitute(it)
		}
		return types.Tuple(items...)
	case types.KindCallable:
		params := make([]types.PyType, len(t.Items))
		for i, it := range t.Items {
			params[i] = reg.substitute(it)
		}
		return types.Callable(params, reg.substitute(deref(t.Ret)))
	}
	return t
}

