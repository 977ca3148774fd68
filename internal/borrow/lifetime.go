package borrow

import (
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// nameLifetimes applies the elision rules in order: a lone shared borrow
// with a borrowed return elides, multiple borrows introduce 'a on the
// escaping parameter and the return, Cow always carries its lifetime,
// and a signature without borrows gets none.
func nameLifetimes(fn *hir.Function, ff *FuncFacts) {
	if ff.ReturnCow {
		ff.Lifetimes = []string{"'a"}
		ff.ReturnLifetime = "'a"
		for _, pf := range ff.Params {
			if pf.Strategy == UseCow {
				pf.Lifetime = "'a"
			}
		}
		return
	}

	// A returned closure capturing a borrow needs the function lifetime
	// spelled out to bound the impl Fn.
	if fn.RetType.Kind == types.KindCallable && anyBorrow(ff) {
		ff.Lifetimes = []string{"'a"}
		ff.ReturnLifetime = "'a"
		for _, pf := range ff.Params {
			if pf.Strategy == SharedBorrow && pf.Escapes {
				pf.Lifetime = "'a"
			}
		}
		return
	}

	if !ff.ReturnBorrowed {
		return
	}

	shared := 0
	for _, pf := range ff.Params {
		if pf.Strategy == SharedBorrow {
			shared++
		}
	}
	if shared <= 1 {
		// Rust's elision covers a single input reference.
		return
	}
	named := false
	for _, pf := range ff.Params {
		if pf.Strategy == SharedBorrow && pf.Escapes {
			pf.Lifetime = "'a"
			named = true
		}
	}
	if named {
		ff.Lifetimes = []string{"'a"}
		ff.ReturnLifetime = "'a"
	}
}

func anyBorrow(ff *FuncFacts) bool {
	for _, pf := range ff.Params {
		if pf.Strategy == SharedBorrow || pf.Strategy == MutableBorrow || pf.Strategy == UseCow {
			return true
		}
	}
	return false
}
