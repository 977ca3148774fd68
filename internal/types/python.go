// Package types defines the canonical type models used across the pyrs
// pipeline: the Python-side type sum the inference engine works on, the
// Rust-side type sum emission renders, and the mapping between them.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// PyKind discriminates the Python-side type sum.
type PyKind int

const (
	KindUnknown PyKind = iota // absence of information; inference target
	KindNone
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindSet
	KindFrozenSet
	KindTuple
	KindDict
	KindOptional
	KindUnion
	KindCustom
	KindTypeVar
	KindCallable
)

func (k PyKind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindNone:
		return "None"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindFrozenSet:
		return "frozenset"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dict"
	case KindOptional:
		return "Optional"
	case KindUnion:
		return "Union"
	case KindCustom:
		return "custom"
	case KindTypeVar:
		return "TypeVar"
	case KindCallable:
		return "Callable"
	default:
		return "invalid"
	}
}

// PyType is one node of the Python-side type sum.
//
// Field usage by kind:
//   - List, Set, FrozenSet, Optional: Elem
//   - Dict: Key and Elem (value)
//   - Tuple: Items (empty Items means the bare `-> tuple` form,
//     treated as infer-from-returns)
//   - Union: Items (canonicalized, see CanonicalizeUnion)
//   - Custom, TypeVar: Name
//   - Callable: Items (parameters) and Ret
type PyType struct {
	Kind  PyKind
	Name  string
	Elem  *PyType
	Key   *PyType
	Items []PyType
	Ret   *PyType
}

// Convenience constructors. Scalar types are values, not singletons;
// PyType is small enough to copy freely.

func Unknown() PyType  { return PyType{Kind: KindUnknown} }
func NoneType() PyType { return PyType{Kind: KindNone} }
func Bool() PyType     { return PyType{Kind: KindBool} }
func Int() PyType      { return PyType{Kind: KindInt} }
func Float() PyType    { return PyType{Kind: KindFloat} }
func Str() PyType      { return PyType{Kind: KindString} }
func Bytes() PyType    { return PyType{Kind: KindBytes} }

func List(elem PyType) PyType      { return PyType{Kind: KindList, Elem: &elem} }
func Set(elem PyType) PyType       { return PyType{Kind: KindSet, Elem: &elem} }
func FrozenSet(elem PyType) PyType { return PyType{Kind: KindFrozenSet, Elem: &elem} }
func Dict(key, value PyType) PyType {
	return PyType{Kind: KindDict, Key: &key, Elem: &value}
}
func Tuple(items ...PyType) PyType { return PyType{Kind: KindTuple, Items: items} }

func Custom(name string) PyType  { return PyType{Kind: KindCustom, Name: name} }
func TypeVar(name string) PyType { return PyType{Kind: KindTypeVar, Name: name} }

func Callable(params []PyType, ret PyType) PyType {
	return PyType{Kind: KindCallable, Items: params, Ret: &ret}
}

// Optional wraps inner in Optional, collapsing nested Optionals:
// Optional(Optional(T)) == Optional(T), and Optional(None) == None.
func Optional(inner PyType) PyType {
	if inner.Kind == KindOptional {
		return inner
	}
	if inner.Kind == KindNone {
		return inner
	}
	return PyType{Kind: KindOptional, Elem: &inner}
}

// Union builds a canonicalized union of the given variants.
func Union(variants ...PyType) PyType {
	return CanonicalizeUnion(variants)
}

// IsUnknown reports whether the type carries no information, including
// Optional(Unknown) which is the shape of an unannotated default=None
// parameter before inference.
func (t PyType) IsUnknown() bool {
	if t.Kind == KindUnknown {
		return true
	}
	return t.Kind == KindOptional && t.Elem != nil && t.Elem.Kind == KindUnknown
}

// IsNumeric reports whether the type is int or float.
func (t PyType) IsNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

// IsContainer reports whether the type is a sized container whose
// truthiness is emptiness.
func (t PyType) IsContainer() bool {
	switch t.Kind {
	case KindList, KindSet, KindFrozenSet, KindDict, KindTuple, KindString, KindBytes:
		return true
	}
	return false
}

// ElemType returns the element type of a container, Unknown otherwise.
// For dicts this is the key type, matching Python iteration order.
func (t PyType) ElemType() PyType {
	switch t.Kind {
	case KindList, KindSet, KindFrozenSet:
		if t.Elem != nil {
			return *t.Elem
		}
	case KindDict:
		if t.Key != nil {
			return *t.Key
		}
	case KindString:
		return Str()
	case KindOptional:
		if t.Elem != nil {
			return t.Elem.ElemType()
		}
	}
	return Unknown()
}

// Equals reports deep structural equality.
func (t PyType) Equals(other PyType) bool {
	if t.Kind != other.Kind || t.Name != other.Name {
		return false
	}
	if !ptrEquals(t.Elem, other.Elem) || !ptrEquals(t.Key, other.Key) || !ptrEquals(t.Ret, other.Ret) {
		return false
	}
	if len(t.Items) != len(other.Items) {
		return false
	}
	for i := range t.Items {
		if !t.Items[i].Equals(other.Items[i]) {
			return false
		}
	}
	return true
}

func ptrEquals(a, b *PyType) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equals(*b)
}

// String renders the type in Python annotation syntax, for diagnostics
// and debug dumps.
func (t PyType) String() string {
	switch t.Kind {
	case KindList, KindSet, KindFrozenSet:
		return fmt.Sprintf("%s[%s]", t.Kind, t.Elem)
	case KindDict:
		return fmt.Sprintf("dict[%s, %s]", t.Key, t.Elem)
	case KindTuple:
		if len(t.Items) == 0 {
			return "tuple"
		}
		return "tuple[" + joinTypes(t.Items) + "]"
	case KindOptional:
		return fmt.Sprintf("Optional[%s]", t.Elem)
	case KindUnion:
		return "Union[" + joinTypes(t.Items) + "]"
	case KindCustom, KindTypeVar:
		return t.Name
	case KindCallable:
		return fmt.Sprintf("Callable[[%s], %s]", joinTypes(t.Items), t.Ret)
	default:
		return t.Kind.String()
	}
}

func joinTypes(ts []PyType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Unify computes a shallow least upper bound of two types.
// Unknown absorbs. int joined with float is float. Equal constructors
// recurse on their parameters. Incompatible constructors return false;
// the caller decides whether to fall back to Unknown or diagnose.
func Unify(a, b PyType) (PyType, bool) {
	if a.Kind == KindUnknown {
		return b, true
	}
	if b.Kind == KindUnknown {
		return a, true
	}

	// None against T yields Optional(T).
	if a.Kind == KindNone {
		return Optional(b), true
	}
	if b.Kind == KindNone {
		return Optional(a), true
	}

	// Numeric promotion.
	if a.IsNumeric() && b.IsNumeric() {
		if a.Kind == KindFloat || b.Kind == KindFloat {
			return Float(), true
		}
		return Int(), true
	}

	if a.Kind != b.Kind {
		// Optional(T) against T unifies to Optional(T).
		if a.Kind == KindOptional && a.Elem != nil {
			if inner, ok := Unify(*a.Elem, b); ok {
				return Optional(inner), true
			}
		}
		if b.Kind == KindOptional && b.Elem != nil {
			if inner, ok := Unify(a, *b.Elem); ok {
				return Optional(inner), true
			}
		}
		return Unknown(), false
	}

	switch a.Kind {
	case KindList, KindSet, KindFrozenSet, KindOptional:
		elem, ok := Unify(deref(a.Elem), deref(b.Elem))
		if !ok {
			return Unknown(), false
		}
		return PyType{Kind: a.Kind, Elem: &elem}, true
	case KindDict:
		key, okK := Unify(deref(a.Key), deref(b.Key))
		val, okV := Unify(deref(a.Elem), deref(b.Elem))
		if !okK || !okV {
			return Unknown(), false
		}
		return Dict(key, val), true
	case KindTuple:
		if len(a.Items) == 0 {
			return b, true
		}
		if len(b.Items) == 0 {
			return a, true
		}
		if len(a.Items) != len(b.Items) {
			return Unknown(), false
		}
		items := make([]PyType, len(a.Items))
		for i := range a.Items {
			it, ok := Unify(a.Items[i], b.Items[i])
			if !ok {
				return Unknown(), false
			}
			items[i] = it
		}
		return Tuple(items...), true
	case KindCustom, KindTypeVar:
		if a.Name == b.Name {
			return a, true
		}
		return Unknown(), false
	default:
		return a, true
	}
}

func deref(p *PyType) PyType {
	if p == nil {
		return Unknown()
	}
	return *p
}

// CanonicalizeUnion collapses a variant set into canonical form:
// duplicates removed, {T, None} becomes Optional(T), a singleton union
// becomes the variant itself, and remaining variants are sorted by
// their rendered form for stable output.
func CanonicalizeUnion(variants []PyType) PyType {
	seen := make([]PyType, 0, len(variants))
	hasNone := false
	for _, v := range variants {
		if v.Kind == KindNone {
			hasNone = true
			continue
		}
		if v.Kind == KindUnion {
			for _, inner := range v.Items {
				if inner.Kind == KindNone {
					hasNone = true
					continue
				}
				seen = appendUnique(seen, inner)
			}
			continue
		}
		seen = appendUnique(seen, v)
	}

	var out PyType
	switch len(seen) {
	case 0:
		out = NoneType()
		hasNone = false
	case 1:
		out = seen[0]
	default:
		sort.SliceStable(seen, func(i, j int) bool {
			return seen[i].String() < seen[j].String()
		})
		out = PyType{Kind: KindUnion, Items: seen}
	}

	if hasNone {
		return Optional(out)
	}
	return out
}

func appendUnique(ts []PyType, t PyType) []PyType {
	for _, have := range ts {
		if have.Equals(t) {
			return ts
		}
	}
	return append(ts, t)
}

// IsCopy reports whether the mapped Rust type is Copy: primitives plus
// tuples of at most three Copy elements.
func IsCopy(t PyType) bool {
	switch t.Kind {
	case KindBool, KindInt, KindFloat, KindNone:
		return true
	case KindTuple:
		if len(t.Items) == 0 || len(t.Items) > 3 {
			return false
		}
		for _, it := range t.Items {
			if !IsCopy(it) {
				return false
			}
		}
		return true
	}
	return false
}
