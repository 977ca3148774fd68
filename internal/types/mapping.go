package types

import "strings"

// MapType converts a Python-side type to its base Rust-side shape.
// Borrowing decoration (&, &mut, Cow, lifetimes) is layered on by the
// ownership pass; this mapping is ownership-neutral and always picks
// owned container forms. The boolean is false when the type is Unknown
// (the caller must have a diagnostic for that case already).
func MapType(t PyType) (RustType, bool) {
	switch t.Kind {
	case KindUnknown:
		return RGeneric("T"), false
	case KindNone:
		return RUnit(), true
	case KindBool:
		return RBool(), true
	case KindInt:
		return RI64(), true
	case KindFloat:
		return RF64(), true
	case KindString:
		return RString(), true
	case KindBytes:
		return RustType{Kind: RustVecU8}, true
	case KindList:
		inner, ok := MapType(deref(t.Elem))
		return RVec(inner), ok
	case KindSet, KindFrozenSet:
		inner, ok := MapType(deref(t.Elem))
		return RHashSet(inner), ok
	case KindDict:
		key, okK := MapType(deref(t.Key))
		val, okV := MapType(deref(t.Elem))
		return RHashMap(key, val), okK && okV
	case KindTuple:
		items := make([]RustType, len(t.Items))
		ok := true
		for i, it := range t.Items {
			var itemOK bool
			items[i], itemOK = MapType(it)
			ok = ok && itemOK
		}
		return RTuple(items...), ok
	case KindOptional:
		inner, ok := MapType(deref(t.Elem))
		return ROption(inner), ok
	case KindUnion:
		return mapUnion(t), true
	case KindCustom:
		return RCustom(t.Name), true
	case KindTypeVar:
		return RGeneric(t.Name), true
	case KindCallable:
		params := make([]RustType, len(t.Items))
		for i, p := range t.Items {
			params[i], _ = MapType(p)
		}
		ret, _ := MapType(deref(t.Ret))
		return RBoxedFn(params, ret), true
	default:
		return RUnit(), false
	}
}

// mapUnion realizes a union as a tagged enum. The enum name is derived
// from the variant names so that repeated occurrences of the same union
// share one definition; emission deduplicates by name.
func mapUnion(t PyType) RustType {
	names := make([]string, len(t.Items))
	for i, v := range t.Items {
		names[i] = variantName(v)
	}
	return REnum(strings.Join(names, "Or"), names...)
}

func variantName(t PyType) string {
	switch t.Kind {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "Str"
	case KindBytes:
		return "Bytes"
	case KindList:
		return "List"
	case KindSet, KindFrozenSet:
		return "Set"
	case KindDict:
		return "Dict"
	case KindCustom, KindTypeVar:
		return t.Name
	default:
		return "Value"
	}
}

// MapParamType maps a parameter type. Identical to MapType except that
// an annotated default=None with a non-Optional type has already been
// wrapped by the bridge, so no extra handling is needed here; the
// function exists so call sites read as intent.
func MapParamType(t PyType) (RustType, bool) {
	return MapType(t)
}

// MapReturnType maps a return type. String returns map to owned String
// unless the ownership pass later overrides to a borrowed or Cow form.
func MapReturnType(t PyType) (RustType, bool) {
	return MapType(t)
}
