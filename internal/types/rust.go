package types

import (
	"fmt"
	"strings"
)

// RustKind discriminates the Rust-side type sum.
type RustKind int

const (
	RustUnit RustKind = iota
	RustBool
	RustI64
	RustF64
	RustString   // owned String
	RustStr      // &str slice, lifetime optional
	RustVecU8    // Vec<u8>, for bytes
	RustVec      // Vec<T>
	RustHashMap  // HashMap<K, V>
	RustHashSet  // HashSet<T>
	RustTuple    // (T, ...)
	RustOption   // Option<T>
	RustResult   // Result<T, E>
	RustRef      // &T / &mut T with optional lifetime
	RustCowStr   // Cow<'lt, str>
	RustCustom   // user struct or opaque stdlib type
	RustEnum     // tagged enum (union / ADT group)
	RustGeneric  // type parameter T
	RustBoxedFn  // Box<dyn Fn(params) -> ret>
	RustBoxedWrite
)

// RustType is one node of the Rust-side type sum.
//
// Field usage by kind:
//   - Vec, HashSet, Option, Ref: Inner
//   - HashMap: Key and Inner (value)
//   - Result: Inner (ok) and Err
//   - Tuple: Items
//   - Str, CowStr, Ref: Lifetime (may be empty for elided)
//   - Ref: Mutable
//   - Custom, Enum, Generic: Name; Enum additionally Variants
//   - BoxedFn: Items (params) and Inner (return)
type RustType struct {
	Kind     RustKind
	Name     string
	Lifetime string
	Mutable  bool
	Inner    *RustType
	Key      *RustType
	Err      *RustType
	Items    []RustType
	Variants []string
}

func RUnit() RustType   { return RustType{Kind: RustUnit} }
func RBool() RustType   { return RustType{Kind: RustBool} }
func RI64() RustType    { return RustType{Kind: RustI64} }
func RF64() RustType    { return RustType{Kind: RustF64} }
func RString() RustType { return RustType{Kind: RustString} }

func RStr(lifetime string) RustType {
	return RustType{Kind: RustStr, Lifetime: lifetime}
}

func RCow(lifetime string) RustType {
	return RustType{Kind: RustCowStr, Lifetime: lifetime}
}

func RVec(inner RustType) RustType { return RustType{Kind: RustVec, Inner: &inner} }
func RHashSet(inner RustType) RustType {
	return RustType{Kind: RustHashSet, Inner: &inner}
}
func RHashMap(key, value RustType) RustType {
	return RustType{Kind: RustHashMap, Key: &key, Inner: &value}
}
func RTuple(items ...RustType) RustType { return RustType{Kind: RustTuple, Items: items} }
func ROption(inner RustType) RustType {
	if inner.Kind == RustOption {
		return inner
	}
	return RustType{Kind: RustOption, Inner: &inner}
}
func RResult(ok, err RustType) RustType {
	return RustType{Kind: RustResult, Inner: &ok, Err: &err}
}
func RRef(inner RustType, mutable bool, lifetime string) RustType {
	return RustType{Kind: RustRef, Inner: &inner, Mutable: mutable, Lifetime: lifetime}
}
func RCustom(name string) RustType  { return RustType{Kind: RustCustom, Name: name} }
func RGeneric(name string) RustType { return RustType{Kind: RustGeneric, Name: name} }
func REnum(name string, variants ...string) RustType {
	return RustType{Kind: RustEnum, Name: name, Variants: variants}
}
func RBoxedFn(params []RustType, ret RustType) RustType {
	return RustType{Kind: RustBoxedFn, Items: params, Inner: &ret}
}
func RBoxedWrite() RustType { return RustType{Kind: RustBoxedWrite} }

// IsUnit reports whether the type is the unit type.
func (t RustType) IsUnit() bool { return t.Kind == RustUnit }

// IsCopy mirrors IsCopy on the source side.
func (t RustType) IsCopy() bool {
	switch t.Kind {
	case RustUnit, RustBool, RustI64, RustF64:
		return true
	case RustTuple:
		if len(t.Items) == 0 || len(t.Items) > 3 {
			return false
		}
		for _, it := range t.Items {
			if !it.IsCopy() {
				return false
			}
		}
		return true
	}
	return false
}

// IsStringLike reports whether the type is one of the string shapes.
func (t RustType) IsStringLike() bool {
	return t.Kind == RustString || t.Kind == RustStr || t.Kind == RustCowStr
}

// Render produces Rust source text for the type.
func (t RustType) Render() string {
	switch t.Kind {
	case RustUnit:
		return "()"
	case RustBool:
		return "bool"
	case RustI64:
		return "i64"
	case RustF64:
		return "f64"
	case RustString:
		return "String"
	case RustStr:
		if t.Lifetime != "" {
			return "&" + t.Lifetime + " str"
		}
		return "&str"
	case RustVecU8:
		return "Vec<u8>"
	case RustVec:
		return "Vec<" + t.Inner.Render() + ">"
	case RustHashMap:
		return "HashMap<" + t.Key.Render() + ", " + t.Inner.Render() + ">"
	case RustHashSet:
		return "HashSet<" + t.Inner.Render() + ">"
	case RustTuple:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = it.Render()
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case RustOption:
		return "Option<" + t.Inner.Render() + ">"
	case RustResult:
		return "Result<" + t.Inner.Render() + ", " + t.Err.Render() + ">"
	case RustRef:
		var sb strings.Builder
		sb.WriteByte('&')
		if t.Lifetime != "" {
			sb.WriteString(t.Lifetime)
			sb.WriteByte(' ')
		}
		if t.Mutable {
			sb.WriteString("mut ")
		}
		sb.WriteString(t.Inner.Render())
		return sb.String()
	case RustCowStr:
		lt := t.Lifetime
		if lt == "" {
			lt = "'a"
		}
		return "Cow<" + lt + ", str>"
	case RustCustom, RustEnum, RustGeneric:
		return t.Name
	case RustBoxedFn:
		params := make([]string, len(t.Items))
		for i, p := range t.Items {
			params[i] = p.Render()
		}
		ret := ""
		if t.Inner != nil && !t.Inner.IsUnit() {
			ret = " -> " + t.Inner.Render()
		}
		return fmt.Sprintf("Box<dyn Fn(%s)%s>", strings.Join(params, ", "), ret)
	case RustBoxedWrite:
		return "Box<dyn Write>"
	default:
		return "()"
	}
}

// Equals reports deep structural equality.
func (t RustType) Equals(other RustType) bool {
	return t.Render() == other.Render()
}

// DefaultValue returns a zero-value expression for the type, used when
// a fallible function needs a synthesized unit/zero return.
func (t RustType) DefaultValue() string {
	switch t.Kind {
	case RustUnit:
		return "()"
	case RustBool:
		return "false"
	case RustI64:
		return "0"
	case RustF64:
		return "0.0"
	case RustString:
		return "String::new()"
	case RustVec:
		return "Vec::new()"
	case RustHashMap:
		return "HashMap::new()"
	case RustHashSet:
		return "HashSet::new()"
	case RustOption:
		return "None"
	default:
		return "Default::default()"
	}
}
