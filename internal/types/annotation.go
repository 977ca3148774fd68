package types

import "strings"

// ParseAnnotation converts Python annotation text into a PyType.
// Handles the builtin names, typing aliases (List, Dict, Set, Tuple,
// Optional, Union, Callable), subscripted generics, and PEP 604 unions
// (`T | None`). Anything unrecognized becomes Custom, which downstream
// treats as an opaque user type.
func ParseAnnotation(text string) PyType {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unknown()
	}

	// PEP 604 unions bind loosest.
	if parts := splitTopLevel(text, '|'); len(parts) > 1 {
		variants := make([]PyType, len(parts))
		for i, p := range parts {
			variants[i] = ParseAnnotation(p)
		}
		return CanonicalizeUnion(variants)
	}

	// Quoted forward references.
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0] {
		return ParseAnnotation(text[1 : len(text)-1])
	}

	base := text
	var args []string
	if open := strings.IndexByte(text, '['); open >= 0 && strings.HasSuffix(text, "]") {
		base = strings.TrimSpace(text[:open])
		args = splitTopLevel(text[open+1:len(text)-1], ',')
	}

	switch base {
	case "None", "NoneType":
		return NoneType()
	case "bool":
		return Bool()
	case "int":
		return Int()
	case "float":
		return Float()
	case "str":
		return Str()
	case "bytes":
		return Bytes()
	case "list", "List":
		return List(argOrUnknown(args, 0))
	case "set", "Set":
		return Set(argOrUnknown(args, 0))
	case "frozenset", "FrozenSet":
		return FrozenSet(argOrUnknown(args, 0))
	case "dict", "Dict":
		return Dict(argOrUnknown(args, 0), argOrUnknown(args, 1))
	case "tuple", "Tuple":
		if len(args) == 0 {
			return Tuple() // bare `-> tuple`: infer from returns
		}
		items := make([]PyType, len(args))
		for i, a := range args {
			items[i] = ParseAnnotation(a)
		}
		return Tuple(items...)
	case "Optional", "typing.Optional":
		return Optional(argOrUnknown(args, 0))
	case "Union", "typing.Union":
		variants := make([]PyType, len(args))
		for i, a := range args {
			variants[i] = ParseAnnotation(a)
		}
		return CanonicalizeUnion(variants)
	case "Callable", "typing.Callable":
		if len(args) == 2 {
			paramText := strings.TrimSpace(args[0])
			var params []PyType
			if strings.HasPrefix(paramText, "[") && strings.HasSuffix(paramText, "]") {
				for _, p := range splitTopLevel(paramText[1:len(paramText)-1], ',') {
					params = append(params, ParseAnnotation(p))
				}
			}
			return Callable(params, ParseAnnotation(args[1]))
		}
		return Callable(nil, Unknown())
	case "Any", "typing.Any", "object":
		return Unknown()
	}

	// Single uppercase letters and conventional short names are treated
	// as type variables when they carry no subscript.
	if len(args) == 0 && isTypeVarName(base) {
		return TypeVar(base)
	}

	return Custom(base)
}

func argOrUnknown(args []string, i int) PyType {
	if i < len(args) {
		return ParseAnnotation(args[i])
	}
	return Unknown()
}

func isTypeVarName(name string) bool {
	if len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z' {
		return true
	}
	switch name {
	case "KT", "VT", "T_co", "T_contra":
		return true
	}
	return false
}

// splitTopLevel splits text on sep, ignoring separators nested inside
// brackets or quotes. Empty segments are dropped.
func splitTopLevel(text string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case sep:
			if depth == 0 {
				if s := strings.TrimSpace(text[start:i]); s != "" {
					parts = append(parts, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		parts = append(parts, s)
	}
	return parts
}
