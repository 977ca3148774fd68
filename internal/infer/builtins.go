package infer

import "github.com/pyrs-lang/pyrs/internal/types"

// builtinReturnType types a call to a Python builtin from its argument
// types. The second result is false when the name is not a builtin.
func builtinReturnType(name string, args []types.PyType) (types.PyType, bool) {
	arg := func(i int) types.PyType {
		if i < len(args) {
			return args[i]
		}
		return types.Unknown()
	}
	switch name {
	case "len", "ord", "id", "hash":
		return types.Int(), true
	case "str", "repr", "hex", "oct", "bin", "chr", "input":
		return types.Str(), true
	case "int":
		return types.Int(), true
	case "float":
		return types.Float(), true
	case "bool", "isinstance", "hasattr", "any", "all", "callable":
		return types.Bool(), true
	case "bytes":
		return types.Bytes(), true
	case "abs", "round", "divmod":
		if name == "round" && len(args) == 1 {
			return types.Int(), true
		}
		return arg(0), true
	case "min", "max":
		if len(args) == 1 {
			return arg(0).ElemType(), true
		}
		return arg(0), true
	case "sum":
		elem := arg(0).ElemType()
		if elem.Kind == types.KindFloat {
			return types.Float(), true
		}
		return types.Int(), true
	case "range":
		return types.List(types.Int()), true
	case "sorted", "reversed", "list":
		if arg(0).Kind == types.KindDict {
			return types.List(deref(args[0].Key)), true
		}
		return types.List(arg(0).ElemType()), true
	case "set":
		return types.Set(arg(0).ElemType()), true
	case "frozenset":
		return types.FrozenSet(arg(0).ElemType()), true
	case "dict":
		a := arg(0)
		if a.Kind == types.KindDict {
			return a, true
		}
		return types.Dict(types.Unknown(), types.Unknown()), true
	case "tuple":
		return types.Tuple(), true
	case "enumerate":
		return types.List(types.Tuple(types.Int(), arg(0).ElemType())), true
	case "zip":
		items := make([]types.PyType, len(args))
		for i := range args {
			items[i] = args[i].ElemType()
		}
		return types.List(types.Tuple(items...)), true
	case "map":
		f := arg(0)
		if f.Kind == types.KindCallable && f.Ret != nil {
			return types.List(deref(f.Ret)), true
		}
		return types.List(types.Unknown()), true
	case "filter":
		return types.List(arg(1).ElemType()), true
	case "open":
		return types.Custom("File"), true
	case "Path":
		return types.Custom("Path"), true
	case "print":
		return types.NoneType(), true
	case "exit", "quit":
		return types.NoneType(), true
	}
	return types.Unknown(), false
}

// methodReturnType types a method call from the receiver's type. Unknown
// receivers stay Unknown; the emitter's dispatcher reports misses.
func methodReturnType(recv types.PyType, method string, argc int) types.PyType {
	switch recv.Kind {
	case types.KindString:
		return stringMethodReturn(method)
	case types.KindList:
		return listMethodReturn(recv, method)
	case types.KindDict:
		return dictMethodReturn(recv, method, argc)
	case types.KindSet, types.KindFrozenSet:
		return setMethodReturn(recv, method)
	case types.KindBytes:
		if method == "decode" {
			return types.Str()
		}
	case types.KindOptional:
		// Method dispatch through Optional types as the inner type;
		// the none-check is the borrow/emission phases' concern.
		return methodReturnType(recv.ElemType(), method, argc)
	case types.KindCustom:
		return customMethodReturn(recv, method)
	}
	return types.Unknown()
}

func stringMethodReturn(method string) types.PyType {
	switch method {
	case "upper", "lower", "strip", "lstrip", "rstrip", "title",
		"capitalize", "replace", "format", "join", "zfill", "ljust",
		"rjust", "center", "swapcase", "casefold", "expandtabs":
		return types.Str()
	case "split", "rsplit", "splitlines", "partition", "rpartition":
		return types.List(types.Str())
	case "startswith", "endswith", "isdigit", "isalpha", "isalnum",
		"isspace", "isupper", "islower", "isnumeric", "istitle":
		return types.Bool()
	case "find", "rfind", "index", "rindex", "count":
		return types.Int()
	case "encode":
		return types.Bytes()
	}
	return types.Unknown()
}

func listMethodReturn(recv types.PyType, method string) types.PyType {
	switch method {
	case "pop":
		return recv.ElemType()
	case "index", "count":
		return types.Int()
	case "copy":
		return recv
	case "append", "extend", "insert", "remove", "sort", "reverse", "clear":
		return types.NoneType()
	}
	return types.Unknown()
}

func dictMethodReturn(recv types.PyType, method string, argc int) types.PyType {
	switch method {
	case "get":
		if argc >= 2 {
			return recv.ElemType()
		}
		return types.Optional(recv.ElemType())
	case "pop", "setdefault":
		return recv.ElemType()
	case "keys":
		return types.List(deref(recv.Key))
	case "values":
		return types.List(recv.ElemType())
	case "items":
		return types.List(types.Tuple(deref(recv.Key), recv.ElemType()))
	case "copy":
		return recv
	case "update", "clear":
		return types.NoneType()
	}
	return types.Unknown()
}

func setMethodReturn(recv types.PyType, method string) types.PyType {
	switch method {
	case "union", "intersection", "difference", "symmetric_difference", "copy":
		return recv
	case "issubset", "issuperset", "isdisjoint":
		return types.Bool()
	case "pop":
		return recv.ElemType()
	case "add", "discard", "remove", "update", "clear":
		return types.NoneType()
	}
	return types.Unknown()
}

func customMethodReturn(recv types.PyType, method string) types.PyType {
	switch recv.Name {
	case "File", "Stdout":
		switch method {
		case "read":
			return types.Str()
		case "readlines":
			return types.List(types.Str())
		case "readline":
			return types.Str()
		case "write", "close", "flush":
			return types.NoneType()
		}
	case "datetime":
		switch method {
		case "strftime", "isoformat":
			return types.Str()
		case "timestamp":
			return types.Float()
		case "year", "month", "day", "hour", "minute", "second", "weekday":
			return types.Int()
		}
	case "Regex":
		switch method {
		case "match", "search", "fullmatch":
			return types.Optional(types.Custom("Match"))
		case "findall":
			return types.List(types.Str())
		case "sub":
			return types.Str()
		case "split":
			return types.List(types.Str())
		}
	case "Match":
		switch method {
		case "group":
			return types.Str()
		case "start", "end":
			return types.Int()
		case "groups":
			return types.List(types.Str())
		}
	case "Hasher":
		switch method {
		case "hexdigest":
			return types.Str()
		case "digest":
			return types.Bytes()
		case "digest_size":
			return types.Int()
		case "update":
			return types.NoneType()
		case "copy":
			return recv
		}
	case "Path":
		switch method {
		case "read_text":
			return types.Str()
		case "write_text":
			return types.NoneType()
		case "exists", "is_file", "is_dir":
			return types.Bool()
		case "resolve", "absolute", "joinpath", "with_suffix":
			return recv
		}
	}
	return types.Unknown()
}
