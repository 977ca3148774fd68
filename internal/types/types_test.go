package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionalCollapse(t *testing.T) {
	inner := Optional(Int())
	assert.Equal(t, "Optional[int]", inner.String())
	assert.Equal(t, inner, Optional(inner), "Optional(Optional(T)) must collapse")
	assert.Equal(t, NoneType(), Optional(NoneType()))
}

func TestCanonicalizeUnion(t *testing.T) {
	tests := []struct {
		name     string
		variants []PyType
		want     string
	}{
		{"T plus None is Optional", []PyType{Str(), NoneType()}, "Optional[str]"},
		{"singleton collapses", []PyType{Int()}, "int"},
		{"duplicates removed", []PyType{Int(), Int(), Str()}, "Union[int, str]"},
		{"variants sorted", []PyType{Str(), Int()}, "Union[int, str]"},
		{"nested union flattened", []PyType{Union(Int(), Str()), Float()}, "Union[float, int, str]"},
		{"all None", []PyType{NoneType(), NoneType()}, "None"},
		{"union with None optionalizes whole", []PyType{Int(), Str(), NoneType()}, "Optional[Union[int, str]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalizeUnion(tt.variants)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestUnify(t *testing.T) {
	tests := []struct {
		name string
		a, b PyType
		want string
		ok   bool
	}{
		{"unknown absorbs left", Unknown(), Int(), "int", true},
		{"unknown absorbs right", List(Str()), Unknown(), "list[str]", true},
		{"int float promotes", Int(), Float(), "float", true},
		{"none against T optionalizes", NoneType(), Str(), "Optional[str]", true},
		{"equal constructors recurse", List(Int()), List(Unknown()), "list[int]", true},
		{"dict recurses both sides", Dict(Str(), Unknown()), Dict(Unknown(), Int()), "dict[str, int]", true},
		{"incompatible fails", Str(), List(Int()), "", false},
		{"custom by name", Custom("Point"), Custom("Point"), "Point", true},
		{"custom mismatch fails", Custom("Point"), Custom("Rect"), "", false},
		{"optional against bare inner", Optional(Int()), Int(), "Optional[int]", true},
		{"empty tuple absorbs", Tuple(), Tuple(Int(), Str()), "tuple[int, str]", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unify(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestIsCopy(t *testing.T) {
	assert.True(t, IsCopy(Int()))
	assert.True(t, IsCopy(Bool()))
	assert.True(t, IsCopy(Tuple(Int(), Float())))
	assert.False(t, IsCopy(Str()))
	assert.False(t, IsCopy(List(Int())))
	assert.False(t, IsCopy(Tuple(Int(), Str())))
	assert.False(t, IsCopy(Tuple(Int(), Int(), Int(), Int())), "large tuples are not Copy")
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"int", "int"},
		{"str", "str"},
		{"list[int]", "list[int]"},
		{"List[str]", "list[str]"},
		{"dict[str, int]", "dict[str, int]"},
		{"tuple[int, str]", "tuple[int, str]"},
		{"tuple", "tuple"},
		{"Optional[int]", "Optional[int]"},
		{"Union[int, str]", "Union[int, str]"},
		{"int | None", "Optional[int]"},
		{"str | int", "Union[int, str]"},
		{"Callable[[int, int], bool]", "Callable[[int, int], bool]"},
		{"T", "T"},
		{"Point", "Point"},
		{"dict[str, list[int]]", "dict[str, list[int]]"},
		{"'Node'", "Node"},
		{"None", "None"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnnotation(tt.text).String())
		})
	}
}

func TestMapTypeRender(t *testing.T) {
	tests := []struct {
		src  PyType
		want string
	}{
		{Int(), "i64"},
		{Float(), "f64"},
		{Str(), "String"},
		{Bytes(), "Vec<u8>"},
		{List(Int()), "Vec<i64>"},
		{Dict(Str(), Int()), "HashMap<String, i64>"},
		{Set(Str()), "HashSet<String>"},
		{Optional(Int()), "Option<i64>"},
		{Tuple(Int(), Str()), "(i64, String)"},
		{Custom("Point"), "Point"},
		{TypeVar("T"), "T"},
		{Union(Int(), Str()), "IntOrStr"},
		{Callable([]PyType{Int()}, Bool()), "Box<dyn Fn(i64) -> bool>"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, _ := MapType(tt.src)
			assert.Equal(t, tt.want, got.Render())
		})
	}
}

func TestMapTypeUnknownNotOK(t *testing.T) {
	_, ok := MapType(Unknown())
	assert.False(t, ok)
	_, ok = MapType(List(Unknown()))
	assert.False(t, ok, "containers of Unknown are not emission-ready")
}

func TestRustTypeRender(t *testing.T) {
	assert.Equal(t, "&str", RStr("").Render())
	assert.Equal(t, "&'a str", RStr("'a").Render())
	assert.Equal(t, "Cow<'a, str>", RCow("'a").Render())
	assert.Equal(t, "&mut Vec<i64>", RRef(RVec(RI64()), true, "").Render())
	assert.Equal(t, "&'b mut String", RRef(RString(), true, "'b").Render())
	assert.Equal(t, "Result<(), ValueError>", RResult(RUnit(), RCustom("ValueError")).Render())
	assert.Equal(t, "(i64,)", RTuple(RI64()).Render())
	assert.Equal(t, "Box<dyn Write>", RBoxedWrite().Render())
}
