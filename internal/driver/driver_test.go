package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/config"
)

func transpile(t *testing.T, src string) *Result {
	t.Helper()
	res, err := New(nil).TranspileFile(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	return res
}

func TestGreetEndToEnd(t *testing.T) {
	res := transpile(t, "def greet(name: str) -> str:\n    return f\"Hello, {name}\"\n")
	require.True(t, res.Published)
	assert.Contains(t, res.Rust, "fn greet")
	assert.Contains(t, res.Rust, `format!("Hello, {}", name)`)
	assert.Empty(t, res.Diagnostics)
}

func TestMainGuardEndToEnd(t *testing.T) {
	src := "def main():\n    print(\"hi\")\n\nif __name__ == \"__main__\":\n    main()\n"
	res := transpile(t, src)
	require.True(t, res.Published)
	assert.Contains(t, res.Rust, "fn main() {")
	assert.Contains(t, res.Rust, `println!("hi");`)
}

func TestAppendMutatesThroughBorrow(t *testing.T) {
	src := "def add_item(items: list[int], x: int) -> None:\n    items.append(x)\n"
	res := transpile(t, src)
	require.True(t, res.Published)
	assert.Contains(t, res.Rust, "&mut Vec<i64>")
	assert.Contains(t, res.Rust, "items.push(x);")
}

func TestWarningThresholdWithholdsOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.FailLevel = "warning"
	src := "import unknownlib\n\ndef f(x: int) -> int:\n    return unknownlib.crunch(x)\n"
	res, err := New(cfg).TranspileFile(context.Background(), "f.py", []byte(src))
	require.NoError(t, err)

	assert.False(t, res.Published)
	assert.Empty(t, res.Rust)
	assert.NotEmpty(t, res.Diagnostics)

	// Default threshold (error) still publishes the same file.
	res = transpile(t, src)
	assert.True(t, res.Published)
	assert.NotEmpty(t, res.Rust)
}

func TestTranspileAllKeepsInputOrder(t *testing.T) {
	inputs := []Input{
		{Path: "a.py", Source: []byte("def a() -> int:\n    return 1\n")},
		{Path: "b.py", Source: []byte("def b() -> int:\n    return 2\n")},
	}
	results, err := New(nil).TranspileAll(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ModuleName)
	assert.Equal(t, "b", results[1].ModuleName)
	assert.Contains(t, results[0].Rust, "fn a()")
	assert.Contains(t, results[1].Rust, "fn b()")
}

func TestModuleName(t *testing.T) {
	cases := map[string]string{
		"src/My Script.py": "my_script",
		"weird-name.py":    "weird_name",
		"___.py":           "___",
		"£.py":             "module",
	}
	for in, want := range cases {
		assert.Equal(t, want, moduleName(in), in)
	}
}
