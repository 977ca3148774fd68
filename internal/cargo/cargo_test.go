package cargo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrs-lang/pyrs/internal/codegen"
)

func TestTomlLines(t *testing.T) {
	assert.Equal(t, `regex = "1.0"`, dep("regex").tomlLine())
	assert.Equal(t, `clap = { version = "4.5", features = ["derive"] }`, dep("clap", "derive").tomlLine())
}

func TestFromNeedsSortedAndPaired(t *testing.T) {
	n := &codegen.Needs{SerdeJson: true, Regex: true, AsyncRuntime: true}
	deps := FromNeeds(n)

	var crates []string
	for _, d := range deps {
		crates = append(crates, d.Crate)
	}
	// serde rides along with serde_json; order is alphabetical.
	assert.Equal(t, []string{"regex", "serde", "serde_json", "tokio"}, crates)
}

func TestEmptyNeedsHasNoDependenciesSection(t *testing.T) {
	out := Generate("demo", "2021", "src/main.rs", &codegen.Needs{})
	assert.NotContains(t, out, "[dependencies]")
	assert.Contains(t, out, "name = \"demo\"")
	assert.Contains(t, out, "edition = \"2021\"")
	assert.Contains(t, out, "[[bin]]")
	assert.Contains(t, out, "path = \"src/main.rs\"")
}

func TestGenerateFullManifest(t *testing.T) {
	n := &codegen.Needs{Chrono: true, Clap: true}
	out := Generate("sched", "2021", "src/main.rs", n)
	assert.Contains(t, out, "[dependencies]\n")
	assert.Contains(t, out, `chrono = "0.4"`)
	assert.Contains(t, out, `clap = { version = "4.5", features = ["derive"] }`)
}

func TestSatisfies(t *testing.T) {
	ok, err := Satisfies("regex", "1.10.2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies("rand", "0.7.3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Satisfies("regex", "not-a-version")
	assert.Error(t, err)

	ok, err = Satisfies("left-pad", "0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}
