// Package cargo renders a Cargo.toml manifest from the need-flags the
// emitter collects. Crate minimums are held as semver versions; the
// manifest states the major.minor requirement Cargo expects.
package cargo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pyrs-lang/pyrs/internal/codegen"
)

// Dependency is one external crate requirement.
type Dependency struct {
	Crate    string
	Min      *semver.Version
	Features []string
}

// minimums pins the lowest crate releases the emitted code is written
// against. Raising one here is the only place version policy lives.
var minimums = map[string]*semver.Version{
	"tokio":      semver.MustParse("1.0.0"),
	"regex":      semver.MustParse("1.0.0"),
	"chrono":     semver.MustParse("0.4.0"),
	"sha2":       semver.MustParse("0.10.0"),
	"md-5":       semver.MustParse("0.10.0"),
	"blake2":     semver.MustParse("0.10.0"),
	"rand":       semver.MustParse("0.8.0"),
	"serde_json": semver.MustParse("1.0.0"),
	"serde":      semver.MustParse("1.0.0"),
	"clap":       semver.MustParse("4.5.0"),
}

// MinimumFor returns the pinned minimum version for a crate, or nil
// for crates this generator never emits.
func MinimumFor(crate string) *semver.Version {
	return minimums[crate]
}

// Satisfies reports whether a concrete crate release meets the pinned
// minimum. Unknown crates satisfy trivially.
func Satisfies(crate, version string) (bool, error) {
	min := minimums[crate]
	if min == nil {
		return true, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("parse %s version %q: %w", crate, version, err)
	}
	c, err := semver.NewConstraint(">= " + min.String())
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

func dep(crate string, features ...string) Dependency {
	return Dependency{Crate: crate, Min: minimums[crate], Features: features}
}

// requirement renders the Cargo version requirement. Cargo treats a
// bare "major.minor" as a caret range from that release.
func (d Dependency) requirement() string {
	return fmt.Sprintf("%d.%d", d.Min.Major(), d.Min.Minor())
}

func (d Dependency) tomlLine() string {
	if len(d.Features) == 0 {
		return fmt.Sprintf("%s = %q", d.Crate, d.requirement())
	}
	quoted := make([]string, len(d.Features))
	for i, f := range d.Features {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("%s = { version = %q, features = [%s] }",
		d.Crate, d.requirement(), strings.Join(quoted, ", "))
}

// FromNeeds maps need-flags to crate requirements, sorted by crate
// name for stable manifests.
func FromNeeds(n *codegen.Needs) []Dependency {
	var deps []Dependency
	if n.AsyncRuntime {
		deps = append(deps, dep("tokio", "full"))
	}
	if n.Regex {
		deps = append(deps, dep("regex"))
	}
	if n.Chrono {
		deps = append(deps, dep("chrono"))
	}
	if n.Sha2 {
		deps = append(deps, dep("sha2"))
	}
	if n.Md5 {
		deps = append(deps, dep("md-5"))
	}
	if n.Blake2 {
		deps = append(deps, dep("blake2"))
	}
	if n.Rand {
		deps = append(deps, dep("rand"))
	}
	if n.SerdeJson {
		deps = append(deps, dep("serde_json"), dep("serde", "derive"))
	}
	if n.Clap {
		deps = append(deps, dep("clap", "derive"))
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Crate < deps[j].Crate })
	return deps
}

// Manifest describes one generated package.
type Manifest struct {
	Package string
	Edition string
	BinName string
	BinPath string
	Deps    []Dependency
}

// Render produces the full Cargo.toml text, including the [[bin]]
// section so the output builds without manual editing.
func (m Manifest) Render() string {
	var sb strings.Builder
	sb.WriteString("[package]\n")
	fmt.Fprintf(&sb, "name = %q\n", m.Package)
	sb.WriteString("version = \"0.1.0\"\n")
	fmt.Fprintf(&sb, "edition = %q\n", m.Edition)
	sb.WriteByte('\n')

	sb.WriteString("[[bin]]\n")
	fmt.Fprintf(&sb, "name = %q\n", m.BinName)
	fmt.Fprintf(&sb, "path = %q\n", m.BinPath)

	if len(m.Deps) > 0 {
		sb.WriteByte('\n')
		sb.WriteString("[dependencies]\n")
		for _, d := range m.Deps {
			sb.WriteString(d.tomlLine())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Generate is the one-call form the driver uses.
func Generate(pkg, edition, binPath string, n *codegen.Needs) string {
	return Manifest{
		Package: pkg,
		Edition: edition,
		BinName: pkg,
		BinPath: binPath,
		Deps:    FromNeeds(n),
	}.Render()
}
