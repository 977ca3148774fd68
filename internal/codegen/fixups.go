package codegen

import (
	"regexp"
	"sort"
	"strings"
)

// Fixups carries the facts the post-emission passes need: they only
// crystallize during emission, after global inference.
type Fixups struct {
	// EnumVariants maps enum names to member names for path
	// normalization of "Enum.MEMBER" string comparisons.
	EnumVariants map[string][]string
	// Vacuity maps Option tests emitted against non-Option values to
	// the type's vacuity check. Recorded by the emitter alongside a
	// diagnostic.
	Vacuity map[string]string
	// OptionFields lists "<var>.<field>" paths of CLI parser fields
	// typed Option<T>; their is_some checks are precomputed once near
	// the parse call.
	OptionFields []string
}

// ApplyFixups runs the post-emission normalization passes over the
// generated source. Every pass is idempotent: running the sequence
// twice yields the same text, so downstream tooling can re-apply it
// safely.
func ApplyFixups(src string, fx *Fixups) string {
	if fx == nil {
		fx = &Fixups{}
	}
	src = fixupSqrt(src)
	src = fixupIsEmpty(src)
	src = fixupEnumPaths(src, fx.EnumVariants)
	src = fixupDeltaAccessors(src)
	src = fixupNoneVacuity(src, fx.Vacuity)
	src = fixupOptionPrecompute(src, fx.OptionFields)
	src = fixupRedundantConversions(src)
	src = fixupUnwrapChains(src)
	return src
}

// fixupNoneVacuity replaces Option tests on values known not to be
// Option with the type's vacuity check. Longer keys first, so a test
// whose rendering embeds another's is not clipped.
func fixupNoneVacuity(src string, vacuity map[string]string) string {
	if len(vacuity) == 0 {
		return src
	}
	keys := make([]string, 0, len(vacuity))
	for k := range vacuity {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		src = strings.ReplaceAll(src, k, vacuity[k])
	}
	return src
}

// fixupOptionPrecompute hoists `<var>.<field>.is_some()` into a single
// `let has_<field> = ...;` after the parse call, so a field that is
// both checked and moved onward is not borrowed after the move. The
// inserted let is the single source of truth; a source that already
// carries it is left alone.
func fixupOptionPrecompute(src string, fields []string) string {
	for _, path := range fields {
		some := path + ".is_some()"
		none := path + ".is_none()"
		if !strings.Contains(src, some) && !strings.Contains(src, none) {
			continue
		}
		field := path[strings.LastIndexByte(path, '.')+1:]
		decl := "let has_" + field + " = " + some + ";"
		if strings.Contains(src, decl) {
			continue
		}
		anchor := parseCallLine(src)
		if anchor < 0 {
			continue
		}
		src = strings.ReplaceAll(src, some, "has_"+field)
		src = strings.ReplaceAll(src, none, "!has_"+field)

		lines := strings.Split(src, "\n")
		indent := lines[anchor][:len(lines[anchor])-len(strings.TrimLeft(lines[anchor], " \t"))]
		lines = append(lines[:anchor+1], append([]string{indent + decl}, lines[anchor+1:]...)...)
		src = strings.Join(lines, "\n")
	}
	return src
}

// parseCallLine returns the line index of the CLI parse call, or -1.
func parseCallLine(src string) int {
	for i, ln := range strings.Split(src, "\n") {
		if strings.Contains(ln, "::parse();") {
			return i
		}
	}
	return -1
}

// fixupSqrt normalizes half-power exponentiation to sqrt.
func fixupSqrt(src string) string {
	return strings.ReplaceAll(src, ".powf(0.5)", ".sqrt()")
}

// fixupIsEmpty rewrites zero-length comparisons onto is_empty.
func fixupIsEmpty(src string) string {
	src = strings.ReplaceAll(src, ".len() as i64 == 0", ".is_empty()")
	src = strings.ReplaceAll(src, ".len() == 0", ".is_empty()")
	src = strings.ReplaceAll(src, ".len() as i64 != 0", ".len() != 0")
	return src
}

var enumStringPat = regexp.MustCompile(`(==|!=) "(\w+)\.(\w+)"`)

// fixupEnumPaths rewrites comparisons against "Enum.MEMBER" strings,
// which survive inference when an enum round-trips through str(), into
// variant path comparisons.
func fixupEnumPaths(src string, enumVariants map[string][]string) string {
	if len(enumVariants) == 0 {
		return src
	}
	return enumStringPat.ReplaceAllStringFunc(src, func(m string) string {
		parts := enumStringPat.FindStringSubmatch(m)
		op, enum, member := parts[1], parts[2], parts[3]
		members, ok := enumVariants[enum]
		if !ok {
			return m
		}
		for _, known := range members {
			if known == member {
				return op + " " + enum + "::" + variantName(member)
			}
		}
		return m
	})
}

var (
	deltaDaysPat    = regexp.MustCompile(`\.days([^\w(]|$)`)
	deltaSecondsPat = regexp.MustCompile(`\.seconds([^\w(]|$)`)
)

// fixupDeltaAccessors maps timedelta attribute reads onto the duration
// methods; gated on the shim actually being present.
func fixupDeltaAccessors(src string) string {
	if !strings.Contains(src, "PyTimeDelta") {
		return src
	}
	src = deltaDaysPat.ReplaceAllString(src, ".num_days()$1")
	return deltaSecondsPat.ReplaceAllString(src, ".num_seconds()$1")
}

// fixupRedundantConversions collapses conversion stutter produced when
// two emission layers both insert an owned conversion.
func fixupRedundantConversions(src string) string {
	for {
		next := strings.ReplaceAll(src, ".to_string().to_string()", ".to_string()")
		next = strings.ReplaceAll(next, ".clone().clone()", ".clone()")
		if next == src {
			return next
		}
		src = next
	}
}

// fixupUnwrapChains drops unwrap immediately followed by try, which
// arises when a fallible rewrite lands inside an already fallible
// context.
func fixupUnwrapChains(src string) string {
	return strings.ReplaceAll(src, ".unwrap()?", "?")
}
