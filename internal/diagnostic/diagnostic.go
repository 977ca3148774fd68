// Diagnostic system for the pyrs transpiler.
// Errors are diagnostics, not exceptions: every pipeline stage produces its
// best-effort output plus a list of these, and the driver decides whether the
// module is published based on a severity threshold.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/position"
)

// Level represents the severity level of a diagnostic message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelHint
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Kind classifies a diagnostic by what went wrong.
type Kind int

const (
	// KindUnsupported marks source constructs outside the supported subset.
	KindUnsupported Kind = iota
	// KindTypeConflict marks contradictory inference evidence.
	KindTypeConflict
	// KindAmbiguity marks a choice inference could not make.
	KindAmbiguity
	// KindDispatcherMiss marks a method call with no rewrite entry.
	KindDispatcherMiss
	// KindInternal marks a structural invariant violation (a transpiler bug).
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindTypeConflict:
		return "type-conflict"
	case KindAmbiguity:
		return "ambiguity"
	case KindDispatcherMiss:
		return "dispatcher-miss"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Message string
	Detail  string // optional second line (e.g. the exact missing method name)
	Span    position.Span
	Level   Level
	Kind    Kind
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]: %s", d.Level, d.Kind, d.Message)
	if d.Span.IsValid() {
		fmt.Fprintf(&sb, " at %s", d.Span)
	}
	if d.Detail != "" {
		sb.WriteString("\n  ")
		sb.WriteString(d.Detail)
	}
	return sb.String()
}

// Errorf builds an error-level diagnostic.
func Errorf(kind Kind, span position.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Level:   LevelError,
		Kind:    kind,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}

// Warnf builds a warning-level diagnostic.
func Warnf(kind Kind, span position.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Level:   LevelWarning,
		Kind:    kind,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}

// Collector accumulates diagnostics produced across pipeline stages.
// A single collector is owned by the per-module pipeline; it is not
// safe for concurrent use (modules never share one).
type Collector struct {
	diags []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{diags: make([]Diagnostic, 0, 8)}
}

// Add appends a diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Addf appends a formatted diagnostic.
func (c *Collector) Addf(level Level, kind Kind, span position.Span, format string, args ...interface{}) {
	c.Add(Diagnostic{
		Level:   level,
		Kind:    kind,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	})
}

// All returns the collected diagnostics sorted by source position,
// errors before warnings at the same position.
func (c *Collector) All() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Span.Start.Offset != b.Span.Start.Offset {
			return a.Span.Start.Offset < b.Span.Start.Offset
		}
		return a.Level < b.Level
	})
	return out
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int { return len(c.diags) }

// HasErrors reports whether any error-level diagnostic was collected.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// CountAtOrAbove returns the number of diagnostics at the given
// severity or worse. Used by the driver's publish threshold.
func (c *Collector) CountAtOrAbove(level Level) int {
	n := 0
	for _, d := range c.diags {
		if d.Level <= level {
			n++
		}
	}
	return n
}

// Render writes a human-readable report of all diagnostics.
func (c *Collector) Render() string {
	all := c.All()
	if len(all) == 0 {
		return ""
	}
	lines := make([]string, 0, len(all))
	for _, d := range all {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "\n")
}
