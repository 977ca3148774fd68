package diagnostic

import (
	"strings"
	"testing"

	"github.com/pyrs-lang/pyrs/internal/position"
)

func span(off int) position.Span {
	p := position.Position{Filename: "m.py", Line: 1, Column: off + 1, Offset: off}
	return position.Span{Start: p, End: position.Position{Filename: "m.py", Line: 1, Column: off + 2, Offset: off + 1}}
}

func TestCollectorOrdering(t *testing.T) {
	c := NewCollector()
	c.Add(Warnf(KindDispatcherMiss, span(20), "no rewrite for method %q", "frobnicate"))
	c.Add(Errorf(KindUnsupported, span(5), "eval is not supported"))
	c.Add(Errorf(KindTypeConflict, span(20), "conflicting evidence for parameter"))

	all := c.All()
	if len(all) != 3 {
		t.Fatalf("got %d diagnostics", len(all))
	}
	if all[0].Kind != KindUnsupported {
		t.Errorf("expected position order, got %v first", all[0].Kind)
	}
	// Same offset: error sorts before warning.
	if all[1].Kind != KindTypeConflict || all[2].Kind != KindDispatcherMiss {
		t.Errorf("expected error before warning at same span: %v, %v", all[1].Kind, all[2].Kind)
	}
}

func TestCollectorThreshold(t *testing.T) {
	c := NewCollector()
	if c.HasErrors() {
		t.Error("empty collector has no errors")
	}
	c.Addf(LevelWarning, KindAmbiguity, span(0), "empty container returned")
	if c.HasErrors() {
		t.Error("warning is not an error")
	}
	if got := c.CountAtOrAbove(LevelWarning); got != 1 {
		t.Errorf("CountAtOrAbove(Warning) = %d", got)
	}
	c.Addf(LevelError, KindInternal, span(1), "invariant violated")
	if !c.HasErrors() {
		t.Error("expected errors after adding one")
	}
	if got := c.CountAtOrAbove(LevelError); got != 1 {
		t.Errorf("CountAtOrAbove(Error) = %d", got)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Errorf(KindDispatcherMiss, span(3), "no rewrite entry")
	d.Detail = "method: frobnicate"
	s := d.String()
	for _, want := range []string{"error", "dispatcher-miss", "no rewrite entry", "m.py:1:4", "frobnicate"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q: %s", want, s)
		}
	}
}
