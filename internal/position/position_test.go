package position

import (
	"testing"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name: "Valid position with filename",
			pos: Position{
				Filename: "fib.py",
				Line:     10,
				Column:   5,
				Offset:   100,
			},
			isValid:  true,
			expected: "fib.py:10:5",
		},
		{
			name: "Valid position without filename",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: 0,
			},
			isValid:  true,
			expected: "1:1",
		},
		{
			name: "Invalid position - zero line",
			pos: Position{
				Line:   0,
				Column: 1,
				Offset: 0,
			},
			isValid: false,
		},
		{
			name: "Invalid position - negative offset",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: -1,
			},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsValid(); got != tt.isValid {
				t.Errorf("IsValid() = %v, want %v", got, tt.isValid)
			}
			if tt.isValid {
				if got := tt.pos.String(); got != tt.expected {
					t.Errorf("String() = %q, want %q", got, tt.expected)
				}
			}
		})
	}
}

func TestSpan(t *testing.T) {
	mk := func(line, col, off int) Position {
		return Position{Filename: "app.py", Line: line, Column: col, Offset: off}
	}

	span := Span{Start: mk(2, 1, 10), End: mk(2, 8, 17)}
	if !span.IsValid() {
		t.Fatal("expected valid span")
	}
	if got := span.String(); got != "app.py:2:1-8" {
		t.Errorf("String() = %q", got)
	}
	if got := span.Length(); got != 7 {
		t.Errorf("Length() = %d, want 7", got)
	}

	if !span.Contains(mk(2, 3, 12)) {
		t.Error("expected span to contain inner position")
	}
	if span.Contains(mk(3, 1, 17)) {
		t.Error("end offset is exclusive")
	}

	other := Span{Start: mk(2, 5, 14), End: mk(3, 2, 25)}
	union := span.Union(other)
	if union.Start.Offset != 10 || union.End.Offset != 25 {
		t.Errorf("Union() = %v", union)
	}
}

func TestSourceFile(t *testing.T) {
	src := "def f(x):\n    return x\n"
	sf := NewSourceFile("f.py", src)

	if got := sf.GetLine(2); got != "    return x" {
		t.Errorf("GetLine(2) = %q", got)
	}
	if got := sf.GetLine(99); got != "" {
		t.Errorf("GetLine(99) = %q, want empty", got)
	}

	pos := sf.PositionFromOffset(14)
	if pos.Line != 2 || pos.Column != 5 {
		t.Errorf("PositionFromOffset(14) = %v", pos)
	}

	span := Span{Start: sf.PositionFromOffset(0), End: sf.PositionFromOffset(3)}
	if got := sf.GetSpanText(span); got != "def" {
		t.Errorf("GetSpanText = %q, want %q", got, "def")
	}
}
