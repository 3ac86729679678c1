package source

import (
	"testing"
)

func TestSpan_ShiftLeft(t *testing.T) {
	tests := []struct {
		name     string
		span     Span
		shift    uint32
		expected Span
	}{
		{"shift normal span left by 5", Span{File: 1, Start: 10, End: 20}, 5, Span{File: 1, Start: 5, End: 15}},
		{"shift by 0", Span{File: 1, Start: 10, End: 20}, 0, Span{File: 1, Start: 10, End: 20}},
		{"shift equals start", Span{File: 1, Start: 10, End: 20}, 10, Span{File: 1, Start: 0, End: 10}},
		{"shift larger than start returns original", Span{File: 1, Start: 10, End: 20}, 15, Span{File: 1, Start: 10, End: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.span.ShiftLeft(tt.shift)
			if got != tt.expected {
				t.Errorf("ShiftLeft(%d) = %v, want %v", tt.shift, got, tt.expected)
			}
		})
	}
}

func TestSpan_ShiftRight(t *testing.T) {
	s := Span{File: 2, Start: 3, End: 7}
	got := s.ShiftRight(4)
	if got.Start != 7 || got.End != 11 || got.File != 2 {
		t.Errorf("ShiftRight(4) = %v", got)
	}
}

func TestSpan_CoverAndContains(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 15, End: 30}

	c := a.Cover(b)
	if c.Start != 10 || c.End != 30 {
		t.Fatalf("Cover = %v, want 1:10-30", c)
	}
	if !c.Contains(a) || !c.Contains(b) {
		t.Errorf("cover %v must contain both operands", c)
	}
	if a.Contains(b) {
		t.Errorf("%v must not contain %v", a, b)
	}

	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cross-file Cover = %v, want %v", got, a)
	}
}

func TestNewSpanClampsInverted(t *testing.T) {
	s := NewSpan(3, 12, 4)
	if s.Start != 12 || s.End != 12 || !s.Empty() {
		t.Errorf("NewSpan(12, 4) = %v, want empty span at 12", s)
	}
	if NewSpan(0, 2, 9).Len() != 7 {
		t.Errorf("Len mismatch")
	}
}

func TestNewSpanPanicsOnNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative offset")
		}
	}()
	_ = NewSpan(0, -1, 3)
}

func TestSpanWithFile(t *testing.T) {
	s := Span{File: 1, Start: 4, End: 9}
	r := s.WithFile(7)
	if r.File != 7 || r.Start != 4 || r.End != 9 {
		t.Errorf("WithFile(7) = %v", r)
	}
	if s.File != 1 {
		t.Error("WithFile must not mutate the receiver")
	}
}
