package diag

import (
	"testing"

	"a11ygraph/internal/source"
)

func TestBagLimitAndMerge(t *testing.T) {
	b := NewBag(2)
	for i := range 3 {
		ok := b.Add(NewWarning(MkpMalformed, source.Point(0, uint32(i)), "w"))
		if want := i < 2; ok != want {
			t.Errorf("Add #%d = %v, want %v", i, ok, want)
		}
	}
	if b.HasErrors() {
		t.Error("unexpected errors")
	}

	other := NewBag(4)
	other.Add(NewError(ScrSyntaxError, source.Point(1, 0), "e"))
	b.Merge(other)
	if b.Len() != 3 || b.Cap() != 3 || !b.HasErrors() {
		t.Errorf("after merge len=%d cap=%d errors=%v", b.Len(), b.Cap(), b.HasErrors())
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	b.Add(NewWarning(StySyntaxError, source.Span{File: 1, Start: 5, End: 6}, "late"))
	b.Add(NewWarning(MkpMalformed, source.Span{File: 0, Start: 9, End: 9}, "x"))
	b.Add(NewError(MkpMalformed, source.Span{File: 0, Start: 9, End: 9}, "x"))
	b.Add(NewWarning(MkpMalformed, source.Span{File: 0, Start: 9, End: 9}, "dup"))

	b.Sort()
	items := b.Items()
	if items[0].Severity != SevError || items[len(items)-1].Primary.File != 1 {
		t.Fatalf("unexpected order: %+v", items)
	}

	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("expected 2 diagnostics after dedup, got %d", b.Len())
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(NewBagReporter(bag))
	sp := source.Span{File: 0, Start: 1, End: 2}
	ReportWarning(r, MkpDuplicateAttr, sp, "duplicate attribute \"id\"").Emit()
	ReportWarning(r, MkpDuplicateAttr, sp, "duplicate attribute \"id\"").Emit()
	ReportError(r, MkpDuplicateAttr, sp, "duplicate attribute \"id\"").WithNote(sp, "first").Emit()
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
	if len(bag.Items()[1].Notes) != 1 {
		t.Errorf("note lost")
	}
}

func TestSeverityHelpers(t *testing.T) {
	if SevError.Downgrade(1) != SevWarning || SevError.Downgrade(5) != SevInfo {
		t.Error("Downgrade mismatch")
	}
	for _, label := range []string{"error", "WARNING", " info "} {
		if _, err := ParseSeverity(label); err != nil {
			t.Errorf("ParseSeverity(%q): %v", label, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("expected error for unknown severity")
	}
	if got := MkpUnexpectedEndTag.ID(); got != "MKP1001" {
		t.Errorf("ID = %q", got)
	}
}
