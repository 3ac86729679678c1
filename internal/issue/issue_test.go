package issue

import (
	"testing"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/source"
)

func TestSortIsDeterministic(t *testing.T) {
	mk := func(file source.FileID, start uint32, typ string) Issue {
		return Issue{Type: typ, Locations: []source.Span{{File: file, Start: start, End: start + 1}}}
	}
	issues := []Issue{mk(1, 0, "b"), mk(0, 5, "a"), mk(0, 5, "0"), mk(0, 1, "z")}
	Sort(issues)
	want := []string{"z", "0", "a", "b"}
	for i, w := range want {
		if issues[i].Type != w {
			t.Fatalf("order = %v", issues)
		}
	}
}

func TestFilterAndErrors(t *testing.T) {
	issues := []Issue{
		{Type: "a", Severity: diag.SevWarning, Confidence: Confidence{Level: document.LevelLow}},
		{Type: "b", Severity: diag.SevError, Confidence: Confidence{Level: document.LevelHigh}},
	}
	if !HasErrors(issues) {
		t.Error("expected errors")
	}
	kept := Filter(issues, document.LevelMedium)
	if len(kept) != 1 || kept[0].Type != "b" {
		t.Errorf("Filter = %+v", kept)
	}
	if HasErrors(Filter(issues[:1], document.LevelLow)) {
		t.Error("warning is not an error")
	}
}

func TestToRecord(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/w")
	id := fs.Add("/w/a.html", []byte("<div>\n<span tabindex=\"5\">x</span>\n</div>"), 0)

	is := Issue{
		Type:       "focus-order-conflict",
		Severity:   diag.SevWarning,
		Message:    "positive tabindex",
		Confidence: Confidence{Level: document.LevelHigh, Reason: "structure only", TreeCompleteness: 0.7},
		Locations:  []source.Span{{File: id, Start: 6, End: 25}},
		Fix: &Fix{
			ID: "fix-1", Title: "use 0", Applicability: FixApplicabilityAlwaysSafe,
			Edits: []TextEdit{{Span: source.Span{File: id, Start: 22, End: 23}, NewText: "0", OldText: "5"}},
		},
	}
	r := ToRecord(fs, is, "relative")
	if r.Severity != "warning" || r.Confidence != "HIGH" || r.TreeCompleteness != 0.7 {
		t.Errorf("record = %+v", r)
	}
	if loc := r.Locations[0]; loc.Path != "a.html" || loc.Line != 2 || loc.Column != 1 {
		t.Errorf("location = %+v", loc)
	}
	if r.Fix == nil || r.Fix.Applicability != "always-safe" || r.Fix.Edits[0].Location.Column != 17 {
		t.Errorf("fix = %+v", r.Fix)
	}
}
