package fix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

func withFix(typ string, primary source.Span, f *issue.Fix) issue.Issue {
	return issue.Issue{Type: typ, Message: typ, Locations: []source.Span{primary}, Fix: f}
}

func TestGatherCandidatesSkipsDuplicateFixIDs(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("page.html", []byte(""))
	span := source.Span{File: fileID, Start: 0, End: 0}

	issues := []issue.Issue{
		withFix("duplicate-id", span, InsertText("insert role", span, " role", WithID("fix-duplicate"))),
		withFix("duplicate-id", span, InsertText("insert role again", span, " role", WithID("fix-duplicate"))),
		withFix("duplicate-id", span, &issue.Fix{ID: "empty", Title: "nothing"}),
	}

	candidates, skips := gatherCandidates(issues)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if len(skips) != 2 {
		t.Fatalf("expected 2 skipped fixes, got %d", len(skips))
	}
	if skips[0].ID != "fix-duplicate" || skips[0].Reason != "duplicate fix id" {
		t.Fatalf("unexpected duplicate skip %+v", skips[0])
	}
	if skips[1].Reason != "fix has no edits" {
		t.Fatalf("unexpected empty skip %+v", skips[1])
	}
}

func TestGatherCandidatesSynthesizesIDs(t *testing.T) {
	span := source.Span{File: 2, Start: 7, End: 9}
	candidates, _ := gatherCandidates([]issue.Issue{
		withFix("focus-order-conflict", span, ReplaceSpan("set 0", span, "0", "")),
	})
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if got := candidates[0].fix.ID; got != "focus-order-conflict-2-7" {
		t.Fatalf("synthesized id = %q", got)
	}
}

func TestApplyWritesFileAndKeepsOtherBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	content := `<div class="a">x</div><span tabindex="3">y</span>`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	insertAt := source.NewSpan(id, 4, 4)
	valueAt := source.NewSpan(id, 38, 39)
	issues := []issue.Issue{
		withFix("interactive-missing-role", insertAt, InsertText("add role", insertAt, ` role="button"`)),
		withFix("focus-order-conflict", valueAt, ReplaceSpan("set 0", valueAt, "0", "3")),
	}

	res, err := Apply(fs, issues, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 2 || len(res.FileChanges) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.FileChanges[0].Path != "page.html" || res.FileChanges[0].EditCount != 2 {
		t.Fatalf("unexpected change %+v", res.FileChanges[0])
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `<div role="button" class="a">x</div><span tabindex="0">y</span>`
	if string(got) != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
}

func TestApplyDryRunLeavesDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.css")
	content := "a:focus { outline: none }\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	end := source.NewSpan(id, len(content), len(content))
	res, err := Apply(fs, []issue.Issue{
		withFix("focus-indicator-removed", end, InsertText("append", end, "a:focus-visible { outline: 2px solid }\n")),
	}, ApplyOptions{Mode: ApplyModeOnce, DryRun: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	change := res.FileChanges[0]
	if string(change.Before) != content {
		t.Fatalf("before = %q", change.Before)
	}
	if string(change.After) != content+"a:focus-visible { outline: 2px solid }\n" {
		t.Fatalf("after = %q", change.After)
	}
	disk, _ := os.ReadFile(path)
	if string(disk) != content {
		t.Fatalf("dry run modified the file: %q", disk)
	}
}

func TestApplySkipsConflictsAndStaleText(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("page.html", []byte(`<div tabindex="5"></div>`))
	value := source.NewSpan(id, 15, 16)
	whole := source.NewSpan(id, 5, 17)
	issues := []issue.Issue{
		withFix("a", value, ReplaceSpan("set 0", value, "0", "5", WithID("first"))),
		withFix("b", whole, DeleteSpan("drop attribute", whole, `tabindex="5"`, WithID("overlap"))),
		withFix("c", value, ReplaceSpan("stale", value, "1", "9", WithID("stale"))),
	}

	res, err := Apply(fs, issues, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0].ID != "overlap" {
		t.Fatalf("applied = %+v", res.Applied)
	}
	reasons := map[string]string{}
	for _, s := range res.Skipped {
		reasons[s.ID] = s.Reason
	}
	if reasons["first"] == "" || reasons["stale"] == "" {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	if string(res.FileChanges[0].After) != `<div ></div>` {
		t.Fatalf("after = %q", res.FileChanges[0].After)
	}
}

func TestApplySelectionModes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("page.html", []byte(`<div></div>`))
	at := source.NewSpan(id, 4, 4)
	issues := []issue.Issue{
		withFix("a", at, InsertText("review", at, ` role="button"`,
			WithApplicability(issue.FixApplicabilityManualReview), WithID("review"))),
		withFix("b", source.NewSpan(id, 5, 5), InsertText("safe", source.NewSpan(id, 5, 5), "x", WithID("safe"))),
	}

	res, err := Apply(fs, issues, ApplyOptions{Mode: ApplyModeOnce, DryRun: true})
	if err != nil || len(res.Applied) != 1 || res.Applied[0].ID != "safe" {
		t.Fatalf("once: %+v, %v", res, err)
	}

	res, err = Apply(fs, issues, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if err != nil || len(res.Applied) != 1 || len(res.Skipped) != 1 || res.Skipped[0].Reason != "applicability is manual-review" {
		t.Fatalf("all: %+v, %v", res, err)
	}

	res, err = Apply(fs, issues, ApplyOptions{Mode: ApplyModeID, TargetID: "review", DryRun: true})
	if err != nil || len(res.Applied) != 1 || res.Applied[0].ID != "review" {
		t.Fatalf("id: %+v, %v", res, err)
	}

	_, err = Apply(fs, issues, ApplyOptions{Mode: ApplyModeID, TargetID: "missing", DryRun: true})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
}

func TestApplyRefusesToWriteVirtualFiles(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("stdin", []byte(`<p></p>`))
	at := source.NewSpan(id, 2, 2)
	res, err := Apply(fs, []issue.Issue{withFix("a", at, InsertText("x", at, " hidden"))}, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "target file is virtual" {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
}

func TestSpansConflict(t *testing.T) {
	tests := []struct {
		name string
		a, b source.Span
		want bool
	}{
		{"two inserts", source.Span{Start: 3, End: 3}, source.Span{Start: 3, End: 3}, false},
		{"insert inside", source.Span{Start: 3, End: 3}, source.Span{Start: 2, End: 5}, true},
		{"insert at end", source.Span{Start: 5, End: 5}, source.Span{Start: 2, End: 5}, false},
		{"overlap", source.Span{Start: 1, End: 4}, source.Span{Start: 3, End: 6}, true},
		{"adjacent", source.Span{Start: 1, End: 3}, source.Span{Start: 3, End: 6}, false},
	}
	for _, tt := range tests {
		got := spansConflict(issue.TextEdit{Span: tt.a}, issue.TextEdit{Span: tt.b})
		if got != tt.want {
			t.Errorf("%s: spansConflict = %v, want %v", tt.name, got, tt.want)
		}
	}
}
