package fix

import (
	"errors"
	"strings"
	"testing"

	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
)

// element builds a single element over src with spans taken from the text.
// attrs lists attribute names present in the start tag.
func element(t *testing.T, fs *source.FileSet, src, tag string, attrs ...string) *structure.Element {
	t.Helper()
	id := fs.AddVirtual("page.html", []byte(src))
	startEnd := strings.IndexByte(src, '>') + 1
	el := &structure.Element{Tag: tag, StartTag: source.NewSpan(id, 0, startEnd)}
	if i := strings.Index(src, "</"+tag+">"); i >= 0 {
		el.EndTag = source.NewSpan(id, i, i+len(tag)+3)
	}
	for _, name := range attrs {
		start := strings.Index(src, " "+name) + 1
		a := structure.Attr{Name: name}
		end := start + len(name)
		if src[end] == '=' {
			q := src[end+1]
			qe := strings.IndexByte(src[end+2:], q) + end + 2
			a.HasValue = true
			a.Value = src[end+2 : qe]
			a.ValueSpan = source.NewSpan(id, end+2, qe)
			end = qe + 1
		}
		a.Span = source.NewSpan(id, start, end)
		el.Attrs = append(el.Attrs, a)
	}
	return el
}

func apply(t *testing.T, fs *source.FileSet, f *issue.Fix) string {
	t.Helper()
	if f == nil {
		t.Fatal("nil fix")
	}
	res, err := Apply(fs, []issue.Issue{{Type: "t", Locations: []source.Span{f.Edits[0].Span}, Fix: f}},
		ApplyOptions{Mode: ApplyModeID, TargetID: firstNonEmpty(f.ID, "t-0-0"), DryRun: true})
	if err != nil {
		t.Fatalf("Apply: %v (skipped %+v)", err, res.Skipped)
	}
	return string(res.FileChanges[0].After)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func TestMarkupBuilders(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		tag   string
		attrs []string
		build func(fs *source.FileSet, el *structure.Element) *issue.Fix
		want  string
	}{
		{
			name: "insert",
			src:  `<div class="x">a</div>`, tag: "div", attrs: []string{"class"},
			build: func(_ *source.FileSet, el *structure.Element) *issue.Fix {
				return InsertAttribute("role", el, "role", "button", WithID("x"))
			},
			want: `<div role="button" class="x">a</div>`,
		},
		{
			name: "set replaces value",
			src:  `<input tabindex='4'>`, tag: "input", attrs: []string{"tabindex"},
			build: func(fs *source.FileSet, el *structure.Element) *issue.Fix {
				return SetAttribute("t", fs, el, "tabindex", "0", WithID("x"))
			},
			want: `<input tabindex='0'>`,
		},
		{
			name: "set on bare attribute",
			src:  `<div tabindex>a</div>`, tag: "div", attrs: []string{"tabindex"},
			build: func(fs *source.FileSet, el *structure.Element) *issue.Fix {
				return SetAttribute("t", fs, el, "tabindex", "-1", WithID("x"))
			},
			want: `<div tabindex="-1">a</div>`,
		},
		{
			name: "set inserts when absent",
			src:  `<p hidden>a</p>`, tag: "p", attrs: []string{"hidden"},
			build: func(fs *source.FileSet, el *structure.Element) *issue.Fix {
				return SetAttribute("t", fs, el, "tabindex", "-1", WithID("x"))
			},
			want: `<p tabindex="-1" hidden>a</p>`,
		},
		{
			name: "remove with blank",
			src:  `<button aria-labelledby="nope" id="b">a</button>`, tag: "button", attrs: []string{"aria-labelledby", "id"},
			build: func(fs *source.FileSet, el *structure.Element) *issue.Fix {
				return RemoveAttribute("rm", fs, el, "aria-labelledby", WithID("x"))
			},
			want: `<button id="b">a</button>`,
		},
		{
			name: "rename start and end",
			src:  `<span class="c">go</span>`, tag: "span", attrs: []string{"class"},
			build: func(fs *source.FileSet, el *structure.Element) *issue.Fix {
				return RenameElement("rename", fs, el, "button", ` type="button"`, WithID("x"))
			},
			want: `<button type="button" class="c">go</button>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			el := element(t, fs, tt.src, tt.tag, tt.attrs...)
			if got := apply(t, fs, tt.build(fs, el)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardRejectsEditedSource(t *testing.T) {
	fs := source.NewFileSet()
	el := element(t, fs, `<input tabindex="4">`, "input", "tabindex")
	f := SetAttribute("t", fs, el, "tabindex", "0", WithID("x"))
	if f.Edits[0].OldText != "4" {
		t.Fatalf("guard = %q", f.Edits[0].OldText)
	}

	// the same spans over a newer buffer no longer match
	other := source.NewFileSet()
	if id := other.AddVirtual("page.html", []byte(`<input tabindex="7">`)); id != f.Edits[0].Span.File {
		t.Fatalf("file ids differ: %d", id)
	}
	res, err := Apply(other, []issue.Issue{{Type: "t", Locations: []source.Span{f.Edits[0].Span}, Fix: f}},
		ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "existing text does not match expected content" {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
}

func TestRemoveMissingAttribute(t *testing.T) {
	fs := source.NewFileSet()
	el := element(t, fs, `<div>a</div>`, "div")
	if RemoveAttribute("rm", fs, el, "role") != nil {
		t.Error("removing an absent attribute yields no fix")
	}
}

func TestAppendToFile(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.css", []byte("a{}"))
	f, err := AppendToFile("append", fs, id, "b{}\n", WithID("x"))
	if err != nil {
		t.Fatal(err)
	}
	if got := apply(t, fs, f); got != "a{}\nb{}\n" {
		t.Errorf("got %q", got)
	}
	if _, err := AppendToFile("append", fs, 42, "x"); err == nil {
		t.Error("unknown file must fail")
	}
}

func TestCombineKeepsStrictestApplicability(t *testing.T) {
	a := InsertText("a", source.Span{Start: 1, End: 1}, "x")
	b := InsertText("b", source.Span{Start: 2, End: 2}, "y", WithApplicability(issue.FixApplicabilityManualReview))
	c := Combine(a, nil, b)
	if len(c.Edits) != 2 || c.Applicability != issue.FixApplicabilityManualReview || c.Title != "a" {
		t.Fatalf("combined = %+v", c)
	}
	if len(a.Edits) != 1 {
		t.Fatal("Combine must not alias its inputs")
	}
}

func TestCombineRenameWithAttributeRemoval(t *testing.T) {
	fs := source.NewFileSet()
	el := element(t, fs, `<div role="button" tabindex="0">Go</div>`, "div", "role", "tabindex")
	f := Combine(
		RenameElement("rename", fs, el, "button", ` type="button"`, WithID("native"), Preferred()),
		RemoveAttribute("drop role", fs, el, "role"),
		RemoveAttribute("drop tabindex", fs, el, "tabindex"),
	)
	if f.ID != "native" || !f.IsPreferred || len(f.Edits) != 4 {
		t.Fatalf("combined = %+v", f)
	}
	if got := apply(t, fs, f); got != `<button type="button">Go</button>` {
		t.Errorf("got %q", got)
	}
}
