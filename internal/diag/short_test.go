package diag

import (
	"testing"

	"a11ygraph/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	page := fs.Add("/workspace/site/index.html", []byte("a\nb\n"), 0)
	styles := fs.Add("/workspace/site/app.css", []byte("x\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     MkpUnexpectedEndTag,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: page, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: page, Start: 2, End: 3}, Msg: "opened here"},
			},
		},
		{
			Severity: SevWarning,
			Code:     StyComplexSelector,
			Message:  "another",
			Primary:  source.Span{File: styles, Start: 0, End: 1},
		},
	}

	expected := "warning STY3002 site/app.css:1:1 another\n" +
		"error MKP1001 site/index.html:1:1 first line second\n" +
		"note MKP1001 site/index.html:2:1 opened here"

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestFormatShortDiagnosticsSkipsUnknownFiles(t *testing.T) {
	fs := source.NewFileSet()
	d := NewError(FeParserPanic, source.Span{File: 42}, "boom")
	if got := FormatShortDiagnostics([]Diagnostic{d}, fs, false); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
