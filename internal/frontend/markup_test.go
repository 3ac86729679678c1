package frontend

import (
	"context"
	"testing"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/dialect"
	"a11ygraph/internal/source"
	"a11ygraph/internal/testkit"
)

func unit(fs *source.FileSet, path, src string) Unit {
	id := fs.AddVirtual(path, []byte(src))
	return Unit{Dialect: dialect.FromPath(path), Path: path, File: id, Text: fs.Get(id).Content}
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func TestMarkupSpans(t *testing.T) {
	fs := source.NewFileSet()
	src := `<div id="menu" class="a b"><button aria-controls='list' disabled>Go</button><img src=x.png><br/></div>`
	res, diags := MarkupParser{}.Parse(context.Background(), unit(fs, "page.html", src))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
	m := res.Structure
	if m.Len() != 4 {
		t.Fatalf("elements = %d", m.Len())
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckSpanInvariants(m, fs.Get(m.File)); err != nil {
		t.Fatal(err)
	}

	div, button, img, br := m.At(0), m.At(1), m.At(2), m.At(3)
	if div.Tag != "div" || button.Parent != 0 || img.Parent != 0 || br.Parent != 0 {
		t.Fatalf("tree = %+v", m.Elements)
	}
	id, _ := div.Attr("id")
	if got := fs.Text(id.Span); got != `id="menu"` {
		t.Errorf("id span = %q", got)
	}
	if got := fs.Text(id.ValueSpan); got != "menu" {
		t.Errorf("id value span = %q", got)
	}
	if got := fs.Text(div.EndTag); got != "</div>" {
		t.Errorf("end tag = %q", got)
	}
	if got := fs.Text(div.Span); got != src {
		t.Errorf("element span = %q", got)
	}

	ctrl, _ := button.Attr("aria-controls")
	if ctrl.Value != "list" || fs.Text(ctrl.ValueSpan) != "list" {
		t.Errorf("aria-controls = %+v", ctrl)
	}
	dis, _ := button.Attr("disabled")
	if dis.HasValue || fs.Text(dis.Span) != "disabled" || dis.ValueSpan != (source.Span{}) {
		t.Errorf("disabled = %+v", dis)
	}
	if got := fs.Text(button.StartTag); got != `<button aria-controls='list' disabled>` {
		t.Errorf("start tag = %q", got)
	}

	srcAttr, _ := img.Attr("src")
	if fs.Text(srcAttr.ValueSpan) != "x.png" || !img.EndTag.Empty() {
		t.Errorf("img = %+v", img)
	}
	if !br.SelfClosing {
		t.Error("br must be self-closing")
	}
}

func TestMarkupRecoversFromMismatchedTags(t *testing.T) {
	fs := source.NewFileSet()
	res, diags := MarkupParser{}.Parse(context.Background(), unit(fs, "page.html", `<div><span>a</div></p>`))
	got := codes(diags)
	if len(got) != 2 || got[0] != diag.MkpUnclosedElement || got[1] != diag.MkpUnexpectedEndTag {
		t.Fatalf("diagnostics = %v", got)
	}
	m := res.Structure
	if m.Len() != 2 || m.At(1).Parent != 0 {
		t.Fatalf("elements = %+v", m.Elements)
	}
	if !m.At(1).EndTag.Empty() || m.At(0).EndTag.Empty() {
		t.Error("div closes, span does not")
	}
	if err := testkit.CheckSpanInvariants(m, fs.Get(m.File)); err != nil {
		t.Error(err)
	}
}

func TestMarkupImpliedEndTags(t *testing.T) {
	fs := source.NewFileSet()
	res, diags := MarkupParser{}.Parse(context.Background(), unit(fs, "list.html", `<ul><li>a<li>b</ul><p>x<div>y</div>`))
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", codes(diags))
	}
	m := res.Structure
	if got := len(m.At(0).Children); got != 2 {
		t.Fatalf("ul children = %d", got)
	}
	// the div closes the open paragraph and becomes a root
	if len(m.Roots) != 3 {
		t.Fatalf("roots = %v", m.Roots)
	}
	if err := testkit.CheckSpanInvariants(m, fs.Get(m.File)); err != nil {
		t.Error(err)
	}
}

func TestMarkupDuplicateAndEmptyRelationship(t *testing.T) {
	fs := source.NewFileSet()
	res, diags := MarkupParser{}.Parse(context.Background(),
		unit(fs, "page.html", `<input id="a" id="b" aria-describedby="">`))
	got := codes(diags)
	if len(got) != 2 || got[0] != diag.MkpDuplicateAttr || got[1] != diag.MkpEmptyRelationship {
		t.Fatalf("diagnostics = %v", got)
	}
	if v := res.Structure.At(0).IDAttr(); v != "a" {
		t.Errorf("id = %q, the first attribute wins", v)
	}
}

func TestScanAttrs(t *testing.T) {
	tag := []byte(`<a href = "x" data-x=y/ checked>`)
	pos := scanAttrs(tag)
	if len(pos) != 3 {
		t.Fatalf("attrs = %+v", pos)
	}
	if got := string(tag[pos[0].nameStart:pos[0].end]); got != `href = "x"` {
		t.Errorf("href = %q", got)
	}
	if got := string(tag[pos[1].valueStart:pos[1].valueEnd]); got != "y/" {
		t.Errorf("unquoted value = %q", got)
	}
	if pos[2].hasValue {
		t.Error("checked has no value")
	}
}
