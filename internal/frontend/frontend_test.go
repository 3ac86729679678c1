package frontend

import (
	"context"
	"errors"
	"testing"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/dialect"
	"a11ygraph/internal/source"
)

type panicParser struct{}

func (panicParser) Parse(context.Context, Unit) (Result, []diag.Diagnostic) {
	panic("boom")
}

func TestRegistryFoldsEmbeddedBlocks(t *testing.T) {
	src := `<p id="a">x</p><script>document.getElementById('a').addEventListener('click', () => {})</script>` +
		`<style>.a:focus { outline: none }</style><script type="application/json">{"a": 1}</script>`
	fs := source.NewFileSet()
	res, diags := Default(nil).Parse(context.Background(), unit(fs, "page.html", src))
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v", diags)
	}
	if res.Structure.Len() != 4 || res.Embedded != nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Behavior.Len() != 1 || res.Style.Len() != 1 {
		t.Fatalf("behaviors = %d, rules = %d", res.Behavior.Len(), res.Style.Len())
	}
	bn := res.Behavior.Nodes[0]
	if got := fs.Text(bn.Span); got != "document.getElementById('a').addEventListener('click', () => {})" {
		t.Errorf("behavior span = %q", got)
	}
	if bn.Ref.Selector != "#a" || bn.ID != "page.html:b0" {
		t.Errorf("behavior = %+v", bn)
	}
	if got := fs.Text(res.Style.Rules[0].SelectorSpan); got != ".a:focus" {
		t.Errorf("selector span = %q", got)
	}
}

func TestRegistryDetectsDialect(t *testing.T) {
	fs := source.NewFileSet()
	u := unit(fs, "stdin", "a:focus { outline: none; }\n.b:hover { display: block; }\n")
	res, _ := Default(nil).Parse(context.Background(), u)
	if res.Style.Len() != 2 {
		t.Fatalf("rules = %d", res.Style.Len())
	}
}

func TestRegistryRecoversPanics(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(dialect.Style, panicParser{})
	fs := source.NewFileSet()
	res, diags := r.Parse(context.Background(), unit(fs, "a.css", "a{}"))
	if len(diags) != 1 || diags[0].Code != diag.FeParserPanic || diags[0].Severity != diag.SevError {
		t.Fatalf("diagnostics = %+v", diags)
	}
	if res.Style == nil || res.Style.Len() != 0 {
		t.Fatalf("expected an empty style model, got %+v", res)
	}
}

func TestRegistryUnsupportedDialect(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Lookup(dialect.Markup); !errors.Is(err, ErrUnsupportedDialect) {
		t.Fatalf("Lookup err = %v", err)
	}
	fs := source.NewFileSet()
	res, diags := r.Parse(context.Background(), unit(fs, "a.html", "<p></p>"))
	if len(diags) != 1 || diags[0].Code != diag.FeUnsupportedDialect {
		t.Fatalf("diagnostics = %+v", diags)
	}
	if res.Structure == nil || !res.Empty() {
		t.Fatalf("result = %+v", res)
	}
}
