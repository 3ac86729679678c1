package style

import (
	"errors"
	"slices"
	"testing"

	"a11ygraph/internal/selector"
)

func decl(p, v string) Decl { return Decl{Property: p, Value: v} }

func TestNewRuleQualifiersAndImpact(t *testing.T) {
	r, err := NewRule(".btn:focus:hover", []Decl{decl("outline", "none"), decl("color", "red")})
	if err != nil {
		t.Fatal(err)
	}
	if r.Selector != ".btn" || !slices.Equal(r.Parts, []string{".btn"}) {
		t.Errorf("selector = %q parts = %v", r.Selector, r.Parts)
	}
	if !r.Pseudo.Has(PseudoFocus) || !r.Pseudo.Has(PseudoHover) || r.Pseudo.Has(PseudoFocusVisible) {
		t.Errorf("pseudo = %s", r.Pseudo)
	}
	if !r.Impact.Has(ImpactFocusVisibility) || !r.Impact.Has(ImpactContrast) || r.Impact.Has(ImpactPointer) {
		t.Errorf("impact = %b", r.Impact)
	}
	if !r.RemovesOutline() || !r.Conditional() {
		t.Error("expected outline removal on a conditional rule")
	}
	if r.Pseudo.String() != ":focus:hover" {
		t.Errorf("Pseudo.String = %q", r.Pseudo.String())
	}
}

func TestNewRuleComplex(t *testing.T) {
	r, err := NewRule("nav a", []Decl{decl("display", "none")})
	if !errors.Is(err, selector.ErrCombinator) {
		t.Fatalf("err = %v", err)
	}
	if !r.Complex || r.Parts != nil || r.RawSelector != "nav a" {
		t.Errorf("rule = %+v", r)
	}

	r, err = NewRule(`a[href$=".pdf"]`, nil)
	if err != nil || !r.Complex {
		t.Errorf("unmatchable operator: complex=%v err=%v", r.Complex, err)
	}
}

func TestHides(t *testing.T) {
	tests := []struct {
		d    Decl
		want bool
	}{
		{decl("display", "none"), true},
		{decl("display", "NONE !important"), true},
		{decl("display", "block"), false},
		{decl("visibility", "hidden"), true},
		{decl("visibility", "collapse"), true},
		{decl("opacity", "0"), true},
		{decl("opacity", "0.5"), false},
		{decl("content-visibility", "hidden"), true},
	}
	for _, tt := range tests {
		r := Rule{Props: []Decl{tt.d}}
		if got := r.Hides(); got != tt.want {
			t.Errorf("%s: %s hides = %v, want %v", tt.d.Property, tt.d.Value, got, tt.want)
		}
	}
}

func TestPropImportantWins(t *testing.T) {
	r := Rule{Props: []Decl{
		{Property: "display", Value: "none", Important: true},
		decl("display", "block"),
	}}
	d, ok := r.Prop("display")
	if !ok || d.Value != "none" {
		t.Errorf("Prop = %+v", d)
	}
}

func TestWinning(t *testing.T) {
	low, _ := NewRule("button", []Decl{decl("pointer-events", "none")})
	high, _ := NewRule("#go", []Decl{decl("pointer-events", "auto")})
	later, _ := NewRule("button", []Decl{decl("pointer-events", "auto")})
	imp, _ := NewRule("button", []Decl{{Property: "pointer-events", Value: "none", Important: true}})
	inline := InlineRule([]Decl{decl("pointer-events", "auto")})

	tests := []struct {
		name  string
		rules []*Rule
		want  *Rule
	}{
		{"specificity", []*Rule{&high, &low}, &high},
		{"later wins on tie", []*Rule{&low, &later}, &later},
		{"important beats specificity", []*Rule{&imp, &high}, &imp},
		{"inline beats id", []*Rule{&high, &inline}, &inline},
	}
	for _, tt := range tests {
		got, _, ok := Winning(tt.rules, "pointer-events")
		if !ok || got != tt.want {
			t.Errorf("%s: got %v", tt.name, got)
		}
	}
	if _, _, ok := Winning([]*Rule{&low}, "display"); ok {
		t.Error("no rule sets display")
	}
}

func TestModelCloneAndRebind(t *testing.T) {
	m := New("app.css", 0)
	r, _ := NewRule("#btn", []Decl{decl("display", "none")})
	m.Append(r)
	c := m.WithFile(3)
	c.At(0).Props[0].Value = "block"
	if m.At(0).Props[0].Value != "none" {
		t.Error("clone shares declarations")
	}
	if m.At(0).ID != "app.css:s0" || c.At(0).Props[0].Span.File != 3 {
		t.Errorf("id=%q span=%v", m.At(0).ID, c.At(0).Props[0].Span)
	}
}
