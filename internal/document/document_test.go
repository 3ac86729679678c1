package document

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
	"a11ygraph/internal/style"
)

type attrs []string

type elemDef struct {
	parent int
	tag    string
	attrs  attrs
}

func fragment(path string, file source.FileID, els ...elemDef) *structure.Model {
	m := structure.New(path, file)
	for _, e := range els {
		el := structure.Element{Tag: e.tag}
		for i := 0; i+1 < len(e.attrs); i += 2 {
			el.Attrs = append(el.Attrs, structure.Attr{Name: e.attrs[i], Value: e.attrs[i+1], HasValue: true})
		}
		m.Append(e.parent, el)
	}
	return m
}

func bind(path string, sel, event string) *behavior.Model {
	m := behavior.New(path, 0)
	m.Append(behavior.Node{Action: behavior.ActionEventBinding, Event: event, Ref: behavior.ElementRef{Selector: sel}})
	return m
}

func mustAdd(t *testing.T, d *Model, m *structure.Model) {
	t.Helper()
	if err := d.AddStructure(m); err != nil {
		t.Fatalf("AddStructure: %v", err)
	}
}

func snapshot(d *Model) string {
	s := ""
	for h, el := range d.Elements() {
		s += fmt.Sprintf("%v b=%v s=%v;", h, el.Behaviors, el.Styles)
	}
	for r, bn := range d.BehaviorNodes() {
		s += fmt.Sprintf("%v->%v;", r, bn.Ref.Resolved)
	}
	for _, rel := range d.Relations() {
		s += fmt.Sprintf("%v %s %+v;", rel.Source, rel.Attr, rel.Tokens)
	}
	return s
}

func TestMergeIDAcrossFragments(t *testing.T) {
	for n := 1; n <= 5; n++ {
		d := New(ScopeWorkspace)
		for i := range n {
			mustAdd(t, d, fragment(fmt.Sprintf("f%d.html", i), 0, elemDef{-1, "div", attrs{"id", fmt.Sprintf("x%d", i)}}))
		}
		target := fmt.Sprintf("x%d", n-1)
		d.AddBehavior(bind("a.js", "#"+target, "click"))
		if err := d.Link(); err != nil {
			t.Fatal(err)
		}
		bn := d.Behavior(node.Ref{Model: 0, Index: 0})
		want := node.Handle{Fragment: n - 1, Elem: 0}
		if bn.Ref.Resolved != want {
			t.Errorf("n=%d: resolved = %v, want %v", n, bn.Ref.Resolved, want)
		}
		if got := d.Element(want).Behaviors; !slices.Equal(got, []node.Ref{{Model: 0, Index: 0}}) {
			t.Errorf("n=%d: attached = %v", n, got)
		}
	}
}

func TestMergeAttachesToAllMatchesInOrder(t *testing.T) {
	d := New(ScopeWorkspace)
	mustAdd(t, d, fragment("a.html", 0,
		elemDef{-1, "ul", nil},
		elemDef{0, "li", attrs{"class", "item"}},
		elemDef{0, "li", attrs{"class", "item selected", "role", "option", "aria-selected", "true"}},
	))
	d.AddBehavior(bind("a.js", ".item", "click"))
	d.AddBehavior(bind("b.js", `[aria-selected="true"]`, "keydown"))
	d.AddBehavior(bind("c.js", "li.item.selected", "click"))

	ss := style.New("a.css", 0)
	for _, sel := range []string{"li", ".item:hover", "ul li", `[role=option]`} {
		r, _ := style.NewRule(sel, []style.Decl{{Property: "color", Value: "red"}})
		ss.Append(r)
	}
	d.AddStyle(ss)

	if err := d.Link(); err != nil {
		t.Fatal(err)
	}

	first := d.Element(node.Handle{Fragment: 0, Elem: 1})
	second := d.Element(node.Handle{Fragment: 0, Elem: 2})
	if !slices.Equal(first.Behaviors, []node.Ref{{Model: 0, Index: 0}}) {
		t.Errorf("first behaviors = %v", first.Behaviors)
	}
	if !slices.Equal(second.Behaviors, []node.Ref{{Model: 0, Index: 0}, {Model: 1, Index: 0}, {Model: 2, Index: 0}}) {
		t.Errorf("second behaviors = %v", second.Behaviors)
	}
	// combinator rule (index 2) never attaches
	if !slices.Equal(second.Styles, []node.Ref{{Model: 0, Index: 0}, {Model: 0, Index: 1}, {Model: 0, Index: 3}}) {
		t.Errorf("second styles = %v", second.Styles)
	}
	if got := d.Behavior(node.Ref{Model: 0, Index: 0}).Ref.Resolved; got != (node.Handle{Fragment: 0, Elem: 1}) {
		t.Errorf("resolved = %v, want first match", got)
	}
}

func TestMergeWithoutStylesOrBehaviors(t *testing.T) {
	d := New(ScopeFile)
	mustAdd(t, d, fragment("a.html", 0, elemDef{-1, "button", nil}))
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	if el := d.Element(node.Handle{}); len(el.Behaviors) != 0 || len(el.Styles) != 0 {
		t.Errorf("unexpected attachments")
	}
}

func TestMergeResolveIdempotent(t *testing.T) {
	d := New(ScopeWorkspace)
	mustAdd(t, d, fragment("a.html", 0,
		elemDef{-1, "button", attrs{"id", "go", "aria-describedby", "hint missing"}},
		elemDef{-1, "p", attrs{"id", "hint"}},
	))
	mustAdd(t, d, fragment("b.html", 1, elemDef{-1, "div", attrs{"class", "go", "aria-labelledby", "go"}}))
	d.AddBehavior(bind("a.js", "#go", "click"))
	d.AddBehavior(bind("a.js", ".go", "keydown"))
	d.AddBehavior(bind("a.js", "#nope", "click"))
	ss := style.New("a.css", 2)
	r, _ := style.NewRule("button", []style.Decl{{Property: "display", Value: "none"}})
	ss.Append(r)
	d.AddStyle(ss)

	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	first := snapshot(d)
	c1 := d.TreeCompleteness()
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	if second := snapshot(d); second != first {
		t.Errorf("second pass differs:\n%s\n%s", first, second)
	}
	if c2 := d.TreeCompleteness(); c1 != c2 {
		t.Errorf("completeness changed: %v -> %v", c1, c2)
	}
}

func TestAddStructureRejectsCycles(t *testing.T) {
	m := fragment("a.html", 0, elemDef{-1, "div", nil}, elemDef{0, "span", nil})
	m.Elements[0].Parent = 1
	m.Elements[1].Children = []int{0}
	d := New(ScopeWorkspace)
	if err := d.AddStructure(m); !errors.Is(err, ErrNotForest) {
		t.Fatalf("err = %v, want ErrNotForest", err)
	}

	ok := fragment("b.html", 0, elemDef{-1, "div", nil})
	mustAdd(t, d, ok)
	d.Fragments[0].Elements[0].Children = []int{0}
	if err := d.Merge(); !errors.Is(err, ErrNotForest) {
		t.Fatalf("Merge err = %v, want ErrNotForest", err)
	}
}

func TestAddDeepCopies(t *testing.T) {
	m := fragment("a.html", 0, elemDef{-1, "button", attrs{"id", "x"}})
	b := bind("a.js", "#x", "click")
	d := New(ScopeWorkspace)
	mustAdd(t, d, m)
	d.AddBehavior(b)
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	if len(m.Elements[0].Behaviors) != 0 || b.Nodes[0].Ref.IsResolved() {
		t.Error("merge must not touch caller-owned models")
	}
}

func TestResolveRelationships(t *testing.T) {
	d := New(ScopeWorkspace)
	mustAdd(t, d, fragment("a.html", 0,
		elemDef{-1, "button", attrs{"aria-labelledby", "l1  l2", "aria-controls", "panel"}},
		elemDef{-1, "span", attrs{"id", "l1"}},
		elemDef{-1, "label", attrs{"for", "name"}},
		elemDef{-1, "div", attrs{"for", "ignored"}},
	))
	mustAdd(t, d, fragment("b.html", 1, elemDef{-1, "section", attrs{"id", "panel"}}, elemDef{-1, "input", attrs{"id", "name"}}))
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}

	rels := d.RelationsOf(node.Handle{Fragment: 0, Elem: 0})
	if len(rels) != 2 {
		t.Fatalf("relations = %+v", rels)
	}
	lb := rels[0]
	if lb.Attr != "aria-labelledby" || len(lb.Tokens) != 2 {
		t.Fatalf("labelledby = %+v", lb)
	}
	if !lb.Tokens[0].Resolved || !lb.Tokens[0].SameFragment || lb.Tokens[1].Resolved {
		t.Errorf("tokens = %+v", lb.Tokens)
	}
	if un := lb.Unresolved(); len(un) != 1 || un[0].Value != "l2" {
		t.Errorf("unresolved = %+v", un)
	}
	ctl := rels[1].Tokens[0]
	if !ctl.Resolved || ctl.SameFragment || ctl.Target != (node.Handle{Fragment: 1, Elem: 0}) {
		t.Errorf("controls = %+v", ctl)
	}
	if got := len(d.Relations()); got != 3 {
		t.Errorf("relations total = %d, want 3 (div[for] ignored)", got)
	}
	if d.IsFragmentComplete(0) || !d.IsFragmentComplete(1) || d.IsFragmentComplete(7) {
		t.Error("IsFragmentComplete mismatch")
	}
}

func TestTokenSpans(t *testing.T) {
	m := fragment("a.html", 3, elemDef{-1, "div", nil})
	m.Elements[0].Attrs = []structure.Attr{{
		Name: "aria-describedby", Value: "a  bc", HasValue: true,
		ValueSpan: source.Span{File: 3, Start: 30, End: 35},
	}}
	d := New(ScopeFile)
	mustAdd(t, d, m)
	d.Resolve()
	toks := d.Relations()[0].Tokens
	if toks[1].Span != (source.Span{File: 3, Start: 33, End: 35}) {
		t.Errorf("token span = %v", toks[1].Span)
	}
}

func TestCompletenessBoundaries(t *testing.T) {
	// one fragment, every reference resolved
	d := New(ScopeWorkspace)
	mustAdd(t, d, fragment("a.html", 0,
		elemDef{-1, "button", attrs{"id", "b", "aria-labelledby", "l"}},
		elemDef{-1, "span", attrs{"id", "l"}},
	))
	d.AddBehavior(bind("a.js", "#b", "click"))
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	if c := d.TreeCompleteness(); math.Abs(c-1.0) > 1e-9 || d.Level() != LevelHigh {
		t.Errorf("complete single fragment: %v %v", c, d.Level())
	}

	// eight disconnected fragments, nothing resolved
	d = New(ScopeWorkspace)
	for i := range 8 {
		mustAdd(t, d, fragment(fmt.Sprintf("f%d.html", i), 0, elemDef{-1, "div", attrs{"aria-controls", "ghost"}}))
	}
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	if c := d.TreeCompleteness(); math.Abs(c-0.3) > 1e-9 || d.Level() != LevelLow {
		t.Errorf("eight fragments: %v %v", c, d.Level())
	}
	if d.FragmentCount() != 8 {
		t.Errorf("FragmentCount = %d", d.FragmentCount())
	}
}

func TestCompletenessFormula(t *testing.T) {
	tests := []struct {
		name      string
		fragments int
		resolved  int
		missing   int
		want      float64
	}{
		{"no fragments", 0, 0, 0, 1.0},
		{"single no refs", 1, 0, 0, 0.7},
		{"two half", 2, 1, 1, 0.8 + 0.15},
		{"five all", 5, 2, 0, 0.8},
		{"twelve", 12, 0, 1, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(ScopeWorkspace)
			for i := range tt.fragments {
				var as attrs
				if i == 0 {
					as = attrs{"id", "t"}
				}
				mustAdd(t, d, fragment(fmt.Sprintf("f%d.html", i), 0, elemDef{-1, "div", as}))
			}
			for range tt.resolved {
				d.AddBehavior(bind("a.js", "#t", "click"))
			}
			for range tt.missing {
				d.AddBehavior(bind("a.js", "#missing", "click"))
			}
			if err := d.Link(); err != nil {
				t.Fatal(err)
			}
			if got := d.TreeCompleteness(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TreeCompleteness = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompletenessMonotonic(t *testing.T) {
	build := func(withTarget bool) *Model {
		d := New(ScopeWorkspace)
		mustAdd(t, d, fragment("a.html", 0, elemDef{-1, "button", attrs{"aria-labelledby", "lbl"}}))
		mustAdd(t, d, fragment("b.html", 1, elemDef{-1, "div", attrs{"class", "panel"}}))
		if withTarget {
			mustAdd(t, d, fragment("c.html", 2, elemDef{-1, "span", attrs{"id", "lbl"}}))
		}
		if err := d.Link(); err != nil {
			t.Fatal(err)
		}
		return d
	}
	before := build(false).TreeCompleteness()
	after := build(true).TreeCompleteness()
	if after < before {
		t.Errorf("completeness decreased: %v -> %v", before, after)
	}
}

func TestEmptyFragmentsAreNotCounted(t *testing.T) {
	d := New(ScopeWorkspace)
	mustAdd(t, d, structure.New("empty.html", 0))
	mustAdd(t, d, fragment("a.html", 1, elemDef{-1, "div", nil}))
	if d.FragmentCount() != 1 {
		t.Errorf("FragmentCount = %d, want 1", d.FragmentCount())
	}
}

func TestElementContext(t *testing.T) {
	d := New(ScopeWorkspace)
	mustAdd(t, d, fragment("a.html", 0,
		elemDef{-1, "div", attrs{"id", "card"}},
		elemDef{-1, "button", attrs{"id", "ok"}},
		elemDef{-1, "span", attrs{"tabindex", "-1", "onkeydown", "f()"}},
		elemDef{-1, "div", attrs{"role", "button", "tabindex", "0", "style", "display: none"}},
		elemDef{-1, "button", attrs{"disabled", "", "tabindex", "0"}},
	))
	d.AddBehavior(bind("a.js", "#card", "click"))
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}

	type flags struct{ focusable, tab, interactive, click, key, native bool }
	want := []flags{
		{false, false, true, true, false, false},
		{true, true, true, false, false, true},
		{true, false, true, false, true, false},
		{true, true, true, false, false, false},
		{false, false, false, false, false, false},
	}
	for i, w := range want {
		ctx, ok := d.ElementContext(node.Handle{Fragment: 0, Elem: i})
		if !ok {
			t.Fatalf("element %d missing", i)
		}
		got := flags{ctx.Focusable, ctx.TabReachable, ctx.Interactive, ctx.HasClickHandler, ctx.HasKeyboardHandler, ctx.NativelyActivatable}
		if got != w {
			t.Errorf("element %d (%s): got %+v, want %+v", i, ctx.Element.Tag, got, w)
		}
	}

	ctx, _ := d.ElementContext(node.Handle{Fragment: 0, Elem: 3})
	if ctx.Inline == nil || !ctx.Inline.Hides() || len(ctx.Cascade()) != 1 {
		t.Errorf("inline style not projected: %+v", ctx.Inline)
	}
	if _, ok := d.ElementContext(node.Handle{Fragment: 4, Elem: 0}); ok {
		t.Error("invalid handle must report !ok")
	}
}

func TestParseScopeAndLevel(t *testing.T) {
	if s, err := ParseScope("page"); err != nil || s != ScopePage {
		t.Errorf("ParseScope(page) = %v, %v", s, err)
	}
	if _, err := ParseScope("galaxy"); err == nil {
		t.Error("expected error")
	}
	if LevelFor(0.9) != LevelHigh || LevelFor(0.5) != LevelMedium || LevelFor(0.4999) != LevelLow {
		t.Error("LevelFor thresholds")
	}
}
