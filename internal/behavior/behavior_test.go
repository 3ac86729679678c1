package behavior

import (
	"testing"

	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
)

func TestAppendResetsResolution(t *testing.T) {
	m := New("app.js", 2)
	i := m.Append(Node{
		Action: ActionEventBinding,
		Event:  "click",
		Ref:    ElementRef{Selector: "#submit", Resolved: node.Handle{Fragment: 0, Elem: 0}},
	})
	n := m.At(i)
	if n.Ref.IsResolved() {
		t.Error("parsers must not produce resolved references")
	}
	if n.ID != "app.js:b0" || n.Kind != node.KindBehavior {
		t.Errorf("node = %+v", n.Node)
	}
}

func TestEventClassification(t *testing.T) {
	tests := []struct {
		ev         string
		click, key bool
	}{
		{"click", true, false},
		{"onClick", true, false},
		{"pointerdown", true, false},
		{"keydown", false, true},
		{"onkeyup", false, true},
		{"focus", false, false},
		{"online", false, false},
	}
	for _, tt := range tests {
		if IsClickEvent(tt.ev) != tt.click || IsKeyEvent(tt.ev) != tt.key {
			t.Errorf("%q: click=%v key=%v", tt.ev, IsClickEvent(tt.ev), IsKeyEvent(tt.ev))
		}
	}

	n := Node{Action: ActionFocusTransfer, Event: "click"}
	if n.IsClick() {
		t.Error("only event bindings count as click handlers")
	}
}

func TestCloneAndRebind(t *testing.T) {
	m := New("app.js", 0)
	m.Append(Node{Action: ActionStateMutation, Attribute: "aria-expanded",
		Node: node.Node{Span: source.Span{File: 0, Start: 4, End: 9}},
		Ref:  ElementRef{Selector: "#menu"}})
	m.At(0).Set("method", "setAttribute")
	m.At(0).Ref.Resolved = node.Handle{Fragment: 1, Elem: 2}

	c := m.WithFile(5)
	c.At(0).Set("method", "changed")
	c.ClearResolution()

	if v, _ := m.At(0).Get("method"); v != "setAttribute" {
		t.Error("clone shares metadata")
	}
	if !m.At(0).Ref.IsResolved() || c.At(0).Ref.IsResolved() {
		t.Error("ClearResolution must only affect the clone")
	}
	if c.At(0).Span.File != 5 || c.At(0).Handler != (source.Span{}) {
		t.Errorf("rebind: span=%v handler=%v", c.At(0).Span, c.At(0).Handler)
	}
	if ActionStateMutation.String() != "state-attribute-mutation" || TimingDeferred.String() != "deferred" {
		t.Error("String mismatch")
	}
}
