package structure

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
)

// Attr is one attribute as written in source.
type Attr struct {
	Name      string // lower-cased
	Value     string
	HasValue  bool
	Span      source.Span // whole name="value"
	ValueSpan source.Span // value bytes without quotes; empty when no value
}

// Element is a markup element inside a fragment arena.
type Element struct {
	node.Node
	Tag         string
	Attrs       []Attr
	Children    []int
	Parent      int // -1 for roots
	StartTag    source.Span
	EndTag      source.Span // empty for void or self-closed elements
	SelfClosing bool

	// populated only by merge
	Behaviors []node.Ref
	Styles    []node.Ref
}

// Attr returns the attribute named name.
func (e *Element) Attr(name string) (Attr, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// AttrValue returns the value of name or "".
func (e *Element) AttrValue(name string) string {
	a, _ := e.Attr(name)
	return a.Value
}

// AttrSeq yields attribute name/value pairs in source order.
func (e *Element) AttrSeq() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, a := range e.Attrs {
			if !yield(a.Name, a.Value) {
				return
			}
		}
	}
}

// IDAttr returns the trimmed id attribute.
func (e *Element) IDAttr() string {
	return strings.TrimSpace(e.AttrValue("id"))
}

// Role returns the first role token, lower-cased.
func (e *Element) Role() string {
	fields := strings.Fields(e.AttrValue("role"))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func (e *Element) Classes() []string {
	return strings.Fields(e.AttrValue("class"))
}

// TabIndex parses the tabindex attribute. ok is false when absent or not an
// integer.
func (e *Element) TabIndex() (int, bool) {
	a, ok := e.Attr("tabindex")
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(a.Value))
	if err != nil {
		return 0, false
	}
	return v, true
}

// BoolAttr reports whether a boolean attribute is present and not "false".
// aria-hidden="false" is therefore false while hidden="" is true.
func (e *Element) BoolAttr(name string) bool {
	a, ok := e.Attr(name)
	if !ok {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(a.Value), "false")
}

// InlineHandler reports whether an on<event> attribute is present.
func (e *Element) InlineHandler(event string) bool {
	return e.HasAttr("on" + event)
}

// clone copies slices so the copy shares nothing with e.
func (e *Element) clone() Element {
	c := *e
	c.Node = e.Node.CloneBase()
	c.Attrs = slices.Clone(e.Attrs)
	c.Children = slices.Clone(e.Children)
	c.Behaviors = slices.Clone(e.Behaviors)
	c.Styles = slices.Clone(e.Styles)
	return c
}

func (e *Element) rebind(id source.FileID) {
	e.Node = e.Node.Rebind(id)
	e.StartTag = e.StartTag.WithFile(id)
	e.EndTag = e.EndTag.WithFile(id)
	for i := range e.Attrs {
		e.Attrs[i].Span = e.Attrs[i].Span.WithFile(id)
		e.Attrs[i].ValueSpan = e.Attrs[i].ValueSpan.WithFile(id)
	}
}
