// Package testkit holds checks shared by front-end tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
)

// CheckSpanInvariants runs the span invariants of a parsed structure model:
// 1) every span belongs to sf and lies within its content
// 2) an element span covers its start tag and, when present, its end tag
// 3) attribute spans lie in the start tag, value spans in the attribute
// 4) a child element lies inside its parent
func CheckSpanInvariants(m *structure.Model, sf *source.File) error {
	if m == nil || sf == nil {
		return fmt.Errorf("nil model or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	inFile := func(what string, sp source.Span) error {
		if sp.File != sf.ID {
			return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, sf.ID)
		}
		if sp.End < sp.Start || sp.End > lenContent {
			return fmt.Errorf("%s span %v outside content of %d bytes", what, sp, lenContent)
		}
		return nil
	}

	for i := range m.Elements {
		el := &m.Elements[i]
		name := fmt.Sprintf("<%s>#%d", el.Tag, i)
		if el.StartTag.Empty() {
			return fmt.Errorf("%s: empty start tag span", name)
		}
		if err := inFile(name+" start tag", el.StartTag); err != nil {
			return err
		}
		if err := inFile(name, el.Span); err != nil {
			return err
		}
		if !el.Span.Contains(el.StartTag) {
			return fmt.Errorf("%s: span %v does not cover start tag %v", name, el.Span, el.StartTag)
		}
		if !el.EndTag.Empty() {
			if el.EndTag.Start < el.StartTag.End {
				return fmt.Errorf("%s: end tag %v precedes start tag %v", name, el.EndTag, el.StartTag)
			}
			if !el.Span.Contains(el.EndTag) {
				return fmt.Errorf("%s: span %v does not cover end tag %v", name, el.Span, el.EndTag)
			}
		}
		for _, a := range el.Attrs {
			if !el.StartTag.Contains(a.Span) {
				return fmt.Errorf("%s: attribute %s span %v outside start tag", name, a.Name, a.Span)
			}
			if a.HasValue && !a.Span.Contains(a.ValueSpan) {
				return fmt.Errorf("%s: value of %s at %v outside attribute %v", name, a.Name, a.ValueSpan, a.Span)
			}
		}
		if el.Parent >= 0 {
			parent := &m.Elements[el.Parent]
			if !parent.Span.Contains(el.Span) {
				return fmt.Errorf("%s: span %v outside parent <%s> %v", name, el.Span, parent.Tag, parent.Span)
			}
		}
	}
	return nil
}
