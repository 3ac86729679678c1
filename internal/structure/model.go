// Package structure holds the markup side of the graph: one arena-backed
// fragment per markup file with ordered attributes, children and parent
// indices, plus the two slots that merge fills.
package structure

import (
	"errors"
	"fmt"
	"slices"

	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
)

// ErrNotForest is returned when parent and children links do not form a
// forest.
var ErrNotForest = errors.New("structure is not a forest")

// Model is one fragment: the elements of a single markup source in
// document (pre-order) order.
type Model struct {
	Path     string
	File     source.FileID
	Elements []Element
	Roots    []int
}

func New(path string, file source.FileID) *Model {
	return &Model{Path: path, File: file}
}

// Len returns the number of elements.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Elements)
}

// Empty reports whether the fragment has no elements.
func (m *Model) Empty() bool {
	return m.Len() == 0
}

// Append adds el as the last child of parent (or as a root when parent is
// -1) and returns its index. Id, kind and parent are assigned here.
func (m *Model) Append(parent int, el Element) int {
	idx := len(m.Elements)
	el.ID = node.MakeID(m.Path, node.PrefixElement, idx)
	el.Kind = node.KindElement
	el.Parent = parent
	el.Children, el.Behaviors, el.Styles = nil, nil, nil
	m.Elements = append(m.Elements, el)
	if parent < 0 {
		m.Roots = append(m.Roots, idx)
	} else {
		m.Elements[parent].Children = append(m.Elements[parent].Children, idx)
	}
	return idx
}

// At returns a pointer to element i.
func (m *Model) At(i int) *Element {
	return &m.Elements[i]
}

// Validate checks the forest invariant: every element is reachable from
// exactly one root, parent links agree with children lists, and there are
// no cycles.
func (m *Model) Validate() error {
	n := len(m.Elements)
	seen := make([]bool, n)
	var visit func(i, parent int) error
	visit = func(i, parent int) error {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %s: child index %d out of range", ErrNotForest, m.Path, i)
		}
		if seen[i] {
			return fmt.Errorf("%w: %s: element %d reached twice", ErrNotForest, m.Path, i)
		}
		seen[i] = true
		if m.Elements[i].Parent != parent {
			return fmt.Errorf("%w: %s: element %d has parent %d, listed under %d",
				ErrNotForest, m.Path, i, m.Elements[i].Parent, parent)
		}
		for _, c := range m.Elements[i].Children {
			if err := visit(c, i); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range m.Roots {
		if err := visit(r, -1); err != nil {
			return err
		}
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: %s: element %d is detached", ErrNotForest, m.Path, i)
		}
	}
	return nil
}

// Walk visits elements depth-first from each root in order. Returning false
// from fn skips the element's subtree.
func (m *Model) Walk(fn func(i int, el *Element) bool) {
	var visit func(i int)
	visit = func(i int) {
		if !fn(i, &m.Elements[i]) {
			return
		}
		for _, c := range m.Elements[i].Children {
			visit(c)
		}
	}
	for _, r := range m.Roots {
		visit(r)
	}
}

// Ancestors returns the parent chain of i, nearest first.
func (m *Model) Ancestors(i int) []int {
	var out []int
	for p := m.Elements[i].Parent; p >= 0; p = m.Elements[p].Parent {
		out = append(out, p)
		if len(out) > len(m.Elements) {
			break
		}
	}
	return out
}

// Descendants returns every element below i in pre-order.
func (m *Model) Descendants(i int) []int {
	var out []int
	var visit func(j int)
	visit = func(j int) {
		for _, c := range m.Elements[j].Children {
			out = append(out, c)
			visit(c)
		}
	}
	visit(i)
	return out
}

// FindByID returns the first element whose id attribute equals id.
func (m *Model) FindByID(id string) (int, bool) {
	for i := range m.Elements {
		if m.Elements[i].IDAttr() == id {
			return i, true
		}
	}
	return -1, false
}

// ClearAttachments empties the merge slots.
func (m *Model) ClearAttachments() {
	for i := range m.Elements {
		m.Elements[i].Behaviors = nil
		m.Elements[i].Styles = nil
	}
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	c := &Model{Path: m.Path, File: m.File, Roots: slices.Clone(m.Roots)}
	c.Elements = make([]Element, len(m.Elements))
	for i := range m.Elements {
		c.Elements[i] = m.Elements[i].clone()
	}
	return c
}

// WithFile returns a deep copy whose spans point at id.
func (m *Model) WithFile(id source.FileID) *Model {
	c := m.Clone()
	c.File = id
	for i := range c.Elements {
		c.Elements[i].rebind(id)
	}
	return c
}
