// Package document aggregates structure fragments, behavior models and style
// models into one cross-referenced graph.
//
// A Model is built once per analysis pass: fragments and models are added
// (each is deep-copied, so callers and caches keep their own values), then
// Merge attaches behaviors and style rules to the elements their selectors
// name and Resolve follows relationship attributes across all fragments.
// Both passes are idempotent and form the only write phase; everything after
// them, including ElementContext and the confidence primitives, only reads.
package document

import (
	"fmt"
	"iter"
	"strings"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/node"
	"a11ygraph/internal/structure"
	"a11ygraph/internal/style"
)

// ErrNotForest is returned when a fragment violates the forest invariant.
var ErrNotForest = structure.ErrNotForest

// Scope is the extent a document covers.
type Scope uint8

const (
	ScopeFile Scope = iota
	ScopeWorkspace
	ScopePage
)

func (s Scope) String() string {
	switch s {
	case ScopeFile:
		return "file"
	case ScopeWorkspace:
		return "workspace"
	case ScopePage:
		return "page"
	}
	return "unknown"
}

// ParseScope parses the names produced by String.
func ParseScope(v string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "file":
		return ScopeFile, nil
	case "workspace", "":
		return ScopeWorkspace, nil
	case "page":
		return ScopePage, nil
	}
	return ScopeWorkspace, fmt.Errorf("unknown scope %q", v)
}

// Failure records a source whose contribution is empty because it could not
// be read or parsed.
type Failure struct {
	Path   string
	Code   diag.Code
	Reason string
}

// Model is the aggregated document graph.
type Model struct {
	Scope       Scope
	Fragments   []*structure.Model
	Behaviors   []*behavior.Model
	Styles      []*style.Model
	Diagnostics []diag.Diagnostic
	Failures    []Failure

	relations []Relation
	relByElem map[node.Handle][]int
	idIndex   map[string][]node.Handle
}

func New(scope Scope) *Model {
	return &Model{Scope: scope}
}

// AddStructure validates and stores a copy of m as a new fragment.
func (d *Model) AddStructure(m *structure.Model) error {
	if m == nil {
		return nil
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("add fragment %s: %w", m.Path, err)
	}
	c := m.Clone()
	c.ClearAttachments()
	d.Fragments = append(d.Fragments, c)
	return nil
}

// AddBehavior stores a copy of m with resolution cleared.
func (d *Model) AddBehavior(m *behavior.Model) {
	if m == nil {
		return
	}
	c := m.Clone()
	c.ClearResolution()
	d.Behaviors = append(d.Behaviors, c)
}

// AddStyle stores a copy of m.
func (d *Model) AddStyle(m *style.Model) {
	if m == nil {
		return
	}
	d.Styles = append(d.Styles, m.Clone())
}

// AddDiagnostics records parse diagnostics for the reporting layer.
func (d *Model) AddDiagnostics(ds ...diag.Diagnostic) {
	d.Diagnostics = append(d.Diagnostics, ds...)
}

// RecordFailure notes a source that contributed an empty model.
func (d *Model) RecordFailure(f Failure) {
	d.Failures = append(d.Failures, f)
}

// Link runs Merge followed by Resolve.
func (d *Model) Link() error {
	if err := d.Merge(); err != nil {
		return err
	}
	d.Resolve()
	return nil
}

// Element returns the element behind h, or nil.
func (d *Model) Element(h node.Handle) *structure.Element {
	if h.Fragment < 0 || h.Fragment >= len(d.Fragments) {
		return nil
	}
	f := d.Fragments[h.Fragment]
	if h.Elem < 0 || h.Elem >= len(f.Elements) {
		return nil
	}
	return &f.Elements[h.Elem]
}

// Fragment returns the fragment an element handle belongs to.
func (d *Model) Fragment(h node.Handle) *structure.Model {
	if h.Fragment < 0 || h.Fragment >= len(d.Fragments) {
		return nil
	}
	return d.Fragments[h.Fragment]
}

// Behavior returns the behavior node behind r, or nil.
func (d *Model) Behavior(r node.Ref) *behavior.Node {
	if r.Model < 0 || r.Model >= len(d.Behaviors) {
		return nil
	}
	m := d.Behaviors[r.Model]
	if r.Index < 0 || r.Index >= len(m.Nodes) {
		return nil
	}
	return &m.Nodes[r.Index]
}

// Rule returns the style rule behind r, or nil.
func (d *Model) Rule(r node.Ref) *style.Rule {
	if r.Model < 0 || r.Model >= len(d.Styles) {
		return nil
	}
	m := d.Styles[r.Model]
	if r.Index < 0 || r.Index >= len(m.Rules) {
		return nil
	}
	return &m.Rules[r.Index]
}

// Elements yields every element in document order: fragments in insertion
// order, elements in pre-order.
func (d *Model) Elements() iter.Seq2[node.Handle, *structure.Element] {
	return func(yield func(node.Handle, *structure.Element) bool) {
		for fi, f := range d.Fragments {
			for ei := range f.Elements {
				if !yield(node.Handle{Fragment: fi, Elem: ei}, &f.Elements[ei]) {
					return
				}
			}
		}
	}
}

// BehaviorNodes yields every behavior node in model order.
func (d *Model) BehaviorNodes() iter.Seq2[node.Ref, *behavior.Node] {
	return func(yield func(node.Ref, *behavior.Node) bool) {
		for mi, m := range d.Behaviors {
			for ni := range m.Nodes {
				if !yield(node.Ref{Model: mi, Index: ni}, &m.Nodes[ni]) {
					return
				}
			}
		}
	}
}

// StyleRules yields every style rule in model order.
func (d *Model) StyleRules() iter.Seq2[node.Ref, *style.Rule] {
	return func(yield func(node.Ref, *style.Rule) bool) {
		for mi, m := range d.Styles {
			for ri := range m.Rules {
				if !yield(node.Ref{Model: mi, Index: ri}, &m.Rules[ri]) {
					return
				}
			}
		}
	}
}

// ElementCount returns the total number of elements.
func (d *Model) ElementCount() int {
	n := 0
	for _, f := range d.Fragments {
		n += f.Len()
	}
	return n
}
