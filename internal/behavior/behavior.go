// Package behavior holds the script side of the graph: an ordered list of
// behavior nodes per script source, each pointing at its target element
// through an unresolved selector reference.
package behavior

import (
	"slices"
	"strings"

	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
)

// Action is the closed set of extracted interaction kinds.
type Action uint8

const (
	ActionEventBinding Action = iota
	ActionFocusTransfer
	ActionStateMutation
	ActionCrossBoundaryRender
	ActionPropagationBlock
)

func (a Action) String() string {
	switch a {
	case ActionEventBinding:
		return "event-binding"
	case ActionFocusTransfer:
		return "focus-transfer"
	case ActionStateMutation:
		return "state-attribute-mutation"
	case ActionCrossBoundaryRender:
		return "cross-boundary-render"
	case ActionPropagationBlock:
		return "propagation-block"
	}
	return "unknown"
}

// Timing tells whether the action runs when the script runs or later.
type Timing uint8

const (
	TimingImmediate Timing = iota
	TimingDeferred
)

func (t Timing) String() string {
	if t == TimingDeferred {
		return "deferred"
	}
	return "immediate"
}

// ElementRef names the target element. Resolved is set only by merge.
type ElementRef struct {
	Selector string
	Binding  string // variable the element was bound to, if any
	Resolved node.Handle
}

func (r ElementRef) IsResolved() bool {
	return r.Resolved.Valid()
}

// Node is one extracted behavior.
//
// Payload fields by action:
//   - event binding: Event
//   - state mutation: Attribute, Value
//   - propagation block: Event of the enclosing handler
//   - focus transfer and cross-boundary render use Ref only
type Node struct {
	node.Node
	Action    Action
	Ref       ElementRef
	Event     string
	Timing    Timing
	Attribute string
	Value     string
	Handler   source.Span // enclosing handler body, empty when top level
}

// click-equivalent and key-equivalent events
var (
	clickEvents = map[string]bool{
		"click": true, "dblclick": true, "mousedown": true, "mouseup": true,
		"pointerdown": true, "pointerup": true,
	}
	keyEvents = map[string]bool{
		"keydown": true, "keyup": true, "keypress": true,
	}
)

// NormalizeEvent lower-cases an event name and strips an "on" prefix.
func NormalizeEvent(ev string) string {
	ev = strings.ToLower(strings.TrimSpace(ev))
	if strings.HasPrefix(ev, "on") && len(ev) > 2 {
		if _, known := clickEvents[ev[2:]]; known {
			return ev[2:]
		}
		if _, known := keyEvents[ev[2:]]; known {
			return ev[2:]
		}
	}
	return ev
}

func IsClickEvent(ev string) bool { return clickEvents[NormalizeEvent(ev)] }

func IsKeyEvent(ev string) bool { return keyEvents[NormalizeEvent(ev)] }

// IsClick reports an event binding for a click-equivalent event.
func (n *Node) IsClick() bool {
	return n.Action == ActionEventBinding && IsClickEvent(n.Event)
}

// IsKey reports an event binding for a key-equivalent event.
func (n *Node) IsKey() bool {
	return n.Action == ActionEventBinding && IsKeyEvent(n.Event)
}

// Model is the ordered behavior list of one script source.
type Model struct {
	Path  string
	File  source.FileID
	Nodes []Node
}

func New(path string, file source.FileID) *Model {
	return &Model{Path: path, File: file}
}

func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Nodes)
}

// Append adds n, assigns its id and kind, clears any resolution and returns
// its index.
func (m *Model) Append(n Node) int {
	idx := len(m.Nodes)
	n.ID = node.MakeID(m.Path, node.PrefixBehavior, idx)
	n.Kind = node.KindBehavior
	n.Ref.Resolved = node.NoHandle
	m.Nodes = append(m.Nodes, n)
	return idx
}

func (m *Model) At(i int) *Node {
	return &m.Nodes[i]
}

// ClearResolution resets every Resolved handle.
func (m *Model) ClearResolution() {
	for i := range m.Nodes {
		m.Nodes[i].Ref.Resolved = node.NoHandle
	}
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	c := &Model{Path: m.Path, File: m.File, Nodes: slices.Clone(m.Nodes)}
	for i := range c.Nodes {
		c.Nodes[i].Node = c.Nodes[i].Node.CloneBase()
	}
	return c
}

// WithFile returns a deep copy whose spans point at id.
func (m *Model) WithFile(id source.FileID) *Model {
	c := m.Clone()
	c.File = id
	for i := range c.Nodes {
		n := &c.Nodes[i]
		n.Node = n.Node.Rebind(id)
		if n.Handler != (source.Span{}) {
			n.Handler = n.Handler.WithFile(id)
		}
	}
	return c
}
