package node

import "fmt"

// Handle addresses an element inside the document arena: the fragment index
// and the element index inside that fragment. Handles are non-owning and stay
// valid as long as the document is not rebuilt.
type Handle struct {
	Fragment int
	Elem     int
}

// NoHandle marks an absent handle.
var NoHandle = Handle{Fragment: -1, Elem: -1}

func (h Handle) Valid() bool {
	return h.Fragment >= 0 && h.Elem >= 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "<none>"
	}
	return fmt.Sprintf("f%d/e%d", h.Fragment, h.Elem)
}

// Less orders handles in document order: fragment first, then element.
func (h Handle) Less(o Handle) bool {
	if h.Fragment != o.Fragment {
		return h.Fragment < o.Fragment
	}
	return h.Elem < o.Elem
}

// Ref addresses a behavior or style node: the model index inside the
// document and the node index inside that model.
type Ref struct {
	Model int
	Index int
}

func (r Ref) String() string {
	return fmt.Sprintf("m%d/n%d", r.Model, r.Index)
}

// Less orders refs by model, then by node.
func (r Ref) Less(o Ref) bool {
	if r.Model != o.Model {
		return r.Model < o.Model
	}
	return r.Index < o.Index
}
