// Package node holds the base record shared by every graph node: a stable
// id, a kind discriminator, a source span and an open metadata bag.
package node

import (
	"fmt"
	"maps"
	"slices"

	"a11ygraph/internal/source"
)

// Kind discriminates node variants across the three models.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindElement
	KindBehavior
	KindStyleRule
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindBehavior:
		return "behavior"
	case KindStyleRule:
		return "style-rule"
	default:
		return "invalid"
	}
}

// ID prefixes keep ids from different models apart when they share a path.
const (
	PrefixElement  = "e"
	PrefixBehavior = "b"
	PrefixStyle    = "s"
)

// MakeID builds a process-unique id of the form "<path>:<prefix><index>".
// Ids derive from the path and position only, so re-parsing unchanged text
// yields the same ids.
func MakeID(path, prefix string, index int) string {
	return fmt.Sprintf("%s:%s%d", path, prefix, index)
}

// Meta is an open key/value bag for analyzer and front end annotations.
type Meta map[string]string

// Clone returns an independent copy; nil stays nil.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Keys returns the keys in sorted order.
func (m Meta) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Node is the base record embedded by elements, behaviors and style rules.
type Node struct {
	ID   string
	Kind Kind
	Span source.Span
	Meta Meta
}

// Get returns a metadata value.
func (n *Node) Get(key string) (string, bool) {
	if n.Meta == nil {
		return "", false
	}
	v, ok := n.Meta[key]
	return v, ok
}

// Set stores a metadata value, allocating the bag on first use.
func (n *Node) Set(key, value string) {
	if n.Meta == nil {
		n.Meta = make(Meta)
	}
	n.Meta[key] = value
}

// CloneBase copies the node with an independent metadata bag.
func (n Node) CloneBase() Node {
	n.Meta = n.Meta.Clone()
	return n
}

// Rebind returns a copy whose span points at another file id.
func (n Node) Rebind(id source.FileID) Node {
	n.Span = n.Span.WithFile(id)
	return n
}
