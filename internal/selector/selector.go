package selector

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrCombinator is returned for selectors joined by descendant, child or
	// sibling combinators.
	ErrCombinator = errors.New("selector has combinators")
	// ErrEmpty is returned for blank selector text.
	ErrEmpty = errors.New("empty selector")
)

// AttrSel is an attribute selector. Only presence and exact "=" are kept
// as matchable; other operators make the compound unmatchable.
type AttrSel struct {
	Name     string
	Value    string
	HasValue bool
	Op       string
}

// Compound is one parsed compound selector.
type Compound struct {
	Raw           string
	Tag           string // lower-cased, "" when absent
	Universal     bool
	ID            string
	Classes       []string
	Attrs         []AttrSel
	PseudoClasses []string // names without the leading colon, arguments kept
	PseudoElement string
	weight        Specificity
}

// Specificity returns the computed specificity.
func (c *Compound) Specificity() Specificity {
	return c.weight
}

// Matchable reports whether the compound can be matched by candidate-set
// membership. Candidates carry only valued role and aria-* attributes, so
// presence tests, other attribute names and operators other than "=" cannot.
func (c *Compound) Matchable() bool {
	for _, a := range c.Attrs {
		if !a.candidate() {
			return false
		}
	}
	return true
}

func (a AttrSel) candidate() bool {
	if !a.HasValue || (a.Op != "" && a.Op != "=") {
		return false
	}
	return a.Name == "role" || strings.HasPrefix(a.Name, "aria-")
}

// Parts returns the canonical simple parts in specificity order, pseudo
// qualifiers excluded. The universal selector contributes no part.
func (c *Compound) Parts() []string {
	parts := make([]string, 0, 2+len(c.Classes)+len(c.Attrs))
	if c.ID != "" {
		parts = append(parts, "#"+c.ID)
	}
	for _, cls := range c.Classes {
		parts = append(parts, "."+cls)
	}
	if c.Tag != "" {
		parts = append(parts, c.Tag)
	}
	for _, a := range c.Attrs {
		parts = append(parts, attrPart(a.Name, a.Value, a.HasValue))
	}
	return parts
}

// Base returns the canonical text of the compound with pseudo qualifiers
// stripped. Classes and attributes are sorted so that ".a.b" and ".b.a"
// compare equal.
func (c *Compound) Base() string {
	var b strings.Builder
	switch {
	case c.Tag != "":
		b.WriteString(c.Tag)
	case c.Universal && c.ID == "" && len(c.Classes) == 0 && len(c.Attrs) == 0:
		b.WriteString("*")
	}
	if c.ID != "" {
		b.WriteString("#" + c.ID)
	}
	classes := slices.Clone(c.Classes)
	slices.Sort(classes)
	for _, cls := range classes {
		b.WriteString("." + cls)
	}
	attrs := make([]string, 0, len(c.Attrs))
	for _, a := range c.Attrs {
		attrs = append(attrs, attrPart(a.Name, a.Value, a.HasValue))
	}
	slices.Sort(attrs)
	for _, a := range attrs {
		b.WriteString(a)
	}
	return b.String()
}

// HasPseudo reports whether name (without colon) is among the pseudo classes.
func (c *Compound) HasPseudo(name string) bool {
	for _, p := range c.PseudoClasses {
		if pseudoName(p) == name {
			return true
		}
	}
	return false
}

// Canonical normalizes selector and attribute text to NFC and trims it.
func Canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func attrPart(name, value string, hasValue bool) string {
	if !hasValue {
		return "[" + name + "]"
	}
	return fmt.Sprintf("[%s=%q]", name, value)
}

// Candidates synthesizes the candidate set of an element in specificity
// order: #id, one entry per class token, the tag name, [role="…"], then one
// entry per aria-* attribute. attrs yields attribute name/value pairs in
// source order.
func Candidates(tag string, attrs iter.Seq2[string, string]) []string {
	var (
		id      string
		classes []string
		role    string
		hasRole bool
		aria    []string
	)
	for name, value := range attrs {
		switch {
		case name == "id":
			if id == "" {
				id = Canonical(value)
			}
		case name == "class":
			for _, cls := range strings.Fields(value) {
				classes = append(classes, "."+Canonical(cls))
			}
		case name == "role":
			if !hasRole {
				role, hasRole = Canonical(value), true
			}
		case strings.HasPrefix(name, "aria-"):
			aria = append(aria, attrPart(name, Canonical(value), true))
		}
	}

	out := make([]string, 0, 3+len(classes)+len(aria))
	if id != "" {
		out = append(out, "#"+id)
	}
	out = append(out, classes...)
	if tag != "" {
		out = append(out, strings.ToLower(tag))
	}
	if hasRole {
		out = append(out, attrPart("role", role, true))
	}
	return append(out, aria...)
}

// Set is a candidate set for membership tests.
type Set map[string]struct{}

// NewSet builds a set from candidate parts.
func NewSet(parts []string) Set {
	s := make(Set, len(parts))
	for _, p := range parts {
		s[p] = struct{}{}
	}
	return s
}

// MatchParts reports whether every part is a member of set. Empty parts
// (a bare universal selector) match everything.
func (s Set) MatchParts(parts []string) bool {
	for _, p := range parts {
		if _, ok := s[p]; !ok {
			return false
		}
	}
	return true
}
