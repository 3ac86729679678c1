// Package style holds the presentation side of the graph: flat lists of
// style rules with their specificity, pseudo-state qualifiers and the
// accessibility impact flags derived from their declarations.
package style

import (
	"slices"
	"strings"

	"a11ygraph/internal/node"
	"a11ygraph/internal/selector"
	"a11ygraph/internal/source"
)

type Specificity = selector.Specificity

// Decl is one declaration as written.
type Decl struct {
	Property  string // lower-cased
	Value     string
	Important bool
	Span      source.Span
}

// Pseudo is the set of recognized pseudo-state qualifiers.
type Pseudo uint16

const (
	PseudoFocus Pseudo = 1 << iota
	PseudoFocusVisible
	PseudoFocusWithin
	PseudoHover
	PseudoActive
	PseudoDisabled
	PseudoChecked
	PseudoTarget
)

var pseudoNames = []struct {
	bit  Pseudo
	name string
}{
	{PseudoFocus, "focus"},
	{PseudoFocusVisible, "focus-visible"},
	{PseudoFocusWithin, "focus-within"},
	{PseudoHover, "hover"},
	{PseudoActive, "active"},
	{PseudoDisabled, "disabled"},
	{PseudoChecked, "checked"},
	{PseudoTarget, "target"},
}

// ParsePseudo maps a pseudo-class name to its bit; unknown names give 0.
func ParsePseudo(name string) Pseudo {
	for _, p := range pseudoNames {
		if p.name == name {
			return p.bit
		}
	}
	return 0
}

func (p Pseudo) Has(bit Pseudo) bool {
	return p&bit != 0
}

func (p Pseudo) String() string {
	var names []string
	for _, pn := range pseudoNames {
		if p.Has(pn.bit) {
			names = append(names, ":"+pn.name)
		}
	}
	return strings.Join(names, "")
}

// Impact flags are computed from the property set.
type Impact uint8

const (
	ImpactFocusVisibility Impact = 1 << iota
	ImpactPaintVisibility
	ImpactContrast
	ImpactPointer
)

func (i Impact) Has(bit Impact) bool {
	return i&bit != 0
}

var impactByProperty = map[string]Impact{
	"outline":            ImpactFocusVisibility,
	"outline-style":      ImpactFocusVisibility,
	"outline-width":      ImpactFocusVisibility,
	"outline-color":      ImpactFocusVisibility | ImpactContrast,
	"outline-offset":     ImpactFocusVisibility,
	"box-shadow":         ImpactFocusVisibility,
	"display":            ImpactPaintVisibility,
	"visibility":         ImpactPaintVisibility,
	"content-visibility": ImpactPaintVisibility,
	"opacity":            ImpactPaintVisibility | ImpactContrast,
	"color":              ImpactContrast,
	"background":         ImpactContrast,
	"background-color":   ImpactContrast,
	"filter":             ImpactContrast,
	"mix-blend-mode":     ImpactContrast,
	"pointer-events":     ImpactPointer,
}

// ComputeImpact derives impact flags from declarations.
func ComputeImpact(props []Decl) Impact {
	var out Impact
	for _, d := range props {
		out |= impactByProperty[d.Property]
	}
	return out
}

// Rule is one style rule with a single compound selector.
type Rule struct {
	node.Node
	Selector      string // canonical base, pseudo qualifiers stripped
	RawSelector   string
	Parts         []string // matchable parts, nil when Complex
	Props         []Decl
	Specificity   Specificity
	Pseudo        Pseudo
	OtherPseudo   []string // pseudo classes outside the recognized set
	PseudoElement string
	Complex       bool // combinators or unmatchable attribute operators
	Inline        bool // from a style attribute
	Impact        Impact
	SelectorSpan  source.Span
	BlockSpan     source.Span
}

// NewRule parses raw into a rule. When the selector cannot be matched the
// rule is still returned with Complex set; the error explains why.
func NewRule(raw string, props []Decl) (Rule, error) {
	r := Rule{RawSelector: selector.Canonical(raw), Props: props, Impact: ComputeImpact(props)}
	c, err := selector.Parse(raw)
	if err != nil {
		r.Complex = true
		r.Selector = r.RawSelector
		return r, err
	}
	r.Selector = c.Base()
	r.Specificity = c.Specificity()
	r.PseudoElement = c.PseudoElement
	for _, pc := range c.PseudoClasses {
		if bit := ParsePseudo(pc); bit != 0 {
			r.Pseudo |= bit
		} else {
			r.OtherPseudo = append(r.OtherPseudo, pc)
		}
	}
	if !c.Matchable() {
		r.Complex = true
		return r, nil
	}
	r.Parts = c.Parts()
	return r, nil
}

// InlineRule builds the rule that stands for a style attribute.
func InlineRule(props []Decl) Rule {
	return Rule{
		RawSelector: "[style]",
		Selector:    "[style]",
		Props:       props,
		Specificity: selector.InlineSpecificity,
		Inline:      true,
		Impact:      ComputeImpact(props),
	}
}

// Conditional reports whether the rule only applies in some state or to a
// pseudo element.
func (r *Rule) Conditional() bool {
	return r.Pseudo != 0 || len(r.OtherPseudo) > 0 || r.PseudoElement != ""
}

// Prop returns the effective declaration for property: an !important one
// wins, otherwise the last one.
func (r *Rule) Prop(property string) (Decl, bool) {
	var (
		found Decl
		ok    bool
	)
	for _, d := range r.Props {
		if d.Property != property {
			continue
		}
		if ok && found.Important && !d.Important {
			continue
		}
		found, ok = d, true
	}
	return found, ok
}

// Hides reports whether the rule removes the element from paint.
func (r *Rule) Hides() bool {
	if d, ok := r.Prop("display"); ok && firstWord(d.Value) == "none" {
		return true
	}
	if d, ok := r.Prop("visibility"); ok {
		if v := firstWord(d.Value); v == "hidden" || v == "collapse" {
			return true
		}
	}
	if d, ok := r.Prop("content-visibility"); ok && firstWord(d.Value) == "hidden" {
		return true
	}
	if d, ok := r.Prop("opacity"); ok {
		if v := firstWord(d.Value); v == "0" || v == "0.0" || v == "0%" {
			return true
		}
	}
	return false
}

// RemovesOutline reports whether the rule suppresses the focus outline.
func (r *Rule) RemovesOutline() bool {
	if d, ok := r.Prop("outline"); ok {
		switch firstWord(d.Value) {
		case "none", "0", "0px":
			return true
		}
	}
	if d, ok := r.Prop("outline-style"); ok && firstWord(d.Value) == "none" {
		return true
	}
	if d, ok := r.Prop("outline-width"); ok {
		if v := firstWord(d.Value); v == "0" || v == "0px" {
			return true
		}
	}
	return false
}

// DisablesPointer reports pointer-events: none.
func (r *Rule) DisablesPointer() bool {
	d, ok := r.Prop("pointer-events")
	return ok && firstWord(d.Value) == "none"
}

func firstWord(v string) string {
	f := strings.Fields(strings.ToLower(v))
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Winning returns the rule whose declaration for property wins the cascade
// among rules (given in source order): important first, then specificity,
// then the later rule.
func Winning(rules []*Rule, property string) (*Rule, Decl, bool) {
	var (
		best     *Rule
		bestDecl Decl
	)
	for _, r := range rules {
		d, ok := r.Prop(property)
		if !ok {
			continue
		}
		if best != nil {
			if bestDecl.Important && !d.Important {
				continue
			}
			if bestDecl.Important == d.Important && r.Specificity.Less(best.Specificity) {
				continue
			}
		}
		best, bestDecl = r, d
	}
	return best, bestDecl, best != nil
}

// Model is the flat rule list of one style source.
type Model struct {
	Path  string
	File  source.FileID
	Rules []Rule
}

func New(path string, file source.FileID) *Model {
	return &Model{Path: path, File: file}
}

func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Rules)
}

// Append adds r, assigns its id and kind and returns its index.
func (m *Model) Append(r Rule) int {
	idx := len(m.Rules)
	r.ID = node.MakeID(m.Path, node.PrefixStyle, idx)
	r.Kind = node.KindStyleRule
	m.Rules = append(m.Rules, r)
	return idx
}

func (m *Model) At(i int) *Rule {
	return &m.Rules[i]
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	c := &Model{Path: m.Path, File: m.File, Rules: slices.Clone(m.Rules)}
	for i := range c.Rules {
		r := &c.Rules[i]
		r.Node = r.Node.CloneBase()
		r.Parts = slices.Clone(r.Parts)
		r.Props = slices.Clone(r.Props)
		r.OtherPseudo = slices.Clone(r.OtherPseudo)
	}
	return c
}

// WithFile returns a deep copy whose spans point at id.
func (m *Model) WithFile(id source.FileID) *Model {
	c := m.Clone()
	c.File = id
	for i := range c.Rules {
		r := &c.Rules[i]
		r.Node = r.Node.Rebind(id)
		r.SelectorSpan = r.SelectorSpan.WithFile(id)
		r.BlockSpan = r.BlockSpan.WithFile(id)
		for j := range r.Props {
			r.Props[j].Span = r.Props[j].Span.WithFile(id)
		}
	}
	return c
}
