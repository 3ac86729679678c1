package document

import (
	"strings"

	"a11ygraph/internal/node"
	"a11ygraph/internal/selector"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
)

// relationAttrs are the id-reference attributes followed by Resolve. The
// value restricts the attribute to one tag; "" allows any element.
var relationAttrs = []struct {
	name string
	tag  string
}{
	{"aria-labelledby", ""},
	{"aria-describedby", ""},
	{"aria-controls", ""},
	{"aria-owns", ""},
	{"aria-activedescendant", ""},
	{"aria-errormessage", ""},
	{"aria-details", ""},
	{"aria-flowto", ""},
	{"for", "label"},
	{"list", "input"},
}

// IsRelationAttr reports whether name on tag is followed by Resolve.
func IsRelationAttr(tag, name string) bool {
	for _, ra := range relationAttrs {
		if ra.name == name && (ra.tag == "" || ra.tag == tag) {
			return true
		}
	}
	return false
}

// Token is one id reference inside a relationship attribute.
type Token struct {
	Value        string
	Span         source.Span
	Resolved     bool
	Target       node.Handle
	SameFragment bool
}

// Relation is one relationship attribute on one element.
type Relation struct {
	Source node.Handle
	Attr   string
	Tokens []Token
}

// Unresolved returns the tokens that matched no element.
func (r *Relation) Unresolved() []Token {
	var out []Token
	for _, t := range r.Tokens {
		if !t.Resolved {
			out = append(out, t)
		}
	}
	return out
}

// Resolve follows relationship attributes: each id token is looked up across
// all fragments and its outcome recorded. Targets in the owning fragment are
// preferred. Running Resolve again recomputes everything from scratch.
func (d *Model) Resolve() {
	d.idIndex = make(map[string][]node.Handle)
	for h, el := range d.Elements() {
		if id := selector.Canonical(el.IDAttr()); id != "" {
			d.idIndex[id] = append(d.idIndex[id], h)
		}
	}

	d.relations = nil
	d.relByElem = make(map[node.Handle][]int)
	for h, el := range d.Elements() {
		for _, a := range el.Attrs {
			if !IsRelationAttr(el.Tag, a.Name) {
				continue
			}
			rel := Relation{Source: h, Attr: a.Name, Tokens: d.resolveTokens(h, a)}
			d.relByElem[h] = append(d.relByElem[h], len(d.relations))
			d.relations = append(d.relations, rel)
		}
	}
}

func (d *Model) resolveTokens(owner node.Handle, a structure.Attr) []Token {
	var out []Token
	for _, tok := range splitTokens(a.Value) {
		t := Token{Value: tok.text, Span: tokenSpan(a, tok), Target: node.NoHandle}
		targets := d.idIndex[selector.Canonical(tok.text)]
		for _, h := range targets {
			if h.Fragment == owner.Fragment {
				t.Target, t.SameFragment = h, true
				break
			}
		}
		if !t.SameFragment && len(targets) > 0 {
			t.Target = targets[0]
		}
		t.Resolved = t.Target.Valid()
		out = append(out, t)
	}
	return out
}

type rawToken struct {
	text  string
	start int
	end   int
}

func splitTokens(v string) []rawToken {
	var out []rawToken
	start := -1
	for i := 0; i <= len(v); i++ {
		space := i == len(v) || strings.IndexByte(" \t\n\r\f", v[i]) >= 0
		switch {
		case space && start >= 0:
			out = append(out, rawToken{text: v[start:i], start: start, end: i})
			start = -1
		case !space && start < 0:
			start = i
		}
	}
	return out
}

// tokenSpan maps a token to source bytes. When the decoded value differs in
// length from the source bytes (character references), the whole value span
// is used.
func tokenSpan(a structure.Attr, tok rawToken) source.Span {
	vs := a.ValueSpan
	if int(vs.Len()) != len(a.Value) {
		return vs
	}
	return source.NewSpan(vs.File, int(vs.Start)+tok.start, int(vs.Start)+tok.end)
}

// Relations returns every relationship found by the last Resolve, in
// document order.
func (d *Model) Relations() []Relation {
	return d.relations
}

// RelationsOf returns the relationships declared on h.
func (d *Model) RelationsOf(h node.Handle) []Relation {
	idxs := d.relByElem[h]
	out := make([]Relation, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, d.relations[i])
	}
	return out
}

// ElementsByID returns every element carrying id, in document order. It
// reads the index built by Resolve.
func (d *Model) ElementsByID(id string) []node.Handle {
	return d.idIndex[selector.Canonical(id)]
}

// IDs returns the ids present in the document with their elements.
func (d *Model) IDs() map[string][]node.Handle {
	return d.idIndex
}
