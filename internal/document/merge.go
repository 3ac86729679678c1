package document

import (
	"a11ygraph/internal/node"
	"a11ygraph/internal/selector"
)

// candidateIndex maps each candidate part to the elements carrying it, in
// document order, and keeps every element's full set for membership tests.
type candidateIndex struct {
	byPart map[string][]node.Handle
	sets   map[node.Handle]selector.Set
	all    []node.Handle
}

func (d *Model) buildCandidateIndex() *candidateIndex {
	idx := &candidateIndex{
		byPart: make(map[string][]node.Handle),
		sets:   make(map[node.Handle]selector.Set),
	}
	for h, el := range d.Elements() {
		parts := selector.Candidates(el.Tag, el.AttrSeq())
		idx.sets[h] = selector.NewSet(parts)
		idx.all = append(idx.all, h)
		for _, p := range parts {
			list := idx.byPart[p]
			// duplicates within one element (class="a a") would repeat it
			if n := len(list); n > 0 && list[n-1] == h {
				continue
			}
			idx.byPart[p] = append(list, h)
		}
	}
	return idx
}

// match returns the elements whose candidate sets contain every part, in
// document order.
func (idx *candidateIndex) match(parts []string) []node.Handle {
	if len(parts) == 0 {
		return idx.all
	}
	seed := idx.byPart[parts[0]]
	for _, p := range parts[1:] {
		if l := idx.byPart[p]; len(l) < len(seed) {
			seed = l
		}
	}
	var out []node.Handle
	for _, h := range seed {
		if idx.sets[h].MatchParts(parts) {
			out = append(out, h)
		}
	}
	return out
}

// Merge attaches every behavior node and style rule whose selector matches an
// element to that element, and sets Resolved on matched behavior nodes to
// the first match in document order. Slots are cleared first, so running
// Merge again on an unchanged document yields the same attachments.
// Selectors with combinators never match.
func (d *Model) Merge() error {
	for _, f := range d.Fragments {
		if err := f.Validate(); err != nil {
			return err
		}
		f.ClearAttachments()
	}
	for _, b := range d.Behaviors {
		b.ClearResolution()
	}

	idx := d.buildCandidateIndex()

	for ref, bn := range d.BehaviorNodes() {
		if bn.Ref.Selector == "" {
			continue
		}
		c, err := selector.Parse(bn.Ref.Selector)
		if err != nil || !c.Matchable() {
			continue
		}
		matches := idx.match(c.Parts())
		if len(matches) == 0 {
			continue
		}
		bn.Ref.Resolved = matches[0]
		for _, h := range matches {
			el := d.Element(h)
			el.Behaviors = append(el.Behaviors, ref)
		}
	}

	for ref, r := range d.StyleRules() {
		if r.Complex || r.Inline {
			continue
		}
		for _, h := range idx.match(r.Parts) {
			el := d.Element(h)
			el.Styles = append(el.Styles, ref)
		}
	}
	return nil
}
