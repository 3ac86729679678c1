package rules

import (
	"fmt"
	"strings"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

// stateAttrs are the attributes expected to change while the page is used.
var stateAttrs = map[string]bool{
	"aria-expanded": true,
	"aria-pressed":  true,
	"aria-checked":  true,
	"aria-selected": true,
	"aria-busy":     true,
	"aria-valuenow": true,
	"aria-current":  true,
	"aria-hidden":   true,
}

// stateAttr normalizes attribute names and the ariaX property form.
func stateAttr(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "aria") && !strings.HasPrefix(name, "aria-") {
		name = "aria-" + name[len("aria"):]
	}
	return name
}

// targetKey identifies the element a behavior acts on: the resolved handle
// when merge found one, otherwise the selector or variable as written.
func targetKey(bn *behavior.Node) string {
	switch {
	case bn.Ref.IsResolved():
		return bn.Ref.Resolved.String()
	case bn.Ref.Selector != "":
		return "sel:" + bn.Ref.Selector
	case bn.Ref.Binding != "":
		return "var:" + bn.Ref.Binding
	}
	return "anon:" + bn.ID
}

type stateNeverUpdated struct{}

func (stateNeverUpdated) m() meta {
	return meta{analyzer.Info{
		Name:      StateNeverUpdated,
		Summary:   "state attribute written once and never updated",
		Severity:  diag.SevWarning,
		FileScope: true,
	}}
}

func (r stateNeverUpdated) Name() string            { return r.m().Name() }
func (r stateNeverUpdated) Describe() analyzer.Info { return r.m().Describe() }

func (r stateNeverUpdated) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	m := r.m()
	type entry struct {
		first *behavior.Node
		attr  string
		count int
	}
	var order []string
	seen := make(map[string]*entry)
	for _, bm := range c.BehaviorModels() {
		for i := range bm.Nodes {
			bn := &bm.Nodes[i]
			if bn.Action != behavior.ActionStateMutation {
				continue
			}
			attr := stateAttr(bn.Attribute)
			if !stateAttrs[attr] {
				continue
			}
			key := targetKey(bn) + "|" + attr
			e, ok := seen[key]
			if !ok {
				e = &entry{first: bn, attr: attr}
				seen[key] = e
				order = append(order, key)
			}
			e.count++
		}
	}

	var out []issue.Issue
	for _, key := range order {
		e := seen[key]
		if e.count != 1 {
			continue
		}
		bn := e.first
		sev, conf := c.CounterpartConfidence(m.severity(c), "only one mutation of "+e.attr+" found")
		locs := []source.Span{bn.Span}
		if c.Doc != nil && bn.Ref.IsResolved() {
			locs = append(locs, c.Doc.Element(bn.Ref.Resolved).StartTag)
		}
		target := bn.Ref.Selector
		if target == "" {
			target = bn.Ref.Binding
		}
		out = append(out, m.build(sev, conf, bn.ID,
			fmt.Sprintf("%s on %s is set once and never updated", e.attr, target),
			locs...))
	}
	return out, nil
}

type portalFocus struct{}

func (portalFocus) m() meta {
	return meta{analyzer.Info{
		Name:      PortalFocusUnmanaged,
		Summary:   "content rendered outside its owner with no focus management",
		Severity:  diag.SevWarning,
		FileScope: true,
	}}
}

func (r portalFocus) Name() string            { return r.m().Name() }
func (r portalFocus) Describe() analyzer.Info { return r.m().Describe() }

func (r portalFocus) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	m := r.m()
	var out []issue.Issue
	for _, bm := range c.BehaviorModels() {
		manages := false
		for i := range bm.Nodes {
			if bm.Nodes[i].Action == behavior.ActionFocusTransfer {
				manages = true
				break
			}
		}
		if manages {
			continue
		}
		for i := range bm.Nodes {
			bn := &bm.Nodes[i]
			if bn.Action != behavior.ActionCrossBoundaryRender {
				continue
			}
			out = append(out, m.build(m.severity(c), c.Direct("no focus transfer in "+bm.Path), bn.ID,
				"content is rendered outside its owner but focus is never moved into it",
				bn.Span))
		}
	}
	return out, nil
}
