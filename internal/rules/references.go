package rules

import (
	"fmt"
	"slices"
	"strings"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/fix"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/selector"
	"a11ygraph/internal/source"
)

type orphanedBehavior struct{}

func (orphanedBehavior) m() meta {
	return meta{analyzer.Info{
		Name:     OrphanedBehavior,
		Summary:  "script behavior whose selector matches no element",
		Severity: diag.SevWarning,
	}}
}

func (r orphanedBehavior) Name() string            { return r.m().Name() }
func (r orphanedBehavior) Describe() analyzer.Info { return r.m().Describe() }

func (r orphanedBehavior) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	for _, bn := range c.Doc.BehaviorNodes() {
		// пустой селектор: document/window, сопоставлять нечего
		if bn.Ref.Selector == "" || bn.Ref.IsResolved() {
			continue
		}
		sev, conf := m.severity(c), issue.Confidence{}
		if cmp, err := selector.Parse(bn.Ref.Selector); err != nil || !cmp.Matchable() {
			sev = sev.Downgrade(2)
			conf = issue.Confidence{
				Level:            document.LevelLow,
				Reason:           "selector cannot be matched statically",
				TreeCompleteness: c.Completeness(),
			}
		} else {
			sev, conf = c.CounterpartConfidence(sev, "no element matches the selector")
		}
		out = append(out, m.build(sev, conf, bn.ID,
			fmt.Sprintf("%s for %q matches no element", actionLabel(bn), bn.Ref.Selector),
			bn.Span))
	}
	return out, nil
}

func actionLabel(bn *behavior.Node) string {
	if bn.Action == behavior.ActionEventBinding && bn.Event != "" {
		return behavior.NormalizeEvent(bn.Event) + " handler"
	}
	return bn.Action.String()
}

type missingRelationshipTarget struct{}

func (missingRelationshipTarget) m() meta {
	return meta{analyzer.Info{
		Name:     MissingRelationshipTarget,
		Summary:  "id reference in a relationship attribute that no element carries",
		Severity: diag.SevError,
		Fixable:  true,
	}}
}

func (r missingRelationshipTarget) Name() string            { return r.m().Name() }
func (r missingRelationshipTarget) Describe() analyzer.Info { return r.m().Describe() }

func (r missingRelationshipTarget) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	for _, rel := range c.Doc.Relations() {
		missing := rel.Unresolved()
		if len(missing) == 0 {
			continue
		}
		el := c.Doc.Element(rel.Source)
		for _, tok := range missing {
			sev, conf := c.CounterpartConfidence(m.severity(c), "no element with id "+tok.Value)
			is := m.build(sev, conf, el.ID,
				fmt.Sprintf("%s on %s references missing id %q", rel.Attr, label(el), tok.Value),
				tok.Span, el.StartTag)

			var rest []string
			for _, t := range rel.Tokens {
				if t.Value != tok.Value {
					rest = append(rest, t.Value)
				}
			}
			opts := []fix.Option{
				fix.WithApplicability(issue.FixApplicabilityManualReview),
				fix.WithID(fixID(m.Name(), el.Node, rel.Attr, tok.Value)),
			}
			if len(rest) == 0 {
				is.Fix = fix.RemoveAttribute("remove "+rel.Attr, c.Files, el, rel.Attr, opts...)
			} else {
				is.Fix = fix.SetAttribute(fmt.Sprintf("drop %q from %s", tok.Value, rel.Attr), c.Files, el,
					rel.Attr, strings.Join(rest, " "), opts...)
			}
			out = append(out, is)
		}
	}
	return out, nil
}

type duplicateID struct{}

func (duplicateID) m() meta {
	return meta{analyzer.Info{
		Name:     DuplicateID,
		Summary:  "the same id on more than one element",
		Severity: diag.SevError,
	}}
}

func (r duplicateID) Name() string            { return r.m().Name() }
func (r duplicateID) Describe() analyzer.Info { return r.m().Describe() }

func (r duplicateID) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	ids := c.Doc.IDs()
	names := make([]string, 0, len(ids))
	for id, hs := range ids {
		if len(hs) > 1 {
			names = append(names, id)
		}
	}
	slices.Sort(names)

	var out []issue.Issue
	for _, id := range names {
		hs := ids[id]
		locs := make([]source.Span, 0, len(hs))
		for _, h := range hs {
			el := c.Doc.Element(h)
			a, _ := el.Attr("id")
			locs = append(locs, a.Span)
		}
		first := c.Doc.Element(hs[0])
		frags := make(map[int]bool)
		for _, h := range hs {
			frags[h.Fragment] = true
		}
		msg := fmt.Sprintf("id %q is used by %s", id, plural(len(hs), "element"))
		if len(frags) > 1 {
			msg += fmt.Sprintf(" across %s", plural(len(frags), "fragment"))
		}
		out = append(out, m.build(m.severity(c), c.Direct("ids collected from every fragment"), first.ID, msg, locs...))
	}
	return out, nil
}

type focusTransfer struct{}

func (focusTransfer) m() meta {
	return meta{analyzer.Info{
		Name:     FocusTransferUnfocusable,
		Summary:  "focus() called on an element that cannot take focus",
		Severity: diag.SevError,
		Fixable:  true,
	}}
}

func (r focusTransfer) Name() string            { return r.m().Name() }
func (r focusTransfer) Describe() analyzer.Info { return r.m().Describe() }

func (r focusTransfer) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	for _, bn := range c.Doc.BehaviorNodes() {
		if bn.Action != behavior.ActionFocusTransfer || !bn.Ref.IsResolved() {
			continue
		}
		ctx, ok := c.Doc.ElementContext(bn.Ref.Resolved)
		if !ok || ctx.Focusable {
			continue
		}
		el := ctx.Element
		is := m.build(m.severity(c), c.Direct("focus target resolved to "+el.ID), bn.ID,
			fmt.Sprintf("focus() moves focus to %s, which is not focusable", label(el)),
			bn.Span, el.StartTag)
		if !el.HasAttr("tabindex") && !el.Disabled() {
			is.Fix = fix.InsertAttribute(`add tabindex="-1"`, el, "tabindex", "-1",
				fix.WithApplicability(issue.FixApplicabilityAlwaysSafe),
				fix.WithID(fixID(m.Name(), el.Node)))
		}
		out = append(out, is)
	}
	return out, nil
}
