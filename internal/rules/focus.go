package rules

import (
	"fmt"
	"strconv"
	"strings"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/fix"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
	"a11ygraph/internal/style"
)

type focusOrder struct{}

func (focusOrder) m() meta {
	return meta{analyzer.Info{
		Name:     FocusOrderConflict,
		Summary:  "positive tabindex overriding the document focus order",
		Severity: diag.SevWarning,
		Fixable:  true,
	}}
}

func (r focusOrder) Name() string            { return r.m().Name() }
func (r focusOrder) Describe() analyzer.Info { return r.m().Describe() }

func (r focusOrder) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()

	type positive struct {
		h    node.Handle
		span source.Span
	}
	byValue := make(map[int][]positive)
	var order []node.Handle
	values := make(map[node.Handle]int)
	for h, el := range c.Doc.Elements() {
		ti, ok := el.TabIndex()
		if !ok || ti <= 0 {
			continue
		}
		a, _ := el.Attr("tabindex")
		byValue[ti] = append(byValue[ti], positive{h: h, span: a.Span})
		values[h] = ti
		order = append(order, h)
	}

	var out []issue.Issue
	for _, h := range order {
		el := c.Doc.Element(h)
		ti := values[h]
		a, _ := el.Attr("tabindex")
		locs := []source.Span{a.Span}
		msg := fmt.Sprintf("%s sets tabindex=%d, which overrides the natural focus order", label(el), ti)
		if peers := byValue[ti]; len(peers) > 1 {
			for _, p := range peers {
				if p.h != h {
					locs = append(locs, p.span)
				}
			}
			msg += fmt.Sprintf("; %s share this value", plural(len(peers), "element"))
		}
		is := m.build(m.severity(c), c.Direct("tabindex value "+strconv.Itoa(ti)), el.ID, msg, locs...)
		is.Fix = fix.SetAttribute(`set tabindex="0"`, c.Files, el, "tabindex", "0",
			fix.WithApplicability(issue.FixApplicabilitySafeWithHeuristics),
			fix.WithID(fixID(m.Name(), el.Node)))
		out = append(out, is)
	}
	return out, nil
}

type visibilityFocus struct{}

func (visibilityFocus) m() meta {
	return meta{analyzer.Info{
		Name:     VisibilityFocusConflict,
		Summary:  "element in the tab order that is hidden from sight or from assistive technology",
		Severity: diag.SevError,
		Fixable:  true,
	}}
}

func (r visibilityFocus) Name() string            { return r.m().Name() }
func (r visibilityFocus) Describe() analyzer.Info { return r.m().Describe() }

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// hiddenBy explains why an element is hidden. own is set when the reason is
// an attribute on the element itself that a tabindex fix can compensate.
type hiddenBy struct {
	reason string
	span   source.Span
	own    bool
}

func (r visibilityFocus) hidden(d *document.Model, ctx document.ElementContext) (hiddenBy, bool) {
	el := ctx.Element
	if a, ok := el.Attr("hidden"); ok {
		return hiddenBy{reason: "hidden attribute", span: a.Span, own: true}, true
	}
	if a, ok := el.Attr("aria-hidden"); ok && isTrue(a.Value) {
		return hiddenBy{reason: `aria-hidden="true"`, span: a.Span, own: true}, true
	}
	if a, ok := el.Attr("inert"); ok {
		return hiddenBy{reason: "inert attribute", span: a.Span}, true
	}
	frag := d.Fragment(ctx.Handle)
	for _, p := range frag.Ancestors(ctx.Handle.Elem) {
		anc := &frag.Elements[p]
		if a, ok := anc.Attr("inert"); ok {
			return hiddenBy{reason: "inert ancestor " + label(anc), span: a.Span}, true
		}
		if a, ok := anc.Attr("aria-hidden"); ok && isTrue(a.Value) {
			return hiddenBy{reason: "aria-hidden ancestor " + label(anc), span: a.Span}, true
		}
	}
	if rule, decl, ok := winningHide(steady(ctx)); ok {
		src := "style rule " + rule.RawSelector
		if rule.Inline {
			src = "inline style"
		}
		return hiddenBy{reason: fmt.Sprintf("%s sets %s: %s", src, decl.Property, decl.Value), span: decl.Span}, true
	}
	return hiddenBy{}, false
}

func (r visibilityFocus) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	elementContexts(c.Doc, func(ctx document.ElementContext) {
		if !ctx.TabReachable {
			return
		}
		why, ok := r.hidden(c.Doc, ctx)
		if !ok {
			return
		}
		el := ctx.Element
		is := m.build(m.severity(c), c.Direct(why.reason), el.ID,
			fmt.Sprintf("%s is in the tab order but hidden (%s)", label(el), why.reason),
			el.StartTag, why.span)
		if why.own {
			is.Fix = fix.SetAttribute(`set tabindex="-1"`, c.Files, el, "tabindex", "-1",
				fix.WithApplicability(issue.FixApplicabilitySafeWithHeuristics),
				fix.WithID(fixID(m.Name(), el.Node)))
		}
		out = append(out, is)
	})
	return out, nil
}

// styleFile returns the file of the style model behind ref.
func styleFile(d *document.Model, ref node.Ref) source.FileID {
	return d.Styles[ref.Model].File
}

type focusIndicator struct{}

func (focusIndicator) m() meta {
	return meta{analyzer.Info{
		Name:     FocusIndicatorRemoved,
		Summary:  ":focus rule removing the outline without a :focus-visible alternative",
		Severity: diag.SevError,
		Fixable:  true,
	}}
}

func (r focusIndicator) Name() string            { return r.m().Name() }
func (r focusIndicator) Describe() analyzer.Info { return r.m().Describe() }

// replacesOutline reports a declaration that draws its own focus ring.
func replacesOutline(rule *style.Rule) bool {
	d, ok := rule.Prop("box-shadow")
	return ok && !strings.EqualFold(strings.TrimSpace(d.Value), "none")
}

func (r focusIndicator) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()

	alternatives := make(map[string]bool)
	for _, rule := range c.Doc.StyleRules() {
		if hasPseudo(rule, style.PseudoFocusVisible, "focus-visible") && !rule.RemovesOutline() {
			alternatives[swapPseudo(rule.RawSelector, "focus-visible")] = true
		}
	}

	appended := make(map[string]bool)
	var out []issue.Issue
	for ref, rule := range c.Doc.StyleRules() {
		if !hasPseudo(rule, style.PseudoFocus, "focus") || hasPseudo(rule, style.PseudoFocusVisible, "focus-visible") {
			continue
		}
		if !rule.RemovesOutline() || replacesOutline(rule) {
			continue
		}
		if strings.Contains(rule.RawSelector, ":not(:focus-visible)") {
			continue
		}
		key := swapPseudo(rule.RawSelector, "focus")
		if alternatives[key] {
			continue
		}
		d, _ := rule.Prop("outline")
		if d.Span == (source.Span{}) {
			d, _ = rule.Prop("outline-style")
		}
		sev, conf := c.CounterpartConfidence(m.severity(c), "no :focus-visible rule for "+rule.Selector)
		is := m.build(sev, conf, rule.ID,
			fmt.Sprintf("%s removes the focus outline and no :focus-visible rule restores it", rule.RawSelector),
			rule.SelectorSpan, d.Span)

		file := styleFile(c.Doc, ref)
		if c.Files != nil && !appended[fmt.Sprint(file, key)] {
			twin := replacePseudo(rule.RawSelector, "focus", "focus-visible")
			text := twin + " {\n  outline: 2px solid currentColor;\n  outline-offset: 2px;\n}\n"
			if f, err := fix.AppendToFile("add a :focus-visible outline", c.Files, file, text,
				fix.WithApplicability(issue.FixApplicabilityAlwaysSafe),
				fix.WithID(fixID(m.Name(), rule.Node))); err == nil {
				is.Fix = f
				appended[fmt.Sprint(file, key)] = true
			}
		}
		out = append(out, is)
	}
	return out, nil
}

type hoverOnly struct{}

func (hoverOnly) m() meta {
	return meta{analyzer.Info{
		Name:     HoverOnlyReveal,
		Summary:  ":hover rule changing visibility without a focus counterpart",
		Severity: diag.SevWarning,
		Fixable:  true,
	}}
}

func (r hoverOnly) Name() string            { return r.m().Name() }
func (r hoverOnly) Describe() analyzer.Info { return r.m().Describe() }

var focusPseudos = []string{"focus", "focus-within", "focus-visible"}

func focusState(rule *style.Rule) bool {
	return hasPseudo(rule, style.PseudoFocus, "focus") ||
		hasPseudo(rule, style.PseudoFocusWithin, "focus-within") ||
		hasPseudo(rule, style.PseudoFocusVisible, "focus-visible")
}

func (r hoverOnly) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()

	counterparts := make(map[string]bool)
	for _, rule := range c.Doc.StyleRules() {
		if focusState(rule) {
			counterparts[swapPseudo(rule.RawSelector, focusPseudos...)] = true
		}
	}

	var out []issue.Issue
	for ref, rule := range c.Doc.StyleRules() {
		if !hasPseudo(rule, style.PseudoHover, "hover") || !rule.Impact.Has(style.ImpactPaintVisibility) {
			continue
		}
		if focusState(rule) {
			continue
		}
		if counterparts[swapPseudo(rule.RawSelector, "hover")] {
			continue
		}
		sev, conf := c.CounterpartConfidence(m.severity(c), "no focus rule mirrors "+rule.RawSelector)
		is := m.build(sev, conf, rule.ID,
			fmt.Sprintf("%s reveals content on hover only; keyboard users cannot reach it", rule.RawSelector),
			rule.SelectorSpan)
		if c.Files != nil {
			twin := replacePseudo(rule.RawSelector, "hover", "focus-within")
			text := twin + " {\n" + declBlock(rule.Props) + "}\n"
			if f, err := fix.AppendToFile("mirror the rule for :focus-within", c.Files, styleFile(c.Doc, ref), text,
				fix.WithApplicability(issue.FixApplicabilityAlwaysSafe),
				fix.WithID(fixID(m.Name(), rule.Node))); err == nil {
				is.Fix = f
			}
		}
		out = append(out, is)
	}
	return out, nil
}
