package rules

import (
	"fmt"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/fix"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
	"a11ygraph/internal/style"
)

// behaviorSpans returns the spans of the attached behaviors accepted by keep.
func behaviorSpans(ctx document.ElementContext, keep func(*behavior.Node) bool) []source.Span {
	var out []source.Span
	for _, bn := range ctx.Behaviors {
		if keep(bn) {
			out = append(out, bn.Span)
		}
	}
	return out
}

func label(el *structure.Element) string {
	return describe(el.Tag, el.IDAttr(), el.Classes())
}

type mouseOnly struct{}

func (mouseOnly) m() meta {
	return meta{analyzer.Info{
		Name:     MouseOnlyInteraction,
		Summary:  "click handler without a keyboard equivalent on an element the browser does not activate from the keyboard",
		Severity: diag.SevError,
		Fixable:  true,
	}}
}

func (r mouseOnly) Name() string            { return r.m().Name() }
func (r mouseOnly) Describe() analyzer.Info { return r.m().Describe() }

func (r mouseOnly) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	elementContexts(c.Doc, func(ctx document.ElementContext) {
		if !ctx.HasClickHandler || ctx.HasKeyboardHandler || ctx.NativelyActivatable {
			return
		}
		el := ctx.Element
		sev, conf := c.CounterpartConfidence(m.severity(c), "no keyboard handler found for the element")
		locs := append([]source.Span{el.StartTag}, behaviorSpans(ctx, (*behavior.Node).IsClick)...)
		is := m.build(sev, conf, el.ID,
			fmt.Sprintf("%s responds to the mouse only; add a keyboard handler or use a native control", label(el)),
			locs...)
		if el.Tag == "div" || el.Tag == "span" {
			is.Fix = nativeButton(c, el, fixID(m.Name(), el.Node))
		}
		out = append(out, is)
	})
	return out, nil
}

// nativeButton renames el to a button and drops the ARIA patches a button
// already provides: role="button" and tabindex="0".
func nativeButton(c *analyzer.Context, el *structure.Element, id string) *issue.Fix {
	rename := fix.RenameElement("replace with a native button", c.Files, el, "button", ` type="button"`,
		fix.WithApplicability(issue.FixApplicabilityManualReview),
		fix.WithKind(issue.FixKindRewrite),
		fix.WithID(id),
		fix.Preferred())
	var role, tabindex *issue.Fix
	if el.Role() == "button" {
		role = fix.RemoveAttribute("drop role", c.Files, el, "role")
	}
	if v, ok := el.TabIndex(); ok && v == 0 {
		tabindex = fix.RemoveAttribute("drop tabindex", c.Files, el, "tabindex")
	}
	return fix.Combine(rename, role, tabindex)
}

type missingRole struct{}

func (missingRole) m() meta {
	return meta{analyzer.Info{
		Name:     InteractiveMissingRole,
		Summary:  "click handler on a non-semantic element without a role",
		Severity: diag.SevWarning,
		Fixable:  true,
	}}
}

func (r missingRole) Name() string            { return r.m().Name() }
func (r missingRole) Describe() analyzer.Info { return r.m().Describe() }

func (r missingRole) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	elementContexts(c.Doc, func(ctx document.ElementContext) {
		el := ctx.Element
		if !ctx.HasClickHandler || !el.NonSemantic() || el.HasAttr("role") {
			return
		}
		locs := append([]source.Span{el.StartTag}, behaviorSpans(ctx, (*behavior.Node).IsClick)...)
		is := m.build(m.severity(c), c.Direct("click handler attached to the element"), el.ID,
			fmt.Sprintf("%s is interactive but exposes no role to assistive technology", label(el)),
			locs...)
		is.Fix = fix.InsertAttribute(`add role="button"`, el, "role", "button",
			fix.WithApplicability(issue.FixApplicabilitySafeWithHeuristics),
			fix.WithID(fixID(m.Name(), el.Node)))
		out = append(out, is)
	})
	return out, nil
}

type keyboardUnreachable struct{}

func (keyboardUnreachable) m() meta {
	return meta{analyzer.Info{
		Name:     KeyboardHandlerUnreachable,
		Summary:  "keyboard handler on an element that cannot receive focus",
		Severity: diag.SevError,
		Fixable:  true,
	}}
}

func (r keyboardUnreachable) Name() string            { return r.m().Name() }
func (r keyboardUnreachable) Describe() analyzer.Info { return r.m().Describe() }

// Analyze skips containers with a focusable descendant: key events bubble up
// to them from the focused child.
func (r keyboardUnreachable) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	elementContexts(c.Doc, func(ctx document.ElementContext) {
		if !ctx.HasKeyboardHandler || ctx.Focusable {
			return
		}
		if focusableBelow(c.Doc, ctx) {
			return
		}
		el := ctx.Element
		locs := append([]source.Span{el.StartTag}, behaviorSpans(ctx, (*behavior.Node).IsKey)...)
		is := m.build(m.severity(c), c.Direct("element is not focusable"), el.ID,
			fmt.Sprintf("%s handles keyboard events but can never receive focus", label(el)),
			locs...)
		if !el.HasAttr("tabindex") && !el.Disabled() {
			is.Fix = fix.InsertAttribute(`add tabindex="0"`, el, "tabindex", "0",
				fix.WithApplicability(issue.FixApplicabilitySafeWithHeuristics),
				fix.WithID(fixID(m.Name(), el.Node)))
		}
		out = append(out, is)
	})
	return out, nil
}

func focusableBelow(d *document.Model, ctx document.ElementContext) bool {
	frag := d.Fragment(ctx.Handle)
	for _, i := range frag.Descendants(ctx.Handle.Elem) {
		h := ctx.Handle
		h.Elem = i
		if dc, ok := d.ElementContext(h); ok && dc.Focusable {
			return true
		}
	}
	return false
}

type pointerBlocked struct{}

func (pointerBlocked) m() meta {
	return meta{analyzer.Info{
		Name:     PointerInteractionBlocked,
		Summary:  "clickable element whose winning style disables pointer events",
		Severity: diag.SevWarning,
	}}
}

func (r pointerBlocked) Name() string            { return r.m().Name() }
func (r pointerBlocked) Describe() analyzer.Info { return r.m().Describe() }

func (r pointerBlocked) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	elementContexts(c.Doc, func(ctx document.ElementContext) {
		if !ctx.HasClickHandler && !ctx.NativelyActivatable {
			return
		}
		rule, d, ok := style.Winning(steady(ctx), "pointer-events")
		if !ok || !rule.DisablesPointer() {
			return
		}
		el := ctx.Element
		out = append(out, m.build(m.severity(c), c.Direct("winning rule "+rule.RawSelector+" sets pointer-events: none"), el.ID,
			fmt.Sprintf("%s is clickable but %s disables pointer events", label(el), rule.RawSelector),
			el.StartTag, d.Span))
	})
	return out, nil
}

type propagationBlocked struct{}

func (propagationBlocked) m() meta {
	return meta{analyzer.Info{
		Name:     KeyboardPropagationBlocked,
		Summary:  "key event propagation stopped above interactive descendants",
		Severity: diag.SevWarning,
	}}
}

func (r propagationBlocked) Name() string            { return r.m().Name() }
func (r propagationBlocked) Describe() analyzer.Info { return r.m().Describe() }

func (r propagationBlocked) Analyze(c *analyzer.Context) ([]issue.Issue, error) {
	if c.FileScope() {
		return nil, nil
	}
	m := r.m()
	var out []issue.Issue
	for _, bn := range c.Doc.BehaviorNodes() {
		if bn.Action != behavior.ActionPropagationBlock || !behavior.IsKeyEvent(bn.Event) || !bn.Ref.IsResolved() {
			continue
		}
		h := bn.Ref.Resolved
		frag := c.Doc.Fragment(h)
		el := c.Doc.Element(h)
		var first *structure.Element
		count := 0
		for _, i := range frag.Descendants(h.Elem) {
			dh := h
			dh.Elem = i
			if dc, ok := c.Doc.ElementContext(dh); ok && dc.Interactive {
				if first == nil {
					first = dc.Element
				}
				count++
			}
		}
		if first == nil {
			continue
		}
		out = append(out, m.build(m.severity(c), c.Direct("propagation blocked in a "+bn.Event+" handler"), bn.ID,
			fmt.Sprintf("%s handler on %s stops key events before they reach %s",
				behavior.NormalizeEvent(bn.Event), label(el), plural(count, "interactive descendant")),
			bn.Span, el.StartTag, first.StartTag))
	}
	return out, nil
}
