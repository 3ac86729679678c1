package document

import (
	"a11ygraph/internal/behavior"
	"a11ygraph/internal/node"
	"a11ygraph/internal/structure"
	"a11ygraph/internal/style"
)

var (
	inlineClick = []string{"click", "dblclick", "mousedown", "mouseup", "pointerdown", "pointerup"}
	inlineKey   = []string{"keydown", "keyup", "keypress"}
)

// ElementContext is a read-only projection of one element with its
// attachments and derived interaction facts.
type ElementContext struct {
	Handle    node.Handle
	Element   *structure.Element
	Behaviors []*behavior.Node
	Styles    []*style.Rule
	Inline    *style.Rule // declarations of the style attribute, nil when absent

	Focusable           bool // reachable by focus() or the tab sequence
	TabReachable        bool // in the sequential tab order
	Interactive         bool
	HasClickHandler     bool
	HasKeyboardHandler  bool
	NativelyActivatable bool
}

// Cascade returns the attached rules followed by the inline rule, the order
// style.Winning expects.
func (c *ElementContext) Cascade() []*style.Rule {
	if c.Inline == nil {
		return c.Styles
	}
	out := make([]*style.Rule, 0, len(c.Styles)+1)
	out = append(out, c.Styles...)
	return append(out, c.Inline)
}

// ElementContext builds the projection for h. ok is false for an invalid
// handle.
func (d *Model) ElementContext(h node.Handle) (ElementContext, bool) {
	el := d.Element(h)
	if el == nil {
		return ElementContext{}, false
	}
	ctx := ElementContext{Handle: h, Element: el}
	for _, r := range el.Behaviors {
		if bn := d.Behavior(r); bn != nil {
			ctx.Behaviors = append(ctx.Behaviors, bn)
			ctx.HasClickHandler = ctx.HasClickHandler || bn.IsClick()
			ctx.HasKeyboardHandler = ctx.HasKeyboardHandler || bn.IsKey()
		}
	}
	for _, r := range el.Styles {
		if rule := d.Rule(r); rule != nil {
			ctx.Styles = append(ctx.Styles, rule)
		}
	}
	if a, ok := el.Attr("style"); ok {
		inline := style.InlineRule(style.ParseInline(a.Value, a.ValueSpan))
		inline.Span = a.Span
		ctx.Inline = &inline
	}

	for _, ev := range inlineClick {
		ctx.HasClickHandler = ctx.HasClickHandler || el.InlineHandler(ev)
	}
	for _, ev := range inlineKey {
		ctx.HasKeyboardHandler = ctx.HasKeyboardHandler || el.InlineHandler(ev)
	}

	native := el.NativelyFocusable()
	ti, hasTI := el.TabIndex()
	switch {
	case el.Disabled():
		ctx.Focusable, ctx.TabReachable = false, false
	case hasTI:
		ctx.Focusable = true
		ctx.TabReachable = ti >= 0
	default:
		ctx.Focusable = native
		ctx.TabReachable = native
	}
	ctx.NativelyActivatable = el.NativelyActivatable()
	ctx.Interactive = native ||
		structure.InteractiveRole(el.Role()) ||
		ctx.HasClickHandler ||
		ctx.HasKeyboardHandler
	return ctx, true
}
