// Package rules holds the built-in analyzers. Every rule reads the document
// graph (or, for the few file-scoped ones, a lone behavior model) and
// reports issues with a confidence derived from the graph's completeness.
package rules

import (
	"fmt"
	"strings"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/node"
	"a11ygraph/internal/source"
	"a11ygraph/internal/style"
)

// Rule names.
const (
	MouseOnlyInteraction       = "mouse-only-interaction"
	OrphanedBehavior           = "orphaned-behavior"
	MissingRelationshipTarget  = "missing-relationship-target"
	FocusOrderConflict         = "focus-order-conflict"
	VisibilityFocusConflict    = "visibility-focus-conflict"
	StateNeverUpdated          = "state-never-updated"
	KeyboardHandlerUnreachable = "keyboard-handler-unreachable"
	InteractiveMissingRole     = "interactive-missing-role"
	FocusIndicatorRemoved      = "focus-indicator-removed"
	PointerInteractionBlocked  = "pointer-interaction-blocked"
	FocusTransferUnfocusable   = "focus-transfer-unfocusable"
	KeyboardPropagationBlocked = "keyboard-propagation-blocked"
	PortalFocusUnmanaged       = "portal-focus-unmanaged"
	HoverOnlyReveal            = "hover-only-reveal"
	DuplicateID                = "duplicate-id"
)

// All returns a fresh instance of every built-in rule in registration order.
func All() []analyzer.Analyzer {
	return []analyzer.Analyzer{
		mouseOnly{},
		orphanedBehavior{},
		missingRelationshipTarget{},
		focusOrder{},
		visibilityFocus{},
		stateNeverUpdated{},
		keyboardUnreachable{},
		missingRole{},
		focusIndicator{},
		pointerBlocked{},
		focusTransfer{},
		propagationBlocked{},
		portalFocus{},
		hoverOnly{},
		duplicateID{},
	}
}

// Default builds the static registry of built-in rules.
func Default() *analyzer.Registry {
	reg, err := analyzer.NewRegistry(All()...)
	if err != nil {
		// имена правил статичны, дубликат означает ошибку в этом пакете
		panic(err)
	}
	return reg
}

// DefaultRefs maps rules to the WCAG success criteria they relate to. It is
// used when configuration does not provide refs of its own.
func DefaultRefs() map[string][]string {
	return map[string][]string{
		MouseOnlyInteraction:       {"WCAG 2.1.1"},
		OrphanedBehavior:           {"WCAG 4.1.2"},
		MissingRelationshipTarget:  {"WCAG 1.3.1", "WCAG 4.1.2"},
		FocusOrderConflict:         {"WCAG 2.4.3"},
		VisibilityFocusConflict:    {"WCAG 2.4.7", "WCAG 4.1.2"},
		StateNeverUpdated:          {"WCAG 4.1.2"},
		KeyboardHandlerUnreachable: {"WCAG 2.1.1"},
		InteractiveMissingRole:     {"WCAG 4.1.2"},
		FocusIndicatorRemoved:      {"WCAG 2.4.7"},
		PointerInteractionBlocked:  {"WCAG 2.5.1"},
		FocusTransferUnfocusable:   {"WCAG 2.4.3"},
		KeyboardPropagationBlocked: {"WCAG 2.1.1"},
		PortalFocusUnmanaged:       {"WCAG 2.4.3"},
		HoverOnlyReveal:            {"WCAG 1.4.13", "WCAG 2.1.1"},
		DuplicateID:                {"WCAG 4.1.1"},
	}
}

// meta carries the static description shared by every rule.
type meta struct {
	info analyzer.Info
}

func (m meta) Name() string            { return m.info.Name }
func (m meta) Describe() analyzer.Info { return m.info }

func (m meta) severity(c *analyzer.Context) diag.Severity {
	return c.Severity(m.info.Name, m.info.Severity)
}

// build assembles an issue of rule m.
func (m meta) build(sev diag.Severity, conf issue.Confidence, subject, msg string, locs ...source.Span) issue.Issue {
	out := make([]source.Span, 0, len(locs))
	for _, l := range locs {
		if l == (source.Span{}) {
			continue
		}
		out = append(out, l)
	}
	return issue.Issue{
		Type:       m.info.Name,
		Severity:   sev,
		Message:    msg,
		Confidence: conf,
		Locations:  out,
		Subject:    subject,
	}
}

// fixID gives a fix an id that survives re-runs on unchanged input.
func fixID(rule string, n node.Node, extra ...string) string {
	parts := append([]string{rule, n.ID}, extra...)
	return strings.Join(parts, "@")
}

// describe names an element for messages: <tag#id.class>.
func describe(tag, id string, classes []string) string {
	var b strings.Builder
	b.WriteString("<" + tag)
	if id != "" {
		b.WriteString("#" + id)
	}
	for _, c := range classes {
		b.WriteString("." + c)
	}
	b.WriteString(">")
	return b.String()
}

// elementContexts yields the projection of every element in document order.
func elementContexts(d *document.Model, fn func(ctx document.ElementContext)) {
	for h := range d.Elements() {
		ctx, ok := d.ElementContext(h)
		if ok {
			fn(ctx)
		}
	}
}

// steady returns the cascade without state-dependent rules.
func steady(ctx document.ElementContext) []*style.Rule {
	all := ctx.Cascade()
	out := make([]*style.Rule, 0, len(all))
	for _, r := range all {
		if !r.Conditional() {
			out = append(out, r)
		}
	}
	return out
}

// hidingProps are the properties whose winning value can hide an element.
var hidingProps = []string{"display", "visibility", "content-visibility", "opacity"}

// winningHide returns the winning declaration that hides the element, if any.
func winningHide(rules []*style.Rule) (*style.Rule, style.Decl, bool) {
	for _, prop := range hidingProps {
		r, d, ok := style.Winning(rules, prop)
		if !ok {
			continue
		}
		probe := style.Rule{Props: []style.Decl{d}}
		if probe.Hides() {
			return r, d, true
		}
	}
	return nil, style.Decl{}, false
}

// swapPseudo replaces every pseudo-class in raw whose name is in names with
// a marker, so selectors differing only in those states compare equal.
func swapPseudo(raw string, names ...string) string {
	var b strings.Builder
	for i := 0; i < len(raw); {
		if raw[i] != ':' || (i+1 < len(raw) && raw[i+1] == ':') {
			if raw[i] == ':' {
				// псевдоэлемент, копируем целиком
				b.WriteString("::")
				i += 2
				continue
			}
			b.WriteByte(raw[i])
			i++
			continue
		}
		j := i + 1
		for j < len(raw) && (raw[j] == '-' || raw[j] >= 'a' && raw[j] <= 'z' || raw[j] >= 'A' && raw[j] <= 'Z') {
			j++
		}
		name := strings.ToLower(raw[i+1 : j])
		matched := false
		for _, n := range names {
			if n == name {
				matched = true
				break
			}
		}
		if matched {
			b.WriteString(":\x00")
		} else {
			b.WriteString(raw[i:j])
		}
		i = j
	}
	return b.String()
}

// hasPseudo reports pseudo-class name on rule. Rules whose selector did not
// parse carry no pseudo bits, so their raw text is scanned instead.
func hasPseudo(rule *style.Rule, bit style.Pseudo, name string) bool {
	if rule.Pseudo.Has(bit) {
		return true
	}
	return rule.Complex && strings.Contains(swapPseudo(rule.RawSelector, name), ":\x00")
}

// replacePseudo rewrites :from into :to in raw.
func replacePseudo(raw, from, to string) string {
	return strings.ReplaceAll(swapPseudo(raw, from), ":\x00", ":"+to)
}

// declBlock renders declarations as a rule body.
func declBlock(props []style.Decl) string {
	var b strings.Builder
	for _, d := range props {
		b.WriteString("  " + d.Property + ": " + d.Value)
		if d.Important {
			b.WriteString(" !important")
		}
		b.WriteString(";\n")
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
