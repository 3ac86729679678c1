package frontend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/selector"
	"a11ygraph/internal/style"
)

const ruleQuery = `(rule_set (selectors) @sel (block) @block) @rule`

// StyleParser builds rule lists from CSS with tree-sitter: one rule per
// selector of every rule set, nested at-rules included.
type StyleParser struct{}

func (StyleParser) Parse(ctx context.Context, u Unit) (Result, []diag.Diagnostic) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(css.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, u.Text)
	if err != nil {
		return emptyResult(u), []diag.Diagnostic{
			diag.NewError(diag.FeParserFailed, u.span(0, 0), fmt.Sprintf("parse %s: %v", u.Path, err)),
		}
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(ruleQuery), css.GetLanguage())
	if err != nil {
		return emptyResult(u), []diag.Diagnostic{
			diag.NewError(diag.FeParserFailed, u.span(0, 0), fmt.Sprintf("compile rule query: %v", err)),
		}
	}
	defer q.Close()

	root := tree.RootNode()
	b := &styleBuilder{u: u, model: style.New(u.Path, u.File)}
	if root.HasError() {
		b.syntaxErrors(root)
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		var rule, sel, block *sitter.Node
		for _, c := range match.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "rule":
				rule = c.Node
			case "sel":
				sel = c.Node
			case "block":
				block = c.Node
			}
		}
		if rule == nil || sel == nil || block == nil {
			continue
		}
		b.ruleSet(rule, sel, block)
	}
	return Result{Style: b.model}, b.diags
}

type styleBuilder struct {
	u     Unit
	model *style.Model
	diags []diag.Diagnostic
}

func (b *styleBuilder) text(n *sitter.Node) string {
	return n.Content(b.u.Text)
}

func (b *styleBuilder) syntaxErrors(root *sitter.Node) {
	count := 0
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if count >= maxSyntaxDiags || n == nil || !n.HasError() && !n.IsMissing() {
			return
		}
		if n.IsMissing() || n.Type() == "ERROR" {
			count++
			b.diags = append(b.diags, diag.NewError(diag.StySyntaxError, b.u.span(n.StartByte(), n.EndByte()),
				"style syntax error"))
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
}

// ruleSet appends one rule per selector in the list.
func (b *styleBuilder) ruleSet(rule, sel, block *sitter.Node) {
	props := b.decls(block)
	atRule := enclosingAtRule(b, rule)

	list := b.text(sel)
	base := sel.StartByte()
	for _, r := range selector.SplitListIndex(list) {
		raw := list[r[0]:r[1]]
		sr, err := style.NewRule(raw, props)
		sr.Span = b.u.span(rule.StartByte(), rule.EndByte())
		sr.SelectorSpan = b.u.span(base+uint32(r[0]), base+uint32(r[1]))
		sr.BlockSpan = b.u.span(block.StartByte(), block.EndByte())
		if atRule != "" {
			sr.Set("at-rule", atRule)
		}
		switch {
		case err == nil:
		case errors.Is(err, selector.ErrCombinator):
			b.diags = append(b.diags, diag.New(diag.SevInfo, diag.StyComplexSelector, sr.SelectorSpan,
				fmt.Sprintf("selector %q uses combinators and is not matched to elements", raw)))
		default:
			b.diags = append(b.diags, diag.NewWarning(diag.StyInvalidSelector, sr.SelectorSpan, err.Error()))
		}
		b.model.Append(sr)
	}
}

// decls reads the declarations of a block. Empty values are reported and
// dropped.
func (b *styleBuilder) decls(block *sitter.Node) []style.Decl {
	var out []style.Decl
	for i := 0; i < int(block.NamedChildCount()); i++ {
		n := block.NamedChild(i)
		if n.Type() != "declaration" {
			continue
		}
		text := strings.TrimRight(b.text(n), "; \t\n")
		d, ok := style.ParseDecl(text)
		if !ok {
			continue
		}
		d.Span = b.u.span(n.StartByte(), n.StartByte()+uint32(len(text)))
		if d.Value == "" {
			b.diags = append(b.diags, diag.NewWarning(diag.StyEmptyDeclaration, d.Span,
				fmt.Sprintf("%s has no value", d.Property)))
			continue
		}
		out = append(out, d)
	}
	return out
}

// enclosingAtRule returns the prelude of the nearest @media or @supports
// around n, or "".
func enclosingAtRule(b *styleBuilder, n *sitter.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "media_statement", "supports_statement", "at_rule":
			t := b.text(p)
			if i := strings.IndexByte(t, '{'); i >= 0 {
				t = t[:i]
			}
			return strings.TrimSpace(t)
		}
	}
	return ""
}
