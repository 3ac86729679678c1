package frontend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/dialect"
	"a11ygraph/internal/document"
	"a11ygraph/internal/structure"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// optionalEnd elements may be left open without a diagnostic.
var optionalEnd = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true,
	"dt": true, "dd": true, "option": true, "optgroup": true, "tr": true,
	"td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"colgroup": true, "caption": true, "rb": true, "rt": true, "rp": true,
}

// impliedClose lists, per start tag, the open elements it closes when they
// are on top of the stack.
var impliedClose = map[string][]string{
	"li":     {"li"},
	"dt":     {"dt", "dd"},
	"dd":     {"dt", "dd"},
	"option": {"option"},
	"tr":     {"tr", "td", "th"},
	"td":     {"td", "th"},
	"th":     {"td", "th"},
	"tbody":  {"thead", "tbody", "tr", "td", "th"},
	"tfoot":  {"thead", "tbody", "tr", "td", "th"},
}

// blocks close an open paragraph.
var blocks = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "div": true, "dl": true, "fieldset": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true, "ul": true,
}

// scriptTypes are the <script type> values that hold runnable script.
var scriptTypes = map[string]bool{
	"": true, "module": true, "text/javascript": true, "application/javascript": true,
	"text/babel": true, "text/jsx": true,
}

// MarkupParser builds a structure fragment from markup using the x/net/html
// tokenizer. The tokenizer's raw token lengths give byte offsets, so every
// element and attribute keeps exact spans.
type MarkupParser struct{}

type openElem struct {
	index int
	tag   string
}

// maxMarkupDiagnostics caps the diagnostics of one file; broken markup
// otherwise reports every following tag.
const maxMarkupDiagnostics = 256

type markupBuilder struct {
	u      Unit
	model  *structure.Model
	stack  []openElem
	bag    *diag.Bag
	rep    diag.Reporter
	embeds []Unit
}

func (b *markupBuilder) result() (Result, []diag.Diagnostic) {
	return Result{Structure: b.model, Embedded: b.embeds}, b.bag.Items()
}

func (MarkupParser) Parse(ctx context.Context, u Unit) (Result, []diag.Diagnostic) {
	bag := diag.NewBag(maxMarkupDiagnostics)
	b := &markupBuilder{
		u:     u,
		model: structure.New(u.Path, u.File),
		bag:   bag,
		rep:   diag.NewDedupReporter(diag.NewBagReporter(bag)),
	}
	z := html.NewTokenizer(bytes.NewReader(u.Text))

	offset := 0
	for n := 0; ; n++ {
		if n%512 == 0 && ctx.Err() != nil {
			return emptyResult(u), []diag.Diagnostic{
				diag.NewError(diag.FeParserFailed, u.span(0, 0), fmt.Sprintf("parse %s: %v", u.Path, ctx.Err())),
			}
		}
		tt := z.Next()
		start := offset
		offset += len(z.Raw())
		end := offset

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				b.closeAll(end)
				return b.result()
			}
			diag.ReportError(b.rep, diag.MkpMalformed, u.spanInt(start, end),
				fmt.Sprintf("malformed markup: %v", z.Err())).Emit()
			b.closeAll(end)
			return b.result()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			var attrs []rawAttr
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs = append(attrs, rawAttr{name: string(key), value: string(val)})
			}
			b.startTag(string(name), attrs, start, end, tt == html.SelfClosingTagToken)

		case html.EndTagToken:
			name, _ := z.TagName()
			b.endTag(string(name), start, end)

		case html.TextToken:
			b.text(start, end)
		}
	}
}

type rawAttr struct {
	name  string
	value string
}

func (b *markupBuilder) top() (openElem, bool) {
	if len(b.stack) == 0 {
		return openElem{}, false
	}
	return b.stack[len(b.stack)-1], true
}

func (b *markupBuilder) parent() int {
	if t, ok := b.top(); ok {
		return t.index
	}
	return -1
}

func (b *markupBuilder) startTag(tag string, raw []rawAttr, start, end int, selfClosing bool) {
	for _, closes := range impliedClose[tag] {
		if t, ok := b.top(); ok && t.tag == closes {
			b.pop(start)
		}
	}
	if blocks[tag] {
		if t, ok := b.top(); ok && t.tag == "p" {
			b.pop(start)
		}
	}

	el := structure.Element{
		Tag:         tag,
		StartTag:    b.u.spanInt(start, end),
		SelfClosing: selfClosing,
	}
	el.Span = el.StartTag
	el.Attrs = b.attrs(tag, raw, start, end)

	idx := b.model.Append(b.parent(), el)
	if selfClosing || voidElements[tag] {
		return
	}
	b.stack = append(b.stack, openElem{index: idx, tag: tag})
}

// attrs pairs the tokenizer's attributes with the positions scanned from
// the raw tag text. Duplicates keep the first occurrence.
func (b *markupBuilder) attrs(tag string, raw []rawAttr, start, end int) []structure.Attr {
	if len(raw) == 0 {
		return nil
	}
	pos := scanAttrs(b.u.Text[start:end])
	exact := len(pos) == len(raw)
	seen := make(map[string]bool, len(raw))
	out := make([]structure.Attr, 0, len(raw))
	for i, ra := range raw {
		a := structure.Attr{Name: ra.name, Value: ra.value, HasValue: ra.value != ""}
		if exact {
			p := pos[i]
			a.HasValue = p.hasValue
			a.Span = b.u.spanInt(start+p.nameStart, start+p.end)
			if p.hasValue {
				a.ValueSpan = b.u.spanInt(start+p.valueStart, start+p.valueEnd)
			}
		} else {
			a.Span = b.u.spanInt(start, end)
		}
		if seen[a.Name] {
			diag.ReportWarning(b.rep, diag.MkpDuplicateAttr, a.Span,
				fmt.Sprintf("duplicate attribute %q on <%s>; the first one is used", a.Name, tag)).Emit()
			continue
		}
		seen[a.Name] = true
		if document.IsRelationAttr(tag, a.Name) && strings.TrimSpace(a.Value) == "" {
			diag.ReportWarning(b.rep, diag.MkpEmptyRelationship, a.Span,
				fmt.Sprintf("%s on <%s> names no id", a.Name, tag)).Emit()
		}
		out = append(out, a)
	}
	return out
}

func (b *markupBuilder) endTag(tag string, start, end int) {
	depth := -1
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].tag == tag {
			depth = i
			break
		}
	}
	if depth < 0 {
		if voidElements[tag] {
			return
		}
		diag.ReportWarning(b.rep, diag.MkpUnexpectedEndTag, b.u.spanInt(start, end),
			fmt.Sprintf("</%s> has no matching start tag", tag)).Emit()
		return
	}
	for len(b.stack)-1 > depth {
		t, _ := b.top()
		b.unclosed(t)
		b.pop(start)
	}
	t, _ := b.top()
	el := b.model.At(t.index)
	el.EndTag = b.u.spanInt(start, end)
	el.Span = el.StartTag.Cover(el.EndTag)
	b.stack = b.stack[:len(b.stack)-1]
}

// pop closes the top element without an end tag; its span runs to at.
func (b *markupBuilder) pop(at int) {
	t, ok := b.top()
	if !ok {
		return
	}
	el := b.model.At(t.index)
	el.Span = el.StartTag.Cover(b.u.spanInt(at, at))
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *markupBuilder) unclosed(t openElem) {
	if optionalEnd[t.tag] {
		return
	}
	el := b.model.At(t.index)
	diag.ReportWarning(b.rep, diag.MkpUnclosedElement, el.StartTag,
		fmt.Sprintf("<%s> is never closed", t.tag)).Emit()
}

func (b *markupBuilder) closeAll(at int) {
	for len(b.stack) > 0 {
		t, _ := b.top()
		b.unclosed(t)
		b.pop(at)
	}
}

// text records the body of a script or style element for the registry.
func (b *markupBuilder) text(start, end int) {
	t, ok := b.top()
	if !ok || start == end {
		return
	}
	el := b.model.At(t.index)
	var kind dialect.Kind
	switch t.tag {
	case "script":
		if el.HasAttr("src") || !scriptTypes[strings.ToLower(strings.TrimSpace(el.AttrValue("type")))] {
			return
		}
		kind = dialect.Script
	case "style":
		kind = dialect.Style
	default:
		return
	}
	b.embeds = append(b.embeds, Unit{
		Dialect: kind,
		Path:    b.u.Path,
		File:    b.u.File,
		Text:    b.u.Text[start:end],
		Base:    b.u.Base + uint32(start),
	})
}

type attrPos struct {
	nameStart, valueStart, valueEnd, end int
	hasValue                             bool
}

// scanAttrs finds attribute positions inside the raw text of a start tag,
// following the tokenizer's attribute rules closely enough that the
// results line up with TagAttr.
func scanAttrs(tag []byte) []attrPos {
	i := 1
	for i < len(tag) && !isHTMLSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	var out []attrPos
	for i < len(tag) {
		for i < len(tag) && (isHTMLSpace(tag[i]) || tag[i] == '/') {
			i++
		}
		if i >= len(tag) || tag[i] == '>' {
			break
		}
		p := attrPos{nameStart: i}
		// the first name character may be '='
		i++
		for i < len(tag) && !isHTMLSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' && tag[i] != '=' {
			i++
		}
		p.end = i
		j := i
		for j < len(tag) && isHTMLSpace(tag[j]) {
			j++
		}
		if j < len(tag) && tag[j] == '=' {
			j++
			for j < len(tag) && isHTMLSpace(tag[j]) {
				j++
			}
			p.hasValue = true
			if j < len(tag) && (tag[j] == '"' || tag[j] == '\'') {
				q := tag[j]
				p.valueStart = j + 1
				k := bytes.IndexByte(tag[j+1:], q)
				if k < 0 {
					p.valueEnd = len(tag)
					j = len(tag)
				} else {
					p.valueEnd = j + 1 + k
					j = p.valueEnd + 1
				}
			} else {
				p.valueStart = j
				for j < len(tag) && !isHTMLSpace(tag[j]) && tag[j] != '>' {
					j++
				}
				p.valueEnd = j
			}
			p.end = j
			i = j
		}
		out = append(out, p)
	}
	return out
}

func isHTMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
