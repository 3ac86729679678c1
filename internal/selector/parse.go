package selector

import (
	"fmt"
	"strings"
)

// legacy pseudo elements that may be written with a single colon
var legacyPseudoElements = map[string]bool{
	"before": true, "after": true, "first-line": true, "first-letter": true,
}

// Parse parses one compound selector. Leading and trailing whitespace is
// ignored; whitespace or a combinator character inside the selector yields
// ErrCombinator.
func Parse(raw string) (Compound, error) {
	text := Canonical(raw)
	c := Compound{Raw: text}
	if text == "" {
		return c, ErrEmpty
	}
	p := &parser{src: text}
	if err := p.compound(&c); err != nil {
		return c, fmt.Errorf("parse selector %q: %w", raw, err)
	}
	return c, nil
}

// SplitList splits a selector list on top-level commas.
func SplitList(raw string) []string {
	ranges := SplitListIndex(raw)
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, raw[r[0]:r[1]])
	}
	return out
}

// SplitListIndex is SplitList returning the [start, end) byte ranges of the
// trimmed items inside raw.
func SplitListIndex(raw string) [][2]int {
	var (
		out   [][2]int
		depth int
		quote byte
		start int
	)
	flush := func(end int) {
		s, e := start, end
		for s < e && isSpace(raw[s]) {
			s++
		}
		for e > s && isSpace(raw[e-1]) {
			e--
		}
		if s < e {
			out = append(out, [2]int{s, e})
		}
	}
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			depth--
		case ch == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(raw))
	return out
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) compound(c *Compound) error {
	switch ch := p.peek(); {
	case ch == '*':
		p.pos++
		c.Universal = true
		if p.peek() == '|' {
			return fmt.Errorf("namespace prefixes are not supported")
		}
	case isNameStart(ch):
		c.Tag = strings.ToLower(p.ident())
		c.weight.Elements++
	}

	for !p.eof() {
		switch ch := p.peek(); ch {
		case '#':
			p.pos++
			id := p.ident()
			if id == "" {
				return fmt.Errorf("expected id at %d", p.pos)
			}
			if c.ID != "" && c.ID != id {
				// #a#b never matches anything; keep the first and count both
				c.weight.IDs++
				continue
			}
			c.ID = id
			c.weight.IDs++
		case '.':
			p.pos++
			cls := p.ident()
			if cls == "" {
				return fmt.Errorf("expected class name at %d", p.pos)
			}
			c.Classes = append(c.Classes, cls)
			c.weight.Classes++
		case '[':
			a, err := p.attr()
			if err != nil {
				return err
			}
			c.Attrs = append(c.Attrs, a)
			c.weight.Classes++
		case ':':
			if err := p.pseudo(c); err != nil {
				return err
			}
		case ' ', '\t', '\n', '\r', '\f', '>', '+', '~':
			return ErrCombinator
		default:
			return fmt.Errorf("unexpected %q at %d", ch, p.pos)
		}
	}
	if c.Tag == "" && !c.Universal && c.ID == "" && len(c.Classes) == 0 && len(c.Attrs) == 0 {
		// ":focus" alone is the universal selector with a qualifier
		c.Universal = true
	}
	return nil
}

func (p *parser) pseudo(c *Compound) error {
	p.pos++
	element := false
	if p.peek() == ':' {
		p.pos++
		element = true
	}
	name := strings.ToLower(p.ident())
	if name == "" {
		return fmt.Errorf("expected pseudo name at %d", p.pos)
	}
	arg := ""
	if p.peek() == '(' {
		end := p.matchParen()
		if end < 0 {
			return fmt.Errorf("unclosed '(' in pseudo %q", name)
		}
		arg = p.src[p.pos+1 : end]
		p.pos = end + 1
	}
	if element || legacyPseudoElements[name] {
		if c.PseudoElement != "" {
			return fmt.Errorf("more than one pseudo element")
		}
		c.PseudoElement = name
		c.weight.Elements++
		return nil
	}

	switch name {
	case "where":
		// zero specificity
	case "is", "not", "has", "matches":
		c.weight = c.weight.add(maxSpecificity(arg))
	default:
		c.weight.Classes++
	}
	if arg != "" {
		name += "(" + arg + ")"
	}
	c.PseudoClasses = append(c.PseudoClasses, name)
	return nil
}

func maxSpecificity(list string) Specificity {
	var best Specificity
	for _, item := range SplitList(list) {
		inner, err := Parse(item)
		if err != nil {
			continue
		}
		if s := inner.Specificity(); best.Less(s) {
			best = s
		}
	}
	return best
}

func (p *parser) matchParen() int {
	depth := 0
	for i := p.pos; i < len(p.src); i++ {
		switch p.src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *parser) attr() (AttrSel, error) {
	p.pos++ // [
	p.skipSpace()
	name := strings.ToLower(p.ident())
	if name == "" {
		return AttrSel{}, fmt.Errorf("expected attribute name at %d", p.pos)
	}
	p.skipSpace()
	a := AttrSel{Name: name}
	if p.peek() == ']' {
		p.pos++
		return a, nil
	}

	op := ""
	switch ch := p.peek(); ch {
	case '=':
		op = "="
		p.pos++
	case '~', '|', '^', '$', '*':
		if p.pos+1 < len(p.src) && p.src[p.pos+1] == '=' {
			op = string(ch) + "="
			p.pos += 2
		}
	}
	if op == "" {
		return AttrSel{}, fmt.Errorf("unexpected %q in attribute selector", p.peek())
	}
	p.skipSpace()

	var value string
	if q := p.peek(); q == '"' || q == '\'' {
		p.pos++
		var b strings.Builder
		for !p.eof() && p.peek() != q {
			if p.peek() == '\\' && p.pos+1 < len(p.src) {
				p.pos++
			}
			b.WriteByte(p.src[p.pos])
			p.pos++
		}
		if p.eof() {
			return AttrSel{}, fmt.Errorf("unterminated string in attribute selector")
		}
		p.pos++
		value = b.String()
	} else {
		value = p.ident()
	}
	p.skipSpace()
	// case-sensitivity flag
	if ch := p.peek(); ch == 'i' || ch == 's' || ch == 'I' || ch == 'S' {
		p.pos++
		p.skipSpace()
	}
	if p.peek() != ']' {
		return AttrSel{}, fmt.Errorf("expected ']' at %d", p.pos)
	}
	p.pos++
	a.Value, a.HasValue, a.Op = value, true, op
	return a, nil
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) ident() string {
	var b strings.Builder
	for !p.eof() {
		ch := p.peek()
		if ch == '\\' && p.pos+1 < len(p.src) {
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if !isNameChar(ch) {
			break
		}
		b.WriteByte(ch)
		p.pos++
	}
	return b.String()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isNameStart(ch byte) bool {
	return ch == '_' || ch == '-' || ch >= 0x80 || (ch|0x20 >= 'a' && ch|0x20 <= 'z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || (ch >= '0' && ch <= '9')
}

func pseudoName(p string) string {
	if i := strings.IndexByte(p, '('); i >= 0 {
		return p[:i]
	}
	return p
}
