package style

import (
	"strings"

	"a11ygraph/internal/source"
)

// ParseInline splits the text of a style attribute into declarations. span
// is the attribute value span; declaration spans are derived from it when
// the value maps one-to-one onto source bytes.
func ParseInline(value string, span source.Span) []Decl {
	exact := int(span.Len()) == len(value)
	var out []Decl
	start := 0
	for start <= len(value) {
		end := strings.IndexByte(value[start:], ';')
		if end < 0 {
			end = len(value)
		} else {
			end += start
		}
		if d, ok := ParseDecl(value[start:end]); ok {
			d.Span = span
			if exact {
				lead := len(value[start:end]) - len(strings.TrimLeft(value[start:end], " \t\n\r\f"))
				trimmed := strings.TrimSpace(value[start:end])
				d.Span = source.NewSpan(span.File, int(span.Start)+start+lead, int(span.Start)+start+lead+len(trimmed))
			}
			out = append(out, d)
		}
		start = end + 1
	}
	return out
}

// ParseDecl parses "property: value [!important]".
func ParseDecl(text string) (Decl, bool) {
	prop, value, ok := strings.Cut(text, ":")
	if !ok {
		return Decl{}, false
	}
	prop = strings.ToLower(strings.TrimSpace(prop))
	value = strings.TrimSpace(value)
	if prop == "" {
		return Decl{}, false
	}
	d := Decl{Property: prop}
	if i := strings.LastIndex(value, "!"); i >= 0 && strings.EqualFold(strings.TrimSpace(value[i+1:]), "important") {
		d.Important = true
		value = strings.TrimSpace(value[:i])
	}
	d.Value = value
	return d, true
}
