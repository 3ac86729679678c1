package fix

import (
	"fmt"
	"strings"

	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
)

// guard returns the current text under span, or "" when fs is nil.
func guard(fs *source.FileSet, span source.Span) string {
	if fs == nil {
		return ""
	}
	return fs.Text(span)
}

// tagNameSpan is the span of the tag name inside the start tag.
func tagNameSpan(el *structure.Element) source.Span {
	start := el.StartTag.Start + 1
	return source.Span{File: el.StartTag.File, Start: start, End: start + uint32(len(el.Tag))}
}

func quoteAttr(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, "&quot;") + `"`
}

// InsertAttribute adds name="value" right after the tag name.
func InsertAttribute(title string, el *structure.Element, name, value string, opts ...Option) *issue.Fix {
	at := tagNameSpan(el)
	return InsertText(title, source.Point(at.File, at.End), " "+name+"="+quoteAttr(value), opts...)
}

// SetAttribute sets an attribute value, inserting the attribute when absent.
func SetAttribute(title string, fs *source.FileSet, el *structure.Element, name, value string, opts ...Option) *issue.Fix {
	a, ok := el.Attr(name)
	if !ok {
		return InsertAttribute(title, el, name, value, opts...)
	}
	if !a.HasValue {
		return ReplaceSpan(title, a.Span, name+"="+quoteAttr(value), guard(fs, a.Span), opts...)
	}
	return ReplaceSpan(title, a.ValueSpan, value, guard(fs, a.ValueSpan), opts...)
}

// RemoveAttribute deletes an attribute together with one preceding blank.
func RemoveAttribute(title string, fs *source.FileSet, el *structure.Element, name string, opts ...Option) *issue.Fix {
	a, ok := el.Attr(name)
	if !ok {
		return nil
	}
	span := a.Span
	if span.Start > 0 {
		prev := source.Span{File: span.File, Start: span.Start - 1, End: span.Start}
		if t := guard(fs, prev); t == " " || t == "\t" || t == "\n" {
			span.Start--
		}
	}
	return DeleteSpan(title, span, guard(fs, span), opts...)
}

// RenameElement replaces the tag name in the start tag (and end tag, when
// present). extra is appended to the start tag name, e.g. ` type="button"`.
func RenameElement(title string, fs *source.FileSet, el *structure.Element, tag, extra string, opts ...Option) *issue.Fix {
	start := tagNameSpan(el)
	f := ReplaceSpan(title, start, tag+extra, guard(fs, start), opts...)
	if !el.EndTag.Empty() {
		nameStart := el.EndTag.Start + 2
		end := source.Span{File: el.EndTag.File, Start: nameStart, End: nameStart + uint32(len(el.Tag))}
		f.Edits = append(f.Edits, issue.TextEdit{Span: end, NewText: tag, OldText: guard(fs, end)})
	}
	return f
}

// AppendToFile inserts text at the end of file id.
func AppendToFile(title string, fs *source.FileSet, id source.FileID, text string, opts ...Option) (*issue.Fix, error) {
	f := fs.Get(id)
	if f == nil {
		return nil, fmt.Errorf("fix: unknown file %d", id)
	}
	end := source.NewSpan(id, len(f.Content), len(f.Content))
	if len(f.Content) > 0 && f.Content[len(f.Content)-1] != '\n' {
		text = "\n" + text
	}
	return InsertText(title, end, text, opts...), nil
}
