package fix

import (
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

// Option mutates fix during construction.
type Option func(*issue.Fix)

// WithApplicability overrides applicability metadata.
func WithApplicability(app issue.FixApplicability) Option {
	return func(f *issue.Fix) {
		f.Applicability = app
	}
}

// WithKind overrides fix classification.
func WithKind(kind issue.FixKind) Option {
	return func(f *issue.Fix) {
		f.Kind = kind
	}
}

// Preferred marks fix as preferred suggestion.
func Preferred() Option {
	return func(f *issue.Fix) {
		f.IsPreferred = true
	}
}

// WithID sets stable identifier for fix.
func WithID(id string) Option {
	return func(f *issue.Fix) {
		f.ID = id
	}
}

func applyOptions(f issue.Fix, opts []Option) *issue.Fix {
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return &f
}

// InsertText creates fix that inserts text at span (Span.Start == Span.End).
func InsertText(title string, at source.Span, text string, opts ...Option) *issue.Fix {
	at.End = at.Start
	fix := issue.Fix{
		Title:         title,
		Kind:          issue.FixKindQuickFix,
		Applicability: issue.FixApplicabilityAlwaysSafe,
		Edits:         []issue.TextEdit{{Span: at, NewText: text}},
	}
	return applyOptions(fix, opts)
}

// DeleteSpan removes text covered by span.
func DeleteSpan(title string, span source.Span, expect string, opts ...Option) *issue.Fix {
	fix := issue.Fix{
		Title:         title,
		Kind:          issue.FixKindQuickFix,
		Applicability: issue.FixApplicabilityAlwaysSafe,
		Edits:         []issue.TextEdit{{Span: span, OldText: expect}},
	}
	return applyOptions(fix, opts)
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(title string, span source.Span, newText, expect string, opts ...Option) *issue.Fix {
	fix := issue.Fix{
		Title:         title,
		Kind:          issue.FixKindQuickFix,
		Applicability: issue.FixApplicabilityAlwaysSafe,
		Edits:         []issue.TextEdit{{Span: span, NewText: newText, OldText: expect}},
	}
	return applyOptions(fix, opts)
}

// Combine merges the edits of several fixes into one. Title and metadata
// come from the first fix.
func Combine(fixes ...*issue.Fix) *issue.Fix {
	var out *issue.Fix
	for _, f := range fixes {
		if f == nil {
			continue
		}
		if out == nil {
			cp := *f
			cp.Edits = append([]issue.TextEdit(nil), f.Edits...)
			out = &cp
			continue
		}
		out.Edits = append(out.Edits, f.Edits...)
		if f.Applicability > out.Applicability {
			out.Applicability = f.Applicability
		}
	}
	return out
}
