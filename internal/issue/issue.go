// Package issue defines accessibility findings: the Issue record with its
// confidence and optional fix, deterministic ordering, and the flat Record
// used at the reporting boundary.
package issue

import (
	"cmp"
	"slices"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/source"
)

// Confidence says how far an issue can be trusted given the state of the
// graph it was found in.
type Confidence struct {
	Level            document.Level
	Reason           string
	TreeCompleteness float64
}

// Issue is one finding. Values are created by analyzers and not mutated
// afterwards; helpers below return modified copies.
type Issue struct {
	Type          string
	Severity      diag.Severity
	Message       string
	Confidence    Confidence
	Locations     []source.Span // primary first
	StandardsRefs []string
	Subject       string // id of the node the issue is about
	Fix           *Fix
}

// Primary returns the first location.
func (i *Issue) Primary() source.Span {
	if len(i.Locations) == 0 {
		return source.Span{}
	}
	return i.Locations[0]
}

// WithSeverity returns a copy with sev.
func (i Issue) WithSeverity(sev diag.Severity) Issue {
	i.Severity = sev
	return i
}

// WithRefs returns a copy carrying refs.
func (i Issue) WithRefs(refs []string) Issue {
	i.StandardsRefs = slices.Clone(refs)
	return i
}

// Compare orders issues by primary location, then type, subject and
// message.
func Compare(a, b Issue) int {
	pa, pb := a.Primary(), b.Primary()
	return cmp.Or(
		cmp.Compare(pa.File, pb.File),
		cmp.Compare(pa.Start, pb.Start),
		cmp.Compare(pa.End, pb.End),
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.Subject, b.Subject),
		cmp.Compare(a.Message, b.Message),
	)
}

// Sort orders issues deterministically in place.
func Sort(issues []Issue) {
	slices.SortStableFunc(issues, Compare)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity >= diag.SevError })
}

// Filter keeps issues whose level is at least minLevel.
func Filter(issues []Issue, minLevel document.Level) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Confidence.Level >= minLevel {
			out = append(out, is)
		}
	}
	return out
}
