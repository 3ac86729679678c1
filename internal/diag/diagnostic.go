package diag

import (
	"a11ygraph/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is a parse-time finding produced by a front end or the driver.
// Accessibility findings are issue.Issue values, not diagnostics.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}
