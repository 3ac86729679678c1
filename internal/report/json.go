package report

import (
	"encoding/json"
	"fmt"
	"io"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/issue"
)

// IssueJSON is an issue record, optionally with previews of its fix edits.
type IssueJSON struct {
	issue.Record
	Preview []EditPreview `json:"preview,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string          `json:"message"`
	Location *issue.Location `json:"location,omitempty"`
}

// DiagnosticJSON is a parse diagnostic.
type DiagnosticJSON struct {
	Severity string          `json:"severity"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Location *issue.Location `json:"location,omitempty"`
	Notes    []NoteJSON      `json:"notes,omitempty"`
}

// Output is the root of the JSON document.
type Output struct {
	Issues      []IssueJSON      `json:"issues"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Faults      []string         `json:"faults,omitempty"`
	Count       int              `json:"count"`
	HasErrors   bool             `json:"hasErrors"`
}

// BuildOutput формирует структуру JSON-вывода без сериализации.
func BuildOutput(data Data, opts JSONOpts) Output {
	pathMode := opts.PathMode.String()
	issues := data.Issues
	if opts.Max > 0 && opts.Max < len(issues) {
		issues = issues[:opts.Max]
	}

	out := Output{
		Issues:      make([]IssueJSON, 0, len(issues)),
		Diagnostics: make([]DiagnosticJSON, 0, len(data.Diagnostics)),
		HasErrors:   issue.HasErrors(data.Issues),
	}
	for _, is := range issues {
		rec := IssueJSON{Record: issue.ToRecord(data.Files, is, pathMode)}
		if opts.IncludePreviews && is.Fix != nil {
			for _, e := range is.Fix.Edits {
				if p, err := buildEditPreview(data.Files, e); err == nil {
					rec.Preview = append(rec.Preview, p)
				}
			}
		}
		out.Issues = append(out.Issues, rec)
	}
	out.Count = len(out.Issues)

	for _, d := range data.Diagnostics {
		dj := DiagnosticJSON{
			Severity: d.Severity.Lower(),
			Code:     d.Code.ID(),
			Message:  d.Message,
		}
		if d.Code.Located() {
			loc := issue.Locate(data.Files, d.Primary, pathMode)
			dj.Location = &loc
		}
		for _, n := range d.Notes {
			nj := NoteJSON{Message: n.Msg}
			if d.Code.Located() {
				loc := issue.Locate(data.Files, n.Span, pathMode)
				nj.Location = &loc
			}
			dj.Notes = append(dj.Notes, nj)
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	for _, f := range data.Faults {
		out.Faults = append(out.Faults, f.Error())
	}
	return out
}

// JSON пишет находки и диагностики одним JSON-документом.
func JSON(w io.Writer, data Data, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildOutput(data, opts))
}

// Short writes one line per issue, then the short form of the diagnostics.
func Short(w io.Writer, data Data, pathMode PathMode) error {
	for _, is := range data.Issues {
		loc := issue.Locate(data.Files, is.Primary(), pathMode.String())
		if _, err := io.WriteString(w, shortLine(loc, is)); err != nil {
			return err
		}
	}
	var located []diag.Diagnostic
	for _, d := range data.Diagnostics {
		if d.Code.Located() {
			located = append(located, d)
		}
	}
	if s := diag.FormatShortDiagnostics(located, data.Files, false); s != "" {
		if _, err := io.WriteString(w, s+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func shortLine(loc issue.Location, is issue.Issue) string {
	return fmt.Sprintf("%s:%d:%d: %s %s %s %s\n", loc.Path, loc.Line, loc.Column,
		is.Severity.Lower(), is.Type, is.Confidence.Level, diag.SanitizeMessage(is.Message))
}
