package issue

import (
	"a11ygraph/internal/source"
)

// Location is a resolved span.
type Location struct {
	Path      string `json:"path"`
	Line      uint32 `json:"line"`
	Column    uint32 `json:"column"`
	EndLine   uint32 `json:"endLine"`
	EndColumn uint32 `json:"endColumn"`
	Start     uint32 `json:"start"`
	End       uint32 `json:"end"`
}

// EditRecord is a TextEdit with its file path.
type EditRecord struct {
	Location Location `json:"location"`
	NewText  string   `json:"newText"`
	OldText  string   `json:"oldText,omitempty"`
}

// FixRecord is the transport form of a Fix.
type FixRecord struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Applicability string       `json:"applicability"`
	Edits         []EditRecord `json:"edits"`
}

// Record is the flat transport form of an Issue.
type Record struct {
	Type             string     `json:"type"`
	Severity         string     `json:"severity"`
	Message          string     `json:"message"`
	Confidence       string     `json:"confidence"`
	ConfidenceReason string     `json:"confidenceReason"`
	TreeCompleteness float64    `json:"treeCompleteness"`
	Locations        []Location `json:"locations"`
	StandardsRefs    []string   `json:"standardsRefs,omitempty"`
	Fix              *FixRecord `json:"fix,omitempty"`
}

// Locate resolves a span against fs using pathMode (see source.File.FormatPath).
func Locate(fs *source.FileSet, sp source.Span, pathMode string) Location {
	loc := Location{Start: sp.Start, End: sp.End}
	if fs == nil {
		return loc
	}
	f := fs.Get(sp.File)
	if f == nil {
		return loc
	}
	start, end := fs.Resolve(sp)
	loc.Path = f.FormatPath(pathMode, fs.BaseDir())
	loc.Line, loc.Column = start.Line, start.Col
	loc.EndLine, loc.EndColumn = end.Line, end.Col
	return loc
}

// ToRecord flattens is for transport.
func ToRecord(fs *source.FileSet, is Issue, pathMode string) Record {
	r := Record{
		Type:             is.Type,
		Severity:         is.Severity.Lower(),
		Message:          is.Message,
		Confidence:       is.Confidence.Level.String(),
		ConfidenceReason: is.Confidence.Reason,
		TreeCompleteness: is.Confidence.TreeCompleteness,
		Locations:        make([]Location, 0, len(is.Locations)),
		StandardsRefs:    is.StandardsRefs,
	}
	for _, sp := range is.Locations {
		r.Locations = append(r.Locations, Locate(fs, sp, pathMode))
	}
	if is.Fix != nil {
		fr := &FixRecord{
			ID:            is.Fix.ID,
			Title:         is.Fix.Title,
			Applicability: is.Fix.Applicability.String(),
			Edits:         make([]EditRecord, 0, len(is.Fix.Edits)),
		}
		for _, e := range is.Fix.Edits {
			fr.Edits = append(fr.Edits, EditRecord{Location: Locate(fs, e.Span, pathMode), NewText: e.NewText, OldText: e.OldText})
		}
		r.Fix = fr
	}
	return r
}

// ToRecords flattens a list of issues.
func ToRecords(fs *source.FileSet, issues []Issue, pathMode string) []Record {
	out := make([]Record, 0, len(issues))
	for _, is := range issues {
		out = append(out, ToRecord(fs, is, pathMode))
	}
	return out
}
