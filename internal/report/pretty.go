package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

type palette struct {
	err, warn, info, path, gutter, caret, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.gutter, p.caret, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch {
	case sev >= diag.SevError:
		return p.err
	case sev == diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty пишет находки и диагностики в человекочитаемом виде:
// <path>:<line>:<col>: <severity>[<type>]: <message>
// затем строку исходника с подчёркиванием ^~~~ по span.
func Pretty(w io.Writer, data Data, opts PrettyOpts) error {
	pr := &prettyPrinter{w: w, fs: data.Files, opts: opts, p: newPalette(opts.Color)}
	for i := range data.Issues {
		pr.issue(&data.Issues[i])
	}
	for i := range data.Diagnostics {
		d := &data.Diagnostics[i]
		if d.Code == diag.ObsTimings && !opts.ShowTimings {
			continue
		}
		pr.diagnostic(d)
	}
	for _, f := range data.Faults {
		pr.printf("%s %s\n", pr.p.err.Sprint("fault:"), f.Error())
	}
	pr.summary(data)
	return pr.err
}

type prettyPrinter struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
	p    palette
	err  error
}

func (pr *prettyPrinter) printf(format string, args ...any) {
	if pr.err != nil {
		return
	}
	_, pr.err = fmt.Fprintf(pr.w, format, args...)
}

func (pr *prettyPrinter) where(sp source.Span) string {
	loc := issue.Locate(pr.fs, sp, pr.opts.PathMode.String())
	if loc.Path == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", loc.Path, loc.Line, loc.Column)
}

func (pr *prettyPrinter) issue(is *issue.Issue) {
	sev := pr.p.severity(is.Severity)
	pr.printf("%s: %s: %s %s\n",
		pr.p.path.Sprint(pr.where(is.Primary())),
		sev.Sprintf("%s[%s]", is.Severity.Lower(), is.Type),
		is.Message,
		pr.p.dim.Sprintf("(%s)", is.Confidence.Level))
	pr.excerpt(is.Primary())

	if pr.opts.ShowNotes {
		for _, sp := range is.Locations[min(1, len(is.Locations)):] {
			pr.printf("  %s %s\n", pr.p.info.Sprint("note:"), pr.where(sp))
			pr.excerpt(sp)
		}
		if is.Confidence.Reason != "" {
			pr.printf("  %s %s\n", pr.p.info.Sprint("confidence:"), is.Confidence.Reason)
		}
	}
	if len(is.StandardsRefs) > 0 {
		pr.printf("  %s %s\n", pr.p.info.Sprint("refs:"), strings.Join(is.StandardsRefs, ", "))
	}
	if pr.opts.ShowFixes && is.Fix != nil {
		pr.printf("  %s %s %s\n", pr.p.caret.Sprint("fix:"), is.Fix.Title,
			pr.p.dim.Sprintf("[%s, %s]", is.Fix.ID, is.Fix.Applicability))
	}
}

func (pr *prettyPrinter) diagnostic(d *diag.Diagnostic) {
	sev := pr.p.severity(d.Severity)
	head := sev.Sprintf("%s %s", d.Severity.Lower(), d.Code.ID())
	if !d.Code.Located() {
		pr.printf("%s: %s\n", head, d.Message)
		return
	}
	pr.printf("%s: %s: %s\n", pr.p.path.Sprint(pr.where(d.Primary)), head, d.Message)
	pr.excerpt(d.Primary)
	if pr.opts.ShowNotes {
		for _, n := range d.Notes {
			pr.printf("  %s %s\n", pr.p.info.Sprint("note:"), n.Msg)
		}
	}
}

// excerpt prints the first line of sp with a caret underline. Column widths
// follow the terminal cell width of the text, so wide runes stay aligned.
func (pr *prettyPrinter) excerpt(sp source.Span) {
	if pr.fs == nil {
		return
	}
	f := pr.fs.Get(sp.File)
	if f == nil || int(sp.End) > len(f.Content) {
		return
	}
	start, end := pr.fs.Resolve(sp)
	line := f.GetLine(start.Line)
	if start.Line == 0 {
		return
	}
	col := min(int(start.Col)-1, len(line))
	stop := len(line)
	if end.Line == start.Line {
		stop = min(int(end.Col)-1, len(line))
	}
	stop = max(stop, col)

	num := fmt.Sprintf("%d", start.Line)
	pad := strings.Repeat(" ", len(num))
	pr.printf("%s %s %s\n", pr.p.gutter.Sprint(num), pr.p.gutter.Sprint("|"), line)
	width := max(1, runewidth.StringWidth(line[col:stop]))
	pr.printf("%s %s %s%s\n", pad, pr.p.gutter.Sprint("|"), indent(line[:col]),
		pr.p.caret.Sprint("^"+strings.Repeat("~", width-1)))
}

// indent reproduces the visual width of prefix, keeping tabs as tabs.
func indent(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func (pr *prettyPrinter) summary(data Data) {
	var errs, warns int
	for _, is := range data.Issues {
		switch {
		case is.Severity >= diag.SevError:
			errs++
		case is.Severity == diag.SevWarning:
			warns++
		}
	}
	if len(data.Issues) == 0 {
		pr.printf("%s\n", pr.p.caret.Sprint("no accessibility issues found"))
		return
	}
	pr.printf("%s issue%s (%s, %s)\n",
		pr.p.path.Sprint(len(data.Issues)), plural(len(data.Issues)),
		pr.p.err.Sprintf("%d error%s", errs, plural(errs)),
		pr.p.warn.Sprintf("%d warning%s", warns, plural(warns)))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
