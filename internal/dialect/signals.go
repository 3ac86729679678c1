package dialect

import (
	"bytes"
	"regexp"
)

type contentSignal struct {
	Dialect Kind
	Score   int
	Reason  string
	re      *regexp.Regexp
	// once counts the signal a single time however often it matches
	once bool
}

var contentSignals = []contentSignal{
	// markup
	{Dialect: Markup, Score: 8, Reason: "doctype declaration", re: regexp.MustCompile(`(?i)<!doctype\s+html`), once: true},
	{Dialect: Markup, Score: 6, Reason: "<html> root", re: regexp.MustCompile(`(?i)<html[\s>]`), once: true},
	{Dialect: Markup, Score: 2, Reason: "closing tag", re: regexp.MustCompile(`</[a-zA-Z][a-zA-Z0-9-]*>`)},
	{Dialect: Markup, Score: 1, Reason: "quoted attribute", re: regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9-]*\s+[a-z-]+="`)},

	// script
	{Dialect: Script, Score: 4, Reason: "addEventListener call", re: regexp.MustCompile(`\.addEventListener\s*\(`)},
	{Dialect: Script, Score: 3, Reason: "document query", re: regexp.MustCompile(`document\.(querySelector|querySelectorAll|getElementById)\s*\(`)},
	{Dialect: Script, Score: 2, Reason: "variable declaration", re: regexp.MustCompile(`(?m)^\s*(const|let|var)\s+[A-Za-z_$]`)},
	{Dialect: Script, Score: 2, Reason: "function declaration", re: regexp.MustCompile(`\bfunction\s*[A-Za-z_$]*\s*\(`)},
	{Dialect: Script, Score: 1, Reason: "arrow function", re: regexp.MustCompile(`\)\s*=>`)},
	{Dialect: Script, Score: 3, Reason: "module import", re: regexp.MustCompile(`(?m)^\s*(import\s.+from\s|export\s+(default|const|function))`), once: true},

	// style
	{Dialect: Style, Score: 3, Reason: "at-rule", re: regexp.MustCompile(`(?m)^\s*@(media|supports|import|font-face|keyframes)\b`)},
	{Dialect: Style, Score: 2, Reason: "rule block", re: regexp.MustCompile(`(?m)^[^{};<>()=]+\{\s*[a-z-]+\s*:[^;{}]+;`)},
	{Dialect: Style, Score: 2, Reason: "state pseudo-class rule", re: regexp.MustCompile(`:(hover|focus|focus-visible|focus-within)\s*[,{]`)},
}

// maxHintsPerSignal bounds the contribution of one repeated signal.
const maxHintsPerSignal = 8

// Scan collects content evidence from text.
func Scan(text []byte) *Evidence {
	e := NewEvidence()
	// script content embedded in markup would otherwise outweigh the tags
	text = stripEmbedded(text)
	for _, sig := range contentSignals {
		limit := maxHintsPerSignal
		if sig.once {
			limit = 1
		}
		for _, loc := range sig.re.FindAllIndex(text, limit) {
			e.Add(Hint{Dialect: sig.Dialect, Score: sig.Score, Reason: sig.Reason, Offset: loc[0]})
		}
	}
	return e
}

var embedded = regexp.MustCompile(`(?is)(<script[^>]*>)(.*?)(</script>)|(<style[^>]*>)(.*?)(</style>)`)

// stripEmbedded blanks the bodies of script and style elements, keeping the
// tags and byte offsets.
func stripEmbedded(text []byte) []byte {
	locs := embedded.FindAllSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	out := bytes.Clone(text)
	for _, m := range locs {
		for _, g := range [][2]int{{m[4], m[5]}, {m[10], m[11]}} {
			if g[0] < 0 {
				continue
			}
			for i := g[0]; i < g[1]; i++ {
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
		}
	}
	return out
}
