package dialect

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the source dialect of a unit.
type Kind uint8

const (
	Unknown Kind = iota
	Markup
	Script
	Style

	kindCount
)

func (k Kind) String() string {
	switch k {
	case Markup:
		return "markup"
	case Script:
		return "script"
	case Style:
		return "style"
	default:
		return "unknown"
	}
}

func (k Kind) GoString() string {
	return fmt.Sprintf("dialect.Kind(%s)", k.String())
}

// Parse accepts the names produced by String and a few common aliases.
func Parse(v string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "markup", "html":
		return Markup, nil
	case "script", "js", "javascript", "ts", "typescript":
		return Script, nil
	case "style", "css":
		return Style, nil
	case "unknown", "":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown dialect %q", v)
}

var byExtension = map[string]Kind{
	".html":  Markup,
	".htm":   Markup,
	".xhtml": Markup,
	".js":    Script,
	".mjs":   Script,
	".cjs":   Script,
	".jsx":   Script,
	".ts":    Script,
	".tsx":   Script,
	".css":   Style,
}

// FromPath classifies by extension alone.
func FromPath(path string) Kind {
	return byExtension[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether path has an extension a front end reads.
func Supported(path string) bool {
	return FromPath(path) != Unknown
}

// Extensions returns the recognized extensions of k.
func Extensions(k Kind) []string {
	var out []string
	for ext, kind := range byExtension {
		if kind == k {
			out = append(out, ext)
		}
	}
	return out
}

// minScore is the evidence a content guess needs before it is trusted.
const minScore = 6

// Detect classifies path, falling back to content evidence for unknown
// extensions and virtual inputs.
func Detect(path string, content []byte) Kind {
	if k := FromPath(path); k != Unknown {
		return k
	}
	c := Classifier{}.Classify(Scan(content))
	if c.Score < minScore || c.Score == c.RunnerUpScore {
		return Unknown
	}
	return c.Kind
}
