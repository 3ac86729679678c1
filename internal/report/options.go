// Package report renders check results: a colored terminal format, a
// one-line-per-finding short format, JSON records, SARIF 2.1.0 and unified
// diffs of fixes.
package report

import (
	"fmt"
	"strings"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto chooses relative or absolute path automatically.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// String returns the mode name understood by source.File.FormatPath.
func (m PathMode) String() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// ParsePathMode accepts the names produced by String.
func ParsePathMode(v string) (PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return PathModeAuto, nil
	case "absolute", "abs":
		return PathModeAbsolute, nil
	case "relative", "rel":
		return PathModeRelative, nil
	case "basename", "base":
		return PathModeBasename, nil
	}
	return PathModeAuto, fmt.Errorf("unknown path mode %q", v)
}

// Format is an output format.
type Format uint8

const (
	FormatPretty Format = iota
	FormatShort
	FormatJSON
	FormatSARIF
)

var formatNames = [...]string{"pretty", "short", "json", "sarif"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

// ParseFormat accepts the names produced by String.
func ParseFormat(v string) (Format, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return FormatPretty, nil
	}
	for i, n := range formatNames {
		if n == v {
			return Format(i), nil
		}
	}
	return FormatPretty, fmt.Errorf("unknown format %q (want %s)", v, strings.Join(formatNames[:], ", "))
}

// Data is what every renderer consumes.
type Data struct {
	Files       *source.FileSet
	Issues      []issue.Issue
	Diagnostics []diag.Diagnostic
	Faults      []analyzer.Fault
}

// PrettyOpts configures pretty-printing.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool // secondary locations and confidence reasons
	ShowFixes bool
	// ShowTimings prints ObsTimings diagnostics, hidden otherwise.
	ShowTimings bool
}

// JSONOpts configures JSON output.
type JSONOpts struct {
	PathMode        PathMode
	Max             int // обрезка вывода, 0 без ограничений
	IncludePreviews bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InformationURI string
	InvocationArgs []string
	Rules          []analyzer.Info
	Refs           map[string][]string
}
