// Package version holds build metadata for the a11ygraph CLI.
// The variables are overridden at build time via -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Commit returns GitCommit, falling back to the vcs revision stamped by the
// go tool.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// Colored renders Version with each numeric part highlighted.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Line is the single-line form printed by `a11ygraph version`.
func Line(colored bool) string {
	v := Version
	if colored {
		v = Colored()
	}
	line := "a11ygraph " + v
	if c := Commit(); c != "" {
		if len(c) > 12 {
			c = c[:12]
		}
		line += fmt.Sprintf(" (%s)", c)
	}
	if BuildDate != "" {
		line += " built " + BuildDate
	}
	return line
}
