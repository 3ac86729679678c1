package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLineIncludesOverrides(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version = "1.2.3"
	GitCommit = "1234567890abcdef1234567890abcdef12345678"
	BuildDate = "2024-01-15T10:30:00Z"

	want := "a11ygraph 1.2.3 (1234567890ab) built 2024-01-15T10:30:00Z"
	if got := Line(false); got != want {
		t.Errorf("Line = %q, want %q", got, want)
	}
}

func TestColoredKeepsText(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, v := range []string{"0.1.0", "1.0.0-beta.1", "2.0.0-rc.1+build.7", "snapshot"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored(%q) = %q", v, got)
		}
	}
}

func TestLineWithoutMetadata(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()
	GitCommit, BuildDate = "", ""

	if got := Line(false); !strings.HasPrefix(got, "a11ygraph "+Version) {
		t.Errorf("Line = %q", got)
	}
	if strings.Contains(Line(false), "built") {
		t.Error("no build date expected")
	}
}
