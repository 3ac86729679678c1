package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a11ygraph/internal/fix"
	"a11ygraph/internal/report"
	"a11ygraph/internal/rules"
)

const hiddenButton = `<main>
<button aria-hidden="true">Go</button>
</main>
`

// site writes a page plus an empty config so discovery stops in the temp dir.
func site(t *testing.T, page string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a11ygraph.toml"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o600))
	return dir
}

func newTestCmd(t *testing.T, register func(*cobra.Command), args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	globalFlags(c.Flags())
	register(c)
	require.NoError(t, c.ParseFlags(args))
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetContext(context.Background())
	return c, &out
}

func exitCode(err error) int {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return 2
	}
	return 0
}

func TestCheckExitsOnErrorIssues(t *testing.T) {
	dir := site(t, hiddenButton)
	c, out := newTestCmd(t, initCheckFlags, "--no-cache", "--ui", "off", "--format", "short")
	err := runCheck(c, []string{dir})
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out.String(), "error "+rules.VisibilityFocusConflict)
	assert.Contains(t, out.String(), "index.html:2:")
}

func TestCheckJSONClean(t *testing.T) {
	dir := site(t, "<main><button>Go</button></main>\n")
	c, out := newTestCmd(t, initCheckFlags, "--no-cache", "--ui", "off", "--format", "json")
	require.NoError(t, runCheck(c, []string{dir}))

	var doc report.Output
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, 0, doc.Count)
	assert.False(t, doc.HasErrors)
}

func TestCheckStdin(t *testing.T) {
	dir := site(t, "")
	c, out := newTestCmd(t, initCheckFlags,
		"--no-cache", "--ui", "off", "--format", "short", "--stdin-name", "snippet.html",
		"--config", filepath.Join(dir, "a11ygraph.toml"))
	c.SetIn(strings.NewReader(hiddenButton))
	err := runCheck(c, []string{"-"})
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out.String(), "snippet.html:2:")
}

func TestCheckFlagsOverrideConfig(t *testing.T) {
	dir := site(t, hiddenButton)
	cfg := "[rules]\ndisable = [\"" + rules.VisibilityFocusConflict + "\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a11ygraph.toml"), []byte(cfg), 0o600))

	c, out := newTestCmd(t, initCheckFlags, "--no-cache", "--ui", "off", "--format", "short")
	require.NoError(t, runCheck(c, []string{dir}))
	assert.NotContains(t, out.String(), rules.VisibilityFocusConflict)

	c, _ = newTestCmd(t, initCheckFlags, "--no-cache", "--scope", "galaxy")
	err := runCheck(c, []string{dir})
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestFixOnceWritesAndRechecks(t *testing.T) {
	dir := site(t, hiddenButton)
	c, out := newTestCmd(t, initFixFlags, "--no-cache", "--once")
	require.NoError(t, runFix(c, []string{dir}))

	got, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(got), `<button tabindex="-1" aria-hidden="true">`)
	assert.Contains(t, out.String(), "Applied 1 fix(es):")
	assert.Contains(t, out.String(), "issue(s) remain")
}

func TestFixDryRunPrintsDiff(t *testing.T) {
	dir := site(t, hiddenButton)
	c, out := newTestCmd(t, initFixFlags, "--no-cache", "--once", "--dry-run")
	err := runFix(c, []string{dir})
	assert.Equal(t, 1, exitCode(err))

	got, readErr := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, readErr)
	assert.Equal(t, hiddenButton, string(got))
	assert.Contains(t, out.String(), "+++ ")
	assert.Contains(t, out.String(), `+<button tabindex="-1" aria-hidden="true">Go</button>`)
}

func TestFixOptions(t *testing.T) {
	tests := []struct {
		args    []string
		mode    fix.ApplyMode
		wantErr bool
	}{
		{nil, fix.ApplyModeOnce, false},
		{[]string{"--all"}, fix.ApplyModeAll, false},
		{[]string{"--id", "x@1"}, fix.ApplyModeID, false},
		{[]string{"--id", "x@1", "--all"}, 0, true},
		{[]string{"--all", "--once"}, 0, true},
	}
	for _, tt := range tests {
		c, _ := newTestCmd(t, initFixFlags, tt.args...)
		opts, err := fixOptions(c)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.args)
			continue
		}
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.mode, opts.Mode, "%v", tt.args)
	}
}

func TestRulesListing(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "a11ygraph.toml")
	body := "[rules]\ndisable = [\"" + rules.HoverOnlyReveal + "\"]\n[rules.severity]\n" + rules.DuplicateID + " = \"warning\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))

	c, out := newTestCmd(t, func(c *cobra.Command) {
		c.Flags().String("format", "pretty", "")
	}, "--config", cfg, "--format", "json")
	require.NoError(t, runRules(c, nil))

	var rows []ruleRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, rules.Default().Len())
	byName := map[string]ruleRow{}
	for _, r := range rows {
		byName[r.Name] = r
	}
	assert.False(t, byName[rules.HoverOnlyReveal].Enabled)
	assert.True(t, byName[rules.FocusOrderConflict].Enabled)
	assert.Equal(t, "warning", byName[rules.DuplicateID].Severity)
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := readUIMode("sometimes")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := parseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	lvl, err = parseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
	_, err = parseLogLevel("loud")
	assert.Error(t, err)
}
