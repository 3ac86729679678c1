package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"a11ygraph/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the analyzers with their default severity and references",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type ruleRow struct {
	Name      string   `json:"name"`
	Summary   string   `json:"summary"`
	Severity  string   `json:"severity"`
	FileScope bool     `json:"file_scope"`
	Fixable   bool     `json:"fixable"`
	Enabled   bool     `json:"enabled"`
	Refs      []string `json:"refs,omitempty"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	enabled, err := cfg.Registry()
	if err != nil {
		return err
	}
	overrides, err := cfg.SeverityOverrides()
	if err != nil {
		return err
	}
	refs := cfg.Refs()

	var rows []ruleRow
	for _, info := range ruleInfos(rules.Default()) {
		sev := info.Severity
		if o, ok := overrides[info.Name]; ok {
			sev = o
		}
		_, on := enabled.Get(info.Name)
		rows = append(rows, ruleRow{
			Name:      info.Name,
			Summary:   info.Summary,
			Severity:  sev.Lower(),
			FileScope: info.FileScope,
			Fixable:   info.Fixable,
			Enabled:   on,
			Refs:      refs[info.Name],
		})
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "pretty", "":
		printRules(out, rows)
		return nil
	}
	return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
}

func printRules(out io.Writer, rows []ruleRow) {
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.Name))
	}
	for _, r := range rows {
		flags := make([]string, 0, 3)
		if r.FileScope {
			flags = append(flags, "file")
		}
		if r.Fixable {
			flags = append(flags, "fix")
		}
		if !r.Enabled {
			flags = append(flags, "disabled")
		}
		fmt.Fprintf(out, "%s  %-7s  %s", runewidth.FillRight(r.Name, width), r.Severity, r.Summary)
		if len(flags) > 0 {
			fmt.Fprintf(out, " [%s]", strings.Join(flags, ", "))
		}
		if len(r.Refs) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(r.Refs, "; "))
		}
		fmt.Fprintln(out)
	}
}
