package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/driver"
	"a11ygraph/internal/report"
	"a11ygraph/internal/ui"
	"a11ygraph/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [path...]",
	Short: "Analyze markup, scripts and styles for accessibility issues",
	Long: `Check collects every supported file under the given paths, merges them into
one document model and runs the analyzers. Pass "-" to read a single file
from stdin (see --stdin-name). Exits with status 1 when an error-severity
issue is reported.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	initCheckFlags(checkCmd)
}

func initCheckFlags(cmd *cobra.Command) {
	checkFlags(cmd)
	outputFlags(cmd)
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().Int("max", 0, "maximum number of issues in json output (0=all)")
	cmd.Flags().String("stdin-name", "stdin.html", "virtual file name used with \"-\"")
}

func outputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	cmd.Flags().String("path-mode", "auto", "path form in output (auto|absolute|relative|basename)")
	cmd.Flags().Bool("with-notes", false, "include related locations and confidence reasons")
	cmd.Flags().Bool("suggest", false, "include fix suggestions in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd, args)
	if err != nil {
		return err
	}
	coll, err := collect(cmd, p, args)
	if err != nil {
		return err
	}
	res, err := runPass(cmd, p, coll, "checking")
	if err != nil {
		return err
	}
	if err := render(cmd, cmd.OutOrStdout(), p, res); err != nil {
		return err
	}
	if res.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

// collect loads the targets, or stdin when the only target is "-".
func collect(cmd *cobra.Command, p *pipeline, args []string) (*driver.SourceCollection, error) {
	if len(args) == 1 && args[0] == "-" {
		name, _ := cmd.Flags().GetString("stdin-name")
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		coll := driver.NewSourceCollection(nil)
		coll.AddVirtual(name, content)
		return coll, nil
	}
	return driver.Collect(p.list, args...)
}

func unitPaths(coll *driver.SourceCollection) []string {
	out := make([]string, 0, len(coll.Units))
	base := coll.Files.BaseDir()
	for _, id := range coll.Units {
		out = append(out, coll.Files.Get(id).FormatPath("relative", base))
	}
	return out
}

type checkOutcome struct {
	result *driver.CheckResult
	err    error
}

// runPass runs one check, drawing the progress UI when enabled.
func runPass(cmd *cobra.Command, p *pipeline, coll *driver.SourceCollection, title string) (*driver.CheckResult, error) {
	ctx := cmd.Context()
	quiet, _ := cmd.Flags().GetBool("quiet")
	mode := uiModeOff
	if f := cmd.Flags().Lookup("ui"); f != nil {
		m, err := readUIMode(f.Value.String())
		if err != nil {
			return nil, err
		}
		mode = m
	}
	if quiet || coll.Len() < 2 || !shouldUseTUI(mode) {
		return driver.Check(ctx, coll, p.check)
	}
	return runPassWithUI(ctx, p.check, coll, title)
}

func runPassWithUI(ctx context.Context, opts driver.CheckOptions, coll *driver.SourceCollection, title string) (*driver.CheckResult, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		sink := ui.Sink{Ch: events}
		opts.Progress = sink.Unit
		opts.Phases = sink.Phase
		res, err := driver.Check(ctx, coll, opts)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, unitPaths(coll), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		slog.Warn("progress UI failed", "err", uiErr)
	}
	return outcome.result, outcome.err
}

func ruleInfos(reg *analyzer.Registry) []analyzer.Info {
	all := reg.All()
	out := make([]analyzer.Info, 0, len(all))
	for _, a := range all {
		out = append(out, analyzer.Describe(a))
	}
	return out
}

func render(cmd *cobra.Command, w io.Writer, p *pipeline, res *driver.CheckResult) error {
	format, err := report.ParseFormat(p.cfg.Output.Format)
	if err != nil {
		return err
	}
	pathMode, err := report.ParsePathMode(p.cfg.Output.PathMode)
	if err != nil {
		return err
	}
	data := report.Data{
		Files:       res.Files,
		Issues:      res.Issues,
		Diagnostics: res.Diagnostics,
		Faults:      res.Faults,
	}
	fl := cmd.Flags()
	withNotes, _ := fl.GetBool("with-notes")
	suggest, _ := fl.GetBool("suggest")
	timings, _ := fl.GetBool("timings")

	switch format {
	case report.FormatShort:
		return report.Short(w, data, pathMode)
	case report.FormatJSON:
		maxIssues, _ := fl.GetInt("max")
		return report.JSON(w, data, report.JSONOpts{
			PathMode:        pathMode,
			Max:             maxIssues,
			IncludePreviews: suggest,
		})
	case report.FormatSARIF:
		return report.Sarif(w, data, report.SarifRunMeta{
			ToolName:       appName,
			ToolVersion:    version.Version,
			InvocationArgs: os.Args,
			Rules:          ruleInfos(p.check.Analyzers),
			Refs:           p.check.Refs,
		})
	default:
		useColor, err := colorEnabled(cmd, os.Stdout)
		if err != nil {
			return err
		}
		return report.Pretty(w, data, report.PrettyOpts{
			Color:       useColor,
			PathMode:    pathMode,
			ShowNotes:   withNotes,
			ShowFixes:   suggest,
			ShowTimings: timings,
		})
	}
}
