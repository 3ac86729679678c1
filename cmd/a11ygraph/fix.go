package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"a11ygraph/internal/driver"
	"a11ygraph/internal/fix"
	"a11ygraph/internal/report"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] [path...]",
	Short: "Apply available fixes to the checked files",
	Long: `Fix runs a check, selects fixes according to the chosen strategy and writes
them back. With --dry-run nothing is written and a unified diff is printed.`,
	Args: cobra.ArbitraryArgs,
	RunE: runFix,
}

func init() {
	initFixFlags(fixCmd)
}

func initFixFlags(cmd *cobra.Command) {
	checkFlags(cmd)
	cmd.Flags().Bool("all", false, "apply all always-safe fixes")
	cmd.Flags().Bool("once", false, "apply the first available fix (default)")
	cmd.Flags().String("id", "", "apply fix with a specific identifier")
	cmd.Flags().Bool("dry-run", false, "print a unified diff instead of writing files")
}

func fixOptions(cmd *cobra.Command) (fix.ApplyOptions, error) {
	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fix.ApplyOptions{}, err
	}
	applyOnce, err := cmd.Flags().GetBool("once")
	if err != nil {
		return fix.ApplyOptions{}, err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return fix.ApplyOptions{}, err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fix.ApplyOptions{}, err
	}

	if targetID != "" && (applyAll || applyOnce) {
		return fix.ApplyOptions{}, fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnce {
		return fix.ApplyOptions{}, fmt.Errorf("--all and --once are mutually exclusive")
	}

	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}
	return fix.ApplyOptions{Mode: mode, TargetID: targetID, DryRun: dryRun}, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	opts, err := fixOptions(cmd)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd, args)
	if err != nil {
		return err
	}
	coll, err := driver.Collect(p.list, args...)
	if err != nil {
		return err
	}
	res, err := driver.Check(cmd.Context(), coll, p.check)
	if err != nil {
		return fmt.Errorf("fix: check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	applied, applyErr := fix.Apply(res.Files, res.Issues, opts)
	if err := handleApplyResult(out, applied, applyErr); err != nil {
		return err
	}
	if opts.DryRun {
		if applied != nil && len(applied.FileChanges) > 0 {
			if err := report.Diff(out, applied.FileChanges); err != nil {
				return err
			}
		}
		if res.HasErrors() {
			return exitError{code: 1}
		}
		return nil
	}

	// повторная проверка: код выхода зависит от того, что осталось
	if applied == nil || len(applied.FileChanges) == 0 {
		if res.HasErrors() {
			return exitError{code: 1}
		}
		return nil
	}
	coll, err = driver.Collect(p.list, args...)
	if err != nil {
		return err
	}
	after, err := driver.Check(cmd.Context(), coll, p.check)
	if err != nil {
		return fmt.Errorf("fix: recheck failed: %w", err)
	}
	fmt.Fprintf(out, "%d issue(s) remain\n", len(after.Issues))
	if after.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

func handleApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error) error {
	if res == nil {
		return applyErr
	}

	if len(res.Applied) > 0 {
		fmt.Fprintf(out, "Applied %d fix(es):\n", len(res.Applied))
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(out, "  %s [%s]: %s (%d edits, %s)\n",
				item.Title, item.ID, location, item.EditCount, item.Applicability.String())
		}
	}

	if len(res.FileChanges) > 0 {
		fmt.Fprintln(out, "Updated files:")
		for _, change := range res.FileChanges {
			fmt.Fprintf(out, "  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(out, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(out, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			_, err := fmt.Fprintln(out, "No applicable fixes found.")
			return err
		}
		return applyErr
	}
	if len(res.Applied) == 0 {
		_, err := fmt.Fprintln(out, "No fixes applied.")
		return err
	}
	return nil
}
