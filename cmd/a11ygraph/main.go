package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"a11ygraph/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "a11ygraph",
	Short: "Cross-file accessibility analyzer for markup, scripts and styles",
	Long: `a11ygraph merges the structure, behavior and style of a page into one
document model and reports accessibility problems that no single file shows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code without printing anything: the
// report has already been written.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)

	globalFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentPreRunE = setup
}

// Глобальные флаги
func globalFlags(fs *pflag.FlagSet) {
	fs.String("color", "auto", "colorize output (auto|on|off)")
	fs.Bool("quiet", false, "suppress non-essential output")
	fs.Bool("timings", false, "show timing information")
	fs.String("log-level", "warn", "log level (debug|info|warn|error)")
	fs.String("config", "", "path to a11ygraph.toml (default: search upwards)")
	fs.String("cpu-profile", "", "write a CPU profile to this file")
	fs.String("mem-profile", "", "write a heap profile to this file on exit")
	fs.String("runtime-trace", "", "write a runtime trace to this file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if perr := profiler.Stop(); perr != nil {
		fmt.Fprintln(os.Stderr, "profiling:", perr)
	}
	if err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
