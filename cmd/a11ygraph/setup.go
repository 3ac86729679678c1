package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"a11ygraph/internal/config"
	"a11ygraph/internal/driver"
	"a11ygraph/internal/frontend"
	"a11ygraph/internal/prof"
)

const appName = "a11ygraph"

func parseLogLevel(v string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return lvl, fmt.Errorf("invalid --log-level %q", v)
	}
	return lvl, nil
}

// setup runs before every command: logging first, then the global color
// switch used by version output.
func setup(cmd *cobra.Command, _ []string) error {
	raw, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	lvl, err := parseLogLevel(raw)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	useColor, err := colorEnabled(cmd, os.Stdout)
	if err != nil {
		return err
	}
	color.NoColor = !useColor
	return startProfiling(cmd)
}

// profiler is stopped by main after the command returns, even on error.
var profiler *prof.Profiler

func startProfiling(cmd *cobra.Command) error {
	var opts prof.Options
	var err error
	if opts.CPU, err = cmd.Flags().GetString("cpu-profile"); err != nil {
		return err
	}
	if opts.Mem, err = cmd.Flags().GetString("mem-profile"); err != nil {
		return err
	}
	if opts.Trace, err = cmd.Flags().GetString("runtime-trace"); err != nil {
		return err
	}
	if !opts.Enabled() {
		return nil
	}
	profiler, err = prof.Start(opts)
	return err
}

// colorEnabled resolves --color against the terminal state of f.
func colorEnabled(cmd *cobra.Command, f *os.File) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "", "auto":
		return isTerminal(f) && !color.NoColor, nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI draws the progress UI on stderr so stdout stays parseable.
func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stderr)
	}
}

// loadConfig reads --config or searches upwards from the first target.
// A missing file is not an error.
func loadConfig(cmd *cobra.Command, targets []string) (*config.Config, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if explicit != "" {
		return config.Load(explicit)
	}
	start := "."
	if len(targets) > 0 {
		start = targets[0]
		if st, err := os.Stat(start); err == nil && !st.IsDir() {
			start = filepath.Dir(start)
		}
	}
	cfg, err := config.Discover(start)
	if errors.Is(err, config.ErrConfigNotFound) {
		slog.Debug("no config file", "from", start)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", cfg.Path)
	return cfg, nil
}

// checkFlags registers the flags shared by check, fix and watch. Each one
// overrides the matching config key when set.
func checkFlags(cmd *cobra.Command) {
	cmd.Flags().String("scope", "", "analysis scope (file|page|workspace)")
	cmd.Flags().Int("jobs", 0, "max parallel parser workers (0=auto)")
	cmd.Flags().String("min-confidence", "", "drop issues below this confidence (low|medium|high)")
	cmd.Flags().StringSlice("disable", nil, "analyzers to disable")
	cmd.Flags().StringSlice("exclude", nil, "additional exclude patterns")
	cmd.Flags().Bool("no-cache", false, "disable the parsed model cache")
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("scope") {
		v, _ := fl.GetString("scope")
		cfg.Analysis.Scope = v
	}
	if fl.Changed("jobs") {
		v, _ := fl.GetInt("jobs")
		cfg.Analysis.Jobs = v
	}
	if fl.Changed("min-confidence") {
		v, _ := fl.GetString("min-confidence")
		cfg.Output.MinConfidence = v
	}
	if fl.Changed("disable") {
		v, _ := fl.GetStringSlice("disable")
		cfg.Rules.Disable = append(cfg.Rules.Disable, v...)
	}
	if fl.Changed("exclude") {
		v, _ := fl.GetStringSlice("exclude")
		cfg.Analysis.Exclude = append(cfg.Analysis.Exclude, v...)
	}
	if fl.Changed("no-cache") {
		v, _ := fl.GetBool("no-cache")
		if v {
			cfg.Cache.Disk = false
		}
	}
	if f := fl.Lookup("format"); f != nil && f.Changed {
		cfg.Output.Format = f.Value.String()
	}
	if f := fl.Lookup("path-mode"); f != nil && f.Changed {
		cfg.Output.PathMode = f.Value.String()
	}
	return cfg.Validate()
}

// pipeline is the resolved configuration of one command.
type pipeline struct {
	cfg   *config.Config
	list  driver.ListOptions
	check driver.CheckOptions
}

func newPipeline(cmd *cobra.Command, targets []string) (*pipeline, error) {
	cfg, err := loadConfig(cmd, targets)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	checkOpts, err := cfg.CheckOptions()
	if err != nil {
		return nil, err
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")
	if !noCache {
		cache, err := cfg.OpenCache(appName)
		if err != nil {
			// кэш необязателен
			slog.Warn("cache disabled", "err", err)
		} else {
			checkOpts.Cache = cache
		}
	}
	timings, _ := cmd.Flags().GetBool("timings")
	checkOpts.Timings = timings
	checkOpts.Logger = slog.Default()
	checkOpts.Registry = frontend.Default(slog.Default())

	list := cfg.ListOptions()
	list.Logger = slog.Default()
	return &pipeline{cfg: cfg, list: list, check: checkOpts}, nil
}
