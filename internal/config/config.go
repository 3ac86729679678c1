// Package config loads the a11ygraph.toml (or a11ygraph.yaml) file that
// tunes a check: analysis scope, rule selection, caching and output.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/driver"
	"a11ygraph/internal/report"
	"a11ygraph/internal/rules"
)

// Names lists the configuration file names in lookup order.
var Names = []string{"a11ygraph.toml", "a11ygraph.yaml", "a11ygraph.yml"}

var (
	ErrConfigNotFound = errors.New("a11ygraph config not found")
	ErrUnknownKeys    = errors.New("unknown configuration keys")
	ErrInvalid        = errors.New("invalid configuration")
)

type Analysis struct {
	Scope       string   `toml:"scope" yaml:"scope"`
	Jobs        int      `toml:"jobs" yaml:"jobs"`
	Exclude     []string `toml:"exclude" yaml:"exclude"`
	MaxFileSize int64    `toml:"max_file_size" yaml:"max_file_size"`
}

type Rules struct {
	Disable  []string            `toml:"disable" yaml:"disable"`
	Severity map[string]string   `toml:"severity" yaml:"severity"`
	Refs     map[string][]string `toml:"refs" yaml:"refs"`
}

type Cache struct {
	MemoryEntries int    `toml:"memory_entries" yaml:"memory_entries"`
	Disk          bool   `toml:"disk" yaml:"disk"`
	Dir           string `toml:"dir" yaml:"dir"`
}

type Output struct {
	Format        string `toml:"format" yaml:"format"`
	MinConfidence string `toml:"min_confidence" yaml:"min_confidence"`
	PathMode      string `toml:"path_mode" yaml:"path_mode"`
}

// Config is the decoded file. Path and Root stay empty for Defaults.
type Config struct {
	Path string `toml:"-" yaml:"-"`
	Root string `toml:"-" yaml:"-"`

	Analysis Analysis `toml:"analysis" yaml:"analysis"`
	Rules    Rules    `toml:"rules" yaml:"rules"`
	Cache    Cache    `toml:"cache" yaml:"cache"`
	Output   Output   `toml:"output" yaml:"output"`
}

// Defaults returns the configuration used when no file is found.
func Defaults() *Config {
	return &Config{
		Analysis: Analysis{
			Scope:       document.ScopeWorkspace.String(),
			Exclude:     append([]string(nil), driver.DefaultExcludes...),
			MaxFileSize: driver.DefaultMaxFileSize,
		},
		Cache: Cache{
			MemoryEntries: driver.DefaultCacheEntries,
			Disk:          true,
		},
		Output: Output{
			Format:        report.FormatPretty.String(),
			MinConfidence: document.LevelLow.String(),
			PathMode:      report.PathModeAuto.String(),
		},
	}
}

// Find walks up from startDir looking for one of Names.
func Find(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}
	for {
		for _, name := range Names {
			candidate := filepath.Join(dir, name)
			st, err := os.Stat(candidate)
			if err == nil && !st.IsDir() {
				return candidate, true, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", false, err
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest config. When none exists it returns
// Defaults together with ErrConfigNotFound so callers may ignore the miss.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Defaults(), err
	}
	if !ok {
		return Defaults(), fmt.Errorf("%w (searched from %s)", ErrConfigNotFound, startDir)
	}
	return Load(path)
}

// Load decodes path over Defaults. The format follows the extension.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	cfg.Path = path
	cfg.Root = filepath.Dir(path)

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = loadYAML(path, cfg)
	default:
		err = loadTOML(path, cfg)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func loadTOML(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: %w: %s", path, ErrUnknownKeys, strings.Join(keys, ", "))
	}
	// пустой exclude в файле означает "без исключений", а не дефолт
	if meta.IsDefined("analysis", "exclude") && cfg.Analysis.Exclude == nil {
		cfg.Analysis.Exclude = []string{}
	}
	if meta.IsDefined("analysis", "jobs") && cfg.Analysis.Jobs < 0 {
		return fmt.Errorf("%s: %w: analysis.jobs must not be negative", path, ErrInvalid)
	}
	if meta.IsDefined("cache", "memory_entries") && cfg.Cache.MemoryEntries <= 0 {
		return fmt.Errorf("%s: %w: cache.memory_entries must be positive", path, ErrInvalid)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Analysis.Jobs < 0 {
		return fmt.Errorf("%s: %w: analysis.jobs must not be negative", path, ErrInvalid)
	}
	if cfg.Cache.MemoryEntries <= 0 {
		return fmt.Errorf("%s: %w: cache.memory_entries must be positive", path, ErrInvalid)
	}
	return nil
}

// Validate resolves every symbolic value and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Scope(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MinLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SeverityOverrides(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Registry(); err != nil {
		errs = append(errs, err)
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := report.ParsePathMode(c.Output.PathMode); err != nil {
		errs = append(errs, err)
	}
	for name := range c.Rules.Refs {
		if _, ok := rules.Default().Get(name); !ok {
			errs = append(errs, fmt.Errorf("refs for unknown analyzer %q", name))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (c *Config) Scope() (document.Scope, error) {
	return document.ParseScope(c.Analysis.Scope)
}

func (c *Config) MinLevel() (document.Level, error) {
	return document.ParseLevel(c.Output.MinConfidence)
}

// SeverityOverrides maps analyzer names to configured severities.
func (c *Config) SeverityOverrides() (map[string]diag.Severity, error) {
	if len(c.Rules.Severity) == 0 {
		return nil, nil
	}
	reg := rules.Default()
	out := make(map[string]diag.Severity, len(c.Rules.Severity))
	for name, v := range c.Rules.Severity {
		if _, ok := reg.Get(name); !ok {
			return nil, fmt.Errorf("severity for unknown analyzer %q", name)
		}
		sev, err := diag.ParseSeverity(v)
		if err != nil {
			return nil, fmt.Errorf("rules.severity.%s: %w", name, err)
		}
		out[name] = sev
	}
	return out, nil
}

// Registry returns the default analyzers minus Rules.Disable.
func (c *Config) Registry() (*analyzer.Registry, error) {
	reg := rules.Default()
	if len(c.Rules.Disable) == 0 {
		return reg, nil
	}
	return reg.Without(c.Rules.Disable...)
}

// Refs merges configured standards references over the defaults.
func (c *Config) Refs() map[string][]string {
	out := rules.DefaultRefs()
	for name, refs := range c.Rules.Refs {
		out[name] = append([]string(nil), refs...)
	}
	return out
}

// OpenCache builds the memory cache, backed by disk unless Cache.Disk is off.
func (c *Config) OpenCache(app string) (*driver.Cache, error) {
	var disk *driver.DiskCache
	if c.Cache.Disk {
		dir := c.Cache.Dir
		if dir != "" && !filepath.IsAbs(dir) && c.Root != "" {
			dir = filepath.Join(c.Root, dir)
		}
		var err error
		disk, err = driver.OpenDiskCache(dir, app)
		if err != nil {
			return nil, err
		}
	}
	return driver.NewCache(c.Cache.MemoryEntries, disk)
}

func (c *Config) ListOptions() driver.ListOptions {
	return driver.ListOptions{
		Exclude:     append([]string(nil), c.Analysis.Exclude...),
		MaxFileSize: c.Analysis.MaxFileSize,
	}
}

// CheckOptions resolves the file into driver options. The cache is left to
// the caller so several checks can share one.
func (c *Config) CheckOptions() (driver.CheckOptions, error) {
	scope, err := c.Scope()
	if err != nil {
		return driver.CheckOptions{}, err
	}
	level, err := c.MinLevel()
	if err != nil {
		return driver.CheckOptions{}, err
	}
	sev, err := c.SeverityOverrides()
	if err != nil {
		return driver.CheckOptions{}, err
	}
	reg, err := c.Registry()
	if err != nil {
		return driver.CheckOptions{}, err
	}
	return driver.CheckOptions{
		Options:   driver.Options{Jobs: c.Analysis.Jobs},
		Scope:     scope,
		Analyzers: reg,
		Severity:  sev,
		Refs:      c.Refs(),
		MinLevel:  level,
	}, nil
}
