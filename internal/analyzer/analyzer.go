// Package analyzer defines the rule-matcher contract, the context rules run
// against, a static registry and a fault-isolated parallel runner.
//
// Analyzers must be deterministic: they iterate models in stored order and
// keep no state between calls. Run sorts the combined output, so analyzers
// need not sort their own issues.
package analyzer

import (
	"fmt"
	"slices"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

// Analyzer is one rule-matcher.
type Analyzer interface {
	Name() string
	Analyze(c *Context) ([]issue.Issue, error)
}

// Info describes an analyzer for listings.
type Info struct {
	Name      string
	Summary   string
	Severity  diag.Severity
	FileScope bool // also runs without a document
	Fixable   bool
}

// Describer is implemented by analyzers that can describe themselves.
type Describer interface {
	Describe() Info
}

// Describe returns a's Info, falling back to the name alone.
func Describe(a Analyzer) Info {
	if d, ok := a.(Describer); ok {
		info := d.Describe()
		info.Name = a.Name()
		return info
	}
	return Info{Name: a.Name(), Severity: diag.SevWarning}
}

// Context is the input of one analysis. Doc is set for document scope;
// Behavior alone is the degraded file scope used before a workspace graph
// exists.
type Context struct {
	Doc      *document.Model
	Behavior *behavior.Model
	Files    *source.FileSet // optional; enables OldText guards in fixes

	overrides map[string]diag.Severity
}

// ForDocument builds a document-scope context. doc must be linked.
func ForDocument(doc *document.Model, fs *source.FileSet) *Context {
	return &Context{Doc: doc, Files: fs}
}

// ForBehavior builds a file-scope context.
func ForBehavior(m *behavior.Model, fs *source.FileSet) *Context {
	return &Context{Behavior: m, Files: fs}
}

// FileScope reports whether only a behavior model is available.
func (c *Context) FileScope() bool {
	return c.Doc == nil
}

// BehaviorModels returns the behavior models in scope.
func (c *Context) BehaviorModels() []*behavior.Model {
	if c.Doc != nil {
		return c.Doc.Behaviors
	}
	if c.Behavior != nil {
		return []*behavior.Model{c.Behavior}
	}
	return nil
}

// WithOverrides returns a copy of c whose Severity honours overrides.
func (c *Context) WithOverrides(overrides map[string]diag.Severity) *Context {
	cp := *c
	cp.overrides = overrides
	return &cp
}

// Severity returns the configured severity for rule, or def.
func (c *Context) Severity(rule string, def diag.Severity) diag.Severity {
	if sev, ok := c.overrides[rule]; ok {
		return sev
	}
	return def
}

// Completeness returns the tree completeness, 0 in file scope.
func (c *Context) Completeness() float64 {
	if c.Doc == nil {
		return 0
	}
	return c.Doc.TreeCompleteness()
}

// Direct is the confidence of a finding observed directly in the graph,
// which does not depend on anything the graph might be missing.
func (c *Context) Direct(reason string) issue.Confidence {
	if c.Doc == nil {
		return issue.Confidence{Level: document.LevelLow, Reason: "file scope: " + reason}
	}
	comp := c.Completeness()
	return issue.Confidence{Level: document.LevelHigh, Reason: highReason(reason, comp, c.Doc.FragmentCount()), TreeCompleteness: comp}
}

// highReason notes when HIGH is reported although the completeness alone
// would map lower, so the transported triple stays readable.
func highReason(reason string, comp float64, frags int) string {
	switch {
	case document.LevelFor(comp) == document.LevelHigh:
		return reason
	case frags <= 1:
		return reason + "; single fragment treated as complete"
	default:
		return reason + "; independent of graph completeness"
	}
}

// CounterpartConfidence is used when a rule fires because an expected
// counterpart was not found. With at most one fragment the graph is taken
// as complete and the finding is HIGH; otherwise the level follows tree
// completeness and the severity is lowered one step at MEDIUM and two at
// LOW. File scope is always LOW.
func (c *Context) CounterpartConfidence(sev diag.Severity, reason string) (diag.Severity, issue.Confidence) {
	if c.Doc == nil {
		return sev.Downgrade(2), issue.Confidence{
			Level:  document.LevelLow,
			Reason: "file scope: " + reason,
		}
	}
	comp := c.Doc.TreeCompleteness()
	frags := c.Doc.FragmentCount()
	if frags <= 1 {
		return sev, issue.Confidence{Level: document.LevelHigh, Reason: highReason(reason, comp, frags), TreeCompleteness: comp}
	}
	level := document.LevelFor(comp)
	conf := issue.Confidence{
		Level:            level,
		Reason:           fmt.Sprintf("%s; %d disconnected fragments", reason, frags),
		TreeCompleteness: comp,
	}
	switch level {
	case document.LevelMedium:
		sev = sev.Downgrade(1)
	case document.LevelLow:
		sev = sev.Downgrade(2)
	}
	return sev, conf
}

// Registry is the static set of analyzers, built once.
type Registry struct {
	analyzers []Analyzer
}

// NewRegistry builds a registry, rejecting duplicate names.
func NewRegistry(as ...Analyzer) (*Registry, error) {
	seen := make(map[string]bool, len(as))
	for _, a := range as {
		if seen[a.Name()] {
			return nil, fmt.Errorf("duplicate analyzer %q", a.Name())
		}
		seen[a.Name()] = true
	}
	return &Registry{analyzers: slices.Clone(as)}, nil
}

// All returns analyzers in registration order.
func (r *Registry) All() []Analyzer {
	return r.analyzers
}

func (r *Registry) Len() int {
	return len(r.analyzers)
}

// Get returns the analyzer named name.
func (r *Registry) Get(name string) (Analyzer, bool) {
	for _, a := range r.analyzers {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Names returns analyzer names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		out = append(out, a.Name())
	}
	return out
}

// Without returns a registry lacking the named analyzers. Unknown names are
// reported as an error so typos in configuration surface.
func (r *Registry) Without(names ...string) (*Registry, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.Get(n); !ok {
			return nil, fmt.Errorf("unknown analyzer %q", n)
		}
		drop[n] = true
	}
	out := make([]Analyzer, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		if !drop[a.Name()] {
			out = append(out, a)
		}
	}
	return &Registry{analyzers: out}, nil
}

// FileScoped returns the analyzers that can run without a document.
func (r *Registry) FileScoped() *Registry {
	out := make([]Analyzer, 0)
	for _, a := range r.analyzers {
		if Describe(a).FileScope {
			out = append(out, a)
		}
	}
	return &Registry{analyzers: out}
}
