package driver

import (
	"context"

	"a11ygraph/internal/analyzer"
	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/dialect"
	"a11ygraph/internal/document"
	"a11ygraph/internal/frontend"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/observ"
	"a11ygraph/internal/rules"
	"a11ygraph/internal/source"
)

// CheckOptions configures Check.
type CheckOptions struct {
	Options
	Scope     document.Scope
	Analyzers *analyzer.Registry       // nil means rules.Default()
	Severity  map[string]diag.Severity // per-rule overrides
	Refs      map[string][]string      // nil means rules.DefaultRefs()
	MinLevel  document.Level
	Timings   bool // append an ObsTimings diagnostic
}

// CheckResult is everything one pass produced.
type CheckResult struct {
	Files       *source.FileSet
	Doc         *document.Model // nil for file-scope passes
	Issues      []issue.Issue
	Faults      []analyzer.Fault
	Diagnostics []diag.Diagnostic
	Timings     observ.Report
}

// HasErrors reports error-severity issues.
func (r *CheckResult) HasErrors() bool {
	return r != nil && issue.HasErrors(r.Issues)
}

func (o *CheckOptions) defaults() {
	if o.Analyzers == nil {
		o.Analyzers = rules.Default()
	}
	if o.Refs == nil {
		o.Refs = rules.DefaultRefs()
	}
	if o.Timings && o.Timer == nil {
		o.Timer = observ.NewTimer()
	}
}

// Check builds the document model of coll and runs the analyzers on it.
// With ScopeFile each script unit is analyzed on its own behavior model and
// only file-scoped analyzers run.
func Check(ctx context.Context, coll *SourceCollection, opts CheckOptions) (*CheckResult, error) {
	opts.defaults()
	if opts.Scope == document.ScopeFile {
		return checkFiles(ctx, coll, opts)
	}

	doc, err := BuildDocumentModel(ctx, coll, opts.Scope, opts.Options)
	if err != nil {
		return nil, err
	}

	done := opts.phase("analyze")
	run := analyzer.Run(ctx, opts.Analyzers, analyzer.ForDocument(doc, coll.Files), analyzer.RunOptions{
		Jobs:     opts.Jobs,
		Severity: opts.Severity,
		Refs:     opts.Refs,
		Logger:   opts.logger(),
	})
	done("")

	res := &CheckResult{
		Files:       coll.Files,
		Doc:         doc,
		Issues:      issue.Filter(run.Issues, opts.MinLevel),
		Faults:      run.Faults,
		Diagnostics: doc.Diagnostics,
	}
	finish(res, coll, &opts)
	return res, nil
}

// checkFiles runs the file-scoped analyzers over each script unit alone.
func checkFiles(ctx context.Context, coll *SourceCollection, opts CheckOptions) (*CheckResult, error) {
	reg := opts.Registry
	if reg == nil {
		reg = frontend.Default(opts.logger())
	}
	analyzers := opts.Analyzers.FileScoped()

	res := &CheckResult{Files: coll.Files}
	res.Diagnostics = append(res.Diagnostics, coll.Diagnostics...)

	results, err := parseUnits(ctx, coll.Files, coll.Units, reg, &opts.Options)
	if err != nil {
		return nil, err
	}

	done := opts.phase("analyze")
	for i, r := range results {
		res.Diagnostics = append(res.Diagnostics, r.diags...)
		f := coll.Files.Get(coll.Units[i])
		if dialect.Detect(f.Path, f.Content) != dialect.Script {
			continue
		}
		m := r.res.Behavior
		if m == nil {
			m = behavior.New(f.Path, f.ID)
		}
		run := analyzer.Run(ctx, analyzers, analyzer.ForBehavior(m, coll.Files), analyzer.RunOptions{
			Jobs:     opts.Jobs,
			Severity: opts.Severity,
			Refs:     opts.Refs,
			Logger:   opts.logger(),
		})
		res.Issues = append(res.Issues, run.Issues...)
		res.Faults = append(res.Faults, run.Faults...)
	}
	done("file scope")

	issue.Sort(res.Issues)
	res.Issues = issue.Filter(res.Issues, opts.MinLevel)
	finish(res, coll, &opts)
	return res, nil
}

func finish(res *CheckResult, coll *SourceCollection, opts *CheckOptions) {
	if opts.Timer != nil {
		res.Timings = opts.Timer.Report()
	}
	if opts.Timings {
		hits, _ := opts.Cache.Stats()
		if d, ok := timingDiagnostic(timingPayload{
			Kind:    opts.Scope.String(),
			Units:   coll.Len(),
			Hits:    hits,
			TotalMS: res.Timings.TotalMS,
			Phases:  res.Timings.Phases,
		}); ok {
			res.Diagnostics = append(res.Diagnostics, d)
		}
	}
	res.Diagnostics = sortedDiagnostics(res.Diagnostics)
}
