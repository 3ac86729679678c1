package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/issue"
)

// Fault records an analyzer that failed. Issues from other analyzers are
// kept.
type Fault struct {
	Analyzer string
	Err      error
	Panicked bool
	Stack    string
}

func (f Fault) Error() string {
	if f.Panicked {
		return fmt.Sprintf("analyzer %s panicked: %v", f.Analyzer, f.Err)
	}
	return fmt.Sprintf("analyzer %s: %v", f.Analyzer, f.Err)
}

// Result is the outcome of Run.
type Result struct {
	Issues []issue.Issue
	Faults []Fault
}

// RunOptions configures Run.
type RunOptions struct {
	Jobs     int
	Severity map[string]diag.Severity // per-rule overrides
	Refs     map[string][]string      // per-rule standards refs
	Logger   *slog.Logger
}

type slot struct {
	issues []issue.Issue
	fault  *Fault
}

// Run executes every analyzer of reg against c concurrently. Panics and
// errors become faults; issues are concatenated in registry order, decorated
// with configured standards refs and sorted.
func Run(ctx context.Context, reg *Registry, c *Context, opts RunOptions) Result {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	analyzers := reg.All()
	if len(analyzers) == 0 {
		return Result{}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if len(opts.Severity) > 0 {
		c = c.WithOverrides(opts.Severity)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	slots := make([]slot, len(analyzers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(analyzers)))
	for i, a := range analyzers {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				slots[i].fault = &Fault{Analyzer: a.Name(), Err: gctx.Err()}
				return nil
			default:
			}
			slots[i] = runOne(a, c)
			return nil
		})
	}
	_ = g.Wait() // горутины всегда возвращают nil

	var res Result
	for i, s := range slots {
		name := analyzers[i].Name()
		if s.fault != nil {
			log.Warn("analyzer failed",
				slog.String("analyzer", name),
				slog.Bool("panic", s.fault.Panicked),
				slog.String("error", s.fault.Err.Error()))
			res.Faults = append(res.Faults, *s.fault)
		}
		refs := opts.Refs[name]
		for _, is := range s.issues {
			if len(refs) > 0 && len(is.StandardsRefs) == 0 {
				is = is.WithRefs(refs)
			}
			res.Issues = append(res.Issues, is)
		}
	}
	issue.Sort(res.Issues)
	return res
}

func runOne(a Analyzer, c *Context) (s slot) {
	defer func() {
		if r := recover(); r != nil {
			s = slot{fault: &Fault{
				Analyzer: a.Name(),
				Err:      fmt.Errorf("%v", r),
				Panicked: true,
				Stack:    string(debug.Stack()),
			}}
		}
	}()
	issues, err := a.Analyze(c)
	s.issues = issues
	if err != nil {
		s.fault = &Fault{Analyzer: a.Name(), Err: err}
	}
	return s
}
