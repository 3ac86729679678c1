package driver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/frontend"
	"a11ygraph/internal/observ"
	"a11ygraph/internal/source"
)

// Options configures BuildDocumentModel.
type Options struct {
	Jobs     int // <= 0 means GOMAXPROCS
	Registry *frontend.Registry
	Cache    *Cache // nil disables caching
	Progress ProgressFunc
	Phases   PhaseObserver
	Timer    *observ.Timer // not safe for concurrent use; only the calling goroutine touches it
	Logger   *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// unitResult is the output of one worker.
type unitResult struct {
	path   string
	res    frontend.Result
	diags  []diag.Diagnostic
	status UnitStatus
}

// failed reports diagnostics that mean the unit produced no usable model.
func failed(diags []diag.Diagnostic) (diag.Diagnostic, bool) {
	for _, d := range diags {
		if d.Code == diag.FeParserPanic || d.Code == diag.FeParserFailed {
			return d, true
		}
	}
	return diag.Diagnostic{}, false
}

// BuildDocumentModel parses every unit of coll concurrently and merges the
// results in collection order. Units that fail still contribute an empty
// model and a failure record. The error is non-nil only on cancellation or
// when merging yields an invalid graph.
func BuildDocumentModel(ctx context.Context, coll *SourceCollection, scope document.Scope, opts Options) (*document.Model, error) {
	log := opts.logger()
	reg := opts.Registry
	if reg == nil {
		reg = frontend.Default(log)
	}
	doc := document.New(scope)
	for _, f := range coll.Failures {
		doc.RecordFailure(f)
	}
	doc.AddDiagnostics(coll.Diagnostics...)

	units := coll.Units
	results, err := parseUnits(ctx, coll.Files, units, reg, &opts)
	if err != nil {
		return nil, err
	}

	done := opts.phase("merge")
	for _, r := range results {
		if d, bad := failed(r.diags); bad {
			doc.RecordFailure(document.Failure{Path: r.path, Code: d.Code, Reason: d.Message})
		}
		doc.AddDiagnostics(r.diags...)
		if err := doc.AddStructure(r.res.Structure); err != nil {
			// фрагмент отброшен, остальной документ строится дальше
			log.Error("fragment rejected", "file", r.path, "error", err)
			doc.RecordFailure(document.Failure{Path: r.path, Code: diag.FeParserFailed, Reason: err.Error()})
		}
		doc.AddBehavior(r.res.Behavior)
		doc.AddStyle(r.res.Style)
	}
	if err := doc.Link(); err != nil {
		done("link failed")
		return nil, fmt.Errorf("link document: %w", err)
	}
	done(fmt.Sprintf("%d fragments, %d behavior models, %d style models",
		len(doc.Fragments), len(doc.Behaviors), len(doc.Styles)))
	return doc, nil
}

func parseUnits(ctx context.Context, fs *source.FileSet, units []source.FileID, reg *frontend.Registry, opts *Options) ([]unitResult, error) {
	log := opts.logger()
	done := opts.phase("parse")
	if len(units) == 0 {
		done("no units")
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]unitResult, len(units))
	var finished atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(units)))

	for i, id := range units {
		g.Go(func(i int, id source.FileID) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				start := time.Now()
				results[i] = parseUnit(gctx, fs.Get(id), reg, opts.Cache, log)
				if opts.Progress != nil {
					opts.Progress(UnitEvent{
						Path:    results[i].path,
						Status:  results[i].status,
						Done:    int(finished.Add(1)),
						Total:   len(units),
						Elapsed: time.Since(start),
					})
				}
				return nil
			}
		}(i, id))
	}
	if err := g.Wait(); err != nil {
		done("cancelled")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		done("cancelled")
		return nil, err
	}

	cached := 0
	for _, r := range results {
		if r.status == UnitCached {
			cached++
		}
	}
	done(fmt.Sprintf("%d units, %d cached", len(units), cached))
	return results, nil
}

func parseUnit(ctx context.Context, f *source.File, reg *frontend.Registry, cache *Cache, log *slog.Logger) unitResult {
	key := KeyFor(f)
	out := unitResult{path: f.Path}

	res, diags, ok, err := cache.Get(key, f.ID)
	if err != nil {
		log.Warn("cache read failed", "file", f.Path, "error", err)
		diags = nil
		out.diags = append(out.diags, diag.NewWarning(diag.IOCacheError, source.Span{}, f.Path+": "+err.Error()))
	}
	if ok {
		out.res, out.diags, out.status = res, diags, UnitCached
		log.Debug("unit cached", "file", f.Path)
		return out
	}

	res, diags = reg.Parse(ctx, frontend.Unit{Path: f.Path, File: f.ID, Text: f.Content})
	out.res = res
	out.diags = append(out.diags, diags...)
	if _, bad := failed(diags); bad {
		out.status = UnitFailed
		return out
	}
	if err := cache.Put(key, res, diags); err != nil {
		log.Warn("cache write failed", "file", f.Path, "error", err)
		out.diags = append(out.diags, diag.NewWarning(diag.IOCacheError, source.Span{}, f.Path+": "+err.Error()))
	}
	log.Debug("unit parsed", "file", f.Path, "diagnostics", len(diags))
	return out
}

// sortedDiagnostics returns a sorted copy.
func sortedDiagnostics(ds []diag.Diagnostic) []diag.Diagnostic {
	out := slices.Clone(ds)
	diag.SortDiagnostics(out)
	return out
}
