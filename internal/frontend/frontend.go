// Package frontend turns source text into the three graph models: markup
// into a structure fragment, script into a behavior model and style into a
// rule list.
//
// Front ends never fail: malformed input yields a partial or empty model
// plus diagnostics, and a panicking parser is contained by the Registry.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/dialect"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
	"a11ygraph/internal/style"
)

// ErrUnsupportedDialect is returned by Lookup for dialects without a parser.
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Unit is one piece of source handed to a front end. Base is the offset of
// Text inside File; it is non-zero for script and style embedded in markup.
type Unit struct {
	Dialect dialect.Kind
	Path    string
	File    source.FileID
	Text    []byte
	Base    uint32
}

// span maps a [start, end) range of u.Text onto the file.
func (u Unit) span(start, end uint32) source.Span {
	return source.Span{File: u.File, Start: u.Base + start, End: u.Base + end}
}

func (u Unit) spanInt(start, end int) source.Span {
	return source.NewSpan(u.File, int(u.Base)+start, int(u.Base)+end)
}

// Result carries the models produced from one unit. Markup results may
// also carry behavior and style models built from embedded blocks.
type Result struct {
	Structure *structure.Model
	Behavior  *behavior.Model
	Style     *style.Model

	// Embedded lists script and style blocks found inside markup. The
	// Registry parses them and folds them into Behavior and Style.
	Embedded []Unit
}

// Empty reports whether the result contributes nothing.
func (r Result) Empty() bool {
	return r.Structure.Len() == 0 && r.Behavior.Len() == 0 && r.Style.Len() == 0
}

// emptyResult is the result of a unit that could not be parsed: an empty
// model of the unit's dialect.
func emptyResult(u Unit) Result {
	switch u.Dialect {
	case dialect.Markup:
		return Result{Structure: structure.New(u.Path, u.File)}
	case dialect.Script:
		return Result{Behavior: behavior.New(u.Path, u.File)}
	case dialect.Style:
		return Result{Style: style.New(u.Path, u.File)}
	}
	return Result{}
}

// Parser reads one unit.
type Parser interface {
	Parse(ctx context.Context, u Unit) (Result, []diag.Diagnostic)
}

// Registry maps dialects to parsers.
type Registry struct {
	parsers map[dialect.Kind]Parser
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{parsers: make(map[dialect.Kind]Parser), logger: logger}
}

// Default returns a registry with the markup, script and style parsers.
func Default(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(dialect.Markup, MarkupParser{})
	r.Register(dialect.Script, ScriptParser{})
	r.Register(dialect.Style, StyleParser{})
	return r
}

func (r *Registry) Register(k dialect.Kind, p Parser) {
	r.parsers[k] = p
}

// Lookup returns the parser for k.
func (r *Registry) Lookup(k dialect.Kind) (Parser, error) {
	p, ok := r.parsers[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, k)
	}
	return p, nil
}

// Parse detects the dialect when the unit does not name one, runs the
// matching parser and folds embedded blocks into the result.
func (r *Registry) Parse(ctx context.Context, u Unit) (Result, []diag.Diagnostic) {
	if u.Dialect == dialect.Unknown {
		u.Dialect = dialect.Detect(u.Path, u.Text)
	}
	res, diags := r.parseOne(ctx, u)
	if len(res.Embedded) == 0 {
		return res, diags
	}
	for _, e := range res.Embedded {
		sub, d := r.parseOne(ctx, e)
		diags = append(diags, d...)
		if sub.Behavior.Len() > 0 {
			if res.Behavior == nil {
				res.Behavior = behavior.New(u.Path, u.File)
			}
			for _, n := range sub.Behavior.Nodes {
				res.Behavior.Append(n)
			}
		}
		if sub.Style.Len() > 0 {
			if res.Style == nil {
				res.Style = style.New(u.Path, u.File)
			}
			for _, rule := range sub.Style.Rules {
				res.Style.Append(rule)
			}
		}
	}
	res.Embedded = nil
	return res, diags
}

func (r *Registry) parseOne(ctx context.Context, u Unit) (res Result, diags []diag.Diagnostic) {
	p, err := r.Lookup(u.Dialect)
	if err != nil {
		return emptyResult(u), []diag.Diagnostic{
			diag.NewWarning(diag.FeUnsupportedDialect, u.span(0, 0), fmt.Sprintf("%s: %v", u.Path, err)),
		}
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("front end panicked",
				slog.String("file", u.Path),
				slog.String("dialect", u.Dialect.String()),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			res = emptyResult(u)
			diags = append(diags, diag.NewError(diag.FeParserPanic, u.span(0, 0),
				fmt.Sprintf("%s parser crashed on %s: %v", u.Dialect, u.Path, rec)))
		}
	}()
	return p.Parse(ctx, u)
}
