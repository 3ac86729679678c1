// Package session keeps analysis results fresh while sources change. A
// background workspace pass rebuilds the whole document; a fast pass checks
// one file on its own. Results are published as immutable snapshots.
package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"a11ygraph/internal/dialect"
	"a11ygraph/internal/document"
	"a11ygraph/internal/driver"
	"a11ygraph/internal/issue"
)

// DefaultDebounce delays a scheduled workspace pass so bursts of edits
// collapse into one.
const DefaultDebounce = 200 * time.Millisecond

// ErrStale is returned when a newer workspace pass superseded the one that
// finished. File passes never make a workspace pass stale.
var ErrStale = errors.New("pass superseded by a newer generation")

// Options configures a Session.
type Options struct {
	Roots    []string
	List     driver.ListOptions
	Check    driver.CheckOptions // Scope applies to workspace passes
	Debounce time.Duration
	Logger   *slog.Logger
	// OnSnapshot is called after a workspace snapshot is published, from
	// the goroutine that ran the pass.
	OnSnapshot func(*Snapshot)
}

// Kind tells how a snapshot was produced.
type Kind uint8

const (
	KindWorkspace Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "workspace"
}

// Snapshot is the published outcome of one pass. It is never mutated.
type Snapshot struct {
	ID         uuid.UUID
	// Generation is the workspace generation: its own for a workspace pass,
	// the one current at start for a file pass.
	Generation uint64
	// Seq orders every pass of the session by start.
	Seq        uint64
	Kind       Kind
	Scope      document.Scope
	Path       string // target of a file pass
	Result     *driver.CheckResult
	Started    time.Time
	Finished   time.Time
}

// Covers reports whether path was one of the snapshot's units.
func (s *Snapshot) Covers(path string) bool {
	if s == nil || s.Result == nil || s.Result.Files == nil {
		return false
	}
	_, ok := s.Result.Files.GetLatest(path)
	return ok
}

// IssuesFor returns the issues whose primary location lies in path.
func (s *Snapshot) IssuesFor(path string) []issue.Issue {
	if s == nil || s.Result == nil {
		return nil
	}
	id, ok := s.Result.Files.GetLatest(path)
	if !ok {
		return nil
	}
	var out []issue.Issue
	for _, is := range s.Result.Issues {
		if is.Primary().File == id {
			out = append(out, is)
		}
	}
	return out
}

// Session owns the overlay, the model cache and the published snapshots.
type Session struct {
	opts Options
	log  *slog.Logger

	mu         sync.Mutex
	baseCtx    context.Context
	generation uint64
	seq        uint64
	cancel     context.CancelFunc
	timer      *time.Timer
	overlay    map[string][]byte
	workspace  *Snapshot
	files      map[string]*Snapshot

	wg sync.WaitGroup
}

// New creates a session bound to ctx; cancelling ctx stops background
// passes.
func New(ctx context.Context, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Check.Scope == document.ScopeFile {
		opts.Check.Scope = document.ScopeWorkspace
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	roots := make([]string, len(opts.Roots))
	for i, r := range opts.Roots {
		roots[i] = canonical(r)
	}
	if len(roots) == 0 {
		roots = []string{canonical(".")}
	}
	opts.Roots = roots
	return &Session{
		opts:    opts,
		log:     log,
		baseCtx: ctx,
		overlay: make(map[string][]byte),
		files:   make(map[string]*Snapshot),
	}
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}

// SetOverlay replaces the on-disk content of path for later passes.
func (s *Session) SetOverlay(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay[canonical(path)] = append([]byte(nil), content...)
}

// ClearOverlay drops the buffer for path.
func (s *Session) ClearOverlay(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overlay, canonical(path))
}

// next starts a new generation, cancelling the pass in flight.
func (s *Session) next() (uint64, uint64, context.Context, map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.seq++
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancel = cancel
	return s.generation, s.seq, ctx, maps.Clone(s.overlay)
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

// Schedule queues a debounced background workspace pass.
func (s *Session) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Stop вернул true: callback не запустится, его слот освобождаем здесь
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.opts.Debounce, func() {
		defer s.wg.Done()
		if _, err := s.RunWorkspace(); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, context.Canceled) {
			s.log.Error("workspace pass failed", "error", err)
		}
	})
}

// Wait blocks until scheduled and running background passes finish.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels pending work and waits for it.
func (s *Session) Close() {
	s.mu.Lock()
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// RunWorkspace runs a workspace pass now and publishes its snapshot unless a
// newer generation started meanwhile.
func (s *Session) RunWorkspace() (*Snapshot, error) {
	gen, seq, ctx, overlay := s.next()
	snap := &Snapshot{ID: uuid.New(), Generation: gen, Seq: seq, Kind: KindWorkspace, Scope: s.opts.Check.Scope, Started: time.Now()}
	log := s.log.With(slog.String("pass", snap.ID.String()), slog.Uint64("generation", gen))
	log.Debug("workspace pass started", "roots", s.opts.Roots)

	list := s.opts.List
	list.Overlay = overlay
	list.Logger = log
	coll, err := driver.Collect(list, s.opts.Roots...)
	if err != nil {
		return nil, err
	}
	check := s.opts.Check
	check.Logger = log
	res, err := driver.Check(ctx, coll, check)
	if err != nil {
		if ctx.Err() != nil && !s.current(gen) {
			return nil, ErrStale
		}
		return nil, err
	}
	snap.Result = res
	snap.Finished = time.Now()

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		log.Debug("workspace pass discarded")
		return nil, ErrStale
	}
	s.workspace = snap
	s.mu.Unlock()

	log.Info("workspace pass published",
		slog.Int("units", coll.Len()),
		slog.Int("issues", len(res.Issues)),
		slog.Duration("elapsed", snap.Finished.Sub(snap.Started)))
	if s.opts.OnSnapshot != nil {
		s.opts.OnSnapshot(snap)
	}
	return snap, nil
}

// CheckFile runs the fast pass over path alone: file scope for scripts, a
// single-file page document otherwise. It may run while a workspace pass is
// in flight and does not disturb the workspace generation.
func (s *Session) CheckFile(ctx context.Context, path string) (*Snapshot, error) {
	path = canonical(path)
	s.mu.Lock()
	s.seq++
	seq, gen := s.seq, s.generation
	content, buffered := s.overlay[path]
	s.mu.Unlock()

	snap := &Snapshot{ID: uuid.New(), Generation: gen, Seq: seq, Kind: KindFile, Path: path, Started: time.Now()}
	log := s.log.With(slog.String("pass", snap.ID.String()), slog.String("file", path))

	list := s.opts.List
	list.Logger = log
	if buffered {
		list.Overlay = map[string][]byte{path: content}
	}
	coll := driver.NewSourceCollection(nil)
	id, ok := coll.Load(path, list)

	check := s.opts.Check
	check.Logger = log
	check.Scope = document.ScopePage
	if ok {
		f := coll.Files.Get(id)
		if dialect.Detect(f.Path, f.Content) == dialect.Script {
			check.Scope = document.ScopeFile
		}
	}
	snap.Scope = check.Scope
	res, err := driver.Check(ctx, coll, check)
	if err != nil {
		return nil, err
	}
	snap.Result = res
	snap.Finished = time.Now()

	s.mu.Lock()
	if prev, ok := s.files[path]; !ok || prev.Seq < seq {
		s.files[path] = snap
	}
	s.mu.Unlock()
	log.Debug("file pass done", slog.String("scope", check.Scope.String()), slog.Int("issues", len(res.Issues)))
	return snap, nil
}

// Workspace returns the last published workspace snapshot.
func (s *Session) Workspace() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// Latest returns the freshest snapshot covering path. The workspace snapshot
// wins unless a file pass for path started after it.
func (s *Session) Latest(path string) (*Snapshot, bool) {
	path = canonical(path)
	s.mu.Lock()
	ws, file := s.workspace, s.files[path]
	s.mu.Unlock()

	if ws.Covers(path) && (file == nil || ws.Seq > file.Seq) {
		return ws, true
	}
	if file != nil {
		return file, true
	}
	return nil, false
}
