package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"a11ygraph/internal/dialect"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/source"
)

// DefaultMaxFileSize bounds a single source read during collection.
const DefaultMaxFileSize int64 = 4 << 20

// DefaultExcludes are skipped unless the caller passes its own list.
var DefaultExcludes = []string{"node_modules", ".git", "vendor", "*.min.js", "*.min.css"}

// ListOptions controls source discovery.
type ListOptions struct {
	Exclude     []string // glob patterns matched against names and relative paths
	MaxFileSize int64    // 0 means DefaultMaxFileSize, negative disables the limit
	// Overlay replaces on-disk content for the given absolute paths, as
	// editors do for unsaved buffers.
	Overlay map[string][]byte
	Logger  *slog.Logger
}

func (o ListOptions) excludes() []string {
	if o.Exclude == nil {
		return DefaultExcludes
	}
	return o.Exclude
}

func (o ListOptions) maxSize() int64 {
	if o.MaxFileSize == 0 {
		return DefaultMaxFileSize
	}
	return o.MaxFileSize
}

// SourceCollection is an ordered set of units sharing one FileSet. Units
// that could not be read are recorded as failures so the document still
// reflects them.
type SourceCollection struct {
	Files       *source.FileSet
	Units       []source.FileID
	Failures    []document.Failure
	Diagnostics []diag.Diagnostic
}

// NewSourceCollection wraps fs; a nil fs gets a fresh FileSet.
func NewSourceCollection(fs *source.FileSet) *SourceCollection {
	if fs == nil {
		fs = source.NewFileSet()
	}
	return &SourceCollection{Files: fs}
}

// Len returns the number of loaded units.
func (c *SourceCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Units)
}

// AddVirtual appends an in-memory unit.
func (c *SourceCollection) AddVirtual(name string, content []byte) source.FileID {
	content, flags := source.Normalize(content)
	id := c.Files.Add(name, content, flags|source.FileVirtual)
	c.Units = append(c.Units, id)
	return id
}

// fail records a unit that contributes nothing.
func (c *SourceCollection) fail(path string, code diag.Code, reason string) {
	c.Failures = append(c.Failures, document.Failure{Path: path, Code: code, Reason: reason})
	d := diag.NewError(code, source.Span{}, fmt.Sprintf("%s: %s", path, reason))
	if code == diag.IOFileTooLarge {
		d.Severity = diag.SevWarning
	}
	c.Diagnostics = append(c.Diagnostics, d)
}

// Load reads path into the collection, honoring the size limit and overlay.
// Failures are recorded, never returned.
func (c *SourceCollection) Load(path string, opts ListOptions) (source.FileID, bool) {
	if content, ok := opts.Overlay[path]; ok {
		norm, flags := source.Normalize(slices.Clone(content))
		id := c.Files.Add(path, norm, flags)
		c.Units = append(c.Units, id)
		return id, true
	}
	if limit := opts.maxSize(); limit > 0 {
		if st, err := os.Stat(path); err == nil && st.Size() > limit {
			c.fail(path, diag.IOFileTooLarge, fmt.Sprintf("file is %d bytes, limit is %d", st.Size(), limit))
			return 0, false
		}
	}
	id, err := c.Files.Load(path)
	if err != nil {
		c.fail(path, diag.IOLoadFileError, "failed to load file: "+err.Error())
		return 0, false
	}
	c.Units = append(c.Units, id)
	return id, true
}

// Collect lists the supported sources under each path (files are taken as
// is, directories are walked) and loads them serially in sorted order.
func Collect(opts ListOptions, paths ...string) (*SourceCollection, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	base := ""
	if len(paths) == 1 {
		if st, err := os.Stat(paths[0]); err == nil && st.IsDir() {
			base = paths[0]
		} else if err == nil {
			base = filepath.Dir(paths[0])
		}
	}
	coll := NewSourceCollection(source.NewFileSetWithBase(base))

	var files []string
	seen := make(map[string]bool)
	for _, p := range paths {
		listed, err := ListSources(p, opts)
		if err != nil {
			return nil, err
		}
		for _, f := range listed {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	slices.Sort(files)

	// Загрузка строго последовательная: FileSet не потокобезопасен.
	for _, f := range files {
		if _, ok := coll.Load(f, opts); !ok {
			log.Warn("source skipped", "file", f)
		}
	}
	log.Debug("sources collected", "units", coll.Len(), "failures", len(coll.Failures))
	return coll, nil
}

// ListSources returns the supported files under root. A root that is a file
// is returned as is, supported or not, since the caller named it.
func ListSources(root string, opts ListOptions) ([]string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	if !st.IsDir() {
		return []string{filepath.Clean(root)}, nil
	}

	excl := opts.excludes()
	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrPermission) && p != root {
				return nil
			}
			return walkErr
		}
		if p == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		if excluded(excl, filepath.ToSlash(rel), d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if dialect.Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

func excluded(patterns []string, rel, name string) bool {
	for _, pat := range patterns {
		pat = strings.TrimSuffix(filepath.ToSlash(pat), "/")
		if pat == "" {
			continue
		}
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, pat+"/") {
			return true
		}
	}
	return false
}
