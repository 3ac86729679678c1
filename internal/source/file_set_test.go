package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("index.html", []byte("<p>one</p>"), 0)
	if id1 != 0 {
		t.Errorf("Expected first FileID to be 0, got %d", id1)
	}

	id2 := fs.Add("index.html", []byte("<p>two</p>"), 0)
	if id2 != 1 {
		t.Errorf("Expected second FileID to be 1, got %d", id2)
	}

	latestID, exists := fs.GetLatest("index.html")
	if !exists || latestID != id2 {
		t.Errorf("Expected latest ID %d, got %d (exists=%v)", id2, latestID, exists)
	}

	// старая версия остаётся доступной
	if got := string(fs.Get(id1).Content); got != "<p>one</p>" {
		t.Errorf("Expected first version content, got %q", got)
	}
	if fs.Get(id1).Fingerprint() == fs.Get(id2).Fingerprint() {
		t.Error("Expected different fingerprints for different content")
	}
	if fs.Len() != 2 {
		t.Errorf("Expected 2 versions, got %d", fs.Len())
	}
}

func TestAddVirtualLineIdx(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.js", []byte("a\nb\n"))
	file := fs.Get(id)

	expected := []uint32{1, 3}
	if len(file.LineIdx) != len(expected) {
		t.Fatalf("Expected LineIdx length %d, got %d", len(expected), len(file.LineIdx))
	}
	for i, val := range expected {
		if file.LineIdx[i] != val {
			t.Errorf("Expected LineIdx[%d] = %d, got %d", i, val, file.LineIdx[i])
		}
	}
	if file.Flags&FileVirtual == 0 {
		t.Error("Expected FileVirtual flag to be set")
	}
}

func TestResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("x.html", []byte("ab\ncd\nef"))

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{2, LineCol{Line: 1, Col: 3}},
		{3, LineCol{Line: 2, Col: 1}},
		{7, LineCol{Line: 3, Col: 2}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Point(id, tt.off))
		if start != tt.want {
			t.Errorf("Resolve(%d) = %+v, want %+v", tt.off, start, tt.want)
		}
	}

	if got := fs.Text(Span{File: id, Start: 3, End: 5}); got != "cd" {
		t.Errorf("Text = %q, want %q", got, "cd")
	}
	if got := fs.Text(Span{File: 99, Start: 0, End: 1}); got != "" {
		t.Errorf("Text on unknown file = %q", got)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	file := fs.Get(fs.AddVirtual("x.css", []byte("a {}\nb {}\n\nc {}")))

	cases := map[uint32]string{1: "a {}", 2: "b {}", 3: "", 4: "c {}", 5: "", 0: ""}
	for line, want := range cases {
		if got := file.GetLine(line); got != want {
			t.Errorf("GetLine(%d) = %q, want %q", line, got, want)
		}
	}
}

func TestLoadNormalizesBOMAndCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<a>\r\n</a>\r\n")...)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "<a>\n</a>\n" {
		t.Errorf("content = %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("flags = %b, want BOM and CRLF bits", f.Flags)
	}
	if got := f.FormatPath("relative", fs.BaseDir()); got != "page.html" {
		t.Errorf("relative path = %q", got)
	}
	if got := f.FormatPath("basename", ""); got != "page.html" {
		t.Errorf("basename = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := NewFileSet()
	if _, err := fs.Load(filepath.Join(t.TempDir(), "nope.html")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNormalizeLeavesLoneCR(t *testing.T) {
	out, flags := Normalize([]byte("a\rb"))
	if string(out) != "a\rb" || flags != 0 {
		t.Errorf("Normalize = %q, %b", out, flags)
	}
}
