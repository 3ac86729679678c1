package report

import (
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"

	"a11ygraph/internal/fix"
)

// DiffContext is the number of unchanged lines around each hunk.
const DiffContext = 3

// FileDiff computes the unified diff between before and after. It returns
// nil when the contents are equal.
func FileDiff(path string, before, after []byte) *diff.FileDiff {
	a := splitLines(before)
	b := splitLines(after)
	m := difflib.NewMatcher(a, b)
	groups := m.GetGroupedOpCodes(DiffContext)
	if len(groups) == 0 {
		return nil
	}

	fd := &diff.FileDiff{OrigName: "a/" + path, NewName: "b/" + path}
	for _, g := range groups {
		first, last := g[0], g[len(g)-1]
		h := &diff.Hunk{
			OrigStartLine: hunkStart(first.I1, last.I2),
			OrigLines:     int32(last.I2 - first.I1),
			NewStartLine:  hunkStart(first.J1, last.J2),
			NewLines:      int32(last.J2 - first.J1),
		}
		var body strings.Builder
		for _, op := range g {
			switch op.Tag {
			case 'e':
				writeLines(&body, ' ', a[op.I1:op.I2])
			case 'd':
				writeLines(&body, '-', a[op.I1:op.I2])
			case 'i':
				writeLines(&body, '+', b[op.J1:op.J2])
			case 'r':
				writeLines(&body, '-', a[op.I1:op.I2])
				writeLines(&body, '+', b[op.J1:op.J2])
			}
		}
		h.Body = []byte(body.String())
		fd.Hunks = append(fd.Hunks, h)
	}
	return fd
}

// в unified diff пустой диапазон начинается со строки перед ним
func hunkStart(from, to int) int32 {
	if from == to {
		return int32(from)
	}
	return int32(from + 1)
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(b *strings.Builder, prefix byte, lines []string) {
	for _, l := range lines {
		b.WriteByte(prefix)
		b.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			b.WriteByte('\n')
		}
	}
}

// Diff writes the unified diff of every changed file.
func Diff(w io.Writer, changes []fix.FileChange) error {
	var fds []*diff.FileDiff
	for _, c := range changes {
		if fd := FileDiff(c.Path, c.Before, c.After); fd != nil {
			fds = append(fds, fd)
		}
	}
	if len(fds) == 0 {
		return nil
	}
	out, err := diff.PrintMultiFileDiff(fds)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
