package source

import (
	"fmt"

	"fortio.org/safecast"
)

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NewSpan builds a span from int offsets as produced by parsers.
func NewSpan(file FileID, start, end int) Span {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		panic(fmt.Errorf("span start overflow: %w", err))
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		panic(fmt.Errorf("span end overflow: %w", err))
	}
	if e < s {
		e = s
	}
	return Span{File: file, Start: s, End: e}
}

// Point returns a zero-length span at off.
func Point(file FileID, off uint32) Span {
	return Span{File: file, Start: off, End: off}
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether other lies entirely inside s.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && other.End <= s.End
}

// Cover returns the smallest span covering both s and other. Spans from
// different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// ShiftLeft moves the span n bytes towards the start of the file. A shift
// past offset zero leaves the span unchanged.
func (s Span) ShiftLeft(n uint32) Span {
	if n > s.Start {
		return s
	}
	return Span{File: s.File, Start: s.Start - n, End: s.End - n}
}

func (s Span) ShiftRight(n uint32) Span {
	return Span{File: s.File, Start: s.Start + n, End: s.End + n}
}

// WithFile returns the same byte range bound to another file id. Cached models
// are rebound this way when they are reused in a new FileSet.
func (s Span) WithFile(id FileID) Span {
	s.File = id
	return s
}
