package report

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

// EditPreview shows the whole lines an edit touches, before and after.
type EditPreview struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

func buildEditPreview(fs *source.FileSet, edit issue.TextEdit) (EditPreview, error) {
	if fs == nil {
		return EditPreview{}, errors.New("nil FileSet")
	}
	file := fs.Get(edit.Span.File)
	if file == nil {
		return EditPreview{}, fmt.Errorf("file %d not found in FileSet", edit.Span.File)
	}
	size, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return EditPreview{}, fmt.Errorf("len file content overflow: %w", err)
	}
	if edit.Span.End > size || edit.Span.Start > edit.Span.End {
		return EditPreview{}, fmt.Errorf("edit span %s out of range", edit.Span)
	}

	startPos, endPos := fs.Resolve(edit.Span)
	blockStart := file.LineStart(startPos.Line)
	blockEnd := size
	if int(endPos.Line) <= len(file.LineIdx) && endPos.Line > 0 {
		blockEnd = file.LineIdx[endPos.Line-1]
	}
	blockEnd = max(blockEnd, edit.Span.End)

	original := file.Content[blockStart:blockEnd]
	relStart := edit.Span.Start - blockStart
	relEnd := edit.Span.End - blockStart

	after := make([]byte, 0, len(original)+len(edit.NewText))
	after = append(after, original[:relStart]...)
	after = append(after, edit.NewText...)
	after = append(after, original[relEnd:]...)

	return EditPreview{Before: previewLines(original), After: previewLines(after)}, nil
}

// previewLines splits on newlines, dropping the trailing one.
func previewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}
