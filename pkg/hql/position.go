package hql

import "fmt"

// SourcePosition is a single point in source text. Lines are 1-indexed,
// columns are 1-indexed, matching the user-visible error format;
// ByteOffset is 0-indexed and used internally by the lexer to slice the
// source buffer without re-scanning from the start of the file.
type SourcePosition struct {
	Line       int
	Column     int
	ByteOffset int
}

func (p SourcePosition) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// SourceLocation is a span in a named source file, carried by every
// non-synthetic SExp and IR node. Length is the number of bytes the
// originating token/form occupied, used to size the "^^^" underline in
// formatted error output.
type SourceLocation struct {
	File   string
	Start  SourcePosition
	End    SourcePosition
	Length int
}

func (l *SourceLocation) String() string {
	if l == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Start.Line, l.Start.Column)
}

// Join returns the smallest location spanning both l and other. Used when
// the transformer or optimizer synthesizes a node out of several existing
// ones (e.g. lowering a threading macro) and wants a location that still
// points somewhere useful rather than nil.
func (l *SourceLocation) Join(other *SourceLocation) *SourceLocation {
	switch {
	case l == nil:
		return other
	case other == nil:
		return l
	}
	start, end := l.Start, l.End
	if other.Start.ByteOffset < start.ByteOffset {
		start = other.Start
	}
	if other.End.ByteOffset > end.ByteOffset {
		end = other.End
	}
	return &SourceLocation{
		File:   l.File,
		Start:  start,
		End:    end,
		Length: end.ByteOffset - start.ByteOffset,
	}
}

// FileTable interns source file paths as small integer ids. It is not
// goroutine-safe. SourceLocation stores its file as a path string, and
// the Lexer and Reader do not use a FileTable.
type FileTable struct {
	paths []string
	index map[string]int
}

// NewFileTable creates an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{index: make(map[string]int)}
}

// Intern returns the stable id for path, registering it on first use.
func (t *FileTable) Intern(path string) int {
	if id, ok := t.index[path]; ok {
		return id
	}
	id := len(t.paths)
	t.paths = append(t.paths, path)
	t.index[path] = id
	return id
}

// Path returns the path registered under id, or "" if id is out of range.
func (t *FileTable) Path(id int) string {
	if id < 0 || id >= len(t.paths) {
		return ""
	}
	return t.paths[id]
}
