// Package text holds an immutable document buffer with a line index for
// converting byte offsets to and from (line, UTF-16 column) positions.
package text

import "unicode/utf8"

// Position is a zero-based line and UTF-16 column.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open pair of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Buffer is a document's text plus the byte offset of every line start.
type Buffer struct {
	text  string
	lines []int
}

// New indexes text. "\r\n" counts as a single line break.
func New(text string) *Buffer {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Buffer{text: text, lines: lines}
}

// String returns the full text.
func (b *Buffer) String() string { return b.text }

// Len returns the text length in bytes.
func (b *Buffer) Len() int { return len(b.text) }

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int { return len(b.lines) }

// Slice returns text[start:end], clamped to the buffer.
func (b *Buffer) Slice(start, end int) string {
	start, end = b.clamp(start), b.clamp(end)
	if end < start {
		return ""
	}
	return b.text[start:end]
}

func (b *Buffer) clamp(off int) int {
	if off < 0 {
		return 0
	}
	if off > len(b.text) {
		return len(b.text)
	}
	return off
}

func toU16(r rune) int {
	if r < 0x10000 {
		return 1
	}
	return 2
}

// Offset converts a position to a byte offset. Columns past the end of the
// line clamp to the line end; lines past the end clamp to the text end.
func (b *Buffer) Offset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(b.lines) {
		return len(b.text)
	}
	i := b.lines[p.Line]
	need := p.Character
	for i < len(b.text) && need > 0 {
		r, sz := utf8.DecodeRuneInString(b.text[i:])
		if r == '\r' {
			i += sz
			continue
		}
		if r == '\n' {
			break
		}
		need -= toU16(r)
		i += sz
	}
	return i
}

// Position converts a byte offset to a position.
func (b *Buffer) Position(off int) Position {
	off = b.clamp(off)
	i, j := 0, len(b.lines)
	for i+1 < j {
		m := (i + j) / 2
		if b.lines[m] <= off {
			i = m
		} else {
			j = m
		}
	}
	u16 := 0
	for k := b.lines[i]; k < off; {
		r, sz := utf8.DecodeRuneInString(b.text[k:])
		if r == '\r' {
			k += sz
			continue
		}
		if r == '\n' {
			break
		}
		u16 += toU16(r)
		k += sz
	}
	return Position{Line: i, Character: u16}
}

// Range converts a byte span to a range.
func (b *Buffer) Range(start, end int) Range {
	return Range{Start: b.Position(start), End: b.Position(end)}
}

// UTF16Len returns the UTF-16 length of text[start:end].
func (b *Buffer) UTF16Len(start, end int) int {
	n := 0
	for _, r := range b.Slice(start, end) {
		n += toU16(r)
	}
	return n
}

// LineEnd returns the byte offset of the end of line (before its newline).
func (b *Buffer) LineEnd(line int) int {
	if line < 0 {
		return 0
	}
	if line+1 >= len(b.lines) {
		return len(b.text)
	}
	end := b.lines[line+1] - 1
	if end > b.lines[line] && b.text[end-1] == '\r' {
		end--
	}
	return end
}
