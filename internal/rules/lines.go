package rules

// LineIndex maps between byte offsets and line positions for edit placement.
type LineIndex struct {
	src    []byte
	starts []uint32 // byte offset of each line start, 0-based lines
}

func NewLineIndex(src []byte) *LineIndex {
	idx := &LineIndex{src: src, starts: []uint32{0}}
	for i, b := range src {
		if b == '\n' {
			idx.starts = append(idx.starts, uint32(i)+1)
		}
	}
	return idx
}

// LineStart returns the byte offset where 1-based line begins.
func (l *LineIndex) LineStart(line uint32) uint32 {
	if line == 0 || int(line) > len(l.starts) {
		return 0
	}
	return l.starts[line-1]
}

// LineEnd returns the offset just past the last content byte of 1-based
// line, excluding the newline.
func (l *LineIndex) LineEnd(line uint32) uint32 {
	if line == 0 || int(line) > len(l.starts) {
		return uint32(len(l.src))
	}
	if int(line) == len(l.starts) {
		return uint32(len(l.src))
	}
	end := l.starts[line] - 1
	if end > 0 && l.src[end-1] == '\r' {
		end--
	}
	return end
}

// LineOf returns the 1-based line containing offset.
func (l *LineIndex) LineOf(offset uint32) uint32 {
	lo, hi := 0, len(l.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if l.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return uint32(lo) + 1
}

// Indent returns the leading whitespace of 1-based line.
func (l *LineIndex) Indent(line uint32) string {
	start := l.LineStart(line)
	end := l.LineEnd(line)
	i := start
	for i < end && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	return string(l.src[start:i])
}

// OnlyStatementOnLines reports whether the byte range [start, end) is the
// sole content of the lines it spans, ignoring surrounding whitespace and a
// trailing line comment. Commenting out or deleting such a range line by
// line cannot damage neighboring code.
func (l *LineIndex) OnlyStatementOnLines(start, end uint32) bool {
	firstLine := l.LineOf(start)
	lastLine := l.LineOf(end - 1)

	for i := l.LineStart(firstLine); i < start; i++ {
		if l.src[i] != ' ' && l.src[i] != '\t' {
			return false
		}
	}
	lineEnd := l.LineEnd(lastLine)
	for i := end; i < lineEnd; i++ {
		switch l.src[i] {
		case ' ', '\t':
			continue
		case '-':
			if i+1 < lineEnd && l.src[i+1] == '-' {
				return true
			}
			return false
		default:
			return false
		}
	}
	return true
}
