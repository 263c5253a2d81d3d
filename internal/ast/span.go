package ast

import "fmt"

// Span is a half-open byte range [Start, End) into the original source,
// plus the 1-based line and column of its start.
type Span struct {
	Start uint32
	End   uint32
	Line  uint32
	Col   uint32
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Overlaps reports whether two half-open spans intersect. Two empty spans
// never overlap; an empty span overlaps a non-empty one when its position
// falls inside it.
func (s Span) Overlaps(o Span) bool {
	if s.Empty() && o.Empty() {
		return false
	}
	if s.Empty() {
		return o.Start <= s.Start && s.Start < o.End
	}
	if o.Empty() {
		return s.Start <= o.Start && o.Start < s.End
	}
	return s.Start < o.End && o.Start < s.End
}

// Cover extends s to include o.
func (s Span) Cover(o Span) Span {
	if o.Start < s.Start {
		s.Start = o.Start
		s.Line = o.Line
		s.Col = o.Col
	}
	if o.End > s.End {
		s.End = o.End
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d[%d-%d]", s.Line, s.Col, s.Start, s.End)
}

// Text returns the source bytes the span covers.
func (s Span) Text(src []byte) string {
	if int(s.End) > len(src) || s.Start > s.End {
		return ""
	}
	return string(src[s.Start:s.End])
}
