package asm

// Stream is an append-only sequence of emitted lines.
type Stream struct {
	lines []Line
}

func (s *Stream) Emit(lines ...Line) {
	s.lines = append(s.lines, lines...)
}

// Lines returns a copy of everything emitted so far.
func (s *Stream) Lines() []Line {
	result := make([]Line, len(s.lines))
	copy(result, s.lines)
	return result
}

func (s *Stream) Len() int {
	return len(s.lines)
}
