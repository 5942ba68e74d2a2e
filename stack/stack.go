package stack

// A small generic stack. The lexer keeps one of indentation strings; the
// parser keeps one of grouping tokens.

type Stack[T comparable] struct {
	vals []T
}

func NewStack[T comparable]() *Stack[T] { return &Stack[T]{vals: []T{}} }

func (s *Stack[T]) Push(val T) {
	s.vals = append(s.vals, val)
}

func (s *Stack[T]) Pop() (T, bool) {
	if len(s.vals) == 0 {
		var zero T
		return zero, false
	}
	top := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return top, true
}

func (s *Stack[T]) HeadValue() (T, bool) {
	if len(s.vals) == 0 {
		var zero T
		return zero, false
	}
	return s.vals[len(s.vals)-1], true
}

func (s *Stack[T]) Len() int { return len(s.vals) }

func (s *Stack[T]) IsEmpty() bool { return len(s.vals) == 0 }

// Find returns how many pops it would take to bring e to the top of the
// stack, or -1 if e isn't in the stack at all.
func (s *Stack[T]) Find(e T) int {
	level := -1
	for i := len(s.vals) - 1; i >= 0; i-- {
		level++
		if s.vals[i] == e {
			return level
		}
	}
	return -1
}
