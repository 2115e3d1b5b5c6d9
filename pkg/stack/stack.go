package stack

// Stack is a LIFO container. The zero value is ready to use.
type Stack[T any] struct {
	a []T
}

// New creates a new stack instance holding elm, last element on top
func New[T any](elm ...T) *Stack[T] {
	s := &Stack[T]{a: make([]T, 0, len(elm))}
	s.a = append(s.a, elm...)
	return s
}

// Push adds an element to the top of the stack
func (s *Stack[T]) Push(elm T) {
	s.a = append(s.a, elm)
}

// Pop removes and returns the top element of the stack.
// ok is false when the stack is empty.
func (s *Stack[T]) Pop() (elm T, ok bool) {
	if len(s.a) == 0 {
		return elm, false
	}

	elm = s.a[len(s.a)-1]
	var zero T
	s.a[len(s.a)-1] = zero
	s.a = s.a[:len(s.a)-1]

	return elm, true
}

// PopN removes the top n elements and returns them in push order.
// Nothing is removed when fewer than n elements are present.
func (s *Stack[T]) PopN(n int) ([]T, bool) {
	if n < 0 || n > len(s.a) {
		return nil, false
	}

	start := len(s.a) - n
	out := make([]T, n)
	copy(out, s.a[start:])
	s.Truncate(start)

	return out, true
}

// Peek returns the top element of the stack without removing it
func (s *Stack[T]) Peek() (elm T, ok bool) {
	if len(s.a) == 0 {
		return elm, false
	}

	return s.a[len(s.a)-1], true
}

// Size returns the number of elements on the stack
func (s *Stack[T]) Size() int {
	return len(s.a)
}

// Truncate drops elements above height n
func (s *Stack[T]) Truncate(n int) {
	if n < 0 || n >= len(s.a) {
		return
	}

	var zero T
	for i := n; i < len(s.a); i++ {
		s.a[i] = zero
	}
	s.a = s.a[:n]
}
