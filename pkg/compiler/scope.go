package compiler

import "fmt"

// ScopeTracker numbers lexical scopes as lowering walks the tree. Identifiers
// are monotonically increasing for the whole compilation, never reused, so a
// scope id names one region of the source forever and symbol cleanup can key
// on it. The program scope sits at the bottom of the stack and is never
// popped.
type ScopeTracker struct {
	stack  []int
	nextID int
}

// NewScopeTracker returns a tracker already inside the program scope.
func NewScopeTracker() *ScopeTracker {
	return &ScopeTracker{stack: []int{0}, nextID: 1}
}

// Enter opens a nested scope and returns its id.
func (s *ScopeTracker) Enter() int {
	id := s.nextID
	s.nextID++
	s.stack = append(s.stack, id)
	return id
}

// Exit closes the innermost scope and returns its id. Popping the program
// scope is an internal invariant violation.
func (s *ScopeTracker) Exit() (int, error) {
	if len(s.stack) <= 1 {
		return 0, fmt.Errorf("exit at program scope: %w", ErrEmptyHandlerStack)
	}
	id := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return id, nil
}

// Current is the id of the innermost open scope.
func (s *ScopeTracker) Current() int {
	return s.stack[len(s.stack)-1]
}

// Depth is how many scopes are open, the program scope included.
func (s *ScopeTracker) Depth() int {
	return len(s.stack)
}
