package compiler

import (
	"errors"
	"testing"
)

func TestScopeIdsNeverRepeat(t *testing.T) {
	s := NewScopeTracker()
	if s.Current() != 0 {
		t.Fatalf("program scope should be id 0, got %d", s.Current())
	}
	a := s.Enter()
	b := s.Enter()
	if a != 1 || b != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", a, b)
	}
	if id, err := s.Exit(); err != nil || id != b {
		t.Fatalf("Exit returned %d, %v", id, err)
	}
	// the id of the exited scope is retired for good
	if c := s.Enter(); c != 3 {
		t.Errorf("expected fresh id 3, got %d", c)
	}
}

func TestExitAtProgramScope(t *testing.T) {
	s := NewScopeTracker()
	_, err := s.Exit()
	if !errors.Is(err, ErrEmptyHandlerStack) {
		t.Errorf("expected ErrEmptyHandlerStack, got %v", err)
	}
}

func TestScopeDepth(t *testing.T) {
	s := NewScopeTracker()
	if s.Depth() != 1 {
		t.Fatalf("expected depth 1 at program scope, got %d", s.Depth())
	}
	s.Enter()
	inner := s.Enter()
	if s.Depth() != 3 {
		t.Errorf("expected depth 3, got %d", s.Depth())
	}
	if s.Current() != inner {
		t.Errorf("Current should be the innermost id %d, got %d", inner, s.Current())
	}
	if _, err := s.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
	if s.Depth() != 2 {
		t.Errorf("expected depth 2 after one exit, got %d", s.Depth())
	}
}
