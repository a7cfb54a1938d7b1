// Package scope implements the per-session stack of lexical scope frames.
//
// Every block that introduces a scope pushes exactly one frame on entry and
// pops it on every exit path. The stack counts pushes and pops so callers
// and tests can check the balance after a run.
package scope

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/planrunner/internal/value"
)

// DefaultMaxDepth bounds nesting of scope frames within one session.
const DefaultMaxDepth = 256

var (
	// ErrUnderflow is returned by Pop on an empty stack.
	ErrUnderflow = errors.New("scope: pop on empty stack")
	// ErrOverflow is returned by Push when the depth limit is reached.
	ErrOverflow = errors.New("scope: maximum depth exceeded")
)

// Frame holds the variables declared in one scope.
type Frame struct {
	vars map[string]value.Value
}

// Get returns a variable declared in this frame.
func (f *Frame) Get(name string) (value.Value, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// Set declares or overwrites a variable in this frame.
func (f *Frame) Set(name string, v value.Value) {
	f.vars[name] = v
}

// Stack is owned by a single session and is not safe for concurrent use.
type Stack struct {
	frames   []*Frame
	maxDepth int
	pushes   int
	pops     int
}

// New returns an empty stack with the given depth limit. A limit of zero
// or less selects DefaultMaxDepth.
func New(maxDepth int) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Stack{maxDepth: maxDepth}
}

// Push opens a new frame.
func (s *Stack) Push() (*Frame, error) {
	if len(s.frames) >= s.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrOverflow, s.maxDepth)
	}
	f := &Frame{vars: make(map[string]value.Value)}
	s.frames = append(s.frames, f)
	s.pushes++
	return f, nil
}

// Pop closes the innermost frame.
func (s *Stack) Pop() error {
	if len(s.frames) == 0 {
		return ErrUnderflow
	}
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	s.pops++
	return nil
}

// Depth returns the number of open frames.
func (s *Stack) Depth() int { return len(s.frames) }

// Pushes returns the total number of successful pushes.
func (s *Stack) Pushes() int { return s.pushes }

// Pops returns the total number of successful pops.
func (s *Stack) Pops() int { return s.pops }

// Balanced reports whether every push has been matched by a pop.
func (s *Stack) Balanced() bool { return s.pushes == s.pops && len(s.frames) == 0 }

// Top returns the innermost frame, or nil when the stack is empty.
func (s *Stack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Lookup resolves a variable from the innermost frame outwards.
func (s *Stack) Lookup(name string) (value.Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Assign updates the nearest frame that declares name, or declares it in
// the innermost frame. It fails only when no frame is open.
func (s *Stack) Assign(name string, v value.Value) error {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i].vars[name]; ok {
			s.frames[i].vars[name] = v
			return nil
		}
	}
	top := s.Top()
	if top == nil {
		return fmt.Errorf("scope: no frame open to assign %q", name)
	}
	top.Set(name, v)
	return nil
}
