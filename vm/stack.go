// Package vm implements the interpreter loop, operand stack and call-frame
// discipline described in §4.5/§4.6: it ties together bytecode.Unit,
// value.Value, heap.Heap and natives.Context into the running Vm.
package vm

import (
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// Frame is a saved (return_ip, caller_stack_top) pair (§4.5, GLOSSARY).
type Frame struct {
	ReturnIP       int
	CallerStackTop int
}

// Stack is the operand stack plus its frame records (§4.5). A Stack belongs
// to exactly one Vm. Push/Pop are raw stack mechanics only - they never
// touch refcounts; the interpreter calls Dup/Drop explicitly whenever a
// value is actually being duplicated onto, or discarded from, the stack.
// This keeps "does this instruction own one logical reference or two" an
// explicit decision at every call site instead of an implicit side effect
// of stack shape, which is what made the teacher's own comment on
// builtin_context.go ("adapts ... without creating package cycles") worth
// following here too: refcounting is a heap concern, not a stack one.
type Stack struct {
	vals     []value.Value
	frames   []Frame
	stackTop int

	hp      *heap.Heap
	statics []string
	guards  []heap.RawGuard
}

func newStack(hp *heap.Heap, statics []string) *Stack {
	return &Stack{hp: hp, statics: statics}
}

func (s *Stack) Len() int             { return len(s.vals) }
func (s *Stack) Heap() *heap.Heap     { return s.hp }
func (s *Stack) Statics() []string    { return s.statics }
func (s *Stack) StackTop() int        { return s.stackTop }
func (s *Stack) Depth() int           { return len(s.frames) }

// Push appends a value (§4.5 "push(v) appends").
func (s *Stack) Push(v value.Value) error {
	s.vals = append(s.vals, v)
	return nil
}

// Pop refuses to pop past the current frame's stack_top (§3.4 invariant 1,
// §4.5 "pop() refuses if len == stack_top").
func (s *Stack) Pop() (value.Value, error) {
	if len(s.vals) <= s.stackTop {
		return value.Value{}, vmerr.New(vmerr.PopOutOfBounds, "pop at stack_top %d", s.stackTop)
	}
	v := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return v, nil
}

// PopN pops n values in stack order (oldest first), refusing if it would
// cross stack_top.
func (s *Stack) PopN(n int) ([]value.Value, error) {
	if len(s.vals)-n < s.stackTop {
		return nil, vmerr.New(vmerr.PopOutOfBounds, "pop %d at stack_top %d", n, s.stackTop)
	}
	out := append([]value.Value(nil), s.vals[len(s.vals)-n:]...)
	s.vals = s.vals[:len(s.vals)-n]
	return out, nil
}

// At addresses stack[len-1-offsetFromTop], used by natives (§6.3) to read
// their arguments without popping them.
func (s *Stack) At(offsetFromTop int) (value.Value, error) {
	idx := len(s.vals) - 1 - offsetFromTop
	if idx < s.stackTop || idx >= len(s.vals) {
		return value.Value{}, vmerr.New(vmerr.StackOutOfBounds, "at(%d): index %d out of [%d,%d)", offsetFromTop, idx, s.stackTop, len(s.vals))
	}
	return s.vals[idx], nil
}

// SetAt overwrites stack[len-1-offsetFromTop], used by Replace and the
// *Assign arithmetic ops.
func (s *Stack) SetAt(offsetFromTop int, v value.Value) error {
	idx := len(s.vals) - 1 - offsetFromTop
	if idx < s.stackTop || idx >= len(s.vals) {
		return vmerr.New(vmerr.StackOutOfBounds, "set_at(%d): index %d out of [%d,%d)", offsetFromTop, idx, s.stackTop, len(s.vals))
	}
	s.vals[idx] = v
	return nil
}

// RemoveAt removes stack[len-1-offsetFromTop] and shifts everything above it
// down by one, used by Drop(offset) (§4.6 "Stack manipulation"). Unlike Pop,
// this does not touch refcounts - the caller decides whether the removed
// value is being discarded or moved elsewhere.
func (s *Stack) RemoveAt(offsetFromTop int) (value.Value, error) {
	idx := len(s.vals) - 1 - offsetFromTop
	if idx < s.stackTop || idx >= len(s.vals) {
		return value.Value{}, vmerr.New(vmerr.StackOutOfBounds, "remove_at(%d): index %d out of [%d,%d)", offsetFromTop, idx, s.stackTop, len(s.vals))
	}
	v := s.vals[idx]
	s.vals = append(s.vals[:idx], s.vals[idx+1:]...)
	return v, nil
}

// AtFrameOffset addresses stack[stack_top + k] (§4.5 "at_offset(k)").
func (s *Stack) AtFrameOffset(k int) (value.Value, error) {
	idx := s.stackTop + k
	if idx < s.stackTop || idx >= len(s.vals) {
		return value.Value{}, vmerr.New(vmerr.StackOutOfBounds, "frame offset %d out of range", k)
	}
	return s.vals[idx], nil
}

// PushFrame swaps stack_top to len-arg_count, saving the previous
// (return_ip, stack_top) as a new frame record (§4.5).
func (s *Stack) PushFrame(returnIP int, argCount int) error {
	if len(s.vals)-argCount < 0 {
		return vmerr.New(vmerr.PopOutOfBounds, "push_frame: %d args but only %d values live", argCount, len(s.vals)-s.stackTop)
	}
	s.frames = append(s.frames, Frame{ReturnIP: returnIP, CallerStackTop: s.stackTop})
	s.stackTop = len(s.vals) - argCount
	return nil
}

// PopFrame asserts the new top equals stack_top + 1 (the return value),
// then restores the caller's stack_top (§4.5, §3.4 invariant 5).
func (s *Stack) PopFrame() (Frame, error) {
	if len(s.frames) == 0 {
		return Frame{}, vmerr.New(vmerr.CorruptedStackFrame, "no frame to pop")
	}
	if len(s.vals) != s.stackTop+1 {
		return Frame{}, vmerr.New(vmerr.CorruptedStackFrame, "frame left %d values on return, want 1", len(s.vals)-s.stackTop)
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.stackTop = f.CallerStackTop
	return f, nil
}

// Dup contributes an additional refcount for v, used whenever an
// instruction duplicates a handle already on the stack (Dup, Copy,
// argument-by-copy) rather than moving it (§3.4 invariant 2).
func (s *Stack) Dup(v value.Value) error {
	return s.hp.IncRefValue(v)
}

// Drop releases v's refcount, used whenever a raw-popped value is being
// discarded rather than moved elsewhere (Pop, PopN, Clean, consumed
// operands).
func (s *Stack) Drop(v value.Value) error {
	return s.hp.DecRefValue(v)
}

// ParkGuard registers a raw guard to be released at the next handler
// boundary (§4.4, §4.7, §5).
func (s *Stack) ParkGuard(g heap.RawGuard) {
	s.guards = append(s.guards, g)
}

// DisarmGuards releases every parked raw guard. The interpreter calls this
// at every native-handler boundary (§5 "the interpreter invokes [disarm] at
// every handler boundary") and once more on Vm.Clear.
func (s *Stack) DisarmGuards() {
	for _, g := range s.guards {
		g.Release()
	}
	s.guards = s.guards[:0]
}
