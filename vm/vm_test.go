package vm

import (
	"testing"

	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/natives"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fib(n) = n < 2 ? n : fib(n-1) + fib(n-2), recursive via CallImmediate.
func TestFibonacciRecursion(t *testing.T) {
	b := bytecode.NewBuilder("fib")
	fibHash := ident.Name("fib")
	b.DefineFn(fibHash, 0, 1, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpCopy, A: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpInteger, IntVal: 2})
	b.Emit(bytecode.Inst{Op: bytecode.OpLt})
	b.Emit(bytecode.Inst{Op: bytecode.OpJumpIfNot, A: 5})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
	b.Emit(bytecode.Inst{Op: bytecode.OpCopy, A: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpInteger, IntVal: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpSub})
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: fibHash, A: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpCopy, A: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpInteger, IntVal: 2})
	b.Emit(bytecode.Inst{Op: bytecode.OpSub})
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: fibHash, A: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpAdd})
	b.Emit(bytecode.Inst{Op: bytecode.OpDrop, A: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
	unit := b.Build()

	m := New(natives.NewContext(), unit)
	exec, err := m.Call(fibHash, []value.Value{value.Integer(10)})
	require.NoError(t, err)

	reason, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, Exited, reason.Kind)
	assert.Equal(t, value.Integer(55), reason.Value)
}

func TestDivisionByZeroSurfacesAsError(t *testing.T) {
	b := bytecode.NewBuilder("div")
	divHash := ident.Name("div")
	b.DefineFn(divHash, 0, 2, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpDiv})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
	unit := b.Build()

	m := New(natives.NewContext(), unit)
	exec, err := m.Call(divHash, []value.Value{value.Integer(10), value.Integer(0)})
	require.NoError(t, err)

	_, err = exec.Run()
	assert.ErrorIs(t, err, vmerr.DivideByZero)
}

func TestMatchObjectExactKeySetRejectsSupersetAndSubset(t *testing.T) {
	b := bytecode.NewBuilder("match")
	fnHash := ident.Name("matchExact")
	keysSlot := b.InternObjectKeys([]string{"x", "y"})
	b.DefineFn(fnHash, 0, 1, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpMatchObject, Check: bytecode.CheckObject, A: int32(keysSlot), Exact: true})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
	unit := b.Build()

	exactObj := func(m *Vm) value.Value {
		return m.Heap().AllocateObject([]string{"x", "y"}, []value.Value{value.Integer(1), value.Integer(2)})
	}
	subsetObj := func(m *Vm) value.Value {
		return m.Heap().AllocateObject([]string{"x"}, []value.Value{value.Integer(1)})
	}
	supersetObj := func(m *Vm) value.Value {
		return m.Heap().AllocateObject([]string{"x", "y", "z"}, []value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	}

	for name, tc := range map[string]struct {
		build func(*Vm) value.Value
		want  bool
	}{
		"exact match":    {exactObj, true},
		"missing a key":  {subsetObj, false},
		"extra key":      {supersetObj, false},
	} {
		t.Run(name, func(t *testing.T) {
			m := New(natives.NewContext(), unit)
			arg := tc.build(m)
			exec, err := m.Call(fnHash, []value.Value{arg})
			require.NoError(t, err)
			reason, err := exec.Run()
			require.NoError(t, err)
			require.Equal(t, Exited, reason.Kind)
			got, ok := reason.Value.Truthy()
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchObjectInexactAcceptsSupersetOnly(t *testing.T) {
	b := bytecode.NewBuilder("match")
	fnHash := ident.Name("matchInexact")
	keysSlot := b.InternObjectKeys([]string{"x"})
	b.DefineFn(fnHash, 0, 1, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpMatchObject, Check: bytecode.CheckObject, A: int32(keysSlot), Exact: false})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
	unit := b.Build()

	t.Run("object has the required key plus more", func(t *testing.T) {
		m := New(natives.NewContext(), unit)
		arg := m.Heap().AllocateObject([]string{"x", "y"}, []value.Value{value.Integer(1), value.Integer(2)})
		exec, err := m.Call(fnHash, []value.Value{arg})
		require.NoError(t, err)
		reason, err := exec.Run()
		require.NoError(t, err)
		got, _ := reason.Value.Truthy()
		assert.True(t, got)
	})

	t.Run("object is missing the required key", func(t *testing.T) {
		m := New(natives.NewContext(), unit)
		arg := m.Heap().AllocateObject([]string{"y"}, []value.Value{value.Integer(2)})
		exec, err := m.Call(fnHash, []value.Value{arg})
		require.NoError(t, err)
		reason, err := exec.Run()
		require.NoError(t, err)
		got, _ := reason.Value.Truthy()
		assert.False(t, got)
	})
}

// TestClosureCaptureExtractsFieldAndReapsOnReturn builds a closure over a
// literal string, calls it with a user-supplied string argument, concatenates
// the two inside the closure body, and checks every intermediate slot
// (the closure's own FnPtr, its captured tuple, the argument) is reaped by
// the time the call returns.
func TestClosureCaptureExtractsFieldAndReapsOnReturn(t *testing.T) {
	b := bytecode.NewBuilder("closure")

	capturedFnHash := ident.Name("capturedFn")
	capturedOffset := b.Here()
	b.DefineFn(capturedFnHash, capturedOffset, 2, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpTupleIndexGetAt, A: 0, B: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpCopy, A: 2})
	b.Emit(bytecode.Inst{Op: bytecode.OpStringConcat, A: 2, B: 32})
	b.Emit(bytecode.Inst{Op: bytecode.OpClean, A: 2})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})

	mainFnHash := ident.Name("mainFn")
	helloSlot := b.InternString("Hello, ")
	mainOffset := b.Here()
	b.DefineFn(mainFnHash, mainOffset, 1, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpString, A: int32(helloSlot)})
	b.Emit(bytecode.Inst{Op: bytecode.OpClosure, Hash: capturedFnHash, A: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpCallFn, A: 1})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})

	unit := b.Build()
	m := New(natives.NewContext(), unit)
	h := m.Heap()

	userArg := h.AllocateString("World")
	exec, err := m.Call(mainFnHash, []value.Value{userArg})
	require.NoError(t, err)

	reason, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, Exited, reason.Kind)

	got, err := h.CloneString(reason.Value.H)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", got)

	require.NoError(t, h.DecRefValue(reason.Value))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount(), "closure slot, captured tuple and argument must all have been reaped")
}

// stubAsyncAwaitable completes immediately to a fixed string value, standing
// in for a native async handler's outstanding work.
type stubAsyncAwaitable struct{ result string }

func (s *stubAsyncAwaitable) Await() (value.Value, error) {
	return value.StaticString(0), nil
}

// TestAwaitChainConcatenatesAcrossSuspension drives the embedder-facing half
// of the async protocol directly: a top-level Awaited stop must be resolved
// by hand via Heap().BeginAwait + Awaitable.Await + Execution.Resume, never
// auto-resolved the way nested calls are.
func TestAwaitChainConcatenatesAcrossSuspension(t *testing.T) {
	b := bytecode.NewBuilder("await")

	asyncFnHash := ident.Name("asyncFn")
	worldSlot := b.InternString("World")
	asyncOffset := b.Here()
	b.DefineFn(asyncFnHash, asyncOffset, 0, bytecode.CallAsync)
	b.Emit(bytecode.Inst{Op: bytecode.OpString, A: int32(worldSlot)})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})

	mainFnHash := ident.Name("mainFn")
	helloSlot := b.InternString("Hello, ")
	mainOffset := b.Here()
	b.DefineFn(mainFnHash, mainOffset, 0, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpString, A: int32(helloSlot)})
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: asyncFnHash, A: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpAwait})
	b.Emit(bytecode.Inst{Op: bytecode.OpStringConcat, A: 2, B: 32})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})

	unit := b.Build()
	m := New(natives.NewContext(), unit)
	h := m.Heap()

	exec, err := m.Call(mainFnHash, nil)
	require.NoError(t, err)

	reason, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, Awaited, reason.Kind)
	require.Equal(t, AwaitSingleFuture, reason.AwaitKind)

	awaitable, err := h.BeginAwait(reason.AwaitFuture.H)
	require.NoError(t, err)
	resolved, err := awaitable.Await()
	require.NoError(t, err)

	reason, err = exec.Resume(resolved)
	require.NoError(t, err)
	require.Equal(t, Exited, reason.Kind)

	got, err := h.CloneString(reason.Value.H)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", got)
}

// TestSelectResolvesFirstReadyBranch exercises a two-future Select where
// both branches are backed by native async handlers; the test plays the part
// of the embedder resolving the AwaitSelectList stop for branch 0 by hand.
func TestSelectResolvesFirstReadyBranch(t *testing.T) {
	b := bytecode.NewBuilder("select")

	asyncAHash := ident.Name("asyncA")
	asyncBHash := ident.Name("asyncB")

	mainFnHash := ident.Name("mainFn")
	b.DefineFn(mainFnHash, 0, 0, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: asyncAHash, A: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: asyncBHash, A: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpSelect, A: 2})
	b.Emit(bytecode.Inst{Op: bytecode.OpJumpIfBranch, A: 0, B: 4})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})

	unit := b.Build()

	ctx := natives.NewContext()
	ctx.RegisterAsync(asyncAHash, "asyncA", func(s natives.Stack, argCount int) (heap.Awaitable, error) {
		return &stubAsyncAwaitable{result: "A"}, nil
	})
	ctx.RegisterAsync(asyncBHash, "asyncB", func(s natives.Stack, argCount int) (heap.Awaitable, error) {
		return &stubAsyncAwaitable{result: "B"}, nil
	})

	m := New(ctx, unit)
	h := m.Heap()

	exec, err := m.Call(mainFnHash, nil)
	require.NoError(t, err)

	reason, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, Awaited, reason.Kind)
	require.Equal(t, AwaitSelectList, reason.AwaitKind)
	require.Len(t, reason.SelectFutures, 2)

	awaitable, err := h.BeginAwait(reason.SelectFutures[0].H)
	require.NoError(t, err)
	resolved, err := awaitable.Await()
	require.NoError(t, err)

	reason, err = exec.ResumeSelect(resolved, 0)
	require.NoError(t, err)
	require.Equal(t, Exited, reason.Kind)
	assert.Equal(t, value.StaticString(0), reason.Value)
}

// TestSelectPreservesOriginalBranchIndexForAlreadyCompletedOperand covers
// Select(n) when an earlier operand was already polled to completion (by a
// direct Await on a duplicate handle to the same Future) before Select
// runs. The live branch here is the second operand, so a correct Select
// reports branch 1 - the position it was pushed at, matching rune's own
// op_select (crates/runestick/src/vm.rs), which keeps each future's
// pre-filter index rather than renumbering the surviving set from 0.
func TestSelectPreservesOriginalBranchIndexForAlreadyCompletedOperand(t *testing.T) {
	b := bytecode.NewBuilder("select_gap")

	asyncAHash := ident.Name("asyncA")
	asyncBHash := ident.Name("asyncB")

	mainFnHash := ident.Name("mainFn")
	b.DefineFn(mainFnHash, 0, 0, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: asyncAHash, A: 0}) // 0: stack [futureA]
	b.Emit(bytecode.Inst{Op: bytecode.OpCopy, A: 0})                   // 1: stack [futureA, futureA]
	b.Emit(bytecode.Inst{Op: bytecode.OpAwait})                        // 2: pops dup, suspends
	b.Emit(bytecode.Inst{Op: bytecode.OpPop})                          // 3: drop the awaited result
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: asyncBHash, A: 0}) // 4: stack [futureA(completed), futureB]
	b.Emit(bytecode.Inst{Op: bytecode.OpSelect, A: 2})                 // 5: suspends
	b.Emit(bytecode.Inst{Op: bytecode.OpJumpIfBranch, A: 1, B: 7})     // 6
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})                       // 7 (reached either way; only branch 1 pops the index)

	unit := b.Build()

	ctx := natives.NewContext()
	ctx.RegisterAsync(asyncAHash, "asyncA", func(s natives.Stack, argCount int) (heap.Awaitable, error) {
		return &stubAsyncAwaitable{result: "A"}, nil
	})
	ctx.RegisterAsync(asyncBHash, "asyncB", func(s natives.Stack, argCount int) (heap.Awaitable, error) {
		return &stubAsyncAwaitable{result: "B"}, nil
	})

	m := New(ctx, unit)
	h := m.Heap()

	exec, err := m.Call(mainFnHash, nil)
	require.NoError(t, err)

	reason, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, Awaited, reason.Kind)
	require.Equal(t, AwaitSingleFuture, reason.AwaitKind)

	awaitable, err := h.BeginAwait(reason.AwaitFuture.H)
	require.NoError(t, err)
	resolved, err := awaitable.Await()
	require.NoError(t, err)

	reason, err = exec.Resume(resolved)
	require.NoError(t, err)
	require.Equal(t, Awaited, reason.Kind)
	require.Equal(t, AwaitSelectList, reason.AwaitKind)
	require.Len(t, reason.SelectFutures, 2)

	// Operand 0 (futureA) was already completed by the direct Await above;
	// its slot carries no live Future for Select to poll.
	assert.NotEqual(t, value.KFuture, reason.SelectFutures[0].Kind)
	assert.Equal(t, value.KFuture, reason.SelectFutures[1].Kind)

	awaitableB, err := h.BeginAwait(reason.SelectFutures[1].H)
	require.NoError(t, err)
	resolvedB, err := awaitableB.Await()
	require.NoError(t, err)

	reason, err = exec.ResumeSelect(resolvedB, 1)
	require.NoError(t, err)
	require.Equal(t, Exited, reason.Kind)
	assert.Equal(t, value.StaticString(0), reason.Value)
}

// TestNativeHandlerParkedGuardIsDisarmedAtHandlerBoundary exercises the
// Stack.ParkGuard/DisarmGuards escape hatch (§4.4, §5 "the interpreter
// invokes [disarm] at every handler boundary"): a synchronous handler that
// parks a borrow guard instead of releasing it before returning must still
// see it released once callNative's handler call returns, so a conflicting
// exclusive borrow attempted right after the call succeeds.
func TestNativeHandlerParkedGuardIsDisarmedAtHandlerBoundary(t *testing.T) {
	b := bytecode.NewBuilder("parkguard")
	peekHash := ident.Name("peekString")
	mainFnHash := ident.Name("mainFn")
	b.DefineFn(mainFnHash, 0, 0, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: peekHash, A: 0})
	b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
	unit := b.Build()

	var handle value.Handle
	ctx := natives.NewContext()
	ctx.Register(peekHash, "peekString", func(s natives.Stack, argCount int) error {
		strVal := s.Heap().AllocateString("parked")
		handle = strVal.H
		guard, err := s.Heap().RefString(handle)
		if err != nil {
			return err
		}
		// Intentionally parked rather than released here, to exercise the
		// boundary disarm instead of an explicit guard.Release().
		s.ParkGuard(guard)
		return s.Push(strVal)
	})

	m := New(ctx, unit)
	exec, err := m.Call(mainFnHash, nil)
	require.NoError(t, err)

	reason, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, Exited, reason.Kind)

	_, err = m.Heap().MutString(handle)
	assert.NoError(t, err, "parked guard should have been released at the native-call boundary")
}

func TestRunForLimitReturnsLimitedWithoutAdvancingState(t *testing.T) {
	b := bytecode.NewBuilder("loop")
	fnHash := ident.Name("spin")
	b.DefineFn(fnHash, 0, 0, bytecode.CallImmediate)
	b.Emit(bytecode.Inst{Op: bytecode.OpJump, A: 0})
	unit := b.Build()

	m := New(natives.NewContext(), unit)
	exec, err := m.Call(fnHash, nil)
	require.NoError(t, err)

	reason, err := exec.Step(3)
	require.NoError(t, err)
	require.Equal(t, Limited, reason.Kind)
	assert.Equal(t, StateRunning, m.State(), "a Limited stop is a budget cutoff, not a suspension - the Vm stays running")
}

func TestPopFrameRejectsWrongResidualCount(t *testing.T) {
	hp := heap.New()
	s := newStack(hp, nil)
	require.NoError(t, s.PushFrame(-1, 0))
	require.NoError(t, s.Push(value.Integer(1)))
	require.NoError(t, s.Push(value.Integer(2)))

	_, err := s.PopFrame()
	assert.ErrorIs(t, err, vmerr.CorruptedStackFrame)
}
