package main

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/natives"
	"github.com/emberscript/embervm/value"
)

// demo bundles a hand-assembled Unit with the call this binary's `run`/
// `disasm`/`stats` subcommands exercise, playing the same role hey's
// cmd/vm-demo's inline PHP snippets play - except the compiler that would
// turn source text into a Unit is out of scope (§1), so each demo uses
// bytecode.Builder directly, the same way vm's own tests do.
type demo struct {
	name string
	doc  string
	// build returns a Unit and the entry hash to call.
	build func() (*bytecode.Unit, ident.Hash)
	// args builds the entry point's argument values. It runs after vm.New
	// so demos whose arguments are heap-allocated (matchObjectDemo's Object
	// argument) can allocate them on the Vm's own heap - a Unit has nowhere
	// to allocate into on its own. Nil means "no arguments".
	args func(h *heap.Heap) []value.Value
	// ctx optionally supplies a natives.Context the demo's Unit calls into
	// (the await-chain and select demos register a native future source).
	ctx func() *natives.Context
}

var demos = []demo{
	fibDemo,
	divZeroDemo,
	matchObjectDemo,
	closureDemo,
	awaitChainDemo,
	selectDemo,
}

func findDemo(name string) *demo {
	for i := range demos {
		if demos[i].name == name {
			return &demos[i]
		}
	}
	return nil
}

// fibDemo is spec.md §8 scenario S1: fib(10) == 55 via recursive Call.
var fibDemo = demo{
	name: "fib",
	doc:  "recursive fib(10), exercises Call/arithmetic/control flow",
	build: func() (*bytecode.Unit, ident.Hash) {
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
		return b.Build(), fibHash
	},
	args: func(h *heap.Heap) []value.Value { return []value.Value{value.Integer(10)} },
}

// divZeroDemo is S2: 1 / 0 surfaces DivideByZero with a one-frame trace.
var divZeroDemo = demo{
	name: "divzero",
	doc:  "1 / 0, exercises checked-arithmetic error propagation",
	build: func() (*bytecode.Unit, ident.Hash) {
		b := bytecode.NewBuilder("divzero")
		divHash := ident.Name("divzero")
		b.DefineFn(divHash, 0, 2, bytecode.CallImmediate)
		b.Emit(bytecode.Inst{Op: bytecode.OpDiv})
		b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
		return b.Build(), divHash
	},
	args: func(h *heap.Heap) []value.Value { return []value.Value{value.Integer(1), value.Integer(0)} },
}

// matchObjectDemo is S3: MatchObject against {name: "A", score: 3} with an
// exact key set.
var matchObjectDemo = demo{
	name: "matchobject",
	doc:  `MatchObject({name:"A", score:3}, exact=["name","score"])`,
	build: func() (*bytecode.Unit, ident.Hash) {
		b := bytecode.NewBuilder("matchobject")
		fnHash := ident.Name("matchobject")
		keys := b.InternObjectKeys([]string{"name", "score"})
		b.DefineFn(fnHash, 0, 1, bytecode.CallImmediate)
		b.Emit(bytecode.Inst{Op: bytecode.OpMatchObject, Check: bytecode.CheckObject, A: int32(keys), Exact: true})
		b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
		return b.Build(), fnHash
	},
	args: func(h *heap.Heap) []value.Value {
		obj := h.AllocateObject([]string{"name", "score"}, []value.Value{h.AllocateString("A"), value.Integer(3)})
		return []value.Value{obj}
	},
	ctx: func() *natives.Context { return natives.NewContext() },
}

// closureDemo is S4: a closure over x=2 applied to 3 returns 5.
var closureDemo = demo{
	name: "closure",
	doc:  "closure capturing x=2, applied to 3, returns 5",
	build: func() (*bytecode.Unit, ident.Hash) {
		b := bytecode.NewBuilder("closure")
		addHash := ident.Name("closureBody")
		bodyOffset := b.Here()
		b.DefineFn(addHash, bodyOffset, 2, bytecode.CallImmediate)
		// On entry: [appliedValue, capturedTuple] (top = capturedTuple, the
		// closure's own environment pushed last by execCallFn's FnClosure
		// case); body computes capturedTuple.0 + appliedValue.
		b.Emit(bytecode.Inst{Op: bytecode.OpTupleIndexGetAt, A: 0, B: 0})
		b.Emit(bytecode.Inst{Op: bytecode.OpCopy, A: 2})
		b.Emit(bytecode.Inst{Op: bytecode.OpAdd})
		b.Emit(bytecode.Inst{Op: bytecode.OpClean, A: 2})
		b.Emit(bytecode.Inst{Op: bytecode.OpReturn})

		entryHash := ident.Name("closureEntry")
		b.DefineFn(entryHash, b.Here(), 0, bytecode.CallImmediate)
		b.Emit(bytecode.Inst{Op: bytecode.OpInteger, IntVal: 3}) // the value the closure is applied to
		b.Emit(bytecode.Inst{Op: bytecode.OpInteger, IntVal: 2}) // x, captured into the closure's environment
		b.Emit(bytecode.Inst{Op: bytecode.OpClosure, Hash: addHash, A: 1})
		b.Emit(bytecode.Inst{Op: bytecode.OpCallFn, A: 1})
		b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
		return b.Build(), entryHash
	},
}

// stubAwaitable resolves immediately to a fixed value the first time it is
// polled - a minimal native future, grounded on heap_test.go's own
// stubAwaitable used for the same purpose. It also implements the optional
// Poll() capability vm.resolveAwaited recognizes (vm/future.go's pollable
// interface) so Select can pick it without blocking.
type stubAwaitable struct{ v value.Value }

func (s *stubAwaitable) Await() (value.Value, error) { return s.v, nil }
func (s *stubAwaitable) Poll() (value.Value, bool)   { return s.v, true }

// awaitChainDemo is S5: await a native future producing "ok", then
// concatenate "x" + awaited, returning "xok".
var awaitChainDemo = demo{
	name: "await",
	doc:  `await a native future resolving to "ok", concat with "x"`,
	build: func() (*bytecode.Unit, ident.Hash) {
		b := bytecode.NewBuilder("await")
		nativeHash := ident.Name("native_ok_future")
		entryHash := ident.Name("awaitEntry")
		b.DefineFn(entryHash, 0, 0, bytecode.CallImmediate)
		xSlot := b.InternString("x")
		b.Emit(bytecode.Inst{Op: bytecode.OpString, A: int32(xSlot)})
		b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: nativeHash, A: 0})
		b.Emit(bytecode.Inst{Op: bytecode.OpAwait})
		b.Emit(bytecode.Inst{Op: bytecode.OpStringConcat, A: 2, B: 8})
		b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
		return b.Build(), entryHash
	},
	ctx: func() *natives.Context {
		ctx := natives.NewContext()
		ctx.RegisterAsync(ident.Name("native_ok_future"), "native_ok_future",
			func(stack natives.Stack, argCount int) (heap.Awaitable, error) {
				return &stubAwaitable{v: stack.Heap().AllocateString("ok")}, nil
			})
		return ctx
	},
}

// selectDemo is S6: Select(2) over [pending, ready(42)]; on resume the
// stack holds 42 with branch index 1 on top of it.
var selectDemo = demo{
	name: "select",
	doc:  "Select(2) over [pending, ready(42)], resumes with (42, branch=1)",
	build: func() (*bytecode.Unit, ident.Hash) {
		b := bytecode.NewBuilder("select")
		pendingHash := ident.Name("native_pending_future")
		readyHash := ident.Name("native_ready_future")
		entryHash := ident.Name("selectEntry")
		b.DefineFn(entryHash, 0, 0, bytecode.CallImmediate)
		b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: pendingHash, A: 0})
		b.Emit(bytecode.Inst{Op: bytecode.OpCall, Hash: readyHash, A: 0})
		b.Emit(bytecode.Inst{Op: bytecode.OpSelect, A: 2})
		// Resume leaves [value, branchIndex]; this demo only cares about the
		// resolved value, so drop the branch index before returning.
		b.Emit(bytecode.Inst{Op: bytecode.OpPop})
		b.Emit(bytecode.Inst{Op: bytecode.OpReturn})
		return b.Build(), entryHash
	},
	ctx: func() *natives.Context {
		ctx := natives.NewContext()
		ctx.RegisterAsync(ident.Name("native_pending_future"), "native_pending_future",
			func(stack natives.Stack, argCount int) (heap.Awaitable, error) {
				return &blockingAwaitable{}, nil
			})
		ctx.RegisterAsync(ident.Name("native_ready_future"), "native_ready_future",
			func(stack natives.Stack, argCount int) (heap.Awaitable, error) {
				return &stubAwaitable{v: value.Integer(42)}, nil
			})
		return ctx
	},
}

// blockingAwaitable never resolves on its own, exercising Select's "at
// least one live future remains" path (§4.6 "Select"); its Poll always
// reports not-ready so the demo driver (runner.go) never actually blocks on
// it - the other branch (stubAwaitable) is always the one picked.
type blockingAwaitable struct{}

func (b *blockingAwaitable) Await() (value.Value, error) {
	panic("blockingAwaitable must never be blocking-awaited by the select demo driver")
}
func (b *blockingAwaitable) Poll() (value.Value, bool) { return value.Value{}, false }
