package vm

import (
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// asyncCall is the Awaitable a script-originated async Call wraps (§3.3
// "Future", §4.6 "Call ... wrap into a Future (Async)"). The heap's
// BeginAwait/Awaitable contract (heap/payloads.go) is synchronous, so
// awaiting one drives its child Vm to completion, itself resolving any
// further suspension the child hits (nested awaits, selects, or - should the
// child spawn its own async/generator calls - further child Vms), rather
// than surfacing a CallVm stop up to an external top-level driver.
type asyncCall struct {
	vm *Vm
}

func (a *asyncCall) Await() (value.Value, error) {
	return a.vm.runToCompletion()
}

// runToCompletion drives vm until it exits, resolving any suspension it
// hits along the way without needing an external driver.
func (vm *Vm) runToCompletion() (value.Value, error) {
	for {
		reason, err := vm.RunFor(-1)
		if err != nil {
			return value.Value{}, err
		}
		switch reason.Kind {
		case Exited:
			return reason.Value, nil
		case Awaited:
			resolved, branch, err := vm.resolveAwaited(reason)
			if err != nil {
				return value.Value{}, err
			}
			if branch < 0 {
				if err := vm.ResumeWith(resolved); err != nil {
					return value.Value{}, err
				}
			} else if err := vm.ResumeSelectWith(resolved, branch); err != nil {
				return value.Value{}, err
			}
		case Yielded:
			return value.Value{}, yieldInsideAsyncCallError()
		case Limited:
			// runToCompletion passes an unbounded limit, so this should not
			// happen in practice; loop rather than wedge the driver.
		}
	}
}

// resolveAwaited blocks on whatever reason describes - a single future, or
// the first ready entry of a select list - returning the branch index (or
// -1 for a plain single-future await).
func (vm *Vm) resolveAwaited(reason *StopReason) (value.Value, int, error) {
	if reason.AwaitKind == AwaitSingleFuture {
		v, err := vm.awaitOne(reason.AwaitFuture)
		return v, -1, err
	}
	// Invariant 6 (§3.4) is "a Future is polled at most once", so every
	// branch's BeginAwait is called here exactly once, up front, before any
	// blocking - a branch that isn't picked must not be touched again.
	//
	// reason.SelectFutures carries a zero Value at the original operand
	// position of any future execSelect already found completed (§4.6 exact
	// indices, see exec_async.go); those slots are skipped here rather than
	// treated as awaitable, so the branch index returned always matches the
	// operand position the compiler emitted Select for.
	awaitables := make([]heap.Awaitable, len(reason.SelectFutures))
	firstLive := -1
	for i, f := range reason.SelectFutures {
		if f.Kind != value.KFuture {
			continue
		}
		a, err := vm.hp.BeginAwait(f.H)
		if err != nil {
			return value.Value{}, 0, err
		}
		awaitables[i] = a
		if firstLive < 0 {
			firstLive = i
		}
		if err := vm.discard(f); err != nil {
			return value.Value{}, 0, err
		}
	}
	for i, a := range awaitables {
		if a == nil {
			continue
		}
		if p, ok := a.(pollable); ok {
			if v, ready := p.Poll(); ready {
				return v, i, nil
			}
		}
	}
	// Nothing was ready without blocking; fall back to blocking on the
	// first live branch, matching a simple round-robin single-threaded
	// executor. The remaining branches' Futures were already marked
	// completed above and are discarded unresolved, per "completed ones are
	// discarded".
	v, err := awaitables[firstLive].Await()
	return v, firstLive, err
}

func (vm *Vm) awaitOne(futureVal value.Value) (value.Value, error) {
	awaitable, err := vm.hp.BeginAwait(futureVal.H)
	if err != nil {
		return value.Value{}, err
	}
	if err := vm.discard(futureVal); err != nil {
		return value.Value{}, err
	}
	return awaitable.Await()
}

// pollable is an optional capability a native Awaitable may implement to
// let Select discover readiness without blocking (§4.6 "Select ... completed
// ones are discarded"). heap.Awaitable itself stays a single blocking
// method so native handlers that have no such notion can ignore this.
type pollable interface {
	Poll() (value.Value, bool)
}

// yieldInsideAsyncCallError reports a script-originated async Call's child
// Vm hitting Yield: a plain Call(..., Async) wraps a Future, not a Generator
// (§4.6 "CallKind"), so its child has no driver to collect a yielded value.
func yieldInsideAsyncCallError() error {
	return vmerr.New(vmerr.YieldOutsideGenerator, "yield inside a non-generator async call")
}
