package main

import (
	"fmt"

	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/natives"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vm"
)

// runDemo drives a demo's Unit to completion, playing the role of the
// "outer executor" §4.7/§6.2 describes: it resolves every Awaited stop by
// awaiting the future's Awaitable (or, for a Select, the first ready branch)
// and pushing the result back. Any other stop that is not Exited, Yielded
// included, is returned as an error. This
// mirrors hey's cmd/vm-demo executeCode helper (drive to completion, print
// the result or the error) without a compiler front end.
func runDemo(d *demo, traceOn bool) (value.Value, *vm.Vm, *vm.Trace, error) {
	unit, entry := d.build()
	var ctx *natives.Context
	if d.ctx != nil {
		ctx = d.ctx()
	} else {
		ctx = natives.NewContext()
	}

	var opts []vm.Option
	var trace *vm.Trace
	if traceOn {
		trace = vm.NewTrace(0)
		opts = append(opts, vm.WithTrace(trace))
	}

	m := vm.New(ctx, unit, opts...)
	var args []value.Value
	if d.args != nil {
		args = d.args(m.Heap())
	}
	exec, err := m.Call(entry, args)
	if err != nil {
		return value.Value{}, m, trace, err
	}

	reason, err := exec.Run()
	for err == nil && reason.Kind == vm.Awaited {
		switch reason.AwaitKind {
		case vm.AwaitSingleFuture:
			result, awErr := m.Heap().BeginAwait(reason.AwaitFuture.H)
			if awErr != nil {
				return value.Value{}, m, trace, awErr
			}
			v, awaitErr := result.Await()
			if awaitErr != nil {
				return value.Value{}, m, trace, awaitErr
			}
			reason, err = exec.Resume(v)
		case vm.AwaitSelectList:
			branch, v, selErr := firstReady(m, reason.SelectFutures)
			if selErr != nil {
				return value.Value{}, m, trace, selErr
			}
			reason, err = exec.ResumeSelect(v, branch)
		}
	}
	if err != nil {
		return value.Value{}, m, trace, err
	}
	if reason.Kind != vm.Exited {
		return value.Value{}, m, trace, fmt.Errorf("demo %q stopped with %s instead of exiting", d.name, reason.Kind)
	}
	return reason.Value, m, trace, nil
}

// pollable mirrors vm/future.go's own unexported pollable interface
// structurally (same method set, no shared declaration needed): an
// Awaitable may optionally report readiness without blocking, which is how
// this driver picks a Select branch the same way vm.resolveAwaited does for
// an internal script-to-script await chain.
type pollable interface {
	Poll() (value.Value, bool)
}

// firstReady walks the live branches in order, beginning each one's await at
// most once (§3.4 invariant 6), and returns the first that reports ready via
// Poll, or the first without Poll after awaiting it; branches after that one
// are not begun. futures may hold a
// zero Value at the index of an operand execSelect already found completed
// (vm/exec_async.go) - those slots are skipped rather than awaited, so the
// index returned always matches the branch number the compiler's Select
// call emitted, not a position in some filtered/renumbered list.
func firstReady(m *vm.Vm, futures []value.Value) (int, value.Value, error) {
	for i, f := range futures {
		if f.Kind != value.KFuture {
			continue
		}
		aw, err := m.Heap().BeginAwait(f.H)
		if err != nil {
			return 0, value.Value{}, err
		}
		if p, ok := aw.(pollable); ok {
			if v, ready := p.Poll(); ready {
				return i, v, nil
			}
			continue
		}
		v, err := aw.Await()
		if err != nil {
			return 0, value.Value{}, err
		}
		return i, v, nil
	}
	return 0, value.Value{}, fmt.Errorf("select demo: no ready future among %d branches", len(futures))
}

// assembleDisasm renders a Unit's instructions one per line, the format
// `disasm` prints and the format a future `run <file>` loader (§6.1, out of
// scope for a from-scratch parser here since producing Units is explicitly
// the compiler's job per §1) would need to invert.
func assembleDisasm(u *bytecode.Unit) string {
	out := ""
	for ip, inst := range u.Instructions {
		out += fmt.Sprintf("%04d  %s\n", ip, inst.String())
	}
	return out
}

// hashName is a best-effort label for a demo's entry point, used by
// `disasm` and `stats` output; Hash carries no reverse mapping back to the
// source name it was computed from (§4.1 "collisions are treated as
// programmer error"), so this renders the hash itself via Hash.String.
func hashName(h ident.Hash) string { return h.String() }
