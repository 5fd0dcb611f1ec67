package vm

import (
	"errors"

	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// execCall handles the Calls group of §4.6: resolving a hash against the
// Unit's fn_table and the Context's native registry, instance-method
// composition, indirect calls through a Type/FnPtr value, and materializing
// FnPtr values (Fn/Closure/LoadInstanceFn).
func (vm *Vm) execCall(inst bytecode.Inst) (*StopReason, error) {
	depthBefore := vm.stack.Depth()
	switch inst.Op {
	case bytecode.OpCall:
		if err := vm.doCall(inst.Hash, int(inst.A)); err != nil {
			return nil, err
		}
	case bytecode.OpCallInstance:
		receiver, err := vm.stack.At(int(inst.A) - 1)
		if err != nil {
			return nil, err
		}
		typ, err := vm.typeOf(receiver)
		if err != nil {
			return nil, err
		}
		composed := ident.InstanceFunction(typ, inst.Hash)
		if err := vm.doCall(composed, int(inst.A)); err != nil {
			return nil, err
		}
	case bytecode.OpCallFn:
		if err := vm.execCallFn(int(inst.A)); err != nil {
			return nil, err
		}
	case bytecode.OpLoadInstanceFn:
		receiver, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		typ, err := vm.typeOf(receiver)
		if err != nil {
			return nil, err
		}
		if err := vm.discard(receiver); err != nil {
			return nil, err
		}
		composed := ident.InstanceFunction(typ, inst.Hash)
		if err := vm.pushOwned(value.Type(composed)); err != nil {
			return nil, err
		}
	case bytecode.OpFn:
		if err := vm.pushOwned(vm.materializeFn(inst.Hash)); err != nil {
			return nil, err
		}
	case bytecode.OpClosure:
		captured, err := vm.popN(int(inst.A))
		if err != nil {
			return nil, err
		}
		tup := vm.hp.AllocateTuple(captured)
		if err := vm.pushOwned(vm.hp.ClosureFnPtr(inst.Hash, tup)); err != nil {
			return nil, err
		}
	}
	if vm.stack.Depth() > depthBefore {
		// A scripted Immediate call pushed a frame and already pointed ip at
		// the callee's first instruction.
		return nil, nil
	}
	vm.ip++
	return nil, nil
}

// materializeFn builds the FnPtr a plain Fn opcode produces: a script FnPtr
// when hash is in the Unit's fn_table, otherwise a native one (§4.6
// "Fn(hash)").
func (vm *Vm) materializeFn(hash ident.Hash) value.Value {
	if _, err := vm.unit.Lookup(hash); err == nil {
		return vm.hp.ScriptFnPtr(hash)
	}
	return vm.hp.NativeFnPtr(hash)
}

// execReturn handles Return/ReturnUnit (§4.6 "Return"): popping the frame
// and, when that empties the frame stack entirely, surrendering Exited to
// the loop driving this Vm; otherwise resuming at the caller's ReturnIP. A
// protocol dispatch's runNestedCall does not wait for Exited: it sees its
// callee's return as the frame depth dropping back to where it started.
// This single depth check (rather than a distinguished "outermost" sentinel)
// is what lets both drivers share one Return implementation (§3.4
// invariant 5).
func (vm *Vm) execReturn(inst bytecode.Inst) (*StopReason, error) {
	if inst.Op == bytecode.OpReturnUnit {
		if err := vm.pushOwned(value.Unit()); err != nil {
			return nil, err
		}
	}
	frame, err := vm.stack.PopFrame()
	if err != nil {
		return nil, err
	}
	if vm.stack.Depth() == 0 {
		v, err := vm.stack.At(0)
		if err != nil {
			return nil, err
		}
		return exited(v), nil
	}
	vm.ip = frame.ReturnIP
	return nil, nil
}

// doCall resolves hash against the Unit's fn_table first, then the native
// Context, and dispatches accordingly (§4.6 "Call"). For a scripted
// Immediate function this simply pushes a frame and repoints ip - the
// caller's own driving loop (RunFor, or a protocol dispatch's runNestedCall)
// carries the callee's instructions forward; doCall itself never blocks.
func (vm *Vm) doCall(hash ident.Hash, argCount int) error {
	fn, err := vm.unit.Lookup(hash)
	if err != nil {
		if !errors.Is(err, vmerr.MissingFunction) {
			return err
		}
		return vm.callNative(hash, argCount)
	}
	switch fn.Kind {
	case bytecode.FnKindTupleCtor:
		return vm.constructTypedTuple(fn.CtorType, argCount)
	case bytecode.FnKindVariantTupleCtor:
		return vm.constructVariantTuple(fn.CtorEnum, fn.CtorType, argCount)
	default:
		if fn.ArgCount != argCount {
			return vmerr.New(vmerr.BadArgumentCount, "function %s expects %d args, got %d", hash, fn.ArgCount, argCount)
		}
		switch fn.CallKind {
		case bytecode.CallImmediate:
			return vm.callScriptImmediate(fn.Offset, argCount)
		case bytecode.CallAsync:
			return vm.callScriptAsync(fn.Offset, argCount)
		case bytecode.CallGenerator:
			return vm.callScriptGenerator(fn.Offset, argCount)
		default:
			return vmerr.New(vmerr.UnsupportedCallFn, "function %s has unknown call kind", hash)
		}
	}
}

func (vm *Vm) constructTypedTuple(typ ident.Hash, argCount int) error {
	elems, err := vm.popN(argCount)
	if err != nil {
		return err
	}
	return vm.pushOwned(vm.hp.AllocateTypedTuple(typ, elems))
}

func (vm *Vm) constructVariantTuple(enum, typ ident.Hash, argCount int) error {
	elems, err := vm.popN(argCount)
	if err != nil {
		return err
	}
	return vm.pushOwned(vm.hp.AllocateVariantTuple(enum, typ, elems))
}

// callScriptImmediate is the ordinary call: push a frame returning to the
// instruction after the call, then jump ip to the callee (§4.5 push_frame,
// §4.6 "Call ... push a new frame (Immediate)").
func (vm *Vm) callScriptImmediate(offset, argCount int) error {
	if err := vm.stack.PushFrame(vm.ip+1, argCount); err != nil {
		return err
	}
	vm.ip = offset
	return nil
}

// callScriptAsync wraps a script async function in a Future backed by a
// child Vm sharing this Vm's heap (§4.6 "wrap into a Future (Async)"); see
// future.go asyncCall: the child resolves synchronously on Await rather than
// emitting CallVm to an external driver.
func (vm *Vm) callScriptAsync(offset, argCount int) error {
	child, args, err := vm.spawnChild(offset, argCount)
	if err != nil {
		return err
	}
	_ = args
	return vm.pushOwned(vm.hp.AllocateFuture(&asyncCall{vm: child}))
}

// callScriptGenerator wraps a script generator function as an owned child
// Vm driven by generatorDriver (§4.6 "wrap into a Generator (Generator)").
func (vm *Vm) callScriptGenerator(offset, argCount int) error {
	child, args, err := vm.spawnChild(offset, argCount)
	if err != nil {
		return err
	}
	_ = args
	return vm.pushOwned(vm.hp.AllocateGenerator(&generatorDriver{vm: child}))
}

// spawnChild builds a child Vm sharing this Vm's heap/context/unit, moving
// argCount already-evaluated arguments from this Vm's stack onto the
// child's, and positions the child at offset ready to run (§3.3 "Future"/
// "Generator": both wrap "an owned, resumable Vm instance").
func (vm *Vm) spawnChild(offset, argCount int) (*Vm, []value.Value, error) {
	args, err := vm.popN(argCount)
	if err != nil {
		return nil, nil, err
	}
	child := vm.newChild()
	for _, a := range args {
		if err := child.pushOwned(a); err != nil {
			return nil, nil, err
		}
	}
	if err := child.stack.PushFrame(exitIP, argCount); err != nil {
		return nil, nil, err
	}
	child.ip = offset
	return child, args, nil
}

// callNative resolves hash in the Context and invokes its handler (§4.3,
// §6.3): the handler owns the top argCount stack entries and must leave
// exactly one return value; an async handler instead hands back an
// Awaitable that gets boxed into a Future, mirroring the script-async path.
// Every handler boundary disarms any raw guards the handler parked (§4.4,
// §5 "the interpreter invokes [disarm] at every handler boundary").
func (vm *Vm) callNative(hash ident.Hash, argCount int) error {
	desc, ok := vm.ctx.Lookup(hash)
	if !ok {
		return vmerr.New(vmerr.MissingFunction, "no function or native handler %s", hash)
	}
	if desc.Sync != nil {
		err := desc.Sync(vm.stack, argCount)
		vm.stack.DisarmGuards()
		return err
	}
	aw, err := desc.Async(vm.stack, argCount)
	vm.stack.DisarmGuards()
	if err != nil {
		return err
	}
	return vm.pushOwned(vm.hp.AllocateFuture(aw))
}

// runNestedCall drives hash's call to completion and returns its single
// result value. Plain instruction dispatch (OpCall, OpCallFn) never needs
// this: doCall just repoints ip and the outer RunFor loop naturally carries
// the callee's instructions forward. Protocol dispatch (binaryProtocol,
// indexing/STRING_DISPLAY/EQ fallbacks) calls into doCall from deep inside
// this Go call stack instead, and needs the result value back before it can
// continue - so it opens a private sub-loop here that keeps dispatching
// until the frame doCall pushed (if any) has been popped back off. A native
// handler invoked this way already completes synchronously inside doCall
// (stack depth never changes), so the loop body simply never runs for those.
func (vm *Vm) runNestedCall(hash ident.Hash, argCount int) (value.Value, error) {
	depthBefore := vm.stack.Depth()
	savedIP := vm.ip
	if err := vm.doCall(hash, argCount); err != nil {
		return value.Value{}, err
	}
	for vm.stack.Depth() > depthBefore {
		inst, err := vm.unit.InstructionAt(vm.ip)
		if err != nil {
			return value.Value{}, err
		}
		reason, err := vm.dispatch(inst)
		if err != nil {
			return value.Value{}, err
		}
		if reason == nil {
			continue
		}
		switch reason.Kind {
		case Awaited:
			resolved, branch, err := vm.resolveAwaited(reason)
			if err != nil {
				return value.Value{}, err
			}
			if branch < 0 {
				err = vm.ResumeWith(resolved)
			} else {
				err = vm.ResumeSelectWith(resolved, branch)
			}
			if err != nil {
				return value.Value{}, err
			}
		case Yielded:
			return value.Value{}, vmerr.New(vmerr.YieldOutsideGenerator, "yield inside a nested protocol call")
		default:
			return value.Value{}, vmerr.New(vmerr.CorruptedStackFrame, "unexpected stop reason inside nested call")
		}
	}
	vm.ip = savedIP
	return vm.popOwned()
}

// execCallFn implements CallFn (§4.6): pop a callable value and invoke it.
// A Type value is a hash (as LoadInstanceFn produces) and is dispatched
// exactly like Call; an FnPtr unpacks its five possible shapes.
func (vm *Vm) execCallFn(argCount int) error {
	callee, err := vm.popOwned()
	if err != nil {
		return err
	}
	switch callee.Kind {
	case value.KType:
		return vm.doCall(callee.Hash, argCount)
	case value.KFnPtr:
		info, err := vm.hp.FnPtrInfo(callee.H)
		if err != nil {
			return err
		}
		defer vm.discard(callee)
		switch info.Kind {
		case heap.FnNative:
			return vm.callNative(info.Fn, argCount)
		case heap.FnScript:
			return vm.doCall(info.Fn, argCount)
		case heap.FnClosure:
			if err := vm.pushCopy(info.Captured); err != nil {
				return err
			}
			return vm.doCall(info.Fn, argCount+1)
		case heap.FnTupleCtor:
			return vm.constructTypedTuple(info.CtorType, info.Arity)
		case heap.FnVariantTupleCtor:
			return vm.constructVariantTuple(info.CtorEnum, info.CtorType, info.Arity)
		default:
			return vmerr.New(vmerr.UnsupportedCallFn, "unknown FnPtr kind")
		}
	default:
		vm.discard(callee)
		return vmerr.New(vmerr.UnsupportedCallFn, "CallFn on non-callable %s", callee.Kind)
	}
}
