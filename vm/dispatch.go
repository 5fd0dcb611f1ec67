package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/vmerr"
)

// dispatch fetches nothing itself (RunFor already fetched inst) and routes
// to the exec_*.go group handler matching inst.Op's position in the
// contiguous ranges declared in bytecode/opcode.go (§4.6 groups each
// instruction by function). Every group handler advances vm.ip itself
// (either by falling through to the trailing `vm.ip++`, or by setting it
// explicitly on a taken branch/call/return), so dispatch itself never
// touches ip.
//
// Every instruction funnels through this one chokepoint, which is also
// where deterministic reclamation happens: §3.2 describes reap() as an
// explicit queue-drain rather than an eager free, but nothing in the VM
// ever benefits from deferring it past the instruction that produced a
// zero-refcount slot, so dispatch drains the queue once per instruction
// rather than asking every call site that might drop a reference to
// remember to do it. This is what makes "heap.LiveCount() == 0 after
// run_to_completion" (§8 property 2) true without a separate GC pass.
func (vm *Vm) dispatch(inst bytecode.Inst) (*StopReason, error) {
	reason, err := vm.dispatchOp(inst)
	if err != nil {
		return nil, err
	}
	if err := vm.hp.Reap(); err != nil {
		return nil, err
	}
	return reason, nil
}

func (vm *Vm) dispatchOp(inst bytecode.Inst) (*StopReason, error) {
	switch {
	case inst.Op == bytecode.OpNop:
		vm.ip++
		return nil, nil
	case inst.Op <= bytecode.OpVariantObject:
		return vm.execLiteral(inst)
	case inst.Op <= bytecode.OpReplace:
		return vm.execStack(inst)
	case inst.Op <= bytecode.OpOr:
		return vm.execArith(inst)
	case inst.Op <= bytecode.OpPopAndJumpIfNot:
		return vm.execControl(inst)
	case inst.Op <= bytecode.OpClosure:
		return vm.execCall(inst)
	case inst.Op == bytecode.OpReturn || inst.Op == bytecode.OpReturnUnit:
		return vm.execReturn(inst)
	case inst.Op <= bytecode.OpYieldUnit:
		return vm.execAsync(inst)
	case inst.Op <= bytecode.OpObjectSlotIndexGetAt:
		return vm.execIndex(inst)
	case inst.Op <= bytecode.OpIsValue:
		return vm.execMatch(inst)
	case inst.Op == bytecode.OpStringConcat:
		return vm.execString(inst)
	case inst.Op == bytecode.OpUnwrap:
		return vm.execUnwrap(inst)
	case inst.Op == bytecode.OpPanic:
		return vm.execPanic(inst)
	default:
		return nil, vmerr.New(vmerr.UnsupportedCallFn, "unknown opcode %s", inst.Op)
	}
}
