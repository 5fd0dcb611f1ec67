package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/vmerr"
)

// execControl handles the Control flow group of §4.6. Every jump target
// (inst.A, or inst.B for the two-operand forms) is an absolute instruction
// index, matching Builder.Here's own absolute addressing so a compiler can
// backpatch a forward jump with Builder.Patch without translating offsets.
func (vm *Vm) execControl(inst bytecode.Inst) (*StopReason, error) {
	switch inst.Op {
	case bytecode.OpJump:
		vm.ip = int(inst.A)
		return nil, nil

	case bytecode.OpJumpIf, bytecode.OpJumpIfNot:
		v, err := vm.popDiscard()
		if err != nil {
			return nil, err
		}
		b, ok := v.Truthy()
		if !ok {
			return nil, vmerr.New(vmerr.UnsupportedUnaryOperation, "%s on non-Bool %s", inst.Op, v.Kind)
		}
		taken := b
		if inst.Op == bytecode.OpJumpIfNot {
			taken = !b
		}
		if taken {
			vm.ip = int(inst.A)
			return nil, nil
		}

	case bytecode.OpJumpIfBranch:
		top, err := vm.stack.At(0)
		if err != nil {
			return nil, err
		}
		if !top.IsInteger() {
			return nil, vmerr.New(vmerr.UnsupportedUnaryOperation, "JumpIfBranch on non-Integer %s", top.Kind)
		}
		if top.I == int64(inst.A) {
			if _, err := vm.popDiscard(); err != nil {
				return nil, err
			}
			vm.ip = int(inst.B)
			return nil, nil
		}

	case bytecode.OpPopAndJumpIf, bytecode.OpPopAndJumpIfNot:
		v, err := vm.popDiscard()
		if err != nil {
			return nil, err
		}
		b, ok := v.Truthy()
		if !ok {
			return nil, vmerr.New(vmerr.UnsupportedUnaryOperation, "%s on non-Bool %s", inst.Op, v.Kind)
		}
		triggered := b
		if inst.Op == bytecode.OpPopAndJumpIfNot {
			triggered = !b
		}
		if triggered {
			vals, err := vm.popN(int(inst.A))
			if err != nil {
				return nil, err
			}
			for _, dv := range vals {
				if err := vm.discard(dv); err != nil {
					return nil, err
				}
			}
			vm.ip = int(inst.B)
			return nil, nil
		}
	}
	vm.ip++
	return nil, nil
}
