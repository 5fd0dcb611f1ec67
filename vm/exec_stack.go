package vm

import (
	"github.com/emberscript/embervm/bytecode"
)

// execStack handles the Stack manipulation group of §4.6: Pop/PopN/Clean
// discard references, Copy/Dup duplicate them, Drop removes a value from
// inside the stack (not just the top), and Replace overwrites a slot with
// the current top.
func (vm *Vm) execStack(inst bytecode.Inst) (*StopReason, error) {
	switch inst.Op {
	case bytecode.OpPop:
		if _, err := vm.popDiscard(); err != nil {
			return nil, err
		}
	case bytecode.OpPopN:
		vals, err := vm.popN(int(inst.A))
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if err := vm.discard(v); err != nil {
				return nil, err
			}
		}
	case bytecode.OpClean:
		top, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		vals, err := vm.popN(int(inst.A))
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if err := vm.discard(v); err != nil {
				return nil, err
			}
		}
		if err := vm.pushOwned(top); err != nil {
			return nil, err
		}
	case bytecode.OpCopy:
		v, err := vm.stack.At(int(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.pushCopy(v); err != nil {
			return nil, err
		}
	case bytecode.OpDrop:
		v, err := vm.stack.RemoveAt(int(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.discard(v); err != nil {
			return nil, err
		}
	case bytecode.OpDup:
		v, err := vm.stack.At(0)
		if err != nil {
			return nil, err
		}
		if err := vm.pushCopy(v); err != nil {
			return nil, err
		}
	case bytecode.OpReplace:
		top, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		old, err := vm.stack.At(int(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.discard(old); err != nil {
			return nil, err
		}
		if err := vm.stack.SetAt(int(inst.A), top); err != nil {
			return nil, err
		}
	}
	vm.ip++
	return nil, nil
}
