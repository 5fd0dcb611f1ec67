package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/value"
)

// execLiteral handles the Literals/Construction group of §4.6: pushing
// immediate primitives and building the handle-backed aggregates (arrays,
// tuples, objects and their typed/variant cousins) out of values already on
// the stack. OpString pushes a StaticString immediate rather than allocating
// a heap String slot - the distinct StaticString Kind in §3.1 exists exactly
// so a literal appearing directly in source costs no allocation; a heap
// String slot is reserved for values built at runtime (StringConcat,
// TakeString, native handlers).
func (vm *Vm) execLiteral(inst bytecode.Inst) (*StopReason, error) {
	switch inst.Op {
	case bytecode.OpUnit:
		if err := vm.pushOwned(value.Unit()); err != nil {
			return nil, err
		}
	case bytecode.OpBool:
		if err := vm.pushOwned(value.Bool(inst.BoolVal)); err != nil {
			return nil, err
		}
	case bytecode.OpByte:
		if err := vm.pushOwned(value.Byte(inst.ByteVal)); err != nil {
			return nil, err
		}
	case bytecode.OpChar:
		if err := vm.pushOwned(value.Char(inst.CharVal)); err != nil {
			return nil, err
		}
	case bytecode.OpInteger:
		if err := vm.pushOwned(value.Integer(inst.IntVal)); err != nil {
			return nil, err
		}
	case bytecode.OpFloat:
		if err := vm.pushOwned(value.Float(inst.FloatVal)); err != nil {
			return nil, err
		}
	case bytecode.OpString:
		if _, err := vm.unit.LookupString(uint32(inst.A)); err != nil {
			return nil, err
		}
		if err := vm.pushOwned(value.StaticString(uint32(inst.A))); err != nil {
			return nil, err
		}
	case bytecode.OpBytes:
		data, err := vm.unit.LookupBytes(uint32(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(vm.hp.AllocateBytes(append([]byte(nil), data...))); err != nil {
			return nil, err
		}
	case bytecode.OpType:
		if err := vm.pushOwned(value.Type(inst.Hash)); err != nil {
			return nil, err
		}
	case bytecode.OpVec:
		elems, err := vm.popN(int(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(vm.hp.AllocateArray(elems)); err != nil {
			return nil, err
		}
	case bytecode.OpTuple:
		elems, err := vm.popN(int(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(vm.hp.AllocateTuple(elems)); err != nil {
			return nil, err
		}
	case bytecode.OpObject:
		keys, err := vm.unit.LookupObjectKeys(uint32(inst.A))
		if err != nil {
			return nil, err
		}
		vals, err := vm.popN(len(keys))
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(vm.hp.AllocateObject(keys, vals)); err != nil {
			return nil, err
		}
	case bytecode.OpTypedObject:
		keys, err := vm.unit.LookupObjectKeys(uint32(inst.A))
		if err != nil {
			return nil, err
		}
		vals, err := vm.popN(len(keys))
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(vm.hp.AllocateTypedObject(inst.Hash, keys, vals)); err != nil {
			return nil, err
		}
	case bytecode.OpVariantObject:
		keys, err := vm.unit.LookupObjectKeys(uint32(inst.A))
		if err != nil {
			return nil, err
		}
		vals, err := vm.popN(len(keys))
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(vm.hp.AllocateVariantObject(inst.EnumHash, inst.Hash, keys, vals)); err != nil {
			return nil, err
		}
	}
	vm.ip++
	return nil, nil
}
