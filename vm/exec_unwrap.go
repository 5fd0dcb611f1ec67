package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// execUnwrap implements Unwrap (§4.6): pops a Result::Ok(v) or Option::Some(v)
// and yields v, taking over the reference the container held on it; any
// other arm fails with the matching Unsupported{None,Err} kind and the
// container (and its inner value) are released.
func (vm *Vm) execUnwrap(inst bytecode.Inst) (*StopReason, error) {
	target, err := vm.popOwned()
	if err != nil {
		return nil, err
	}

	var inner value.Value
	var ok bool
	var failKind error

	switch target.Kind {
	case value.KResult:
		var resOk bool
		resOk, inner, err = vm.hp.ResultInfo(target.H)
		if err != nil {
			return nil, err
		}
		ok = resOk
		failKind = vmerr.UnsupportedUnwrapErr
	case value.KOption:
		var some bool
		some, inner, err = vm.hp.OptionInfo(target.H)
		if err != nil {
			return nil, err
		}
		ok = some
		failKind = vmerr.UnsupportedUnwrapNone
	default:
		if derr := vm.discard(target); derr != nil {
			return nil, derr
		}
		return nil, vmerr.New(vmerr.UnsupportedUnwrapErr, "Unwrap on non-Result/Option %s", target.Kind)
	}

	if !ok {
		if derr := vm.discard(target); derr != nil {
			return nil, derr
		}
		return nil, vmerr.New(failKind, "Unwrap on failing arm of %s", target.Kind)
	}

	if err := vm.stack.Dup(inner); err != nil {
		return nil, err
	}
	if err := vm.discard(target); err != nil {
		return nil, err
	}
	if err := vm.pushOwned(inner); err != nil {
		return nil, err
	}
	vm.ip++
	return nil, nil
}
