package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// execMatch handles the Pattern matching group of §4.6: MatchSequence and
// MatchObject pop the scrutinee and push a Bool verdict, leaving the
// compiler free to have duplicated the scrutinee beforehand (via Dup) so a
// matched arm can still read its fields with TupleIndexGetAt/
// ObjectSlotIndexGetAt afterward. EqByte/EqCharacter/EqInteger/
// EqStaticString compare a popped value against the instruction's own
// literal operand. Is/IsNot/IsUnit/IsValue resolve runtime type identity.
func (vm *Vm) execMatch(inst bytecode.Inst) (*StopReason, error) {
	switch inst.Op {
	case bytecode.OpMatchSequence:
		if err := vm.execMatchSequence(inst); err != nil {
			return nil, err
		}
	case bytecode.OpMatchObject:
		if err := vm.execMatchObject(inst); err != nil {
			return nil, err
		}
	case bytecode.OpEqByte:
		if err := vm.execEqLiteral(func(v value.Value) bool {
			return v.Kind == value.KByte && v.I == int64(inst.ByteVal)
		}); err != nil {
			return nil, err
		}
	case bytecode.OpEqCharacter:
		if err := vm.execEqLiteral(func(v value.Value) bool {
			return v.Kind == value.KChar && v.I == int64(inst.CharVal)
		}); err != nil {
			return nil, err
		}
	case bytecode.OpEqInteger:
		if err := vm.execEqLiteral(func(v value.Value) bool {
			return v.Kind == value.KInteger && v.I == inst.IntVal
		}); err != nil {
			return nil, err
		}
	case bytecode.OpEqStaticString:
		want, err := vm.unit.LookupString(uint32(inst.A))
		if err != nil {
			return nil, err
		}
		if err := vm.execEqLiteral(func(v value.Value) bool {
			got, isStr, serr := vm.indexString(v)
			return serr == nil && isStr && got == want
		}); err != nil {
			return nil, err
		}
	case bytecode.OpIs, bytecode.OpIsNot:
		if err := vm.execIs(inst.Op == bytecode.OpIsNot); err != nil {
			return nil, err
		}
	case bytecode.OpIsUnit:
		v, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		res := v.IsUnit()
		if err := vm.discard(v); err != nil {
			return nil, err
		}
		if err := vm.pushOwned(value.Bool(res)); err != nil {
			return nil, err
		}
	case bytecode.OpIsValue:
		if err := vm.execIsValue(); err != nil {
			return nil, err
		}
	}
	vm.ip++
	return nil, nil
}

func (vm *Vm) execEqLiteral(pred func(value.Value) bool) error {
	v, err := vm.popOwned()
	if err != nil {
		return err
	}
	res := pred(v)
	if err := vm.discard(v); err != nil {
		return err
	}
	return vm.pushOwned(value.Bool(res))
}

// execMatchSequence implements MatchSequence(type_check, len, exact) (§4.6):
// the scrutinee's shape must be type_check and its element count equal to
// len if exact, else at least len. Result/Option/GeneratorState reuse len as
// an arm selector (0 = Ok/Some/Yielded, 1 = Err/None/Complete) since those
// slots hold exactly one value rather than a variable-length sequence.
func (vm *Vm) execMatchSequence(inst bytecode.Inst) error {
	target, err := vm.popOwned()
	if err != nil {
		return err
	}
	ok, err := vm.matchSequence(target, inst)
	if err != nil {
		if derr := vm.discard(target); derr != nil {
			return derr
		}
		return err
	}
	if err := vm.discard(target); err != nil {
		return err
	}
	return vm.pushOwned(value.Bool(ok))
}

func (vm *Vm) matchSequence(target value.Value, inst bytecode.Inst) (bool, error) {
	matchLen := func(n int) bool {
		if inst.Exact {
			return n == int(inst.A)
		}
		return n >= int(inst.A)
	}
	switch inst.Check {
	case bytecode.CheckTuple:
		if target.Kind != value.KTuple {
			return false, nil
		}
		n, err := vm.hp.TupleLen(target.H)
		if err != nil {
			return false, err
		}
		return matchLen(n), nil
	case bytecode.CheckVec:
		if target.Kind != value.KArray {
			return false, nil
		}
		n, err := vm.hp.ArrayLen(target.H)
		if err != nil {
			return false, err
		}
		return matchLen(n), nil
	case bytecode.CheckType:
		if target.Kind != value.KTypedTuple {
			return false, nil
		}
		typ, err := vm.hp.TypedTupleType(target.H)
		if err != nil {
			return false, err
		}
		if typ != inst.Hash {
			return false, nil
		}
		n, err := vm.hp.TypedTupleLen(target.H)
		if err != nil {
			return false, err
		}
		return matchLen(n), nil
	case bytecode.CheckVariant:
		if target.Kind != value.KVariantTuple {
			return false, nil
		}
		enum, typ, err := vm.hp.VariantTupleType(target.H)
		if err != nil {
			return false, err
		}
		if typ != inst.Hash || enum != inst.EnumHash {
			return false, nil
		}
		n, err := vm.hp.VariantTupleLen(target.H)
		if err != nil {
			return false, err
		}
		return matchLen(n), nil
	case bytecode.CheckResult:
		if target.Kind != value.KResult {
			return false, nil
		}
		ok, _, err := vm.hp.ResultInfo(target.H)
		if err != nil {
			return false, err
		}
		arm := 1
		if ok {
			arm = 0
		}
		return arm == int(inst.A), nil
	case bytecode.CheckOption:
		if target.Kind != value.KOption {
			return false, nil
		}
		some, _, err := vm.hp.OptionInfo(target.H)
		if err != nil {
			return false, err
		}
		arm := 1
		if some {
			arm = 0
		}
		return arm == int(inst.A), nil
	case bytecode.CheckGeneratorState:
		if target.Kind != value.KGeneratorState {
			return false, nil
		}
		state, _, err := vm.hp.GeneratorStateInfo(target.H)
		if err != nil {
			return false, err
		}
		return int(state) == int(inst.A), nil
	case bytecode.CheckUnitValue:
		return target.IsUnit(), nil
	default:
		return false, vmerr.New(vmerr.UnsupportedIs, "unsupported MatchSequence check %s", inst.Check)
	}
}

// execMatchObject implements MatchObject(type_check, keys_slot, exact)
// (§4.6): symmetric to MatchSequence but for Object/TypedObject/
// VariantObject, checking the scrutinee's field-name set against the
// static key list at keys_slot rather than a positional count.
func (vm *Vm) execMatchObject(inst bytecode.Inst) error {
	target, err := vm.popOwned()
	if err != nil {
		return err
	}
	ok, err := vm.matchObject(target, inst)
	if err != nil {
		if derr := vm.discard(target); derr != nil {
			return derr
		}
		return err
	}
	if err := vm.discard(target); err != nil {
		return err
	}
	return vm.pushOwned(value.Bool(ok))
}

func (vm *Vm) matchObject(target value.Value, inst bytecode.Inst) (bool, error) {
	wantKeys, err := vm.unit.LookupObjectKeys(uint32(inst.A))
	if err != nil {
		return false, err
	}

	var haveKeys []string
	switch inst.Check {
	case bytecode.CheckObject:
		if target.Kind != value.KObject {
			return false, nil
		}
		haveKeys, err = vm.hp.ObjectKeys(target.H)
	case bytecode.CheckType:
		if target.Kind != value.KTypedObject {
			return false, nil
		}
		gotType, terr := vm.hp.TypedObjectType(target.H)
		if terr != nil {
			return false, terr
		}
		if gotType != inst.Hash {
			return false, nil
		}
		haveKeys, err = vm.hp.TypedObjectKeys(target.H)
	case bytecode.CheckVariant:
		if target.Kind != value.KVariantObject {
			return false, nil
		}
		enum, typ, terr := vm.hp.VariantObjectType(target.H)
		if terr != nil {
			return false, terr
		}
		if typ != inst.Hash || enum != inst.EnumHash {
			return false, nil
		}
		haveKeys, err = vm.hp.VariantObjectKeys(target.H)
	default:
		return false, vmerr.New(vmerr.UnsupportedIs, "unsupported MatchObject check %s", inst.Check)
	}
	if err != nil {
		return false, err
	}

	have := make(map[string]bool, len(haveKeys))
	for _, k := range haveKeys {
		have[k] = true
	}
	for _, k := range wantKeys {
		if !have[k] {
			return false, nil
		}
	}
	if inst.Exact && len(haveKeys) != len(wantKeys) {
		return false, nil
	}
	return true, nil
}

// execIs implements Is/IsNot (§4.6): pops the type token (pushed last by the
// compiled `x is Type` expression) then the value, and compares the value's
// runtime type - or, for a Variant value, its enclosing enum - against the
// token's hash.
func (vm *Vm) execIs(negate bool) error {
	token, err := vm.popOwned()
	if err != nil {
		return err
	}
	v, err := vm.popOwned()
	if err != nil {
		return err
	}
	if token.Kind != value.KType {
		if derr := vm.discard(token); derr != nil {
			return derr
		}
		if derr := vm.discard(v); derr != nil {
			return derr
		}
		return vmerr.New(vmerr.UnsupportedIs, "Is against non-Type token %s", token.Kind)
	}
	typ, err := vm.typeOf(v)
	if err != nil {
		return err
	}
	matched := typ == token.Hash
	if !matched {
		if enum, isVariant, eerr := vm.enumOf(v); eerr != nil {
			return eerr
		} else if isVariant {
			matched = enum == token.Hash
		}
	}
	if err := vm.discard(token); err != nil {
		return err
	}
	if err := vm.discard(v); err != nil {
		return err
	}
	if negate {
		matched = !matched
	}
	return vm.pushOwned(value.Bool(matched))
}

// execIsValue implements IsValue (§4.6): true for Result::Ok or
// Option::Some, false for Err/None and for anything that isn't a Result or
// Option.
func (vm *Vm) execIsValue() error {
	v, err := vm.popOwned()
	if err != nil {
		return err
	}
	var res bool
	switch v.Kind {
	case value.KResult:
		res, _, err = vm.hp.ResultInfo(v.H)
	case value.KOption:
		res, _, err = vm.hp.OptionInfo(v.H)
	}
	if err != nil {
		return err
	}
	if derr := vm.discard(v); derr != nil {
		return derr
	}
	return vm.pushOwned(value.Bool(res))
}
