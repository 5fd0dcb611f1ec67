package vm

import (
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
)

// typeOf resolves a Value's runtime type hash, used by Is/IsNot and by
// every protocol dispatch site (instance_function(typeOf(v), OP_HASH)).
// Primitive and built-in collection kinds resolve to the well-known hashes
// in ident; the four typed/variant slot kinds and External resolve through
// the heap accessors in heap/typeof.go (§4.1, §3.3).
func (vm *Vm) typeOf(v value.Value) (ident.Hash, error) {
	switch v.Kind {
	case value.KUnit:
		return ident.TypeUnit, nil
	case value.KBool:
		return ident.TypeBool, nil
	case value.KByte:
		return ident.TypeByte, nil
	case value.KChar:
		return ident.TypeChar, nil
	case value.KInteger:
		return ident.TypeInteger, nil
	case value.KFloat:
		return ident.TypeFloat, nil
	case value.KType:
		return ident.TypeType, nil
	case value.KStaticString:
		return ident.TypeString, nil
	case value.KString:
		return ident.TypeString, nil
	case value.KBytes:
		return ident.TypeBytes, nil
	case value.KArray:
		return ident.TypeArray, nil
	case value.KObject:
		return ident.TypeObject, nil
	case value.KTuple:
		return ident.TypeTuple, nil
	case value.KResult:
		return ident.TypeResult, nil
	case value.KOption:
		return ident.TypeOption, nil
	case value.KGeneratorState:
		return ident.TypeGeneratorState, nil
	case value.KFuture:
		return ident.TypeFuture, nil
	case value.KGenerator:
		return ident.TypeGenerator, nil
	case value.KFnPtr:
		return ident.TypeFnPtr, nil
	case value.KTypedTuple:
		return vm.hp.TypedTupleType(v.H)
	case value.KTypedObject:
		return vm.hp.TypedObjectType(v.H)
	case value.KVariantTuple:
		_, typ, err := vm.hp.VariantTupleType(v.H)
		return typ, err
	case value.KVariantObject:
		_, typ, err := vm.hp.VariantObjectType(v.H)
		return typ, err
	case value.KExternal:
		name, err := vm.hp.ExternalTypeName(v.H)
		return ident.Name(name), err
	default:
		return ident.Hash(0), nil
	}
}

// enumOf resolves the enclosing enum hash for a Variant{Tuple,Object} value,
// used by Is-checks against an enum's Type token (e.g. `x is Shape`).
func (vm *Vm) enumOf(v value.Value) (ident.Hash, bool, error) {
	switch v.Kind {
	case value.KVariantTuple:
		enum, _, err := vm.hp.VariantTupleType(v.H)
		return enum, true, err
	case value.KVariantObject:
		enum, _, err := vm.hp.VariantObjectType(v.H)
		return enum, true, err
	default:
		return ident.Hash(0), false, nil
	}
}
