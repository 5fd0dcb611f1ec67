package vm

import (
	"errors"
	"strconv"
	"strings"

	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// execString implements StringConcat(len, size_hint) (§4.6 "Strings"): pops
// len values (oldest first) and concatenates their display text into one
// new heap String. Primitives format directly; everything else dispatches
// through the STRING_DISPLAY protocol, matching §6.4's "all display
// formatting for user types routes through string_display".
func (vm *Vm) execString(inst bytecode.Inst) (*StopReason, error) {
	vals, err := vm.popN(int(inst.A))
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(int(inst.B))
	for _, v := range vals {
		text, ok, derr := vm.displayText(v)
		if derr != nil {
			if err := vm.discardAll(vals); err != nil {
				return nil, err
			}
			return nil, derr
		}
		if !ok {
			text, derr = vm.displayProtocol(v)
			if derr != nil {
				if err := vm.discardAll(vals); err != nil {
					return nil, err
				}
				return nil, derr
			}
		}
		b.WriteString(text)
	}
	if err := vm.discardAll(vals); err != nil {
		return nil, err
	}
	if err := vm.pushOwned(vm.hp.AllocateString(b.String())); err != nil {
		return nil, err
	}
	vm.ip++
	return nil, nil
}

func (vm *Vm) discardAll(vals []value.Value) error {
	for _, v := range vals {
		if err := vm.discard(v); err != nil {
			return err
		}
	}
	return nil
}

// displayText renders a primitive value's direct display text (§4.6
// "primitives use direct formatting"). ok is false for any handle kind that
// must instead go through the STRING_DISPLAY protocol.
func (vm *Vm) displayText(v value.Value) (string, bool, error) {
	switch v.Kind {
	case value.KUnit:
		return "()", true, nil
	case value.KBool:
		return strconv.FormatBool(v.AsBool()), true, nil
	case value.KByte:
		return strconv.FormatInt(v.I, 10), true, nil
	case value.KChar:
		return string(rune(v.I)), true, nil
	case value.KInteger:
		return strconv.FormatInt(v.I, 10), true, nil
	case value.KFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64), true, nil
	case value.KType:
		return v.Hash.String(), true, nil
	case value.KStaticString:
		s, err := vm.unit.LookupString(v.Static)
		return s, true, err
	case value.KString:
		s, err := vm.hp.CloneString(v.H)
		return s, true, err
	default:
		return "", false, nil
	}
}

// displayProtocol invokes instance_function(typeOf(v), STRING_DISPLAY) for a
// handle-kind value lacking a direct format, expecting the protocol to
// return a String (§4.6 "Failure FormatError or MissingProtocol").
func (vm *Vm) displayProtocol(v value.Value) (string, error) {
	typ, err := vm.typeOf(v)
	if err != nil {
		return "", err
	}
	hash := ident.InstanceFunction(typ, ident.STRINGDISPLAY)
	if err := vm.pushCopy(v); err != nil {
		return "", err
	}
	res, err := vm.runNestedCall(hash, 1)
	if err != nil {
		if errors.Is(err, vmerr.MissingFunction) {
			return "", vmerr.New(vmerr.MissingProtocol, "no %s protocol for %s", ident.NameSTRINGDISPLAY, typ)
		}
		return "", err
	}
	text, isStr, derr := vm.indexString(res)
	if derr != nil {
		return "", derr
	}
	if err := vm.discard(res); err != nil {
		return "", err
	}
	if !isStr {
		return "", vmerr.New(vmerr.FormatError, "%s protocol for %s did not return a string", ident.NameSTRINGDISPLAY, typ)
	}
	return text, nil
}
