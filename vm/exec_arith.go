package vm

import (
	"errors"
	"math"

	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// execArith handles Arithmetic & comparisons (§4.6): checked integer
// arithmetic, IEEE-754 float arithmetic with a finiteness check, primitive
// ordering comparisons, structural equality, and the boolean-only operators.
// Anything not both-Integer or both-Float falls through to the
// instance_function(type, OP_HASH) protocol (§6.4), matching "on mixed or
// user types, dispatches to the instance protocol".
func (vm *Vm) execArith(inst bytecode.Inst) (*StopReason, error) {
	switch inst.Op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpRem:
		b, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		a, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		res, err := vm.binaryArith(inst.Op, a, b)
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(res); err != nil {
			return nil, err
		}

	case bytecode.OpAddAssign, bytecode.OpSubAssign, bytecode.OpMulAssign, bytecode.OpDivAssign:
		b, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		a, err := vm.stack.At(int(inst.A))
		if err != nil {
			return nil, err
		}
		res, err := vm.binaryArith(assignToPlain(inst.Op), a, b)
		if err != nil {
			return nil, err
		}
		if err := vm.discard(a); err != nil {
			return nil, err
		}
		if err := vm.stack.SetAt(int(inst.A), res); err != nil {
			return nil, err
		}

	case bytecode.OpGt, bytecode.OpGte, bytecode.OpLt, bytecode.OpLte:
		b, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		a, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		res, err := compareOrdered(inst.Op, a, b)
		if err != nil {
			return nil, err
		}
		if err := vm.pushOwned(value.Bool(res)); err != nil {
			return nil, err
		}

	case bytecode.OpEq, bytecode.OpNeq:
		b, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		a, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		eq, err := vm.hp.Equal(a, b, vm.unit.StaticStrings)
		if err != nil {
			return nil, err
		}
		if err := vm.discard(a); err != nil {
			return nil, err
		}
		if err := vm.discard(b); err != nil {
			return nil, err
		}
		if inst.Op == bytecode.OpNeq {
			eq = !eq
		}
		if err := vm.pushOwned(value.Bool(eq)); err != nil {
			return nil, err
		}

	case bytecode.OpNot:
		v, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		b, ok := v.Truthy()
		if !ok {
			return nil, vmerr.New(vmerr.UnsupportedUnaryOperation, "Not on non-Bool %s", v.Kind)
		}
		if err := vm.pushOwned(value.Bool(!b)); err != nil {
			return nil, err
		}

	case bytecode.OpAnd, bytecode.OpOr:
		b, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		a, err := vm.popOwned()
		if err != nil {
			return nil, err
		}
		ab, ok := a.Truthy()
		if !ok {
			return nil, vmerr.New(vmerr.UnsupportedBinaryOperation, "%s on non-Bool %s", inst.Op, a.Kind)
		}
		bb, ok := b.Truthy()
		if !ok {
			return nil, vmerr.New(vmerr.UnsupportedBinaryOperation, "%s on non-Bool %s", inst.Op, b.Kind)
		}
		var res bool
		if inst.Op == bytecode.OpAnd {
			res = ab && bb
		} else {
			res = ab || bb
		}
		if err := vm.pushOwned(value.Bool(res)); err != nil {
			return nil, err
		}
	}
	vm.ip++
	return nil, nil
}

func assignToPlain(op bytecode.Opcode) bytecode.Opcode {
	switch op {
	case bytecode.OpAddAssign:
		return bytecode.OpAdd
	case bytecode.OpSubAssign:
		return bytecode.OpSub
	case bytecode.OpMulAssign:
		return bytecode.OpMul
	case bytecode.OpDivAssign:
		return bytecode.OpDiv
	default:
		return op
	}
}

// binaryArith implements Add/Sub/Mul/Div/Rem over Integer/Integer and
// Float/Float operands, falling through to protocol dispatch otherwise.
func (vm *Vm) binaryArith(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	switch {
	case a.IsInteger() && b.IsInteger():
		return intArith(op, a.I, b.I)
	case a.IsFloat() && b.IsFloat():
		return floatArith(op, a.F, b.F)
	default:
		return vm.binaryProtocol(protocolNameFor(op), a, b)
	}
}

func protocolNameFor(op bytecode.Opcode) string {
	switch op {
	case bytecode.OpAdd:
		return ident.NameADD
	case bytecode.OpSub:
		return ident.NameSUB
	case bytecode.OpMul:
		return ident.NameMUL
	case bytecode.OpDiv:
		return ident.NameDIV
	case bytecode.OpRem:
		return ident.NameREM
	default:
		return ""
	}
}

// binaryProtocol composes instance_function(typeOf(a), name) and invokes it
// as a two-argument instance call (§4.6 "dispatches to the instance protocol
// via instance_function(type, OP_HASH); if missing, fails
// UnsupportedBinaryOperation").
func (vm *Vm) binaryProtocol(name string, a, b value.Value) (value.Value, error) {
	typ, err := vm.typeOf(a)
	if err != nil {
		return value.Value{}, err
	}
	hash := ident.InstanceFunction(typ, ident.Name(name))
	if err := vm.pushOwned(a); err != nil {
		return value.Value{}, err
	}
	if err := vm.pushOwned(b); err != nil {
		return value.Value{}, err
	}
	res, err := vm.runNestedCall(hash, 2)
	if err != nil {
		if errors.Is(err, vmerr.MissingFunction) {
			return value.Value{}, vmerr.New(vmerr.UnsupportedBinaryOperation, "no %s protocol for %s", name, typ)
		}
		return value.Value{}, err
	}
	return res, nil
}

func intArith(op bytecode.Opcode, a, b int64) (value.Value, error) {
	switch op {
	case bytecode.OpAdd:
		res := a + b
		if ((a ^ res) & (b ^ res)) < 0 {
			return value.Value{}, vmerr.New(vmerr.Overflow, "%d + %d overflows i64", a, b)
		}
		return value.Integer(res), nil
	case bytecode.OpSub:
		res := a - b
		if ((a ^ b) & (a ^ res)) < 0 {
			return value.Value{}, vmerr.New(vmerr.Underflow, "%d - %d underflows i64", a, b)
		}
		return value.Integer(res), nil
	case bytecode.OpMul:
		if a == 0 || b == 0 {
			return value.Integer(0), nil
		}
		res := a * b
		if a == -1 && b == math.MinInt64 || b == -1 && a == math.MinInt64 {
			return value.Value{}, vmerr.New(vmerr.Overflow, "%d * %d overflows i64", a, b)
		}
		if res/b != a {
			return value.Value{}, vmerr.New(vmerr.Overflow, "%d * %d overflows i64", a, b)
		}
		return value.Integer(res), nil
	case bytecode.OpDiv:
		if b == 0 {
			return value.Value{}, vmerr.New(vmerr.DivideByZero, "%d / 0", a)
		}
		if a == math.MinInt64 && b == -1 {
			return value.Value{}, vmerr.New(vmerr.Overflow, "%d / %d overflows i64", a, b)
		}
		return value.Integer(a / b), nil
	case bytecode.OpRem:
		if b == 0 {
			return value.Value{}, vmerr.New(vmerr.DivideByZero, "%d %% 0", a)
		}
		if a == math.MinInt64 && b == -1 {
			return value.Integer(0), nil
		}
		return value.Integer(a % b), nil
	default:
		return value.Value{}, vmerr.New(vmerr.UnsupportedBinaryOperation, "unknown integer op %s", op)
	}
}

// floatArith implements IEEE-754 float arithmetic, with Rem as truncated
// modulo (math.Mod) rather than IEEE remainder - see DESIGN.md for why this
// module picked math.Mod for §9's open question on Rem semantics. A
// non-finite result fails with Overflow whatever the op; a zero divisor for
// Div/Rem fails with DivideByZero (§4.6 "Numeric semantics").
func floatArith(op bytecode.Opcode, a, b float64) (value.Value, error) {
	var res float64
	switch op {
	case bytecode.OpAdd:
		res = a + b
	case bytecode.OpSub:
		res = a - b
	case bytecode.OpMul:
		res = a * b
	case bytecode.OpDiv:
		if b == 0 {
			return value.Value{}, vmerr.New(vmerr.DivideByZero, "%g / 0", a)
		}
		res = a / b
	case bytecode.OpRem:
		if b == 0 {
			return value.Value{}, vmerr.New(vmerr.DivideByZero, "%g %% 0", a)
		}
		res = math.Mod(a, b)
	default:
		return value.Value{}, vmerr.New(vmerr.UnsupportedBinaryOperation, "unknown float op %s", op)
	}
	if math.IsInf(res, 0) || math.IsNaN(res) {
		return value.Value{}, vmerr.New(vmerr.Overflow, "%g %s %g produced non-finite result", a, op, b)
	}
	return value.Float(res), nil
}

// compareOrdered implements Gt/Gte/Lt/Lte on primitives only (§4.6): Integer,
// Byte, Char compare as integers; Float follows IEEE ordering (NaN compares
// false against everything, including itself).
func compareOrdered(op bytecode.Opcode, a, b value.Value) (bool, error) {
	switch {
	case a.Kind == value.KInteger && b.Kind == value.KInteger,
		a.Kind == value.KByte && b.Kind == value.KByte,
		a.Kind == value.KChar && b.Kind == value.KChar:
		return orderInt(op, a.I, b.I), nil
	case a.Kind == value.KFloat && b.Kind == value.KFloat:
		return orderFloat(op, a.F, b.F), nil
	default:
		return false, vmerr.New(vmerr.UnsupportedBinaryOperation, "%s on %s/%s", op, a.Kind, b.Kind)
	}
}

func orderInt(op bytecode.Opcode, a, b int64) bool {
	switch op {
	case bytecode.OpGt:
		return a > b
	case bytecode.OpGte:
		return a >= b
	case bytecode.OpLt:
		return a < b
	case bytecode.OpLte:
		return a <= b
	default:
		return false
	}
}

func orderFloat(op bytecode.Opcode, a, b float64) bool {
	switch op {
	case bytecode.OpGt:
		return a > b
	case bytecode.OpGte:
		return a >= b
	case bytecode.OpLt:
		return a < b
	case bytecode.OpLte:
		return a <= b
	default:
		return false
	}
}
