package bytecode

import (
	"fmt"

	"github.com/emberscript/embervm/ident"
)

// Inst is one bytecode instruction: a discriminated union with immediate
// operands (§6.1). Rather than packing operands into a fixed-width encoded
// form the way the teacher's Instruction does (it targets a register-style
// PHP VM with Op1/Op2/Result operand slots), Inst keeps one field per
// operand shape the stack-based instruction set in §4.6 actually needs -
// most opcodes use only one or two of these, the rest stay zero.
type Inst struct {
	Op Opcode

	// Hash addresses a function, type or protocol name: Call, CallInstance,
	// LoadInstanceFn, Fn, Closure, Type. For
	// TypedObject it is the struct type; for VariantObject it is the variant
	// type and EnumHash is the enclosing enum.
	Hash ident.Hash
	// EnumHash carries VariantObject's enclosing enum hash alongside Hash's
	// variant type - the one opcode in this set that addresses two distinct
	// names at once.
	EnumHash ident.Hash

	// A is the primary integer operand: jump target (an absolute index into
	// Unit.Instructions, not a relative offset), pop/copy/drop count, arity,
	// captured count for Closure, static-table slot id, or branch number
	// depending on Op.
	A int32
	// B is a secondary integer operand (e.g. the jump target alongside a
	// branch number in JumpIfBranch, or alongside a count in PopAndJumpIf).
	B int32

	// Check/Exact are used only by MatchSequence/MatchObject.
	Check TypeCheck
	Exact bool

	// Immediate literal payloads, used only by their matching Op.
	BoolVal  bool
	ByteVal  byte
	CharVal  rune
	IntVal   int64
	FloatVal float64

	// Reason carries OpPanic's stable reason code (§4.6 "Traps").
	Reason string
}

func (i Inst) String() string {
	switch i.Op {
	case OpBool:
		return fmt.Sprintf("Bool(%t)", i.BoolVal)
	case OpByte:
		return fmt.Sprintf("Byte(%d)", i.ByteVal)
	case OpChar:
		return fmt.Sprintf("Char(%q)", i.CharVal)
	case OpInteger:
		return fmt.Sprintf("Integer(%d)", i.IntVal)
	case OpFloat:
		return fmt.Sprintf("Float(%g)", i.FloatVal)
	case OpString, OpBytes:
		return fmt.Sprintf("%s(slot=%d)", i.Op, i.A)
	case OpVec, OpTuple:
		return fmt.Sprintf("%s(n=%d)", i.Op, i.A)
	case OpObject:
		return fmt.Sprintf("Object(slot=%d)", i.A)
	case OpTypedObject:
		return fmt.Sprintf("TypedObject(%s, slot=%d)", i.Hash, i.A)
	case OpVariantObject:
		return fmt.Sprintf("VariantObject(%s, %s, slot=%d)", i.EnumHash, i.Hash, i.A)
	case OpPopN, OpClean, OpCopy, OpDrop, OpReplace:
		return fmt.Sprintf("%s(%d)", i.Op, i.A)
	case OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign:
		return fmt.Sprintf("%s(offset=%d)", i.Op, i.A)
	case OpCallFn:
		return fmt.Sprintf("CallFn(args=%d)", i.A)
	case OpClosure:
		return fmt.Sprintf("Closure(%s, captured=%d)", i.Hash, i.A)
	case OpSelect:
		return fmt.Sprintf("Select(%d)", i.A)
	case OpTupleIndexGet, OpTupleIndexSet:
		return fmt.Sprintf("%s(%d)", i.Op, i.A)
	case OpTupleIndexGetAt:
		return fmt.Sprintf("TupleIndexGetAt(offset=%d, k=%d)", i.A, i.B)
	case OpObjectSlotIndexGet:
		return fmt.Sprintf("ObjectSlotIndexGet(slot=%d)", i.A)
	case OpObjectSlotIndexGetAt:
		return fmt.Sprintf("ObjectSlotIndexGetAt(offset=%d, slot=%d)", i.A, i.B)
	case OpStringConcat:
		return fmt.Sprintf("StringConcat(len=%d, hint=%d)", i.A, i.B)
	case OpPanic:
		return fmt.Sprintf("Panic(%q)", i.Reason)
	case OpType, OpCall, OpCallInstance, OpLoadInstanceFn, OpFn:
		return fmt.Sprintf("%s(%s, args=%d)", i.Op, i.Hash, i.A)
	case OpJump, OpJumpIf, OpJumpIfNot:
		return fmt.Sprintf("%s(off=%d)", i.Op, i.A)
	case OpJumpIfBranch:
		return fmt.Sprintf("JumpIfBranch(branch=%d, off=%d)", i.A, i.B)
	case OpPopAndJumpIf, OpPopAndJumpIfNot:
		return fmt.Sprintf("%s(count=%d, off=%d)", i.Op, i.A, i.B)
	case OpMatchSequence:
		return fmt.Sprintf("MatchSequence(%v, len=%d, exact=%t)", i.Check, i.A, i.Exact)
	case OpMatchObject:
		return fmt.Sprintf("MatchObject(%v, keys_slot=%d, exact=%t)", i.Check, i.A, i.Exact)
	default:
		return i.Op.String()
	}
}
