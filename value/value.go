// Package value implements the tagged value representation described in
// §3.1 of the VM spec: a small set of immediate primitives plus one handle
// variant per heap slot kind. A Value is always exactly 48 bytes and never
// itself owns heap memory; ownership lives in the heap package, addressed
// through the (generation, index) pair carried by a Handle.
//
// This package intentionally knows nothing about the heap's allocation or
// refcounting machinery - it only describes the shape of a Value and the
// handle it may carry, so that both the heap package (which allocates
// slots) and the bytecode/vm packages (which push, pop and compare values)
// can depend on it without creating an import cycle.
package value

import (
	"fmt"
	"math"

	"github.com/emberscript/embervm/ident"
)

// Kind tags the payload a Value carries. Kinds below KString are immediate:
// their data lives inline in the Value itself. Kinds at or above KString
// address a heap slot through a Handle.
type Kind uint8

const (
	KUnit Kind = iota
	KBool
	KByte
	KChar
	KInteger
	KFloat
	KType
	KStaticString

	// Handle kinds - one per heap slot variant (§3.2).
	KString
	KArray
	KObject
	KTuple
	KTypedTuple
	KTypedObject
	KVariantTuple
	KVariantObject
	KResult
	KOption
	KGeneratorState
	KFuture
	KGenerator
	KFnPtr
	KBytes
	KExternal
)

var kindNames = [...]string{
	KUnit:           "Unit",
	KBool:           "Bool",
	KByte:           "Byte",
	KChar:           "Char",
	KInteger:        "Integer",
	KFloat:          "Float",
	KType:           "Type",
	KStaticString:   "StaticString",
	KString:         "String",
	KArray:          "Array",
	KObject:         "Object",
	KTuple:          "Tuple",
	KTypedTuple:     "TypedTuple",
	KTypedObject:    "TypedObject",
	KVariantTuple:   "VariantTuple",
	KVariantObject:  "VariantObject",
	KResult:         "Result",
	KOption:         "Option",
	KGeneratorState: "GeneratorState",
	KFuture:         "Future",
	KGenerator:      "Generator",
	KFnPtr:          "FnPtr",
	KBytes:          "Bytes",
	KExternal:       "External",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// IsHandle reports whether values of this kind address a heap slot rather
// than carrying their payload inline.
func (k Kind) IsHandle() bool {
	return k >= KString
}

// Handle addresses a heap slot: Kind selects which per-kind slab to index
// into, Index is the slot position within that slab, and Generation must
// match the slab's current generation counter at Index or the slot is
// considered stale (§3.1, invariant 3 and 4 in §3.4).
type Handle struct {
	Kind       Kind
	Index      uint32
	Generation uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("%s@%d/g%d", h.Kind, h.Index, h.Generation)
}

// Value is the tagged union described in §3.1. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	I      int64      // Bool (0/1), Byte, Char (rune), Integer
	F      float64    // Float
	Hash   ident.Hash  // Type
	Static uint32     // StaticString: index into the owning Unit's static-string table
	H      Handle     // meaningful when Kind.IsHandle()
}

// Constructors for immediate primitives.

func Unit() Value { return Value{Kind: KUnit} }

func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{Kind: KBool, I: i}
}

func Byte(b byte) Value             { return Value{Kind: KByte, I: int64(b)} }
func Char(r rune) Value             { return Value{Kind: KChar, I: int64(r)} }
func Integer(n int64) Value         { return Value{Kind: KInteger, I: n} }
func Float(f float64) Value         { return Value{Kind: KFloat, F: f} }
func Type(h ident.Hash) Value       { return Value{Kind: KType, Hash: h} }
func StaticString(idx uint32) Value { return Value{Kind: KStaticString, Static: idx} }

// FromHandle wraps a heap handle in a Value. The caller must supply a
// handle whose Kind matches the slab it was allocated from.
func FromHandle(h Handle) Value {
	return Value{Kind: h.Kind, H: h}
}

// Predicates.

func (v Value) IsUnit() bool   { return v.Kind == KUnit }
func (v Value) IsBool() bool   { return v.Kind == KBool }
func (v Value) IsInteger() bool { return v.Kind == KInteger }
func (v Value) IsFloat() bool  { return v.Kind == KFloat }
func (v Value) IsNumber() bool { return v.Kind == KInteger || v.Kind == KFloat }

func (v Value) AsBool() bool { return v.I != 0 }

// Truthy implements the single boolean-coercion rule the interpreter needs
// for JumpIf/JumpIfNot and friends: only Bool values participate (§4.6,
// "Not on Bool only. And/Or on Bool only"); everything else is a type
// error the caller must raise.
func (v Value) Truthy() (bool, bool) {
	if v.Kind != KBool {
		return false, false
	}
	return v.I != 0, true
}

// SameImmediateKind is used by the equality algorithm (heap.Equal) to fast
// path the common case of comparing two non-handle values.
func (v Value) SameImmediateKind(o Value) bool {
	return !v.Kind.IsHandle() && !o.Kind.IsHandle() && v.Kind == o.Kind
}

// IsFiniteFloat reports whether a Float value is finite; non-finite
// arithmetic results are errors per §4.6 "Numeric semantics".
func (v Value) IsFiniteFloat() bool {
	return !math.IsInf(v.F, 0) && !math.IsNaN(v.F)
}

func (v Value) String() string {
	switch v.Kind {
	case KUnit:
		return "()"
	case KBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KByte:
		return fmt.Sprintf("b'%d'", v.I)
	case KChar:
		return fmt.Sprintf("%q", rune(v.I))
	case KInteger:
		return fmt.Sprintf("%d", v.I)
	case KFloat:
		return fmt.Sprintf("%g", v.F)
	case KType:
		return "type:" + v.Hash.String()
	case KStaticString:
		return fmt.Sprintf("sstr#%d", v.Static)
	default:
		return v.H.String()
	}
}
