package bytecode

import (
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// FnEntry is one fn_table row (§3.5): where a scripted function starts, how
// many arguments it takes, how it should be invoked, and - for the
// constructor shorthands the compiler emits for struct/variant-tuple types -
// which type(s) it builds.
type FnEntry struct {
	Offset   int
	ArgCount int
	CallKind CallKind
	Kind     FnKind

	// CtorType/CtorEnum are meaningful only when Kind != FnKindOffset.
	CtorType ident.Hash
	CtorEnum ident.Hash
}

// TypeInfo is a type_table row (§3.5): the minimal metadata the interpreter
// needs to answer `is`-checks and protocol dispatch against a user-defined
// type without needing the compiler's richer type-checking context.
type TypeInfo struct {
	Name      ident.Hash
	ValueType value.Kind
}

// Unit is the immutable compiled artifact described in §3.5 and §6.1: a
// flat instruction array plus the static tables instructions index into.
// Nothing in this package ever mutates a Unit after Build(); Units are
// shared read-only across VMs (§5).
type Unit struct {
	Name         string
	Instructions []Inst
	FnTable      map[ident.Hash]FnEntry

	StaticStrings    []string
	StaticBytes      [][]byte
	StaticObjectKeys [][]string
	TypeTable        map[ident.Hash]TypeInfo
}

// Lookup resolves a scripted or constructor function by hash (§4.2).
func (u *Unit) Lookup(hash ident.Hash) (FnEntry, error) {
	e, ok := u.FnTable[hash]
	if !ok {
		return FnEntry{}, vmerr.New(vmerr.MissingFunction, "unit %q: no function %s", u.Name, hash)
	}
	return e, nil
}

// LookupString resolves a StaticString slot to its text (§4.2).
func (u *Unit) LookupString(slot uint32) (string, error) {
	if int(slot) >= len(u.StaticStrings) {
		return "", vmerr.New(vmerr.MissingStaticString, "unit %q: no static string %d", u.Name, slot)
	}
	return u.StaticStrings[slot], nil
}

// LookupBytes resolves a Bytes literal slot (§4.2).
func (u *Unit) LookupBytes(slot uint32) ([]byte, error) {
	if int(slot) >= len(u.StaticBytes) {
		return nil, vmerr.New(vmerr.MissingStaticString, "unit %q: no static bytes %d", u.Name, slot)
	}
	return u.StaticBytes[slot], nil
}

// LookupObjectKeys resolves an Object/TypedObject/VariantObject key-table
// slot used by the Object-family construction opcodes (§4.2, §4.6).
func (u *Unit) LookupObjectKeys(slot uint32) ([]string, error) {
	if int(slot) >= len(u.StaticObjectKeys) {
		return nil, vmerr.New(vmerr.MissingStaticObjectKeys, "unit %q: no static object keys %d", u.Name, slot)
	}
	return u.StaticObjectKeys[slot], nil
}

// InstructionAt fetches the instruction at ip (§4.2).
func (u *Unit) InstructionAt(ip int) (Inst, error) {
	if ip < 0 || ip >= len(u.Instructions) {
		return Inst{}, vmerr.New(vmerr.IpOutOfBounds, "unit %q: ip %d out of bounds (len %d)", u.Name, ip, len(u.Instructions))
	}
	return u.Instructions[ip], nil
}

// LookupType resolves a type's metadata by hash (§4.2), used by `is`-checks
// and protocol composition against user-defined types declared in this
// unit (native types are resolved through Context.LookupType instead).
func (u *Unit) LookupType(hash ident.Hash) (TypeInfo, error) {
	t, ok := u.TypeTable[hash]
	if !ok {
		return TypeInfo{}, vmerr.New(vmerr.MissingType, "unit %q: no type %s", u.Name, hash)
	}
	return t, nil
}
