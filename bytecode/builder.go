package bytecode

import "github.com/emberscript/embervm/ident"

// Builder assembles a Unit by hand. The compiler that would normally
// produce a Unit is out of scope (§1); Builder exists only so embedders
// without a compiler yet, and this module's own tests, can construct valid
// Units directly.
type Builder struct {
	u *Unit
}

// NewBuilder starts an empty unit named name.
func NewBuilder(name string) *Builder {
	return &Builder{u: &Unit{
		Name:      name,
		FnTable:   make(map[ident.Hash]FnEntry),
		TypeTable: make(map[ident.Hash]TypeInfo),
	}}
}

// Emit appends an instruction and returns its index, useful for patching
// jump offsets once a forward target is known.
func (b *Builder) Emit(i Inst) int {
	b.u.Instructions = append(b.u.Instructions, i)
	return len(b.u.Instructions) - 1
}

// Patch overwrites a previously emitted instruction, typically to fill in a
// forward jump offset once the target address is known.
func (b *Builder) Patch(ip int, i Inst) {
	b.u.Instructions[ip] = i
}

// Here returns the index the next Emit call will use.
func (b *Builder) Here() int {
	return len(b.u.Instructions)
}

// InternString adds (or reuses) a static string, returning its slot id.
func (b *Builder) InternString(s string) uint32 {
	for i, existing := range b.u.StaticStrings {
		if existing == s {
			return uint32(i)
		}
	}
	b.u.StaticStrings = append(b.u.StaticStrings, s)
	return uint32(len(b.u.StaticStrings) - 1)
}

// InternBytes adds a static byte-string constant, returning its slot id.
func (b *Builder) InternBytes(data []byte) uint32 {
	b.u.StaticBytes = append(b.u.StaticBytes, data)
	return uint32(len(b.u.StaticBytes) - 1)
}

// InternObjectKeys adds a static object-key list, returning its slot id.
func (b *Builder) InternObjectKeys(keys []string) uint32 {
	b.u.StaticObjectKeys = append(b.u.StaticObjectKeys, keys)
	return uint32(len(b.u.StaticObjectKeys) - 1)
}

// DefineFn registers a scripted function's fn_table entry.
func (b *Builder) DefineFn(hash ident.Hash, offset, argCount int, callKind CallKind) {
	b.u.FnTable[hash] = FnEntry{Offset: offset, ArgCount: argCount, CallKind: callKind, Kind: FnKindOffset}
}

// DefineTupleCtor registers a tuple-constructor shorthand fn_table entry
// (the compiler emits one per tuple-shaped struct type).
func (b *Builder) DefineTupleCtor(hash, ctorType ident.Hash, argCount int) {
	b.u.FnTable[hash] = FnEntry{ArgCount: argCount, Kind: FnKindTupleCtor, CtorType: ctorType}
}

// DefineVariantTupleCtor registers a variant-tuple-constructor shorthand.
func (b *Builder) DefineVariantTupleCtor(hash, enum, ctorType ident.Hash, argCount int) {
	b.u.FnTable[hash] = FnEntry{ArgCount: argCount, Kind: FnKindVariantTupleCtor, CtorType: ctorType, CtorEnum: enum}
}

// DefineType registers a user-defined type's metadata.
func (b *Builder) DefineType(hash ident.Hash, info TypeInfo) {
	b.u.TypeTable[hash] = info
}

// Build finalizes and returns the assembled Unit.
func (b *Builder) Build() *Unit {
	return b.u
}
