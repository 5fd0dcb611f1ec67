package bytecode

import (
	"testing"

	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/vmerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderInternDeduplicatesStrings(t *testing.T) {
	b := NewBuilder("unit")
	a := b.InternString("hello")
	c := b.InternString("world")
	d := b.InternString("hello")
	assert.Equal(t, a, d)
	assert.NotEqual(t, a, c)
}

func TestBuilderEmitHereAndPatch(t *testing.T) {
	b := NewBuilder("unit")
	assert.Equal(t, 0, b.Here())
	idx := b.Emit(Inst{Op: OpJump, A: -1})
	b.Emit(Inst{Op: OpNop})
	target := b.Here()
	b.Patch(idx, Inst{Op: OpJump, A: int32(target)})

	u := b.Build()
	require.Len(t, u.Instructions, 2)
	assert.Equal(t, int32(target), u.Instructions[idx].A)
}

func TestBuilderDefineFnRoundTrips(t *testing.T) {
	b := NewBuilder("unit")
	hash := ident.Name("fib")
	b.DefineFn(hash, 10, 1, CallImmediate)

	u := b.Build()
	entry, err := u.Lookup(hash)
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Offset)
	assert.Equal(t, 1, entry.ArgCount)
	assert.Equal(t, FnKindOffset, entry.Kind)
}

func TestBuilderDefineCtorsRoundTrip(t *testing.T) {
	b := NewBuilder("unit")
	tupleHash := ident.Name("Point")
	b.DefineTupleCtor(tupleHash, tupleHash, 2)

	variantHash := ident.Name("Shape::Circle")
	enumHash := ident.Name("Shape")
	b.DefineVariantTupleCtor(variantHash, enumHash, variantHash, 1)

	u := b.Build()

	tupleEntry, err := u.Lookup(tupleHash)
	require.NoError(t, err)
	assert.Equal(t, FnKindTupleCtor, tupleEntry.Kind)
	assert.Equal(t, 2, tupleEntry.ArgCount)
	assert.Equal(t, tupleHash, tupleEntry.CtorType)

	variantEntry, err := u.Lookup(variantHash)
	require.NoError(t, err)
	assert.Equal(t, FnKindVariantTupleCtor, variantEntry.Kind)
	assert.Equal(t, enumHash, variantEntry.CtorEnum)
}

func TestUnitLookupMissingFunctionFails(t *testing.T) {
	u := NewBuilder("unit").Build()
	_, err := u.Lookup(ident.Name("nope"))
	assert.ErrorIs(t, err, vmerr.MissingFunction)
}

func TestUnitLookupStringOutOfRangeFails(t *testing.T) {
	u := NewBuilder("unit").Build()
	_, err := u.LookupString(0)
	assert.ErrorIs(t, err, vmerr.MissingStaticString)
}

func TestUnitLookupObjectKeysRoundTrips(t *testing.T) {
	b := NewBuilder("unit")
	slot := b.InternObjectKeys([]string{"x", "y"})
	u := b.Build()
	keys, err := u.LookupObjectKeys(slot)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, keys)
}

func TestUnitInstructionAtOutOfBoundsFails(t *testing.T) {
	u := NewBuilder("unit").Build()
	_, err := u.InstructionAt(0)
	assert.ErrorIs(t, err, vmerr.IpOutOfBounds)
}

func TestUnitLookupTypeRoundTrips(t *testing.T) {
	b := NewBuilder("unit")
	h := ident.Name("Point")
	b.DefineType(h, TypeInfo{Name: h})
	u := b.Build()
	info, err := u.LookupType(h)
	require.NoError(t, err)
	assert.Equal(t, h, info.Name)
}

func TestInstStringDoesNotPanicAcrossOpcodes(t *testing.T) {
	insts := []Inst{
		{Op: OpNop},
		{Op: OpTupleIndexGetAt, A: 1, B: 2},
		{Op: OpObjectSlotIndexGetAt, A: 1, B: 3},
		{Op: OpStringConcat, A: 2, B: 16},
		{Op: OpMatchSequence, Check: CheckTuple, A: 2, Exact: true},
		{Op: OpMatchObject, Check: CheckObject, A: 0, Exact: false},
		{Op: OpPanic, Reason: "UnmatchedPattern"},
	}
	for _, i := range insts {
		assert.NotPanics(t, func() { _ = i.String() })
	}
}
