package heap

import (
	"testing"

	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateStringStartsWithRefcountOneAndReapsToZero(t *testing.T) {
	h := New()
	v := h.AllocateString("hi")
	assert.Equal(t, 1, h.LiveCount())

	require.NoError(t, h.DecRefValue(v))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())
}

func TestIncRefValueKeepsSlotAliveAcrossOneDrop(t *testing.T) {
	h := New()
	v := h.AllocateString("hi")
	require.NoError(t, h.IncRefValue(v))

	require.NoError(t, h.DecRefValue(v))
	require.NoError(t, h.Reap())
	assert.Equal(t, 1, h.LiveCount(), "slot must survive the first drop since refcount was 2")

	require.NoError(t, h.DecRefValue(v))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())
}

func TestDecRefValueOnImmediateIsNoop(t *testing.T) {
	h := New()
	require.NoError(t, h.DecRefValue(value.Integer(5)))
	require.NoError(t, h.IncRefValue(value.Bool(true)))
	assert.Equal(t, 0, h.LiveCount())
}

func TestReapIsIdempotentWhenQueueEmpty(t *testing.T) {
	h := New()
	require.NoError(t, h.Reap())
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())
}

func TestReapRecursesIntoContainedValues(t *testing.T) {
	h := New()
	inner := h.AllocateString("nested")
	outer := h.AllocateArray([]value.Value{inner})
	assert.Equal(t, 2, h.LiveCount())

	require.NoError(t, h.DecRefValue(outer))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount(), "dropping the array must recursively drop the string it holds")
}

func TestReapRecursesIntoObjectFields(t *testing.T) {
	h := New()
	field := h.AllocateString("v")
	obj := h.AllocateObject([]string{"k"}, []value.Value{field})
	assert.Equal(t, 2, h.LiveCount())

	require.NoError(t, h.DecRefValue(obj))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())
}

func TestReapRecursesIntoOptionSomeButNotNone(t *testing.T) {
	h := New()
	inner := h.AllocateString("v")
	some := h.AllocateOption(true, inner)
	require.NoError(t, h.DecRefValue(some))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())

	none := h.AllocateOption(false, value.Unit())
	require.NoError(t, h.DecRefValue(none))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())
}

func TestReapRecursesIntoClosureCapturedValueOnly(t *testing.T) {
	h := New()
	captured := h.AllocateString("env")
	closure := h.ClosureFnPtr(ident.Name("f"), captured)
	require.NoError(t, h.DecRefValue(closure))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())

	plain := h.ScriptFnPtr(ident.Name("g"))
	require.NoError(t, h.DecRefValue(plain))
	require.NoError(t, h.Reap())
	assert.Equal(t, 0, h.LiveCount())
}

func TestGenerationMismatchAfterFreeIsDetected(t *testing.T) {
	h := New()
	v := h.AllocateString("first")
	require.NoError(t, h.DecRefValue(v))
	require.NoError(t, h.Reap())

	// Allocate again; the slab should reuse the freed index with a bumped
	// generation, and the old handle must now be rejected.
	v2 := h.AllocateString("second")
	assert.Equal(t, v.H.Index, v2.H.Index, "expected the freed slot to be recycled")
	assert.NotEqual(t, v.H.Generation, v2.H.Generation)

	_, err := h.CloneString(v.H)
	assert.ErrorIs(t, err, vmerr.SlotMissing)
}

func TestSharedGuardsCoexistButExclusiveDoesNot(t *testing.T) {
	h := New()
	v := h.AllocateArray([]value.Value{value.Integer(1)})

	g1, err := h.RefArray(v.H)
	require.NoError(t, err)
	g2, err := h.RefArray(v.H)
	require.NoError(t, err)

	_, err = h.MutArray(v.H)
	assert.ErrorIs(t, err, vmerr.SlotInaccessibleShared)

	g1.Release()
	g2.Release()

	mg, err := h.MutArray(v.H)
	require.NoError(t, err)
	_, err = h.RefArray(v.H)
	assert.ErrorIs(t, err, vmerr.SlotInaccessibleExclusive)
	mg.Release()
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	h := New()
	v := h.AllocateString("x")
	g, err := h.RefString(v.H)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		g.Release()
		g.Release()
	})
}

func TestArrayGetSetBoundsChecked(t *testing.T) {
	h := New()
	v := h.AllocateArray([]value.Value{value.Integer(1), value.Integer(2)})

	got, err := h.ArrayGet(v.H, 1)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(2), got)

	_, err = h.ArrayGet(v.H, 5)
	assert.ErrorIs(t, err, vmerr.IndexOutOfBounds)

	old, err := h.ArraySet(v.H, 0, value.Integer(9))
	require.NoError(t, err)
	assert.Equal(t, value.Integer(1), old)
}

func TestObjectSetReturnsOldAndExisted(t *testing.T) {
	h := New()
	v := h.AllocateObject([]string{"a"}, []value.Value{value.Integer(1)})

	old, existed, err := h.ObjectSet(v.H, "a", value.Integer(2))
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, value.Integer(1), old)

	_, existed, err = h.ObjectSet(v.H, "b", value.Integer(3))
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestBeginAwaitFailsOnSecondPoll(t *testing.T) {
	h := New()
	v := h.AllocateFuture(&stubAwaitable{})

	_, err := h.BeginAwait(v.H)
	require.NoError(t, err)

	_, err = h.BeginAwait(v.H)
	assert.ErrorIs(t, err, vmerr.FutureCompleted)
}

func TestDowncastChecksTypeID(t *testing.T) {
	h := New()
	id := uuid.New()
	v := h.AllocateExternal(id, "Widget", 42)

	got, err := h.Downcast(v.H, id)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = h.Downcast(v.H, uuid.New())
	assert.ErrorIs(t, err, vmerr.ExpectedAny)
}

type stubAwaitable struct{}

func (s *stubAwaitable) Await() (value.Value, error) { return value.Unit(), nil }
