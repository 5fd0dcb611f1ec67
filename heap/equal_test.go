package heap

import (
	"testing"

	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualImmediates(t *testing.T) {
	h := New()
	eq, err := h.Equal(value.Integer(1), value.Integer(1), nil)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = h.Equal(value.Integer(1), value.Integer(2), nil)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestEqualCrossKindIsAlwaysFalse(t *testing.T) {
	h := New()
	eq, err := h.Equal(value.Integer(1), value.Float(1), nil)
	require.NoError(t, err)
	assert.False(t, eq, "Eq is kind-strict: Integer(1) must not equal Float(1.0)")
}

func TestEqualStaticStringResolvesThroughStatics(t *testing.T) {
	h := New()
	statics := []string{"hi"}
	eq, err := h.Equal(value.StaticString(0), value.StaticString(0), statics)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestEqualStringsByContent(t *testing.T) {
	h := New()
	a := h.AllocateString("same")
	b := h.AllocateString("same")
	eq, err := h.Equal(a, b, nil)
	require.NoError(t, err)
	assert.True(t, eq, "two distinct slots with identical content must compare equal")

	c := h.AllocateString("different")
	eq, err = h.Equal(a, c, nil)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestEqualArraysStructurally(t *testing.T) {
	h := New()
	a := h.AllocateArray([]value.Value{value.Integer(1), value.Integer(2)})
	b := h.AllocateArray([]value.Value{value.Integer(1), value.Integer(2)})
	eq, err := h.Equal(a, b, nil)
	require.NoError(t, err)
	assert.True(t, eq)

	c := h.AllocateArray([]value.Value{value.Integer(1)})
	eq, err = h.Equal(a, c, nil)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestEqualObjectsIgnoresKeyOrder(t *testing.T) {
	h := New()
	a := h.AllocateObject([]string{"x", "y"}, []value.Value{value.Integer(1), value.Integer(2)})
	b := h.AllocateObject([]string{"y", "x"}, []value.Value{value.Integer(2), value.Integer(1)})
	eq, err := h.Equal(a, b, nil)
	require.NoError(t, err)
	assert.True(t, eq, "object equality must not be sensitive to field insertion order")
}

func TestEqualTypedTupleRequiresSameType(t *testing.T) {
	h := New()
	pointHash := ident.Name("Point")
	otherHash := ident.Name("Other")
	a := h.AllocateTypedTuple(pointHash, []value.Value{value.Integer(1)})
	b := h.AllocateTypedTuple(otherHash, []value.Value{value.Integer(1)})
	eq, err := h.Equal(a, b, nil)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestEqualOptionNoneIgnoresInnerValue(t *testing.T) {
	h := New()
	a := h.AllocateOption(false, value.Integer(999))
	b := h.AllocateOption(false, value.Unit())
	eq, err := h.Equal(a, b, nil)
	require.NoError(t, err)
	assert.True(t, eq, "Option::None must compare equal regardless of the unused inner value")
}

func TestEqualResultRecursesIntoInnerValue(t *testing.T) {
	h := New()
	a := h.AllocateResult(true, value.Integer(1))
	b := h.AllocateResult(true, value.Integer(1))
	eq, err := h.Equal(a, b, nil)
	require.NoError(t, err)
	assert.True(t, eq)

	c := h.AllocateResult(true, value.Integer(2))
	eq, err = h.Equal(a, c, nil)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestEqualOnNonStructuralKindsIsIdentityOnly(t *testing.T) {
	h := New()
	f1 := h.AllocateFuture(&stubAwaitable{})
	f2 := h.AllocateFuture(&stubAwaitable{})
	eq, err := h.Equal(f1, f2, nil)
	require.NoError(t, err)
	assert.False(t, eq, "two distinct Future slots never compare equal even with equivalent underlying awaitables")

	eq, err = h.Equal(f1, f1, nil)
	require.NoError(t, err)
	assert.True(t, eq, "identical handle must short-circuit to true")
}
