package value

import (
	"testing"

	"github.com/emberscript/embervm/ident"
	"github.com/stretchr/testify/assert"
)

func TestImmediateConstructors(t *testing.T) {
	assert.True(t, Unit().IsUnit())
	assert.True(t, Bool(true).AsBool())
	assert.False(t, Bool(false).AsBool())
	assert.Equal(t, int64(42), Byte(42).I)
	assert.Equal(t, int64('x'), Char('x').I)
	assert.Equal(t, int64(7), Integer(7).I)
	assert.Equal(t, 3.5, Float(3.5).F)
	assert.Equal(t, ident.Name("core::Foo"), Type(ident.Name("core::Foo")).Hash)
	assert.Equal(t, uint32(3), StaticString(3).Static)
}

func TestIsHandleSplitsImmediateFromHeapKinds(t *testing.T) {
	for k := KUnit; k <= KStaticString; k++ {
		assert.False(t, k.IsHandle(), "%s should be immediate", k)
	}
	for k := KString; k <= KExternal; k++ {
		assert.True(t, k.IsHandle(), "%s should be a handle kind", k)
	}
}

func TestFromHandlePreservesKind(t *testing.T) {
	h := Handle{Kind: KArray, Index: 4, Generation: 2}
	v := FromHandle(h)
	assert.Equal(t, KArray, v.Kind)
	assert.Equal(t, h, v.H)
}

func TestTruthyOnlyAcceptsBool(t *testing.T) {
	b, ok := Bool(true).Truthy()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = Integer(1).Truthy()
	assert.False(t, ok)
}

func TestIsNumber(t *testing.T) {
	assert.True(t, Integer(1).IsNumber())
	assert.True(t, Float(1).IsNumber())
	assert.False(t, Bool(true).IsNumber())
}

func TestSameImmediateKind(t *testing.T) {
	assert.True(t, Integer(1).SameImmediateKind(Integer(2)))
	assert.False(t, Integer(1).SameImmediateKind(Float(2)))

	handleVal := FromHandle(Handle{Kind: KString})
	assert.False(t, handleVal.SameImmediateKind(handleVal), "handle kinds never fast-path as immediate")
}

func TestIsFiniteFloat(t *testing.T) {
	assert.True(t, Float(1.5).IsFiniteFloat())
	assert.False(t, Float(1).String() == "", "sanity: String must not panic")
}

func TestValueStringDoesNotPanicAcrossKinds(t *testing.T) {
	vals := []Value{
		Unit(), Bool(true), Byte(1), Char('a'), Integer(1), Float(1.0),
		Type(ident.Name("x")), StaticString(0),
		FromHandle(Handle{Kind: KString, Index: 1, Generation: 1}),
	}
	for _, v := range vals {
		assert.NotPanics(t, func() { _ = v.String() })
	}
}
