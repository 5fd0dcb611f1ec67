package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameIsDeterministic(t *testing.T) {
	assert.Equal(t, Name("fib"), Name("fib"))
	assert.NotEqual(t, Name("fib"), Name("fib2"))
}

func TestNameZeroSentinel(t *testing.T) {
	assert.True(t, Hash(0).IsZero())
	assert.False(t, Name("anything").IsZero())
}

func TestInstanceFunctionDoesNotCollideAcrossConcatenation(t *testing.T) {
	// InstanceFunction(Name("A"), Name("BC")) must not equal
	// InstanceFunction(Name("AB"), Name("C")) just because "A"+"BC" == "AB"+"C".
	a := InstanceFunction(Name("A"), Name("BC"))
	b := InstanceFunction(Name("AB"), Name("C"))
	assert.NotEqual(t, a, b)
}

func TestInstanceFunctionAndGetterDiverge(t *testing.T) {
	ty := Name("core::String")
	name := Name("len")
	assert.NotEqual(t, InstanceFunction(ty, name), Getter(ty, name), "method dispatch and getter dispatch must not share a key for the same (type, name) pair")
}

func TestProtocolHashesAreStable(t *testing.T) {
	assert.Equal(t, Name(NameADD), ADD)
	assert.Equal(t, Name(NameSTRINGDISPLAY), STRINGDISPLAY)
	assert.Equal(t, Name(NameINDEXGET), INDEXGET)
}

func TestWellKnownTypesAreDistinct(t *testing.T) {
	seen := map[Hash]string{}
	types := map[string]Hash{
		"Unit": TypeUnit, "Bool": TypeBool, "Byte": TypeByte, "Char": TypeChar,
		"Integer": TypeInteger, "Float": TypeFloat, "Type": TypeType,
		"String": TypeString, "Array": TypeArray, "Object": TypeObject,
		"Tuple": TypeTuple, "Bytes": TypeBytes, "Result": TypeResult,
		"Option": TypeOption, "GeneratorState": TypeGeneratorState,
		"Future": TypeFuture, "Generator": TypeGenerator, "FnPtr": TypeFnPtr,
	}
	for name, h := range types {
		if other, dup := seen[h]; dup {
			t.Fatalf("%s and %s share a hash", name, other)
		}
		seen[h] = name
	}
}
