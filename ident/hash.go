// Package ident implements the deterministic name hashing used throughout
// the VM to identify functions, types, protocols and instance methods.
//
// A Hash is an opaque 64-bit identifier. The compiler (out of scope for this
// module) and the native module registry must agree on how a given name
// path maps to a Hash; this package is the single source of truth for that
// mapping so both sides always arrive at the same value.
//
// Composition rules:
//
//	Name(path)                  - top-level function or type name
//	InstanceFunction(ty, name)  - method / operator-protocol dispatch key
//	Getter(ty, field)           - field-access-via-protocol dispatch key
//
// Hashing never fails and never collides in a well-formed program: the
// compiler that emits a Unit is responsible for guaranteeing that distinct
// registered names produce distinct Hash values. A collision surfacing at
// runtime is a programmer error in the collaborator that built the Unit or
// Context, not something this package tries to detect.
package ident

import "fmt"

// Hash is an opaque, deterministic identifier for a name path, independent
// of platform or process. Two invocations of Name with the same string
// always produce the same Hash, on any machine, in any run.
type Hash uint64

// String renders the hash in a form convenient for error messages and
// debugger output.
func (h Hash) String() string {
	return fmt.Sprintf("#%016x", uint64(h))
}

// IsZero reports whether h is the zero Hash, used as a sentinel for "no
// hash" in a handful of optional fields (e.g. a TypedTuple with no type).
func (h Hash) IsZero() bool {
	return h == 0
}

// fnvOffset and fnvPrime are the 64-bit FNV-1a constants. FNV-1a is used
// instead of a keyed/seeded hash because the spec requires the mapping from
// name to Hash to be stable across processes and platforms with no shared
// seed to distribute; a general-purpose string hash with no external
// dependency is exactly what the standard library's hash/fnv already
// provides; this package inlines the arithmetic instead of importing
// hash/fnv so Name can fold multiple path segments into one pass without
// allocating an intermediate hash.Hash64 per call.
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

func fnv1a(seed uint64, s string) uint64 {
	h := seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

// Name hashes a dotted/namespaced path such as "std::io::read_line" or
// "fib" into a Hash. It is used for top-level function names and type
// names.
func Name(path string) Hash {
	return Hash(fnv1a(fnvOffset64, path))
}

// separator is mixed into composition hashes between the two components so
// that, e.g., InstanceFunction(Name("A"), Name("BC")) cannot collide with
// InstanceFunction(Name("AB"), Name("C")) by virtue of naive concatenation.
const separator = 0xff

// InstanceFunction composes a type hash and a method-name hash into the
// dispatch key used for:
//   - instance method lookup (`receiver.method(...)`)
//   - operator protocol dispatch (ADD, SUB, INDEX_GET, STRING_DISPLAY, ...)
//
// Both uses share one composition rule: the interpreter never needs to know
// whether a given InstanceFunction hash came from user method-call syntax
// or from internal protocol dispatch, it just performs one Context/Unit
// lookup either way.
func InstanceFunction(ty Hash, name Hash) Hash {
	h := fnv1a(fnvOffset64, "")
	h = mix(h, uint64(ty))
	h = mix(h, separator)
	h = mix(h, uint64(name))
	return Hash(h)
}

// Getter composes a type hash and a field-name hash into the dispatch key
// used when a field read falls through to a native getter protocol (see
// ObjectSlotIndexGet in §4.6 of the spec this module implements).
func Getter(ty Hash, field Hash) Hash {
	h := fnv1a(fnvOffset64, "")
	h = mix(h, uint64(ty))
	h = mix(h, separator+1)
	h = mix(h, uint64(field))
	return Hash(h)
}

func mix(h uint64, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= (v >> (8 * i)) & 0xff
		h *= fnvPrime64
	}
	return h
}
