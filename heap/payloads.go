package heap

import (
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/google/uuid"
)

// Payload types - one per heap slot kind (§3.2, §3.3). Each is stored by
// value inside its slab's entries so that taking the address of a slab
// entry's payload field gives exclusive, in-place access with no extra
// allocation or indirection.

type stringPayload struct {
	data string
}

type bytesPayload struct {
	data []byte
}

type arrayPayload struct {
	elems []value.Value
}

// orderedFields backs Object, TypedObject and VariantObject: an
// insertion-ordered string -> Value map (§3.3 "Object").
type orderedFields struct {
	keys []string
	vals map[string]value.Value
}

func newOrderedFields() orderedFields {
	return orderedFields{vals: make(map[string]value.Value)}
}

func (f *orderedFields) get(key string) (value.Value, bool) {
	v, ok := f.vals[key]
	return v, ok
}

func (f *orderedFields) set(key string, v value.Value) {
	if _, exists := f.vals[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.vals[key] = v
}

func (f *orderedFields) len() int { return len(f.keys) }

type objectPayload struct {
	fields orderedFields
}

type tuplePayload struct {
	elems []value.Value
}

type typedTuplePayload struct {
	typ   ident.Hash
	elems []value.Value
}

type typedObjectPayload struct {
	typ    ident.Hash
	fields orderedFields
}

type variantTuplePayload struct {
	enum  ident.Hash
	typ   ident.Hash
	elems []value.Value
}

type variantObjectPayload struct {
	enum   ident.Hash
	typ    ident.Hash
	fields orderedFields
}

type resultPayload struct {
	ok  bool
	val value.Value
}

// GenStateKind tags which arm of the GeneratorState tagged union a slot
// holds (§3.3).
type GenStateKind byte

const (
	GenYielded GenStateKind = iota
	GenComplete
)

type generatorStatePayload struct {
	state GenStateKind
	val   value.Value
}

type optionPayload struct {
	some bool
	val  value.Value
}

// Awaitable is implemented by whatever produced the suspended computation a
// Future slot wraps (typically a native handler). Await is called by
// whichever driver resolves the suspension - the outer executor for a
// top-level Execution, or the vm package itself when resolving an await
// inside a nested protocol call, an async call's child Vm or a generator -
// and at most once per slot (§3.4 invariant 6).
type Awaitable interface {
	Await() (value.Value, error)
}

type futurePayload struct {
	inner     Awaitable
	completed bool
}

// GeneratorDriver is implemented by the owned, resumable Vm a Generator
// slot wraps (§3.3 "Generator"). Resume drives the nested VM from its
// current suspension point; yielded/done/ret mirror the generator's
// StopReason outcome.
type GeneratorDriver interface {
	Resume(sent value.Value) (yielded value.Value, done bool, ret value.Value, err error)
}

type generatorPayload struct {
	inner    GeneratorDriver
	finished bool
}

// FnPtrKind tags which of the five callable shapes an FnPtr slot holds
// (§3.3 "FnPtr").
type FnPtrKind byte

const (
	FnNative FnPtrKind = iota
	FnScript
	FnClosure
	FnTupleCtor
	FnVariantTupleCtor
)

type fnPtrPayload struct {
	kind     FnPtrKind
	fn       ident.Hash // NativeHandler / ScriptOffset / Closure: the fn_table key
	captured value.Value
	ctorType ident.Hash
	ctorEnum ident.Hash
	arity    int
}

// externalPayload boxes a host value whose concrete type is identified at
// runtime by a stable TypeID, with downcasting checked against it (§3.3
// "External", §4.4).
type externalPayload struct {
	typeID   uuid.UUID
	typeName string
	data     interface{}
}
