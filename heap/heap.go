// Package heap implements the generation-tagged, access-tracked,
// reference-counted slot subsystem described in §3.2 and §4.4 of the spec:
// one slab per heap value kind, deterministic reclamation via a reap queue,
// and scoped borrow guards that enforce "shared and exclusive access never
// coexist on the same slot" (§3.4 invariant 7).
package heap

import (
	"sort"

	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
	"github.com/google/uuid"
)

// Heap owns every slab. A Heap belongs to exactly one Vm (§5 "Shared
// resource policy": slots are owned by exactly one VM); nothing here is
// safe for concurrent use by design - the VM that owns a Heap is itself
// single-threaded.
type Heap struct {
	strings        slab[stringPayload]
	bytesSlab      slab[bytesPayload]
	arrays         slab[arrayPayload]
	objects        slab[objectPayload]
	tuples         slab[tuplePayload]
	typedTuples    slab[typedTuplePayload]
	typedObjects   slab[typedObjectPayload]
	variantTuples  slab[variantTuplePayload]
	variantObjects slab[variantObjectPayload]
	results        slab[resultPayload]
	options        slab[optionPayload]
	genStates      slab[generatorStatePayload]
	futures        slab[futurePayload]
	generators     slab[generatorPayload]
	fnPtrs         slab[fnPtrPayload]
	externals      slab[externalPayload]

	reapQueue []value.Handle
}

// New creates an empty heap.
func New() *Heap {
	return &Heap{}
}

// --- generic alloc/ref/mut plumbing -----------------------------------

func allocate[T any](s *slab[T], kind value.Kind, payload T) value.Handle {
	idx, gen := s.allocate(payload)
	return value.Handle{Kind: kind, Index: idx, Generation: gen}
}

func refGuard[T any](s *slab[T], h value.Handle) (*SharedGuard[T], error) {
	e, err := s.lookup(h.Index, h.Generation)
	if err != nil {
		return nil, err
	}
	if err := s.acquireShared(e); err != nil {
		return nil, err
	}
	return newSharedGuard(s, h.Index, h.Generation), nil
}

func mutGuard[T any](s *slab[T], h value.Handle) (*ExclusiveGuard[T], error) {
	e, err := s.lookup(h.Index, h.Generation)
	if err != nil {
		return nil, err
	}
	if err := s.acquireExclusive(e); err != nil {
		return nil, err
	}
	return newExclusiveGuard(s, h.Index, h.Generation), nil
}

// --- String -------------------------------------------------------------

func (h *Heap) AllocateString(s string) value.Value {
	return value.FromHandle(allocate(&h.strings, value.KString, stringPayload{data: s}))
}

func (h *Heap) RefString(hd value.Handle) (*SharedGuard[stringPayload], error) {
	return refGuard(&h.strings, hd)
}

func (h *Heap) CloneString(hd value.Handle) (string, error) {
	g, err := h.RefString(hd)
	if err != nil {
		return "", err
	}
	defer g.Release()
	return g.Get().data, nil
}

func (h *Heap) TakeString(hd value.Handle) (string, error) {
	g, err := mutGuard(&h.strings, hd)
	if err != nil {
		return "", err
	}
	defer g.Release()
	s := g.Get().data
	g.Get().data = ""
	return s, nil
}

func (h *Heap) MutString(hd value.Handle) (*ExclusiveGuard[stringPayload], error) {
	return mutGuard(&h.strings, hd)
}

// --- Bytes ----------------------------------------------------------------

func (h *Heap) AllocateBytes(b []byte) value.Value {
	return value.FromHandle(allocate(&h.bytesSlab, value.KBytes, bytesPayload{data: b}))
}

func (h *Heap) RefBytes(hd value.Handle) (*SharedGuard[bytesPayload], error) {
	return refGuard(&h.bytesSlab, hd)
}

func (h *Heap) MutBytes(hd value.Handle) (*ExclusiveGuard[bytesPayload], error) {
	return mutGuard(&h.bytesSlab, hd)
}

// --- Array ------------------------------------------------------------

func (h *Heap) AllocateArray(elems []value.Value) value.Value {
	return value.FromHandle(allocate(&h.arrays, value.KArray, arrayPayload{elems: elems}))
}

func (h *Heap) RefArray(hd value.Handle) (*SharedGuard[arrayPayload], error) {
	return refGuard(&h.arrays, hd)
}

func (h *Heap) MutArray(hd value.Handle) (*ExclusiveGuard[arrayPayload], error) {
	return mutGuard(&h.arrays, hd)
}

// --- Tuple --------------------------------------------------------------

func (h *Heap) AllocateTuple(elems []value.Value) value.Value {
	return value.FromHandle(allocate(&h.tuples, value.KTuple, tuplePayload{elems: elems}))
}

func (h *Heap) RefTuple(hd value.Handle) (*SharedGuard[tuplePayload], error) {
	return refGuard(&h.tuples, hd)
}

func (h *Heap) AllocateTypedTuple(typ ident.Hash, elems []value.Value) value.Value {
	return value.FromHandle(allocate(&h.typedTuples, value.KTypedTuple, typedTuplePayload{typ: typ, elems: elems}))
}

func (h *Heap) RefTypedTuple(hd value.Handle) (*SharedGuard[typedTuplePayload], error) {
	return refGuard(&h.typedTuples, hd)
}

func (h *Heap) AllocateVariantTuple(enum, typ ident.Hash, elems []value.Value) value.Value {
	return value.FromHandle(allocate(&h.variantTuples, value.KVariantTuple, variantTuplePayload{enum: enum, typ: typ, elems: elems}))
}

func (h *Heap) RefVariantTuple(hd value.Handle) (*SharedGuard[variantTuplePayload], error) {
	return refGuard(&h.variantTuples, hd)
}

// --- Object / TypedObject / VariantObject --------------------------------

func (h *Heap) AllocateObject(keys []string, vals []value.Value) value.Value {
	f := newOrderedFields()
	for i, k := range keys {
		f.set(k, vals[i])
	}
	return value.FromHandle(allocate(&h.objects, value.KObject, objectPayload{fields: f}))
}

func (h *Heap) RefObject(hd value.Handle) (*SharedGuard[objectPayload], error) {
	return refGuard(&h.objects, hd)
}

func (h *Heap) MutObject(hd value.Handle) (*ExclusiveGuard[objectPayload], error) {
	return mutGuard(&h.objects, hd)
}

func (h *Heap) AllocateTypedObject(typ ident.Hash, keys []string, vals []value.Value) value.Value {
	f := newOrderedFields()
	for i, k := range keys {
		f.set(k, vals[i])
	}
	return value.FromHandle(allocate(&h.typedObjects, value.KTypedObject, typedObjectPayload{typ: typ, fields: f}))
}

func (h *Heap) RefTypedObject(hd value.Handle) (*SharedGuard[typedObjectPayload], error) {
	return refGuard(&h.typedObjects, hd)
}

func (h *Heap) AllocateVariantObject(enum, typ ident.Hash, keys []string, vals []value.Value) value.Value {
	f := newOrderedFields()
	for i, k := range keys {
		f.set(k, vals[i])
	}
	return value.FromHandle(allocate(&h.variantObjects, value.KVariantObject, variantObjectPayload{enum: enum, typ: typ, fields: f}))
}

func (h *Heap) RefVariantObject(hd value.Handle) (*SharedGuard[variantObjectPayload], error) {
	return refGuard(&h.variantObjects, hd)
}

// --- Result / Option / GeneratorState -------------------------------------

func (h *Heap) AllocateResult(ok bool, v value.Value) value.Value {
	return value.FromHandle(allocate(&h.results, value.KResult, resultPayload{ok: ok, val: v}))
}

func (h *Heap) RefResult(hd value.Handle) (*SharedGuard[resultPayload], error) {
	return refGuard(&h.results, hd)
}

func (h *Heap) AllocateOption(some bool, v value.Value) value.Value {
	return value.FromHandle(allocate(&h.options, value.KOption, optionPayload{some: some, val: v}))
}

func (h *Heap) RefOption(hd value.Handle) (*SharedGuard[optionPayload], error) {
	return refGuard(&h.options, hd)
}

func (h *Heap) AllocateGeneratorState(state GenStateKind, v value.Value) value.Value {
	return value.FromHandle(allocate(&h.genStates, value.KGeneratorState, generatorStatePayload{state: state, val: v}))
}

func (h *Heap) RefGeneratorState(hd value.Handle) (*SharedGuard[generatorStatePayload], error) {
	return refGuard(&h.genStates, hd)
}

// --- Future ---------------------------------------------------------------

func (h *Heap) AllocateFuture(a Awaitable) value.Value {
	return value.FromHandle(allocate(&h.futures, value.KFuture, futurePayload{inner: a}))
}

// BeginAwait hands back the Awaitable for the executor to drive, enforcing
// invariant 6 (§3.4): a Future is polled at most once.
func (h *Heap) BeginAwait(hd value.Handle) (Awaitable, error) {
	e, err := h.futures.lookup(hd.Index, hd.Generation)
	if err != nil {
		return nil, err
	}
	if e.payload.completed {
		return nil, vmerr.New(vmerr.FutureCompleted, "future %s", hd)
	}
	e.payload.completed = true
	return e.payload.inner, nil
}

// FutureCompleted peeks a Future slot's completed flag without consuming it,
// used by Select (§4.6 "completed ones are discarded") to filter branches
// that were already polled - by an earlier Select that didn't pick them, or
// by a direct Await - before deciding whether to surrender at all.
func (h *Heap) FutureCompleted(hd value.Handle) (bool, error) {
	e, err := h.futures.lookup(hd.Index, hd.Generation)
	if err != nil {
		return false, err
	}
	return e.payload.completed, nil
}

// --- Generator --------------------------------------------------------

func (h *Heap) AllocateGenerator(g GeneratorDriver) value.Value {
	return value.FromHandle(allocate(&h.generators, value.KGenerator, generatorPayload{inner: g}))
}

func (h *Heap) ResumeGenerator(hd value.Handle, sent value.Value) (value.Value, bool, value.Value, error) {
	e, err := h.generators.lookup(hd.Index, hd.Generation)
	if err != nil {
		return value.Value{}, false, value.Value{}, err
	}
	if e.payload.finished {
		return value.Value{}, false, value.Value{}, vmerr.New(vmerr.GeneratorComplete, "generator %s", hd)
	}
	yielded, done, ret, err := e.payload.inner.Resume(sent)
	if done {
		e.payload.finished = true
	}
	return yielded, done, ret, err
}

// --- FnPtr --------------------------------------------------------------

func (h *Heap) AllocateFnPtr(p fnPtrPayload) value.Value {
	return value.FromHandle(allocate(&h.fnPtrs, value.KFnPtr, p))
}

func (h *Heap) NativeFnPtr(handler ident.Hash) value.Value {
	return h.AllocateFnPtr(fnPtrPayload{kind: FnNative, fn: handler})
}

func (h *Heap) ScriptFnPtr(fn ident.Hash) value.Value {
	return h.AllocateFnPtr(fnPtrPayload{kind: FnScript, fn: fn})
}

func (h *Heap) ClosureFnPtr(fn ident.Hash, captured value.Value) value.Value {
	return h.AllocateFnPtr(fnPtrPayload{kind: FnClosure, fn: fn, captured: captured})
}

func (h *Heap) TupleCtorFnPtr(typ ident.Hash, arity int) value.Value {
	return h.AllocateFnPtr(fnPtrPayload{kind: FnTupleCtor, ctorType: typ, arity: arity})
}

func (h *Heap) VariantTupleCtorFnPtr(enum, typ ident.Hash, arity int) value.Value {
	return h.AllocateFnPtr(fnPtrPayload{kind: FnVariantTupleCtor, ctorEnum: enum, ctorType: typ, arity: arity})
}

func (h *Heap) RefFnPtr(hd value.Handle) (*SharedGuard[fnPtrPayload], error) {
	return refGuard(&h.fnPtrs, hd)
}

// --- External -----------------------------------------------------------

func (h *Heap) AllocateExternal(typeID uuid.UUID, typeName string, data interface{}) value.Value {
	return value.FromHandle(allocate(&h.externals, value.KExternal, externalPayload{typeID: typeID, typeName: typeName, data: data}))
}

func (h *Heap) RefExternal(hd value.Handle) (*SharedGuard[externalPayload], error) {
	return refGuard(&h.externals, hd)
}

// Downcast checks an External's runtime type-id before returning its boxed
// data, mirroring "downcasting is checked by type-id" (§3.3).
func (h *Heap) Downcast(hd value.Handle, wantTypeID uuid.UUID) (interface{}, error) {
	e, err := h.externals.lookup(hd.Index, hd.Generation)
	if err != nil {
		return nil, err
	}
	if e.payload.typeID != wantTypeID {
		return nil, vmerr.New(vmerr.ExpectedAny, "external type mismatch: have %s (%s), want %s", e.payload.typeID, e.payload.typeName, wantTypeID)
	}
	return e.payload.data, nil
}

// --- generic refcounting over a Value ------------------------------------

// IncRefValue contributes one refcount for v if it addresses a heap slot;
// it is a no-op for immediate values. Every push of a handle onto the
// operand stack must call this (§3.4 invariant 2).
func (h *Heap) IncRefValue(v value.Value) error {
	if !v.Kind.IsHandle() {
		return nil
	}
	return h.incRefByKind(v.Kind, v.H)
}

// DecRefValue releases one refcount for v, queuing the slot for reap if it
// reaches zero. Every pop of a handle off the operand stack must call this.
func (h *Heap) DecRefValue(v value.Value) error {
	if !v.Kind.IsHandle() {
		return nil
	}
	zero, err := h.decRefByKind(v.Kind, v.H)
	if err != nil {
		return err
	}
	if zero {
		h.reapQueue = append(h.reapQueue, v.H)
	}
	return nil
}

func (h *Heap) incRefByKind(k value.Kind, hd value.Handle) error {
	switch k {
	case value.KString:
		return h.strings.incRef(hd.Index, hd.Generation)
	case value.KBytes:
		return h.bytesSlab.incRef(hd.Index, hd.Generation)
	case value.KArray:
		return h.arrays.incRef(hd.Index, hd.Generation)
	case value.KObject:
		return h.objects.incRef(hd.Index, hd.Generation)
	case value.KTuple:
		return h.tuples.incRef(hd.Index, hd.Generation)
	case value.KTypedTuple:
		return h.typedTuples.incRef(hd.Index, hd.Generation)
	case value.KTypedObject:
		return h.typedObjects.incRef(hd.Index, hd.Generation)
	case value.KVariantTuple:
		return h.variantTuples.incRef(hd.Index, hd.Generation)
	case value.KVariantObject:
		return h.variantObjects.incRef(hd.Index, hd.Generation)
	case value.KResult:
		return h.results.incRef(hd.Index, hd.Generation)
	case value.KOption:
		return h.options.incRef(hd.Index, hd.Generation)
	case value.KGeneratorState:
		return h.genStates.incRef(hd.Index, hd.Generation)
	case value.KFuture:
		return h.futures.incRef(hd.Index, hd.Generation)
	case value.KGenerator:
		return h.generators.incRef(hd.Index, hd.Generation)
	case value.KFnPtr:
		return h.fnPtrs.incRef(hd.Index, hd.Generation)
	case value.KExternal:
		return h.externals.incRef(hd.Index, hd.Generation)
	default:
		return vmerr.New(vmerr.SlotMissing, "unknown handle kind %s", k)
	}
}

func (h *Heap) decRefByKind(k value.Kind, hd value.Handle) (bool, error) {
	switch k {
	case value.KString:
		return h.strings.decRef(hd.Index, hd.Generation)
	case value.KBytes:
		return h.bytesSlab.decRef(hd.Index, hd.Generation)
	case value.KArray:
		return h.arrays.decRef(hd.Index, hd.Generation)
	case value.KObject:
		return h.objects.decRef(hd.Index, hd.Generation)
	case value.KTuple:
		return h.tuples.decRef(hd.Index, hd.Generation)
	case value.KTypedTuple:
		return h.typedTuples.decRef(hd.Index, hd.Generation)
	case value.KTypedObject:
		return h.typedObjects.decRef(hd.Index, hd.Generation)
	case value.KVariantTuple:
		return h.variantTuples.decRef(hd.Index, hd.Generation)
	case value.KVariantObject:
		return h.variantObjects.decRef(hd.Index, hd.Generation)
	case value.KResult:
		return h.results.decRef(hd.Index, hd.Generation)
	case value.KOption:
		return h.options.decRef(hd.Index, hd.Generation)
	case value.KGeneratorState:
		return h.genStates.decRef(hd.Index, hd.Generation)
	case value.KFuture:
		return h.futures.decRef(hd.Index, hd.Generation)
	case value.KGenerator:
		return h.generators.decRef(hd.Index, hd.Generation)
	case value.KFnPtr:
		return h.fnPtrs.decRef(hd.Index, hd.Generation)
	case value.KExternal:
		return h.externals.decRef(hd.Index, hd.Generation)
	default:
		return false, vmerr.New(vmerr.SlotMissing, "unknown handle kind %s", k)
	}
}

// containedValues returns the Values directly reachable from the payload at
// handle hd, used by Reap to recursively decrement contained handles
// (§3.2 "reap() ... recurses to decrement handles held inside
// arrays/objects/tuples", §3.4 invariant 3).
func (h *Heap) containedValues(hd value.Handle) []value.Value {
	switch hd.Kind {
	case value.KArray:
		return append([]value.Value(nil), h.arrays.get(hd.Index).elems...)
	case value.KObject:
		return fieldValues(&h.objects.get(hd.Index).fields)
	case value.KTuple:
		return append([]value.Value(nil), h.tuples.get(hd.Index).elems...)
	case value.KTypedTuple:
		return append([]value.Value(nil), h.typedTuples.get(hd.Index).elems...)
	case value.KTypedObject:
		return fieldValues(&h.typedObjects.get(hd.Index).fields)
	case value.KVariantTuple:
		return append([]value.Value(nil), h.variantTuples.get(hd.Index).elems...)
	case value.KVariantObject:
		return fieldValues(&h.variantObjects.get(hd.Index).fields)
	case value.KResult:
		return []value.Value{h.results.get(hd.Index).val}
	case value.KOption:
		p := h.options.get(hd.Index)
		if p.some {
			return []value.Value{p.val}
		}
		return nil
	case value.KGeneratorState:
		return []value.Value{h.genStates.get(hd.Index).val}
	case value.KFnPtr:
		p := h.fnPtrs.get(hd.Index)
		if p.kind == FnClosure {
			return []value.Value{p.captured}
		}
		return nil
	default:
		return nil
	}
}

func fieldValues(f *orderedFields) []value.Value {
	out := make([]value.Value, 0, len(f.keys))
	for _, k := range f.keys {
		out = append(out, f.vals[k])
	}
	return out
}

func (h *Heap) freeByKind(hd value.Handle) {
	switch hd.Kind {
	case value.KString:
		h.strings.free(hd.Index)
	case value.KBytes:
		h.bytesSlab.free(hd.Index)
	case value.KArray:
		h.arrays.free(hd.Index)
	case value.KObject:
		h.objects.free(hd.Index)
	case value.KTuple:
		h.tuples.free(hd.Index)
	case value.KTypedTuple:
		h.typedTuples.free(hd.Index)
	case value.KTypedObject:
		h.typedObjects.free(hd.Index)
	case value.KVariantTuple:
		h.variantTuples.free(hd.Index)
	case value.KVariantObject:
		h.variantObjects.free(hd.Index)
	case value.KResult:
		h.results.free(hd.Index)
	case value.KOption:
		h.options.free(hd.Index)
	case value.KGeneratorState:
		h.genStates.free(hd.Index)
	case value.KFuture:
		h.futures.free(hd.Index)
	case value.KGenerator:
		h.generators.free(hd.Index)
	case value.KFnPtr:
		h.fnPtrs.free(hd.Index)
	case value.KExternal:
		h.externals.free(hd.Index)
	}
}

// Reap drains the reclamation queue, recursively decrementing (and
// potentially further queuing) every handle reachable from a zero-refcount
// slot's payload, then frees the slot. Calling Reap when the queue is empty
// is a no-op, so Reap(); Reap() is equivalent to Reap() (§8 property 4).
func (h *Heap) Reap() error {
	for len(h.reapQueue) > 0 {
		hd := h.reapQueue[len(h.reapQueue)-1]
		h.reapQueue = h.reapQueue[:len(h.reapQueue)-1]

		for _, child := range h.containedValues(hd) {
			if err := h.DecRefValue(child); err != nil {
				return err
			}
		}
		h.freeByKind(hd)
	}
	return nil
}

// LiveCount returns the number of currently-allocated (non-recycled) slots
// across every kind, used by tests asserting refcount soundness (§8
// property 2: "the heap can be fully reaped to zero live slots").
func (h *Heap) LiveCount() int {
	n := 0
	for _, s := range []int{
		liveIn(&h.strings), liveIn(&h.bytesSlab), liveIn(&h.arrays), liveIn(&h.objects),
		liveIn(&h.tuples), liveIn(&h.typedTuples), liveIn(&h.typedObjects),
		liveIn(&h.variantTuples), liveIn(&h.variantObjects), liveIn(&h.results),
		liveIn(&h.options), liveIn(&h.genStates), liveIn(&h.futures),
		liveIn(&h.generators), liveIn(&h.fnPtrs), liveIn(&h.externals),
	} {
		n += s
	}
	return n
}

func liveIn[T any](s *slab[T]) int {
	n := 0
	for i := range s.entries {
		if s.entries[i].alive {
			n++
		}
	}
	return n
}

// ObjectKeysSorted returns a sorted copy of an object's keys, used by debugging
// tools; iteration elsewhere in the VM always uses insertion order via
// orderedFields directly.
func (h *Heap) ObjectKeysSorted(hd value.Handle) ([]string, error) {
	g, err := h.RefObject(hd)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	keys := append([]string(nil), g.Get().fields.keys...)
	sort.Strings(keys)
	return keys, nil
}
