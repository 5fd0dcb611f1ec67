package heap

import (
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// This file exposes read/write views over payload fields that are otherwise
// unexported, for the vm package's interpreter loop (indexing, pattern
// matching, unwrap) to use without reaching into heap's internals directly -
// keeping the slab/payload machinery itself unexported while still letting
// the one other in-module caller that legitimately needs it (the dispatch
// loop) operate on slot contents.

// BytesContent returns a copy of a Bytes slot's content.
func (h *Heap) BytesContent(hd value.Handle) ([]byte, error) {
	g, err := h.RefBytes(hd)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	return append([]byte(nil), g.Get().data...), nil
}

// ArrayLen/ArrayGet/ArraySet give positional access into an Array slot.
func (h *Heap) ArrayLen(hd value.Handle) (int, error) {
	g, err := h.RefArray(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return len(g.Get().elems), nil
}

func (h *Heap) ArrayGet(hd value.Handle, i int) (value.Value, error) {
	g, err := h.RefArray(hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.IndexOutOfBounds, "array index %d out of [0,%d)", i, len(e.elems))
	}
	return e.elems[i], nil
}

func (h *Heap) ArraySet(hd value.Handle, i int, v value.Value) (value.Value, error) {
	g, err := mutGuard(&h.arrays, hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.IndexOutOfBounds, "array index %d out of [0,%d)", i, len(e.elems))
	}
	old := e.elems[i]
	e.elems[i] = v
	return old, nil
}

// TupleLen/TupleGet give positional access into a plain Tuple slot.
func (h *Heap) TupleLen(hd value.Handle) (int, error) {
	g, err := h.RefTuple(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return len(g.Get().elems), nil
}

func (h *Heap) TupleGet(hd value.Handle, i int) (value.Value, error) {
	g, err := h.RefTuple(hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.MissingTupleIndex, "tuple index %d out of [0,%d)", i, len(e.elems))
	}
	return e.elems[i], nil
}

// TypedTupleLen/TypedTupleGet give positional access into a TypedTuple slot
// (its type hash is already exposed by TypedTupleType in typeof.go).
func (h *Heap) TypedTupleLen(hd value.Handle) (int, error) {
	g, err := h.RefTypedTuple(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return len(g.Get().elems), nil
}

func (h *Heap) TypedTupleGet(hd value.Handle, i int) (value.Value, error) {
	g, err := h.RefTypedTuple(hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.MissingTupleIndex, "typed tuple index %d out of [0,%d)", i, len(e.elems))
	}
	return e.elems[i], nil
}

// TupleSet/TypedTupleSet/VariantTupleSet overwrite one positional slot in
// place, backing TupleIndexSet(k) (§4.6): a tuple's arity is fixed at
// construction but its elements are mutable, mirroring ArraySet.
func (h *Heap) TupleSet(hd value.Handle, i int, v value.Value) (value.Value, error) {
	g, err := mutGuard(&h.tuples, hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.MissingTupleIndex, "tuple index %d out of [0,%d)", i, len(e.elems))
	}
	old := e.elems[i]
	e.elems[i] = v
	return old, nil
}

func (h *Heap) TypedTupleSet(hd value.Handle, i int, v value.Value) (value.Value, error) {
	g, err := mutGuard(&h.typedTuples, hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.MissingTupleIndex, "typed tuple index %d out of [0,%d)", i, len(e.elems))
	}
	old := e.elems[i]
	e.elems[i] = v
	return old, nil
}

func (h *Heap) VariantTupleSet(hd value.Handle, i int, v value.Value) (value.Value, error) {
	g, err := mutGuard(&h.variantTuples, hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.MissingTupleIndex, "variant tuple index %d out of [0,%d)", i, len(e.elems))
	}
	old := e.elems[i]
	e.elems[i] = v
	return old, nil
}

// VariantTupleLen/VariantTupleGet give positional access into a
// VariantTuple slot (enum/type hash already exposed by VariantTupleType).
func (h *Heap) VariantTupleLen(hd value.Handle) (int, error) {
	g, err := h.RefVariantTuple(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return len(g.Get().elems), nil
}

func (h *Heap) VariantTupleGet(hd value.Handle, i int) (value.Value, error) {
	g, err := h.RefVariantTuple(hd)
	if err != nil {
		return value.Value{}, err
	}
	defer g.Release()
	e := g.Get()
	if i < 0 || i >= len(e.elems) {
		return value.Value{}, vmerr.New(vmerr.MissingTupleIndex, "variant tuple index %d out of [0,%d)", i, len(e.elems))
	}
	return e.elems[i], nil
}

// ObjectLen/ObjectKeys/ObjectGet/ObjectSet operate on a plain Object slot's
// insertion-ordered fields.
func (h *Heap) ObjectLen(hd value.Handle) (int, error) {
	g, err := h.RefObject(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return g.Get().fields.len(), nil
}

func (h *Heap) ObjectKeys(hd value.Handle) ([]string, error) {
	g, err := h.RefObject(hd)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	return append([]string(nil), g.Get().fields.keys...), nil
}

func (h *Heap) ObjectGet(hd value.Handle, key string) (value.Value, bool, error) {
	g, err := h.RefObject(hd)
	if err != nil {
		return value.Value{}, false, err
	}
	defer g.Release()
	v, ok := g.Get().fields.get(key)
	return v, ok, nil
}

func (h *Heap) ObjectSet(hd value.Handle, key string, v value.Value) (value.Value, bool, error) {
	g, err := mutGuard(&h.objects, hd)
	if err != nil {
		return value.Value{}, false, err
	}
	defer g.Release()
	old, existed := g.Get().fields.get(key)
	g.Get().fields.set(key, v)
	return old, existed, nil
}

// TypedObjectLen/Keys/Get mirror the Object accessors for TypedObject slots
// (type hash already exposed by TypedObjectType).
func (h *Heap) TypedObjectLen(hd value.Handle) (int, error) {
	g, err := h.RefTypedObject(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return g.Get().fields.len(), nil
}

func (h *Heap) TypedObjectKeys(hd value.Handle) ([]string, error) {
	g, err := h.RefTypedObject(hd)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	return append([]string(nil), g.Get().fields.keys...), nil
}

func (h *Heap) TypedObjectGet(hd value.Handle, key string) (value.Value, bool, error) {
	g, err := h.RefTypedObject(hd)
	if err != nil {
		return value.Value{}, false, err
	}
	defer g.Release()
	v, ok := g.Get().fields.get(key)
	return v, ok, nil
}

// VariantObjectLen/Keys/Get mirror the Object accessors for VariantObject
// slots (enum/type hash already exposed by VariantObjectType).
func (h *Heap) VariantObjectLen(hd value.Handle) (int, error) {
	g, err := h.RefVariantObject(hd)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return g.Get().fields.len(), nil
}

func (h *Heap) VariantObjectKeys(hd value.Handle) ([]string, error) {
	g, err := h.RefVariantObject(hd)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	return append([]string(nil), g.Get().fields.keys...), nil
}

func (h *Heap) VariantObjectGet(hd value.Handle, key string) (value.Value, bool, error) {
	g, err := h.RefVariantObject(hd)
	if err != nil {
		return value.Value{}, false, err
	}
	defer g.Release()
	v, ok := g.Get().fields.get(key)
	return v, ok, nil
}

// ResultInfo/OptionInfo/GeneratorStateInfo expose the tagged-union slots'
// arm and inner value.
func (h *Heap) ResultInfo(hd value.Handle) (ok bool, val value.Value, err error) {
	g, err := h.RefResult(hd)
	if err != nil {
		return false, value.Value{}, err
	}
	defer g.Release()
	p := g.Get()
	return p.ok, p.val, nil
}

func (h *Heap) OptionInfo(hd value.Handle) (some bool, val value.Value, err error) {
	g, err := h.RefOption(hd)
	if err != nil {
		return false, value.Value{}, err
	}
	defer g.Release()
	p := g.Get()
	return p.some, p.val, nil
}

func (h *Heap) GeneratorStateInfo(hd value.Handle) (state GenStateKind, val value.Value, err error) {
	g, err := h.RefGeneratorState(hd)
	if err != nil {
		return 0, value.Value{}, err
	}
	defer g.Release()
	p := g.Get()
	return p.state, p.val, nil
}

// FnPtrInfo is the read-only view of an FnPtr slot's payload the interpreter
// needs to dispatch CallFn (§3.3 "FnPtr", §4.6 "CallFn").
type FnPtrInfo struct {
	Kind     FnPtrKind
	Fn       ident.Hash
	Captured value.Value
	CtorType ident.Hash
	CtorEnum ident.Hash
	Arity    int
}

func (h *Heap) FnPtrInfo(hd value.Handle) (FnPtrInfo, error) {
	g, err := h.RefFnPtr(hd)
	if err != nil {
		return FnPtrInfo{}, err
	}
	defer g.Release()
	p := g.Get()
	return FnPtrInfo{
		Kind: p.kind, Fn: p.fn, Captured: p.captured,
		CtorType: p.ctorType, CtorEnum: p.ctorEnum, Arity: p.arity,
	}, nil
}
