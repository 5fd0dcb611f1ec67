package heap

import (
	"bytes"

	"github.com/emberscript/embervm/value"
)

// Equal implements the structural equality algorithm of §4.6 ("Eq"
// protocol / IS_EQ semantics): immediates compare by value, StaticString
// compares by resolved text (hence the statics slice - looked up from the
// executing Unit, not stored in the heap), and handle kinds compare
// recursively by contents. Two handles with the same (kind, index,
// generation) are equal without reading the payload. Handles to the same
// freed-then-reused index with different generations do not take that
// shortcut: they go through the payload read, which rejects the stale one.
func (h *Heap) Equal(a, b value.Value, statics []string) (bool, error) {
	if a.Kind != b.Kind {
		return numericCrossEqual(a, b), nil
	}

	switch a.Kind {
	case value.KUnit:
		return true, nil
	case value.KBool, value.KByte, value.KChar, value.KInteger:
		return a.I == b.I, nil
	case value.KFloat:
		return a.F == b.F, nil
	case value.KType:
		return a.Hash == b.Hash, nil
	case value.KStaticString:
		return resolveStatic(statics, a.Static) == resolveStatic(statics, b.Static), nil
	}

	if a.H.Kind == b.H.Kind && a.H.Index == b.H.Index && a.H.Generation == b.H.Generation {
		return true, nil
	}

	switch a.Kind {
	case value.KString:
		ga, err := h.RefString(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefString(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		return ga.Get().data == gb.Get().data, nil

	case value.KBytes:
		ga, err := h.RefBytes(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefBytes(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		return bytes.Equal(ga.Get().data, gb.Get().data), nil

	case value.KArray:
		ga, err := h.RefArray(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefArray(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		return h.equalSlices(ga.Get().elems, gb.Get().elems, statics)

	case value.KTuple:
		ga, err := h.RefTuple(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefTuple(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		return h.equalSlices(ga.Get().elems, gb.Get().elems, statics)

	case value.KTypedTuple:
		ga, err := h.RefTypedTuple(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefTypedTuple(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		if ga.Get().typ != gb.Get().typ {
			return false, nil
		}
		return h.equalSlices(ga.Get().elems, gb.Get().elems, statics)

	case value.KVariantTuple:
		ga, err := h.RefVariantTuple(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefVariantTuple(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		if ga.Get().enum != gb.Get().enum || ga.Get().typ != gb.Get().typ {
			return false, nil
		}
		return h.equalSlices(ga.Get().elems, gb.Get().elems, statics)

	case value.KObject:
		ga, err := h.RefObject(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefObject(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		return h.equalFields(&ga.Get().fields, &gb.Get().fields, statics)

	case value.KTypedObject:
		ga, err := h.RefTypedObject(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefTypedObject(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		if ga.Get().typ != gb.Get().typ {
			return false, nil
		}
		return h.equalFields(&ga.Get().fields, &gb.Get().fields, statics)

	case value.KVariantObject:
		ga, err := h.RefVariantObject(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefVariantObject(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		if ga.Get().enum != gb.Get().enum || ga.Get().typ != gb.Get().typ {
			return false, nil
		}
		return h.equalFields(&ga.Get().fields, &gb.Get().fields, statics)

	case value.KResult:
		ga, err := h.RefResult(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefResult(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		if ga.Get().ok != gb.Get().ok {
			return false, nil
		}
		return h.Equal(ga.Get().val, gb.Get().val, statics)

	case value.KOption:
		ga, err := h.RefOption(a.H)
		if err != nil {
			return false, err
		}
		defer ga.Release()
		gb, err := h.RefOption(b.H)
		if err != nil {
			return false, err
		}
		defer gb.Release()
		if ga.Get().some != gb.Get().some {
			return false, nil
		}
		if !ga.Get().some {
			return true, nil
		}
		return h.Equal(ga.Get().val, gb.Get().val, statics)

	default:
		// Future, Generator, FnPtr, GeneratorState and External compare by
		// slot identity only (already ruled out above); they have no
		// structural contents meaningful to compare for equality.
		return false, nil
	}
}

func (h *Heap) equalSlices(a, b []value.Value, statics []string) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := h.Equal(a[i], b[i], statics)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func (h *Heap) equalFields(a, b *orderedFields, statics []string) (bool, error) {
	if a.len() != b.len() {
		return false, nil
	}
	for _, k := range a.keys {
		av, _ := a.get(k)
		bv, ok := b.get(k)
		if !ok {
			return false, nil
		}
		eq, err := h.Equal(av, bv, statics)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func resolveStatic(statics []string, idx uint32) string {
	if int(idx) >= len(statics) {
		return ""
	}
	return statics[idx]
}

// numericCrossEqual allows Integer/Float cross-kind comparison to be false
// rather than an error: §4.6 treats Eq as kind-strict except where the
// caller has already normalized operands, so a raw Kind mismatch here is
// simply "not equal", never a coercion.
func numericCrossEqual(a, b value.Value) bool {
	_ = a
	_ = b
	return false
}
