package heap

import (
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
)

// The four slot kinds whose runtime type isn't implied by their Kind alone
// (§3.3 TypedTuple/TypedObject/VariantTuple/VariantObject carry a type Hash
// in their payload; External carries a type name). vm.typeOf uses these to
// complete the mapping that ident's well-known constants handle for every
// other Kind.

func (h *Heap) TypedTupleType(hd value.Handle) (ident.Hash, error) {
	e, err := h.typedTuples.lookup(hd.Index, hd.Generation)
	if err != nil {
		return ident.Hash(0), err
	}
	return e.payload.typ, nil
}

func (h *Heap) TypedObjectType(hd value.Handle) (ident.Hash, error) {
	e, err := h.typedObjects.lookup(hd.Index, hd.Generation)
	if err != nil {
		return ident.Hash(0), err
	}
	return e.payload.typ, nil
}

func (h *Heap) VariantTupleType(hd value.Handle) (enum, typ ident.Hash, err error) {
	e, err := h.variantTuples.lookup(hd.Index, hd.Generation)
	if err != nil {
		return ident.Hash(0), ident.Hash(0), err
	}
	return e.payload.enum, e.payload.typ, nil
}

func (h *Heap) VariantObjectType(hd value.Handle) (enum, typ ident.Hash, err error) {
	e, err := h.variantObjects.lookup(hd.Index, hd.Generation)
	if err != nil {
		return ident.Hash(0), ident.Hash(0), err
	}
	return e.payload.enum, e.payload.typ, nil
}

func (h *Heap) ExternalTypeName(hd value.Handle) (string, error) {
	e, err := h.externals.lookup(hd.Index, hd.Generation)
	if err != nil {
		return "", err
	}
	return e.payload.typeName, nil
}
