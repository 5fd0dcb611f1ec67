package heap

// RawGuard is the type-erased interface a parked borrow guard satisfies.
// §4.4 describes a "raw guard" mechanism letting a borrow outlive its
// lexical scope when the VM hands a slot to a native handler; the VM parks
// a RawGuard in a per-call arm list and disarms (releases) every parked
// guard at the next handler boundary (§4.7, §5 "Shared-resource policy").
type RawGuard interface {
	// Release returns the borrow to the free state. Calling Release twice
	// is a no-op, matching "idempotent reap" discipline elsewhere in the
	// heap (§8 property 4).
	Release()
}

// SharedGuard is a scoped, read-only borrow on a slot (§4.4 ref_<kind>).
type SharedGuard[T any] struct {
	slab       *slab[T]
	index      uint32
	generation uint32
	released   bool
}

func newSharedGuard[T any](s *slab[T], index, generation uint32) *SharedGuard[T] {
	return &SharedGuard[T]{slab: s, index: index, generation: generation}
}

// Get returns a pointer to the borrowed payload. Callers must treat it as
// read-only; the borrow-tracking counter (not the Go type system) is what
// the spec relies on to keep shared and exclusive access from coexisting.
func (g *SharedGuard[T]) Get() *T {
	return g.slab.get(g.index)
}

func (g *SharedGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	if e, err := g.slab.lookup(g.index, g.generation); err == nil {
		g.slab.releaseShared(e)
	}
}

// ExclusiveGuard is a scoped, mutable borrow on a slot (§4.4 mut_<kind>).
type ExclusiveGuard[T any] struct {
	slab       *slab[T]
	index      uint32
	generation uint32
	released   bool
}

func newExclusiveGuard[T any](s *slab[T], index, generation uint32) *ExclusiveGuard[T] {
	return &ExclusiveGuard[T]{slab: s, index: index, generation: generation}
}

func (g *ExclusiveGuard[T]) Get() *T {
	return g.slab.get(g.index)
}

func (g *ExclusiveGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	if e, err := g.slab.lookup(g.index, g.generation); err == nil {
		g.slab.releaseExclusive(e)
	}
}
