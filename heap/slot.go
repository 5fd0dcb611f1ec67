package heap

import (
	"github.com/emberscript/embervm/vmerr"
)

// accessFree / accessExclusive encode the access counter described in
// §3.2: zero means free, a positive count means that many live shared
// borrows, and the sentinel accessExclusive means one live exclusive
// borrow. Shared borrows increment from whatever the counter already is;
// an exclusive borrow is only grantable from accessFree.
const (
	accessFree      = 0
	accessExclusive = -1
)

// entry is one heap slot: a generation-tagged, access-tracked, reference
// counted payload (§3.2).
type entry[T any] struct {
	generation uint32
	refcount   int32
	access     int32
	alive      bool
	payload    T
}

// slab is a generation-tagged, free-list-backed arena for one heap slot
// kind. Using one slab per kind (rather than a single arena of boxed
// interface{} slots) keeps allocation monomorphic and avoids a type switch
// on every access - the Kind is already known from the Value/Handle, so the
// caller picks the right slab directly.
type slab[T any] struct {
	entries []entry[T]
	free    []uint32
}

func (s *slab[T]) allocate(payload T) (index uint32, generation uint32) {
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
		e := &s.entries[index]
		e.generation++
		e.refcount = 1
		e.access = accessFree
		e.alive = true
		e.payload = payload
		return index, e.generation
	}
	index = uint32(len(s.entries))
	s.entries = append(s.entries, entry[T]{generation: 1, refcount: 1, access: accessFree, alive: true, payload: payload})
	return index, 1
}

// lookup validates a (index, generation) pair against invariant 4 (§3.4):
// a handle whose generation doesn't match the slot's current generation is
// stale and fails SlotMissing rather than aliasing a newer allocation.
func (s *slab[T]) lookup(index uint32, generation uint32) (*entry[T], error) {
	if int(index) >= len(s.entries) {
		return nil, vmerr.New(vmerr.SlotMissing, "index %d out of range", index)
	}
	e := &s.entries[index]
	if !e.alive || e.generation != generation {
		return nil, vmerr.New(vmerr.SlotMissing, "index %d generation %d (current %d, alive=%v)", index, generation, e.generation, e.alive)
	}
	return e, nil
}

func (s *slab[T]) acquireShared(e *entry[T]) error {
	if e.access == accessExclusive {
		return vmerr.New(vmerr.SlotInaccessibleExclusive, "shared borrow while exclusive is live")
	}
	e.access++
	return nil
}

func (s *slab[T]) releaseShared(e *entry[T]) {
	if e.access > 0 {
		e.access--
	}
}

func (s *slab[T]) acquireExclusive(e *entry[T]) error {
	if e.access != accessFree {
		return vmerr.New(vmerr.SlotInaccessibleShared, "exclusive borrow while %d shared (or exclusive) borrow(s) live", e.access)
	}
	e.access = accessExclusive
	return nil
}

func (s *slab[T]) releaseExclusive(e *entry[T]) {
	if e.access == accessExclusive {
		e.access = accessFree
	}
}

// incRef / decRef implement invariant 2 in §3.4: every push of a handle
// contributes one refcount, every pop releases one. decRef reports whether
// the slot reached zero and should be queued for reclamation.
func (s *slab[T]) incRef(index uint32, generation uint32) error {
	e, err := s.lookup(index, generation)
	if err != nil {
		return err
	}
	e.refcount++
	return nil
}

func (s *slab[T]) decRef(index uint32, generation uint32) (zero bool, err error) {
	e, err := s.lookup(index, generation)
	if err != nil {
		return false, err
	}
	e.refcount--
	return e.refcount <= 0, nil
}

// free recycles index for future allocation. The slot's generation is
// bumped on the next allocate() call that reuses this index, not here -
// that keeps "how many times has this index been reused" answerable purely
// from the entries slice without a separate tombstone pass.
func (s *slab[T]) free(index uint32) {
	if int(index) >= len(s.entries) {
		return
	}
	e := &s.entries[index]
	e.alive = false
	var zero T
	e.payload = zero
	s.free = append(s.free, index)
}

func (s *slab[T]) get(index uint32) *T {
	return &s.entries[index].payload
}
