package types

import "sync"

// interner deduplicates structurally equal types. Hashing is the
// equality discipline for the whole package, so the hash doubles as the
// intern key: the first type stored under a hash becomes the canonical
// representative and later constructions fetch it. Singletons and
// literal wrappers bypass the table since their construction is already
// canonical.
type interner struct {
	mu    sync.Mutex
	types map[uint64]Type
}

func newInterner() *interner {
	return &interner{types: make(map[uint64]Type, 256)}
}

func (in *interner) intern(t Type) Type {
	h := t.Hash()
	in.mu.Lock()
	defer in.mu.Unlock()
	if existing, ok := in.types[h]; ok {
		return existing
	}
	in.types[h] = t
	return t
}
