package sim

import "github.com/samdwyer/roomsep/internal/world"

// Settlement latches the first moment no two rooms overlap.
// The check is purely geometric; rooms may still be moving when it fires.
type Settlement struct {
	reported bool
}

// Check reports true exactly once: on the first call where the store is
// non-empty and has no overlapping pair. Every later call is a no-op
// returning false.
func (s *Settlement) Check(store *world.Store) bool {
	if s.reported {
		return false
	}
	if store.Len() == 0 {
		return false
	}
	if world.AnyOverlap(store.Snapshot()) {
		return false
	}
	s.reported = true
	return true
}

// Reported returns the latch state.
func (s *Settlement) Reported() bool {
	return s.reported
}
