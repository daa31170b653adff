package world

import (
	"fmt"

	"github.com/samdwyer/roomsep/internal/vmath"
)

// Store is the fixed set of rooms being laid out. Rooms are addressed by
// RoomID, which is also their index; the set never grows or shrinks after
// construction.
type Store struct {
	rooms []Room
}

// NewStore takes ownership of rooms and assigns their IDs.
// A room with a negative size component is a programming error and panics.
func NewStore(rooms []Room) *Store {
	for i := range rooms {
		if rooms[i].Size.X < 0 || rooms[i].Size.Y < 0 {
			panic(fmt.Sprintf("world: room %d has negative size %v", i, rooms[i].Size))
		}
		rooms[i].ID = RoomID(i)
	}
	return &Store{rooms: rooms}
}

// Len returns the number of rooms.
func (s *Store) Len() int {
	return len(s.rooms)
}

// All returns the rooms for in-place mutation by the simulation.
// Callers must not append to or reslice the result.
func (s *Store) All() []Room {
	return s.rooms
}

// Get returns the room with the given ID, or nil if it does not exist.
func (s *Store) Get(id RoomID) *Room {
	if id < 0 || int(id) >= len(s.rooms) {
		return nil
	}
	return &s.rooms[id]
}

// Snapshot copies the ID, position and size of every room.
func (s *Store) Snapshot() []Snapshot {
	out := make([]Snapshot, len(s.rooms))
	s.SnapshotInto(out)
	return out
}

// SnapshotInto fills dst with the current room state, reusing its storage.
// dst must have length Len().
func (s *Store) SnapshotInto(dst []Snapshot) {
	for i := range s.rooms {
		dst[i] = Snapshot{
			ID:       s.rooms[i].ID,
			Position: s.rooms[i].Position,
			Size:     s.rooms[i].Size,
		}
	}
}

// AnyOverlap reports whether any two rooms in the snapshot overlap.
func AnyOverlap(snaps []Snapshot) bool {
	for i := range snaps {
		for j := i + 1; j < len(snaps); j++ {
			if snaps[i].Intersects(snaps[j]) {
				return true
			}
		}
	}
	return false
}

// CountOverlaps returns the number of overlapping pairs in the snapshot.
func CountOverlaps(snaps []Snapshot) int {
	n := 0
	for i := range snaps {
		for j := i + 1; j < len(snaps); j++ {
			if snaps[i].Intersects(snaps[j]) {
				n++
			}
		}
	}
	return n
}

// Bounds returns the corners of the smallest rectangle enclosing every room.
// ok is false for an empty slice.
func Bounds(snaps []Snapshot) (lo, hi vmath.Vec2, ok bool) {
	if len(snaps) == 0 {
		return lo, hi, false
	}
	for i, s := range snaps {
		rlo, rhi := s.Min(), s.Max()
		if i == 0 {
			lo, hi = rlo, rhi
			continue
		}
		lo.X, lo.Y = min(lo.X, rlo.X), min(lo.Y, rlo.Y)
		hi.X, hi.Y = max(hi.X, rhi.X), max(hi.Y, rhi.Y)
	}
	return lo, hi, true
}
