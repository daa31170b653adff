// Package world holds the room store and the geometry shared by every phase
// of the layout simulation.
package world

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/samdwyer/roomsep/internal/vmath"
)

// RoomID is a stable handle for a room. IDs are dense, starting at 0.
type RoomID int

// Room is an axis-aligned rectangle with kinematic state.
type Room struct {
	ID           RoomID
	Position     vmath.Vec2 // Center of the rectangle
	Velocity     vmath.Vec2
	Acceleration vmath.Vec2
	Size         vmath.Vec2     // Width and height, fixed after spawn
	Color        colorful.Color // Presentation only
}

// Snapshot is the read-only view of a room handed to collaborators.
type Snapshot struct {
	ID       RoomID     `json:"id" yaml:"id"`
	Position vmath.Vec2 `json:"position" yaml:"position"`
	Size     vmath.Vec2 `json:"size" yaml:"size"`
}

// Min returns the lower-left corner of the room.
func (s Snapshot) Min() vmath.Vec2 {
	return s.Position.Sub(s.Size.Scale(0.5))
}

// Max returns the upper-right corner of the room.
func (s Snapshot) Max() vmath.Vec2 {
	return s.Position.Add(s.Size.Scale(0.5))
}

// Intersects returns true if this room overlaps with another room.
// Rooms that only share an edge do not intersect.
func (s Snapshot) Intersects(other Snapshot) bool {
	return Overlaps(s.Position, s.Size, other.Position, other.Size)
}

// Overlap computes the per-axis overlap extents of two AABBs given by center
// and size. ok is true only when both extents are strictly positive.
func Overlap(posA, sizeA, posB, sizeB vmath.Vec2) (overlapX, overlapY float32, ok bool) {
	halfA := sizeA.Scale(0.5)
	halfB := sizeB.Scale(0.5)
	delta := posB.Sub(posA).Abs()

	overlapX = (halfA.X + halfB.X) - delta.X
	overlapY = (halfA.Y + halfB.Y) - delta.Y
	return overlapX, overlapY, overlapX > 0 && overlapY > 0
}

// Overlaps reports whether two AABBs overlap.
func Overlaps(posA, sizeA, posB, sizeB vmath.Vec2) bool {
	_, _, ok := Overlap(posA, sizeA, posB, sizeB)
	return ok
}

// Penetration returns the overlap along the axis of least intrusion, and
// whether the boxes overlap at all.
func Penetration(posA, sizeA, posB, sizeB vmath.Vec2) (float32, bool) {
	ox, oy, ok := Overlap(posA, sizeA, posB, sizeB)
	if !ok {
		return 0, false
	}
	return min(ox, oy), true
}
