package sim

import (
	"github.com/samdwyer/roomsep/internal/vmath"
	"github.com/samdwyer/roomsep/internal/world"
)

// accumulator collects a room's overlapping neighbors during one pass.
type accumulator struct {
	neighborSum    vmath.Vec2 // Sum of neighbor positions
	count          int        // Number of overlapping neighbors
	penetrationSum float32
}

func (a *accumulator) add(neighbor vmath.Vec2, penetration float32) {
	a.neighborSum = a.neighborSum.Add(neighbor)
	a.count++
	a.penetrationSum += penetration
}

// Separate sets each room's acceleration to push it away from the centroid of
// the rooms it overlaps, scaled by the mean penetration depth. Rooms with no
// overlaps are stopped dead: acceleration and velocity both become zero.
// It returns the number of overlapping pairs seen.
func Separate(sc *Context, store *world.Store) int {
	rooms := store.All()
	for i := range rooms {
		rooms[i].Acceleration = vmath.Zero
	}

	// Overlap tests read from a snapshot so that no partially updated state
	// from this pass is observed.
	snaps := store.Snapshot()
	acc := make(map[world.RoomID]*accumulator)
	bucket := func(id world.RoomID) *accumulator {
		a, ok := acc[id]
		if !ok {
			a = &accumulator{}
			acc[id] = a
		}
		return a
	}

	pairs := 0
	for i := range snaps {
		a := snaps[i]
		for j := i + 1; j < len(snaps); j++ {
			b := snaps[j]
			penetration, ok := world.Penetration(a.Position, a.Size, b.Position, b.Size)
			if !ok {
				continue
			}
			pairs++
			bucket(a.ID).add(b.Position, penetration)
			bucket(b.ID).add(a.Position, penetration)
		}
	}

	for i := range rooms {
		r := &rooms[i]
		a, ok := acc[r.ID]
		if !ok {
			r.Acceleration = vmath.Zero
			r.Velocity = vmath.Zero
			continue
		}
		n := float32(a.count)
		centroid := a.neighborSum.Div(n)
		away := r.Position.Sub(centroid).NormalizeOrZero()
		r.Acceleration = away.Scale(sc.Config.Stiffness * (a.penetrationSum / n))
	}

	return pairs
}

// ClampSteering caps each room's acceleration magnitude at MaxForce,
// preserving direction.
func ClampSteering(sc *Context, store *world.Store) {
	maxForce := sc.Config.MaxForce
	rooms := store.All()
	for i := range rooms {
		magnitude := rooms[i].Acceleration.Length()
		if magnitude > maxForce {
			rooms[i].Acceleration = rooms[i].Acceleration.Scale(maxForce / magnitude)
		}
	}
}
