package sim

import "github.com/samdwyer/roomsep/internal/world"

// IntegrateVelocity applies v += a*dt followed by linear drag
// v *= max(1 - drag*dt, 0). A large drag stops a room outright rather than
// reversing it.
func IntegrateVelocity(sc *Context, store *world.Store, dt float32) {
	dragFactor := max(1-sc.Config.Drag*dt, 0)
	rooms := store.All()
	for i := range rooms {
		r := &rooms[i]
		r.Velocity = r.Velocity.Add(r.Acceleration.Scale(dt)).Scale(dragFactor)
	}
}

// IntegratePosition applies p += v*dt. Velocities for every room must be
// final before this runs.
func IntegratePosition(store *world.Store, dt float32) {
	rooms := store.All()
	for i := range rooms {
		r := &rooms[i]
		r.Position = r.Position.Add(r.Velocity.Scale(dt))
	}
}
