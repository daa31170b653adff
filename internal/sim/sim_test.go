package sim

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/samdwyer/roomsep/internal/vmath"
	"github.com/samdwyer/roomsep/internal/world"
)

const eps = 1e-4

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < eps
}

func nearVec(a, b vmath.Vec2) bool {
	return near(a.X, b.X) && near(a.Y, b.Y)
}

func square(x, y, side float32) world.Room {
	return world.Room{Position: vmath.V(x, y), Size: vmath.V(side, side)}
}

func newContext(t *testing.T, cfg SeparationConfig) *Context {
	t.Helper()
	sc, err := NewContext(cfg, DefaultDT)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return sc
}

func TestSeparationConfigValidate(t *testing.T) {
	nan, inf := float32(math.NaN()), float32(math.Inf(1))

	if err := DefaultSeparationConfig().Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	tests := []struct {
		name string
		cfg  SeparationConfig
	}{
		{"negative stiffness", SeparationConfig{Stiffness: -1, MaxForce: 1, Drag: 1}},
		{"negative max force", SeparationConfig{Stiffness: 1, MaxForce: -1, Drag: 1}},
		{"negative drag", SeparationConfig{Stiffness: 1, MaxForce: 1, Drag: -0.1}},
		{"NaN stiffness", SeparationConfig{Stiffness: nan, MaxForce: 1, Drag: 1}},
		{"NaN max force", SeparationConfig{Stiffness: 1, MaxForce: nan, Drag: 1}},
		{"NaN drag", SeparationConfig{Stiffness: 1, MaxForce: 1, Drag: nan}},
		{"infinite stiffness", SeparationConfig{Stiffness: inf, MaxForce: 1, Drag: 1}},
		{"infinite max force", SeparationConfig{Stiffness: 1, MaxForce: inf, Drag: 1}},
		{"infinite drag", SeparationConfig{Stiffness: 1, MaxForce: 1, Drag: inf}},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: got %v, want ErrInvalidConfig", tt.name, err)
		}
	}

	for _, dt := range []float32{0, -DefaultDT, nan, inf} {
		if _, err := NewContext(DefaultSeparationConfig(), dt); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("timestep %g: got %v, want ErrInvalidConfig", dt, err)
		}
	}
	if _, err := NewDriver(world.NewStore(nil), SeparationConfig{Drag: -1}, DefaultDT); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewDriver: got %v, want ErrInvalidConfig", err)
	}
}

func TestSeparateStopsNonOverlappingRooms(t *testing.T) {
	store := world.NewStore([]world.Room{
		square(0, 0, 10),
		square(50, 0, 10),
		square(5, 0, 0), // zero-size, nothing around it
	})
	for i := range store.All() {
		store.All()[i].Velocity = vmath.V(120, -80)
		store.All()[i].Acceleration = vmath.V(9, 9)
	}
	store.All()[2].Position = vmath.V(-100, -100)

	pairs := Separate(newContext(t, DefaultSeparationConfig()), store)
	if pairs != 0 {
		t.Errorf("pairs = %d, want 0", pairs)
	}
	for _, r := range store.All() {
		if !r.Velocity.IsZero() || !r.Acceleration.IsZero() {
			t.Errorf("room %d not at rest: v=%v a=%v", r.ID, r.Velocity, r.Acceleration)
		}
	}
}

func TestSeparateEdgeTouchIsNotOverlap(t *testing.T) {
	store := world.NewStore([]world.Room{square(5, 0, 10), square(15, 0, 10)})
	store.All()[0].Velocity = vmath.V(3, 3)

	if pairs := Separate(newContext(t, DefaultSeparationConfig()), store); pairs != 0 {
		t.Fatalf("pairs = %d, want 0", pairs)
	}
	for _, r := range store.All() {
		if !r.Velocity.IsZero() || !r.Acceleration.IsZero() {
			t.Errorf("room %d not at rest", r.ID)
		}
	}
}

func TestSeparateDegenerateCentroid(t *testing.T) {
	store := world.NewStore([]world.Room{square(0, 0, 10), square(0, 0, 10)})

	pairs := Separate(newContext(t, DefaultSeparationConfig()), store)
	if pairs != 1 {
		t.Fatalf("pairs = %d, want 1", pairs)
	}
	for _, r := range store.All() {
		if !r.Acceleration.IsZero() {
			t.Errorf("room %d acceleration %v, want zero", r.ID, r.Acceleration)
		}
	}
}

func TestSeparatePushesAwayFromCentroid(t *testing.T) {
	store := world.NewStore([]world.Room{square(0, 0, 10), square(5, 0, 10)})

	Separate(newContext(t, DefaultSeparationConfig()), store)

	a, b := store.Get(0), store.Get(1)
	if !nearVec(a.Acceleration, vmath.V(-500, 0)) {
		t.Errorf("room 0 acceleration %v, want (-500, 0)", a.Acceleration)
	}
	if !nearVec(b.Acceleration, vmath.V(500, 0)) {
		t.Errorf("room 1 acceleration %v, want (500, 0)", b.Acceleration)
	}
}

func TestSeparateUsesMeanPenetration(t *testing.T) {
	// Room 0 overlaps room 1 by 5 on x and room 2 by 2 on y. The centroid of
	// its neighbors is (2.5, 4), so it is pushed down and to the left with
	// magnitude stiffness * (5+2)/2.
	store := world.NewStore([]world.Room{
		square(0, 0, 10),
		square(5, 0, 10),
		square(0, 8, 10),
	})
	cfg := SeparationConfig{Stiffness: 10, MaxForce: 1000, Drag: 0}

	pairs := Separate(newContext(t, cfg), store)
	if pairs != 3 {
		// Rooms 1 and 2 also overlap: ox = 5, oy = 2.
		t.Fatalf("pairs = %d, want 3", pairs)
	}

	got := store.Get(0).Acceleration
	want := vmath.V(-2.5, -4).NormalizeOrZero().Scale(10 * 3.5)
	if !nearVec(got, want) {
		t.Errorf("room 0 acceleration %v, want %v", got, want)
	}
}

func TestSeparateKeepsVelocityOfOverlappingRooms(t *testing.T) {
	store := world.NewStore([]world.Room{square(0, 0, 10), square(5, 0, 10)})
	store.All()[0].Velocity = vmath.V(1, 2)

	Separate(newContext(t, DefaultSeparationConfig()), store)
	if store.Get(0).Velocity != vmath.V(1, 2) {
		t.Errorf("velocity of an overlapping room changed to %v", store.Get(0).Velocity)
	}
}

func TestClampSteeringBound(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	rooms := make([]world.Room, 100)
	for i := range rooms {
		rooms[i].Acceleration = vmath.V(rng.Float32()*2000-1000, rng.Float32()*2000-1000)
	}
	rooms[0].Acceleration = vmath.V(3, 4)
	store := world.NewStore(rooms)

	cfg := DefaultSeparationConfig()
	original := make([]vmath.Vec2, len(rooms))
	for i, r := range store.All() {
		original[i] = r.Acceleration
	}

	ClampSteering(newContext(t, cfg), store)

	for i, r := range store.All() {
		if l := r.Acceleration.Length(); l > cfg.MaxForce*(1+1e-5) {
			t.Errorf("room %d |a| = %v exceeds %v", i, l, cfg.MaxForce)
		}
		if !nearVec(r.Acceleration.NormalizeOrZero(), original[i].NormalizeOrZero()) {
			t.Errorf("room %d direction changed: %v -> %v", i, original[i], r.Acceleration)
		}
	}
	if store.Get(0).Acceleration != vmath.V(3, 4) {
		t.Errorf("small acceleration should be untouched, got %v", store.Get(0).Acceleration)
	}
}

func TestIntegrateVelocityDragFloor(t *testing.T) {
	tests := []struct {
		name string
		drag float32
		dt   float32
	}{
		{"exactly one", 2, 0.5},
		{"well above one", 10, 1},
		{"huge", 1e6, DefaultDT},
	}

	for _, tt := range tests {
		store := world.NewStore([]world.Room{{
			Velocity:     vmath.V(40, -25),
			Acceleration: vmath.V(300, 0),
		}})
		sc := newContext(t, SeparationConfig{Stiffness: 1, MaxForce: 1, Drag: tt.drag})

		IntegrateVelocity(sc, store, tt.dt)
		if v := store.Get(0).Velocity; v != vmath.Zero {
			t.Errorf("%s: velocity %v, want exactly zero", tt.name, v)
		}
	}
}

func TestIntegrateVelocityAndPosition(t *testing.T) {
	store := world.NewStore([]world.Room{{
		Position:     vmath.V(1, 1),
		Velocity:     vmath.V(10, 0),
		Acceleration: vmath.V(0, 60),
	}})
	sc := newContext(t, SeparationConfig{Drag: 6})

	IntegrateVelocity(sc, store, 0.1)
	// v = ((10, 0) + (0, 6)) * (1 - 0.6)
	if v := store.Get(0).Velocity; !nearVec(v, vmath.V(4, 2.4)) {
		t.Errorf("velocity %v, want (4, 2.4)", v)
	}

	IntegratePosition(store, 0.5)
	if p := store.Get(0).Position; !nearVec(p, vmath.V(3, 2.2)) {
		t.Errorf("position %v, want (3, 2.2)", p)
	}
}

func TestSettlementLatch(t *testing.T) {
	var s Settlement

	if s.Check(world.NewStore(nil)) {
		t.Error("empty store must not settle")
	}
	if s.Reported() {
		t.Error("latch fired on empty store")
	}

	overlapping := world.NewStore([]world.Room{square(0, 0, 10), square(1, 0, 10)})
	if s.Check(overlapping) {
		t.Error("overlapping rooms must not settle")
	}

	apart := world.NewStore([]world.Room{square(0, 0, 10), square(10, 0, 10)})
	if !s.Check(apart) {
		t.Fatal("separated rooms should settle")
	}
	if !s.Reported() {
		t.Fatal("latch should be set")
	}

	for i := 0; i < 100; i++ {
		if s.Check(apart) || s.Check(overlapping) {
			t.Fatalf("settlement re-emitted on call %d", i)
		}
	}
	if !s.Reported() {
		t.Error("latch must never reset")
	}
}

func TestSettlementIgnoresVelocity(t *testing.T) {
	store := world.NewStore([]world.Room{square(0, 0, 2), square(10, 0, 2)})
	store.All()[0].Velocity = vmath.V(500, 0)

	var s Settlement
	if !s.Check(store) {
		t.Error("settlement is geometric; moving rooms with no overlap settle")
	}
}

func newDriver(t *testing.T, rooms []world.Room, cfg SeparationConfig, opts ...Option) *Driver {
	t.Helper()
	d, err := NewDriver(world.NewStore(rooms), cfg, DefaultDT, opts...)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	return d
}

func TestScenarioIdenticalCentersNeverSettle(t *testing.T) {
	settled := 0
	d := newDriver(t, []world.Room{square(0, 0, 10), square(0, 0, 10)}, DefaultSeparationConfig(),
		WithSettledHook(func(SettledEvent) { settled++ }))

	for i := 0; i < 500; i++ {
		stats := d.Step()
		if stats.OverlappingPairs != 1 {
			t.Fatalf("tick %d: pairs = %d, want 1", stats.Tick, stats.OverlappingPairs)
		}
	}
	for _, r := range d.Store().All() {
		if r.Position != vmath.Zero || !r.Acceleration.IsZero() {
			t.Errorf("room %d moved: p=%v a=%v", r.ID, r.Position, r.Acceleration)
		}
	}
	if d.Settled() || settled != 0 {
		t.Error("coincident rooms must never settle")
	}

	res, err := d.Run(context.Background(), 100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Settled || res.Ticks != 100 {
		t.Errorf("Run = %+v, want 100 ticks unsettled", res)
	}
}

func TestScenarioTouchingRoomsSettleImmediately(t *testing.T) {
	var events []SettledEvent
	d := newDriver(t, []world.Room{square(5, 0, 10), square(15, 0, 10)}, DefaultSeparationConfig(),
		WithSettledHook(func(ev SettledEvent) { events = append(events, ev) }))
	d.Store().All()[1].Velocity = vmath.V(-50, 0)

	stats := d.Step()
	if !stats.JustSettled || stats.Tick != 1 {
		t.Fatalf("first step = %+v, want settled on tick 1", stats)
	}
	for _, r := range d.Store().All() {
		if !r.Velocity.IsZero() || !r.Acceleration.IsZero() {
			t.Errorf("room %d not at rest", r.ID)
		}
	}
	if d.Snapshot()[1].Position != vmath.V(15, 0) {
		t.Errorf("room 1 moved to %v", d.Snapshot()[1].Position)
	}

	for i := 0; i < 10; i++ {
		if d.Step().JustSettled {
			t.Fatal("settlement reported twice")
		}
	}
	if len(events) != 1 || events[0].Tick != 1 || events[0].Rooms != 2 {
		t.Errorf("events = %+v, want one event on tick 1", events)
	}
}

func TestScenarioHalfOverlapSingleStep(t *testing.T) {
	cfg := SeparationConfig{Stiffness: 100, MaxForce: 300, Drag: 0}
	d := newDriver(t, []world.Room{square(0, 0, 10), square(5, 0, 10)}, cfg)

	stats := d.Step()
	if stats.OverlappingPairs != 1 || stats.JustSettled {
		t.Fatalf("stats = %+v", stats)
	}

	b := d.Store().Get(1)
	if !nearVec(b.Acceleration, vmath.V(300, 0)) {
		t.Errorf("acceleration %v, want clamped (300, 0)", b.Acceleration)
	}
	if !nearVec(b.Velocity, vmath.V(5, 0)) {
		t.Errorf("velocity %v, want (5, 0)", b.Velocity)
	}
	if !nearVec(b.Position, vmath.V(5+5.0/60, 0)) {
		t.Errorf("position %v, want (%v, 0)", b.Position, 5+5.0/60)
	}

	a := d.Store().Get(0)
	if !nearVec(a.Position, vmath.V(-5.0/60, 0)) {
		t.Errorf("room 0 position %v, want (%v, 0)", a.Position, -5.0/60)
	}
}

func TestRunSettlesRow(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	d := newDriver(t, []world.Room{
		square(0, 0, 10),
		square(4, 0, 10),
		square(8, 0, 10),
	}, DefaultSeparationConfig(), WithLogger(logger))

	res, err := d.Run(context.Background(), 2000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Settled {
		t.Fatalf("row did not settle in %d ticks", res.Ticks)
	}
	if world.AnyOverlap(d.Snapshot()) {
		t.Error("settled layout still overlaps")
	}
	if !strings.Contains(buf.String(), "all rooms settled") {
		t.Errorf("settlement not logged, got %q", buf.String())
	}
	for _, key := range []string{"tick=", "rooms=3", "elapsed="} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("settlement log missing %q: %q", key, buf.String())
		}
	}

	// A settled driver does no more work.
	again, err := d.Run(context.Background(), 50)
	if err != nil || again.Ticks != 0 || !again.Settled {
		t.Errorf("second Run = %+v, %v", again, err)
	}
}

func TestRunEveryCallsBack(t *testing.T) {
	d := newDriver(t, []world.Room{square(0, 0, 10), square(0, 0, 10)}, DefaultSeparationConfig())

	var ticks []uint64
	res, err := d.RunEvery(context.Background(), 35, 10, func(tick uint64) error {
		ticks = append(ticks, tick)
		return nil
	})
	if err != nil {
		t.Fatalf("RunEvery: %v", err)
	}
	if res.Ticks != 35 || res.Settled {
		t.Errorf("RunEvery = %+v, want 35 ticks unsettled", res)
	}
	want := []uint64{10, 20, 30}
	if len(ticks) != len(want) {
		t.Fatalf("callback ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("callback ticks = %v, want %v", ticks, want)
			break
		}
	}
}

func TestRunEveryStopsOnCallbackError(t *testing.T) {
	d := newDriver(t, []world.Room{square(0, 0, 10), square(0, 0, 10)}, DefaultSeparationConfig())
	boom := errors.New("write failed")

	res, err := d.RunEvery(context.Background(), 0, 5, func(tick uint64) error {
		if tick == 15 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the callback error", err)
	}
	if res.Ticks != 15 {
		t.Errorf("ran %d ticks, want 15", res.Ticks)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	d := newDriver(t, []world.Room{square(0, 0, 10), square(0, 0, 10)}, DefaultSeparationConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Run(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if res.Ticks != 0 {
		t.Errorf("ran %d ticks after cancellation", res.Ticks)
	}
}

func TestRunRandomLayoutIsConsistent(t *testing.T) {
	store, err := world.Spawn(context.Background(), rand.New(rand.NewSource(42)), world.SpawnParams{
		Count: 25, MinSide: 3, MaxSide: 8, Radius: 15,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	d, err := NewDriver(store, DefaultSeparationConfig(), DefaultDT)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	res, err := d.Run(context.Background(), 5000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Ticks > 5000 {
		t.Errorf("ran %d ticks past the cap", res.Ticks)
	}
	if res.Settled == world.AnyOverlap(d.Snapshot()) {
		t.Errorf("settled=%v disagrees with the final geometry", res.Settled)
	}
	for _, r := range d.Store().All() {
		if r.Size.X < 3 || r.Size.X > 8 {
			t.Errorf("room %d size changed to %v", r.ID, r.Size)
		}
	}
}
