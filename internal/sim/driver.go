package sim

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/roomsep/internal/telemetry"
	"github.com/samdwyer/roomsep/internal/world"
)

// SettledEvent describes the one-time settlement notification.
type SettledEvent struct {
	Tick    uint64        // Tick on which no overlap remained
	Rooms   int           // Number of rooms in the layout
	Elapsed time.Duration // Simulated time elapsed, Tick * dt
}

// StepStats summarizes one tick.
type StepStats struct {
	Tick             uint64
	OverlappingPairs int  // Pairs overlapping at the start of the tick
	JustSettled      bool // True only on the tick settlement fired
}

// Result summarizes a bounded run.
type Result struct {
	Ticks   uint64
	Settled bool
}

// Driver owns the room store and runs the per-tick pipeline:
// separate, clamp, integrate velocity, integrate position, check settlement.
type Driver struct {
	sc        *Context
	store     *world.Store
	tick      uint64
	logger    *log.Logger
	onSettled func(SettledEvent)
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger that receives the settlement notification.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithSettledHook registers fn to be called once when the layout settles.
func WithSettledHook(fn func(SettledEvent)) Option {
	return func(d *Driver) {
		d.onSettled = fn
	}
}

// NewDriver validates the force model and timestep and takes ownership of
// store.
func NewDriver(store *world.Store, cfg SeparationConfig, dt float32, opts ...Option) (*Driver, error) {
	sc, err := NewContext(cfg, dt)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		sc:     sc,
		store:  store,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Step advances the simulation by one fixed timestep.
func (d *Driver) Step() StepStats {
	dt := d.sc.DT

	pairs := Separate(d.sc, d.store)
	ClampSteering(d.sc, d.store)
	IntegrateVelocity(d.sc, d.store, dt)
	IntegratePosition(d.store, dt)
	d.tick++

	stats := StepStats{Tick: d.tick, OverlappingPairs: pairs}
	if d.sc.Settlement.Check(d.store) {
		stats.JustSettled = true
		d.notifySettled()
	}
	return stats
}

func (d *Driver) notifySettled() {
	ev := SettledEvent{
		Tick:    d.tick,
		Rooms:   d.store.Len(),
		Elapsed: time.Duration(float64(d.tick) * float64(d.sc.DT) * float64(time.Second)),
	}
	d.logger.Info("all rooms settled", "tick", ev.Tick, "rooms", ev.Rooms, "elapsed", ev.Elapsed)
	if d.onSettled != nil {
		d.onSettled(ev)
	}
}

// Run steps until the layout settles, maxTicks ticks have run (0 means no
// limit), or ctx is done. Cancellation is only observed between ticks.
func (d *Driver) Run(ctx context.Context, maxTicks uint64) (Result, error) {
	return d.RunEvery(ctx, maxTicks, 0, nil)
}

// RunEvery is Run with a progress callback: fn is called after every
// `every` ticks of this run, under the same layout.relax span. A zero every
// or a nil fn disables the callback. An error from fn stops the run and is
// returned.
func (d *Driver) RunEvery(ctx context.Context, maxTicks, every uint64, fn func(tick uint64) error) (Result, error) {
	ctx, span := telemetry.Tracer("sim").Start(ctx, "layout.relax")
	defer span.End()

	startTick := d.tick
	initial := world.CountOverlaps(d.store.Snapshot())
	var err error

	for !d.Settled() {
		if maxTicks > 0 && d.tick-startTick >= maxTicks {
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		stats := d.Step()
		if stats.JustSettled {
			span.AddEvent("layout.settled", trace.WithAttributes(
				attribute.Int64("layout.tick", int64(stats.Tick)),
			))
		}
		if every > 0 && fn != nil && (stats.Tick-startTick)%every == 0 {
			if err = fn(stats.Tick); err != nil {
				span.RecordError(err)
				break
			}
		}
	}

	res := Result{Ticks: d.tick - startTick, Settled: d.Settled()}
	span.SetAttributes(
		attribute.Int("layout.room_count", d.store.Len()),
		attribute.Int("layout.overlapping_pairs_initial", initial),
		attribute.Int64("layout.ticks", int64(res.Ticks)),
		attribute.Bool("layout.settled", res.Settled),
	)
	if !res.Settled {
		d.logger.Debug("relaxation stopped before settling", "ticks", res.Ticks, "overlaps", world.CountOverlaps(d.store.Snapshot()))
	}
	return res, err
}

// Tick returns the number of ticks run so far.
func (d *Driver) Tick() uint64 {
	return d.tick
}

// Settled reports whether the settlement latch has fired.
func (d *Driver) Settled() bool {
	return d.sc.Settlement.Reported()
}

// Store returns the room store. Callers must not mutate it while a Step is
// in progress.
func (d *Driver) Store() *world.Store {
	return d.store
}

// Snapshot returns the position and size of every room. Call it between
// ticks only.
func (d *Driver) Snapshot() []world.Snapshot {
	return d.store.Snapshot()
}
