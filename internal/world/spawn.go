package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/roomsep/internal/telemetry"
	"github.com/samdwyer/roomsep/internal/vmath"
)

// ErrInvalidSpawn is returned when spawn parameters cannot produce a layout.
var ErrInvalidSpawn = errors.New("invalid spawn parameters")

// SpawnParams controls the one-shot room sampler.
type SpawnParams struct {
	Count   int     // Number of rooms, > 0
	MinSide float32 // Smallest side length, > 0
	MaxSide float32 // Largest side length, >= MinSide
	Radius  float32 // Radius of the spawn disk centered at the origin, > 0
	Seed    int64   // Seed the caller built rng from; recorded on the span only
}

// Validate checks the parameters and returns an error wrapping ErrInvalidSpawn.
// NaN and infinite lengths are rejected.
func (p SpawnParams) Validate() error {
	switch {
	case p.Count <= 0:
		return fmt.Errorf("%w: room count must be positive, got %d", ErrInvalidSpawn, p.Count)
	case !(p.MinSide > 0) || !vmath.IsFinite(p.MinSide):
		return fmt.Errorf("%w: min side must be positive and finite, got %g", ErrInvalidSpawn, p.MinSide)
	case !vmath.IsFinite(p.MaxSide):
		return fmt.Errorf("%w: max side must be finite, got %g", ErrInvalidSpawn, p.MaxSide)
	case p.MinSide > p.MaxSide:
		return fmt.Errorf("%w: min side %g exceeds max side %g", ErrInvalidSpawn, p.MinSide, p.MaxSide)
	case !(p.Radius > 0) || !vmath.IsFinite(p.Radius):
		return fmt.Errorf("%w: spawn radius must be positive and finite, got %g", ErrInvalidSpawn, p.Radius)
	}
	return nil
}

// Spawn places params.Count rooms uniformly over the spawn disk with random
// sizes and colors. All rooms start at rest.
func Spawn(ctx context.Context, rng *rand.Rand, params SpawnParams) (*Store, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	_, span := telemetry.Tracer("world").Start(ctx, "layout.spawn")
	defer span.End()

	startTime := time.Now()

	rooms := make([]Room, params.Count)
	for i := range rooms {
		size := vmath.V(
			uniform(rng, params.MinSide, params.MaxSide),
			uniform(rng, params.MinSide, params.MaxSide),
		)
		rooms[i] = Room{
			Position: SamplePointInDisk(rng, vmath.Zero, params.Radius),
			Size:     size,
			Color:    RandomColor(rng),
		}
	}
	store := NewStore(rooms)

	span.SetAttributes(
		attribute.Int("layout.room_count", params.Count),
		attribute.Int64("layout.seed", params.Seed),
		attribute.Float64("layout.min_side", float64(params.MinSide)),
		attribute.Float64("layout.max_side", float64(params.MaxSide)),
		attribute.Float64("layout.spawn_radius", float64(params.Radius)),
		attribute.Int("layout.overlapping_pairs_initial", CountOverlaps(store.Snapshot())),
		attribute.Int64("layout.spawn_us", time.Since(startTime).Microseconds()),
	)

	return store, nil
}

// SamplePointInDisk returns a point distributed uniformly over the area of
// the disk. The square root on the radius keeps the density uniform per unit
// area rather than per unit radius.
func SamplePointInDisk(rng *rand.Rand, center vmath.Vec2, radius float32) vmath.Vec2 {
	angle := rng.Float32() * 2 * math.Pi
	distance := radius * vmath.Sqrt(rng.Float32())
	return center.Add(vmath.FromAngle(angle).Scale(distance))
}

// RandomColor returns a bright color with random OKLab chroma, clamped into
// the sRGB gamut.
func RandomColor(rng *rand.Rand) colorful.Color {
	redGreen := rng.Float64()*2 - 1
	blueYellow := rng.Float64()*2 - 1
	return colorful.OkLab(1.0, redGreen, blueYellow).Clamped()
}

// uniform draws from [lo, hi].
func uniform(rng *rand.Rand, lo, hi float32) float32 {
	if hi == lo {
		return lo
	}
	return lo + rng.Float32()*(hi-lo)
}
