// Package sim runs the fixed-timestep relaxation that pushes overlapping
// rooms apart until the layout settles.
package sim

import (
	"errors"
	"fmt"

	"github.com/samdwyer/roomsep/internal/vmath"
)

// ErrInvalidConfig is returned for force-model parameters the simulation
// cannot run with.
var ErrInvalidConfig = errors.New("invalid separation config")

// Default force-model parameters.
const (
	DefaultStiffness = 100
	DefaultMaxForce  = 300
	DefaultDrag      = 3.5 // Per second; gentle damping

	// DefaultDT is the fixed timestep, one 60 Hz tick.
	DefaultDT = float32(1.0 / 60.0)
)

// SeparationConfig holds the force-model parameters. It is read-only once the
// driver is built.
type SeparationConfig struct {
	Stiffness float32 // Scales penetration depth into acceleration
	MaxForce  float32 // Hard cap on acceleration magnitude
	Drag      float32 // Linear velocity damping per second
}

// DefaultSeparationConfig returns the stock force model.
func DefaultSeparationConfig() SeparationConfig {
	return SeparationConfig{
		Stiffness: DefaultStiffness,
		MaxForce:  DefaultMaxForce,
		Drag:      DefaultDrag,
	}
}

// Validate rejects negative, NaN and infinite parameters.
func (c SeparationConfig) Validate() error {
	switch {
	case !nonNegative(c.Stiffness):
		return fmt.Errorf("%w: stiffness must be finite and not negative, got %g", ErrInvalidConfig, c.Stiffness)
	case !nonNegative(c.MaxForce):
		return fmt.Errorf("%w: max force must be finite and not negative, got %g", ErrInvalidConfig, c.MaxForce)
	case !nonNegative(c.Drag):
		return fmt.Errorf("%w: drag must be finite and not negative, got %g", ErrInvalidConfig, c.Drag)
	}
	return nil
}

func nonNegative(x float32) bool {
	return x >= 0 && vmath.IsFinite(x)
}

// Context is the shared, per-run state threaded through every phase.
type Context struct {
	Config     SeparationConfig
	Settlement Settlement
	DT         float32 // Fixed timestep in seconds
}

// NewContext validates cfg and dt and returns a fresh context.
func NewContext(cfg SeparationConfig, dt float32) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !(dt > 0) || !vmath.IsFinite(dt) {
		return nil, fmt.Errorf("%w: timestep must be positive, got %g", ErrInvalidConfig, dt)
	}
	return &Context{Config: cfg, DT: dt}, nil
}
