// Package config assembles the startup configuration for a layout run from
// presets, an optional YAML file and ROOMSEP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/samdwyer/roomsep/internal/presets"
	"github.com/samdwyer/roomsep/internal/sim"
	"github.com/samdwyer/roomsep/internal/world"
)

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// MaxTickRate bounds TickRate so one tick always lasts a positive
// wall-clock interval.
const MaxTickRate = 1000

// Config holds every startup option. It is read once and never mutated after
// the run starts.
type Config struct {
	// Seed for random number generation. Used for reproducible layouts.
	// A seed of 0 means a random seed will be generated.
	Seed int64 `yaml:"seed" env:"ROOMSEP_SEED"`

	RoomCount   int     `yaml:"room_count" env:"ROOMSEP_ROOM_COUNT"`
	MinSide     float32 `yaml:"min_side" env:"ROOMSEP_MIN_SIDE"`
	MaxSide     float32 `yaml:"max_side" env:"ROOMSEP_MAX_SIDE"`
	SpawnRadius float32 `yaml:"spawn_radius" env:"ROOMSEP_SPAWN_RADIUS"`

	Stiffness float32 `yaml:"stiffness" env:"ROOMSEP_STIFFNESS"`
	MaxForce  float32 `yaml:"max_force" env:"ROOMSEP_MAX_FORCE"`
	Drag      float32 `yaml:"drag" env:"ROOMSEP_DRAG"`

	TickRate int    `yaml:"tick_rate" env:"ROOMSEP_TICK_RATE"` // Fixed ticks per second
	MaxTicks uint64 `yaml:"max_ticks" env:"ROOMSEP_MAX_TICKS"` // 0 = no cap

	LogLevel  string `yaml:"log_level" env:"ROOMSEP_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"ROOMSEP_LOG_FORMAT"` // text, json or logfmt
}

// Default returns the configuration of the default preset with the stock
// force model.
func Default() Config {
	cfg := Config{
		Stiffness: sim.DefaultStiffness,
		MaxForce:  sim.DefaultMaxForce,
		Drag:      sim.DefaultDrag,
		TickRate:  60,
		MaxTicks:  10000,
		LogLevel:  "info",
		LogFormat: "text",
	}
	if p := presets.MustLoadRegistry().GetByID(presets.DefaultID); p != nil {
		cfg.ApplyPreset(p)
	}
	return cfg
}

// ApplyPreset overwrites the spawn parameters, and any force-model values the
// preset sets.
func (c *Config) ApplyPreset(p *presets.Preset) {
	c.RoomCount = p.RoomCount
	c.MinSide = p.MinSide
	c.MaxSide = p.MaxSide
	c.SpawnRadius = p.SpawnRadius
	if p.Stiffness != nil {
		c.Stiffness = *p.Stiffness
	}
	if p.MaxForce != nil {
		c.MaxForce = *p.MaxForce
	}
	if p.Drag != nil {
		c.Drag = *p.Drag
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays any ROOMSEP_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks every parameter and returns an error wrapping ErrInvalid.
func (c Config) Validate() error {
	if err := c.SpawnParams(c.Seed).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Separation().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.TickRate <= 0 || c.TickRate > MaxTickRate {
		return fmt.Errorf("%w: tick rate must be in [1, %d], got %d", ErrInvalid, MaxTickRate, c.TickRate)
	}
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// SpawnParams returns the spawn sampler parameters for a run seeded with seed.
func (c Config) SpawnParams(seed int64) world.SpawnParams {
	return world.SpawnParams{
		Count:   c.RoomCount,
		MinSide: c.MinSide,
		MaxSide: c.MaxSide,
		Radius:  c.SpawnRadius,
		Seed:    seed,
	}
}

// Separation returns the force model.
func (c Config) Separation() sim.SeparationConfig {
	return sim.SeparationConfig{
		Stiffness: c.Stiffness,
		MaxForce:  c.MaxForce,
		Drag:      c.Drag,
	}
}

// DT returns the fixed timestep in seconds.
func (c Config) DT() float32 {
	return 1 / float32(c.TickRate)
}

// TickInterval returns the wall-clock duration of one tick.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// ResolveSeed returns c.Seed, or a time-based seed when it is 0.
func (c Config) ResolveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}
