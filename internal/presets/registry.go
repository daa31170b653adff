package presets

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultID names the preset used when none is requested.
const DefaultID = "default"

// Preset is a named set of spawn and force-model parameters.
// Force-model fields are optional; nil leaves the current value alone.
type Preset struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	RoomCount   int      `json:"roomCount"`
	MinSide     float32  `json:"minSide"`
	MaxSide     float32  `json:"maxSide"`
	SpawnRadius float32  `json:"spawnRadius"`
	Stiffness   *float32 `json:"stiffness,omitempty"`
	MaxForce    *float32 `json:"maxForce,omitempty"`
	Drag        *float32 `json:"drag,omitempty"`
}

// LoadPresets reads the embedded presets.json.
func LoadPresets() ([]Preset, error) {
	return Load[[]Preset]("presets.json")
}

// Registry holds loaded presets keyed by ID.
type Registry struct {
	presets map[string]*Preset
	all     []Preset
}

// NewRegistry creates a registry from loaded preset definitions.
func NewRegistry(presets []Preset) *Registry {
	registry := &Registry{
		presets: make(map[string]*Preset),
		all:     presets,
	}
	for i := range presets {
		registry.presets[presets[i].ID] = &presets[i]
	}
	return registry
}

// LoadRegistry loads and creates a registry from the embedded presets.json.
func LoadRegistry() (*Registry, error) {
	presets, err := LoadPresets()
	if err != nil {
		return nil, err
	}
	if len(presets) == 0 {
		return nil, errors.New("no presets loaded from presets.json")
	}
	return NewRegistry(presets), nil
}

// MustLoadRegistry loads a registry, panicking on error.
func MustLoadRegistry() *Registry {
	registry, err := LoadRegistry()
	if err != nil {
		panic(err)
	}
	return registry
}

// GetByID returns the preset with the given ID, or nil if not found.
func (r *Registry) GetByID(id string) *Preset {
	return r.presets[id]
}

// Lookup is GetByID with an error naming the known presets.
func (r *Registry) Lookup(id string) (*Preset, error) {
	if p := r.presets[id]; p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("unknown preset %q (known: %v)", id, r.IDs())
}

// IDs returns the sorted preset IDs.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.presets))
	for id := range r.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns all presets in file order.
func (r *Registry) All() []Preset {
	return r.all
}

// Count returns the number of presets in the registry.
func (r *Registry) Count() int {
	return len(r.all)
}
