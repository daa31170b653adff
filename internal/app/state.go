// Package app runs the interactive layout viewer: a fixed-cadence loop that
// steps the simulation and redraws the terminal after every tick.
package app

// State represents the current viewer state.
type State int

const (
	// StateRunning steps the simulation on every tick.
	StateRunning State = iota
	// StatePaused holds the layout still until resumed or single-stepped.
	StatePaused
	// StateSettled means no rooms overlap; the simulation stops stepping.
	StateSettled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}
