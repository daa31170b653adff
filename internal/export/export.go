// Package export writes room layouts for tools outside the terminal viewer.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/samdwyer/roomsep/internal/world"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
	}
}

// Room is one room in an exported layout.
type Room struct {
	ID     int     `json:"id" yaml:"id"`
	X      float32 `json:"x" yaml:"x"`           // Center
	Y      float32 `json:"y" yaml:"y"`           // Center
	Width  float32 `json:"width" yaml:"width"`   // Full width
	Height float32 `json:"height" yaml:"height"` // Full height
	Color  string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// Layout is a single frame: every room at one tick.
type Layout struct {
	Seed    int64  `json:"seed" yaml:"seed"`
	Tick    uint64 `json:"tick" yaml:"tick"`
	Settled bool   `json:"settled" yaml:"settled"`
	Rooms   []Room `json:"rooms" yaml:"rooms"`
}

// NewLayout builds a frame from a snapshot. colors supplies the hex color of
// each room by ID and may be nil.
func NewLayout(seed int64, tick uint64, settled bool, snaps []world.Snapshot, colors []string) Layout {
	rooms := make([]Room, len(snaps))
	for i, s := range snaps {
		rooms[i] = Room{
			ID:     int(s.ID),
			X:      s.Position.X,
			Y:      s.Position.Y,
			Width:  s.Size.X,
			Height: s.Size.Y,
		}
		if int(s.ID) < len(colors) {
			rooms[i].Color = colors[s.ID]
		}
	}
	return Layout{Seed: seed, Tick: tick, Settled: settled, Rooms: rooms}
}

// Colors returns the hex color of every room, indexed by ID.
func Colors(rooms []world.Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.Color.Clamped().Hex()
	}
	return out
}

// Writer streams layouts. JSON output is one object per line; YAML output is
// a multi-document stream.
type Writer struct {
	format Format
	json   *json.Encoder
	yaml   *yaml.Encoder
}

// NewWriter returns a writer for the given format.
func NewWriter(w io.Writer, format Format) *Writer {
	wr := &Writer{format: format}
	switch format {
	case FormatYAML:
		wr.yaml = yaml.NewEncoder(w)
		wr.yaml.SetIndent(2)
	default:
		wr.json = json.NewEncoder(w)
	}
	return wr
}

// Write encodes one layout.
func (w *Writer) Write(l Layout) error {
	var err error
	if w.yaml != nil {
		err = w.yaml.Encode(l)
	} else {
		err = w.json.Encode(l)
	}
	if err != nil {
		return fmt.Errorf("encode %s layout at tick %d: %w", w.format, l.Tick, err)
	}
	return nil
}

// Close flushes any buffered output.
func (w *Writer) Close() error {
	if w.yaml != nil {
		return w.yaml.Close()
	}
	return nil
}
