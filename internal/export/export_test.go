package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/samdwyer/roomsep/internal/vmath"
	"github.com/samdwyer/roomsep/internal/world"
)

func sampleLayout() Layout {
	snaps := []world.Snapshot{
		{ID: 0, Position: vmath.V(1.5, -2), Size: vmath.V(4, 6)},
		{ID: 1, Position: vmath.V(10, 0), Size: vmath.V(2, 2)},
	}
	colors := Colors([]world.Room{
		{Color: colorful.Color{R: 1}},
		{Color: colorful.Color{G: 1}},
	})
	return NewLayout(42, 120, true, snaps, colors)
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "yaml"} {
		if f, err := ParseFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

func TestNewLayout(t *testing.T) {
	l := sampleLayout()
	if len(l.Rooms) != 2 {
		t.Fatalf("got %d rooms", len(l.Rooms))
	}
	r := l.Rooms[0]
	if r.X != 1.5 || r.Y != -2 || r.Width != 4 || r.Height != 6 || r.Color != "#ff0000" {
		t.Errorf("room 0 = %+v", r)
	}
	if l.Rooms[1].Color != "#00ff00" {
		t.Errorf("room 1 color = %q", l.Rooms[1].Color)
	}

	bare := NewLayout(1, 0, false, []world.Snapshot{{ID: 3}}, nil)
	if bare.Rooms[0].Color != "" {
		t.Error("missing colors should leave the field empty")
	}
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON)
	l := sampleLayout()
	if err := w.Write(l); err != nil {
		t.Fatal(err)
	}
	l.Tick = 121
	if err := w.Write(l); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var got Layout
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatal(err)
	}
	if got.Tick != 121 || got.Seed != 42 || !got.Settled || len(got.Rooms) != 2 {
		t.Errorf("decoded %+v", got)
	}
}

func TestWriteYAMLStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatYAML)
	l := sampleLayout()
	for i := 0; i < 3; i++ {
		l.Tick = uint64(i)
		if err := w.Write(l); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	dec := yaml.NewDecoder(&buf)
	n := 0
	for {
		var got Layout
		if err := dec.Decode(&got); err != nil {
			break
		}
		if got.Tick != uint64(n) || got.Rooms[1].X != 10 {
			t.Errorf("document %d = %+v", n, got)
		}
		n++
	}
	if n != 3 {
		t.Errorf("decoded %d documents, want 3", n)
	}
}
