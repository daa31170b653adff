package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/samdwyer/roomsep/internal/world"
)

// Frame is everything needed to draw one tick.
type Frame struct {
	Rooms    []world.Snapshot
	Tick     uint64
	Overlaps int
	Settled  bool
	Paused   bool
	Seed     int64
}

// Renderer handles drawing the layout to the screen.
type Renderer struct {
	screen  *Screen
	palette []tcell.Color // Indexed by RoomID
}

// NewRenderer creates a new renderer for the given screen.
func NewRenderer(screen *Screen) *Renderer {
	return &Renderer{screen: screen}
}

// SetPalette converts each room's color once, ahead of drawing.
func (r *Renderer) SetPalette(rooms []world.Room) {
	r.palette = make([]tcell.Color, len(rooms))
	for i, room := range rooms {
		r.palette[i] = ToTCell(room.Color)
	}
}

// ToTCell converts a go-colorful color to a tcell RGB color.
func ToTCell(c colorful.Color) tcell.Color {
	red, green, blue := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(red), int32(green), int32(blue))
}

// Render draws the rooms and a status line to the screen. The view is
// refitted to the layout's bounds on every frame.
func (r *Renderer) Render(frame Frame) {
	r.screen.Clear()

	width, height := r.screen.Size()
	drawHeight := height - 1 // Bottom row is the status line

	if lo, hi, ok := world.Bounds(frame.Rooms); ok && drawHeight > 0 {
		vp := FitViewport(lo, hi, width, drawHeight)
		for _, room := range frame.Rooms {
			r.drawRoom(vp, room, drawHeight)
		}
	}

	r.RenderMessage(statusLine(frame), height-1)
	r.screen.Show()
}

// drawRoom fills the room's cells, outlining it so neighbors stay distinct.
func (r *Renderer) drawRoom(vp Viewport, room world.Snapshot, maxY int) {
	color := tcell.ColorWhite
	if int(room.ID) < len(r.palette) {
		color = r.palette[room.ID]
	}
	fill := tcell.StyleDefault.Background(color).Foreground(tcell.ColorBlack)

	x0, y0, x1, y1 := vp.RectCells(room.Position, room.Size)
	for y := max(y0, 0); y < min(y1, maxY); y++ {
		for x := max(x0, 0); x < min(x1, vp.Width); x++ {
			ch := ' '
			if x == x0 || x == x1-1 || y == y0 || y == y1-1 {
				ch = '░'
			}
			r.screen.SetContent(x, y, ch, fill)
		}
	}
}

func statusLine(frame Frame) string {
	state := "relaxing"
	switch {
	case frame.Settled:
		state = "settled"
	case frame.Paused:
		state = "paused"
	}
	return fmt.Sprintf(" tick %d | rooms %d | overlaps %d | %s | seed %d | q quit  space pause  s step  r respawn",
		frame.Tick, len(frame.Rooms), frame.Overlaps, state, frame.Seed)
}

// RenderMessage displays a message on row y.
func (r *Renderer) RenderMessage(msg string, y int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	x := 0
	for _, ch := range msg {
		r.screen.SetContent(x, y, ch, style)
		x++
	}
}
