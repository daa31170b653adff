// Package vmath provides the small amount of 2D vector math the layout needs.
package vmath

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
}

// Zero is the zero vector.
var Zero = Vec2{}

// V returns the vector (x, y).
func V(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// FromAngle returns the unit vector at angle theta (radians).
func FromAngle(theta float32) Vec2 {
	s, c := math.Sincos(float64(theta))
	return Vec2{X: float32(c), Y: float32(s)}
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * f.
func (v Vec2) Scale(f float32) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

// Div returns v / f. Callers guarantee f != 0.
func (v Vec2) Div(f float32) Vec2 {
	return Vec2{X: v.X / f, Y: v.Y / f}
}

// Abs returns the component-wise absolute value.
func (v Vec2) Abs() Vec2 {
	return Vec2{X: abs(v.X), Y: abs(v.Y)}
}

// Length returns the Euclidean length of v.
func (v Vec2) Length() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// LengthSquared returns the squared length of v.
func (v Vec2) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y
}

// NormalizeOrZero returns v scaled to unit length, or the zero vector when
// v has zero (or non-finite) length.
func (v Vec2) NormalizeOrZero() Vec2 {
	l := v.Length()
	if l == 0 || math.IsInf(float64(l), 0) || math.IsNaN(float64(l)) {
		return Zero
	}
	return v.Scale(1 / l)
}

// IsZero reports whether both components are exactly zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Sqrt returns the square root of x.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// IsFinite reports whether x is neither NaN nor an infinity.
func IsFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
