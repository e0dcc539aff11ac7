// Package geom holds the small vector and rectangle types shared by the
// placement engine, host surfaces and fixture models.
package geom

import "fmt"

// Vec2 is a point in a host surface's local 2D frame.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a point or extent in world space. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Rect is an axis-aligned rectangle in a surface's local frame. Clip
// regions are Rects.
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// R is shorthand for building a Rect from its bounds.
func R(minX, minY, maxX, maxY float64) Rect {
	return Rect{Min: Vec2{minX, minY}, Max: Vec2{maxX, maxY}}
}

// Width returns the X extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the Y extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle encloses no area.
func (r Rect) Empty() bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y
}

// Overlaps reports whether r and o share interior area. Touching edges do
// not count.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X < o.Max.X && o.Min.X < r.Max.X &&
		r.Min.Y < o.Max.Y && o.Min.Y < r.Max.Y
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f,%.2f .. %.2f,%.2f]", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Box3 is an axis-aligned bounding box.
type Box3 struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Size returns the box extents.
func (b Box3) Size() Vec3 { return b.Max.Sub(b.Min) }

// Width returns the X extent.
func (b Box3) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the Y extent.
func (b Box3) Height() float64 { return b.Max.Y - b.Min.Y }

// Union returns the smallest box containing b and o.
func (b Box3) Union(o Box3) Box3 {
	return Box3{
		Min: Vec3{min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y), min(b.Min.Z, o.Min.Z)},
		Max: Vec3{max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y), max(b.Max.Z, o.Max.Z)},
	}
}
