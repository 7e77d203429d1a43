// Package geometry holds the plane math shared by the graph store, text boxes
// and the transform engine.
package geometry

import "math"

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the normalized rectangle spanned by two corners.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Expand grows the rect by pad on every side.
func (r Rect) Expand(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}

// Bounds accumulates points into an axis-aligned box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
	set                    bool
}

// Include extends the bounds to cover p.
func (b *Bounds) Include(p Point) {
	if !b.set {
		b.MinX, b.MaxX, b.MinY, b.MaxY = p.X, p.X, p.Y, p.Y
		b.set = true
		return
	}
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
}

// Empty reports whether no point has been included.
func (b *Bounds) Empty() bool { return !b.set }

// Rect returns the accumulated box.
func (b *Bounds) Rect() Rect {
	if !b.set {
		return Rect{}
	}
	return Rect{X: b.MinX, Y: b.MinY, Width: b.MaxX - b.MinX, Height: b.MaxY - b.MinY}
}

// SqrDist returns the squared distance between two points.
func SqrDist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Dist returns the distance between two points.
func Dist(a, b Point) float64 {
	return math.Sqrt(SqrDist(a, b))
}

// DistToSegmentSquared returns the squared distance from p to the segment vw,
// clamped to the segment. A zero-length segment degrades to point distance.
func DistToSegmentSquared(p, v, w Point) float64 {
	l2 := SqrDist(v, w)
	if l2 == 0 {
		return SqrDist(p, v)
	}
	t := ((p.X-v.X)*(w.X-v.X) + (p.Y-v.Y)*(w.Y-v.Y)) / l2
	t = math.Max(0, math.Min(1, t))
	return SqrDist(p, Point{X: v.X + t*(w.X-v.X), Y: v.Y + t*(w.Y-v.Y)})
}

// RotatePoint rotates p about center by angle radians.
func RotatePoint(p, center Point, angle float64) Point {
	if angle == 0 {
		return p
	}
	cos, sin := math.Cos(angle), math.Sin(angle)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// NormalizeAngle maps an angle into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Angle returns the direction of p as seen from center.
func Angle(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X)
}
