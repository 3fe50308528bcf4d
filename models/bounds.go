package models

import "math"

// Vec2 is a position in world coordinates.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Rect is an axis-aligned rectangle. Regions derived from the world grid
// (sectors, quadtree cells, graph cells) are half-open: a point on the max
// edge of a cell belongs to the next cell over. Asset footprints are closed
// boxes; a point footprint has Min == Max.
type Rect struct {
	Min Vec2 `json:"min" yaml:"min"`
	Max Vec2 `json:"max" yaml:"max"`
}

func NewRect(minX, minY, maxX, maxY float64) Rect {
	return Rect{Min: Vec2{X: minX, Y: minY}, Max: Vec2{X: maxX, Y: maxY}}
}

// RectFromSize returns a rectangle anchored at the origin.
func RectFromSize(width, height float64) Rect {
	return NewRect(0, 0, width, height)
}

// RectFromCenter returns the square of the given half-extent around center.
func RectFromCenter(center Vec2, radius float64) Rect {
	return NewRect(center.X-radius, center.Y-radius, center.X+radius, center.Y+radius)
}

func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

func (r Rect) Center() Vec2 {
	return Vec2{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// IsPositive reports whether the rectangle spans a strictly positive area.
func (r Rect) IsPositive() bool {
	return r.Width() > 0 && r.Height() > 0
}

// ContainsPoint treats r as a half-open region.
func (r Rect) ContainsPoint(p Vec2) bool {
	return p.X >= r.Min.X && p.X < r.Max.X &&
		p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// ContainsFootprint reports whether the closed box f lies entirely inside r.
func (r Rect) ContainsFootprint(f Rect) bool {
	return f.Min.X >= r.Min.X && f.Max.X <= r.Max.X &&
		f.Min.Y >= r.Min.Y && f.Max.Y <= r.Max.Y
}

// IntersectsFootprint reports whether the closed box f overlaps the half-open
// region r. A point footprint on r's min edge overlaps, one on r's max edge
// does not.
func (r Rect) IntersectsFootprint(f Rect) bool {
	return f.Min.X < r.Max.X && f.Max.X >= r.Min.X &&
		f.Min.Y < r.Max.Y && f.Max.Y >= r.Min.Y
}

// Overlaps is the closed-interval overlap test. It is conservative: touching
// edges count as overlapping, so it never prunes a region that
// IntersectsFootprint would accept.
func (r Rect) Overlaps(o Rect) bool {
	return o.Min.X <= r.Max.X && o.Max.X >= r.Min.X &&
		o.Min.Y <= r.Max.Y && o.Max.Y >= r.Min.Y
}

// Intersection clips o to r. The result may have zero or negative extent when
// the rectangles do not overlap; check IsPositive before using it as a region.
func (r Rect) Intersection(o Rect) Rect {
	return Rect{
		Min: Vec2{X: math.Max(r.Min.X, o.Min.X), Y: math.Max(r.Min.Y, o.Min.Y)},
		Max: Vec2{X: math.Min(r.Max.X, o.Max.X), Y: math.Min(r.Max.Y, o.Max.Y)},
	}
}

// DistanceChebyshev returns the Chebyshev distance from p to the rectangle,
// zero when p is inside.
func (r Rect) DistanceChebyshev(p Vec2) float64 {
	dx := axisDistance(p.X, r.Min.X, r.Max.X)
	dy := axisDistance(p.Y, r.Min.Y, r.Max.Y)
	return math.Max(dx, dy)
}

// DistanceEuclidean returns the Euclidean distance from p to the rectangle,
// zero when p is inside.
func (r Rect) DistanceEuclidean(p Vec2) float64 {
	dx := axisDistance(p.X, r.Min.X, r.Max.X)
	dy := axisDistance(p.Y, r.Min.Y, r.Max.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func axisDistance(v, min, max float64) float64 {
	return math.Max(0, math.Max(min-v, v-max))
}
