package geom

import "math"

// Vec2 is a point or offset in continuous pixel space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Mul is the component-wise product.
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{X: v.X * o.X, Y: v.Y * o.Y} }

// Div is the component-wise quotient.
func (v Vec2) Div(o Vec2) Vec2 { return Vec2{X: v.X / o.X, Y: v.Y / o.Y} }

func (v Vec2) Floor() Vec2 { return Vec2{X: math.Floor(v.X), Y: math.Floor(v.Y)} }

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// RectAt builds a rect from a top-left point and a size vector.
func RectAt(topLeft, size Vec2) Rect {
	return Rect{X: topLeft.X, Y: topLeft.Y, W: size.X, H: size.Y}
}

func (r Rect) Point() Vec2 { return Vec2{X: r.X, Y: r.Y} }
func (r Rect) Size() Vec2 { return Vec2{X: r.W, Y: r.H} }
func (r Rect) Right() float64 { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) Offset(d Vec2) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Intersect returns the common region of r and o. Rects that only share an
// edge or a corner still intersect, with a zero width or height.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	left := math.Max(r.X, o.X)
	top := math.Max(r.Y, o.Y)
	right := math.Min(r.Right(), o.Right())
	bottom := math.Min(r.Bottom(), o.Bottom())
	if right < left || bottom < top {
		return Rect{}, false
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}, true
}

// Overlaps reports a positive-area intersection.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Contains uses half-open bounds: [X, X+W) x [Y, Y+H).
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }
