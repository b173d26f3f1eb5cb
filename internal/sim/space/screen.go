package space

import (
	"math"

	"tilecraft.ai/internal/sim/geom"
)

// ScreenToWorld maps a point on the virtual screen to the world, given the
// camera target (the world point at the screen center) and the virtual
// viewport size.
func ScreenToWorld(target, viewport, screen geom.Vec2) geom.Vec2 {
	return target.Add(screen).Sub(viewport.Scale(0.5))
}

func WorldToScreen(target, viewport, world geom.Vec2) geom.Vec2 {
	return world.Sub(target).Add(viewport.Scale(0.5))
}

// Letterbox describes how the virtual screen is scaled into the real window:
// an integer scale of at least 1 with the remainder split into equal margins.
type Letterbox struct {
	Scale  float64
	Margin geom.Vec2
}

func NewLetterbox(real, virtual geom.Vec2) Letterbox {
	scale := math.Max(math.Floor(math.Min(real.X/virtual.X, real.Y/virtual.Y)), 1)
	return Letterbox{
		Scale:  scale,
		Margin: real.Sub(virtual.Scale(scale)).Scale(0.5),
	}
}

func (lb Letterbox) RealToVirtual(p geom.Vec2) geom.Vec2 {
	return p.Sub(lb.Margin).Scale(1 / lb.Scale)
}

func (lb Letterbox) VirtualToReal(p geom.Vec2) geom.Vec2 {
	return p.Scale(lb.Scale).Add(lb.Margin)
}

// OnScreen reports whether a virtual-screen point is inside the viewport.
func OnScreen(viewport, p geom.Vec2) bool {
	return geom.RectAt(geom.Vec2{}, viewport).Contains(p)
}
