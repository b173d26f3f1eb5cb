package physics

import (
	"math"

	"tilecraft.ai/internal/sim/collision"
	"tilecraft.ai/internal/sim/geom"
)

// Querier answers what a world-space rectangle overlaps. The chunk store
// implements it for tiles; Space layers moving solids on top.
type Querier interface {
	Collide(rect geom.Rect) collision.Result
}

type SolidID int

// Collider is the transient movement state of one body. Positions are
// top-left world pixels; the size is whole pixels.
type Collider struct {
	Pos  geom.Vec2
	W, H int

	collidable bool
	squished   bool
	remX, remY float64
	squishers  map[SolidID]struct{}

	// descent grants passage through jump-through tiles; seenWood records
	// that the body has been inside one since it last left platform tiles.
	descent  bool
	seenWood bool
}

// NewCollider places a body at pos. A body spawned inside a jump-through
// tile starts with passage so it is not stuck there.
func NewCollider(q Querier, pos geom.Vec2, w, h int) *Collider {
	c := &Collider{
		Pos:        pos,
		W:          w,
		H:          h,
		collidable: true,
		squishers:  map[SolidID]struct{}{},
	}
	if q != nil && q.Collide(c.Rect()) == collision.JumpThrough {
		c.descent = true
		c.seenWood = true
	}
	return c
}

func (c *Collider) Rect() geom.Rect { return c.rectAt(c.Pos) }

func (c *Collider) rectAt(p geom.Vec2) geom.Rect {
	return geom.R(p.X, p.Y, float64(c.W), float64(c.H))
}

func (c *Collider) Descent() bool        { return c.descent }
func (c *Collider) SeenWood() bool       { return c.seenWood }
func (c *Collider) SetDescent(v bool)    { c.descent = v }
func (c *Collider) Squished() bool       { return c.squished }
func (c *Collider) Remainder() geom.Vec2 { return geom.V(c.remX, c.remY) }
func (c *Collider) Collidable() bool     { return c.collidable }
func (c *Collider) SetCollidable(v bool) { c.collidable = v }

// Teleport moves the body and drops any sub-pixel carry.
func (c *Collider) Teleport(pos geom.Vec2) {
	c.Pos = pos
	c.remX = 0
	c.remY = 0
}

// take adds delta to a remainder and returns the whole pixels to step now.
// math.Round rounds half away from zero.
func take(rem *float64, delta float64) int {
	*rem += delta
	n := math.Round(*rem)
	*rem -= n
	return int(n)
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
