package physics

import (
	"tilecraft.ai/internal/sim/collision"
	"tilecraft.ai/internal/sim/geom"
)

// MoveH moves c horizontally by dx, carrying the fraction to the next call.
// Jump-through tiles never stop horizontal movement. It returns false when a
// blocking tile or solid stopped the body early; progress up to that point is
// kept.
func MoveH(q Querier, c *Collider, dx float64) bool {
	return stepH(q, c, take(&c.remX, dx))
}

func stepH(q Querier, c *Collider, n int) bool {
	if n == 0 {
		return true
	}
	s := sign(n)
	for n != 0 {
		res := q.Collide(c.rectAt(c.Pos.Add(geom.V(float64(s), 0))))
		if res == collision.JumpThrough {
			c.descent = true
			c.seenWood = true
		}
		if res != collision.Empty && res != collision.JumpThrough {
			return false
		}
		c.Pos.X += float64(s)
		n -= s
	}
	return true
}

// MoveV moves c vertically by dy. Moving up into a jump-through tile grants
// passage; moving down into one only succeeds while descending. Once the
// body ends the move outside platform tiles the passage state is cleared.
func MoveV(q Querier, c *Collider, dy float64) bool {
	ok := stepV(q, c, take(&c.remY, dy))
	settle(q, c)
	return ok
}

func stepV(q Querier, c *Collider, n int) bool {
	if n == 0 {
		return true
	}
	s := sign(n)
	for n != 0 {
		res := q.Collide(c.rectAt(c.Pos.Add(geom.V(0, float64(s)))))
		if res == collision.JumpThrough {
			if c.descent {
				c.seenWood = true
			}
			if s < 0 {
				c.descent = true
				c.seenWood = true
			}
		}
		if res != collision.Empty && !(res == collision.JumpThrough && c.descent) {
			return false
		}
		c.Pos.Y += float64(s)
		n -= s
	}
	return true
}

// settle clears platform passage once the body rests outside platform tiles.
func settle(q Querier, c *Collider) {
	if q.Collide(c.Rect()) != collision.JumpThrough {
		c.seenWood = false
		c.descent = false
	}
}

// CollideCheck reports whether c would be blocked with its top-left at
// probe. A descending body ignores jump-through tiles; otherwise they count
// as floor and ceiling.
func CollideCheck(q Querier, c *Collider, probe geom.Vec2) bool {
	res := q.Collide(c.rectAt(probe))
	if c.descent {
		return res == collision.Solid || res == collision.Collider
	}
	return res != collision.Empty
}

// Descend drops c through a platform it is standing on: it grants passage
// and takes one pixel down. On anything but a platform the step is blocked
// and the passage is revoked again.
func Descend(q Querier, c *Collider) bool {
	c.descent = true
	ok := stepV(q, c, 1)
	settle(q, c)
	return ok
}

// OnGround reports whether the pixel row below c blocks it.
func OnGround(q Querier, c *Collider) bool {
	return CollideCheck(q, c, c.Pos.Add(geom.V(0, 1)))
}

// OnCeiling reports whether the pixel row above c blocks it.
func OnCeiling(q Querier, c *Collider) bool {
	return CollideCheck(q, c, c.Pos.Add(geom.V(0, -1)))
}
