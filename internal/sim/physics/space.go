package physics

import (
	"math"

	"tilecraft.ai/internal/sim/collision"
	"tilecraft.ai/internal/sim/geom"
)

type ActorID int

// Space combines static tile geometry with moving solids. Actors are moved
// against both; solids move through tiles freely and push or carry actors.
type Space struct {
	Tiles Querier

	actors []*Collider
	solids []*Collider
}

func NewSpace(tiles Querier) *Space {
	return &Space{Tiles: tiles}
}

// Collide reports tiles first; a collidable solid overlapping rect with
// positive area reports Collider.
func (s *Space) Collide(rect geom.Rect) collision.Result {
	if s.Tiles != nil {
		if res := s.Tiles.Collide(rect); res != collision.Empty {
			return res
		}
	}
	for _, sc := range s.solids {
		if sc.collidable && sc.Rect().Overlaps(rect) {
			return collision.Collider
		}
	}
	return collision.Empty
}

func (s *Space) AddActor(pos geom.Vec2, w, h int) ActorID {
	s.actors = append(s.actors, NewCollider(s, pos, w, h))
	return ActorID(len(s.actors) - 1)
}

func (s *Space) AddSolid(pos geom.Vec2, w, h int) SolidID {
	s.solids = append(s.solids, &Collider{
		Pos:        pos,
		W:          w,
		H:          h,
		collidable: true,
		squishers:  map[SolidID]struct{}{},
	})
	return SolidID(len(s.solids) - 1)
}

func (s *Space) Actor(id ActorID) *Collider { return s.actors[id] }
func (s *Space) Solid(id SolidID) *Collider { return s.solids[id] }

func (s *Space) MoveActorH(id ActorID, dx float64) bool { return MoveH(s, s.actors[id], dx) }
func (s *Space) MoveActorV(id ActorID, dy float64) bool { return MoveV(s, s.actors[id], dy) }

func (s *Space) CollideCheck(id ActorID, probe geom.Vec2) bool {
	return CollideCheck(s, s.actors[id], probe)
}

func (s *Space) Descend(id ActorID) bool { return Descend(s, s.actors[id]) }

func (s *Space) SetActorPosition(id ActorID, pos geom.Vec2) { s.actors[id].Teleport(pos) }

func (s *Space) Squished(id ActorID) bool { return s.actors[id].squished }

// MoveSolid moves a solid by (dx, dy), x axis first. Actors standing on it
// are carried, actors in its way are pushed, and an actor pushed into a wall
// is marked squished by this solid until the solid stops overlapping it.
func (s *Space) MoveSolid(id SolidID, dx, dy float64) {
	sc := s.solids[id]
	mx := take(&sc.remX, dx)
	my := take(&sc.remY, dy)
	if mx == 0 && my == 0 {
		return
	}
	riders := s.riders(sc)
	if mx != 0 {
		s.shove(id, riders, mx, true)
	}
	if my != 0 {
		s.shove(id, riders, my, false)
	}
}

// riders are actors whose bottom pixel row sits on the solid's top edge.
func (s *Space) riders(sc *Collider) map[*Collider]bool {
	top := geom.R(sc.Pos.X, sc.Pos.Y-1, float64(sc.W), 1)
	out := map[*Collider]bool{}
	for _, a := range s.actors {
		feet := geom.R(a.Pos.X, a.Pos.Y+float64(a.H)-1, float64(a.W), 1)
		if top.Overlaps(feet) {
			out[a] = true
		}
	}
	return out
}

func (s *Space) shove(id SolidID, riders map[*Collider]bool, n int, horizontal bool) {
	sc := s.solids[id]
	if horizontal {
		sc.Pos.X += float64(n)
	} else {
		sc.Pos.Y += float64(n)
	}
	body := sc.Rect()

	sc.collidable = false
	for _, a := range s.actors {
		switch {
		case body.Overlaps(a.Rect()):
			if a.squished {
				continue
			}
			if !s.nudge(a, pushDistance(body, a.Rect(), n, horizontal), horizontal) {
				a.squished = true
				a.squishers[id] = struct{}{}
			}
		case riders[a]:
			s.nudge(a, n, horizontal)
		}
	}
	sc.collidable = true

	for _, a := range s.actors {
		if body.Overlaps(a.Rect()) {
			continue
		}
		delete(a.squishers, id)
		if len(a.squishers) == 0 {
			a.squished = false
		}
	}
}

// pushDistance is how far an overlapped actor must move to clear the solid
// in the direction the solid moved.
func pushDistance(solid, actor geom.Rect, n int, horizontal bool) int {
	var d float64
	switch {
	case horizontal && n > 0:
		d = solid.Right() - actor.X
	case horizontal:
		d = solid.X - actor.Right()
	case n > 0:
		d = solid.Bottom() - actor.Y
	default:
		d = solid.Y - actor.Bottom()
	}
	return int(math.Round(d))
}

// nudge moves an actor by whole pixels without touching its remainders.
func (s *Space) nudge(a *Collider, n int, horizontal bool) bool {
	if horizontal {
		return stepH(s, a, n)
	}
	ok := stepV(s, a, n)
	settle(s, a)
	return ok
}
