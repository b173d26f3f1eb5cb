package store

import (
	"tilecraft.ai/internal/sim/collision"
	"tilecraft.ai/internal/sim/geom"
)

func (m *ChunkMap) sample(p geom.Vec2) collision.Result {
	return m.TileAt(p).Def().Collision()
}

// Collide classifies everything rect covers. It samples the four corners
// first and, for rects wider or taller than a tile, points along the edges at
// tile-size strides so no tile between the corners is skipped. This is exact
// only because tiles and bodies are both axis-aligned.
func (m *ChunkMap) Collide(rect geom.Rect) collision.Result {
	tw := float64(m.Layout.Tile.W)
	th := float64(m.Layout.Tile.H)
	right := rect.X + rect.W - 1
	bottom := rect.Y + rect.H - 1

	res := m.sample(geom.V(rect.X, rect.Y)).
		Or(m.sample(geom.V(right, rect.Y))).
		Or(m.sample(geom.V(right, bottom))).
		Or(m.sample(geom.V(rect.X, bottom)))
	if res != collision.Empty {
		return res
	}

	if rect.W > tw {
		for x := rect.X + tw; x < right; x += tw {
			res = m.sample(geom.V(x, rect.Y)).Or(m.sample(geom.V(x, bottom)))
			if res != collision.Empty {
				return res
			}
		}
	}
	if rect.H > th {
		for y := rect.Y + th; y < bottom; y += th {
			res = m.sample(geom.V(rect.X, y)).Or(m.sample(geom.V(right, y)))
			if res != collision.Empty {
				return res
			}
		}
	}
	return collision.Empty
}
