package collision

// Result classifies what a region of space contains. It is used both for a
// single tile and for the aggregate of many samples.
type Result uint8

const (
	Empty Result = iota
	JumpThrough
	Solid
	// Collider is a dynamic solid body rather than a tile.
	Collider
)

func (r Result) String() string {
	switch r {
	case Empty:
		return "EMPTY"
	case JumpThrough:
		return "JUMP_THROUGH"
	case Solid:
		return "SOLID"
	case Collider:
		return "COLLIDER"
	default:
		return "UNKNOWN"
	}
}

// Or combines two classifications. Empty and JumpThrough combine to the
// stronger of the two; anything involving Solid or Collider is Solid.
func (r Result) Or(o Result) Result {
	if r <= JumpThrough && o <= JumpThrough {
		return max(r, o)
	}
	return Solid
}

// Blocking reports whether the result stops a body that has no pass-through
// privilege for one-way platforms.
func (r Result) Blocking() bool { return r != Empty }
