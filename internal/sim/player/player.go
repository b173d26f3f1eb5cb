package player

import (
	"math"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/physics"
)

// Intent is one tick of already-resolved input. Cursor is a world-space
// point, nil when the pointer is off screen.
type Intent struct {
	MoveLeft    bool       `json:"move_left,omitempty"`
	MoveRight   bool       `json:"move_right,omitempty"`
	JumpHeld    bool       `json:"jump_held,omitempty"`
	JumpPressed bool       `json:"jump_pressed,omitempty"`
	Descend     bool       `json:"descend,omitempty"`
	Respawn     bool       `json:"respawn,omitempty"`
	WheelDelta  int        `json:"wheel_delta,omitempty"`
	Primary     bool       `json:"primary,omitempty"`
	Secondary   bool       `json:"secondary,omitempty"`
	Cursor      *geom.Vec2 `json:"cursor,omitempty"`
}

type Facing uint8

const (
	FacingLeft Facing = iota
	FacingForward
	FacingRight
)

func (f Facing) String() string {
	switch f {
	case FacingLeft:
		return "LEFT"
	case FacingRight:
		return "RIGHT"
	default:
		return "FORWARD"
	}
}

// Sprite is the tileset index of the player frame for this facing.
func (f Facing) Sprite() uint32 { return 11 + uint32(f) }

type JumpState uint8

const (
	Grounded JumpState = iota
	Jumping
	Jetpacking
)

type Params struct {
	Gravity           float64
	WalkSpeed         float64
	MaxSpeed          float64
	JumpSpeed         float64
	JumpImpulse       float64
	JetpackImpulse    float64
	JetpackTime       float64
	ScrollSensitivity int
	Width, Height     int
	Spawn             geom.Vec2
}

func DefaultParams() Params {
	return Params{
		Gravity:           500,
		WalkSpeed:         120,
		MaxSpeed:          300,
		JumpSpeed:         180,
		JumpImpulse:       1000,
		JetpackImpulse:    800,
		JetpackTime:       0.75,
		ScrollSensitivity: 64,
		Width:             10,
		Height:            16,
		Spawn:             geom.V(120, 80),
	}
}

var Inventory = [4]catalogs.TileID{
	catalogs.Dirt,
	catalogs.WoodPlanks,
	catalogs.WoodLog,
	catalogs.GenericOre,
}

type Player struct {
	Body     *physics.Collider
	Speed    geom.Vec2
	Facing   Facing
	Jump     JumpState
	Selected uint8

	params      Params
	jetpackLeft float64
}

// New wraps an already placed body.
func New(body *physics.Collider, p Params) *Player {
	return &Player{Body: body, Facing: FacingForward, params: p}
}

func (p *Player) Params() Params { return p.params }

func (p *Player) JetpackLeft() float64 { return p.jetpackLeft }

// InventoryIndex maps the wheel accumulator onto four equal slot ranges.
func (p *Player) InventoryIndex() int {
	return min(int(p.Selected)/63, len(Inventory)-1)
}

func (p *Player) Item() catalogs.TileID { return Inventory[p.InventoryIndex()] }

// Scroll adds a wheel delta scaled by the sensitivity. The step saturates to
// int8 and the accumulator wraps.
func (p *Player) Scroll(delta int) {
	if delta == 0 {
		return
	}
	step := max(math.MinInt8, min(math.MaxInt8, delta*p.params.ScrollSensitivity))
	p.Selected += uint8(int8(step))
}

// Update advances the player by dt seconds against q.
func (p *Player) Update(q physics.Querier, in Intent, dt float64) {
	cfg := p.params
	c := p.Body

	p.Scroll(in.WheelDelta)
	if in.Respawn {
		c.Teleport(cfg.Spawn)
		p.Speed = geom.Vec2{}
	}
	if in.Descend && physics.OnGround(q, c) {
		physics.Descend(q, c)
	}

	onGround := physics.OnGround(q, c)
	onCeiling := physics.OnCeiling(q, c)
	if onGround {
		p.Speed.Y = 0
		p.Jump = Grounded
	} else {
		p.Speed.Y += cfg.Gravity * dt
	}
	if onCeiling {
		p.Speed.Y = math.Abs(p.Speed.Y) / 2
	}

	p.Facing = FacingForward
	p.Speed.X = 0
	switch {
	case in.MoveLeft && !in.MoveRight:
		p.Facing = FacingLeft
		p.Speed.X = -cfg.WalkSpeed
	case in.MoveRight && !in.MoveLeft:
		p.Facing = FacingRight
		p.Speed.X = cfg.WalkSpeed
	}

	switch p.Jump {
	case Grounded:
		if in.JumpHeld && onGround {
			p.Speed.Y = -cfg.JumpSpeed
			p.Jump = Jumping
		}
	case Jumping:
		if in.JumpPressed {
			p.Speed.Y -= cfg.JumpImpulse * dt
			p.Jump = Jetpacking
			p.jetpackLeft = cfg.JetpackTime
		}
	case Jetpacking:
		if p.jetpackLeft > 0 && in.JumpHeld {
			p.Speed.Y -= cfg.JetpackImpulse * dt
			p.jetpackLeft -= dt
		}
	}

	p.Speed.X = clamp(p.Speed.X, cfg.MaxSpeed)
	p.Speed.Y = clamp(p.Speed.Y, cfg.MaxSpeed)

	physics.MoveV(q, c, p.Speed.Y*dt)
	physics.MoveH(q, c, p.Speed.X*dt)
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
