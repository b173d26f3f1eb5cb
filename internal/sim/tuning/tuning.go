package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/player"
	"tilecraft.ai/internal/sim/space"
)

//go:embed tuning.schema.json
var schemaJSON []byte

type Tuning struct {
	TickRateHz       int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	TileSize         int     `yaml:"tile_size" json:"tile_size"`
	VirtualWidth     int     `yaml:"virtual_width" json:"virtual_width"`
	VirtualHeight    int     `yaml:"virtual_height" json:"virtual_height"`
	SurfaceRow       int     `yaml:"surface_row" json:"surface_row"`
	SaveEverySeconds float64 `yaml:"save_every_seconds" json:"save_every_seconds"`
	SaveKey          string  `yaml:"save_key" json:"save_key"`

	Physics Physics `yaml:"physics" json:"physics"`
	Player  Body    `yaml:"player" json:"player"`
}

type Physics struct {
	Gravity           float64 `yaml:"gravity" json:"gravity"`
	WalkSpeed         float64 `yaml:"walk_speed" json:"walk_speed"`
	MaxSpeed          float64 `yaml:"max_speed" json:"max_speed"`
	JumpSpeed         float64 `yaml:"jump_speed" json:"jump_speed"`
	JumpImpulse       float64 `yaml:"jump_impulse" json:"jump_impulse"`
	JetpackImpulse    float64 `yaml:"jetpack_impulse" json:"jetpack_impulse"`
	JetpackTime       float64 `yaml:"jetpack_time" json:"jetpack_time"`
	ScrollSensitivity int     `yaml:"scroll_sensitivity" json:"scroll_sensitivity"`
}

type Body struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func Defaults() Tuning {
	p := player.DefaultParams()
	return Tuning{
		TickRateHz:       60,
		TileSize:         16,
		VirtualWidth:     240,
		VirtualHeight:    160,
		SurfaceRow:       7,
		SaveEverySeconds: 5,
		SaveKey:          "ChunkMap",
		Physics: Physics{
			Gravity:           p.Gravity,
			WalkSpeed:         p.WalkSpeed,
			MaxSpeed:          p.MaxSpeed,
			JumpSpeed:         p.JumpSpeed,
			JumpImpulse:       p.JumpImpulse,
			JetpackImpulse:    p.JetpackImpulse,
			JetpackTime:       p.JetpackTime,
			ScrollSensitivity: p.ScrollSensitivity,
		},
		Player: Body{Width: p.Width, Height: p.Height},
	}
}

// Load reads a tuning file. Keys missing from the file keep their defaults.
func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Tuning, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if doc != nil {
		if err := validate(doc); err != nil {
			return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
		}
	}
	t := Defaults()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.VirtualWidth%t.TileSize != 0 || t.VirtualHeight%t.TileSize != 0 {
		return Tuning{}, fmt.Errorf("tuning.yaml: virtual size %dx%d is not a multiple of tile_size %d",
			t.VirtualWidth, t.VirtualHeight, t.TileSize)
	}
	return t, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("tuning.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("tuning.schema.json")
	})
	return schema, schemaErr
}

// validate checks a decoded YAML document against the embedded schema. The
// document goes through a JSON round trip so numbers have JSON types.
func validate(doc any) error {
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

// Layout is the tile and chunk geometry; a chunk is one virtual screen.
func (t Tuning) Layout() space.Layout {
	return space.Layout{
		Tile:  space.Dims{W: t.TileSize, H: t.TileSize},
		Chunk: space.Dims{W: t.VirtualWidth / t.TileSize, H: t.VirtualHeight / t.TileSize},
	}
}

func (t Tuning) Virtual() geom.Vec2 {
	return geom.V(float64(t.VirtualWidth), float64(t.VirtualHeight))
}

// PlayerParams spawns the player at the center of the first screen.
func (t Tuning) PlayerParams() player.Params {
	return player.Params{
		Gravity:           t.Physics.Gravity,
		WalkSpeed:         t.Physics.WalkSpeed,
		MaxSpeed:          t.Physics.MaxSpeed,
		JumpSpeed:         t.Physics.JumpSpeed,
		JumpImpulse:       t.Physics.JumpImpulse,
		JetpackImpulse:    t.Physics.JetpackImpulse,
		JetpackTime:       t.Physics.JetpackTime,
		ScrollSensitivity: t.Physics.ScrollSensitivity,
		Width:             t.Player.Width,
		Height:            t.Player.Height,
		Spawn:             t.Virtual().Scale(0.5),
	}
}
