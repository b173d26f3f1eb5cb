package protocol_test

import (
	"encoding/json"
	"strings"
	"testing"

	"tilecraft.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(name string, v any) {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := protocol.ValidateRaw(name, b); err != nil {
			t.Fatalf("%s: %v\n%s", name, err, b)
		}
	}

	validate("subscribe.schema.json", protocol.SubscribeMsg{
		Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, Control: true,
	})
	validate("bootstrap.schema.json", protocol.BootstrapMsg{
		Type:            protocol.TypeBootstrap,
		ProtocolVersion: protocol.Version,
		WorldID:         "world_1",
		TickRateHz:      60,
		TileSize:        [2]int{16, 16},
		ChunkSize:       [2]int{15, 10},
		Virtual:         [2]int{240, 160},
		Palette:         []string{"Air", "Dirt"},
		PaletteDigest:   strings.Repeat("ab", 32),
		Inventory:       []string{"Dirt"},
	})
	validate("frame.schema.json", protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            42,
		Focus:           [2]int{-1, 0},
		Player: protocol.PlayerState{
			Pos:    [2]float64{120.5, 80},
			Size:   [2]int{10, 16},
			Facing: "LEFT",
			Sprite: 11,
			Slot:   2,
			Item:   "Log",
		},
		Chunks: []protocol.ChunkFrame{
			{CX: -1, CY: 0, Digest: strings.Repeat("0f", 32), Tiles: "AQI="},
			{CX: 0, CY: 0, Digest: strings.Repeat("0f", 32)},
		},
	})
	validate("intent.schema.json", protocol.IntentMsg{
		Type:            protocol.TypeIntent,
		ProtocolVersion: protocol.Version,
		MoveRight:       true,
		WheelDelta:      -1,
		Cursor:          &[2]float64{10, -3.5},
	})
}

func TestSchemas_RejectBadIntent(t *testing.T) {
	bad := []string{
		`{"type":"FRAME","protocol_version":"1.0"}`,
		`{"type":"INTENT","protocol_version":"1.0","teleport":true}`,
		`{"type":"INTENT","protocol_version":"1.0","cursor":[1]}`,
		`{"type":"INTENT","protocol_version":"1.0","wheel_delta":1000}`,
		`{"type":"INTENT"}`,
	}
	for _, raw := range bad {
		if err := protocol.ValidateRaw("intent.schema.json", []byte(raw)); err == nil {
			t.Fatalf("accepted %s", raw)
		}
	}
}

func TestSchemaUnknown(t *testing.T) {
	if _, err := protocol.Schema("nope.schema.json"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"INTENT","protocol_version":"1.0","jump_held":true}`))
	if err != nil || m.Type != protocol.TypeIntent || m.ProtocolVersion != protocol.Version {
		t.Fatalf("DecodeBase = %+v, %v", m, err)
	}
}

func TestErrorCodes(t *testing.T) {
	e := protocol.NewError(protocol.ErrReadOnly, "read-only session")
	if e.Type != protocol.TypeError || !protocol.IsKnownCode(e.Code) {
		t.Fatalf("error msg = %+v", e)
	}
	if protocol.IsKnownCode("E_NOPE") {
		t.Fatalf("unknown code accepted")
	}
}
