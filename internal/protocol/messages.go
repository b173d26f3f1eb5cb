package protocol

// SUBSCRIBE (client -> server). First message on a connection. Control
// clients may send INTENT; read-only clients only receive frames.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Control         bool   `json:"control,omitempty"`
}

// BOOTSTRAP (server -> client). Static world parameters.
type BootstrapMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	WorldID         string   `json:"world_id"`
	Tick            uint64   `json:"tick"`
	TickRateHz      int      `json:"tick_rate_hz"`
	TileSize        [2]int   `json:"tile_size"`
	ChunkSize       [2]int   `json:"chunk_size"`
	Virtual         [2]int   `json:"virtual"`
	Palette         []string `json:"palette"`
	PaletteDigest   string   `json:"palette_digest"`
	Inventory       []string `json:"inventory"`
}

// FRAME (server -> client). Sent every tick. Tiles is only present for
// chunks whose digest the client has not seen yet.
type FrameMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Focus           [2]int       `json:"focus"`
	Player          PlayerState  `json:"player"`
	Chunks          []ChunkFrame `json:"chunks"`
	Unsaved         bool         `json:"unsaved,omitempty"`
}

type PlayerState struct {
	Pos      [2]float64 `json:"pos"`
	Size     [2]int     `json:"size"`
	Speed    [2]float64 `json:"speed"`
	Facing   string     `json:"facing"`
	Sprite   uint32     `json:"sprite"`
	Slot     int        `json:"slot"`
	Item     string     `json:"item"`
	Descent  bool       `json:"descent,omitempty"`
	SeenWood bool       `json:"seen_wood,omitempty"`
}

// ChunkFrame is one chunk of the 3x3 neighborhood around the focus. Tiles is
// the base64 RLE of the row-major tile ids.
type ChunkFrame struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	Digest string `json:"digest"`
	Tiles  string `json:"tiles,omitempty"`
}

// INTENT (client -> server). One tick of resolved input; Cursor is in world
// pixels.
type IntentMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	MoveLeft        bool        `json:"move_left,omitempty"`
	MoveRight       bool        `json:"move_right,omitempty"`
	JumpHeld        bool        `json:"jump_held,omitempty"`
	JumpPressed     bool        `json:"jump_pressed,omitempty"`
	Descend         bool        `json:"descend,omitempty"`
	Respawn         bool        `json:"respawn,omitempty"`
	WheelDelta      int         `json:"wheel_delta,omitempty"`
	Primary         bool        `json:"primary,omitempty"`
	Secondary       bool        `json:"secondary,omitempty"`
	Cursor          *[2]float64 `json:"cursor,omitempty"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
