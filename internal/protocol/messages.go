package protocol

// HELLO (viewer -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ViewerName      string `json:"viewer_name"`
}

// WELCOME (server -> viewer). CellParams carries every static quantity a
// renderer needs to build the scene; after this, FRAME messages are pure
// pose updates.
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ViewerID        string     `json:"viewer_id"`
	CellParams      CellParams `json:"cell_params"`
}

type CellParams struct {
	TickRateHz   int          `json:"tick_rate_hz"`
	Conveyor     ConveyorDesc `json:"conveyor"`
	BoxDims      [3]float64   `json:"box_dims"`    // w, h, d
	PalletGrid   [3]int       `json:"pallet_grid"` // rows, cols, layers
	PalletTopY   float64      `json:"pallet_top_y"`
	TravelHeight float64      `json:"travel_height"`
	Links        LinkDesc     `json:"links"`
	ArmMounts    [][3]float64 `json:"arm_mounts"`
	ArmSides     []float64    `json:"arm_sides"`
	Pallets      [][3]float64 `json:"pallet_centers"`
}

type ConveyorDesc struct {
	SpeedMPS float64 `json:"speed_mps"`
	BeltY    float64 `json:"belt_y"`
	XStart   float64 `json:"x_start"`
	XEnd     float64 `json:"x_end"`
	Z        float64 `json:"z"`
}

type LinkDesc struct {
	D1        float64 `json:"d1"`
	A2        float64 `json:"a2"`
	A3        float64 `json:"a3"`
	D4        float64 `json:"d4"`
	D5        float64 `json:"d5"`
	D6        float64 `json:"d6"`
	ToolTotal float64 `json:"tool_total"`
}

// CONTROL (viewer -> server): the user control surface.
type ControlMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Cmd             string  `json:"cmd"` // "play" | "pause" | "reset" | "set_speed"
	Speed           float64 `json:"speed,omitempty"`
}

// Control commands.
const (
	CmdPlay     = "play"
	CmdPause    = "pause"
	CmdReset    = "reset"
	CmdSetSpeed = "set_speed"
)

// FRAME (server -> viewer): one read-only snapshot per tick.
type FrameMsg struct {
	Type    string  `json:"type"`
	Tick    uint64  `json:"tick"`
	SimTime float64 `json:"sim_time"`
	Speed   float64 `json:"speed"`
	Playing bool    `json:"playing"`

	Boxes     []BoxView      `json:"boxes"`
	Arms      []ArmView      `json:"arms"`
	Pallets   []PalletView   `json:"pallets"`
	Forklifts []ForkliftView `json:"forklifts"`
}

type BoxView struct {
	ID    uint64     `json:"id"`
	Pos   [3]float64 `json:"pos"`
	State string     `json:"state"`
}

type ArmView struct {
	Idx    int        `json:"idx"`
	Joints [6]float64 `json:"joints"`
	Tip    [3]float64 `json:"tip"`
	Phase  string     `json:"phase"`
	// HeldBox is the id of the carried box, 0 when empty-handed.
	HeldBox uint64 `json:"held_box,omitempty"`
}

type PalletView struct {
	Idx      int        `json:"idx"`
	Center   [3]float64 `json:"center"`
	Count    int        `json:"count"`
	Capacity int        `json:"capacity"`
	State    string     `json:"state"`
}

type ForkliftView struct {
	Role     string     `json:"role"`
	Pos      [3]float64 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	Phase    string     `json:"phase"`
	Carrying bool       `json:"carrying"`
}

// ERROR (server -> viewer)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
