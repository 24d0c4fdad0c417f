package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int     `yaml:"tick_rate_hz"`
	SimSpeed   float64 `yaml:"sim_speed"`
	AutoPlay   bool    `yaml:"auto_play"`

	Conveyor Conveyor `yaml:"conveyor"`
	Box      Box      `yaml:"box"`
	Grid     Grid     `yaml:"pallet_grid"`

	PalletTopY       float64   `yaml:"pallet_top_y"`
	TravelHeight     float64   `yaml:"travel_height"`
	InitialSeedCount int       `yaml:"initial_seed_count"`
	Arms             []Arm     `yaml:"arms"`
	Pallets          []Pallet  `yaml:"pallets"`
	Links            Links     `yaml:"links"`
	Workspace        Workspace `yaml:"workspace"`
	Forklifts        Forklifts `yaml:"forklifts"`
}

type Conveyor struct {
	SpeedMPS        float64 `yaml:"speed_mps"`
	BeltY           float64 `yaml:"belt_y"`
	XStart          float64 `yaml:"x_start"`
	XEnd            float64 `yaml:"x_end"`
	Z               float64 `yaml:"z"`
	MinFree         int     `yaml:"min_free"`
	Gap             float64 `yaml:"gap"`
	PickupHalfWidth float64 `yaml:"pickup_half_width"`
}

type Box struct {
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
	D float64 `yaml:"d"`
}

type Grid struct {
	Rows   int `yaml:"rows"`
	Cols   int `yaml:"cols"`
	Layers int `yaml:"layers"`
}

// Capacity is boxes per pallet.
func (g Grid) Capacity() int { return g.Rows * g.Cols * g.Layers }

type Arm struct {
	Mount        [3]float64 `yaml:"mount"`
	Side         float64    `yaml:"side"` // +1 or -1: which side of the belt
	TargetPallet int        `yaml:"target_pallet"`
}

type Pallet struct {
	Center [3]float64 `yaml:"center"`
}

type Links struct {
	D1        float64 `yaml:"d1"`
	A2        float64 `yaml:"a2"`
	A3        float64 `yaml:"a3"`
	D4        float64 `yaml:"d4"`
	D5        float64 `yaml:"d5"`
	D6        float64 `yaml:"d6"`
	ToolTotal float64 `yaml:"tool_total"`
}

type Workspace struct {
	ReachMin float64 `yaml:"reach_min"`
	ReachMax float64 `yaml:"reach_max"`
	DropMin  float64 `yaml:"drop_min"`
	DropMax  float64 `yaml:"drop_max"`
}

type Forklifts struct {
	EvacHome    [3]float64 `yaml:"evac_home"`
	DeliverHome [3]float64 `yaml:"deliver_home"`
	Depot       [3]float64 `yaml:"depot"`
	LegSeconds  float64    `yaml:"leg_seconds"`
	LiftSeconds float64    `yaml:"lift_seconds"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Defaults is the reference four-arm cell: a 6.4 m belt with two arms per
// side, pallet stations outboard of each arm, stylized UR-class links.
func Defaults() Tuning {
	arms := []Arm{
		{Mount: [3]float64{-1.8, 2.1, 0.7}, Side: 1, TargetPallet: 0},
		{Mount: [3]float64{-0.6, 2.1, -0.7}, Side: -1, TargetPallet: 1},
		{Mount: [3]float64{0.6, 2.1, 0.7}, Side: 1, TargetPallet: 2},
		{Mount: [3]float64{1.8, 2.1, -0.7}, Side: -1, TargetPallet: 3},
	}
	pallets := make([]Pallet, len(arms))
	for i, a := range arms {
		pallets[i] = Pallet{Center: [3]float64{a.Mount[0], 0, a.Side * 1.7}}
	}
	return Tuning{
		TickRateHz: 30,
		SimSpeed:   1.0,
		AutoPlay:   true,
		Conveyor: Conveyor{
			SpeedMPS:        0.18,
			BeltY:           0.75,
			XStart:          -3.2,
			XEnd:            3.2,
			Z:               0,
			MinFree:         6,
			Gap:             0.12,
			PickupHalfWidth: 0.45,
		},
		Box:              Box{W: 0.30, H: 0.22, D: 0.24},
		Grid:             Grid{Rows: 2, Cols: 3, Layers: 4},
		PalletTopY:       0.55,
		TravelHeight:     1.50,
		InitialSeedCount: 6,
		Arms:             arms,
		Pallets:          pallets,
		Links: Links{
			D1: 0.18, A2: 0.82, A3: 0.72,
			D4: 0.12, D5: 0.10, D6: 0.09,
			ToolTotal: 0.25,
		},
		Workspace: Workspace{
			ReachMin: 0.30,
			ReachMax: 1.45,
			DropMin:  0.35,
			DropMax:  1.50,
		},
		Forklifts: Forklifts{
			EvacHome:    [3]float64{-4.5, 0, 3.0},
			DeliverHome: [3]float64{4.5, 0, 3.0},
			Depot:       [3]float64{0, 0, 4.5},
			LegSeconds:  2.5,
			LiftSeconds: 0.8,
		},
	}
}

// Validate rejects configurations the simulation cannot start with.
// Called once at init; failures are fatal.
func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.SimSpeed < 0 {
		return fmt.Errorf("sim_speed must be non-negative, got %g", t.SimSpeed)
	}
	if t.Conveyor.SpeedMPS < 0 {
		return fmt.Errorf("conveyor.speed_mps must be non-negative, got %g", t.Conveyor.SpeedMPS)
	}
	if t.Conveyor.XEnd <= t.Conveyor.XStart {
		return fmt.Errorf("conveyor x_end (%g) must be greater than x_start (%g)", t.Conveyor.XEnd, t.Conveyor.XStart)
	}
	if t.Box.W <= 0 || t.Box.H <= 0 || t.Box.D <= 0 {
		return fmt.Errorf("box dimensions must be positive, got %+v", t.Box)
	}
	if t.Grid.Rows <= 0 || t.Grid.Cols <= 0 || t.Grid.Layers <= 0 {
		return fmt.Errorf("pallet_grid dimensions must be positive, got %+v", t.Grid)
	}
	if t.InitialSeedCount < 0 {
		return fmt.Errorf("initial_seed_count must be non-negative, got %d", t.InitialSeedCount)
	}
	if len(t.Arms) == 0 {
		return fmt.Errorf("at least one arm is required")
	}
	if len(t.Pallets) == 0 {
		return fmt.Errorf("at least one pallet station is required")
	}
	for i, a := range t.Arms {
		if a.TargetPallet < 0 || a.TargetPallet >= len(t.Pallets) {
			return fmt.Errorf("arms[%d].target_pallet %d out of range [0, %d)", i, a.TargetPallet, len(t.Pallets))
		}
		if a.Side != 1 && a.Side != -1 {
			return fmt.Errorf("arms[%d].side must be +1 or -1, got %g", i, a.Side)
		}
	}
	if t.Links.A2 <= 0 || t.Links.A3 <= 0 || t.Links.ToolTotal < 0 {
		return fmt.Errorf("link table must have positive arm lengths, got %+v", t.Links)
	}
	if t.Workspace.ReachMax <= t.Workspace.ReachMin {
		return fmt.Errorf("workspace reach_max (%g) must exceed reach_min (%g)", t.Workspace.ReachMax, t.Workspace.ReachMin)
	}
	if t.Workspace.ReachMax >= t.Links.A2+t.Links.A3 {
		return fmt.Errorf("workspace reach_max (%g) must stay below a2+a3 (%g)", t.Workspace.ReachMax, t.Links.A2+t.Links.A3)
	}
	if t.Forklifts.LegSeconds <= 0 || t.Forklifts.LiftSeconds <= 0 {
		return fmt.Errorf("forklift leg/lift durations must be positive, got %+v", t.Forklifts)
	}
	return nil
}
