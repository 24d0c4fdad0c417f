package world

import (
	"testing"

	"palletworks.dev/internal/sim/kinematics"
)

// testConfig mirrors the shipped defaults: four arms, four pallet
// stations, a 6.4 m belt at 30 Hz.
func testConfig() WorldConfig {
	arms := []ArmConfig{
		{Mount: kinematics.Vec3{X: -1.8, Y: 2.1, Z: 0.7}, Side: 1, TargetPallet: 0},
		{Mount: kinematics.Vec3{X: -0.6, Y: 2.1, Z: -0.7}, Side: -1, TargetPallet: 1},
		{Mount: kinematics.Vec3{X: 0.6, Y: 2.1, Z: 0.7}, Side: 1, TargetPallet: 2},
		{Mount: kinematics.Vec3{X: 1.8, Y: 2.1, Z: -0.7}, Side: -1, TargetPallet: 3},
	}
	pallets := make([]PalletConfig, len(arms))
	for i, a := range arms {
		pallets[i] = PalletConfig{Center: kinematics.Vec3{X: a.Mount.X, Z: a.Side * 1.7}}
	}
	return WorldConfig{
		TickRateHz: 30,
		SimSpeed:   1,
		Conveyor: ConveyorConfig{
			SpeedMPS:        0.18,
			BeltY:           0.75,
			XStart:          -3.2,
			XEnd:            3.2,
			MinFree:         6,
			Gap:             0.12,
			PickupHalfWidth: 0.45,
		},
		Box:              BoxConfig{W: 0.30, H: 0.22, D: 0.24},
		Grid:             GridConfig{Rows: 2, Cols: 3, Layers: 4},
		PalletTopY:       0.55,
		TravelHeight:     1.50,
		InitialSeedCount: 6,
		Arms:             arms,
		Pallets:          pallets,
		Links: kinematics.LinkTable{
			D1: 0.18, A2: 0.82, A3: 0.72,
			D4: 0.12, D5: 0.10, D6: 0.09,
			ToolTotal: 0.25,
		},
		Workspace: kinematics.Workspace{
			ReachMin: 0.30, ReachMax: 1.45,
			DropMin: 0.35, DropMax: 1.50,
		},
		Forklifts: ForkliftConfig{
			EvacHome:    kinematics.Vec3{X: -4.5, Z: 3},
			DeliverHome: kinematics.Vec3{X: 4.5, Z: 3},
			Depot:       kinematics.Vec3{Z: 4.5},
			LegSeconds:  2.5,
			LiftSeconds: 0.8,
		},
	}
}

// singleArmConfig isolates one arm over a stopped belt with exactly one
// box parked inside its pickup window.
func singleArmConfig() WorldConfig {
	cfg := testConfig()
	cfg.Arms = cfg.Arms[:1]
	cfg.Pallets = cfg.Pallets[:1]
	cfg.Conveyor.SpeedMPS = 0
	cfg.Conveyor.MinFree = 0
	cfg.Conveyor.XStart = -1.94
	cfg.InitialSeedCount = 1
	return cfg
}

const testDT = 1.0 / 30

func TestNew_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*WorldConfig)
	}{
		{"zero tick rate", func(c *WorldConfig) { c.TickRateHz = 0 }},
		{"negative speed", func(c *WorldConfig) { c.SimSpeed = -1 }},
		{"inverted belt", func(c *WorldConfig) { c.Conveyor.XEnd = c.Conveyor.XStart }},
		{"zero box", func(c *WorldConfig) { c.Box.H = 0 }},
		{"empty grid", func(c *WorldConfig) { c.Grid.Layers = 0 }},
		{"no arms", func(c *WorldConfig) { c.Arms = nil }},
		{"no pallets", func(c *WorldConfig) { c.Pallets = nil }},
		{"pallet out of range", func(c *WorldConfig) { c.Arms[0].TargetPallet = 99 }},
		{"zero link", func(c *WorldConfig) { c.Links.A2 = 0 }},
		{"empty reach band", func(c *WorldConfig) { c.Workspace.ReachMax = c.Workspace.ReachMin }},
		{"zero leg time", func(c *WorldConfig) { c.Forklifts.LegSeconds = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatalf("New accepted bad config")
			}
		})
	}
}

func TestWorld_SeedsInitialBoxes(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(w.boxes); got != 6 {
		t.Fatalf("seeded %d boxes, want 6", got)
	}
	stride := w.cfg.Box.W + w.cfg.Conveyor.Gap
	for i, b := range w.boxes {
		wantX := w.cfg.Conveyor.XStart + stride*float64(i)
		if diff := b.Pos.X - wantX; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("box %d at x=%g, want %g", i, b.Pos.X, wantX)
		}
		if b.State != BoxOnConveyor || b.Arm != -1 {
			t.Fatalf("box %d not free on belt: %+v", i, b)
		}
	}
	if b := w.boxByID(1); b == nil || b != w.boxes[0] {
		t.Fatalf("boxByID(1) = %v, want first seeded box", b)
	}
	if w.boxByID(999) != nil {
		t.Fatal("boxByID returned a box for an unknown id")
	}
}

func TestTick_PausedAndZeroSpeedMutateNothing(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		w.Tick(testDT, 1)
	}
	before := w.Digest()

	w.Tick(testDT, 0) // speed zero
	w.Tick(0, 1)      // zero dt
	w.Tick(-1, 2)     // negative dt clamps to zero

	if after := w.Digest(); after != before {
		t.Fatalf("zero-effective tick changed state:\n before %s\n after  %s", before, after)
	}
}

func TestTick_SpeedScalesLikeLongerSteps(t *testing.T) {
	w1, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	w2, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		w1.Tick(testDT, 2)
		w2.Tick(2*testDT, 1)
	}
	if d1, d2 := w1.Digest(), w2.Digest(); d1 != d2 {
		t.Fatalf("dt*speed not equivalent:\n w1 %s\n w2 %s", d1, d2)
	}
}

func TestWorld_BoxConservation(t *testing.T) {
	w, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 600; i++ {
		w.Tick(testDT, 1)
	}

	live := uint64(len(w.boxes))
	total := w.stats.BoxesPalletized + w.stats.BoxesOverflowed + live
	if total != w.stats.BoxesSpawned {
		t.Fatalf("box accounting broken: spawned=%d palletized=%d overflowed=%d live=%d",
			w.stats.BoxesSpawned, w.stats.BoxesPalletized, w.stats.BoxesOverflowed, live)
	}
	if w.stats.BoxesPalletized == 0 {
		t.Fatal("no boxes palletized after 20 sim seconds")
	}
}
