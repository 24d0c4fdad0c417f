package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"palletworks.dev/internal/sim/kinematics"
)

type WorldConfig struct {
	TickRateHz int
	SimSpeed   float64
	AutoPlay   bool

	Conveyor ConveyorConfig
	Box      BoxConfig
	Grid     GridConfig

	PalletTopY       float64
	TravelHeight     float64
	InitialSeedCount int

	Arms      []ArmConfig
	Pallets   []PalletConfig
	Links     kinematics.LinkTable
	Workspace kinematics.Workspace
	Forklifts ForkliftConfig
}

type ConveyorConfig struct {
	SpeedMPS        float64
	BeltY           float64
	XStart          float64
	XEnd            float64
	Z               float64
	MinFree         int
	Gap             float64
	PickupHalfWidth float64
}

type BoxConfig struct {
	W, H, D float64
}

type GridConfig struct {
	Rows, Cols, Layers int
}

func (g GridConfig) Capacity() int { return g.Rows * g.Cols * g.Layers }

type ArmConfig struct {
	Mount        kinematics.Vec3
	Side         float64
	TargetPallet int
}

type PalletConfig struct {
	Center kinematics.Vec3
}

type ForkliftConfig struct {
	EvacHome    kinematics.Vec3
	DeliverHome kinematics.Vec3
	Depot       kinematics.Vec3
	LegSeconds  float64
	LiftSeconds float64
}

// World is a single-threaded authoritative simulation of the palletizing
// cell. All state must be accessed only from the world loop goroutine;
// cross-goroutine callers go through the channels in runtime_loop.go.
type World struct {
	cfg WorldConfig

	tick    atomic.Uint64
	simTime float64
	playing bool
	speed   float64

	boxes     []*Box
	nextBoxID uint64

	arms    []*Arm
	pallets []*Pallet
	evac    *Forklift
	deliver *Forklift
	// One-slot handoff from the evacuating forklift to the delivering
	// one: the index of the pallet station that needs an empty.
	handoff chan int

	stats Stats

	clients      map[uint64]chan []byte
	nextViewerID atomic.Uint64

	control chan ControlEnvelope
	attach  chan AttachRequest
	leave   chan uint64
	stop    chan struct{}

	frameLogger FrameLogger
	didReset    bool

	metricsMu sync.Mutex
	metrics   WorldMetrics
}

// Stats are monotonic throughput counters, cleared only by Reset.
type Stats struct {
	BoxesSpawned    uint64
	BoxesPalletized uint64
	BoxesOverflowed uint64
	PalletsCycled   uint64
}

func New(cfg WorldConfig) (*World, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.SimSpeed == 0 {
		cfg.SimSpeed = 1
	}

	w := &World{
		cfg:     cfg,
		playing: cfg.AutoPlay,
		speed:   cfg.SimSpeed,
		handoff: make(chan int, 1),
		clients: make(map[uint64]chan []byte),
		control: make(chan ControlEnvelope, 64),
		attach:  make(chan AttachRequest, 8),
		leave:   make(chan uint64, 8),
		stop:    make(chan struct{}),
	}

	w.pallets = make([]*Pallet, len(cfg.Pallets))
	for i, pc := range cfg.Pallets {
		w.pallets[i] = &Pallet{Center: pc.Center, State: PalletActive}
	}

	w.arms = make([]*Arm, len(cfg.Arms))
	for i, ac := range cfg.Arms {
		w.arms[i] = newArm(w, i, ac)
	}

	w.evac = newForklift(RoleEvacuate, cfg.Forklifts.EvacHome)
	w.deliver = newForklift(RoleDeliver, cfg.Forklifts.DeliverHome)

	w.seedBoxes()
	return w, nil
}

func validateConfig(cfg WorldConfig) error {
	if cfg.TickRateHz <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", cfg.TickRateHz)
	}
	if cfg.SimSpeed < 0 {
		return fmt.Errorf("sim speed must be non-negative, got %g", cfg.SimSpeed)
	}
	if cfg.Conveyor.XEnd <= cfg.Conveyor.XStart {
		return fmt.Errorf("conveyor end %g must be past start %g", cfg.Conveyor.XEnd, cfg.Conveyor.XStart)
	}
	if cfg.Conveyor.SpeedMPS < 0 {
		return fmt.Errorf("belt speed must be non-negative, got %g", cfg.Conveyor.SpeedMPS)
	}
	if cfg.Box.W <= 0 || cfg.Box.H <= 0 || cfg.Box.D <= 0 {
		return fmt.Errorf("box dimensions must be positive, got %+v", cfg.Box)
	}
	if cfg.Grid.Capacity() <= 0 {
		return fmt.Errorf("pallet grid must have positive capacity, got %+v", cfg.Grid)
	}
	if cfg.InitialSeedCount < 0 {
		return fmt.Errorf("initial seed count must be non-negative, got %d", cfg.InitialSeedCount)
	}
	if len(cfg.Arms) == 0 {
		return fmt.Errorf("no arms configured")
	}
	if len(cfg.Pallets) == 0 {
		return fmt.Errorf("no pallet stations configured")
	}
	for i, ac := range cfg.Arms {
		if ac.TargetPallet < 0 || ac.TargetPallet >= len(cfg.Pallets) {
			return fmt.Errorf("arm %d: target pallet %d out of range [0, %d)", i, ac.TargetPallet, len(cfg.Pallets))
		}
	}
	if cfg.Links.A2 <= 0 || cfg.Links.A3 <= 0 {
		return fmt.Errorf("link table arm lengths must be positive, got %+v", cfg.Links)
	}
	if cfg.Workspace.ReachMax <= cfg.Workspace.ReachMin {
		return fmt.Errorf("reach interval [%g, %g] is empty", cfg.Workspace.ReachMin, cfg.Workspace.ReachMax)
	}
	if cfg.Forklifts.LegSeconds <= 0 || cfg.Forklifts.LiftSeconds <= 0 {
		return fmt.Errorf("forklift durations must be positive, got %+v", cfg.Forklifts)
	}
	return nil
}

// Tick advances the whole cell by dt seconds of wall time at the given
// speed multiplier. Update order is fixed: conveyor, arms in index order,
// evacuating forklift, delivering forklift. A zero effective step mutates
// nothing.
func (w *World) Tick(dt, speed float64) {
	if dt < 0 {
		dt = 0
	}
	if speed < 0 {
		speed = 0
	}
	eff := dt * speed
	if eff <= 0 {
		return
	}

	w.stepConveyor(eff)
	for _, a := range w.arms {
		a.step(w, eff)
	}
	w.evac.step(w, eff)
	w.deliver.step(w, eff)

	w.simTime += eff
	w.tick.Add(1)
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Config() WorldConfig { return w.cfg }

// SimTime is accumulated effective seconds (dt x speed) since init/reset.
func (w *World) SimTime() float64 { return w.simTime }

func (w *World) spawnBoxAt(x float64) *Box {
	w.nextBoxID++
	b := &Box{
		ID:    w.nextBoxID,
		Pos:   Vec3{X: x, Y: w.cfg.Conveyor.BeltY + w.cfg.Box.H/2, Z: w.cfg.Conveyor.Z},
		State: BoxOnConveyor,
		Arm:   -1,
	}
	w.boxes = append(w.boxes, b)
	w.stats.BoxesSpawned++
	return b
}

// removeBox drops b from the live set. Order of the remaining boxes is
// preserved; the tick path must stay deterministic.
func (w *World) removeBox(b *Box) {
	for i, o := range w.boxes {
		if o == b {
			w.boxes = append(w.boxes[:i], w.boxes[i+1:]...)
			return
		}
	}
}

func (w *World) boxByID(id uint64) *Box {
	for _, b := range w.boxes {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (w *World) seedBoxes() {
	stride := w.cfg.Box.W + w.cfg.Conveyor.Gap
	for i := 0; i < w.cfg.InitialSeedCount; i++ {
		x := w.cfg.Conveyor.XStart + stride*float64(i)
		if x > w.cfg.Conveyor.XEnd {
			break
		}
		w.spawnBoxAt(x)
	}
}
