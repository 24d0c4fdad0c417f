// Package worldtest drives the whole cell through the public world API,
// the way the server and replay tool do. The unit tests inside the world
// package poke at internals; these stay on the outside.
package worldtest

import (
	"testing"

	"palletworks.dev/internal/sim/kinematics"
	"palletworks.dev/internal/sim/world"
)

const DT = 1.0 / 30

// DefaultConfig is the shipped four-arm cell.
func DefaultConfig() world.WorldConfig {
	arms := []world.ArmConfig{
		{Mount: kinematics.Vec3{X: -1.8, Y: 2.1, Z: 0.7}, Side: 1, TargetPallet: 0},
		{Mount: kinematics.Vec3{X: -0.6, Y: 2.1, Z: -0.7}, Side: -1, TargetPallet: 1},
		{Mount: kinematics.Vec3{X: 0.6, Y: 2.1, Z: 0.7}, Side: 1, TargetPallet: 2},
		{Mount: kinematics.Vec3{X: 1.8, Y: 2.1, Z: -0.7}, Side: -1, TargetPallet: 3},
	}
	pallets := make([]world.PalletConfig, len(arms))
	for i, a := range arms {
		pallets[i] = world.PalletConfig{Center: kinematics.Vec3{X: a.Mount.X, Z: a.Side * 1.7}}
	}
	return world.WorldConfig{
		TickRateHz: 30,
		SimSpeed:   1,
		AutoPlay:   true,
		Conveyor: world.ConveyorConfig{
			SpeedMPS: 0.18, BeltY: 0.75, XStart: -3.2, XEnd: 3.2,
			MinFree: 6, Gap: 0.12, PickupHalfWidth: 0.45,
		},
		Box:              world.BoxConfig{W: 0.30, H: 0.22, D: 0.24},
		Grid:             world.GridConfig{Rows: 2, Cols: 3, Layers: 4},
		PalletTopY:       0.55,
		TravelHeight:     1.50,
		InitialSeedCount: 6,
		Arms:             arms,
		Pallets:          pallets,
		Links: kinematics.LinkTable{
			D1: 0.18, A2: 0.82, A3: 0.72, D4: 0.12, D5: 0.10, D6: 0.09, ToolTotal: 0.25,
		},
		Workspace: kinematics.Workspace{ReachMin: 0.30, ReachMax: 1.45, DropMin: 0.35, DropMax: 1.50},
		Forklifts: world.ForkliftConfig{
			EvacHome:    kinematics.Vec3{X: -4.5, Z: 3},
			DeliverHome: kinematics.Vec3{X: 4.5, Z: 3},
			Depot:       kinematics.Vec3{Z: 4.5},
			LegSeconds:  2.5,
			LiftSeconds: 0.8,
		},
	}
}

func NewWorld(t *testing.T, cfg world.WorldConfig) *world.World {
	t.Helper()
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

// RunFor steps simSeconds of effective time at speed 1 and returns the
// final digest.
func RunFor(w *world.World, simSeconds float64) string {
	n := int(simSeconds / DT)
	var digest string
	for i := 0; i < n; i++ {
		_, digest = w.StepOnce(DT, 1)
	}
	return digest
}
