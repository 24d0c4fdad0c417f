package world

import (
	"math"

	"palletworks.dev/internal/sim/kinematics"
)

type ForkliftRole uint8

const (
	RoleEvacuate ForkliftRole = iota
	RoleDeliver
)

func (r ForkliftRole) String() string {
	if r == RoleEvacuate {
		return "evacuate_full"
	}
	return "deliver_empty"
}

type ForkliftPhase uint8

const (
	ForkIdle ForkliftPhase = iota
	ForkApproach
	ForkLift
	ForkDepart
	ForkFetch
	ForkPlace
	ForkReturn
)

func (p ForkliftPhase) String() string {
	switch p {
	case ForkIdle:
		return "idle"
	case ForkApproach:
		return "approach"
	case ForkLift:
		return "lift"
	case ForkDepart:
		return "depart"
	case ForkFetch:
		return "fetch"
	case ForkPlace:
		return "place"
	default:
		return "return"
	}
}

// Forklift is one of the two pallet-service vehicles. The evacuator runs
// idle -> approach -> lift -> depart -> return; the deliverer runs
// idle -> fetch -> place -> return. They meet only through the world's
// one-slot handoff queue.
type Forklift struct {
	Role ForkliftRole
	Home kinematics.Vec3

	Pos      kinematics.Vec3
	Yaw      float64
	Phase    ForkliftPhase
	T        float64
	Target   int
	Carrying bool

	start kinematics.Vec3
	dest  kinematics.Vec3
}

func newForklift(role ForkliftRole, home kinematics.Vec3) *Forklift {
	return &Forklift{Role: role, Home: home, Pos: home, Target: -1}
}

func (f *Forklift) reset() {
	f.Pos = f.Home
	f.Yaw = 0
	f.Phase = ForkIdle
	f.T = 0
	f.Target = -1
	f.Carrying = false
}

func (f *Forklift) step(w *World, eff float64) {
	if f.Role == RoleEvacuate {
		f.stepEvacuate(w, eff)
	} else {
		f.stepDeliver(w, eff)
	}
}

func (f *Forklift) stepEvacuate(w *World, eff float64) {
	switch f.Phase {
	case ForkIdle:
		for i, p := range w.pallets {
			if p.State == PalletRemoving {
				f.Target = i
				f.beginLeg(ForkApproach, w.palletStand(i))
				break
			}
		}

	case ForkApproach:
		f.move(w, eff)
		if f.T >= 1 {
			f.Phase = ForkLift
			f.T = 0
		}

	case ForkLift:
		f.T += eff / w.cfg.Forklifts.LiftSeconds
		if f.T >= 1 {
			f.Carrying = true
			f.beginLeg(ForkDepart, w.cfg.Forklifts.Depot)
		}

	case ForkDepart:
		f.move(w, eff)
		if f.T >= 1 {
			// Hand the empty slot to the deliverer. If it is still busy
			// with the previous slot, wait at the depot and retry.
			select {
			case w.handoff <- f.Target:
				p := w.pallets[f.Target]
				p.State = PalletAbsent
				p.Count = 0
				f.Carrying = false
				f.beginLeg(ForkReturn, f.Home)
			default:
			}
		}

	case ForkReturn:
		f.move(w, eff)
		if f.T >= 1 {
			f.Phase = ForkIdle
			f.T = 0
			f.Target = -1
		}
	}
}

func (f *Forklift) stepDeliver(w *World, eff float64) {
	switch f.Phase {
	case ForkIdle:
		select {
		case idx := <-w.handoff:
			f.Target = idx
			f.Carrying = true
			f.beginLeg(ForkFetch, w.palletStand(idx))
		default:
		}

	case ForkFetch:
		f.move(w, eff)
		if f.T >= 1 {
			f.Phase = ForkPlace
			f.T = 0
		}

	case ForkPlace:
		f.T += eff / w.cfg.Forklifts.LiftSeconds
		if f.T >= 1 {
			p := w.pallets[f.Target]
			p.Count = 0
			p.State = PalletActive
			w.stats.PalletsCycled++
			f.Carrying = false
			f.beginLeg(ForkReturn, f.Home)
		}

	case ForkReturn:
		f.move(w, eff)
		if f.T >= 1 {
			f.Phase = ForkIdle
			f.T = 0
			f.Target = -1
		}
	}
}

func (f *Forklift) beginLeg(phase ForkliftPhase, dest kinematics.Vec3) {
	f.Phase = phase
	f.T = 0
	f.start = f.Pos
	f.dest = dest
	dx := dest.X - f.Pos.X
	dz := dest.Z - f.Pos.Z
	if math.Hypot(dx, dz) > 1e-9 {
		f.Yaw = math.Atan2(dx, dz)
	}
}

func (f *Forklift) move(w *World, eff float64) {
	f.T += eff / w.cfg.Forklifts.LegSeconds
	if f.T > 1 {
		f.T = 1
	}
	f.Pos = kinematics.LerpVec(f.start, f.dest, kinematics.Smoothstep(f.T))
}

// palletStand is where a forklift parks to service pallet i: one bay
// outboard of the station, away from the belt.
func (w *World) palletStand(i int) kinematics.Vec3 {
	c := w.pallets[i].Center
	off := 0.9
	if c.Z < 0 {
		off = -0.9
	}
	return kinematics.Vec3{X: c.X, Y: c.Y, Z: c.Z + off}
}
