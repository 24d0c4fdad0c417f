package world

import (
	"math"

	"palletworks.dev/internal/sim/kinematics"
)

type ArmPhase uint8

const (
	ArmIdle ArmPhase = iota
	ArmMoveToBox
	ArmReachBox
	ArmGrab
	ArmLiftBox
	ArmMoveToPallet
	ArmPlaceBox
	ArmRelease
	ArmRetract
	ArmReturn
)

func (p ArmPhase) String() string {
	switch p {
	case ArmIdle:
		return "idle"
	case ArmMoveToBox:
		return "move_to_box"
	case ArmReachBox:
		return "reach_box"
	case ArmGrab:
		return "grab"
	case ArmLiftBox:
		return "lift_box"
	case ArmMoveToPallet:
		return "move_to_pallet"
	case ArmPlaceBox:
		return "place_box"
	case ArmRelease:
		return "release"
	case ArmRetract:
		return "retract"
	default:
		return "return"
	}
}

// needsPallet reports whether the phase depends on the target pallet
// still being on station. Retract and return only move the arm itself.
func (p ArmPhase) needsPallet() bool {
	return p >= ArmMoveToBox && p <= ArmRelease
}

// Seconds per phase at speed 1.
var armPhaseSeconds = [...]float64{
	ArmIdle:         0,
	ArmMoveToBox:    0.70,
	ArmReachBox:     0.35,
	ArmGrab:         0.15,
	ArmLiftBox:      0.35,
	ArmMoveToPallet: 0.90,
	ArmPlaceBox:     0.40,
	ArmRelease:      0.15,
	ArmRetract:      0.35,
	ArmReturn:       0.50,
}

// armJointGain is the per-second blend rate from the current joints onto
// the fresh IK solution while a phase is in flight. At phase completion
// the blend snaps, so phase boundaries are exact.
const armJointGain = 12.0

// approachClearance is how far above a box top the tool hovers before the
// final descent; gripSlack is the residual gap at grab.
const (
	approachClearance = 0.25
	gripSlack         = 0.005
)

// Arm is one ceiling-mounted six-axis palletizer. It owns at most one box
// at a time: TargetBox while reaching for it, HeldBox from grab until the
// cycle ends.
type Arm struct {
	Idx       int
	Mount     kinematics.Vec3
	Side      float64
	PalletIdx int

	Joints kinematics.Joints
	Home   kinematics.Joints
	Tip    kinematics.Vec3

	Phase ArmPhase
	T     float64

	TargetBox *Box
	HeldBox   *Box

	startTip    kinematics.Vec3
	startJoints kinematics.Joints
	targetPos   kinematics.Vec3
	slotPos     kinematics.Vec3
}

func newArm(w *World, idx int, cfg ArmConfig) *Arm {
	a := &Arm{
		Idx:       idx,
		Mount:     cfg.Mount,
		Side:      cfg.Side,
		PalletIdx: cfg.TargetPallet,
	}
	homeTip := kinematics.Vec3{
		X: cfg.Mount.X,
		Y: w.cfg.TravelHeight,
		Z: cfg.Mount.Z - cfg.Side*0.45,
	}
	a.Home = kinematics.Solve(w.cfg.Links, w.cfg.Workspace, a.Mount, homeTip)
	a.Joints = a.Home
	a.Tip = kinematics.Tip(w.cfg.Links, a.Mount, a.Joints)
	return a
}

func (a *Arm) reset(w *World) {
	a.Phase = ArmIdle
	a.T = 0
	a.TargetBox = nil
	a.HeldBox = nil
	a.Joints = a.Home
	a.Tip = kinematics.Tip(w.cfg.Links, a.Mount, a.Joints)
}

func (a *Arm) step(w *World, eff float64) {
	pallet := w.pallets[a.PalletIdx]

	// Pallet went off station mid-cycle: abandon. The held box, if any,
	// is gone with the cycle; a merely reserved box goes back to the
	// belt's books.
	if a.Phase.needsPallet() && pallet.State != PalletActive {
		a.abort(w)
	}

	switch a.Phase {
	case ArmIdle:
		if pallet.State == PalletActive && pallet.Count < w.cfg.Grid.Capacity() {
			if b := w.claimableBox(a); b != nil {
				b.Arm = a.Idx
				a.TargetBox = b
				a.begin(w, ArmMoveToBox)
				return
			}
		}
		a.idleSway(w, eff)

	case ArmMoveToBox:
		a.advance(w, eff)
		if a.T >= 1 {
			a.begin(w, ArmReachBox)
		}

	case ArmReachBox:
		a.advance(w, eff)
		if a.T >= 1 {
			a.begin(w, ArmGrab)
		}

	case ArmGrab:
		a.advance(w, eff)
		if a.T >= 1 {
			// Attach. From here the box rides the tool tip.
			a.TargetBox.State = BoxBeingPicked
			a.HeldBox, a.TargetBox = a.TargetBox, nil
			a.begin(w, ArmLiftBox)
		}

	case ArmLiftBox:
		a.advance(w, eff)
		if a.T >= 1 {
			a.begin(w, ArmMoveToPallet)
		}

	case ArmMoveToPallet:
		a.advance(w, eff)
		if a.T >= 1 {
			a.begin(w, ArmPlaceBox)
		}

	case ArmPlaceBox:
		a.advance(w, eff)
		if a.T >= 1 {
			a.begin(w, ArmRelease)
		}

	case ArmRelease:
		a.advance(w, eff)
		if a.T >= 1 {
			// Detach: the box is absorbed into the stack.
			a.HeldBox.State = BoxOnPallet
			w.removeBox(a.HeldBox)
			w.depositBox(a.PalletIdx)
			a.begin(w, ArmRetract)
		}

	case ArmRetract:
		a.advance(w, eff)
		if a.T >= 1 {
			a.begin(w, ArmReturn)
		}

	case ArmReturn:
		dur := armPhaseSeconds[ArmReturn]
		a.T += eff / dur
		if a.T > 1 {
			a.T = 1
		}
		a.Joints = kinematics.LerpJoints(a.startJoints, a.Home, kinematics.Smoothstep(a.T))
		a.Tip = kinematics.Tip(w.cfg.Links, a.Mount, a.Joints)
		if a.T >= 1 {
			a.HeldBox = nil
			a.Phase = ArmIdle
			a.T = 0
		}
	}
}

// begin enters the next phase, freezing interpolation endpoints. Tip
// targets are fixed at entry (a claimed box no longer moves), so each
// phase is a single smoothstep segment in world space.
func (a *Arm) begin(w *World, phase ArmPhase) {
	a.Phase = phase
	a.T = 0
	a.startTip = a.Tip
	a.startJoints = a.Joints

	switch phase {
	case ArmMoveToBox:
		a.targetPos = a.boxTop(w, a.TargetBox)
		a.targetPos.Y += approachClearance
	case ArmReachBox, ArmGrab:
		a.targetPos = a.boxTop(w, a.TargetBox)
		a.targetPos.Y += gripSlack
	case ArmLiftBox:
		a.targetPos = kinematics.Vec3{X: a.Tip.X, Y: w.cfg.TravelHeight, Z: a.Tip.Z}
	case ArmMoveToPallet:
		p := w.pallets[a.PalletIdx]
		a.slotPos = w.palletSlot(p, p.Count)
		a.targetPos = kinematics.Vec3{X: a.slotPos.X, Y: w.cfg.TravelHeight, Z: a.slotPos.Z}
	case ArmPlaceBox, ArmRelease:
		a.targetPos = kinematics.Vec3{X: a.slotPos.X, Y: a.slotPos.Y + w.cfg.Box.H/2, Z: a.slotPos.Z}
	case ArmRetract:
		a.targetPos = kinematics.Vec3{X: a.Tip.X, Y: w.cfg.TravelHeight, Z: a.Tip.Z}
	}
}

// advance moves the phase clock, runs IK on the interpolated tip target,
// and blends the joints onto the solution. The held box follows the tip.
func (a *Arm) advance(w *World, eff float64) {
	dur := armPhaseSeconds[a.Phase]
	if dur <= 0 {
		a.T = 1
	} else {
		a.T += eff / dur
		if a.T > 1 {
			a.T = 1
		}
	}

	cur := kinematics.LerpVec(a.startTip, a.targetPos, kinematics.Smoothstep(a.T))
	sol := kinematics.Solve(w.cfg.Links, w.cfg.Workspace, a.Mount, cur)

	alpha := armJointGain * eff
	if a.T >= 1 {
		alpha = 1
	}
	a.Joints = kinematics.Approach(a.Joints, sol, alpha)
	a.Tip = kinematics.Tip(w.cfg.Links, a.Mount, a.Joints)

	if a.HeldBox != nil && a.HeldBox.State == BoxBeingPicked {
		a.HeldBox.Pos = kinematics.Vec3{X: a.Tip.X, Y: a.Tip.Y - w.cfg.Box.H/2, Z: a.Tip.Z}
	}
}

// idleSway drifts the joints around the home pose so a parked arm does
// not look frozen. Pure function of sim time, so it replays exactly.
func (a *Arm) idleSway(w *World, eff float64) {
	phase := w.simTime*1.3 + float64(a.Idx)*1.7
	target := a.Home
	target[0] += 0.05 * math.Sin(phase)
	target[1] += 0.03 * math.Sin(phase*0.8)
	target[3] += 0.08 * math.Sin(phase*0.6)

	alpha := 6 * eff
	if alpha > 1 {
		alpha = 1
	}
	a.Joints = kinematics.Approach(a.Joints, target, alpha)
	a.Tip = kinematics.Tip(w.cfg.Links, a.Mount, a.Joints)
}

// abort drops the current cycle. A held box is destroyed with it; a box
// that was only reserved is released back to the conveyor.
func (a *Arm) abort(w *World) {
	if a.HeldBox != nil && a.HeldBox.State == BoxBeingPicked {
		a.HeldBox.State = BoxRemoved
		w.removeBox(a.HeldBox)
	}
	if a.TargetBox != nil {
		a.TargetBox.Arm = -1
	}
	a.TargetBox = nil
	a.HeldBox = nil
	a.begin(w, ArmReturn)
}

func (a *Arm) boxTop(w *World, b *Box) kinematics.Vec3 {
	return kinematics.Vec3{X: b.Pos.X, Y: b.Pos.Y + w.cfg.Box.H/2, Z: b.Pos.Z}
}

// claimableBox scans the belt for the first free box inside this arm's
// pickup window. Scan order is box age, which favors the box closest to
// falling off the end.
func (w *World) claimableBox(a *Arm) *Box {
	half := w.cfg.Conveyor.PickupHalfWidth
	for _, b := range w.boxes {
		if b.State != BoxOnConveyor || b.Arm >= 0 {
			continue
		}
		if math.Abs(b.Pos.X-a.Mount.X) <= half {
			return b
		}
	}
	return nil
}
