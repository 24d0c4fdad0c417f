package world

import "palletworks.dev/internal/sim/kinematics"

// Vec3 aliases the kinematics vector so world code and IK share one type.
type Vec3 = kinematics.Vec3

type BoxState uint8

const (
	BoxOnConveyor BoxState = iota
	BoxBeingPicked
	BoxOnPallet
	BoxRemoved
)

func (s BoxState) String() string {
	switch s {
	case BoxOnConveyor:
		return "on_conveyor"
	case BoxBeingPicked:
		return "being_picked"
	case BoxOnPallet:
		return "on_pallet"
	default:
		return "removed"
	}
}

// Box is a carton riding the belt or hanging from a gripper. Pos is the
// center of the box. Arm is the index of the arm that reserved it, -1
// while unassigned.
type Box struct {
	ID    uint64
	Pos   Vec3
	State BoxState
	Arm   int
}

type PalletState uint8

const (
	PalletActive PalletState = iota
	PalletRemoving
	PalletAbsent
)

func (s PalletState) String() string {
	switch s {
	case PalletActive:
		return "active"
	case PalletRemoving:
		return "removing"
	default:
		return "absent"
	}
}

// Pallet is one rotating pallet station. Count is the number of placed
// boxes; slot positions are derived from it, see palletSlot.
type Pallet struct {
	Center Vec3
	Count  int
	State  PalletState
}
