package kinematics

import "math"

// Vec3 is a point or offset in world space. +Y is up; the conveyor runs
// along +X.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

func (v Vec3) ToArray() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func FromArray(a [3]float64) Vec3 { return Vec3{a[0], a[1], a[2]} }

// Joints is one angle per axis, base to wrist, in radians.
type Joints [6]float64

// LinkTable holds the fixed geometry of a UR-style six-axis arm, ceiling
// mounted with the base pointing down. Distances are in world units
// (meters in the default cell).
type LinkTable struct {
	D1 float64 // shoulder offset along the (downward) base axis
	A2 float64 // upper-arm length
	A3 float64 // forearm length
	D4 float64 // wrist 1 offset
	D5 float64 // wrist 2 offset
	D6 float64 // flange offset
	// ToolTotal is gripper body plus suction cup, flange to tip.
	ToolTotal float64
}

// MaxReach is the planar stretch of the two main links. The usable radius
// is kept below it; see Workspace.
func (lt LinkTable) MaxReach() float64 { return lt.A2 + lt.A3 }

// Workspace bounds the tip target relative to the mount. ReachMin/ReachMax
// bound the horizontal radius from the mount axis, DropMin/DropMax bound
// how far below the mount the tip may sit (keeps the tool clear of the
// gantry beam and the floor).
type Workspace struct {
	ReachMin float64
	ReachMax float64
	DropMin  float64
	DropMax  float64
}

// Clamp pulls a mount-local tip target inside the workspace. The radial
// clamp scales the whole offset, so the clamped point stays on the ray
// from the mount through the requested target; only the floor/gantry
// clamp may move it off the ray.
func (ws Workspace) Clamp(local Vec3) Vec3 {
	r := math.Hypot(local.X, local.Z)
	if r < 1e-9 {
		// Directly under the mount: no azimuth to preserve, push out to
		// the near edge of the annulus.
		local = Vec3{X: 0, Y: local.Y, Z: ws.ReachMin}
	} else if ws.ReachMax > 0 && r > ws.ReachMax {
		local = local.Scale(ws.ReachMax / r)
	} else if ws.ReachMin > 0 && r < ws.ReachMin {
		local = local.Scale(ws.ReachMin / r)
	}
	if ws.DropMax > 0 && local.Y < -ws.DropMax {
		local.Y = -ws.DropMax
	}
	if ws.DropMin > 0 && local.Y > -ws.DropMin {
		local.Y = -ws.DropMin
	}
	return local
}

// JointLimit is a closed angle interval in radians.
type JointLimit struct {
	Min float64
	Max float64
}

// DefaultLimits matches the UR-class envelope: two full turns on the base
// and wrist axes, one turn on shoulder, elbow and wrist 2.
var DefaultLimits = [6]JointLimit{
	{-2 * math.Pi, 2 * math.Pi},
	{-math.Pi, math.Pi},
	{-math.Pi, math.Pi},
	{-2 * math.Pi, 2 * math.Pi},
	{-math.Pi, math.Pi},
	{-2 * math.Pi, 2 * math.Pi},
}

// ClampLimits folds every joint into its limit interval.
func ClampLimits(j Joints, limits [6]JointLimit) Joints {
	for i := range j {
		if j[i] < limits[i].Min {
			j[i] = limits[i].Min
		} else if j[i] > limits[i].Max {
			j[i] = limits[i].Max
		}
	}
	return j
}
