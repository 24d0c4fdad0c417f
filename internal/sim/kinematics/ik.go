package kinematics

import "math"

// reachEpsilon keeps the two-link triangle away from its singular fully
// stretched and fully folded poses.
const reachEpsilon = 0.02

// Solve returns the closed-form elbow-down joint solution that puts the
// suction tip at target, with the tool axis vertical. The target is
// clamped to the workspace first, so Solve never fails; callers that need
// the effective target can re-run the clamp themselves.
//
// The branch choice is fixed: always elbow-down. Switching branches
// mid-cycle would make the arm snap visibly, so there is no fallback.
func Solve(lt LinkTable, ws Workspace, mount, target Vec3) Joints {
	local := ws.Clamp(target.Sub(mount))

	// Base rotation aligns the arm plane with the target.
	th1 := math.Atan2(local.X, local.Z)

	r := math.Hypot(local.X, local.Z)

	// The tool points straight down, so the wrist center sits the full
	// tool length above the tip, plus the shoulder offset.
	wristY := local.Y + lt.D1 + lt.ToolTotal

	d := math.Hypot(r, wristY)
	if min := math.Abs(lt.A2-lt.A3) + reachEpsilon; d < min {
		d = min
	}
	if max := lt.A2 + lt.A3 - reachEpsilon; d > max {
		d = max
	}

	// Law of cosines, elbow-down sign.
	c3 := (lt.A2*lt.A2 + lt.A3*lt.A3 - d*d) / (2 * lt.A2 * lt.A3)
	th3 := -(math.Pi - math.Acos(clamp1(c3)))

	c2 := (lt.A2*lt.A2 + d*d - lt.A3*lt.A3) / (2 * lt.A2 * d)
	th2 := math.Atan2(-wristY, r) + math.Acos(clamp1(c2))

	// Wrist keeps the tool axis vertical and the cup facing the belt.
	th4 := 0.0
	th5 := math.Pi/2 - (th2 + th3)
	th6 := -th1

	return ClampLimits(Joints{th1, th2, th3, th4, th5, th6}, DefaultLimits)
}

// Tip is the forward-kinematic counterpart of Solve: the world-space
// suction-tip position for a joint vector. Used to drive the held box and
// to verify workspace safety in tests.
func Tip(lt LinkTable, mount Vec3, j Joints) Vec3 {
	u := lt.A2*math.Cos(j[1]) + lt.A3*math.Cos(j[1]+j[2])
	v := lt.A2*math.Sin(j[1]) + lt.A3*math.Sin(j[1]+j[2])

	r := u
	wristY := -v
	localY := wristY - lt.D1 - lt.ToolTotal

	return Vec3{
		X: mount.X + r*math.Sin(j[0]),
		Y: mount.Y + localY,
		Z: mount.Z + r*math.Cos(j[0]),
	}
}

func clamp1(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
