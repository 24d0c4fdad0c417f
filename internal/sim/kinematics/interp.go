package kinematics

import "math"

// Smoothstep maps t in [0,1] onto the classic ease-in-ease-out cubic.
// Inputs outside the interval are clamped.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

func LerpVec(a, b Vec3, t float64) Vec3 {
	return Vec3{Lerp(a.X, b.X, t), Lerp(a.Y, b.Y, t), Lerp(a.Z, b.Z, t)}
}

// AngleDelta is the shortest signed rotation from a to b, in (-pi, pi].
func AngleDelta(a, b float64) float64 {
	d := math.Mod(b-a, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// LerpJoints interpolates per joint along the shortest angular path.
func LerpJoints(a, b Joints, t float64) Joints {
	var out Joints
	for i := range a {
		out[i] = a[i] + AngleDelta(a[i], b[i])*t
	}
	return out
}

// Approach moves cur toward target by the fraction alpha (clamped to 1),
// per joint, along the shortest angular path. This is the per-frame gain
// blend the arm controller uses on fresh IK solutions.
func Approach(cur Joints, target Joints, alpha float64) Joints {
	if alpha >= 1 {
		return target
	}
	if alpha <= 0 {
		return cur
	}
	var out Joints
	for i := range cur {
		out[i] = cur[i] + AngleDelta(cur[i], target[i])*alpha
	}
	return out
}
