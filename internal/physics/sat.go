package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// NoCollision is returned by CollisionTime when the projections never overlap within the
// timestep.
const NoCollision float32 = -1

// TestCollision runs the continuous separating axis test over deltaTime. Each box starts at
// its recorded path start (or cached center) and moves at its cached velocity.
//
// The reported normal is the axis on which the projections start overlapping last, i.e. the
// face or edge the boxes actually meet on. If the boxes already overlap on every axis at the
// start of the sweep the stationary selection is used instead.
func (b *Box) TestCollision(other *Box, deltaTime float32) (Manifold, bool) {
	startDelta := rl.Vector3Subtract(other.sweepStart(), b.sweepStart())
	relVel := rl.Vector3Subtract(other.velocity, b.velocity)

	enterMax := float32(0)
	exitMin := math32.Inf(1)
	best := AxisNone
	bestEnter := float32(-1)
	var bestAxis rl.Vector3
	var bestSide float32

	for _, id := range allAxes {
		axis, ok := axisVector(id, b, other)
		if !ok {
			continue
		}
		r := b.ProjectedRadius(axis) + other.ProjectedRadius(axis)
		s := rl.Vector3DotProduct(startDelta, axis)
		u := rl.Vector3DotProduct(relVel, axis)

		enter := float32(0)
		if math32.Abs(s) >= r {
			enter = firstContact(s, u, r)
			if enter < 0 || enter > deltaTime {
				return Manifold{}, false
			}
			if enter > bestEnter {
				best = id
				bestEnter = enter
				bestAxis = axis
				bestSide = s
			}
		}
		exit := lastContact(s, u, r)

		enterMax = math32.Max(enterMax, enter)
		exitMin = math32.Min(exitMin, exit)
		if enterMax > exitMin {
			return Manifold{}, false
		}
	}

	if best == AxisNone {
		return b.TestCollisionStationary(other)
	}

	normal := bestAxis
	if bestSide < 0 {
		normal = rl.Vector3Negate(normal)
	}
	return Manifold{
		Ref:          b,
		Other:        other,
		Normal:       normal,
		Overlap:      math32.Max(0, b.AxisOverlap(normal, other)),
		Axis:         best,
		TimeOfImpact: bestEnter,
	}, true
}

// TestCollisionStationary tests for overlap at the cached centers. Touching boxes do not
// collide.
//
// The normal is the axis that was last to stop separating the pair during the recorded move,
// which stays stable while boxes rest on each other. Without a separating history the axis
// of minimum overlap is used.
func (b *Box) TestCollisionStationary(other *Box) (Manifold, bool) {
	delta := rl.Vector3Subtract(other.center, b.center)

	minOverlap := math32.Inf(1)
	minID := AxisNone
	for _, id := range allAxes {
		axis, ok := axisVector(id, b, other)
		if !ok {
			continue
		}
		overlap := b.ProjectedRadius(axis) + other.ProjectedRadius(axis) - math32.Abs(rl.Vector3DotProduct(delta, axis))
		if overlap <= 0 {
			return Manifold{}, false
		}
		if overlap < minOverlap {
			minOverlap = overlap
			minID = id
		}
	}
	if minID == AxisNone {
		return Manifold{}, false
	}

	chosen := minID
	history := separationHistory(b, other)
	if last := history.LastSeparatingAxis(); last != AxisNone {
		chosen = last
	}

	normal, _ := axisVector(chosen, b, other)
	if rl.Vector3DotProduct(delta, normal) < 0 {
		normal = rl.Vector3Negate(normal)
	}
	return Manifold{
		Ref:     b,
		Other:   other,
		Normal:  normal,
		Overlap: b.AxisOverlap(normal, other),
		Axis:    chosen,
	}, true
}

// AxisOverlap returns how far the two boxes' projections onto axisNorm overlap at their
// cached centers. Zero or less means the axis separates them.
func (b *Box) AxisOverlap(axisNorm rl.Vector3, other *Box) float32 {
	axis, ok := unit(axisNorm)
	if !ok {
		return 0
	}
	delta := rl.Vector3Subtract(other.center, b.center)
	return b.ProjectedRadius(axis) + other.ProjectedRadius(axis) - math32.Abs(rl.Vector3DotProduct(delta, axis))
}

// penetration is the depth of other into b measured against the direction of normal, so a
// pair that crossed over each other during a tick still reports a positive depth.
func (b *Box) penetration(normal rl.Vector3, other *Box) float32 {
	delta := rl.Vector3Subtract(other.center, b.center)
	return b.ProjectedRadius(normal) + other.ProjectedRadius(normal) - rl.Vector3DotProduct(delta, normal)
}

// CollisionTime returns when, within [0, deltaTime], the projections onto axisNorm first
// overlap, or NoCollision.
func (b *Box) CollisionTime(axisNorm rl.Vector3, other *Box, deltaTime float32) float32 {
	axis, ok := unit(axisNorm)
	if !ok {
		return NoCollision
	}
	r := b.ProjectedRadius(axis) + other.ProjectedRadius(axis)
	s := rl.Vector3DotProduct(rl.Vector3Subtract(other.sweepStart(), b.sweepStart()), axis)
	u := rl.Vector3DotProduct(rl.Vector3Subtract(other.velocity, b.velocity), axis)
	t := firstContact(s, u, r)
	if t < 0 || t > deltaTime {
		return NoCollision
	}
	return t
}

// firstContact returns the earliest t >= 0 with |s + u*t| <= r, or -1 if there is none.
func firstContact(s, u, r float32) float32 {
	switch {
	case s >= r:
		if u >= 0 {
			return -1
		}
		return (s - r) / -u
	case s <= -r:
		if u <= 0 {
			return -1
		}
		return (-r - s) / u
	}
	return 0
}

// lastContact returns the latest t >= 0 with |s + u*t| <= r, +Inf if they never part.
func lastContact(s, u, r float32) float32 {
	switch {
	case u > 0:
		return (r - s) / u
	case u < 0:
		return (r + s) / -u
	}
	return math32.Inf(1)
}

func unit(v rl.Vector3) (rl.Vector3, bool) {
	l := rl.Vector3Length(v)
	if l < axisEpsilon {
		return rl.Vector3{}, false
	}
	if math32.Abs(l-1) < 1e-6 {
		return v, true
	}
	return rl.Vector3Scale(v, 1/l), true
}
