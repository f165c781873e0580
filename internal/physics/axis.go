package physics

import (
	"fmt"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// axisEpsilon is the minimum length of a cross product axis. Shorter axes come from
// (nearly) parallel edges and are treated as non-separating.
const axisEpsilon = 1e-4

// AxisID names one of the 15 candidate separating axes of a box pair.
type AxisID uint8

const (
	AxisNone AxisID = iota
	AxisRef0
	AxisRef1
	AxisRef2
	AxisOther0
	AxisOther1
	AxisOther2
	axisCrossBase // AxisCross(0, 0)
)

// NumAxes is the number of candidate axes between two boxes.
const NumAxes = 15

// AxisCross returns the id of refAxis(i) × otherAxis(j).
func AxisCross(i, j int) AxisID {
	return axisCrossBase + AxisID(j+3*i)
}

// allAxes lists the candidate axes in test order: reference faces, other faces, edges.
var allAxes = func() [NumAxes]AxisID {
	var ids [NumAxes]AxisID
	n := 0
	for id := AxisRef0; id <= AxisOther2; id++ {
		ids[n] = id
		n++
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ids[n] = AxisCross(i, j)
			n++
		}
	}
	return ids
}()

// IsCross reports whether the axis is an edge-edge cross product.
func (id AxisID) IsCross() bool {
	return id >= axisCrossBase && id < axisCrossBase+9
}

// index maps an id to 0..14 for table lookups.
func (id AxisID) index() int {
	return int(id) - int(AxisRef0)
}

func (id AxisID) String() string {
	switch {
	case id == AxisNone:
		return "none"
	case id >= AxisRef0 && id <= AxisRef2:
		return fmt.Sprintf("ref%d", id-AxisRef0)
	case id >= AxisOther0 && id <= AxisOther2:
		return fmt.Sprintf("other%d", id-AxisOther0)
	case id.IsCross():
		c := int(id - axisCrossBase)
		return fmt.Sprintf("ref%dxother%d", c/3, c%3)
	}
	return fmt.Sprintf("AxisID(%d)", uint8(id))
}

// axisVector resolves an id to a unit world axis. ok is false for degenerate cross axes.
func axisVector(id AxisID, ref, other *Box) (rl.Vector3, bool) {
	switch {
	case id >= AxisRef0 && id <= AxisRef2:
		return ref.axes[id-AxisRef0], true
	case id >= AxisOther0 && id <= AxisOther2:
		return other.axes[id-AxisOther0], true
	case id.IsCross():
		c := int(id - axisCrossBase)
		axis := rl.Vector3CrossProduct(ref.axes[c/3], other.axes[c%3])
		l := rl.Vector3Length(axis)
		if l < axisEpsilon {
			return rl.Vector3{}, false
		}
		return rl.Vector3Scale(axis, 1/l), true
	}
	return rl.Vector3{}, false
}

// SeparationHistory remembers, per candidate axis, whether the axis separated the pair at
// the start of the last recorded move and when it stopped separating.
type SeparationHistory struct {
	separated [NumAxes]bool
	entry     [NumAxes]float32
}

// Separated reports whether the axis was separating at the start of the last move.
func (h *SeparationHistory) Separated(id AxisID) bool {
	return h.separated[id.index()]
}

// LastSeparatingAxis returns the axis that kept the pair apart the longest during the
// last move, or AxisNone if no axis was separating when the move began.
func (h *SeparationHistory) LastSeparatingAxis() AxisID {
	best := AxisNone
	bestEntry := float32(-1)
	for _, id := range allAxes {
		if h.Separated(id) && h.entry[id.index()] > bestEntry {
			best = id
			bestEntry = h.entry[id.index()]
		}
	}
	return best
}

// separationHistory evaluates every axis against the recorded paths of both boxes. Boxes
// with no recorded path are treated as having stood still at their cached center.
func separationHistory(ref, other *Box) SeparationHistory {
	var h SeparationHistory
	refMove := pathOf(ref)
	otherMove := pathOf(other)
	startDelta := rl.Vector3Subtract(otherMove.Start, refMove.Start)
	relMove := rl.Vector3Subtract(
		rl.Vector3Subtract(otherMove.End, otherMove.Start),
		rl.Vector3Subtract(refMove.End, refMove.Start),
	)
	for _, id := range allAxes {
		axis, ok := axisVector(id, ref, other)
		if !ok {
			continue
		}
		sep, entry := separationAt(axis, ref, other, startDelta, relMove)
		h.separated[id.index()] = sep
		h.entry[id.index()] = entry
	}
	return h
}

// separationAt reports whether the axis separates the boxes when their centers differ by
// startDelta, and the fraction of relMove after which the projections first overlap
// (2 when they never do).
func separationAt(axis rl.Vector3, ref, other *Box, startDelta, relMove rl.Vector3) (bool, float32) {
	r := ref.ProjectedRadius(axis) + other.ProjectedRadius(axis)
	s := rl.Vector3DotProduct(startDelta, axis)
	if math32.Abs(s) < r {
		return false, 0
	}
	u := rl.Vector3DotProduct(relMove, axis)
	t := firstContact(s, u, r)
	if t < 0 {
		return true, 2
	}
	return true, t
}

func pathOf(b *Box) MoveInfo {
	if m, ok := b.LastMove(); ok {
		return m
	}
	return MoveInfo{Start: b.center, End: b.center}
}
