package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

type RaycastHit struct {
	Body     Body
	Point    rl.Vector3
	Normal   rl.Vector3
	Distance float32
}

// Raycast returns the closest body hit by ray within maxDistance. Only octree candidates
// along the ray are tested.
func (w *World) Raycast(ray rl.Ray, maxDistance float32) (RaycastHit, bool) {
	direction, ok := unit(ray.Direction)
	if !ok || maxDistance <= 0 {
		return RaycastHit{}, false
	}
	ray.Direction = direction

	var closestHit RaycastHit
	closestHit.Distance = maxDistance
	hit := false

	for _, b := range w.tree.RetrieveRay(ray, maxDistance) {
		if !canCollide(b) {
			continue
		}
		if hitInfo, ok := RaycastBox(ray, b.Box(), maxDistance); ok && hitInfo.Distance < closestHit.Distance {
			closestHit = hitInfo
			closestHit.Body = b
			hit = true
		}
	}
	return closestHit, hit
}

// RaycastBox intersects a ray with a unit direction against an oriented box. The slab test
// runs in the box's local frame. A ray starting inside the box hits the face it leaves
// through.
func RaycastBox(ray rl.Ray, box *Box, maxDistance float32) (RaycastHit, bool) {
	rel := rl.Vector3Subtract(ray.Position, box.center)

	tmin := math32.Inf(-1)
	tmax := math32.Inf(1)
	enterAxis, exitAxis := -1, -1
	var enterSign, exitSign float32

	for i := 0; i < 3; i++ {
		o := rl.Vector3DotProduct(rel, box.axes[i])
		d := rl.Vector3DotProduct(ray.Direction, box.axes[i])
		e := box.extents[i]

		if math32.Abs(d) < 1e-8 {
			if o < -e || o > e {
				return RaycastHit{}, false
			}
			continue
		}
		t1 := (-e - o) / d
		t2 := (e - o) / d
		// Entering through the -e face gives an outward normal of -axis.
		s1, s2 := float32(-1), float32(1)
		if t1 > t2 {
			t1, t2 = t2, t1
			s1, s2 = s2, s1
		}
		if t1 > tmin {
			tmin = t1
			enterAxis, enterSign = i, s1
		}
		if t2 < tmax {
			tmax = t2
			exitAxis, exitSign = i, s2
		}
		if tmin > tmax {
			return RaycastHit{}, false
		}
	}

	if tmax < 0 || tmin > maxDistance {
		return RaycastHit{}, false
	}

	t, axis, sign := tmin, enterAxis, enterSign
	if t < 0 {
		t, axis, sign = tmax, exitAxis, exitSign
	}
	if t > maxDistance || axis < 0 {
		return RaycastHit{}, false
	}

	return RaycastHit{
		Point:    rl.Vector3Add(ray.Position, rl.Vector3Scale(ray.Direction, t)),
		Normal:   rl.Vector3Scale(box.axes[axis], sign),
		Distance: t,
	}, true
}
