package physics

import (
	"errors"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// orthoEpsilon is the tolerance used when validating that box axes are unit length and
// mutually perpendicular.
const orthoEpsilon = 1e-3

var (
	ErrNegativeExtent     = errors.New("physics: box extents must be non-negative")
	ErrAxesNotOrthonormal = errors.New("physics: box axes must be orthonormal")
)

// MoveInfo is the path a box's center travelled over one tick.
type MoveInfo struct {
	Start rl.Vector3
	End   rl.Vector3
}

// Box is an oriented rectangular prism. The owning body sits at the box center, so the
// faces are at ±width/2, ±height/2 and ±length/2 along the three axes.
//
// Center and velocity are a shared cache: the contact resolver writes them as soon as a
// stage finishes, so a second contact on the same body in the same tick reads the values
// the first one produced. Resolution order is therefore observable.
type Box struct {
	extents [3]float32    // half width (x), half height (y), half length (z)
	axes    [3]rl.Vector3 // local x, y, z in world space

	center   rl.Vector3
	velocity rl.Vector3

	lastMove MoveInfo
	hasMove  bool

	owner Body
}

// NewBox creates a box from full width, height and length plus its three world axes.
func NewBox(w, h, l float32, wAxis, hAxis, lAxis rl.Vector3) (*Box, error) {
	if w < 0 || h < 0 || l < 0 {
		return nil, ErrNegativeExtent
	}
	axes := [3]rl.Vector3{wAxis, hAxis, lAxis}
	for i := 0; i < 3; i++ {
		if math32.Abs(rl.Vector3Length(axes[i])-1) > orthoEpsilon {
			return nil, ErrAxesNotOrthonormal
		}
		for j := i + 1; j < 3; j++ {
			if math32.Abs(rl.Vector3DotProduct(axes[i], axes[j])) > orthoEpsilon {
				return nil, ErrAxesNotOrthonormal
			}
		}
	}
	return &Box{
		extents: [3]float32{w / 2, h / 2, l / 2},
		axes:    axes,
	}, nil
}

// NewBoxFromRotation creates a box from center, full size and euler rotation (degrees),
// applied X then Y then Z.
func NewBoxFromRotation(center, size, rotation rl.Vector3) *Box {
	rotX := rl.MatrixRotateX(rotation.X * rl.Deg2rad)
	rotY := rl.MatrixRotateY(rotation.Y * rl.Deg2rad)
	rotZ := rl.MatrixRotateZ(rotation.Z * rl.Deg2rad)
	m := rl.MatrixMultiply(rl.MatrixMultiply(rotX, rotY), rotZ)

	return &Box{
		extents: [3]float32{math32.Abs(size.X) / 2, math32.Abs(size.Y) / 2, math32.Abs(size.Z) / 2},
		axes: [3]rl.Vector3{
			rl.Vector3Normalize(rl.Vector3{X: m.M0, Y: m.M1, Z: m.M2}),
			rl.Vector3Normalize(rl.Vector3{X: m.M4, Y: m.M5, Z: m.M6}),
			rl.Vector3Normalize(rl.Vector3{X: m.M8, Y: m.M9, Z: m.M10}),
		},
		center: center,
	}
}

// NewAxisAlignedBox creates a box with no rotation.
func NewAxisAlignedBox(center, size rl.Vector3) *Box {
	return &Box{
		extents: [3]float32{math32.Abs(size.X) / 2, math32.Abs(size.Y) / 2, math32.Abs(size.Z) / 2},
		axes: [3]rl.Vector3{
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		center: center,
	}
}

// Axis returns local axis i (0 = width, 1 = height, 2 = length) in world space.
func (b *Box) Axis(i int) rl.Vector3 { return b.axes[i] }

// Extent returns the half extent along axis i.
func (b *Box) Extent(i int) float32 { return b.extents[i] }

func (b *Box) Center() rl.Vector3 { return b.center }

func (b *Box) SetCenter(c rl.Vector3) { b.center = c }

func (b *Box) Velocity() rl.Vector3 { return b.velocity }

func (b *Box) SetVelocity(v rl.Vector3) { b.velocity = v }

func (b *Box) Owner() Body { return b.owner }

func (b *Box) SetOwner(owner Body) { b.owner = owner }

// BeginMove records the path the box will travel this tick at its current velocity.
func (b *Box) BeginMove(deltaTime float32) {
	b.lastMove = MoveInfo{
		Start: b.center,
		End:   rl.Vector3Add(b.center, rl.Vector3Scale(b.velocity, deltaTime)),
	}
	b.hasMove = true
}

// LastMove returns the recorded path and whether one has been recorded.
func (b *Box) LastMove() (MoveInfo, bool) {
	return b.lastMove, b.hasMove
}

// ClearMove forgets the recorded path.
func (b *Box) ClearMove() {
	b.lastMove = MoveInfo{}
	b.hasMove = false
}

// RewindTo moves the center back to where the recorded path start puts it after t seconds
// at the current velocity. It does nothing without a recorded path.
func (b *Box) RewindTo(t float32) {
	if !b.hasMove {
		return
	}
	b.center = rl.Vector3Add(b.lastMove.Start, rl.Vector3Scale(b.velocity, t))
}

// sweepStart is where continuous tests start the box from.
func (b *Box) sweepStart() rl.Vector3 {
	if b.hasMove {
		return b.lastMove.Start
	}
	return b.center
}

// ProjectedRadius is the half length of the box's shadow on a unit axis.
func (b *Box) ProjectedRadius(axis rl.Vector3) float32 {
	return b.extents[0]*math32.Abs(rl.Vector3DotProduct(b.axes[0], axis)) +
		b.extents[1]*math32.Abs(rl.Vector3DotProduct(b.axes[1], axis)) +
		b.extents[2]*math32.Abs(rl.Vector3DotProduct(b.axes[2], axis))
}

// halfSpan returns the world-space half size of the box's axis aligned bounds.
func (b *Box) halfSpan() rl.Vector3 {
	var span rl.Vector3
	for i := 0; i < 3; i++ {
		a := b.axes[i]
		e := b.extents[i]
		span.X += math32.Abs(a.X) * e
		span.Y += math32.Abs(a.Y) * e
		span.Z += math32.Abs(a.Z) * e
	}
	return span
}

// Bounds returns the world axis aligned bounds of the box at its cached center.
// Left/right, bottom/top and back/front are Min/Max on X, Y and Z.
func (b *Box) Bounds() rl.BoundingBox {
	span := b.halfSpan()
	return rl.BoundingBox{
		Min: rl.Vector3Subtract(b.center, span),
		Max: rl.Vector3Add(b.center, span),
	}
}

// SweptBounds covers the box at its sweep start and after moving at its velocity for
// deltaTime.
func (b *Box) SweptBounds(deltaTime float32) rl.BoundingBox {
	span := b.halfSpan()
	start := b.sweepStart()
	end := rl.Vector3Add(start, rl.Vector3Scale(b.velocity, deltaTime))
	if b.hasMove {
		end = b.lastMove.End
	}
	lo := rl.Vector3{X: math32.Min(start.X, end.X), Y: math32.Min(start.Y, end.Y), Z: math32.Min(start.Z, end.Z)}
	hi := rl.Vector3{X: math32.Max(start.X, end.X), Y: math32.Max(start.Y, end.Y), Z: math32.Max(start.Z, end.Z)}
	cur := b.Bounds()
	return rl.BoundingBox{
		Min: vecMin(rl.Vector3Subtract(lo, span), cur.Min),
		Max: vecMax(rl.Vector3Add(hi, span), cur.Max),
	}
}

// Corners returns the eight world-space vertices. The first four share the -length face.
func (b *Box) Corners() [8]rl.Vector3 {
	var out [8]rl.Vector3
	x := rl.Vector3Scale(b.axes[0], b.extents[0])
	y := rl.Vector3Scale(b.axes[1], b.extents[1])
	z := rl.Vector3Scale(b.axes[2], b.extents[2])
	signs := [8][3]float32{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	for i, s := range signs {
		p := b.center
		p = rl.Vector3Add(p, rl.Vector3Scale(x, s[0]))
		p = rl.Vector3Add(p, rl.Vector3Scale(y, s[1]))
		p = rl.Vector3Add(p, rl.Vector3Scale(z, s[2]))
		out[i] = p
	}
	return out
}

// ClosestPoint returns the point of the box nearest to p.
func (b *Box) ClosestPoint(p rl.Vector3) rl.Vector3 {
	local := rl.Vector3Subtract(p, b.center)
	result := b.center
	for i := 0; i < 3; i++ {
		d := clampf(rl.Vector3DotProduct(local, b.axes[i]), -b.extents[i], b.extents[i])
		result = rl.Vector3Add(result, rl.Vector3Scale(b.axes[i], d))
	}
	return result
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func vecMin(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: math32.Min(a.X, b.X), Y: math32.Min(a.Y, b.Y), Z: math32.Min(a.Z, b.Z)}
}

func vecMax(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: math32.Max(a.X, b.X), Y: math32.Max(a.Y, b.Y), Z: math32.Max(a.Z, b.Z)}
}

// roundTo4 rounds each component to four decimal places.
func roundTo4(v rl.Vector3) rl.Vector3 {
	r := func(x float32) float32 {
		return math32.Round(x*10000) / 10000
	}
	return rl.Vector3{X: r(v.X), Y: r(v.Y), Z: r(v.Z)}
}
