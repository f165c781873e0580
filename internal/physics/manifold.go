package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// Manifold is the result of a positive collision test between Ref and Other.
// Normal is unit length and points from Ref toward Other.
type Manifold struct {
	Ref   *Box
	Other *Box

	Normal  rl.Vector3
	Overlap float32 // penetration depth along Normal, >= 0
	Axis    AxisID  // candidate axis Normal came from

	// TimeOfImpact is when the swept test first saw contact; zero for stationary tests.
	TimeOfImpact float32
}

// Key returns the pair key of the owning bodies. Boxes without an owner use ID 0.
func (m Manifold) Key() PairKey {
	return NewPairKey(ownerID(m.Ref), ownerID(m.Other))
}

// PairKey identifies an unordered pair of bodies across ticks.
type PairKey struct {
	A, B int64 // A <= B
}

// NewPairKey builds the key for a and b in either order.
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Has reports whether id is one of the pair.
func (k PairKey) Has(id int64) bool {
	return k.A == id || k.B == id
}

// Partner returns the other id of the pair.
func (k PairKey) Partner(id int64) int64 {
	if k.A == id {
		return k.B
	}
	return k.A
}

func ownerID(b *Box) int64 {
	if b == nil || b.owner == nil {
		return 0
	}
	return b.owner.ID()
}
