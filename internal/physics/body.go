package physics

import (
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Category decides how a body takes part in resolution.
type Category uint8

const (
	// CategoryStatic bodies never move and have infinite mass (floors, walls).
	CategoryStatic Category = iota
	// CategoryDynamic bodies are moved by gravity and contacts.
	CategoryDynamic
	// CategoryKinematic bodies move on their own velocity and are never pushed.
	CategoryKinematic
)

func (c Category) String() string {
	switch c {
	case CategoryStatic:
		return "static"
	case CategoryDynamic:
		return "dynamic"
	case CategoryKinematic:
		return "kinematic"
	}
	return "unknown"
}

// Material holds surface response coefficients, both in [0, 1].
type Material struct {
	Friction    float32 // 0 = ice, 1 = stops immediately
	Restitution float32 // rebound fraction, 0 = no bounce, 1 = perfect bounce
}

// MoveResult is the position and velocity a resolver hands back to a body.
type MoveResult struct {
	Position rl.Vector3
	Velocity rl.Vector3
}

// Body is what the collision core needs from the object that owns a box.
type Body interface {
	ID() int64
	Mass() float32
	Material() Material
	Category() Category
	GravityEnabled() bool
	Box() *Box
	SetFinalMove(MoveResult)
}

// inverseMass is zero for bodies that resolution must not move.
func inverseMass(b Body) float32 {
	if b == nil || b.Category() != CategoryDynamic || b.Mass() <= 0 {
		return 0
	}
	return 1 / b.Mass()
}

var entityCounter atomic.Int64

// NextEntityID returns a process-unique body id. Ids are never reused.
func NextEntityID() int64 {
	return entityCounter.Add(1)
}

// movingThreshold is the speed below which a body counts as at rest.
const movingThreshold = 0.01

// SurfaceData records the normal of a contact a body is currently part of.
type SurfaceData struct {
	Other  int64
	Normal rl.Vector3 // points away from the other body
}

// RigidBody is the stock Body implementation.
type RigidBody struct {
	id         int64
	box        *Box
	mass       float32
	material   Material
	category   Category
	useGravity bool

	CanCollide bool

	numCollisions int
	normals       []SurfaceData
	finalMove     MoveResult
}

// NewRigidBody creates a body owning box and attaches itself as the box owner.
func NewRigidBody(box *Box, category Category, mass float32, mat Material) *RigidBody {
	rb := &RigidBody{
		id:         NextEntityID(),
		box:        box,
		mass:       mass,
		material:   mat,
		category:   category,
		useGravity: category == CategoryDynamic,
		CanCollide: true,
	}
	if box != nil {
		box.SetOwner(rb)
		rb.finalMove = MoveResult{Position: box.Center(), Velocity: box.Velocity()}
	}
	return rb
}

func (r *RigidBody) ID() int64 { return r.id }

func (r *RigidBody) Mass() float32 { return r.mass }

func (r *RigidBody) SetMass(m float32) { r.mass = m }

func (r *RigidBody) Material() Material { return r.material }

func (r *RigidBody) SetMaterial(m Material) { r.material = m }

func (r *RigidBody) Category() Category { return r.category }

func (r *RigidBody) GravityEnabled() bool { return r.useGravity }

func (r *RigidBody) SetGravityEnabled(enabled bool) { r.useGravity = enabled }

func (r *RigidBody) Box() *Box { return r.box }

// Position is the box center.
func (r *RigidBody) Position() rl.Vector3 { return r.box.Center() }

func (r *RigidBody) SetPosition(p rl.Vector3) { r.box.SetCenter(p) }

func (r *RigidBody) Velocity() rl.Vector3 { return r.box.Velocity() }

func (r *RigidBody) SetVelocity(v rl.Vector3) { r.box.SetVelocity(v) }

// SetFinalMove commits a resolver result. Static and kinematic bodies keep their own
// position and velocity.
func (r *RigidBody) SetFinalMove(m MoveResult) {
	if r.category != CategoryDynamic {
		return
	}
	r.finalMove = m
	r.box.SetCenter(m.Position)
	r.box.SetVelocity(m.Velocity)
}

// FinalMove returns the last committed resolver result.
func (r *RigidBody) FinalMove() MoveResult { return r.finalMove }

// IsMoving reports whether the body's speed is above the rest threshold.
func (r *RigidBody) IsMoving() bool {
	return rl.Vector3Length(r.box.Velocity()) > movingThreshold
}

func (r *RigidBody) IncrementCollision() { r.numCollisions++ }

func (r *RigidBody) DecrementCollision() {
	if r.numCollisions > 0 {
		r.numCollisions--
	}
}

func (r *RigidBody) NumCollisions() int { return r.numCollisions }

// AddNormal records the contact normal against other, replacing an older entry.
func (r *RigidBody) AddNormal(other int64, normal rl.Vector3) {
	for i := range r.normals {
		if r.normals[i].Other == other {
			r.normals[i].Normal = normal
			return
		}
	}
	r.normals = append(r.normals, SurfaceData{Other: other, Normal: normal})
}

// RemoveNormal drops the contact normal against other.
func (r *RigidBody) RemoveNormal(other int64) {
	for i := range r.normals {
		if r.normals[i].Other == other {
			r.normals = append(r.normals[:i], r.normals[i+1:]...)
			return
		}
	}
}

// Normals returns the normals of all current contacts.
func (r *RigidBody) Normals() []SurfaceData {
	return r.normals
}

// Grounded reports whether any contact normal pushes against gravity.
func (r *RigidBody) Grounded(gravity rl.Vector3) bool {
	g, ok := unit(gravity)
	if !ok {
		return false
	}
	for _, n := range r.normals {
		if rl.Vector3DotProduct(n.Normal, g) < -0.5 {
			return true
		}
	}
	return false
}
