package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Contact resolves one manifold for one tick: friction, then a restitution impulse, then
// positional correction over one or more sub-steps, then the result is committed to both
// bodies.
//
// Every stage reloads both boxes first and writes the new center and velocity straight back.
// Contacts that share a body see each other's work, so a world can sweep the same contacts
// several times per tick.
type Contact struct {
	deltaTime float32
	cfg       Config

	manifold Manifold
	valid    bool

	ref   MoveResult
	other MoveResult
}

// NewContact creates a resolver for m. The overlap is re-measured at the boxes' current
// cached centers.
func NewContact(deltaTime float32, m Manifold, cfg Config) *Contact {
	c := &Contact{
		deltaTime: deltaTime,
		cfg:       cfg,
		manifold:  m,
		valid:     true,
	}
	c.refresh()
	c.manifold.Overlap = math32.Max(0, m.Ref.penetration(m.Normal, m.Other))
	return c
}

// Manifold returns the current manifold. It changes as positional correction re-tests the
// pair.
func (c *Contact) Manifold() Manifold { return c.manifold }

// Valid reports whether the pair still overlaps after the last correction step.
func (c *Contact) Valid() bool { return c.valid }

// Results returns the pending moves for the reference and other body.
func (c *Contact) Results() (ref, other MoveResult) { return c.ref, c.other }

// Key returns the pair key of the two bodies.
func (c *Contact) Key() PairKey { return c.manifold.Key() }

// Eq reports whether the contact is between a and b, in either order.
func (c *Contact) Eq(a, b Body) bool {
	return c.Key() == NewPairKey(a.ID(), b.ID())
}

// ApplyFriction removes tangential relative velocity. The friction budget is the part of
// gravity pressing along the normal times deltaTime times the smaller friction coefficient,
// and it never takes more than the tangential velocity there is.
func (c *Contact) ApplyFriction(gravity rl.Vector3) {
	refBody, otherBody := c.manifold.Ref.owner, c.manifold.Other.owner
	if refBody == nil || otherBody == nil {
		return
	}
	c.refresh()
	cof := math32.Min(refBody.Material().Friction, otherBody.Material().Friction)
	n := c.manifold.Normal

	normalForce := math32.Abs(rl.Vector3DotProduct(gravity, n))

	rv := rl.Vector3Subtract(c.ref.Velocity, c.other.Velocity)
	tangent := rl.Vector3Subtract(rv, rl.Vector3Scale(n, rl.Vector3DotProduct(rv, n)))
	tl := rl.Vector3Length(tangent)
	if tl < 1e-5 {
		return
	}

	otherReacts := otherBody.Category() == CategoryDynamic
	limit := tl
	if otherReacts {
		limit = tl / 2
	}
	mag := math32.Min(normalForce*c.deltaTime*cof, limit)
	friction := rl.Vector3Scale(tangent, mag/tl)

	c.ref.Velocity = rl.Vector3Subtract(c.ref.Velocity, friction)
	if otherReacts {
		c.other.Velocity = rl.Vector3Add(c.other.Velocity, friction)
	}
	c.writeVelocities()
}

// ApplyImpulse applies the single-contact restitution impulse and returns the change in
// relative normal speed. Separating pairs are left alone and return 0. A small rebound
// against gravity is cancelled so resting contacts do not jitter.
func (c *Contact) ApplyImpulse(gravity rl.Vector3) float32 {
	refBody, otherBody := c.manifold.Ref.owner, c.manifold.Other.owner
	if refBody == nil || otherBody == nil {
		return 0
	}
	invRef, invOther := inverseMass(refBody), inverseMass(otherBody)
	invSum := invRef + invOther
	if invSum < 1e-9 {
		return 0
	}

	c.refresh()
	n := c.manifold.Normal
	vn := rl.Vector3DotProduct(rl.Vector3Subtract(c.other.Velocity, c.ref.Velocity), n)
	if vn >= 0 {
		return 0
	}

	e := c.cfg.Restitution.Combine(refBody.Material().Restitution, otherBody.Material().Restitution)
	j := -(1 + e) * vn / invSum

	if gLen := rl.Vector3Length(gravity); refBody.GravityEnabled() && gLen > 1e-6 {
		gDir := rl.Vector3Scale(gravity, 1/gLen)
		post := rl.Vector3Subtract(c.ref.Velocity, rl.Vector3Scale(n, j*invRef))
		alongGravity := rl.Vector3DotProduct(n, post) * rl.Vector3DotProduct(n, gDir)
		floor := -(gLen * c.deltaTime * c.cfg.RestingFloorScale)
		if alongGravity < 0 && alongGravity > floor {
			j = -vn / invSum
		}
	}

	impulse := rl.Vector3Scale(n, j)
	c.ref.Velocity = rl.Vector3Subtract(c.ref.Velocity, rl.Vector3Scale(impulse, invRef))
	c.other.Velocity = rl.Vector3Add(c.other.Velocity, rl.Vector3Scale(impulse, invOther))
	c.writeVelocities()
	return j * invSum
}

// PositionalCorrection re-tests the pair at the boxes' current centers and pushes the bodies
// apart along the normal by fraction of the overlap, split by inverse mass, then re-tests
// again. It reports whether a body moved. It does nothing once the contact is invalid.
// Overlap below MinCorrectDist is left alone.
func (c *Contact) PositionalCorrection(fraction float32) bool {
	if !c.valid {
		return false
	}
	c.refresh()
	c.updateValidity()
	if !c.valid {
		return false
	}
	moved := false
	invRef, invOther := inverseMass(c.manifold.Ref.owner), inverseMass(c.manifold.Other.owner)
	invSum := invRef + invOther
	if depth := c.manifold.Overlap; invSum >= 1e-9 && fraction > 0 && depth >= c.cfg.MinCorrectDist {
		moved = true
		correction := rl.Vector3Scale(c.manifold.Normal, depth/invSum*fraction)
		if invRef > 0 {
			c.ref.Position = roundTo4(rl.Vector3Subtract(c.ref.Position, rl.Vector3Scale(correction, invRef)))
			c.manifold.Ref.SetCenter(c.ref.Position)
		}
		if invOther > 0 {
			c.other.Position = roundTo4(rl.Vector3Add(c.other.Position, rl.Vector3Scale(correction, invOther)))
			c.manifold.Other.SetCenter(c.other.Position)
		}
	}
	c.updateValidity()
	return moved
}

// PostCorrection commits the boxes' current state to both bodies.
func (c *Contact) PostCorrection() {
	c.refresh()
	if b := c.manifold.Ref.owner; b != nil {
		b.SetFinalMove(c.ref)
	}
	if b := c.manifold.Other.owner; b != nil {
		b.SetFinalMove(c.other)
	}
}

// Resolve runs the whole pipeline with the configured number of correction sub-steps.
func (c *Contact) Resolve(gravity rl.Vector3) {
	c.ApplyFriction(gravity)
	c.ApplyImpulse(gravity)
	steps := c.cfg.CorrectionSteps
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps && c.valid; i++ {
		c.PositionalCorrection(1 / float32(steps))
	}
	c.PostCorrection()
}

// PreCollisionUpdate reloads the cached centers and velocities and re-tests the pair. It
// returns true when the pair no longer overlaps and the contact should be dropped.
func (c *Contact) PreCollisionUpdate() bool {
	c.refresh()
	c.updateValidity()
	return !c.valid
}

func (c *Contact) refresh() {
	c.ref = MoveResult{Position: c.manifold.Ref.Center(), Velocity: c.manifold.Ref.Velocity()}
	c.other = MoveResult{Position: c.manifold.Other.Center(), Velocity: c.manifold.Other.Velocity()}
}

func (c *Contact) updateValidity() {
	m, ok := c.manifold.Ref.TestCollisionStationary(c.manifold.Other)
	c.valid = ok
	if ok {
		c.manifold.Normal = m.Normal
		c.manifold.Overlap = m.Overlap
		c.manifold.Axis = m.Axis
	}
}

func (c *Contact) writeVelocities() {
	c.manifold.Ref.SetVelocity(c.ref.Velocity)
	c.manifold.Other.SetVelocity(c.other.Velocity)
}
