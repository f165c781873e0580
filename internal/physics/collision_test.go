package physics

import (
	"math/rand"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func newBody(category Category, center, size rl.Vector3, mass float32, mat Material) *RigidBody {
	return NewRigidBody(NewAxisAlignedBox(center, size), category, mass, mat)
}

func stationaryContact(t *testing.T, a, b *RigidBody, dt float32, cfg Config) *Contact {
	t.Helper()
	m, ok := a.Box().TestCollisionStationary(b.Box())
	if !ok {
		t.Fatalf("Expected bodies %v and %v to overlap", a.Position(), b.Position())
	}
	return NewContact(dt, m, cfg)
}

func TestImpulseElasticHeadOn(t *testing.T) {
	bouncy := Material{Restitution: 1}
	a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, bouncy)
	b := newBody(CategoryDynamic, vec(0.9, 0, 0), vec(1, 1, 1), 1, bouncy)
	a.SetVelocity(vec(1, 0, 0))
	b.SetVelocity(vec(-1, 0, 0))

	c := stationaryContact(t, a, b, 0.1, DefaultConfig())
	c.ApplyImpulse(rl.Vector3{})

	if !nearVec(a.Velocity(), vec(-1, 0, 0), 1e-5) {
		t.Errorf("Expected a to bounce back at -1, got %v", a.Velocity())
	}
	if !nearVec(b.Velocity(), vec(1, 0, 0), 1e-5) {
		t.Errorf("Expected b to bounce back at 1, got %v", b.Velocity())
	}
	ref, other := c.Results()
	if ref.Velocity != a.Velocity() || other.Velocity != b.Velocity() {
		t.Error("Expected impulse to write through to the boxes")
	}
}

func TestImpulseInelasticStopsAgainstStatic(t *testing.T) {
	a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 3, Material{})
	wall := newBody(CategoryStatic, vec(0.95, 0, 0), vec(1, 4, 4), 0, Material{})
	a.SetVelocity(vec(2, 1, 0))

	c := stationaryContact(t, a, wall, 0.1, DefaultConfig())
	c.ApplyImpulse(rl.Vector3{})

	if !nearVec(a.Velocity(), vec(0, 1, 0), 1e-5) {
		t.Errorf("Expected normal velocity removed, got %v", a.Velocity())
	}
	if wall.Velocity() != (rl.Vector3{}) {
		t.Errorf("Expected wall to stay still, got %v", wall.Velocity())
	}
}

func TestImpulseSkipsSeparatingPair(t *testing.T) {
	a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, Material{Restitution: 1})
	b := newBody(CategoryDynamic, vec(0.9, 0, 0), vec(1, 1, 1), 1, Material{Restitution: 1})
	a.SetVelocity(vec(-1, 0, 0))
	b.SetVelocity(vec(1, 0, 0))

	c := stationaryContact(t, a, b, 0.1, DefaultConfig())
	c.ApplyImpulse(rl.Vector3{})

	if a.Velocity() != vec(-1, 0, 0) || b.Velocity() != vec(1, 0, 0) {
		t.Errorf("Expected velocities untouched, got %v and %v", a.Velocity(), b.Velocity())
	}
}

func TestImpulseRestitutionModes(t *testing.T) {
	tests := []struct {
		mode RestitutionMode
		want float32
	}{
		{RestitutionReference, -1},
		{RestitutionMin, 0},
		{RestitutionAverage, -0.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, Material{Restitution: 1})
			wall := newBody(CategoryStatic, vec(0.95, 0, 0), vec(1, 1, 1), 0, Material{Restitution: 0})
			a.SetVelocity(vec(1, 0, 0))

			cfg := DefaultConfig()
			cfg.Restitution = tt.mode
			c := stationaryContact(t, a, wall, 0.1, cfg)
			c.ApplyImpulse(rl.Vector3{})

			if !near(a.Velocity().X, tt.want, 1e-5) {
				t.Errorf("Expected rebound %v, got %v", tt.want, a.Velocity().X)
			}
		})
	}
}

func TestRestingDampener(t *testing.T) {
	gravity := vec(0, -20, 0)
	mat := Material{Restitution: 0.5}

	box := newBody(CategoryDynamic, vec(0, 0.45, 0), vec(1, 1, 1), 1, mat)
	floor := newBody(CategoryStatic, vec(0, -0.5, 0), vec(10, 1, 10), 0, mat)

	// A small downward speed would bounce to +0.2. Gravity gives that back next tick,
	// so the rebound is cancelled instead.
	box.SetVelocity(vec(0, -0.4, 0))
	c := stationaryContact(t, box, floor, 0.02, DefaultConfig())
	c.ApplyImpulse(gravity)
	if !near(box.Velocity().Y, 0, 1e-5) {
		t.Errorf("Expected resting contact to stop, got %v", box.Velocity())
	}

	// Without gravity on the body the same hit bounces.
	box.SetVelocity(vec(0, -0.4, 0))
	box.SetGravityEnabled(false)
	c = stationaryContact(t, box, floor, 0.02, DefaultConfig())
	c.ApplyImpulse(gravity)
	if !near(box.Velocity().Y, 0.2, 1e-5) {
		t.Errorf("Expected bounce of 0.2 without gravity, got %v", box.Velocity())
	}

	// A hard landing still bounces.
	box.SetGravityEnabled(true)
	box.SetVelocity(vec(0, -10, 0))
	c = stationaryContact(t, box, floor, 0.02, DefaultConfig())
	c.ApplyImpulse(gravity)
	if !near(box.Velocity().Y, 5, 1e-4) {
		t.Errorf("Expected bounce of 5, got %v", box.Velocity())
	}
}

func TestFrictionSlowsSlidingBox(t *testing.T) {
	gravity := vec(0, -20, 0)
	mat := Material{Friction: 0.5}
	box := newBody(CategoryDynamic, vec(0, 0.45, 0), vec(1, 1, 1), 1, mat)
	floor := newBody(CategoryStatic, vec(0, -0.5, 0), vec(10, 1, 10), 0, mat)
	box.SetVelocity(vec(2, 0, 0))

	c := stationaryContact(t, box, floor, 0.1, DefaultConfig())
	c.ApplyFriction(gravity)

	// Budget is |g.n| * dt * cof = 20 * 0.1 * 0.5.
	if !nearVec(box.Velocity(), vec(1, 0, 0), 1e-5) {
		t.Errorf("Expected velocity (1,0,0), got %v", box.Velocity())
	}
}

func TestFrictionNeverReverses(t *testing.T) {
	gravity := vec(0, -20, 0)
	sticky := Material{Friction: 1}

	box := newBody(CategoryDynamic, vec(0, 0.45, 0), vec(1, 1, 1), 1, sticky)
	floor := newBody(CategoryStatic, vec(0, -0.5, 0), vec(10, 1, 10), 0, sticky)
	box.SetVelocity(vec(2, 0, -1))
	c := stationaryContact(t, box, floor, 1, DefaultConfig())
	c.ApplyFriction(gravity)
	if !nearVec(box.Velocity(), vec(0, 0, 0), 1e-5) {
		t.Errorf("Expected sliding to stop exactly, got %v", box.Velocity())
	}

	// Two dynamic bodies split the correction and end with no relative slide.
	top := newBody(CategoryDynamic, vec(0, 0.95, 0), vec(1, 1, 1), 1, sticky)
	bottom := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, sticky)
	top.SetVelocity(vec(2, 0, 0))
	c = stationaryContact(t, top, bottom, 1, DefaultConfig())
	c.ApplyFriction(gravity)
	if !nearVec(top.Velocity(), vec(1, 0, 0), 1e-5) || !nearVec(bottom.Velocity(), vec(1, 0, 0), 1e-5) {
		t.Errorf("Expected both at (1,0,0), got %v and %v", top.Velocity(), bottom.Velocity())
	}
}

func TestPositionalCorrectionByInverseMass(t *testing.T) {
	a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, Material{})
	b := newBody(CategoryDynamic, vec(0.9, 0, 0), vec(1, 1, 1), 1, Material{})
	c := stationaryContact(t, a, b, 0.1, DefaultConfig())
	c.PositionalCorrection(0.5)

	if !nearVec(a.Box().Center(), vec(-0.025, 0, 0), 1e-4) {
		t.Errorf("Expected a pushed to -0.025, got %v", a.Box().Center())
	}
	if !nearVec(b.Box().Center(), vec(0.925, 0, 0), 1e-4) {
		t.Errorf("Expected b pushed to 0.925, got %v", b.Box().Center())
	}
	if !c.Valid() {
		t.Error("Expected the pair to still overlap after half a correction")
	}
	if !near(c.Manifold().Overlap, 0.05, 1e-4) {
		t.Errorf("Expected remaining overlap 0.05, got %v", c.Manifold().Overlap)
	}

	// The heavy side moves less.
	light := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, Material{})
	heavy := newBody(CategoryDynamic, vec(0.7, 0, 0), vec(1, 1, 1), 3, Material{})
	c = stationaryContact(t, light, heavy, 0.1, DefaultConfig())
	c.PositionalCorrection(0.5)
	if !nearVec(light.Box().Center(), vec(-0.1125, 0, 0), 1e-4) {
		t.Errorf("Expected light body at -0.1125, got %v", light.Box().Center())
	}
	if !nearVec(heavy.Box().Center(), vec(0.7375, 0, 0), 1e-4) {
		t.Errorf("Expected heavy body at 0.7375, got %v", heavy.Box().Center())
	}
}

func TestPositionalCorrectionNeverDeepensOverlap(t *testing.T) {
	// Centers are rounded to 1e-4 after each push, which can add a little projected overlap.
	const slack = 3e-4
	rng := rand.New(rand.NewSource(3))
	categories := []Category{CategoryDynamic, CategoryDynamic, CategoryStatic, CategoryKinematic}

	checked := 0
	for i := 0; i < 500; i++ {
		rot := func() rl.Vector3 { return vec(rng.Float32()*360, rng.Float32()*360, rng.Float32()*360) }
		size := func() rl.Vector3 { return vec(0.5+rng.Float32(), 0.5+rng.Float32(), 0.5+rng.Float32()) }
		a := NewRigidBody(NewBoxFromRotation(vec(0, 0, 0), size(), rot()), CategoryDynamic, 0.5+rng.Float32()*3, Material{})
		other := categories[rng.Intn(len(categories))]
		b := NewRigidBody(NewBoxFromRotation(vec(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()*2-1), size(), rot()),
			other, 0.5+rng.Float32()*3, Material{})

		m, ok := a.Box().TestCollisionStationary(b.Box())
		if !ok {
			continue
		}
		checked++
		c := NewContact(0.1, m, DefaultConfig())
		before := c.Manifold().Overlap
		fraction := 0.25 + rng.Float32()*0.75
		c.PositionalCorrection(fraction)

		after := float32(0)
		if c.Valid() {
			after = c.Manifold().Overlap
		}
		if after > before+slack {
			t.Errorf("case %d: overlap grew from %v to %v after a %v correction", i, before, after, fraction)
		}
	}
	if checked < 50 {
		t.Errorf("Expected at least 50 overlapping pairs, got %d", checked)
	}
}

func TestPositionalCorrectionIgnoresTinyOverlap(t *testing.T) {
	a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, Material{})
	wall := newBody(CategoryStatic, vec(0.9995, 0, 0), vec(1, 1, 1), 0, Material{})
	c := stationaryContact(t, a, wall, 0.1, DefaultConfig())
	c.PositionalCorrection(1)
	if a.Box().Center() != vec(0, 0, 0) {
		t.Errorf("Expected no correction below the threshold, got %v", a.Box().Center())
	}
}

func TestResolveAgainstStatic(t *testing.T) {
	gravity := vec(0, -20, 0)
	box := newBody(CategoryDynamic, vec(0, 0.4, 0), vec(1, 1, 1), 1, Material{Friction: 0.3})
	floor := newBody(CategoryStatic, vec(0, -0.5, 0), vec(10, 1, 10), 0, Material{Friction: 0.3})
	box.SetVelocity(vec(0, -1, 0))

	c := stationaryContact(t, box, floor, 1.0/60, DefaultConfig())
	c.Resolve(gravity)

	if box.Position().Y <= 0.4 {
		t.Errorf("Expected box pushed up out of the floor, got %v", box.Position())
	}
	if box.Velocity().Y < -1e-5 {
		t.Errorf("Expected no downward velocity left, got %v", box.Velocity())
	}
	if floor.Position() != vec(0, -0.5, 0) {
		t.Errorf("Expected floor not to move, got %v", floor.Position())
	}
	if box.FinalMove().Position != box.Position() {
		t.Errorf("Expected final move %v to match position %v", box.FinalMove().Position, box.Position())
	}
}

func TestResolveImmovablePair(t *testing.T) {
	a := newBody(CategoryStatic, vec(0, 0, 0), vec(1, 1, 1), 0, Material{})
	b := newBody(CategoryKinematic, vec(0.5, 0, 0), vec(1, 1, 1), 5, Material{})
	b.SetVelocity(vec(-1, 0, 0))

	c := stationaryContact(t, a, b, 0.1, DefaultConfig())
	c.Resolve(vec(0, -20, 0))

	if a.Position() != vec(0, 0, 0) || b.Position() != vec(0.5, 0, 0) {
		t.Errorf("Expected neither body to move, got %v and %v", a.Position(), b.Position())
	}
	if b.Velocity() != vec(-1, 0, 0) {
		t.Errorf("Expected kinematic velocity untouched, got %v", b.Velocity())
	}
}

func TestContactKeyAndPreCollisionUpdate(t *testing.T) {
	a := newBody(CategoryDynamic, vec(0, 0, 0), vec(1, 1, 1), 1, Material{})
	b := newBody(CategoryDynamic, vec(0.9, 0, 0), vec(1, 1, 1), 1, Material{})
	stranger := newBody(CategoryDynamic, vec(5, 0, 0), vec(1, 1, 1), 1, Material{})

	c := stationaryContact(t, a, b, 0.1, DefaultConfig())
	if !c.Eq(a, b) || !c.Eq(b, a) || c.Eq(a, stranger) {
		t.Error("Eq does not match the pair")
	}
	if c.Key() != NewPairKey(b.ID(), a.ID()) {
		t.Errorf("Expected key %v, got %v", NewPairKey(a.ID(), b.ID()), c.Key())
	}

	if c.PreCollisionUpdate() {
		t.Error("Expected overlapping contact to be kept")
	}
	b.SetPosition(vec(3, 0, 0))
	if !c.PreCollisionUpdate() {
		t.Error("Expected separated contact to be dropped")
	}
	if c.Valid() {
		t.Error("Expected contact to be invalid")
	}
	ref, other := c.Results()
	if other.Position != vec(3, 0, 0) || ref.Position != vec(0, 0, 0) {
		t.Errorf("Expected refreshed positions, got %v and %v", ref.Position, other.Position)
	}
}
