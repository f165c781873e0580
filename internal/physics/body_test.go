package physics

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestPairKey(t *testing.T) {
	a := NewPairKey(7, 3)
	b := NewPairKey(3, 7)
	if a != b {
		t.Errorf("Expected order independent keys, got %v and %v", a, b)
	}
	if a.A != 3 || a.B != 7 {
		t.Errorf("Expected smaller id first, got %v", a)
	}
	if !a.Has(7) || a.Has(5) {
		t.Error("Has reports the wrong members")
	}
	if a.Partner(3) != 7 || a.Partner(7) != 3 {
		t.Error("Partner returns the wrong id")
	}
}

func TestNextEntityIDUnique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		id := NextEntityID()
		if seen[id] {
			t.Fatalf("Id %d handed out twice", id)
		}
		seen[id] = true
	}
}

func TestRigidBodyDefaults(t *testing.T) {
	box := unitCube(vec(1, 2, 3))
	dyn := NewRigidBody(box, CategoryDynamic, 2, Material{Friction: 0.5, Restitution: 0.2})

	if box.Owner() != Body(dyn) {
		t.Error("Expected the body to own its box")
	}
	if !dyn.GravityEnabled() || !dyn.CanCollide {
		t.Error("Expected dynamic bodies to use gravity and collide")
	}
	if dyn.Position() != vec(1, 2, 3) {
		t.Errorf("Expected position (1,2,3), got %v", dyn.Position())
	}
	if got := inverseMass(dyn); got != 0.5 {
		t.Errorf("Expected inverse mass 0.5, got %v", got)
	}

	static := NewRigidBody(unitCube(vec(0, 0, 0)), CategoryStatic, 10, Material{})
	if static.GravityEnabled() {
		t.Error("Expected static bodies to ignore gravity")
	}
	if got := inverseMass(static); got != 0 {
		t.Errorf("Expected static inverse mass 0, got %v", got)
	}
	kin := NewRigidBody(unitCube(vec(0, 0, 0)), CategoryKinematic, 10, Material{})
	if got := inverseMass(kin); got != 0 {
		t.Errorf("Expected kinematic inverse mass 0, got %v", got)
	}
	if dyn.ID() == static.ID() || static.ID() == kin.ID() {
		t.Error("Expected distinct ids")
	}
}

func TestRigidBodySetFinalMove(t *testing.T) {
	dyn := NewRigidBody(unitCube(vec(0, 0, 0)), CategoryDynamic, 1, Material{})
	dyn.SetFinalMove(MoveResult{Position: vec(1, 0, 0), Velocity: vec(0, 2, 0)})
	if dyn.Position() != vec(1, 0, 0) || dyn.Velocity() != vec(0, 2, 0) {
		t.Errorf("Expected final move applied, got %v %v", dyn.Position(), dyn.Velocity())
	}
	if !dyn.IsMoving() {
		t.Error("Expected body to be moving")
	}

	static := NewRigidBody(unitCube(vec(0, 0, 0)), CategoryStatic, 1, Material{})
	static.SetFinalMove(MoveResult{Position: vec(5, 5, 5)})
	if static.Position() != vec(0, 0, 0) {
		t.Errorf("Expected static body to stay put, got %v", static.Position())
	}
	if static.IsMoving() {
		t.Error("Expected static body at rest")
	}
}

func TestRigidBodyContactBookkeeping(t *testing.T) {
	rb := NewRigidBody(unitCube(vec(0, 0, 0)), CategoryDynamic, 1, Material{})

	rb.DecrementCollision()
	if rb.NumCollisions() != 0 {
		t.Errorf("Expected counter to stay at 0, got %d", rb.NumCollisions())
	}
	rb.IncrementCollision()
	rb.IncrementCollision()
	rb.DecrementCollision()
	if rb.NumCollisions() != 1 {
		t.Errorf("Expected 1 collision, got %d", rb.NumCollisions())
	}

	gravity := rl.Vector3{Y: -20}
	rb.AddNormal(9, vec(1, 0, 0))
	if rb.Grounded(gravity) {
		t.Error("Expected a wall contact not to ground the body")
	}
	rb.AddNormal(10, vec(0, 1, 0))
	rb.AddNormal(10, vec(0, 1, 0))
	if len(rb.Normals()) != 2 {
		t.Errorf("Expected 2 normals, got %d", len(rb.Normals()))
	}
	if !rb.Grounded(gravity) {
		t.Error("Expected a floor contact to ground the body")
	}
	rb.RemoveNormal(10)
	if rb.Grounded(gravity) || len(rb.Normals()) != 1 {
		t.Errorf("Expected only the wall normal left, got %v", rb.Normals())
	}
}
