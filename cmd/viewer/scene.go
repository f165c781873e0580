package main

import (
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"prism3d/internal/physics"
)

// boxEdges indexes Box.Corners pairs that form the twelve edges.
var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // -length face
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // +length face
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

const pickDistance = 500

// scene is the viewer state that does not depend on a window.
type scene struct {
	world *physics.World
	rng   *rand.Rand

	material   physics.Material
	showOctree bool
	contacts   int          // enter events seen so far
	selected   physics.Body // nil when nothing is picked
}

// contactMarker is where a touching body meets the selected one.
type contactMarker struct {
	body  physics.Body
	point rl.Vector3
}

func newScene(cfg physics.Config, boxes int, seed int64) (*scene, error) {
	s := &scene{
		world:      physics.NewWorld(cfg),
		rng:        rand.New(rand.NewSource(seed)),
		material:   physics.Material{Friction: 0.5, Restitution: 0.2},
		showOctree: true,
	}
	s.world.OnContact(func(ev physics.ContactEvent) {
		if ev.Kind == physics.ContactEnter {
			s.contacts++
		}
	})

	floor := physics.NewRigidBody(
		physics.NewAxisAlignedBox(rl.Vector3{X: 0, Y: -0.5, Z: 0}, rl.Vector3{X: 40, Y: 1, Z: 40}),
		physics.CategoryStatic, 0, s.material)
	if err := s.world.AddBody(floor); err != nil {
		return nil, err
	}

	// A tilted ramp so boxes slide and tumble off sideways.
	ramp := physics.NewRigidBody(
		physics.NewBoxFromRotation(rl.Vector3{X: -6, Y: 1.5, Z: 0}, rl.Vector3{X: 8, Y: 0.5, Z: 4}, rl.Vector3{X: 0, Y: 0, Z: -20}),
		physics.CategoryStatic, 0, s.material)
	if err := s.world.AddBody(ramp); err != nil {
		return nil, err
	}

	for i := 0; i < boxes; i++ {
		if _, err := s.spawn(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// spawn drops a box with a random size and yaw above the scene.
func (s *scene) spawn() (*physics.RigidBody, error) {
	size := 0.5 + s.rng.Float32()
	pos := rl.Vector3{
		X: s.rng.Float32()*12 - 8,
		Y: 6 + s.rng.Float32()*6,
		Z: s.rng.Float32()*6 - 3,
	}
	rot := rl.Vector3{Y: s.rng.Float32() * 90}
	box := physics.NewBoxFromRotation(pos, rl.Vector3{X: size, Y: size, Z: size}, rot)
	rb := physics.NewRigidBody(box, physics.CategoryDynamic, size*size*size, s.material)
	if err := s.world.AddBody(rb); err != nil {
		return nil, err
	}
	return rb, nil
}

// setMaterial applies m to every registered rigid body.
func (s *scene) setMaterial(m physics.Material) {
	if m == s.material {
		return
	}
	s.material = m
	for _, b := range s.world.Bodies() {
		if rb, ok := b.(*physics.RigidBody); ok {
			rb.SetMaterial(m)
		}
	}
}

// setCorrectionSteps updates the world config when the value changed.
func (s *scene) setCorrectionSteps(steps int) error {
	cfg := s.world.Config()
	if cfg.CorrectionSteps == steps {
		return nil
	}
	cfg.CorrectionSteps = steps
	return s.world.SetConfig(cfg)
}

// dropOutOfBounds removes dynamic bodies that fell below the world.
func (s *scene) dropOutOfBounds() int {
	limit := s.world.Config().WorldMin[1]
	removed := 0
	for _, b := range s.world.Bodies() {
		if b.Category() == physics.CategoryDynamic && b.Box().Center().Y < limit {
			s.world.RemoveBody(b.ID())
			if s.selected != nil && s.selected.ID() == b.ID() {
				s.selected = nil
			}
			removed++
		}
	}
	return removed
}

// pick selects the closest body along ray, or clears the selection on a miss.
func (s *scene) pick(ray rl.Ray) physics.Body {
	s.selected = nil
	if hit, ok := s.world.Raycast(ray, pickDistance); ok {
		s.selected = hit.Body
	}
	return s.selected
}

// selectedContacts returns a marker per body touching the selection, on that body's surface
// nearest the selection's center.
func (s *scene) selectedContacts() []contactMarker {
	if s.selected == nil {
		return nil
	}
	center := s.selected.Box().Center()
	var out []contactMarker
	for _, b := range s.world.Touching(s.selected.ID()) {
		out = append(out, contactMarker{body: b, point: b.Box().ClosestPoint(center)})
	}
	return out
}
