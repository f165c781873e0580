package physics

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// solverTolerance is the change in relative normal speed below which impulse sweeps stop.
const solverTolerance = 1e-4

var (
	ErrNilBody       = errors.New("physics: body or its box is nil")
	ErrDuplicateBody = errors.New("physics: body already registered")
	ErrInvalidMass   = errors.New("physics: dynamic body needs a positive mass")
)

// ContactEventKind tells whether a pair started or stopped touching.
type ContactEventKind uint8

const (
	ContactEnter ContactEventKind = iota
	ContactExit
)

func (k ContactEventKind) String() string {
	if k == ContactEnter {
		return "enter"
	}
	return "exit"
}

// ContactEvent is sent to OnContact listeners after each step. A is the reference body of
// the contact and Normal points from A toward B.
type ContactEvent struct {
	Kind   ContactEventKind
	A, B   Body
	Normal rl.Vector3
}

// contactTracker is implemented by bodies that keep contact bookkeeping, like RigidBody.
type contactTracker interface {
	IncrementCollision()
	DecrementCollision()
	AddNormal(other int64, normal rl.Vector3)
	RemoveNormal(other int64)
}

type contactRecord struct {
	a, b   Body
	normal rl.Vector3
}

// World owns the body registry and octree and runs one collision pass per Step.
// It is not safe for concurrent use.
type World struct {
	cfg     Config
	gravity rl.Vector3

	bodies []Body // registration order, which is also resolution order
	byID   map[int64]Body
	tree   *Octree

	// Contact tracking for events
	activeContacts  map[PairKey]contactRecord // contacts from last step
	currentContacts map[PairKey]contactRecord // contacts this step
	currentOrder    []PairKey

	contactEvent    Event[ContactEvent]
	lastLoggedCount int
}

// NewWorld creates an empty world. An invalid config is replaced by the defaults.
func NewWorld(cfg Config) *World {
	if err := cfg.Validate(); err != nil {
		log.Printf("Physics: invalid config (%v), using defaults", err)
		cfg = DefaultConfig()
	}
	return &World{
		cfg:             cfg,
		gravity:         cfg.GravityVector(),
		byID:            make(map[int64]Body),
		tree:            NewOctree(cfg.Bounds(), cfg.OctreeMaxObjects, cfg.OctreeMaxLevels),
		activeContacts:  make(map[PairKey]contactRecord),
		currentContacts: make(map[PairKey]contactRecord),
	}
}

// Config returns the active configuration.
func (w *World) Config() Config { return w.cfg }

// SetConfig swaps the configuration and rebuilds the octree with the new bounds and limits.
func (w *World) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	w.cfg = cfg
	w.gravity = cfg.GravityVector()
	w.tree = NewOctree(cfg.Bounds(), cfg.OctreeMaxObjects, cfg.OctreeMaxLevels)
	w.Reset()
	return nil
}

// Gravity returns the gravity vector.
func (w *World) Gravity() rl.Vector3 { return w.gravity }

// Octree exposes the broad phase for debug drawing.
func (w *World) Octree() *Octree { return w.tree }

// OnContact registers a listener for contact enter and exit events.
func (w *World) OnContact(fn func(ContactEvent)) ListenerID {
	return w.contactEvent.AddListener(fn)
}

// RemoveContactListener unregisters a listener added with OnContact.
func (w *World) RemoveContactListener(id ListenerID) bool {
	return w.contactEvent.RemoveListener(id)
}

// AddBody registers b and inserts it into the octree.
func (w *World) AddBody(b Body) error {
	if err := w.checkBody(b); err != nil {
		log.Printf("Physics: rejected body: %v", err)
		return err
	}
	w.bodies = append(w.bodies, b)
	w.byID[b.ID()] = b
	w.tree.Insert(b)
	return nil
}

func (w *World) checkBody(b Body) error {
	if b == nil || b.Box() == nil {
		return ErrNilBody
	}
	if _, ok := w.byID[b.ID()]; ok {
		return fmt.Errorf("%w: id %d", ErrDuplicateBody, b.ID())
	}
	if b.Category() == CategoryDynamic && b.Mass() <= 0 {
		return fmt.Errorf("%w: id %d has mass %v", ErrInvalidMass, b.ID(), b.Mass())
	}
	return nil
}

// RemoveBody unregisters the body with id. Contacts it was part of end with an exit event.
// It returns false if no such body is registered.
func (w *World) RemoveBody(id int64) bool {
	b, ok := w.byID[id]
	if !ok {
		return false
	}
	delete(w.byID, id)
	w.bodies = slices.DeleteFunc(w.bodies, func(o Body) bool { return o.ID() == id })
	if !w.tree.Remove(b) {
		log.Printf("Physics: body %d was registered but missing from the octree", id)
	}

	for _, key := range sortedKeys(w.activeContacts) {
		if key.Has(id) {
			w.endContact(w.activeContacts[key])
			delete(w.activeContacts, key)
		}
	}
	return true
}

// Body returns the registered body with id.
func (w *World) Body(id int64) (Body, bool) {
	b, ok := w.byID[id]
	return b, ok
}

// Bodies returns the registered bodies in registration order.
func (w *World) Bodies() []Body {
	return slices.Clone(w.bodies)
}

// Contacts returns the pairs that were touching after the last step.
func (w *World) Contacts() []PairKey {
	return sortedKeys(w.activeContacts)
}

// Touching returns the bodies that were in contact with id after the last step, in pair key
// order.
func (w *World) Touching(id int64) []Body {
	var out []Body
	for _, key := range sortedKeys(w.activeContacts) {
		if !key.Has(id) {
			continue
		}
		if b, ok := w.byID[key.Partner(id)]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Reset rebuilds the octree from the registry.
func (w *World) Reset() {
	w.tree.ResetTree(0, w.cfg.Bounds())
	w.tree.FillTree(w.bodies)
	log.Printf("Physics: octree rebuilt (%d bodies)", len(w.bodies))
}

// Step advances the world by deltaTime.
func (w *World) Step(deltaTime float32) {
	if deltaTime <= 0 {
		return
	}

	// Reset current step contacts
	w.currentContacts = make(map[PairKey]contactRecord)
	w.currentOrder = w.currentOrder[:0]

	// 1. Apply gravity, record paths and integrate
	dynamicCount := 0
	for _, b := range w.bodies {
		box := b.Box()
		switch b.Category() {
		case CategoryDynamic:
			dynamicCount++
			if b.GravityEnabled() {
				box.SetVelocity(rl.Vector3Add(box.Velocity(), rl.Vector3Scale(w.gravity, deltaTime)))
			}
		case CategoryKinematic:
		default:
			box.ClearMove()
			continue
		}
		box.BeginMove(deltaTime)
		move, _ := box.LastMove()
		if move.Start != move.End {
			box.SetCenter(move.End)
			w.reindex(b)
		}
	}

	if dynamicCount%100 == 0 && dynamicCount > 0 && dynamicCount != w.lastLoggedCount {
		w.lastLoggedCount = dynamicCount
		log.Printf("Physics: %d dynamic bodies, %d in octree", dynamicCount, w.tree.Len())
	}

	// 2. Broad and narrow phase. Every contact of the tick is collected before any is solved.
	seen := make(map[PairKey]bool)
	var contacts []*Contact
	for _, a := range w.bodies {
		if a.Category() != CategoryDynamic || !canCollide(a) {
			continue
		}
		for _, o := range w.tree.RetrieveCollisions(a) {
			key := NewPairKey(a.ID(), o.ID())
			if seen[key] || !canCollide(o) {
				continue
			}
			seen[key] = true

			m, ok := a.Box().TestCollision(o.Box(), deltaTime)
			if !ok {
				continue
			}
			// Resolve at the moment of impact so fast bodies cannot end up past thin ones.
			if m.TimeOfImpact > 0 {
				a.Box().RewindTo(m.TimeOfImpact)
				if o.Category() == CategoryDynamic {
					o.Box().RewindTo(m.TimeOfImpact)
				}
			}
			contacts = append(contacts, NewContact(deltaTime, m, w.cfg))
			w.recordContact(key, contactRecord{a: a, b: o, normal: m.Normal})
		}
	}

	// 3. Resolution
	w.solve(contacts)
	moved := make(map[int64]bool)
	for _, c := range contacts {
		for _, b := range []Body{c.manifold.Ref.Owner(), c.manifold.Other.Owner()} {
			if b != nil && b.Category() == CategoryDynamic && !moved[b.ID()] {
				moved[b.ID()] = true
				w.reindex(b)
			}
		}
	}

	w.dispatchContactEvents()
}

// solve runs CorrectionSteps passes over contacts in collection order. Each pass drops pairs
// that no longer overlap, sweeps impulses until they settle and then sweeps positional
// correction until nothing moves, both capped at SolverIterations. The first pass keeps every
// contact because pairs rewound to their time of impact only touch.
func (w *World) solve(contacts []*Contact) {
	if len(contacts) == 0 {
		return
	}
	for _, c := range contacts {
		c.ApplyFriction(w.gravity)
	}

	steps := w.cfg.CorrectionSteps
	fraction := 1 / float32(steps)
	live := slices.Clone(contacts)
	for pass := 0; pass < steps; pass++ {
		if pass > 0 {
			live = slices.DeleteFunc(live, (*Contact).PreCollisionUpdate)
		}
		for i := 0; i < w.cfg.SolverIterations; i++ {
			var change float32
			for _, c := range live {
				change = math32.Max(change, c.ApplyImpulse(w.gravity))
			}
			if change < solverTolerance {
				break
			}
		}
		for i := 0; i < w.cfg.SolverIterations; i++ {
			moved := false
			for _, c := range live {
				if c.PositionalCorrection(fraction) {
					moved = true
				}
			}
			if !moved {
				break
			}
		}
	}

	for _, c := range contacts {
		c.PostCorrection()
	}
}

// reindex moves b to the octree node matching its current bounds.
func (w *World) reindex(b Body) {
	if w.tree.Remove(b) {
		w.tree.Insert(b)
	}
}

func (w *World) recordContact(key PairKey, rec contactRecord) {
	if _, ok := w.currentContacts[key]; !ok {
		w.currentOrder = append(w.currentOrder, key)
	}
	w.currentContacts[key] = rec
}

// dispatchContactEvents diffs this step's contacts against the last step's and updates
// per-body bookkeeping.
func (w *World) dispatchContactEvents() {
	// Find new or continuing contacts
	for _, key := range w.currentOrder {
		rec := w.currentContacts[key]
		if prev, ok := w.activeContacts[key]; ok {
			// The reference body may have changed since the last step.
			if prev.a.ID() != rec.a.ID() {
				w.untrackNormals(prev)
			}
			w.trackNormals(rec)
			continue
		}
		w.beginContact(rec)
	}

	// Find ended contacts
	for _, key := range sortedKeys(w.activeContacts) {
		if _, ok := w.currentContacts[key]; !ok {
			w.endContact(w.activeContacts[key])
		}
	}

	// Swap buffers
	w.activeContacts = w.currentContacts
}

func (w *World) beginContact(rec contactRecord) {
	for _, b := range []Body{rec.a, rec.b} {
		if t, ok := b.(contactTracker); ok {
			t.IncrementCollision()
		}
	}
	w.trackNormals(rec)
	w.emit(ContactEvent{Kind: ContactEnter, A: rec.a, B: rec.b, Normal: rec.normal})
}

func (w *World) endContact(rec contactRecord) {
	for _, b := range []Body{rec.a, rec.b} {
		if t, ok := b.(contactTracker); ok {
			t.DecrementCollision()
		}
	}
	w.untrackNormals(rec)
	w.emit(ContactEvent{Kind: ContactExit, A: rec.a, B: rec.b, Normal: rec.normal})
}

// trackNormals stores the contact normal on both bodies, each pointing away from the other.
func (w *World) trackNormals(rec contactRecord) {
	if t, ok := rec.a.(contactTracker); ok {
		t.AddNormal(rec.b.ID(), rl.Vector3Negate(rec.normal))
	}
	if t, ok := rec.b.(contactTracker); ok {
		t.AddNormal(rec.a.ID(), rec.normal)
	}
}

func (w *World) untrackNormals(rec contactRecord) {
	if t, ok := rec.a.(contactTracker); ok {
		t.RemoveNormal(rec.b.ID())
	}
	if t, ok := rec.b.(contactTracker); ok {
		t.RemoveNormal(rec.a.ID())
	}
}

func (w *World) emit(ev ContactEvent) {
	w.contactEvent.Invoke(ev)
}

// canCollide is false for a RigidBody with CanCollide cleared.
func canCollide(b Body) bool {
	if rb, ok := b.(*RigidBody); ok {
		return rb.CanCollide
	}
	return true
}

func sortedKeys(m map[PairKey]contactRecord) []PairKey {
	keys := make([]PairKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y PairKey) int {
		if x.A != y.A {
			if x.A < y.A {
				return -1
			}
			return 1
		}
		if x.B < y.B {
			return -1
		}
		if x.B > y.B {
			return 1
		}
		return 0
	})
	return keys
}
