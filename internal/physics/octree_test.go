package physics

import (
	"math/rand"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/require"
)

func testBounds() rl.BoundingBox {
	return rl.BoundingBox{Min: vec(-16, -16, -16), Max: vec(16, 16, 16)}
}

func cubeBody(center rl.Vector3) *RigidBody {
	return NewRigidBody(unitCube(center), CategoryDynamic, 1, Material{})
}

func containsBody(list []Body, b Body) bool {
	for _, o := range list {
		if o.ID() == b.ID() {
			return true
		}
	}
	return false
}

func ids(list []Body) map[int64]bool {
	out := make(map[int64]bool, len(list))
	for _, b := range list {
		out[b.ID()] = true
	}
	return out
}

func TestOctantMapping(t *testing.T) {
	n := &node{bounds: testBounds()}
	cases := []struct {
		center rl.Vector3
		want   int
	}{
		{vec(-8, -8, -8), 0},
		{vec(-8, -8, 8), 1},
		{vec(-8, 8, 8), 2},
		{vec(-8, 8, -8), 3},
		{vec(8, -8, -8), 4},
		{vec(8, -8, 8), 5},
		{vec(8, 8, 8), 6},
		{vec(8, 8, -8), 7},
		{vec(0, 8, 8), -1},
		{vec(0.5, 8, 8), -1}, // touches the mid plane
	}
	for _, c := range cases {
		got := n.octant(unitCube(c.center).Bounds())
		require.Equal(t, c.want, got, "octant of %v", c.center)
	}

	n.split()
	for i, child := range n.children {
		mid := child.mid()
		require.Equal(t, i, n.octant(rl.BoundingBox{Min: mid, Max: mid}), "child %d bounds", i)
		require.Equal(t, 1, child.level)
	}
}

func TestOctreeSplitsAndRetrieves(t *testing.T) {
	tree := NewOctree(testBounds(), 2, 4)
	a := cubeBody(vec(-8, -8, -8))
	b := cubeBody(vec(-7, -8, -8))
	c := cubeBody(vec(8, 8, 8))
	straddler := cubeBody(vec(0, 0, 0))

	tree.FillTree([]Body{a, b, c, straddler})
	require.Equal(t, 4, tree.Len())

	nodes := 0
	tree.Walk(func(NodeInfo) { nodes++ })
	require.Greater(t, nodes, 1, "expected the root to split")

	got := tree.RetrieveCollisions(a)
	require.False(t, containsBody(got, a), "query body must not be returned")
	require.True(t, containsBody(got, b))
	require.True(t, containsBody(got, straddler), "root bucket objects are always candidates")
	require.False(t, containsBody(got, c), "far octant should be culled")

	// A region crossing the mid planes gets the whole tree.
	all := tree.RetrieveRegion(rl.BoundingBox{Min: vec(-1, -1, -1), Max: vec(1, 1, 1)})
	require.Len(t, all, 4)
}

func TestOctreeDepthLimit(t *testing.T) {
	tree := NewOctree(testBounds(), 1, 0)
	for i := 0; i < 5; i++ {
		tree.Insert(cubeBody(vec(float32(-10+i), -8, -8)))
	}
	nodes := 0
	tree.Walk(func(info NodeInfo) {
		nodes++
		require.Equal(t, 5, info.Objects)
	})
	require.Equal(t, 1, nodes, "a tree at its depth limit must not split")
}

func TestOctreeNoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := NewOctree(testBounds(), 4, 5)

	var bodies []*RigidBody
	for i := 0; i < 300; i++ {
		center := vec(rng.Float32()*28-14, rng.Float32()*28-14, rng.Float32()*28-14)
		rot := vec(rng.Float32()*90, rng.Float32()*90, rng.Float32()*90)
		rb := NewRigidBody(NewBoxFromRotation(center, vec(1, 1, 1), rot), CategoryDynamic, 1, Material{})
		bodies = append(bodies, rb)
		tree.Insert(rb)
	}

	for _, a := range bodies {
		candidates := ids(tree.RetrieveCollisions(a))
		for _, b := range bodies {
			if a == b {
				continue
			}
			if _, ok := a.Box().TestCollisionStationary(b.Box()); ok {
				require.True(t, candidates[b.ID()], "body %d overlaps %d but was not a candidate", a.ID(), b.ID())
			}
		}
	}
}

func TestOctreeRetrieveCollisionsCoversMove(t *testing.T) {
	tree := NewOctree(testBounds(), 1, 3)
	behind := cubeBody(vec(-7, 8, 8))
	far := cubeBody(vec(8, -8, -8))
	mover := cubeBody(vec(-6, 8, 8))
	mover.SetVelocity(vec(840, 0, 0))
	mover.Box().BeginMove(testDT)
	end, _ := mover.Box().LastMove()
	mover.SetPosition(end.End)
	tree.FillTree([]Body{behind, far, mover})

	got := tree.RetrieveCollisions(mover)
	require.True(t, containsBody(got, behind), "body at the start of the path must be a candidate")
	require.False(t, containsBody(got, mover))

	mover.Box().ClearMove()
	got = tree.RetrieveCollisions(mover)
	require.False(t, containsBody(got, behind), "without a move only the current bounds count")
}

func TestOctreeBodyOutsideBoundsDescends(t *testing.T) {
	tree := NewOctree(testBounds(), 1, 3)
	near := cubeBody(vec(-8, -8, -8))
	outside := cubeBody(vec(40, 40, 40))
	tree.Insert(near)
	tree.Insert(outside)

	tree.Walk(func(info NodeInfo) {
		if info.Level == 0 {
			require.Zero(t, info.Objects, "root bucket should be empty after the split")
		}
	})
	require.True(t, containsBody(tree.RetrieveRegion(outside.Box().Bounds()), outside))
	require.True(t, tree.Remove(outside))
	require.Equal(t, 1, tree.Len())
}

func TestOctreeRemove(t *testing.T) {
	tree := NewOctree(testBounds(), 2, 4)
	var bodies []*RigidBody
	for i := 0; i < 12; i++ {
		rb := cubeBody(vec(float32(i%4)*3-7, float32(i/4)*3-7, -8))
		bodies = append(bodies, rb)
		tree.Insert(rb)
	}

	require.True(t, tree.Remove(bodies[3]))
	require.False(t, tree.Remove(bodies[3]), "second remove must report not found")
	require.Equal(t, 11, tree.Len())

	for _, b := range bodies {
		require.False(t, containsBody(tree.RetrieveCollisions(b), bodies[3]))
	}
	require.False(t, containsBody(tree.RetrieveRegion(testBounds()), bodies[3]))

	for _, b := range bodies {
		tree.Remove(b)
	}
	require.True(t, tree.Empty())
	require.Equal(t, 0, tree.Len())

	nodes := 0
	tree.Walk(func(info NodeInfo) {
		nodes++
		require.True(t, info.Leaf)
	})
	require.Equal(t, 1, nodes, "removing everything should collapse to the root")
	require.Nil(t, tree.root.children)
}

func TestOctreeRemoveUnknown(t *testing.T) {
	tree := NewOctree(testBounds(), 2, 4)
	tree.Insert(cubeBody(vec(1, 1, 1)))
	require.False(t, tree.Remove(cubeBody(vec(1, 1, 1))))
	require.False(t, tree.Remove(nil))
	require.Equal(t, 1, tree.Len())
}

func TestOctreeRemoveFindsMovedBody(t *testing.T) {
	tree := NewOctree(testBounds(), 1, 4)
	a := cubeBody(vec(-8, -8, -8))
	b := cubeBody(vec(8, 8, 8))
	tree.FillTree([]Body{a, b})

	// The tree still buckets a by where it was inserted.
	a.SetPosition(vec(8, -8, 8))
	require.True(t, tree.Remove(a))
	tree.Insert(a)
	require.True(t, containsBody(tree.RetrieveRegion(rl.BoundingBox{Min: vec(7, -9, 7), Max: vec(9, -7, 9)}), a))
}

func TestOctreeInsertRemoveRoundTrip(t *testing.T) {
	tree := NewOctree(testBounds(), 8, 4)
	var bodies []Body
	for i := 0; i < 6; i++ {
		bodies = append(bodies, cubeBody(vec(float32(i)*2-6, 5, 5)))
	}
	tree.FillTree(bodies)

	before := make([]map[int64]bool, len(bodies))
	for i, b := range bodies {
		before[i] = ids(tree.RetrieveCollisions(b))
	}

	extra := cubeBody(vec(-5, 5, 5))
	tree.Insert(extra)
	require.True(t, tree.Remove(extra))

	for i, b := range bodies {
		require.Equal(t, before[i], ids(tree.RetrieveCollisions(b)), "candidates of body %d changed", i)
	}

	// A lone body that forces a split leaves no trace either.
	single := NewOctree(testBounds(), 1, 4)
	lone := cubeBody(vec(8, 8, 8))
	single.Insert(lone)
	require.Empty(t, single.RetrieveCollisions(lone))
	visitor := cubeBody(vec(-8, -8, -8))
	single.Insert(visitor)
	require.True(t, single.Remove(visitor))
	require.Empty(t, single.RetrieveCollisions(lone))
	require.Empty(t, single.RetrieveRegion(visitor.Box().Bounds()))
}

func TestOctreeRetrieveRay(t *testing.T) {
	tree := NewOctree(testBounds(), 1, 4)
	near := cubeBody(vec(8, 8, 8))
	far := cubeBody(vec(-8, -8, -8))
	tree.FillTree([]Body{near, far})

	ray := rl.Ray{Position: vec(5, 8, 8), Direction: vec(2, 0, 0)}
	got := tree.RetrieveRay(ray, 6)
	require.True(t, containsBody(got, near))
	require.False(t, containsBody(got, far))
}

func TestOctreeResetTree(t *testing.T) {
	tree := NewOctree(testBounds(), 1, 4)
	tree.FillTree([]Body{cubeBody(vec(1, 1, 1)), cubeBody(vec(-1, -1, -1)), cubeBody(vec(5, 5, 5))})

	bigger := rl.BoundingBox{Min: vec(-64, -64, -64), Max: vec(64, 64, 64)}
	tree.ResetTree(0, bigger)
	require.True(t, tree.Empty())
	require.Equal(t, 0, tree.Len())
	require.Equal(t, bigger, tree.Bounds())
}
