package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// Octree buckets bodies by their world bounds. Nodes split once their bucket passes
// maxObjects, until maxLevels. A body that straddles a node's mid planes stays in that
// node's bucket.
//
// The tree holds references only; it never owns or mutates bodies. Bodies are bucketed by
// the bounds they had when inserted, so a body that moved must be removed and reinserted.
type Octree struct {
	root       *node
	maxObjects int
	maxLevels  int
	count      int
}

type node struct {
	bounds   rl.BoundingBox
	level    int
	children *[8]*node
	objects  []Body
}

// NodeInfo describes one node for Walk.
type NodeInfo struct {
	Bounds  rl.BoundingBox
	Level   int
	Objects int
	Leaf    bool
}

type removeResult uint8

const (
	notFound      removeResult = iota
	foundEmpty                 // removed here, bucket now empty
	foundNotEmpty              // removed here, bucket still holds objects
	foundByChild               // removed somewhere below
)

// NewOctree creates an empty tree over bounds.
func NewOctree(bounds rl.BoundingBox, maxObjects, maxLevels int) *Octree {
	if maxObjects < 1 {
		maxObjects = 1
	}
	if maxLevels < 0 {
		maxLevels = 0
	}
	return &Octree{
		root:       &node{bounds: bounds},
		maxObjects: maxObjects,
		maxLevels:  maxLevels,
	}
}

// Bounds returns the root bounds.
func (t *Octree) Bounds() rl.BoundingBox { return t.root.bounds }

// Len returns the number of inserted bodies.
func (t *Octree) Len() int { return t.count }

// Empty reports whether no node holds a body.
func (t *Octree) Empty() bool { return t.root.empty() }

// ResetTree drops every node and body and starts over with a root at level over bounds.
func (t *Octree) ResetTree(level int, bounds rl.BoundingBox) {
	t.root = &node{bounds: bounds, level: level}
	t.count = 0
}

// FillTree inserts every body in order.
func (t *Octree) FillTree(bodies []Body) {
	for _, b := range bodies {
		t.Insert(b)
	}
}

// Insert adds b at the deepest node that fully contains its current bounds.
func (t *Octree) Insert(b Body) {
	if b == nil || b.Box() == nil {
		return
	}
	t.root.insert(b, t.maxObjects, t.maxLevels)
	t.count++
}

// Remove removes the body with b's ID. It returns false if the body is not in the tree.
func (t *Octree) Remove(b Body) bool {
	if b == nil {
		return false
	}
	if t.root.remove(b.ID(), t.maxObjects, t.maxLevels) == notFound {
		return false
	}
	t.count--
	return true
}

// RetrieveCollisions returns the candidates that may touch b, never b itself.
// It covers b's recorded move, or just its current bounds when there is none.
func (t *Octree) RetrieveCollisions(b Body) []Body {
	found := t.RetrieveRegion(b.Box().SweptBounds(0))
	out := found[:0]
	for _, o := range found {
		if o.ID() != b.ID() {
			out = append(out, o)
		}
	}
	return out
}

// RetrieveRay returns the candidates for a ray of length distance.
func (t *Octree) RetrieveRay(ray rl.Ray, distance float32) []Body {
	dir, ok := unit(ray.Direction)
	if !ok {
		dir = rl.Vector3{}
	}
	end := rl.Vector3Add(ray.Position, rl.Vector3Scale(dir, distance))
	return t.RetrieveRegion(rl.BoundingBox{
		Min: vecMin(ray.Position, end),
		Max: vecMax(ray.Position, end),
	})
}

// RetrieveRegion returns every body bucketed on the path down to the deepest node that
// fully contains bounds, plus that node's whole subtree. The result may contain bodies that
// do not touch bounds but never misses one that does.
func (t *Octree) RetrieveRegion(bounds rl.BoundingBox) []Body {
	var out []Body
	n := t.root
	for {
		if n.children == nil {
			return append(out, n.objects...)
		}
		i := n.octant(bounds)
		if i < 0 {
			return n.collect(out)
		}
		out = append(out, n.objects...)
		n = n.children[i]
	}
}

// Walk visits every node depth first, parents before children.
func (t *Octree) Walk(fn func(NodeInfo)) {
	t.root.walk(fn)
}

func (n *node) walk(fn func(NodeInfo)) {
	fn(NodeInfo{Bounds: n.bounds, Level: n.level, Objects: len(n.objects), Leaf: n.children == nil})
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}

// octant returns the child index whose half strictly contains bb, or -1 if bb touches or
// crosses a mid plane.
//
//	0 = x-y-z-  1 = x-y-z+  2 = x-y+z+  3 = x-y+z-
//	4 = x+y-z-  5 = x+y-z+  6 = x+y+z+  7 = x+y+z-
func (n *node) octant(bb rl.BoundingBox) int {
	mid := n.mid()
	side := func(lo, hi, m float32) int {
		switch {
		case hi < m:
			return 0
		case lo > m:
			return 1
		}
		return -1
	}
	x := side(bb.Min.X, bb.Max.X, mid.X)
	y := side(bb.Min.Y, bb.Max.Y, mid.Y)
	z := side(bb.Min.Z, bb.Max.Z, mid.Z)
	if x < 0 || y < 0 || z < 0 {
		return -1
	}
	return octantIndex(x, y, z)
}

func octantIndex(x, y, z int) int {
	i := 4 * x
	if y == 0 {
		return i + z
	}
	return i + 3 - z
}

func (n *node) mid() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Add(n.bounds.Min, n.bounds.Max), 0.5)
}

func (n *node) split() {
	if n.children != nil {
		return
	}
	mid := n.mid()
	var children [8]*node
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				bounds := n.bounds
				if x == 0 {
					bounds.Max.X = mid.X
				} else {
					bounds.Min.X = mid.X
				}
				if y == 0 {
					bounds.Max.Y = mid.Y
				} else {
					bounds.Min.Y = mid.Y
				}
				if z == 0 {
					bounds.Max.Z = mid.Z
				} else {
					bounds.Min.Z = mid.Z
				}
				children[octantIndex(x, y, z)] = &node{bounds: bounds, level: n.level + 1}
			}
		}
	}
	n.children = &children
}

func (n *node) insert(b Body, maxObjects, maxLevels int) {
	bounds := b.Box().Bounds()
	if n.children != nil {
		if i := n.octant(bounds); i >= 0 {
			n.children[i].insert(b, maxObjects, maxLevels)
			return
		}
	}
	n.objects = append(n.objects, b)
	if len(n.objects) <= maxObjects || n.level >= maxLevels {
		return
	}

	n.split()
	pending := n.objects
	n.objects = nil
	for _, o := range pending {
		if i := n.octant(o.Box().Bounds()); i >= 0 {
			n.children[i].insert(o, maxObjects, maxLevels)
		} else {
			n.objects = append(n.objects, o)
		}
	}
}

func (n *node) remove(id int64, maxObjects, maxLevels int) removeResult {
	for i, o := range n.objects {
		if o.ID() != id {
			continue
		}
		n.objects = append(n.objects[:i], n.objects[i+1:]...)
		if n.children != nil && n.childrenEmpty() {
			n.children = nil
		}
		if len(n.objects) == 0 {
			return foundEmpty
		}
		return foundNotEmpty
	}

	if n.children == nil {
		return notFound
	}
	for _, c := range n.children {
		r := c.remove(id, maxObjects, maxLevels)
		if r == notFound {
			continue
		}
		if n.childrenEmpty() {
			n.children = nil
			if len(n.objects) == 0 {
				return foundEmpty
			}
			return foundByChild
		}
		if r == foundEmpty {
			c.flatten(maxObjects, maxLevels)
		}
		return foundByChild
	}
	return notFound
}

// flatten collects the whole subtree, clears it and inserts everything again.
func (n *node) flatten(maxObjects, maxLevels int) {
	all := n.collect(nil)
	n.children = nil
	n.objects = nil
	for _, o := range all {
		n.insert(o, maxObjects, maxLevels)
	}
}

func (n *node) collect(out []Body) []Body {
	out = append(out, n.objects...)
	if n.children != nil {
		for _, c := range n.children {
			out = c.collect(out)
		}
	}
	return out
}

func (n *node) empty() bool {
	return len(n.objects) == 0 && (n.children == nil || n.childrenEmpty())
}

func (n *node) childrenEmpty() bool {
	for _, c := range n.children {
		if !c.empty() {
			return false
		}
	}
	return true
}
