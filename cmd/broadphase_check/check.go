package main

import (
	"fmt"
	"math/rand"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"prism3d/internal/compute"
	"prism3d/internal/physics"
)

type result struct {
	count int

	brutePairs  int
	octreePairs int
	missed      int // brute-force pairs the octree never offered

	gpuPairs    int
	gpuRan      bool
	gpuMismatch bool

	bruteTime  time.Duration
	octreeTime time.Duration
	gpuTime    time.Duration
}

func (r result) String() string {
	line := fmt.Sprintf("%5d boxes: brute %10v (%5d pairs) | octree %10v (%5d candidates, %d missed)",
		r.count, r.bruteTime.Round(time.Microsecond), r.brutePairs,
		r.octreeTime.Round(time.Microsecond), r.octreePairs, r.missed)
	if r.gpuRan {
		status := "ok"
		if r.gpuMismatch {
			status = "MISMATCH"
		}
		line += fmt.Sprintf(" | GPU %8v (%5d pairs, %s)", r.gpuTime.Round(time.Microsecond), r.gpuPairs, status)
	}
	return line
}

// randomBodies scatters rotated boxes in a cube whose size grows with count to keep density
// reasonable.
func randomBodies(cfg physics.Config, count int, seed int64) []physics.Body {
	rng := rand.New(rand.NewSource(seed))
	spawnSize := float32(30.0) + float32(count)/50.0
	if limit := cfg.WorldMax[0] - cfg.WorldMin[0] - 4; spawnSize > limit {
		spawnSize = limit
	}
	center := rl.Vector3{
		X: (cfg.WorldMin[0] + cfg.WorldMax[0]) / 2,
		Y: (cfg.WorldMin[1] + cfg.WorldMax[1]) / 2,
		Z: (cfg.WorldMin[2] + cfg.WorldMax[2]) / 2,
	}

	bodies := make([]physics.Body, count)
	for i := range bodies {
		pos := rl.Vector3{
			X: center.X + rng.Float32()*spawnSize - spawnSize/2,
			Y: center.Y + rng.Float32()*spawnSize - spawnSize/2,
			Z: center.Z + rng.Float32()*spawnSize - spawnSize/2,
		}
		size := rl.Vector3{X: 0.5 + rng.Float32(), Y: 0.5 + rng.Float32(), Z: 0.5 + rng.Float32()}
		rot := rl.Vector3{X: rng.Float32() * 90, Y: rng.Float32() * 90, Z: rng.Float32() * 90}
		box := physics.NewBoxFromRotation(pos, size, rot)
		bodies[i] = physics.NewRigidBody(box, physics.CategoryDynamic, 1, physics.Material{})
	}
	return bodies
}

// boundsAABBs packs the bounds the octree indexes each body under.
func boundsAABBs(bodies []physics.Body) []compute.AABB {
	out := make([]compute.AABB, len(bodies))
	for i, b := range bodies {
		out[i] = compute.AABBFromBounds(b.Box().Bounds())
	}
	return out
}

func runCheck(cfg physics.Config, count int, seed int64, useGPU bool) result {
	r := result{count: count}
	bodies := randomBodies(cfg, count, seed)
	boxes := boundsAABBs(bodies)

	start := time.Now()
	brute := compute.PairsBruteForce(boxes)
	r.bruteTime = time.Since(start)
	r.brutePairs = len(brute)

	index := make(map[int64]uint32, len(bodies))
	for i, b := range bodies {
		index[b.ID()] = uint32(i)
	}

	start = time.Now()
	tree := physics.NewOctree(cfg.Bounds(), cfg.OctreeMaxObjects, cfg.OctreeMaxLevels)
	tree.FillTree(bodies)
	candidates := make(map[compute.Pair]bool)
	for i, b := range bodies {
		for _, o := range tree.RetrieveCollisions(b) {
			candidates[orderedPair(uint32(i), index[o.ID()])] = true
		}
	}
	r.octreeTime = time.Since(start)
	r.octreePairs = len(candidates)

	for _, p := range brute {
		if !candidates[p] {
			r.missed++
		}
	}

	if useGPU {
		r.gpuRan = true
		gpuPairs, elapsed, err := runGPU(boxes)
		if err != nil {
			fmt.Printf("%5d boxes: GPU ERROR: %v\n", count, err)
			r.gpuMismatch = true
			return r
		}
		r.gpuTime = elapsed
		r.gpuPairs = len(gpuPairs)
		r.gpuMismatch = !samePairs(brute, gpuPairs)
	}
	return r
}

func runGPU(boxes []compute.AABB) ([]compute.Pair, time.Duration, error) {
	maxPairs := uint32(len(boxes) * 20) // Generous pair buffer
	bp, err := compute.NewBoundsPairs(uint32(len(boxes)), maxPairs)
	if err != nil {
		return nil, 0, err
	}
	defer bp.Release()

	// Warm up
	if _, err := bp.DetectPairs(boxes); err != nil {
		return nil, 0, err
	}

	const iterations = 10
	var pairs []compute.Pair
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if pairs, err = bp.DetectPairs(boxes); err != nil {
			return nil, 0, err
		}
	}
	return pairs, time.Since(start) / iterations, nil
}

func orderedPair(a, b uint32) compute.Pair {
	if a > b {
		a, b = b, a
	}
	return compute.Pair{A: a, B: b}
}

// samePairs compares pair sets ignoring order.
func samePairs(want, got []compute.Pair) bool {
	if len(want) != len(got) {
		return false
	}
	set := make(map[compute.Pair]bool, len(want))
	for _, p := range want {
		set[p] = true
	}
	for _, p := range got {
		if !set[orderedPair(p.A, p.B)] {
			return false
		}
	}
	return true
}
