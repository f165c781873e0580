package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// AABB is a world axis aligned box laid out like the shader's vec3 + pad pairs.
type AABB struct {
	MinX, MinY, MinZ float32
	_                float32
	MaxX, MaxY, MaxZ float32
	_                float32
}

// AABBFromBounds packs raylib bounds for upload.
func AABBFromBounds(b rl.BoundingBox) AABB {
	return AABB{
		MinX: b.Min.X, MinY: b.Min.Y, MinZ: b.Min.Z,
		MaxX: b.Max.X, MaxY: b.Max.Y, MaxZ: b.Max.Z,
	}
}

// Overlaps reports whether a and b touch or overlap. Touching counts so the result is a
// superset of the narrow phase.
func (a AABB) Overlaps(b AABB) bool {
	return a.MinX <= b.MaxX && b.MinX <= a.MaxX &&
		a.MinY <= b.MaxY && b.MinY <= a.MaxY &&
		a.MinZ <= b.MaxZ && b.MinZ <= a.MaxZ
}

// Pair holds two indices into the DetectPairs input, A < B.
type Pair struct {
	A, B uint32
}

// PairsBruteForce is the CPU reference for DetectPairs, in index order.
func PairsBruteForce(boxes []AABB) []Pair {
	var pairs []Pair
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Overlaps(boxes[j]) {
				pairs = append(pairs, Pair{A: uint32(i), B: uint32(j)})
			}
		}
	}
	return pairs
}

const boundsPairsShader = `
// Each thread checks one box against all boxes with higher indices,
// so every pair is tested once.

struct Box {
    min: vec3<f32>,
    max: vec3<f32>,
}

struct Pair {
    a: u32,
    b: u32,
}

@group(0) @binding(0) var<storage, read> boxes: array<Box>;
@group(0) @binding(1) var<storage, read_write> pairs: array<Pair>;
@group(0) @binding(2) var<storage, read_write> pairCount: atomic<u32>;
@group(0) @binding(3) var<uniform> objectCount: u32;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= objectCount) {
        return;
    }

    let a = boxes[i];
    for (var j = i + 1u; j < objectCount; j = j + 1u) {
        let b = boxes[j];
        if (all(a.min <= b.max) && all(b.min <= a.max)) {
            let idx = atomicAdd(&pairCount, 1u);
            if (idx < arrayLength(&pairs)) {
                pairs[idx] = Pair(i, j);
            }
        }
    }
}
`

// BoundsPairs finds overlapping AABB pairs on the GPU.
type BoundsPairs struct {
	system *System

	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline

	boxBuffer   *Buffer // Input: boxes
	pairBuffer  *Buffer // Output: overlapping pairs
	countBuffer *Buffer // Output: number of pairs found
	paramBuffer *Buffer // Uniform: object count
	readBuffer  *Buffer // Mappable copy of the count and the pairs

	maxObjects uint32
	maxPairs   uint32
}

// pairsOffset is where the pairs start in readBuffer, after the count and padding.
const pairsOffset = 8

// NewBoundsPairs builds the pipeline and buffers. It returns ErrUnavailable when compute
// has not been initialized.
func NewBoundsPairs(maxObjects, maxPairs uint32) (*BoundsPairs, error) {
	sys := Get()
	if sys == nil {
		return nil, ErrUnavailable
	}
	device := sys.device

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "bounds_pairs_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
			{Binding: 3, Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "bounds_pairs_pipeline_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "bounds_pairs_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: boundsPairsShader},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create shader module: %w", err)
	}
	defer shaderModule.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "bounds_pairs_pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shaderModule,
			EntryPoint: "main",
		},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create compute pipeline: %w", err)
	}

	bp := &BoundsPairs{
		system:     sys,
		layout:     layout,
		pipeline:   pipeline,
		maxObjects: maxObjects,
		maxPairs:   maxPairs,
	}

	buffers := []struct {
		dst   **Buffer
		label string
		size  uint64
		usage wgpu.BufferUsage
	}{
		{&bp.boxBuffer, "boxes", uint64(maxObjects) * 32, wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
		{&bp.pairBuffer, "pairs", uint64(maxPairs) * 8, wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc},
		{&bp.countBuffer, "pairCount", 4, wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst},
		{&bp.paramBuffer, "objectCount", 16, wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst},
		{&bp.readBuffer, "readback", pairsOffset + uint64(maxPairs)*8, wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst},
	}
	for _, b := range buffers {
		if *b.dst, err = sys.newBuffer(b.label, b.size, b.usage); err != nil {
			bp.Release()
			return nil, err
		}
	}
	return bp, nil
}

// DetectPairs returns every overlapping pair of boxes. Order is not defined. Input beyond
// maxObjects is ignored and output is capped at maxPairs.
func (bp *BoundsPairs) DetectPairs(boxes []AABB) ([]Pair, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	if uint32(len(boxes)) > bp.maxObjects {
		boxes = boxes[:bp.maxObjects]
	}
	sys := bp.system
	objectCount := uint32(len(boxes))

	sys.write(bp.boxBuffer, 0, toBytes(boxes))
	sys.write(bp.countBuffer, 0, toBytes([]uint32{0}))
	sys.write(bp.paramBuffer, 0, toBytes([]uint32{objectCount}))

	if err := bp.dispatch(objectCount); err != nil {
		return nil, err
	}

	data, err := bp.readBack()
	if err != nil {
		return nil, err
	}
	return decodePairs(data, bp.maxPairs), nil
}

// decodePairs reads the readBuffer layout: a uint32 count, padding up to pairsOffset, then
// the pairs. The shader keeps counting past maxPairs, so the count is capped.
func decodePairs(data []byte, maxPairs uint32) []Pair {
	if len(data) < pairsOffset {
		return nil
	}
	n := fromBytes[uint32](data[:4])[0]
	if avail := uint32(len(data)-pairsOffset) / 8; n > avail {
		n = avail
	}
	if n > maxPairs {
		n = maxPairs
	}
	if n == 0 {
		return nil
	}
	pairs := make([]Pair, n)
	copy(pairs, fromBytes[Pair](data[pairsOffset:pairsOffset+8*int(n)]))
	return pairs
}

// dispatch runs the shader and copies the count and the pairs into readBuffer in the same
// submission.
func (bp *BoundsPairs) dispatch(objectCount uint32) error {
	device := bp.system.device

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "bounds_pairs_bindgroup",
		Layout: bp.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: bp.boxBuffer.buffer, Size: bp.boxBuffer.size},
			{Binding: 1, Buffer: bp.pairBuffer.buffer, Size: bp.pairBuffer.size},
			{Binding: 2, Buffer: bp.countBuffer.buffer, Size: bp.countBuffer.size},
			{Binding: 3, Buffer: bp.paramBuffer.buffer, Size: bp.paramBuffer.size},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(bp.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups((objectCount+255)/256, 1, 1)
	pass.End()
	pass.Release()

	encoder.CopyBufferToBuffer(bp.countBuffer.buffer, 0, bp.readBuffer.buffer, 0, bp.countBuffer.size)
	encoder.CopyBufferToBuffer(bp.pairBuffer.buffer, 0, bp.readBuffer.buffer, pairsOffset, bp.pairBuffer.size)

	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	defer commands.Release()

	bp.system.queue.Submit(commands)
	return nil
}

// readBack maps readBuffer and returns a copy of its contents.
func (bp *BoundsPairs) readBack() ([]byte, error) {
	staging := bp.readBuffer.buffer
	done := make(chan error, 1)
	err := staging.MapAsync(wgpu.MapModeRead, 0, bp.readBuffer.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("map readback buffer: %v", status)
			return
		}
		done <- nil
	})
	if err != nil {
		return nil, err
	}

	bp.system.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	mapped := staging.GetMappedRange(0, uint(bp.readBuffer.size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

// Release frees GPU resources.
func (bp *BoundsPairs) Release() {
	for _, b := range []*Buffer{bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.paramBuffer, bp.readBuffer} {
		b.Release()
	}
	if bp.pipeline != nil {
		bp.pipeline.Release()
	}
	if bp.layout != nil {
		bp.layout.Release()
	}
}
