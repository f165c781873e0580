// Package compute runs GPU compute passes via WebGPU, separate from raylib's OpenGL
// rendering.
package compute

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnavailable is returned when Initialize has not succeeded.
var ErrUnavailable = errors.New("compute: GPU not initialized")

// System owns the WebGPU device. Initialize once at startup.
type System struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu       sync.Mutex
	released bool
}

// Buffer is a GPU buffer and the size it was created with.
type Buffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

var (
	globalSystem *System
	initOnce     sync.Once
	initErr      error
)

// AdapterInfo describes the GPU in use.
type AdapterInfo struct {
	Name       string
	Vendor     string
	Backend    string
	DeviceType string
	Driver     string
}

// Initialize sets up the compute system. Later calls return the first result.
func Initialize() (AdapterInfo, error) {
	initOnce.Do(func() {
		globalSystem, initErr = newSystem()
	})
	if initErr != nil {
		return AdapterInfo{}, initErr
	}
	return globalSystem.info(), nil
}

// Get returns the global compute system, or nil before a successful Initialize.
func Get() *System {
	return globalSystem
}

func newSystem() (*System, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("request GPU adapter: %w", err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("request GPU device: %w", err)
	}

	s := &System{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
	}
	info := s.info()
	log.Printf("Compute: using %s (%s)", info.Name, info.Backend)
	return s, nil
}

func (s *System) info() AdapterInfo {
	ai := s.adapter.GetInfo()
	return AdapterInfo{
		Name:       ai.Name,
		Vendor:     ai.VendorName,
		Backend:    ai.BackendType.String(),
		DeviceType: ai.AdapterType.String(),
		Driver:     ai.DriverDescription,
	}
}

func (s *System) newBuffer(label string, size uint64, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	return &Buffer{buffer: buf, size: size}, nil
}

func (s *System) write(buf *Buffer, offset uint64, data []byte) {
	s.queue.WriteBuffer(buf.buffer, offset, data)
}

// Release frees the device. Calls after the first do nothing.
func (s *System) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true

	s.queue.Release()
	s.device.Release()
	s.adapter.Release()
	s.instance.Release()
}

// Release frees the buffer's GPU memory. A nil buffer is ignored.
func (b *Buffer) Release() {
	if b != nil && b.buffer != nil {
		b.buffer.Release()
	}
}

func toBytes[T any](data []T) []byte {
	return wgpu.ToBytes(data)
}

func fromBytes[T any](data []byte) []T {
	return wgpu.FromBytes[T](data)
}
