// Package camera holds the orbit camera used by the viewer.
package camera

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OrbitCamera circles a target point. Yaw and Pitch are in degrees.
type OrbitCamera struct {
	Target   rl.Vector3
	Distance float32
	Yaw      float32
	Pitch    float32

	LookSpeed   float32
	ZoomSpeed   float32
	PanSpeed    float32
	MinDistance float32
	MaxDistance float32
}

func New(target rl.Vector3, distance float32) *OrbitCamera {
	return &OrbitCamera{
		Target:      target,
		Distance:    distance,
		Yaw:         -135.0,
		Pitch:       30.0,
		LookSpeed:   0.3,
		ZoomSpeed:   1.5,
		PanSpeed:    10.0, // Units per second
		MinDistance: 2.0,
		MaxDistance: 200.0,
	}
}

// Update reads input. Right mouse drags orbit, the wheel zooms and WASD pans the target
// along the ground plane.
func (c *OrbitCamera) Update(deltaTime float32) {
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		mouseDelta := rl.GetMouseDelta()
		c.Orbit(mouseDelta.X*c.LookSpeed, mouseDelta.Y*c.LookSpeed)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		c.Zoom(-wheel * c.ZoomSpeed)
	}

	var forwardInput, rightInput float32
	if rl.IsKeyDown(rl.KeyW) {
		forwardInput++
	}
	if rl.IsKeyDown(rl.KeyS) {
		forwardInput--
	}
	if rl.IsKeyDown(rl.KeyD) {
		rightInput++
	}
	if rl.IsKeyDown(rl.KeyA) {
		rightInput--
	}
	c.Pan(forwardInput*c.PanSpeed*deltaTime, rightInput*c.PanSpeed*deltaTime)
}

// Orbit rotates around the target. Pitch stays within (-89, 89) degrees.
func (c *OrbitCamera) Orbit(yawDelta, pitchDelta float32) {
	c.Yaw += yawDelta
	c.Pitch += pitchDelta

	// Clamp pitch
	if c.Pitch > 89 {
		c.Pitch = 89
	}
	if c.Pitch < -89 {
		c.Pitch = -89
	}
}

// Zoom changes the distance to the target within [MinDistance, MaxDistance].
func (c *OrbitCamera) Zoom(delta float32) {
	c.Distance += delta
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}

// Pan moves the target on the horizontal plane relative to the view direction.
func (c *OrbitCamera) Pan(forwardAmount, rightAmount float32) {
	forward, right := c.Directions()
	c.Target.X += forward.X*forwardAmount + right.X*rightAmount
	c.Target.Z += forward.Z*forwardAmount + right.Z*rightAmount
}

// Directions returns the horizontal forward (camera toward target) and right unit vectors.
func (c *OrbitCamera) Directions() (forward, right rl.Vector3) {
	yawRad := float64(c.Yaw) * math.Pi / 180
	forward = rl.Vector3{
		X: float32(-math.Cos(yawRad)),
		Y: 0,
		Z: float32(-math.Sin(yawRad)),
	}
	right = rl.Vector3{
		X: float32(math.Sin(yawRad)),
		Y: 0,
		Z: float32(-math.Cos(yawRad)),
	}
	return
}

// Position is the eye point on the sphere around the target.
func (c *OrbitCamera) Position() rl.Vector3 {
	yawRad := float64(c.Yaw) * math.Pi / 180
	pitchRad := float64(c.Pitch) * math.Pi / 180
	d := float64(c.Distance)

	return rl.Vector3{
		X: c.Target.X + float32(d*math.Cos(yawRad)*math.Cos(pitchRad)),
		Y: c.Target.Y + float32(d*math.Sin(pitchRad)),
		Z: c.Target.Z + float32(d*math.Sin(yawRad)*math.Cos(pitchRad)),
	}
}

func (c *OrbitCamera) GetRaylibCamera() rl.Camera3D {
	return rl.Camera3D{
		Position:   c.Position(),
		Target:     c.Target,
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
}
