// Interactive viewer for the collision core
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"prism3d/internal/camera"
	"prism3d/internal/physics"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	fixedStep    = float32(1.0 / 60)
)

var (
	panelRect = rl.NewRectangle(10, 10, 300, 210)

	colorPanel   = rl.NewColor(22, 22, 30, 220)
	colorStatic  = rl.NewColor(120, 120, 135, 255)
	colorDynamic = rl.NewColor(99, 102, 241, 255)
	colorResting = rl.NewColor(56, 189, 248, 255)
	colorContact = rl.NewColor(236, 72, 153, 255)
	colorPicked  = rl.NewColor(250, 204, 21, 255)
	colorNode    = rl.NewColor(80, 200, 120, 90)
)

func main() {
	configPath := flag.String("config", "", "physics config JSON file")
	boxes := flag.Int("boxes", 20, "boxes to spawn at startup")
	flag.Parse()

	cfg := physics.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = physics.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	s, err := newScene(cfg, *boxes, time.Now().UnixNano())
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}

	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(screenWidth, screenHeight, "prism3d viewer")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 15)

	cam := camera.New(rl.Vector3{X: 0, Y: 2, Z: 0}, 28)
	var accumulator float32

	for !rl.WindowShouldClose() {
		dt := rl.GetFrameTime()
		cam.Update(dt)

		if rl.IsKeyPressed(rl.KeySpace) {
			if _, err := s.spawn(); err != nil {
				log.Printf("Spawn failed: %v", err)
			}
		}
		if rl.IsKeyPressed(rl.KeyO) {
			s.showOctree = !s.showOctree
		}
		if rl.IsMouseButtonPressed(rl.MouseLeftButton) && !rl.CheckCollisionPointRec(rl.GetMousePosition(), panelRect) {
			s.pick(rl.GetScreenToWorldRay(rl.GetMousePosition(), cam.GetRaylibCamera()))
		}

		// Fixed step keeps the solver deterministic regardless of frame rate
		accumulator += dt
		for accumulator >= fixedStep {
			s.world.Step(fixedStep)
			accumulator -= fixedStep
		}
		if n := s.dropOutOfBounds(); n > 0 {
			log.Printf("Removed %d bodies below the world", n)
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(14, 14, 20, 255))

		rl.BeginMode3D(cam.GetRaylibCamera())
		drawWorld(s)
		rl.EndMode3D()

		drawPanel(s)
		rl.DrawFPS(int32(rl.GetScreenWidth())-90, 10)
		rl.EndDrawing()
	}
}

func drawWorld(s *scene) {
	for _, b := range s.world.Bodies() {
		drawBox(b.Box(), bodyColor(b))
	}
	if s.selected != nil {
		drawBox(s.selected.Box(), colorPicked)
		for _, m := range s.selectedContacts() {
			rl.DrawSphere(m.point, 0.08, colorPicked)
		}
	}

	if s.showOctree {
		s.world.Octree().Walk(func(n physics.NodeInfo) {
			if n.Objects == 0 && n.Leaf {
				return
			}
			rl.DrawBoundingBox(n.Bounds, colorNode)
		})
	}
}

// bodyColor tells static, moving, resting and touching bodies apart.
func bodyColor(b physics.Body) rl.Color {
	if b.Category() != physics.CategoryDynamic {
		return colorStatic
	}
	rb, ok := b.(*physics.RigidBody)
	switch {
	case !ok:
		return colorDynamic
	case !rb.IsMoving():
		return colorResting
	case rb.NumCollisions() > 0:
		return colorContact
	}
	return colorDynamic
}

func drawBox(b *physics.Box, color rl.Color) {
	corners := b.Corners()
	for _, e := range boxEdges {
		rl.DrawLine3D(corners[e[0]], corners[e[1]], color)
	}
}

func drawPanel(s *scene) {
	rl.DrawRectangleRec(panelRect, colorPanel)
	rl.DrawText("SPACE spawn | LMB pick | RMB orbit | WASD pan | O octree", 20, 20, 12, rl.LightGray)

	mat := s.material
	mat.Restitution = gui.Slider(rl.NewRectangle(100, 45, 140, 18), "Restitution",
		fmt.Sprintf("%.2f", mat.Restitution), mat.Restitution, 0, 1)
	mat.Friction = gui.Slider(rl.NewRectangle(100, 70, 140, 18), "Friction",
		fmt.Sprintf("%.2f", mat.Friction), mat.Friction, 0, 1)
	s.setMaterial(mat)

	steps := float32(s.world.Config().CorrectionSteps)
	steps = gui.Slider(rl.NewRectangle(100, 95, 140, 18), "Sub-steps",
		fmt.Sprintf("%d", int(steps+0.5)), steps, 1, 16)
	if err := s.setCorrectionSteps(int(steps + 0.5)); err != nil {
		log.Printf("Rejected sub-steps: %v", err)
	}

	s.showOctree = gui.CheckBox(rl.NewRectangle(20, 122, 16, 16), "Show octree", s.showOctree)

	rl.DrawText(fmt.Sprintf("Bodies: %d", len(s.world.Bodies())), 20, 150, 14, rl.RayWhite)
	rl.DrawText(fmt.Sprintf("Contacts: %d active, %d total", len(s.world.Contacts()), s.contacts), 20, 170, 14, rl.RayWhite)
	if s.selected != nil {
		rl.DrawText(fmt.Sprintf("Picked: body %d (%s), touching %d", s.selected.ID(), s.selected.Category(),
			len(s.selectedContacts())), 20, 190, 14, colorPicked)
	}
}
