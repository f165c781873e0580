package physics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// RestitutionMode chooses how the two materials' restitution combine into one impulse
// coefficient.
type RestitutionMode string

const (
	// RestitutionReference uses only the reference body's restitution.
	RestitutionReference RestitutionMode = "reference"
	RestitutionMin       RestitutionMode = "min"
	RestitutionProduct   RestitutionMode = "product"
	RestitutionAverage   RestitutionMode = "average"
)

// Combine returns the restitution used for a contact between ref and other.
func (m RestitutionMode) Combine(ref, other float32) float32 {
	switch m {
	case RestitutionMin:
		return math32.Min(ref, other)
	case RestitutionProduct:
		return ref * other
	case RestitutionAverage:
		return (ref + other) / 2
	}
	return ref
}

func (m RestitutionMode) valid() bool {
	switch m {
	case RestitutionReference, RestitutionMin, RestitutionProduct, RestitutionAverage:
		return true
	}
	return false
}

// Config holds the tunables of the collision core. Field names match the JSON file.
type Config struct {
	Gravity [3]float32 `json:"gravity"`

	// WorldMin/WorldMax are the octree root bounds. Bodies outside still work. Placement
	// only compares against each node's mid-planes, so they descend into the outermost
	// child on their side like any other body.
	WorldMin [3]float32 `json:"worldMin"`
	WorldMax [3]float32 `json:"worldMax"`

	OctreeMaxObjects int `json:"octreeMaxObjects"` // bucket size before a node splits
	OctreeMaxLevels  int `json:"octreeMaxLevels"`  // depth at which nodes stop splitting

	MinCorrectDist    float32         `json:"minCorrectDist"`    // penetration below this is left alone
	CorrectionSteps   int             `json:"correctionSteps"`   // solver passes over all contacts per step
	SolverIterations  int             `json:"solverIterations"`  // max impulse and correction sweeps per pass
	RestingFloorScale float32         `json:"restingFloorScale"` // resting floor = |g| * dt * scale
	Restitution       RestitutionMode `json:"restitution"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Gravity:           [3]float32{0, -20, 0},
		WorldMin:          [3]float32{-128, -128, -128},
		WorldMax:          [3]float32{128, 128, 128},
		OctreeMaxObjects:  8,
		OctreeMaxLevels:   6,
		MinCorrectDist:    0.001,
		CorrectionSteps:   4,
		SolverIterations:  16,
		RestingFloorScale: 8,
		Restitution:       RestitutionReference,
	}
}

// GravityVector returns Gravity as a vector.
func (c Config) GravityVector() rl.Vector3 {
	return rl.Vector3{X: c.Gravity[0], Y: c.Gravity[1], Z: c.Gravity[2]}
}

// Bounds returns the octree root bounds.
func (c Config) Bounds() rl.BoundingBox {
	return rl.BoundingBox{
		Min: rl.Vector3{X: c.WorldMin[0], Y: c.WorldMin[1], Z: c.WorldMin[2]},
		Max: rl.Vector3{X: c.WorldMax[0], Y: c.WorldMax[1], Z: c.WorldMax[2]},
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.OctreeMaxObjects < 1 {
		return fmt.Errorf("octreeMaxObjects must be at least 1, got %d", c.OctreeMaxObjects)
	}
	if c.OctreeMaxLevels < 0 {
		return fmt.Errorf("octreeMaxLevels must not be negative, got %d", c.OctreeMaxLevels)
	}
	if c.CorrectionSteps < 1 {
		return fmt.Errorf("correctionSteps must be at least 1, got %d", c.CorrectionSteps)
	}
	if c.SolverIterations < 1 {
		return fmt.Errorf("solverIterations must be at least 1, got %d", c.SolverIterations)
	}
	if c.MinCorrectDist < 0 {
		return fmt.Errorf("minCorrectDist must not be negative, got %v", c.MinCorrectDist)
	}
	for i := 0; i < 3; i++ {
		if c.WorldMin[i] >= c.WorldMax[i] {
			return errors.New("worldMin must be below worldMax on every axis")
		}
	}
	if !c.Restitution.valid() {
		return fmt.Errorf("unknown restitution mode %q", c.Restitution)
	}
	return nil
}

// LoadConfig reads a JSON config file over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read physics config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse physics config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("physics config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as indented JSON, creating the directory if needed.
func SaveConfig(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
