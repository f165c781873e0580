// Cross-check of octree, brute-force and GPU broad-phase pair detection
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"prism3d/internal/compute"
	"prism3d/internal/physics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exiting.
func run(args []string) int {
	fs := flag.NewFlagSet("broadphase_check", flag.ContinueOnError)
	configPath := fs.String("config", "", "physics config JSON file")
	countsFlag := fs.String("counts", "100,500,1000,2000,5000", "comma separated box counts")
	seed := fs.Int64("seed", 42, "random seed")
	gpu := fs.Bool("gpu", true, "include the GPU pass when a device is available")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := physics.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = physics.LoadConfig(*configPath); err != nil {
			log.Printf("Failed to load config: %v", err)
			return 2
		}
	}

	counts, err := parseCounts(*countsFlag)
	if err != nil {
		log.Printf("Bad -counts: %v", err)
		return 2
	}

	useGPU := false
	if *gpu {
		if info, err := compute.Initialize(); err != nil {
			fmt.Printf("GPU unavailable (%v), CPU only\n\n", err)
		} else {
			fmt.Printf("GPU: %s | %s | %s\n\n", info.Backend, info.Vendor, info.Name)
			useGPU = true
			defer compute.Get().Release()
		}
	}

	code := 0
	for _, count := range counts {
		r := runCheck(cfg, count, *seed, useGPU)
		fmt.Println(r)
		if r.missed > 0 || r.gpuMismatch {
			code = 1
		}
	}
	return code
}

func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("count must be positive, got %d", n)
		}
		counts = append(counts, n)
	}
	return counts, nil
}
