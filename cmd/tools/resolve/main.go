// Command resolve checks a seed config offline: it seeds a frame graph from
// the file and resolves the transform between two frames, printing the
// connecting path and composed pose. Useful for validating a deployment
// config before pointing the daemon at it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/frame.fusion/internal/config"
	"github.com/banshee-data/frame.fusion/internal/fusion"
)

var (
	configPath = flag.String("config", "config/seed.yaml", "Seed config file")
	fromFrame  = flag.String("from", "", "Source frame")
	toFrame    = flag.String("to", "", "Destination frame")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	graph := fusion.NewGraph()
	if err := cfg.Seed(graph); err != nil {
		log.Fatalf("failed to seed frame graph: %v", err)
	}

	if *fromFrame == "" || *toFrame == "" {
		fmt.Printf("config OK: %d frames, %d edges\n", len(graph.Frames()), graph.EdgeCount())
		for _, name := range graph.Frames() {
			fmt.Printf("  %s\n", name)
		}
		return
	}

	path := graph.FindPath(*fromFrame, *toFrame)
	if len(path) == 0 {
		fmt.Printf("no path from %q to %q\n", *fromFrame, *toFrame)
		os.Exit(1)
	}

	res, err := graph.ResolveTransform(*fromFrame, *toFrame)
	if err != nil {
		log.Fatalf("failed to resolve transform: %v", err)
	}

	fmt.Printf("path:")
	for i, frame := range path {
		if i > 0 {
			fmt.Printf(" ->")
		}
		fmt.Printf(" %s", frame)
	}
	fmt.Println()

	t := res.Transform
	fmt.Printf("origin: [%.6f, %.6f, %.6f]\n", t.Origin.X, t.Origin.Y, t.Origin.Z)
	fmt.Printf("rot:    [%.6f, %.6f, %.6f, %.6f]\n", t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W)
}
