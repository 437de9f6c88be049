// Frame dump tool - runs the background headlessly on the software surface and
// writes every k-th composite frame to a PNG for inspection.
//
// Usage: go run ./cmd/framedump -ticks 300 -every 30 -out frames
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/engine"
	"github.com/pthm-cable/oilblob/renderer"
	"github.com/pthm-cable/oilblob/renderer/raster"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outDir := flag.String("out", "frames", "Output directory for PNG frames")
	width := flag.Int("width", 640, "Render width")
	height := flag.Int("height", 400, "Render height")
	ticks := flag.Int("ticks", 300, "Ticks to run")
	every := flag.Int("every", 30, "Write every N-th frame")
	seed := flag.Int64("seed", 1, "RNG seed")
	style := flag.String("style", "", "Override render style (oil | metaball)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *outDir, *style, *width, *height, *ticks, *every, *seed); err != nil {
		slog.Error("frame dump failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outDir, style string, width, height, ticks, every int, seed int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if style != "" {
		cfg = cfg.Clone()
		cfg.Render.Style = style
		if err := cfg.Recompute(); err != nil {
			return err
		}
	}
	if every < 1 {
		every = 1
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var surf *raster.Surface
	factory := func(_ context.Context, w, h int) (renderer.Surface, error) {
		surf = raster.New(w, h, cfg.Derived.Background)
		return surf, nil
	}

	sched := engine.NewManualScheduler()
	bg := engine.New(cfg, factory, sched, engine.Options{
		Logger: slog.Default(),
		Rand:   rand.New(rand.NewSource(seed)),
	})
	if err := bg.Init(context.Background(), width, height); err != nil {
		return err
	}
	defer bg.Teardown()

	written := 0
	for tick := 1; tick <= ticks; tick++ {
		sched.Step(1)
		if tick%every != 0 {
			continue
		}
		path := filepath.Join(outDir, fmt.Sprintf("frame_%05d.png", tick))
		if err := writeFrame(surf, path); err != nil {
			return err
		}
		written++
	}

	perf := bg.Perf().Stats()
	slog.Info("frames written",
		"dir", outDir,
		"count", written,
		"ticks", ticks,
		"style", cfg.Render.Style,
		"perf", perf,
	)
	return nil
}

func writeFrame(surf *raster.Surface, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := surf.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
