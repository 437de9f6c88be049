// Terminal viewer - hosts the background in a terminal using half-block cells.
//
// Usage: go run ./cmd/termview [-config config.yaml]
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/engine"
	"github.com/pthm-cable/oilblob/renderer"
	"github.com/pthm-cable/oilblob/renderer/termsurface"
)

// Scene pixels per terminal cell. Cells are roughly twice as tall as wide.
const (
	cellPxX = 8
	cellPxY = 16
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	fps := flag.Int("fps", 30, "Frames per second")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	logPath := flag.String("log", "", "Write JSON logs to this file (the terminal is busy)")
	flag.Parse()

	if err := run(*configPath, *logPath, *fps, *seed); err != nil {
		slog.Error("termview failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string, fps int, seed int64) error {
	logger, closeLog, err := openLog(logPath)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.EnableFocus()
	screen.HideCursor()

	factory := func(_ context.Context, w, h int) (renderer.Surface, error) {
		return termsurface.New(screen, w, h, cfg.Derived.Background), nil
	}

	bg := engine.New(cfg, factory, engine.NewTickerScheduler(fps, cfg.Sim.MaxDelta), engine.Options{
		Logger: logger,
		Rand:   rand.New(rand.NewSource(seed)),
	})
	defer bg.Teardown()

	cols, rows := screen.Size()
	if err := bg.Init(context.Background(), cols*cellPxX, rows*cellPxY); err != nil {
		return err
	}

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				return nil
			}
		case *tcell.EventResize:
			screen.Sync()
			cols, rows := ev.Size()
			bg.Resize(cols*cellPxX, rows*cellPxY)
		case *tcell.EventMouse:
			cx, cy := ev.Position()
			bg.PointerMove((float64(cx)+0.5)*cellPxX, (float64(cy)+0.5)*cellPxY)
		case *tcell.EventFocus:
			if !ev.Focused {
				bg.PointerLeave()
			}
			bg.SetVisible(ev.Focused)
		case nil:
			return nil
		}
	}
}

// openLog returns a JSON logger writing to path, or discarding when path is empty.
func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, nil)), func() { f.Close() }, nil
}
