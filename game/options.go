package game

import "log/slog"

// Options holds configuration for creating a Game.
type Options struct {
	Seed        int64        // RNG seed
	LogStats    bool         // Log stats windows via slog
	OutputDir   string       // Directory for CSV logs and config (empty = disabled)
	SnapshotDir string       // Directory for snapshot files (empty = disabled)
	RestorePath string       // Snapshot to rebuild the scene from (empty = fresh scene)
	Headless    bool         // Run without a window
	Logger      *slog.Logger // Defaults to slog.Default()

	// StepsPerUpdate is the number of scene ticks per headless update.
	StepsPerUpdate int
}
