package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/oilblob/scene"
)

// SceneStats holds a snapshot of the scene plus aggregates over a window.
type SceneStats struct {
	WindowStartTick uint64 `csv:"-"`
	Tick            uint64 `csv:"tick"`

	Blobs int `csv:"blobs"`
	Rays  int `csv:"rays"`

	// Blob speed distribution (px per frame)
	MeanSpeed float64 `csv:"mean_speed"`
	SpeedStd  float64 `csv:"speed_std"`
	MaxSpeed  float64 `csv:"max_speed"`

	// Nearest-neighbour centre distances (px)
	MinSeparation float64 `csv:"min_separation"`
	SepP10        float64 `csv:"sep_p10"`
	SepP50        float64 `csv:"sep_p50"`

	// Lighting
	LitBlobs      int     `csv:"lit_blobs"`
	SettledColors int     `csv:"settled_colors"`
	MeanLit       float64 `csv:"mean_lit"` // Averaged over the window

	// Peak blob speed seen anywhere in the window
	PeakSpeed float64 `csv:"peak_speed"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// NearestDistances returns, for each point, the distance to its closest neighbour.
// Fewer than two points yields nil.
func NearestDistances(xs, ys []float64) []float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Inf(1)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Hypot(xs[i]-xs[j], ys[i]-ys[j])
			if d < out[i] {
				out[i] = d
			}
			if d < out[j] {
				out[j] = d
			}
		}
	}
	return out
}

// ComputeSceneStats samples the current state of s.
func ComputeSceneStats(s *scene.Scene) SceneStats {
	blobs := s.Blobs()
	st := SceneStats{
		WindowStartTick: s.Ticks(),
		Tick:            s.Ticks(),
		Blobs:           len(blobs),
		Rays:            s.RayCount(),
	}
	if len(blobs) == 0 {
		return st
	}

	speeds := make([]float64, len(blobs))
	xs := make([]float64, len(blobs))
	ys := make([]float64, len(blobs))
	var lit float64
	for i, b := range blobs {
		speeds[i] = r2.Norm(b.Vel)
		xs[i], ys[i] = b.Pos.X, b.Pos.Y
		if b.Lit > 0 {
			st.LitBlobs++
		}
		if b.Settled {
			st.SettledColors++
		}
		lit += b.Lit
	}

	st.MeanSpeed = stat.Mean(speeds, nil)
	if len(speeds) > 1 {
		st.SpeedStd = stat.StdDev(speeds, nil)
	}
	st.MaxSpeed = floats.Max(speeds)
	st.PeakSpeed = st.MaxSpeed
	st.MeanLit = lit / float64(len(blobs))

	if sep := NearestDistances(xs, ys); sep != nil {
		sort.Float64s(sep)
		st.MinSeparation = sep[0]
		st.SepP10 = Percentile(sep, 0.10)
		st.SepP50 = Percentile(sep, 0.50)
	}
	return st
}

// LogValue implements slog.LogValuer for structured logging.
func (s SceneStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("tick", s.Tick),
		slog.Int("blobs", s.Blobs),
		slog.Int("rays", s.Rays),
		slog.Float64("mean_speed", s.MeanSpeed),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("max_speed", s.MaxSpeed),
		slog.Float64("peak_speed", s.PeakSpeed),
		slog.Float64("min_separation", s.MinSeparation),
		slog.Float64("sep_p10", s.SepP10),
		slog.Float64("sep_p50", s.SepP50),
		slog.Int("lit_blobs", s.LitBlobs),
		slog.Int("settled_colors", s.SettledColors),
		slog.Float64("mean_lit", s.MeanLit),
	)
}

// LogStats logs the stats to logger, or the default logger if nil.
func (s SceneStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats", "scene", s)
}
