package systems

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/config"
)

// LightParams controls display color smoothing.
type LightParams struct {
	SmoothingRate   float64 // fraction of the remaining gap closed per frame
	SettleTolerance float64 // per-channel distance treated as settled
}

// LightParamsFromConfig builds lighting params from the loaded config.
func LightParamsFromConfig(cfg *config.Config) LightParams {
	return LightParams{
		SmoothingRate:   cfg.Lighting.SmoothingRate,
		SettleTolerance: cfg.Lighting.SettleTolerance,
	}
}

// Attenuation returns max(0, 1-(d/r)^2).
func Attenuation(dist, r float64) float64 {
	if r <= 0 || dist >= r {
		return 0
	}
	n := dist / r
	return 1 - n*n
}

// TargetColor adds the contribution of every ray in range to base and clamps each
// channel. It also returns the summed attenuation. With no ray in range the result is
// exactly base.
func TargetColor(base colorful.Color, pos r2.Vec, rays []RaySample, sensitivity float64) (colorful.Color, float64) {
	c := base
	lit := 0.0
	for i := range rays {
		ray := &rays[i]
		att := Attenuation(r2.Norm(r2.Sub(pos, ray.Pos)), ray.Range)
		if att <= 0 {
			continue
		}
		k := ray.Intensity * att * sensitivity
		c.R += ray.Color.R * k
		c.G += ray.Color.G * k
		c.B += ray.Color.B * k
		lit += att
	}
	if lit == 0 {
		return base, 0
	}
	return c.Clamped(), lit
}

// ApplyBuffered moves buf toward target by exponential smoothing and returns the color to
// display. Once every channel is within tolerance the buffer snaps to target and stops
// being dirty, so a settled blob costs nothing until the target moves again.
func ApplyBuffered(buf *components.ColorBuffer, target colorful.Color, dt float64, lp LightParams) colorful.Color {
	if target != buf.Target {
		buf.Target = target
		buf.Dirty = true
	}
	if !buf.Dirty {
		return buf.Current
	}

	k := 1 - math.Pow(1-lp.SmoothingRate, dt)
	cur := buf.Current
	cur.R += (target.R - cur.R) * k
	cur.G += (target.G - cur.G) * k
	cur.B += (target.B - cur.B) * k

	if math.Abs(target.R-cur.R) < lp.SettleTolerance &&
		math.Abs(target.G-cur.G) < lp.SettleTolerance &&
		math.Abs(target.B-cur.B) < lp.SettleTolerance {
		cur = target
		buf.Dirty = false
	}
	buf.Current = cur
	return cur
}
