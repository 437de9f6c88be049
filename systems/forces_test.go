package systems

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/components"
)

func testForceParams() ForceParams {
	return ForceParams{
		RepulsionFactor:     1.15,
		RepulsionStrength:   0.05,
		RepulsionMax:        0.6,
		AttractionRadius:    300,
		AttractionStrength:  0.03,
		PointerRadiusFactor: 3,
		PointerStrength:     1.2,
		WanderStrength:      0.02,
		Restitution:         0.5,
		MinDistance:         1,
	}
}

// ---------- Repulsion ----------

func TestRepulsion_NeverAttractive(t *testing.T) {
	fp := testForceParams()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		self := BlobSample{Index: 0, Pos: r2.Vec{X: rng.Float64() * 400, Y: rng.Float64() * 400}, Radius: 20 + rng.Float64()*80}
		other := BlobSample{Index: 1, Pos: r2.Vec{X: rng.Float64() * 400, Y: rng.Float64() * 400}, Radius: 20 + rng.Float64()*80}

		f := Repulsion(self, other, fp)
		toOther := r2.Sub(other.Pos, self.Pos)
		if r2.Dot(f, toOther) > 1e-12 {
			t.Fatalf("case %d: repulsion %v points toward other (offset %v)", i, f, toOther)
		}
		if r2.Norm(f) > fp.RepulsionMax+1e-12 {
			t.Fatalf("case %d: repulsion %.4f exceeds cap %.4f", i, r2.Norm(f), fp.RepulsionMax)
		}
	}
}

func TestRepulsion_Threshold(t *testing.T) {
	fp := testForceParams()
	self := BlobSample{Pos: r2.Vec{}, Radius: 50}
	threshold := 100 * fp.RepulsionFactor

	tests := []struct {
		name string
		dist float64
		zero bool
	}{
		{"far", threshold * 2, true},
		{"at threshold", threshold, true},
		{"just inside", threshold - 0.5, false},
		{"close", 10, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			other := BlobSample{Index: 1, Pos: r2.Vec{X: tc.dist}, Radius: 50}
			f := Repulsion(self, other, fp)
			if tc.zero && f != (r2.Vec{}) {
				t.Errorf("expected no force, got %v", f)
			}
			if !tc.zero && f.X >= 0 {
				t.Errorf("expected push toward -X, got %v", f)
			}
		})
	}
}

func TestRepulsion_StrongerWhenCloser(t *testing.T) {
	fp := testForceParams()
	self := BlobSample{Radius: 50}
	prev := 0.0
	for _, d := range []float64{110, 90, 70, 50, 30} {
		f := Repulsion(self, BlobSample{Index: 1, Pos: r2.Vec{X: d}, Radius: 50}, fp)
		mag := r2.Norm(f)
		if mag < prev {
			t.Errorf("distance %v: magnitude %.4f decreased from %.4f", d, mag, prev)
		}
		prev = mag
	}
}

func TestRepulsion_CoincidentSeparates(t *testing.T) {
	fp := testForceParams()
	a := BlobSample{Index: 0, Pos: r2.Vec{X: 10, Y: 10}, Radius: 30}
	b := BlobSample{Index: 1, Pos: r2.Vec{X: 10, Y: 10}, Radius: 30}

	fa := Repulsion(a, b, fp)
	fb := Repulsion(b, a, fp)
	if r2.Norm(fa) == 0 || r2.Norm(fb) == 0 {
		t.Fatal("expected coincident blobs to repel")
	}
	if fa == fb {
		t.Error("expected coincident blobs to be pushed in different directions")
	}
	if math.IsNaN(fa.X) || math.IsNaN(fa.Y) {
		t.Error("repulsion produced NaN")
	}
}

// ---------- Pointer ----------

func TestPointerAvoidance_MonotoneAndContinuous(t *testing.T) {
	fp := testForceParams()
	const radius = 40.0
	threshold := radius * fp.PointerRadiusFactor
	ptr := Pointer{Active: true}

	prev := math.Inf(1)
	for d := 0.5; d <= threshold+10; d += 0.5 {
		f := PointerAvoidance(r2.Vec{X: d}, radius, ptr, fp)
		mag := r2.Norm(f)
		if mag > prev+1e-12 {
			t.Fatalf("distance %.1f: magnitude %.5f increased from %.5f", d, mag, prev)
		}
		if mag > 0 && f.X <= 0 {
			t.Fatalf("distance %.1f: force %v does not point away from pointer", d, f)
		}
		prev = mag
	}

	// Approaching the threshold from inside the force vanishes
	near := r2.Norm(PointerAvoidance(r2.Vec{X: threshold - 1e-6}, radius, ptr, fp))
	if near > 1e-6 {
		t.Errorf("expected force near zero at threshold, got %v", near)
	}
	if at := PointerAvoidance(r2.Vec{X: threshold}, radius, ptr, fp); at != (r2.Vec{}) {
		t.Errorf("expected zero force at threshold, got %v", at)
	}
}

func TestPointerAvoidance_Inactive(t *testing.T) {
	fp := testForceParams()
	f := PointerAvoidance(r2.Vec{X: 1}, 40, Pointer{Active: false}, fp)
	if f != (r2.Vec{}) {
		t.Errorf("expected no force from inactive pointer, got %v", f)
	}
}

func TestPointerAvoidance_OnPointer(t *testing.T) {
	fp := testForceParams()
	f := PointerAvoidance(r2.Vec{X: 5, Y: 5}, 40, Pointer{X: 5, Y: 5, Active: true}, fp)
	if math.Abs(r2.Norm(f)-fp.PointerStrength) > 1e-9 {
		t.Errorf("expected full strength %.2f at the pointer, got %v", fp.PointerStrength, f)
	}
}

// ---------- Attraction and wander ----------

func TestRayAttraction(t *testing.T) {
	fp := testForceParams()
	ray := RaySample{Pos: r2.Vec{X: 100}}

	f := RayAttraction(r2.Vec{}, ray, 1, fp)
	if f.X <= 0 || f.Y != 0 {
		t.Errorf("expected pull toward ray along +X, got %v", f)
	}
	want := fp.AttractionStrength * (1 - 100/fp.AttractionRadius)
	if math.Abs(f.X-want) > 1e-12 {
		t.Errorf("expected magnitude %.5f, got %.5f", want, f.X)
	}

	doubled := RayAttraction(r2.Vec{}, ray, 2, fp)
	if math.Abs(doubled.X-2*f.X) > 1e-12 {
		t.Errorf("expected sensitivity to scale linearly, got %.5f vs %.5f", doubled.X, f.X)
	}

	if out := RayAttraction(r2.Vec{X: -500}, ray, 1, fp); out != (r2.Vec{}) {
		t.Errorf("expected no pull out of range, got %v", out)
	}
}

func TestWanderPull(t *testing.T) {
	fp := testForceParams()
	f := WanderPull(r2.Vec{}, r2.Vec{X: 0, Y: 50}, fp)
	if math.Abs(f.Y-fp.WanderStrength) > 1e-12 || f.X != 0 {
		t.Errorf("expected pull of %.3f along +Y, got %v", fp.WanderStrength, f)
	}
	if z := WanderPull(r2.Vec{X: 3}, r2.Vec{X: 3}, fp); z != (r2.Vec{}) {
		t.Errorf("expected no pull at the target, got %v", z)
	}
}

func TestBlobForce_SkipsSelf(t *testing.T) {
	fp := testForceParams()
	fp.WanderStrength = 0
	blobs := []BlobSample{{Index: 0, Pos: r2.Vec{X: 100, Y: 100}, Radius: 40}}
	f := BlobForce(0, r2.Vec{X: 100, Y: 100}, components.Personality{Sensitivity: 1}, blobs, nil, Pointer{}, fp)
	if f != (r2.Vec{}) {
		t.Errorf("expected lone blob to feel no force, got %v", f)
	}
}

// ---------- Integration and containment ----------

func TestIntegrate_Order(t *testing.T) {
	pos, vel := Integrate(r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 1}, 0.5, 1)
	// v = (1+1)*0.5 = 1, p = 0 + 1
	if vel.X != 1 || pos.X != 1 {
		t.Errorf("expected accumulate -> damp -> integrate, got pos %v vel %v", pos, vel)
	}
}

func TestContain(t *testing.T) {
	vp := Viewport{W: 800, H: 600}
	tests := []struct {
		name    string
		pos     r2.Vec
		vel     r2.Vec
		wantPos r2.Vec
		wantVel r2.Vec
	}{
		{"inside", r2.Vec{X: 10, Y: 10}, r2.Vec{X: -1, Y: 1}, r2.Vec{X: 10, Y: 10}, r2.Vec{X: -1, Y: 1}},
		{"left", r2.Vec{X: -5, Y: 10}, r2.Vec{X: -2, Y: 1}, r2.Vec{X: 0, Y: 10}, r2.Vec{X: 1, Y: 1}},
		{"right", r2.Vec{X: 805, Y: 10}, r2.Vec{X: 4, Y: 0}, r2.Vec{X: 800, Y: 10}, r2.Vec{X: -2, Y: 0}},
		{"top", r2.Vec{X: 5, Y: -1}, r2.Vec{X: 0, Y: -3}, r2.Vec{X: 5, Y: 0}, r2.Vec{X: 0, Y: 1.5}},
		{"bottom corner", r2.Vec{X: 900, Y: 700}, r2.Vec{X: 2, Y: 2}, r2.Vec{X: 800, Y: 600}, r2.Vec{X: -1, Y: -1}},
		{"outside moving in", r2.Vec{X: -5, Y: 10}, r2.Vec{X: 2, Y: 0}, r2.Vec{X: 0, Y: 10}, r2.Vec{X: 2, Y: 0}},
		{"nan position and velocity", r2.Vec{X: math.NaN(), Y: 10}, r2.Vec{X: math.NaN(), Y: 1}, r2.Vec{X: 0, Y: 10}, r2.Vec{X: 0, Y: 1}},
		{"infinite velocity", r2.Vec{X: 10, Y: 10}, r2.Vec{X: 1, Y: math.Inf(-1)}, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 1, Y: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, vel := Contain(tc.pos, tc.vel, vp, 0.5)
			if pos != tc.wantPos || vel != tc.wantVel {
				t.Errorf("got pos %v vel %v, want pos %v vel %v", pos, vel, tc.wantPos, tc.wantVel)
			}
		})
	}
}

func TestContain_EnergyLoss(t *testing.T) {
	vp := Viewport{W: 100, H: 100}
	_, vel := Contain(r2.Vec{X: 120, Y: 50}, r2.Vec{X: 3, Y: 0}, vp, 0.5)
	if math.Abs(vel.X) >= 3 {
		t.Errorf("expected bounce to lose speed, got %v", vel)
	}
}
