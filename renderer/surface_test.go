package renderer

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestParseBlendMode(t *testing.T) {
	for _, name := range []string{"normal", "add", "screen", "multiply"} {
		b, err := ParseBlendMode(name)
		if err != nil {
			t.Fatalf("parsing %q: %v", name, err)
		}
		if b.String() != name {
			t.Errorf("round trip %q -> %q", name, b.String())
		}
	}
	if _, err := ParseBlendMode("overlay"); err == nil {
		t.Error("expected error for unknown blend mode")
	}
}

func TestBlendMode_Blend(t *testing.T) {
	tests := []struct {
		mode           BlendMode
		sc, sa, dc, da float64
		want           float64
	}{
		{BlendNormal, 0.5, 1, 0.8, 1, 0.5},
		{BlendNormal, 0.25, 0.5, 0.8, 1, 0.65},
		{BlendAdd, 0.7, 1, 0.6, 1, 1},
		{BlendScreen, 0.5, 1, 0.5, 1, 0.75},
		{BlendMultiply, 0.5, 1, 0.5, 1, 0.25},
		{BlendMultiply, 0, 0, 0.4, 1, 0.4},
		// Over a transparent destination the source shows unchanged
		{BlendMultiply, 0.6, 0.8, 0, 0, 0.6},
		{BlendMultiply, 0.8, 0.8, 0, 0, 0.8},
		// Half-covered destination
		{BlendMultiply, 0.5, 1, 0.25, 0.5, 0.375},
	}
	for _, tc := range tests {
		if got := tc.mode.Blend(tc.sc, tc.sa, tc.dc, tc.da); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%v.Blend(%v, %v, %v, %v) = %v, want %v", tc.mode, tc.sc, tc.sa, tc.dc, tc.da, got, tc.want)
		}
	}
}

func TestColorMatrix(t *testing.T) {
	r, g, b, a := IdentityMatrix().Apply(0.1, 0.2, 0.3, 0.4)
	if r != 0.1 || g != 0.2 || b != 0.3 || a != 0.4 {
		t.Errorf("identity changed color: %v %v %v %v", r, g, b, a)
	}

	// Zero saturation yields gray
	r, g, b, _ = SaturateMatrix(0).Apply(1, 0, 0, 1)
	if math.Abs(r-g) > 1e-12 || math.Abs(g-b) > 1e-12 {
		t.Errorf("expected gray, got %v %v %v", r, g, b)
	}

	// Goo: faint alpha vanishes, moderate alpha becomes solid
	goo := AlphaThresholdMatrix(18, -7)
	if _, _, _, a := goo.Apply(1, 1, 1, 0.3); a != 0 {
		t.Errorf("expected faint alpha cut to 0, got %v", a)
	}
	if _, _, _, a := goo.Apply(1, 1, 1, 0.5); a != 1 {
		t.Errorf("expected moderate alpha pushed to 1, got %v", a)
	}
}

func TestParseMatrixPreset(t *testing.T) {
	for _, name := range []string{"identity", "saturate", "goo"} {
		if _, err := ParseMatrixPreset(name, MatrixParams{Saturation: 1.2, GooMultiplier: 18, GooOffset: -7}); err != nil {
			t.Errorf("preset %q: %v", name, err)
		}
	}
	if _, err := ParseMatrixPreset("sepia", MatrixParams{}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestTransform(t *testing.T) {
	s := Shape{
		Pos:     r2.Vec{X: 10, Y: 20},
		Angle:   math.Pi / 2,
		Outline: []r2.Vec{{X: 1, Y: 0}},
	}
	out := Transform(nil, s)
	if math.Abs(out[0].X-10) > 1e-12 || math.Abs(out[0].Y-21) > 1e-12 {
		t.Errorf("expected (10, 21), got %v", out[0])
	}
}
