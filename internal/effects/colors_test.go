package effects

import (
	"testing"

	"mushlight/internal/frame"
)

func TestHSVToRGB_PrimaryHues(t *testing.T) {
	cases := []struct {
		name string
		h    float64
		want frame.RGB
	}{
		{"red", 0, frame.RGB{R: 255}},
		{"green", 120, frame.RGB{G: 255}},
		{"blue", 240, frame.RGB{B: 255}},
		{"wraps past 360", 480, frame.RGB{G: 255}},
		{"negative wraps", -120, frame.RGB{B: 255}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HSVToRGB(tc.h, 1, 1); got != tc.want {
				t.Fatalf("HSVToRGB(%v)=%v, want %v", tc.h, got, tc.want)
			}
		})
	}
}

func TestHSVToRGB_ValueScalesBrightness(t *testing.T) {
	got := HSVToRGB(0, 1, 0.5)
	if got.R != 127 || got.G != 0 || got.B != 0 {
		t.Fatalf("HSVToRGB at half value = %v, want {127 0 0}", got)
	}

	if got := HSVToRGB(200, 0, 1); got != (frame.RGB{R: 255, G: 255, B: 255}) {
		t.Fatalf("zero saturation should be white, got %v", got)
	}
}

func TestInterpolate_Endpoints(t *testing.T) {
	a := frame.RGB{R: 10, G: 20, B: 30}
	b := frame.RGB{R: 210, G: 220, B: 230}

	if got := Interpolate(a, b, 0); got != a {
		t.Fatalf("t=0 should yield a, got %v", got)
	}
	if got := Interpolate(a, b, 1); got != b {
		t.Fatalf("t=1 should yield b, got %v", got)
	}
	if got := Interpolate(a, b, 0.5); got != (frame.RGB{R: 110, G: 120, B: 130}) {
		t.Fatalf("t=0.5 midpoint = %v", got)
	}

	// Out-of-range t clamps.
	if got := Interpolate(a, b, -1); got != a {
		t.Fatalf("t<0 should clamp to a, got %v", got)
	}
	if got := Interpolate(a, b, 2); got != b {
		t.Fatalf("t>1 should clamp to b, got %v", got)
	}
}

func TestGradient(t *testing.T) {
	stops := []frame.RGB{{R: 255}, {B: 255}}

	f, err := Gradient(stops, 10)
	if err != nil {
		t.Fatalf("Gradient err=%v", err)
	}
	if len(f) != 10 {
		t.Fatalf("length=%d, want 10", len(f))
	}
	if f[0] != stops[0] {
		t.Fatalf("first pixel=%v, want first stop %v", f[0], stops[0])
	}
	// Red fades out and blue fades in along the strip.
	if f[9].B <= f[0].B || f[9].R >= f[0].R {
		t.Fatalf("gradient not monotonic: first=%v last=%v", f[0], f[9])
	}

	if _, err := Gradient([]frame.RGB{{R: 255}}, 10); err == nil {
		t.Fatalf("expected error for a single stop")
	}
}

func TestPalettes_AllUsableAsGradients(t *testing.T) {
	for name, stops := range Palettes {
		if len(stops) < 2 {
			t.Fatalf("palette %s has %d stops, need at least 2", name, len(stops))
		}
		if _, err := Gradient(stops, 30); err != nil {
			t.Fatalf("palette %s: Gradient err=%v", name, err)
		}
	}
}
