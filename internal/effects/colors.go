// Package effects provides color math shared by patterns: HSV conversion,
// interpolation, gradients and a set of named palettes.
package effects

import (
	"errors"
	"math"

	"mushlight/internal/frame"
)

// HSVToRGB converts a single HSV value to RGB.
// h is in degrees (wraps modulo 360), s and v are 0-1.
func HSVToRGB(h, s, v float64) frame.RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return frame.RGB{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
	}
}

// Interpolate linearly blends two colors. t=0 yields a, t=1 yields b.
func Interpolate(a, b frame.RGB, t float64) frame.RGB {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return frame.RGB{
		R: uint8(float64(a.R)*(1-t) + float64(b.R)*t),
		G: uint8(float64(a.G)*(1-t) + float64(b.G)*t),
		B: uint8(float64(a.B)*(1-t) + float64(b.B)*t),
	}
}

// Gradient spreads the given color stops smoothly across ledCount pixels.
// At least two stops are required.
func Gradient(stops []frame.RGB, ledCount int) (frame.Frame, error) {
	if len(stops) < 2 {
		return nil, errors.New("effects: gradient needs at least 2 colors")
	}
	if ledCount <= 0 {
		return frame.Frame{}, nil
	}

	out := frame.Black(ledCount)
	if ledCount == 1 {
		out[0] = stops[0]
		return out, nil
	}

	segmentSize := float64(ledCount) / float64(len(stops)-1)
	for i := 0; i < ledCount; i++ {
		segment := int(float64(i) / segmentSize)
		if segment > len(stops)-2 {
			segment = len(stops) - 2
		}
		local := (float64(i) - float64(segment)*segmentSize) / segmentSize
		out[i] = Interpolate(stops[segment], stops[segment+1], local)
	}
	return out, nil
}

// Palettes are the installation's predefined color sets.
var Palettes = map[string][]frame.RGB{
	"mushroom_magic": {
		{R: 36, G: 40, B: 25},
		{R: 44, G: 31, B: 57},
		{R: 117, G: 117, B: 79},
		{R: 130, G: 102, B: 153},
		{R: 220, G: 199, B: 255},
	},
	"earth_tones": {
		{R: 168, G: 156, B: 144},
		{R: 215, G: 196, B: 171},
		{R: 189, G: 172, B: 163},
	},
	"bioluminescent": {
		{R: 0, G: 255, B: 146},
		{R: 64, G: 255, B: 178},
		{R: 0, G: 200, B: 100},
	},
	"fire": {
		{R: 255, G: 0, B: 0},
		{R: 255, G: 128, B: 0},
		{R: 255, G: 255, B: 0},
		{R: 255, G: 64, B: 0},
	},
	"ocean": {
		{R: 0, G: 50, B: 150},
		{R: 0, G: 100, B: 200},
		{R: 0, G: 150, B: 255},
		{R: 100, G: 200, B: 255},
	},
	"forest": {
		{R: 34, G: 139, B: 34},
		{R: 0, G: 100, B: 0},
		{R: 144, G: 238, B: 144},
		{R: 107, G: 142, B: 35},
	},
}
