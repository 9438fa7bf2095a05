// Package frame holds the pixel value types shared by patterns, pipelines
// and hardware sinks.
package frame

// RGB is one pixel color, each channel 0-255.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Scale returns the color scaled by factor (clamped to 0-1).
func (c RGB) Scale(factor float64) RGB {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	return RGB{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
	}
}

// Frame is one complete set of per-pixel colors for a strip, ready for
// hardware transmission. A Frame is immutable once published to a channel;
// producers allocate a fresh one per generation cycle.
type Frame []RGB

// Black returns an all-off frame of n pixels.
func Black(n int) Frame {
	return make(Frame, n)
}

// Clone returns an independent copy.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Fill sets every pixel to c.
func (f Frame) Fill(c RGB) {
	for i := range f {
		f[i] = c
	}
}
