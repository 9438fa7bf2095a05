package pattern

import (
	"math"

	"mushlight/internal/frame"
)

// Solid displays one color across the whole strip.
type Solid struct {
	base
}

// NewSolid builds a solid color pattern (default red).
func NewSolid(ledCount int, fps float64) (*Solid, error) {
	params := NewParams()
	params.Declare("red", Number(255))
	params.Declare("green", Number(0))
	params.Declare("blue", Number(0))

	b, err := newBase(ledCount, fps, params)
	if err != nil {
		return nil, err
	}
	p := &Solid{base: b}
	p.base.update = p.updateFrame
	return p, nil
}

func (p *Solid) updateFrame(dt float64) {
	c := frame.RGB{
		R: clampChannel(p.params.Number("red")),
		G: clampChannel(p.params.Number("green")),
		B: clampChannel(p.params.Number("blue")),
	}
	p.pixels.Fill(c.Scale(p.brightness))
}

// Breathing fades one color in and out on a sine curve.
type Breathing struct {
	base
}

// NewBreathing builds a breathing pattern (default cyan-blue).
func NewBreathing(ledCount int, fps float64) (*Breathing, error) {
	params := NewParams()
	params.Declare("color", Color(frame.RGB{R: 0, G: 100, B: 255}))
	params.Declare("cycle_time", Number(3.0)) // seconds per breath
	params.Declare("min_brightness", Number(0.1))
	params.Declare("max_brightness", Number(1.0))

	b, err := newBase(ledCount, fps, params)
	if err != nil {
		return nil, err
	}
	p := &Breathing{base: b}
	p.base.update = p.updateFrame
	return p, nil
}

func (p *Breathing) updateFrame(dt float64) {
	cycle := p.params.Number("cycle_time")
	if cycle <= 0 {
		cycle = 1
	}
	phase := (p.elapsed() / cycle) * 2 * math.Pi
	intensity := (math.Sin(phase) + 1) / 2

	minB := p.params.Number("min_brightness")
	maxB := p.params.Number("max_brightness")
	level := minB + (maxB-minB)*intensity

	c := p.params.Color("color")
	p.pixels.Fill(c.Scale(level * p.brightness))
}

func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
