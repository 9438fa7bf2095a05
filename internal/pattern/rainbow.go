package pattern

import (
	"mushlight/internal/effects"
)

// RainbowWave is a rainbow that travels along the strip.
type RainbowWave struct {
	base
}

// NewRainbowWave builds a rainbow wave pattern.
func NewRainbowWave(ledCount int, fps float64) (*RainbowWave, error) {
	params := NewParams()
	params.Declare("wave_length", Number(100)) // LEDs per complete rainbow
	params.Declare("speed", Number(50))        // LEDs per second travel speed
	params.Declare("brightness", Number(1.0))
	params.Declare("saturation", Number(1.0))

	b, err := newBase(ledCount, fps, params)
	if err != nil {
		return nil, err
	}
	p := &RainbowWave{base: b}
	p.base.update = p.updateFrame
	return p, nil
}

func (p *RainbowWave) updateFrame(dt float64) {
	waveLength := p.params.Number("wave_length")
	if waveLength <= 0 {
		waveLength = 1
	}
	offset := p.elapsed() * p.params.Number("speed")
	sat := p.params.Number("saturation")
	val := p.params.Number("brightness") * p.brightness

	for i := range p.pixels {
		hue := ((float64(i) + offset) / waveLength) * 360
		p.pixels[i] = effects.HSVToRGB(hue, sat, val)
	}
}

// RainbowCycle cycles every LED through the rainbow together.
type RainbowCycle struct {
	base
}

// NewRainbowCycle builds a rainbow cycle pattern.
func NewRainbowCycle(ledCount int, fps float64) (*RainbowCycle, error) {
	params := NewParams()
	params.Declare("cycle_time", Number(5.0)) // seconds per complete cycle
	params.Declare("brightness", Number(1.0))
	params.Declare("saturation", Number(1.0))

	b, err := newBase(ledCount, fps, params)
	if err != nil {
		return nil, err
	}
	p := &RainbowCycle{base: b}
	p.base.update = p.updateFrame
	return p, nil
}

func (p *RainbowCycle) updateFrame(dt float64) {
	cycle := p.params.Number("cycle_time")
	if cycle <= 0 {
		cycle = 1
	}
	hue := (p.elapsed() / cycle) * 360
	c := effects.HSVToRGB(hue, p.params.Number("saturation"), p.params.Number("brightness")*p.brightness)
	p.pixels.Fill(c)
}
