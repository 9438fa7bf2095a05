package pattern

import (
	"mushlight/internal/frame"
)

// TestSequence is the hardware verification pattern: red, green, blue, then
// white at 20/40/60/80/100 percent, each held for step_duration seconds,
// repeating.
type TestSequence struct {
	base
}

// NewTestSequence builds the hardware test pattern.
func NewTestSequence(ledCount int, fps float64) (*TestSequence, error) {
	params := NewParams()
	params.Declare("step_duration", Number(3.0)) // seconds per test step

	b, err := newBase(ledCount, fps, params)
	if err != nil {
		return nil, err
	}
	p := &TestSequence{base: b}
	p.base.update = p.updateFrame
	return p, nil
}

// testSteps holds the eight step colors at full brightness.
var testSteps = [8]frame.RGB{
	{R: 255},
	{G: 255},
	{B: 255},
	{R: 51, G: 51, B: 51},
	{R: 102, G: 102, B: 102},
	{R: 153, G: 153, B: 153},
	{R: 204, G: 204, B: 204},
	{R: 255, G: 255, B: 255},
}

func (p *TestSequence) updateFrame(dt float64) {
	stepTime := p.params.Number("step_duration")
	if stepTime <= 0 {
		stepTime = 1
	}

	totalCycle := float64(len(testSteps)) * stepTime
	phase := p.elapsed()
	for phase >= totalCycle {
		phase -= totalCycle
	}
	step := int(phase / stepTime)
	if step >= len(testSteps) {
		step = len(testSteps) - 1
	}

	p.pixels.Fill(testSteps[step].Scale(p.brightness))
}
