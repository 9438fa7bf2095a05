package pattern

import (
	"math/rand"
	"time"

	"mushlight/internal/effects"
	"mushlight/internal/frame"
)

// Wisps density and lifecycle tuning. Blue-white fireflies fade in, hold a
// short peak, and fade out, keeping roughly 15% of the strip lit.
const (
	wispMaxFireflies     = 50
	wispMinActive        = 30
	wispTargetDensity    = 0.15
	wispSpawnProbability = 0.02 // per-frame spawn chance

	wispFadeInMin  = 1.0
	wispFadeInMax  = 3.0
	wispPeakMin    = 0.1
	wispPeakMax    = 0.3
	wispFadeOutMin = 1.0
	wispFadeOutMax = 2.0

	wispBrightnessMin = 0.3
	wispBrightnessMax = 0.6

	wispHueMin        = 200 // deep blue
	wispHueMax        = 220 // light blue
	wispSaturationMin = 0.2 // allows white mixing
	wispSaturationMax = 0.8
)

// firefly is one pooled wisp with its lifecycle parameters. Times are in
// pattern-elapsed seconds.
type firefly struct {
	active   bool
	position int

	birth   float64
	fadeIn  float64
	peak    float64
	fadeOut float64

	maxBrightness float64
	hue           float64
	saturation    float64
}

// Wisps is a living field of blue-white lights that pulse organically.
type Wisps struct {
	base

	rng        *rand.Rand
	pool       []firefly
	occupied   map[int]bool
	audioBoost float64
}

// NewWisps builds the firefly pattern. A nil rng seeds from the clock.
func NewWisps(ledCount int, fps float64, rng *rand.Rand) (*Wisps, error) {
	params := NewParams()
	params.Declare("spawn_rate", Number(wispSpawnProbability))
	params.Declare("min_active", Number(wispMinActive))
	params.Declare("target_density", Number(wispTargetDensity))

	b, err := newBase(ledCount, fps, params)
	if err != nil {
		return nil, err
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	poolSize := wispMaxFireflies
	if half := ledCount / 2; half < poolSize {
		poolSize = half
	}
	if poolSize < 1 {
		poolSize = 1
	}

	p := &Wisps{
		base:     b,
		rng:      rng,
		pool:     make([]firefly, poolSize),
		occupied: make(map[int]bool),
	}
	p.base.update = p.updateFrame
	return p, nil
}

// SetAudioLevel feeds an external 0-1 audio level into spawn rate and
// brightness. The pattern works fine without it.
func (p *Wisps) SetAudioLevel(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	p.mu.Lock()
	p.audioBoost = level
	p.mu.Unlock()
}

func (p *Wisps) updateFrame(dt float64) {
	now := p.elapsed()

	p.pixels.Fill(frame.RGB{})

	for p.shouldSpawn() {
		if !p.spawnFirefly(now) {
			break
		}
	}

	for i := range p.pool {
		ff := &p.pool[i]
		if !ff.active {
			continue
		}
		if p.lifecycleComplete(ff, now) {
			p.deactivate(ff)
			continue
		}

		level := p.lifecycleBrightness(ff, now) * p.brightness * (1 + p.audioBoost*0.5)
		if level <= 0.001 {
			continue
		}
		p.pixels[ff.position] = effects.HSVToRGB(ff.hue, ff.saturation, level)
	}
}

func (p *Wisps) shouldSpawn() bool {
	active := 0
	for i := range p.pool {
		if p.pool[i].active {
			active++
		}
	}

	if active < int(p.params.Number("min_active")) && active < len(p.pool) {
		return true
	}
	if active < len(p.pool) {
		chance := p.params.Number("spawn_rate") * (1 + p.audioBoost)
		return p.rng.Float64() < chance
	}
	return false
}

func (p *Wisps) spawnFirefly(now float64) bool {
	free := make([]int, 0, p.ledCount-len(p.occupied))
	for pos := 0; pos < p.ledCount; pos++ {
		if !p.occupied[pos] {
			free = append(free, pos)
		}
	}
	if len(free) == 0 {
		return false
	}

	for i := range p.pool {
		ff := &p.pool[i]
		if ff.active {
			continue
		}
		*ff = firefly{
			active:        true,
			position:      free[p.rng.Intn(len(free))],
			birth:         now,
			fadeIn:        p.uniform(wispFadeInMin, wispFadeInMax),
			peak:          p.uniform(wispPeakMin, wispPeakMax),
			fadeOut:       p.uniform(wispFadeOutMin, wispFadeOutMax),
			maxBrightness: p.uniform(wispBrightnessMin, wispBrightnessMax),
			hue:           p.uniform(wispHueMin, wispHueMax),
			saturation:    p.uniform(wispSaturationMin, wispSaturationMax),
		}
		p.occupied[ff.position] = true
		return true
	}
	return false
}

func (p *Wisps) lifecycleBrightness(ff *firefly, now float64) float64 {
	age := now - ff.birth

	if age < ff.fadeIn {
		return (age / ff.fadeIn) * ff.maxBrightness
	}
	age -= ff.fadeIn
	if age < ff.peak {
		return ff.maxBrightness
	}
	age -= ff.peak
	if age < ff.fadeOut {
		return (1 - age/ff.fadeOut) * ff.maxBrightness
	}
	return 0
}

func (p *Wisps) lifecycleComplete(ff *firefly, now float64) bool {
	return now-ff.birth >= ff.fadeIn+ff.peak+ff.fadeOut
}

func (p *Wisps) deactivate(ff *firefly) {
	if ff.position >= 0 {
		delete(p.occupied, ff.position)
	}
	ff.active = false
	ff.position = -1
}

func (p *Wisps) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}
