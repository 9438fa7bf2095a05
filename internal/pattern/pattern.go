// Package pattern defines the rendering contract consumed by strip
// pipelines, the explicit registry of available patterns, and the concrete
// pattern implementations.
package pattern

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"mushlight/internal/frame"
)

// DefaultFPS is the update rate patterns are built with unless a caller
// asks for something else.
const DefaultFPS = 30.0

// Pattern is the closed rendering contract. A pattern produces one frame per
// Render call, folds the hardware brightness factor into its own color
// computation, and validates parameter writes against its declared defaults.
type Pattern interface {
	// Render returns the current frame. The returned frame has exactly the
	// LED count the pattern was constructed with and is safe for the caller
	// to keep: patterns never retain or mutate returned frames.
	Render() (frame.Frame, error)

	// SetBrightness sets the hardware brightness factor (0-1, clamped).
	SetBrightness(factor float64)

	// SetParam updates a named parameter. Unknown names are rejected.
	SetParam(name string, value ParamValue) error

	// Reset restarts the pattern clock and clears internal state.
	Reset()
}

// base carries the state every pattern shares: the LED count, the
// frame-time gate, the parameter bag and the hardware brightness factor.
// Concrete patterns wire their update function in their constructor.
type base struct {
	mu sync.Mutex

	ledCount  int
	frameTime time.Duration

	start       time.Time
	lastUpdate  time.Time
	frameNumber uint64

	pixels     frame.Frame
	params     *Params
	brightness float64

	update func(dt float64)
}

func newBase(ledCount int, fps float64, params *Params) (base, error) {
	if ledCount <= 0 {
		return base{}, fmt.Errorf("pattern: led count must be positive, got %d", ledCount)
	}
	if fps <= 0 {
		return base{}, fmt.Errorf("pattern: fps must be positive, got %v", fps)
	}

	frameTime := time.Duration(float64(time.Second) / fps)
	now := time.Now()
	return base{
		ledCount:  ledCount,
		frameTime: frameTime,
		start:     now,
		// Back-dated so the first Render produces a fresh frame immediately.
		lastUpdate: now.Add(-frameTime),
		pixels:     frame.Black(ledCount),
		params:     params,
		brightness: 1.0,
	}, nil
}

// Render gates the update by the configured frame time and returns a copy of
// the current pixel buffer. Between updates the previous frame is returned.
func (b *base) Render() (frame.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.update == nil {
		return nil, errors.New("pattern: no update function wired")
	}

	now := time.Now()
	if dt := now.Sub(b.lastUpdate); dt >= b.frameTime {
		b.update(dt.Seconds())
		b.lastUpdate = now
		b.frameNumber++
	}
	return b.pixels.Clone(), nil
}

func (b *base) SetBrightness(factor float64) {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	b.mu.Lock()
	b.brightness = factor
	b.mu.Unlock()
}

func (b *base) SetParam(name string, value ParamValue) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params.Set(name, value)
}

func (b *base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.start = now
	b.lastUpdate = now.Add(-b.frameTime)
	b.frameNumber = 0
	b.pixels = frame.Black(b.ledCount)
}

// elapsed is the time since the pattern started or was last reset.
// Callers must hold b.mu.
func (b *base) elapsed() float64 {
	return time.Since(b.start).Seconds()
}
