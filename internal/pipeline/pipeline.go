// Package pipeline implements the per-strip concurrent frame pipeline: a
// generator task computing frames from a pattern, a transmitter task pushing
// them to hardware, a single-slot channel between them, and the health and
// performance bookkeeping around both.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"mushlight/internal/frame"
)

const (
	// waitTimeout bounds both channel waits so a task notices shutdown
	// promptly. A timeout is a liveness aid, never an error.
	waitTimeout = 100 * time.Millisecond

	// maxConsecutiveErrors is the fatal threshold per task direction.
	maxConsecutiveErrors = 3

	// joinTimeout bounds how long Stop waits for the tasks to exit.
	joinTimeout = time.Second
)

// Pattern is the exact frame-producer contract the pipeline consumes.
type Pattern interface {
	Render() (frame.Frame, error)
	SetBrightness(factor float64)
}

// Sink is the exact hardware contract the pipeline consumes. Show performs
// the physical transmission including any protocol-mandated settle delay.
type Sink interface {
	SetPixel(i int, c frame.RGB)
	Show() error
	Clear() error
	Close() error
}

// Config is the immutable pipeline configuration.
type Config struct {
	Name       string
	LEDCount   int
	Brightness int // initial hardware brightness 0-255
}

// Pipeline drives one physical LED strip with a dedicated generator and
// transmitter goroutine pair. Strips are fully independent: no lock or
// signal is shared across pipelines.
type Pipeline struct {
	name     string
	ledCount int
	sink     Sink
	logger   *slog.Logger

	// now feeds the heartbeat timestamps and their ages; tests inject a
	// fake clock the way Recorder does.
	now func() time.Time

	ch  *FrameChannel
	rec *Recorder

	mu      sync.Mutex // guards pattern assignment
	pattern Pattern

	running atomic.Bool
	wg      sync.WaitGroup

	brightness atomic.Int32 // 0-255

	patternErrors atomic.Int32
	spiErrors     atomic.Int32

	patternHeartbeat atomic.Int64 // unix nanos
	spiHeartbeat     atomic.Int64

	framesGenerated   atomic.Uint64
	framesTransmitted atomic.Uint64
	fpsBits           atomic.Uint64
}

// New creates a stopped pipeline around the given sink.
func New(cfg Config, sink Sink, logger *slog.Logger) (*Pipeline, error) {
	if cfg.Name == "" {
		return nil, errors.New("pipeline: name required")
	}
	if cfg.LEDCount <= 0 {
		return nil, fmt.Errorf("pipeline: led count must be positive, got %d", cfg.LEDCount)
	}
	if sink == nil {
		return nil, errors.New("pipeline: sink required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		name:     cfg.Name,
		ledCount: cfg.LEDCount,
		sink:     sink,
		logger:   logger.With("strip", cfg.Name),
		now:      time.Now,
		ch:       NewFrameChannel(),
		rec:      NewRecorder(),
	}
	p.brightness.Store(int32(clampBrightness(cfg.Brightness)))

	now := p.now().UnixNano()
	p.patternHeartbeat.Store(now)
	p.spiHeartbeat.Store(now)

	return p, nil
}

// Name returns the strip identifier.
func (p *Pipeline) Name() string { return p.name }

// LEDCount returns the strip length.
func (p *Pipeline) LEDCount() int { return p.ledCount }

// SetPattern adopts a pattern, pushes the current brightness into it and
// resets all metrics and error counters. Fails while the pipeline runs.
func (p *Pipeline) SetPattern(pat Pattern) error {
	if pat == nil {
		return errors.New("pipeline: pattern required")
	}
	if p.running.Load() {
		return fmt.Errorf("pipeline %s: cannot change pattern while running", p.name)
	}

	pat.SetBrightness(p.brightnessFactor())

	p.mu.Lock()
	p.pattern = pat
	p.mu.Unlock()

	p.rec.Reset()
	p.patternErrors.Store(0)
	p.spiErrors.Store(0)

	p.logger.Info("pattern set, metrics reset")
	return nil
}

// Start spawns the generator and transmitter tasks.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	hasPattern := p.pattern != nil
	p.mu.Unlock()
	if !hasPattern {
		return fmt.Errorf("pipeline %s: no pattern set", p.name)
	}

	if p.running.Swap(true) {
		return fmt.Errorf("pipeline %s: already running", p.name)
	}

	now := p.now().UnixNano()
	p.patternHeartbeat.Store(now)
	p.spiHeartbeat.Store(now)

	p.wg.Add(2)
	go p.generateLoop()
	go p.transmitLoop()

	p.logger.Info("pipeline started", "leds", p.ledCount)
	return nil
}

// Stop clears the running flag, wakes both channel waits, joins the tasks
// with a bounded wait and issues a best-effort hardware clear. Idempotent,
// and it clears the strip even after a fatal task exit.
func (p *Pipeline) Stop() {
	wasRunning := p.running.Swap(false)
	p.ch.Wake()

	if !waitWithTimeout(&p.wg, joinTimeout) {
		p.logger.Warn("tasks did not exit within join timeout")
	}

	if err := p.sink.Clear(); err != nil {
		p.logger.Error("failed to clear strip", "err", err)
	}

	if wasRunning {
		p.logger.Info("pipeline stopped")
	}
}

// Cleanup stops the pipeline and releases the hardware resource.
func (p *Pipeline) Cleanup() error {
	p.Stop()
	if err := p.sink.Close(); err != nil {
		return fmt.Errorf("pipeline %s: close sink: %w", p.name, err)
	}
	return nil
}

// SetBrightness sets the hardware brightness (0-255, clamped) and forwards
// it to the pattern as a 0-1 factor so it is folded into color computation.
// Frames already published are unaffected.
func (p *Pipeline) SetBrightness(level int) {
	level = clampBrightness(level)
	p.brightness.Store(int32(level))

	p.mu.Lock()
	pat := p.pattern
	p.mu.Unlock()
	if pat != nil {
		pat.SetBrightness(float64(level) / 255)
	}

	p.logger.Info("brightness set", "level", level)
}

// Brightness returns the current hardware brightness level (0-255).
func (p *Pipeline) Brightness() int {
	return int(p.brightness.Load())
}

// Health returns a read-only liveness snapshot.
func (p *Pipeline) Health() Health {
	now := p.now()
	patternAge := now.Sub(time.Unix(0, p.patternHeartbeat.Load())).Seconds()
	spiAge := now.Sub(time.Unix(0, p.spiHeartbeat.Load())).Seconds()

	return Health{
		Name:                p.name,
		Running:             p.running.Load(),
		FPS:                 math.Float64frombits(p.fpsBits.Load()),
		FramesGenerated:     p.framesGenerated.Load(),
		FramesTransmitted:   p.framesTransmitted.Load(),
		PatternAlive:        patternAge < heartbeatStale.Seconds(),
		SPIAlive:            spiAge < heartbeatStale.Seconds(),
		PatternErrors:       int(p.patternErrors.Load()),
		SPIErrors:           int(p.spiErrors.Load()),
		PatternHeartbeatAge: patternAge,
		SPIHeartbeatAge:     spiAge,
	}
}

// Performance returns the rolling-window timing statistics.
func (p *Pipeline) Performance() map[string]Stat {
	return p.rec.Snapshot()
}

func (p *Pipeline) brightnessFactor() float64 {
	return float64(p.brightness.Load()) / 255
}

func (p *Pipeline) currentPattern() Pattern {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pattern
}

func clampBrightness(level int) int {
	if level < 0 {
		return 0
	}
	if level > 255 {
		return 255
	}
	return level
}

func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
