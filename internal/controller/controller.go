// Package controller exposes the facade over the per-strip pipelines:
// aggregate lifecycle, brightness, pattern assignment and the merged
// health/performance surface polled by the supervisory loop.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mushlight/internal/pattern"
	"mushlight/internal/pipeline"
)

// Controller owns one or more strip pipelines. Pipelines stay fully
// independent; the controller only fans control out and merges snapshots in.
type Controller struct {
	logger *slog.Logger
	reg    *pattern.Registry

	mu        sync.Mutex
	order     []string
	pipelines map[string]*pipeline.Pipeline
	patterns  map[string]pattern.Pattern
	names     map[string]string // strip -> assigned pattern name
}

// New creates an empty controller around a pattern registry.
func New(reg *pattern.Registry, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:    logger,
		reg:       reg,
		pipelines: make(map[string]*pipeline.Pipeline),
		patterns:  make(map[string]pattern.Pattern),
		names:     make(map[string]string),
	}
}

// Add registers a pipeline under its strip name.
func (c *Controller) Add(p *pipeline.Pipeline) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pipelines[p.Name()]; exists {
		return fmt.Errorf("controller: strip %q already added", p.Name())
	}
	c.order = append(c.order, p.Name())
	c.pipelines[p.Name()] = p
	return nil
}

// Strips lists strip names in the order they were added.
func (c *Controller) Strips() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// SetPattern builds the named pattern sized for one strip and assigns it.
func (c *Controller) SetPattern(strip, name string) error {
	c.mu.Lock()
	p, ok := c.pipelines[strip]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: unknown strip %q", strip)
	}

	pat, err := c.reg.New(name, p.LEDCount())
	if err != nil {
		return err
	}
	if err := p.SetPattern(pat); err != nil {
		return err
	}

	c.mu.Lock()
	c.patterns[strip] = pat
	c.names[strip] = name
	c.mu.Unlock()

	c.logger.Info("pattern assigned", "strip", strip, "pattern", name)
	return nil
}

// SetAllPatterns assigns the named pattern to every strip, each instance
// sized for its own LED count.
func (c *Controller) SetAllPatterns(name string) error {
	for _, strip := range c.Strips() {
		if err := c.SetPattern(strip, name); err != nil {
			return err
		}
	}
	return nil
}

// SetParam forwards a parameter write to one strip's assigned pattern.
func (c *Controller) SetParam(strip, param string, value pattern.ParamValue) error {
	c.mu.Lock()
	pat, ok := c.patterns[strip]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: strip %q has no pattern assigned", strip)
	}
	return pat.SetParam(param, value)
}

// Start starts every pipeline. On failure the already-started pipelines are
// stopped again.
func (c *Controller) Start() error {
	started := make([]*pipeline.Pipeline, 0, len(c.order))
	for _, strip := range c.Strips() {
		p := c.get(strip)
		if err := p.Start(); err != nil {
			for _, s := range started {
				s.Stop()
			}
			return err
		}
		started = append(started, p)
	}
	return nil
}

// Stop stops every pipeline.
func (c *Controller) Stop() {
	for _, strip := range c.Strips() {
		c.get(strip).Stop()
	}
}

// SetBrightness sets the hardware brightness on every strip.
func (c *Controller) SetBrightness(level int) {
	for _, strip := range c.Strips() {
		c.get(strip).SetBrightness(level)
	}
}

// SetStripBrightness sets the brightness of a single strip.
func (c *Controller) SetStripBrightness(strip string, level int) error {
	c.mu.Lock()
	p, ok := c.pipelines[strip]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: unknown strip %q", strip)
	}
	p.SetBrightness(level)
	return nil
}

// Health returns the per-strip health snapshots.
func (c *Controller) Health() map[string]pipeline.Health {
	out := make(map[string]pipeline.Health)
	for _, strip := range c.Strips() {
		out[strip] = c.get(strip).Health()
	}
	return out
}

// Performance returns the per-strip rolling-window timing statistics.
func (c *Controller) Performance() map[string]map[string]pipeline.Stat {
	out := make(map[string]map[string]pipeline.Stat)
	for _, strip := range c.Strips() {
		out[strip] = c.get(strip).Performance()
	}
	return out
}

// Patterns returns the assigned pattern name per strip.
func (c *Controller) Patterns() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.names))
	for strip, name := range c.names {
		out[strip] = name
	}
	return out
}

// Cleanup stops and releases every pipeline. A failing child never prevents
// cleanup of the others; all failures are joined into the returned error.
func (c *Controller) Cleanup() error {
	var errs []error
	for _, strip := range c.Strips() {
		if err := c.get(strip).Cleanup(); err != nil {
			c.logger.Error("cleanup failed", "strip", strip, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) get(strip string) *pipeline.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipelines[strip]
}
