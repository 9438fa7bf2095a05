package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mushlight/internal/frame"
)

// ---- fakes ----

type fakePattern struct {
	mu         sync.Mutex
	brightness float64
	calls      int
	script     func(call int) (frame.Frame, error)
}

func constPattern(ledCount int, c frame.RGB) *fakePattern {
	return &fakePattern{script: func(int) (frame.Frame, error) {
		f := frame.Black(ledCount)
		f.Fill(c)
		return f, nil
	}}
}

func (f *fakePattern) Render() (frame.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.script(f.calls)
}

func (f *fakePattern) SetBrightness(factor float64) {
	f.mu.Lock()
	f.brightness = factor
	f.mu.Unlock()
}

func (f *fakePattern) Brightness() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brightness
}

func (f *fakePattern) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSink struct {
	mu      sync.Mutex
	staged  frame.Frame
	frames  []frame.Frame
	showErr func(call int) error
	shows   int
	clears  int
	closes  int
}

func newFakeSink(ledCount int) *fakeSink {
	return &fakeSink{staged: frame.Black(ledCount)}
}

func (s *fakeSink) SetPixel(i int, c frame.RGB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= 0 && i < len(s.staged) {
		s.staged[i] = c
	}
}

func (s *fakeSink) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows++
	if s.showErr != nil {
		if err := s.showErr(s.shows); err != nil {
			return err
		}
	}
	s.frames = append(s.frames, s.staged.Clone())
	return nil
}

func (s *fakeSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.staged.Fill(frame.RGB{})
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSink) frameAt(i int) frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

func (s *fakeSink) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func allBlack(f frame.Frame) bool {
	for _, c := range f {
		if c != (frame.RGB{}) {
			return false
		}
	}
	return true
}

// ---- construction and lifecycle ----

func TestNew_Validation(t *testing.T) {
	sink := newFakeSink(4)

	if _, err := New(Config{Name: "", LEDCount: 4}, sink, nil); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := New(Config{Name: "s1", LEDCount: 0}, sink, nil); err == nil {
		t.Fatalf("expected error for zero led count")
	}
	if _, err := New(Config{Name: "s1", LEDCount: 4}, nil, nil); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}

func TestStart_RequiresPattern(t *testing.T) {
	p, err := New(Config{Name: "s1", LEDCount: 4}, newFakeSink(4), nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.Start(); err == nil {
		t.Fatalf("Start without a pattern must fail")
	}
}

func TestSetPattern_FailsWhileRunning(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.SetPattern(constPattern(4, frame.RGB{R: 9})); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	defer p.Stop()

	if err := p.SetPattern(constPattern(4, frame.RGB{G: 9})); err == nil {
		t.Fatalf("SetPattern must fail while the pipeline runs")
	}
}

func TestPipeline_TransmitsFrames(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	want := frame.RGB{R: 10, G: 20, B: 30}
	if err := p.SetPattern(constPattern(4, want)); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return sink.frameCount() >= 3 })
	p.Stop()

	first := sink.frameAt(0)
	for i, c := range first {
		if c != want {
			t.Fatalf("pixel %d = %v, want %v", i, c, want)
		}
	}

	h := p.Health()
	if h.Running {
		t.Fatalf("pipeline still reported running after Stop")
	}
	if h.FramesGenerated == 0 || h.FramesTransmitted == 0 {
		t.Fatalf("frame counters not advanced: %+v", h)
	}
	if h.PatternErrors != 0 || h.SPIErrors != 0 {
		t.Fatalf("unexpected error counters: %+v", h)
	}

	perf := p.Performance()
	for _, name := range []string{MetricColorCalc, MetricBufferPrep, MetricSPITransmit} {
		if perf[name].Samples == 0 {
			t.Fatalf("metric %s recorded no samples", name)
		}
	}
}

// ---- error handling ----

func TestPipeline_PatternErrorPublishesDarkFrame(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	green := frame.RGB{G: 200}
	pat := &fakePattern{script: func(call int) (frame.Frame, error) {
		if call == 1 {
			return nil, errors.New("render blew up")
		}
		f := frame.Black(4)
		f.Fill(green)
		return f, nil
	}}
	if err := p.SetPattern(pat); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return sink.frameCount() >= 2 })
	p.Stop()

	if !allBlack(sink.frameAt(0)) {
		t.Fatalf("first transmitted frame should be the dark substitute, got %v", sink.frameAt(0))
	}
	if sink.frameAt(1)[0] != green {
		t.Fatalf("second frame should come from the recovered pattern, got %v", sink.frameAt(1)[0])
	}

	h := p.Health()
	if h.PatternErrors != 0 {
		t.Fatalf("error counter should reset after a successful render, got %d", h.PatternErrors)
	}
}

func TestPipeline_FatalAfterRepeatedPatternErrors(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	pat := &fakePattern{script: func(int) (frame.Frame, error) {
		return nil, errors.New("render blew up")
	}}
	if err := p.SetPattern(pat); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	// Every failure publishes a dark substitute, including the final one:
	// the transmitter outlives the generator and drains the last frame.
	waitFor(t, 2*time.Second, func() bool { return sink.frameCount() >= maxConsecutiveErrors })

	h := p.Health()
	if h.PatternErrors != maxConsecutiveErrors {
		t.Fatalf("PatternErrors=%d, want %d", h.PatternErrors, maxConsecutiveErrors)
	}
	if !h.Fatal() {
		t.Fatalf("health at the error threshold must be fatal: %+v", h)
	}

	// The generator stopped advancing: no more renders, no more frames.
	time.Sleep(50 * time.Millisecond)
	if got := sink.frameCount(); got != maxConsecutiveErrors {
		t.Fatalf("transmitted frames=%d, want exactly %d", got, maxConsecutiveErrors)
	}
	if got := pat.callCount(); got != maxConsecutiveErrors {
		t.Fatalf("render calls=%d, want exactly %d", got, maxConsecutiveErrors)
	}
	for i := 0; i < maxConsecutiveErrors; i++ {
		if !allBlack(sink.frameAt(i)) {
			t.Fatalf("substitute frame %d not dark: %v", i, sink.frameAt(i))
		}
	}

	// Stop still clears the hardware after a fatal exit.
	p.Stop()
	if sink.clearCount() == 0 {
		t.Fatalf("Stop after a fatal exit must still clear the strip")
	}
}

func TestPipeline_ErrorCounterSequence(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	// Each render consumes one step, so the counter can be observed between
	// renders without racing the generator.
	steps := make(chan error, 1)
	pat := &fakePattern{script: func(int) (frame.Frame, error) {
		if err := <-steps; err != nil {
			return nil, err
		}
		f := frame.Black(4)
		f.Fill(frame.RGB{G: 80})
		return f, nil
	}}
	if err := p.SetPattern(pat); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	renderErr := errors.New("render blew up")

	steps <- renderErr
	waitFor(t, 2*time.Second, func() bool { return p.Health().PatternErrors == 1 })
	if h := p.Health(); !h.Running || h.Fatal() {
		t.Fatalf("one failure must not be fatal: %+v", h)
	}

	steps <- renderErr
	waitFor(t, 2*time.Second, func() bool { return p.Health().PatternErrors == 2 })
	if h := p.Health(); !h.Running || h.Fatal() {
		t.Fatalf("two failures must not be fatal: %+v", h)
	}

	steps <- nil
	waitFor(t, 2*time.Second, func() bool { return p.Health().FramesGenerated >= 1 })
	if got := p.Health().PatternErrors; got != 0 {
		t.Fatalf("counter after a success=%d, want 0", got)
	}

	close(steps) // every later render succeeds
	p.Stop()

	// The two failures each put a dark substitute on the wire.
	if sink.frameCount() < 3 {
		t.Fatalf("transmitted frames=%d, want at least 3", sink.frameCount())
	}
	if !allBlack(sink.frameAt(0)) || !allBlack(sink.frameAt(1)) {
		t.Fatalf("first two frames should be dark substitutes: %v, %v",
			sink.frameAt(0), sink.frameAt(1))
	}
	if allBlack(sink.frameAt(2)) {
		t.Fatalf("third frame should come from the successful render")
	}
}

func TestPipeline_ShortPatternFrameIsAnError(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	pat := &fakePattern{script: func(int) (frame.Frame, error) {
		return frame.Black(2), nil // wrong length
	}}
	if err := p.SetPattern(pat); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return p.Health().PatternErrors == maxConsecutiveErrors
	})
	if !p.Health().Fatal() {
		t.Fatalf("length mismatch must count toward the fatal threshold")
	}
	p.Stop()
}

func TestPipeline_FatalAfterRepeatedTransmitErrors(t *testing.T) {
	sink := newFakeSink(4)
	sink.showErr = func(int) error { return errors.New("spi down") }

	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.SetPattern(constPattern(4, frame.RGB{R: 1})); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return p.Health().SPIErrors == maxConsecutiveErrors
	})

	h := p.Health()
	if !h.Fatal() {
		t.Fatalf("health at the error threshold must be fatal: %+v", h)
	}
	// Only the transmitter died; the generator is still being joined cleanly.
	p.Stop()
	if p.Health().Running {
		t.Fatalf("pipeline reported running after Stop")
	}
}

// ---- control surface ----

func TestStop_Idempotent(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.SetPattern(constPattern(4, frame.RGB{B: 7})); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	p.Stop()
	p.Stop()

	if sink.clearCount() != 2 {
		t.Fatalf("each Stop must clear the strip, clears=%d", sink.clearCount())
	}
	if p.Health().Running {
		t.Fatalf("pipeline reported running after Stop")
	}
}

func TestSetBrightness_ForwardsFactorToPattern(t *testing.T) {
	pat := constPattern(4, frame.RGB{R: 255})
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, newFakeSink(4), nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.SetPattern(pat); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}

	p.SetBrightness(51)
	if got, want := pat.Brightness(), 0.2; got != want {
		t.Fatalf("pattern brightness=%v, want %v", got, want)
	}
	if p.Brightness() != 51 {
		t.Fatalf("Brightness()=%d, want 51", p.Brightness())
	}

	p.SetBrightness(-20)
	if p.Brightness() != 0 {
		t.Fatalf("negative brightness should clamp to 0, got %d", p.Brightness())
	}
	p.SetBrightness(4000)
	if p.Brightness() != 255 {
		t.Fatalf("oversized brightness should clamp to 255, got %d", p.Brightness())
	}
}

func TestCleanup_ClosesSink(t *testing.T) {
	sink := newFakeSink(4)
	p, err := New(Config{Name: "s1", LEDCount: 4, Brightness: 255}, sink, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.SetPattern(constPattern(4, frame.RGB{R: 1})); err != nil {
		t.Fatalf("SetPattern err=%v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	if err := p.Cleanup(); err != nil {
		t.Fatalf("Cleanup err=%v", err)
	}
	if sink.closes != 1 {
		t.Fatalf("sink closes=%d, want 1", sink.closes)
	}
}

// ---- isolation ----

func TestPipelines_FailIndependently(t *testing.T) {
	badSink := newFakeSink(4)
	bad, err := New(Config{Name: "bad", LEDCount: 4, Brightness: 255}, badSink, nil)
	if err != nil {
		t.Fatalf("New(bad) err=%v", err)
	}
	badPat := &fakePattern{script: func(int) (frame.Frame, error) {
		return nil, errors.New("render blew up")
	}}
	if err := bad.SetPattern(badPat); err != nil {
		t.Fatalf("SetPattern(bad) err=%v", err)
	}

	goodSink := newFakeSink(4)
	good, err := New(Config{Name: "good", LEDCount: 4, Brightness: 255}, goodSink, nil)
	if err != nil {
		t.Fatalf("New(good) err=%v", err)
	}
	if err := good.SetPattern(constPattern(4, frame.RGB{G: 40})); err != nil {
		t.Fatalf("SetPattern(good) err=%v", err)
	}

	if err := bad.Start(); err != nil {
		t.Fatalf("Start(bad) err=%v", err)
	}
	if err := good.Start(); err != nil {
		t.Fatalf("Start(good) err=%v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return bad.Health().Fatal() })

	before := goodSink.frameCount()
	waitFor(t, 2*time.Second, func() bool { return goodSink.frameCount() > before })
	if !good.Health().Running {
		t.Fatalf("healthy pipeline stopped when its sibling failed")
	}

	bad.Stop()
	good.Stop()
}
