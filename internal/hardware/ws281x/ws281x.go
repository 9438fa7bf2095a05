// Package ws281x adapts the rpi-ws281x driver into the per-strip sink
// contract the pipelines consume. One driver engine serves up to two PWM/SPI
// channels; each strip stages pixels locally and commits are serialized on
// the shared engine.
package ws281x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	ws2811 "github.com/rpi-ws281x/rpi-ws281x-go"

	"mushlight/internal/frame"
)

// latchDelay is the WS2811 reset period required after each frame so the
// next transmit never begins prematurely.
const latchDelay = 200 * time.Microsecond

// maxChannels is the driver's hard channel limit.
const maxChannels = 2

// StripLayout describes one strip attached to the engine.
type StripLayout struct {
	ID       string
	GPIOPin  int
	LEDCount int
}

// Options configures the shared engine.
type Options struct {
	FreqHz int
	Invert bool
	Strips []StripLayout
}

// ChannelForPin maps a GPIO pin to its driver channel.
// Pin 10 drives via SPI, pins 12 and 18 via PWM0, pin 21 via PWM1.
func ChannelForPin(pin int) (int, error) {
	switch pin {
	case 10, 12, 18:
		return 0, nil
	case 21:
		return 1, nil
	default:
		return 0, fmt.Errorf("ws281x: unsupported GPIO pin %d", pin)
	}
}

// dmaForPin selects the DMA channel: SPI output needs DMA 10, PWM uses 5.
func dmaForPin(pin int) int {
	if pin == 10 {
		return 10
	}
	return 5
}

// Device owns the shared driver engine.
type Device struct {
	mu     sync.Mutex
	eng    *ws2811.WS2811
	strips map[string]*Strip
	open   int
	finied bool
}

// Open initializes the driver for the given strips.
func Open(opts Options) (*Device, error) {
	if len(opts.Strips) == 0 {
		return nil, errors.New("ws281x: at least one strip required")
	}
	if len(opts.Strips) > maxChannels {
		return nil, fmt.Errorf("ws281x: at most %d strips supported, got %d", maxChannels, len(opts.Strips))
	}

	opt := ws2811.DefaultOptions
	if opts.FreqHz > 0 {
		opt.Frequency = opts.FreqHz
	}

	channels := make([]ws2811.ChannelOption, maxChannels)
	used := make(map[int]string, maxChannels)
	dma := 5

	for _, s := range opts.Strips {
		ch, err := ChannelForPin(s.GPIOPin)
		if err != nil {
			return nil, err
		}
		if owner, taken := used[ch]; taken {
			return nil, fmt.Errorf("ws281x: strips %q and %q share driver channel %d", owner, s.ID, ch)
		}
		used[ch] = s.ID

		channels[ch] = ws2811.ChannelOption{
			GpioPin:  s.GPIOPin,
			LedCount: s.LEDCount,
			// Patterns fold brightness into color computation; the driver
			// must not scale a second time.
			Brightness: 255,
			Invert:     opts.Invert,
			StripeType: ws2811.WS2812Strip,
		}
		if d := dmaForPin(s.GPIOPin); d > dma {
			dma = d
		}
	}
	opt.DmaNum = dma
	opt.Channels = channels

	eng, err := ws2811.MakeWS2811(&opt)
	if err != nil {
		return nil, fmt.Errorf("ws281x: create driver: %w", err)
	}
	if err := eng.Init(); err != nil {
		return nil, fmt.Errorf("ws281x: init driver: %w", err)
	}
	// Strips may hold stale pixels from a previous run; the freshly
	// initialized buffers are all dark, so one render blanks them.
	if err := eng.Render(); err != nil {
		eng.Fini()
		return nil, fmt.Errorf("ws281x: initial clear: %w", err)
	}

	d := &Device{eng: eng, strips: make(map[string]*Strip)}
	for _, s := range opts.Strips {
		ch, _ := ChannelForPin(s.GPIOPin)
		d.strips[s.ID] = &Strip{
			dev:     d,
			channel: ch,
			staged:  make([]uint32, s.LEDCount),
		}
		d.open++
	}
	return d, nil
}

// Strip returns the sink for one configured strip ID.
func (d *Device) Strip(id string) (*Strip, error) {
	s, ok := d.strips[id]
	if !ok {
		return nil, fmt.Errorf("ws281x: unknown strip %q", id)
	}
	return s, nil
}

// release is called once per strip close; the engine shuts down when the
// last strip releases it.
func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open > 0 {
		d.open--
	}
	if d.open == 0 && !d.finied {
		d.eng.Fini()
		d.finied = true
	}
}

// Strip is the per-strip sink. Pixels are staged into a private buffer so
// staging never races with another strip's commit; Show copies the buffer
// into the engine under the device lock.
type Strip struct {
	dev     *Device
	channel int
	staged  []uint32
	closed  bool
}

// LEDCount returns the strip length.
func (s *Strip) LEDCount() int { return len(s.staged) }

// SetPixel stages one pixel. Out-of-range indices are ignored.
func (s *Strip) SetPixel(i int, c frame.RGB) {
	if i < 0 || i >= len(s.staged) {
		return
	}
	s.staged[i] = uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Show commits the staged pixels to hardware, including the mandated latch
// delay. Commits on the shared engine are serialized.
func (s *Strip) Show() error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if s.dev.finied {
		return errors.New("ws281x: device closed")
	}
	copy(s.dev.eng.Leds(s.channel), s.staged)
	if err := s.dev.eng.Render(); err != nil {
		return fmt.Errorf("ws281x: render: %w", err)
	}
	if err := s.dev.eng.Wait(); err != nil {
		return fmt.Errorf("ws281x: wait: %w", err)
	}
	time.Sleep(latchDelay)
	return nil
}

// Clear turns the whole strip off.
func (s *Strip) Clear() error {
	for i := range s.staged {
		s.staged[i] = 0
	}
	return s.Show()
}

// Close releases this strip's share of the engine.
func (s *Strip) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.dev.release()
	return nil
}
