package config

import (
	"fmt"
)

// supportedPins maps GPIO pins to their driver channel: pin 10 via SPI,
// pins 12 and 18 via PWM0, pin 21 via PWM1.
var supportedPins = map[int]int{
	10: 0,
	12: 0,
	18: 0,
	21: 1,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// STRIP GEOMETRY VALIDATION
	// ------------------------------------------------------------

	if len(cfg.Strips) == 0 {
		return fmt.Errorf("config: at least one strip required")
	}

	seenIDs := make(map[string]bool)
	channelOwner := make(map[int]string)

	for _, s := range cfg.Strips {
		if s.ID == "" {
			return fmt.Errorf("config: strip id required")
		}
		if seenIDs[s.ID] {
			return fmt.Errorf("config: duplicate strip id %q", s.ID)
		}
		seenIDs[s.ID] = true

		if s.LEDCount <= 0 {
			return fmt.Errorf("config: strip %q: led_count must be positive, got %d", s.ID, s.LEDCount)
		}

		channel, ok := supportedPins[s.GPIOPin]
		if !ok {
			return fmt.Errorf("config: strip %q: unsupported GPIO pin %d (supported: 10, 12, 18, 21)", s.ID, s.GPIOPin)
		}
		if owner, taken := channelOwner[channel]; taken {
			return fmt.Errorf("config: strips %q and %q map to the same driver channel %d", owner, s.ID, channel)
		}
		channelOwner[channel] = s.ID

		// led_start/led_end are optional display-addressing hints; when
		// both are given they must span exactly led_count pixels.
		if s.LEDEnd != 0 || s.LEDStart != 0 {
			if s.LEDEnd < s.LEDStart {
				return fmt.Errorf("config: strip %q: led_end %d before led_start %d", s.ID, s.LEDEnd, s.LEDStart)
			}
			if span := s.LEDEnd - s.LEDStart + 1; span != s.LEDCount {
				return fmt.Errorf("config: strip %q: led range spans %d pixels but led_count is %d", s.ID, span, s.LEDCount)
			}
		}
	}

	// ------------------------------------------------------------
	// HARDWARE / STARTUP RANGE VALIDATION
	// ------------------------------------------------------------

	if cfg.Hardware.FreqHz < 0 {
		return fmt.Errorf("config: freq_hz must not be negative, got %d", cfg.Hardware.FreqHz)
	}
	if b := cfg.Hardware.Brightness; b != nil && (*b < 0 || *b > 255) {
		return fmt.Errorf("config: hardware brightness %d out of range 0-255", *b)
	}
	if b := cfg.Startup.Brightness; b != nil && (*b < 0 || *b > 255) {
		return fmt.Errorf("config: startup brightness %d out of range 0-255", *b)
	}

	if cfg.Metrics.ExportIntervalS < 0 {
		return fmt.Errorf("config: export_interval_s must not be negative, got %d", cfg.Metrics.ExportIntervalS)
	}

	return nil
}
